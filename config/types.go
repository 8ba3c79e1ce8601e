package config

import (
	"fmt"
	"time"

	"github.com/mitchellh/mapstructure"
)

const (
	DefaultPollInterval           = 30 * time.Second
	DefaultRequestTimeout         = 10 * time.Second
	DefaultSessionRefreshInterval = 5 * time.Minute

	// MinPollInterval keeps a misconfigured daemon from hammering the instance.
	MinPollInterval = time.Second
)

// Config is the daemon configuration, read from inbox.yml or inbox.toml
// and overridden by INBOXD_* environment variables.
type Config struct {
	// Instance is the base URL of the Lemmy instance, e.g. https://lemmy.ml.
	Instance string `yaml:"instance" mapstructure:"instance" env:"INBOXD_INSTANCE"`

	PollInterval           time.Duration `yaml:"poll_interval" mapstructure:"poll_interval" env:"INBOXD_POLL_INTERVAL"`
	RequestTimeout         time.Duration `yaml:"request_timeout" mapstructure:"request_timeout" env:"INBOXD_REQUEST_TIMEOUT"`
	SessionRefreshInterval time.Duration `yaml:"session_refresh_interval" mapstructure:"session_refresh_interval" env:"INBOXD_SESSION_REFRESH_INTERVAL"`

	// TokenFile holds the persisted JWT. Defaults to $XDG_STATE_HOME/inboxd/auth.
	TokenFile string `yaml:"token_file" mapstructure:"token_file" env:"INBOXD_TOKEN_FILE"`

	// StartHidden starts the daemon with polling paused until a client
	// reports the page visible.
	StartHidden bool `yaml:"start_hidden" mapstructure:"start_hidden" env:"INBOXD_START_HIDDEN"`

	// Listen is an optional TCP address (host:port) served alongside the
	// unix socket, for browser clients of the websocket endpoint.
	Listen string `yaml:"listen,omitempty" mapstructure:"listen" env:"INBOXD_LISTEN"`

	// AllowedOrigins lists the cross-origin pages that may open the
	// websocket endpoint. Same-origin pages are always allowed.
	AllowedOrigins []string `yaml:"allowed_origins,omitempty" mapstructure:"allowed_origins" env:"INBOXD_ALLOWED_ORIGINS" envSeparator:","`

	// Extensions holds every top-level key inboxd does not know about,
	// e.g. the logging section. Use UnmarshalExtension to read one.
	Extensions map[string]interface{} `yaml:",inline" mapstructure:",remain"`
}

// UnmarshalExtension decodes the extension section stored under key into
// target, which must be a pointer. A missing key leaves target untouched.
//
// Example:
//
//	var logCfg logging.Config
//	err := cfg.UnmarshalExtension("logging", &logCfg)
func (c *Config) UnmarshalExtension(key string, target interface{}) error {
	section, ok := c.Extensions[key]
	if !ok {
		return nil
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           target,
		TagName:          "yaml",
		WeaklyTypedInput: true,
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
	})
	if err != nil {
		return fmt.Errorf("failed to create mapstructure decoder: %w", err)
	}

	if err := decoder.Decode(section); err != nil {
		return fmt.Errorf("failed to decode extension config for '%s': %w", key, err)
	}

	return nil
}

// Source identifies where a configuration layer came from.
type Source string

const (
	SourceDefault Source = "default"
	SourceGlobal  Source = "global"
	SourceProject Source = "project"
	SourceFile    Source = "file"
	SourceEnv     Source = "env"
)

// Layers records which files contributed to a loaded Config.
type Layers struct {
	Final     *Config
	FilePaths map[Source]string
}
