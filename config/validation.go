package config

import (
	"fmt"
	"net"
	"net/url"

	"github.com/grovetools/inbox/errors"
)

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if err := validateInstance(c.Instance); err != nil {
		return err
	}

	if c.PollInterval < MinPollInterval {
		return errors.ConfigValidation("poll_interval",
			fmt.Sprintf("must be at least %s, got %s", MinPollInterval, c.PollInterval))
	}
	if c.RequestTimeout <= 0 {
		return errors.ConfigValidation("request_timeout", "must be positive")
	}
	if c.SessionRefreshInterval <= 0 {
		return errors.ConfigValidation("session_refresh_interval", "must be positive")
	}
	if c.TokenFile == "" {
		return errors.ConfigValidation("token_file", "cannot be empty")
	}
	if c.Listen != "" {
		if _, _, err := net.SplitHostPort(c.Listen); err != nil {
			return errors.ConfigValidation("listen", err.Error())
		}
	}
	for _, origin := range c.AllowedOrigins {
		if origin == "*" {
			continue
		}
		u, err := url.Parse(origin)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return errors.ConfigValidation("allowed_origins", fmt.Sprintf("%q is not an origin such as https://lemmy.ml", origin))
		}
	}

	return nil
}

func validateInstance(instance string) error {
	if instance == "" {
		return errors.ConfigValidation("instance", "is required (set it in inbox.yml or INBOXD_INSTANCE)")
	}
	u, err := url.Parse(instance)
	if err != nil {
		return errors.ConfigValidation("instance", err.Error())
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return errors.ConfigValidation("instance", fmt.Sprintf("must be an http or https URL, got %q", instance))
	}
	if u.Host == "" {
		return errors.ConfigValidation("instance", fmt.Sprintf("missing host in %q", instance))
	}
	return nil
}
