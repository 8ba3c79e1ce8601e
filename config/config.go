package config

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/grovetools/inbox/errors"
	"github.com/grovetools/inbox/pkg/paths"
	"github.com/grovetools/inbox/util/pathutil"
	"github.com/mitchellh/mapstructure"
	"github.com/pelletier/go-toml/v2"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

// configNames lists the file names searched in each directory, in order.
var configNames = []string{
	"inbox.yml",
	"inbox.yaml",
	"inbox.toml",
	".inbox.yml",
	".inbox.yaml",
	".inbox.toml",
}

// Load returns the configuration at path, or the layered default
// configuration when path is empty. INBOXD_CONFIG stands in for an
// empty path.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv("INBOXD_CONFIG")
	}
	if path != "" {
		return LoadFrom(path)
	}
	return LoadDefault()
}

// LoadDefault loads the layered configuration starting at the working directory.
func LoadDefault() (*Config, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to get working directory")
	}
	layers, err := LoadLayered(cwd)
	if err != nil {
		return nil, err
	}
	return layers.Final, nil
}

// LoadFrom loads a single configuration file, applies environment
// overrides and defaults, and validates the result.
func LoadFrom(path string) (*Config, error) {
	return LoadFromWithLogger(path, logrus.StandardLogger())
}

// LoadFromWithLogger is LoadFrom with an explicit logger for debug output.
func LoadFromWithLogger(path string, logger *logrus.Logger) (*Config, error) {
	raw, err := readRaw(path)
	if err != nil {
		return nil, err
	}
	logger.WithField("path", path).Debug("Loaded configuration file")
	return finalize(raw)
}

// LoadLayered merges the global file in the inboxd config directory with
// the nearest project file found walking up from startDir. Project keys
// win. Neither file is required; env overrides may supply everything.
func LoadLayered(startDir string) (*Layers, error) {
	layers := &Layers{FilePaths: make(map[Source]string)}
	merged := make(map[string]interface{})

	globalPath := findIn(paths.ConfigDir())
	if globalPath != "" {
		raw, err := readRaw(globalPath)
		if err != nil {
			return nil, err
		}
		merged = mergeMaps(merged, raw)
		layers.FilePaths[SourceGlobal] = globalPath
	}

	if projectPath := findProjectConfig(startDir); projectPath != "" && projectPath != globalPath {
		raw, err := readRaw(projectPath)
		if err != nil {
			return nil, err
		}
		merged = mergeMaps(merged, raw)
		layers.FilePaths[SourceProject] = projectPath
	}

	cfg, err := finalize(merged)
	if err != nil {
		return nil, err
	}
	layers.Final = cfg
	return layers, nil
}

// Parse decodes configuration content. format is "toml" for TOML;
// anything else is read as YAML.
func Parse(data []byte, format string) (*Config, error) {
	raw, err := parseRaw(data, format)
	if err != nil {
		return nil, err
	}
	return finalize(raw)
}

// FindConfigFile searches for an inboxd configuration file with the
// following precedence:
// 1. startDir up to the filesystem root
// 2. the inboxd config directory (~/.config/inboxd)
func FindConfigFile(startDir string) (string, error) {
	if path := findProjectConfig(startDir); path != "" {
		return path, nil
	}
	if path := findIn(paths.ConfigDir()); path != "" {
		return path, nil
	}
	return "", errors.ConfigNotFound(startDir).WithDetail("searchPath", startDir)
}

func findProjectConfig(startDir string) string {
	dir := startDir
	for {
		if path := findIn(dir); path != "" {
			return path
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

func findIn(dir string) string {
	if dir == "" {
		return ""
	}
	for _, name := range configNames {
		path := filepath.Join(dir, name)
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path
		}
	}
	return ""
}

func readRaw(path string) (map[string]interface{}, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.ConfigNotFound(path)
		}
		return nil, errors.Wrap(err, errors.ErrCodeConfigInvalid, "failed to read configuration").
			WithDetail("path", path)
	}
	format := "yaml"
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		format = "toml"
	}
	raw, err := parseRaw(data, format)
	if err != nil {
		if ie, ok := errors.As(err); ok {
			return nil, ie.WithDetail("path", path)
		}
		return nil, err
	}
	return raw, nil
}

func parseRaw(data []byte, format string) (map[string]interface{}, error) {
	expanded := []byte(expandEnvVars(string(data)))

	raw := make(map[string]interface{})
	if format == "toml" {
		if err := toml.Unmarshal(expanded, &raw); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeConfigInvalid, "failed to parse TOML configuration")
		}
		return raw, nil
	}
	if err := yaml.Unmarshal(expanded, &raw); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeConfigInvalid, "failed to parse YAML configuration")
	}
	return raw, nil
}

// finalize checks the merged raw layers against the schema, decodes them,
// then applies environment overrides, defaults and validation in that order.
func finalize(raw map[string]interface{}) (*Config, error) {
	validator, err := sharedValidator()
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to create schema validator")
	}
	if err := validator.Validate(raw); err != nil {
		return nil, err
	}

	var cfg Config
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &cfg,
		TagName:          "mapstructure",
		WeaklyTypedInput: true,
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to create decoder")
	}
	if err := decoder.Decode(raw); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeConfigInvalid, "failed to decode configuration")
	}

	if err := env.Parse(&cfg); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeConfigInvalid, "failed to apply environment overrides")
	}

	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// SetDefaults fills every unset field with its default.
func (c *Config) SetDefaults() {
	if c.PollInterval == 0 {
		c.PollInterval = DefaultPollInterval
	}
	if c.RequestTimeout == 0 {
		c.RequestTimeout = DefaultRequestTimeout
	}
	if c.SessionRefreshInterval == 0 {
		c.SessionRefreshInterval = DefaultSessionRefreshInterval
	}
	if c.TokenFile == "" {
		c.TokenFile = paths.TokenFile()
	} else if expanded, err := pathutil.Expand(c.TokenFile); err == nil {
		c.TokenFile = expanded
	}
	c.Instance = strings.TrimRight(c.Instance, "/")
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment values.
func expandEnvVars(content string) string {
	return envVarRegex.ReplaceAllStringFunc(content, func(match string) string {
		varName := envVarRegex.FindStringSubmatch(match)[1]

		parts := strings.SplitN(varName, ":-", 2)
		varName = parts[0]
		defaultValue := ""
		if len(parts) > 1 {
			defaultValue = parts[1]
		}

		if value := os.Getenv(varName); value != "" {
			return value
		}
		return defaultValue
	})
}

// mergeMaps overlays src onto dst. Nested maps merge key by key; any
// other value in src replaces the one in dst.
func mergeMaps(dst, src map[string]interface{}) map[string]interface{} {
	for key, value := range src {
		srcMap, srcOk := value.(map[string]interface{})
		dstMap, dstOk := dst[key].(map[string]interface{})
		if srcOk && dstOk {
			merged := make(map[string]interface{}, len(dstMap)+len(srcMap))
			for k, v := range dstMap {
				merged[k] = v
			}
			dst[key] = mergeMaps(merged, srcMap)
			continue
		}
		dst[key] = value
	}
	return dst
}
