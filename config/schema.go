package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/grovetools/inbox/errors"
	"github.com/invopop/jsonschema"
	santhosh "github.com/santhosh-tekuri/jsonschema/v5"
)

// durationPattern matches the strings time.ParseDuration accepts.
const durationPattern = `^([0-9]+([.][0-9]+)?(ns|us|ms|s|m|h))+$`

// fileSchema mirrors Config as it is written in inbox.yml, with durations
// as strings. Extension sections such as logging are left open.
type fileSchema struct {
	Instance               string   `yaml:"instance,omitempty" jsonschema:"description=Base URL of the Lemmy instance"`
	PollInterval           string   `yaml:"poll_interval,omitempty" jsonschema:"description=Delay between fetch cycles (minimum 1s)"`
	RequestTimeout         string   `yaml:"request_timeout,omitempty" jsonschema:"description=Timeout of a single API request"`
	SessionRefreshInterval string   `yaml:"session_refresh_interval,omitempty" jsonschema:"description=How often the user's roles are re-read"`
	TokenFile              string   `yaml:"token_file,omitempty" jsonschema:"description=Path of the persisted auth token"`
	StartHidden            bool     `yaml:"start_hidden,omitempty" jsonschema:"description=Start with polling paused"`
	Listen                 string   `yaml:"listen,omitempty" jsonschema:"description=Optional TCP address for browser clients"`
	AllowedOrigins         []string `yaml:"allowed_origins,omitempty" jsonschema:"description=Cross-origin pages allowed to open the websocket endpoint (* for any)"`
}

// GenerateSchema returns the JSON Schema of the inbox.yml core keys.
func GenerateSchema() ([]byte, error) {
	r := &jsonschema.Reflector{
		AllowAdditionalProperties: true,
		ExpandedStruct:            true,
		Anonymous:                 true,
		FieldNameTag:              "yaml",
	}

	schema := r.Reflect(&fileSchema{})
	schema.Title = "inboxd configuration"
	schema.Description = "Schema for inbox.yml and inbox.toml."
	schema.Version = "http://json-schema.org/draft-07/schema#"

	for _, key := range []string{"poll_interval", "request_timeout", "session_refresh_interval"} {
		if prop, ok := schema.Properties.Get(key); ok {
			prop.Pattern = durationPattern
		}
	}

	return json.MarshalIndent(schema, "", "  ")
}

// SchemaValidator checks raw configuration maps against GenerateSchema.
type SchemaValidator struct {
	schema *santhosh.Schema
}

var (
	defaultValidator     *SchemaValidator
	defaultValidatorErr  error
	defaultValidatorOnce sync.Once
)

// NewSchemaValidator compiles the generated schema.
func NewSchemaValidator() (*SchemaValidator, error) {
	data, err := GenerateSchema()
	if err != nil {
		return nil, fmt.Errorf("failed to generate schema: %w", err)
	}

	compiler := santhosh.NewCompiler()
	if err := compiler.AddResource("inbox.json", bytes.NewReader(data)); err != nil {
		return nil, fmt.Errorf("failed to add schema resource: %w", err)
	}
	schema, err := compiler.Compile("inbox.json")
	if err != nil {
		return nil, fmt.Errorf("failed to compile schema: %w", err)
	}
	return &SchemaValidator{schema: schema}, nil
}

func sharedValidator() (*SchemaValidator, error) {
	defaultValidatorOnce.Do(func() {
		defaultValidator, defaultValidatorErr = NewSchemaValidator()
	})
	return defaultValidator, defaultValidatorErr
}

// Validate checks configData, which must marshal to a JSON object.
func (v *SchemaValidator) Validate(configData interface{}) error {
	jsonData, err := json.Marshal(configData)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeConfigInvalid, "failed to marshal config for validation")
	}

	var doc interface{}
	if err := json.Unmarshal(jsonData, &doc); err != nil {
		return errors.Wrap(err, errors.ErrCodeConfigInvalid, "failed to unmarshal config for validation")
	}

	if err := v.schema.Validate(doc); err != nil {
		var violations []string
		if ve, ok := err.(*santhosh.ValidationError); ok {
			collectErrors(ve, &violations)
		}
		if len(violations) == 0 {
			violations = []string{err.Error()}
		}
		return errors.New(errors.ErrCodeConfigInvalid,
			"schema validation failed:\n"+strings.Join(violations, "\n")).
			WithDetail("violations", violations)
	}
	return nil
}

func collectErrors(err *santhosh.ValidationError, messages *[]string) {
	if err.InstanceLocation != "" {
		*messages = append(*messages, fmt.Sprintf("- %s: %s", err.InstanceLocation, err.Message))
	}
	for _, cause := range err.Causes {
		collectErrors(cause, messages)
	}
}
