// Command schema-generator writes the JSON schema of inbox.yml, with the
// logging section spelled out, for editors and language servers.
package main

import (
	"encoding/json"
	"log"
	"os"
	"path/filepath"

	"github.com/grovetools/inbox/config"
	"github.com/grovetools/inbox/logging"
	"github.com/invopop/jsonschema"
)

func main() {
	outputPath := "schema/inbox.schema.json"
	if len(os.Args) > 1 {
		outputPath = os.Args[1]
	}

	baseBytes, err := config.GenerateSchema()
	if err != nil {
		log.Fatalf("Error generating schema: %v", err)
	}
	var schema map[string]interface{}
	if err := json.Unmarshal(baseBytes, &schema); err != nil {
		log.Fatalf("Error parsing base schema: %v", err)
	}

	r := &jsonschema.Reflector{
		AllowAdditionalProperties: true,
		ExpandedStruct:            true,
		FieldNameTag:              "yaml",
	}
	loggingSchema := r.Reflect(&logging.Config{})
	loggingSchema.Version = ""
	loggingSchema.Description = "Log level, format and file sink of every inboxd component."
	loggingSchema.Required = nil

	properties, ok := schema["properties"].(map[string]interface{})
	if !ok {
		properties = make(map[string]interface{})
		schema["properties"] = properties
	}
	properties["logging"] = loggingSchema
	schema["title"] = "inboxd configuration"

	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		log.Fatalf("Error marshaling schema: %v", err)
	}
	if err := os.MkdirAll(filepath.Dir(outputPath), 0755); err != nil {
		log.Fatalf("Error creating schema directory: %v", err)
	}
	if err := os.WriteFile(outputPath, data, 0644); err != nil {
		log.Fatalf("Error writing schema file: %v", err)
	}

	log.Printf("Successfully generated schema at %s", outputPath)
}
