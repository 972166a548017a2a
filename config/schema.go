package config

//go:generate go run ../tools/schema-generator -out ../schema

import (
	"encoding/json"

	"github.com/invopop/jsonschema"
)

// GenerateSchema generates the JSON Schema for sessionlink.yml. Extension
// sections are allowed but not described.
func GenerateSchema() ([]byte, error) {
	r := &jsonschema.Reflector{
		AllowAdditionalProperties: true,
		ExpandedStruct:            true,
		FieldNameTag:              "yaml",
	}

	schema := r.Reflect(&Config{})
	schema.Title = "sessionlink configuration"
	schema.Description = "Schema for sessionlink.yml and sessionlink.toml."
	schema.Version = "http://json-schema.org/draft-07/schema#"

	return json.MarshalIndent(schema, "", "  ")
}
