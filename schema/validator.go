// Package schema validates inbound host messages against an embedded JSON
// Schema before they are decoded.
package schema

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed inbound.schema.json
var inboundSchemaData []byte

// Validator validates messages against the embedded inbound schema.
type Validator struct {
	schema *jsonschema.Schema
}

// NewValidator compiles the embedded schema.
func NewValidator() (*Validator, error) {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("inbound.json", bytes.NewReader(inboundSchemaData)); err != nil {
		return nil, fmt.Errorf("failed to add embedded schema resource: %w", err)
	}

	schema, err := compiler.Compile("inbound.json")
	if err != nil {
		return nil, fmt.Errorf("failed to compile embedded schema: %w", err)
	}

	return &Validator{schema: schema}, nil
}

// Schema returns the embedded schema document.
func Schema() []byte {
	return inboundSchemaData
}

// ValidateBytes validates one raw JSON message.
func (v *Validator) ValidateBytes(data []byte) error {
	var doc interface{}
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("malformed JSON: %w", err)
	}
	return v.validate(doc)
}

// Validate validates any value that marshals to JSON.
func (v *Validator) Validate(msg interface{}) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message for validation: %w", err)
	}
	return v.ValidateBytes(data)
}

func (v *Validator) validate(doc interface{}) error {
	if err := v.schema.Validate(doc); err != nil {
		if validationErr, ok := err.(*jsonschema.ValidationError); ok {
			var errorMessages []string
			collectErrors(validationErr, &errorMessages)
			return fmt.Errorf("schema validation failed:\n%s", strings.Join(errorMessages, "\n"))
		}
		return fmt.Errorf("schema validation failed: %w", err)
	}
	return nil
}

// collectErrors flattens the validation error tree.
func collectErrors(err *jsonschema.ValidationError, messages *[]string) {
	if len(err.Causes) == 0 {
		loc := err.InstanceLocation
		if loc == "" {
			loc = "/"
		}
		*messages = append(*messages, fmt.Sprintf("- %s: %s", loc, err.Message))
	}
	for _, cause := range err.Causes {
		collectErrors(cause, messages)
	}
}
