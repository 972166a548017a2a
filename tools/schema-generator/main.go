// Command schema-generator writes the JSON Schemas of sessionlink.yml and of
// its logging section.
package main

import (
	"encoding/json"
	"flag"
	"log"
	"os"
	"path/filepath"

	"github.com/grovetools/sessionlink/config"
	"github.com/grovetools/sessionlink/logging"
	"github.com/invopop/jsonschema"
)

func main() {
	outputDir := flag.String("out", "schema", "Directory to write the schemas into")
	flag.Parse()

	if err := os.MkdirAll(*outputDir, 0o755); err != nil {
		log.Fatalf("Error creating schema directory: %v", err)
	}

	schemaBytes, err := config.GenerateSchema()
	if err != nil {
		log.Fatalf("Error generating config schema: %v", err)
	}
	write(filepath.Join(*outputDir, "sessionlink.schema.json"), schemaBytes)

	r := &jsonschema.Reflector{
		AllowAdditionalProperties: true,
		ExpandedStruct:            true,
		FieldNameTag:              "yaml",
	}
	s := r.Reflect(&logging.Config{})
	s.Title = "sessionlink logging configuration"
	s.Description = "The logging section of sessionlink.yml"
	loggingBytes, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		log.Fatalf("Error marshaling logging schema: %v", err)
	}
	write(filepath.Join(*outputDir, "logging.schema.json"), loggingBytes)
}

func write(path string, data []byte) {
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		log.Fatalf("Error writing %s: %v", path, err)
	}
	log.Printf("Generated %s", path)
}
