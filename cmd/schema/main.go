// Command schema writes JSON schemas for the catalog data files.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/invopop/jsonschema"

	"skirmish/catalog"
)

type document struct {
	file        string
	title       string
	description string
	value       any
}

var documents = []document{
	{"species.schema.json", "Species catalog", "Validates entries in catalog species.json files", new(catalog.SpeciesFile)},
	{"moves.schema.json", "Move catalog", "Validates entries in catalog moves.json files", new(catalog.MoveFile)},
	{"abilities.schema.json", "Ability catalog", "Validates entries in catalog abilities.json files", new(catalog.AbilityFile)},
	{"items.schema.json", "Item catalog", "Validates entries in catalog items.json files", new(catalog.ItemFile)},
}

func main() {
	var outDir string
	flag.StringVar(&outDir, "out", "", "directory to write the JSON schemas into")
	flag.Parse()

	if outDir == "" {
		fmt.Fprintln(os.Stderr, "--out is required")
		os.Exit(1)
	}

	for _, doc := range documents {
		if err := writeSchema(filepath.Join(outDir, doc.file), buildSchema(doc)); err != nil {
			fmt.Fprintf(os.Stderr, "failed to write %s: %v\n", doc.file, err)
			os.Exit(1)
		}
	}
}

func buildSchema(doc document) *jsonschema.Schema {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
	}
	schema := reflector.Reflect(doc.value)
	schema.Title = doc.title
	schema.Description = doc.description
	return schema
}

func writeSchema(outPath string, schema *jsonschema.Schema) error {
	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal schema: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return fmt.Errorf("create schema directory: %w", err)
	}

	tmpPath := outPath + ".tmp"
	if err := os.WriteFile(tmpPath, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write temp schema: %w", err)
	}

	if err := os.Rename(tmpPath, outPath); err != nil {
		return fmt.Errorf("replace schema: %w", err)
	}

	return nil
}
