package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestWriteSchemaProducesValidJSON(t *testing.T) {
	dir := t.TempDir()
	for _, doc := range documents {
		path := filepath.Join(dir, doc.file)
		if err := writeSchema(path, buildSchema(doc)); err != nil {
			t.Fatalf("write %s: %v", doc.file, err)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			t.Fatalf("read %s: %v", doc.file, err)
		}
		var decoded map[string]any
		if err := json.Unmarshal(data, &decoded); err != nil {
			t.Fatalf("%s is not JSON: %v", doc.file, err)
		}
		if decoded["title"] != doc.title {
			t.Fatalf("%s: expected title %q, got %v", doc.file, doc.title, decoded["title"])
		}
	}
	species, _ := os.ReadFile(filepath.Join(dir, "species.schema.json"))
	if !strings.Contains(string(species), "Species id") {
		t.Fatalf("expected field titles from struct tags in species schema")
	}
}
