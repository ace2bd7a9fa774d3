// Schema Generator
//
// Generates JSON Schema files from Go types for use by downstream consumers
// of the internal API. Go is the source of truth for the shared types.
//
// Usage:
//
//	go run cmd/schema-gen/main.go
//
// Output:
//
//	../../shared/schemas/partners.json
//	../../shared/schemas/records.json
//	../../shared/schemas/imports.json
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/invopop/jsonschema"

	"github.com/afflux/partner-service/internal/database"
	"github.com/afflux/partner-service/internal/handlers"
	"github.com/afflux/partner-service/internal/partners"
	"github.com/afflux/partner-service/internal/types"
)

// SchemaGroup represents a group of related schemas
type SchemaGroup struct {
	Name   string
	Types  []any
	Output string
}

func main() {
	outputDir := "../../shared/schemas"

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create output directory: %v\n", err)
		os.Exit(1)
	}

	groups := []SchemaGroup{
		{
			Name: "partners",
			Types: []any{
				partners.Config{},
				partners.FieldMappings{},
				partners.DimensionMappings{},
				partners.ValidationRules{},
				partners.RangeRule{},
				handlers.PartnerSummary{},
				handlers.ListPartnersResponse{},
			},
			Output: "partners.json",
		},
		{
			Name: "records",
			Types: []any{
				types.Conversion{},
				types.Player{},
				types.Dimension{},
			},
			Output: "records.json",
		},
		{
			Name: "imports",
			Types: []any{
				types.IngestionResult{},
				types.ImportSummary{},
				database.ImportRun{},
				handlers.ImportStartedResponse{},
				handlers.ValidateResponse{},
				handlers.ListRunsResponse{},
			},
			Output: "imports.json",
		},
	}

	for _, group := range groups {
		schema := generateGroupSchema(group)
		outputPath := filepath.Join(outputDir, group.Output)

		if err := writeSchema(schema, outputPath); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to write %s: %v\n", group.Output, err)
			os.Exit(1)
		}

		fmt.Printf("Generated %s\n", outputPath)
	}

	fmt.Println("Schema generation complete!")
}

// generateGroupSchema creates a combined schema with all types in a group
func generateGroupSchema(group SchemaGroup) map[string]any {
	reflector := &jsonschema.Reflector{
		DoNotReference: false,
		ExpandedStruct: false,
	}

	definitions := make(map[string]any)

	for _, t := range group.Types {
		schema := reflector.Reflect(t)

		typeName := ""
		if schema.Ref != "" {
			typeName = filepath.Base(schema.Ref)
		}

		for name, def := range schema.Definitions {
			definitions[name] = def
		}

		if typeName != "" && schema.Definitions[typeName] != nil {
			definitions[typeName] = schema.Definitions[typeName]
		}
	}

	return map[string]any{
		"$schema":     "https://json-schema.org/draft/2020-12/schema",
		"$id":         fmt.Sprintf("https://afflux.io/schemas/%s.json", group.Name),
		"title":       fmt.Sprintf("%s API Types", capitalize(group.Name)),
		"description": fmt.Sprintf("JSON Schema for %s API types generated from Go structs", group.Name),
		"$defs":       definitions,
	}
}

// writeSchema writes a schema to a JSON file
func writeSchema(schema map[string]any, path string) error {
	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal schema: %w", err)
	}

	return os.WriteFile(path, data, 0644)
}

func capitalize(s string) string {
	if len(s) == 0 {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
