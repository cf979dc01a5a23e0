package generate

import (
	"encoding/json"
	"fmt"
	"path"

	"loom/internal/entity"
)

// SchemaGenerator emits a JSON Schema (draft-07) validation document for an
// entity. Output is deterministic: json.Marshal sorts map keys.
type SchemaGenerator struct{}

// Kind implements Generator.
func (*SchemaGenerator) Kind() entity.Kind { return entity.KindSchema }

// OutputPath implements Generator.
func (*SchemaGenerator) OutputPath(rec entity.Record, _ Options) string {
	return path.Join("schemas", SnakeCase(rec.Name)+".schema.json")
}

// Generate implements Generator.
func (g *SchemaGenerator) Generate(rec entity.Record, opts Options) ([]byte, error) {
	properties := make(map[string]any, len(rec.Fields))
	var required []string
	for _, f := range rec.Fields {
		prop, err := schemaProperty(f)
		if err != nil {
			return nil, &GenerationError{Entity: rec.Name, Kind: entity.KindSchema, Err: err}
		}
		properties[f.Name] = prop
		if !f.Optional {
			required = append(required, f.Name)
		}
	}

	doc := map[string]any{
		"$schema":              "http://json-schema.org/draft-07/schema#",
		"title":                rec.Name,
		"type":                 "object",
		"properties":           properties,
		"additionalProperties": additionalProperties(opts),
	}
	if rec.Doc != "" {
		doc["description"] = rec.Doc
	}
	if len(required) > 0 {
		doc["required"] = required
	}

	out, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, &GenerationError{Entity: rec.Name, Kind: entity.KindSchema, Err: err}
	}
	return append(out, '\n'), nil
}

// additionalProperties honors the "strict" option: strict schemas (the
// default) reject unknown properties.
func additionalProperties(opts Options) bool {
	if opts != nil {
		if strict, ok := opts["strict"].(bool); ok {
			return !strict
		}
	}
	return false
}

func schemaProperty(f entity.Field) (map[string]any, error) {
	var prop map[string]any
	switch f.Type {
	case "string", "text":
		prop = map[string]any{"type": "string"}
	case "int":
		prop = map[string]any{"type": "integer"}
	case "bool":
		prop = map[string]any{"type": "boolean"}
	case "float":
		prop = map[string]any{"type": "number"}
	case "date":
		prop = map[string]any{"type": "string", "format": "date"}
	case "datetime":
		prop = map[string]any{"type": "string", "format": "date-time"}
	default:
		return nil, fmt.Errorf("field %s: unknown type %q", f.Name, f.Type)
	}
	if f.Doc != "" {
		prop["description"] = f.Doc
	}
	return prop, nil
}
