package generate

import (
	"fmt"
	"path"
	"strings"

	"loom/internal/entity"
)

// MigrationGenerator emits an idempotent SQL DDL script creating the table
// backing an entity. The SQL is SQLite-compatible so it can be verified
// with VerifySQL.
type MigrationGenerator struct{}

// Kind implements Generator.
func (*MigrationGenerator) Kind() entity.Kind { return entity.KindMigration }

// OutputPath implements Generator.
func (*MigrationGenerator) OutputPath(rec entity.Record, _ Options) string {
	return path.Join("migrations", "create_"+SnakeCase(rec.Name)+".sql")
}

// Generate implements Generator.
func (g *MigrationGenerator) Generate(rec entity.Record, opts Options) ([]byte, error) {
	table := TableName(rec, opts)

	var b strings.Builder
	fmt.Fprintf(&b, "-- Table for entity %s. Generated; do not edit.\n", rec.Name)
	fmt.Fprintf(&b, "CREATE TABLE IF NOT EXISTS %s (\n", table)

	var hasID bool
	for i, f := range rec.Fields {
		colType, err := columnType(f.Type)
		if err != nil {
			return nil, &GenerationError{Entity: rec.Name, Kind: entity.KindMigration, Err: err}
		}
		col := SnakeCase(f.Name)
		if col == "id" {
			hasID = true
		}
		fmt.Fprintf(&b, "    %s %s", col, colType)
		if !f.Optional {
			b.WriteString(" NOT NULL")
		}
		if i < len(rec.Fields)-1 || hasID {
			b.WriteString(",")
		}
		b.WriteString("\n")
	}
	if hasID {
		b.WriteString("    PRIMARY KEY (id)\n")
	}
	b.WriteString(");\n")
	return []byte(b.String()), nil
}

func columnType(fieldType string) (string, error) {
	switch fieldType {
	case "string", "text", "date", "datetime":
		return "TEXT", nil
	case "int":
		return "INTEGER", nil
	case "bool":
		return "INTEGER", nil
	case "float":
		return "REAL", nil
	default:
		return "", fmt.Errorf("unknown field type %q", fieldType)
	}
}
