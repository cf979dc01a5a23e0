package generate

import (
	"fmt"
	"path"
	"strings"

	"loom/internal/entity"
)

// DocGenerator emits a Markdown reference page for an entity.
type DocGenerator struct{}

// Kind implements Generator.
func (*DocGenerator) Kind() entity.Kind { return entity.KindDoc }

// OutputPath implements Generator.
func (*DocGenerator) OutputPath(rec entity.Record, _ Options) string {
	return path.Join("docs", SnakeCase(rec.Name)+".md")
}

// Generate implements Generator.
func (g *DocGenerator) Generate(rec entity.Record, _ Options) ([]byte, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", rec.Name)
	if rec.Doc != "" {
		fmt.Fprintf(&b, "%s\n\n", rec.Doc)
	}
	b.WriteString("| Field | Type | Required | Description |\n")
	b.WriteString("|-------|------|----------|-------------|\n")
	for _, f := range rec.Fields {
		required := "yes"
		if f.Optional {
			required = "no"
		}
		fmt.Fprintf(&b, "| %s | %s | %s | %s |\n", f.Name, f.Type, required, f.Doc)
	}
	return []byte(b.String()), nil
}
