package generate

import (
	"fmt"
	"path"
	"strings"

	"loom/internal/entity"
)

// SmokeTestGenerator emits a Go test source file that sanity-checks the
// entity's sibling artifacts: the schema document must parse as JSON and
// declare every field.
//
// The generated file is an artifact like any other; the engine does not
// compile or run it.
type SmokeTestGenerator struct{}

// Kind implements Generator.
func (*SmokeTestGenerator) Kind() entity.Kind { return entity.KindTest }

// OutputPath implements Generator.
func (*SmokeTestGenerator) OutputPath(rec entity.Record, _ Options) string {
	return path.Join("smoke", SnakeCase(rec.Name)+"_smoke_test.go")
}

// Generate implements Generator.
func (g *SmokeTestGenerator) Generate(rec entity.Record, _ Options) ([]byte, error) {
	snake := SnakeCase(rec.Name)

	var b strings.Builder
	b.WriteString("// Code generated by loom. DO NOT EDIT.\n\n")
	b.WriteString("package smoke\n\n")
	b.WriteString("import (\n")
	b.WriteString("\t\"encoding/json\"\n")
	b.WriteString("\t\"os\"\n")
	b.WriteString("\t\"testing\"\n")
	b.WriteString(")\n\n")
	fmt.Fprintf(&b, "func Test%sSchema(t *testing.T) {\n", rec.Name)
	fmt.Fprintf(&b, "\tdata, err := os.ReadFile(\"../schemas/%s.schema.json\")\n", snake)
	b.WriteString("\tif err != nil {\n")
	b.WriteString("\t\tt.Fatalf(\"read schema: %v\", err)\n")
	b.WriteString("\t}\n")
	b.WriteString("\tvar schema map[string]any\n")
	b.WriteString("\tif err := json.Unmarshal(data, &schema); err != nil {\n")
	b.WriteString("\t\tt.Fatalf(\"parse schema: %v\", err)\n")
	b.WriteString("\t}\n")
	b.WriteString("\tprops, _ := schema[\"properties\"].(map[string]any)\n")
	for _, f := range rec.Fields {
		fmt.Fprintf(&b, "\tif _, ok := props[%q]; !ok {\n", f.Name)
		fmt.Fprintf(&b, "\t\tt.Errorf(\"schema missing field %s\")\n", f.Name)
		b.WriteString("\t}\n")
	}
	b.WriteString("}\n")
	return []byte(b.String()), nil
}
