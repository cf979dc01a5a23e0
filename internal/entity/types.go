package entity

// Kind identifies one derivable artifact family.
type Kind string

// Artifact kinds known to the engine. KindEntity is the source node kind;
// it is never generated to disk.
const (
	KindEntity    Kind = "entity"
	KindSchema    Kind = "schema"
	KindAPIDoc    Kind = "apidoc"
	KindMigration Kind = "migration"
	KindTest      Kind = "test"
	KindDoc       Kind = "doc"
)

// GeneratedKinds lists every artifact kind that produces an output file,
// in stable order.
var GeneratedKinds = []Kind{KindAPIDoc, KindDoc, KindMigration, KindSchema, KindTest}

// ValidFieldTypes defines the allowed field type names.
var ValidFieldTypes = map[string]bool{
	"string":   true,
	"int":      true,
	"bool":     true,
	"float":    true,
	"date":     true,
	"datetime": true,
	"text":     true,
}

// Field is one typed field of an entity definition.
type Field struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Optional bool   `json:"optional,omitempty"`
	Doc      string `json:"doc,omitempty"`
}

// ArtifactSpec holds the per-kind generation options declared on an entity.
// Options participate in the artifact node's fingerprint, so changing an
// option regenerates exactly that artifact.
type ArtifactSpec struct {
	Kind    Kind           `json:"kind"`
	Options map[string]any `json:"options,omitempty"`
}

// Record is one compiled entity definition.
//
// The logical Name is the stable identifier: node ids, output paths and
// manifest keys all derive from it. Fields keep their declaration order.
type Record struct {
	Name      string         `json:"name"`
	Doc       string         `json:"doc,omitempty"`
	Fields    []Field        `json:"fields"`
	Artifacts []ArtifactSpec `json:"artifacts"`
}

// Kinds returns the enabled artifact kinds in declaration order.
func (r Record) Kinds() []Kind {
	kinds := make([]Kind, 0, len(r.Artifacts))
	for _, a := range r.Artifacts {
		kinds = append(kinds, a.Kind)
	}
	return kinds
}

// Options returns the declared options for a kind, or nil if the kind is
// not enabled on this record.
func (r Record) Options(kind Kind) map[string]any {
	for _, a := range r.Artifacts {
		if a.Kind == kind {
			return a.Options
		}
	}
	return nil
}

// HasKind reports whether the given artifact kind is enabled on this record.
func (r Record) HasKind(kind Kind) bool {
	for _, a := range r.Artifacts {
		if a.Kind == kind {
			return true
		}
	}
	return false
}

// Content returns the canonical map form of the record's definition for
// fingerprinting: name, doc and ordered fields.
//
// Artifact enablement is intentionally excluded. Toggling one artifact kind
// must touch only that artifact's node, never the entity content that every
// other artifact fingerprints against.
func (r Record) Content() map[string]any {
	fields := make([]any, len(r.Fields))
	for i, f := range r.Fields {
		m := map[string]any{
			"name": f.Name,
			"type": f.Type,
		}
		if f.Optional {
			m["optional"] = true
		}
		if f.Doc != "" {
			m["doc"] = f.Doc
		}
		fields[i] = m
	}
	return map[string]any{
		"name":   r.Name,
		"doc":    r.Doc,
		"fields": fields,
	}
}
