package generate

import (
	"fmt"
	"sort"

	"loom/internal/entity"
)

// Options carries per-kind generation options declared on an entity.
// Options participate in fingerprints, so any change regenerates the
// affected artifact.
type Options map[string]any

// Generator produces one artifact kind from an entity record.
type Generator interface {
	// Kind returns the artifact kind this generator produces.
	Kind() entity.Kind

	// OutputPath returns the slash-separated path of the artifact relative
	// to the output root. It must be deterministic in (record, options).
	OutputPath(rec entity.Record, opts Options) string

	// Generate produces the artifact content.
	Generate(rec entity.Record, opts Options) ([]byte, error)
}

// GenerationError reports a generator failure for one node.
type GenerationError struct {
	Entity string
	Kind   entity.Kind
	Err    error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("generating %s for entity %s: %v", e.Kind, e.Entity, e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

// Registry maps artifact kinds to generator implementations.
type Registry struct {
	gens map[entity.Kind]Generator
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{gens: make(map[entity.Kind]Generator)}
}

// Register adds a generator. Registering the same kind twice is an error.
func (r *Registry) Register(g Generator) error {
	kind := g.Kind()
	if _, ok := r.gens[kind]; ok {
		return fmt.Errorf("generator already registered for kind %q", kind)
	}
	r.gens[kind] = g
	return nil
}

// Lookup returns the generator for a kind.
func (r *Registry) Lookup(kind entity.Kind) (Generator, bool) {
	g, ok := r.gens[kind]
	return g, ok
}

// Kinds returns the registered kinds in sorted order.
func (r *Registry) Kinds() []entity.Kind {
	kinds := make([]entity.Kind, 0, len(r.gens))
	for k := range r.gens {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}

// Default returns a registry with every built-in generator registered.
func Default() *Registry {
	r := NewRegistry()
	for _, g := range []Generator{
		&SchemaGenerator{},
		&APIDocGenerator{},
		&MigrationGenerator{},
		&DocGenerator{},
		&SmokeTestGenerator{},
	} {
		if err := r.Register(g); err != nil {
			// Built-in kinds are distinct constants; a duplicate here is a
			// programming error.
			panic(err)
		}
	}
	return r
}
