package graph

import (
	"fmt"
	"path"

	"loom/internal/entity"
	"loom/internal/fingerprint"
	"loom/internal/generate"
)

// ValidationError reports a structural graph problem: duplicate logical
// names, colliding output paths, or an artifact kind with no registered
// generator. Fatal; the cycle aborts before any writes.
type ValidationError struct {
	Entity  string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Entity != "" {
		return fmt.Sprintf("entity %s: %s", e.Entity, e.Message)
	}
	return e.Message
}

// Config carries the inputs the builder needs beyond the records themselves.
type Config struct {
	// OutputRoot is the slash-separated directory all artifact paths are
	// rooted under, relative to the project root.
	OutputRoot string

	// EngineVersion is mixed into every artifact fingerprint.
	EngineVersion string
}

// Build constructs the dependency graph for one cycle. No side effects.
//
// For each record it emits one entity node (fingerprint over the serialized
// definition) and one node per enabled artifact kind, each carrying the
// generator reference and a deterministic output path.
func Build(records []entity.Record, reg *generate.Registry, cfg Config) (*Graph, error) {
	if cfg.EngineVersion == "" {
		cfg.EngineVersion = fingerprint.EngineVersion
	}

	g := &Graph{
		nodes:   make(map[string]*Node),
		records: make(map[string]entity.Record, len(records)),
	}
	// Output paths derive from snake-cased names, which can collide even
	// when logical names differ (User vs user).
	outputs := make(map[string]string)

	for _, rec := range records {
		if _, dup := g.records[rec.Name]; dup {
			return nil, &ValidationError{Entity: rec.Name, Message: "duplicate logical name"}
		}
		g.records[rec.Name] = rec

		content := rec.Content()
		entityFP, err := fingerprint.Entity(content)
		if err != nil {
			return nil, &ValidationError{Entity: rec.Name, Message: err.Error()}
		}
		entityID := NodeID(entity.KindEntity, rec.Name)
		g.nodes[entityID] = &Node{
			ID:          entityID,
			Kind:        entity.KindEntity,
			Entity:      rec.Name,
			Fingerprint: entityFP,
		}

		for _, spec := range rec.Artifacts {
			gen, ok := reg.Lookup(spec.Kind)
			if !ok {
				return nil, &ValidationError{
					Entity:  rec.Name,
					Message: fmt.Sprintf("no registered generator for artifact kind %q", spec.Kind),
				}
			}
			fp, err := fingerprint.Artifact(content, spec.Options, cfg.EngineVersion, string(spec.Kind))
			if err != nil {
				return nil, &ValidationError{Entity: rec.Name, Message: err.Error()}
			}
			id := NodeID(spec.Kind, rec.Name)
			outPath := path.Join(cfg.OutputRoot, gen.OutputPath(rec, spec.Options))
			if owner, dup := outputs[outPath]; dup {
				return nil, &ValidationError{
					Entity:  rec.Name,
					Message: fmt.Sprintf("output path %s already produced by %s", outPath, owner),
				}
			}
			outputs[outPath] = id
			g.nodes[id] = &Node{
				ID:          id,
				Kind:        spec.Kind,
				Entity:      rec.Name,
				Fingerprint: fp,
				DependsOn:   []string{entityID},
				OutputPath:  outPath,
				Generator:   string(spec.Kind),
			}
		}
	}

	return g, nil
}
