// Package apply executes a plan against the filesystem.
//
// Writes are idempotent and content-comparing: the existing file is read
// and byte-compared first, so external tooling can detect "no actual
// change" even when the planner predicted one. The applier returns the
// updated state but never persists it; the caller defers the durable write
// until every step in the cycle has completed, which is what keeps a crash
// mid-apply from corrupting previously-good artifacts.
package apply

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"loom/internal/generate"
	"loom/internal/graph"
	"loom/internal/plan"
	"loom/internal/state"
)

// WriteError reports a filesystem failure for one step. The cycle aborts;
// earlier steps remain on disk and state is not persisted.
type WriteError struct {
	Path string
	Op   string
	Err  error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

// StepResult reports what one executed step did on disk.
type StepResult struct {
	ID      string `json:"id"`
	Path    string `json:"path"`
	Changed bool   `json:"changed"`
}

// Callback receives one event per executed step. This is the applier's
// only side channel; it has no opinion on rendering.
type Callback func(step plan.Step, result StepResult)

// Applier executes plan steps in the planner's stable order.
type Applier struct {
	// Root is the project root all output paths are resolved against.
	Root string

	// Registry resolves generator references on artifact nodes.
	Registry *generate.Registry

	// OnStep, if set, is invoked after each executed step.
	OnStep Callback

	// Now stamps written_at entries. Defaults to time.Now.
	Now func() time.Time
}

// Run executes the non-noop steps of a plan and returns the updated state
// plus per-step results. The prior state is cloned, never mutated.
//
// The first generator or filesystem failure aborts the run: steps already
// applied remain on disk, and because the caller only persists state after
// a fully successful run, the next cycle re-derives a consistent plan from
// scratch.
func (a *Applier) Run(ctx context.Context, p *plan.Plan, g *graph.Graph, prior *state.State) (*state.State, []StepResult, error) {
	now := a.Now
	if now == nil {
		now = time.Now
	}

	next := prior.Clone()
	next.Version = state.FormatVersion
	var results []StepResult

	for _, step := range p.Steps {
		if step.Action == plan.ActionNoop {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, results, err
		}

		var result StepResult
		switch step.Action {
		case plan.ActionCreate, plan.ActionUpdate:
			changed, err := a.writeArtifact(g, step)
			if err != nil {
				return nil, results, err
			}
			entry := state.Entry{
				Fingerprint: step.Node.Fingerprint,
				OutputPath:  step.Node.OutputPath,
				WrittenAt:   now().UTC(),
			}
			if !changed && step.Prior != nil {
				entry.WrittenAt = step.Prior.WrittenAt
			}
			next.Nodes[step.ID] = entry
			result = StepResult{ID: step.ID, Path: step.Path, Changed: changed}

		case plan.ActionDelete:
			changed, err := a.deleteArtifact(step)
			if err != nil {
				return nil, results, err
			}
			delete(next.Nodes, step.ID)
			result = StepResult{ID: step.ID, Path: step.Path, Changed: changed}
		}

		results = append(results, result)
		if a.OnStep != nil {
			a.OnStep(step, result)
		}
	}

	return next, results, nil
}

// writeArtifact generates content for a node and performs a
// content-comparing write. Returns whether the file actually changed.
func (a *Applier) writeArtifact(g *graph.Graph, step plan.Step) (bool, error) {
	rec, ok := g.Record(step.Node.Entity)
	if !ok {
		return false, &generate.GenerationError{
			Entity: step.Node.Entity, Kind: step.Kind,
			Err: errors.New("record missing from graph"),
		}
	}
	gen, ok := a.Registry.Lookup(step.Kind)
	if !ok {
		return false, &generate.GenerationError{
			Entity: step.Node.Entity, Kind: step.Kind,
			Err: errors.New("no registered generator"),
		}
	}

	content, err := gen.Generate(rec, generate.Options(rec.Options(step.Kind)))
	if err != nil {
		var genErr *generate.GenerationError
		if errors.As(err, &genErr) {
			return false, err
		}
		return false, &generate.GenerationError{Entity: step.Node.Entity, Kind: step.Kind, Err: err}
	}

	full := filepath.Join(a.Root, filepath.FromSlash(step.Path))
	existing, err := os.ReadFile(full)
	if err == nil && bytes.Equal(existing, content) {
		return false, nil
	}
	if err != nil && !os.IsNotExist(err) {
		return false, &WriteError{Path: step.Path, Op: "read", Err: err}
	}

	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return false, &WriteError{Path: step.Path, Op: "mkdir", Err: err}
	}
	if err := os.WriteFile(full, content, 0o644); err != nil {
		return false, &WriteError{Path: step.Path, Op: "write", Err: err}
	}
	return true, nil
}

// deleteArtifact removes a node's output file. Absence is not an error.
func (a *Applier) deleteArtifact(step plan.Step) (bool, error) {
	if step.Path == "" {
		return false, nil
	}
	full := filepath.Join(a.Root, filepath.FromSlash(step.Path))
	err := os.Remove(full)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, &WriteError{Path: step.Path, Op: "remove", Err: err}
	}
	return true, nil
}
