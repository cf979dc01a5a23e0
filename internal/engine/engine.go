package engine

import (
	"context"
	"log/slog"
	"path/filepath"

	"github.com/google/uuid"

	"loom/internal/apply"
	"loom/internal/entity"
	"loom/internal/generate"
	"loom/internal/graph"
	"loom/internal/loader"
	"loom/internal/plan"
	"loom/internal/state"
)

// Runner executes cycles for one project. Create one per invocation; the
// runner itself carries no mutable cycle state.
type Runner struct {
	cfg   Config
	reg   *generate.Registry
	store *state.Store
}

// NewRunner creates a runner for the given project configuration.
// A nil registry means the built-in generators.
func NewRunner(cfg Config, reg *generate.Registry) *Runner {
	cfg = cfg.Defaults()
	if reg == nil {
		reg = generate.Default()
	}
	return &Runner{
		cfg:   cfg,
		reg:   reg,
		store: state.NewStore(filepath.Join(cfg.Root, cfg.StateDir)),
	}
}

// Config returns the effective configuration.
func (r *Runner) Config() Config { return r.cfg }

// Store returns the state store for this project.
func (r *Runner) Store() *state.Store { return r.store }

// RunOptions controls one cycle.
type RunOptions struct {
	// DryRun stops after planning; nothing is written or persisted.
	DryRun bool

	// IncludeUnchanged keeps noop steps in the returned plan.
	IncludeUnchanged bool

	// OnStep receives per-step progress events during apply.
	OnStep apply.Callback
}

// CycleResult is everything one cycle produced.
type CycleResult struct {
	CycleID string
	Plan    *plan.Plan
	Graph   *graph.Graph
	Results []apply.StepResult
	State   *state.State
}

// BuildGraph runs Load -> Build only. Shared by planning, doctor and
// validate paths.
func (r *Runner) BuildGraph() (*graph.Graph, error) {
	records, err := loader.Load(r.cfg.Root, loader.Config{Dirs: r.cfg.EntityDirs})
	if err != nil {
		return nil, err
	}
	records = r.applyDefaultKinds(records)

	return graph.Build(records, r.reg, graph.Config{
		OutputRoot:    r.cfg.OutputRoot,
		EngineVersion: r.cfg.Version,
	})
}

// RunCycle executes one full cycle.
//
// The manifest and graph snapshot are persisted only when every step has
// completed; any generator or write failure aborts the cycle with the
// prior state left untouched on disk.
func (r *Runner) RunCycle(ctx context.Context, opts RunOptions) (*CycleResult, error) {
	cycleID := uuid.NewString()
	log := slog.With("cycle", cycleID)

	g, err := r.BuildGraph()
	if err != nil {
		return nil, err
	}
	log.Debug("graph built", "nodes", g.Len())

	prior, err := r.store.Load()
	if err != nil {
		return nil, err
	}

	p := plan.Diff(g, prior, plan.Options{IncludeUnchanged: opts.IncludeUnchanged})
	log.Info("plan computed",
		"create", p.Summary.Create,
		"update", p.Summary.Update,
		"delete", p.Summary.Delete,
		"noop", p.Summary.Noop,
	)

	result := &CycleResult{CycleID: cycleID, Plan: p, Graph: g}
	if opts.DryRun {
		return result, nil
	}

	applier := &apply.Applier{Root: r.cfg.Root, Registry: r.reg, OnStep: opts.OnStep}
	next, stepResults, err := applier.Run(ctx, p, g, prior)
	if err != nil {
		return nil, err
	}
	result.Results = stepResults

	if err := r.store.Save(next, g); err != nil {
		return nil, err
	}
	result.State = next
	log.Debug("state persisted", "entries", len(next.Nodes))

	return result, nil
}

// applyDefaultKinds fills in the configured default artifact kinds for
// records that declared none.
func (r *Runner) applyDefaultKinds(records []entity.Record) []entity.Record {
	for i, rec := range records {
		if len(rec.Artifacts) > 0 {
			continue
		}
		specs := make([]entity.ArtifactSpec, len(r.cfg.DefaultKinds))
		for j, kind := range r.cfg.DefaultKinds {
			specs[j] = entity.ArtifactSpec{Kind: kind}
		}
		records[i].Artifacts = specs
	}
	return records
}
