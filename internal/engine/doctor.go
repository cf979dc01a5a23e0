package engine

import (
	"context"
	"fmt"

	"loom/internal/entity"
	"loom/internal/generate"
	"loom/internal/plan"
)

// DoctorOptions controls a coherence check.
type DoctorOptions struct {
	// Fix applies the computed plan and persists state, converting a
	// pending result into clean on the next check.
	Fix bool

	// VerifySQL additionally regenerates every migration script and
	// applies it to an in-memory SQLite database.
	VerifySQL bool
}

// DoctorResult is the outcome of a coherence check.
type DoctorResult struct {
	// Clean is true when all artifact fingerprints match the manifest.
	Clean bool

	// Plan is the full per-node breakdown, including unchanged nodes.
	Plan *plan.Plan

	// Fixed is true when fix mode ran an apply.
	Fixed bool

	// SQLVerified counts migration scripts checked in verify mode.
	SQLVerified int
}

// Doctor runs Load -> Build -> Plan and reports drift without touching the
// filesystem, unless fix mode is enabled. Usable as a CI gate: clean maps
// to exit 0, pending to nonzero.
func (r *Runner) Doctor(ctx context.Context, opts DoctorOptions) (*DoctorResult, error) {
	cycle, err := r.RunCycle(ctx, RunOptions{DryRun: true, IncludeUnchanged: true})
	if err != nil {
		return nil, err
	}

	res := &DoctorResult{
		Clean: !cycle.Plan.Changed(),
		Plan:  cycle.Plan,
	}

	if opts.VerifySQL {
		n, err := r.verifyMigrations(ctx, cycle)
		if err != nil {
			return nil, err
		}
		res.SQLVerified = n
	}

	if !res.Clean && opts.Fix {
		if _, err := r.RunCycle(ctx, RunOptions{}); err != nil {
			return nil, err
		}
		res.Fixed = true
	}

	return res, nil
}

// verifyMigrations regenerates each migration node's SQL and proves it
// executes against SQLite.
func (r *Runner) verifyMigrations(ctx context.Context, cycle *CycleResult) (int, error) {
	gen, ok := r.reg.Lookup(entity.KindMigration)
	if !ok {
		return 0, nil
	}

	verified := 0
	for _, node := range cycle.Graph.Nodes() {
		if node.Kind != entity.KindMigration {
			continue
		}
		rec, ok := cycle.Graph.Record(node.Entity)
		if !ok {
			return verified, fmt.Errorf("record missing for node %s", node.ID)
		}
		ddl, err := gen.Generate(rec, generate.Options(rec.Options(entity.KindMigration)))
		if err != nil {
			return verified, err
		}
		if err := generate.VerifySQL(ctx, string(ddl)); err != nil {
			return verified, fmt.Errorf("migration for %s: %w", node.Entity, err)
		}
		verified++
	}
	return verified, nil
}
