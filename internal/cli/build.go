package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"loom/internal/apply"
	"loom/internal/engine"
	"loom/internal/graph"
	"loom/internal/loader"
	"loom/internal/plan"
)

// BuildOptions holds flags for the build command.
type BuildOptions struct {
	*RootOptions
	DryRun bool
}

// StepReport is the per-step progress event rendered to the user.
type StepReport struct {
	ID      string `json:"id"`
	Kind    string `json:"kind"`
	Action  string `json:"action"`
	Path    string `json:"path"`
	Changed bool   `json:"changed"`
}

// BuildReport is the build command's JSON payload.
type BuildReport struct {
	Steps   []StepReport `json:"steps"`
	Summary plan.Summary `json:"summary"`
	Changed bool         `json:"changed"`
	DryRun  bool         `json:"dry_run,omitempty"`
}

// NewBuildCommand creates the build command.
func NewBuildCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &BuildOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "build [project-root]",
		Short: "Run one sync cycle",
		Long: `Run one full cycle: load entity definitions, build the dependency
graph, diff fingerprints against the manifest, and apply the minimal set of
create/update/delete operations.

Re-running with no source changes produces zero writes.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBuild(opts, args, cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "compute and print the plan without applying it")

	return cmd
}

func runBuild(opts *BuildOptions, args []string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	runner, err := newRunner(args)
	if err != nil {
		return err
	}

	report := &BuildReport{DryRun: opts.DryRun}
	onStep := func(step plan.Step, result apply.StepResult) {
		sr := StepReport{
			ID:      step.ID,
			Kind:    string(step.Kind),
			Action:  string(step.Action),
			Path:    step.Path,
			Changed: result.Changed,
		}
		report.Steps = append(report.Steps, sr)
		if opts.Format != "json" {
			fmt.Fprintf(formatter.Writer, "%-6s %s\n", sr.Action, sr.Path)
		}
	}

	cycle, err := runner.RunCycle(cmd.Context(), engine.RunOptions{
		DryRun: opts.DryRun,
		OnStep: onStep,
	})
	if err != nil {
		return buildError(formatter, err)
	}

	report.Summary = cycle.Plan.Summary
	report.Changed = cycle.Plan.Changed()

	if opts.DryRun {
		for _, step := range cycle.Plan.Steps {
			report.Steps = append(report.Steps, StepReport{
				ID:     step.ID,
				Kind:   string(step.Kind),
				Action: string(step.Action),
				Path:   step.Path,
			})
			if opts.Format != "json" {
				fmt.Fprintf(formatter.Writer, "%-6s %s\n", step.Action, step.Path)
			}
		}
	}

	if opts.Format == "json" {
		return formatter.JSON(report)
	}

	s := report.Summary
	if !report.Changed {
		fmt.Fprintf(formatter.Writer, "Clean: %d artifact(s) up to date\n", s.Noop)
		return nil
	}
	fmt.Fprintf(formatter.Writer, "Applied %d create, %d update, %d delete (%d unchanged)\n",
		s.Create, s.Update, s.Delete, s.Noop)
	return nil
}

// buildError maps engine failures to exit codes: bad inputs are command
// errors, apply failures are operation failures.
func buildError(formatter *OutputFormatter, err error) error {
	var loadErr *loader.LoadError
	if errors.As(err, &loadErr) {
		_ = formatter.Error(loadErr.Code, loadErr.Message, nil)
		return WrapExitError(ExitCommandError, "loading entities", err)
	}
	var valErr *graph.ValidationError
	if errors.As(err, &valErr) {
		_ = formatter.Error("E010", valErr.Error(), nil)
		return WrapExitError(ExitCommandError, "validating graph", err)
	}
	_ = formatter.Error("E001", err.Error(), nil)
	return WrapExitError(ExitFailure, "cycle failed", err)
}
