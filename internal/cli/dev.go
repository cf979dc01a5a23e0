package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"loom/internal/apply"
	"loom/internal/engine"
	"loom/internal/plan"
	"loom/internal/watch"
)

// DevOptions holds flags for the dev command.
type DevOptions struct {
	*RootOptions
	Debounce time.Duration
}

// NewDevCommand creates the dev command.
func NewDevCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DevOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "dev [project-root]",
		Short: "Watch entity sources and sync continuously",
		Long: `Run an initial cycle, then watch the entity source directories and
re-run a cycle whenever definitions change. Bursts of filesystem events are
coalesced into a single replan.

Only the entity directories are watched; the output directory is excluded
to avoid feedback loops. Interrupt (Ctrl-C) cancels any pending replan but
lets an in-flight apply finish.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDev(opts, args, cmd)
		},
	}

	cmd.Flags().DurationVar(&opts.Debounce, "debounce", watch.DefaultDebounce, "event coalescing window")

	return cmd
}

func runDev(opts *DevOptions, args []string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	runner, err := newRunner(args)
	if err != nil {
		return err
	}
	cfg := runner.Config()

	runCycle := func(ctx context.Context) error {
		cycle, err := runner.RunCycle(ctx, engine.RunOptions{
			OnStep: func(step plan.Step, result apply.StepResult) {
				fmt.Fprintf(formatter.Writer, "%-6s %s\n", step.Action, result.Path)
			},
		})
		if err != nil {
			return err
		}
		s := cycle.Plan.Summary
		if cycle.Plan.Changed() {
			fmt.Fprintf(formatter.Writer, "synced: %d create, %d update, %d delete\n", s.Create, s.Update, s.Delete)
		}
		return nil
	}

	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, cancel := context.WithCancel(parentCtx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case sig := <-sigChan:
			slog.Info("received signal, shutting down", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	// Initial cycle before watching; a broken project should fail fast.
	if err := runCycle(context.WithoutCancel(ctx)); err != nil {
		return buildError(formatter, err)
	}

	dirs := make([]string, len(cfg.EntityDirs))
	for i, d := range cfg.EntityDirs {
		dirs[i] = filepath.Join(cfg.Root, d)
	}

	fmt.Fprintln(formatter.Writer, "Watching for entity changes. Press Ctrl-C to stop.")
	w := &watch.Watcher{Dirs: dirs, Debounce: opts.Debounce, Run: runCycle}
	if err := w.Watch(ctx); err != nil {
		return WrapExitError(ExitFailure, "watcher error", err)
	}

	slog.Info("watcher stopped")
	return nil
}
