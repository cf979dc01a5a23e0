package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"loom/internal/state"
)

// InspectOptions holds flags for the inspect command.
type InspectOptions struct {
	*RootOptions
	Graph bool
}

// NewInspectCommand creates the inspect command.
func NewInspectCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &InspectOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "inspect [project-root]",
		Short: "Print the persisted manifest or graph snapshot",
		Long: `Read-only view of the engine's durable state: the manifest (node id ->
fingerprint and output path) or, with --graph, the full graph snapshot from
the most recent successful cycle.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInspect(opts, args, cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Graph, "graph", false, "print the graph snapshot instead of the manifest")

	return cmd
}

func runInspect(opts *InspectOptions, args []string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	runner, err := newRunner(args)
	if err != nil {
		return err
	}
	store := runner.Store()

	if opts.Graph {
		snap, err := store.LoadSnapshot()
		if err != nil {
			return WrapExitError(ExitCommandError, "reading graph snapshot", err)
		}
		if opts.Format == "json" {
			return formatter.JSON(snap)
		}
		for _, node := range snap.Nodes {
			fmt.Fprintf(formatter.Writer, "%-30s %s\n", node.ID, node.OutputPath)
		}
		return nil
	}

	st, err := store.Load()
	if err != nil {
		return WrapExitError(ExitCommandError, "reading manifest", err)
	}
	if opts.Format == "json" {
		return formatter.JSON(st)
	}
	for _, id := range st.SortedIDs() {
		entry := st.Nodes[id]
		fmt.Fprintf(formatter.Writer, "%-30s %s %s\n", id, shortFingerprint(entry), entry.OutputPath)
	}
	return nil
}

func shortFingerprint(e state.Entry) string {
	if len(e.Fingerprint) > 12 {
		return e.Fingerprint[:12]
	}
	return e.Fingerprint
}
