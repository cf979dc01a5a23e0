package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"loom/internal/graph"
	"loom/internal/loader"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid    bool   `json:"valid"`
	Entities int    `json:"entities,omitempty"`
	Error    string `json:"error,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate [project-root]",
		Short: "Validate entity definitions without generating anything",
		Long: `Load entity definitions and build the dependency graph without
planning or applying. Reports malformed definitions, duplicate logical
names, and artifact kinds with no registered generator.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args, cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, args []string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	runner, err := newRunner(args)
	if err != nil {
		return err
	}

	g, err := runner.BuildGraph()
	if err != nil {
		code := "E001"
		var loadErr *loader.LoadError
		if errors.As(err, &loadErr) {
			code = loadErr.Code
		}
		var valErr *graph.ValidationError
		if errors.As(err, &valErr) {
			code = "E010"
		}
		if opts.Format == "json" {
			_ = formatter.JSON(ValidationResult{Valid: false, Error: err.Error()})
		} else {
			_ = formatter.Error(code, err.Error(), nil)
		}
		return WrapExitError(ExitFailure, "validation failed", err)
	}

	entities := 0
	for _, node := range g.Nodes() {
		if !node.Generated() {
			entities++
		}
	}

	if opts.Format == "json" {
		return formatter.JSON(ValidationResult{Valid: true, Entities: entities})
	}
	fmt.Fprintf(formatter.Writer, "valid: %d entities, %d nodes\n", entities, g.Len())
	return nil
}
