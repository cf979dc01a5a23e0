package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"loom/internal/engine"
	"loom/internal/plan"
)

// DoctorOptions holds flags for the doctor command.
type DoctorOptions struct {
	*RootOptions
	Fix       bool
	VerifySQL bool
}

// DoctorReport is the doctor command's JSON payload.
type DoctorReport struct {
	Status      string       `json:"status"` // "clean" or "pending"
	Steps       []StepReport `json:"steps,omitempty"`
	Summary     plan.Summary `json:"summary"`
	Fixed       bool         `json:"fixed,omitempty"`
	SQLVerified int          `json:"sql_verified,omitempty"`
}

// NewDoctorCommand creates the doctor command.
func NewDoctorCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DoctorOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "doctor [project-root]",
		Short: "Check generated artifacts for drift",
		Long: `Run the load/build/plan pipeline without applying anything and report
whether the generated artifacts are coherent with the entity definitions.

Exit status: 0 when clean, 1 when pending drift exists. Suitable as a CI
gate. With --fix, the computed plan is applied and state persisted, so a
second check reports clean.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDoctor(opts, args, cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Fix, "fix", false, "apply the plan to resolve drift")
	cmd.Flags().BoolVar(&opts.VerifySQL, "verify-sql", false, "apply generated migrations to an in-memory SQLite database")

	return cmd
}

func runDoctor(opts *DoctorOptions, args []string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	runner, err := newRunner(args)
	if err != nil {
		return err
	}

	res, err := runner.Doctor(cmd.Context(), engine.DoctorOptions{
		Fix:       opts.Fix,
		VerifySQL: opts.VerifySQL,
	})
	if err != nil {
		return buildError(formatter, err)
	}

	report := DoctorReport{
		Summary:     res.Plan.Summary,
		Fixed:       res.Fixed,
		SQLVerified: res.SQLVerified,
	}
	if res.Clean {
		report.Status = "clean"
	} else {
		report.Status = "pending"
		for _, step := range res.Plan.Steps {
			if step.Action == plan.ActionNoop {
				continue
			}
			report.Steps = append(report.Steps, StepReport{
				ID:     step.ID,
				Kind:   string(step.Kind),
				Action: string(step.Action),
				Path:   step.Path,
			})
		}
	}

	if opts.Format == "json" {
		if err := formatter.JSON(report); err != nil {
			return err
		}
	} else {
		printDoctorText(formatter, report)
	}

	if !res.Clean && !res.Fixed {
		return NewExitError(ExitFailure, fmt.Sprintf("%d artifact(s) out of sync", len(report.Steps)))
	}
	return nil
}

func printDoctorText(formatter *OutputFormatter, report DoctorReport) {
	if report.Status == "clean" {
		fmt.Fprintf(formatter.Writer, "clean: %d artifact(s) coherent\n", report.Summary.Noop)
	} else {
		fmt.Fprintln(formatter.Writer, "pending:")
		for _, step := range report.Steps {
			fmt.Fprintf(formatter.Writer, "  %-6s %s (%s)\n", step.Action, step.ID, step.Path)
		}
		if report.Fixed {
			fmt.Fprintln(formatter.Writer, "fixed: plan applied and state persisted")
		}
	}
	if report.SQLVerified > 0 {
		fmt.Fprintf(formatter.Writer, "verified %d migration script(s) against SQLite\n", report.SQLVerified)
	}
}
