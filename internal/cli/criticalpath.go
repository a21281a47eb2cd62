package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewCriticalPathCommand creates the critical-path command.
func NewCriticalPathCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "critical-path <project>",
		Short: "Show the tasks that determine the project finish date",
		Long: `List the active timeline's critical path in schedule order: the
chain of zero-float tasks where any delay moves the project finish.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCriticalPath(rootOpts, args[0], cmd)
		},
	}
	return cmd
}

func runCriticalPath(opts *RootOptions, project string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	svc, st, err := openService(opts)
	if err != nil {
		return err
	}
	defer st.Close()

	rep, err := svc.CriticalPath(cmd.Context(), project)
	if err != nil {
		return formatter.Error(err)
	}
	if formatter.Format == "json" {
		return formatter.Success(rep)
	}

	fmt.Fprintf(formatter.Writer, "Total duration: %d day(s)\n", rep.TotalDurationDays)
	for i, t := range rep.CriticalTasks {
		fmt.Fprintf(formatter.Writer, "%2d. %-40s day %d to %d (%dd)\n",
			i+1, t.Name, t.StartDay, t.FinishDay, t.DurationDays)
	}
	return nil
}
