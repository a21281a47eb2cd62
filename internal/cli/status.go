package cli

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

var (
	statusLabel = lipgloss.NewStyle().Bold(true).Width(16)
	statusWarn  = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
)

// NewStatusCommand creates the status command.
func NewStatusCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "status <project>",
		Short:         "Show the active timeline's summary",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(rootOpts, args[0], cmd)
		},
	}
	return cmd
}

func runStatus(opts *RootOptions, project string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	svc, st, err := openService(opts)
	if err != nil {
		return err
	}
	defer st.Close()

	rep, err := svc.Status(cmd.Context(), project)
	if err != nil {
		return formatter.Error(err)
	}
	if formatter.Format == "json" {
		return formatter.Success(rep)
	}

	w := formatter.Writer
	fmt.Fprintf(w, "%s%s\n", statusLabel.Render("Timeline"), rep.TimelineID)
	fmt.Fprintf(w, "%s%d%% (%d/%d tasks complete)\n", statusLabel.Render("Progress"),
		rep.OverallProgress, rep.CompletedTasks, rep.TotalTasks)
	fmt.Fprintf(w, "%s%d task(s)\n", statusLabel.Render("Critical path"), rep.CriticalPathLength)
	fmt.Fprintf(w, "%s%s\n", statusLabel.Render("Finish date"), rep.FinishDate)
	triggers := fmt.Sprintf("%d", rep.ActiveTriggerCount)
	if rep.ActiveTriggerCount > 0 {
		triggers = statusWarn.Render(triggers + " (run 'replan triggers' for detail)")
	}
	fmt.Fprintf(w, "%s%s\n", statusLabel.Render("Active triggers"), triggers)
	return nil
}
