package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/replan/internal/plan"
)

// NewTriggersCommand creates the triggers command.
func NewTriggersCommand(rootOpts *RootOptions) *cobra.Command {
	var scanOnly bool

	cmd := &cobra.Command{
		Use:   "triggers <project>",
		Short: "Detect and list re-planning triggers",
		Long: `Scan the project's active timeline against its current facts for
schedule risks: expiring documents, progress behind plan, disqualified
vendors, and overdue awards. Newly detected triggers are recorded;
previously recorded unresolved triggers are listed as well.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTriggers(rootOpts, args[0], scanOnly, cmd)
		},
	}
	cmd.Flags().BoolVar(&scanOnly, "new-only", false, "list only triggers detected by this scan")
	return cmd
}

func runTriggers(opts *RootOptions, project string, newOnly bool, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	f, err := loadFacts(opts, project)
	if err != nil {
		return err
	}
	svc, st, err := openService(opts)
	if err != nil {
		return err
	}
	defer st.Close()

	detected, err := svc.DetectTriggers(cmd.Context(), f)
	if err != nil {
		return formatter.Error(err)
	}
	formatter.VerboseLog("detected %d new trigger(s)", len(detected))

	triggers := detected
	if !newOnly {
		triggers, err = st.ActiveTriggers(cmd.Context(), project)
		if err != nil {
			return formatter.Error(err)
		}
	}

	if formatter.Format == "json" {
		return formatter.Success(map[string]interface{}{"triggers": triggers})
	}
	if len(triggers) == 0 {
		fmt.Fprintln(formatter.Writer, "No active triggers")
		return nil
	}
	for _, trg := range triggers {
		fmt.Fprintf(formatter.Writer, "%-10s %-20s %s\n    %s\n",
			trg.Severity, trg.Type, trg.ID, trg.Cause)
		if len(trg.RelatedTaskIDs) > 0 {
			fmt.Fprintf(formatter.Writer, "    tasks: %s\n", joinTaskIDs(trg.RelatedTaskIDs))
		}
	}
	return nil
}

func joinTaskIDs(ids []plan.TaskID) string {
	s := ""
	for i, id := range ids {
		if i > 0 {
			s += ", "
		}
		s += string(id)
	}
	return s
}
