package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewRePlanCommand creates the replan command.
func NewRePlanCommand(rootOpts *RootOptions) *cobra.Command {
	var autoApply bool

	cmd := &cobra.Command{
		Use:   "replan <project> <trigger-id>",
		Short: "Compute a re-plan proposal for a trigger",
		Long: `Compute an adjusted timeline responding to a recorded trigger and
store it as a previewed proposal, printing the impact (total delay,
affected tasks, new critical path) and per-task changes. With
--auto-apply, proposals for low severity triggers are committed
immediately; medium and above always wait for an explicit apply.`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRePlan(rootOpts, args[0], args[1], autoApply, cmd)
		},
	}
	cmd.Flags().BoolVar(&autoApply, "auto-apply", false, "apply immediately when severity allows")
	return cmd
}

func runRePlan(opts *RootOptions, project, triggerID string, autoApply bool, cmd *cobra.Command) error {
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

	res, err := svc.RePlan(cmd.Context(), project, triggerID, f.Config, autoApply)
	if err != nil {
		return formatter.Error(err)
	}

	if formatter.Format == "json" {
		return formatter.Success(res)
	}

	fmt.Fprintf(formatter.Writer, "Proposal %s\n", res.ProposalID)
	fmt.Fprintf(formatter.Writer, "  total delay: %d day(s), %d task(s) affected\n",
		res.Impact.TotalDelayDays, len(res.Impact.AffectedTaskIDs))
	for _, d := range res.Deltas {
		fmt.Fprintf(formatter.Writer, "  %-40s start %d -> %d, finish %d -> %d\n",
			d.Name, d.OldStartDay, d.NewStartDay, d.OldFinishDay, d.NewFinishDay)
	}
	if res.Applied {
		fmt.Fprintf(formatter.Writer, "Applied as version %d\n", res.NewVersion)
	} else {
		fmt.Fprintf(formatter.Writer, "Run 'replan apply %s' to confirm\n", res.ProposalID)
	}
	return nil
}
