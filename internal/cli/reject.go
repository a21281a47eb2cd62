package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewRejectCommand creates the reject command.
func NewRejectCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reject <proposal-id>",
		Short: "Discard an open re-plan proposal",
		Long: `Discard a draft or previewed proposal. The trigger stays active so a
fresh proposal can be computed later against the then-current timeline.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReject(rootOpts, args[0], cmd)
		},
	}
	return cmd
}

func runReject(opts *RootOptions, proposalID string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	svc, st, err := openService(opts)
	if err != nil {
		return err
	}
	defer st.Close()

	if err := svc.RejectProposal(cmd.Context(), proposalID); err != nil {
		return formatter.Error(err)
	}
	if formatter.Format == "json" {
		return formatter.Success(map[string]interface{}{"proposal_id": proposalID, "state": "rejected"})
	}
	fmt.Fprintf(formatter.Writer, "Rejected proposal %s\n", proposalID)
	return nil
}
