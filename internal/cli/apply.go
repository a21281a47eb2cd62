package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewApplyCommand creates the apply command.
func NewApplyCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "apply <proposal-id>",
		Short: "Apply a previewed re-plan proposal",
		Long: `Commit a previewed proposal as the project's next timeline version,
superseding the current one and resolving the proposal's trigger. Fails
if the timeline changed since the proposal was computed; re-run replan
against the new version in that case.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runApply(rootOpts, args[0], cmd)
		},
	}
	return cmd
}

func runApply(opts *RootOptions, proposalID string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	svc, st, err := openService(opts)
	if err != nil {
		return err
	}
	defer st.Close()

	tl, err := svc.ApplyProposal(cmd.Context(), proposalID)
	if err != nil {
		return formatter.Error(err)
	}

	if formatter.Format == "json" {
		return formatter.Success(map[string]interface{}{
			"timeline_id": tl.ID,
			"new_version": tl.Version,
		})
	}
	fmt.Fprintf(formatter.Writer, "Applied: %s is now active\n", tl.ID)
	return nil
}
