package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/replan/internal/plan"
	"github.com/roach88/replan/internal/watch"
)

// NewWatchCommand creates the watch command.
func NewWatchCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Re-scan projects when their fact files change",
		Long: `Watch the facts directory and re-run trigger detection for a project
whenever its fact file is written. Runs until interrupted.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(rootOpts, cmd)
		},
	}
	return cmd
}

func runWatch(opts *RootOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	svc, st, err := openService(opts)
	if err != nil {
		return err
	}
	defer st.Close()

	w := watch.New(svc, opts.FactsDir)
	w.OnTriggers = func(project string, triggers []plan.Trigger) {
		for _, trg := range triggers {
			fmt.Fprintf(formatter.Writer, "[%s] %s %s: %s\n", project, trg.Severity, trg.Type, trg.Cause)
		}
	}
	return w.Run(cmd.Context())
}
