package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewGenerateCommand creates the generate command.
func NewGenerateCommand(rootOpts *RootOptions) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "generate <project>",
		Short: "Generate a project timeline from its facts",
		Long: `Build the work breakdown structure from the project's fact file,
schedule it with the critical path method, and store it as the active
timeline. If an active timeline already exists the command is a no-op
unless --force is given, which regenerates as a new version while
preserving recorded progress.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerate(rootOpts, args[0], force, cmd)
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "regenerate even if an active timeline exists")
	return cmd
}

func runGenerate(opts *RootOptions, project string, force bool, cmd *cobra.Command) error {
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

	res, err := svc.GenerateTimeline(cmd.Context(), f, force)
	if err != nil {
		return formatter.Error(err)
	}

	if formatter.Format == "json" {
		return formatter.Success(res)
	}
	if !res.Regenerated {
		fmt.Fprintf(formatter.Writer, "Timeline %s already active (use --force to regenerate)\n", res.TimelineID)
		return nil
	}
	fmt.Fprintf(formatter.Writer, "Generated %s: %d tasks, critical path %d tasks\n",
		res.TimelineID, res.TasksGenerated, res.CriticalPathLength)
	return nil
}
