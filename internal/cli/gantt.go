package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/replan/internal/gantt"
)

// NewGanttCommand creates the gantt command.
func NewGanttCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		opts   gantt.Options
		output string
		asText bool
	)

	cmd := &cobra.Command{
		Use:   "gantt <project>",
		Short: "Render the active timeline as a Gantt chart",
		Long: `Render the active timeline as SVG (default) or as a styled terminal
chart with --text. The SVG output is byte-deterministic for a given
timeline and options.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGantt(rootOpts, args[0], opts, output, asText, cmd)
		},
	}
	cmd.Flags().BoolVar(&opts.ShowCriticalPath, "critical-path", true, "highlight critical-path tasks")
	cmd.Flags().BoolVar(&opts.ShowProgress, "progress", true, "draw progress fills")
	cmd.Flags().BoolVar(&opts.ShowDependencies, "dependencies", false, "draw dependency connectors")
	cmd.Flags().IntVar(&opts.Width, "width", 0, "drawing width in pixels (0 = default)")
	cmd.Flags().IntVar(&opts.Height, "height", 0, "drawing height in pixels (0 = fit rows)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "write SVG to file instead of stdout")
	cmd.Flags().BoolVar(&asText, "text", false, "render a terminal chart instead of SVG")
	return cmd
}

func runGantt(rootOpts *RootOptions, project string, opts gantt.Options, output string, asText bool, cmd *cobra.Command) error {
	formatter := newFormatter(rootOpts, cmd)

	svc, st, err := openService(rootOpts)
	if err != nil {
		return err
	}
	defer st.Close()

	if asText {
		chart, err := svc.RenderGanttText(cmd.Context(), project, opts)
		if err != nil {
			return formatter.Error(err)
		}
		fmt.Fprint(formatter.Writer, chart)
		return nil
	}

	svg, err := svc.RenderGantt(cmd.Context(), project, opts)
	if err != nil {
		return formatter.Error(err)
	}
	if output != "" {
		if err := os.WriteFile(output, svg, 0o644); err != nil {
			return NewExitError(ExitCommandError, fmt.Sprintf("write %s: %v", output, err))
		}
		formatter.VerboseLog("wrote %d bytes to %s", len(svg), output)
		return nil
	}
	_, err = formatter.Writer.Write(svg)
	return err
}
