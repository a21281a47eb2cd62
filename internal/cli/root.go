package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/roach88/replan/internal/catalog"
	"github.com/roach88/replan/internal/facts"
	"github.com/roach88/replan/internal/orchestrator"
	"github.com/roach88/replan/internal/store"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose  bool
	Format   string // "json" | "text"
	DBPath   string
	FactsDir string
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the replan CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "replan",
		Short: "Project timeline and re-planning engine",
		Long: `Generates project timelines from typed facts, computes the critical
path, detects schedule risks, and applies versioned re-plans.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			level := slog.LevelWarn
			if opts.Verbose {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level})))
			return nil
		},
	}

	// Global flags
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.DBPath, "db", "replan.db", "timeline database path")
	cmd.PersistentFlags().StringVar(&opts.FactsDir, "facts", "facts", "directory of project fact files")

	cmd.AddCommand(NewGenerateCommand(opts))
	cmd.AddCommand(NewTriggersCommand(opts))
	cmd.AddCommand(NewRePlanCommand(opts))
	cmd.AddCommand(NewApplyCommand(opts))
	cmd.AddCommand(NewRejectCommand(opts))
	cmd.AddCommand(NewStatusCommand(opts))
	cmd.AddCommand(NewCriticalPathCommand(opts))
	cmd.AddCommand(NewGanttCommand(opts))
	cmd.AddCommand(NewWatchCommand(opts))
	cmd.AddCommand(NewValidateCommand(opts))

	return cmd
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}

// newFormatter builds the command's output formatter.
func newFormatter(opts *RootOptions, cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
}

// openService opens the store and wires the orchestrator. The caller
// must Close the returned store.
func openService(opts *RootOptions) (*orchestrator.Service, *store.Store, error) {
	st, err := store.Open(opts.DBPath)
	if err != nil {
		return nil, nil, NewExitError(ExitCommandError, fmt.Sprintf("open database %s: %v", opts.DBPath, err))
	}
	svc := orchestrator.New(st, catalog.Default())
	return svc, st, nil
}

// factFile resolves a project's fact file under the facts directory.
func factFile(opts *RootOptions, project string) string {
	return filepath.Join(opts.FactsDir, project+".yaml")
}

// loadFacts loads and validates a project's fact file.
func loadFacts(opts *RootOptions, project string) (*facts.File, error) {
	path := factFile(opts, project)
	f, err := facts.Load(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, NewExitError(ExitCommandError, fmt.Sprintf("no fact file for project %q at %s", project, path))
		}
		return nil, err
	}
	if f.Project != project {
		return nil, NewExitError(ExitCommandError,
			fmt.Sprintf("fact file %s declares project %q", path, f.Project))
	}
	return f, nil
}
