package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"

	"github.com/roach88/replan/internal/catalog"
	"github.com/roach88/replan/internal/facts"
)

// ValidationIssue is one problem found by validate.
type ValidationIssue struct {
	Source  string `json:"source"` // "catalog" or the fact file path
	Message string `json:"message"`
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Issues []ValidationIssue `json:"issues,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	var catalogPath string

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate the task catalog and all fact files",
		Long: `Compile the task template catalog and parse every fact file in the
facts directory without touching the database. Reports all problems
rather than stopping at the first.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, catalogPath, cmd)
		},
	}
	cmd.Flags().StringVar(&catalogPath, "catalog", "", "custom task catalog (CUE) to validate instead of the built-in one")
	return cmd
}

func runValidate(opts *RootOptions, catalogPath string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)
	var issues []ValidationIssue

	issues = append(issues, validateCatalog(catalogPath, formatter)...)
	issues = append(issues, validateFactFiles(opts.FactsDir, formatter)...)

	if formatter.Format == "json" {
		result := ValidationResult{Valid: len(issues) == 0, Issues: issues}
		if len(issues) == 0 {
			return formatter.Success(result)
		}
		_ = formatter.Success(result)
		return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d issue(s)", len(issues)))
	}

	if len(issues) == 0 {
		fmt.Fprintln(formatter.Writer, "✓ Catalog and fact files valid")
		return nil
	}
	fmt.Fprintln(formatter.Writer, "✗ Validation failed")
	fmt.Fprintln(formatter.Writer)
	for _, issue := range issues {
		fmt.Fprintf(formatter.Writer, "  %s: %s\n", issue.Source, issue.Message)
	}
	return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d issue(s)", len(issues)))
}

func validateCatalog(path string, formatter *OutputFormatter) []ValidationIssue {
	if path == "" {
		formatter.VerboseLog("validating built-in catalog")
		// The built-in catalog compiles at startup; re-check anyway so a
		// broken embedded file is caught by CI, not first use.
		cat := catalog.Default()
		formatter.VerboseLog("catalog covers %d fact kind(s)", cat.Kinds())
		return nil
	}

	formatter.VerboseLog("validating catalog %s", path)
	src, err := os.ReadFile(path)
	if err != nil {
		return []ValidationIssue{{Source: "catalog", Message: err.Error()}}
	}
	if _, err := catalog.CompileString(string(src)); err != nil {
		var cerr *catalog.CompileError
		if errors.As(err, &cerr) && cerr.Pos.IsValid() {
			return []ValidationIssue{{
				Source:  "catalog",
				Message: fmt.Sprintf("line %d: %s", cerr.Pos.Line(), cerr.Message),
			}}
		}
		return []ValidationIssue{{Source: "catalog", Message: err.Error()}}
	}
	return nil
}

func validateFactFiles(dir string, formatter *OutputFormatter) []ValidationIssue {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return []ValidationIssue{{Source: dir, Message: err.Error()}}
	}

	var issues []ValidationIssue
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		ext := filepath.Ext(e.Name())
		if !e.IsDir() && (ext == ".yaml" || ext == ".yml") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	if len(names) == 0 {
		return []ValidationIssue{{Source: dir, Message: "no fact files found"}}
	}

	for _, name := range names {
		path := filepath.Join(dir, name)
		formatter.VerboseLog("validating %s", path)
		if _, err := facts.Load(path); err != nil {
			issues = append(issues, ValidationIssue{Source: path, Message: err.Error()})
		}
	}
	return issues
}
