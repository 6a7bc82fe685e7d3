package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/ixengine/internal/compiler"
	"github.com/roach88/ixengine/internal/ir"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid        bool                       `json:"valid"`
	DocumentHash string                     `json:"document_hash,omitempty"`
	Events       int                        `json:"events"`
	ActionLists  int                        `json:"action_lists"`
	Errors       []compiler.ValidationError `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <document.json>",
		Short: "Validate an interaction document",
		Long: `Validate an interaction document without running it.

Checks JSON syntax, the document schema, and cross references: action
lists, auto-stop events, continuous parameter groups and media queries.
Unknown event or action types and action lists that start each other are
reported as warnings.

Exit codes:
  0 - Valid (warnings allowed)
  1 - One or more errors
  2 - Command error (file not found, etc.)`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	doc, errs, err := compileFile(path)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeNotFound, "failed to read document", err)
	}
	formatter.VerboseLog("Compiled %s: %d problem(s)", path, len(errs))

	result := ValidationResult{Valid: !compiler.HasErrors(errs), Errors: errs}
	if doc != nil {
		result.Events = len(doc.Events)
		result.ActionLists = len(doc.ActionLists)
		result.DocumentHash, _ = ir.DocumentHash(doc)
	}

	if !result.Valid {
		return outputValidationErrors(formatter, result)
	}
	return outputValidateSuccess(formatter, result)
}

// compileFile reads and compiles the document at path.
// The error is non-nil only when the file cannot be read.
func compileFile(path string) (*ir.Document, []compiler.ValidationError, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}
	doc, errs := compiler.CompileNamed(path, raw)
	return doc, errs, nil
}

// outputValidateSuccess outputs successful validation results.
func outputValidateSuccess(formatter *OutputFormatter, result ValidationResult) error {
	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	fmt.Fprintf(formatter.Writer, "✓ Document valid (%d events, %d action lists)\n", result.Events, result.ActionLists)
	printProblems(formatter, result.Errors)
	return nil
}

// outputValidationErrors outputs every problem and fails with exit code 1.
func outputValidationErrors(formatter *OutputFormatter, result ValidationResult) error {
	var first compiler.ValidationError
	count := 0
	for _, e := range result.Errors {
		if e.IsWarning() {
			continue
		}
		if count == 0 {
			first = e
		}
		count++
	}

	if formatter.Format == "json" {
		if err := formatter.encode(CLIResponse{
			Status: "error",
			Data:   result,
			Error: &CLIError{
				Code:    first.Code,
				Message: first.Message,
			},
		}); err != nil {
			return err
		}
		return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", count))
	}

	fmt.Fprintln(formatter.Writer, "✗ Validation failed")
	fmt.Fprintln(formatter.Writer)
	printProblems(formatter, result.Errors)

	// Validation failures = exit code 1 (test/validation failure)
	return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", count))
}

func printProblems(formatter *OutputFormatter, errs []compiler.ValidationError) {
	for _, err := range errs {
		if err.Line > 0 {
			fmt.Fprintf(formatter.Writer, "line %d\n", err.Line)
		}
		fmt.Fprintf(formatter.Writer, "  %s %s: %s\n", err.Code, err.Field, err.Message)
	}
}
