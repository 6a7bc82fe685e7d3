package cli

import (
	"fmt"
	"maps"
	"os"
	"slices"

	"github.com/spf13/cobra"

	"github.com/roach88/ixengine/internal/compiler"
	"github.com/roach88/ixengine/internal/ir"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	Output string // output file path
}

// CompilationStats holds summary statistics.
type CompilationStats struct {
	DocumentHash     string         `json:"document_hash"`
	Events           int            `json:"events"`
	EventsByType     map[string]int `json:"events_by_type"`
	ActionLists      int            `json:"action_lists"`
	ActionItems      int            `json:"action_items"`
	ContinuousGroups int            `json:"continuous_groups"`
	Warnings         []string       `json:"warnings,omitempty"`
	Output           string         `json:"output,omitempty"`
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile <document.json>",
		Short: "Compile a document to canonical JSON",
		Long: `Validate an interaction document and write its canonical form.

The canonical form fills in event and action list ids from their map keys,
sorts every object's keys and drops insignificant whitespace. Its hash is
the document hash recorded with every run.

Exit codes:
  0 - Compiled
  1 - Document has errors
  2 - Command error (file not found, write failed)`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors - we handle our own error output
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "output file path")

	return cmd
}

func runCompile(opts *CompileOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	doc, errs, err := compileFile(path)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeNotFound, "failed to read document", err)
	}
	if compiler.HasErrors(errs) {
		return outputValidationErrors(formatter, ValidationResult{Errors: errs})
	}

	stats := calculateStats(doc)
	stats.Output = opts.Output
	for _, w := range errs {
		stats.Warnings = append(stats.Warnings, w.Error())
	}
	if stats.DocumentHash, err = ir.DocumentHash(doc); err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeGeneric, "failed to hash document", err)
	}

	for _, id := range doc.ActionListIDs() {
		formatter.VerboseLog("Compiled action list: %s", id)
	}

	if opts.Output != "" {
		if err := writeCanonical(doc, opts.Output); err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeWriteFailed, "failed to write output file", err)
		}
	}

	return outputCompileSuccess(formatter, stats)
}

// calculateStats computes summary statistics for a compiled document.
func calculateStats(doc *ir.Document) CompilationStats {
	stats := CompilationStats{
		Events:       len(doc.Events),
		EventsByType: map[string]int{},
		ActionLists:  len(doc.ActionLists),
	}
	for kind, ids := range doc.EventTypeMap() {
		stats.EventsByType[string(kind)] = len(ids)
	}
	for _, list := range doc.ActionLists {
		for _, g := range list.ActionItemGroups {
			stats.ActionItems += len(g.ActionItems)
		}
		stats.ContinuousGroups += len(list.ContinuousParameterGroups)
	}
	return stats
}

// outputCompileSuccess outputs successful compilation results.
func outputCompileSuccess(formatter *OutputFormatter, stats CompilationStats) error {
	if formatter.Format == "json" {
		return formatter.Success(stats)
	}

	fmt.Fprintf(formatter.Writer, "✓ Compiled %d event(s), %d action list(s)\n\n", stats.Events, stats.ActionLists)

	if len(stats.EventsByType) > 0 {
		fmt.Fprintln(formatter.Writer, "Events:")
		for _, kind := range slices.Sorted(maps.Keys(stats.EventsByType)) {
			fmt.Fprintf(formatter.Writer, "  %s: %d\n", kind, stats.EventsByType[kind])
		}
		fmt.Fprintln(formatter.Writer)
	}

	fmt.Fprintf(formatter.Writer, "Action items: %d\n", stats.ActionItems)
	fmt.Fprintf(formatter.Writer, "Continuous groups: %d\n", stats.ContinuousGroups)
	fmt.Fprintf(formatter.Writer, "Hash: %s\n", stats.DocumentHash)

	for _, w := range stats.Warnings {
		fmt.Fprintf(formatter.Writer, "  %s\n", w)
	}
	if stats.Output != "" {
		fmt.Fprintf(formatter.Writer, "Wrote canonical document to %s\n", stats.Output)
	}
	return nil
}

// writeCanonical writes doc to filename as canonical JSON.
func writeCanonical(doc *ir.Document, filename string) error {
	data, err := ir.MarshalCanonical(doc)
	if err != nil {
		return fmt.Errorf("marshaling document: %w", err)
	}
	if err := os.WriteFile(filename, data, 0o644); err != nil {
		return fmt.Errorf("writing file: %w", err)
	}
	return nil
}
