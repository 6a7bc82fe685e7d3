package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/ixengine/internal/engine"
	"github.com/roach88/ixengine/internal/harness"
	"github.com/roach88/ixengine/internal/store"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Database string
	RunID    string
}

// RunResult is the JSON payload of the run command.
type RunResult struct {
	Scenario     string          `json:"scenario"`
	Pass         bool            `json:"pass"`
	Frames       int             `json:"frames"`
	Paints       int             `json:"paints"`
	DocumentHash string          `json:"document_hash"`
	TraceHash    string          `json:"trace_hash,omitempty"`
	Errors       []string        `json:"errors,omitempty"`
	Warnings     []string        `json:"warnings,omitempty"`
	Faults       []harness.Fault `json:"faults,omitempty"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <scenario.yaml>",
		Short: "Run one scenario on a headless page",
		Long: `Run one scenario: load its document and fixture page, drive the
steps frame by frame on a manual clock, and check the assertions.

With --db every frame and every style write is recorded, and the run can
be inspected later with trace and replay.

Example:
  ixengine run scenarios/click.yaml
  ixengine run --db ./runs.db scenarios/click.yaml --verbose

Exit codes:
  0 - All assertions held
  1 - One or more assertions failed
  2 - Command error (scenario invalid, document does not compile, etc.)`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScenario(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "record the run into this SQLite database")
	cmd.Flags().StringVar(&opts.RunID, "run-id", "", "recorded run id (default: generated)")

	return cmd
}

func runScenario(opts *RunOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	logger := newLogger(opts.RootOptions, cmd)

	scenario, err := harness.LoadScenario(path)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeNotFound, "failed to load scenario", err)
	}
	formatter.VerboseLog("Loaded scenario %s (%d steps, %d assertions)", scenario.Name, len(scenario.Steps), len(scenario.Assertions))

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	hopts := []harness.Option{harness.WithLogger(logger)}
	runID := ""
	if opts.Database != "" {
		st, err := store.Open(opts.Database)
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeStore, "failed to open database", err)
		}
		defer closeStore(st, logger)

		runID = opts.RunID
		if runID == "" {
			runID = engine.UUIDv7Generator{}.Generate()
		}
		hopts = append(hopts, harness.WithStore(st), harness.WithRunID(runID))
	}

	result, err := harness.RunContext(ctx, scenario, hopts...)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeGeneric, "scenario execution failed", err)
	}

	return outputRunResult(formatter, scenario.Name, runID, result)
}

func outputRunResult(formatter *OutputFormatter, name, runID string, result *harness.Result) error {
	summary := RunResult{
		Scenario:     name,
		Pass:         result.Pass,
		Frames:       len(result.Trace),
		Paints:       result.PaintCount(),
		DocumentHash: result.DocumentHash,
		Errors:       result.Errors,
		Warnings:     result.Warnings,
		Faults:       result.Faults,
	}
	if digest, err := harness.TraceDigest(name, result); err == nil {
		summary.TraceHash = digest
	}

	if formatter.Format == "json" {
		status := "ok"
		if !result.Pass {
			status = "error"
		}
		if err := formatter.encode(CLIResponse{Status: status, Data: summary, RunID: runID}); err != nil {
			return err
		}
	} else {
		if result.Pass {
			fmt.Fprintf(formatter.Writer, "✓ %s\n", name)
		} else {
			fmt.Fprintf(formatter.Writer, "✗ %s\n", name)
		}
		fmt.Fprintf(formatter.Writer, "  %d frame(s), %d write(s)\n", summary.Frames, summary.Paints)
		if formatter.Verbose && summary.TraceHash != "" {
			fmt.Fprintf(formatter.Writer, "  trace %s\n", summary.TraceHash)
		}
		for _, f := range result.Faults {
			fmt.Fprintf(formatter.Writer, "  fault %s: %s\n", f.Code, f.Message)
		}
		for _, e := range result.Errors {
			fmt.Fprintf(formatter.Writer, "\n%s", e)
		}
		if runID != "" {
			fmt.Fprintf(formatter.Writer, "Recorded run %s\n", runID)
		}
	}

	if !result.Pass {
		return NewExitError(ExitFailure, fmt.Sprintf("scenario %s failed with %d error(s)", name, len(result.Errors)))
	}
	return nil
}

func closeStore(st *store.Store, logger *slog.Logger) {
	if err := st.Close(); err != nil {
		logger.Error("error closing database", "error", err)
	}
}
