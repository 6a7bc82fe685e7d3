package cli

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/ixengine/internal/dom"
	"github.com/roach88/ixengine/internal/store"
)

// ReplayOptions holds flags for the replay command.
type ReplayOptions struct {
	*RootOptions
	Database string
	RunID    string
	Fixture  string
	Frame    int // replay up to and including this frame; negative means all
}

// ElementStyle is one replayed element and its resulting inline style.
type ElementStyle struct {
	Element string `json:"element"`
	Style   string `json:"style"`
}

// ReplayOutput holds the replay result.
type ReplayOutput struct {
	RunID      string         `json:"run_id"`
	Frame      int            `json:"frame"`
	Applied    int            `json:"applied"`
	Unresolved []string       `json:"unresolved,omitempty"`
	Elements   []ElementStyle `json:"elements"`
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Re-apply a recorded run to a fixture page",
		Long: `Re-apply a recorded run's writes to a fixture page without running the
engine, and print the inline style of every element that ends up styled.

With --frame N only the writes of frames 0..N are applied, which shows the
page as it was after that frame.

Exit codes:
  0 - Every write was applied
  1 - Some writes named elements the fixture does not have
  2 - Command error (database not found, unknown run, etc.)

Examples:
  ixengine replay --db ./runs.db --run 0190a6f2-... --fixture page.html
  ixengine replay --db ./runs.db --run 0190a6f2-... --fixture page.html --frame 2`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.RunID, "run", "", "run id to replay (required)")
	_ = cmd.MarkFlagRequired("run")
	cmd.Flags().StringVar(&opts.Fixture, "fixture", "", "HTML page the run started from (required)")
	_ = cmd.MarkFlagRequired("fixture")
	cmd.Flags().IntVar(&opts.Frame, "frame", -1, "replay up to and including this frame")

	return cmd
}

func runReplay(opts *ReplayOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	logger := newLogger(opts.RootOptions, cmd)

	page, err := openFixture(opts.Fixture, logger)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeNotFound, "failed to load fixture", err)
	}

	st, err := store.Open(opts.Database)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeStore, "failed to open database", err)
	}
	defer closeStore(st, logger)

	res, err := st.Replay(cmd.Context(), opts.RunID, page, opts.Frame)
	if errors.Is(err, store.ErrRunNotFound) {
		return formatter.Fail(ExitCommandError, ErrCodeNotFound, fmt.Sprintf("run not found: %s", opts.RunID), nil)
	}
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeStore, "replay failed", err)
	}
	formatter.VerboseLog("Applied %d write(s) from run %s", res.Applied, opts.RunID)

	out := ReplayOutput{
		RunID:      opts.RunID,
		Frame:      opts.Frame,
		Applied:    res.Applied,
		Unresolved: res.Unresolved,
		Elements:   styledElements(page),
	}
	return outputReplay(formatter, out)
}

// styledElements lists every element with inline styles, in document order.
func styledElements(page *dom.Document) []ElementStyle {
	out := []ElementStyle{}
	for _, e := range page.All() {
		if text := e.StyleText(); text != "" {
			out = append(out, ElementStyle{Element: e.Label(), Style: text})
		}
	}
	return out
}

func outputReplay(formatter *OutputFormatter, out ReplayOutput) error {
	if formatter.Format == "json" {
		status := "ok"
		if len(out.Unresolved) > 0 {
			status = "error"
		}
		if err := formatter.encode(CLIResponse{Status: status, Data: out, RunID: out.RunID}); err != nil {
			return err
		}
	} else {
		w := formatter.Writer
		fmt.Fprintf(w, "Replayed %d write(s) from run %s\n\n", out.Applied, out.RunID)
		for _, e := range out.Elements {
			fmt.Fprintf(w, "  %s { %s }\n", e.Element, e.Style)
		}
		if len(out.Unresolved) > 0 {
			fmt.Fprintln(w)
			fmt.Fprintln(w, "Unresolved elements:")
			for _, label := range out.Unresolved {
				fmt.Fprintf(w, "  %s\n", label)
			}
		}
	}

	if len(out.Unresolved) > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d element(s) not found in fixture", len(out.Unresolved)))
	}
	return nil
}

// openFixture parses an HTML fixture page.
func openFixture(path string, logger *slog.Logger, opts ...dom.DocumentOption) (*dom.Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	opts = append(opts, dom.WithDocumentLogger(logger))
	return dom.ParseHTML(f, opts...)
}
