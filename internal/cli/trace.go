package cli

import (
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/spf13/cobra"

	"github.com/roach88/ixengine/internal/queryir"
	"github.com/roach88/ixengine/internal/store"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Database string
	RunID    string
	Element  string // optional - filter to one element label
	Prefix   string // optional - filter to element labels with this prefix
	Property string
	Op       string
	From     int // first frame, -1 = unbounded
	To       int // last frame, -1 = unbounded
	Limit    int
}

// filtered reports whether any write filter was given.
func (o *TraceOptions) filtered() bool {
	return o.Element != "" || o.Prefix != "" || o.Property != "" || o.Op != "" || o.From >= 0 || o.To >= 0 || o.Limit > 0
}

// filter builds the paint predicate for the write filters.
func (o *TraceOptions) filter() queryir.Predicate {
	var preds []queryir.Predicate
	if o.Element != "" {
		preds = append(preds, queryir.Equals{Field: "element", Value: o.Element})
	}
	if o.Prefix != "" {
		preds = append(preds, queryir.Prefix{Field: "element", Prefix: o.Prefix})
	}
	if o.Property != "" {
		preds = append(preds, queryir.Equals{Field: "name", Value: o.Property})
	}
	if o.Op != "" {
		preds = append(preds, queryir.Equals{Field: "op", Value: o.Op})
	}
	if o.From >= 0 {
		preds = append(preds, queryir.Compare{Field: "frame", Op: queryir.OpGreaterEqual, Value: o.From})
	}
	if o.To >= 0 {
		preds = append(preds, queryir.Compare{Field: "frame", Op: queryir.OpLessEqual, Value: o.To})
	}
	return queryir.Where(preds...)
}

// TraceResult holds the complete trace output for one run.
type TraceResult struct {
	Run     store.Run          `json:"run"`
	Frames  []store.Frame      `json:"frames,omitempty"`
	History []store.FramePaint `json:"history,omitempty"`
	Stats   TraceStats         `json:"stats"`
}

// TraceStats holds summary statistics for the trace.
type TraceStats struct {
	Frames      int `json:"frames"`
	Paints      int `json:"paints"`
	Elements    int `json:"elements"`
	MaxInstance int `json:"max_instances"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Inspect recorded runs",
		Long: `Inspect runs recorded with run --db or test --db.

Without --run, lists every recorded run. With --run, prints the run frame
by frame: clock time, live instances, published parameters and every
style write. The write filters print only matching writes instead:
--element names one element by its label (#id, [data-w-id="..."] or
tag.class), --element-prefix matches labels by prefix, --property and --op
match the written name and operation, and --from/--to bound the frames.

Examples:
  ixengine trace --db ./runs.db
  ixengine trace --db ./runs.db --run 0190a6f2-...
  ixengine trace --db ./runs.db --run 0190a6f2-... --element '[data-w-id="box"]'
  ixengine trace --db ./runs.db --run 0190a6f2-... --property opacity --from 10 --to 20
  ixengine trace --db ./runs.db --run 0190a6f2-... --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.RunID, "run", "", "run id to trace")
	cmd.Flags().StringVar(&opts.Element, "element", "", "only show writes to this element label")
	cmd.Flags().StringVar(&opts.Prefix, "element-prefix", "", "only show writes to element labels starting with this")
	cmd.Flags().StringVar(&opts.Property, "property", "", "only show writes to this property or class name")
	cmd.Flags().StringVar(&opts.Op, "op", "", "only show writes of this operation (set-style, add-class, remove-class, ...)")
	cmd.Flags().IntVar(&opts.From, "from", -1, "only show writes from this frame on")
	cmd.Flags().IntVar(&opts.To, "to", -1, "only show writes up to this frame")
	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "show at most this many writes (0 = all)")

	return cmd
}

func runTrace(opts *TraceOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	logger := newLogger(opts.RootOptions, cmd)
	ctx := cmd.Context()

	st, err := store.Open(opts.Database)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeStore, "failed to open database", err)
	}
	defer closeStore(st, logger)

	if opts.RunID == "" {
		runs, err := st.ListRuns(ctx)
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeStore, "failed to list runs", err)
		}
		return outputRunList(formatter, runs)
	}

	run, err := st.ReadRun(ctx, opts.RunID)
	if errors.Is(err, store.ErrRunNotFound) {
		return formatter.Fail(ExitCommandError, ErrCodeNotFound, fmt.Sprintf("run not found: %s", opts.RunID), nil)
	}
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeStore, "failed to read run", err)
	}

	result := TraceResult{Run: run}
	if opts.filtered() {
		result.History, err = st.QueryPaints(ctx, run.ID, opts.filter(), opts.Limit)
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeStore, "failed to query writes", err)
		}
		result.Stats = calculateHistoryStats(result.History)
	} else {
		result.Frames, err = st.ReadFrames(ctx, run.ID)
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeStore, "failed to read frames", err)
		}
		result.Stats = calculateTraceStats(result.Frames)
	}

	if formatter.Format == "json" {
		if err := formatter.encode(CLIResponse{Status: "ok", Data: result, RunID: run.ID}); err != nil {
			return err
		}
		return nil
	}
	outputTraceText(formatter, result, opts)
	return nil
}

func calculateHistoryStats(history []store.FramePaint) TraceStats {
	stats := TraceStats{Paints: len(history)}
	elements := map[string]bool{}
	frames := map[int]bool{}
	for _, fp := range history {
		elements[fp.Element] = true
		frames[fp.Frame] = true
	}
	stats.Elements = len(elements)
	stats.Frames = len(frames)
	return stats
}

func calculateTraceStats(frames []store.Frame) TraceStats {
	stats := TraceStats{Frames: len(frames)}
	elements := map[string]bool{}
	for _, f := range frames {
		stats.Paints += len(f.Paints)
		stats.MaxInstance = max(stats.MaxInstance, f.Instances)
		for _, p := range f.Paints {
			elements[p.Element] = true
		}
	}
	stats.Elements = len(elements)
	return stats
}

func outputRunList(formatter *OutputFormatter, runs []store.Run) error {
	if formatter.Format == "json" {
		return formatter.Success(runs)
	}
	if len(runs) == 0 {
		fmt.Fprintln(formatter.Writer, "No runs recorded.")
		return nil
	}
	for _, r := range runs {
		fmt.Fprintf(formatter.Writer, "%s  %-7s  %4d frame(s)  %s\n", r.ID, r.Status, r.FrameCount, r.Scenario)
	}
	return nil
}

func outputTraceText(formatter *OutputFormatter, result TraceResult, opts *TraceOptions) {
	w := formatter.Writer
	run := result.Run

	fmt.Fprintf(w, "Run: %s (%s)\n", run.ID, run.Status)
	fmt.Fprintf(w, "Scenario: %s\n", run.Scenario)
	fmt.Fprintf(w, "Document: %s\n", run.DocumentHash)
	fmt.Fprintln(w)

	if opts.filtered() {
		if opts.Element != "" {
			fmt.Fprintf(w, "Writes to %s:\n", opts.Element)
		} else {
			fmt.Fprintln(w, "Matching writes:")
		}
		for _, fp := range result.History {
			if opts.Element != "" {
				fmt.Fprintf(w, "  [frame %d] %s %s = %s\n", fp.Frame, fp.Op, fp.Name, fp.Value)
			} else {
				fmt.Fprintf(w, "  [frame %d] %s %s %s = %s\n", fp.Frame, fp.Element, fp.Op, fp.Name, fp.Value)
			}
		}
		fmt.Fprintf(w, "\n%d write(s) in %d frame(s)\n", result.Stats.Paints, result.Stats.Frames)
		return
	}

	fmt.Fprintln(w, "Timeline:")
	for _, f := range result.Frames {
		fmt.Fprintf(w, "  [frame %d] t=%gms instances=%d\n", f.Index, f.TimeMS, f.Instances)
		for _, id := range slices.Sorted(maps.Keys(f.Parameters)) {
			fmt.Fprintf(w, "    param %s = %g\n", id, f.Parameters[id])
		}
		for _, p := range f.Paints {
			fmt.Fprintf(w, "    %s %s %s = %s\n", p.Element, p.Op, p.Name, p.Value)
		}
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Stats: %d frame(s), %d write(s), %d element(s), at most %d instance(s)\n",
		result.Stats.Frames, result.Stats.Paints, result.Stats.Elements, result.Stats.MaxInstance)
}
