package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/ixengine/internal/compiler"
	"github.com/roach88/ixengine/internal/dom"
	"github.com/roach88/ixengine/internal/engine"
	"github.com/roach88/ixengine/internal/state"
)

// PlayOptions holds flags for the play command.
type PlayOptions struct {
	*RootOptions
	Fixture         string
	FPS             int
	For             time.Duration
	Width           float64
	Height          float64
	Click           string // selector clicked once the engine starts
	List            string // action list played once the engine starts
	Event           string // event previewed once the engine starts
	PlaybackVerbose bool   // the list plays to its end, once
	Immediate       bool
}

// PlayResult summarizes a real-time play session.
type PlayResult struct {
	Elapsed   string         `json:"elapsed"`
	Paints    int            `json:"paints"`
	Instances int            `json:"instances"`
	Elements  []ElementStyle `json:"elements"`
}

// NewPlayCommand creates the play command.
func NewPlayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &PlayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "play <document.json>",
		Short: "Play a document in real time on a fixture page",
		Long: `Start the engine on the wall clock against a fixture page and let it run.

The engine binds the document's events, renders initial states and runs
its frame loop at --fps until --for elapses or Ctrl-C. A click, an action
list playback or an event preview can be queued before the loop starts.
When it stops, the inline style of every styled element is printed.

Example:
  ixengine play doc.json --fixture page.html --click .btn --for 2s
  ixengine play doc.json --fixture page.html --list a-1 --playback-verbose`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPlay(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Fixture, "fixture", "", "HTML page to play on (required)")
	_ = cmd.MarkFlagRequired("fixture")
	cmd.Flags().IntVar(&opts.FPS, "fps", 60, "frames per second")
	cmd.Flags().DurationVar(&opts.For, "for", 0, "stop after this long (default: until interrupted)")
	cmd.Flags().Float64Var(&opts.Width, "width", 0, "viewport width")
	cmd.Flags().Float64Var(&opts.Height, "height", 0, "viewport height")
	cmd.Flags().StringVar(&opts.Click, "click", "", "click the element matching this selector")
	cmd.Flags().StringVar(&opts.List, "list", "", "play this action list")
	cmd.Flags().StringVar(&opts.Event, "event", "", "preview this event (with --list: the playback's event)")
	cmd.Flags().BoolVar(&opts.PlaybackVerbose, "playback-verbose", false, "play the list to its end, once")
	cmd.Flags().BoolVar(&opts.Immediate, "immediate", false, "jump the list to its end")

	return cmd
}

func runPlay(opts *PlayOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	logger := newLogger(opts.RootOptions, cmd)

	doc, errs, err := compileFile(path)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeNotFound, "failed to read document", err)
	}
	if compiler.HasErrors(errs) {
		return outputValidationErrors(formatter, ValidationResult{Errors: errs})
	}

	var docOpts []dom.DocumentOption
	if opts.Width > 0 && opts.Height > 0 {
		docOpts = append(docOpts, dom.WithViewport(opts.Width, opts.Height))
	}
	page, err := openFixture(opts.Fixture, logger, docOpts...)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeNotFound, "failed to load fixture", err)
	}
	recorder := dom.NewRecorder(page)

	fps := opts.FPS
	if fps <= 0 {
		fps = 60
	}
	eng, err := engine.New(recorder,
		engine.WithLogger(logger),
		engine.WithFrameInterval(time.Second/time.Duration(fps)),
	)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeGeneric, "failed to create engine", err)
	}
	if err := eng.Init(doc); err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeGeneric, "failed to start engine", err)
	}

	if opts.Click != "" {
		e := page.Element(opts.Click)
		if e == nil {
			return formatter.Fail(ExitCommandError, ErrCodeNotFound, fmt.Sprintf("no element matches %q", opts.Click), nil)
		}
		page.Click(e)
	}
	switch {
	case opts.List != "":
		eng.Playback(state.PlaybackRequested{
			ActionListID: opts.List,
			EventID:      opts.Event,
			Immediate:    opts.Immediate,
			Verbose:      opts.PlaybackVerbose,
			AllowEvents:  true,
		})
	case opts.Event != "":
		eng.Preview(opts.Event)
	}

	// Setup signal handling for graceful shutdown
	// Use command's context if available (for testing), otherwise create one
	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, cancel := context.WithCancel(parentCtx)
	defer cancel()
	if opts.For > 0 {
		ctx, cancel = context.WithTimeout(ctx, opts.For)
		defer cancel()
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan) // Prevent signal handler leak

	go func() {
		select {
		case sig := <-sigChan:
			logger.Info("received signal, shutting down", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	if formatter.Format != "json" {
		fmt.Fprintln(formatter.Writer, "Engine started. Press Ctrl-C to stop.")
	}

	start := time.Now()
	err = eng.Run(ctx)
	if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
		return formatter.Fail(ExitFailure, ErrCodeGeneric, "engine error", err)
	}
	logger.Info("engine stopped gracefully")

	result := PlayResult{
		Elapsed:   time.Since(start).Round(time.Millisecond).String(),
		Paints:    len(recorder.Drain()),
		Instances: eng.State().Instances.Len(),
		Elements:  styledElements(page),
	}
	if formatter.Format == "json" {
		return formatter.Success(result)
	}
	fmt.Fprintf(formatter.Writer, "Stopped after %s: %d write(s), %d instance(s) running\n", result.Elapsed, result.Paints, result.Instances)
	for _, e := range result.Elements {
		fmt.Fprintf(formatter.Writer, "  %s { %s }\n", e.Element, e.Style)
	}
	return nil
}
