package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"os"
	"strings"
	"sync"

	"github.com/roach88/ixengine/internal/compiler"
	"github.com/roach88/ixengine/internal/dom"
	"github.com/roach88/ixengine/internal/engine"
	"github.com/roach88/ixengine/internal/ir"
	"github.com/roach88/ixengine/internal/state"
	"github.com/roach88/ixengine/internal/store"
	"github.com/roach88/ixengine/internal/testutil"
)

// Option configures a scenario run.
type Option func(*config)

type config struct {
	store  *store.Store
	runID  string
	logger *slog.Logger
}

// WithStore records the run, frame by frame, into s.
func WithStore(s *store.Store) Option {
	return func(c *config) { c.store = s }
}

// WithRunID sets the recorded run id. Defaults to a fresh UUIDv7.
func WithRunID(id string) Option {
	return func(c *config) { c.runID = id }
}

// WithLogger sets the logger the engine and document log through.
// Runtime faults are captured into Result.Faults either way.
func WithLogger(l *slog.Logger) Option {
	return func(c *config) { c.logger = l }
}

// Harness drives one scenario against a headless page.
// It runs the real engine on a manual clock with a fixed session token, so
// the same scenario always produces the same trace.
type Harness struct {
	scenario *Scenario
	page     *dom.Document
	recorder *dom.Recorder
	engine   *engine.Engine
	clock    *testutil.ManualClock
	faults   *faultSink
	logger   *slog.Logger

	store *store.Store
	runID string

	frame  int
	result *Result
}

// Run executes a test scenario and returns the result.
//
// Execution flow:
// 1. Compile the document; error-level problems abort the run
// 2. Load the fixture page and wrap it in a paint recorder
// 3. Init the engine; its writes become frame 0
// 4. Execute steps; every frame's writes become one trace frame
// 5. Evaluate assertions against the final page and engine state
//
// A returned error means the scenario could not run. Failed assertions are
// reported through Result.Pass and Result.Errors.
func Run(scenario *Scenario, opts ...Option) (*Result, error) {
	return RunContext(context.Background(), scenario, opts...)
}

// RunContext is Run with a context for store writes.
func RunContext(ctx context.Context, scenario *Scenario, opts ...Option) (*Result, error) {
	cfg := config{logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	for _, opt := range opts {
		opt(&cfg)
	}

	h, err := newHarness(scenario, cfg)
	if err != nil {
		return nil, err
	}
	defer h.engine.Close()

	if err := h.start(ctx); err != nil {
		return nil, err
	}
	for i, step := range scenario.Steps {
		if err := h.execute(ctx, step); err != nil {
			return nil, fmt.Errorf("steps[%d]: %w", i, err)
		}
	}

	h.result.Faults = h.faults.list()
	for _, errMsg := range EvaluateAssertions(h.snapshot(), scenario.Assertions) {
		h.result.AddError(errMsg)
	}
	h.logger.Info("scenario finished",
		"scenario", scenario.Name,
		"frames", h.frame,
		"pass", h.result.Pass,
	)

	if h.store != nil {
		status := store.StatusPassed
		if !h.result.Pass {
			status = store.StatusFailed
		}
		if err := h.store.FinishRun(ctx, h.runID, status, h.result.SessionToken); err != nil {
			return nil, err
		}
	}
	return h.result, nil
}

func newHarness(s *Scenario, cfg config) (*Harness, error) {
	raw, err := os.ReadFile(s.Document)
	if err != nil {
		return nil, fmt.Errorf("failed to read document: %w", err)
	}
	doc, verrs := compiler.CompileNamed(s.Document, raw)
	if compiler.HasErrors(verrs) {
		return nil, fmt.Errorf("document %s does not compile:\n%s", s.Document, joinErrors(verrs, false))
	}

	result := NewResult()
	for _, v := range verrs {
		result.Warnings = append(result.Warnings, v.Error())
	}
	if result.DocumentHash, err = ir.DocumentHash(doc); err != nil {
		return nil, err
	}

	faults := &faultSink{}
	logger := slog.New(&faultHandler{next: cfg.logger.Handler(), sink: faults})

	page, err := loadFixture(s, logger)
	if err != nil {
		return nil, err
	}
	recorder := dom.NewRecorder(page)

	clock := testutil.NewManualClock(0)
	tokens := testutil.NewFixedTokenGenerator(s.SessionToken)
	result.SessionToken = tokens.Generate()

	eng, err := engine.New(recorder,
		engine.WithClock(clock),
		engine.WithTokenGenerator(tokens),
		engine.WithLogger(logger),
	)
	if err != nil {
		return nil, err
	}
	if err := eng.Init(doc); err != nil {
		return nil, err
	}

	h := &Harness{
		scenario: s,
		page:     page,
		recorder: recorder,
		engine:   eng,
		clock:    clock,
		faults:   faults,
		logger:   logger,
		store:    cfg.store,
		runID:    cfg.runID,
		result:   result,
	}
	if h.store != nil && h.runID == "" {
		h.runID = engine.UUIDv7Generator{}.Generate()
	}
	return h, nil
}

func loadFixture(s *Scenario, logger *slog.Logger) (*dom.Document, error) {
	f, err := os.Open(s.Fixture)
	if err != nil {
		return nil, fmt.Errorf("failed to open fixture: %w", err)
	}
	defer f.Close()

	opts := []dom.DocumentOption{dom.WithDocumentLogger(logger)}
	if s.Viewport != nil {
		opts = append(opts, dom.WithViewport(s.Viewport.Width, s.Viewport.Height))
	}
	page, err := dom.ParseHTML(f, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to parse fixture %s: %w", s.Fixture, err)
	}
	for query, matches := range s.Media {
		page.SetMedia(query, matches)
	}
	return page, nil
}

// start records the run and the writes Init made as frame 0.
func (h *Harness) start(ctx context.Context) error {
	if h.store != nil {
		err := h.store.WriteRun(ctx, store.Run{
			ID:            h.runID,
			Scenario:      h.scenario.Name,
			DocumentHash:  h.result.DocumentHash,
			SessionToken:  h.result.SessionToken,
			EngineVersion: ir.EngineVersion,
			IRVersion:     ir.SchemaVersion,
		})
		if err != nil {
			return err
		}
	}
	return h.record(ctx)
}

// execute runs one step. Native events and requests only queue work; the
// frames that follow process it.
func (h *Harness) execute(ctx context.Context, st Step) error {
	switch {
	case st.Frames > 0:
		for i := 0; i < st.Frames; i++ {
			if err := h.advance(ctx, h.scenario.FrameMS); err != nil {
				return err
			}
		}
	case st.Advance > 0:
		return h.advance(ctx, st.Advance)
	case st.Click != "":
		e, err := h.element(st.Click)
		if err != nil {
			return err
		}
		h.page.Click(e)
	case st.MouseOver != "":
		e, err := h.element(st.MouseOver)
		if err != nil {
			return err
		}
		r, vp := h.page.Rect(e), h.page.Viewport()
		h.page.PointerMove(r.Left+r.Width/2-vp.ScrollLeft, r.Top+r.Height/2-vp.ScrollTop)
	case st.MouseOut:
		h.page.PointerLeave()
	case st.MouseMove != nil:
		h.page.PointerMove(st.MouseMove.X, st.MouseMove.Y)
	case st.Scroll != nil:
		h.page.ScrollTo(st.Scroll.X, st.Scroll.Y)
	case st.Resize != nil:
		h.page.Resize(st.Resize.Width, st.Resize.Height)
	case st.Ready != "":
		h.page.SetReadyState(st.Ready)
	case st.Component != nil:
		e, err := h.element(st.Component.Selector)
		if err != nil {
			return err
		}
		h.page.SetComponentActive(e, st.Component.Active)
	case st.Cart != "":
		typ := dom.TypeCartOpen
		if st.Cart == "close" {
			typ = dom.TypeCartClose
		}
		h.page.Emit(h.page.Root(), dom.NativeEvent{Type: typ})
	case st.Request != nil:
		h.request(st.Request)
	}
	return nil
}

func (h *Harness) request(r *Request) {
	switch r.Type {
	case RequestPlayback:
		h.engine.Playback(state.PlaybackRequested{
			ActionListID: r.ActionList,
			EventID:      r.Event,
			ActionItemID: r.Item,
			GroupIndex:   r.Group,
			Immediate:    r.Immediate,
			AllowEvents:  r.AllowEvents,
			Verbose:      r.Verbose,
		})
	case RequestPreview:
		h.engine.Preview(r.Event)
	case RequestStop:
		h.engine.Stop(r.ActionList)
	case RequestClear:
		h.engine.Clear()
	}
}

func (h *Harness) element(sel string) (*dom.Element, error) {
	e := h.page.Element(sel)
	if e == nil {
		return nil, fmt.Errorf("no element matches %q", sel)
	}
	return e, nil
}

// advance moves the clock by ms and runs one frame.
func (h *Harness) advance(ctx context.Context, ms float64) error {
	h.clock.Advance(ms)
	h.engine.Tick()
	h.frame++
	return h.record(ctx)
}

// record drains the recorder into the current trace frame.
func (h *Harness) record(ctx context.Context) error {
	st := h.engine.State()
	tf := TraceFrame{
		Frame:     h.frame,
		TimeMS:    h.clock.Now(),
		Instances: st.Instances.Len(),
		Paints:    h.recorder.Drain(),
	}
	h.result.AddFrame(tf)

	if h.store == nil {
		return nil
	}
	var params map[string]float64
	if st.Parameters != nil && len(st.Parameters.Values) > 0 {
		params = maps.Clone(st.Parameters.Values)
	}
	return h.store.WriteFrame(ctx, h.runID, store.Frame{
		Index:      tf.Frame,
		TimeMS:     tf.TimeMS,
		Instances:  tf.Instances,
		Parameters: params,
		Paints:     tf.Paints,
	})
}

// snapshot captures what assertions read.
func (h *Harness) snapshot() *Snapshot {
	return &Snapshot{
		Page:   h.page,
		State:  h.engine.State(),
		Faults: h.result.Faults,
		Trace:  h.result.Trace,
	}
}

func joinErrors(errs []compiler.ValidationError, warnings bool) string {
	var b strings.Builder
	for _, e := range errs {
		if e.IsWarning() != warnings {
			continue
		}
		fmt.Fprintf(&b, "  %s\n", e.Error())
	}
	return b.String()
}

// =============================================================================
// Fault capture
// =============================================================================

type faultSink struct {
	mu     sync.Mutex
	faults []Fault
}

func (s *faultSink) add(f Fault) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.faults = append(s.faults, f)
}

func (s *faultSink) list() []Fault {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Fault(nil), s.faults...)
}

// faultHandler captures coded warnings into a sink and forwards every
// record to next.
type faultHandler struct {
	next slog.Handler
	sink *faultSink
}

func (h *faultHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return level >= slog.LevelWarn || h.next.Enabled(ctx, level)
}

func (h *faultHandler) Handle(ctx context.Context, r slog.Record) error {
	if r.Level >= slog.LevelWarn {
		var f Fault
		r.Attrs(func(a slog.Attr) bool {
			switch a.Key {
			case "code":
				f.Code = a.Value.String()
			case "error":
				f.Message = a.Value.String()
			case "event":
				f.Event = a.Value.String()
			case "action_list":
				f.ActionList = a.Value.String()
			}
			return true
		})
		if f.Code != "" {
			h.sink.add(f)
		}
	}
	if !h.next.Enabled(ctx, r.Level) {
		return nil
	}
	return h.next.Handle(ctx, r)
}

func (h *faultHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &faultHandler{next: h.next.WithAttrs(attrs), sink: h.sink}
}

func (h *faultHandler) WithGroup(name string) slog.Handler {
	return &faultHandler{next: h.next.WithGroup(name), sink: h.sink}
}
