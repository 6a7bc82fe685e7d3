package engine

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/roach88/ixengine/internal/dom"
	"github.com/roach88/ixengine/internal/ir"
	"github.com/roach88/ixengine/internal/plugin"
	"github.com/roach88/ixengine/internal/state"
)

// Page conventions the engine reads at startup.
const (
	// BoundarySelector marks repeated collection items; boundary-mode
	// targets resolve only inside the item that triggered them.
	BoundarySelector = ".w-dyn-item"
	// ReducedMotionQuery is the media query that turns every animation
	// into an immediate jump.
	ReducedMotionQuery = "(prefers-reduced-motion)"
	// VacationAttr on the root forces reduced motion when set to "1".
	VacationAttr = "data-wf-ix-vacation"
	// RefTypeElement tags element caches that refer to adapter nodes.
	RefTypeElement = "HTML_ELEMENT"
)

// DefaultFrameInterval is the Run loop frame period (~60 fps).
const DefaultFrameInterval = 16 * time.Millisecond

// Engine is the single-writer interaction engine.
//
// Native signals and requests are queued by Enqueue-style methods from any
// goroutine; Tick, Flush and Run drain the queue and own every store
// dispatch and every adapter write.
//
// Thread-safety model:
//   - Preview, Playback, Stop, Clear, Enqueue: safe from any goroutine
//   - Init, Destroy, Tick, Flush, Run: must be called from one goroutine
type Engine struct {
	adapter dom.Adapter
	store   *state.Store
	plugins *plugin.Registry
	clock   FrameClock
	tokens  TokenGenerator
	logger  *slog.Logger

	queue *eventQueue
	guard *startGuard

	instanceIDs *Sequence
	elementIDs  *Sequence
	nodeIDs     map[dom.Node]string
	nodes       map[string]dom.Node

	frameInterval time.Duration
	maxStartDepth int

	// sessionObservers are detached when the session stops.
	sessionObservers []func()
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithPlugins sets the plugin registry. Default: plugin.NewRegistry().
func WithPlugins(r *plugin.Registry) Option {
	return func(e *Engine) {
		if r != nil {
			e.plugins = r
		}
	}
}

// WithClock sets the frame clock. Default: wall time since New.
func WithClock(c FrameClock) Option {
	return func(e *Engine) {
		if c != nil {
			e.clock = c
		}
	}
}

// WithTokenGenerator sets the session token source. Default: UUIDv7.
func WithTokenGenerator(g TokenGenerator) Option {
	return func(e *Engine) {
		if g != nil {
			e.tokens = g
		}
	}
}

// WithMaxStartDepth bounds synchronous action list starts.
//
// Default: 32 (DefaultMaxStartDepth).
func WithMaxStartDepth(n int) Option {
	return func(e *Engine) {
		e.maxStartDepth = n
	}
}

// WithFrameInterval sets the Run loop frame period.
func WithFrameInterval(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.frameInterval = d
		}
	}
}

// New creates an idle engine bound to adapter. Call Init to load a document.
func New(adapter dom.Adapter, opts ...Option) (*Engine, error) {
	if adapter == nil {
		return nil, errors.New("new engine: nil adapter")
	}
	st, err := state.NewStore(state.DefaultReducers())
	if err != nil {
		return nil, err
	}

	e := &Engine{
		adapter:       adapter,
		store:         st,
		plugins:       plugin.NewRegistry(),
		clock:         newWallClock(),
		tokens:        UUIDv7Generator{},
		logger:        slog.Default(),
		queue:         newEventQueue(),
		instanceIDs:   NewSequence("i"),
		elementIDs:    NewSequence("e"),
		nodeIDs:       make(map[dom.Node]string),
		nodes:         make(map[string]dom.Node),
		frameInterval: DefaultFrameInterval,
		maxStartDepth: DefaultMaxStartDepth,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.guard = newStartGuard(e.maxStartDepth)
	e.observeRequests()
	return e, nil
}

// State returns the current state snapshot.
func (e *Engine) State() state.State {
	return e.store.GetState()
}

// Store exposes the store for subscribers (trace recorders, tests).
func (e *Engine) Store() *state.Store {
	return e.store
}

// Adapter returns the element adapter the engine writes through.
func (e *Engine) Adapter() dom.Adapter {
	return e.adapter
}

// Active reports whether a session is running.
func (e *Engine) Active() bool {
	return e.store.GetState().Session.Active
}

// Init loads doc and starts a session with listeners bound. A running
// session is stopped first.
func (e *Engine) Init(doc *ir.Document) error {
	if doc == nil {
		return errors.New("init: nil document")
	}
	e.stopEngine()
	e.store.Dispatch(state.RawDataImported{Document: doc})
	e.startEngine(true)
	return nil
}

// InitJSON decodes raw and calls Init. A document that does not decode
// leaves the engine idle.
func (e *Engine) InitJSON(raw []byte) error {
	doc, err := ir.Decode(raw)
	if err != nil {
		e.logger.Error("document rejected; no interactions will run", "error", err)
		return err
	}
	return e.Init(doc)
}

// Destroy stops the session, clears every style the document's items can
// have written and drops the document.
func (e *Engine) Destroy() {
	e.stopEngine()
	e.clearAllStyles()
	e.store.Dispatch(state.RawDataImported{})
}

// Preview queues activation of one event on each of its targets.
func (e *Engine) Preview(eventID string) bool {
	return e.enqueueRequest(state.PreviewRequested{EventID: eventID})
}

// Playback queues a playback request.
func (e *Engine) Playback(req state.PlaybackRequested) bool {
	return e.enqueueRequest(req)
}

// Stop queues stopping one action list, or every list when actionListID is
// empty. The session stops too.
func (e *Engine) Stop(actionListID string) bool {
	return e.enqueueRequest(state.StopRequested{ActionListID: actionListID})
}

// Clear queues stopping everything and removing written styles.
func (e *Engine) Clear() bool {
	return e.enqueueRequest(state.ClearRequested{})
}

func (e *Engine) enqueueRequest(a state.Action) bool {
	return e.queue.Enqueue(Item{Type: ItemRequest, Request: a})
}

// Enqueue submits raw work. Thread-safe.
//
// Returns false if the engine has been closed.
func (e *Engine) Enqueue(it Item) bool {
	return e.queue.Enqueue(it)
}

// QueueLen returns the number of pending items.
func (e *Engine) QueueLen() int {
	return e.queue.Len()
}

// Flush processes every queued item without advancing time.
func (e *Engine) Flush() {
	for {
		it, ok := e.queue.TryDequeue()
		if !ok {
			return
		}
		e.process(it)
	}
}

// Tick runs one frame: queued work first, then every active instance
// advances to the clock's current time and changed instances render in
// creation order.
func (e *Engine) Tick() {
	e.Flush()

	st := e.store.GetState()
	if !st.Session.Active {
		return
	}
	before := st.Instances
	e.store.Dispatch(state.AnimationFrameChanged{
		Now:        e.clock.Now(),
		Parameters: st.Parameters.Values,
	})
	after := e.store.GetState().Instances
	if after == before {
		return
	}
	for _, id := range after.Changed {
		// An earlier render this frame may have stopped it.
		inst, ok := e.store.GetState().Instances.ByID[id]
		if !ok {
			continue
		}
		e.handleInstanceChange(inst)
	}
}

// Run drives frames from a ticker. Queued work is drained at the start of
// each frame.
// Blocks until ctx is cancelled or Close is called.
//
// CRITICAL: Must be called from exactly ONE goroutine.
//
// ERROR HANDLING: runtime faults (unknown plugins, start cycles, dangling
// references) are logged with their event context and the loop carries on.
func (e *Engine) Run(ctx context.Context) error {
	e.logger.Info("engine starting", "frame_interval", e.frameInterval)

	ticker := time.NewTicker(e.frameInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			e.logger.Info("engine stopping: context cancelled")
			e.queue.Close()
			return ctx.Err()

		case <-ticker.C:
			e.Tick()

		case <-e.queue.Wait():
			// Queued work waits for the next frame so throttled signals
			// coalesce per frame. The signal only matters once the queue
			// closes, which makes this case fire immediately.
			if e.queue.Closed() {
				e.Flush()
				e.logger.Info("engine stopping: queue closed")
				return nil
			}
		}
	}
}

// Close shuts the queue. Run drains what is pending and returns.
func (e *Engine) Close() {
	e.queue.Close()
}

// process routes one queued item.
// CRITICAL: Called only from the frame-loop goroutine.
func (e *Engine) process(it Item) {
	switch it.Type {
	case ItemNative:
		e.handleNative(it.Kind, it.Native)
	case ItemResize:
		if e.Active() {
			e.updateViewportWidth(false)
		}
	case ItemRequest:
		if it.Request == nil {
			e.logger.Warn("request item without request")
			return
		}
		e.store.Dispatch(it.Request)
	default:
		e.logger.Warn("unknown queue item type", "type", it.Type)
	}
}

// startEngine starts a session unless one is running.
func (e *Engine) startEngine(allowEvents bool) {
	st := e.store.GetState()
	if st.Session.Active {
		return
	}
	doc := st.Data.Document
	if doc == nil {
		e.logger.Warn("start skipped: no document loaded")
		return
	}

	root := e.adapter.Root()
	e.store.Dispatch(state.SessionInitialized{
		HasBoundaryNodes: len(e.adapter.QueryAll(BoundarySelector)) > 0,
		ReducedMotion: e.adapter.MatchMedia(ReducedMotionQuery) ||
			e.adapter.Attribute(root, VacationAttr) == "1",
	})
	if len(doc.Site.MediaQueries) > 1 && !st.Session.HasDefinedMediaQueries {
		e.store.Dispatch(state.MediaQueriesDefined{})
	}
	e.updateViewportWidth(true)

	token := e.tokens.Generate()
	e.store.Dispatch(state.SessionStarted{Token: token})

	if allowEvents {
		e.bindEvents()
		if e.store.GetState().Session.HasDefinedMediaQueries {
			e.observeMediaQueryKey()
		}
	}

	st = e.store.GetState()
	e.logger.Info("session started",
		"session", token,
		"allow_events", allowEvents,
		"listeners", len(st.Session.Listeners),
		"media_query", st.Session.MediaQueryKey,
		"reduced_motion", st.Session.ReducedMotion,
	)
}

// stopEngine tears down the running session: observers detach, listeners
// unbind and every runtime slice resets.
func (e *Engine) stopEngine() {
	st := e.store.GetState()
	if !st.Session.Active {
		return
	}
	for _, unsubscribe := range e.sessionObservers {
		unsubscribe()
	}
	e.sessionObservers = nil
	for _, l := range st.Session.Listeners {
		l.Remove()
	}
	e.store.Dispatch(state.SessionStopped{})
	e.nodeIDs = make(map[dom.Node]string)
	e.nodes = make(map[string]dom.Node)

	e.logger.Info("session stopped", "session", st.Session.Token)
}

// updateViewportWidth records the adapter's width. force re-derives the
// media query key even when the width is unchanged.
func (e *Engine) updateViewportWidth(force bool) {
	st := e.store.GetState()
	width := e.adapter.Viewport().Width
	if !force && width == st.Session.ViewportWidth {
		return
	}
	var queries []ir.MediaQuery
	if doc := st.Data.Document; doc != nil {
		queries = doc.Site.MediaQueries
	}
	e.store.Dispatch(state.ViewportWidthChanged{Width: width, MediaQueries: queries})
}

// observeMediaQueryKey restarts the session whenever the viewport crosses
// into another breakpoint.
func (e *Engine) observeMediaQueryKey() {
	unsubscribe := state.Observe(e.store,
		func(s state.State) string { return s.Session.MediaQueryKey },
		func(key string) {
			e.logger.Info("breakpoint changed; restarting session", "media_query", key)
			e.stopEngine()
			e.clearAllStyles()
			e.startEngine(true)
			e.adapter.Emit(e.adapter.Root(), dom.NativeEvent{Type: dom.TypePageUpdate})
		})
	e.sessionObservers = append(e.sessionObservers, unsubscribe)
}

// observeRequests wires the request slice to its handlers. Each request
// carries a fresh pointer, so a repeated identical request still fires.
func (e *Engine) observeRequests() {
	state.Observe(e.store,
		func(s state.State) *state.PreviewRequested { return s.Request.Preview },
		e.handlePreview)
	state.Observe(e.store,
		func(s state.State) *state.PlaybackRequested { return s.Request.Playback },
		e.handlePlayback)
	state.Observe(e.store,
		func(s state.State) *state.StopRequested { return s.Request.Stop },
		e.handleStop)
	state.Observe(e.store,
		func(s state.State) *state.ClearRequested { return s.Request.Clear },
		e.handleClear)
}

func (e *Engine) handlePreview(req *state.PreviewRequested) {
	if req == nil {
		return
	}
	doc := e.store.GetState().Data.Document
	if doc == nil {
		return
	}
	ev, ok := doc.Events[req.EventID]
	if !ok {
		e.logger.Warn("preview: unknown event", "event", req.EventID)
		return
	}
	e.startEngine(true)
	for _, target := range e.eventTargets(ev) {
		e.activate(ev, target, e.elementID(target))
	}
}

func (e *Engine) handlePlayback(req *state.PlaybackRequested) {
	if req == nil {
		return
	}
	e.startEngine(req.AllowEvents)
	st := e.store.GetState()
	if !st.Session.Active {
		return
	}

	if st.Data.Document == nil {
		return
	}
	var evp *ir.Event
	if ev, ok := st.Data.Document.Events[req.EventID]; ok {
		evp = &ev
	}
	if _, ok := e.actionList(req.ActionListID, evp); !ok {
		e.logRuntimeError(NewMissingActionListError(req.EventID, req.ActionListID))
		return
	}

	e.stopActionGroup(stopFilter{ListID: req.ActionListID})
	e.renderInitialGroup(req.ActionListID, req.EventID)
	started := e.startActionGroup(startOptions{
		EventID:    req.EventID,
		ListID:     req.ActionListID,
		GroupIndex: req.GroupIndex,
		ItemID:     req.ActionItemID,
		Immediate:  req.Immediate,
		Verbose:    req.Verbose,
	})
	if req.Verbose && started {
		e.store.Dispatch(state.ActionListPlaybackChanged{
			ActionListID: req.ActionListID,
			Playing:      !req.Immediate,
		})
	}
}

func (e *Engine) handleStop(req *state.StopRequested) {
	if req == nil {
		return
	}
	if req.ActionListID != "" {
		e.stopActionGroup(stopFilter{ListID: req.ActionListID})
	} else {
		e.stopAllActionGroups()
	}
	e.stopEngine()
}

func (e *Engine) handleClear(req *state.ClearRequested) {
	if req == nil {
		return
	}
	e.stopAllActionGroups()
	e.stopEngine()
	e.clearAllStyles()
}

// elementID returns the engine id for n, assigning one on first sight.
func (e *Engine) elementID(n dom.Node) string {
	if id, ok := e.nodeIDs[n]; ok {
		return id
	}
	id := e.elementIDs.Next()
	e.nodeIDs[n] = id
	e.nodes[id] = n
	return id
}

// logRuntimeError logs a runtime fault with its context.
func (e *Engine) logRuntimeError(err error) {
	var re *RuntimeError
	if !errors.As(err, &re) {
		e.logger.Error("engine error", "error", err)
		return
	}
	attrs := []any{
		"code", string(re.Code),
		"error", re.Message,
	}
	if re.EventID != "" {
		attrs = append(attrs, "event", re.EventID)
	}
	if re.ActionListID != "" {
		attrs = append(attrs, "action_list", re.ActionListID)
	}
	for k, v := range re.Details {
		attrs = append(attrs, k, v)
	}
	e.logger.Warn("interaction skipped", attrs...)
}
