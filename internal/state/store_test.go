package state

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/ixengine/internal/events"
	"github.com/roach88/ixengine/internal/ir"
)

func newStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(DefaultReducers())
	require.NoError(t, err)
	return s
}

func TestNewStoreInitialState(t *testing.T) {
	s := newStore(t)
	st := s.GetState()
	require.NotNil(t, st.Data)
	require.NotNil(t, st.Request)
	require.NotNil(t, st.Session)
	require.NotNil(t, st.Elements)
	require.NotNil(t, st.Instances)
	require.NotNil(t, st.Parameters)

	assert.False(t, st.Session.Active)
	assert.Equal(t, 0, st.Instances.Len())
	assert.Empty(t, st.Parameters.Values)
}

func TestNewStoreRejectsIncompleteReducers(t *testing.T) {
	r := DefaultReducers()
	r.Session = func(prev *Session, a Action) *Session {
		if _, ok := a.(probe); ok {
			return nil
		}
		return ReduceSession(prev, a)
	}
	_, err := NewStore(r)
	require.ErrorIs(t, err, ErrMissingSlice)
	assert.Contains(t, err.Error(), "session")

	r = DefaultReducers()
	r.Parameters = nil
	_, err = NewStore(r)
	require.ErrorIs(t, err, ErrMissingSlice)
}

func TestDispatchNilPanics(t *testing.T) {
	s := newStore(t)
	assert.Panics(t, func() { s.Dispatch(nil) })
}

func TestUnknownActionLeavesSlicesUntouched(t *testing.T) {
	s := newStore(t)
	before := s.GetState()
	s.Dispatch(probe{})
	after := s.GetState()

	assert.Same(t, before.Data, after.Data)
	assert.Same(t, before.Request, after.Request)
	assert.Same(t, before.Session, after.Session)
	assert.Same(t, before.Elements, after.Elements)
	assert.Same(t, before.Instances, after.Instances)
	assert.Same(t, before.Parameters, after.Parameters)
}

func TestDispatchReplacesOnlyChangedSlices(t *testing.T) {
	s := newStore(t)
	before := s.GetState()
	s.Dispatch(ParameterChanged{ID: "p-1", Value: 0.4})
	after := s.GetState()

	assert.NotSame(t, before.Parameters, after.Parameters)
	assert.Same(t, before.Session, after.Session)
	assert.Empty(t, before.Parameters.Values, "previous tree is not mutated")
	v, ok := after.Parameters.Get("p-1")
	assert.True(t, ok)
	assert.Equal(t, 0.4, v)
}

func TestSubscribeAndUnsubscribe(t *testing.T) {
	s := newStore(t)
	var calls int
	unsubscribe := s.Subscribe(func() { calls++ })

	s.Dispatch(SessionStarted{Token: "t-1"})
	s.Dispatch(MediaQueriesDefined{})
	unsubscribe()
	unsubscribe()
	s.Dispatch(SessionStopped{})

	assert.Equal(t, 2, calls)
}

func TestObserveFiresOnPointerChange(t *testing.T) {
	s := newStore(t)
	var seen []string
	Observe(s, func(st State) *PlaybackRequested { return st.Request.Playback }, func(req *PlaybackRequested) {
		seen = append(seen, req.ActionListID)
	})

	s.Dispatch(ParameterChanged{ID: "p", Value: 1})
	s.Dispatch(PlaybackRequested{ActionListID: "a-1"})
	s.Dispatch(StopRequested{})
	// Identical content is still a new request.
	s.Dispatch(PlaybackRequested{ActionListID: "a-1"})

	assert.Equal(t, []string{"a-1", "a-1"}, seen)
}

func TestSubscriberMayDispatch(t *testing.T) {
	s := newStore(t)
	Observe(s, func(st State) *StopRequested { return st.Request.Stop }, func(*StopRequested) {
		s.Dispatch(SessionStopped{})
	})
	s.Dispatch(SessionStarted{Token: "t"})
	s.Dispatch(StopRequested{})
	assert.False(t, s.GetState().Session.Active)
}

func TestRawDataImported(t *testing.T) {
	s := newStore(t)
	doc := &ir.Document{
		Events: map[string]ir.Event{
			"e-1": {ID: "e-1", EventTypeID: ir.EventMouseClick},
			"e-2": {ID: "e-2", EventTypeID: ir.EventMouseClick},
			"e-3": {ID: "e-3", EventTypeID: ir.EventPageScroll},
		},
	}
	s.Dispatch(ParameterChanged{ID: "p", Value: 1})
	s.Dispatch(RawDataImported{Document: doc})

	st := s.GetState()
	assert.Same(t, doc, st.Data.Document)
	assert.Equal(t, []string{"e-1", "e-2"}, st.Data.EventTypeMap[ir.EventMouseClick])
	assert.Empty(t, st.Parameters.Values)
}

func TestRawDataImported_NilDropsDocument(t *testing.T) {
	s := newStore(t)
	s.Dispatch(RawDataImported{Document: &ir.Document{
		Events: map[string]ir.Event{"e-1": {ID: "e-1", EventTypeID: ir.EventMouseClick}},
	}})

	s.Dispatch(RawDataImported{})

	st := s.GetState()
	assert.Nil(t, st.Data.Document)
	assert.Empty(t, st.Data.EventTypeMap)
}

func TestSessionLifecycle(t *testing.T) {
	s := newStore(t)
	queries := []ir.MediaQuery{{Key: "main", Min: 992, Max: 10000}, {Key: "small", Min: 0, Max: 991}}

	s.Dispatch(SessionInitialized{HasBoundaryNodes: true, ReducedMotion: true})
	s.Dispatch(ViewportWidthChanged{Width: 1280, MediaQueries: queries})
	s.Dispatch(MediaQueriesDefined{})
	s.Dispatch(SessionStarted{Token: "t-1"})
	s.Dispatch(EventStateChanged{StateKey: "e-1:el-1", State: events.TriggerState{ClickCount: 1}})
	s.Dispatch(ActionListPlaybackChanged{ActionListID: "a-1", Playing: true})
	s.Dispatch(AnimationFrameChanged{Now: 32})

	sess := s.GetState().Session
	assert.True(t, sess.Active)
	assert.True(t, sess.HasBoundaryNodes)
	assert.True(t, sess.ReducedMotion)
	assert.Equal(t, "main", sess.MediaQueryKey)
	assert.Equal(t, 1, sess.EventState["e-1:el-1"].ClickCount)
	assert.True(t, sess.ActionListPlayback["a-1"])
	assert.Equal(t, 32.0, sess.Tick)

	s.Dispatch(SessionStopped{})
	sess = s.GetState().Session
	assert.False(t, sess.Active)
	assert.Empty(t, sess.EventState)
	assert.Empty(t, sess.ActionListPlayback)
	assert.Empty(t, sess.Listeners)
	assert.Equal(t, "main", sess.MediaQueryKey, "breakpoint bookkeeping survives a stop")
	assert.True(t, sess.HasDefinedMediaQueries)

	s.Dispatch(ViewportWidthChanged{Width: 500, MediaQueries: queries})
	assert.Equal(t, "small", s.GetState().Session.MediaQueryKey)
}

func TestElementsCacheRefState(t *testing.T) {
	s := newStore(t)
	s.Dispatch(ElementStateChanged{ElementID: "el-1", RefType: "HTML_ELEMENT", ActionType: ir.ActionTransformMove, Current: ir.Channels{"xValue": 40}})
	s.Dispatch(ElementStateChanged{ElementID: "el-1", ActionType: ir.ActionStyleOpacity, Current: ir.Channels{"value": 0.5}})
	first := s.GetState().Elements
	s.Dispatch(ElementStateChanged{ElementID: "el-1", ActionType: ir.ActionTransformMove, Current: ir.Channels{"xValue": 80}})

	el := s.GetState().Elements.ByID["el-1"]
	assert.Equal(t, "HTML_ELEMENT", el.RefType)
	assert.Equal(t, ir.Channels{"xValue": 80}, el.RefState[ir.ActionTransformMove])
	assert.Equal(t, ir.Channels{"value": 0.5}, el.RefState[ir.ActionStyleOpacity])
	assert.Equal(t, ir.Channels{"xValue": 40}, first.ByID["el-1"].RefState[ir.ActionTransformMove])

	s.Dispatch(SessionStopped{})
	assert.Empty(t, s.GetState().Elements.ByID)
}
