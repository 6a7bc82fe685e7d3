package engine

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/ixengine/internal/dom"
	"github.com/roach88/ixengine/internal/ir"
	"github.com/roach88/ixengine/internal/state"
	"github.com/roach88/ixengine/internal/testutil"
)

const page = `<!doctype html>
<html>
<body>
  <div class="btn" data-w-id="btn" data-rect="100 100 200 100"><span class="label">Go</span></div>
  <div class="box" data-w-id="box" data-rect="400 100 100 100"></div>
  <div class="hero" data-rect="0 1000 1000 500"></div>
</body>
</html>`

const clickMoveDoc = `{
  "events": {
    "e-1": {
      "eventTypeId": "MOUSE_CLICK",
      "action": {"actionTypeId": "GENERAL_START_ACTION", "config": {"actionListId": "a-1"}},
      "target": {"appliesTo": "ELEMENT", "id": "btn"},
      "config": {}
    }
  },
  "actionLists": {
    "a-1": {
      "actionItemGroups": [{
        "actionItems": [{
          "id": "i-1",
          "actionTypeId": "TRANSFORM_MOVE",
          "config": {"duration": 100, "easing": "linear", "target": {"id": "box"}, "xValue": 100, "xUnit": "px"}
        }]
      }]
    }
  }
}`

type fixture struct {
	engine *Engine
	doc    *dom.Document
	clock  *testutil.ManualClock
	logs   *bytes.Buffer
}

func newFixture(t *testing.T, docJSON string, setup ...func(*dom.Document)) *fixture {
	t.Helper()
	d, err := dom.ParseHTML(strings.NewReader(page), dom.WithViewport(1000, 800))
	require.NoError(t, err)
	for _, fn := range setup {
		fn(d)
	}
	return newFixtureOn(t, d, d, docJSON)
}

func newFixtureOn(t *testing.T, d *dom.Document, a dom.Adapter, docJSON string) *fixture {
	t.Helper()
	logs := &bytes.Buffer{}
	clock := testutil.NewManualClock(0)
	e, err := New(a,
		WithClock(clock),
		WithTokenGenerator(NewFixedGenerator("session-1", "session-2", "session-3")),
		WithLogger(slog.New(slog.NewTextHandler(logs, nil))),
	)
	require.NoError(t, err)
	require.NoError(t, e.InitJSON([]byte(docJSON)))
	return &fixture{engine: e, doc: d, clock: clock, logs: logs}
}

// frame advances the clock by ms and runs one frame.
func (f *fixture) frame(ms float64) {
	f.clock.Advance(ms)
	f.engine.Tick()
}

func (f *fixture) style(sel, prop string) string {
	return f.doc.Style(f.doc.Element(sel), prop)
}

func (f *fixture) instances() []state.Instance {
	return f.engine.State().Instances.All()
}

func TestEngine_New_NilAdapter(t *testing.T) {
	_, err := New(nil)
	require.Error(t, err)
}

func TestEngine_InitJSON_BadDocument(t *testing.T) {
	d, err := dom.ParseHTML(strings.NewReader(page))
	require.NoError(t, err)
	e, err := New(d, WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	require.NoError(t, err)

	err = e.InitJSON([]byte(`{"events": [`))
	require.Error(t, err)
	assert.False(t, e.Active(), "a rejected document leaves the engine idle")
	assert.Equal(t, 0, d.ListenerCount())
}

func TestEngine_Init_StartsSession(t *testing.T) {
	f := newFixture(t, clickMoveDoc)

	st := f.engine.State()
	assert.True(t, st.Session.Active)
	assert.Equal(t, "session-1", st.Session.Token)
	assert.Equal(t, 1000.0, st.Session.ViewportWidth)
	// resize + click
	assert.Len(t, st.Session.Listeners, 2)
	assert.Equal(t, 2, f.doc.ListenerCount())
}

// =============================================================================
// Timed playback
// =============================================================================

func TestEngine_Click_AnimatesToDestination(t *testing.T) {
	f := newFixture(t, clickMoveDoc)

	f.doc.Click(f.doc.Element(".btn"))
	f.frame(50)

	require.Len(t, f.instances(), 1)
	assert.Equal(t, "translate3d(50px, 0px, 0px)", f.style(".box", "transform"))

	f.frame(50)
	assert.Equal(t, "translate3d(100px, 0px, 0px)", f.style(".box", "transform"))
	assert.Empty(t, f.instances(), "completed instances are dropped")
}

func TestEngine_ClickAgain_ResamplesOrigin(t *testing.T) {
	f := newFixture(t, clickMoveDoc)
	btn := f.doc.Element(".btn")

	f.doc.Click(btn)
	f.frame(50)
	require.Equal(t, "translate3d(50px, 0px, 0px)", f.style(".box", "transform"))

	f.doc.Click(btn)
	f.frame(50)

	insts := f.instances()
	require.Len(t, insts, 1, "restart replaces the running instance")
	assert.Equal(t, 50.0, insts[0].Origin[ir.ChanX], "origin is the last painted value")
	assert.Equal(t, "translate3d(75px, 0px, 0px)", f.style(".box", "transform"))
}

func TestEngine_Preview_ActivatesEvent(t *testing.T) {
	f := newFixture(t, clickMoveDoc)

	require.True(t, f.engine.Preview("e-1"))
	f.frame(100)

	assert.Equal(t, "translate3d(100px, 0px, 0px)", f.style(".box", "transform"))
}

func TestEngine_Playback_VerboseTracksPlaying(t *testing.T) {
	f := newFixture(t, clickMoveDoc)

	f.engine.Playback(state.PlaybackRequested{ActionListID: "a-1", Verbose: true})
	f.engine.Flush()
	assert.True(t, f.engine.State().Session.ActionListPlayback["a-1"])

	f.frame(100)
	assert.False(t, f.engine.State().Session.ActionListPlayback["a-1"], "finishing the last group stops playing")
}

func TestEngine_Playback_MissingList(t *testing.T) {
	f := newFixture(t, clickMoveDoc)

	f.engine.Playback(state.PlaybackRequested{ActionListID: "a-404"})
	f.frame(16)

	assert.Empty(t, f.instances())
	assert.Contains(t, f.logs.String(), "code=MISSING_ACTION_LIST")
}

func TestEngine_StartThenStop_LeavesNoResidue(t *testing.T) {
	d, err := dom.ParseHTML(strings.NewReader(page), dom.WithViewport(1000, 800))
	require.NoError(t, err)
	rec := dom.NewRecorder(d)
	f := newFixtureOn(t, d, rec, clickMoveDoc)
	rec.Reset()

	f.engine.Playback(state.PlaybackRequested{ActionListID: "a-1", AllowEvents: true})
	f.engine.Stop("a-1")
	f.engine.Flush()

	assert.Empty(t, rec.Paints(), "no frame ran, so nothing was painted")
	assert.Empty(t, f.instances())
	assert.False(t, f.engine.Active(), "stop requests end the session")
	assert.Equal(t, 0, d.ListenerCount())
}

func TestEngine_Clear_RemovesStyles(t *testing.T) {
	f := newFixture(t, clickMoveDoc)
	f.doc.Click(f.doc.Element(".btn"))
	f.frame(50)
	require.NotEmpty(t, f.style(".box", "transform"))

	f.engine.Clear()
	f.engine.Flush()

	assert.Empty(t, f.style(".box", "transform"))
	assert.Empty(t, f.instances())
	assert.False(t, f.engine.Active())
}

const eventTargetDoc = `{
  "events": {
    "e-1": {
      "eventTypeId": "MOUSE_CLICK",
      "action": {"actionTypeId": "GENERAL_START_ACTION", "config": {"actionListId": "a-1"}},
      "target": {"id": "btn"},
      "config": {}
    }
  },
  "actionLists": {
    "a-1": {
      "actionItemGroups": [{"actionItems": [
        {"id": "i-1", "actionTypeId": "TRANSFORM_MOVE", "config": {"duration": 100, "target": {"useEventTarget": true}, "xValue": 100}},
        {"id": "i-2", "actionTypeId": "STYLE_OPACITY", "config": {"duration": 100, "target": {"useEventTarget": "CHILDREN", "selector": ".label"}, "value": 0}}
      ]}]
    }
  }
}`

func TestEngine_Clear_RemovesEventRelativeStyles(t *testing.T) {
	f := newFixture(t, eventTargetDoc)
	f.doc.Click(f.doc.Element(".btn"))
	f.frame(100)
	require.Equal(t, "translate3d(100px, 0px, 0px)", f.style(".btn", "transform"))
	require.Equal(t, "0", f.style(".label", "opacity"))

	f.engine.Clear()
	f.engine.Flush()

	assert.Empty(t, f.style(".btn", "transform"))
	assert.Empty(t, f.style(".label", "opacity"))
}

func TestEngine_Destroy_ThenPlayback(t *testing.T) {
	f := newFixture(t, clickMoveDoc)
	f.engine.Destroy()
	require.Nil(t, f.engine.State().Data.Document)

	assert.True(t, f.engine.Playback(state.PlaybackRequested{ActionListID: "a-1", AllowEvents: true}))
	assert.NotPanics(t, func() { f.frame(16) })

	assert.False(t, f.engine.Active(), "nothing to bind without a document")
	assert.Equal(t, 0, f.doc.ListenerCount())
	assert.Empty(t, f.instances())
}

func TestEngine_Destroy(t *testing.T) {
	f := newFixture(t, clickMoveDoc)
	f.doc.Click(f.doc.Element(".btn"))
	f.frame(100)
	require.NotEmpty(t, f.style(".box", "transform"))

	f.engine.Destroy()

	assert.Empty(t, f.style(".box", "transform"))
	assert.Nil(t, f.engine.State().Data.Document)
	assert.Equal(t, 0, f.doc.ListenerCount())
}

// =============================================================================
// Initial state
// =============================================================================

const initialStateDoc = `{
  "events": {
    "e-1": {
      "eventTypeId": "MOUSE_CLICK",
      "action": {"actionTypeId": "GENERAL_START_ACTION", "config": {"actionListId": "a-1"}},
      "target": {"id": "btn"},
      "config": {}
    }
  },
  "actionLists": {
    "a-1": {
      "useFirstGroupAsInitialState": true,
      "actionItemGroups": [
        {"actionItems": [{"id": "i-1", "actionTypeId": "STYLE_OPACITY", "config": {"target": {"id": "box"}, "value": 0}}]},
        {"actionItems": [{"id": "i-2", "actionTypeId": "STYLE_OPACITY", "config": {"duration": 200, "easing": "linear", "target": {"id": "box"}, "value": 1}}]}
      ]
    }
  }
}`

func TestEngine_InitialState_AppliedOnInit(t *testing.T) {
	f := newFixture(t, initialStateDoc)

	assert.Equal(t, "0", f.style(".box", "opacity"))
	assert.Empty(t, f.instances(), "initial state is applied, not animated")
}

func TestEngine_InitialState_Idempotent(t *testing.T) {
	f := newFixture(t, initialStateDoc)
	doc := f.engine.State().Data.Document

	require.NoError(t, f.engine.Init(doc))
	require.NoError(t, f.engine.Init(doc))

	assert.Equal(t, "0", f.style(".box", "opacity"))
	assert.Empty(t, f.instances())
	assert.Equal(t, 2, f.doc.ListenerCount(), "re-init does not stack listeners")
}

func TestEngine_InitialState_ClickAgainKeepsMidFlightOrigin(t *testing.T) {
	d, err := dom.ParseHTML(strings.NewReader(page), dom.WithViewport(1000, 800))
	require.NoError(t, err)
	rec := dom.NewRecorder(d)
	f := newFixtureOn(t, d, rec, `{
	  "events": {
	    "e-1": {
	      "eventTypeId": "MOUSE_CLICK",
	      "action": {"actionTypeId": "GENERAL_START_ACTION", "config": {"actionListId": "a-1"}},
	      "target": {"id": "btn"}, "config": {}
	    }
	  },
	  "actionLists": {
	    "a-1": {
	      "useFirstGroupAsInitialState": true,
	      "actionItemGroups": [
	        {"actionItems": [{"id": "i-1", "actionTypeId": "TRANSFORM_MOVE", "config": {"duration": 0, "target": {"id": "box"}, "xValue": 0, "xUnit": "px"}}]},
	        {"actionItems": [{"id": "i-2", "actionTypeId": "TRANSFORM_MOVE", "config": {"duration": 50, "easing": "linear", "target": {"id": "box"}, "xValue": 100, "xUnit": "px"}}]}
	      ]
	    }
	  }
	}`)
	btn := d.Element(".btn")

	d.Click(btn)
	f.frame(25)
	require.Equal(t, "translate3d(50px, 0px, 0px)", f.style(".box", "transform"))

	rec.Reset()
	d.Click(btn)
	f.frame(25)

	insts := f.instances()
	require.Len(t, insts, 1)
	assert.Equal(t, 1, insts[0].GroupIndex, "the reset group is not replayed")
	assert.Equal(t, 50.0, insts[0].Origin[ir.ChanX])
	assert.Equal(t, "translate3d(75px, 0px, 0px)", f.style(".box", "transform"))
	for _, p := range rec.Paints() {
		assert.NotEqual(t, "translate3d(0px, 0px, 0px)", p.Value, "box snapped back to the reset value")
	}
}

func TestEngine_InitialState_FirstClickPlaysSecondGroup(t *testing.T) {
	f := newFixture(t, initialStateDoc)

	f.doc.Click(f.doc.Element(".btn"))
	f.frame(100)

	insts := f.instances()
	require.Len(t, insts, 1)
	assert.Equal(t, 1, insts[0].GroupIndex)
	assert.Equal(t, 0.0, insts[0].Origin[ir.ChanValue])
	assert.Equal(t, "0.5", f.style(".box", "opacity"))
}

// =============================================================================
// Chaining
// =============================================================================

const chainDoc = `{
  "events": {
    "e-1": {
      "eventTypeId": "MOUSE_CLICK",
      "action": {"actionTypeId": "GENERAL_START_ACTION", "config": {"actionListId": "a-1"}},
      "target": {"id": "btn"},
      "config": {}
    }
  },
  "actionLists": {
    "a-1": {
      "actionItemGroups": [
        {"actionItems": [
          {"id": "i-1", "actionTypeId": "TRANSFORM_MOVE", "config": {"duration": 100, "target": {"id": "box"}, "xValue": 10}},
          {"id": "i-2", "actionTypeId": "STYLE_OPACITY", "config": {"duration": 50, "target": {"id": "box"}, "value": 0.5}}
        ]},
        {"actionItems": [
          {"id": "i-3", "actionTypeId": "GENERAL_COMBO_CLASS", "config": {"target": {"id": "box"}, "className": "is-done"}}
        ]}
      ]
    }
  }
}`

func TestEngine_Carrier_StartsNextGroup(t *testing.T) {
	f := newFixture(t, chainDoc)
	box := f.doc.Element(".box")

	f.doc.Click(f.doc.Element(".btn"))
	f.frame(50)
	assert.Len(t, f.instances(), 1, "the shorter item finished first")
	assert.False(t, f.doc.HasClass(box, "is-done"))

	f.frame(50)
	insts := f.instances()
	require.Len(t, insts, 1, "the carrier's completion started group 1")
	assert.Equal(t, 1, insts[0].GroupIndex)

	f.frame(16)
	assert.True(t, f.doc.HasClass(box, "is-done"))
	assert.Empty(t, f.instances())
}

// =============================================================================
// Quick effects
// =============================================================================

const quickEffectDoc = `{
  "events": {
    "e-1": {
      "eventTypeId": "MOUSE_CLICK",
      "action": {"actionTypeId": "TRANSFORM_SCALE", "config": {"duration": 100, "easing": "linear", "xValue": 2, "yValue": 2, "zValue": 1}},
      "target": {"id": "btn"},
      "config": {"delay": 100}
    }
  },
  "actionLists": {}
}`

func TestEngine_QuickEffect_AppliesToEventTarget(t *testing.T) {
	f := newFixture(t, quickEffectDoc)

	f.doc.Click(f.doc.Element(".btn"))
	f.frame(50)
	assert.Empty(t, f.style(".btn", "transform"), "event delay holds the effect back")

	f.frame(150)
	assert.Equal(t, "scale3d(2, 2, 1)", f.style(".btn", "transform"))
}

// =============================================================================
// Breakpoints
// =============================================================================

const breakpointDoc = `{
  "site": {"mediaQueries": [
    {"key": "main", "min": 992, "max": 10000},
    {"key": "medium", "min": 768, "max": 991},
    {"key": "small", "min": 0, "max": 767}
  ]},
  "events": {
    "e-1": {
      "eventTypeId": "MOUSE_CLICK",
      "action": {"actionTypeId": "GENERAL_START_ACTION", "config": {"actionListId": "a-1"}},
      "target": {"id": "btn"},
      "mediaQueries": ["main"],
      "config": {}
    }
  },
  "actionLists": {
    "a-1": {
      "actionItemGroups": [{"actionItems": [
        {"id": "i-1", "actionTypeId": "TRANSFORM_MOVE", "config": {"duration": 100, "target": {"id": "box"}, "xValue": 100}}
      ]}]
    }
  }
}`

func TestEngine_Breakpoint_RestartsSession(t *testing.T) {
	f := newFixture(t, breakpointDoc)
	require.Equal(t, "main", f.engine.State().Session.MediaQueryKey)
	listeners := f.doc.ListenerCount()

	f.doc.Resize(700, 800)
	f.frame(16)

	st := f.engine.State()
	assert.Equal(t, "small", st.Session.MediaQueryKey)
	assert.True(t, st.Session.Active)
	assert.Equal(t, "session-2", st.Session.Token, "the session restarted")
	assert.Equal(t, listeners, f.doc.ListenerCount(), "listeners are rebound, not stacked")

	f.doc.Click(f.doc.Element(".btn"))
	f.frame(16)
	assert.Empty(t, f.instances(), "the event is limited to the main breakpoint")
}

func TestEngine_Breakpoint_ClearsStylesOnce(t *testing.T) {
	d, err := dom.ParseHTML(strings.NewReader(page), dom.WithViewport(1000, 800))
	require.NoError(t, err)
	rec := dom.NewRecorder(d)
	f := newFixtureOn(t, d, rec, `{
	  "site": {"mediaQueries": [
	    {"key": "main", "min": 992, "max": 10000},
	    {"key": "small", "min": 0, "max": 991}
	  ]},
	  "events": {
	    "e-1": {
	      "eventTypeId": "MOUSE_CLICK",
	      "action": {"actionTypeId": "GENERAL_START_ACTION", "config": {"actionListId": "a-1"}},
	      "target": {"id": "btn"}, "config": {}
	    }
	  },
	  "actionLists": {
	    "a-1": {
	      "useFirstGroupAsInitialState": true,
	      "actionItemGroups": [
	        {"actionItems": [{"id": "i-1", "actionTypeId": "STYLE_OPACITY", "config": {"target": {"id": "box"}, "value": 0}}]},
	        {"actionItems": [
	          {"id": "i-2", "actionTypeId": "STYLE_OPACITY", "config": {"duration": 200, "easing": "linear", "target": {"id": "box"}, "value": 1}},
	          {"id": "i-3", "actionTypeId": "TRANSFORM_MOVE", "config": {"duration": 100, "target": {"useEventTarget": true}, "xValue": 100}}
	        ]}
	      ]
	    }
	  }
	}`)
	require.Equal(t, 2, d.ListenerCount())

	d.Click(d.Element(".btn"))
	f.frame(100)
	require.Equal(t, "0.5", f.style(".box", "opacity"))
	require.NotEmpty(t, f.style(".btn", "transform"))

	rec.Reset()
	d.Resize(700, 800)
	f.frame(16)
	require.Equal(t, "session-2", f.engine.State().Session.Token)

	count := func(label, op, name string) int {
		n := 0
		for _, p := range rec.Paints() {
			if strings.Contains(p.Element, label) && p.Op == op && p.Name == name {
				n++
			}
		}
		return n
	}
	assert.Equal(t, 1, count("box", dom.OpRemoveStyle, "opacity"))
	assert.Equal(t, 1, count("box", dom.OpSetStyle, "opacity"), "initial state is rendered once")
	assert.Equal(t, 1, count("btn", dom.OpRemoveStyle, "transform"))
	assert.Equal(t, "0", f.style(".box", "opacity"))
	assert.Empty(t, f.style(".btn", "transform"), "event-relative styles are cleared")
	assert.Equal(t, 2, d.ListenerCount())
}

func TestEngine_Breakpoint_SameKeyKeepsSession(t *testing.T) {
	f := newFixture(t, breakpointDoc)

	f.doc.Resize(1200, 800)
	f.frame(16)

	st := f.engine.State()
	assert.Equal(t, "session-1", st.Session.Token)
	assert.Equal(t, 1200.0, st.Session.ViewportWidth)
}

// =============================================================================
// Continuous
// =============================================================================

const scrollDoc = `{
  "events": {
    "e-2": {
      "eventTypeId": "PAGE_SCROLL",
      "action": {"actionTypeId": "GENERAL_CONTINUOUS_ACTION", "config": {"actionListId": "a-2"}},
      "target": {"appliesTo": "PAGE"},
      "config": [{"continuousParameterGroupId": "p-1", "smoothing": 50, "restingState": 50}]
    }
  },
  "actionLists": {
    "a-2": {
      "continuousParameterGroups": [{
        "id": "p-1",
        "type": "SCROLL_PROGRESS",
        "continuousActionGroups": [
          {"keyframe": 0, "actionItems": [{"id": "i-1", "actionTypeId": "STYLE_OPACITY", "config": {"target": {"id": "box"}, "value": 0}}]},
          {"keyframe": 100, "actionItems": [{"id": "i-2", "actionTypeId": "STYLE_OPACITY", "config": {"target": {"id": "box"}, "value": 1}}]}
        ]
      }]
    }
  }
}`

func TestEngine_Continuous_ConvergesWithoutOvershoot(t *testing.T) {
	f := newFixture(t, scrollDoc)
	require.Len(t, f.instances(), 1)

	f.doc.ScrollTo(0, 350)
	last := 0.0
	for i := 0; i < 40; i++ {
		f.frame(16)
		v, err := strconv.ParseFloat(f.style(".box", "opacity"), 64)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, v, last, "frame %d moved backwards", i)
		assert.LessOrEqual(t, v, 0.5, "frame %d overshot", i)
		last = v
	}

	p, ok := f.engine.State().Parameters.Get("p-1")
	require.True(t, ok)
	assert.Equal(t, 0.5, p)
	assert.InDelta(t, 0.5, last, 0.01)
	assert.Equal(t, "opacity", f.style(".box", WillChangeProp))
	assert.Len(t, f.instances(), 1, "continuous instances never complete")
}

func TestEngine_Continuous_ClearedOnStop(t *testing.T) {
	f := newFixture(t, scrollDoc)
	f.frame(16)
	require.Equal(t, "opacity", f.style(".box", WillChangeProp))

	f.engine.Stop("")
	f.engine.Flush()

	assert.Empty(t, f.style(".box", WillChangeProp))
	assert.Empty(t, f.instances())
}

func TestEngine_ReducedMotion_ContinuousJumps(t *testing.T) {
	f := newFixture(t, scrollDoc, func(d *dom.Document) {
		d.SetMedia(ReducedMotionQuery, true)
	})

	f.doc.ScrollTo(0, 700)
	f.frame(16)

	assert.Equal(t, "1", f.style(".box", "opacity"))
}

// =============================================================================
// Reduced motion
// =============================================================================

func TestEngine_ReducedMotion_SkipsToEnd(t *testing.T) {
	f := newFixture(t, clickMoveDoc, func(d *dom.Document) {
		d.SetMedia(ReducedMotionQuery, true)
	})
	require.True(t, f.engine.State().Session.ReducedMotion)

	f.doc.Click(f.doc.Element(".btn"))
	f.frame(1)

	assert.Equal(t, "translate3d(100px, 0px, 0px)", f.style(".box", "transform"))
}

func TestEngine_VacationAttribute_ForcesReducedMotion(t *testing.T) {
	f := newFixture(t, clickMoveDoc, func(d *dom.Document) {
		d.SetAttribute(d.Root(), VacationAttr, "1")
	})
	assert.True(t, f.engine.State().Session.ReducedMotion)
}

// =============================================================================
// Runtime faults
// =============================================================================

func TestEngine_UnknownEventType_Isolated(t *testing.T) {
	f := newFixture(t, `{
	  "events": {
	    "e-1": {
	      "eventTypeId": "MOUSE_CLICK",
	      "action": {"actionTypeId": "GENERAL_START_ACTION", "config": {"actionListId": "a-1"}},
	      "target": {"id": "btn"}, "config": {}
	    },
	    "e-9": {
	      "eventTypeId": "MOUSE_WIGGLE",
	      "action": {"actionTypeId": "GENERAL_START_ACTION", "config": {"actionListId": "a-1"}},
	      "target": {"id": "btn"}, "config": {}
	    }
	  },
	  "actionLists": {
	    "a-1": {"actionItemGroups": [{"actionItems": [
	      {"id": "i-1", "actionTypeId": "TRANSFORM_MOVE", "config": {"duration": 100, "target": {"id": "box"}, "xValue": 100}}
	    ]}]}
	  }
	}`)

	assert.Contains(t, f.logs.String(), "code=UNKNOWN_EVENT_TYPE")
	assert.Contains(t, f.logs.String(), "event=e-9")

	f.doc.Click(f.doc.Element(".btn"))
	f.frame(100)
	assert.Equal(t, "translate3d(100px, 0px, 0px)", f.style(".box", "transform"))
}

func TestEngine_UnknownPlugin_FailsOnlyThatItem(t *testing.T) {
	f := newFixture(t, `{
	  "events": {
	    "e-1": {
	      "eventTypeId": "MOUSE_CLICK",
	      "action": {"actionTypeId": "GENERAL_START_ACTION", "config": {"actionListId": "a-1"}},
	      "target": {"id": "btn"}, "config": {}
	    }
	  },
	  "actionLists": {
	    "a-1": {"actionItemGroups": [{"actionItems": [
	      {"id": "i-1", "actionTypeId": "PLUGIN_LOTTIE", "config": {"duration": 10, "target": {"id": "box"}, "value": 100}},
	      {"id": "i-2", "actionTypeId": "TRANSFORM_MOVE", "config": {"duration": 100, "target": {"id": "box"}, "xValue": 100}}
	    ]}]}
	  }
	}`)

	f.doc.Click(f.doc.Element(".btn"))
	f.frame(50)

	assert.Contains(t, f.logs.String(), "code=UNKNOWN_PLUGIN")
	insts := f.instances()
	require.Len(t, insts, 1, "the plugin item was dropped")
	assert.Equal(t, ir.ActionTransformMove, insts[0].Item.ActionTypeID)

	f.frame(50)
	assert.Equal(t, "translate3d(100px, 0px, 0px)", f.style(".box", "transform"))
}

func TestEngine_FrameScrubberPlugin(t *testing.T) {
	f := newFixture(t, `{
	  "events": {
	    "e-1": {
	      "eventTypeId": "MOUSE_CLICK",
	      "action": {"actionTypeId": "GENERAL_START_ACTION", "config": {"actionListId": "a-1"}},
	      "target": {"id": "btn"}, "config": {}
	    }
	  },
	  "actionLists": {
	    "a-1": {"actionItemGroups": [{"actionItems": [
	      {"id": "i-1", "actionTypeId": "PLUGIN_SCRUB", "config": {"duration": 100, "easing": "linear", "target": {"id": "box"}, "value": 100}}
	    ]}]}
	  }
	}`, func(d *dom.Document) {
		d.SetAttribute(d.Element(".box"), "data-frames", "11")
	})
	box := f.doc.Element(".box")

	f.doc.Click(f.doc.Element(".btn"))
	f.frame(50)
	assert.Equal(t, "5", f.doc.Attribute(box, "data-frame"))

	f.frame(50)
	assert.Equal(t, "10", f.doc.Attribute(box, "data-frame"))
}

func TestEngine_StartCycle_Bounded(t *testing.T) {
	f := newFixture(t, `{
	  "events": {},
	  "actionLists": {
	    "a-loop": {"actionItemGroups": [{"actionItems": [
	      {"id": "i-1", "actionTypeId": "TRANSFORM_MOVE", "config": {"duration": 100, "target": {"id": "box"}, "xValue": 100}},
	      {"id": "i-2", "actionTypeId": "GENERAL_LOOP", "config": {}}
	    ]}]}
	  }
	}`)

	f.engine.Playback(state.PlaybackRequested{ActionListID: "a-loop", Immediate: true})
	f.engine.Flush()

	assert.Contains(t, f.logs.String(), "code=START_CYCLE")
	assert.Empty(t, f.instances(), "every nested start unwound")
	assert.Equal(t, 0, f.engine.guard.Depth())
	assert.Equal(t, "translate3d(100px, 0px, 0px)", f.style(".box", "transform"))
	assert.True(t, f.engine.Active(), "the engine keeps running")
}

// =============================================================================
// Targeting
// =============================================================================

func TestEngine_AffectedElements_Scopes(t *testing.T) {
	f := newFixture(t, clickMoveDoc)
	d := f.doc
	btn := d.Element(".btn")

	tests := []struct {
		name   string
		target *ir.Target
		want   []dom.Node
	}{
		{"nil target is the event element", nil, []dom.Node{btn}},
		{"self", &ir.Target{UseEventTarget: ir.ScopeSelf}, []dom.Node{btn}},
		{"children by selector", &ir.Target{Selector: ".label", UseEventTarget: ir.ScopeChildren}, []dom.Node{d.Element(".label")}},
		{"immediate children", &ir.Target{UseEventTarget: ir.ScopeImmediateChildren}, []dom.Node{d.Element(".label")}},
		{"siblings by selector", &ir.Target{Selector: ".box", UseEventTarget: ir.ScopeSiblings}, []dom.Node{d.Element(".box")}},
		{"parent", &ir.Target{UseEventTarget: ir.ScopeParent}, []dom.Node{d.Body()}},
		{"document query", &ir.Target{ID: "page-1|box"}, []dom.Node{d.Element(".box")}},
		{"page", &ir.Target{AppliesTo: ir.AppliesToPage}, []dom.Node{d.Root()}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := f.engine.affectedElements(tt.target, nil, btn, nil)
			assert.Equal(t, tt.want, got)
		})
	}
}

const collectionPage = `<!doctype html>
<html>
<body>
  <div class="w-dyn-item" data-rect="0 0 500 200">
    <div class="card-btn" data-rect="0 0 100 50"></div>
    <div class="card-img" data-rect="0 60 100 100"></div>
  </div>
  <div class="w-dyn-item" data-rect="0 300 500 200">
    <div class="card-btn" data-rect="0 300 100 50"></div>
    <div class="card-img" data-rect="0 360 100 100"></div>
  </div>
</body>
</html>`

func TestEngine_BoundaryMode_StaysInCollectionItem(t *testing.T) {
	d, err := dom.ParseHTML(strings.NewReader(collectionPage), dom.WithViewport(1000, 800))
	require.NoError(t, err)
	f := newFixtureOn(t, d, d, `{
	  "events": {
	    "e-1": {
	      "eventTypeId": "MOUSE_CLICK",
	      "action": {"actionTypeId": "GENERAL_START_ACTION", "config": {"actionListId": "a-1"}},
	      "target": {"appliesTo": "CLASS", "selector": ".card-btn"}, "config": {}
	    }
	  },
	  "actionLists": {
	    "a-1": {"actionItemGroups": [{"actionItems": [
	      {"id": "i-1", "actionTypeId": "STYLE_OPACITY", "config": {"duration": 100, "target": {"selector": ".card-img", "boundaryMode": true}, "value": 0}}
	    ]}]}
	  }
	}`)
	require.True(t, f.engine.State().Session.HasBoundaryNodes)

	btns := d.QueryAll(".card-btn")
	imgs := d.QueryAll(".card-img")
	d.Click(btns[1].(*dom.Element))
	f.frame(100)

	assert.Equal(t, "", d.Style(imgs[0], "opacity"))
	assert.Equal(t, "0", d.Style(imgs[1], "opacity"))
}

// =============================================================================
// Run loop
// =============================================================================

func TestEngine_Run_ReturnsOnClose(t *testing.T) {
	f := newFixture(t, clickMoveDoc)
	f.engine.Close()

	err := f.engine.Run(context.Background())
	assert.NoError(t, err)
	assert.False(t, f.engine.Enqueue(Item{Type: ItemResize}), "enqueue after close fails")
}

func TestEngine_Run_CoalescesUntilNextFrame(t *testing.T) {
	d, err := dom.ParseHTML(strings.NewReader(page), dom.WithViewport(1000, 800))
	require.NoError(t, err)
	e, err := New(d,
		WithFrameInterval(time.Hour),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
	require.NoError(t, err)
	require.NoError(t, e.InitJSON([]byte(scrollDoc)))

	done := make(chan error, 1)
	go func() { done <- e.Run(context.Background()) }()

	key := string(ir.EventPageScroll) + "/" + dom.TypeScroll
	for i := 0; i < 5; i++ {
		require.True(t, e.Enqueue(Item{
			Type:        ItemNative,
			Kind:        ir.EventPageScroll,
			Native:      dom.NativeEvent{Type: dom.TypeScroll},
			CoalesceKey: key,
		}))
		time.Sleep(10 * time.Millisecond)
	}
	assert.Equal(t, 1, e.QueueLen(), "no frame ran, so the burst is still one pending item")

	e.Close()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after Close")
	}
	assert.Equal(t, 0, e.QueueLen(), "Run drains pending work before returning")
}

func TestEngine_Run_ContextCancelled(t *testing.T) {
	f := newFixture(t, clickMoveDoc)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := f.engine.Run(ctx)
	assert.True(t, errors.Is(err, context.Canceled))
}
