package state

import (
	"github.com/roach88/ixengine/internal/dom"
	"github.com/roach88/ixengine/internal/events"
	"github.com/roach88/ixengine/internal/ir"
)

// Action is a closed set of state transitions. Only types in this package
// implement it.
type Action interface {
	isAction()
}

type action struct{}

func (action) isAction() {}

// RawDataImported replaces the document.
type RawDataImported struct {
	action
	Document *ir.Document
}

// SessionInitialized records page-wide flags read once at startup.
type SessionInitialized struct {
	action
	HasBoundaryNodes bool
	ReducedMotion    bool
}

// SessionStarted marks the engine active.
type SessionStarted struct {
	action
	Token string
}

// SessionStopped resets runtime state.
type SessionStopped struct{ action }

// PreviewRequested asks the engine to fire an event's activation.
type PreviewRequested struct {
	action
	EventID string
}

// PlaybackRequested asks the engine to start an action list.
type PlaybackRequested struct {
	action
	ActionListID string
	EventID      string
	// ActionItemID limits playback to one item.
	ActionItemID string
	GroupIndex   int
	Immediate    bool
	// AllowEvents keeps event listeners bound during playback.
	AllowEvents bool
	Verbose     bool
}

// StopRequested asks the engine to stop one action list, or all when
// ActionListID is empty.
type StopRequested struct {
	action
	ActionListID string
}

// ClearRequested asks the engine to stop everything and clear styles.
type ClearRequested struct{ action }

// EventListenerAdded records a bound listener for teardown.
type EventListenerAdded struct {
	action
	Listener dom.Listener
}

// EventStateChanged stores trigger memory for one (event, element) key.
type EventStateChanged struct {
	action
	StateKey string
	State    events.TriggerState
}

// AnimationFrameChanged advances every active instance.
type AnimationFrameChanged struct {
	action
	Now        float64
	Parameters map[string]float64
}

// ParameterChanged sets one continuous parameter.
type ParameterChanged struct {
	action
	ID    string
	Value float64
}

// InstanceAdded registers a prepared instance.
type InstanceAdded struct {
	action
	Instance Instance
}

// InstanceStarted activates an instance at Time.
type InstanceStarted struct {
	action
	ID   string
	Time float64
}

// InstanceRemoved drops an instance.
type InstanceRemoved struct {
	action
	ID string
}

// ElementStateChanged caches the last painted value of one action type.
type ElementStateChanged struct {
	action
	ElementID  string
	Ref        dom.Node
	RefType    string
	ActionType ir.ActionType
	Current    ir.Channels
	Item       ir.ActionItem
}

// ActionListPlaybackChanged flips an action list's playing flag.
type ActionListPlaybackChanged struct {
	action
	ActionListID string
	Playing      bool
}

// ViewportWidthChanged records a new width and re-derives the matching
// media query.
type ViewportWidthChanged struct {
	action
	Width        float64
	MediaQueries []ir.MediaQuery
}

// MediaQueriesDefined marks that more than one media query is authored.
type MediaQueriesDefined struct{ action }

// probe is dispatched only at store construction.
type probe struct{ action }
