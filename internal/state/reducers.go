package state

import (
	"maps"
	"slices"

	"github.com/roach88/ixengine/internal/events"
	"github.com/roach88/ixengine/internal/ir"
)

// Reducers is the set of slice reducers a Store composes. A nil prev means
// "initial state".
type Reducers struct {
	Data       func(prev *Data, a Action) *Data
	Request    func(prev *Request, a Action) *Request
	Session    func(prev *Session, a Action) *Session
	Elements   func(prev *Elements, a Action) *Elements
	Instances  func(prev *Instances, a Action) *Instances
	Parameters func(prev *Parameters, a Action) *Parameters
}

// DefaultReducers returns the engine's reducers.
func DefaultReducers() Reducers {
	return Reducers{
		Data:       ReduceData,
		Request:    ReduceRequest,
		Session:    ReduceSession,
		Elements:   ReduceElements,
		Instances:  ReduceInstances,
		Parameters: ReduceParameters,
	}
}

// ReduceData owns the imported document.
func ReduceData(prev *Data, a Action) *Data {
	if prev == nil {
		prev = &Data{EventTypeMap: map[ir.EventType][]string{}}
	}
	switch act := a.(type) {
	case RawDataImported:
		// A nil document drops the current one.
		if act.Document == nil {
			return &Data{EventTypeMap: map[ir.EventType][]string{}}
		}
		return &Data{Document: act.Document, EventTypeMap: act.Document.EventTypeMap()}
	}
	return prev
}

// ReduceRequest records requests.
func ReduceRequest(prev *Request, a Action) *Request {
	if prev == nil {
		prev = &Request{}
	}
	next := *prev
	switch act := a.(type) {
	case PreviewRequested:
		next.Preview = &act
	case PlaybackRequested:
		next.Playback = &act
	case StopRequested:
		next.Stop = &act
	case ClearRequested:
		next.Clear = &act
	default:
		return prev
	}
	return &next
}

// ReduceSession owns runtime flags. Stopping resets everything except the
// viewport and media-query bookkeeping, which the breakpoint observer needs
// across restarts.
func ReduceSession(prev *Session, a Action) *Session {
	if prev == nil {
		prev = &Session{
			EventState:         map[string]events.TriggerState{},
			ActionListPlayback: map[string]bool{},
		}
	}
	next := *prev
	switch act := a.(type) {
	case SessionInitialized:
		next.HasBoundaryNodes = act.HasBoundaryNodes
		next.ReducedMotion = act.ReducedMotion
	case SessionStarted:
		next.Active = true
		next.Token = act.Token
	case SessionStopped:
		return &Session{
			EventState:             map[string]events.TriggerState{},
			ActionListPlayback:     map[string]bool{},
			ViewportWidth:          prev.ViewportWidth,
			MediaQueries:           prev.MediaQueries,
			MediaQueryKey:          prev.MediaQueryKey,
			HasDefinedMediaQueries: prev.HasDefinedMediaQueries,
		}
	case EventListenerAdded:
		next.Listeners = append(slices.Clone(prev.Listeners), act.Listener)
	case EventStateChanged:
		next.EventState = cloneMap(prev.EventState)
		next.EventState[act.StateKey] = act.State
	case AnimationFrameChanged:
		next.Tick = act.Now
	case ActionListPlaybackChanged:
		next.ActionListPlayback = cloneMap(prev.ActionListPlayback)
		next.ActionListPlayback[act.ActionListID] = act.Playing
	case ViewportWidthChanged:
		next.ViewportWidth = act.Width
		next.MediaQueries = act.MediaQueries
		next.MediaQueryKey = ir.MatchMediaQuery(act.MediaQueries, act.Width)
	case MediaQueriesDefined:
		next.HasDefinedMediaQueries = true
	default:
		return prev
	}
	return &next
}

// ReduceElements caches last painted values per element and action type.
func ReduceElements(prev *Elements, a Action) *Elements {
	if prev == nil {
		prev = &Elements{ByID: map[string]ElementState{}}
	}
	switch act := a.(type) {
	case ElementStateChanged:
		byID := cloneMap(prev.ByID)
		el, ok := byID[act.ElementID]
		if !ok {
			el = ElementState{ID: act.ElementID, Ref: act.Ref, RefType: act.RefType}
		}
		el.RefState = cloneMap(el.RefState)
		el.RefState[act.ActionType] = act.Current.Clone()
		el.Items = cloneMap(el.Items)
		el.Items[act.ActionType] = act.Item
		byID[act.ElementID] = el
		return &Elements{ByID: byID}
	case SessionStopped:
		return &Elements{ByID: map[string]ElementState{}}
	}
	return prev
}

// ReduceParameters owns continuous-driver values.
func ReduceParameters(prev *Parameters, a Action) *Parameters {
	if prev == nil {
		prev = &Parameters{Values: map[string]float64{}}
	}
	switch act := a.(type) {
	case ParameterChanged:
		values := cloneMap(prev.Values)
		values[act.ID] = act.Value
		return &Parameters{Values: values}
	case RawDataImported, SessionStopped:
		return &Parameters{Values: map[string]float64{}}
	}
	return prev
}

// cloneMap is maps.Clone that never returns nil.
func cloneMap[K comparable, V any](m map[K]V) map[K]V {
	if m == nil {
		return make(map[K]V)
	}
	return maps.Clone(m)
}
