package state

import (
	"github.com/roach88/ixengine/internal/dom"
	"github.com/roach88/ixengine/internal/easing"
	"github.com/roach88/ixengine/internal/events"
	"github.com/roach88/ixengine/internal/ir"
)

// State is the whole tree. Treat every slice as read-only.
type State struct {
	Data       *Data
	Request    *Request
	Session    *Session
	Elements   *Elements
	Instances  *Instances
	Parameters *Parameters
}

// Data holds the imported document.
type Data struct {
	Document     *ir.Document
	EventTypeMap map[ir.EventType][]string
}

// Request holds the most recent request per channel. A new request always
// carries a new pointer.
type Request struct {
	Preview  *PreviewRequested
	Playback *PlaybackRequested
	Stop     *StopRequested
	Clear    *ClearRequested
}

// Session is process-wide runtime state.
type Session struct {
	Active bool
	Token  string
	// Tick is the time of the last animation frame in ms.
	Tick float64

	Listeners  []dom.Listener
	EventState map[string]events.TriggerState
	// ActionListPlayback tracks lists started by playback requests.
	ActionListPlayback map[string]bool

	HasBoundaryNodes bool
	ReducedMotion    bool

	ViewportWidth          float64
	MediaQueries           []ir.MediaQuery
	MediaQueryKey          string
	HasDefinedMediaQueries bool
}

// ElementState is the cache for one element. Ref is an adapter handle; the
// engine never owns node lifetime.
type ElementState struct {
	ID       string
	Ref      dom.Node
	RefType  string
	RefState map[ir.ActionType]ir.Channels
	// Items is the last item painted per action type; renders read units
	// and filter lists from it.
	Items map[ir.ActionType]ir.ActionItem
}

// Elements holds element caches by engine id.
type Elements struct {
	ByID map[string]ElementState
}

// Keyframe is one stop of a continuous instance.
type Keyframe struct {
	// Position is 0..1.
	Position float64
	Values   ir.Channels
	Easing   easing.Func
}

// Instance is one live execution of an action item against one element.
type Instance struct {
	ID        string
	ElementID string

	EventID       string
	// EventTarget is the element the triggering event resolved to; chained
	// groups scope relative targets against it.
	EventTarget   dom.Node
	EventStateKey string
	ActionListID  string
	GroupIndex    int
	IsCarrier     bool
	Item          ir.ActionItem

	Active   bool
	Complete bool
	// Position is normalized progress 0..1.
	Position float64

	Origin      ir.Channels
	Destination ir.Channels
	Current     ir.Channels

	Start    float64
	Delay    float64
	Duration float64
	Easing   easing.Func

	Continuous   bool
	ParameterID  string
	Keyframes    []Keyframe
	Smoothing    float64
	RestingValue float64

	// PluginInstance is the plugin's own handle for plugin items.
	PluginInstance any
	Verbose        bool
	// Immediate instances jump to their end state and pass that on to the
	// groups they chain into.
	Immediate bool
}

// Instances holds live instances. Order is creation order and drives
// per-frame iteration.
type Instances struct {
	ByID  map[string]Instance
	Order []string
	// Changed lists, in order, the instances the last frame advanced.
	Changed []string
}

// Len returns the number of instances.
func (s *Instances) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Order)
}

// All returns instances in creation order.
func (s *Instances) All() []Instance {
	if s == nil {
		return nil
	}
	out := make([]Instance, 0, len(s.Order))
	for _, id := range s.Order {
		out = append(out, s.ByID[id])
	}
	return out
}

// Parameters holds continuous-driver values.
type Parameters struct {
	Values map[string]float64
}

// Get returns the value of a parameter.
func (p *Parameters) Get(id string) (float64, bool) {
	if p == nil {
		return 0, false
	}
	v, ok := p.Values[id]
	return v, ok
}
