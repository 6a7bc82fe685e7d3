// Package events is the trigger-kind registry. Each kind names the native
// signals it listens to and a transition function over a small per-element
// memory; the engine owns the memory and acts on the returned Outcome.
package events

import (
	"github.com/roach88/ixengine/internal/dom"
	"github.com/roach88/ixengine/internal/ir"
)

// TriggerState is the per-element memory a trigger kind keeps between
// native signals.
type TriggerState struct {
	// Page lifecycle.
	Started  bool
	Finished bool

	// Click parity: 1 after an odd click, 2 after an even one.
	ClickCount int

	// Hover.
	Hovered        bool
	ElementHovered bool

	// Intersection; ViewKnown is false until the first evaluation.
	ViewKnown bool
	InView    bool

	// Scroll direction.
	ScrollKnown    bool
	ScrollTop      float64
	ScrollingDown  bool
	DirectionKnown bool
	ScrollPercent  float64

	// Component activation.
	ActiveKnown bool
	Active      bool

	// Last pointer coordinates.
	ClientX float64
	ClientY float64
	PageX   float64
	PageY   float64
}

// Context is everything a transition function reads.
type Context struct {
	Event   ir.Event
	Element dom.Node
	Native  dom.NativeEvent
	Adapter dom.Adapter

	// Continuous is the config being evaluated for continuous kinds.
	Continuous ir.ContinuousConfig
	// StateKey namespaces element-based parameters.
	StateKey string
}

// Parameter is one continuous-driver update.
type Parameter struct {
	ID    string
	Value float64
}

// Outcome is what a transition asks the engine to do.
type Outcome struct {
	Fire       bool
	Parameters []Parameter
}

// HandleFunc is a pure transition: prev memory and a signal in, next memory
// and outcome out.
type HandleFunc func(ctx Context, prev TriggerState) (TriggerState, Outcome)

// Kind describes one trigger kind.
type Kind struct {
	// Types are the native signal types to listen for.
	Types []string
	// Throttle coalesces signals to one evaluation per frame.
	Throttle bool
	// Initial evaluates the handler once when listeners are bound.
	Initial bool
	Handle  HandleFunc
}

var (
	clickTypes     = []string{dom.TypeClick}
	hoverTypes     = []string{dom.TypeMouseOver, dom.TypeMouseOut}
	moveTypes      = []string{dom.TypeMouseMove, dom.TypeMouseOut, dom.TypeScroll}
	scrollTypes    = []string{dom.TypeScroll}
	pageTypes      = []string{dom.TypeReadyStateChange, dom.TypePageUpdate}
	componentTypes = []string{dom.TypeComponentActive, dom.TypeComponentInact}
)

var registry = map[ir.EventType]Kind{
	ir.EventMouseClick:       {Types: clickTypes, Handle: guard(containsTarget, clickParity(1))},
	ir.EventMouseSecondClick: {Types: clickTypes, Handle: guard(containsTarget, clickParity(2))},
	ir.EventMouseDown:        {Types: []string{dom.TypeMouseDown}, Handle: guard(containsTarget, always)},
	ir.EventMouseUp:          {Types: []string{dom.TypeMouseUp}, Handle: guard(containsTarget, always)},
	ir.EventMouseOver:        {Types: hoverTypes, Handle: hover(true)},
	ir.EventMouseOut:         {Types: hoverTypes, Handle: hover(false)},

	ir.EventMouseMove:           {Types: moveTypes, Throttle: true, Handle: mouseMove(false)},
	ir.EventMouseMoveInViewport: {Types: moveTypes, Throttle: true, Handle: mouseMove(true)},

	ir.EventScrollIntoView:  {Types: scrollTypes, Throttle: true, Initial: true, Handle: inView(true)},
	ir.EventScrollOutOfView: {Types: scrollTypes, Throttle: true, Initial: true, Handle: inView(false)},
	ir.EventScrollingInView: {Types: scrollTypes, Throttle: true, Initial: true, Handle: scrollingInView},
	ir.EventPageScroll:      {Types: scrollTypes, Throttle: true, Initial: true, Handle: pageScroll},
	ir.EventPageScrollUp:    {Types: scrollTypes, Throttle: true, Initial: true, Handle: scrollDirection(false)},
	ir.EventPageScrollDown:  {Types: scrollTypes, Throttle: true, Initial: true, Handle: scrollDirection(true)},

	ir.EventPageStart:  {Types: pageTypes, Initial: true, Handle: pageStart},
	ir.EventPageFinish: {Types: pageTypes, Initial: true, Handle: pageFinish},

	ir.EventTabActive:      {Types: componentTypes, Handle: guard(selfTarget, component(true))},
	ir.EventTabInactive:    {Types: componentTypes, Handle: guard(selfTarget, component(false))},
	ir.EventSliderActive:   {Types: componentTypes, Handle: guard(selfTarget, component(true))},
	ir.EventSliderInactive: {Types: componentTypes, Handle: guard(selfTarget, component(false))},
	ir.EventDropdownOpen:   {Types: componentTypes, Handle: guard(selfTarget, component(true))},
	ir.EventDropdownClose:  {Types: componentTypes, Handle: guard(selfTarget, component(false))},
	ir.EventNavbarOpen:     {Types: componentTypes, Handle: guard(selfTarget, component(true))},
	ir.EventNavbarClose:    {Types: componentTypes, Handle: guard(selfTarget, component(false))},

	ir.EventCartOpen:  {Types: []string{dom.TypeCartOpen}, Handle: guard(containsTarget, always)},
	ir.EventCartClose: {Types: []string{dom.TypeCartClose}, Handle: guard(containsTarget, always)},
}

// Lookup returns the kind for an event type.
func Lookup(t ir.EventType) (Kind, bool) {
	k, ok := registry[t]
	return k, ok
}

// Pair returns the paired kind of a two-state toggle, if any.
func Pair(t ir.EventType) (ir.EventType, bool) {
	switch t {
	case ir.EventMouseClick:
		return ir.EventMouseSecondClick, true
	case ir.EventMouseSecondClick:
		return ir.EventMouseClick, true
	case ir.EventMouseOver:
		return ir.EventMouseOut, true
	case ir.EventMouseOut:
		return ir.EventMouseOver, true
	}
	return "", false
}
