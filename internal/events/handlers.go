package events

import (
	"math"
	"strings"

	"github.com/roach88/ixengine/internal/dom"
	"github.com/roach88/ixengine/internal/ir"
)

// edgeThreshold snaps a mouse-out value near a boundary onto it.
const edgeThreshold = 0.05

type targetGuard func(ctx Context) bool

func selfTarget(ctx Context) bool {
	return ctx.Native.Target == ctx.Element
}

func containsTarget(ctx Context) bool {
	return ctx.Native.Target != nil && ctx.Adapter.Contains(ctx.Element, ctx.Native.Target)
}

// guard runs h only for signals aimed at the element.
func guard(match targetGuard, h HandleFunc) HandleFunc {
	return func(ctx Context, prev TriggerState) (TriggerState, Outcome) {
		if !match(ctx) {
			return prev, Outcome{}
		}
		return h(ctx, prev)
	}
}

func always(_ Context, prev TriggerState) (TriggerState, Outcome) {
	return prev, Outcome{Fire: true}
}

// clickParity cycles the click count between 1 and 2 and fires the kind
// whose turn it is. A first-click event with no paired second-click event
// fires on every click.
func clickParity(turn int) HandleFunc {
	return func(ctx Context, prev TriggerState) (TriggerState, Outcome) {
		next := prev
		next.ClickCount = prev.ClickCount%2 + 1
		fire := next.ClickCount == turn
		if turn == 1 && ctx.Event.Action.Config.AutoStopEventID == "" {
			fire = true
		}
		return next, Outcome{Fire: fire}
	}
}

// hover tracks pointer presence over the element and fires on entering
// (over=true) or leaving (over=false). Moves between descendants do not
// count as leaving.
func hover(over bool) HandleFunc {
	return func(ctx Context, prev TriggerState) (TriggerState, Outcome) {
		if !containsTarget(ctx) {
			return prev, Outcome{}
		}
		related := ctx.Native.RelatedTarget
		if related != nil && ctx.Adapter.Contains(ctx.Element, related) {
			return prev, Outcome{}
		}
		next := prev
		switch ctx.Native.Type {
		case dom.TypeMouseOver:
			next.Hovered = true
		case dom.TypeMouseOut:
			next.Hovered = false
		default:
			return prev, Outcome{}
		}
		if next.Hovered == prev.Hovered {
			return next, Outcome{}
		}
		return next, Outcome{Fire: next.Hovered == over}
	}
}

// mouseMove publishes pointer position as a 0..1 parameter.
func mouseMove(viewportOnly bool) HandleFunc {
	return func(ctx Context, prev TriggerState) (TriggerState, Outcome) {
		cfg := ctx.Continuous
		basedOn := cfg.BasedOn
		if viewportOnly {
			basedOn = ir.BasedOnViewport
		}
		ev := ctx.Native
		next := prev
		if ev.Pointer {
			next.ClientX, next.ClientY = ev.ClientX, ev.ClientY
			next.PageX, next.PageY = ev.PageX, ev.PageY
		}
		isX := cfg.SelectedAxis == ir.AxisX
		isMouseOut := ev.Type == dom.TypeMouseOut

		value := cfg.RestingState / 100
		paramID := cfg.ContinuousParameterGroupID
		elementHovered := false
		vp := ctx.Adapter.Viewport()

		switch basedOn {
		case ir.BasedOnViewport:
			if isX {
				value = ratio(math.Min(next.ClientX, vp.Width), vp.Width)
			} else {
				value = ratio(math.Min(next.ClientY, vp.Height), vp.Height)
			}
		case ir.BasedOnPage:
			if isX {
				value = ratio(math.Min(next.PageX, vp.ScrollWidth), vp.ScrollWidth)
			} else {
				value = ratio(math.Min(next.PageY, vp.ScrollHeight), vp.ScrollHeight)
			}
		default:
			paramID = NamespacedParameterID(ctx.StateKey, paramID)
			isMouseEvent := strings.HasPrefix(ev.Type, "mouse")
			if isMouseEvent && (ev.Target == nil || !ctx.Adapter.Contains(ctx.Element, ev.Target)) {
				break
			}
			rect := ctx.Adapter.Rect(ctx.Element)
			if !isMouseEvent && !rect.Contains(next.ClientX, next.ClientY) {
				break
			}
			elementHovered = true
			if isX {
				value = ratio(next.ClientX-rect.Left, rect.Width)
			} else {
				value = ratio(next.ClientY-rect.Top, rect.Height)
			}
		}

		if isMouseOut && (value > 1-edgeThreshold || value < edgeThreshold) {
			value = math.Round(value)
		}
		next.ElementHovered = elementHovered

		elementBased := basedOn != ir.BasedOnViewport && basedOn != ir.BasedOnPage
		if !elementBased || elementHovered || elementHovered != prev.ElementHovered {
			if cfg.Reverse {
				value = 1 - value
			}
			return next, Outcome{Parameters: []Parameter{{ID: paramID, Value: value}}}
		}
		return next, Outcome{}
	}
}

// pageScroll publishes the document scroll fraction.
func pageScroll(ctx Context, prev TriggerState) (TriggerState, Outcome) {
	vp := ctx.Adapter.Viewport()
	value := ratio(vp.ScrollTop, vp.ScrollHeight-vp.Height)
	if ctx.Continuous.Reverse {
		value = 1 - value
	}
	next := prev
	next.ScrollPercent = value
	return next, Outcome{Parameters: []Parameter{{ID: ctx.Continuous.ContinuousParameterGroupID, Value: value}}}
}

// scrollingInView publishes how far the element has travelled through the
// viewport, or the page scroll fraction when based on the viewport.
func scrollingInView(ctx Context, prev TriggerState) (TriggerState, Outcome) {
	cfg := ctx.Continuous
	vp := ctx.Adapter.Viewport()
	next := prev

	if cfg.BasedOn == ir.BasedOnViewport {
		var value float64
		if cfg.SelectedAxis == ir.AxisX {
			value = ratio(vp.ScrollLeft, vp.ScrollWidth)
		} else {
			value = ratio(vp.ScrollTop, vp.ScrollHeight)
		}
		next.ScrollPercent = value
		if prev.ScrollKnown && value == prev.ScrollPercent {
			return next, Outcome{}
		}
		next.ScrollKnown = true
		return next, Outcome{Parameters: []Parameter{{ID: cfg.ContinuousParameterGroupID, Value: value}}}
	}

	paramID := NamespacedParameterID(ctx.StateKey, cfg.ContinuousParameterGroupID)
	rect := ctx.Adapter.Rect(ctx.Element)
	visible := vp.Height

	startOffset, endOffset := 0.0, 0.0
	if cfg.AddStartOffset {
		startOffset = cfg.AddOffsetValue / 100
	}
	if cfg.AddEndOffset {
		endOffset = cfg.EndOffsetValue / 100
	}
	if !cfg.StartsEntering {
		startOffset = 1 - startOffset
	}
	if !cfg.StartsExiting {
		endOffset = 1 - endOffset
	}

	offsetTop := rect.Top + math.Min(rect.Height*startOffset, visible)
	offsetBottom := rect.Top + rect.Height*endOffset
	offsetHeight := offsetBottom - offsetTop
	fixedHeight := math.Min(visible+offsetHeight, vp.ScrollHeight)
	fixedTop := math.Min(math.Max(0, visible-offsetTop), fixedHeight)
	value := ratio(fixedTop, fixedHeight)

	next.ScrollPercent = value
	if prev.ScrollKnown && value == prev.ScrollPercent {
		return next, Outcome{}
	}
	next.ScrollKnown = true
	return next, Outcome{Parameters: []Parameter{{ID: paramID, Value: value}}}
}

// InViewport is the shared intersection test for scroll-into-view and
// scroll-out-of-view. offset shrinks the viewport from top and bottom.
func InViewport(rect dom.Rect, vp dom.Viewport, offset float64) bool {
	return rect.Bottom() > offset &&
		rect.Top < vp.Height-offset &&
		rect.Right() > 0 &&
		rect.Left < vp.Width
}

// scrollOffset converts the configured offset to pixels.
func scrollOffset(cfg ir.DiscreteConfig, vp dom.Viewport) float64 {
	if cfg.ScrollOffsetValue == nil {
		return 0
	}
	v := *cfg.ScrollOffsetValue
	if cfg.ScrollOffsetUnit == ir.UnitPixels {
		return v
	}
	return vp.Height * v / 100
}

// inView fires on entering (into=true) or leaving (into=false) the viewport.
// Entering fires on the first evaluation when the element starts in view;
// leaving needs a prior in-view observation.
func inView(into bool) HandleFunc {
	return func(ctx Context, prev TriggerState) (TriggerState, Outcome) {
		vp := ctx.Adapter.Viewport()
		offset := scrollOffset(ctx.Event.Config.Discrete, vp)
		visible := InViewport(ctx.Adapter.Rect(ctx.Element), vp, offset)

		next := prev
		next.ViewKnown = true
		next.InView = visible

		changed := !prev.ViewKnown || prev.InView != visible
		if !changed {
			return next, Outcome{}
		}
		if into {
			return next, Outcome{Fire: visible}
		}
		return next, Outcome{Fire: prev.ViewKnown && prev.InView && !visible}
	}
}

// scrollDirection fires when the scroll direction flips to the configured
// one (down=true for PAGE_SCROLL_DOWN).
func scrollDirection(down bool) HandleFunc {
	return func(ctx Context, prev TriggerState) (TriggerState, Outcome) {
		top := ctx.Adapter.Viewport().ScrollTop
		next := prev
		next.ScrollTop = top
		if !prev.ScrollKnown {
			next.ScrollKnown = true
			return next, Outcome{}
		}
		if top == prev.ScrollTop {
			return next, Outcome{}
		}
		next.ScrollingDown = top > prev.ScrollTop
		next.DirectionKnown = true
		if prev.DirectionKnown && prev.ScrollingDown == next.ScrollingDown {
			return next, Outcome{}
		}
		return next, Outcome{Fire: next.ScrollingDown == down}
	}
}

// pageStart fires once per session on the first lifecycle signal.
func pageStart(_ Context, prev TriggerState) (TriggerState, Outcome) {
	if prev.Started {
		return prev, Outcome{}
	}
	next := prev
	next.Started = true
	return next, Outcome{Fire: true}
}

// pageFinish fires once per session when the document is fully loaded.
func pageFinish(ctx Context, prev TriggerState) (TriggerState, Outcome) {
	if prev.Finished || ctx.Adapter.ReadyState() != dom.ReadyComplete {
		return prev, Outcome{}
	}
	next := prev
	next.Finished = true
	return next, Outcome{Fire: true}
}

// component fires when a widget switches into (active=true) or out of the
// configured state.
func component(active bool) HandleFunc {
	return func(ctx Context, prev TriggerState) (TriggerState, Outcome) {
		var isActive bool
		switch ctx.Native.Type {
		case dom.TypeComponentActive:
			isActive = true
		case dom.TypeComponentInact:
			isActive = false
		default:
			return prev, Outcome{}
		}
		next := prev
		next.ActiveKnown = true
		next.Active = isActive
		if prev.ActiveKnown && prev.Active == isActive {
			return next, Outcome{}
		}
		return next, Outcome{Fire: isActive == active}
	}
}

// ElementBased reports whether a continuous config publishes a parameter
// per element (namespaced with NamespacedParameterID) rather than one
// page-wide value.
func ElementBased(kind ir.EventType, cfg ir.ContinuousConfig) bool {
	switch kind {
	case ir.EventMouseMove:
		return cfg.BasedOn != ir.BasedOnViewport && cfg.BasedOn != ir.BasedOnPage
	case ir.EventScrollingInView:
		return cfg.BasedOn != ir.BasedOnViewport
	}
	return false
}

// NamespacedParameterID scopes an element-based parameter to one element.
func NamespacedParameterID(stateKey, parameterID string) string {
	return stateKey + ":" + parameterID
}

func ratio(num, den float64) float64 {
	if den <= 0 {
		return 0
	}
	return num / den
}
