package engine

import (
	"github.com/roach88/ixengine/internal/dom"
	"github.com/roach88/ixengine/internal/ir"
)

// affectedElements resolves an item target to elements.
//
// A scoped target (useEventTarget) resolves relative to the element the
// event fired on: SELF is that element; PARENT, CHILDREN, IMMEDIATE_CHILDREN
// and SIBLINGS keep only selector matches in that relation, or take the
// whole relation when no selector is given. Unscoped targets query the
// document, restricted to boundary when the target is in boundary mode.
// An item without a target acts on the event element, or the root.
func (e *Engine) affectedElements(t *ir.Target, ev *ir.Event, eventTarget, boundary dom.Node) []dom.Node {
	if t == nil {
		if eventTarget != nil {
			return []dom.Node{eventTarget}
		}
		return []dom.Node{e.adapter.Root()}
	}
	if t.AppliesTo == ir.AppliesToPage {
		return []dom.Node{e.adapter.Root()}
	}

	sel := targetSelector(t.ID, t.Selector)
	if t.UseEventTarget != ir.ScopeNone {
		var origins []dom.Node
		switch {
		case eventTarget != nil:
			origins = []dom.Node{eventTarget}
		case ev != nil:
			origins = e.eventTargets(*ev)
		}
		if t.UseEventTarget == ir.ScopeSelf {
			return origins
		}
		var out []dom.Node
		for _, origin := range origins {
			out = appendUnique(out, e.related(t.UseEventTarget, origin, sel)...)
		}
		return out
	}

	if sel == "" {
		return nil
	}
	nodes := e.adapter.QueryAll(sel)
	if boundary == nil || !t.BoundaryMode {
		return nodes
	}
	var out []dom.Node
	for _, n := range nodes {
		if e.adapter.Contains(boundary, n) {
			out = append(out, n)
		}
	}
	return out
}

// related returns the elements standing in scope's relation to origin,
// filtered by sel when set.
func (e *Engine) related(scope ir.Scope, origin dom.Node, sel string) []dom.Node {
	var candidates []dom.Node
	switch scope {
	case ir.ScopeParent:
		if sel == "" {
			if p := e.adapter.Parent(origin); p != nil {
				return []dom.Node{p}
			}
			return nil
		}
		for p := e.adapter.Parent(origin); p != nil; p = e.adapter.Parent(p) {
			candidates = append(candidates, p)
		}
	case ir.ScopeChildren:
		candidates = dom.Descendants(e.adapter, origin)
	case ir.ScopeImmediateChildren:
		candidates = e.adapter.Children(origin)
	case ir.ScopeSiblings:
		candidates = dom.Siblings(e.adapter, origin)
	default:
		return nil
	}
	if sel == "" {
		return candidates
	}
	var out []dom.Node
	for _, c := range candidates {
		if e.adapter.Matches(c, sel) {
			out = append(out, c)
		}
	}
	return out
}

// boundaryRoot returns the collection item containing eventTarget, or nil
// when the page has no collection items.
func (e *Engine) boundaryRoot(eventTarget dom.Node) dom.Node {
	if eventTarget == nil || !e.store.GetState().Session.HasBoundaryNodes {
		return nil
	}
	return e.adapter.Closest(eventTarget, BoundarySelector)
}

func appendUnique(dst []dom.Node, nodes ...dom.Node) []dom.Node {
	for _, n := range nodes {
		dup := false
		for _, have := range dst {
			if have == n {
				dup = true
				break
			}
		}
		if !dup {
			dst = append(dst, n)
		}
	}
	return dst
}
