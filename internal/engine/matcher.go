package engine

import (
	"strings"

	"github.com/roach88/ixengine/internal/dom"
	"github.com/roach88/ixengine/internal/ir"
)

// eventTargets resolves the elements an event listens on: its primary
// target plus any extra targets, deduplicated, in document order per
// target. A page target, or no target at all, is the root.
func (e *Engine) eventTargets(ev ir.Event) []dom.Node {
	targets := ev.Targets
	if ev.Target != (ir.EventTarget{}) || len(targets) == 0 {
		targets = append([]ir.EventTarget{ev.Target}, targets...)
	}
	var out []dom.Node
	for _, t := range targets {
		out = appendUnique(out, e.matchEventTarget(t)...)
	}
	return out
}

func (e *Engine) matchEventTarget(t ir.EventTarget) []dom.Node {
	if t.AppliesTo == ir.AppliesToPage {
		return []dom.Node{e.adapter.Root()}
	}
	sel := targetSelector(t.ID, t.Selector)
	if sel == "" {
		if t.AppliesTo == "" {
			return []dom.Node{e.adapter.Root()}
		}
		return nil
	}
	return e.adapter.QueryAll(sel)
}

// targetSelector turns an authored target into a selector. Ids select by
// data-w-id; a "page|id" id keeps only the element part.
func targetSelector(id, selector string) string {
	if id != "" {
		if i := strings.LastIndex(id, "|"); i >= 0 {
			id = id[i+1:]
		}
		return "[" + dom.DataIDAttr + `="` + id + `"]`
	}
	return selector
}
