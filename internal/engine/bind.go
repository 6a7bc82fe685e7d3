package engine

import (
	"sort"

	"github.com/roach88/ixengine/internal/dom"
	"github.com/roach88/ixengine/internal/events"
	"github.com/roach88/ixengine/internal/ir"
	"github.com/roach88/ixengine/internal/state"
)

// bindEvents attaches one root listener per native type of every kind the
// document uses, renders initial states, starts continuous timelines and
// runs the initial evaluations.
func (e *Engine) bindEvents() {
	st := e.store.GetState()
	doc := st.Data.Document
	root := e.adapter.Root()

	resize := e.adapter.Listen(root, dom.TypeResize, func(dom.NativeEvent) {
		e.queue.Enqueue(Item{Type: ItemResize, CoalesceKey: dom.TypeResize})
	})
	e.store.Dispatch(state.EventListenerAdded{Listener: resize})

	kinds := sortedKinds(st.Data.EventTypeMap)
	for _, kind := range kinds {
		k, ok := events.Lookup(kind)
		if !ok {
			for _, id := range st.Data.EventTypeMap[kind] {
				e.logRuntimeError(NewUnknownEventTypeError(id, string(kind)))
			}
			continue
		}
		for _, typ := range k.Types {
			kind, typ := kind, typ
			key := ""
			if k.Throttle {
				key = string(kind) + "/" + typ
			}
			l := e.adapter.Listen(root, typ, func(ev dom.NativeEvent) {
				e.queue.Enqueue(Item{Type: ItemNative, Kind: kind, Native: ev, CoalesceKey: key})
			})
			e.store.Dispatch(state.EventListenerAdded{Listener: l})
		}
	}

	for _, id := range doc.EventIDs() {
		ev := doc.Events[id]
		if _, ok := events.Lookup(ev.EventTypeID); !ok {
			continue
		}
		switch ev.Action.ActionTypeID {
		case ir.ActionGeneralStart:
			e.renderInitialGroup(ev.Action.Config.ActionListID, ev.ID)
		case ir.ActionGeneralContinuous:
			e.startContinuousActions(ev)
		}
	}

	for _, kind := range kinds {
		k, ok := events.Lookup(kind)
		if !ok || !k.Initial {
			continue
		}
		e.handleNative(kind, dom.NativeEvent{Type: k.Types[0], Target: root})
	}
}

func sortedKinds(m map[ir.EventType][]string) []ir.EventType {
	out := make([]ir.EventType, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// handleNative evaluates every event of kind against each of its targets.
// CRITICAL: Called only from the frame-loop goroutine.
func (e *Engine) handleNative(kind ir.EventType, native dom.NativeEvent) {
	st := e.store.GetState()
	if !st.Session.Active {
		return
	}
	k, ok := events.Lookup(kind)
	if !ok {
		return
	}
	doc := st.Data.Document
	if doc == nil {
		return
	}
	for _, id := range st.Data.EventTypeMap[kind] {
		ev, ok := doc.Events[id]
		if !ok || !e.mediaAllowed(ev) {
			continue
		}
		for _, target := range e.eventTargets(ev) {
			e.evaluate(k, ev, target, native)
		}
	}
}

// evaluate runs one transition for (event, element) and applies its
// outcome. Continuous kinds keep one memory per parameter group.
func (e *Engine) evaluate(k events.Kind, ev ir.Event, target dom.Node, native dom.NativeEvent) {
	elementID := e.elementID(target)
	stateKey := ev.ID + ":" + elementID
	ctx := events.Context{
		Event:    ev,
		Element:  target,
		Native:   native,
		Adapter:  e.adapter,
		StateKey: stateKey,
	}

	if ev.EventTypeID.Continuous() {
		for _, cfg := range ev.Config.Continuous {
			ctx.Continuous = cfg
			key := stateKey + "/" + cfg.ContinuousParameterGroupID
			prev := e.store.GetState().Session.EventState[key]
			next, out := k.Handle(ctx, prev)
			if next != prev {
				e.store.Dispatch(state.EventStateChanged{StateKey: key, State: next})
			}
			for _, p := range out.Parameters {
				e.store.Dispatch(state.ParameterChanged{ID: p.ID, Value: p.Value})
			}
		}
		return
	}

	prev := e.store.GetState().Session.EventState[stateKey]
	next, out := k.Handle(ctx, prev)
	if next != prev {
		e.store.Dispatch(state.EventStateChanged{StateKey: stateKey, State: next})
	}
	if out.Fire {
		e.logger.Debug("event fired", "event", ev.ID, "kind", ev.EventTypeID, "element", elementID)
		e.activate(ev, target, elementID)
	}
}

// activate runs a fired event's action on one target: the auto-stop
// partner's group stops, the event's own group restarts from the top.
func (e *Engine) activate(ev ir.Event, target dom.Node, elementID string) {
	listID, ok := eventListID(ev)
	if !ok {
		return
	}
	doc := e.store.GetState().Data.Document
	if doc == nil {
		return
	}

	if autoID := ev.Action.Config.AutoStopEventID; autoID != "" {
		if other, ok := doc.Events[autoID]; ok {
			if otherList, ok := eventListID(other); ok {
				e.stopActionGroup(stopFilter{
					ListID:      otherList,
					EventID:     autoID,
					StateKey:    autoID + ":" + elementID,
					EventTarget: target,
				})
			}
		}
	}

	stateKey := ev.ID + ":" + elementID
	e.stopActionGroup(stopFilter{
		ListID:      listID,
		EventID:     ev.ID,
		StateKey:    stateKey,
		EventTarget: target,
	})
	e.startActionGroup(startOptions{
		EventID:     ev.ID,
		EventTarget: target,
		StateKey:    stateKey,
		ListID:      listID,
	})
}

// eventListID returns the list a fired event starts: its own synthesized
// list for quick effects, the referenced list for start actions.
func eventListID(ev ir.Event) (string, bool) {
	switch {
	case ev.Action.ActionTypeID.QuickEffect():
		return ev.ID, true
	case ev.Action.ActionTypeID == ir.ActionGeneralStart:
		return ev.Action.Config.ActionListID, true
	}
	return "", false
}
