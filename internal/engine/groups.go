package engine

import (
	"sort"

	"github.com/roach88/ixengine/internal/dom"
	"github.com/roach88/ixengine/internal/easing"
	"github.com/roach88/ixengine/internal/events"
	"github.com/roach88/ixengine/internal/ir"
	"github.com/roach88/ixengine/internal/plugin"
	"github.com/roach88/ixengine/internal/state"
)

// startOptions selects one group of one list to start.
type startOptions struct {
	EventID     string
	EventTarget dom.Node
	StateKey    string
	ListID      string
	GroupIndex  int
	// ItemID limits the start to one item.
	ItemID    string
	Immediate bool
	Verbose   bool
	// Loop wraps an out-of-range index back to the first group.
	Loop bool
}

// stopFilter selects instances to stop. Empty fields match everything.
type stopFilter struct {
	ListID      string
	EventID     string
	StateKey    string
	EventTarget dom.Node
}

// instanceSpec is everything createInstance needs.
type instanceSpec struct {
	Element     dom.Node
	Item        ir.ActionItem
	EventID     string
	EventTarget dom.Node
	StateKey    string
	ListID      string
	GroupIndex  int
	IsCarrier   bool
	Immediate   bool
	Verbose     bool
	// InstanceDelay overrides the item delay when set.
	InstanceDelay *float64

	Continuous   bool
	ParameterID  string
	Smoothing    float64
	RestingValue float64
	// Group supplies keyframes for continuous instances; ItemIndex pairs
	// the item across keyframes.
	Group     ir.ContinuousParameterGroup
	ItemIndex int
}

// startActionGroup creates instances for every item of one group. It
// reports whether anything started.
func (e *Engine) startActionGroup(o startOptions) bool {
	st := e.store.GetState()
	doc := st.Data.Document
	if doc == nil {
		return false
	}
	var evp *ir.Event
	if ev, ok := doc.Events[o.EventID]; ok {
		if !e.mediaAllowed(ev) {
			return false
		}
		evp = &ev
	}

	list, ok := e.actionList(o.ListID, evp)
	if !ok {
		e.logRuntimeError(NewMissingActionListError(o.EventID, o.ListID))
		return false
	}
	groups := list.ActionItemGroups
	if len(groups) == 0 {
		return false
	}

	if err := e.guard.Enter(o.ListID); err != nil {
		re, _ := err.(*RuntimeError)
		if re != nil {
			re.EventID = o.EventID
		}
		e.logRuntimeError(err)
		return false
	}
	defer e.guard.Leave()

	idx := o.GroupIndex
	if idx >= len(groups) && (o.Loop || (evp != nil && evp.Config.Discrete.Loop)) {
		idx = 0
	}
	if idx == 0 && list.UseFirstGroupAsInitialState {
		idx++
	}
	if idx < 0 || idx >= len(groups) {
		return false
	}

	var instanceDelay *float64
	if idx == firstPlayedGroup(list) && evp != nil && evp.Action.ActionTypeID.QuickEffect() {
		d := evp.Config.Discrete.Delay
		instanceDelay = &d
	}

	items := groups[idx].ActionItems
	carrier := carrierIndex(items)
	boundary := e.boundaryRoot(o.EventTarget)
	started := false
	for i, item := range items {
		if o.ItemID != "" && item.ID != o.ItemID {
			continue
		}
		for j, el := range e.affectedElements(item.Config.Target, evp, o.EventTarget, boundary) {
			e.createInstance(instanceSpec{
				Element:       el,
				Item:          item,
				EventID:       o.EventID,
				EventTarget:   o.EventTarget,
				StateKey:      o.StateKey,
				ListID:        o.ListID,
				GroupIndex:    idx,
				IsCarrier:     i == carrier && j == 0,
				Immediate:     o.Immediate,
				Verbose:       o.Verbose,
				InstanceDelay: instanceDelay,
			})
			started = true
		}
	}
	return started
}

func firstPlayedGroup(list ir.ActionList) int {
	if list.UseFirstGroupAsInitialState {
		return 1
	}
	return 0
}

// carrierIndex picks the item whose completion advances the list: the one
// ending last, the first such on ties.
func carrierIndex(items []ir.ActionItem) int {
	best, end := -1, -1.0
	for i, item := range items {
		if d := item.Config.Duration + item.Config.Delay; d > end {
			best, end = i, d
		}
	}
	return best
}

// renderInitialGroup applies group 0 of a list immediately when the list
// uses it as its initial state.
func (e *Engine) renderInitialGroup(listID, eventID string) {
	doc := e.store.GetState().Data.Document
	if doc == nil {
		return
	}
	var evp *ir.Event
	if ev, ok := doc.Events[eventID]; ok {
		if !e.mediaAllowed(ev) {
			return
		}
		evp = &ev
	}
	list, ok := e.actionList(listID, evp)
	if !ok || !list.UseFirstGroupAsInitialState || len(list.ActionItemGroups) == 0 {
		return
	}

	for _, item := range list.ActionItemGroups[0].ActionItems {
		var targets []dom.Node
		if t := item.Config.Target; evp != nil && t != nil && t.UseEventTarget == ir.ScopeSelf {
			targets = e.eventTargets(*evp)
		} else {
			targets = e.affectedElements(item.Config.Target, evp, nil, nil)
		}
		for _, el := range targets {
			e.createInstance(instanceSpec{
				Element:   el,
				Item:      item,
				EventID:   eventID,
				ListID:    listID,
				Immediate: true,
			})
		}
	}
}

// startContinuousActions creates one parameter-driven instance per item,
// per parameter group, per event target.
func (e *Engine) startContinuousActions(ev ir.Event) {
	doc := e.store.GetState().Data.Document
	if doc == nil {
		return
	}
	listID := ev.Action.Config.ActionListID
	list, ok := doc.ActionLists[listID]
	if !ok {
		e.logRuntimeError(NewMissingActionListError(ev.ID, listID))
		return
	}
	if !e.mediaAllowed(ev) {
		return
	}

	for _, cfg := range ev.Config.Continuous {
		group, ok := findParameterGroup(list, cfg.ContinuousParameterGroupID)
		if !ok || len(group.ContinuousActionGroups) == 0 {
			e.logger.Warn("continuous parameter group not found",
				"event", ev.ID,
				"action_list", listID,
				"parameter_group", cfg.ContinuousParameterGroupID,
			)
			continue
		}
		for _, target := range e.eventTargets(ev) {
			stateKey := ev.ID + ":" + e.elementID(target)
			paramID := cfg.ContinuousParameterGroupID
			if events.ElementBased(ev.EventTypeID, cfg) {
				paramID = events.NamespacedParameterID(stateKey, paramID)
			}
			boundary := e.boundaryRoot(target)
			for k, item := range group.ContinuousActionGroups[0].ActionItems {
				for _, el := range e.affectedElements(item.Config.Target, &ev, target, boundary) {
					e.createInstance(instanceSpec{
						Element:      el,
						Item:         item,
						EventID:      ev.ID,
						EventTarget:  target,
						StateKey:     stateKey,
						ListID:       listID,
						Continuous:   true,
						ParameterID:  paramID,
						Smoothing:    cfg.Smoothing / 100,
						RestingValue: cfg.RestingState / 100,
						Group:        group,
						ItemIndex:    k,
					})
				}
			}
		}
	}
}

func findParameterGroup(list ir.ActionList, id string) (ir.ContinuousParameterGroup, bool) {
	for _, g := range list.ContinuousParameterGroups {
		if g.ID == id {
			return g, true
		}
	}
	return ir.ContinuousParameterGroup{}, false
}

// createInstance prepares an instance for one item on one element and
// starts it, or applies it at once when immediate.
func (e *Engine) createInstance(spec instanceSpec) {
	st := e.store.GetState()
	elementID := e.elementID(spec.Element)
	refState := st.Elements.ByID[elementID].RefState
	item := spec.Item
	typ := item.ActionTypeID

	var (
		p          plugin.Plugin
		pluginInst any
		override   *float64
	)
	if typ.Category() == ir.CategoryPlugin {
		if found, ok := e.plugins.Lookup(typ); ok {
			inst, err := found.CreateInstance(e.adapter, spec.Element, item)
			if err != nil {
				e.logger.Warn("plugin instance failed", "action_type", typ, "event", spec.EventID, "error", err)
				return
			}
			p, pluginInst = found, inst
			if ms, ok := found.Duration(e.adapter, spec.Element, item); ok {
				override = &ms
			}
		}
	}

	duration, delay := item.Config.Duration, item.Config.Delay
	if override != nil {
		duration = *override
	}
	if spec.InstanceDelay != nil {
		delay = *spec.InstanceDelay
	}
	switch {
	case typ.Category() == ir.CategoryGeneral:
		duration = 0
	case spec.Immediate || st.Session.ReducedMotion:
		duration, delay = 0, 0
	}

	inst := state.Instance{
		ID:             e.instanceIDs.Next(),
		ElementID:      elementID,
		EventID:        spec.EventID,
		EventTarget:    spec.EventTarget,
		EventStateKey:  spec.StateKey,
		ActionListID:   spec.ListID,
		GroupIndex:     spec.GroupIndex,
		IsCarrier:      spec.IsCarrier,
		Item:           item,
		Origin:         e.origin(spec.Element, refState, item, p),
		Destination:    e.destination(spec.Element, item, p),
		Duration:       duration,
		Delay:          delay,
		Easing:         easing.Resolve(item.Config.Easing),
		PluginInstance: pluginInst,
		Verbose:        spec.Verbose,
		Immediate:      spec.Immediate,
	}

	if spec.Continuous {
		inst.Continuous = true
		inst.ParameterID = spec.ParameterID
		inst.RestingValue = spec.RestingValue
		inst.Smoothing = spec.Smoothing
		if st.Session.ReducedMotion {
			inst.Smoothing = 0
		}
		inst.Keyframes = e.keyframes(spec.Element, spec.Group, spec.ItemIndex, p)
		if n := len(inst.Keyframes); n > 0 {
			inst.Destination = inst.Keyframes[n-1].Values
		}
	}

	e.store.Dispatch(state.InstanceAdded{Instance: inst})

	if spec.Immediate {
		inst.Active = true
		inst.Start = st.Session.Tick
		next, _ := state.AdvanceTimed(inst, inst.Start)
		e.store.Dispatch(state.InstanceAdded{Instance: next})
		e.handleInstanceChange(next)
		return
	}
	e.store.Dispatch(state.InstanceStarted{ID: inst.ID, Time: st.Session.Tick})
}

// keyframes pairs item index k across every keyframe of group.
func (e *Engine) keyframes(el dom.Node, group ir.ContinuousParameterGroup, k int, p plugin.Plugin) []state.Keyframe {
	var out []state.Keyframe
	for _, cag := range group.ContinuousActionGroups {
		if k >= len(cag.ActionItems) {
			continue
		}
		item := cag.ActionItems[k]
		out = append(out, state.Keyframe{
			Position: cag.Keyframe / 100,
			Values:   e.destination(el, item, p),
			Easing:   easing.Resolve(item.Config.Easing),
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out
}

// handleInstanceChange paints an advanced instance and, on completion,
// chains the next group and drops the instance.
func (e *Engine) handleInstanceChange(inst state.Instance) {
	st := e.store.GetState()
	doc := st.Data.Document
	if doc == nil {
		return
	}
	var evp *ir.Event
	if ev, ok := doc.Events[inst.EventID]; ok {
		if !e.mediaAllowed(ev) {
			return
		}
		evp = &ev
	}

	general := inst.Item.ActionTypeID.Category() == ir.CategoryGeneral
	if inst.Current != nil || (general && inst.Complete) {
		e.store.Dispatch(state.ElementStateChanged{
			ElementID:  inst.ElementID,
			Ref:        e.nodes[inst.ElementID],
			RefType:    RefTypeElement,
			ActionType: inst.Item.ActionTypeID,
			Current:    inst.Current,
			Item:       inst.Item,
		})
		el := e.store.GetState().Elements.ByID[inst.ElementID]
		if err := e.render(el, inst); err != nil {
			if re, ok := err.(*RuntimeError); ok && re.EventID == "" {
				re.EventID = inst.EventID
				re.ActionListID = inst.ActionListID
			}
			e.logRuntimeError(err)
			if IsUnknownPluginError(err) {
				e.removeInstance(inst)
				return
			}
		}
	}

	if !inst.Complete {
		return
	}
	if inst.IsCarrier {
		loop := false
		if list, ok := e.actionList(inst.ActionListID, evp); ok {
			loop = groupLoops(list, inst.GroupIndex)
		}
		started := e.startActionGroup(startOptions{
			EventID:     inst.EventID,
			EventTarget: inst.EventTarget,
			StateKey:    inst.EventStateKey,
			ListID:      inst.ActionListID,
			GroupIndex:  inst.GroupIndex + 1,
			Immediate:   inst.Immediate,
			Verbose:     inst.Verbose,
			Loop:        loop,
		})
		if inst.Verbose && !started {
			e.store.Dispatch(state.ActionListPlaybackChanged{ActionListID: inst.ActionListID, Playing: false})
		}
	}
	e.removeInstance(inst)
}

// groupLoops reports whether group idx holds a loop item.
func groupLoops(list ir.ActionList, idx int) bool {
	if idx < 0 || idx >= len(list.ActionItemGroups) {
		return false
	}
	for _, item := range list.ActionItemGroups[idx].ActionItems {
		if item.ActionTypeID == ir.ActionGeneralLoop {
			return true
		}
	}
	return false
}

// removeInstance drops an instance and its will-change hint.
func (e *Engine) removeInstance(inst state.Instance) {
	if n, ok := e.nodes[inst.ElementID]; ok && inst.Continuous {
		for _, prop := range styleProps(inst.Item.ActionTypeID) {
			e.removeWillChange(n, prop)
		}
	}
	e.store.Dispatch(state.InstanceRemoved{ID: inst.ID})
}

// stopActionGroup removes the instances f selects. Boundary-mode items
// outside the trigger's collection item are left alone.
func (e *Engine) stopActionGroup(f stopFilter) {
	st := e.store.GetState()
	boundary := e.boundaryRoot(f.EventTarget)
	for _, inst := range st.Instances.All() {
		if f.ListID != "" && inst.ActionListID != f.ListID {
			continue
		}
		if f.EventID != "" && inst.EventID != f.EventID {
			continue
		}
		if f.StateKey != "" && inst.EventStateKey != f.StateKey {
			continue
		}
		if boundary != nil {
			if t := inst.Item.Config.Target; t != nil && t.BoundaryMode && !e.adapter.Contains(boundary, e.nodes[inst.ElementID]) {
				continue
			}
		}
		e.removeInstance(inst)
		if inst.Verbose {
			e.store.Dispatch(state.ActionListPlaybackChanged{ActionListID: inst.ActionListID, Playing: false})
		}
	}
}

// stopAllActionGroups removes every instance.
func (e *Engine) stopAllActionGroups() {
	for _, inst := range e.store.GetState().Instances.All() {
		e.removeInstance(inst)
		if inst.Verbose {
			e.store.Dispatch(state.ActionListPlaybackChanged{ActionListID: inst.ActionListID, Playing: false})
		}
	}
}

// mediaAllowed reports whether ev runs at the current breakpoint. Events
// without media queries run everywhere, as does every event before a
// breakpoint is known.
func (e *Engine) mediaAllowed(ev ir.Event) bool {
	if len(ev.MediaQueries) == 0 {
		return true
	}
	key := e.store.GetState().Session.MediaQueryKey
	if key == "" {
		return true
	}
	for _, mq := range ev.MediaQueries {
		if mq == key {
			return true
		}
	}
	return false
}

// actionList resolves id, synthesizing a one-item list for a quick-effect
// event whose id is asked for.
func (e *Engine) actionList(id string, ev *ir.Event) (ir.ActionList, bool) {
	if ev != nil && id == ev.ID && ev.Action.ActionTypeID.QuickEffect() {
		return quickEffectList(*ev), true
	}
	doc := e.store.GetState().Data.Document
	if doc == nil {
		return ir.ActionList{}, false
	}
	list, ok := doc.ActionLists[id]
	return list, ok
}

func quickEffectList(ev ir.Event) ir.ActionList {
	cfg := ev.Action.Config
	if cfg.Target == nil {
		cfg.Target = &ir.Target{UseEventTarget: ir.ScopeSelf}
	}
	return ir.ActionList{
		ID: ev.ID,
		ActionItemGroups: []ir.ActionItemGroup{{
			ActionItems: []ir.ActionItem{{
				ID:           ev.ID,
				ActionTypeID: ev.Action.ActionTypeID,
				Config:       cfg,
			}},
		}},
	}
}
