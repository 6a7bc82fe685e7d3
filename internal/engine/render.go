package engine

import (
	"math"
	"strconv"
	"strings"

	"github.com/roach88/ixengine/internal/dom"
	"github.com/roach88/ixengine/internal/easing"
	"github.com/roach88/ixengine/internal/ir"
	"github.com/roach88/ixengine/internal/state"
)

// WillChangeProp is the style hint continuous instances maintain.
const WillChangeProp = "will-change"

// Default units when an item leaves them unauthored.
const (
	unitPx  = "px"
	unitDeg = "deg"
)

// render paints inst onto its element. el is the element's cache after the
// instance's value was recorded, so a transform composes every transform
// type painted so far.
func (e *Engine) render(el state.ElementState, inst state.Instance) error {
	n := el.Ref
	if n == nil {
		return nil
	}
	typ := inst.Item.ActionTypeID
	switch typ.Category() {
	case ir.CategoryTransform:
		e.adapter.SetStyle(n, "transform", composeTransform(el))
		if inst.Continuous {
			e.addWillChange(n, "transform")
		}
	case ir.CategoryStyle:
		e.renderStyle(n, el, inst)
	case ir.CategoryGeneral:
		if inst.Complete {
			e.renderGeneral(n, inst)
		}
	case ir.CategoryPlugin:
		p, ok := e.plugins.Lookup(typ)
		if !ok {
			return NewUnknownPluginError(string(typ))
		}
		return p.Render(e.adapter, n, inst.PluginInstance, inst.Current, inst.Item)
	}
	return nil
}

// composeTransform builds the transform value from every transform type in
// the element cache, in fixed order.
func composeTransform(el state.ElementState) string {
	var parts []string
	for _, typ := range ir.TransformOrder {
		v, ok := el.RefState[typ]
		if !ok {
			continue
		}
		cfg := el.Items[typ].Config
		axis := func(ch string) float64 {
			if x, ok := v[ch]; ok {
				return x
			}
			return transformDefaults[typ][ch]
		}
		switch typ {
		case ir.ActionTransformMove:
			parts = append(parts, "translate3d("+
				withUnit(axis(ir.ChanX), cfg.XUnit, unitPx)+", "+
				withUnit(axis(ir.ChanY), cfg.YUnit, unitPx)+", "+
				withUnit(axis(ir.ChanZ), cfg.ZUnit, unitPx)+")")
		case ir.ActionTransformScale:
			parts = append(parts, "scale3d("+
				formatNumber(axis(ir.ChanX))+", "+
				formatNumber(axis(ir.ChanY))+", "+
				formatNumber(axis(ir.ChanZ))+")")
		case ir.ActionTransformRotate:
			parts = append(parts,
				"rotateX("+withUnit(axis(ir.ChanX), cfg.XUnit, unitDeg)+")",
				"rotateY("+withUnit(axis(ir.ChanY), cfg.YUnit, unitDeg)+")",
				"rotateZ("+withUnit(axis(ir.ChanZ), cfg.ZUnit, unitDeg)+")")
		case ir.ActionTransformSkew:
			parts = append(parts, "skew("+
				withUnit(axis(ir.ChanX), cfg.XUnit, unitDeg)+", "+
				withUnit(axis(ir.ChanY), cfg.YUnit, unitDeg)+")")
		}
	}
	return strings.Join(parts, " ")
}

func (e *Engine) renderStyle(n dom.Node, el state.ElementState, inst state.Instance) {
	cur := inst.Current
	cfg := inst.Item.Config
	typ := inst.Item.ActionTypeID

	var prop string
	switch typ {
	case ir.ActionStyleOpacity:
		v, ok := cur[ir.ChanValue]
		if !ok {
			return
		}
		prop = "opacity"
		e.adapter.SetStyle(n, prop, formatNumber(v))
	case ir.ActionStyleSize:
		if w, ok := cur[ir.ChanWidth]; ok {
			e.adapter.SetStyle(n, "width", withUnit(w, sizeUnit(cfg.WidthUnit), unitPx))
		}
		if h, ok := cur[ir.ChanHeight]; ok {
			e.adapter.SetStyle(n, "height", withUnit(h, sizeUnit(cfg.HeightUnit), unitPx))
		}
		if inst.Continuous {
			e.addWillChange(n, "width")
			e.addWillChange(n, "height")
		}
		return
	case ir.ActionStyleFilter:
		prop = "filter"
		e.adapter.SetStyle(n, prop, composeFilter(el.RefState[typ], el.Items[typ].Config.Filters))
	case ir.ActionStyleBackgroundColor, ir.ActionStyleBorder, ir.ActionStyleTextColor:
		prop = colorProps[typ]
		e.adapter.SetStyle(n, prop, formatColor(withDefaults(cur, el.RefState[typ])))
	case ir.ActionStyleBoxShadow:
		prop = "box-shadow"
		v := withDefaults(cur, nil)
		shadow := withUnit(v[ir.ChanX], cfg.XUnit, unitPx) + " " +
			withUnit(v[ir.ChanY], cfg.YUnit, unitPx) + " " +
			withUnit(v[ir.ChanBlur], "", unitPx) + " " +
			withUnit(v[ir.ChanSpread], "", unitPx) + " " +
			formatColor(v)
		if cfg.Inset {
			shadow = "inset " + shadow
		}
		e.adapter.SetStyle(n, prop, shadow)
	default:
		return
	}
	if inst.Continuous {
		e.addWillChange(n, prop)
	}
}

// renderGeneral applies a completed zero-duration item.
func (e *Engine) renderGeneral(n dom.Node, inst state.Instance) {
	cfg := inst.Item.Config
	switch inst.Item.ActionTypeID {
	case ir.ActionGeneralDisplay:
		value := cfg.Value.Text
		if value == "" && cfg.Value.Number != nil {
			value = formatNumber(*cfg.Value.Number)
		}
		e.adapter.SetStyle(n, "display", value)
	case ir.ActionGeneralComboClass:
		if cfg.ClassName == "" {
			return
		}
		switch strings.ToUpper(cfg.Command) {
		case "REMOVE":
			e.adapter.RemoveClass(n, cfg.ClassName)
		case "TOGGLE":
			if e.adapter.HasClass(n, cfg.ClassName) {
				e.adapter.RemoveClass(n, cfg.ClassName)
			} else {
				e.adapter.AddClass(n, cfg.ClassName)
			}
		default:
			e.adapter.AddClass(n, cfg.ClassName)
		}
	case ir.ActionGeneralStart:
		e.stopActionGroup(stopFilter{ListID: cfg.ActionListID, EventID: inst.EventID, StateKey: inst.EventStateKey})
		e.startActionGroup(startOptions{
			EventID:     inst.EventID,
			EventTarget: inst.EventTarget,
			StateKey:    inst.EventStateKey,
			ListID:      cfg.ActionListID,
			Immediate:   inst.Immediate,
			Verbose:     inst.Verbose,
		})
	case ir.ActionGeneralStop:
		e.stopActionGroup(stopFilter{ListID: cfg.ActionListID})
	}
}

// clearAllStyles removes every style an item of the document can write,
// from every element those items target.
func (e *Engine) clearAllStyles() {
	doc := e.store.GetState().Data.Document
	if doc == nil {
		return
	}
	// Event-relative targets only resolve with their event, so each event's
	// list is cleared once with it before every list is cleared on its own.
	for _, id := range doc.EventIDs() {
		ev := doc.Events[id]
		switch typ := ev.Action.ActionTypeID; {
		case typ.QuickEffect():
			e.clearListStyles(quickEffectList(ev), &ev)
		case typ == ir.ActionGeneralStart || typ == ir.ActionGeneralContinuous:
			if list, ok := doc.ActionLists[ev.Action.Config.ActionListID]; ok {
				e.clearListStyles(list, &ev)
			}
		}
	}
	for _, id := range doc.ActionListIDs() {
		e.clearListStyles(doc.ActionLists[id], nil)
	}
}

func (e *Engine) clearListStyles(list ir.ActionList, ev *ir.Event) {
	var items []ir.ActionItem
	for _, g := range list.ActionItemGroups {
		items = append(items, g.ActionItems...)
	}
	for _, pg := range list.ContinuousParameterGroups {
		for _, cag := range pg.ContinuousActionGroups {
			items = append(items, cag.ActionItems...)
		}
	}
	for _, item := range items {
		for _, n := range e.affectedElements(item.Config.Target, ev, nil, nil) {
			e.clearItemStyles(n, item)
		}
	}
}

func (e *Engine) clearItemStyles(n dom.Node, item ir.ActionItem) {
	typ := item.ActionTypeID
	if typ.Category() == ir.CategoryPlugin {
		if p, ok := e.plugins.Lookup(typ); ok {
			p.Clear(e.adapter, n)
		}
		return
	}
	for _, prop := range styleProps(typ) {
		if e.adapter.Style(n, prop) != "" {
			e.adapter.RemoveStyle(n, prop)
		}
	}
	if e.adapter.Style(n, WillChangeProp) != "" {
		e.adapter.RemoveStyle(n, WillChangeProp)
	}
}

// styleProps lists the style properties an action type writes.
func styleProps(typ ir.ActionType) []string {
	switch typ {
	case ir.ActionTransformMove, ir.ActionTransformScale, ir.ActionTransformRotate, ir.ActionTransformSkew:
		return []string{"transform"}
	case ir.ActionStyleOpacity:
		return []string{"opacity"}
	case ir.ActionStyleSize:
		return []string{"width", "height"}
	case ir.ActionStyleFilter:
		return []string{"filter"}
	case ir.ActionStyleBackgroundColor, ir.ActionStyleBorder, ir.ActionStyleTextColor:
		return []string{colorProps[typ]}
	case ir.ActionStyleBoxShadow:
		return []string{"box-shadow"}
	case ir.ActionGeneralDisplay:
		return []string{"display"}
	}
	return nil
}

func (e *Engine) addWillChange(n dom.Node, prop string) {
	current := e.adapter.Style(n, WillChangeProp)
	props := splitList(current)
	for _, p := range props {
		if p == prop {
			return
		}
	}
	e.adapter.SetStyle(n, WillChangeProp, strings.Join(append(props, prop), ", "))
}

func (e *Engine) removeWillChange(n dom.Node, prop string) {
	current := e.adapter.Style(n, WillChangeProp)
	if current == "" {
		return
	}
	props := splitList(current)
	kept := props[:0]
	for _, p := range props {
		if p != prop {
			kept = append(kept, p)
		}
	}
	switch {
	case len(kept) == len(props):
	case len(kept) == 0:
		e.adapter.RemoveStyle(n, WillChangeProp)
	default:
		e.adapter.SetStyle(n, WillChangeProp, strings.Join(kept, ", "))
	}
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func composeFilter(values ir.Channels, filters []ir.Filter) string {
	parts := make([]string, 0, len(filters))
	for _, f := range filters {
		v, ok := values[f.Type]
		if !ok {
			v = f.Value
		}
		parts = append(parts, f.Type+"("+withUnit(v, f.Unit, filterUnit(f.Type))+")")
	}
	return strings.Join(parts, " ")
}

func filterUnit(typ string) string {
	switch typ {
	case "blur":
		return unitPx
	case "hue-rotate":
		return unitDeg
	}
	return "%"
}

func sizeUnit(u string) string {
	if u == ir.UnitAuto || u == ir.UnitPixels {
		return unitPx
	}
	return u
}

// withDefaults fills missing color channels from fallback, then from an
// opaque black.
func withDefaults(cur, fallback ir.Channels) ir.Channels {
	out := ir.Channels{ir.ChanR: 0, ir.ChanG: 0, ir.ChanB: 0, ir.ChanA: 1}
	for k, v := range fallback {
		out[k] = v
	}
	for k, v := range cur {
		out[k] = v
	}
	return out
}

func formatColor(v ir.Channels) string {
	channel := func(ch string) string {
		return strconv.Itoa(int(math.Round(math.Max(0, math.Min(255, v[ch])))))
	}
	return "rgba(" + channel(ir.ChanR) + "," + channel(ir.ChanG) + "," + channel(ir.ChanB) + "," +
		formatNumber(math.Max(0, math.Min(1, v[ir.ChanA]))) + ")"
}

func withUnit(v float64, unit, fallback string) string {
	if unit == "" {
		unit = fallback
	}
	if strings.EqualFold(unit, ir.UnitPixels) {
		unit = unitPx
	}
	return formatNumber(v) + unit
}

// formatNumber prints v at the engine's precision without trailing zeros.
func formatNumber(v float64) string {
	return strconv.FormatFloat(easing.Round(v), 'f', -1, 64)
}
