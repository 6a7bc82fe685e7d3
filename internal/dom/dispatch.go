package dom

type listener struct {
	target  *Element
	typ     string
	fn      func(NativeEvent)
	removed bool
}

// Remove detaches the listener. Removing twice is a no-op.
func (l *listener) Remove() {
	if l.removed {
		return
	}
	l.removed = true
	list := l.target.listeners[l.typ]
	for i, other := range list {
		if other == l {
			l.target.listeners[l.typ] = append(list[:i:i], list[i+1:]...)
			return
		}
	}
}

// Listen implements Adapter.
func (d *Document) Listen(n Node, eventType string, fn func(NativeEvent)) Listener {
	e := el(n)
	if e == nil {
		e = d.root
	}
	l := &listener{target: e, typ: eventType, fn: fn}
	e.listeners[eventType] = append(e.listeners[eventType], l)
	return l
}

// Emit implements Adapter: ev bubbles from n to the root.
func (d *Document) Emit(n Node, ev NativeEvent) {
	target := el(n)
	if target == nil {
		target = d.root
	}
	ev.Target = target
	for e := target; e != nil; e = e.parent {
		// Copy so listeners may remove themselves.
		list := append([]*listener(nil), e.listeners[ev.Type]...)
		for _, l := range list {
			if !l.removed {
				l.fn(ev)
			}
		}
	}
}

// ListenerCount returns the number of bound listeners across the tree.
func (d *Document) ListenerCount() int {
	n := 0
	for _, e := range d.All() {
		for _, list := range e.listeners {
			n += len(list)
		}
	}
	return n
}

// Click emits mousedown, mouseup and click on e.
func (d *Document) Click(e *Element) {
	x, y := e.Box.Left+e.Box.Width/2, e.Box.Top+e.Box.Height/2
	for _, typ := range []string{TypeMouseDown, TypeMouseUp, TypeClick} {
		d.Emit(e, d.pointerEvent(typ, x, y))
	}
}

func (d *Document) pointerEvent(typ string, pageX, pageY float64) NativeEvent {
	return NativeEvent{
		Type:    typ,
		Pointer: true,
		PageX:   pageX,
		PageY:   pageY,
		ClientX: pageX - d.viewport.ScrollLeft,
		ClientY: pageY - d.viewport.ScrollTop,
	}
}

// HitTest returns the deepest, last-painted element whose box contains the
// page point, or the body when nothing does.
func (d *Document) HitTest(pageX, pageY float64) *Element {
	var hit *Element
	var walk func(*Element)
	walk = func(e *Element) {
		if e.Box.Width > 0 && e.Box.Height > 0 && e.Box.Contains(pageX, pageY) {
			hit = e
		}
		for _, c := range e.children {
			walk(c)
		}
	}
	walk(d.root)
	if hit == nil {
		return d.Body()
	}
	return hit
}

// PointerMove moves the pointer to a viewport point, emitting mouseout and
// mouseover when the hovered element changes, then mousemove.
func (d *Document) PointerMove(clientX, clientY float64) {
	pageX, pageY := clientX+d.viewport.ScrollLeft, clientY+d.viewport.ScrollTop
	target := d.HitTest(pageX, pageY)
	if target != d.hovered {
		prev := d.hovered
		if prev != nil {
			ev := d.pointerEvent(TypeMouseOut, pageX, pageY)
			ev.RelatedTarget = target
			d.Emit(prev, ev)
		}
		ev := d.pointerEvent(TypeMouseOver, pageX, pageY)
		if prev != nil {
			ev.RelatedTarget = prev
		}
		d.hovered = target
		d.Emit(target, ev)
	}
	d.Emit(target, d.pointerEvent(TypeMouseMove, pageX, pageY))
}

// PointerLeave moves the pointer out of the window.
func (d *Document) PointerLeave() {
	if d.hovered == nil {
		return
	}
	prev := d.hovered
	d.hovered = nil
	ev := NativeEvent{Type: TypeMouseOut}
	d.Emit(prev, ev)
}

// ScrollTo scrolls the viewport and emits scroll on the root.
func (d *Document) ScrollTo(left, top float64) {
	maxLeft := d.viewport.ScrollWidth - d.viewport.Width
	maxTop := d.viewport.ScrollHeight - d.viewport.Height
	d.viewport.ScrollLeft = clamp(left, 0, maxLeft)
	d.viewport.ScrollTop = clamp(top, 0, maxTop)
	d.Emit(d.root, NativeEvent{Type: TypeScroll})
}

// Resize changes the viewport size and emits resize on the root.
func (d *Document) Resize(width, height float64) {
	d.viewport.Width = width
	d.viewport.Height = height
	d.updateScrollSize()
	d.Emit(d.root, NativeEvent{Type: TypeResize})
}

// SetReadyState changes the ready state and emits readystatechange.
func (d *Document) SetReadyState(state string) {
	d.readyState = state
	d.Emit(d.root, NativeEvent{Type: TypeReadyStateChange})
}

// SetComponentActive emits the component activation signal tab, slider,
// dropdown and navbar widgets send.
func (d *Document) SetComponentActive(e *Element, active bool) {
	typ := TypeComponentInact
	if active {
		typ = TypeComponentActive
	}
	d.Emit(e, NativeEvent{Type: typ})
}

func clamp(v, lo, hi float64) float64 {
	if hi < lo {
		hi = lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
