package dom

import (
	"log/slog"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/net/html"
)

// Element is a node in a headless Document.
type Element struct {
	doc      *Document
	tag      string
	node     *html.Node
	attrs    map[string]string
	style    map[string]string
	parent   *Element
	children []*Element

	// Box is the element's layout box in page coordinates.
	Box Rect

	listeners map[string][]*listener
}

// Tag returns the lower-case tag name.
func (e *Element) Tag() string { return e.tag }

// Parent returns the parent element or nil for the root.
func (e *Element) Parent() *Element { return e.parent }

// Children returns the child elements in document order.
func (e *Element) Children() []*Element { return e.children }

// Attr returns an attribute value.
func (e *Element) Attr(name string) string { return e.attrs[name] }

// SetAttr sets an attribute value.
func (e *Element) SetAttr(name, value string) { e.setAttr(name, value) }

// Append adds child as e's last child, detaching it from any previous parent.
func (e *Element) Append(child *Element) *Element {
	if child.parent != nil {
		child.parent.removeChild(child)
	}
	child.parent = e
	e.children = append(e.children, child)
	e.node.AppendChild(child.node)
	return child
}

func (e *Element) removeChild(child *Element) {
	for i, c := range e.children {
		if c == child {
			e.children = append(e.children[:i], e.children[i+1:]...)
			e.node.RemoveChild(child.node)
			child.parent = nil
			return
		}
	}
}

// InlineStyle returns a copy of the inline style declarations.
func (e *Element) InlineStyle() map[string]string {
	out := make(map[string]string, len(e.style))
	for k, v := range e.style {
		out[k] = v
	}
	return out
}

// StyleText serializes inline styles sorted by property name.
func (e *Element) StyleText() string {
	props := make([]string, 0, len(e.style))
	for k := range e.style {
		props = append(props, k)
	}
	sort.Strings(props)
	var b strings.Builder
	for i, p := range props {
		if i > 0 {
			b.WriteString(" ")
		}
		b.WriteString(p)
		b.WriteString(": ")
		b.WriteString(e.style[p])
		b.WriteString(";")
	}
	return b.String()
}

// Label names the element for logs and traces: #id, the data-w-id, or the
// tag with its first class.
func (e *Element) Label() string {
	if id := e.attrs["id"]; id != "" {
		return "#" + id
	}
	if wid := e.attrs[DataIDAttr]; wid != "" {
		return "[" + DataIDAttr + "=" + strconv.Quote(wid) + "]"
	}
	if cls := strings.Fields(e.attrs["class"]); len(cls) > 0 {
		return e.tag + "." + cls[0]
	}
	return e.tag
}

// DataIDAttr is the stable id attribute interaction documents target.
const DataIDAttr = "data-w-id"

// Document is a headless Adapter implementation.
type Document struct {
	root       *Element
	viewport   Viewport
	readyState string
	media      map[string]bool
	hovered    *Element
	logger     *slog.Logger
}

// DocumentOption configures a Document.
type DocumentOption func(*Document)

// WithViewport sets the initial viewport size.
func WithViewport(width, height float64) DocumentOption {
	return func(d *Document) {
		d.viewport.Width = width
		d.viewport.Height = height
	}
}

// WithReadyState sets the initial ready state.
func WithReadyState(state string) DocumentOption {
	return func(d *Document) { d.readyState = state }
}

// WithDocumentLogger sets the logger used for selector errors.
func WithDocumentLogger(l *slog.Logger) DocumentOption {
	return func(d *Document) { d.logger = l }
}

// NewDocument creates an empty document with an <html><body> skeleton.
func NewDocument(opts ...DocumentOption) *Document {
	d := &Document{
		viewport:   Viewport{Width: 1280, Height: 800},
		readyState: ReadyInteractive,
		media:      map[string]bool{},
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	d.root = d.CreateElement("html", nil)
	d.root.Append(d.CreateElement("body", nil))
	d.updateScrollSize()
	return d
}

// CreateElement makes a detached element owned by d.
func (d *Document) CreateElement(tag string, attrs map[string]string) *Element {
	tag = strings.ToLower(tag)
	e := &Element{
		doc:       d,
		tag:       tag,
		node:      newNode(tag),
		attrs:     map[string]string{},
		style:     map[string]string{},
		listeners: map[string][]*listener{},
	}
	for k, v := range attrs {
		e.setAttr(k, v)
	}
	return e
}

// Body returns the <body> element.
func (d *Document) Body() *Element {
	for _, c := range d.root.children {
		if c.tag == "body" {
			return c
		}
	}
	return d.root
}

// Element returns the first element matching sel, or nil.
func (d *Document) Element(sel string) *Element {
	nodes := d.QueryAll(sel)
	if len(nodes) == 0 {
		return nil
	}
	return nodes[0].(*Element)
}

// All returns every element in document order, root first.
func (d *Document) All() []*Element {
	var out []*Element
	var walk func(*Element)
	walk = func(e *Element) {
		out = append(out, e)
		for _, c := range e.children {
			walk(c)
		}
	}
	walk(d.root)
	return out
}

// SetMedia sets the result MatchMedia returns for query.
func (d *Document) SetMedia(query string, matches bool) { d.media[query] = matches }

func (d *Document) updateScrollSize() {
	w, h := d.viewport.Width, d.viewport.Height
	for _, e := range d.All() {
		if r := e.Box.Right(); r > w {
			w = r
		}
		if b := e.Box.Bottom(); b > h {
			h = b
		}
	}
	d.viewport.ScrollWidth = w
	d.viewport.ScrollHeight = h
}

// Layout recomputes the scrollable size after boxes change.
func (d *Document) Layout() { d.updateScrollSize() }

func el(n Node) *Element {
	e, _ := n.(*Element)
	return e
}

// Root implements Adapter.
func (d *Document) Root() Node { return d.root }

// QueryAll implements Adapter. Invalid selectors match nothing.
func (d *Document) QueryAll(selector string) []Node {
	sel, err := Compile(selector)
	if err != nil {
		d.logger.Warn("invalid selector", "selector", selector, "error", err)
		return nil
	}
	var out []Node
	for _, e := range d.All() {
		if e.matches(sel) {
			out = append(out, e)
		}
	}
	return out
}

// Matches implements Adapter.
func (d *Document) Matches(n Node, selector string) bool {
	e := el(n)
	if e == nil {
		return false
	}
	sel, err := Compile(selector)
	if err != nil {
		return false
	}
	return e.matches(sel)
}

// Closest implements Adapter.
func (d *Document) Closest(n Node, selector string) Node {
	for e := el(n); e != nil; e = e.parent {
		if d.Matches(e, selector) {
			return e
		}
	}
	return nil
}

// Parent implements Adapter.
func (d *Document) Parent(n Node) Node {
	e := el(n)
	if e == nil || e.parent == nil {
		return nil
	}
	return e.parent
}

// Children implements Adapter.
func (d *Document) Children(n Node) []Node {
	e := el(n)
	if e == nil {
		return nil
	}
	out := make([]Node, len(e.children))
	for i, c := range e.children {
		out[i] = c
	}
	return out
}

// Contains implements Adapter.
func (d *Document) Contains(ancestor, n Node) bool {
	a := el(ancestor)
	for e := el(n); e != nil; e = e.parent {
		if e == a {
			return true
		}
	}
	return false
}

// Style implements Adapter.
func (d *Document) Style(n Node, prop string) string {
	if e := el(n); e != nil {
		return e.style[prop]
	}
	return ""
}

// ComputedStyle implements Adapter: the inline value, then an attribute
// provided base value (data-style-<prop>), then a tag default.
func (d *Document) ComputedStyle(n Node, prop string) string {
	e := el(n)
	if e == nil {
		return ""
	}
	if v, ok := e.style[prop]; ok {
		return v
	}
	if v, ok := e.attrs["data-style-"+prop]; ok {
		return v
	}
	switch prop {
	case "opacity":
		return "1"
	case "display":
		switch e.tag {
		case "span", "a", "img", "strong", "em":
			return "inline"
		}
		return "block"
	case "width":
		return formatPx(e.Box.Width)
	case "height":
		return formatPx(e.Box.Height)
	case "transform", "filter", "box-shadow":
		return "none"
	case "background-color", "border-color":
		return "rgba(0, 0, 0, 0)"
	case "color":
		return "rgb(0, 0, 0)"
	}
	return ""
}

func formatPx(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64) + "px"
}

// SetStyle implements Adapter.
func (d *Document) SetStyle(n Node, prop, value string) {
	if e := el(n); e != nil {
		e.style[prop] = value
	}
}

// RemoveStyle implements Adapter.
func (d *Document) RemoveStyle(n Node, prop string) {
	if e := el(n); e != nil {
		delete(e.style, prop)
	}
}

// Attribute implements Adapter.
func (d *Document) Attribute(n Node, name string) string {
	if e := el(n); e != nil {
		return e.attrs[name]
	}
	return ""
}

// SetAttribute implements Adapter.
func (d *Document) SetAttribute(n Node, name, value string) {
	if e := el(n); e != nil {
		e.setAttr(name, value)
	}
}

// HasClass implements Adapter.
func (d *Document) HasClass(n Node, class string) bool {
	if e := el(n); e != nil {
		return containsString(strings.Fields(e.attrs["class"]), class)
	}
	return false
}

// AddClass implements Adapter.
func (d *Document) AddClass(n Node, class string) {
	e := el(n)
	if e == nil || d.HasClass(e, class) {
		return
	}
	e.setAttr("class", strings.TrimSpace(e.attrs["class"]+" "+class))
}

// RemoveClass implements Adapter.
func (d *Document) RemoveClass(n Node, class string) {
	e := el(n)
	if e == nil {
		return
	}
	fields := strings.Fields(e.attrs["class"])
	kept := fields[:0]
	for _, f := range fields {
		if f != class {
			kept = append(kept, f)
		}
	}
	e.setAttr("class", strings.Join(kept, " "))
}

// Rect implements Adapter.
func (d *Document) Rect(n Node) Rect {
	e := el(n)
	if e == nil {
		return Rect{}
	}
	r := e.Box
	r.Left -= d.viewport.ScrollLeft
	r.Top -= d.viewport.ScrollTop
	return r
}

// Viewport implements Adapter.
func (d *Document) Viewport() Viewport { return d.viewport }

// ReadyState implements Adapter.
func (d *Document) ReadyState() string { return d.readyState }

// MatchMedia implements Adapter. Unknown queries do not match.
func (d *Document) MatchMedia(query string) bool { return d.media[query] }

var _ Adapter = (*Document)(nil)
