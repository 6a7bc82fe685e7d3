// Package dom is the element adapter: every query, traversal, style write
// and listener binding the engine performs goes through Adapter, so engine
// logic never touches a host document directly.
//
// Document is the headless implementation used by the harness, the CLI and
// tests. It keeps an element tree with page-space boxes, a scrollable
// viewport and bubbling event dispatch.
package dom

// Node is an opaque element handle. Handles are comparable; the adapter owns
// node lifetime and the engine only keys lookups by them.
type Node interface{}

// Native event types the engine listens for.
const (
	TypeClick            = "click"
	TypeMouseDown        = "mousedown"
	TypeMouseUp          = "mouseup"
	TypeMouseOver        = "mouseover"
	TypeMouseOut         = "mouseout"
	TypeMouseMove        = "mousemove"
	TypeScroll           = "scroll"
	TypeResize           = "resize"
	TypeReadyStateChange = "readystatechange"
	TypePageUpdate       = "IX2_PAGE_UPDATE"
	TypeComponentActive  = "COMPONENT_ACTIVE"
	TypeComponentInact   = "COMPONENT_INACTIVE"
	TypeCartOpen         = "ecommerce-cart-open"
	TypeCartClose        = "ecommerce-cart-close"
)

// Ready states.
const (
	ReadyLoading     = "loading"
	ReadyInteractive = "interactive"
	ReadyComplete    = "complete"
)

// NativeEvent is a signal delivered by the host.
type NativeEvent struct {
	Type          string
	Target        Node
	RelatedTarget Node

	// Pointer is set when the client/page coordinates are meaningful.
	Pointer bool
	ClientX float64
	ClientY float64
	PageX   float64
	PageY   float64
}

// Rect is an axis-aligned box.
type Rect struct {
	Left   float64 `yaml:"left" json:"left"`
	Top    float64 `yaml:"top" json:"top"`
	Width  float64 `yaml:"width" json:"width"`
	Height float64 `yaml:"height" json:"height"`
}

// Right edge.
func (r Rect) Right() float64 { return r.Left + r.Width }

// Bottom edge.
func (r Rect) Bottom() float64 { return r.Top + r.Height }

// Contains reports whether the point lies inside the box, edges inclusive.
func (r Rect) Contains(x, y float64) bool {
	return x >= r.Left && x <= r.Right() && y >= r.Top && y <= r.Bottom()
}

// Viewport describes the visible window and the scrollable document.
type Viewport struct {
	Width        float64
	Height       float64
	ScrollLeft   float64
	ScrollTop    float64
	ScrollWidth  float64
	ScrollHeight float64
}

// Listener is a bound native listener.
type Listener interface {
	Remove()
}

// Adapter abstracts the host document.
type Adapter interface {
	// Root returns the document element. Window-level signals (scroll,
	// resize, ready state, page update) are delivered to listeners on it.
	Root() Node

	QueryAll(selector string) []Node
	Matches(n Node, selector string) bool
	Closest(n Node, selector string) Node
	Parent(n Node) Node
	Children(n Node) []Node
	// Contains reports whether n is ancestor or ancestor's descendant.
	Contains(ancestor, n Node) bool

	Style(n Node, prop string) string
	ComputedStyle(n Node, prop string) string
	SetStyle(n Node, prop, value string)
	RemoveStyle(n Node, prop string)

	Attribute(n Node, name string) string
	SetAttribute(n Node, name, value string)
	HasClass(n Node, class string) bool
	AddClass(n Node, class string)
	RemoveClass(n Node, class string)

	// Rect returns n's box relative to the viewport.
	Rect(n Node) Rect
	Viewport() Viewport
	ReadyState() string
	MatchMedia(query string) bool

	Listen(n Node, eventType string, fn func(NativeEvent)) Listener
	Emit(n Node, ev NativeEvent)
}

// Siblings returns n's parent's other children, in document order.
func Siblings(a Adapter, n Node) []Node {
	parent := a.Parent(n)
	if parent == nil {
		return nil
	}
	var out []Node
	for _, c := range a.Children(parent) {
		if c != n {
			out = append(out, c)
		}
	}
	return out
}

// Descendants returns every element below n in document order.
func Descendants(a Adapter, n Node) []Node {
	var out []Node
	var walk func(Node)
	walk = func(p Node) {
		for _, c := range a.Children(p) {
			out = append(out, c)
			walk(c)
		}
	}
	walk(n)
	return out
}
