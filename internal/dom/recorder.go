package dom

import (
	"fmt"
	"sync"
)

// Paint operations a Recorder captures.
const (
	OpSetStyle     = "set-style"
	OpRemoveStyle  = "remove-style"
	OpSetAttribute = "set-attribute"
	OpAddClass     = "add-class"
	OpRemoveClass  = "remove-class"
)

// Paint is one adapter write.
type Paint struct {
	Element string `json:"element" yaml:"element"`
	Op      string `json:"op" yaml:"op"`
	Name    string `json:"name" yaml:"name"`
	Value   string `json:"value,omitempty" yaml:"value,omitempty"`
}

// Recorder is an Adapter that forwards to another and records every write,
// in order. Reads pass through untouched.
type Recorder struct {
	Adapter

	mu     sync.Mutex
	paints []Paint
}

// NewRecorder wraps a.
func NewRecorder(a Adapter) *Recorder {
	return &Recorder{Adapter: a}
}

// Paints returns the writes recorded since the last Reset.
func (r *Recorder) Paints() []Paint {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Paint(nil), r.paints...)
}

// Drain returns the recorded writes and forgets them.
func (r *Recorder) Drain() []Paint {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.paints
	r.paints = nil
	return out
}

// Reset forgets recorded writes.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.paints = nil
}

func (r *Recorder) record(n Node, op, name, value string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.paints = append(r.paints, Paint{Element: NodeLabel(n), Op: op, Name: name, Value: value})
}

// SetStyle implements Adapter.
func (r *Recorder) SetStyle(n Node, prop, value string) {
	r.record(n, OpSetStyle, prop, value)
	r.Adapter.SetStyle(n, prop, value)
}

// RemoveStyle implements Adapter.
func (r *Recorder) RemoveStyle(n Node, prop string) {
	r.record(n, OpRemoveStyle, prop, "")
	r.Adapter.RemoveStyle(n, prop)
}

// SetAttribute implements Adapter.
func (r *Recorder) SetAttribute(n Node, name, value string) {
	r.record(n, OpSetAttribute, name, value)
	r.Adapter.SetAttribute(n, name, value)
}

// AddClass implements Adapter.
func (r *Recorder) AddClass(n Node, class string) {
	r.record(n, OpAddClass, class, "")
	r.Adapter.AddClass(n, class)
}

// RemoveClass implements Adapter.
func (r *Recorder) RemoveClass(n Node, class string) {
	r.record(n, OpRemoveClass, class, "")
	r.Adapter.RemoveClass(n, class)
}

// NodeLabel names a node for traces.
func NodeLabel(n Node) string {
	switch v := n.(type) {
	case nil:
		return "<nil>"
	case *Element:
		if v == nil {
			return "<nil>"
		}
		return v.Label()
	case fmt.Stringer:
		return v.String()
	}
	return fmt.Sprintf("%v", n)
}

var _ Adapter = (*Recorder)(nil)
