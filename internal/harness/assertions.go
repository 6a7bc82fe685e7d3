package harness

import (
	"fmt"
	"math"
	"strings"

	"github.com/roach88/ixengine/internal/dom"
	"github.com/roach88/ixengine/internal/state"
)

// defaultTolerance is the parameter assertion tolerance when none is given.
const defaultTolerance = 1e-6

// Snapshot is what assertions read after the last step.
type Snapshot struct {
	Page   *dom.Document
	State  state.State
	Faults []Fault
	Trace  []TraceFrame
}

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string // Assertion type for categorization
	Expected string // Human-readable expected outcome
	Actual   string // Human-readable actual outcome
	// History lists the writes made to the asserted element, oldest first.
	History []string
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.History) > 0 {
		fmt.Fprintf(&buf, "\nWrites:\n")
		for _, line := range e.History {
			fmt.Fprintf(&buf, "  %s\n", line)
		}
	}
	return buf.String()
}

// history renders every write made to the element labelled label.
func history(trace []TraceFrame, label string) []string {
	var out []string
	for _, f := range trace {
		for _, p := range f.Paints {
			if p.Element != label {
				continue
			}
			line := fmt.Sprintf("[frame %d] %s %s", f.Frame, p.Op, p.Name)
			if p.Value != "" {
				line += " = " + p.Value
			}
			out = append(out, line)
		}
	}
	return out
}

func assertStyle(snap *Snapshot, a Assertion) error {
	e := snap.Page.Element(a.Selector)
	if e == nil {
		return noElement(a)
	}
	got := snap.Page.Style(e, a.Property)
	if got == a.Value {
		return nil
	}
	return &AssertionError{
		Type:     AssertStyle,
		Expected: fmt.Sprintf("%s { %s: %q }", a.Selector, a.Property, a.Value),
		Actual:   fmt.Sprintf("%q", got),
		History:  history(snap.Trace, e.Label()),
	}
}

func assertClass(snap *Snapshot, a Assertion) error {
	e := snap.Page.Element(a.Selector)
	if e == nil {
		return noElement(a)
	}
	want := a.Present == nil || *a.Present
	got := snap.Page.HasClass(e, a.Class)
	if got == want {
		return nil
	}
	return &AssertionError{
		Type:     AssertClass,
		Expected: fmt.Sprintf("%s has class %q: %t", a.Selector, a.Class, want),
		Actual:   fmt.Sprintf("%t", got),
		History:  history(snap.Trace, e.Label()),
	}
}

func assertAttribute(snap *Snapshot, a Assertion) error {
	e := snap.Page.Element(a.Selector)
	if e == nil {
		return noElement(a)
	}
	got := snap.Page.Attribute(e, a.Attribute)
	if got == a.Value {
		return nil
	}
	return &AssertionError{
		Type:     AssertAttribute,
		Expected: fmt.Sprintf("%s[%s=%q]", a.Selector, a.Attribute, a.Value),
		Actual:   fmt.Sprintf("%q", got),
		History:  history(snap.Trace, e.Label()),
	}
}

func assertCount(kind string, got int, a Assertion) error {
	if got == *a.Count {
		return nil
	}
	return &AssertionError{
		Type:     kind,
		Expected: fmt.Sprintf("%d %s", *a.Count, kind),
		Actual:   fmt.Sprintf("%d %s", got, kind),
	}
}

func assertParameter(snap *Snapshot, a Assertion) error {
	got, ok := snap.State.Parameters.Get(a.Parameter)
	if !ok {
		return &AssertionError{
			Type:     AssertParameter,
			Expected: fmt.Sprintf("parameter %s = %v", a.Parameter, *a.Number),
			Actual:   "parameter never published",
		}
	}
	tol := a.Tolerance
	if tol == 0 {
		tol = defaultTolerance
	}
	if math.Abs(got-*a.Number) <= tol {
		return nil
	}
	return &AssertionError{
		Type:     AssertParameter,
		Expected: fmt.Sprintf("parameter %s = %v ± %v", a.Parameter, *a.Number, tol),
		Actual:   fmt.Sprintf("%v", got),
	}
}

func assertPlaying(snap *Snapshot, a Assertion) error {
	want := a.Present == nil || *a.Present
	got := snap.State.Session.ActionListPlayback[a.ActionList]
	if got == want {
		return nil
	}
	return &AssertionError{
		Type:     AssertPlaying,
		Expected: fmt.Sprintf("action list %s playing: %t", a.ActionList, want),
		Actual:   fmt.Sprintf("%t", got),
	}
}

func assertFault(snap *Snapshot, a Assertion) error {
	want := a.Present == nil || *a.Present
	var codes []string
	found := false
	for _, f := range snap.Faults {
		codes = append(codes, f.Code)
		if f.Code == a.Code && (a.Value == "" || f.Event == a.Value || f.ActionList == a.Value) {
			found = true
		}
	}
	if found == want {
		return nil
	}
	expected := "fault " + a.Code
	if !want {
		expected = "no fault " + a.Code
	}
	return &AssertionError{
		Type:     AssertFault,
		Expected: expected,
		Actual:   fmt.Sprintf("faults %v", codes),
	}
}

func noElement(a Assertion) error {
	return &AssertionError{
		Type:     a.Type,
		Expected: fmt.Sprintf("an element matching %q", a.Selector),
		Actual:   "no match",
	}
}

// EvaluateAssertions runs every assertion against snap and returns the
// failure messages, in assertion order. An empty slice means all passed.
func EvaluateAssertions(snap *Snapshot, assertions []Assertion) []string {
	var errs []string
	for i, a := range assertions {
		var err error
		switch a.Type {
		case AssertStyle:
			err = assertStyle(snap, a)
		case AssertClass:
			err = assertClass(snap, a)
		case AssertAttribute:
			err = assertAttribute(snap, a)
		case AssertInstances:
			err = assertCount(AssertInstances, snap.State.Instances.Len(), a)
		case AssertListeners:
			err = assertCount(AssertListeners, snap.Page.ListenerCount(), a)
		case AssertParameter:
			err = assertParameter(snap, a)
		case AssertPlaying:
			err = assertPlaying(snap, a)
		case AssertFault:
			err = assertFault(snap, a)
		default:
			err = fmt.Errorf("unknown assertion type %q", a.Type)
		}
		if err != nil {
			errs = append(errs, fmt.Sprintf("assertions[%d]: %v", i, err))
		}
	}
	return errs
}
