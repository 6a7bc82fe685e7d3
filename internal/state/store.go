package state

import (
	"errors"
	"fmt"
)

// Store composes the slice reducers into one tree.
type Store struct {
	reducers    Reducers
	state       State
	subscribers map[int]func()
	order       []int
	nextID      int
}

// NewStore builds the initial tree by probing every reducer with a nil
// previous slice. A missing reducer, or one that returns nil for the probe,
// fails construction.
func NewStore(r Reducers) (*Store, error) {
	s := &Store{reducers: r, subscribers: make(map[int]func())}
	next, err := s.reduce(State{}, probe{})
	if err != nil {
		return nil, fmt.Errorf("new store: %w", err)
	}
	s.state = next
	return s, nil
}

// ErrMissingSlice is returned when a reducer is nil or yields no state.
var ErrMissingSlice = errors.New("reducer returned no state")

func (s *Store) reduce(prev State, a Action) (State, error) {
	r := s.reducers
	if r.Data == nil || r.Request == nil || r.Session == nil ||
		r.Elements == nil || r.Instances == nil || r.Parameters == nil {
		return State{}, fmt.Errorf("%w: reducer not set", ErrMissingSlice)
	}
	next := State{
		Data:       r.Data(prev.Data, a),
		Request:    r.Request(prev.Request, a),
		Session:    r.Session(prev.Session, a),
		Elements:   r.Elements(prev.Elements, a),
		Instances:  r.Instances(prev.Instances, a),
		Parameters: r.Parameters(prev.Parameters, a),
	}
	switch {
	case next.Data == nil:
		return State{}, fmt.Errorf("%w: data", ErrMissingSlice)
	case next.Request == nil:
		return State{}, fmt.Errorf("%w: request", ErrMissingSlice)
	case next.Session == nil:
		return State{}, fmt.Errorf("%w: session", ErrMissingSlice)
	case next.Elements == nil:
		return State{}, fmt.Errorf("%w: elements", ErrMissingSlice)
	case next.Instances == nil:
		return State{}, fmt.Errorf("%w: instances", ErrMissingSlice)
	case next.Parameters == nil:
		return State{}, fmt.Errorf("%w: parameters", ErrMissingSlice)
	}
	return next, nil
}

// GetState returns the current tree.
func (s *Store) GetState() State {
	return s.state
}

// Dispatch runs every reducer and notifies subscribers. A nil action is a
// programmer error and panics, as does a reducer that stops returning state
// after passing construction.
func (s *Store) Dispatch(a Action) {
	if a == nil {
		panic("state: dispatch of nil action")
	}
	next, err := s.reduce(s.state, a)
	if err != nil {
		panic(fmt.Sprintf("state: dispatch %T: %v", a, err))
	}
	s.state = next

	// Snapshot so subscribers may unsubscribe or dispatch.
	ids := append([]int(nil), s.order...)
	for _, id := range ids {
		if fn, ok := s.subscribers[id]; ok {
			fn()
		}
	}
}

// Subscribe registers fn to run after every dispatch and returns a func
// that removes it.
func (s *Store) Subscribe(fn func()) (unsubscribe func()) {
	id := s.nextID
	s.nextID++
	s.subscribers[id] = fn
	s.order = append(s.order, id)
	return func() {
		if _, ok := s.subscribers[id]; !ok {
			return
		}
		delete(s.subscribers, id)
		for i, other := range s.order {
			if other == id {
				s.order = append(s.order[:i:i], s.order[i+1:]...)
				break
			}
		}
	}
}

// Observe calls onChange whenever the selected value differs from the last
// one seen. Slices are replaced rather than mutated, so selecting a slice
// pointer detects any change within it.
func Observe[T comparable](s *Store, selector func(State) T, onChange func(next T)) (unsubscribe func()) {
	current := selector(s.GetState())
	return s.Subscribe(func() {
		next := selector(s.GetState())
		if next == current {
			return
		}
		current = next
		onChange(next)
	})
}
