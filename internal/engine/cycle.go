package engine

// DefaultMaxStartDepth bounds how deeply action list starts may nest
// synchronously. Immediate starts and GENERAL_START_ACTION items can start
// lists from inside a start; a list that (directly or through others)
// starts itself immediately would otherwise recurse without end.
const DefaultMaxStartDepth = 32

// startGuard tracks the current synchronous start depth.
//
// Depth returns to zero once the outermost start returns, so lists that
// restart each other across frames (loops, chained carriers) are never
// limited; only recursion within one call stack is.
//
// Not safe for concurrent use: owned by the frame loop.
type startGuard struct {
	depth int
	max   int
}

func newStartGuard(max int) *startGuard {
	if max <= 0 {
		max = DefaultMaxStartDepth
	}
	return &startGuard{max: max}
}

// Enter records one more level of nesting. It returns a start-cycle error,
// without entering, when the budget is spent.
func (g *startGuard) Enter(actionListID string) error {
	if g.depth >= g.max {
		return NewStartCycleError(actionListID, g.depth, g.max)
	}
	g.depth++
	return nil
}

// Leave undoes one Enter.
func (g *startGuard) Leave() {
	if g.depth > 0 {
		g.depth--
	}
}

// Depth returns the current nesting depth.
func (g *startGuard) Depth() int {
	return g.depth
}
