package engine

import (
	"strconv"
	"sync/atomic"
	"time"
)

// FrameClock supplies frame timestamps in milliseconds.
//
// The engine reads the clock once per Tick, so everything advanced in one
// frame sees the same time. Tests use testutil.ManualClock.
type FrameClock interface {
	Now() float64
}

// wallClock measures milliseconds since construction.
type wallClock struct {
	origin time.Time
}

func newWallClock() *wallClock {
	return &wallClock{origin: time.Now()}
}

func (c *wallClock) Now() float64 {
	return float64(time.Since(c.origin)) / float64(time.Millisecond)
}

// Sequence hands out engine-assigned ids with a fixed prefix ("i1", "i2",
// ...). Ids are never reused within one Sequence, including across session
// restarts.
//
// Thread-safety: Sequence is safe for concurrent use (atomic operations).
type Sequence struct {
	prefix string
	seq    atomic.Int64
}

// NewSequence creates a sequence whose first id is prefix+"1".
func NewSequence(prefix string) *Sequence {
	return &Sequence{prefix: prefix}
}

// Next returns the next id.
func (s *Sequence) Next() string {
	return s.prefix + strconv.FormatInt(s.seq.Add(1), 10)
}

// Current returns the number of ids handed out.
func (s *Sequence) Current() int64 {
	return s.seq.Load()
}
