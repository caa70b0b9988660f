package engine

import "sync/atomic"

// Sequencer hands out seq numbers. *Clock is the production
// implementation; tests may substitute a resettable one.
type Sequencer interface {
	Next() int64
	Current() int64
}

// Clock is the logical clock of a batch run.
//
// Sessions and outcomes are stamped with strictly increasing seq numbers
// from this clock, never with wall time, so a logged batch reads back in
// the order it was submitted.
//
// Clock is safe for concurrent use. The engine only calls Next from the
// dispatching goroutine.
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a new clock starting at 0.
func NewClock() *Clock {
	return &Clock{}
}

// NewClockAt creates a clock starting at a specific sequence number.
// Used to continue numbering after the last logged session.
func NewClockAt(start int64) *Clock {
	c := &Clock{}
	c.seq.Store(start)
	return c
}

// Next returns the next sequence number and increments the clock.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the current sequence number without incrementing.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}
