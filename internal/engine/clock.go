package engine

import (
	"sync/atomic"

	"github.com/roach88/seqcheck/internal/ir"
)

// Clock hands out strictly increasing message indexes.
//
// Indexes only identify messages in diagnostics and result trees; matching
// never depends on them. Clock is safe for concurrent use.
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a new clock starting at 0.
func NewClock() *Clock {
	return &Clock{}
}

// NewClockAt creates a new clock starting at a specific index.
// Used to continue numbering across several input files.
func NewClockAt(start int64) *Clock {
	c := &Clock{}
	c.seq.Store(start)
	return c
}

// Next returns the next index and increments the clock.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the last index handed out without incrementing.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}

// Stamp assigns an index to every message that has none. Indexes start at
// 1; an Index of 0 means unset and is always replaced, so an explicit 0 in
// the input cannot be kept. Messages that already carry an index move the
// clock forward so later stamps stay increasing.
func (c *Clock) Stamp(msgs []ir.Message) {
	for i := range msgs {
		if msgs[i].Index == 0 {
			msgs[i].Index = c.Next()
			continue
		}
		for {
			cur := c.seq.Load()
			if msgs[i].Index <= cur || c.seq.CompareAndSwap(cur, msgs[i].Index) {
				break
			}
		}
	}
}
