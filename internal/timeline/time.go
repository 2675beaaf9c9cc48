package timeline

import (
	"fmt"
	"sync/atomic"
)

// Time is the in-branch part of a time coordinate: a coarse turn and a fine
// tick. Ticks order the facts recorded during a single turn's execution and
// reset to zero when the turn advances.
type Time struct {
	Turn int64 `json:"turn"`
	Tick int64 `json:"tick"`
}

// Compare orders two Times within the same branch: -1 if t precedes o,
// 0 if equal, 1 if t follows o.
func (t Time) Compare(o Time) int {
	switch {
	case t.Turn < o.Turn:
		return -1
	case t.Turn > o.Turn:
		return 1
	case t.Tick < o.Tick:
		return -1
	case t.Tick > o.Tick:
		return 1
	default:
		return 0
	}
}

// Before reports whether t strictly precedes o.
func (t Time) Before(o Time) bool { return t.Compare(o) < 0 }

// After reports whether t strictly follows o.
func (t Time) After(o Time) bool { return t.Compare(o) > 0 }

func (t Time) String() string {
	return fmt.Sprintf("%d.%d", t.Turn, t.Tick)
}

// Coord is a complete three-level time coordinate. Coords in different
// branches are not totally ordered; ordering them requires walking the
// branch forest.
type Coord struct {
	Branch string `json:"branch"`
	Time
}

func (c Coord) String() string {
	return fmt.Sprintf("%s@%d.%d", c.Branch, c.Turn, c.Tick)
}

// Ticker allocates strictly increasing tick numbers within a turn.
// Every fact recorded during a turn is stamped from the same ticker, so
// replay produces identical order regardless of wall time.
//
// Safe for concurrent use, though the store's single-writer design means
// one goroutine normally calls Next.
type Ticker struct {
	tick atomic.Int64
}

// NewTicker creates a ticker starting at 0.
func NewTicker() *Ticker {
	return &Ticker{}
}

// NewTickerAt creates a ticker resuming from a known position, for replay.
func NewTickerAt(start int64) *Ticker {
	t := &Ticker{}
	t.tick.Store(start)
	return t
}

// Next returns the next tick and advances the ticker.
func (t *Ticker) Next() int64 {
	return t.tick.Add(1)
}

// Current returns the latest allocated tick without advancing.
func (t *Ticker) Current() int64 {
	return t.tick.Load()
}

// Reset rewinds the ticker, for turn boundaries and time jumps.
func (t *Ticker) Reset(to int64) {
	t.tick.Store(to)
}
