package simkernel

import (
	"fmt"
	"time"
)

// Clock is the kernel's authoritative virtual nanosecond counter. It is
// seeded from a wall-clock sample at construction and from then on
// advances only in fixed tick_ns increments inside the run loop — never
// from wall-clock reads. A Clock belongs to exactly one Kernel and is
// never touched off the kernel's goroutine.
type Clock struct {
	nowNs uint64
}

// NewClock seeds a Clock from the current wall-clock time. It fails only
// if the wall clock reports a time before the Unix epoch, which is a
// fatal misconfiguration the caller should refuse to start from.
func NewClock() (*Clock, error) {
	now := time.Now().UnixNano()
	if now < 0 {
		return nil, fmt.Errorf("simkernel: wall clock reports time before Unix epoch")
	}
	return &Clock{nowNs: uint64(now)}, nil
}

// NewClockAt seeds a Clock at an explicit virtual time, bypassing the wall
// clock entirely. Intended for deterministic tests that need a fixed,
// reproducible start time.
func NewClockAt(startNs uint64) *Clock {
	return &Clock{nowNs: startNs}
}

// Now returns the current virtual time in nanoseconds.
func (c *Clock) Now() uint64 { return c.nowNs }

// Advance moves the clock forward by tickNs, saturating instead of
// wrapping on overflow.
func (c *Clock) Advance(tickNs uint64) {
	c.nowNs = saturatingAdd(c.nowNs, tickNs)
}
