// Package clock provides the tick sources that drive a capture device.
package clock

import (
	"sync"
	"time"
)

// DefaultHz is the tick rate used when none is given.
const DefaultHz = 1000

// Timer is a pending wake-up.
type Timer interface {
	// Stop cancels the wake-up. It reports whether the call prevented f
	// from running.
	Stop() bool
}

// Clock is a monotonic tick source that can schedule wake-ups.
type Clock interface {
	Now() uint64
	TicksPerSecond() uint64
	AfterFunc(ticks uint64, f func()) Timer
}

// System is a Clock backed by the runtime's monotonic time.
type System struct {
	hz    uint64
	epoch time.Time
}

// NewSystem returns a system clock ticking hz times per second.
func NewSystem(hz uint64) *System {
	if hz == 0 {
		hz = DefaultHz
	}
	return &System{hz: hz, epoch: time.Now()}
}

func (c *System) Now() uint64 {
	return c.toTicks(time.Since(c.epoch))
}

func (c *System) TicksPerSecond() uint64 { return c.hz }

func (c *System) AfterFunc(ticks uint64, f func()) Timer {
	return time.AfterFunc(c.toDuration(ticks), f)
}

func (c *System) toTicks(d time.Duration) uint64 {
	if d < 0 {
		return 0
	}
	sec := uint64(d / time.Second)
	rem := uint64(d % time.Second)
	return sec*c.hz + rem*c.hz/uint64(time.Second)
}

// toDuration rounds up so a wake-up never lands before its tick.
func (c *System) toDuration(ticks uint64) time.Duration {
	sec := ticks / c.hz
	rem := ticks % c.hz
	ns := (rem*uint64(time.Second) + c.hz - 1) / c.hz
	return time.Duration(sec)*time.Second + time.Duration(ns)
}

// Manual is a Clock that only moves when Advance is called. Due callbacks
// run synchronously on the goroutine calling Advance, in deadline order.
type Manual struct {
	mu     sync.Mutex
	hz     uint64
	now    uint64
	seq    uint64
	timers map[*manualTimer]struct{}
}

type manualTimer struct {
	c        *Manual
	deadline uint64
	seq      uint64
	f        func()
}

// NewManual returns a manual clock at tick zero.
func NewManual(hz uint64) *Manual {
	if hz == 0 {
		hz = DefaultHz
	}
	return &Manual{hz: hz, timers: make(map[*manualTimer]struct{})}
}

func (c *Manual) Now() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *Manual) TicksPerSecond() uint64 { return c.hz }

func (c *Manual) AfterFunc(ticks uint64, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq++
	t := &manualTimer{c: c, deadline: c.now + ticks, seq: c.seq, f: f}
	c.timers[t] = struct{}{}
	return t
}

func (t *manualTimer) Stop() bool {
	t.c.mu.Lock()
	defer t.c.mu.Unlock()
	if _, ok := t.c.timers[t]; !ok {
		return false
	}
	delete(t.c.timers, t)
	return true
}

// Advance moves the clock forward by ticks, firing every timer that falls
// due on the way. Timers armed by a callback fire too if they are due.
func (c *Manual) Advance(ticks uint64) {
	c.mu.Lock()
	target := c.now + ticks
	c.mu.Unlock()
	for {
		c.mu.Lock()
		next := c.nextDue(target)
		if next == nil {
			c.now = target
			c.mu.Unlock()
			return
		}
		delete(c.timers, next)
		c.now = next.deadline
		c.mu.Unlock()
		next.f()
	}
}

// Pending returns the number of armed timers.
func (c *Manual) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.timers)
}

func (c *Manual) nextDue(target uint64) *manualTimer {
	var best *manualTimer
	for t := range c.timers {
		if t.deadline > target {
			continue
		}
		if best == nil || t.deadline < best.deadline || (t.deadline == best.deadline && t.seq < best.seq) {
			best = t
		}
	}
	return best
}
