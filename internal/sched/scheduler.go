// Package sched re-arms a clock so that a capture device wakes at every
// period boundary.
package sched

import (
	"sync"

	"github.com/cbegin/vosc-go/internal/clock"
)

// TickFunc folds the elapsed time up to now into the device and returns the
// delay to the next wake-up and the number of period boundaries crossed. It
// runs with the device lock held.
type TickFunc func(now uint64) (next uint64, periods int)

// Scheduler owns the single pending wake-up of a device. Start and Stop must
// be called with the device lock held; Wait must be called without it.
type Scheduler struct {
	mu     sync.Locker
	clock  clock.Clock
	tick   TickFunc
	notify func()

	// notifyMu is held across a firing, including the period callbacks, so
	// Wait can tell when a firing is over. Lock order: notifyMu, then mu.
	notifyMu sync.Mutex

	timer clock.Timer
	gen   uint64
	armed bool
	fired uint64
}

// New returns a stopped scheduler. notify may be nil.
func New(mu sync.Locker, c clock.Clock, tick TickFunc, notify func()) *Scheduler {
	return &Scheduler{mu: mu, clock: c, tick: tick, notify: notify}
}

// Armed reports whether a wake-up is pending.
func (s *Scheduler) Armed() bool { return s.armed }

// Fired returns how many firings reached the tick function.
func (s *Scheduler) Fired() uint64 { return s.fired }

// Start arms the first wake-up delay ticks from now. It is a no-op when the
// scheduler is already armed.
func (s *Scheduler) Start(delay uint64) {
	if s.armed {
		return
	}
	s.armed = true
	s.gen++
	s.arm(delay)
}

// Stop cancels the pending wake-up. A firing that has already left the clock
// sees a stale generation and does nothing.
func (s *Scheduler) Stop() {
	if !s.armed {
		return
	}
	s.armed = false
	s.gen++
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

// Wait blocks until any in-flight firing, period callbacks included, is done.
func (s *Scheduler) Wait() {
	s.notifyMu.Lock()
	s.notifyMu.Unlock()
}

func (s *Scheduler) arm(delay uint64) {
	if delay == 0 {
		delay = 1
	}
	gen := s.gen
	s.timer = s.clock.AfterFunc(delay, func() { s.fire(gen) })
}

func (s *Scheduler) fire(gen uint64) {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()

	s.mu.Lock()
	if !s.armed || gen != s.gen {
		s.mu.Unlock()
		return
	}
	s.fired++
	next, periods := s.tick(s.clock.Now())
	s.arm(next)
	s.mu.Unlock()

	if s.notify == nil {
		return
	}
	for i := 0; i < periods; i++ {
		s.notify()
	}
}
