package sched

import (
	"sync"
	"testing"

	"github.com/cbegin/vosc-go/internal/clock"
)

type harness struct {
	mu      sync.Mutex
	clk     *clock.Manual
	s       *Scheduler
	ticks   []uint64
	notes   int
	periods int
}

func newHarness(interval uint64) *harness {
	h := &harness{clk: clock.NewManual(1000)}
	h.s = New(&h.mu, h.clk, func(now uint64) (uint64, int) {
		h.ticks = append(h.ticks, now)
		return interval, h.periods
	}, func() { h.notes++ })
	return h
}

func (h *harness) start(delay uint64) {
	h.mu.Lock()
	h.s.Start(delay)
	h.mu.Unlock()
}

func (h *harness) stop() {
	h.mu.Lock()
	h.s.Stop()
	h.mu.Unlock()
	h.s.Wait()
}

func TestSchedulerRearmsEveryFiring(t *testing.T) {
	h := newHarness(6)
	h.periods = 1
	h.start(6)
	h.clk.Advance(30)
	want := []uint64{6, 12, 18, 24, 30}
	if len(h.ticks) != len(want) {
		t.Fatalf("ticks = %v, want %v", h.ticks, want)
	}
	for i := range want {
		if h.ticks[i] != want[i] {
			t.Fatalf("ticks = %v, want %v", h.ticks, want)
		}
	}
	if h.notes != 5 {
		t.Fatalf("notifications = %d, want 5", h.notes)
	}
}

func TestSchedulerStartIsIdempotent(t *testing.T) {
	h := newHarness(5)
	h.start(5)
	h.start(5)
	if got := h.clk.Pending(); got != 1 {
		t.Fatalf("pending timers = %d, want 1", got)
	}
}

func TestSchedulerStopCancels(t *testing.T) {
	h := newHarness(5)
	h.start(5)
	h.clk.Advance(5)
	h.stop()
	h.stop()
	h.clk.Advance(100)
	if len(h.ticks) != 1 {
		t.Fatalf("ticks after stop = %v", h.ticks)
	}
	if h.s.Armed() {
		t.Fatal("scheduler still armed")
	}
	if h.clk.Pending() != 0 {
		t.Fatalf("pending timers = %d, want 0", h.clk.Pending())
	}
}

type leakyTimer struct{}

func (leakyTimer) Stop() bool { return false }

// leakyClock hands back timers that cannot be cancelled, like a timer whose
// goroutine has already been started.
type leakyClock struct {
	*clock.Manual
	fns []func()
}

func (c *leakyClock) AfterFunc(ticks uint64, f func()) clock.Timer {
	c.fns = append(c.fns, f)
	return leakyTimer{}
}

func TestSchedulerIgnoresStaleFiring(t *testing.T) {
	var mu sync.Mutex
	lc := &leakyClock{Manual: clock.NewManual(1000)}
	calls := 0
	s := New(&mu, lc, func(uint64) (uint64, int) {
		calls++
		return 1, 0
	}, nil)
	mu.Lock()
	s.Start(1)
	s.Stop()
	s.Start(1)
	mu.Unlock()
	if len(lc.fns) != 2 {
		t.Fatalf("armed %d timers, want 2", len(lc.fns))
	}
	lc.fns[0]()
	if calls != 0 {
		t.Fatalf("stale firing reached tick func")
	}
	lc.fns[1]()
	if calls != 1 {
		t.Fatalf("current firing calls = %d, want 1", calls)
	}
}

func TestSchedulerMultiplePeriodsNotifyEach(t *testing.T) {
	h := newHarness(1)
	h.periods = 3
	h.start(1)
	h.clk.Advance(1)
	if h.notes != 3 {
		t.Fatalf("notifications = %d, want 3", h.notes)
	}
}
