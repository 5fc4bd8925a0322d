package position

import (
	"math/rand"
	"testing"
)

type countingSink struct {
	total  int
	writes []int
}

func (s *countingSink) Write(n int) {
	s.total += n
	s.writes = append(s.writes, n)
}

func newTracker(bps, period, hz uint64) (*Tracker, *countingSink) {
	sink := &countingSink{}
	tr := New(sink)
	tr.Reset(bps, period, hz)
	return tr, sink
}

func TestAdvanceZeroDeltaIsNoop(t *testing.T) {
	tr, sink := newTracker(8000, 48, 1000)
	tr.Start(500)
	if n := tr.Advance(500); n != 0 {
		t.Fatalf("advance with zero delta produced %d bytes", n)
	}
	if len(sink.writes) != 0 {
		t.Fatalf("sink called %d times", len(sink.writes))
	}
}

func TestOnePeriodLatchesPending(t *testing.T) {
	tr, sink := newTracker(8000, 48, 1000)
	tr.Start(0)
	if n := tr.Advance(6); n != 48 {
		t.Fatalf("advance produced %d bytes, want 48", n)
	}
	if sink.total != 48 {
		t.Fatalf("sink total = %d", sink.total)
	}
	if tr.IRQPos() != 0 {
		t.Fatalf("irqPos = %d, want 0", tr.IRQPos())
	}
	if !tr.ConsumePeriodPending() {
		t.Fatal("expected a pending period")
	}
	if tr.ConsumePeriodPending() {
		t.Fatal("pending period consumed twice")
	}
}

func TestFractionalTicksCarry(t *testing.T) {
	// 44100 B/s at 1000 Hz is 44.1 bytes per tick.
	tr, sink := newTracker(44100, 441, 1000)
	tr.Start(0)
	for now := uint64(1); now <= 10; now++ {
		tr.Advance(now)
	}
	if sink.total != 441 {
		t.Fatalf("10 ticks produced %d bytes, want 441", sink.total)
	}
	if !tr.ConsumePeriodPending() {
		t.Fatal("expected period boundary after 441 bytes")
	}
}

func TestSubByteTicksDoNotDrift(t *testing.T) {
	// 100 B/s at 1000 Hz: a byte every 10 ticks.
	tr, sink := newTracker(100, 10, 1000)
	tr.Start(0)
	for now := uint64(1); now <= 1000; now++ {
		tr.Advance(now)
	}
	if sink.total != 100 {
		t.Fatalf("one second produced %d bytes, want 100", sink.total)
	}
	if len(sink.writes) != 100 {
		t.Fatalf("sink called %d times, want 100", len(sink.writes))
	}
}

func TestAdvanceIsOrderIndependent(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	const total = 5000
	ref, refSink := newTracker(22050, 1024, 1000)
	ref.Start(0)
	ref.Advance(total)

	for trial := 0; trial < 20; trial++ {
		tr, sink := newTracker(22050, 1024, 1000)
		tr.Start(0)
		now := uint64(0)
		for now < total {
			step := uint64(rng.Intn(17) + 1)
			if now+step > total {
				step = total - now
			}
			now += step
			tr.Advance(now)
		}
		if tr.IRQPos() != ref.IRQPos() || sink.total != refSink.total {
			t.Fatalf("trial %d: irqPos=%d total=%d, want irqPos=%d total=%d",
				trial, tr.IRQPos(), sink.total, ref.IRQPos(), refSink.total)
		}
	}
}

func TestMultiplePeriodsInOneTickAreQueued(t *testing.T) {
	// Period is 4 bytes, one tick is 10 bytes.
	tr, _ := newTracker(10000, 4, 1000)
	tr.Start(0)
	tr.Advance(1)
	count := 0
	for tr.ConsumePeriodPending() {
		count++
	}
	if count != 2 {
		t.Fatalf("consumed %d periods, want 2", count)
	}
	if tr.IRQPos() != 2000 {
		t.Fatalf("irqPos = %d, want 2000", tr.IRQPos())
	}
}

func TestNextWakeRoundsUp(t *testing.T) {
	tr, _ := newTracker(8000, 48, 1000)
	tr.Start(0)
	if got := tr.NextWake(); got != 6 {
		t.Fatalf("initial wake = %d, want 6", got)
	}
	tr.Advance(1) // 8 bytes in
	if got := tr.NextWake(); got != 5 {
		t.Fatalf("wake after one tick = %d, want 5", got)
	}

	tr2, _ := newTracker(44100, 441, 1000)
	tr2.Start(0)
	tr2.Advance(3) // 132.3 bytes
	// (441000 - 132300) / 44100 = 7.0
	if got := tr2.NextWake(); got != 7 {
		t.Fatalf("wake = %d, want 7", got)
	}
	tr2.Advance(4) // 176.4 bytes
	// (441000 - 176400) / 44100 = 6.0
	if got := tr2.NextWake(); got != 6 {
		t.Fatalf("wake = %d, want 6", got)
	}
}

func TestProducedCountsAcrossPeriods(t *testing.T) {
	tr, _ := newTracker(8000, 48, 1000)
	tr.Start(10)
	tr.Advance(40)
	if tr.Produced() != 240 {
		t.Fatalf("produced = %d, want 240", tr.Produced())
	}
	if tr.LastTick() != 40 {
		t.Fatalf("last tick = %d, want 40", tr.LastTick())
	}
}

func TestResetRejectsZeroRate(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic")
		}
	}()
	New(&countingSink{}).Reset(0, 48, 1000)
}
