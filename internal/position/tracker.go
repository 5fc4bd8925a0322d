// Package position turns elapsed clock ticks into capture bytes.
//
// Positions are kept in fixed point, scaled by the clock rate, so that many
// short ticks add up to exactly the same byte count as one long tick.
package position

import "fmt"

// Sink receives the number of new bytes due after an Advance.
type Sink interface {
	Write(n int)
}

// Tracker accumulates a fractional byte position and detects period
// boundaries.
type Tracker struct {
	sink Sink

	bytesPerSecond uint64
	ticksPerSecond uint64
	periodSizeFrac uint64

	irqPos   uint64 // bytes * ticksPerSecond, always < periodSizeFrac
	lastTick uint64
	pending  int
	produced uint64
}

// New returns a tracker feeding sink.
func New(sink Sink) *Tracker {
	return &Tracker{sink: sink}
}

// Reset configures the tracker for a new stream and zeroes all counters.
func (t *Tracker) Reset(bytesPerSecond, periodBytes, ticksPerSecond uint64) {
	if bytesPerSecond == 0 || periodBytes == 0 || ticksPerSecond == 0 {
		panic(fmt.Sprintf("position: invalid reset bps=%d period=%d hz=%d", bytesPerSecond, periodBytes, ticksPerSecond))
	}
	t.bytesPerSecond = bytesPerSecond
	t.ticksPerSecond = ticksPerSecond
	t.periodSizeFrac = periodBytes * ticksPerSecond
	t.irqPos = 0
	t.lastTick = 0
	t.pending = 0
	t.produced = 0
}

// Start sets the reference tick that the next Advance measures from.
func (t *Tracker) Start(now uint64) { t.lastTick = now }

// Advance moves the position up to now and returns the bytes written to the
// sink. Ticks that do not complete a whole byte are carried, not dropped.
func (t *Tracker) Advance(now uint64) int {
	delta := now - t.lastTick
	if delta == 0 {
		return 0
	}
	t.lastTick += delta

	before := t.irqPos / t.ticksPerSecond
	t.irqPos += delta * t.bytesPerSecond
	count := t.irqPos/t.ticksPerSecond - before
	if count == 0 {
		return 0
	}
	t.sink.Write(int(count))
	t.produced += count

	if t.irqPos >= t.periodSizeFrac {
		t.pending += int(t.irqPos / t.periodSizeFrac)
		t.irqPos %= t.periodSizeFrac
	}
	return int(count)
}

// ConsumePeriodPending clears one pending period boundary. A true result
// obliges the caller to notify the host exactly once.
func (t *Tracker) ConsumePeriodPending() bool {
	if t.pending == 0 {
		return false
	}
	t.pending--
	return true
}

// NextWake returns the ticks until the next period boundary, rounded up.
func (t *Tracker) NextWake() uint64 {
	remaining := t.periodSizeFrac - t.irqPos
	wake := (remaining + t.bytesPerSecond - 1) / t.bytesPerSecond
	if wake == 0 {
		wake = 1
	}
	return wake
}

// IRQPos returns the fractional position inside the current period.
func (t *Tracker) IRQPos() uint64 { return t.irqPos }

// PeriodSizeFrac returns the period size in fractional units.
func (t *Tracker) PeriodSizeFrac() uint64 { return t.periodSizeFrac }

// LastTick returns the last tick folded into the position.
func (t *Tracker) LastTick() uint64 { return t.lastTick }

// Produced returns the total bytes written since Reset.
func (t *Tracker) Produced() uint64 { return t.produced }
