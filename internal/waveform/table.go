package waveform

import "math"

// LiftStep is the amplitude offset added per lift phase.
const LiftStep = 10

// LiftPhases is the number of lift phases before the offset wraps to zero.
const LiftPhases = 4

// defaultSamples is the single cycle the capture source plays by default:
// a small wobble around 20 with one spike so wraparound is easy to spot.
var defaultSamples = [...]byte{
	20, 22, 24, 25, 24, 22, 21,
	19, 17, 15, 14, 15, 17, 19,
	20, 127, 22, 19, 17, 15, 19,
}

// Table is an immutable single-cycle lookup table of raw sample bytes.
type Table struct {
	samples []byte
}

// New copies samples into a new Table. It panics on an empty table.
func New(samples []byte) *Table {
	if len(samples) == 0 {
		panic("waveform: empty table")
	}
	cp := make([]byte, len(samples))
	copy(cp, samples)
	return &Table{samples: cp}
}

// Default returns the built-in 21-byte table.
func Default() *Table {
	return New(defaultSamples[:])
}

// Len returns the table size in bytes.
func (t *Table) Len() int { return len(t.samples) }

// At returns the untransformed sample at i.
func (t *Table) At(i int) byte { return t.samples[i] }

// Transform applies the lift offset for the given phase. Byte arithmetic wraps.
func Transform(sample byte, liftPhase int) byte {
	return sample + byte(liftPhase*LiftStep)
}

// CopyTo writes the lifted samples [pos, pos+len(dst)) into dst and returns
// the number of bytes written. The read never wraps; callers bound len(dst).
func (t *Table) CopyTo(dst []byte, pos int, liftPhase int) int {
	n := copy(dst, t.samples[pos:])
	if liftPhase == 0 {
		return n
	}
	for i := 0; i < n; i++ {
		dst[i] = Transform(dst[i], liftPhase)
	}
	return n
}

// Sine builds a one-cycle sine table of the given size centred on center.
func Sine(size int, center, amplitude byte) *Table {
	if size <= 0 {
		size = 64
	}
	samples := make([]byte, size)
	for i := range samples {
		v := float64(center) + float64(amplitude)*math.Sin(2*math.Pi*float64(i)/float64(size))
		samples[i] = byte(math.Max(0, math.Min(255, math.Round(v))))
	}
	return &Table{samples: samples}
}
