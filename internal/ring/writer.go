package ring

import (
	"fmt"

	"github.com/cbegin/vosc-go/internal/silence"
	"github.com/cbegin/vosc-go/internal/waveform"
)

// DefaultPlaceholder marks capture bytes that no synthesis has reached yet.
const DefaultPlaceholder byte = 0x2d

// Writer fills a circular capture buffer from a waveform table. Both the
// buffer cursor and the table position wrap independently.
type Writer struct {
	buf         []byte
	table       *waveform.Table
	silence     *silence.Tracker
	placeholder byte
	synth       bool
	synthesized []bool // buf[i] holds waveform data

	cursor      int
	waveformPos int
	liftPhase   int
}

// NewWriter returns a writer over buf. The caller keeps ownership of buf and
// must Reset the writer before the first Write.
func NewWriter(buf []byte, table *waveform.Table, tracker *silence.Tracker, placeholder byte) *Writer {
	if table == nil {
		table = waveform.Default()
	}
	return &Writer{
		buf:         buf,
		table:       table,
		silence:     tracker,
		placeholder: placeholder,
		synth:       true,
		synthesized: make([]bool, len(buf)),
	}
}

// Reset rewinds the cursor and synth state, fills the buffer with the
// placeholder and marks it all silent.
func (w *Writer) Reset() {
	w.cursor = 0
	w.waveformPos = 0
	w.liftPhase = 0
	fillBytes(w.buf, w.placeholder)
	clear(w.synthesized)
	w.silence.Reset(len(w.buf))
}

// SetSynthEnabled switches between waveform data and placeholder silence.
func (w *Writer) SetSynthEnabled(enabled bool) { w.synth = enabled }

// SynthEnabled reports whether Write produces waveform data.
func (w *Writer) SynthEnabled() bool { return w.synth }

// Cursor returns the next byte offset to be written.
func (w *Writer) Cursor() int { return w.cursor }

// WaveformPos returns the read offset into the waveform table.
func (w *Writer) WaveformPos() int { return w.waveformPos }

// LiftPhase returns the current lift phase (0..3).
func (w *Writer) LiftPhase() int { return w.liftPhase }

// Write produces n bytes at the cursor and advances it by n.
func (w *Writer) Write(n int) {
	if n < 0 {
		panic(fmt.Sprintf("ring: negative write %d", n))
	}
	size := len(w.buf)
	if size == 0 {
		panic("ring: write to empty buffer")
	}
	written := 0
	if w.synth {
		written = w.writeWaveform(n)
	}
	w.writeSilence(n - written)
}

func (w *Writer) writeWaveform(n int) int {
	bufSize := len(w.buf)
	tblSize := w.table.Len()
	left := n
	for left > 0 {
		w.checkBounds()
		chunk := min(left, tblSize-w.waveformPos, bufSize-w.cursor)
		w.table.CopyTo(w.buf[w.cursor:w.cursor+chunk], w.waveformPos, w.liftPhase)
		w.silence.Consume(w.mark(w.cursor, chunk, true))
		left -= chunk
		w.waveformPos = (w.waveformPos + chunk) % tblSize
		w.cursor = (w.cursor + chunk) % bufSize
		if w.waveformPos == 0 {
			w.liftPhase = (w.liftPhase + 1) % waveform.LiftPhases
		}
	}
	return n
}

// writeSilence covers n bytes the synth did not produce. Once the whole
// buffer is placeholder there is nothing left to overwrite, but the cursor
// still moves with the clock.
func (w *Writer) writeSilence(n int) {
	if n == 0 {
		return
	}
	bufSize := len(w.buf)
	start := w.cursor
	w.cursor = (w.cursor + n%bufSize) % bufSize
	if w.silence.Untouched() {
		return
	}
	off := start
	left := min(n, bufSize)
	overwritten := 0
	for left > 0 {
		chunk := min(left, bufSize-off)
		fillBytes(w.buf[off:off+chunk], w.placeholder)
		overwritten += w.mark(off, chunk, false)
		left -= chunk
		off = 0
	}
	w.silence.Add(overwritten)
}

// mark flags buf[off:off+n] as synthesized or placeholder and returns how many
// bytes changed kind.
func (w *Writer) mark(off, n int, synthesized bool) int {
	changed := 0
	for i := off; i < off+n; i++ {
		if w.synthesized[i] != synthesized {
			w.synthesized[i] = synthesized
			changed++
		}
	}
	return changed
}

func (w *Writer) checkBounds() {
	if w.cursor < 0 || w.cursor >= len(w.buf) {
		panic(fmt.Sprintf("ring: cursor %d outside buffer of %d bytes", w.cursor, len(w.buf)))
	}
	if w.waveformPos < 0 || w.waveformPos >= w.table.Len() {
		panic(fmt.Sprintf("ring: waveform position %d outside table of %d bytes", w.waveformPos, w.table.Len()))
	}
}

func fillBytes(dst []byte, v byte) {
	for i := range dst {
		dst[i] = v
	}
}
