package vosc

import (
	"encoding/binary"
	"fmt"
	"slices"

	"github.com/cbegin/vosc-go/internal/clock"
)

// RenderCapture runs a device on a manual clock at ticksPerSecond (the
// default clock rate when 0) for the given number of ticks and returns every
// byte it captured. Options other than the clock apply as usual.
func RenderCapture(p Params, ticks, ticksPerSecond uint64, opts ...Option) ([]byte, error) {
	clk := clock.NewManual(ticksPerSecond)
	d := New(append(slices.Clip(opts), WithClock(clk))...)
	if err := d.Open(); err != nil {
		return nil, err
	}
	defer d.Close()
	if err := d.Prepare(p); err != nil {
		return nil, err
	}
	if err := d.Start(); err != nil {
		return nil, err
	}

	bps := uint64(p.BytesPerSecond())
	out := make([]byte, 0, ticks*bps/clk.TicksPerSecond())

	// Step by at most one buffer's worth of time so nothing is overwritten
	// before it is read.
	step := uint64(p.BufferBytes) * clk.TicksPerSecond() / bps
	if step == 0 {
		step = 1
	}
	chunk := make([]byte, p.BufferBytes)
	var from uint64
	for elapsed := uint64(0); elapsed < ticks; {
		adv := min(step, ticks-elapsed)
		clk.Advance(adv)
		elapsed += adv
		for {
			n, next, err := d.ReadCaptured(chunk, from)
			if err != nil {
				return nil, fmt.Errorf("render capture: %w", err)
			}
			from = next
			if n == 0 {
				break
			}
			out = append(out, chunk[:n]...)
		}
	}
	return out, nil
}

// EncodeWAV wraps raw PCM captured with p in a RIFF/WAVE container.
func EncodeWAV(pcm []byte, p Params) []byte {
	bits := p.Format.Width()
	dataSize := len(pcm)
	byteRate := p.BytesPerSecond()
	blockAlign := p.BytesPerFrame()
	chunkSize := 36 + dataSize
	out := make([]byte, 44+dataSize)
	copy(out[0:], []byte("RIFF"))
	binary.LittleEndian.PutUint32(out[4:], uint32(chunkSize))
	copy(out[8:], []byte("WAVE"))
	copy(out[12:], []byte("fmt "))
	binary.LittleEndian.PutUint32(out[16:], 16)
	binary.LittleEndian.PutUint16(out[20:], 1)
	binary.LittleEndian.PutUint16(out[22:], uint16(p.Channels))
	binary.LittleEndian.PutUint32(out[24:], uint32(p.Rate))
	binary.LittleEndian.PutUint32(out[28:], uint32(byteRate))
	binary.LittleEndian.PutUint16(out[32:], uint16(blockAlign))
	binary.LittleEndian.PutUint16(out[34:], uint16(bits))
	copy(out[36:], []byte("data"))
	binary.LittleEndian.PutUint32(out[40:], uint32(dataSize))
	copy(out[44:], pcm)
	return out
}
