package audio

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"sync"

	ebitaudio "github.com/hajimehoshi/ebiten/v2/audio"
)

// SampleSource fills dst with interleaved stereo float32 samples.
type SampleSource interface {
	Process(dst []float32)
}

// StreamReader encodes a SampleSource as the float32 little-endian stereo
// stream ebiten audio players consume.
type StreamReader struct {
	mu     sync.Mutex
	source SampleSource
	buf    []float32
	frames int64
	closed bool
}

func NewStreamReader(source SampleSource) *StreamReader {
	return &StreamReader{source: source}
}

func (r *StreamReader) Read(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return 0, io.EOF
	}
	frames := len(p) / 8
	if frames == 0 {
		return 0, nil
	}
	need := frames * 2
	if cap(r.buf) < need {
		r.buf = make([]float32, need)
	}
	r.buf = r.buf[:need]
	r.source.Process(r.buf)
	for i, v := range r.buf {
		binary.LittleEndian.PutUint32(p[i*4:], math.Float32bits(v))
	}
	r.frames += int64(frames)
	return frames * 8, nil
}

// Frames returns how many stereo frames have been handed to the player.
func (r *StreamReader) Frames() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.frames
}

// Close ends the stream; later reads return io.EOF.
func (r *StreamReader) Close() error {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()
	return nil
}

// Player monitors a SampleSource through the shared ebiten audio context.
type Player struct {
	player *ebitaudio.Player
	reader *StreamReader
}

var (
	audioContextOnce sync.Once
	audioContext     *ebitaudio.Context
	audioSampleRate  int
)

func sharedAudioContext(sampleRate int) (*ebitaudio.Context, error) {
	audioContextOnce.Do(func() {
		audioSampleRate = sampleRate
		audioContext = ebitaudio.NewContext(sampleRate)
	})
	if audioSampleRate != sampleRate {
		return nil, fmt.Errorf("audio context already initialized at %d Hz (requested %d Hz)", audioSampleRate, sampleRate)
	}
	return audioContext, nil
}

func NewPlayer(sampleRate int, source SampleSource) (*Player, error) {
	ctx, err := sharedAudioContext(sampleRate)
	if err != nil {
		return nil, err
	}
	reader := NewStreamReader(source)
	pl, err := ctx.NewPlayerF32(reader)
	if err != nil {
		return nil, err
	}
	return &Player{player: pl, reader: reader}, nil
}

func (p *Player) Play() { p.player.Play() }

// Frames returns the number of frames queued to the output so far.
func (p *Player) Frames() int64 { return p.reader.Frames() }

func (p *Player) Stop() error {
	p.player.Pause()
	if err := p.player.Close(); err != nil {
		return err
	}
	return p.reader.Close()
}
