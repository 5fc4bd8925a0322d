package audio

import (
	"encoding/binary"
	"sync"
)

// PCMFormat describes interleaved integer PCM as produced by a capture
// device.
type PCMFormat struct {
	Bits     int // 8, 16 or 32
	Unsigned bool
	Channels int
	Rate     int
}

func (f PCMFormat) frameBytes() int { return f.Bits / 8 * f.Channels }

// sample decodes one little-endian sample to [-1, 1).
func (f PCMFormat) sample(b []byte) float32 {
	switch f.Bits {
	case 8:
		if f.Unsigned {
			return (float32(b[0]) - 128) / 128
		}
		return float32(int8(b[0])) / 128
	case 16:
		v := binary.LittleEndian.Uint16(b)
		if f.Unsigned {
			return (float32(v) - 32768) / 32768
		}
		return float32(int16(v)) / 32768
	case 32:
		v := binary.LittleEndian.Uint32(b)
		if f.Unsigned {
			return float32((float64(v) - 2147483648) / 2147483648)
		}
		return float32(float64(int32(v)) / 2147483648)
	}
	return 0
}

// PCMSource is a SampleSource fed with captured PCM bytes. It converts to
// stereo float32 and resamples linearly to the output rate. When the queue
// runs dry it plays silence.
type PCMSource struct {
	mu        sync.Mutex
	format    PCMFormat
	outRate   int
	step      float64
	pos       float64
	frames    []float32 // interleaved stereo at format.Rate
	partial   []byte
	maxFrames int
	underruns int
}

// NewPCMSource returns an empty source playing format at outRate. It panics
// on a format with no channels, rate or sample width.
func NewPCMSource(format PCMFormat, outRate int) *PCMSource {
	if format.Channels <= 0 || format.Rate <= 0 || outRate <= 0 || format.frameBytes() <= 0 {
		panic("audio: invalid PCM format")
	}
	return &PCMSource{
		format:    format,
		outRate:   outRate,
		step:      float64(format.Rate) / float64(outRate),
		maxFrames: format.Rate,
	}
}

// Push queues captured bytes. A trailing partial frame is kept for the next
// call. At most one second is queued; older frames are dropped.
func (s *PCMSource) Push(pcm []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.partial) > 0 {
		pcm = append(s.partial, pcm...)
		s.partial = nil
	}
	fb := s.format.frameBytes()
	width := s.format.Bits / 8
	whole := len(pcm) / fb * fb
	for off := 0; off < whole; off += fb {
		l := s.format.sample(pcm[off:])
		r := l
		if s.format.Channels > 1 {
			r = s.format.sample(pcm[off+width:])
		}
		s.frames = append(s.frames, l, r)
	}
	if whole < len(pcm) {
		s.partial = append([]byte(nil), pcm[whole:]...)
	}
	if n := len(s.frames) / 2; n > s.maxFrames {
		drop := n - s.maxFrames
		s.frames = append(s.frames[:0], s.frames[drop*2:]...)
		s.pos = 0
	}
}

// Queued returns the number of source frames waiting to be played.
func (s *PCMSource) Queued() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.frames) / 2
}

// Underruns counts Process calls that ran out of queued data.
func (s *PCMSource) Underruns() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.underruns
}

// Process fills dst with interleaved stereo frames, zero once the queue is
// empty.
func (s *PCMSource) Process(dst []float32) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := len(s.frames) / 2
	out := 0
	for ; out+1 < len(dst); out += 2 {
		i := int(s.pos)
		if i+1 >= n {
			break
		}
		frac := float32(s.pos - float64(i))
		a, b := s.frames[i*2:], s.frames[(i+1)*2:]
		dst[out] = a[0] + (b[0]-a[0])*frac
		dst[out+1] = a[1] + (b[1]-a[1])*frac
		s.pos += s.step
	}
	if out < len(dst) {
		s.underruns++
		clear(dst[out:])
	}

	consumed := min(int(s.pos), n)
	if consumed > 0 {
		s.frames = append(s.frames[:0], s.frames[consumed*2:]...)
		s.pos -= float64(consumed)
	}
}
