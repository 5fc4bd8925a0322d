package audio

import (
	"encoding/binary"
	"io"
	"math"
	"testing"
)

func TestPCMFormatDecode(t *testing.T) {
	u8 := PCMFormat{Bits: 8, Unsigned: true, Channels: 1, Rate: 8000}
	if got := u8.sample([]byte{128}); got != 0 {
		t.Fatalf("u8 center = %v", got)
	}
	if got := u8.sample([]byte{0}); got != -1 {
		t.Fatalf("u8 min = %v", got)
	}

	s16 := PCMFormat{Bits: 16, Channels: 1, Rate: 8000}
	b := make([]byte, 2)
	v := int16(-16384)
	binary.LittleEndian.PutUint16(b, uint16(v))
	if got := s16.sample(b); got != -0.5 {
		t.Fatalf("s16 = %v", got)
	}

	s32 := PCMFormat{Bits: 32, Channels: 1, Rate: 8000}
	b = make([]byte, 4)
	binary.LittleEndian.PutUint32(b, 1<<30)
	if got := s32.sample(b); got != 0.5 {
		t.Fatalf("s32 = %v", got)
	}
}

func TestPCMSourcePassThrough(t *testing.T) {
	src := NewPCMSource(PCMFormat{Bits: 8, Unsigned: true, Channels: 1, Rate: 8000}, 8000)
	src.Push([]byte{128, 192, 64, 128, 0})

	dst := make([]float32, 8)
	src.Process(dst)
	want := []float32{0, 0, 0.5, 0.5, -0.5, -0.5, 0, 0}
	for i := range want {
		if dst[i] != want[i] {
			t.Fatalf("dst[%d] = %v, want %v", i, dst[i], want[i])
		}
	}
	if src.Underruns() != 0 {
		t.Fatalf("unexpected underrun")
	}
	// The last frame stays queued as the interpolation endpoint.
	if got := src.Queued(); got != 1 {
		t.Fatalf("queued = %d, want 1", got)
	}
}

func TestPCMSourceStereoChannels(t *testing.T) {
	src := NewPCMSource(PCMFormat{Bits: 8, Unsigned: true, Channels: 2, Rate: 100}, 100)
	src.Push([]byte{192, 64, 192, 64})
	dst := make([]float32, 2)
	src.Process(dst)
	if dst[0] != 0.5 || dst[1] != -0.5 {
		t.Fatalf("dst = %v", dst)
	}
}

func TestPCMSourceUpsamples(t *testing.T) {
	src := NewPCMSource(PCMFormat{Bits: 8, Unsigned: true, Channels: 1, Rate: 4000}, 8000)
	src.Push([]byte{128, 192, 128})

	dst := make([]float32, 8)
	src.Process(dst)
	want := []float32{0, 0.25, 0.5, 0.25}
	for i, w := range want {
		if math.Abs(float64(dst[i*2]-w)) > 1e-6 {
			t.Fatalf("frame %d = %v, want %v", i, dst[i*2], w)
		}
	}
}

func TestPCMSourceUnderrunPlaysSilence(t *testing.T) {
	src := NewPCMSource(PCMFormat{Bits: 8, Unsigned: true, Channels: 1, Rate: 8000}, 8000)
	src.Push([]byte{255, 255})
	dst := []float32{9, 9, 9, 9, 9, 9}
	src.Process(dst)
	if dst[0] == 0 {
		t.Fatalf("first frame should carry data")
	}
	for i := 2; i < len(dst); i++ {
		if dst[i] != 0 {
			t.Fatalf("dst[%d] = %v, want silence", i, dst[i])
		}
	}
	if src.Underruns() != 1 {
		t.Fatalf("underruns = %d", src.Underruns())
	}
}

func TestPCMSourceKeepsPartialFrames(t *testing.T) {
	src := NewPCMSource(PCMFormat{Bits: 16, Channels: 1, Rate: 8000}, 8000)
	src.Push([]byte{0})
	if src.Queued() != 0 {
		t.Fatalf("partial frame queued")
	}
	src.Push([]byte{0x40, 0})
	if got := src.Queued(); got != 1 {
		t.Fatalf("queued = %d, want 1", got)
	}
}

func TestPCMSourceBoundsQueue(t *testing.T) {
	src := NewPCMSource(PCMFormat{Bits: 8, Unsigned: true, Channels: 1, Rate: 100}, 100)
	src.Push(make([]byte, 250))
	if got := src.Queued(); got != 100 {
		t.Fatalf("queued = %d, want 100", got)
	}
}

func TestStreamReaderEncodesFloat32(t *testing.T) {
	src := NewPCMSource(PCMFormat{Bits: 8, Unsigned: true, Channels: 1, Rate: 8000}, 8000)
	src.Push([]byte{192, 192})
	r := NewStreamReader(src)
	p := make([]byte, 8)
	n, err := r.Read(p)
	if err != nil || n != 8 {
		t.Fatalf("read = %d, %v", n, err)
	}
	if got := math.Float32frombits(binary.LittleEndian.Uint32(p)); got != 0.5 {
		t.Fatalf("left = %v", got)
	}
}

func TestStreamReaderCountsFramesAndCloses(t *testing.T) {
	src := NewPCMSource(PCMFormat{Bits: 8, Unsigned: true, Channels: 1, Rate: 8000}, 8000)
	r := NewStreamReader(src)
	p := make([]byte, 8*4+3)
	n, err := r.Read(p)
	if err != nil || n != 32 {
		t.Fatalf("read = %d, %v", n, err)
	}
	if r.Frames() != 4 {
		t.Fatalf("frames = %d", r.Frames())
	}
	r.Close()
	if _, err := r.Read(p); err != io.EOF {
		t.Fatalf("read after close = %v, want EOF", err)
	}
}
