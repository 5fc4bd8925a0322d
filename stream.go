package vosc

import (
	"errors"
	"io"
	"sync"
)

// Stream reads captured audio the way a host application does: it sleeps
// until a period elapses, then copies everything captured since the last
// read.
type Stream struct {
	d         *Device
	wake      chan struct{}
	closed    chan struct{}
	closeOnce sync.Once

	mu   sync.Mutex
	from uint64
}

// NewStream returns a reader positioned at the current capture offset.
func (d *Device) NewStream() *Stream {
	s := &Stream{
		d:      d,
		wake:   make(chan struct{}, 1),
		closed: make(chan struct{}),
		from:   d.produced(),
	}
	d.streamsMu.Lock()
	d.streams[s] = struct{}{}
	d.streamsMu.Unlock()
	return s
}

// Read blocks until captured data is available. It returns io.EOF once the
// device is no longer running and everything captured has been read, and
// ErrOverrun when the reader fell a full buffer behind; reading may continue
// after an overrun from the oldest data still held.
func (s *Stream) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for {
		select {
		case <-s.closed:
			return 0, ErrClosed
		default:
		}
		n, next, err := s.d.ReadCaptured(p, s.from)
		s.from = next
		switch {
		case errors.Is(err, ErrBadState):
			return 0, io.EOF
		case err != nil:
			return 0, err
		case n > 0:
			return n, nil
		}
		if s.d.State() != StateRunning {
			return 0, io.EOF
		}
		select {
		case <-s.wake:
		case <-s.closed:
			return 0, ErrClosed
		}
	}
}

// Close detaches the stream and unblocks a pending Read.
func (s *Stream) Close() error {
	s.closeOnce.Do(func() {
		close(s.closed)
		s.d.streamsMu.Lock()
		delete(s.d.streams, s)
		s.d.streamsMu.Unlock()
	})
	return nil
}

func (d *Device) wakeStreams() {
	d.streamsMu.Lock()
	defer d.streamsMu.Unlock()
	for s := range d.streams {
		select {
		case s.wake <- struct{}{}:
		default:
		}
	}
}
