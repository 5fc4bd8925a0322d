package vosc

import (
	"fmt"
	"io"
	"log"
	"sync"
	"sync/atomic"

	"github.com/cbegin/vosc-go/internal/clock"
	"github.com/cbegin/vosc-go/internal/position"
	"github.com/cbegin/vosc-go/internal/ring"
	"github.com/cbegin/vosc-go/internal/sched"
	"github.com/cbegin/vosc-go/internal/silence"
	"github.com/cbegin/vosc-go/internal/waveform"
)

// Clock is the tick source a Device runs on.
type Clock = clock.Clock

// Timer is a pending Clock wake-up.
type Timer = clock.Timer

// ManualClock is a Clock that only moves when told to. Useful for tests and
// offline rendering.
type ManualClock = clock.Manual

// NewSystemClock returns a wall-clock tick source running at hz.
func NewSystemClock(hz uint64) Clock { return clock.NewSystem(hz) }

// NewManualClock returns a manual tick source at tick zero.
func NewManualClock(hz uint64) *ManualClock { return clock.NewManual(hz) }

// DefaultPlaceholder fills buffer regions no synthesis has reached.
const DefaultPlaceholder = ring.DefaultPlaceholder

// State is the device lifecycle stage.
type State int

const (
	StateIdle State = iota
	StatePrepared
	StateRunning
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePrepared:
		return "prepared"
	case StateRunning:
		return "running"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Option configures a Device at construction.
type Option func(*deviceConfig)

type deviceConfig struct {
	clock       Clock
	onPeriod    func()
	table       *waveform.Table
	placeholder byte
	logger      *log.Logger
}

func defaultDeviceConfig() deviceConfig {
	return deviceConfig{
		placeholder: DefaultPlaceholder,
	}
}

// WithClock sets the tick source. The default is a 1 kHz system clock.
func WithClock(c Clock) Option {
	return func(cfg *deviceConfig) {
		cfg.clock = c
	}
}

// WithPeriodElapsed installs the host notification invoked once per period
// boundary. It runs on the tick goroutine without the device lock held, so
// it may query the device, but it must not call Stop or Close directly.
func WithPeriodElapsed(fn func()) Option {
	return func(cfg *deviceConfig) {
		cfg.onPeriod = fn
	}
}

// WithWaveform replaces the built-in waveform with one cycle of raw sample
// bytes. The slice is copied.
func WithWaveform(samples []byte) Option {
	return func(cfg *deviceConfig) {
		cfg.table = waveform.New(samples)
	}
}

// WithSineWaveform uses a sine cycle of size bytes around center.
func WithSineWaveform(size int, center, amplitude byte) Option {
	return func(cfg *deviceConfig) {
		cfg.table = waveform.Sine(size, center, amplitude)
	}
}

// WithPlaceholder sets the byte written to not-yet-synthesized regions.
func WithPlaceholder(b byte) Option {
	return func(cfg *deviceConfig) {
		cfg.placeholder = b
	}
}

// WithLogger enables trace output of state transitions.
func WithLogger(l *log.Logger) Option {
	return func(cfg *deviceConfig) {
		cfg.logger = l
	}
}

// Device is a single-substream synthetic capture device. All methods are
// safe for concurrent use.
type Device struct {
	mu     sync.Mutex
	clock  Clock
	table  *waveform.Table
	logger *log.Logger
	cfg    deviceConfig

	open    bool
	state   State
	params  Params
	synth   bool
	buf     []byte
	silence silence.Tracker
	writer  *ring.Writer
	pos     *position.Tracker
	sched   *sched.Scheduler

	periods atomic.Uint64

	streamsMu sync.Mutex
	streams   map[*Stream]struct{}
}

// New returns a closed device. Without WithClock it runs on a 1 kHz system
// clock.
func New(opts ...Option) *Device {
	cfg := defaultDeviceConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.clock == nil {
		cfg.clock = clock.NewSystem(clock.DefaultHz)
	}
	if cfg.table == nil {
		cfg.table = waveform.Default()
	}
	if cfg.logger == nil {
		cfg.logger = log.New(io.Discard, "", 0)
	}
	d := &Device{
		clock:   cfg.clock,
		table:   cfg.table,
		logger:  cfg.logger,
		cfg:     cfg,
		synth:   true,
		streams: make(map[*Stream]struct{}),
	}
	d.sched = sched.New(&d.mu, d.clock, d.tick, d.periodElapsed)
	return d
}

// Open claims the capture stream.
func (d *Device) Open() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.open {
		return ErrBusy
	}
	d.open = true
	d.logger.Printf("open")
	return nil
}

// Prepare validates p and resets every counter. Nothing changes when p is
// rejected.
func (d *Device) Prepare(p Params) error {
	if err := p.Validate(); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.open {
		return ErrNotOpen
	}
	if d.state == StateRunning {
		return fmt.Errorf("%w: prepare while running", ErrBadState)
	}
	if len(d.buf) != p.BufferBytes {
		d.buf = make([]byte, p.BufferBytes)
	}
	d.params = p
	d.writer = ring.NewWriter(d.buf, d.table, &d.silence, d.cfg.placeholder)
	d.writer.SetSynthEnabled(d.synth)
	d.writer.Reset()
	d.pos = position.New(d.writer)
	d.pos.Reset(uint64(p.BytesPerSecond()), uint64(p.PeriodBytes), d.clock.TicksPerSecond())
	d.state = StatePrepared
	d.logger.Printf("prepare: %d Hz %d ch %v, period %d, buffer %d, %d B/s",
		p.Rate, p.Channels, p.Format, p.PeriodBytes, p.BufferBytes, p.BytesPerSecond())
	return nil
}

// Start begins capture. Starting a running device does nothing.
func (d *Device) Start() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	switch d.state {
	case StateRunning:
		return nil
	case StatePrepared:
	default:
		return fmt.Errorf("%w: start while %v", ErrBadState, d.state)
	}
	now := d.clock.Now()
	d.pos.Start(now)
	d.state = StateRunning
	d.sched.Start(d.pos.NextWake())
	d.logger.Printf("start: tick %d, next wake in %d", now, d.pos.NextWake())
	return nil
}

// Stop halts capture. When Stop returns no tick is in flight and none will
// fire. Stopping a stopped device does nothing.
func (d *Device) Stop() error {
	d.mu.Lock()
	if d.state != StateRunning {
		d.mu.Unlock()
		return nil
	}
	d.state = StatePrepared
	d.sched.Stop()
	d.logger.Printf("stop: cursor %d", d.writer.Cursor())
	d.mu.Unlock()

	d.sched.Wait()
	d.wakeStreams()
	return nil
}

// Close stops capture if needed and releases the stream and its buffer.
func (d *Device) Close() error {
	d.mu.Lock()
	if !d.open {
		d.mu.Unlock()
		return nil
	}
	if d.state == StateRunning {
		d.sched.Stop()
	}
	d.state = StateIdle
	d.open = false
	d.params = Params{}
	d.buf = nil
	d.writer = nil
	d.pos = nil
	d.silence.Reset(0)
	d.logger.Printf("close")
	d.mu.Unlock()

	d.sched.Wait()
	d.wakeStreams()
	return nil
}

// CapturePositionFrames folds elapsed time into the position and returns the
// buffer cursor in frames. It returns 0 before Prepare.
func (d *Device) CapturePositionFrames() uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.state == StateIdle {
		return 0
	}
	d.advance()
	return uint64(d.writer.Cursor() / d.params.BytesPerFrame())
}

// State returns the current state.
func (d *Device) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// Params returns the prepared parameters.
func (d *Device) Params() Params {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.params
}

// Buffer returns the capture buffer itself, without copying. Callers must
// treat it as read-only; it is rewritten concurrently while running.
func (d *Device) Buffer() []byte {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.buf
}

// CopyBuffer copies the capture buffer into dst under the device lock and
// returns the cursor in bytes at the time of the copy.
func (d *Device) CopyBuffer(dst []byte) (n int, cursor int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.state == StateIdle {
		return 0, 0
	}
	d.advance()
	return copy(dst, d.buf), d.writer.Cursor()
}

// SilentBytes returns how many buffer bytes hold placeholder data.
func (d *Device) SilentBytes() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.silence.Silent()
}

// PeriodsElapsed returns how many period notifications have been delivered.
func (d *Device) PeriodsElapsed() uint64 { return d.periods.Load() }

// SetSynthEnabled switches the source between the waveform and placeholder
// silence. Time already elapsed is produced in the previous mode.
func (d *Device) SetSynthEnabled(enabled bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.writer != nil {
		d.advance()
		d.writer.SetSynthEnabled(enabled)
	}
	d.synth = enabled
}

// SynthEnabled reports whether the waveform is being synthesized.
func (d *Device) SynthEnabled() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.synth
}

// ReadCaptured copies captured bytes starting at the absolute byte offset
// from (counted since Prepare) into dst. It returns the bytes copied and the
// offset to continue from. When more than a buffer's worth is pending, the
// oldest data is gone: ErrOverrun is returned with next set to the oldest
// offset still readable.
func (d *Device) ReadCaptured(dst []byte, from uint64) (n int, next uint64, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.state == StateIdle {
		return 0, from, fmt.Errorf("%w: read while idle", ErrBadState)
	}
	d.advance()
	produced := d.pos.Produced()
	size := uint64(len(d.buf))
	if from > produced {
		return 0, produced, fmt.Errorf("%w: offset %d ahead of capture %d", ErrOverrun, from, produced)
	}
	if produced-from > size {
		return 0, produced - size, fmt.Errorf("%w: %d bytes behind a %d-byte buffer", ErrOverrun, produced-from, size)
	}
	avail := int(produced - from)
	n = min(len(dst), avail)
	off := int(from % size)
	first := copy(dst[:n], d.buf[off:])
	copy(dst[first:n], d.buf)
	return n, from + uint64(n), nil
}

// produced returns the absolute capture offset, 0 before Prepare.
func (d *Device) produced() uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.pos == nil {
		return 0
	}
	d.advance()
	return d.pos.Produced()
}

// advance folds time up to now into the position. Caller holds d.mu.
func (d *Device) advance() {
	if d.state != StateRunning {
		return
	}
	d.pos.Advance(d.clock.Now())
}

// tick runs from the scheduler with d.mu held.
func (d *Device) tick(now uint64) (uint64, int) {
	d.pos.Advance(now)
	periods := 0
	for d.pos.ConsumePeriodPending() {
		periods++
	}
	return d.pos.NextWake(), periods
}

func (d *Device) periodElapsed() {
	d.periods.Add(1)
	if d.cfg.onPeriod != nil {
		d.cfg.onPeriod()
	}
	d.wakeStreams()
}
