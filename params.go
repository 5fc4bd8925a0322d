package vosc

import (
	"fmt"
	"slices"
	"strings"
)

// Format is a PCM sample format.
type Format int

const (
	FormatInvalid Format = iota
	FormatU8
	FormatS16LE
	FormatS32LE
)

// Width returns the sample width in bits, or 0 for an unknown format.
func (f Format) Width() int {
	switch f {
	case FormatU8:
		return 8
	case FormatS16LE:
		return 16
	case FormatS32LE:
		return 32
	default:
		return 0
	}
}

// Unsigned reports whether samples are stored offset-binary.
func (f Format) Unsigned() bool { return f == FormatU8 }

func (f Format) String() string {
	switch f {
	case FormatU8:
		return "u8"
	case FormatS16LE:
		return "s16le"
	case FormatS32LE:
		return "s32le"
	default:
		return fmt.Sprintf("format(%d)", int(f))
	}
}

// ParseFormat maps a name such as "u8" or "s16le" to a Format.
func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "u8":
		return FormatU8, nil
	case "s16le", "s16":
		return FormatS16LE, nil
	case "s32le", "s32":
		return FormatS32LE, nil
	default:
		return FormatInvalid, fmt.Errorf("unknown sample format %q (expected u8|s16le|s32le)", name)
	}
}

// Params are the capture parameters agreed with the host. They are fixed
// once a device is prepared.
type Params struct {
	Rate        int
	Channels    int
	Format      Format
	PeriodBytes int
	BufferBytes int
}

// DefaultParams returns the parameters of the stock device: 8 kHz unsigned
// 8-bit mono, 48-byte periods and a 32-period buffer.
func DefaultParams() Params {
	return Params{
		Rate:        8000,
		Channels:    1,
		Format:      FormatU8,
		PeriodBytes: 48,
		BufferBytes: 32 * 48,
	}
}

// BytesPerFrame returns the size of one sample across all channels.
func (p Params) BytesPerFrame() int {
	return p.Channels * p.Format.Width() / 8
}

// BytesPerSecond returns the capture data rate.
func (p Params) BytesPerSecond() int {
	return p.Rate * p.BytesPerFrame()
}

// Validate reports whether the device can run with p.
func (p Params) Validate() error {
	if p.Rate <= 0 || p.Channels <= 0 || p.BytesPerSecond() <= 0 {
		return fmt.Errorf("%w: %d bytes per second (rate %d, channels %d, format %v)",
			ErrInvalidParameters, p.BytesPerSecond(), p.Rate, p.Channels, p.Format)
	}
	bpf := p.BytesPerFrame()
	switch {
	case p.PeriodBytes <= 0:
		return fmt.Errorf("%w: period of %d bytes", ErrInvalidParameters, p.PeriodBytes)
	case p.BufferBytes <= 0:
		return fmt.Errorf("%w: buffer of %d bytes", ErrInvalidParameters, p.BufferBytes)
	case p.PeriodBytes > p.BufferBytes:
		return fmt.Errorf("%w: period %d larger than buffer %d", ErrInvalidParameters, p.PeriodBytes, p.BufferBytes)
	case p.PeriodBytes%bpf != 0 || p.BufferBytes%bpf != 0:
		return fmt.Errorf("%w: period %d / buffer %d not a multiple of %d-byte frames",
			ErrInvalidParameters, p.PeriodBytes, p.BufferBytes, bpf)
	}
	return nil
}

// Constraints describe what the device hardware accepts.
type Constraints struct {
	Formats        []Format
	RateMin        int
	RateMax        int
	ChannelsMin    int
	ChannelsMax    int
	BufferBytesMax int
	PeriodBytesMin int
	PeriodBytesMax int
	PeriodsMin     int
	PeriodsMax     int
}

// DefaultConstraints returns the stock device capabilities.
func DefaultConstraints() Constraints {
	return Constraints{
		Formats:        []Format{FormatU8},
		RateMin:        8000,
		RateMax:        8000,
		ChannelsMin:    1,
		ChannelsMax:    1,
		BufferBytesMax: 32 * 48,
		PeriodBytesMin: 48,
		PeriodBytesMax: 48,
		PeriodsMin:     1,
		PeriodsMax:     32,
	}
}

// OpenConstraints accept any format and a wide range of geometries.
func OpenConstraints() Constraints {
	return Constraints{
		Formats:        []Format{FormatU8, FormatS16LE, FormatS32LE},
		RateMin:        1000,
		RateMax:        192000,
		ChannelsMin:    1,
		ChannelsMax:    8,
		BufferBytesMax: 4 << 20,
		PeriodBytesMin: 1,
		PeriodBytesMax: 1 << 20,
		PeriodsMin:     1,
		PeriodsMax:     1024,
	}
}

// Negotiate fits req into c the way a host refines hardware parameters:
// rate, channels and period are clamped, the buffer is rounded to a whole
// number of periods. Zero fields in req take the largest allowed value.
func (c Constraints) Negotiate(req Params) (Params, error) {
	if !slices.Contains(c.Formats, req.Format) {
		return Params{}, fmt.Errorf("%w: format %v not supported", ErrInvalidParameters, req.Format)
	}
	p := Params{Format: req.Format}
	p.Rate = clampDefault(req.Rate, c.RateMin, c.RateMax)
	p.Channels = clampDefault(req.Channels, c.ChannelsMin, c.ChannelsMax)

	bpf := p.BytesPerFrame()
	if bpf <= 0 {
		return Params{}, fmt.Errorf("%w: empty frame", ErrInvalidParameters)
	}
	period := clampDefault(req.PeriodBytes, c.PeriodBytesMin, c.PeriodBytesMax)
	period -= period % bpf
	if period < bpf {
		period = bpf
	}
	if period > c.PeriodBytesMax || period > c.BufferBytesMax {
		return Params{}, fmt.Errorf("%w: no period fits %d-byte frames", ErrInvalidParameters, bpf)
	}
	p.PeriodBytes = period

	periods := c.PeriodsMax
	if req.BufferBytes > 0 {
		periods = req.BufferBytes / period
	}
	periods = min(max(periods, c.PeriodsMin), c.PeriodsMax, c.BufferBytesMax/period)
	if periods < c.PeriodsMin || periods < 1 {
		return Params{}, fmt.Errorf("%w: buffer limit %d holds fewer than %d periods of %d bytes",
			ErrInvalidParameters, c.BufferBytesMax, c.PeriodsMin, period)
	}
	p.BufferBytes = periods * period
	return p, p.Validate()
}

func clampDefault(v, lo, hi int) int {
	if v <= 0 {
		return hi
	}
	return min(max(v, lo), hi)
}
