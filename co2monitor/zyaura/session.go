package zyaura

import (
	"math"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/vit1251/go-co2mon/co2monitor"
)

// Measurement codes reported in byte 0 of a decoded frame.
const (
	codeHumidity      = 0x41 /* Relative Humidity */
	codeTemperature   = 0x42 /* Ambient Temperature */
	codeConcentration = 0x50 /* Relative Concentration of CO2 */
)

// frameMarker is the constant expected in byte 4 of every decoded frame.
const frameMarker = 0x0d

// spuriousConcentration is the ppm value above which the sensor is taken
// to be warming up rather than measuring.
const spuriousConcentration = 3000

// decodeMaxRelease: firmware up to this release sends obfuscated
// reports; newer firmware sends frames in the clear.
const decodeMaxRelease = 0x0100

// DefaultTimeout bounds a single report read unless overridden.
const DefaultTimeout = 5 * time.Second

// ErrInvalidTimeout is returned by Builder.Open when the configured
// timeout cannot be expressed in the transport's millisecond unit.
var ErrInvalidTimeout = errors.New("timeout not representable in transport milliseconds")

// Builder configures and opens a Session. The zero value is usable;
// every setter keeps only its last call. A zero timeout means
// DefaultTimeout.
type Builder struct {
	key       co2monitor.Frame
	timeout   time.Duration
	noTimeout bool
	debug     bool
	open      func() (Transport, error)
}

func NewBuilder() *Builder {
	return &Builder{}
}

// Key sets the 8-byte obfuscation key seeded into the device at open.
func (b *Builder) Key(key [8]byte) *Builder {
	b.key = key
	return b
}

// Timeout bounds each report read.
func (b *Builder) Timeout(d time.Duration) *Builder {
	b.timeout = d
	b.noTimeout = false
	return b
}

// NoTimeout requests the transport's own default blocking behaviour.
func (b *Builder) NoTimeout() *Builder {
	b.noTimeout = true
	b.timeout = 0
	return b
}

// Debug enables a log dump of every decoded frame.
func (b *Builder) Debug(debug bool) *Builder {
	b.debug = debug
	return b
}

// Transport overrides how the device handle is acquired.
func (b *Builder) Transport(open func() (Transport, error)) *Builder {
	b.open = open
	return b
}

// Open validates the configuration, acquires the device and seeds its
// obfuscation key. The returned Session owns the handle.
func (b *Builder) Open() (*Session, error) {
	timeout := b.timeout
	if !b.noTimeout {
		if timeout == 0 {
			timeout = DefaultTimeout
		}
		if timeout < 0 || timeout/time.Millisecond > math.MaxInt32 {
			return nil, ErrInvalidTimeout
		}
	}

	open := b.open
	if open == nil {
		open = OpenTransport
	}
	dev, err := open()
	if err != nil {
		return nil, errors.Wrap(err, "failed to open monitor")
	}

	release, err := dev.ReleaseNumber()
	if err != nil {
		_ = dev.Close()
		return nil, errors.Wrap(err, "failed to query firmware release")
	}
	decode := release <= decodeMaxRelease
	log.Debugf("firmware release 0x%04x, frame decode enabled %v", release, decode)

	report := make([]byte, 0, 9)
	report = append(report, 0x00)
	report = append(report, b.key[:]...)
	if _, err := dev.SendFeatureReport(report); err != nil {
		// The device keeps its key across opens; a previous session may
		// have seeded it already.
		log.Warnf("failed to send key feature report: %s", err)
	}

	return &Session{
		dev:       dev,
		key:       b.key,
		decode:    decode,
		timeout:   timeout,
		noTimeout: b.noTimeout,
		debug:     b.debug,
	}, nil
}

// Session owns one opened monitor and yields one event per Read call.
// Not safe for concurrent use; one session per physical device.
type Session struct {
	dev       Transport
	key       co2monitor.Frame
	decode    bool
	timeout   time.Duration
	noTimeout bool
	debug     bool
}

// Read blocks for up to the configured timeout and returns the outcome
// of one report cycle. Validation and classification failures come back
// as events; a non-nil error means the transport failed and the
// sequence is over. Retrying is the caller's loop.
func (s *Session) Read() (co2monitor.Event, error) {
	var buf [8]byte
	var n int
	var err error
	if s.noTimeout {
		n, err = s.dev.Read(buf[:])
	} else {
		n, err = s.dev.ReadTimeout(buf[:], s.timeout)
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to read report")
	}
	if n != len(buf) {
		log.Warnf("short report from device (%d bytes, want %d)", n, len(buf))
		return co2monitor.WrongPacket{}, nil
	}

	frame := co2monitor.Frame(buf)
	if s.decode {
		frame = Decrypt(frame, s.key)
	}

	if frame[4] != frameMarker {
		log.Warnf("unexpected data from device (data[4] = 0x%02x, want 0x%02x)", frame[4], frameMarker)
		return co2monitor.UnexpectedData{Frame: frame}, nil
	}

	if sum := frame[0] + frame[1] + frame[2]; sum != frame[3] {
		log.Warnf("checksum error (0x%02x, await 0x%02x)", sum, frame[3])
		return co2monitor.ChecksumError{}, nil
	}

	if s.debug {
		log.Debugf("frame: % 02x", frame[:])
	}

	value := uint16(frame[1])<<8 | uint16(frame[2])
	switch frame[0] {
	case codeTemperature:
		t := float64(value)/16.0 - 273.15
		log.Infof("ambient temperature is %.2f", t)
		return co2monitor.AmbientTemperature{Celsius: t}, nil
	case codeConcentration:
		if value > spuriousConcentration {
			log.Warnf("reading spurious data, please wait")
			return co2monitor.UninitializedData{}, nil
		}
		log.Infof("relative concentration of CO2 is %d", value)
		return co2monitor.RelativeConcentration{PPM: value}, nil
	case codeHumidity:
		h := float64(value) / 100.0
		log.Infof("relative humidity is %.2f", h)
		return co2monitor.Humidity{Percent: h}, nil
	default:
		log.Debugf("unknown code 0x%02x value %d", frame[0], value)
		return co2monitor.UnknownCode{Frame: frame}, nil
	}
}

// Close releases the underlying device handle.
func (s *Session) Close() error {
	return s.dev.Close()
}
