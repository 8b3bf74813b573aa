package co2monitor

// Frame is a single 8-byte report as exchanged with the monitor.
// Decoded frames have the layout: measurement code, big-endian 16-bit
// value, checksum, 0x0d marker, three bytes of padding.
type Frame [8]byte

// Event is the outcome of one read cycle. Exactly one of the concrete
// types below is returned per cycle; validation and classification
// failures are ordinary events, not errors.
type Event interface {
	event()
}

// AmbientTemperature is a temperature reading.
type AmbientTemperature struct {
	// units: degrees Celsius
	Celsius float64
}

// RelativeConcentration is a CO2 concentration reading.
type RelativeConcentration struct {
	// units: ppm
	PPM uint16
}

// Humidity is a relative humidity reading.
type Humidity struct {
	// units: % of relative Humidity
	Percent float64
}

// WrongPacket reports a read that did not return exactly 8 bytes.
type WrongPacket struct{}

// UnexpectedData reports a decoded frame without the 0x0d marker byte.
type UnexpectedData struct {
	Frame Frame
}

// ChecksumError reports a decoded frame whose checksum did not match.
type ChecksumError struct{}

// UninitializedData reports a CO2 value above the plausible range, seen
// while the sensor is still warming up.
type UninitializedData struct{}

// UnknownCode reports a well-formed frame with an unrecognized
// measurement code.
type UnknownCode struct {
	Frame Frame
}

func (AmbientTemperature) event()    {}
func (RelativeConcentration) event() {}
func (Humidity) event()              {}
func (WrongPacket) event()           {}
func (UnexpectedData) event()        {}
func (ChecksumError) event()         {}
func (UninitializedData) event()     {}
func (UnknownCode) event()           {}

// Sensor produces an unbounded sequence of events, one per Read call.
// The sequence ends when Read returns a non-nil error; soft failures
// come back as events and the caller simply reads again.
type Sensor interface {
	Read() (Event, error)
	Close() error
}
