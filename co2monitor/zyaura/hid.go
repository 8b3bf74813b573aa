package zyaura

import (
	"time"

	"github.com/pkg/errors"
	"github.com/sstallion/go-hid"
)

// USB identifiers of the ZyAura ZG01-based monitor (Holtek interface chip).
const (
	vendorID  = 0x04d9
	productID = 0xa052
)

// Transport is the HID device boundary. It exists so a Session can be
// driven by a fake in tests; the only production implementation wraps a
// hidapi handle.
type Transport interface {
	// ReadTimeout reads one report into buf, waiting at most timeout.
	// An expired timeout is reported as (0, nil), not as an error.
	ReadTimeout(buf []byte, timeout time.Duration) (int, error)

	// Read reads one report using the transport's own blocking behaviour.
	Read(buf []byte) (int, error)

	// SendFeatureReport writes a feature report, report ID first.
	SendFeatureReport(data []byte) (int, error)

	// ReleaseNumber returns the device's binary-coded firmware release.
	ReleaseNumber() (uint16, error)

	Close() error
}

// OpenTransport opens the first attached monitor.
func OpenTransport() (Transport, error) {
	if err := hid.Init(); err != nil {
		return nil, errors.Wrap(err, "failed to init hidapi")
	}
	dev, err := hid.OpenFirst(vendorID, productID)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open hid device %04x:%04x", vendorID, productID)
	}
	return &hidTransport{dev: dev}, nil
}

type hidTransport struct {
	dev *hid.Device
}

func (t *hidTransport) ReadTimeout(buf []byte, timeout time.Duration) (int, error) {
	return t.dev.ReadWithTimeout(buf, timeout)
}

func (t *hidTransport) Read(buf []byte) (int, error) {
	return t.dev.Read(buf)
}

func (t *hidTransport) SendFeatureReport(data []byte) (int, error) {
	return t.dev.SendFeatureReport(data)
}

func (t *hidTransport) ReleaseNumber() (uint16, error) {
	info, err := t.dev.GetDeviceInfo()
	if err != nil {
		return 0, errors.Wrap(err, "failed to read device info")
	}
	return info.ReleaseNbr, nil
}

func (t *hidTransport) Close() error {
	return t.dev.Close()
}
