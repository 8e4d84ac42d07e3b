// Package midigomidi talks to MIDI ports through gomidi and rtmidi. It works
// on every platform rtmidi supports and is the only output backend.
package midigomidi

import (
	"errors"
	"fmt"

	"gitlab.com/gomidi/midi/v2/drivers"
	"gitlab.com/gomidi/midi/v2/drivers/rtmididrv"

	"github.com/leandrodaf/posemidi/sdk/contracts"
)

var (
	ErrNoDevices      = errors.New("no MIDI devices found")
	ErrInvalidDevice  = errors.New("invalid MIDI device")
	ErrNoOutput       = errors.New("no MIDI output selected")
	ErrInvalidChannel = errors.New("invalid output channel")
)

// Driver is the part of a gomidi driver this package uses.
type Driver interface {
	Ins() ([]drivers.In, error)
	Outs() ([]drivers.Out, error)
	Close() error
}

// OpenDriver initialises rtmidi. Close the driver after the sources and
// senders built on it.
func OpenDriver() (Driver, error) {
	drv, err := rtmididrv.New()
	if err != nil {
		return nil, fmt.Errorf("rtmididrv: %w", err)
	}
	return drv, nil
}

func portInfo(p drivers.Port) contracts.DeviceInfo {
	return contracts.DeviceInfo{
		ID:         p.Number(),
		Name:       p.String(),
		EntityName: p.String(),
	}
}

func findPort[P drivers.Port](ports []P, deviceID int) (P, error) {
	for _, p := range ports {
		if p.Number() == deviceID {
			return p, nil
		}
	}
	var zero P
	return zero, fmt.Errorf("%w: %d", ErrInvalidDevice, deviceID)
}
