//go:build !windows
// +build !windows

package midiwindows

import (
	"errors"

	"github.com/leandrodaf/posemidi/sdk/contracts"
)

// ErrUnavailable is returned by every method of the dummy source.
var ErrUnavailable = errors.New("winmm is not available on this platform")

type dummyTriggerSource struct {
	logger contracts.Logger
}

// NewTriggerSource returns a trigger source that never produces events.
func NewTriggerSource(options *contracts.Options) (contracts.TriggerSource, error) {
	options.Logger.Info("Using dummy winmm trigger source for non-Windows system")
	return &dummyTriggerSource{logger: options.Logger}, nil
}

func (m *dummyTriggerSource) ListDevices() ([]contracts.DeviceInfo, error) {
	m.logger.Warn("ListDevices called on dummy winmm trigger source")
	return nil, ErrUnavailable
}

func (m *dummyTriggerSource) SelectDevice(deviceID int) error {
	m.logger.Warn("SelectDevice called on dummy winmm trigger source")
	return ErrUnavailable
}

func (m *dummyTriggerSource) StartCapture(eventChannel chan contracts.TriggerEvent) {
	m.logger.Warn("StartCapture called on dummy winmm trigger source")
}

func (m *dummyTriggerSource) Stop() error {
	return nil
}
