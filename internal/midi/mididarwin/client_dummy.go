//go:build !darwin
// +build !darwin

package mididarwin

import (
	"errors"

	"github.com/leandrodaf/posemidi/sdk/contracts"
)

// ErrUnavailable is returned by every method of the dummy source.
var ErrUnavailable = errors.New("CoreMIDI is not available on this platform")

// DummyTriggerSource stands in for the CoreMIDI source on other platforms.
type DummyTriggerSource struct {
	logger contracts.Logger
}

func NewTriggerSource(options *contracts.Options) (contracts.TriggerSource, error) {
	options.Logger.Info("Using dummy CoreMIDI trigger source for non-macOS system")
	return &DummyTriggerSource{logger: options.Logger}, nil
}

func (m *DummyTriggerSource) ListDevices() ([]contracts.DeviceInfo, error) {
	m.logger.Warn("ListDevices called on dummy CoreMIDI trigger source")
	return nil, ErrUnavailable
}

func (m *DummyTriggerSource) SelectDevice(deviceID int) error {
	m.logger.Warn("SelectDevice called on dummy CoreMIDI trigger source")
	return ErrUnavailable
}

func (m *DummyTriggerSource) StartCapture(eventChannel chan contracts.TriggerEvent) {
	m.logger.Warn("StartCapture called on dummy CoreMIDI trigger source")
}

func (m *DummyTriggerSource) Stop() error {
	return nil
}
