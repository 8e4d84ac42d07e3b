package midigomidi

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"

	"github.com/leandrodaf/posemidi/internal/midi/trigger"
	"github.com/leandrodaf/posemidi/sdk/contracts"
)

// TriggerSource receives trigger events from an rtmidi input port.
type TriggerSource struct {
	mu            sync.Mutex
	drv           Driver
	in            drivers.In
	stopListen    func()
	eventChannel  atomic.Value // chan contracts.TriggerEvent
	triggerFilter *contracts.TriggerFilter
	logger        contracts.Logger
	onError       func(error)
}

// NewTriggerSource returns a source without a selected port.
func NewTriggerSource(drv Driver, options *contracts.Options) *TriggerSource {
	return &TriggerSource{
		drv:           drv,
		triggerFilter: options.TriggerFilter,
		logger:        options.Logger,
	}
}

// OnError registers fn to be called when the listener fails, typically
// because the device was unplugged.
func (m *TriggerSource) OnError(fn func(error)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onError = fn
}

// ListDevices returns the input ports.
func (m *TriggerSource) ListDevices() ([]contracts.DeviceInfo, error) {
	ins, err := m.drv.Ins()
	if err != nil {
		return nil, fmt.Errorf("error listing MIDI inputs: %w", err)
	}
	if len(ins) == 0 {
		m.logger.Warn(ErrNoDevices.Error())
		return nil, ErrNoDevices
	}
	devices := make([]contracts.DeviceInfo, len(ins))
	for i, in := range ins {
		devices[i] = portInfo(in)
	}
	return devices, nil
}

// SelectDevice starts listening on the input port numbered deviceID and
// closes the previous one.
func (m *TriggerSource) SelectDevice(deviceID int) error {
	ins, err := m.drv.Ins()
	if err != nil {
		return fmt.Errorf("error listing MIDI inputs: %w", err)
	}
	in, err := findPort(ins, deviceID)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.closeLocked()

	if err := in.Open(); err != nil {
		return fmt.Errorf("open %q: %w", in.String(), err)
	}
	name := in.String()
	stop, err := midi.ListenTo(in, m.handleMessage, midi.HandleError(func(listenErr error) {
		m.logger.Warn("MIDI listener error",
			m.logger.Field().String("device", name),
			m.logger.Field().Error("error", listenErr))
		// Must not take the lock on the listener goroutine.
		go m.reportError(listenErr)
	}))
	if err != nil {
		_ = in.Close()
		return fmt.Errorf("listen %q: %w", name, err)
	}

	m.in, m.stopListen = in, stop
	m.logger.Info("trigger input connected",
		m.logger.Field().Int("deviceID", deviceID),
		m.logger.Field().String("deviceName", name))
	return nil
}

func (m *TriggerSource) reportError(err error) {
	m.mu.Lock()
	onError := m.onError
	m.mu.Unlock()
	if onError != nil {
		onError(err)
	}
}

func (m *TriggerSource) handleMessage(msg midi.Message, _ int32) {
	eventChannel, _ := m.eventChannel.Load().(chan contracts.TriggerEvent)
	if eventChannel == nil {
		return
	}
	event, err := trigger.Decode(msg, uint64(time.Now().UTC().UnixNano()))
	if err != nil {
		if !errors.Is(err, trigger.ErrNotTrigger) {
			m.logger.Warn("dropping MIDI message",
				m.logger.Field().String("message", fmt.Sprintf("% X", []byte(msg))),
				m.logger.Field().Error("error", err))
		}
		return
	}
	trigger.Deliver(eventChannel, m.triggerFilter, event, m.logger)
}

// StartCapture starts delivering trigger events to eventChannel.
func (m *TriggerSource) StartCapture(eventChannel chan contracts.TriggerEvent) {
	if eventChannel == nil {
		m.logger.Error("StartCapture called with nil eventChannel")
		return
	}
	m.eventChannel.Store(eventChannel)
	m.logger.Info("trigger capture started")
}

// Stop stops listening and closes the input port.
func (m *TriggerSource) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.eventChannel.Store((chan contracts.TriggerEvent)(nil))
	return m.closeLocked()
}

func (m *TriggerSource) closeLocked() error {
	if m.stopListen != nil {
		m.stopListen()
		m.stopListen = nil
	}
	if m.in == nil {
		return nil
	}
	err := m.in.Close()
	m.in = nil
	return err
}
