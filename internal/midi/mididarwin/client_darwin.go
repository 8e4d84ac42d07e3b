//go:build darwin
// +build darwin

package mididarwin

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/leandrodaf/posemidi/internal/midi/trigger"
	"github.com/leandrodaf/posemidi/sdk/contracts"
	"github.com/youpy/go-coremidi"
)

// Error definitions for MIDI connection and handling issues.
var (
	ErrNoMIDIDevices       = errors.New("no MIDI devices found")
	ErrInvalidMIDIDevice   = errors.New("invalid MIDI device")
	ErrMIDIConnectionError = errors.New("error connecting to MIDI device")
	ErrCreateInputPort     = errors.New("error creating input port")
)

// internalPortConnection is an interface for handling disconnection from a MIDI port.
type internalPortConnection interface {
	Disconnect()
}

// TriggerSource receives trigger events from a CoreMIDI source on macOS.
// Packets are decoded on the CoreMIDI callback thread and handed to the
// capture channel without blocking.
type TriggerSource struct {
	logger        contracts.Logger
	eventChannel  atomic.Value              // chan contracts.TriggerEvent, swapped on Start/Stop.
	client        coremidi.Client           // CoreMIDI client instance.
	inputPort     coremidi.InputPort        // Input port for receiving MIDI packets.
	portConn      internalPortConnection    // Connection to the selected source.
	triggerFilter *contracts.TriggerFilter  // Optional trigger channel filter.
	config        *contracts.CoreMIDIConfig // Configuration for the CoreMIDI client.
	mu            sync.Mutex
	capturing     bool
	wg            sync.WaitGroup // Tracks callbacks in flight.
}

// NewTriggerSource creates a CoreMIDI client for receiving triggers.
func NewTriggerSource(options *contracts.Options) (contracts.TriggerSource, error) {
	client, err := coremidi.NewClient(options.CoreMIDIConfig.ClientName)
	if err != nil {
		return nil, err
	}
	options.Logger.Info("CoreMIDI client created",
		options.Logger.Field().String("client", options.CoreMIDIConfig.ClientName))

	return &TriggerSource{
		logger:        options.Logger,
		client:        client,
		triggerFilter: options.TriggerFilter,
		config:        options.CoreMIDIConfig,
	}, nil
}

// ListDevices returns the available CoreMIDI sources.
func (m *TriggerSource) ListDevices() ([]contracts.DeviceInfo, error) {
	sources, err := coremidi.AllSources()
	if err != nil {
		return nil, fmt.Errorf("error listing MIDI sources: %w", err)
	}
	if len(sources) == 0 {
		m.logger.Warn(ErrNoMIDIDevices.Error())
		return nil, ErrNoMIDIDevices
	}

	devices := make([]contracts.DeviceInfo, len(sources))
	for i, source := range sources {
		sourceEntity := source.Entity()
		devices[i] = contracts.DeviceInfo{
			ID:           i,
			Name:         source.Name(),
			EntityName:   sourceEntity.Name(),
			Manufacturer: sourceEntity.Manufacturer(),
		}
	}
	return devices, nil
}

// SelectDevice connects to the source at index deviceID, replacing any
// previous connection.
func (m *TriggerSource) SelectDevice(deviceID int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	sources, err := coremidi.AllSources()
	if err != nil {
		return fmt.Errorf("error retrieving MIDI sources: %w", err)
	}
	if deviceID < 0 || deviceID >= len(sources) {
		m.logger.Error(ErrInvalidMIDIDevice.Error(), m.logger.Field().Int("deviceID", deviceID))
		return fmt.Errorf("%w: %d", ErrInvalidMIDIDevice, deviceID)
	}

	if m.portConn != nil {
		m.portConn.Disconnect()
		m.portConn = nil
	}

	source := sources[deviceID]
	m.inputPort, err = coremidi.NewInputPort(m.client, "Trigger Input", m.handlePacket)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCreateInputPort, err)
	}

	m.portConn, err = m.inputPort.Connect(source)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMIDIConnectionError, err)
	}

	m.logger.Info("trigger input connected",
		m.logger.Field().Int("deviceID", deviceID),
		m.logger.Field().String("deviceName", source.Name()))
	return nil
}

// handlePacket decodes a CoreMIDI packet into a trigger event.
func (m *TriggerSource) handlePacket(source coremidi.Source, packet coremidi.Packet) {
	m.wg.Add(1)
	defer m.wg.Done()

	eventChannel, _ := m.eventChannel.Load().(chan contracts.TriggerEvent)
	if eventChannel == nil {
		return
	}

	event, err := trigger.Decode(packet.Data, uint64(time.Now().UTC().UnixNano()))
	if err != nil {
		if !errors.Is(err, trigger.ErrNotTrigger) {
			m.logger.Warn("dropping MIDI packet", m.logger.Field().Error("error", err))
		}
		return
	}
	trigger.Deliver(eventChannel, m.triggerFilter, event, m.logger)
}

// StartCapture starts delivering trigger events to eventChannel.
func (m *TriggerSource) StartCapture(eventChannel chan contracts.TriggerEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if eventChannel == nil {
		m.logger.Error("StartCapture called with nil eventChannel")
		return
	}
	if m.capturing {
		m.logger.Warn("capture already started; switching event channel")
	}

	m.eventChannel.Store(eventChannel)
	m.capturing = true
	m.logger.Info("trigger capture started")
}

// Stop disconnects from the source and waits for callbacks in flight.
// It may be called more than once.
func (m *TriggerSource) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.portConn != nil {
		m.portConn.Disconnect()
		m.portConn = nil
	}
	if !m.capturing {
		return nil
	}
	m.capturing = false

	// Late callbacks see a nil channel and return.
	m.eventChannel.Store((chan contracts.TriggerEvent)(nil))
	m.wg.Wait()
	m.logger.Info("trigger capture stopped")
	return nil
}
