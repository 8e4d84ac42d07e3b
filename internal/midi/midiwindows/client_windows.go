//go:build windows
// +build windows

package midiwindows

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
	"unsafe"

	"github.com/leandrodaf/posemidi/internal/midi/trigger"
	"github.com/leandrodaf/posemidi/sdk/contracts"
	"golang.org/x/sys/windows"
)

// HMIDIIN is a winmm input device handle.
type HMIDIIN windows.Handle

// Constants for callback flags
const (
	CALLBACK_FUNCTION = 0x00030000 // Indicates that the callback is a function
	MIDI_IO_STATUS    = 0x00000020 // MIDI input/output status
)

// Constants for MIDI message types
const (
	MIM_OPEN      = 0x3C1 // MIDI device opened
	MIM_CLOSE     = 0x3C2 // MIDI device closed
	MIM_DATA      = 0x3C3 // MIDI data received
	MIM_ERROR     = 0x3C5 // MIDI error
	MIM_LONGERROR = 0x3C6 // Long MIDI error
	MIM_MOREDATA  = 0x3CC // More MIDI data available
)

var (
	ErrNoMIDIDevices     = errors.New("no MIDI devices found")
	ErrInvalidMIDIDevice = errors.New("invalid MIDI device")
	ErrNotConnected      = errors.New("no MIDI device selected")
)

// Struct representing MIDI device capabilities
type midiInCaps struct {
	wMid           uint16
	wPid           uint16
	vDriverVersion uint32
	szPname        [32]uint16
	dwSupport      uint32
}

// TriggerSource receives trigger events from a winmm input device.
type TriggerSource struct {
	logger        contracts.Logger
	eventChannel  atomic.Value // chan contracts.TriggerEvent
	handle        HMIDIIN
	portConn      bool
	started       bool
	mu            sync.Mutex
	callback      uintptr
	triggerFilter *contracts.TriggerFilter
}

// Load the winmm.dll library and required functions
var (
	winmm                = windows.NewLazySystemDLL("winmm.dll")
	procMidiInGetNumDevs = winmm.NewProc("midiInGetNumDevs")
	procMidiInGetDevCaps = winmm.NewProc("midiInGetDevCapsW")
	procMidiInOpen       = winmm.NewProc("midiInOpen")
	procMidiInStart      = winmm.NewProc("midiInStart")
	procMidiInStop       = winmm.NewProc("midiInStop")
	procMidiInClose      = winmm.NewProc("midiInClose")
)

// NewTriggerSource creates a winmm trigger source.
func NewTriggerSource(options *contracts.Options) (contracts.TriggerSource, error) {
	options.Logger.Info("winmm trigger source created")

	return &TriggerSource{
		logger:        options.Logger,
		triggerFilter: options.TriggerFilter,
	}, nil
}

// ListDevices lists the available MIDI input devices
func (m *TriggerSource) ListDevices() ([]contracts.DeviceInfo, error) {
	r0, _, _ := procMidiInGetNumDevs.Call()
	numDevices := uint32(r0)
	if numDevices == 0 {
		m.logger.Warn(ErrNoMIDIDevices.Error())
		return nil, ErrNoMIDIDevices
	}

	devices := make([]contracts.DeviceInfo, 0, numDevices)
	for i := uint32(0); i < numDevices; i++ {
		var caps midiInCaps
		r1, _, _ := procMidiInGetDevCaps.Call(
			uintptr(i),
			uintptr(unsafe.Pointer(&caps)),
			unsafe.Sizeof(caps),
		)
		if r1 != 0 {
			m.logger.Warn("failed to get MIDI device capabilities", m.logger.Field().Int("deviceID", int(i)))
			continue
		}
		deviceName := windows.UTF16ToString(caps.szPname[:])
		devices = append(devices, contracts.DeviceInfo{
			ID:           int(i),
			Name:         deviceName,
			EntityName:   deviceName,
			Manufacturer: fmt.Sprintf("MID: %d PID: %d", caps.wMid, caps.wPid),
		})
	}
	return devices, nil
}

// SelectDevice opens the input device at index deviceID.
func (m *TriggerSource) SelectDevice(deviceID int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	r0, _, _ := procMidiInGetNumDevs.Call()
	if deviceID < 0 || deviceID >= int(r0) {
		return fmt.Errorf("%w: %d", ErrInvalidMIDIDevice, deviceID)
	}

	if m.portConn {
		if err := m.closeDevice(); err != nil {
			return fmt.Errorf("failed to close previous MIDI device: %w", err)
		}
	}

	m.callback = windows.NewCallback(midiInCallback)
	fdwOpen := CALLBACK_FUNCTION | MIDI_IO_STATUS

	r1, _, err := procMidiInOpen.Call(
		uintptr(unsafe.Pointer(&m.handle)),
		uintptr(deviceID),
		m.callback,
		uintptr(unsafe.Pointer(m)),
		uintptr(fdwOpen),
	)
	if r1 != 0 {
		return fmt.Errorf("failed to open MIDI device %d: %v", deviceID, err)
	}

	m.portConn = true
	m.logger.Info("trigger input connected", m.logger.Field().Int("deviceID", deviceID))

	if _, ok := m.eventChannel.Load().(chan contracts.TriggerEvent); ok {
		return m.start()
	}
	return nil
}

// StartCapture starts delivering trigger events to eventChannel. If no
// device is selected yet, capture starts when one is.
func (m *TriggerSource) StartCapture(eventChannel chan contracts.TriggerEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if eventChannel == nil {
		m.logger.Error("StartCapture called with nil eventChannel")
		return
	}
	m.eventChannel.Store(eventChannel)

	if !m.portConn {
		m.logger.Warn("capture pending: no MIDI device selected")
		return
	}
	if err := m.start(); err != nil {
		m.logger.Error("failed to start trigger capture", m.logger.Field().Error("error", err))
	}
}

func (m *TriggerSource) start() error {
	if m.started {
		return nil
	}
	r1, _, err := procMidiInStart.Call(uintptr(m.handle))
	if r1 != 0 {
		return fmt.Errorf("midiInStart: %v", err)
	}
	m.started = true
	m.logger.Info("trigger capture started")
	return nil
}

// midiInCallback processes incoming MIDI messages
func midiInCallback(hMidiIn uintptr, wMsg uint32, dwInstance uintptr, dwParam1 uintptr, dwParam2 uintptr) uintptr {
	m := (*TriggerSource)(unsafe.Pointer(dwInstance))

	switch wMsg {
	case MIM_OPEN:
		m.logger.Debug("MIDI device opened")
	case MIM_CLOSE:
		m.logger.Debug("MIDI device closed")
	case MIM_DATA:
		eventChannel, _ := m.eventChannel.Load().(chan contracts.TriggerEvent)
		if eventChannel == nil {
			return 0
		}

		status := byte(dwParam1 & 0xFF)
		data1 := byte((dwParam1 >> 8) & 0xFF)
		data2 := byte((dwParam1 >> 16) & 0xFF)

		event, err := trigger.DecodeMessage(status, data1, data2, uint64(time.Now().UTC().UnixNano()))
		if err != nil {
			if !errors.Is(err, trigger.ErrNotTrigger) {
				m.logger.Warn("dropping MIDI message", m.logger.Field().Error("error", err))
			}
			return 0
		}
		trigger.Deliver(eventChannel, m.triggerFilter, event, m.logger)
	case MIM_ERROR, MIM_LONGERROR:
		m.logger.Error("MIDI input error", m.logger.Field().Int("message", int(wMsg)))
	case MIM_MOREDATA:
		m.logger.Debug("Received MIM_MOREDATA message; ignored")
	default:
		m.logger.Warn("unknown MIDI input message", m.logger.Field().Int("message", int(wMsg)))
	}

	return 0
}

// Stop terminates capture and closes the device.
func (m *TriggerSource) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.eventChannel.Store((chan contracts.TriggerEvent)(nil))
	if !m.portConn {
		return nil
	}
	if err := m.closeDevice(); err != nil {
		return fmt.Errorf("failed to stop trigger capture: %w", err)
	}
	m.logger.Info("trigger capture stopped and device closed")
	return nil
}

func (m *TriggerSource) closeDevice() error {
	if m.handle == 0 {
		return ErrNotConnected
	}

	if m.started {
		r1, _, err := procMidiInStop.Call(uintptr(m.handle))
		if r1 != 0 {
			return fmt.Errorf("midiInStop: %v", err)
		}
		m.started = false
	}

	r1, _, err := procMidiInClose.Call(uintptr(m.handle))
	if r1 != 0 {
		return fmt.Errorf("midiInClose: %v", err)
	}

	m.portConn = false
	m.handle = 0
	return nil
}
