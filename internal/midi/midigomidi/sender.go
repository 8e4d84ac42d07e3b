package midigomidi

import (
	"fmt"
	"sync"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
	"go.uber.org/multierr"

	"github.com/leandrodaf/posemidi/sdk/contracts"
)

// ControllerAllNotesOff is the channel mode message that silences a channel.
const ControllerAllNotesOff = 123

// Sender plays notes on a MIDI output port.
type Sender struct {
	mu       sync.Mutex
	drv      Driver
	out      drivers.Out
	send     func(midi.Message) error
	velocity uint8
	logger   contracts.Logger
}

// NewSender returns a sender without a selected port.
func NewSender(drv Driver, options *contracts.Options) *Sender {
	return &Sender{
		drv:      drv,
		velocity: options.Velocity,
		logger:   options.Logger,
	}
}

// ListDevices returns the output ports.
func (s *Sender) ListDevices() ([]contracts.DeviceInfo, error) {
	outs, err := s.drv.Outs()
	if err != nil {
		return nil, fmt.Errorf("error listing MIDI outputs: %w", err)
	}
	if len(outs) == 0 {
		return nil, ErrNoDevices
	}
	devices := make([]contracts.DeviceInfo, len(outs))
	for i, out := range outs {
		devices[i] = portInfo(out)
	}
	return devices, nil
}

// SelectDevice opens the output port numbered deviceID and closes the previous one.
func (s *Sender) SelectDevice(deviceID int) error {
	outs, err := s.drv.Outs()
	if err != nil {
		return fmt.Errorf("error listing MIDI outputs: %w", err)
	}
	out, err := findPort(outs, deviceID)
	if err != nil {
		return err
	}
	if err := out.Open(); err != nil {
		return fmt.Errorf("open %q: %w", out.String(), err)
	}
	send, err := midi.SendTo(out)
	if err != nil {
		_ = out.Close()
		return fmt.Errorf("send to %q: %w", out.String(), err)
	}

	s.mu.Lock()
	previous := s.out
	s.out, s.send = out, send
	s.mu.Unlock()

	if previous != nil && previous.Number() != out.Number() {
		_ = previous.Close()
	}
	s.logger.Info("MIDI output selected",
		s.logger.Field().Int("deviceID", deviceID),
		s.logger.Field().String("deviceName", out.String()))
	return nil
}

// SendNoteOn sends a Note On for note on ch, or on all sixteen channels for AnyChannel.
func (s *Sender) SendNoteOn(note uint8, ch contracts.Channel) error {
	return s.broadcast(ch, func(nibble uint8) midi.Message {
		return midi.NoteOn(nibble, note, s.velocity)
	})
}

// SendNoteOff sends a Note Off for note on ch, or on all sixteen channels for AnyChannel.
func (s *Sender) SendNoteOff(note uint8, ch contracts.Channel) error {
	return s.broadcast(ch, func(nibble uint8) midi.Message {
		return midi.NoteOff(nibble, note)
	})
}

// AllNotesOff sends controller 123 on ch, or on all sixteen channels for AnyChannel.
func (s *Sender) AllNotesOff(ch contracts.Channel) error {
	return s.broadcast(ch, func(nibble uint8) midi.Message {
		return midi.ControlChange(nibble, ControllerAllNotesOff, 0)
	})
}

// Close closes the output port.
func (s *Sender) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.send = nil
	if s.out == nil {
		return nil
	}
	err := s.out.Close()
	s.out = nil
	return err
}

func (s *Sender) broadcast(ch contracts.Channel, build func(nibble uint8) midi.Message) error {
	s.mu.Lock()
	send := s.send
	s.mu.Unlock()
	if send == nil {
		return ErrNoOutput
	}

	channels := []contracts.Channel{ch}
	if ch == contracts.AnyChannel {
		channels = contracts.AllChannels()
	} else if !ch.IsSpecific() {
		return fmt.Errorf("%w: %s", ErrInvalidChannel, ch)
	}

	var err error
	for _, c := range channels {
		err = multierr.Append(err, send(build(c.Nibble())))
	}
	return err
}
