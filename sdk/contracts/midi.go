package contracts

import (
	"encoding/json"
	"fmt"
)

// Channel identifies a MIDI channel as it appears on the configuration surface.
// Specific channels are 1-indexed (1..16). Two values are reserved:
// AnyChannel (output only, the sender broadcasts on every channel) and
// NoChannel (the assignment is disabled).
type Channel int8

const (
	// NoChannel disables a trigger or output assignment. It encodes as JSON null.
	NoChannel Channel = -1
	// AnyChannel is valid only as an output channel and means "all channels".
	AnyChannel Channel = 0
	// MinChannel is the lowest specific channel.
	MinChannel Channel = 1
	// MaxChannel is the highest specific channel.
	MaxChannel Channel = 16
)

// IsSpecific reports whether c is one of the sixteen real MIDI channels.
func (c Channel) IsSpecific() bool {
	return c >= MinChannel && c <= MaxChannel
}

// Valid reports whether c is a specific channel, AnyChannel or NoChannel.
func (c Channel) Valid() bool {
	return c == NoChannel || c == AnyChannel || c.IsSpecific()
}

// Nibble returns the zero-based channel number carried in a MIDI status byte.
// It must only be called on specific channels.
func (c Channel) Nibble() uint8 {
	return uint8(c - 1)
}

func (c Channel) String() string {
	switch {
	case c == NoChannel:
		return "none"
	case c == AnyChannel:
		return "any"
	case c.IsSpecific():
		return fmt.Sprintf("ch%d", int(c))
	default:
		return fmt.Sprintf("invalid(%d)", int(c))
	}
}

// MarshalJSON encodes NoChannel as null and every other value as its number.
func (c Channel) MarshalJSON() ([]byte, error) {
	if c == NoChannel {
		return []byte("null"), nil
	}
	return json.Marshal(int(c))
}

// UnmarshalJSON accepts null or a number in [0, 16].
func (c *Channel) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*c = NoChannel
		return nil
	}
	var n int
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("channel: %w", err)
	}
	if n < int(AnyChannel) || n > int(MaxChannel) {
		return fmt.Errorf("channel %d out of range [0, %d]", n, MaxChannel)
	}
	*c = Channel(n)
	return nil
}

// AllChannels returns the sixteen specific channels in ascending order.
func AllChannels() []Channel {
	channels := make([]Channel, 0, MaxChannel)
	for c := MinChannel; c <= MaxChannel; c++ {
		channels = append(channels, c)
	}
	return channels
}

// TriggerKind tells whether a trigger event presses or releases a trigger.
type TriggerKind uint8

const (
	// TriggerOn is produced by an inbound Note On with a non-zero velocity.
	TriggerOn TriggerKind = iota + 1
	// TriggerOff is produced by an inbound Note Off, or a Note On with zero velocity.
	TriggerOff
)

func (k TriggerKind) String() string {
	switch k {
	case TriggerOn:
		return "trigger-on"
	case TriggerOff:
		return "trigger-off"
	default:
		return "unknown"
	}
}

// TriggerEvent is an inbound trigger received from the MIDI input device.
// Sources validate Channel to be within 1..16 before emitting the event.
type TriggerEvent struct {
	Timestamp uint64      // Timestamp is the time the event was received, in Unix nanoseconds.
	Kind      TriggerKind // Kind is either TriggerOn or TriggerOff.
	Channel   Channel     // Channel is the trigger channel (1-16).
	Note      uint8       // Note is the inbound note number; it does not select anything.
}

// CommandKind is the type of an outbound MIDI command.
type CommandKind uint8

const (
	// CommandNoteOn starts a note.
	CommandNoteOn CommandKind = iota + 1
	// CommandNoteOff stops a note.
	CommandNoteOff
	// CommandAllNotesOff silences a channel (or every channel for AnyChannel).
	CommandAllNotesOff
)

func (k CommandKind) String() string {
	switch k {
	case CommandNoteOn:
		return "note-on"
	case CommandNoteOff:
		return "note-off"
	case CommandAllNotesOff:
		return "all-notes-off"
	default:
		return "unknown"
	}
}

// NoteCommand is an outbound instruction produced by the lifecycle engine and
// executed by a NoteSender. Note is ignored for CommandAllNotesOff.
type NoteCommand struct {
	Kind    CommandKind
	Channel Channel
	Note    uint8
}

// NoteOn builds a CommandNoteOn.
func NoteOn(ch Channel, note uint8) NoteCommand {
	return NoteCommand{Kind: CommandNoteOn, Channel: ch, Note: note}
}

// NoteOff builds a CommandNoteOff.
func NoteOff(ch Channel, note uint8) NoteCommand {
	return NoteCommand{Kind: CommandNoteOff, Channel: ch, Note: note}
}

// AllNotesOff builds a CommandAllNotesOff.
func AllNotesOff(ch Channel) NoteCommand {
	return NoteCommand{Kind: CommandAllNotesOff, Channel: ch}
}

// TriggerSource defines an interface for MIDI input devices delivering trigger events.
type TriggerSource interface {
	Stop() error                                 // Stops capturing and releases the device.
	ListDevices() ([]DeviceInfo, error)          // Lists all available MIDI input devices.
	SelectDevice(deviceID int) error             // Selects an input device by its index.
	StartCapture(eventChannel chan TriggerEvent) // Starts delivering trigger events to eventChannel.
}

// NoteSender defines an interface for the MIDI output device notes are played on.
// Sends are fire-and-forget: an error means the message could not be handed to
// the driver, never that the receiving device rejected it.
type NoteSender interface {
	ListDevices() ([]DeviceInfo, error)       // Lists all available MIDI output devices.
	SelectDevice(deviceID int) error          // Selects an output device by its index.
	SendNoteOn(note uint8, ch Channel) error  // Sends a Note On; AnyChannel broadcasts.
	SendNoteOff(note uint8, ch Channel) error // Sends a Note Off; AnyChannel broadcasts.
	AllNotesOff(ch Channel) error             // Sends All Notes Off; AnyChannel broadcasts.
	Close() error                             // Closes the output device.
}
