// Package trigger turns raw MIDI channel messages into validated trigger events.
package trigger

import (
	"errors"
	"fmt"
	"time"

	"github.com/leandrodaf/posemidi/sdk/contracts"
)

// Status nibbles of the channel messages that act as triggers.
const (
	StatusNoteOff byte = 0x80
	StatusNoteOn  byte = 0x90
	statusMask    byte = 0xF0
	channelMask   byte = 0x0F
)

var (
	// ErrIncompletePacket is returned for messages shorter than three bytes.
	ErrIncompletePacket = errors.New("incomplete MIDI packet")
	// ErrNotTrigger is returned for messages other than Note On and Note Off.
	ErrNotTrigger = errors.New("MIDI message is not a trigger")
	// ErrChannelOutOfRange is returned when a decoded channel is outside 1..16.
	ErrChannelOutOfRange = errors.New("trigger channel out of range")
)

// Decode interprets a three byte channel message. A Note On with velocity 0
// is a trigger-off, as is every Note Off.
func Decode(data []byte, timestamp uint64) (contracts.TriggerEvent, error) {
	if len(data) < 3 {
		return contracts.TriggerEvent{}, fmt.Errorf("%w: %d bytes", ErrIncompletePacket, len(data))
	}
	return DecodeMessage(data[0], data[1], data[2], timestamp)
}

// DecodeMessage is Decode for a message already split into its bytes.
func DecodeMessage(status, note, velocity byte, timestamp uint64) (contracts.TriggerEvent, error) {
	event := contracts.TriggerEvent{
		Timestamp: timestamp,
		Channel:   contracts.Channel(status&channelMask) + 1,
		Note:      note,
	}
	switch status & statusMask {
	case StatusNoteOn:
		event.Kind = contracts.TriggerOn
		if velocity == 0 {
			event.Kind = contracts.TriggerOff
		}
	case StatusNoteOff:
		event.Kind = contracts.TriggerOff
	default:
		return contracts.TriggerEvent{}, fmt.Errorf("%w: status 0x%X", ErrNotTrigger, status)
	}
	return event, Validate(event)
}

// Validate rejects events whose channel is not a specific MIDI channel.
func Validate(event contracts.TriggerEvent) error {
	if !event.Channel.IsSpecific() {
		return fmt.Errorf("%w: %d", ErrChannelOutOfRange, int(event.Channel))
	}
	if event.Kind != contracts.TriggerOn && event.Kind != contracts.TriggerOff {
		return fmt.Errorf("%w: kind %d", ErrNotTrigger, event.Kind)
	}
	return nil
}

// OffDeliveryTimeout is how long Deliver waits for buffer room before it drops
// a trigger-off.
const OffDeliveryTimeout = 50 * time.Millisecond

// Deliver applies filter and sends event on out. A trigger-on is dropped at
// once when out is full; a trigger-off waits up to OffDeliveryTimeout, since
// losing it leaves its notes sounding until the next MIDI reset. It reports
// false if the event was filtered out or dropped.
func Deliver(out chan contracts.TriggerEvent, filter *contracts.TriggerFilter, event contracts.TriggerEvent, logger contracts.Logger) bool {
	if !filter.Allows(event.Channel) {
		logger.Debug("trigger channel filtered out", logger.Field().Int("channel", int(event.Channel)))
		return false
	}
	select {
	case out <- event:
		return true
	default:
	}

	if event.Kind != contracts.TriggerOff {
		logger.Warn("Event buffer full; dropping trigger event",
			logger.Field().Int("channel", int(event.Channel)),
			logger.Field().String("kind", event.Kind.String()))
		return false
	}

	timer := time.NewTimer(OffDeliveryTimeout)
	defer timer.Stop()
	select {
	case out <- event:
		return true
	case <-timer.C:
		logger.Error("Event buffer full; dropped trigger-off, its notes sound until MIDI is reset",
			logger.Field().Int("channel", int(event.Channel)))
		return false
	}
}
