package trigger

import (
	"testing"
	"time"

	"github.com/leandrodaf/posemidi/internal/logger"
	"github.com/leandrodaf/posemidi/sdk/contracts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want contracts.TriggerEvent
	}{
		{"note on channel 1", []byte{0x90, 60, 100}, contracts.TriggerEvent{Kind: contracts.TriggerOn, Channel: 1, Note: 60}},
		{"note on channel 16", []byte{0x9F, 1, 1}, contracts.TriggerEvent{Kind: contracts.TriggerOn, Channel: 16, Note: 1}},
		{"note off", []byte{0x83, 60, 64}, contracts.TriggerEvent{Kind: contracts.TriggerOff, Channel: 4, Note: 60}},
		{"zero velocity note on", []byte{0x91, 60, 0}, contracts.TriggerEvent{Kind: contracts.TriggerOff, Channel: 2, Note: 60}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Decode(tt.data, 0)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecodeRejects(t *testing.T) {
	_, err := Decode([]byte{0x90, 60}, 0)
	assert.ErrorIs(t, err, ErrIncompletePacket)

	_, err = Decode([]byte{0xB0, 123, 0}, 0)
	assert.ErrorIs(t, err, ErrNotTrigger)

	_, err = Decode([]byte{0xF8, 0, 0}, 0)
	assert.ErrorIs(t, err, ErrNotTrigger)
}

func TestValidate(t *testing.T) {
	assert.NoError(t, Validate(contracts.TriggerEvent{Kind: contracts.TriggerOn, Channel: 16}))
	assert.ErrorIs(t, Validate(contracts.TriggerEvent{Kind: contracts.TriggerOn, Channel: 0}), ErrChannelOutOfRange)
	assert.ErrorIs(t, Validate(contracts.TriggerEvent{Kind: contracts.TriggerOff, Channel: 17}), ErrChannelOutOfRange)
	assert.ErrorIs(t, Validate(contracts.TriggerEvent{Channel: 1}), ErrNotTrigger)
}

func TestDeliver(t *testing.T) {
	log := logger.NewNopLogger()
	out := make(chan contracts.TriggerEvent, 1)
	event := contracts.TriggerEvent{Kind: contracts.TriggerOn, Channel: 2}

	filter := &contracts.TriggerFilter{Channels: []contracts.Channel{1}}
	assert.False(t, Deliver(out, filter, event, log))

	assert.True(t, Deliver(out, nil, event, log))
	assert.False(t, Deliver(out, nil, event, log), "full buffer drops")
	assert.Equal(t, event, <-out)
}

func TestDeliverWaitsForTriggerOff(t *testing.T) {
	log := logger.NewNopLogger()
	out := make(chan contracts.TriggerEvent, 1)
	pressed := contracts.TriggerEvent{Kind: contracts.TriggerOn, Channel: 1}
	released := contracts.TriggerEvent{Kind: contracts.TriggerOff, Channel: 1}
	out <- pressed

	go func() {
		time.Sleep(OffDeliveryTimeout / 5)
		<-out
	}()
	assert.True(t, Deliver(out, nil, released, log), "trigger-off waits for room")
	assert.Equal(t, released, <-out)
}

func TestDeliverDropsTriggerOffAfterTimeout(t *testing.T) {
	out := make(chan contracts.TriggerEvent, 1)
	out <- contracts.TriggerEvent{Kind: contracts.TriggerOn, Channel: 1}

	start := time.Now()
	assert.False(t, Deliver(out, nil, contracts.TriggerEvent{Kind: contracts.TriggerOff, Channel: 1}, logger.NewNopLogger()))
	assert.GreaterOrEqual(t, time.Since(start), OffDeliveryTimeout)
}
