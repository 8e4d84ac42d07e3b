package tracking

import (
	"testing"

	"github.com/leandrodaf/posemidi/internal/mapper"
	"github.com/leandrodaf/posemidi/internal/pose"
	"github.com/leandrodaf/posemidi/sdk/contracts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ch(c contracts.Channel) *contracts.Channel { return &c }
func mode(m mapper.Mode) *mapper.Mode           { return &m }
func note(n uint8) *uint8                       { return &n }

func TestDefaults(t *testing.T) {
	s := NewStore()
	for _, l := range pose.Landmarks() {
		e := s.Entry(l)
		assert.Equal(t, DefaultEntry(), e)
		assert.NoError(t, e.Validate())
		assert.False(t, e.Active())
	}
	assert.Equal(t, DefaultVisibilityThreshold, s.Threshold())
}

func TestEntryValidate(t *testing.T) {
	valid := Entry{
		TriggerChannel: 1,
		OutputChannel:  contracts.AnyChannel,
		OutputMapper:   mapper.X,
		OutputMin:      0,
		OutputMax:      127,
	}
	require.NoError(t, valid.Validate())
	assert.True(t, valid.Active())

	tests := []struct {
		name   string
		mutate func(e *Entry)
	}{
		{"any channel is not a trigger", func(e *Entry) { e.TriggerChannel = contracts.AnyChannel }},
		{"trigger channel above 16", func(e *Entry) { e.TriggerChannel = 17 }},
		{"output channel above 16", func(e *Entry) { e.OutputChannel = 17 }},
		{"unknown mapper", func(e *Entry) { e.OutputMapper = "z" }},
		{"min equals max", func(e *Entry) { e.OutputMin, e.OutputMax = 60, 60 }},
		{"min above max", func(e *Entry) { e.OutputMin, e.OutputMax = 61, 60 }},
		{"max above 127", func(e *Entry) { e.OutputMax = 128 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := valid
			tt.mutate(&e)
			assert.ErrorIs(t, e.Validate(), ErrInvalidEntry)
		})
	}
}

func TestUpdate(t *testing.T) {
	s := NewStore()

	change, err := s.Update(pose.LeftWrist, Patch{
		TriggerChannel: ch(1),
		OutputChannel:  ch(2),
		OutputMapper:   mode(mapper.Y),
		OutputMin:      note(36),
		OutputMax:      note(48),
	})
	require.NoError(t, err)
	assert.Equal(t, DefaultEntry(), change.Previous)
	assert.Equal(t, Entry{TriggerChannel: 1, OutputChannel: 2, OutputMapper: mapper.Y, OutputMin: 36, OutputMax: 48}, s.Entry(pose.LeftWrist))

	_, err = s.Update(pose.LeftWrist, Patch{OutputMin: note(48)})
	assert.ErrorIs(t, err, ErrInvalidEntry)
	assert.EqualValues(t, 36, s.Entry(pose.LeftWrist).OutputMin, "rejected updates leave the entry unchanged")

	_, err = s.Update(pose.Landmark(99), Patch{})
	assert.ErrorIs(t, err, pose.ErrUnknownLandmark)
}

func TestOnChangeAndNeedsRelease(t *testing.T) {
	s := NewStore()
	var changes []Change
	s.OnChange(func(c Change) { changes = append(changes, c) })

	_, err := s.Set(pose.Nose, Entry{TriggerChannel: 1, OutputChannel: 1, OutputMapper: mapper.X, OutputMax: 127})
	require.NoError(t, err)
	_, err = s.Update(pose.Nose, Patch{OutputMapper: mode(mapper.Y)})
	require.NoError(t, err)
	_, err = s.Update(pose.Nose, Patch{OutputChannel: ch(3)})
	require.NoError(t, err)
	_, err = s.Update(pose.Nose, Patch{TriggerChannel: ch(contracts.NoChannel)})
	require.NoError(t, err)

	require.Len(t, changes, 4)
	assert.False(t, changes[0].NeedsRelease(), "nothing was routed before")
	assert.False(t, changes[1].NeedsRelease(), "mapper change keeps the channel")
	assert.True(t, changes[2].NeedsRelease(), "output channel moved")
	assert.True(t, changes[3].NeedsRelease(), "trigger disabled")
}

func TestDisableAnyChannel(t *testing.T) {
	s := NewStore()
	_, err := s.Set(pose.LeftWrist, Entry{TriggerChannel: 1, OutputChannel: contracts.AnyChannel, OutputMapper: mapper.X, OutputMax: 127})
	require.NoError(t, err)
	_, err = s.Set(pose.RightWrist, Entry{TriggerChannel: 1, OutputChannel: 2, OutputMapper: mapper.X, OutputMax: 127})
	require.NoError(t, err)

	disabled := s.DisableAnyChannel()

	assert.Equal(t, []pose.Landmark{pose.LeftWrist}, disabled)
	assert.Equal(t, contracts.NoChannel, s.Entry(pose.LeftWrist).OutputChannel)
	assert.Equal(t, contracts.Channel(2), s.Entry(pose.RightWrist).OutputChannel)
}

func TestReset(t *testing.T) {
	s := NewStore()
	_, err := s.Set(pose.LeftKnee, Entry{TriggerChannel: 4, OutputChannel: 4, OutputMapper: mapper.XY, OutputMax: 100})
	require.NoError(t, err)

	s.Reset()
	assert.Equal(t, DefaultEntry(), s.Entry(pose.LeftKnee))
}

func TestSetThreshold(t *testing.T) {
	s := NewStore()
	require.NoError(t, s.SetThreshold(0.8))
	assert.Equal(t, 0.8, s.Threshold())
	require.NoError(t, s.SetThreshold(0))

	assert.ErrorIs(t, s.SetThreshold(1.1), ErrInvalidThreshold)
	assert.ErrorIs(t, s.SetThreshold(-0.1), ErrInvalidThreshold)
	assert.Equal(t, 0.0, s.Threshold())
}
