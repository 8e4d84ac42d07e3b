package posemidi

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/leandrodaf/posemidi/internal/logger"
	"github.com/leandrodaf/posemidi/internal/mapper"
	"github.com/leandrodaf/posemidi/internal/pose"
	"github.com/leandrodaf/posemidi/internal/tracking"
	"github.com/leandrodaf/posemidi/sdk/contracts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	mu       sync.Mutex
	devices  []contracts.DeviceInfo
	selected []int
	events   chan contracts.TriggerEvent
	stopErr  error
}

func (s *fakeSource) ListDevices() ([]contracts.DeviceInfo, error) { return s.devices, nil }

func (s *fakeSource) SelectDevice(deviceID int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selected = append(s.selected, deviceID)
	return nil
}

func (s *fakeSource) StartCapture(events chan contracts.TriggerEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = events
}

func (s *fakeSource) capture() chan contracts.TriggerEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.events
}

func (s *fakeSource) Stop() error { return s.stopErr }

// failingSource is a source that reports listener errors.
type failingSource struct {
	fakeSource
	onError func(error)
}

func (s *failingSource) OnError(fn func(error)) { s.onError = fn }

type fakeSender struct {
	mu         sync.Mutex
	devices    []contracts.DeviceInfo
	selected   []int
	sent       []contracts.NoteCommand
	failNoteOn bool
	closeErr   error
}

func (s *fakeSender) record(cmd contracts.NoteCommand) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, cmd)
}

func (s *fakeSender) ListDevices() ([]contracts.DeviceInfo, error) { return s.devices, nil }

func (s *fakeSender) SelectDevice(deviceID int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selected = append(s.selected, deviceID)
	return nil
}

func (s *fakeSender) SendNoteOn(note uint8, ch contracts.Channel) error {
	s.record(contracts.NoteOn(ch, note))
	if s.failNoteOn {
		return errors.New("output gone")
	}
	return nil
}

func (s *fakeSender) SendNoteOff(note uint8, ch contracts.Channel) error {
	s.record(contracts.NoteOff(ch, note))
	return nil
}

func (s *fakeSender) AllNotesOff(ch contracts.Channel) error {
	s.record(contracts.AllNotesOff(ch))
	return nil
}

func (s *fakeSender) Close() error { return s.closeErr }

// take returns and forgets the commands sent so far.
func (s *fakeSender) take() []contracts.NoteCommand {
	s.mu.Lock()
	defer s.mu.Unlock()
	sent := s.sent
	s.sent = nil
	return sent
}

func newTestRunner(t *testing.T, opts ...contracts.Option) (*Runner, *fakeSource, *fakeSender) {
	t.Helper()
	source := &fakeSource{}
	sender := &fakeSender{}
	opts = append([]contracts.Option{
		contracts.WithLogger(logger.NewNopLogger()),
		contracts.WithTriggerSource(source),
		contracts.WithNoteSender(sender),
	}, opts...)
	r, err := NewRunner(opts...)
	require.NoError(t, err)
	return r, source, sender
}

func leftWrist(t *testing.T, r *Runner, x float64) {
	t.Helper()
	trigger, output, m := contracts.Channel(1), contracts.Channel(2), mapper.X
	require.NoError(t, r.UpdateTracking(pose.LeftWrist, tracking.Patch{
		TriggerChannel: &trigger,
		OutputChannel:  &output,
		OutputMapper:   &m,
	}))
	var frame pose.Snapshot
	frame.Set(pose.LeftWrist, pose.Point{X: x, Y: 0.5}, 0.9)
	r.UpdatePose(frame)
}

func on(ch contracts.Channel) contracts.TriggerEvent {
	return contracts.TriggerEvent{Kind: contracts.TriggerOn, Channel: ch}
}

func off(ch contracts.Channel) contracts.TriggerEvent {
	return contracts.TriggerEvent{Kind: contracts.TriggerOff, Channel: ch}
}

func TestApplyDefaultOptions(t *testing.T) {
	options, err := applyDefaultOptions(contracts.WithLogger(logger.NewNopLogger()))
	require.NoError(t, err)

	assert.Equal(t, contracts.InfoLevel, options.LogLevel)
	assert.Equal(t, DefaultVelocity, options.Velocity)
	assert.Equal(t, DefaultEventBuffer, options.EventBuffer)
	assert.Equal(t, DefaultClientName, options.CoreMIDIConfig.ClientName)
	require.NotNil(t, options.VisibilityThreshold)
	assert.Equal(t, tracking.DefaultVisibilityThreshold, *options.VisibilityThreshold)
	assert.NotEmpty(t, options.InputBackend)

	options, err = applyDefaultOptions(
		contracts.WithLogger(logger.NewNopLogger()),
		contracts.WithVisibilityThreshold(0),
		contracts.WithVelocity(100),
		contracts.WithInputBackend(contracts.RtMIDIInput),
	)
	require.NoError(t, err)
	assert.Zero(t, *options.VisibilityThreshold)
	assert.EqualValues(t, 100, options.Velocity)
	assert.Equal(t, contracts.RtMIDIInput, options.InputBackend)

	_, err = applyDefaultOptions(contracts.WithLogger(logger.NewNopLogger()), contracts.WithVelocity(200))
	assert.Error(t, err)
}

func TestDefaultInputBackend(t *testing.T) {
	assert.Equal(t, contracts.NativeInput, defaultInputBackend("darwin"))
	assert.Equal(t, contracts.NativeInput, defaultInputBackend("windows"))
	assert.Equal(t, contracts.RtMIDIInput, defaultInputBackend("linux"))
}

func TestNewRunnerRejectsUnknownBackend(t *testing.T) {
	_, err := NewRunner(
		contracts.WithLogger(logger.NewNopLogger()),
		contracts.WithNoteSender(&fakeSender{}),
		contracts.WithInputBackend("jack"),
	)
	assert.ErrorIs(t, err, ErrUnknownBackend)
}

func TestDispatch(t *testing.T) {
	r, _, sender := newTestRunner(t)
	leftWrist(t, r, 0.25)
	sender.take()

	r.Dispatch(on(1))
	r.Dispatch(off(1))

	want := []contracts.NoteCommand{
		contracts.NoteOn(2, 95),
		contracts.NoteOff(2, 95),
	}
	assert.Empty(t, cmp.Diff(want, sender.take()))
}

func TestDispatchSendFailureKeepsBookkeeping(t *testing.T) {
	r, _, sender := newTestRunner(t)
	leftWrist(t, r, 0.25)
	sender.failNoteOn = true

	r.Dispatch(on(1))
	assert.Len(t, r.engine.Sounding(), 1, "a failed send is not rolled back")

	sender.take()
	r.Dispatch(off(1))
	assert.Empty(t, cmp.Diff([]contracts.NoteCommand{contracts.NoteOff(2, 95)}, sender.take()))
}

func TestRun(t *testing.T) {
	r, source, sender := newTestRunner(t)
	leftWrist(t, r, 0.25)
	sender.take()

	ctx, cancel := context.WithCancel(context.Background())
	result := make(chan error, 1)
	go func() { result <- r.Run(ctx) }()

	require.Eventually(t, func() bool { return source.capture() != nil }, time.Second, time.Millisecond)
	assert.ErrorIs(t, r.Run(ctx), ErrAlreadyRunning)

	events := source.capture()
	assert.Equal(t, DefaultEventBuffer, cap(events))
	events <- on(1)
	events <- off(1)

	var sent []contracts.NoteCommand
	require.Eventually(t, func() bool {
		sent = append(sent, sender.take()...)
		return len(sent) == 2
	}, time.Second, time.Millisecond)
	assert.Equal(t, contracts.CommandNoteOn, sent[0].Kind)
	assert.Equal(t, contracts.CommandNoteOff, sent[1].Kind)

	cancel()
	select {
	case err := <-result:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestUpdateTrackingReleasesOldChannel(t *testing.T) {
	r, _, sender := newTestRunner(t)
	leftWrist(t, r, 0.25)
	r.Dispatch(on(1))
	sender.take()

	output := contracts.Channel(3)
	require.NoError(t, r.UpdateTracking(pose.LeftWrist, tracking.Patch{OutputChannel: &output}))
	assert.Empty(t, cmp.Diff([]contracts.NoteCommand{contracts.NoteOff(2, 95)}, sender.take()))
	assert.Empty(t, r.engine.Sounding())

	r.Dispatch(off(1))
	assert.Empty(t, sender.take(), "released notes are not stopped twice")

	bad := uint8(200)
	assert.Error(t, r.UpdateTracking(pose.LeftWrist, tracking.Patch{OutputMax: &bad}))
	assert.Equal(t, contracts.Channel(3), r.Tracking()[pose.LeftWrist].OutputChannel)
}

func TestTrackingPersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tracking.json")

	r, _, _ := newTestRunner(t, contracts.WithConfigPath(path))
	leftWrist(t, r, 0.25)
	require.NoError(t, r.SetThreshold(0.7))

	reloaded, _, _ := newTestRunner(t, contracts.WithConfigPath(path))
	entry := reloaded.Tracking()[pose.LeftWrist]
	assert.Equal(t, contracts.Channel(1), entry.TriggerChannel)
	assert.Equal(t, contracts.Channel(2), entry.OutputChannel)
	assert.Equal(t, mapper.X, entry.OutputMapper)
	assert.Equal(t, 0.7, reloaded.tracking.Threshold())

	require.NoError(t, reloaded.ResetTracking())
	again, _, _ := newTestRunner(t, contracts.WithConfigPath(path))
	assert.Equal(t, tracking.DefaultEntry(), again.Tracking()[pose.LeftWrist])
}

func TestSetThresholdRejectsOutOfRange(t *testing.T) {
	r, _, _ := newTestRunner(t)
	assert.ErrorIs(t, r.SetThreshold(1.5), tracking.ErrInvalidThreshold)
	assert.Equal(t, tracking.DefaultVisibilityThreshold, r.tracking.Threshold())
}

func TestLoopbackDisablesAnyChannel(t *testing.T) {
	r, source, sender := newTestRunner(t)
	source.devices = []contracts.DeviceInfo{{ID: 0, Name: "Pad"}}
	sender.devices = []contracts.DeviceInfo{{ID: 0, Name: "Synth"}, {ID: 1, Name: "Pad"}}

	trigger, anyChannel, m := contracts.Channel(1), contracts.AnyChannel, mapper.Y
	require.NoError(t, r.UpdateTracking(pose.Nose, tracking.Patch{
		TriggerChannel: &trigger,
		OutputChannel:  &anyChannel,
		OutputMapper:   &m,
	}))

	require.NoError(t, r.SelectInput(0))
	require.NoError(t, r.SelectOutput(0))
	assert.Equal(t, contracts.AnyChannel, r.Tracking()[pose.Nose].OutputChannel)
	sender.take()

	require.NoError(t, r.SelectOutput(1))
	assert.Equal(t, contracts.NoChannel, r.Tracking()[pose.Nose].OutputChannel)
	assert.Empty(t, cmp.Diff(
		[]contracts.NoteCommand{contracts.AllNotesOff(contracts.AnyChannel)},
		sender.take()))
}

func TestResetMIDI(t *testing.T) {
	r, source, sender := newTestRunner(t)
	leftWrist(t, r, 0.25)
	require.NoError(t, r.SelectInput(4))
	require.NoError(t, r.SelectOutput(5))
	r.Dispatch(on(1))
	sender.take()

	require.NoError(t, r.ResetMIDI())
	assert.Empty(t, cmp.Diff(
		[]contracts.NoteCommand{contracts.AllNotesOff(contracts.AnyChannel)},
		sender.take()))
	assert.Empty(t, r.engine.Sounding())
	assert.Equal(t, []int{4, 4}, source.selected)
	assert.Equal(t, []int{5, 5}, sender.selected)
}

func TestStopCombinesErrors(t *testing.T) {
	r, source, sender := newTestRunner(t)
	source.stopErr = errors.New("input busy")
	sender.closeErr = errors.New("output busy")

	err := r.Stop()
	assert.ErrorContains(t, err, "input busy")
	assert.ErrorContains(t, err, "output busy")
	assert.Empty(t, cmp.Diff(
		[]contracts.NoteCommand{contracts.AllNotesOff(contracts.AnyChannel)},
		sender.take()))
}

func TestSourceErrorResetsMIDI(t *testing.T) {
	source := &failingSource{}
	sender := &fakeSender{}
	r, err := NewRunner(
		contracts.WithLogger(logger.NewNopLogger()),
		contracts.WithTriggerSource(source),
		contracts.WithNoteSender(sender),
	)
	require.NoError(t, err)
	require.NotNil(t, source.onError, "runner registers for listener errors")

	leftWrist(t, r, 0.25)
	require.NoError(t, r.SelectInput(2))
	r.Dispatch(on(1))
	sender.take()

	source.onError(errors.New("device unplugged"))
	assert.Empty(t, cmp.Diff(
		[]contracts.NoteCommand{contracts.AllNotesOff(contracts.AnyChannel)},
		sender.take()))
	assert.Empty(t, r.engine.Sounding())
	assert.Equal(t, []int{2, 2}, source.selected)
}
