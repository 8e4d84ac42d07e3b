// Package posemidi plays MIDI notes chosen by body pose. Trigger events from
// a MIDI input start and stop the notes that the tracked landmarks map to,
// which are sent to a MIDI output.
package posemidi

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"sync"

	"go.uber.org/multierr"

	"github.com/leandrodaf/posemidi/internal/lifecycle"
	"github.com/leandrodaf/posemidi/internal/midi/midigomidi"
	"github.com/leandrodaf/posemidi/internal/pose"
	"github.com/leandrodaf/posemidi/internal/tracking"
	"github.com/leandrodaf/posemidi/sdk/contracts"
)

// ErrAlreadyRunning is returned by Run while another Run is in progress.
var ErrAlreadyRunning = errors.New("runner already running")

// noDevice marks a direction with no selected device.
const noDevice = -1

// errorNotifier is implemented by trigger sources that report listener
// failures, such as the device being unplugged.
type errorNotifier interface {
	OnError(fn func(error))
}

// Runner wires a trigger source, the pose and tracking stores, the lifecycle
// engine and a note sender together.
type Runner struct {
	options  contracts.Options
	logger   contracts.Logger
	poses    *pose.Store
	tracking *tracking.Store
	engine   *lifecycle.Engine
	source   contracts.TriggerSource
	sender   contracts.NoteSender
	driver   midigomidi.Driver

	mu         sync.Mutex
	running    bool
	inputID    int
	inputName  string
	outputID   int
	outputName string
}

// NewRunner builds a runner from opts. Devices are not selected; call
// SelectInput and SelectOutput before Run.
func NewRunner(opts ...contracts.Option) (*Runner, error) {
	options, err := applyDefaultOptions(opts...)
	if err != nil {
		return nil, err
	}

	r := &Runner{
		options:  options,
		logger:   options.Logger,
		poses:    pose.NewStore(),
		tracking: tracking.NewStore(),
		source:   options.TriggerSource,
		sender:   options.NoteSender,
		inputID:  noDevice,
		outputID: noDevice,
	}
	r.engine = lifecycle.NewEngine(r.poses, r.tracking, r.logger)

	if err := r.tracking.SetThreshold(*options.VisibilityThreshold); err != nil {
		return nil, err
	}
	if options.ConfigPath != "" {
		if err := r.tracking.Load(options.ConfigPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load tracking config: %w", err)
		}
	}
	r.tracking.OnChange(r.onTrackingChange)

	if err := r.openDevices(); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *Runner) openDevices() error {
	needsDriver := r.sender == nil ||
		(r.source == nil && r.options.InputBackend == contracts.RtMIDIInput)
	if needsDriver {
		drv, err := midigomidi.OpenDriver()
		if err != nil {
			return err
		}
		r.driver = drv
	}
	if r.sender == nil {
		r.sender = midigomidi.NewSender(r.driver, &r.options)
	}
	if r.source == nil {
		source, err := newTriggerSource(&r.options, r.driver)
		if err != nil {
			return multierr.Append(err, r.closeDriver())
		}
		r.source = source
	}
	if notifier, ok := r.source.(errorNotifier); ok {
		notifier.OnError(r.onSourceError)
	}
	return nil
}

// onSourceError resets MIDI state after the trigger input fails; notes it
// was holding would otherwise never get their trigger-off.
func (r *Runner) onSourceError(err error) {
	r.logger.Warn("trigger input failed; resetting MIDI", r.logger.Field().Error("error", err))
	if resetErr := r.ResetMIDI(); resetErr != nil {
		r.logger.Error("MIDI reset after input failure failed", r.logger.Field().Error("error", resetErr))
	}
}

// Run captures trigger events and dispatches them until ctx is done. When the
// rtmidi driver is in use, device changes reset MIDI state.
func (r *Runner) Run(ctx context.Context) error {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return ErrAlreadyRunning
	}
	r.running = true
	r.mu.Unlock()
	defer func() {
		r.mu.Lock()
		r.running = false
		r.mu.Unlock()
	}()

	events := make(chan contracts.TriggerEvent, r.options.EventBuffer)
	r.source.StartCapture(events)

	if r.driver != nil {
		go midigomidi.Watch(ctx, r.driver, midigomidi.DefaultRescanInterval, r.logger, func() {
			if err := r.ResetMIDI(); err != nil {
				r.logger.Warn("MIDI reset after device change failed", r.logger.Field().Error("error", err))
			}
		})
	}

	r.logger.Info("runner started", r.logger.Field().Int("eventBuffer", r.options.EventBuffer))
	for {
		select {
		case <-ctx.Done():
			r.logger.Info("runner stopped")
			return nil
		case ev := <-events:
			r.Dispatch(ev)
		}
	}
}

// Dispatch runs ev through the engine and sends the resulting commands.
func (r *Runner) Dispatch(ev contracts.TriggerEvent) {
	r.execute(r.engine.HandleTrigger(ev))
}

// execute sends commands in order. A failed send is logged and skipped; the
// engine's bookkeeping is not rolled back.
func (r *Runner) execute(commands []contracts.NoteCommand) {
	for _, cmd := range commands {
		var err error
		switch cmd.Kind {
		case contracts.CommandNoteOn:
			err = r.sender.SendNoteOn(cmd.Note, cmd.Channel)
		case contracts.CommandNoteOff:
			err = r.sender.SendNoteOff(cmd.Note, cmd.Channel)
		case contracts.CommandAllNotesOff:
			err = r.sender.AllNotesOff(cmd.Channel)
		default:
			err = fmt.Errorf("unknown command kind %d", cmd.Kind)
		}
		if err != nil {
			r.logger.Error("failed to send MIDI command",
				r.logger.Field().String("command", cmd.Kind.String()),
				r.logger.Field().Int("channel", int(cmd.Channel)),
				r.logger.Field().Uint8("note", cmd.Note),
				r.logger.Field().Error("error", err))
		}
	}
}

// UpdatePose replaces the current pose snapshot.
func (r *Runner) UpdatePose(snapshot Snapshot) {
	r.poses.Replace(snapshot)
}

// Tracking returns the configuration of every landmark, indexed by ordinal.
func (r *Runner) Tracking() [LandmarkCount]TrackingEntry {
	return r.tracking.Entries()
}

// UpdateTracking changes the configuration of l and persists it. Notes held on
// an output channel the landmark no longer reaches are silenced.
func (r *Runner) UpdateTracking(l Landmark, patch TrackingPatch) error {
	if _, err := r.tracking.Update(l, patch); err != nil {
		return err
	}
	return r.persist()
}

// ResetTracking restores every landmark to its default configuration.
func (r *Runner) ResetTracking() error {
	r.tracking.Reset()
	return r.persist()
}

// SetThreshold changes the visibility threshold and persists it.
func (r *Runner) SetThreshold(threshold float64) error {
	if err := r.tracking.SetThreshold(threshold); err != nil {
		return err
	}
	return r.persist()
}

func (r *Runner) onTrackingChange(change tracking.Change) {
	if !change.NeedsRelease() {
		return
	}
	r.logger.Debug("releasing output channel after tracking change",
		r.logger.Field().String("landmark", change.Landmark.String()),
		r.logger.Field().Int("channel", int(change.Previous.OutputChannel)))
	r.execute(r.engine.ReleaseChannel(change.Previous.OutputChannel))
}

func (r *Runner) persist() error {
	if r.options.ConfigPath == "" {
		return nil
	}
	if err := r.tracking.Save(r.options.ConfigPath); err != nil {
		r.logger.Error("failed to save tracking config",
			r.logger.Field().String("path", r.options.ConfigPath),
			r.logger.Field().Error("error", err))
		return err
	}
	return nil
}

// ResetMIDI silences every channel, forgets all held notes and reopens the
// selected devices.
func (r *Runner) ResetMIDI() error {
	r.execute(r.engine.Reset())

	r.mu.Lock()
	inputID, outputID := r.inputID, r.outputID
	r.mu.Unlock()

	var err error
	if inputID != noDevice {
		err = multierr.Append(err, r.SelectInput(inputID))
	}
	if outputID != noDevice {
		err = multierr.Append(err, r.SelectOutput(outputID))
	}
	return err
}

// ListInputs returns the trigger input devices.
func (r *Runner) ListInputs() ([]contracts.DeviceInfo, error) {
	return r.source.ListDevices()
}

// ListOutputs returns the note output devices.
func (r *Runner) ListOutputs() ([]contracts.DeviceInfo, error) {
	return r.sender.ListDevices()
}

// SelectInput opens the trigger input with the given ID.
func (r *Runner) SelectInput(deviceID int) error {
	if err := r.source.SelectDevice(deviceID); err != nil {
		return err
	}
	name := deviceName(r.source.ListDevices, deviceID)
	r.mu.Lock()
	r.inputID, r.inputName = deviceID, name
	r.mu.Unlock()
	return r.checkLoopback()
}

// SelectOutput opens the note output with the given ID.
func (r *Runner) SelectOutput(deviceID int) error {
	if err := r.sender.SelectDevice(deviceID); err != nil {
		return err
	}
	name := deviceName(r.sender.ListDevices, deviceID)
	r.mu.Lock()
	r.outputID, r.outputName = deviceID, name
	r.mu.Unlock()
	return r.checkLoopback()
}

// checkLoopback disables "any channel" outputs when notes would be sent back
// into the device the triggers come from.
func (r *Runner) checkLoopback() error {
	r.mu.Lock()
	same := r.inputName != "" && r.inputName == r.outputName
	name := r.inputName
	r.mu.Unlock()
	if !same {
		return nil
	}

	disabled := r.tracking.DisableAnyChannel()
	if len(disabled) == 0 {
		return nil
	}
	r.logger.Warn("input and output are the same device; disabled any-channel outputs",
		r.logger.Field().String("device", name),
		r.logger.Field().Int("landmarks", len(disabled)))
	return r.persist()
}

func deviceName(list func() ([]contracts.DeviceInfo, error), deviceID int) string {
	devices, err := list()
	if err != nil {
		return ""
	}
	for _, d := range devices {
		if d.ID == deviceID {
			return d.Name
		}
	}
	return ""
}

// Stop silences held notes, stops capture and closes every device.
func (r *Runner) Stop() error {
	r.execute(r.engine.Reset())

	err := r.source.Stop()
	err = multierr.Append(err, r.sender.Close())
	err = multierr.Append(err, r.closeDriver())
	if err != nil {
		r.logger.Error("error stopping runner", r.logger.Field().Error("error", err))
	}
	return err
}

func (r *Runner) closeDriver() error {
	if r.driver == nil {
		return nil
	}
	err := r.driver.Close()
	r.driver = nil
	return err
}
