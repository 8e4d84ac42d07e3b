package lifecycle

import (
	"sync"

	"github.com/leandrodaf/posemidi/internal/mapper"
	"github.com/leandrodaf/posemidi/internal/pose"
	"github.com/leandrodaf/posemidi/internal/tracking"
	"github.com/leandrodaf/posemidi/sdk/contracts"
)

// SnapshotReader returns the latest pose frame.
type SnapshotReader interface {
	Snapshot() pose.Snapshot
}

// ConfigReader returns the current tracking configuration.
type ConfigReader interface {
	Entries() [pose.LandmarkCount]tracking.Entry
	Threshold() float64
}

// Engine turns trigger events into note commands. All methods are safe for
// concurrent use; each call runs to completion before the next one starts.
type Engine struct {
	mu     sync.Mutex
	index  *Index
	poses  SnapshotReader
	config ConfigReader
	logger contracts.Logger
}

// NewEngine returns an engine with an empty index.
func NewEngine(poses SnapshotReader, config ConfigReader, logger contracts.Logger) *Engine {
	return &Engine{
		index:  NewIndex(),
		poses:  poses,
		config: config,
		logger: logger,
	}
}

// HandleTrigger dispatches ev and returns the commands to send, in order.
func (e *Engine) HandleTrigger(ev contracts.TriggerEvent) []contracts.NoteCommand {
	switch ev.Kind {
	case contracts.TriggerOn:
		return e.TriggerOn(ev.Channel)
	case contracts.TriggerOff:
		return e.TriggerOff(ev.Channel)
	default:
		e.logger.Warn("ignoring trigger event of unknown kind",
			e.logger.Field().Int("kind", int(ev.Kind)),
			e.logger.Field().Int("channel", int(ev.Channel)))
		return nil
	}
}

// TriggerOn starts the notes of every visible, configured landmark assigned to
// trigger channel t. A note already sounding on its output channel is not
// sent again.
func (e *Engine) TriggerOn(t contracts.Channel) []contracts.NoteCommand {
	if !t.IsSpecific() {
		e.logger.Warn("ignoring trigger-on on invalid channel", e.logger.Field().Int("channel", int(t)))
		return nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	snapshot := e.poses.Snapshot()
	entries := e.config.Entries()
	threshold := e.config.Threshold()

	var commands []contracts.NoteCommand
	for i, entry := range entries {
		if entry.TriggerChannel != t || entry.OutputChannel == contracts.NoChannel || !entry.OutputMapper.Valid() {
			continue
		}
		landmark := pose.Landmark(i)
		slot := snapshot.At(landmark)
		if !slot.Present || slot.Visibility <= threshold {
			e.logger.Debug("landmark below visibility threshold",
				e.logger.Field().String("landmark", landmark.String()),
				e.logger.Field().Float64("visibility", slot.Visibility))
			continue
		}

		for _, n := range mapper.Map(slot.Point, entry.OutputMin, entry.OutputMax, entry.OutputMapper) {
			if e.index.Hold(t, entry.OutputChannel, n) {
				commands = append(commands, contracts.NoteOn(entry.OutputChannel, n))
			}
		}
	}

	e.logger.Debug("trigger on",
		e.logger.Field().Int("trigger", int(t)),
		e.logger.Field().Int("notesOn", len(commands)))
	return commands
}

// TriggerOff releases everything trigger t was holding, as recorded when it
// was pressed. Notes still held by another trigger keep sounding.
func (e *Engine) TriggerOff(t contracts.Channel) []contracts.NoteCommand {
	e.mu.Lock()
	defer e.mu.Unlock()

	stopped := e.index.Release(t)
	if stopped == nil {
		e.logger.Debug("trigger off without holdings", e.logger.Field().Int("trigger", int(t)))
	}

	commands := make([]contracts.NoteCommand, 0, len(stopped))
	for _, k := range stopped {
		commands = append(commands, contracts.NoteOff(k.Channel, k.Note))
	}
	return commands
}

// ReleaseChannel forgets every note held on output channel c and returns the
// commands that silence them. It is used when configuration changes make the
// recorded holdings on c unreachable.
//
// Releasing AnyChannel broadcasts All Notes Off, which silences every channel,
// so every holding is dropped. Releasing a specific channel stops its notes
// one by one; a note the Any bucket still holds keeps sounding on c and is not
// stopped.
func (e *Engine) ReleaseChannel(c contracts.Channel) []contracts.NoteCommand {
	e.mu.Lock()
	defer e.mu.Unlock()

	if c == contracts.AnyChannel {
		e.index.Clear()
		e.logger.Debug("released every output channel")
		return []contracts.NoteCommand{contracts.AllNotesOff(contracts.AnyChannel)}
	}

	dropped := e.index.DropChannel(c)
	commands := make([]contracts.NoteCommand, 0, len(dropped))
	for _, n := range dropped {
		if e.index.Sounding(contracts.AnyChannel, n) {
			continue
		}
		commands = append(commands, contracts.NoteOff(c, n))
	}
	e.logger.Debug("released output channel",
		e.logger.Field().Int("channel", int(c)),
		e.logger.Field().Int("notes", len(dropped)))
	return commands
}

// Reset empties the index and returns an All Notes Off broadcast, since the
// device state can no longer be matched to the index.
func (e *Engine) Reset() []contracts.NoteCommand {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.index.Clear()
	return []contracts.NoteCommand{contracts.AllNotesOff(contracts.AnyChannel)}
}

// Sounding returns every (channel, note) pair currently held.
func (e *Engine) Sounding() []Key {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.index.SoundingKeys()
}

// Held returns the pairs trigger t is holding.
func (e *Engine) Held(t contracts.Channel) []Key {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.index.Held(t)
}
