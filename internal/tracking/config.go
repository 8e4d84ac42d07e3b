// Package tracking holds the per-landmark trigger and output assignments.
package tracking

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/leandrodaf/posemidi/internal/mapper"
	"github.com/leandrodaf/posemidi/internal/pose"
	"github.com/leandrodaf/posemidi/sdk/contracts"
)

// DefaultVisibilityThreshold is the confidence floor used when none is configured.
const DefaultVisibilityThreshold = 0.5

var (
	// ErrInvalidEntry is returned when an entry breaks a configuration invariant.
	ErrInvalidEntry = errors.New("invalid tracking entry")
	// ErrInvalidThreshold is returned for a visibility threshold outside [0, 1].
	ErrInvalidThreshold = errors.New("visibility threshold must be within [0, 1]")
)

// Entry is the configuration of one landmark.
type Entry struct {
	TriggerChannel contracts.Channel `json:"triggerChannel"`
	OutputChannel  contracts.Channel `json:"outputChannel"`
	OutputMapper   mapper.Mode       `json:"outputMapper"`
	OutputMin      uint8             `json:"outputMin"`
	OutputMax      uint8             `json:"outputMax"`
}

// DefaultEntry is the configuration of a landmark nobody has assigned yet.
func DefaultEntry() Entry {
	return Entry{
		TriggerChannel: contracts.NoChannel,
		OutputChannel:  contracts.NoChannel,
		OutputMapper:   mapper.None,
		OutputMin:      0,
		OutputMax:      mapper.MaxNote,
	}
}

// UnmarshalJSON fills fields missing from data with their defaults.
func (e *Entry) UnmarshalJSON(data []byte) error {
	type plain Entry
	decoded := plain(DefaultEntry())
	if err := json.Unmarshal(data, &decoded); err != nil {
		return err
	}
	*e = Entry(decoded)
	return nil
}

// Validate checks the entry invariants.
func (e Entry) Validate() error {
	if e.TriggerChannel != contracts.NoChannel && !e.TriggerChannel.IsSpecific() {
		return fmt.Errorf("%w: trigger channel %s", ErrInvalidEntry, e.TriggerChannel)
	}
	if !e.OutputChannel.Valid() {
		return fmt.Errorf("%w: output channel %s", ErrInvalidEntry, e.OutputChannel)
	}
	if e.OutputMapper != mapper.None && !e.OutputMapper.Valid() {
		return fmt.Errorf("%w: mapper %q", ErrInvalidEntry, e.OutputMapper)
	}
	if e.OutputMax > mapper.MaxNote {
		return fmt.Errorf("%w: output max %d above %d", ErrInvalidEntry, e.OutputMax, mapper.MaxNote)
	}
	if e.OutputMin >= e.OutputMax {
		return fmt.Errorf("%w: output min %d must be below max %d", ErrInvalidEntry, e.OutputMin, e.OutputMax)
	}
	return nil
}

// Active reports whether the landmark can produce notes at all.
func (e Entry) Active() bool {
	return e.TriggerChannel.IsSpecific() && e.OutputChannel != contracts.NoChannel && e.OutputMapper.Valid()
}

// Patch is a partial update; nil fields are left unchanged.
type Patch struct {
	TriggerChannel *contracts.Channel
	OutputChannel  *contracts.Channel
	OutputMapper   *mapper.Mode
	OutputMin      *uint8
	OutputMax      *uint8
}

// Apply returns e with the patch applied.
func (p Patch) Apply(e Entry) Entry {
	if p.TriggerChannel != nil {
		e.TriggerChannel = *p.TriggerChannel
	}
	if p.OutputChannel != nil {
		e.OutputChannel = *p.OutputChannel
	}
	if p.OutputMapper != nil {
		e.OutputMapper = *p.OutputMapper
	}
	if p.OutputMin != nil {
		e.OutputMin = *p.OutputMin
	}
	if p.OutputMax != nil {
		e.OutputMax = *p.OutputMax
	}
	return e
}

// Change describes an accepted update of one landmark.
type Change struct {
	Landmark pose.Landmark
	Previous Entry
	Current  Entry
}

// NeedsRelease reports whether notes sent on the previous output channel can
// no longer be released through the normal trigger path: the output channel
// moved, or the trigger was disabled.
func (c Change) NeedsRelease() bool {
	if c.Previous.OutputChannel == contracts.NoChannel {
		return false
	}
	return c.Current.OutputChannel != c.Previous.OutputChannel ||
		c.Current.TriggerChannel == contracts.NoChannel
}

// Store is the concurrency-safe tracking configuration. Every read returns the
// latest accepted value.
type Store struct {
	mu        sync.RWMutex
	entries   [pose.LandmarkCount]Entry
	threshold float64
	listeners []func(Change)
}

// NewStore returns a store with default entries and threshold.
func NewStore() *Store {
	s := &Store{threshold: DefaultVisibilityThreshold}
	for i := range s.entries {
		s.entries[i] = DefaultEntry()
	}
	return s
}

// OnChange registers fn to be called after every accepted update. Listeners
// run on the updating goroutine, outside the store lock.
func (s *Store) OnChange(fn func(Change)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// Entry returns the configuration of l.
func (s *Store) Entry(l pose.Landmark) Entry {
	if !l.Valid() {
		return DefaultEntry()
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.entries[l]
}

// Entries returns a copy of every landmark configuration, indexed by ordinal.
func (s *Store) Entries() [pose.LandmarkCount]Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.entries
}

// Update applies patch to the configuration of l.
func (s *Store) Update(l pose.Landmark, patch Patch) (Change, error) {
	if !l.Valid() {
		return Change{}, fmt.Errorf("%w: %d", pose.ErrUnknownLandmark, int(l))
	}
	s.mu.Lock()
	previous := s.entries[l]
	current := patch.Apply(previous)
	if err := current.Validate(); err != nil {
		s.mu.Unlock()
		return Change{}, fmt.Errorf("%s: %w", l, err)
	}
	s.entries[l] = current
	listeners := s.listeners
	s.mu.Unlock()

	change := Change{Landmark: l, Previous: previous, Current: current}
	for _, fn := range listeners {
		fn(change)
	}
	return change, nil
}

// Set replaces the configuration of l.
func (s *Store) Set(l pose.Landmark, e Entry) (Change, error) {
	return s.Update(l, Patch{
		TriggerChannel: &e.TriggerChannel,
		OutputChannel:  &e.OutputChannel,
		OutputMapper:   &e.OutputMapper,
		OutputMin:      &e.OutputMin,
		OutputMax:      &e.OutputMax,
	})
}

// Reset restores the default entry of every landmark.
func (s *Store) Reset() {
	for _, l := range pose.Landmarks() {
		// Defaults always validate.
		_, _ = s.Set(l, DefaultEntry())
	}
}

// DisableAnyChannel turns every "any channel" output into a disabled output.
// Broadcasting back into the device that sends the triggers would loop.
func (s *Store) DisableAnyChannel() []pose.Landmark {
	var disabled []pose.Landmark
	none := contracts.NoChannel
	for i, e := range s.Entries() {
		if e.OutputChannel != contracts.AnyChannel {
			continue
		}
		l := pose.Landmark(i)
		if _, err := s.Update(l, Patch{OutputChannel: &none}); err == nil {
			disabled = append(disabled, l)
		}
	}
	return disabled
}

// Threshold returns the global visibility threshold.
func (s *Store) Threshold() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.threshold
}

// SetThreshold changes the global visibility threshold.
func (s *Store) SetThreshold(threshold float64) error {
	if threshold < 0 || threshold > 1 || math.IsNaN(threshold) {
		return fmt.Errorf("%w: %v", ErrInvalidThreshold, threshold)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.threshold = threshold
	return nil
}
