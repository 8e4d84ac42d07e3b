package pose

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
)

// ErrFrameTooLong is returned when a frame has more entries than landmarks.
var ErrFrameTooLong = errors.New("frame has more entries than landmarks")

// Point is a normalised image coordinate, origin top-left, both axes in [0, 1].
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Slot is one landmark's entry in a frame. Present is false when the model
// did not report the landmark.
type Slot struct {
	Point
	Visibility float64 `json:"visibility"`
	Present    bool    `json:"-"`
}

// Snapshot is a complete estimation frame indexed by Landmark.
type Snapshot [LandmarkCount]Slot

// At returns the slot of l.
func (s *Snapshot) At(l Landmark) Slot {
	if !l.Valid() {
		return Slot{}
	}
	return s[l]
}

// Set stores a reported landmark.
func (s *Snapshot) Set(l Landmark, p Point, visibility float64) {
	if !l.Valid() {
		return
	}
	s[l] = Slot{Point: p, Visibility: visibility, Present: true}
}

// DecodeFrame parses a frame encoded as a JSON array aligned to the landmark
// ordinals. Entries may be null for landmarks the model did not report, and a
// short array leaves the remaining landmarks empty.
func DecodeFrame(data []byte) (Snapshot, error) {
	var (
		snapshot Snapshot
		entries  []*Slot
	)
	if err := json.Unmarshal(data, &entries); err != nil {
		return snapshot, fmt.Errorf("decode frame: %w", err)
	}
	if len(entries) > LandmarkCount {
		return snapshot, fmt.Errorf("%w: %d entries", ErrFrameTooLong, len(entries))
	}
	for i, entry := range entries {
		if entry == nil {
			continue
		}
		snapshot.Set(Landmark(i), entry.Point, entry.Visibility)
	}
	return snapshot, nil
}

// Store keeps the latest frame. Replace swaps the whole frame in one atomic
// store so readers never observe a partially written snapshot.
type Store struct {
	current atomic.Pointer[Snapshot]
	frames  atomic.Uint64
}

// NewStore returns a store holding an empty snapshot.
func NewStore() *Store {
	s := &Store{}
	s.current.Store(&Snapshot{})
	return s
}

// Replace makes snapshot the current frame.
func (s *Store) Replace(snapshot Snapshot) {
	s.current.Store(&snapshot)
	s.frames.Add(1)
}

// Snapshot returns a copy of the current frame.
func (s *Store) Snapshot() Snapshot {
	return *s.current.Load()
}

// Frames returns how many frames have been stored.
func (s *Store) Frames() uint64 {
	return s.frames.Load()
}

// Clear drops the current frame.
func (s *Store) Clear() {
	s.current.Store(&Snapshot{})
}
