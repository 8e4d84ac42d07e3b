// Package lifecycle decides which notes to start on a trigger press and which
// notes are safe to stop on a trigger release.
package lifecycle

import (
	"sort"

	"github.com/leandrodaf/posemidi/sdk/contracts"
)

// Key is one (output channel, note) pair.
type Key struct {
	Channel contracts.Channel
	Note    uint8
}

type (
	noteSet    map[uint8]struct{}
	triggerSet map[contracts.Channel]struct{}
)

// Index stores the relation (trigger, output channel, note) with two access
// paths kept in step by every mutating method:
//
//	triggers[t][c] is the set of notes trigger t holds on channel c
//	channels[c][n] is the set of triggers holding note n on channel c
//
// A note sounds on c exactly while channels[c][n] is non-empty. Empty inner
// maps are always removed.
type Index struct {
	triggers map[contracts.Channel]map[contracts.Channel]noteSet
	channels map[contracts.Channel]map[uint8]triggerSet
}

// NewIndex returns an empty index.
func NewIndex() *Index {
	return &Index{
		triggers: make(map[contracts.Channel]map[contracts.Channel]noteSet),
		channels: make(map[contracts.Channel]map[uint8]triggerSet),
	}
}

// Hold records that trigger t holds note n on channel c. It reports whether
// the note was silent on c before, i.e. whether a Note On must be sent.
func (ix *Index) Hold(t, c contracts.Channel, n uint8) (started bool) {
	byChannel, ok := ix.triggers[t]
	if !ok {
		byChannel = make(map[contracts.Channel]noteSet)
		ix.triggers[t] = byChannel
	}
	notes, ok := byChannel[c]
	if !ok {
		notes = make(noteSet)
		byChannel[c] = notes
	}
	notes[n] = struct{}{}

	byNote, ok := ix.channels[c]
	if !ok {
		byNote = make(map[uint8]triggerSet)
		ix.channels[c] = byNote
	}
	holders, ok := byNote[n]
	if !ok {
		holders = make(triggerSet)
		byNote[n] = holders
	}
	started = len(holders) == 0
	holders[t] = struct{}{}
	return started
}

// Release removes everything trigger t holds and returns the pairs nobody
// holds any more, sorted by channel then note. Pairs still held by another
// trigger are kept sounding and not returned.
func (ix *Index) Release(t contracts.Channel) []Key {
	byChannel, ok := ix.triggers[t]
	if !ok {
		return nil
	}
	delete(ix.triggers, t)

	var stopped []Key
	for c, notes := range byChannel {
		for n := range notes {
			if ix.unlink(t, c, n) {
				stopped = append(stopped, Key{Channel: c, Note: n})
			}
		}
	}
	sortKeys(stopped)
	return stopped
}

// DropChannel forgets every holding on channel c and returns the notes that
// were sounding there, sorted.
func (ix *Index) DropChannel(c contracts.Channel) []uint8 {
	byNote, ok := ix.channels[c]
	if !ok {
		return nil
	}
	delete(ix.channels, c)

	notes := make([]uint8, 0, len(byNote))
	for n, holders := range byNote {
		notes = append(notes, n)
		for t := range holders {
			byChannel := ix.triggers[t]
			delete(byChannel, c)
			if len(byChannel) == 0 {
				delete(ix.triggers, t)
			}
		}
	}
	sort.Slice(notes, func(i, j int) bool { return notes[i] < notes[j] })
	return notes
}

// Clear empties the index.
func (ix *Index) Clear() {
	ix.triggers = make(map[contracts.Channel]map[contracts.Channel]noteSet)
	ix.channels = make(map[contracts.Channel]map[uint8]triggerSet)
}

// Sounding reports whether note n is held by any trigger on channel c.
func (ix *Index) Sounding(c contracts.Channel, n uint8) bool {
	return len(ix.channels[c][n]) > 0
}

// Holders returns the triggers holding note n on channel c, sorted.
func (ix *Index) Holders(c contracts.Channel, n uint8) []contracts.Channel {
	holders := ix.channels[c][n]
	out := make([]contracts.Channel, 0, len(holders))
	for t := range holders {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Held returns the pairs trigger t holds, sorted.
func (ix *Index) Held(t contracts.Channel) []Key {
	var keys []Key
	for c, notes := range ix.triggers[t] {
		for n := range notes {
			keys = append(keys, Key{Channel: c, Note: n})
		}
	}
	sortKeys(keys)
	return keys
}

// SoundingKeys returns every sounding pair, sorted.
func (ix *Index) SoundingKeys() []Key {
	var keys []Key
	for c, byNote := range ix.channels {
		for n := range byNote {
			keys = append(keys, Key{Channel: c, Note: n})
		}
	}
	sortKeys(keys)
	return keys
}

// Empty reports whether nothing is held.
func (ix *Index) Empty() bool {
	return len(ix.triggers) == 0 && len(ix.channels) == 0
}

// unlink removes t from channels[c][n] and reports whether the note became
// silent. The triggers side is handled by the caller.
func (ix *Index) unlink(t, c contracts.Channel, n uint8) bool {
	byNote := ix.channels[c]
	holders := byNote[n]
	delete(holders, t)
	if len(holders) > 0 {
		return false
	}
	delete(byNote, n)
	if len(byNote) == 0 {
		delete(ix.channels, c)
	}
	return true
}

func sortKeys(keys []Key) {
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Channel != keys[j].Channel {
			return keys[i].Channel < keys[j].Channel
		}
		return keys[i].Note < keys[j].Note
	})
}
