// Package voices owns the mapping from held keys to the pitches they
// produced. It records ownership only; playback timing belongs to the
// performance engine. Not safe for concurrent use; the engine facade
// serializes access.
package voices

import (
	"sort"

	"github.com/donnybrilliant/Laelia/internal/theory"
)

// Entry is the voice produced by one held key: the chord pitches plus
// the bass pitch. At most one entry exists per key.
type Entry struct {
	Key   int
	Chord []theory.Pitch
	Bass  theory.Pitch
}

type Ledger struct {
	entries map[int]*Entry
}

func NewLedger() *Ledger {
	return &Ledger{entries: make(map[int]*Entry)}
}

// Put inserts the entry for a key, replacing any previous one.
func (l *Ledger) Put(key int, chord []theory.Pitch, bass theory.Pitch) *Entry {
	e := &Entry{Key: key, Chord: chord, Bass: bass}
	l.entries[key] = e
	return e
}

// Remove deletes and returns the entry for a key. Returns nil if the
// key has no entry; redundant releases are not an error.
func (l *Ledger) Remove(key int) *Entry {
	e := l.entries[key]
	delete(l.entries, key)
	return e
}

// Entry returns the entry for a key, if held.
func (l *Ledger) Entry(key int) (*Entry, bool) {
	e, ok := l.entries[key]
	return e, ok
}

func (l *Ledger) Held(key int) bool {
	_, ok := l.entries[key]
	return ok
}

func (l *Ledger) Len() int { return len(l.entries) }

// Clear removes every entry and returns them.
func (l *Ledger) Clear() []*Entry {
	out := make([]*Entry, 0, len(l.entries))
	for _, e := range l.entries {
		out = append(out, e)
	}
	l.entries = make(map[int]*Entry)
	return out
}

// SharedElsewhere reports whether a pitch is also owned by an entry
// other than the given key's. A shared pitch must not be released
// while any other holder remains.
func (l *Ledger) SharedElsewhere(key int, p theory.Pitch) bool {
	for k, e := range l.entries {
		if k == key {
			continue
		}
		if e.Bass == p {
			return true
		}
		for _, cp := range e.Chord {
			if cp == p {
				return true
			}
		}
	}
	return false
}

// Sounding returns the deduplicated union of all entries' chord
// pitches, ascending by semitone index. This is the raw material for
// both the active-notes display and arpeggio sequencing.
func (l *Ledger) Sounding() []theory.Pitch {
	seen := make(map[theory.Pitch]bool)
	var out []theory.Pitch
	for _, e := range l.entries {
		for _, p := range e.Chord {
			if !seen[p] {
				seen[p] = true
				out = append(out, p)
			}
		}
	}
	theory.SortAscending(out)
	return out
}

// Keys returns the held keys in ascending order.
func (l *Ledger) Keys() []int {
	out := make([]int, 0, len(l.entries))
	for k := range l.entries {
		out = append(out, k)
	}
	sort.Ints(out)
	return out
}
