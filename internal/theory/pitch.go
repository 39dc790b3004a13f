package theory

import (
	"errors"
	"sort"
	"strconv"
)

// NoteNames is the chromatic pitch-class table, 0-indexed from C.
var NoteNames = [12]string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

// Pitch identifies one sounded frequency by pitch class and octave.
// C4 is middle C (index 60).
type Pitch struct {
	Class  int // 0-11, chromatic from C
	Octave int
}

// PitchAt converts a linear semitone index back to a Pitch.
func PitchAt(index int) Pitch {
	return Pitch{Class: ((index % 12) + 12) % 12, Octave: index/12 - 1}
}

// Index returns the linear semitone index of the pitch (C4 = 60).
func (p Pitch) Index() int {
	return (p.Octave+1)*12 + p.Class
}

func (p Pitch) Name() string {
	return NoteNames[((p.Class%12)+12)%12] + strconv.Itoa(p.Octave)
}

// Transpose returns the pitch shifted by the given number of semitones.
func (p Pitch) Transpose(semitones int) Pitch {
	return PitchAt(p.Index() + semitones)
}

var errBadPitch = errors.New("malformed pitch name")

// ParsePitch parses names like "C4" or "A#3". Negative octaves
// ("C#-1") are accepted.
func ParsePitch(name string) (Pitch, error) {
	if name == "" {
		return Pitch{}, errBadPitch
	}
	split := 1
	if len(name) > 1 && name[1] == '#' {
		split = 2
	}
	class := -1
	for i, n := range NoteNames {
		if n == name[:split] {
			class = i
			break
		}
	}
	if class < 0 {
		return Pitch{}, errBadPitch
	}
	oct, err := strconv.Atoi(name[split:])
	if err != nil {
		return Pitch{}, errBadPitch
	}
	return Pitch{Class: class, Octave: oct}, nil
}

// SortAscending orders pitches by semitone index, in place.
func SortAscending(pitches []Pitch) {
	sort.Slice(pitches, func(i, j int) bool {
		return pitches[i].Index() < pitches[j].Index()
	})
}
