package theory

import "sort"

// ChordType selects the three base intervals of a chord.
type ChordType int

const (
	Maj ChordType = iota
	Min
	Dim
	Sus
)

func (t ChordType) String() string {
	switch t {
	case Min:
		return "min"
	case Dim:
		return "dim"
	case Sus:
		return "sus"
	default:
		return "maj"
	}
}

// Extension is a bitset of optional chord tones.
type Extension int

const (
	Ext6 Extension = 1 << iota
	ExtM7
	ExtMaj7
	Ext9
)

func (e Extension) Has(x Extension) bool { return e&x != 0 }

var baseIntervals = map[ChordType][3]int{
	Maj: {0, 4, 7},
	Min: {0, 3, 7},
	Dim: {0, 3, 6},
	Sus: {0, 5, 7},
}

var extensionIntervals = []struct {
	ext      Extension
	semitone int
}{
	{Ext6, 9},
	{ExtM7, 10},
	{ExtMaj7, 11},
	{Ext9, 14},
}

// BuildChord returns the semitone offsets of a chord relative to its
// root: three base intervals per type, one extra interval per active
// extension, sorted ascending, then voicing lifts floor(voicing*4) of
// the entries by an octave, round-robin from the lowest. The lifted
// list keeps its pre-lift order.
func BuildChord(chordType ChordType, exts Extension, voicing float64) []int {
	base := baseIntervals[chordType]
	offsets := []int{base[0], base[1], base[2]}
	for _, e := range extensionIntervals {
		if exts.Has(e.ext) {
			offsets = append(offsets, e.semitone)
		}
	}
	sort.Ints(offsets)

	if voicing < 0 {
		voicing = 0
	}
	if voicing > 1 {
		voicing = 1
	}
	lifts := int(voicing * 4)
	for i := 0; i < lifts; i++ {
		offsets[i%len(offsets)] += 12
	}
	return offsets
}

var typeSuffix = map[ChordType]string{
	Maj: "",
	Min: "m",
	Dim: "dim",
	Sus: "sus4",
}

// ChordName renders the display name for a chord. The suffix order
// (seventh, then 9, then 6) is a fixed display convention kept for
// compatibility, not a music-theoretical one.
func ChordName(rootClass int, chordType ChordType, exts Extension) string {
	name := NoteNames[((rootClass%12)+12)%12] + typeSuffix[chordType]
	switch {
	case exts.Has(ExtMaj7):
		name += "maj7"
	case exts.Has(ExtM7):
		name += "7"
	}
	if exts.Has(Ext9) {
		name += "9"
	}
	if exts.Has(Ext6) {
		name += "6"
	}
	return name
}
