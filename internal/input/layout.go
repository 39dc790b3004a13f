package input

// The 13 logical keys span one diatonic octave: 8 natural positions
// (indices 0-7) and 5 accidental positions (indices 8-12).

// KeyCount is the number of logical keys.
const KeyCount = 13

// keyOffsets maps a logical key to its semitone offset from the root.
var keyOffsets = [KeyCount]int{
	0, 2, 4, 5, 7, 9, 11, 12, // naturals C D E F G A B C
	1, 3, 6, 8, 10, // accidentals C# D# F# G# A#
}

// KeyOffset returns the semitone offset for a logical key, clamped to
// the valid range.
func KeyOffset(key int) int {
	if key < 0 {
		key = 0
	}
	if key >= KeyCount {
		key = KeyCount - 1
	}
	return keyOffsets[key]
}

// IsAccidental reports whether the logical key is one of the five
// raised positions.
func IsAccidental(key int) bool { return key >= 8 }

const (
	naturalCount = 8
	// accidentalZone is the fraction of key height where accidentals
	// take priority over the naturals beneath them.
	accidentalZone = 0.62
	// accidentalWidth is the accidental key width as a fraction of a
	// natural key width.
	accidentalWidth = 0.6
)

// accidentalAfter lists, per accidental key 8..12, the natural index
// whose right boundary the accidental straddles.
var accidentalAfter = [5]int{0, 1, 3, 4, 5}

// KeyAt resolves a position inside a w-by-h keyboard area to a logical
// key, or -1 for a miss. Naturals divide the width equally; accidentals
// sit centered on the boundaries after naturals 0,1,3,4,5 and win in
// the upper zone.
func KeyAt(x, y, w, h float64) int {
	if w <= 0 || h <= 0 || x < 0 || x >= w || y < 0 || y >= h {
		return -1
	}
	naturalW := w / naturalCount
	if y < h*accidentalZone {
		half := naturalW * accidentalWidth / 2
		for i, after := range accidentalAfter {
			center := naturalW * float64(after+1)
			if x >= center-half && x < center+half {
				return 8 + i
			}
		}
	}
	nat := int(x / naturalW)
	if nat >= naturalCount {
		nat = naturalCount - 1
	}
	return nat
}

// keyCodes is the fixed physical-key table, independent of keyboard
// layout: home row for naturals, the row above for accidentals.
var keyCodes = map[string]int{
	"KeyA": 0, "KeyS": 1, "KeyD": 2, "KeyF": 3,
	"KeyG": 4, "KeyH": 5, "KeyJ": 6, "KeyK": 7,
	"KeyW": 8, "KeyE": 9, "KeyT": 10, "KeyY": 11, "KeyU": 12,
}

// KeyForCode maps a physical key code to its logical key.
func KeyForCode(code string) (int, bool) {
	k, ok := keyCodes[code]
	return k, ok
}

// CodeForKey returns the physical key code bound to a logical key,
// for rendering shortcut labels.
func CodeForKey(key int) string {
	for code, k := range keyCodes {
		if k == key {
			return code
		}
	}
	return ""
}

// KeyLabel is the single-character shortcut label for a logical key.
func KeyLabel(key int) string {
	code := CodeForKey(key)
	if len(code) == 4 {
		return code[3:]
	}
	return ""
}
