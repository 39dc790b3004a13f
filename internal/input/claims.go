// Package input arbitrates concurrent input sources (pointers, touches,
// physical keyboard keys) over the 13 logical keys. A key is held while
// at least one source claims it; a source claims at most one key at a
// time. Not safe for concurrent use; the engine facade serializes
// access.
package input

// SourceKind tags the origin of an input claim.
type SourceKind int

const (
	Pointer SourceKind = iota
	Touch
	Keyboard
)

// Source identifies one input source. Comparable, used as a map key.
// Num carries the pointer/touch id, Code the physical key code.
type Source struct {
	Kind SourceKind
	Num  int
	Code string
}

func PointerSource(id int) Source     { return Source{Kind: Pointer, Num: id} }
func TouchSource(id int) Source       { return Source{Kind: Touch, Num: id} }
func KeyboardSource(code string) Source { return Source{Kind: Keyboard, Code: code} }

// Arbiter tracks claims and signals when a key becomes held or fully
// released. OnKeyDown fires when a key gains its first claim or is
// re-entered by a source that already claimed it (retrigger); OnKeyUp
// fires only when a key loses its last claim.
type Arbiter struct {
	claims    map[Source]int
	holders   map[int]map[Source]struct{}
	OnKeyDown func(key int)
	OnKeyUp   func(key int)
}

func NewArbiter() *Arbiter {
	return &Arbiter{
		claims:  make(map[Source]int),
		holders: make(map[int]map[Source]struct{}),
	}
}

// Enter claims a key for a source. If the source held a different key
// the claim transfers, and the new key's down signal fires before the
// old key's release signal: a slide must start the new voice before
// the old one stops, so the arpeggiator never observes an empty hold
// set mid-gesture.
func (a *Arbiter) Enter(src Source, key int) {
	old, had := a.claims[src]
	if had && old == key {
		// Same key, same source: pointer jitter inside one key, not a
		// new press.
		return
	}
	a.claims[src] = key
	if a.holders[key] == nil {
		a.holders[key] = make(map[Source]struct{})
	}
	a.holders[key][src] = struct{}{}
	a.down(key)
	if had {
		a.drop(src, old)
	}
}

// Exit removes whatever claim the source holds. No-op if none.
func (a *Arbiter) Exit(src Source) {
	key, ok := a.claims[src]
	if !ok {
		return
	}
	delete(a.claims, src)
	a.drop(src, key)
}

// Held reports whether any source claims the key.
func (a *Arbiter) Held(key int) bool {
	return len(a.holders[key]) > 0
}

// Holds reports whether the source currently claims any key.
func (a *Arbiter) Holds(src Source) bool {
	_, ok := a.claims[src]
	return ok
}

// ReleaseAll clears every claim and signals full release for every key
// that had any. Safety net for window blur and teardown.
func (a *Arbiter) ReleaseAll() {
	released := make([]int, 0, len(a.holders))
	for key, set := range a.holders {
		if len(set) > 0 {
			released = append(released, key)
		}
	}
	a.claims = make(map[Source]int)
	a.holders = make(map[int]map[Source]struct{})
	for _, key := range released {
		a.up(key)
	}
}

func (a *Arbiter) drop(src Source, key int) {
	set := a.holders[key]
	if set == nil {
		return
	}
	delete(set, src)
	if len(set) == 0 {
		delete(a.holders, key)
		a.up(key)
	}
}

func (a *Arbiter) down(key int) {
	if a.OnKeyDown != nil {
		a.OnKeyDown(key)
	}
}

func (a *Arbiter) up(key int) {
	if a.OnKeyUp != nil {
		a.OnKeyUp(key)
	}
}
