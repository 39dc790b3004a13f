// Package perform implements the four playback strategies that map a
// key press onto tone-generator attacks: poly (block chord), strum
// (staggered), arp (self-scheduling arpeggio with smooth transitions)
// and harp (staggered with octave doubling).
//
// All timing is expressed in sample frames. The engine facade calls
// Tick once per rendered frame; staggered attacks and arpeggio ticks
// are frame deadlines, so tempo is sample-aligned and tests drive the
// clock directly. Not safe for concurrent use; the facade serializes
// access.
package perform

import (
	"github.com/donnybrilliant/Laelia/internal/theory"
	"github.com/donnybrilliant/Laelia/internal/voices"
)

// ToneGenerator is the sound backend seam. Attack on a sounding pitch
// retriggers it; Release of a silent pitch is a no-op.
type ToneGenerator interface {
	Attack(p theory.Pitch)
	Release(p theory.Pitch)
	ReleaseAll()
}

// Mode is one of the four performance modes.
type Mode int

const (
	Poly Mode = iota
	Strum
	Arp
	Harp
)

func (m Mode) String() string {
	switch m {
	case Strum:
		return "strum"
	case Arp:
		return "arp"
	case Harp:
		return "harp"
	default:
		return "poly"
	}
}

const (
	strumStaggerMs = 50
	harpStaggerMs  = 30
)

type pendingAttack struct {
	frame int64
	key   int
	pitch theory.Pitch
}

type Engine struct {
	tone       ToneGenerator
	ledger     *voices.Ledger
	sampleRate int

	mode  Mode
	bpm   float64
	frame int64

	pending []pendingAttack

	arpRunning  bool
	arpNext     int64
	arpSeq      []theory.Pitch
	arpIndex    int
	arpQueue    []theory.Pitch
	arpSounding theory.Pitch
	arpAudible  bool
}

func New(tone ToneGenerator, sampleRate int) *Engine {
	return &Engine{
		tone:       tone,
		ledger:     voices.NewLedger(),
		sampleRate: sampleRate,
		bpm:        120,
	}
}

// Ledger exposes the voice ledger for display readbacks.
func (e *Engine) Ledger() *voices.Ledger { return e.ledger }

func (e *Engine) Mode() Mode { return e.mode }

// SetMode switches the playback strategy. Any in-flight arpeggio
// scheduling stops and its sounding note is released first, so no
// note can stick across a switch.
func (e *Engine) SetMode(m Mode) {
	e.stopArp()
	e.pending = e.pending[:0]
	e.mode = m
}

// SetTempo sets the arpeggio tempo. Takes effect when the next tick
// re-arms; no drift correction is needed.
func (e *Engine) SetTempo(bpm float64) {
	if bpm < 40 {
		bpm = 40
	}
	if bpm > 200 {
		bpm = 200
	}
	e.bpm = bpm
}

func (e *Engine) Tempo() float64 { return e.bpm }

// tickFrames is the arpeggio tick interval in frames: eighth notes at
// the current tempo (60000/bpm/2 ms).
func (e *Engine) tickFrames() int64 {
	f := int64(float64(e.sampleRate) * 30.0 / e.bpm)
	if f < 1 {
		f = 1
	}
	return f
}

func (e *Engine) staggerFrames(ms int) int64 {
	return int64(e.sampleRate) * int64(ms) / 1000
}

// Tick advances the frame clock by one frame, firing due staggered
// attacks and arpeggio ticks.
func (e *Engine) Tick() {
	e.frame++
	if len(e.pending) > 0 {
		kept := e.pending[:0]
		for _, pa := range e.pending {
			if pa.frame <= e.frame {
				e.tone.Attack(pa.pitch)
			} else {
				kept = append(kept, pa)
			}
		}
		e.pending = kept
	}
	if e.arpRunning && e.frame >= e.arpNext {
		e.arpTick()
		e.arpNext = e.frame + e.tickFrames()
	}
}

// KeyDown sounds a key's chord and bass according to the current mode.
// Re-pressing a held key retriggers it: the old voice is released
// first, except in arp mode where the key's contribution is recomputed
// into the shared sequence without an audible gap.
func (e *Engine) KeyDown(key int, chord []theory.Pitch, bass theory.Pitch) {
	if e.mode == Arp {
		e.arpKeyDown(key, chord, bass)
		return
	}

	if old, held := e.ledger.Entry(key); held {
		e.releaseEntry(old)
	}
	if e.mode == Harp {
		chord = octaveDoubled(chord)
	}
	e.ledger.Put(key, chord, bass)
	e.tone.Attack(bass)

	switch e.mode {
	case Poly:
		for _, p := range chord {
			e.tone.Attack(p)
		}
	case Strum, Harp:
		ms := strumStaggerMs
		if e.mode == Harp {
			ms = harpStaggerMs
		}
		step := e.staggerFrames(ms)
		for i, p := range chord {
			if i == 0 {
				e.tone.Attack(p)
				continue
			}
			e.pending = append(e.pending, pendingAttack{
				frame: e.frame + int64(i)*step,
				key:   key,
				pitch: p,
			})
		}
	}
}

// KeyUp releases a key's voice. No-op if the key has no entry.
func (e *Engine) KeyUp(key int) {
	entry := e.ledger.Remove(key)
	if entry == nil {
		return
	}
	e.cancelPending(key)
	for _, p := range entry.Chord {
		if e.ledger.SharedElsewhere(key, p) {
			continue
		}
		if e.arpAudible && p == e.arpSounding {
			// The arpeggiator owns this pitch; the next tick or the
			// transition walk releases it.
			continue
		}
		e.tone.Release(p)
	}
	if !e.ledger.SharedElsewhere(key, entry.Bass) {
		e.tone.Release(entry.Bass)
	}
	if e.mode == Arp && e.arpRunning {
		if e.ledger.Len() == 0 {
			e.stopArp()
		} else {
			e.recomputeArp()
		}
	}
}

// ReleaseAll drops every voice and cancels all scheduling.
func (e *Engine) ReleaseAll() {
	e.pending = e.pending[:0]
	e.stopArp()
	e.ledger.Clear()
	e.tone.ReleaseAll()
}

// releaseEntry retriggers a single key's own voice: pending attacks
// cancel, fired pitches release unless shared. Other held keys are
// never interrupted.
func (e *Engine) releaseEntry(entry *voices.Entry) {
	e.ledger.Remove(entry.Key)
	e.cancelPending(entry.Key)
	for _, p := range entry.Chord {
		if !e.ledger.SharedElsewhere(entry.Key, p) {
			e.tone.Release(p)
		}
	}
	if !e.ledger.SharedElsewhere(entry.Key, entry.Bass) {
		e.tone.Release(entry.Bass)
	}
}

func (e *Engine) cancelPending(key int) {
	kept := e.pending[:0]
	for _, pa := range e.pending {
		if pa.key != key {
			kept = append(kept, pa)
		}
	}
	e.pending = kept
}

// PendingAttacks reports how many staggered attacks are still
// scheduled for a key.
func (e *Engine) PendingAttacks(key int) int {
	n := 0
	for _, pa := range e.pending {
		if pa.key == key {
			n++
		}
	}
	return n
}

func (e *Engine) arpKeyDown(key int, chord []theory.Pitch, bass theory.Pitch) {
	if old, ok := e.ledger.Entry(key); ok {
		// Retrigger without a hard release; only the bass swaps.
		e.ledger.Remove(key)
		if old.Bass != bass && !e.ledger.SharedElsewhere(key, old.Bass) {
			e.tone.Release(old.Bass)
		}
	}
	e.ledger.Put(key, chord, bass)
	e.tone.Attack(bass)

	// Keys can already be held when the mode switches to arp, so the
	// idle scheduler starts from the full hold set, not only from an
	// empty one.
	if !e.arpRunning {
		e.startArp()
	} else {
		e.recomputeArp()
	}
}

// startArp begins a fresh sequence: the first pitch sounds immediately
// rather than waiting a full tick.
func (e *Engine) startArp() {
	seq := e.ledger.Sounding()
	if len(seq) == 0 {
		return
	}
	e.arpSeq = seq
	e.arpIndex = 0
	e.arpQueue = nil
	e.arpSounding = seq[0]
	e.arpAudible = true
	e.arpRunning = true
	e.tone.Attack(seq[0])
	e.arpNext = e.frame + e.tickFrames()
}

func (e *Engine) stopArp() {
	if e.arpAudible {
		e.tone.Release(e.arpSounding)
		e.arpAudible = false
	}
	e.arpRunning = false
	e.arpSeq = nil
	e.arpQueue = nil
	e.arpIndex = 0
}

// arpTick releases the sounding pitch and advances: the transition
// queue has priority over normal round-robin.
func (e *Engine) arpTick() {
	if e.arpAudible {
		e.tone.Release(e.arpSounding)
		e.arpAudible = false
	}
	var next theory.Pitch
	if len(e.arpQueue) > 0 {
		next = e.arpQueue[0]
		e.arpQueue = e.arpQueue[1:]
		if i := indexOfPitch(e.arpSeq, next); i >= 0 {
			e.arpIndex = i
		}
	} else {
		if len(e.arpSeq) == 0 {
			e.stopArp()
			return
		}
		e.arpIndex = (e.arpIndex + 1) % len(e.arpSeq)
		next = e.arpSeq[e.arpIndex]
	}
	e.arpSounding = next
	e.arpAudible = true
	e.tone.Attack(next)
}

// recomputeArp rebuilds the sequence from the held keys and queues a
// monotonic walk from the sounding pitch to its nearest entry in the
// new sequence, so resequencing never jump-cuts.
func (e *Engine) recomputeArp() {
	seq := e.ledger.Sounding()
	if len(seq) == 0 {
		e.stopArp()
		return
	}
	if !e.arpAudible {
		e.arpSeq = seq
		e.arpQueue = nil
		if e.arpIndex >= len(seq) {
			e.arpIndex = 0
		}
		return
	}

	if pitchesEqual(seq, e.arpSeq) {
		return
	}

	// Nearest new entry; ties prefer the lower. When the sounding
	// pitch survives into the new sequence it is its own target and
	// the queue stays empty: round-robin just continues from its new
	// position.
	cur := e.arpSounding.Index()
	nearest := seq[0]
	best := -1
	for _, p := range seq {
		if d := absInt(p.Index() - cur); best < 0 || d < best {
			best = d
			nearest = p
		}
	}
	target := nearest.Index()

	var queue []theory.Pitch
	switch {
	case target > cur:
		for _, p := range seq { // seq is ascending
			if idx := p.Index(); idx > cur && idx <= target {
				queue = append(queue, p)
			}
		}
	case target < cur:
		for i := len(seq) - 1; i >= 0; i-- {
			if idx := seq[i].Index(); idx >= target && idx < cur {
				queue = append(queue, seq[i])
			}
		}
	}
	e.arpSeq = seq
	e.arpQueue = queue
	if i := indexOfPitch(seq, nearest); i >= 0 {
		e.arpIndex = i
	}
}

// ArpState reports the sequence, transition queue and sounding pitch
// for inspection.
func (e *Engine) ArpState() (seq, queue []theory.Pitch, sounding theory.Pitch, audible bool) {
	return append([]theory.Pitch(nil), e.arpSeq...),
		append([]theory.Pitch(nil), e.arpQueue...),
		e.arpSounding, e.arpAudible
}

func octaveDoubled(chord []theory.Pitch) []theory.Pitch {
	seen := make(map[theory.Pitch]bool)
	out := make([]theory.Pitch, 0, len(chord)*2)
	for _, p := range chord {
		for _, q := range []theory.Pitch{p, p.Transpose(12)} {
			if !seen[q] {
				seen[q] = true
				out = append(out, q)
			}
		}
	}
	theory.SortAscending(out)
	return out
}

func pitchesEqual(a, b []theory.Pitch) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func indexOfPitch(seq []theory.Pitch, p theory.Pitch) int {
	for i, q := range seq {
		if q == p {
			return i
		}
	}
	return -1
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
