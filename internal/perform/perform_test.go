package perform

import (
	"reflect"
	"testing"

	"github.com/donnybrilliant/Laelia/internal/theory"
)

// testRate keeps frame math readable: 1 frame = 1ms.
const testRate = 1000

type recordingTone struct {
	attacks     []string
	releases    []string
	sounding    map[string]int
	releaseAlls int
}

func newRecordingTone() *recordingTone {
	return &recordingTone{sounding: make(map[string]int)}
}

func (r *recordingTone) Attack(p theory.Pitch) {
	r.attacks = append(r.attacks, p.Name())
	r.sounding[p.Name()]++
}

func (r *recordingTone) Release(p theory.Pitch) {
	r.releases = append(r.releases, p.Name())
	if r.sounding[p.Name()] > 0 {
		r.sounding[p.Name()]--
	}
}

func (r *recordingTone) ReleaseAll() {
	r.releaseAlls++
	r.sounding = make(map[string]int)
}

func (r *recordingTone) audible() []string {
	var out []string
	for name, n := range r.sounding {
		if n > 0 {
			out = append(out, name)
		}
	}
	return out
}

func pitches(names ...string) []theory.Pitch {
	out := make([]theory.Pitch, len(names))
	for i, n := range names {
		p, err := theory.ParsePitch(n)
		if err != nil {
			panic(err)
		}
		out[i] = p
	}
	return out
}

func pitch(name string) theory.Pitch { return pitches(name)[0] }

func tick(e *Engine, frames int) {
	for i := 0; i < frames; i++ {
		e.Tick()
	}
}

func TestPolyAttacksChordAndBassAtOnce(t *testing.T) {
	tone := newRecordingTone()
	e := New(tone, testRate)
	e.KeyDown(0, pitches("C4", "E4", "G4"), pitch("C2"))
	want := []string{"C2", "C4", "E4", "G4"}
	if !reflect.DeepEqual(tone.attacks, want) {
		t.Fatalf("attacks = %v, want %v", tone.attacks, want)
	}
}

func TestStrumStaggersAt50ms(t *testing.T) {
	tone := newRecordingTone()
	e := New(tone, testRate)
	e.SetMode(Strum)
	e.KeyDown(0, pitches("C4", "E4", "G4"), pitch("C2"))

	if !reflect.DeepEqual(tone.attacks, []string{"C2", "C4"}) {
		t.Fatalf("immediate attacks = %v", tone.attacks)
	}
	tick(e, 49)
	if len(tone.attacks) != 2 {
		t.Fatalf("attack fired before 50ms: %v", tone.attacks)
	}
	tick(e, 1)
	if !reflect.DeepEqual(tone.attacks, []string{"C2", "C4", "E4"}) {
		t.Fatalf("attacks at 50ms = %v", tone.attacks)
	}
	tick(e, 50)
	if !reflect.DeepEqual(tone.attacks, []string{"C2", "C4", "E4", "G4"}) {
		t.Fatalf("attacks at 100ms = %v", tone.attacks)
	}
}

func TestStrumEarlyReleaseCancelsPendingAttacks(t *testing.T) {
	tone := newRecordingTone()
	e := New(tone, testRate)
	e.SetMode(Strum)
	e.KeyDown(0, pitches("C4", "E4", "G4"), pitch("C2"))
	tick(e, 10)
	e.KeyUp(0)
	if e.PendingAttacks(0) != 0 {
		t.Fatalf("pending attacks survived release")
	}
	tick(e, 200)
	if len(tone.attacks) != 2 {
		t.Fatalf("cancelled attacks still fired: %v", tone.attacks)
	}
	if got := tone.audible(); len(got) != 0 {
		t.Fatalf("pitches left sounding: %v", got)
	}
}

func TestStrumRetriggerCancelsAndRestarts(t *testing.T) {
	tone := newRecordingTone()
	e := New(tone, testRate)
	e.SetMode(Strum)
	e.KeyDown(0, pitches("C4", "E4", "G4"), pitch("C2"))
	tick(e, 60) // C4 and E4 fired
	e.KeyDown(0, pitches("C4", "E4", "G4"), pitch("C2"))
	if e.PendingAttacks(0) != 2 {
		t.Fatalf("retrigger should reschedule 2 staggered attacks, got %d", e.PendingAttacks(0))
	}
	// Old voice released before the new attack set.
	for _, want := range []string{"C4", "E4", "C2"} {
		found := false
		for _, rel := range tone.releases {
			if rel == want {
				found = true
			}
		}
		if !found {
			t.Fatalf("retrigger did not release %s (releases %v)", want, tone.releases)
		}
	}
}

func TestHarpDoublesOctaveAt30ms(t *testing.T) {
	tone := newRecordingTone()
	e := New(tone, testRate)
	e.SetMode(Harp)
	e.KeyDown(0, pitches("C4", "E4", "G4"), pitch("C2"))
	// 6 notes total, first immediate, 5 pending at 30ms steps.
	if e.PendingAttacks(0) != 5 {
		t.Fatalf("pending = %d, want 5", e.PendingAttacks(0))
	}
	tick(e, 30*5)
	want := []string{"C2", "C4", "E4", "G4", "C5", "E5", "G5"}
	if !reflect.DeepEqual(tone.attacks, want) {
		t.Fatalf("attacks = %v, want %v", tone.attacks, want)
	}
}

func TestArpStartsImmediatelyAndCycles(t *testing.T) {
	tone := newRecordingTone()
	e := New(tone, testRate)
	e.SetMode(Arp)
	e.SetTempo(120) // tick every 250 frames
	e.KeyDown(0, pitches("C4", "E4", "G4"), pitch("C2"))

	if !reflect.DeepEqual(tone.attacks, []string{"C2", "C4"}) {
		t.Fatalf("first arp note should sound immediately, attacks = %v", tone.attacks)
	}
	tick(e, 250)
	if tone.attacks[len(tone.attacks)-1] != "E4" {
		t.Fatalf("second tick note = %v", tone.attacks)
	}
	if tone.releases[len(tone.releases)-1] != "C4" {
		t.Fatalf("previous arp note not released: %v", tone.releases)
	}
	tick(e, 250)
	tick(e, 250) // wraps back to C4
	if tone.attacks[len(tone.attacks)-1] != "C4" {
		t.Fatalf("round robin did not wrap: %v", tone.attacks)
	}
}

func TestArpSurvivingPitchContinuesRoundRobin(t *testing.T) {
	tone := newRecordingTone()
	e := New(tone, testRate)
	e.SetMode(Arp)
	e.SetTempo(120)
	e.KeyDown(0, pitches("C4", "E4", "G4"), pitch("C2"))
	// Sounding C4; the added chord straddles it but keeps it in the
	// union, so there is nothing to walk to.
	e.KeyDown(1, pitches("B3", "D4", "F4"), pitch("B1"))

	seq, queue, sounding, audible := e.ArpState()
	if len(seq) != 6 {
		t.Fatalf("sequence length = %d, want union of 6", len(seq))
	}
	if !audible || sounding.Name() != "C4" {
		t.Fatalf("sounding pitch = %v (audible=%v)", sounding.Name(), audible)
	}
	if len(queue) != 0 {
		t.Fatalf("transition queue = %v, want empty (current pitch survives)", names(queue))
	}
	// Round robin resumes from the sounding pitch's position in the
	// new sequence: [B3 C4 D4 E4 F4 G4] -> next is D4.
	tick(e, 250)
	if tone.attacks[len(tone.attacks)-1] != "D4" {
		t.Fatalf("next tick note = %v, want D4", tone.attacks[len(tone.attacks)-1])
	}
	if tone.releases[len(tone.releases)-1] != "C4" {
		t.Fatalf("previous arp note not released: %v", tone.releases)
	}
}

func TestArpTransitionWalkPlaysBeforeRoundRobin(t *testing.T) {
	tone := newRecordingTone()
	e := New(tone, testRate)
	e.SetMode(Arp)
	e.SetTempo(120)
	e.KeyDown(0, pitches("C4", "E4", "G4"), pitch("C2"))
	// Retrigger with a chord that drops the sounding C4: the walk
	// steps up to the nearest new pitch before round robin resumes.
	e.KeyDown(0, pitches("D4", "F4", "A4"), pitch("D2"))
	_, queue, _, _ := e.ArpState()
	if !reflect.DeepEqual(names(queue), []string{"D4"}) {
		t.Fatalf("upward transition queue = %v, want [D4]", names(queue))
	}
	tick(e, 250)
	if tone.attacks[len(tone.attacks)-1] != "D4" {
		t.Fatalf("walk did not play D4: %v", tone.attacks)
	}
	tick(e, 250)
	if tone.attacks[len(tone.attacks)-1] != "F4" {
		t.Fatalf("round robin after walk = %v, want F4", tone.attacks)
	}

	// Now sounding F4; a chord strictly below walks downward.
	e.KeyDown(0, pitches("G3", "B3", "D4"), pitch("G1"))
	_, queue, _, _ = e.ArpState()
	if !reflect.DeepEqual(names(queue), []string{"D4"}) {
		t.Fatalf("downward transition queue = %v, want [D4]", names(queue))
	}
	tick(e, 250)
	if tone.attacks[len(tone.attacks)-1] != "D4" {
		t.Fatalf("downward walk did not play D4: %v", tone.attacks)
	}
}

func TestArpStartsAfterModeSwitchWithHeldKeys(t *testing.T) {
	tone := newRecordingTone()
	e := New(tone, testRate)
	// Hold a key in poly, then switch modes with the key still down.
	e.KeyDown(0, pitches("C4", "E4", "G4"), pitch("C2"))
	e.SetMode(Arp)
	e.SetTempo(120)
	e.KeyDown(1, pitches("D4", "F#4", "A4"), pitch("D2"))

	seq, _, sounding, audible := e.ArpState()
	if !audible {
		t.Fatalf("arpeggiator idle despite held keys")
	}
	if len(seq) != 6 {
		t.Fatalf("sequence length = %d, want full union of 6", len(seq))
	}
	if sounding.Name() != "C4" {
		t.Fatalf("sounding = %v, want sequence start C4", sounding.Name())
	}
	tick(e, 250)
	if tone.attacks[len(tone.attacks)-1] != "D4" {
		t.Fatalf("scheduler not ticking after mode switch: %v", tone.attacks)
	}
}

func TestArpRemovalTransitionsAndStops(t *testing.T) {
	tone := newRecordingTone()
	e := New(tone, testRate)
	e.SetMode(Arp)
	e.KeyDown(0, pitches("C4", "E4", "G4"), pitch("C2"))
	e.KeyDown(1, pitches("D4", "F#4", "A4"), pitch("D2"))
	tick(e, 250) // advance one tick away from C4

	e.KeyUp(0)
	seq, _, _, _ := e.ArpState()
	if len(seq) != 3 {
		t.Fatalf("sequence after removal = %d pitches, want 3", len(seq))
	}

	e.KeyUp(1)
	if _, _, _, audible := e.ArpState(); audible {
		t.Fatalf("arp pitch still audible after last key release")
	}
	before := len(tone.attacks)
	tick(e, 2000)
	if len(tone.attacks) != before {
		t.Fatalf("scheduler ticked after the hold set emptied")
	}
	if got := tone.audible(); len(got) != 0 {
		t.Fatalf("pitches left sounding: %v", got)
	}
}

func TestArpSlideKeepsSequencerAlive(t *testing.T) {
	tone := newRecordingTone()
	e := New(tone, testRate)
	e.SetMode(Arp)
	e.KeyDown(0, pitches("C4", "E4", "G4"), pitch("C2"))
	// Slide: the new key enters before the old key releases.
	e.KeyDown(1, pitches("D4", "F#4", "A4"), pitch("D2"))
	e.KeyUp(0)
	if _, _, _, audible := e.ArpState(); !audible {
		t.Fatalf("slide must not stop the arpeggiator")
	}
	tick(e, 250)
	if len(tone.attacks) < 4 {
		t.Fatalf("arp stopped ticking after slide: %v", tone.attacks)
	}
}

func TestModeSwitchReleasesArpNote(t *testing.T) {
	tone := newRecordingTone()
	e := New(tone, testRate)
	e.SetMode(Arp)
	e.KeyDown(0, pitches("C4", "E4", "G4"), pitch("C2"))
	e.SetMode(Poly)
	e.KeyUp(0)
	if got := tone.audible(); len(got) != 0 {
		t.Fatalf("pitches stuck after mode switch: %v", got)
	}
	before := len(tone.attacks)
	tick(e, 2000)
	if len(tone.attacks) != before {
		t.Fatalf("arp scheduler survived the mode switch")
	}
}

func TestTempoChangeAppliesOnNextTick(t *testing.T) {
	tone := newRecordingTone()
	e := New(tone, testRate)
	e.SetMode(Arp)
	e.SetTempo(120) // 250-frame interval
	e.KeyDown(0, pitches("C4", "E4", "G4"), pitch("C2"))

	e.SetTempo(200) // 150-frame interval from the next re-arm
	tick(e, 249)
	if len(tone.attacks) != 2 {
		t.Fatalf("armed tick fired early after tempo change: %v", tone.attacks)
	}
	tick(e, 1) // first tick still on the old interval
	n := len(tone.attacks)
	tick(e, 150)
	if len(tone.attacks) != n+1 {
		t.Fatalf("new interval not applied: %v", tone.attacks)
	}
}

func TestSharedPitchNotCutByOtherKey(t *testing.T) {
	tone := newRecordingTone()
	e := New(tone, testRate)
	e.KeyDown(0, pitches("C4", "E4", "G4"), pitch("C2"))
	e.KeyDown(2, pitches("E4", "G4", "B4"), pitch("E2"))
	e.KeyUp(0)
	aud := tone.audible()
	for _, want := range []string{"E4", "G4", "B4", "E2"} {
		found := false
		for _, a := range aud {
			if a == want {
				found = true
			}
		}
		if !found {
			t.Fatalf("%s cut early; audible = %v", want, aud)
		}
	}
	e.KeyUp(2)
	if got := tone.audible(); len(got) != 0 {
		t.Fatalf("pitches left after both released: %v", got)
	}
}

func TestReleaseAll(t *testing.T) {
	tone := newRecordingTone()
	e := New(tone, testRate)
	e.SetMode(Strum)
	e.KeyDown(0, pitches("C4", "E4", "G4"), pitch("C2"))
	e.ReleaseAll()
	if tone.releaseAlls != 1 {
		t.Fatalf("tone.ReleaseAll not called")
	}
	if e.Ledger().Len() != 0 || e.PendingAttacks(0) != 0 {
		t.Fatalf("state survived ReleaseAll")
	}
}

func TestKeyUpWithoutEntryIsNoOp(t *testing.T) {
	tone := newRecordingTone()
	e := New(tone, testRate)
	e.KeyUp(5)
	if len(tone.releases) != 0 {
		t.Fatalf("unexpected releases: %v", tone.releases)
	}
}

func names(ps []theory.Pitch) []string {
	out := make([]string, len(ps))
	for i, p := range ps {
		out[i] = p.Name()
	}
	return out
}
