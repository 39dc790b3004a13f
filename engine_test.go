package laelia

import (
	"encoding/binary"
	"errors"
	"math"
	"testing"
	"time"
)

func newTestEngine(t *testing.T, sampleRate int, opts ...Option) *Engine {
	t.Helper()
	opts = append([]Option{WithNullBackend()}, opts...)
	e, err := New(sampleRate, opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if !e.EnsureReady() {
		t.Fatalf("EnsureReady failed")
	}
	return e
}

func pitchNames(pitches []ActivePitch) []string {
	out := make([]string, len(pitches))
	for i, p := range pitches {
		out[i] = p.Name
	}
	return out
}

func TestDefaultChordIsCMajor(t *testing.T) {
	e := newTestEngine(t, 8000)
	name := e.AttackKey(0)
	if name != "C" {
		t.Fatalf("chord name = %q, want C", name)
	}
	if e.ChordLabel() != "C" {
		t.Fatalf("label = %q, want C", e.ChordLabel())
	}
	got := pitchNames(e.ActivePitches())
	want := []string{"C4", "E4", "G4"}
	if len(got) != len(want) {
		t.Fatalf("active pitches = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("active pitches = %v, want %v", got, want)
		}
	}
	// Chord plus bass.
	if n := e.ActiveVoices(); n != 4 {
		t.Fatalf("active voices = %d, want 4", n)
	}
	out := e.RenderFrames(2000)
	var energy float64
	for _, s := range out {
		energy += math.Abs(float64(s))
	}
	if energy == 0 {
		t.Fatalf("expected audible output")
	}
}

func TestReleaseClearsDisplay(t *testing.T) {
	e := newTestEngine(t, 8000)
	e.AttackKey(0)
	e.ReleaseKey(0)
	if got := e.ActivePitches(); len(got) != 0 {
		t.Fatalf("active pitches after release = %v", got)
	}
	if e.ChordLabel() != "" {
		t.Fatalf("label after release = %q", e.ChordLabel())
	}
}

func TestSettersBeforeReadyAreSafe(t *testing.T) {
	e, err := New(8000, WithNullBackend())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	e.SetVolume(0.5)
	e.SetTimbre(1)
	e.SetFxMix(0.3)
	e.SetTempo(90)
	e.SetRootKey(2)
	e.SetChordVoicing(0.25)
	e.SetBassVoicing(1)
	e.SetChordKind(ChordMin)
	e.SetExtensions(ExtM7)
	e.SetMode(ModeStrum)
	if e.State() != Uninitialized {
		t.Fatalf("state = %v, want uninitialized", e.State())
	}
	// Name computation works without an audio graph.
	if name := e.AttackKey(0); name != "Dm7" {
		t.Fatalf("pre-ready chord name = %q, want Dm7", name)
	}
	if !e.EnsureReady() {
		t.Fatalf("EnsureReady failed")
	}
	if e.Tempo() != 90 || e.Mode() != ModeStrum || e.RootKey() != 2 {
		t.Fatalf("buffered parameters lost: tempo=%v mode=%v root=%v",
			e.Tempo(), e.Mode(), e.RootKey())
	}
}

func TestParameterClamps(t *testing.T) {
	e := newTestEngine(t, 8000)
	e.SetVolume(3)
	if e.Volume() != 1 {
		t.Fatalf("volume = %v, want clamp to 1", e.Volume())
	}
	e.SetTempo(999)
	if e.Tempo() != 200 {
		t.Fatalf("tempo = %v, want clamp to 200", e.Tempo())
	}
	e.SetTempo(1)
	if e.Tempo() != 40 {
		t.Fatalf("tempo = %v, want clamp to 40", e.Tempo())
	}
	e.SetRootKey(12)
	if e.RootKey() != 0 {
		t.Fatalf("root key = %v, want out-of-range ignored", e.RootKey())
	}
}

func TestChordNaming(t *testing.T) {
	e := newTestEngine(t, 8000)
	e.SetChordKind(ChordSus)
	e.SetExtensions(Ext6)
	if name := e.ChordNameFor(0); name != "Csus46" {
		t.Fatalf("name = %q, want Csus46", name)
	}
	e.SetRootKey(2)
	if name := e.ChordNameFor(0); name != "Dsus46" {
		t.Fatalf("name = %q, want Dsus46", name)
	}
	e.SetChordKind(ChordMaj)
	e.SetExtensions(ExtMaj7 | Ext9)
	if name := e.ChordNameFor(0); name != "Dmaj79" {
		t.Fatalf("name = %q, want Dmaj79", name)
	}
}

func TestStrumSchedule(t *testing.T) {
	// At 1000 Hz one frame is one millisecond, so the 50ms strum
	// stagger is 50 frames.
	e := newTestEngine(t, 1000)
	e.SetMode(ModeStrum)
	e.AttackKey(0)
	// First chord note and bass sound immediately.
	if n := e.ActiveVoices(); n != 2 {
		t.Fatalf("voices at t=0: %d, want 2", n)
	}
	e.RenderFrames(10)
	if n := e.ActiveVoices(); n != 2 {
		t.Fatalf("voices at t=10ms: %d, want 2", n)
	}
	e.RenderFrames(45)
	if n := e.ActiveVoices(); n != 3 {
		t.Fatalf("voices at t=55ms: %d, want 3", n)
	}
	e.RenderFrames(50)
	if n := e.ActiveVoices(); n != 4 {
		t.Fatalf("voices at t=105ms: %d, want 4", n)
	}
}

func TestArpShowsSinglePitch(t *testing.T) {
	e := newTestEngine(t, 1000)
	e.SetMode(ModeArp)
	e.AttackKey(0)
	got := e.ActivePitches()
	if len(got) != 1 || got[0].Name != "C4" || got[0].Mode != "arp" {
		t.Fatalf("arp active pitches = %v, want single C4/arp", got)
	}
}

func TestKeyboardInput(t *testing.T) {
	e := newTestEngine(t, 8000)
	e.KeyboardDown("KeyA")
	if len(e.ActivePitches()) == 0 {
		t.Fatalf("KeyA down sounded nothing")
	}
	// OS auto-repeat must not retrigger.
	e.KeyboardDown("KeyA")
	e.KeyboardUp("KeyA")
	if got := e.ActivePitches(); len(got) != 0 {
		t.Fatalf("active after single up = %v", got)
	}
	e.KeyboardDown("KeyZ") // unmapped
	if len(e.ActivePitches()) != 0 {
		t.Fatalf("unmapped code sounded")
	}
}

func TestPointerSlide(t *testing.T) {
	e := newTestEngine(t, 8000)
	// 800x100 keyboard: natural keys are 100 wide, lower zone avoids
	// the accidentals.
	e.PointerDown(1, 50, 90, 800, 100)
	if e.ChordLabel() != "C" {
		t.Fatalf("label = %q, want C", e.ChordLabel())
	}
	e.PointerMove(1, 150, 90, 800, 100)
	if e.ChordLabel() != "D" {
		t.Fatalf("label after slide = %q, want D", e.ChordLabel())
	}
	e.PointerUp(1)
	if got := e.ActivePitches(); len(got) != 0 {
		t.Fatalf("active after pointer up = %v", got)
	}
	// Sliding off the keyboard releases the claim.
	e.PointerDown(1, 50, 90, 800, 100)
	e.PointerMove(1, -10, 90, 800, 100)
	if got := e.ActivePitches(); len(got) != 0 {
		t.Fatalf("active after sliding off = %v", got)
	}
}

func TestBlurReleasesEverything(t *testing.T) {
	e := newTestEngine(t, 8000)
	e.KeyboardDown("KeyA")
	e.PointerDown(1, 250, 90, 800, 100)
	e.Blur()
	if got := e.ActivePitches(); len(got) != 0 {
		t.Fatalf("active after blur = %v", got)
	}
	// Sources were released too: the next down is a fresh claim.
	e.KeyboardDown("KeyA")
	if len(e.ActivePitches()) == 0 {
		t.Fatalf("keyboard dead after blur")
	}
}

func TestBackendFailureResetsLifecycle(t *testing.T) {
	e, err := New(8000, WithBackend(func(int, Source) (Backend, error) {
		return nil, errors.New("no device")
	}))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if e.EnsureReady() {
		t.Fatalf("EnsureReady succeeded with failing backend")
	}
	if e.State() != Uninitialized {
		t.Fatalf("state after failure = %v, want uninitialized", e.State())
	}
}

func TestBackendTimeoutResetsLifecycle(t *testing.T) {
	e, err := New(8000,
		WithBackend(func(int, Source) (Backend, error) {
			time.Sleep(200 * time.Millisecond)
			return nullBackend{}, nil
		}),
		withReadyTimeout(10*time.Millisecond))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if e.EnsureReady() {
		t.Fatalf("EnsureReady succeeded past timeout")
	}
	if e.State() != Uninitialized {
		t.Fatalf("state after timeout = %v, want uninitialized", e.State())
	}
}

func TestLateBackendAdoptedByLaterGesture(t *testing.T) {
	e, err := New(8000,
		WithBackend(func(int, Source) (Backend, error) {
			time.Sleep(300 * time.Millisecond)
			return nullBackend{}, nil
		}),
		withReadyTimeout(20*time.Millisecond))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if e.EnsureReady() {
		t.Fatalf("EnsureReady succeeded past timeout")
	}
	// The factory is still in flight: the next gesture fails fast
	// instead of paying another timeout window or starting a second
	// device.
	start := time.Now()
	if e.EnsureReady() {
		t.Fatalf("adopted a backend that cannot have resolved yet")
	}
	if d := time.Since(start); d > 100*time.Millisecond {
		t.Fatalf("second gesture blocked for %v", d)
	}
	time.Sleep(500 * time.Millisecond)
	if !e.EnsureReady() {
		t.Fatalf("resolved backend not adopted")
	}
	if e.State() != Ready {
		t.Fatalf("state = %v, want ready", e.State())
	}
	if name := e.AttackKey(0); name != "C" {
		t.Fatalf("attack after adoption = %q, want C", name)
	}
}

func TestDispose(t *testing.T) {
	e := newTestEngine(t, 8000)
	e.AttackKey(0)
	e.Dispose()
	if e.State() != Disposed {
		t.Fatalf("state = %v, want disposed", e.State())
	}
	if e.EnsureReady() {
		t.Fatalf("EnsureReady succeeded after Dispose")
	}
	// Post-dispose calls are inert.
	e.AttackKey(0)
	e.SetVolume(0.5)
	if got := e.ActivePitches(); len(got) != 0 {
		t.Fatalf("active after dispose = %v", got)
	}
}

func TestRenderFramesAndWAV(t *testing.T) {
	e := newTestEngine(t, 8000)
	e.AttackKey(0)
	samples := e.RenderFrames(100)
	if len(samples) != 200 {
		t.Fatalf("len(samples) = %d, want 200", len(samples))
	}
	wav := EncodeWAVFloat32LE(samples, 8000, 2)
	if len(wav) != 44+len(samples)*4 {
		t.Fatalf("wav size = %d", len(wav))
	}
	if string(wav[0:4]) != "RIFF" || string(wav[8:12]) != "WAVE" {
		t.Fatalf("bad container markers")
	}
	if binary.LittleEndian.Uint16(wav[20:]) != 3 {
		t.Fatalf("format tag = %d, want 3 (IEEE float)", binary.LittleEndian.Uint16(wav[20:]))
	}
	if binary.LittleEndian.Uint32(wav[24:]) != 8000 {
		t.Fatalf("sample rate = %d", binary.LittleEndian.Uint32(wav[24:]))
	}
}
