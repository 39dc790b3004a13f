// Package laelia is a polyphonic chord instrument: thirteen logical
// keys, each sounding a chord plus a monophonic bass voice, played
// through one of four performance modes (poly, strum, arp, harp).
package laelia

import (
	"errors"
	"sync"
	"time"

	intaudio "github.com/donnybrilliant/Laelia/internal/audio"
	intfx "github.com/donnybrilliant/Laelia/internal/effects"
	"github.com/donnybrilliant/Laelia/internal/input"
	"github.com/donnybrilliant/Laelia/internal/perform"
	"github.com/donnybrilliant/Laelia/internal/synth"
	"github.com/donnybrilliant/Laelia/internal/theory"
)

// KeyCount is the number of logical keys on the instrument.
const KeyCount = input.KeyCount

// Mode is a performance mode.
type Mode = perform.Mode

const (
	ModePoly  = perform.Poly
	ModeStrum = perform.Strum
	ModeArp   = perform.Arp
	ModeHarp  = perform.Harp
)

// ChordKind selects the chord's base intervals.
type ChordKind = theory.ChordType

const (
	ChordMaj = theory.Maj
	ChordMin = theory.Min
	ChordDim = theory.Dim
	ChordSus = theory.Sus
)

// Extension is a bitset of optional chord tones.
type Extension = theory.Extension

const (
	Ext6    = theory.Ext6
	ExtM7   = theory.ExtM7
	ExtMaj7 = theory.ExtMaj7
	Ext9    = theory.Ext9
)

// State is the engine lifecycle state.
type State int

const (
	Uninitialized State = iota
	Initializing
	Ready
	Disposed
)

func (s State) String() string {
	switch s {
	case Initializing:
		return "initializing"
	case Ready:
		return "ready"
	case Disposed:
		return "disposed"
	default:
		return "uninitialized"
	}
}

// Source produces interleaved stereo float32 frames.
type Source interface {
	Process(dst []float32)
}

// Backend is the audio device seam. The default backend streams
// through the shared ebiten audio context; tests and offline rendering
// install a null backend instead.
type Backend interface {
	Start()
	Close() error
}

type nullBackend struct{}

func (nullBackend) Start()       {}
func (nullBackend) Close() error { return nil }

type Option func(*config)

type config struct {
	preset       int
	factory      func(sampleRate int, src Source) (Backend, error)
	unlock       func(sampleRate int)
	readyTimeout time.Duration
}

func defaultConfig() config {
	return config{
		factory: func(sampleRate int, src Source) (Backend, error) {
			return intaudio.NewOutput(sampleRate, src)
		},
		unlock:       intaudio.Unlock,
		readyTimeout: 8 * time.Second,
	}
}

// WithBackend replaces the audio device. The factory runs once, during
// EnsureReady.
func WithBackend(factory func(sampleRate int, src Source) (Backend, error)) Option {
	return func(cfg *config) {
		cfg.factory = factory
		cfg.unlock = func(int) {}
	}
}

// WithNullBackend renders no live audio; frames are pulled explicitly
// via RenderFrames.
func WithNullBackend() Option {
	return WithBackend(func(int, Source) (Backend, error) {
		return nullBackend{}, nil
	})
}

// WithPreset sets the initial timbre index.
func WithPreset(i int) Option {
	return func(cfg *config) { cfg.preset = i }
}

func withReadyTimeout(d time.Duration) Option {
	return func(cfg *config) { cfg.readyTimeout = d }
}

const scopeCapacity = 4096

// Engine is the instrument facade. One mutex serializes UI calls and
// the per-frame audio pump; the inner packages rely on that
// serialization.
type Engine struct {
	mu         sync.Mutex
	sampleRate int
	cfg        config
	state      State

	// Parameter bus. Canonical values live here; setters before Ready
	// just record them, applyParams pushes them into the graph.
	volume       float64
	timbre       int
	fxMix        float64
	tempo        float64
	rootKey      int
	chordVoicing float64
	bassVoicing  float64
	chordKind    ChordKind
	exts         Extension
	mode         Mode

	arb   *input.Arbiter
	perf  *perform.Engine
	tone  *synth.Engine
	fx    *intfx.Bus
	scope *intaudio.Scope

	backend  Backend
	pending  chan initResult
	baseGain float64
	label    string
}

type initResult struct {
	backend Backend
	err     error
}

func New(sampleRate int, opts ...Option) (*Engine, error) {
	if sampleRate <= 0 {
		return nil, errors.New("sampleRate must be positive")
	}
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	e := &Engine{
		sampleRate: sampleRate,
		cfg:        cfg,
		volume:     0.8,
		timbre:     cfg.preset,
		tempo:      120,
		chordKind:  ChordMaj,
		mode:       ModePoly,
	}
	e.arb = input.NewArbiter()
	e.arb.OnKeyDown = e.keyDownLocked
	e.arb.OnKeyUp = e.keyUpLocked
	return e, nil
}

// Unlock touches the platform audio context. Idempotent and cheap;
// call it inside every first-gesture handler.
func (e *Engine) Unlock() {
	e.cfg.unlock(e.sampleRate)
}

// EnsureReady brings the engine to the Ready state, constructing the
// audio graph on first call. The backend construction is raced against
// a timeout so a wedged audio device surfaces as "not ready" instead
// of a hang. On timeout the in-flight factory is kept: only the first
// gesture pays the bounded wait, and later gestures either fail fast
// or adopt the result once the device finally resolves. Errors reset
// to Uninitialized and the next gesture retries.
func (e *Engine) EnsureReady() bool {
	e.mu.Lock()
	switch e.state {
	case Ready:
		e.mu.Unlock()
		return true
	case Initializing, Disposed:
		e.mu.Unlock()
		return false
	}
	if e.pending != nil {
		select {
		case r := <-e.pending:
			e.pending = nil
			if r.err != nil {
				e.mu.Unlock()
				return false
			}
			e.finishInitLocked(r.backend)
			return true
		default:
			e.mu.Unlock()
			return false
		}
	}
	e.state = Initializing
	e.mu.Unlock()

	e.Unlock()

	ch := make(chan initResult, 1)
	go func() {
		b, err := e.cfg.factory(e.sampleRate, engineSource{e})
		ch <- initResult{b, err}
	}()

	select {
	case r := <-ch:
		if r.err != nil {
			e.initFailed()
			return false
		}
		e.mu.Lock()
		if e.state != Initializing {
			e.mu.Unlock()
			_ = r.backend.Close()
			return false
		}
		e.finishInitLocked(r.backend)
		return true
	case <-time.After(e.cfg.readyTimeout):
		e.mu.Lock()
		if e.state == Initializing {
			e.state = Uninitialized
			e.pending = ch
		}
		e.mu.Unlock()
		return false
	}
}

// finishInitLocked builds the audio graph around an opened backend and
// flips to Ready. Called with the mutex held; releases it.
func (e *Engine) finishInitLocked(backend Backend) {
	e.tone = synth.New(e.sampleRate, synth.DefaultParams())
	e.perf = perform.New(e.tone, e.sampleRate)
	e.fx = intfx.NewBus(e.sampleRate)
	e.scope = intaudio.NewScope(scopeCapacity)
	e.backend = backend
	e.baseGain = synth.DefaultParams().MasterGain
	e.applyParamsLocked()
	e.state = Ready
	e.mu.Unlock()
	backend.Start()
}

func (e *Engine) initFailed() {
	e.mu.Lock()
	if e.state == Initializing {
		e.state = Uninitialized
	}
	e.mu.Unlock()
}

// Dispose tears the engine down. The engine is unusable afterwards.
func (e *Engine) Dispose() {
	e.mu.Lock()
	backend := e.backend
	if p := e.pending; p != nil {
		e.pending = nil
		go func() {
			if r := <-p; r.err == nil {
				_ = r.backend.Close()
			}
		}()
	}
	if e.perf != nil {
		e.perf.ReleaseAll()
	}
	e.backend = nil
	e.perf = nil
	e.tone = nil
	e.fx = nil
	e.scope = nil
	e.state = Disposed
	e.mu.Unlock()
	if backend != nil {
		_ = backend.Close()
	}
}

func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

func (e *Engine) applyParamsLocked() {
	e.tone.SetMasterGain(e.baseGain * e.volume)
	e.tone.SetPreset(e.timbre)
	e.fx.SetMix(e.fxMix)
	e.perf.SetTempo(e.tempo)
	e.perf.SetMode(e.mode)
}

// --- parameter bus ---

func (e *Engine) SetVolume(v float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.volume = clamp01(v)
	if e.tone != nil {
		e.tone.SetMasterGain(e.baseGain * e.volume)
	}
}

func (e *Engine) Volume() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.volume
}

func (e *Engine) SetTimbre(i int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.timbre = i
	if e.tone != nil {
		e.tone.SetPreset(i)
		e.timbre = e.tone.PresetIndex()
	}
}

func (e *Engine) Timbre() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.timbre
}

func (e *Engine) SetFxMix(mix float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.fxMix = clamp01(mix)
	if e.fx != nil {
		e.fx.SetMix(e.fxMix)
	}
}

func (e *Engine) FxMix() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.fxMix
}

func (e *Engine) SetTempo(bpm float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if bpm < 40 {
		bpm = 40
	}
	if bpm > 200 {
		bpm = 200
	}
	e.tempo = bpm
	if e.perf != nil {
		e.perf.SetTempo(bpm)
	}
}

func (e *Engine) Tempo() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.tempo
}

// SetRootKey transposes the whole keyboard; 0 = C, 11 = B.
func (e *Engine) SetRootKey(class int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if class < 0 || class > 11 {
		return
	}
	e.rootKey = class
}

func (e *Engine) RootKey() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.rootKey
}

func (e *Engine) SetChordVoicing(v float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.chordVoicing = clamp01(v)
}

func (e *Engine) ChordVoicing() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.chordVoicing
}

func (e *Engine) SetBassVoicing(v float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.bassVoicing = clamp01(v)
}

func (e *Engine) BassVoicing() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.bassVoicing
}

func (e *Engine) SetChordKind(k ChordKind) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.chordKind = k
}

func (e *Engine) ChordKind() ChordKind {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.chordKind
}

func (e *Engine) SetExtensions(exts Extension) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.exts = exts
}

func (e *Engine) Extensions() Extension {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.exts
}

func (e *Engine) SetMode(m Mode) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.mode = m
	if e.perf != nil {
		e.perf.SetMode(m)
	}
}

func (e *Engine) Mode() Mode {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.mode
}

// --- play surface ---

// AttackKey sounds a key and returns the chord's display name. Before
// the engine is ready the name is still computed but nothing sounds.
func (e *Engine) AttackKey(key int) string {
	e.mu.Lock()
	defer e.mu.Unlock()
	if key < 0 || key >= KeyCount {
		return ""
	}
	return e.attackLocked(key)
}

func (e *Engine) attackLocked(key int) string {
	chord, bass, name := e.chordForLocked(key)
	e.label = name
	if e.perf != nil {
		e.perf.KeyDown(key, chord, bass)
	}
	return name
}

func (e *Engine) ReleaseKey(key int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.releaseLocked(key)
}

func (e *Engine) releaseLocked(key int) {
	if e.perf == nil {
		return
	}
	e.perf.KeyUp(key)
	if e.perf.Ledger().Len() == 0 {
		e.label = ""
	}
}

func (e *Engine) ReleaseAllKeys() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.arb.ReleaseAll()
	if e.perf != nil {
		e.perf.ReleaseAll()
	}
	e.label = ""
}

// ReleasePitch force-releases one synth voice by note name ("C4").
// Unknown names and unvoiced pitches are no-ops.
func (e *Engine) ReleasePitch(name string) {
	p, err := theory.ParsePitch(name)
	if err != nil {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.tone != nil {
		e.tone.Release(p)
	}
}

// ActivePitch is one sounding pitch for display.
type ActivePitch struct {
	Name string
	Mode string
}

// ActivePitches returns the deduplicated sounding set. In arp mode it
// is the single audible arpeggio pitch.
func (e *Engine) ActivePitches() []ActivePitch {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.perf == nil {
		return nil
	}
	mode := e.mode.String()
	if e.mode == ModeArp {
		_, _, sounding, audible := e.perf.ArpState()
		if !audible {
			return nil
		}
		return []ActivePitch{{Name: sounding.Name(), Mode: mode}}
	}
	var out []ActivePitch
	for _, p := range e.perf.Ledger().Sounding() {
		out = append(out, ActivePitch{Name: p.Name(), Mode: mode})
	}
	return out
}

// HeldKeys returns the logical keys with a live ledger entry, for
// keyboard highlighting.
func (e *Engine) HeldKeys() []int {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.perf == nil {
		return nil
	}
	return e.perf.Ledger().Keys()
}

// TimbreCount and TimbreName describe the preset table for selector
// UIs.
func TimbreCount() int { return len(synth.Presets) }

func TimbreName(i int) string {
	if i < 0 || i >= len(synth.Presets) {
		return ""
	}
	return synth.Presets[i].Name
}

// NoteName returns the chromatic note name for a pitch class 0..11.
func NoteName(class int) string {
	return theory.NoteNames[((class%12)+12)%12]
}

// KeyShortcut returns the physical-key label for a logical key ("A",
// "W", ...), empty if out of range.
func KeyShortcut(key int) string { return input.KeyLabel(key) }

// IsAccidentalKey reports whether a logical key is one of the five
// raised keys.
func IsAccidentalKey(key int) bool { return input.IsAccidental(key) }

// KeyAt maps a point inside a w-by-h keyboard rectangle to a logical
// key, -1 for a miss. Shared with the pointer input surface so the
// drawn keys and the hit zones agree.
func KeyAt(x, y, w, h float64) int { return input.KeyAt(x, y, w, h) }

// ActiveVoices returns the number of synth voices currently sounding
// (including release tails).
func (e *Engine) ActiveVoices() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.tone == nil {
		return 0
	}
	return e.tone.ActiveVoiceCount()
}

// ChordLabel returns the display name of the most recent chord, empty
// when nothing is held.
func (e *Engine) ChordLabel() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.label
}

// Waveform returns the last n output samples for the visualizer.
func (e *Engine) Waveform(n int) []float32 {
	e.mu.Lock()
	scope := e.scope
	e.mu.Unlock()
	if scope == nil {
		return make([]float32, n)
	}
	return scope.Snapshot(n)
}

// ChordNameFor reports the name a key would sound under the current
// parameters, without sounding it.
func (e *Engine) ChordNameFor(key int) string {
	e.mu.Lock()
	defer e.mu.Unlock()
	if key < 0 || key >= KeyCount {
		return ""
	}
	_, _, name := e.chordForLocked(key)
	return name
}

// chordForLocked maps a key to concrete pitches: the chord root walks
// up from C4 by the key's scale offset plus the root-key transpose,
// and the bass sits two octaves below the root (one when the bass
// voicing is raised).
func (e *Engine) chordForLocked(key int) ([]theory.Pitch, theory.Pitch, string) {
	shift := e.rootKey + input.KeyOffset(key)
	rootIndex := theory.Pitch{Class: 0, Octave: 4}.Index() + shift
	intervals := theory.BuildChord(e.chordKind, e.exts, e.chordVoicing)
	chord := make([]theory.Pitch, len(intervals))
	for i, iv := range intervals {
		chord[i] = theory.PitchAt(rootIndex + iv)
	}
	bassIndex := rootIndex - 24
	if e.bassVoicing >= 0.5 {
		bassIndex += 12
	}
	name := theory.ChordName(shift%12, e.chordKind, e.exts)
	return chord, theory.PitchAt(bassIndex), name
}

// --- input surface ---

// PointerDown claims the key under (x, y) for a pointer. w and h are
// the keyboard's on-screen size.
func (e *Engine) PointerDown(id int, x, y, w, h float64) {
	e.pointerAt(input.PointerSource(id), x, y, w, h)
}

// PointerMove slides a pointer's claim; leaving the keyboard releases
// it, entering another key transfers it (new key down before old key
// up).
func (e *Engine) PointerMove(id int, x, y, w, h float64) {
	e.pointerAt(input.PointerSource(id), x, y, w, h)
}

func (e *Engine) PointerUp(id int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.arb.Exit(input.PointerSource(id))
}

func (e *Engine) TouchDown(id int, x, y, w, h float64) {
	e.pointerAt(input.TouchSource(id), x, y, w, h)
}

func (e *Engine) TouchMove(id int, x, y, w, h float64) {
	e.pointerAt(input.TouchSource(id), x, y, w, h)
}

func (e *Engine) TouchUp(id int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.arb.Exit(input.TouchSource(id))
}

func (e *Engine) pointerAt(src input.Source, x, y, w, h float64) {
	key := input.KeyAt(x, y, w, h)
	e.mu.Lock()
	defer e.mu.Unlock()
	if key < 0 {
		e.arb.Exit(src)
		return
	}
	e.arb.Enter(src, key)
}

// KeyboardDown claims a key for a physical key code. OS auto-repeat
// downs are ignored.
func (e *Engine) KeyboardDown(code string) {
	key, ok := input.KeyForCode(code)
	if !ok {
		return
	}
	src := input.KeyboardSource(code)
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.arb.Holds(src) {
		return
	}
	e.arb.Enter(src, key)
}

func (e *Engine) KeyboardUp(code string) {
	if _, ok := input.KeyForCode(code); !ok {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.arb.Exit(input.KeyboardSource(code))
}

// Blur releases every claim and every voice; the safety net for focus
// loss.
func (e *Engine) Blur() {
	e.ReleaseAllKeys()
}

// keyDownLocked / keyUpLocked run inside the arbiter's callbacks while
// the facade mutex is held.
func (e *Engine) keyDownLocked(key int) { e.attackLocked(key) }
func (e *Engine) keyUpLocked(key int)   { e.releaseLocked(key) }

// --- audio pump ---

type engineSource struct{ e *Engine }

func (s engineSource) Process(dst []float32) { s.e.pump(dst) }

func (e *Engine) pump(dst []float32) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.perf == nil {
		for i := range dst {
			dst[i] = 0
		}
		return
	}
	for i := 0; i+1 < len(dst); i += 2 {
		e.perf.Tick()
		l, r := e.tone.RenderFrame()
		l, r = e.fx.Process(l, r)
		e.scope.Push(l, r)
		dst[i], dst[i+1] = l, r
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
