// Package synth is the tone generator: a pool of oscillator voices
// addressed by pitch, with ADSR envelopes, polyBLEP band-limiting and
// a timbre preset table. Attack/Release are called from the engine
// facade; RenderFrame runs on the audio thread. Master gain is the
// only parameter shared across the two and is stored atomically.
package synth

import (
	"math"
	"sync/atomic"

	"github.com/donnybrilliant/Laelia/internal/theory"
)

const twoPi = math.Pi * 2

type waveShape int

const (
	wavePulse waveShape = iota
	waveSquare
	waveTriangle
	waveSaw
)

// Preset is one selectable timbre.
type Preset struct {
	Name         string
	Wave         waveShape
	Duty         float64 // pulse width for wavePulse
	AttackSec    float64
	DecaySec     float64
	SustainLvl   float64
	ReleaseSec   float64
	VibratoDepth float64 // semitones
	VibratoRate  float64 // Hz
}

// Presets is the fixed timbre table, indexed by the timbre parameter.
var Presets = []Preset{
	{Name: "Bell", Wave: waveTriangle, AttackSec: 0.004, DecaySec: 0.9, SustainLvl: 0.35, ReleaseSec: 0.5},
	{Name: "Organ", Wave: waveSquare, AttackSec: 0.02, DecaySec: 0.1, SustainLvl: 0.9, ReleaseSec: 0.12, VibratoDepth: 0.06, VibratoRate: 5.5},
	{Name: "Pluck", Wave: wavePulse, Duty: 0.25, AttackSec: 0.002, DecaySec: 0.3, SustainLvl: 0.25, ReleaseSec: 0.25},
	{Name: "Pad", Wave: waveSaw, AttackSec: 0.25, DecaySec: 0.4, SustainLvl: 0.8, ReleaseSec: 0.9, VibratoDepth: 0.04, VibratoRate: 3.0},
}

type Params struct {
	Voices     int
	MasterGain float64
	LPFCutoff  float64 // lowpass cutoff in Hz (0 = disabled)
}

func DefaultParams() Params {
	return Params{
		Voices:     24,
		MasterGain: 0.22,
		LPFCutoff:  11000,
	}
}

type envState int

const (
	envAttack envState = iota
	envDecay
	envSustain
	envRelease
	envOff
)

type voice struct {
	active   bool
	pitch    theory.Pitch
	age      int
	freq     float64
	phase    float64
	env      float64
	envState envState
	vibPhase float64
}

type Engine struct {
	sampleRate float64
	params     Params
	voices     []voice
	preset     int
	masterGain uint64

	dcPrevInL  float64
	dcPrevOutL float64
	dcPrevInR  float64
	dcPrevOutR float64
	lpfL       float64
	lpfR       float64
	lpfAlpha   float64
}

func New(sampleRate int, params Params) *Engine {
	if params.Voices <= 0 {
		params.Voices = 24
	}
	e := &Engine{
		sampleRate: float64(sampleRate),
		params:     params,
		voices:     make([]voice, params.Voices),
		masterGain: math.Float64bits(params.MasterGain),
	}
	if params.LPFCutoff > 0 && params.LPFCutoff < float64(sampleRate)/2 {
		rc := 1.0 / (twoPi * params.LPFCutoff)
		dt := 1.0 / float64(sampleRate)
		e.lpfAlpha = dt / (rc + dt)
	}
	return e
}

// SetPreset selects a timbre for subsequent attacks. Out-of-range
// indices wrap.
func (e *Engine) SetPreset(i int) {
	if len(Presets) == 0 {
		return
	}
	e.preset = ((i % len(Presets)) + len(Presets)) % len(Presets)
}

func (e *Engine) PresetIndex() int { return e.preset }

// Attack starts (or retriggers) the voice for a pitch.
func (e *Engine) Attack(p theory.Pitch) {
	for i := range e.voices {
		v := &e.voices[i]
		if v.active && v.pitch == p {
			// Retrigger: restart the envelope, keep the phase.
			v.env = 0
			v.envState = envAttack
			v.age = 0
			return
		}
	}
	slot := e.stealVoice()
	v := &e.voices[slot]
	v.active = true
	v.pitch = p
	v.age = 0
	v.freq = pitchFreq(p)
	v.phase = 0
	v.env = 0
	v.envState = envAttack
	v.vibPhase = 0
}

// Release moves a pitch's voice into its release stage. No-op when the
// pitch is not sounding.
func (e *Engine) Release(p theory.Pitch) {
	for i := range e.voices {
		v := &e.voices[i]
		if v.active && v.pitch == p && v.envState != envRelease {
			v.envState = envRelease
		}
	}
}

// ReleaseAll silences every voice immediately.
func (e *Engine) ReleaseAll() {
	for i := range e.voices {
		e.voices[i].active = false
		e.voices[i].env = 0
		e.voices[i].envState = envOff
	}
}

// Sounding reports whether the pitch has an active voice (including
// its release tail).
func (e *Engine) Sounding(p theory.Pitch) bool {
	for i := range e.voices {
		if e.voices[i].active && e.voices[i].pitch == p {
			return true
		}
	}
	return false
}

func (e *Engine) ActiveVoiceCount() int {
	n := 0
	for i := range e.voices {
		if e.voices[i].active {
			n++
		}
	}
	return n
}

func (e *Engine) SetMasterGain(gain float64) {
	if gain < 0 {
		gain = 0
	}
	atomic.StoreUint64(&e.masterGain, math.Float64bits(gain))
}

func (e *Engine) masterGainValue() float64 {
	return math.Float64frombits(atomic.LoadUint64(&e.masterGain))
}

// RenderFrame renders one stereo frame. Voices spread slightly across
// the stereo field by pitch class.
func (e *Engine) RenderFrame() (float32, float32) {
	ps := Presets[e.preset]
	gain := e.masterGainValue()
	var l, r float64
	for i := range e.voices {
		v := &e.voices[i]
		if !v.active {
			continue
		}
		v.age++
		env := e.advanceEnv(v, ps)
		if !v.active {
			continue
		}
		freq := v.freq
		if ps.VibratoDepth > 0 {
			v.vibPhase += twoPi * ps.VibratoRate / e.sampleRate
			if v.vibPhase > twoPi {
				v.vibPhase -= twoPi
			}
			freq *= math.Pow(2, ps.VibratoDepth*math.Sin(v.vibPhase)/12)
		}
		sample := renderWave(v, ps, freq, e.sampleRate)
		sig := sample * env * gain
		pan := float64(v.pitch.Class%5)/8 - 0.25
		angle := (pan + 0.5) * (math.Pi / 2)
		l += sig * math.Cos(angle)
		r += sig * math.Sin(angle)
	}
	l = e.dcBlockL(l)
	r = e.dcBlockR(r)
	if e.lpfAlpha > 0 {
		e.lpfL += e.lpfAlpha * (l - e.lpfL)
		e.lpfR += e.lpfAlpha * (r - e.lpfR)
		l = e.lpfL
		r = e.lpfR
	}
	return float32(clamp(l, -1, 1)), float32(clamp(r, -1, 1))
}

func (e *Engine) advanceEnv(v *voice, ps Preset) float64 {
	switch v.envState {
	case envAttack:
		step := 1.0 / (ps.AttackSec * e.sampleRate)
		if step <= 0 {
			step = 1
		}
		v.env += step
		if v.env >= 1 {
			v.env = 1
			v.envState = envDecay
		}
	case envDecay:
		step := (1 - ps.SustainLvl) / (ps.DecaySec * e.sampleRate)
		if step <= 0 {
			step = 1
		}
		v.env -= step
		if v.env <= ps.SustainLvl {
			v.env = ps.SustainLvl
			v.envState = envSustain
		}
	case envSustain:
	case envRelease:
		step := ps.SustainLvl / (ps.ReleaseSec * e.sampleRate)
		if step <= 0 {
			step = 1
		}
		v.env -= step
		if v.env <= 0.0001 {
			v.env = 0
			v.envState = envOff
			v.active = false
		}
	case envOff:
		v.active = false
		v.env = 0
	}
	return v.env
}

func (e *Engine) stealVoice() int {
	for i := range e.voices {
		if !e.voices[i].active {
			return i
		}
	}
	// Steal the oldest releasing voice, or failing that the oldest
	// active voice.
	oldestRelease, oldestReleaseAge := -1, -1
	oldestActive, oldestActiveAge := 0, -1
	for i := range e.voices {
		v := &e.voices[i]
		if v.envState == envRelease && v.age > oldestReleaseAge {
			oldestRelease = i
			oldestReleaseAge = v.age
		}
		if v.age > oldestActiveAge {
			oldestActive = i
			oldestActiveAge = v.age
		}
	}
	if oldestRelease >= 0 {
		return oldestRelease
	}
	return oldestActive
}

// polyBLEP reduces aliasing at waveform discontinuities.
func polyBLEP(t, dt float64) float64 {
	if t < dt {
		t /= dt
		return t + t - t*t - 1
	}
	if t > 1-dt {
		t = (t - 1) / dt
		return t*t + t + t + 1
	}
	return 0
}

func renderWave(v *voice, ps Preset, freq, sampleRate float64) float64 {
	dt := freq / sampleRate
	v.phase += dt
	if v.phase >= 1 {
		v.phase -= 1
	}
	switch ps.Wave {
	case wavePulse, waveSquare:
		duty := ps.Duty
		if ps.Wave == waveSquare || duty <= 0 {
			duty = 0.5
		}
		out := -1.0
		if v.phase < duty {
			out = 1
		}
		out += polyBLEP(v.phase, dt)
		out -= polyBLEP(math.Mod(v.phase-duty+1, 1), dt)
		return out
	case waveSaw:
		out := 2*v.phase - 1
		out -= polyBLEP(v.phase, dt)
		return out
	case waveTriangle:
		return 2*math.Abs(2*v.phase-1) - 1
	default:
		return 0
	}
}

func (e *Engine) dcBlockL(x float64) float64 {
	const r = 0.995
	y := x - e.dcPrevInL + r*e.dcPrevOutL
	e.dcPrevInL = x
	e.dcPrevOutL = y
	return y
}

func (e *Engine) dcBlockR(x float64) float64 {
	const r = 0.995
	y := x - e.dcPrevInR + r*e.dcPrevOutR
	e.dcPrevInR = x
	e.dcPrevOutR = y
	return y
}

func pitchFreq(p theory.Pitch) float64 {
	return 440 * math.Pow(2, float64(p.Index()-69)/12)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
