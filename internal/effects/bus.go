// Package effects is the instrument's fixed effect bus: delay into
// chorus into reverb, with a single wet-mix control shared by all
// three. Per-frame processing runs on the audio thread; SetMix is
// serialized with it by the engine facade.
package effects

type unit interface {
	Process(l, r float32) (float32, float32)
	SetWet(wet float32)
	Reset()
}

// Bus applies the fixed effect stack. Mix 0 is fully dry.
type Bus struct {
	units []unit
	mix   float32
}

// Per-unit wet ceilings at mix = 1.
var wetScale = []float32{0.30, 0.40, 0.28}

func NewBus(sampleRate int) *Bus {
	b := &Bus{
		units: []unit{
			newDelay(sampleRate, 280, 0.35, 0.25),
			newChorus(sampleRate, 18, 0.2, 3.5, 0.9),
			newReverb(sampleRate, 0.55, 0.68),
		},
	}
	b.SetMix(0)
	return b
}

// SetMix sets the shared wet amount, 0..1.
func (b *Bus) SetMix(mix float64) {
	b.mix = clamp(float32(mix), 0, 1)
	for i, u := range b.units {
		u.SetWet(b.mix * wetScale[i])
	}
}

func (b *Bus) Mix() float64 { return float64(b.mix) }

func (b *Bus) Process(l, r float32) (float32, float32) {
	for _, u := range b.units {
		l, r = u.Process(l, r)
	}
	return l, r
}

func (b *Bus) Reset() {
	for _, u := range b.units {
		u.Reset()
	}
}

func clamp(v, lo, hi float32) float32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
