package effects

// delay is a stereo delay with feedback and cross-channel bleed.
type delay struct {
	bufL, bufR []float32
	pos        int
	feedback   float32
	cross      float32
	wet        float32
}

func newDelay(sampleRate int, delayMs float64, feedback, cross float32) *delay {
	samples := int(delayMs * float64(sampleRate) / 1000.0)
	if samples < 1 {
		samples = 1
	}
	return &delay{
		bufL:     make([]float32, samples),
		bufR:     make([]float32, samples),
		feedback: clamp(feedback, 0, 0.95),
		cross:    clamp(cross, 0, 1),
	}
}

func (d *delay) SetWet(wet float32) { d.wet = clamp(wet, 0, 1) }

func (d *delay) Process(l, r float32) (float32, float32) {
	delL := d.bufL[d.pos]
	delR := d.bufR[d.pos]
	fbL := delL*d.feedback*(1-d.cross) + delR*d.feedback*d.cross
	fbR := delR*d.feedback*(1-d.cross) + delL*d.feedback*d.cross
	d.bufL[d.pos] = l + fbL
	d.bufR[d.pos] = r + fbR
	d.pos++
	if d.pos >= len(d.bufL) {
		d.pos = 0
	}
	return l + delL*d.wet, r + delR*d.wet
}

func (d *delay) Reset() {
	for i := range d.bufL {
		d.bufL[i] = 0
		d.bufR[i] = 0
	}
	d.pos = 0
}
