package effects

import "math"

// chorus is a sine-modulated delay line read with linear interpolation.
type chorus struct {
	bufL, bufR []float32
	pos        int
	size       int
	depth      float32 // modulation depth in samples
	rate       float64 // radians per sample
	phase      float64
	feedback   float32
	wet        float32
}

func newChorus(sampleRate int, delayMs, feedback, rateHz, depthMs float32) *chorus {
	baseSamples := int(float64(delayMs) * float64(sampleRate) / 1000.0)
	depthSamples := float64(depthMs) * float64(sampleRate) / 1000.0
	size := baseSamples + int(depthSamples) + 2
	if size < 4 {
		size = 4
	}
	return &chorus{
		bufL:     make([]float32, size),
		bufR:     make([]float32, size),
		size:     size,
		depth:    float32(depthSamples),
		rate:     2.0 * math.Pi * float64(rateHz) / float64(sampleRate),
		feedback: clamp(feedback, 0, 0.9),
	}
}

func (c *chorus) SetWet(wet float32) { c.wet = clamp(wet, 0, 1) }

func (c *chorus) Process(l, r float32) (float32, float32) {
	mod := float32(math.Sin(c.phase)) * c.depth
	c.phase += c.rate
	if c.phase > 2*math.Pi {
		c.phase -= 2 * math.Pi
	}
	c.bufL[c.pos] = l
	c.bufR[c.pos] = r

	// Fractional read position behind the write head.
	offset := float32(c.size/2) + mod
	readPos := float32(c.pos) - offset
	for readPos < 0 {
		readPos += float32(c.size)
	}
	idx := int(readPos)
	frac := readPos - float32(idx)
	idx2 := idx + 1
	if idx2 >= c.size {
		idx2 = 0
	}
	delL := c.bufL[idx]*(1-frac) + c.bufL[idx2]*frac
	delR := c.bufR[idx]*(1-frac) + c.bufR[idx2]*frac

	c.bufL[c.pos] += delL * c.feedback
	c.bufR[c.pos] += delR * c.feedback

	c.pos++
	if c.pos >= c.size {
		c.pos = 0
	}
	return l + delL*c.wet, r + delR*c.wet
}

func (c *chorus) Reset() {
	for i := range c.bufL {
		c.bufL[i] = 0
		c.bufR[i] = 0
	}
	c.pos = 0
	c.phase = 0
}
