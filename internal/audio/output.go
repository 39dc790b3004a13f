// Package audio owns the ebiten audio output and the scope ring used
// for waveform readback. The audio context is created once per
// process; creating it inside a user gesture is what unlocks playback
// on platforms that gate audio on interaction.
package audio

import (
	"encoding/binary"
	"fmt"
	"math"
	"sync"

	ebitaudio "github.com/hajimehoshi/ebiten/v2/audio"
)

// Source produces interleaved stereo float32 frames. A live instrument
// never signals EOF; the stream runs until the output is closed.
type Source interface {
	Process(dst []float32)
}

var (
	contextOnce sync.Once
	context     *ebitaudio.Context
	contextRate int
)

// Unlock creates (or touches) the shared audio context. Idempotent and
// synchronous; safe to call from every input handler.
func Unlock(sampleRate int) {
	contextOnce.Do(func() {
		contextRate = sampleRate
		context = ebitaudio.NewContext(sampleRate)
	})
}

func sharedContext(sampleRate int) (*ebitaudio.Context, error) {
	Unlock(sampleRate)
	if contextRate != sampleRate {
		return nil, fmt.Errorf("audio context already initialized at %d Hz (requested %d Hz)", contextRate, sampleRate)
	}
	return context, nil
}

type streamReader struct {
	mu     sync.Mutex
	source Source
	buf    []float32
}

func (r *streamReader) Read(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	frames := len(p) / 8
	if frames == 0 {
		return 0, nil
	}
	need := frames * 2
	if cap(r.buf) < need {
		r.buf = make([]float32, need)
	}
	r.buf = r.buf[:need]
	r.source.Process(r.buf)
	for i := 0; i < need; i++ {
		binary.LittleEndian.PutUint32(p[i*4:], math.Float32bits(r.buf[i]))
	}
	return frames * 8, nil
}

func (r *streamReader) Close() error { return nil }

// Output streams a Source through the shared audio context.
type Output struct {
	player *ebitaudio.Player
	reader *streamReader
}

func NewOutput(sampleRate int, source Source) (*Output, error) {
	ctx, err := sharedContext(sampleRate)
	if err != nil {
		return nil, err
	}
	reader := &streamReader{source: source}
	pl, err := ctx.NewPlayerF32(reader)
	if err != nil {
		return nil, err
	}
	return &Output{player: pl, reader: reader}, nil
}

func (o *Output) Start() { o.player.Play() }

func (o *Output) Close() error {
	o.player.Pause()
	o.player.Close()
	return o.reader.Close()
}
