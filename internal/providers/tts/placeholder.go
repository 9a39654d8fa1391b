package tts

import "context"

// Placeholder is the terminal engine of the fallback chain: a short span of
// silence so the dispatcher still has audio to emit alongside the reply
// text when every real engine is down.
type Placeholder struct {
	// DurationMs of generated silence.
	DurationMs int
}

func NewPlaceholder() *Placeholder { return &Placeholder{DurationMs: 400} }

func (p *Placeholder) Synthesize(_ context.Context, _ string) ([]byte, string, error) {
	ms := p.DurationMs
	if ms <= 0 {
		ms = 400
	}
	// 16 kHz mono s16le silence
	return make([]byte, ms*16*2), "pcm_16000", nil
}
