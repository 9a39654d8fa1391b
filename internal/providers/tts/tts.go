package tts

import "context"

// Provider synthesizes speech for a reply. The format tag travels with the
// audio all the way to the outbound sink.
type Provider interface {
	Synthesize(ctx context.Context, text string) (audio []byte, format string, err error)
}

// Warmer is implemented by providers that can pre-populate their cache for
// replies that are likely to be spoken soon (canned redirects, fallbacks).
type Warmer interface {
	Warm(ctx context.Context, texts []string)
}
