package stt

import "context"

// Provider transcribes one complete utterance. Reset clears any internal
// session state and is called once per finished pipeline run.
type Provider interface {
	Transcribe(ctx context.Context, audio []byte, language string) (text string, confidence float64, err error)
	Reset()
	Close() error
}

// Streamer is implemented by providers that can produce partial transcripts
// from incremental audio while an utterance is still being buffered.
type Streamer interface {
	FeedPartial(ctx context.Context, pcm []byte) (string, error)
}
