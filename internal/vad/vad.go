package vad

// Signal is the per-chunk voice-activity verdict consumed by the segmenter.
type Signal struct {
	SpeechProb     float64
	Speech         bool
	EndOfUtterance bool
}

// Engine scores audio chunks for voice activity. Score is called once per
// ingested chunk and must stay well under the chunk's real-time duration.
// MarkConsumed releases the end-of-utterance latch once the caller has acted
// on it; Reset clears all utterance state between processing runs.
type Engine interface {
	Score(pcm []byte) Signal
	MarkConsumed()
	Reset()
}
