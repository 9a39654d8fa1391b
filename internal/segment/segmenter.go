package segment

import (
	"time"

	"github.com/voxdesk/voxdesk/internal/vad"
)

// Reason records which rule fired an utterance boundary. Exactly one reason
// is reported per decision.
type Reason string

const (
	ReasonNone    Reason = ""
	ReasonSilence Reason = "silence"
	ReasonCeiling Reason = "ceiling"
)

// Decision is the segmenter's verdict for one ingested chunk.
type Decision struct {
	Trigger bool
	Reason  Reason
}

// Config holds the two boundary thresholds.
type Config struct {
	// MinUtterance rejects buffers too short to be real speech
	// (breaths, clicks).
	MinUtterance time.Duration
	// MaxUtterance is the hard ceiling: the buffer is processed at this
	// duration even if the VAD never reports silence.
	MaxUtterance time.Duration
}

func DefaultConfig() Config {
	return Config{
		MinUtterance: 300 * time.Millisecond,
		MaxUtterance: 5 * time.Second,
	}
}

// Segmenter decides utterance boundaries from per-chunk VAD signals and the
// buffered duration. Stateless: all per-utterance state lives in the VAD
// engine and the audio buffer.
type Segmenter struct {
	cfg Config
}

func New(cfg Config) *Segmenter {
	if cfg.MinUtterance <= 0 {
		cfg.MinUtterance = DefaultConfig().MinUtterance
	}
	if cfg.MaxUtterance <= 0 {
		cfg.MaxUtterance = DefaultConfig().MaxUtterance
	}
	return &Segmenter{cfg: cfg}
}

// Evaluate applies the silence rule before the ceiling rule. Silence-based
// segmentation is the natural boundary; the ceiling is a backstop against a
// VAD that never reports silence, e.g. continuous background noise.
func (s *Segmenter) Evaluate(sig vad.Signal, buffered time.Duration) Decision {
	if sig.EndOfUtterance && buffered >= s.cfg.MinUtterance {
		return Decision{Trigger: true, Reason: ReasonSilence}
	}
	if buffered >= s.cfg.MaxUtterance {
		return Decision{Trigger: true, Reason: ReasonCeiling}
	}
	return Decision{}
}
