package vad

import (
	"encoding/binary"
	"math"
	"time"
)

// EnergyEngine is a pure-Go detector based on RMS energy with hysteresis.
// End-of-utterance is declared after TailDuration of continuous silence
// following speech, and stays latched until the utterance is consumed via
// MarkConsumed or Reset.
type EnergyEngine struct {
	// Threshold is the normalized RMS level ([0,1]) above which a chunk
	// counts as speech.
	Threshold float64
	// TailDuration is the silence tail required after speech before the
	// utterance is considered finished.
	TailDuration time.Duration

	speaking     bool
	consumed     bool
	endOfUtter   bool
	silenceSince time.Time
	lastSpeech   time.Time
	now          func() time.Time
}

func NewEnergyEngine(threshold float64, tail time.Duration) *EnergyEngine {
	if threshold <= 0 {
		threshold = 0.02
	}
	if tail <= 0 {
		tail = 700 * time.Millisecond
	}
	return &EnergyEngine{Threshold: threshold, TailDuration: tail, now: time.Now}
}

func (e *EnergyEngine) Score(pcm []byte) Signal {
	prob := rmsLevel(pcm)
	speech := prob >= e.Threshold
	ts := e.now()

	if speech {
		if !e.speaking {
			e.speaking = true
			e.consumed = false
			e.endOfUtter = false
		}
		e.lastSpeech = ts
		e.silenceSince = time.Time{}
	} else if e.speaking && !e.consumed {
		if e.silenceSince.IsZero() {
			e.silenceSince = ts
		}
		if ts.Sub(e.silenceSince) >= e.TailDuration {
			e.endOfUtter = true
			e.speaking = false
		}
	}

	return Signal{SpeechProb: prob, Speech: speech, EndOfUtterance: e.endOfUtter}
}

// MarkConsumed latches off the end-of-utterance flag once the segmenter has
// acted on it, so one silence tail cannot fire twice.
func (e *EnergyEngine) MarkConsumed() {
	e.consumed = true
	e.endOfUtter = false
}

func (e *EnergyEngine) Reset() {
	e.speaking = false
	e.consumed = false
	e.endOfUtter = false
	e.silenceSince = time.Time{}
	e.lastSpeech = time.Time{}
}

// rmsLevel computes the normalized RMS of s16le PCM in [0,1].
func rmsLevel(pcm []byte) float64 {
	n := len(pcm) / 2
	if n == 0 {
		return 0
	}
	var sum float64
	for i := 0; i < n; i++ {
		s := int16(binary.LittleEndian.Uint16(pcm[i*2 : i*2+2]))
		f := float64(s) / 32768.0
		sum += f * f
	}
	return math.Sqrt(sum / float64(n))
}
