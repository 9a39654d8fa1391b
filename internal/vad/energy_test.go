package vad

import (
	"encoding/binary"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pcmTone(samples int, amplitude int16) []byte {
	out := make([]byte, samples*2)
	for i := 0; i < samples; i++ {
		v := amplitude
		if i%2 == 1 {
			v = -amplitude
		}
		binary.LittleEndian.PutUint16(out[i*2:], uint16(v))
	}
	return out
}

func pcmSilence(samples int) []byte { return make([]byte, samples*2) }

func TestEnergyEngineDetectsSpeechAndSilence(t *testing.T) {
	e := NewEnergyEngine(0.02, 700*time.Millisecond)

	sig := e.Score(pcmTone(320, 8000))
	assert.True(t, sig.Speech)
	assert.Greater(t, sig.SpeechProb, 0.02)

	sig = e.Score(pcmSilence(320))
	assert.False(t, sig.Speech)
	assert.InDelta(t, 0, sig.SpeechProb, 0.001)
}

func TestEnergyEngineEndOfUtteranceAfterTail(t *testing.T) {
	e := NewEnergyEngine(0.02, 700*time.Millisecond)
	clock := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	e.now = func() time.Time { return clock }

	e.Score(pcmTone(320, 8000))

	// Silence shorter than the tail: not finished yet.
	clock = clock.Add(200 * time.Millisecond)
	sig := e.Score(pcmSilence(320))
	require.False(t, sig.EndOfUtterance)

	clock = clock.Add(600 * time.Millisecond)
	sig = e.Score(pcmSilence(320))
	assert.True(t, sig.EndOfUtterance)

	// Latched until consumed.
	clock = clock.Add(20 * time.Millisecond)
	sig = e.Score(pcmSilence(320))
	assert.True(t, sig.EndOfUtterance)

	e.MarkConsumed()
	sig = e.Score(pcmSilence(320))
	assert.False(t, sig.EndOfUtterance)
}

func TestEnergyEngineSilenceWithoutSpeechNeverEnds(t *testing.T) {
	e := NewEnergyEngine(0.02, 100*time.Millisecond)
	clock := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	e.now = func() time.Time { return clock }

	for i := 0; i < 50; i++ {
		clock = clock.Add(20 * time.Millisecond)
		sig := e.Score(pcmSilence(320))
		require.False(t, sig.EndOfUtterance)
	}
}

func TestEnergyEngineReset(t *testing.T) {
	e := NewEnergyEngine(0.02, 50*time.Millisecond)
	clock := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	e.now = func() time.Time { return clock }

	e.Score(pcmTone(320, 8000))
	clock = clock.Add(time.Second)
	require.True(t, e.Score(pcmSilence(320)).EndOfUtterance)

	e.Reset()
	assert.False(t, e.Score(pcmSilence(320)).EndOfUtterance)
}
