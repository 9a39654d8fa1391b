package pipeline

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFingerprintDeterministic(t *testing.T) {
	a := Fingerprint([]byte{1, 2, 3, 4})
	b := Fingerprint([]byte{1, 2, 3, 4})
	c := Fingerprint([]byte{1, 2, 3, 5})

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Len(t, a, 16)
}

func TestExactRepeatWithinCooldown(t *testing.T) {
	d := NewDeduplicator(2*time.Second, 0.9)
	base := time.Now()
	d.now = func() time.Time { return base }

	assert.True(t, d.IsDuplicate("what is your return policy", "What is your return policy?", base.Add(-500*time.Millisecond)))
}

func TestRepeatAfterCooldownIsAnswered(t *testing.T) {
	d := NewDeduplicator(2*time.Second, 0.9)
	base := time.Now()
	d.now = func() time.Time { return base }

	// same question, asked again 3s later: deliberate, must go through
	assert.False(t, d.IsDuplicate("what is your return policy", "what is your return policy", base.Add(-3*time.Second)))
}

func TestNearDuplicateAboveThreshold(t *testing.T) {
	d := NewDeduplicator(2*time.Second, 0.9)
	base := time.Now()
	d.now = func() time.Time { return base }

	// same words, different order and punctuation: token sets are identical
	last := "can you tell me about the shipping policy"
	repeat := "About the shipping policy, can you tell me?"
	assert.True(t, d.IsDuplicate(repeat, last, base.Add(-time.Second)))
}

func TestDistinctQuestionNotSuppressed(t *testing.T) {
	d := NewDeduplicator(2*time.Second, 0.9)
	base := time.Now()
	d.now = func() time.Time { return base }

	assert.False(t, d.IsDuplicate("what about refunds", "what is your shipping policy", base.Add(-time.Second)))
}

func TestNoHistoryNeverDuplicate(t *testing.T) {
	d := NewDeduplicator(2*time.Second, 0.9)

	assert.False(t, d.IsDuplicate("hello", "", time.Time{}))
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "whats the return policy", Normalize("  What's   the RETURN policy?! "))
	assert.Equal(t, "", Normalize("... !!!"))
}
