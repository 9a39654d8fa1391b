package pipeline

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
	"unicode"
)

// Fingerprint is the content signature of an utterance snapshot: a SHA-256
// of the raw bytes, deterministic and independent of buffer bookkeeping.
func Fingerprint(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])[:16]
}

// Deduplicator suppresses reprocessing of repeated or near-repeated
// transcripts within a cooldown window. An identical question asked
// deliberately after the window must be answered again.
type Deduplicator struct {
	Cooldown   time.Duration
	Similarity float64

	now func() time.Time
}

func NewDeduplicator(cooldown time.Duration, similarity float64) *Deduplicator {
	if cooldown <= 0 {
		cooldown = 2 * time.Second
	}
	if similarity <= 0 || similarity > 1 {
		similarity = 0.9
	}
	return &Deduplicator{Cooldown: cooldown, Similarity: similarity, now: time.Now}
}

// IsDuplicate reports whether transcript repeats last within the cooldown,
// either byte-identical after normalization or above the similarity
// threshold on token-set overlap.
func (d *Deduplicator) IsDuplicate(transcript, last string, lastAt time.Time) bool {
	if last == "" || lastAt.IsZero() {
		return false
	}
	if d.now().Sub(lastAt) >= d.Cooldown {
		return false
	}
	a, b := Normalize(transcript), Normalize(last)
	if a == b {
		return true
	}
	return tokenOverlap(a, b) >= d.Similarity
}

// Normalize case-folds and strips punctuation, keeping words separated by
// single spaces. Used for both exact and fuzzy comparison.
func Normalize(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range strings.ToLower(s) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// tokenOverlap is the Jaccard ratio over the two normalized token sets.
func tokenOverlap(a, b string) float64 {
	wa := tokenSet(a)
	wb := tokenSet(b)
	if len(wa) == 0 && len(wb) == 0 {
		return 1.0
	}
	if len(wa) == 0 || len(wb) == 0 {
		return 0.0
	}
	inter := 0
	for w := range wa {
		if _, ok := wb[w]; ok {
			inter++
		}
	}
	union := len(wa) + len(wb) - inter
	return float64(inter) / float64(union)
}

func tokenSet(s string) map[string]struct{} {
	out := make(map[string]struct{})
	for _, w := range strings.Fields(s) {
		out[w] = struct{}{}
	}
	return out
}
