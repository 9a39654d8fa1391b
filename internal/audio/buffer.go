package audio

import "time"

const (
	// SampleRate is fixed for the whole system: 16 kHz mono signed 16-bit PCM.
	SampleRate     = 16000
	BytesPerSample = 2
)

// BytesForDuration converts a wall-clock span to a PCM byte count at the
// system sample rate.
func BytesForDuration(d time.Duration) int {
	return int(d.Seconds() * SampleRate * BytesPerSample)
}

// Duration converts a PCM byte count to its wall-clock span.
func Duration(byteLen int) time.Duration {
	return time.Duration(float64(byteLen) / (SampleRate * BytesPerSample) * float64(time.Second))
}

// Buffer accumulates raw PCM for one session between utterance boundaries.
// It is not safe for concurrent use on its own: every caller must hold the
// owning session's lock, which also makes SnapshotAndClear atomic with
// respect to appends.
type Buffer struct {
	maxBytes       int
	retentionBytes int

	data       []byte
	chunkCount int
	startedAt  time.Time
	trims      int
}

// NewBuffer builds a buffer bounded at maxBytes. On overflow the buffer is
// trimmed to the most recent retentionBytes instead of rejecting the append,
// so the tail of speech is never lost.
func NewBuffer(maxBytes, retentionBytes int) *Buffer {
	if maxBytes <= 0 {
		maxBytes = BytesForDuration(8 * time.Second)
	}
	if retentionBytes <= 0 || retentionBytes > maxBytes {
		retentionBytes = maxBytes / 2
	}
	return &Buffer{maxBytes: maxBytes, retentionBytes: retentionBytes}
}

// Append adds a chunk, trimming first if the result would exceed the bound.
// Ingress chunks are arbitrary size, so the chunk itself is trimmed to the
// retention window when it alone would blow the bound. Returns true when a
// trim happened, so the caller can log it.
func (b *Buffer) Append(chunk []byte) bool {
	trimmed := false
	if len(b.data)+len(chunk) > b.maxBytes {
		keep := b.retentionBytes
		if keep > len(b.data) {
			keep = len(b.data)
		}
		b.data = b.data[len(b.data)-keep:]
		b.trims++
		trimmed = true

		if len(chunk) > b.retentionBytes {
			chunk = chunk[len(chunk)-b.retentionBytes:]
		}
		if over := len(b.data) + len(chunk) - b.maxBytes; over > 0 {
			b.data = b.data[over:]
		}
	}
	if len(b.data) == 0 {
		b.startedAt = time.Now().UTC()
	}
	b.data = append(b.data, chunk...)
	b.chunkCount++
	return trimmed
}

// SnapshotAndClear returns the accumulated bytes as a fresh slice and empties
// the buffer. The returned slice is never aliased by later appends.
func (b *Buffer) SnapshotAndClear() []byte {
	out := make([]byte, len(b.data))
	copy(out, b.data)
	b.Clear()
	return out
}

// Clear drops all buffered audio and resets the chunk bookkeeping.
func (b *Buffer) Clear() {
	b.data = b.data[:0]
	b.chunkCount = 0
	b.startedAt = time.Time{}
}

func (b *Buffer) Len() int        { return len(b.data) }
func (b *Buffer) ChunkCount() int { return b.chunkCount }
func (b *Buffer) Trims() int      { return b.trims }

// StartedAt is the arrival time of the first chunk of the current utterance.
func (b *Buffer) StartedAt() time.Time { return b.startedAt }

// BufferedDuration is the speech time represented by the buffered bytes,
// a pure function of byte count and the fixed PCM format.
func (b *Buffer) BufferedDuration() time.Duration {
	return Duration(len(b.data))
}
