package audio

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBufferDurationMath(t *testing.T) {
	// 1 second of 16kHz mono s16le is 32000 bytes.
	assert.Equal(t, 32000, BytesForDuration(time.Second))
	assert.Equal(t, time.Second, Duration(32000))

	b := NewBuffer(64000, 32000)
	b.Append(make([]byte, 9600)) // 0.3s
	assert.Equal(t, 300*time.Millisecond, b.BufferedDuration())
}

func TestBufferNeverExceedsMax(t *testing.T) {
	b := NewBuffer(1000, 500)
	for i := 0; i < 50; i++ {
		b.Append(make([]byte, 100))
		require.LessOrEqual(t, b.Len(), 1000)
	}
	assert.Greater(t, b.Trims(), 0)
}

func TestBufferBoundHoldsForOversizedChunk(t *testing.T) {
	b := NewBuffer(1000, 500)

	b.Append(make([]byte, 900))
	trimmed := b.Append(bytes.Repeat([]byte{0xCC}, 3000))

	require.True(t, trimmed)
	require.LessOrEqual(t, b.Len(), 1000)
	// the tail of the oversized chunk survives
	got := b.SnapshotAndClear()
	assert.Equal(t, bytes.Repeat([]byte{0xCC}, 500), got[len(got)-500:])
}

func TestBufferFirstChunkLargerThanMax(t *testing.T) {
	b := NewBuffer(1000, 500)

	b.Append(make([]byte, 5000))
	assert.LessOrEqual(t, b.Len(), 1000)
	assert.Equal(t, 500, b.Len())
}

func TestBufferTrimKeepsMostRecentBytes(t *testing.T) {
	b := NewBuffer(100, 40)

	old := bytes.Repeat([]byte{0xAA}, 90)
	b.Append(old)
	recent := bytes.Repeat([]byte{0xBB}, 20)
	trimmed := b.Append(recent)

	require.True(t, trimmed)
	got := b.SnapshotAndClear()
	// Retention window (40 bytes of the old data) plus the new chunk.
	require.Len(t, got, 60)
	assert.Equal(t, bytes.Repeat([]byte{0xAA}, 40), got[:40])
	assert.Equal(t, recent, got[40:])
}

func TestSnapshotAndClearIsCopyAndEmpties(t *testing.T) {
	b := NewBuffer(1000, 500)
	b.Append([]byte{1, 2, 3, 4})

	snap := b.SnapshotAndClear()
	require.Equal(t, []byte{1, 2, 3, 4}, snap)
	assert.Equal(t, 0, b.Len())
	assert.Equal(t, 0, b.ChunkCount())

	// Later appends must not alias the snapshot.
	b.Append([]byte{9, 9, 9, 9})
	assert.Equal(t, []byte{1, 2, 3, 4}, snap)
}

func TestChunkCountAndStartedAt(t *testing.T) {
	b := NewBuffer(1000, 500)
	require.True(t, b.StartedAt().IsZero())

	b.Append([]byte{0, 0})
	b.Append([]byte{0, 0})
	assert.Equal(t, 2, b.ChunkCount())
	assert.False(t, b.StartedAt().IsZero())

	b.Clear()
	assert.True(t, b.StartedAt().IsZero())
}
