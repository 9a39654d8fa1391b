package cache

import (
	"context"
	"time"
)

// Audio is the shared synthesis cache: synthesized speech keyed by a hash of
// the response text. Read concurrently by all sessions; writes are
// last-writer-wins, so a race producing two entries for one key is harmless.
type Audio interface {
	Get(ctx context.Context, key string) (audio []byte, format string, hit bool, err error)
	Set(ctx context.Context, key string, audio []byte, format string, ttl time.Duration) error
}
