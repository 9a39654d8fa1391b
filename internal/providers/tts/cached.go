package tts

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/voxdesk/voxdesk/internal/cache"
)

// Cached wraps a provider with the shared synthesis cache, keyed by a hash
// of the reply text. The cache is consulted before synthesis; the synthesis
// call itself runs outside any cache lock, and concurrent fills for the same
// key resolve last-writer-wins.
type Cached struct {
	inner Provider
	store cache.Audio
	ttl   time.Duration
	log   *logrus.Logger
}

func NewCached(inner Provider, store cache.Audio, ttl time.Duration, log *logrus.Logger) *Cached {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Cached{inner: inner, store: store, ttl: ttl, log: log}
}

// Key hashes reply text into a cache key.
func Key(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

func (c *Cached) Synthesize(ctx context.Context, text string) ([]byte, string, error) {
	key := Key(text)

	audio, format, hit, err := c.store.Get(ctx, key)
	if err != nil {
		c.log.WithError(err).Warn("tts cache lookup failed")
	} else if hit {
		c.log.WithField("key", key[:8]).Debug("tts cache hit")
		return audio, format, nil
	}

	audio, format, err = c.inner.Synthesize(ctx, text)
	if err != nil {
		return nil, "", err
	}

	if serr := c.store.Set(ctx, key, audio, format, c.ttl); serr != nil {
		c.log.WithError(serr).Warn("tts cache store failed")
	}
	return audio, format, nil
}

// Warm fills the cache for replies likely to be spoken soon. Failures are
// logged only; warming is opportunistic.
func (c *Cached) Warm(ctx context.Context, texts []string) {
	for _, t := range texts {
		if t == "" || ctx.Err() != nil {
			return
		}
		key := Key(t)
		if _, _, hit, err := c.store.Get(ctx, key); err != nil || hit {
			continue
		}
		audio, format, err := c.inner.Synthesize(ctx, t)
		if err != nil {
			c.log.WithError(err).Debug("tts cache warm failed")
			continue
		}
		_ = c.store.Set(ctx, key, audio, format, c.ttl)
	}
}
