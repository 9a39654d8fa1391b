package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

type redisEntry struct {
	Audio  []byte `json:"audio"`
	Format string `json:"format"`
}

// Redis backs the synthesis cache with a shared Redis instance, so cached
// replies survive restarts and are shared across processes.
type Redis struct {
	rdb    *redis.Client
	prefix string
}

func NewRedis(rdb *redis.Client) *Redis {
	return &Redis{rdb: rdb, prefix: "tts:"}
}

func (c *Redis) Get(ctx context.Context, key string) ([]byte, string, bool, error) {
	s, err := c.rdb.Get(ctx, c.prefix+key).Result()
	if err == redis.Nil {
		return nil, "", false, nil
	}
	if err != nil {
		return nil, "", false, err
	}
	var e redisEntry
	if err := json.Unmarshal([]byte(s), &e); err != nil {
		// data corrupt: treat as miss by deleting
		_ = c.rdb.Del(ctx, c.prefix+key).Err()
		return nil, "", false, nil
	}
	return e.Audio, e.Format, true, nil
}

func (c *Redis) Set(ctx context.Context, key string, audio []byte, format string, ttl time.Duration) error {
	b, err := json.Marshal(redisEntry{Audio: audio, Format: format})
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, c.prefix+key, b, ttl).Err()
}
