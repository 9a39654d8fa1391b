package tts

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
)

// Chain tries engines in order and returns the first success. A failed
// engine is logged and the chain continues; the orchestrator never learns
// which concrete engine served the call.
type Chain struct {
	engines []namedEngine
	log     *logrus.Logger
}

type namedEngine struct {
	name string
	p    Provider
}

func NewChain(log *logrus.Logger) *Chain {
	return &Chain{log: log}
}

func (c *Chain) Add(name string, p Provider) *Chain {
	c.engines = append(c.engines, namedEngine{name: name, p: p})
	return c
}

func (c *Chain) Synthesize(ctx context.Context, text string) ([]byte, string, error) {
	if len(c.engines) == 0 {
		return nil, "", fmt.Errorf("tts chain: no engines configured")
	}

	var lastErr error
	for _, e := range c.engines {
		if ctx.Err() != nil {
			return nil, "", ctx.Err()
		}
		audio, format, err := e.p.Synthesize(ctx, text)
		if err == nil {
			return audio, format, nil
		}
		lastErr = err
		c.log.WithError(err).WithField("engine", e.name).Warn("tts engine failed, trying next")
	}
	return nil, "", fmt.Errorf("tts chain: all engines failed: %w", lastErr)
}
