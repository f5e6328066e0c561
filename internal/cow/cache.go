package cow

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/danielpatrickdp/digital-cow/internal/dairy"
	"github.com/danielpatrickdp/digital-cow/internal/herd"
	"golang.org/x/sync/singleflight"
)

// Observer is told about every state-space generation the cache runs.
type Observer interface {
	ObserveGeneration(key string, states int, elapsed time.Duration, err error)
}

// Observers fans a generation out to several observers.
type Observers []Observer

func (o Observers) ObserveGeneration(key string, states int, elapsed time.Duration, err error) {
	for _, obs := range o {
		obs.ObserveGeneration(key, states, elapsed, err)
	}
}

// ChainCache memoizes generated spaces per herd configuration so cows sharing a herd share
// one chain. Concurrent requests for the same key wait on a single generation.
type ChainCache struct {
	logger   *slog.Logger
	observer Observer

	mu     sync.Mutex
	spaces map[string]*Space
	group  singleflight.Group
}

// NewChainCache returns an empty cache. Both arguments may be nil.
func NewChainCache(logger *slog.Logger, observer Observer) *ChainCache {
	if logger == nil {
		logger = slog.Default()
	}
	return &ChainCache{
		logger:   logger,
		observer: observer,
		spaces:   make(map[string]*Space),
	}
}

// CacheKey identifies a generated space.
func CacheKey(p herd.Params, dimLimit, lnLimit int, prec dairy.Precision) string {
	return fmt.Sprintf("%s/dim=%d/ln=%d/prec=%d", p.Fingerprint(), dimLimit, lnLimit, prec)
}

// Get returns the cached space for the inputs, generating it on first use.
func (c *ChainCache) Get(ctx context.Context, p herd.Params, dimLimit, lnLimit int, prec dairy.Precision) (*Space, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("chain cache get: %w", err)
	}
	key := CacheKey(p, dimLimit, lnLimit, prec)

	c.mu.Lock()
	s, ok := c.spaces[key]
	c.mu.Unlock()
	if ok {
		return s, nil
	}

	ch := c.group.DoChan(key, func() (interface{}, error) {
		start := time.Now()
		s, err := Generate(p, dimLimit, lnLimit, prec)
		elapsed := time.Since(start)
		if c.observer != nil {
			n := 0
			if s != nil {
				n = s.Len()
			}
			c.observer.ObserveGeneration(key, n, elapsed, err)
		}
		if err != nil {
			c.logger.Warn("state space generation failed", "key", key, "error", err)
			return nil, err
		}
		c.logger.Info("state space generated", "key", key, "states", s.Len(), "elapsed", elapsed)

		c.mu.Lock()
		c.spaces[key] = s
		c.mu.Unlock()
		return s, nil
	})

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("chain cache get: %w", ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*Space), nil
	}
}

// Len is the number of cached spaces.
func (c *ChainCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.spaces)
}

// Purge drops every space cached for p, whatever the limits or precision, and returns how
// many were dropped.
func (c *ChainCache) Purge(p herd.Params) int {
	prefix := p.Fingerprint() + "/"
	c.mu.Lock()
	defer c.mu.Unlock()
	dropped := 0
	for key := range c.spaces {
		if strings.HasPrefix(key, prefix) {
			delete(c.spaces, key)
			dropped++
		}
	}
	return dropped
}
