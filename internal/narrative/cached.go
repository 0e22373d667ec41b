package narrative

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"time-tracking-api/internal/cache"
)

// Cached memoizes another generator by input. Failures are not cached.
type Cached struct {
	next  Generator
	store cache.Cache[string, Result]
	ttl   time.Duration
}

func NewCached(next Generator, store cache.Cache[string, Result], ttl time.Duration) *Cached {
	return &Cached{next: next, store: store, ttl: ttl}
}

func (c *Cached) Generate(ctx context.Context, in Input) (Result, error) {
	key, err := cacheKey(in)
	if err != nil {
		return c.next.Generate(ctx, in)
	}
	if res, ok := c.store.Get(key); ok {
		return res, nil
	}
	res, err := c.next.Generate(ctx, in)
	if err != nil {
		return Result{}, err
	}
	c.store.Set(key, res, c.ttl)
	return res, nil
}

// Draft passes through to the wrapped generator without caching; drafts are
// expected to differ between calls.
func (c *Cached) Draft(ctx context.Context, userInput string) (Draft, error) {
	return DrafterFor(c.next).Draft(ctx, userInput)
}

func cacheKey(in Input) (string, error) {
	raw, err := json.Marshal(in)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:]), nil
}
