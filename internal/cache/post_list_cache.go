// Package cache holds the read-through cache of the public post listing.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync/atomic"

	"github.com/anonto42/thunderlink/backend/internal/models"
	"github.com/redis/go-redis/v9"
)

// DefaultListingKey is the Redis key of the cached listing
const DefaultListingKey = "ALL_POSTS"

// PostListCache caches the full post listing as one JSON value with no expiry.
//
// Every invalidation bumps a generation counter next to the listing. A reader
// records the generation before it queries the store and only writes its result
// back if the generation is unchanged, so a listing read before a write can not
// be stored after that write's invalidation.
type PostListCache struct {
	client redis.UniversalClient
	key    string
	genKey string

	// pending is set while an invalidation is owed to Redis
	pending atomic.Bool
}

// NewPostListCache creates a cache under key, or DefaultListingKey when key is empty
func NewPostListCache(client redis.UniversalClient, key string) *PostListCache {
	if key == "" {
		key = DefaultListingKey
	}
	return &PostListCache{
		client: client,
		key:    key,
		genKey: key + ":GEN",
	}
}

// Key returns the Redis key of the listing
func (c *PostListCache) Key() string {
	return c.key
}

// Pending reports whether a failed invalidation is still outstanding
func (c *PostListCache) Pending() bool {
	return c.pending.Load()
}

// Get returns the cached listing. ok is false on a miss. While an invalidation is
// outstanding Get retries it and always reports a miss.
func (c *PostListCache) Get(ctx context.Context) ([]models.Post, bool, error) {
	if c.pending.Load() {
		if err := c.Invalidate(ctx); err != nil {
			return nil, false, err
		}
		return nil, false, nil
	}

	raw, err := c.client.Get(ctx, c.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get %s: %w", c.key, err)
	}

	posts := make([]models.Post, 0)
	if err := json.Unmarshal(raw, &posts); err != nil {
		return nil, false, fmt.Errorf("decode %s: %w", c.key, err)
	}
	return posts, true, nil
}

// Generation returns the current invalidation generation
func (c *PostListCache) Generation(ctx context.Context) (int64, error) {
	gen, err := c.client.Get(ctx, c.genKey).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("get %s: %w", c.genKey, err)
	}
	return gen, nil
}

// Set stores posts unconditionally
func (c *PostListCache) Set(ctx context.Context, posts []models.Post) error {
	if c.pending.Load() {
		return nil
	}
	raw, err := json.Marshal(posts)
	if err != nil {
		return fmt.Errorf("encode %s: %w", c.key, err)
	}
	if err := c.client.Set(ctx, c.key, raw, 0).Err(); err != nil {
		return fmt.Errorf("set %s: %w", c.key, err)
	}
	return nil
}

// SetAt stores posts only if no invalidation happened since gen was read. It
// returns false when the write was skipped.
func (c *PostListCache) SetAt(ctx context.Context, gen int64, posts []models.Post) (bool, error) {
	if c.pending.Load() {
		return false, nil
	}
	raw, err := json.Marshal(posts)
	if err != nil {
		return false, fmt.Errorf("encode %s: %w", c.key, err)
	}

	errStale := errors.New("stale generation")
	err = c.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, c.genKey).Int64()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if current != gen {
			return errStale
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, c.key, raw, 0)
			return nil
		})
		return err
	}, c.genKey)

	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, errStale), errors.Is(err, redis.TxFailedErr):
		return false, nil
	default:
		return false, fmt.Errorf("set %s: %w", c.key, err)
	}
}

// Invalidate evicts the listing and bumps the generation. On failure the cache
// stays in the pending state until a later eviction succeeds.
func (c *PostListCache) Invalidate(ctx context.Context) error {
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, c.key)
		pipe.Incr(ctx, c.genKey)
		return nil
	})
	if err != nil {
		c.pending.Store(true)
		return fmt.Errorf("invalidate %s: %w", c.key, err)
	}
	c.pending.Store(false)
	return nil
}

// Fetch serves the listing from the cache, or loads it and writes it back. Cache
// failures are logged and fall through to load.
func (c *PostListCache) Fetch(ctx context.Context, load func(ctx context.Context) ([]models.Post, error)) ([]models.Post, error) {
	posts, ok, err := c.Get(ctx)
	if err != nil {
		log.Printf("post listing cache read failed: %v", err)
	}
	if ok {
		return posts, nil
	}

	gen, genErr := c.Generation(ctx)
	if genErr != nil {
		log.Printf("post listing cache generation read failed: %v", genErr)
	}

	posts, err = load(ctx)
	if err != nil {
		return nil, err
	}

	if genErr == nil {
		if _, err := c.SetAt(ctx, gen, posts); err != nil {
			log.Printf("post listing cache write failed: %v", err)
		}
	}
	return posts, nil
}
