// Package ratelimit throttles mutations per (action, user) with a Redis flag that
// expires after the action's cooldown.
package ratelimit

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// Action names a throttled mutation
type Action string

const (
	ActionPost    Action = "POST"
	ActionComment Action = "COMMENT"
)

// Decision is the outcome of a limiter check
type Decision int

const (
	Allowed Decision = iota
	Throttled
)

func (d Decision) String() string {
	if d == Throttled {
		return "throttled"
	}
	return "allowed"
}

// Limiter keeps one flag per (action, user). A flag lives for the action's TTL; an
// action without a positive TTL is never limited.
type Limiter struct {
	client redis.Cmdable
	ttls   map[Action]time.Duration
}

// NewLimiter creates a Limiter with the given per-action cooldowns
func NewLimiter(client redis.Cmdable, ttls map[Action]time.Duration) *Limiter {
	copied := make(map[Action]time.Duration, len(ttls))
	for action, ttl := range ttls {
		copied[action] = ttl
	}
	return &Limiter{client: client, ttls: copied}
}

// Key returns the Redis key of the flag for action and userID
func Key(action Action, userID string) string {
	return fmt.Sprintf("RATE_LIMIT:%s:%s", action, userID)
}

// CheckAndArm checks for an existing flag and arms a new one in a single SET NX,
// so two concurrent requests cannot both pass. On a Redis error the request is
// allowed and the error is returned for logging.
func (l *Limiter) CheckAndArm(ctx context.Context, action Action, userID string) (Decision, error) {
	ttl := l.ttls[action]
	if ttl <= 0 {
		return Allowed, nil
	}

	armed, err := l.client.SetNX(ctx, Key(action, userID), 1, ttl).Result()
	if err != nil {
		log.Printf("rate limiter unavailable, allowing %s for %s: %v", action, userID, err)
		return Allowed, fmt.Errorf("arm rate limit: %w", err)
	}
	if !armed {
		return Throttled, nil
	}
	return Allowed, nil
}

// Release drops the flag armed for a mutation that did not go through
func (l *Limiter) Release(ctx context.Context, action Action, userID string) error {
	if l.ttls[action] <= 0 {
		return nil
	}
	if err := l.client.Del(ctx, Key(action, userID)).Err(); err != nil {
		return fmt.Errorf("release rate limit: %w", err)
	}
	return nil
}

// TTL returns the configured cooldown of action
func (l *Limiter) TTL(action Action) time.Duration {
	return l.ttls[action]
}
