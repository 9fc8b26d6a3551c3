package guard

import (
	"context"
	"math"
	"time"

	"github.com/shandysiswandi/otpgate/internal/pkg/kvstore"
)

// Rule is a limit of Limit hits per fixed Window.
type Rule struct {
	Limit  int64
	Window time.Duration
}

// Decision is the outcome of a rate limit check.
type Decision struct {
	Limited bool
	// RetryAfter is the time until the current window resets. It is only set when Limited.
	RetryAfter time.Duration
}

// RetryAfterSeconds rounds RetryAfter up to whole seconds.
func (d Decision) RetryAfterSeconds() int64 {
	return ceilSeconds(d.RetryAfter)
}

// RateLimiter counts hits per dimension in fixed windows.
type RateLimiter struct {
	store kvstore.Store
	rules map[Dimension]Rule
}

func NewRateLimiter(store kvstore.Store, rules map[Dimension]Rule) *RateLimiter {
	return &RateLimiter{store: store, rules: rules}
}

// CheckAndIncrement counts one hit for key. The hit that crosses the limit is
// itself counted and rejected. Unknown dimensions are never limited.
func (r *RateLimiter) CheckAndIncrement(ctx context.Context, d Dimension, key string) (Decision, error) {
	rule, ok := r.rules[d]
	if !ok || rule.Limit <= 0 {
		return Decision{}, nil
	}

	count, ttl, err := r.store.IncrWithTTL(ctx, rateKey(d, key), rule.Window)
	if err != nil {
		return Decision{}, err
	}

	if count <= rule.Limit {
		return Decision{}, nil
	}

	if ttl <= 0 {
		ttl = rule.Window
	}
	return Decision{Limited: true, RetryAfter: ttl}, nil
}

func ceilSeconds(d time.Duration) int64 {
	if d <= 0 {
		return 0
	}
	return int64(math.Ceil(d.Seconds()))
}
