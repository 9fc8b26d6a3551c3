package guard

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/shandysiswandi/otpgate/internal/pkg/kvstore"
)

// LockState describes whether an identity is locked and for how long.
type LockState struct {
	Locked   bool
	UnlockIn time.Duration
}

// UnlockETASeconds rounds UnlockIn up to whole seconds.
func (l LockState) UnlockETASeconds() int64 {
	return ceilSeconds(l.UnlockIn)
}

// Lockout counts failed verifications per identity. There is no lock flag:
// an identity is locked while its counter is at or above the threshold.
type Lockout struct {
	store     kvstore.Store
	threshold int64
	window    time.Duration
}

func NewLockout(store kvstore.Store, threshold int64, window time.Duration) *Lockout {
	return &Lockout{store: store, threshold: threshold, window: window}
}

// IsLocked reads the counter without changing it.
func (l *Lockout) IsLocked(ctx context.Context, identity string) (LockState, error) {
	raw, err := l.store.Get(ctx, failedKey(identity))
	if errors.Is(err, kvstore.ErrKeyNotFound) {
		return LockState{}, nil
	}
	if err != nil {
		return LockState{}, err
	}

	count, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || count < l.threshold {
		return LockState{}, nil
	}

	ttl, err := l.store.TTL(ctx, failedKey(identity))
	if err != nil {
		return LockState{}, err
	}
	if ttl <= 0 {
		// Expired between the two reads.
		return LockState{}, nil
	}

	return LockState{Locked: true, UnlockIn: ttl}, nil
}

// RecordFailure counts one failed attempt and reports whether the identity is
// now locked.
func (l *Lockout) RecordFailure(ctx context.Context, identity string) (LockState, error) {
	count, ttl, err := l.store.IncrWithTTL(ctx, failedKey(identity), l.window)
	if err != nil {
		return LockState{}, err
	}

	if count < l.threshold {
		return LockState{}, nil
	}
	if ttl <= 0 {
		ttl = l.window
	}
	return LockState{Locked: true, UnlockIn: ttl}, nil
}

// Clear forgets all failures for identity.
func (l *Lockout) Clear(ctx context.Context, identity string) error {
	return l.store.Del(ctx, failedKey(identity))
}
