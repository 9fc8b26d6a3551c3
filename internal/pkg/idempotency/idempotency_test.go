package idempotency

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestTracker(t *testing.T) (*miniredis.Miniredis, *StateTracker) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, New(client)
}

func TestStateTracker_Exec_RunsOnce(t *testing.T) {
	// Arrange
	_, s := newTestTracker(t)
	calls := 0
	fn := func(context.Context) error { calls++; return nil }

	// Act
	err1 := s.Exec(context.Background(), "evt-1", fn)
	err2 := s.Exec(context.Background(), "evt-1", fn)

	// Assert
	if err1 != nil {
		t.Fatalf("first Exec() error = %v", err1)
	}
	if !errors.Is(err2, ErrAlreadyCompleted) || !IsDuplicate(err2) {
		t.Fatalf("second Exec() error = %v, want ErrAlreadyCompleted", err2)
	}
	if calls != 1 {
		t.Fatalf("calls = %d, want 1", calls)
	}
}

func TestStateTracker_Exec_FailureIsRemembered(t *testing.T) {
	_, s := newTestTracker(t)
	boom := errors.New("smtp down")

	err := s.Exec(context.Background(), "evt-2", func(context.Context) error { return boom })
	if !errors.Is(err, boom) {
		t.Fatalf("Exec() error = %v, want %v", err, boom)
	}

	err = s.Exec(context.Background(), "evt-2", func(context.Context) error { return nil })
	if !errors.Is(err, ErrAlreadyFailed) {
		t.Fatalf("Exec() after failure error = %v, want ErrAlreadyFailed", err)
	}
}

func TestStateTracker_StateExpires(t *testing.T) {
	mr, s := newTestTracker(t)
	_ = s.Exec(context.Background(), "evt-3", func(context.Context) error { return nil }, WithStateTTL(time.Minute))

	mr.FastForward(2 * time.Minute)

	calls := 0
	if err := s.Exec(context.Background(), "evt-3", func(context.Context) error { calls++; return nil }); err != nil {
		t.Fatalf("Exec() error = %v", err)
	}
	if calls != 1 {
		t.Fatalf("calls = %d, want 1", calls)
	}
}

func TestStateTracker_Acquire_InProgress(t *testing.T) {
	_, s := newTestTracker(t)

	st, err := s.Acquire(context.Background(), "evt-4", time.Minute)
	if err != nil || st != StateNone {
		t.Fatalf("Acquire() = %v, %v", st, err)
	}

	st, err = s.Acquire(context.Background(), "evt-4", time.Minute)
	if err != nil || st != StateInProgress {
		t.Fatalf("second Acquire() = %v, %v", st, err)
	}
}

func TestStateTracker_Acquire_InvalidState(t *testing.T) {
	mr, s := newTestTracker(t)
	_ = mr.Set("idempotency:evt-5", "garbage")

	if _, err := s.Acquire(context.Background(), "evt-5", time.Minute); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("Acquire() error = %v, want ErrInvalidState", err)
	}
}
