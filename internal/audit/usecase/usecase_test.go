package usecase

import (
	"context"
	"errors"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/sethvargo/go-retry"
	"github.com/shandysiswandi/otpgate/internal/audit/entity"
	"github.com/shandysiswandi/otpgate/internal/pkg/clock"
	"github.com/shandysiswandi/otpgate/internal/pkg/goerror"
	"github.com/shandysiswandi/otpgate/internal/pkg/idempotency"
	"github.com/shandysiswandi/otpgate/internal/pkg/instrument"
	"github.com/shandysiswandi/otpgate/internal/pkg/validator"
	"go.uber.org/atomic"
)

var testNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

type fakeRepoDB struct {
	mu        sync.Mutex
	logs      []entity.AuditLog
	failures  int
	calls     int
	lastQuery entity.AuditLogFilter
	err       error
}

func (f *fakeRepoDB) CreateAuditLog(_ context.Context, log entity.AuditLog) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls++
	if f.calls <= f.failures {
		return errors.New("connection reset")
	}
	f.logs = append(f.logs, log)
	return nil
}

func (f *fakeRepoDB) GetAuditLog(_ context.Context, id int64) (*entity.AuditLog, error) {
	if f.err != nil {
		return nil, f.err
	}
	for _, l := range f.logs {
		if l.ID == id {
			return &l, nil
		}
	}
	return nil, goerror.ErrNotFound
}

func (f *fakeRepoDB) match(filter entity.AuditLogFilter) []entity.AuditLog {
	out := make([]entity.AuditLog, 0, len(f.logs))
	for _, l := range f.logs {
		if filter.Email != "" && l.Email != filter.Email {
			continue
		}
		if filter.Event != "" && l.Event != filter.Event {
			continue
		}
		if !filter.From.IsZero() && l.CreatedAt.Before(filter.From) {
			continue
		}
		if !filter.To.IsZero() && l.CreatedAt.After(filter.To) {
			continue
		}
		out = append(out, l)
	}
	slices.SortFunc(out, func(a, b entity.AuditLog) int { return b.CreatedAt.Compare(a.CreatedAt) })
	return out
}

func (f *fakeRepoDB) ListAuditLogs(_ context.Context, filter entity.AuditLogFilter) ([]entity.AuditLog, error) {
	f.lastQuery = filter
	if f.err != nil {
		return nil, f.err
	}
	all := f.match(filter)
	if filter.Offset >= len(all) {
		return []entity.AuditLog{}, nil
	}
	return all[filter.Offset:min(filter.Offset+filter.Limit, len(all))], nil
}

func (f *fakeRepoDB) CountAuditLogs(_ context.Context, filter entity.AuditLogFilter) (int64, error) {
	f.lastQuery = filter
	if f.err != nil {
		return 0, f.err
	}
	return int64(len(f.match(filter))), nil
}

type seqID struct{ n atomic.Int64 }

func (s *seqID) Generate() int64 { return s.n.Inc() }

func newTestUsecase(t *testing.T, repo *fakeRepoDB) *Usecase {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	v, err := validator.NewV10Validator()
	if err != nil {
		t.Fatalf("NewV10Validator() error = %v", err)
	}

	return New(Dependency{
		RepoDB:      repo,
		Idempotency: idempotency.New(client),
		Validator:   v,
		UID:         &seqID{},
		Clock:       clock.NewManual(testNow),
		Instrument:  instrument.NewNoop(),
		Backoff:     func() retry.Backoff { return retry.NewConstant(time.Millisecond) },
	})
}
