package usecase

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"
	"github.com/shandysiswandi/otpgate/internal/audit/entity"
	"github.com/shandysiswandi/otpgate/internal/pkg/idempotency"
	"github.com/shandysiswandi/otpgate/internal/pkg/valueobject"
)

type RecordInput struct {
	EventID    string `validate:"required"`
	Event      string `validate:"required,max=32"`
	Email      string `validate:"required,max=255"`
	IPAddress  string `validate:"omitempty,max=64"`
	UserAgent  string
	Metadata   map[string]any
	OccurredAt time.Time
}

// Record persists one audit event. A given event id is written at most once.
// Write failures are retried, then logged and dropped.
func (s *Usecase) Record(ctx context.Context, in RecordInput) error {
	ctx, span := s.startSpan(ctx, "Record")
	defer span.End()

	if err := s.validator.Validate(in); err != nil {
		slog.ErrorContext(ctx, "invalid audit event, dropped", "event_id", in.EventID, "error", err)
		return nil
	}

	createdAt := in.OccurredAt
	if createdAt.IsZero() {
		createdAt = s.clock.Now()
	}

	log := entity.AuditLog{
		ID:        s.uid.Generate(),
		Event:     strings.ToUpper(in.Event),
		Email:     in.Email,
		IPAddress: in.IPAddress,
		UserAgent: in.UserAgent,
		Device:    entity.DeviceFromUserAgent(in.UserAgent),
		Metadata:  valueobject.JSONMap(in.Metadata),
		CreatedAt: createdAt,
	}

	err := s.idemp.Exec(ctx, "audit:"+in.EventID, func(ctx context.Context) error {
		b := retry.WithMaxRetries(recordAttempts-1, s.backoff())
		return retry.Do(ctx, b, func(ctx context.Context) error {
			if err := s.repoDB.CreateAuditLog(ctx, log); err != nil {
				slog.WarnContext(ctx, "failed to repo create audit log, will retry", "event_id", in.EventID, "error", err)
				return retry.RetryableError(err)
			}
			return nil
		})
	})
	if idempotency.IsDuplicate(err) {
		slog.InfoContext(ctx, "audit event already recorded", "event_id", in.EventID, "error", err)
		return nil
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to record audit event, dropped", "event_id", in.EventID, "event", log.Event, "error", err)
		return nil
	}

	return nil
}
