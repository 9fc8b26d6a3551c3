package usecase

import (
	"context"
	"time"

	"github.com/sethvargo/go-retry"
	"github.com/shandysiswandi/otpgate/internal/audit/entity"
	"github.com/shandysiswandi/otpgate/internal/pkg/clock"
	"github.com/shandysiswandi/otpgate/internal/pkg/idempotency"
	"github.com/shandysiswandi/otpgate/internal/pkg/instrument"
	"github.com/shandysiswandi/otpgate/internal/pkg/uid"
	"github.com/shandysiswandi/otpgate/internal/pkg/validator"
	"go.opentelemetry.io/otel/trace"
)

const recordAttempts uint64 = 3

type repoDB interface {
	CreateAuditLog(ctx context.Context, log entity.AuditLog) error
	GetAuditLog(ctx context.Context, id int64) (*entity.AuditLog, error)
	ListAuditLogs(ctx context.Context, f entity.AuditLogFilter) ([]entity.AuditLog, error)
	CountAuditLogs(ctx context.Context, f entity.AuditLogFilter) (int64, error)
}

type Usecase struct {
	repoDB    repoDB
	idemp     idempotency.Idempotency
	validator validator.Validator
	uid       uid.NumberID
	clock     clock.Clocker
	ins       instrument.Instrumentation
	backoff   func() retry.Backoff
}

type Dependency struct {
	RepoDB      repoDB
	Idempotency idempotency.Idempotency
	Validator   validator.Validator
	UID         uid.NumberID
	Clock       clock.Clocker
	Instrument  instrument.Instrumentation
	Backoff     func() retry.Backoff
}

func New(dep Dependency) *Usecase {
	backoff := dep.Backoff
	if backoff == nil {
		backoff = func() retry.Backoff { return retry.NewExponential(500 * time.Millisecond) }
	}

	return &Usecase{
		repoDB:    dep.RepoDB,
		idemp:     dep.Idempotency,
		validator: dep.Validator,
		uid:       dep.UID,
		clock:     dep.Clock,
		ins:       dep.Instrument,
		backoff:   backoff,
	}
}

func (s *Usecase) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return s.ins.Tracer("audit.usecase").Start(ctx, name)
}
