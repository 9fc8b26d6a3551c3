package usecase

import (
	"context"
	"time"

	"github.com/sethvargo/go-retry"
	"github.com/shandysiswandi/otpgate/internal/pkg/idempotency"
	"github.com/shandysiswandi/otpgate/internal/pkg/instrument"
	"github.com/shandysiswandi/otpgate/internal/pkg/validator"
	"go.opentelemetry.io/otel/trace"
)

const deliveryAttempts uint64 = 3

type repoMail interface {
	SendOTP(ctx context.Context, to, code string, expiry time.Duration) error
}

type Usecase struct {
	repoMail  repoMail
	idemp     idempotency.Idempotency
	validator validator.Validator
	ins       instrument.Instrumentation
	backoff   func() retry.Backoff
}

type Dependency struct {
	RepoMail    repoMail
	Idempotency idempotency.Idempotency
	Validator   validator.Validator
	Instrument  instrument.Instrumentation
	// Backoff builds the retry schedule for one delivery. Defaults to
	// exponential from 500ms.
	Backoff func() retry.Backoff
}

func New(dep Dependency) *Usecase {
	backoff := dep.Backoff
	if backoff == nil {
		backoff = func() retry.Backoff { return retry.NewExponential(500 * time.Millisecond) }
	}

	return &Usecase{
		repoMail:  dep.RepoMail,
		idemp:     dep.Idempotency,
		validator: dep.Validator,
		ins:       dep.Instrument,
		backoff:   backoff,
	}
}

func (s *Usecase) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return s.ins.Tracer("notification.usecase").Start(ctx, name)
}
