package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/shandysiswandi/otpgate/internal/auth/entity"
	"github.com/shandysiswandi/otpgate/internal/auth/guard"
	"github.com/shandysiswandi/otpgate/internal/pkg/clock"
	"github.com/shandysiswandi/otpgate/internal/pkg/config"
	"github.com/shandysiswandi/otpgate/internal/pkg/goroutine"
	"github.com/shandysiswandi/otpgate/internal/pkg/hash"
	"github.com/shandysiswandi/otpgate/internal/pkg/instrument"
	"github.com/shandysiswandi/otpgate/internal/pkg/jwt"
	"github.com/shandysiswandi/otpgate/internal/pkg/uid"
	"github.com/shandysiswandi/otpgate/internal/pkg/validator"
	"go.opentelemetry.io/otel/trace"
)

type AuditEvent struct {
	Event     entity.AuditEvent
	Email     string
	IPAddress string
	UserAgent string
	Metadata  map[string]any
}

type OTPDeliveryEvent struct {
	Email         string
	Code          string
	ExpirySeconds int64
}

type repoMessaging interface {
	PublishAuditEvent(ctx context.Context, msg AuditEvent) error
	PublishOTPDelivery(ctx context.Context, msg OTPDeliveryEvent) error
}

type repoDB interface {
	GetOrCreateUser(ctx context.Context, user entity.NewUser) (*entity.User, bool, error)
	GetUserRefreshToken(ctx context.Context, token string) (*entity.UserRefreshToken, error)

	CreateRefreshToken(ctx context.Context, in entity.RefreshToken) error
	RevokeAllRefreshToken(ctx context.Context, userID int64) error
	RotateRefreshToken(ctx context.Context, ro entity.RotateRefreshToken) error
}

type otpIssuer interface {
	Issue(ctx context.Context, identity string) (string, error)
	Length() int
	TTL() time.Duration
}

type otpVerifier interface {
	Verify(ctx context.Context, identity, code string) (bool, error)
}

type rateLimiter interface {
	CheckAndIncrement(ctx context.Context, d guard.Dimension, key string) (guard.Decision, error)
}

type lockout interface {
	IsLocked(ctx context.Context, identity string) (guard.LockState, error)
	RecordFailure(ctx context.Context, identity string) (guard.LockState, error)
	Clear(ctx context.Context, identity string) error
}

type Usecase struct {
	repoDB        repoDB
	repoMessaging repoMessaging
	issuer        otpIssuer
	verifier      otpVerifier
	limiter       rateLimiter
	lockout       lockout
	validator     validator.Validator
	cfg           config.Config
	hmac          hash.Hash
	uid           uid.NumberID
	oid           uid.StringID
	clock         clock.Clocker
	jwt           jwt.JWT
	ins           instrument.Instrumentation
	goroutine     *goroutine.Manager
}

type Dependency struct {
	RepoDB        repoDB
	RepoMessaging repoMessaging
	Issuer        otpIssuer
	Verifier      otpVerifier
	RateLimiter   rateLimiter
	Lockout       lockout
	Validator     validator.Validator
	Config        config.Config
	HMAC          hash.Hash
	UID           uid.NumberID
	OID           uid.StringID
	Clock         clock.Clocker
	JWT           jwt.JWT
	Instrument    instrument.Instrumentation
	Goroutine     *goroutine.Manager
}

func New(dep Dependency) *Usecase {
	return &Usecase{
		repoDB:        dep.RepoDB,
		repoMessaging: dep.RepoMessaging,
		issuer:        dep.Issuer,
		verifier:      dep.Verifier,
		limiter:       dep.RateLimiter,
		lockout:       dep.Lockout,
		validator:     dep.Validator,
		cfg:           dep.Config,
		hmac:          dep.HMAC,
		uid:           dep.UID,
		oid:           dep.OID,
		clock:         dep.Clock,
		jwt:           dep.JWT,
		ins:           dep.Instrument,
		goroutine:     dep.Goroutine,
	}
}

func (s *Usecase) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return s.ins.Tracer("auth.usecase").Start(ctx, name)
}

// emitAudit hands the event to the goroutine manager so the caller never waits
// on the broker.
func (s *Usecase) emitAudit(ctx context.Context, ev AuditEvent) {
	if ev.Metadata == nil {
		ev.Metadata = map[string]any{}
	}

	s.goroutine.Go(context.WithoutCancel(ctx), func(ctx context.Context) error {
		if err := s.repoMessaging.PublishAuditEvent(ctx, ev); err != nil {
			slog.ErrorContext(ctx, "failed to publish audit event", "event", ev.Event, "error", err)
		}
		return nil
	})
}

func (s *Usecase) scheduleDelivery(ctx context.Context, ev OTPDeliveryEvent) {
	s.goroutine.Go(context.WithoutCancel(ctx), func(ctx context.Context) error {
		if err := s.repoMessaging.PublishOTPDelivery(ctx, ev); err != nil {
			slog.ErrorContext(ctx, "failed to publish otp delivery", "error", err)
		}
		return nil
	})
}
