package usecase

import (
	"context"
	"log/slog"

	"github.com/shandysiswandi/otpgate/internal/auth/entity"
	"github.com/shandysiswandi/otpgate/internal/auth/guard"
	"github.com/shandysiswandi/otpgate/internal/pkg/goerror"
)

type RequestOTPInput struct {
	Email     string `validate:"required,email,max=254"`
	IPAddress string
	UserAgent string
}

type RequestOTPOutput struct {
	Email         string
	ExpirySeconds int64
}

// RequestOTP runs the email and address rate limits, then issues a code and
// schedules its delivery. The response is the same whether or not the email
// belongs to a known user.
func (s *Usecase) RequestOTP(ctx context.Context, in RequestOTPInput) (*RequestOTPOutput, error) {
	ctx, span := s.startSpan(ctx, "RequestOTP")
	defer span.End()

	in.Email = entity.NormalizeEmail(in.Email)
	if err := s.validator.Validate(in); err != nil {
		return nil, goerror.NewInvalidInput(err)
	}

	audit := AuditEvent{
		Event:     entity.AuditEventRequested,
		Email:     in.Email,
		IPAddress: in.IPAddress,
		UserAgent: in.UserAgent,
	}

	dec, err := s.limiter.CheckAndIncrement(ctx, guard.DimensionEmail, in.Email)
	if err != nil {
		slog.ErrorContext(ctx, "failed to check email rate limit", "email", in.Email, "error", err)
		return nil, goerror.NewServer(err)
	}
	if dec.Limited {
		slog.WarnContext(ctx, "email rate limit exceeded", "email", in.Email)
		audit.Metadata = map[string]any{"reason": "Email rate limit exceeded"}
		s.emitAudit(ctx, audit)
		return nil, goerror.NewBusinessWithData("Too many OTP requests. Please try again later.",
			goerror.CodeTooManyRequest, map[string]any{"retry_after_seconds": dec.RetryAfterSeconds()})
	}

	if in.IPAddress == "" {
		slog.WarnContext(ctx, "source address unknown, address rate limit skipped", "email", in.Email)
	} else {
		dec, err = s.limiter.CheckAndIncrement(ctx, guard.DimensionAddr, in.IPAddress)
		if err != nil {
			slog.ErrorContext(ctx, "failed to check address rate limit", "ip_address", in.IPAddress, "error", err)
			return nil, goerror.NewServer(err)
		}
		if dec.Limited {
			slog.WarnContext(ctx, "address rate limit exceeded", "ip_address", in.IPAddress)
			audit.Metadata = map[string]any{"reason": "IP rate limit exceeded"}
			s.emitAudit(ctx, audit)
			return nil, goerror.NewBusinessWithData("Too many OTP requests from this IP. Please try again later.",
				goerror.CodeTooManyRequest, map[string]any{"retry_after_seconds": dec.RetryAfterSeconds()})
		}
	}

	code, err := s.issuer.Issue(ctx, in.Email)
	if err != nil {
		slog.ErrorContext(ctx, "failed to issue otp", "email", in.Email, "error", err)
		return nil, goerror.NewServer(err)
	}

	expiry := int64(s.issuer.TTL().Seconds())

	s.emitAudit(ctx, audit)
	s.scheduleDelivery(ctx, OTPDeliveryEvent{
		Email:         in.Email,
		Code:          code,
		ExpirySeconds: expiry,
	})

	return &RequestOTPOutput{
		Email:         in.Email,
		ExpirySeconds: expiry,
	}, nil
}
