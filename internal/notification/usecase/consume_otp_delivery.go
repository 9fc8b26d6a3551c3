package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/sethvargo/go-retry"
	"github.com/shandysiswandi/otpgate/internal/pkg/idempotency"
)

type ConsumeOTPDeliveryInput struct {
	EventID       string `validate:"required"`
	Email         string `validate:"required,email"`
	Code          string `validate:"required,digits"`
	ExpirySeconds int64  `validate:"gt=0"`
}

// ConsumeOTPDelivery emails a code once per event id. Send failures are
// retried with backoff, then logged and dropped; the error is never handed
// back to the broker.
func (s *Usecase) ConsumeOTPDelivery(ctx context.Context, in ConsumeOTPDeliveryInput) error {
	ctx, span := s.startSpan(ctx, "ConsumeOTPDelivery")
	defer span.End()

	if err := s.validator.Validate(in); err != nil {
		slog.ErrorContext(ctx, "invalid otp delivery event, dropped", "event_id", in.EventID, "error", err)
		return nil
	}

	err := s.idemp.Exec(ctx, "otp_delivery:"+in.EventID, func(ctx context.Context) error {
		b := retry.WithMaxRetries(deliveryAttempts-1, s.backoff())
		return retry.Do(ctx, b, func(ctx context.Context) error {
			if err := s.repoMail.SendOTP(ctx, in.Email, in.Code, time.Duration(in.ExpirySeconds)*time.Second); err != nil {
				slog.WarnContext(ctx, "failed to send otp email, will retry", "event_id", in.EventID, "error", err)
				return retry.RetryableError(err)
			}
			return nil
		})
	})
	if idempotency.IsDuplicate(err) {
		slog.InfoContext(ctx, "otp delivery already handled", "event_id", in.EventID, "error", err)
		return nil
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to deliver otp email, dropped", "event_id", in.EventID, "email", in.Email, "error", err)
		return nil
	}

	slog.InfoContext(ctx, "otp email delivered", "event_id", in.EventID, "email", in.Email)
	return nil
}
