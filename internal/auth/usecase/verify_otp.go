package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/shandysiswandi/otpgate/internal/auth/entity"
	"github.com/shandysiswandi/otpgate/internal/pkg/goerror"
)

type VerifyOTPInput struct {
	Email     string `validate:"required,email,max=254"`
	OTP       string `validate:"required,digits"`
	IPAddress string
	UserAgent string
}

type VerifyOTPOutput struct {
	User         entity.User
	AccessToken  string
	RefreshToken string
}

func (s *Usecase) VerifyOTP(ctx context.Context, in VerifyOTPInput) (*VerifyOTPOutput, error) {
	ctx, span := s.startSpan(ctx, "VerifyOTP")
	defer span.End()

	in.Email = entity.NormalizeEmail(in.Email)
	if err := s.validator.Validate(in); err != nil {
		return nil, goerror.NewInvalidInput(err)
	}
	if n := s.issuer.Length(); len(in.OTP) != n {
		return nil, goerror.NewInvalidInput(nil, "otp", fmt.Sprintf("otp must be exactly %d digits", n))
	}

	audit := AuditEvent{
		Email:     in.Email,
		IPAddress: in.IPAddress,
		UserAgent: in.UserAgent,
	}

	lock, err := s.lockout.IsLocked(ctx, in.Email)
	if err != nil {
		slog.ErrorContext(ctx, "failed to check lockout", "email", in.Email, "error", err)
		return nil, goerror.NewServer(err)
	}
	if lock.Locked {
		slog.WarnContext(ctx, "verification rejected, identity locked", "email", in.Email)
		audit.Event = entity.AuditEventLocked
		audit.Metadata = map[string]any{"attempt_number": "locked"}
		s.emitAudit(ctx, audit)
		return nil, lockedError(lock.UnlockETASeconds())
	}

	ok, err := s.verifier.Verify(ctx, in.Email, in.OTP)
	if err != nil {
		slog.ErrorContext(ctx, "failed to verify otp", "email", in.Email, "error", err)
		return nil, goerror.NewServer(err)
	}

	if !ok {
		lock, err := s.lockout.RecordFailure(ctx, in.Email)
		if err != nil {
			slog.ErrorContext(ctx, "failed to record otp failure", "email", in.Email, "error", err)
			return nil, goerror.NewServer(err)
		}

		if lock.Locked {
			slog.WarnContext(ctx, "identity locked after failed attempts", "email", in.Email)
			audit.Event = entity.AuditEventLocked
			audit.Metadata = map[string]any{"reason": "Max failed attempts exceeded"}
			s.emitAudit(ctx, audit)
			return nil, lockedError(lock.UnlockETASeconds())
		}

		slog.WarnContext(ctx, "invalid otp presented", "email", in.Email)
		audit.Event = entity.AuditEventFailed
		s.emitAudit(ctx, audit)
		return nil, goerror.NewBusinessWithData("Invalid OTP", goerror.CodeInvalidInput, map[string]any{})
	}

	if err := s.lockout.Clear(ctx, in.Email); err != nil {
		// the code is already consumed, so the caller still gets a session
		slog.ErrorContext(ctx, "failed to clear lockout counter", "email", in.Email, "error", err)
	}

	user, created, err := s.repoDB.GetOrCreateUser(ctx, entity.NewUser{ID: s.uid.Generate(), Email: in.Email})
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo get or create user", "email", in.Email, "error", err)
		return nil, goerror.NewServer(err)
	}

	acToken, refToken, err := s.issueSession(ctx, user)
	if err != nil {
		return nil, err
	}

	audit.Event = entity.AuditEventVerified
	audit.Metadata = map[string]any{
		"user_id":      strconv.FormatInt(user.ID, 10),
		"user_created": created,
	}
	s.emitAudit(ctx, audit)

	return &VerifyOTPOutput{
		User:         *user,
		AccessToken:  acToken,
		RefreshToken: refToken,
	}, nil
}

func (s *Usecase) issueSession(ctx context.Context, user *entity.User) (string, string, error) {
	acToken, err := s.jwt.Generate(user.ID, user.Email)
	if err != nil {
		slog.ErrorContext(ctx, "failed to generate access jwt token", "user_id", user.ID, "error", err)
		return "", "", goerror.NewServer(err)
	}

	refToken := s.oid.Generate()
	refTokenHash, err := s.hmac.Hash(refToken)
	if err != nil {
		slog.ErrorContext(ctx, "failed to hash refresh token", "user_id", user.ID, "error", err)
		return "", "", goerror.NewServer(err)
	}

	if err := s.repoDB.CreateRefreshToken(ctx, entity.RefreshToken{
		ID:        s.uid.Generate(),
		UserID:    user.ID,
		Token:     string(refTokenHash),
		ExpiresAt: s.clock.Now().Add(s.cfg.GetDay("modules.auth.refresh_token_ttl_days")),
	}); err != nil {
		slog.ErrorContext(ctx, "failed to repo create refresh token", "user_id", user.ID, "error", err)
		return "", "", goerror.NewServer(err)
	}

	return acToken, refToken, nil
}

func lockedError(unlockETA int64) error {
	return goerror.NewBusinessWithData("Account locked due to too many failed attempts",
		goerror.CodeLocked, map[string]any{"unlock_eta_seconds": unlockETA})
}
