package usecase

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/shandysiswandi/otpgate/internal/auth/entity"
)

func (h *harness) issue(t *testing.T, email string) string {
	t.Helper()
	if _, err := h.uc.RequestOTP(context.Background(), RequestOTPInput{Email: email, IPAddress: "10.0.0.1"}); err != nil {
		t.Fatalf("RequestOTP() error = %v", err)
	}
	return h.code(t, email)
}

func TestUsecase_VerifyOTP_Validation(t *testing.T) {
	tests := []struct {
		name  string
		in    VerifyOTPInput
		field string
	}{
		{name: "bad email", in: VerifyOTPInput{Email: "nope", OTP: "123456"}, field: "email"},
		{name: "missing otp", in: VerifyOTPInput{Email: "a@x.com"}, field: "otp"},
		{name: "non digit otp", in: VerifyOTPInput{Email: "a@x.com", OTP: "12a456"}, field: "otp"},
		{name: "short otp", in: VerifyOTPInput{Email: "a@x.com", OTP: "12345"}, field: "otp"},
		{name: "long otp", in: VerifyOTPInput{Email: "a@x.com", OTP: "1234567"}, field: "otp"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)

			_, err := h.uc.VerifyOTP(context.Background(), tt.in)

			assertBusiness(t, err, http.StatusBadRequest, "Invalid request")
			if fields := invalidFields(t, err); fields[tt.field] == "" {
				t.Fatalf("fields = %v, want key %q", fields, tt.field)
			}
		})
	}
}

func TestUsecase_VerifyOTP_Scenario(t *testing.T) {
	// Arrange
	h := newHarness(t)
	ctx := context.Background()
	code := h.issue(t, "a@x.com")

	// Act & Assert: four wrong codes are rejected without locking
	for i := range 4 {
		_, err := h.uc.VerifyOTP(ctx, VerifyOTPInput{Email: "a@x.com", OTP: wrongCode(code)})
		gerr := assertBusiness(t, err, http.StatusBadRequest, "Invalid OTP")
		if len(gerr.Data()) != 0 {
			t.Fatalf("attempt %d data = %v", i+1, gerr.Data())
		}
	}

	// the first code is still consumable
	out, err := h.uc.VerifyOTP(ctx, VerifyOTPInput{Email: "A@x.com", OTP: code, IPAddress: "10.0.0.1"})
	if err != nil {
		t.Fatalf("VerifyOTP() error = %v", err)
	}
	if out.User.Email != "a@x.com" || out.AccessToken == "" || out.RefreshToken == "" {
		t.Fatalf("unexpected output: %+v", out)
	}
	if _, err := h.store.Get(ctx, "failed_otp:a@x.com"); err == nil {
		t.Fatal("failure counter must be cleared after success")
	}

	// one-time use
	_, err = h.uc.VerifyOTP(ctx, VerifyOTPInput{Email: "a@x.com", OTP: code})
	assertBusiness(t, err, http.StatusBadRequest, "Invalid OTP")

	h.flush(t)

	if got := h.audits(entity.AuditEventFailed, "", nil); len(got) != 5 {
		t.Fatalf("failed audits = %d, want 5", len(got))
	}
	verified := h.audits(entity.AuditEventVerified, "user_created", true)
	if len(verified) != 1 || verified[0].Metadata["user_id"] == "" {
		t.Fatalf("verified audits = %+v", verified)
	}
}

func TestUsecase_VerifyOTP_ExistingUserNotCreated(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	first := h.issue(t, "a@x.com")
	out1, err := h.uc.VerifyOTP(ctx, VerifyOTPInput{Email: "a@x.com", OTP: first})
	if err != nil {
		t.Fatalf("first VerifyOTP() error = %v", err)
	}
	second := h.issue(t, "a@x.com")
	out2, err := h.uc.VerifyOTP(ctx, VerifyOTPInput{Email: "a@x.com", OTP: second})
	if err != nil {
		t.Fatalf("second VerifyOTP() error = %v", err)
	}

	if out1.User.ID != out2.User.ID {
		t.Fatalf("user id changed: %d != %d", out1.User.ID, out2.User.ID)
	}

	h.flush(t)
	if got := h.audits(entity.AuditEventVerified, "user_created", false); len(got) != 1 {
		t.Fatalf("verified audits = %+v", h.msg.audits)
	}
}

func TestUsecase_VerifyOTP_Lockout(t *testing.T) {
	// Arrange
	h := newHarness(t)
	ctx := context.Background()
	code := h.issue(t, "a@x.com")

	for range 4 {
		_, _ = h.uc.VerifyOTP(ctx, VerifyOTPInput{Email: "a@x.com", OTP: wrongCode(code)})
	}

	// Act: the 5th failure locks
	_, err := h.uc.VerifyOTP(ctx, VerifyOTPInput{Email: "a@x.com", OTP: wrongCode(code)})

	// Assert
	gerr := assertBusiness(t, err, http.StatusLocked, "Account locked due to too many failed attempts")
	if s, _ := gerr.Data()["unlock_eta_seconds"].(int64); s <= 0 || s > 900 {
		t.Fatalf("unlock_eta_seconds = %v", gerr.Data()["unlock_eta_seconds"])
	}

	// 6th call with the correct code is rejected without consuming it
	_, err = h.uc.VerifyOTP(ctx, VerifyOTPInput{Email: "a@x.com", OTP: code})
	assertBusiness(t, err, http.StatusLocked, "")
	if got := h.code(t, "a@x.com"); got != code {
		t.Fatal("locked check must not consume the code")
	}
	if raw, _ := h.store.Get(ctx, "failed_otp:a@x.com"); raw != "5" {
		t.Fatalf("failure counter = %q, want 5", raw)
	}

	h.flush(t)
	if got := h.audits(entity.AuditEventLocked, "reason", "Max failed attempts exceeded"); len(got) != 1 {
		t.Fatalf("lock audits = %+v", h.msg.audits)
	}
	if got := h.audits(entity.AuditEventLocked, "attempt_number", "locked"); len(got) != 1 {
		t.Fatalf("already locked audits = %+v", h.msg.audits)
	}
	if got := h.audits(entity.AuditEventFailed, "", nil); len(got) != 4 {
		t.Fatalf("failed audits = %d, want 4", len(got))
	}
}

func TestUsecase_VerifyOTP_UnlocksAfterWindow(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	code := h.issue(t, "a@x.com")

	for range 5 {
		_, _ = h.uc.VerifyOTP(ctx, VerifyOTPInput{Email: "a@x.com", OTP: wrongCode(code)})
	}

	// the code expires before the lock does, so ask for a new one
	h.clock.Advance(901 * time.Second)
	fresh := h.issue(t, "a@x.com")

	if _, err := h.uc.VerifyOTP(ctx, VerifyOTPInput{Email: "a@x.com", OTP: fresh}); err != nil {
		t.Fatalf("VerifyOTP() after lock window error = %v", err)
	}
}

func TestUsecase_VerifyOTP_SuccessResetsFailures(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	code := h.issue(t, "a@x.com")
	for range 4 {
		_, _ = h.uc.VerifyOTP(ctx, VerifyOTPInput{Email: "a@x.com", OTP: wrongCode(code)})
	}
	if _, err := h.uc.VerifyOTP(ctx, VerifyOTPInput{Email: "a@x.com", OTP: code}); err != nil {
		t.Fatalf("VerifyOTP() error = %v", err)
	}

	code = h.issue(t, "a@x.com")
	for range 4 {
		_, err := h.uc.VerifyOTP(ctx, VerifyOTPInput{Email: "a@x.com", OTP: wrongCode(code)})
		assertBusiness(t, err, http.StatusBadRequest, "Invalid OTP")
	}
}

func TestUsecase_VerifyOTP_RepoError(t *testing.T) {
	h := newHarness(t)
	code := h.issue(t, "a@x.com")
	h.db.err = context.DeadlineExceeded

	_, err := h.uc.VerifyOTP(context.Background(), VerifyOTPInput{Email: "a@x.com", OTP: code})

	assertBusiness(t, err, http.StatusInternalServerError, "")
}
