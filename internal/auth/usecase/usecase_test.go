package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shandysiswandi/otpgate/internal/auth/entity"
	"github.com/shandysiswandi/otpgate/internal/auth/guard"
	"github.com/shandysiswandi/otpgate/internal/pkg/clock"
	"github.com/shandysiswandi/otpgate/internal/pkg/config"
	"github.com/shandysiswandi/otpgate/internal/pkg/goerror"
	"github.com/shandysiswandi/otpgate/internal/pkg/goroutine"
	"github.com/shandysiswandi/otpgate/internal/pkg/hash"
	"github.com/shandysiswandi/otpgate/internal/pkg/instrument"
	"github.com/shandysiswandi/otpgate/internal/pkg/jwt"
	"github.com/shandysiswandi/otpgate/internal/pkg/kvstore"
	"github.com/shandysiswandi/otpgate/internal/pkg/validator"
	"go.uber.org/atomic"
)

type fakeRepoDB struct {
	mu      sync.Mutex
	users   map[string]*entity.User
	tokens  map[string]*entity.RefreshToken
	revoked map[int64]bool
	rotated map[int64]int64
	err     error
}

func newFakeRepoDB() *fakeRepoDB {
	return &fakeRepoDB{
		users:   map[string]*entity.User{},
		tokens:  map[string]*entity.RefreshToken{},
		revoked: map[int64]bool{},
		rotated: map[int64]int64{},
	}
}

func (f *fakeRepoDB) GetOrCreateUser(_ context.Context, u entity.NewUser) (*entity.User, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.err != nil {
		return nil, false, f.err
	}
	if got, ok := f.users[u.Email]; ok {
		cp := *got
		return &cp, false, nil
	}
	user := &entity.User{ID: u.ID, Email: u.Email, IsActive: true, DateJoined: time.Now()}
	f.users[u.Email] = user
	cp := *user
	return &cp, true, nil
}

func (f *fakeRepoDB) GetUserRefreshToken(_ context.Context, token string) (*entity.UserRefreshToken, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	rt, ok := f.tokens[token]
	if !ok {
		return nil, goerror.ErrNotFound
	}

	out := &entity.UserRefreshToken{
		RefreshID:        rt.ID,
		RefreshExpiresAt: rt.ExpiresAt,
		RefreshRevoked:   f.revoked[rt.ID],
		UserID:           rt.UserID,
		UserIsActive:     true,
	}
	if next, ok := f.rotated[rt.ID]; ok {
		out.RefreshReplacedByTokenID = &next
	}
	for _, u := range f.users {
		if u.ID == rt.UserID {
			out.UserEmail = u.Email
			out.UserIsActive = u.IsActive
		}
	}
	return out, nil
}

func (f *fakeRepoDB) CreateRefreshToken(_ context.Context, in entity.RefreshToken) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.tokens[in.Token] = &in
	return nil
}

func (f *fakeRepoDB) RevokeAllRefreshToken(_ context.Context, userID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, rt := range f.tokens {
		if rt.UserID == userID {
			f.revoked[rt.ID] = true
		}
	}
	return nil
}

func (f *fakeRepoDB) RotateRefreshToken(_ context.Context, ro entity.RotateRefreshToken) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.revoked[ro.OldID] {
		return goerror.ErrNotFound
	}
	f.revoked[ro.OldID] = true
	f.rotated[ro.OldID] = ro.NewID
	f.tokens[ro.NewToken] = &entity.RefreshToken{ID: ro.NewID, UserID: ro.UserID, Token: ro.NewToken, ExpiresAt: ro.NewExpiresAt}
	return nil
}

type fakeMessaging struct {
	mu         sync.Mutex
	audits     []AuditEvent
	deliveries []OTPDeliveryEvent
}

func (f *fakeMessaging) PublishAuditEvent(_ context.Context, msg AuditEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.audits = append(f.audits, msg)
	return nil
}

func (f *fakeMessaging) PublishOTPDelivery(_ context.Context, msg OTPDeliveryEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deliveries = append(f.deliveries, msg)
	return nil
}

type stubJWT struct{}

func (stubJWT) Generate(uid int64, _ string) (string, error) { return fmt.Sprintf("access-%d", uid), nil }

func (stubJWT) Verify(string) (jwt.Claims, error) { return jwt.Claims{}, errors.New("not implemented") }

type seqID struct{ n *atomic.Int64 }

func (s seqID) Generate() int64 { return s.n.Inc() }

type seqOID struct{ n *atomic.Int64 }

func (s seqOID) Generate() string { return fmt.Sprintf("refresh-%d", s.n.Inc()) }

type harness struct {
	uc    *Usecase
	db    *fakeRepoDB
	msg   *fakeMessaging
	store kvstore.Store
	clock *clock.Manual
	gm    *goroutine.Manager
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	cfg, err := config.NewViperFromBytes("yaml", []byte("modules:\n  auth:\n    refresh_token_ttl_days: 7\n"))
	if err != nil {
		t.Fatalf("NewViperFromBytes() error = %v", err)
	}
	v, err := validator.NewV10Validator()
	if err != nil {
		t.Fatalf("NewV10Validator() error = %v", err)
	}

	mc := clock.NewManual(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	store := kvstore.NewMemory(mc)
	issuer, err := guard.NewIssuer(store, 6, 300*time.Second)
	if err != nil {
		t.Fatalf("NewIssuer() error = %v", err)
	}

	h := &harness{
		db:    newFakeRepoDB(),
		msg:   &fakeMessaging{},
		store: store,
		clock: mc,
		gm:    goroutine.NewManager(1000),
	}
	h.uc = New(Dependency{
		RepoDB:        h.db,
		RepoMessaging: h.msg,
		Issuer:        issuer,
		Verifier:      guard.NewVerifier(store),
		RateLimiter: guard.NewRateLimiter(store, map[guard.Dimension]guard.Rule{
			guard.DimensionEmail: {Limit: 3, Window: 600 * time.Second},
			guard.DimensionAddr:  {Limit: 10, Window: 3600 * time.Second},
		}),
		Lockout:    guard.NewLockout(store, 5, 900*time.Second),
		Validator:  v,
		Config:     cfg,
		HMAC:       hash.NewHMACSHA256("test-secret"),
		UID:        seqID{n: atomic.NewInt64(0)},
		OID:        seqOID{n: atomic.NewInt64(0)},
		Clock:      mc,
		JWT:        stubJWT{},
		Instrument: instrument.NewNoop(),
		Goroutine:  h.gm,
	})

	return h
}

// flush waits for async publishes. The manager refuses new work afterwards.
func (h *harness) flush(t *testing.T) {
	t.Helper()
	if err := h.gm.Wait(); err != nil {
		t.Fatalf("goroutine Wait() error = %v", err)
	}
}

// audits returns published audit events of kind ev whose metadata has key set to val.
// Publishing is async, so order is not preserved.
func (h *harness) audits(ev entity.AuditEvent, key string, val any) []AuditEvent {
	var out []AuditEvent
	for _, a := range h.msg.audits {
		if a.Event != ev {
			continue
		}
		if key != "" && a.Metadata[key] != val {
			continue
		}
		out = append(out, a)
	}
	return out
}

func (h *harness) code(t *testing.T, email string) string {
	t.Helper()
	code, err := h.store.Get(context.Background(), "otp:"+email)
	if err != nil {
		t.Fatalf("stored otp for %s: %v", email, err)
	}
	return code
}

func wrongCode(code string) string {
	if code == "000000" {
		return "111111"
	}
	return "000000"
}

func assertBusiness(t *testing.T, err error, status int, msg string) *goerror.Error {
	t.Helper()

	var gerr *goerror.Error
	if !errors.As(err, &gerr) {
		t.Fatalf("expected *goerror.Error, got %v", err)
	}
	if gerr.StatusCode() != status {
		t.Fatalf("status = %d, want %d (%s)", gerr.StatusCode(), status, gerr.Msg())
	}
	if msg != "" && gerr.Msg() != msg {
		t.Fatalf("msg = %q, want %q", gerr.Msg(), msg)
	}
	return gerr
}

// invalidFields returns the per-field messages carried by a validation error.
func invalidFields(t *testing.T, err error) map[string]string {
	t.Helper()

	var verr validator.V10ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected validation error, got %v", err)
	}
	return verr.Values()
}
