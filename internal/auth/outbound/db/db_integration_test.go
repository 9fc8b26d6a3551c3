//go:build integration

package db

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shandysiswandi/otpgate/internal/auth/entity"
	"github.com/shandysiswandi/otpgate/internal/pkg/goerror"
	"github.com/shandysiswandi/otpgate/internal/pkg/instrument"
	"github.com/shandysiswandi/otpgate/internal/pkg/testutil/containers"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()

	pg := containers.GetManager().GetPostgres(t)
	if err := pg.TruncateAll(context.Background()); err != nil {
		t.Fatalf("TruncateAll() error = %v", err)
	}
	return NewDB(pg.Pool, instrument.NewNoop())
}

func TestDB_GetOrCreateUser(t *testing.T) {
	s := newTestDB(t)
	ctx := context.Background()

	// Act
	first, created, err := s.GetOrCreateUser(ctx, entity.NewUser{ID: 1, Email: "a@x.com"})
	if err != nil {
		t.Fatalf("GetOrCreateUser() error = %v", err)
	}
	second, createdAgain, err := s.GetOrCreateUser(ctx, entity.NewUser{ID: 2, Email: "a@x.com"})
	if err != nil {
		t.Fatalf("GetOrCreateUser() error = %v", err)
	}

	// Assert
	if !created || createdAgain {
		t.Fatalf("created = %v, createdAgain = %v", created, createdAgain)
	}
	if first.ID != 1 || second.ID != 1 || !second.IsActive {
		t.Fatalf("first = %+v, second = %+v", first, second)
	}
}

func TestDB_RefreshTokenRotation(t *testing.T) {
	s := newTestDB(t)
	ctx := context.Background()
	exp := time.Now().Add(time.Hour)

	if _, _, err := s.GetOrCreateUser(ctx, entity.NewUser{ID: 10, Email: "b@x.com"}); err != nil {
		t.Fatalf("GetOrCreateUser() error = %v", err)
	}
	if err := s.CreateRefreshToken(ctx, entity.RefreshToken{ID: 100, UserID: 10, Token: "h1", ExpiresAt: exp}); err != nil {
		t.Fatalf("CreateRefreshToken() error = %v", err)
	}

	err := s.RotateRefreshToken(ctx, entity.RotateRefreshToken{NewID: 101, OldID: 100, UserID: 10, NewToken: "h2", NewExpiresAt: exp})
	if err != nil {
		t.Fatalf("RotateRefreshToken() error = %v", err)
	}

	old, err := s.GetUserRefreshToken(ctx, "h1")
	if err != nil {
		t.Fatalf("GetUserRefreshToken() error = %v", err)
	}
	if !old.RefreshRevoked || old.RefreshReplacedByTokenID == nil || *old.RefreshReplacedByTokenID != 101 {
		t.Fatalf("old token = %+v", old)
	}
	if old.UserEmail != "b@x.com" || !old.UserIsActive {
		t.Fatalf("old token owner = %+v", old)
	}

	err = s.RotateRefreshToken(ctx, entity.RotateRefreshToken{NewID: 102, OldID: 100, UserID: 10, NewToken: "h3", NewExpiresAt: exp})
	if !errors.Is(err, goerror.ErrNotFound) {
		t.Fatalf("second rotation error = %v, want ErrNotFound", err)
	}

	if err := s.RevokeAllRefreshToken(ctx, 10); err != nil {
		t.Fatalf("RevokeAllRefreshToken() error = %v", err)
	}
	cur, err := s.GetUserRefreshToken(ctx, "h2")
	if err != nil || !cur.RefreshRevoked {
		t.Fatalf("current token = %+v, err = %v", cur, err)
	}

	if _, err := s.GetUserRefreshToken(ctx, "missing"); !errors.Is(err, goerror.ErrNotFound) {
		t.Fatalf("missing token error = %v", err)
	}
}
