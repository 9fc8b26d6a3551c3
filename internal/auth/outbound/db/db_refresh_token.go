package db

import (
	"context"
	"errors"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/shandysiswandi/otpgate/internal/auth/entity"
	"github.com/shandysiswandi/otpgate/internal/pkg/goerror"
)

const (
	queryInsertRefreshToken = `INSERT INTO refresh_tokens (id, user_id, token, expires_at)
VALUES ($1, $2, $3, $4)`

	querySelectUserRefreshToken = `SELECT rt.id, rt.expires_at, rt.revoked, rt.replaced_by_token_id,
       u.id, u.email, u.is_active
FROM refresh_tokens rt
JOIN users u ON u.id = rt.user_id
WHERE rt.token = $1`

	queryRevokeAllRefreshToken = `UPDATE refresh_tokens SET revoked = TRUE
WHERE user_id = $1 AND revoked = FALSE`

	queryReplaceRefreshToken = `UPDATE refresh_tokens SET revoked = TRUE, replaced_by_token_id = $1
WHERE id = $2 AND revoked = FALSE`
)

func (s *DB) CreateRefreshToken(ctx context.Context, in entity.RefreshToken) (err error) {
	ctx, span := s.startSpan(ctx, "CreateRefreshToken")
	defer func() { s.endSpan(span, err) }()

	_, err = s.conn.Exec(ctx, queryInsertRefreshToken, in.ID, in.UserID, in.Token, in.ExpiresAt)
	return s.mapError(err)
}

func (s *DB) GetUserRefreshToken(ctx context.Context, token string) (_ *entity.UserRefreshToken, err error) {
	ctx, span := s.startSpan(ctx, "GetUserRefreshToken")
	defer func() { s.endSpan(span, err) }()

	var out entity.UserRefreshToken
	err = s.conn.QueryRow(ctx, querySelectUserRefreshToken, token).Scan(
		&out.RefreshID,
		&out.RefreshExpiresAt,
		&out.RefreshRevoked,
		&out.RefreshReplacedByTokenID,
		&out.UserID,
		&out.UserEmail,
		&out.UserIsActive,
	)
	if err != nil {
		return nil, s.mapError(err)
	}

	return &out, nil
}

func (s *DB) RevokeAllRefreshToken(ctx context.Context, userID int64) (err error) {
	ctx, span := s.startSpan(ctx, "RevokeAllRefreshToken")
	defer func() { s.endSpan(span, err) }()

	_, err = s.conn.Exec(ctx, queryRevokeAllRefreshToken, userID)
	return s.mapError(err)
}

// RotateRefreshToken inserts the new token and marks the old one as replaced
// in one transaction. ErrNotFound means the old token was already revoked.
func (s *DB) RotateRefreshToken(ctx context.Context, ro entity.RotateRefreshToken) (err error) {
	ctx, span := s.startSpan(ctx, "RotateRefreshToken")
	defer func() { s.endSpan(span, err) }()

	tx, err := s.conn.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if rErr := tx.Rollback(ctx); rErr != nil && !errors.Is(rErr, pgx.ErrTxClosed) {
			slog.ErrorContext(ctx, "failed to rolback", "error", rErr)
		}
	}()

	if _, err = tx.Exec(ctx, queryInsertRefreshToken, ro.NewID, ro.UserID, ro.NewToken, ro.NewExpiresAt); err != nil {
		return s.mapError(err)
	}

	tag, err := tx.Exec(ctx, queryReplaceRefreshToken, ro.NewID, ro.OldID)
	if err != nil {
		return s.mapError(err)
	}
	if tag.RowsAffected() == 0 {
		err = goerror.ErrNotFound
		return err
	}

	if err = tx.Commit(ctx); err != nil {
		return s.mapError(err)
	}

	return nil
}
