package db

import (
	"context"
	"errors"

	"github.com/shandysiswandi/otpgate/internal/auth/entity"
	"github.com/shandysiswandi/otpgate/internal/pkg/goerror"
)

const (
	queryInsertUser = `INSERT INTO users (id, email, is_active, date_joined)
VALUES ($1, $2, TRUE, NOW())
ON CONFLICT (email) DO NOTHING
RETURNING id, email, first_name, last_name, is_active, date_joined`

	querySelectUserByEmail = `SELECT id, email, first_name, last_name, is_active, date_joined
FROM users WHERE email = $1`
)

// GetOrCreateUser returns the user with the given email, inserting it first
// when it does not exist. The bool reports whether this call created the row.
func (s *DB) GetOrCreateUser(ctx context.Context, user entity.NewUser) (_ *entity.User, _ bool, err error) {
	ctx, span := s.startSpan(ctx, "GetOrCreateUser")
	defer func() { s.endSpan(span, err) }()

	var out entity.User
	err = s.conn.QueryRow(ctx, queryInsertUser, user.ID, user.Email).
		Scan(&out.ID, &out.Email, &out.FirstName, &out.LastName, &out.IsActive, &out.DateJoined)
	if err == nil {
		return &out, true, nil
	}
	if err = s.mapError(err); !errors.Is(err, goerror.ErrNotFound) {
		return nil, false, err
	}

	// conflict: someone created it first
	err = s.conn.QueryRow(ctx, querySelectUserByEmail, user.Email).
		Scan(&out.ID, &out.Email, &out.FirstName, &out.LastName, &out.IsActive, &out.DateJoined)
	if err != nil {
		return nil, false, s.mapError(err)
	}

	return &out, false, nil
}
