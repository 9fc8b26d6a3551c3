package entity

import "time"

type User struct {
	ID         int64
	Email      string
	FirstName  string
	LastName   string
	IsActive   bool
	DateJoined time.Time
}

type NewUser struct {
	ID    int64
	Email string
}

type RefreshToken struct {
	ID        int64
	UserID    int64
	Token     string // hmac of the opaque token
	ExpiresAt time.Time
}

type RotateRefreshToken struct {
	NewID        int64
	OldID        int64
	UserID       int64
	NewToken     string
	NewExpiresAt time.Time
}

// UserRefreshToken joins a stored refresh token with its owner.
type UserRefreshToken struct {
	RefreshID                int64
	RefreshExpiresAt         time.Time
	RefreshRevoked           bool
	RefreshReplacedByTokenID *int64
	UserID                   int64
	UserEmail                string
	UserIsActive             bool
}
