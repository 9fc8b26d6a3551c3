package jwt

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// minSecretLen is the HS512 block size; shorter keys are rejected.
const minSecretLen = 64

var (
	ErrInvalidSigningMethod = errors.New("jwt: unexpected signing method")
	ErrSigningKeyTooShort   = errors.New("jwt: HS512 secret must be at least 64 bytes")
	ErrTokenExpired         = errors.New("jwt: access token expired")
	ErrInvalidToken         = errors.New("jwt: invalid access token")
)

// JWT issues and checks access tokens handed out after a successful OTP
// verification or refresh.
type JWT interface {
	Generate(userID int64, email string) (string, error)
	Verify(token string) (Claims, error)
}

// Config carries the signing inputs. Clock and UUID are required.
type Config struct {
	Secret    []byte
	Issuer    string
	Audiences []string
	TTL       time.Duration
	Clock     interface{ Now() time.Time }
	UUID      interface{ Generate() string }
}

// Claims is the access token payload.
type Claims struct {
	jwt.RegisteredClaims

	UserID    int64  `json:"user_id,string"`
	UserEmail string `json:"user_email"`
}

type claimsKey struct{}

// SetAuth attaches verified claims to ctx.
func SetAuth(ctx context.Context, clm Claims) context.Context {
	return context.WithValue(ctx, claimsKey{}, clm)
}

// GetAuth returns the claims attached by SetAuth, or nil for anonymous requests.
func GetAuth(ctx context.Context) *Claims {
	if clm, ok := ctx.Value(claimsKey{}).(Claims); ok {
		return &clm
	}
	return nil
}
