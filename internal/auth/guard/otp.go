package guard

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"math/big"
	"time"

	"github.com/shandysiswandi/otpgate/internal/pkg/kvstore"
)

// ErrInvalidLength is returned when the configured code length is out of range.
var ErrInvalidLength = errors.New("guard: otp length must be between 4 and 10")

// Issuer generates numeric codes and stores them per identity.
type Issuer struct {
	store  kvstore.Store
	length int
	ttl    time.Duration
	rand   io.Reader
	max    *big.Int
}

// NewIssuer returns an Issuer producing codes of length digits that expire after ttl.
func NewIssuer(store kvstore.Store, length int, ttl time.Duration) (*Issuer, error) {
	if length < 4 || length > 10 {
		return nil, ErrInvalidLength
	}

	return &Issuer{
		store:  store,
		length: length,
		ttl:    ttl,
		rand:   rand.Reader,
		max:    new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(length)), nil),
	}, nil
}

// Issue stores a fresh code for identity, replacing any earlier one, and returns it.
func (i *Issuer) Issue(ctx context.Context, identity string) (string, error) {
	n, err := rand.Int(i.rand, i.max)
	if err != nil {
		return "", fmt.Errorf("guard: generate otp: %w", err)
	}

	code := fmt.Sprintf("%0*d", i.length, n.Int64())
	if err := i.store.SetEx(ctx, otpKey(identity), code, i.ttl); err != nil {
		return "", err
	}

	return code, nil
}

// Length is the number of digits in an issued code.
func (i *Issuer) Length() int { return i.length }

// TTL is the lifetime of an issued code.
func (i *Issuer) TTL() time.Duration { return i.ttl }

// Verifier consumes stored codes.
type Verifier struct {
	store kvstore.Store
}

func NewVerifier(store kvstore.Store) *Verifier {
	return &Verifier{store: store}
}

// Verify reports whether code matches the active code for identity. A match
// deletes the code in the same atomic step; a mismatch leaves it in place.
func (v *Verifier) Verify(ctx context.Context, identity, code string) (bool, error) {
	if code == "" {
		return false, nil
	}
	return v.store.DelIfEqual(ctx, otpKey(identity), code)
}
