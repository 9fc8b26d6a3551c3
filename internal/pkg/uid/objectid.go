package uid

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"os"
	"strings"
	"time"

	"go.uber.org/atomic"
)

// ErrStableNodeIdentityUnavailable indicates no stable node identity is available.
var ErrStableNodeIdentityUnavailable = errors.New("uid: cannot determine stable node identity (machine-id/hostname unavailable)")

// ObjectIDGenerator produces 32-byte opaque identifiers encoded as 64 hex chars.
//
// Layout: 6 bytes unix millis, 6 bytes node hash, 2 bytes pid, 4 bytes counter,
// 14 bytes randomness. The random tail makes the value unguessable, which is
// what refresh tokens rely on.
type ObjectIDGenerator struct {
	node    [6]byte
	pid     uint16
	counter *atomic.Uint32
}

// NewObjectIDGenerator creates a generator seeded from /etc/machine-id or the host name.
func NewObjectIDGenerator() (*ObjectIDGenerator, error) {
	src, err := nodeIdentity()
	if err != nil {
		return nil, err
	}

	var seed [4]byte
	if _, err := rand.Read(seed[:]); err != nil {
		return nil, err
	}

	g := &ObjectIDGenerator{
		pid:     uint16(os.Getpid()),
		counter: atomic.NewUint32(binary.BigEndian.Uint32(seed[:])),
	}
	sum := sha256.Sum256([]byte(src))
	copy(g.node[:], sum[:6])

	return g, nil
}

func nodeIdentity() (string, error) {
	if b, err := os.ReadFile("/etc/machine-id"); err == nil {
		if s := strings.TrimSpace(string(b)); s != "" {
			return s, nil
		}
	}

	if h, err := os.Hostname(); err == nil {
		if h = strings.TrimSpace(h); h != "" {
			return h, nil
		}
	}

	return "", ErrStableNodeIdentityUnavailable
}

// Generate returns a new 64-char lowercase hex identifier.
func (g *ObjectIDGenerator) Generate() string {
	var raw [32]byte

	var ts [8]byte
	binary.BigEndian.PutUint64(ts[:], uint64(time.Now().UnixMilli()))
	copy(raw[0:6], ts[2:])
	copy(raw[6:12], g.node[:])
	binary.BigEndian.PutUint16(raw[12:14], g.pid)
	binary.BigEndian.PutUint32(raw[14:18], g.counter.Inc())

	if _, err := rand.Read(raw[18:]); err != nil {
		sum := sha256.Sum256(raw[:18])
		copy(raw[18:], sum[:14])
	}

	return hex.EncodeToString(raw[:])
}
