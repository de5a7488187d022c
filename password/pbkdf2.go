package password

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"io"
	"strings"

	"golang.org/x/crypto/pbkdf2"
)

const (
	// DefaultIterations is the PBKDF2 round count used for stored credentials.
	DefaultIterations = 100_000
	// DefaultSaltBytes is the number of random bytes behind the hex salt.
	DefaultSaltBytes = 32

	minIterations = 10_000
	minSaltBytes  = 16
	keyLength     = sha256.Size
	separator     = ":"
)

var (
	// ErrEmptyPassword is returned by Hash for a zero-length password.
	ErrEmptyPassword = errors.New("password must not be empty")
	// ErrInvalidConfig is returned by NewHasher for out-of-range parameters.
	ErrInvalidConfig = errors.New("invalid password hasher configuration")
)

// Config holds the PBKDF2 parameters. The zero value selects the defaults.
type Config struct {
	Iterations int
	SaltBytes  int
}

// Hasher produces and checks credentials encoded as "<hex digest>:<hex salt>".
//
// The salt fed to PBKDF2 is the hex salt text, not the decoded bytes, so
// hashes written by the legacy service verify unchanged.
type Hasher struct {
	iterations int
	saltBytes  int
	rand       io.Reader
}

// NewHasher validates cfg and returns a ready Hasher.
func NewHasher(cfg Config) (*Hasher, error) {
	if cfg.Iterations == 0 {
		cfg.Iterations = DefaultIterations
	}
	if cfg.SaltBytes == 0 {
		cfg.SaltBytes = DefaultSaltBytes
	}
	if cfg.Iterations < minIterations {
		return nil, errors.Join(ErrInvalidConfig, errors.New("iterations below minimum"))
	}
	if cfg.SaltBytes < minSaltBytes {
		return nil, errors.Join(ErrInvalidConfig, errors.New("salt shorter than 16 bytes"))
	}

	return &Hasher{
		iterations: cfg.Iterations,
		saltBytes:  cfg.SaltBytes,
		rand:       rand.Reader,
	}, nil
}

// Hash derives a new credential string with a fresh random salt.
func (h *Hasher) Hash(password string) (string, error) {
	if password == "" {
		return "", ErrEmptyPassword
	}

	raw := make([]byte, h.saltBytes)
	if _, err := io.ReadFull(h.rand, raw); err != nil {
		return "", err
	}
	salt := hex.EncodeToString(raw)

	return hex.EncodeToString(h.derive(password, salt)) + separator + salt, nil
}

// Verify reports whether password matches stored. Malformed input is a mismatch.
func (h *Hasher) Verify(password, stored string) bool {
	if password == "" {
		return false
	}

	parts := strings.Split(stored, separator)
	if len(parts) != 2 || parts[1] == "" {
		return false
	}

	want, err := hex.DecodeString(parts[0])
	if err != nil || len(want) != keyLength {
		return false
	}

	got := h.derive(password, parts[1])
	return subtle.ConstantTimeCompare(got, want) == 1
}

// Iterations reports the configured PBKDF2 round count.
func (h *Hasher) Iterations() int {
	return h.iterations
}

func (h *Hasher) derive(password, salt string) []byte {
	return pbkdf2.Key([]byte(password), []byte(salt), h.iterations, keyLength, sha256.New)
}
