package internal

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
)

// RandomHex returns 2*n lowercase hex characters drawn from crypto/rand.
func RandomHex(n int) (string, error) {
	if n <= 0 {
		return "", errors.New("random length must be > 0")
	}
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
