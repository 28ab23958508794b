package security

import (
	"crypto/rand"
	"encoding/base64"
)

// RandomToken returns size random bytes encoded as unpadded base64url.
// Sizes below 16 bytes are raised to 16.
func RandomToken(size int) (string, error) {
	if size < 16 {
		size = 16
	}
	b := make([]byte, size)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
