package security

import (
	"crypto/rand"
	"encoding/base32"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/crypto/bcrypt"
)

const (
	apiKeyPrefix = "cb_"
	// APIKeyLookupPrefixLen is the number of leading key characters stored in clear
	// as a lookup index. It carries 9 random characters, never enough to guess a key.
	APIKeyLookupPrefixLen = 12
)

var apiKeyEncoding = base32.StdEncoding.WithPadding(base32.NoPadding)

var (
	dummyHashOnce sync.Once
	dummyHash     []byte
)

// GenerateAPIKey returns a new raw tenant key, its lookup prefix and bcrypt hash.
func GenerateAPIKey() (raw, prefix, hash string, err error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", "", "", err
	}
	raw = apiKeyPrefix + strings.ToLower(apiKeyEncoding.EncodeToString(b))
	prefix = APIKeyLookupPrefix(raw)
	if prefix == "" {
		return "", "", "", fmt.Errorf("api key generation failed: key too short")
	}
	hash, err = HashAPIKey(raw)
	if err != nil {
		return "", "", "", err
	}
	return raw, prefix, hash, nil
}

// APIKeyLookupPrefix returns the non-secret index prefix of raw, or "" if raw is too short.
func APIKeyLookupPrefix(raw string) string {
	raw = strings.TrimSpace(raw)
	if len(raw) < APIKeyLookupPrefixLen {
		return ""
	}
	return raw[:APIKeyLookupPrefixLen]
}

// HashAPIKey returns the bcrypt hash of the trimmed key.
func HashAPIKey(raw string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(strings.TrimSpace(raw)), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// CompareAPIKey reports whether raw matches hash.
func CompareAPIKey(hash, raw string) bool {
	if hash == "" {
		BurnAPIKeyComparison(raw)
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(strings.TrimSpace(raw))) == nil
}

// BurnAPIKeyComparison performs one bcrypt comparison against a fixed hash so a
// lookup miss costs the same as a hash mismatch.
func BurnAPIKeyComparison(raw string) {
	dummyHashOnce.Do(func() {
		dummyHash, _ = bcrypt.GenerateFromPassword([]byte("connectboard-unused-api-key"), bcrypt.DefaultCost)
	})
	_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(strings.TrimSpace(raw)))
}
