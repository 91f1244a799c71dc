// Package cache memoizes extraction results in a layered memory and disk store.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Store defines the interface for byte-oriented caches
type Store interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration) error
	Delete(key string) error
	Clear() error
}

// Key hashes the parts into a versioned cache key
func Key(parts ...string) string {
	h := sha256.New()
	for _, p := range parts {
		h.Write([]byte(p))
		h.Write([]byte{0})
	}
	return "loanrecon:v1:" + hex.EncodeToString(h.Sum(nil))
}
