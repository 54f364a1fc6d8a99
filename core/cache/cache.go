package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
)

// KeyPrefix namespaces every key written by dealgraph.
const KeyPrefix = "dealgraph:v1:"

// Cache defines the interface for caching
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration) error
	Delete(key string) error
	Clear() error
}

// Key builds a cache key from a namespace and the hashed parts.
// Parts are lower-cased and trimmed so equivalent questions share a key.
func Key(namespace string, parts ...string) string {
	h := sha256.New()
	for _, p := range parts {
		h.Write([]byte(strings.ToLower(strings.TrimSpace(p))))
		h.Write([]byte{0})
	}
	return KeyPrefix + namespace + ":" + hex.EncodeToString(h.Sum(nil))
}
