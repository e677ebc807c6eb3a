package config

import (
	"fmt"
	"time"

	"github.com/patrickmn/go-cache"
)

const defaultFormCleanupInterval = 10 * time.Minute

// NewFormCache returns the in-memory store for open form sessions. Entries
// expire after ttl without access and are swept every cleanup interval.
func NewFormCache(ttl, cleanup time.Duration) *cache.Cache {
	if cleanup <= 0 {
		cleanup = defaultFormCleanupInterval
	}
	return cache.New(ttl, cleanup)
}

// GetCacheKey joins a prefix and parameters into a cache key such as
// "form:3f1c...".
func GetCacheKey(prefix string, params ...interface{}) string {
	key := prefix
	for _, param := range params {
		key += ":" + fmt.Sprintf("%v", param)
	}
	return key
}
