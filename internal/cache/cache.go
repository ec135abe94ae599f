package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Cache defines the interface for caching operations.
// Values are stored as bytes so the same callers work with the in-memory and redis backends.
type Cache interface {
	// Get retrieves a value from the cache
	// Returns the value and a boolean indicating whether the key was found
	Get(ctx context.Context, key string) ([]byte, bool)

	// Set adds a value to the cache with the specified expiration
	// If expiration is 0, the backend default is used
	Set(ctx context.Context, key string, value []byte, expiration time.Duration)

	// Delete removes a key from the cache
	Delete(ctx context.Context, key string)

	// DeleteByPrefix removes all keys with the given prefix
	DeleteByPrefix(ctx context.Context, prefix string)
}

// Predefined cache key prefixes for different entity types
const (
	PrefixOpStatus      = "opstatus:v1:"
	PrefixWalletBalance = "walletbalance:v1:"
	PrefixOwnerStats    = "ownerstats:v1:"
)

// GenerateKey creates a cache key from a prefix and a set of parameters
// It joins all parameters with a colon and appends them to the prefix
func GenerateKey(prefix string, params ...interface{}) string {
	parts := make([]string, len(params)+1)
	parts[0] = prefix

	for i, param := range params {
		parts[i+1] = fmt.Sprintf("%v", param)
	}

	return strings.Join(parts, ":")
}

// GetJSON decodes a cached value into T. Undecodable entries count as misses.
func GetJSON[T any](ctx context.Context, c Cache, key string) (*T, bool) {
	raw, ok := c.Get(ctx, key)
	if !ok {
		return nil, false
	}
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, false
	}
	return &v, true
}

// SetJSON encodes v and stores it under key
func SetJSON(ctx context.Context, c Cache, key string, v interface{}, expiration time.Duration) {
	raw, err := json.Marshal(v)
	if err != nil {
		return
	}
	c.Set(ctx, key, raw, expiration)
}
