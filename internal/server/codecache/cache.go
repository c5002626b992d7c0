// Package codecache is the one-time code cache: short-lived string values
// keyed by purpose, such as emailed login codes.
package codecache

import (
	"context"
	"time"
)

const twoFactorPrefix = "2fa:code:"

// TwoFactorKey is the cache key for the pending login code of email.
func TwoFactorKey(email string) string {
	return twoFactorPrefix + email
}

// Cache stores one-time values with a TTL. Get returns common.ErrorNotFound
// for absent or expired keys. Delete reports whether the key existed, which
// lets concurrent callers agree on a single consumer.
type Cache interface {
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Delete(ctx context.Context, key string) (bool, error)
}
