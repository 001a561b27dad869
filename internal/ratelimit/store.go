// Package ratelimit provides a fixed-window request limiter for the HTTP
// surface with pluggable counter storage.
package ratelimit

import (
	"context"
	"time"
)

// Store counts hits per key within a fixed window. Incr returns the count
// after this hit and the time remaining until the window resets.
type Store interface {
	Incr(ctx context.Context, key string, window time.Duration) (count int64, ttl time.Duration, err error)
}
