package ports

import (
	"context"
	"time"
)

// LockoutState is the counter behind a login lockout or a recovery rate limit.
// LockedUntil is nil until the threshold is reached.
type LockoutState struct {
	FailedCount int
	LockedUntil *time.Time
}

// LockoutStore counts attempts per key within a window. Keys are namespaced by
// the caller, e.g. "login:" or "reset:" plus the normalized email.
type LockoutStore interface {
	Get(ctx context.Context, key string) (LockoutState, error)
	RecordFailure(ctx context.Context, key string, now time.Time, threshold int, lockoutWindow time.Duration) (LockoutState, error)
	Clear(ctx context.Context, key string) error
}
