package repositories

import (
	"context"
	"time"
)

// LockStore is a time-bounded exclusive lease on a named resource. The lease
// survives process crashes: it lives in the backing store (a row on the nonce
// record, or a redis key with TTL), not in process memory, so it is visible
// across service instances. A lease that is never released becomes claimable
// again once its TTL passes.
type LockStore interface {
	// TryAcquire attempts to claim key for token until ttl elapses. Returns
	// false without error when another holder owns an unexpired lease.
	TryAcquire(ctx context.Context, key, token string, ttl time.Duration) (bool, error)

	// Release frees the lease if token still holds it. Releasing a lease
	// that expired and was re-acquired by someone else is a no-op.
	Release(ctx context.Context, key, token string) error
}

// ExpiredLockCleaner is implemented by lock backends whose leases need an
// explicit sweep (the SQL backend). TTL-native backends expire server-side.
type ExpiredLockCleaner interface {
	// CleanupExpiredLocks clears leases whose expiry has passed and returns
	// the number cleared. Idempotent.
	CleanupExpiredLocks(ctx context.Context) (int64, error)
}
