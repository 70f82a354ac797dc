package redis

import (
	"context"
	"time"
)

const lockKeyPrefix = "noncelock:"

// releaseScript deletes the lock key only while token still owns it, so a
// lease that expired and was re-acquired by another holder is never clobbered.
const releaseScript = `
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`

// LockStore is the redis lease backend: SETNX with a TTL. Expiry is enforced
// server-side, so no cleanup sweep is needed for this backend.
type LockStore struct{}

// NewLockStore creates a new redis-backed lock store
func NewLockStore() *LockStore {
	return &LockStore{}
}

// TryAcquire claims key for token until ttl elapses
func (s *LockStore) TryAcquire(ctx context.Context, key, token string, ttl time.Duration) (bool, error) {
	return SetNX(ctx, lockKeyPrefix+key, token, ttl)
}

// Release frees the lease if token still holds it
func (s *LockStore) Release(ctx context.Context, key, token string) error {
	_, err := Eval(ctx, releaseScript, []string{lockKeyPrefix + key}, token)
	return err
}
