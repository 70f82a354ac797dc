package repositories

import (
	"context"
	"time"

	"gorm.io/gorm"
	"chatpay.backend/internal/infrastructure/models"
)

// NonceLockStore is the SQL lease backend: the lock_holder/lock_expiry
// columns on nonce_records are the lease. Claim and release are single
// conditional UPDATEs, so mutual exclusion holds across service instances
// sharing the database, and a crashed holder's lease becomes claimable as
// soon as its expiry passes.
type NonceLockStore struct {
	db *gorm.DB
}

// NewNonceLockStore creates a new SQL-backed lock store
func NewNonceLockStore(db *gorm.DB) *NonceLockStore {
	return &NonceLockStore{db: db}
}

// TryAcquire claims the lease on an address's nonce record. Acquisition is
// reentrant for the same token, which renews the expiry.
func (s *NonceLockStore) TryAcquire(ctx context.Context, key, token string, ttl time.Duration) (bool, error) {
	now := time.Now().UTC()

	// The record may not exist yet on a wallet's first allocation.
	var m models.NonceRecord
	err := s.db.WithContext(ctx).
		Where(models.NonceRecord{Address: key}).
		Attrs(models.NonceRecord{PendingNonces: "[]", CreatedAt: now, UpdatedAt: now}).
		FirstOrCreate(&m).Error
	if err != nil && !isUniqueViolation(err) {
		return false, err
	}

	expiry := now.Add(ttl)
	res := s.db.WithContext(ctx).Model(&models.NonceRecord{}).
		Where("address = ? AND (lock_holder IS NULL OR lock_expiry < ? OR lock_holder = ?)", key, now, token).
		Updates(map[string]interface{}{
			"lock_holder": token,
			"lock_expiry": expiry,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// Release frees the lease if token still holds it
func (s *NonceLockStore) Release(ctx context.Context, key, token string) error {
	return s.db.WithContext(ctx).Model(&models.NonceRecord{}).
		Where("address = ? AND lock_holder = ?", key, token).
		Updates(map[string]interface{}{
			"lock_holder": nil,
			"lock_expiry": nil,
		}).Error
}

// CleanupExpiredLocks clears leases whose expiry has passed and returns the
// number cleared. Idempotent; run periodically by the cleanup job.
func (s *NonceLockStore) CleanupExpiredLocks(ctx context.Context) (int64, error) {
	res := s.db.WithContext(ctx).Model(&models.NonceRecord{}).
		Where("lock_holder IS NOT NULL AND lock_expiry < ?", time.Now().UTC()).
		Updates(map[string]interface{}{
			"lock_holder": nil,
			"lock_expiry": nil,
		})
	return res.RowsAffected, res.Error
}
