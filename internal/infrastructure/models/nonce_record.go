package models

import (
	"time"
)

// NonceRecord is the durable nonce state for one wallet address. The
// lock_holder/lock_expiry pair doubles as the SQL lease backend; the redis
// backend leaves both columns untouched.
type NonceRecord struct {
	Address       string `gorm:"type:varchar(255);primaryKey"`
	CurrentNonce  uint64 `gorm:"not null;default:0"`
	PendingNonces string `gorm:"type:text;not null;default:'[]'"` // JSON array
	LockHolder    *string
	LockExpiry    *time.Time `gorm:"index"`
	LastSyncedAt  *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (NonceRecord) TableName() string {
	return "nonce_records"
}
