package repositories

import (
	"context"

	"chatpay.backend/internal/domain/entities"
)

// NonceRecordRepository defines nonce record data operations. Callers are
// expected to hold the record's lease (see LockStore) around any
// read-modify-write sequence; the repository itself does not serialize.
type NonceRecordRepository interface {
	// GetOrCreate returns the record for an address, creating it with
	// CurrentNonce 0 and an empty pending set on first use.
	GetOrCreate(ctx context.Context, address string) (*entities.NonceRecord, error)
	Get(ctx context.Context, address string) (*entities.NonceRecord, error)

	// Save persists CurrentNonce, PendingNonces and LastSyncedAt. Lease
	// columns are owned by the lock store and left untouched.
	Save(ctx context.Context, record *entities.NonceRecord) error
}
