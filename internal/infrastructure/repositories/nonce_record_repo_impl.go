package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/volatiletech/null/v8"
	"gorm.io/gorm"
	"chatpay.backend/internal/domain/entities"
	domainerrors "chatpay.backend/internal/domain/errors"
	"chatpay.backend/internal/infrastructure/models"
)

// NonceRecordRepository implements nonce record data operations
type NonceRecordRepository struct {
	db *gorm.DB
}

// NewNonceRecordRepository creates a new nonce record repository
func NewNonceRecordRepository(db *gorm.DB) *NonceRecordRepository {
	return &NonceRecordRepository{db: db}
}

func nonceRecordToEntity(m *models.NonceRecord) (*entities.NonceRecord, error) {
	var pending []uint64
	if m.PendingNonces != "" {
		if err := json.Unmarshal([]byte(m.PendingNonces), &pending); err != nil {
			return nil, err
		}
	}
	return &entities.NonceRecord{
		Address:       m.Address,
		CurrentNonce:  m.CurrentNonce,
		PendingNonces: pending,
		LockHolder:    null.StringFromPtr(m.LockHolder),
		LockExpiry:    m.LockExpiry,
		LastSyncedAt:  m.LastSyncedAt,
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
	}, nil
}

// GetOrCreate returns the record for an address, creating it lazily on the
// first allocation.
func (r *NonceRecordRepository) GetOrCreate(ctx context.Context, address string) (*entities.NonceRecord, error) {
	db := GetDB(ctx, r.db)
	now := time.Now().UTC()

	var m models.NonceRecord
	err := db.WithContext(ctx).
		Where(models.NonceRecord{Address: address}).
		Attrs(models.NonceRecord{PendingNonces: "[]", CreatedAt: now, UpdatedAt: now}).
		FirstOrCreate(&m).Error
	if err != nil {
		// A concurrent create on the same address loses the insert race;
		// re-read instead of failing the allocation.
		if isUniqueViolation(err) {
			if err2 := db.WithContext(ctx).First(&m, "address = ?", address).Error; err2 != nil {
				return nil, err2
			}
		} else {
			return nil, err
		}
	}
	return nonceRecordToEntity(&m)
}

// Get returns the record for an address
func (r *NonceRecordRepository) Get(ctx context.Context, address string) (*entities.NonceRecord, error) {
	var m models.NonceRecord
	db := GetDB(ctx, r.db)
	if err := db.WithContext(ctx).First(&m, "address = ?", address).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domainerrors.ErrNotFound
		}
		return nil, err
	}
	return nonceRecordToEntity(&m)
}

// Save persists the nonce counters. Lease columns belong to the lock store
// and are deliberately not written here.
func (r *NonceRecordRepository) Save(ctx context.Context, record *entities.NonceRecord) error {
	pending := record.PendingNonces
	if pending == nil {
		pending = []uint64{}
	}
	raw, err := json.Marshal(pending)
	if err != nil {
		return err
	}

	db := GetDB(ctx, r.db)
	res := db.WithContext(ctx).Model(&models.NonceRecord{}).
		Where("address = ?", record.Address).
		Updates(map[string]interface{}{
			"current_nonce":  record.CurrentNonce,
			"pending_nonces": string(raw),
			"last_synced_at": record.LastSyncedAt,
			"updated_at":     time.Now().UTC(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domainerrors.ErrNotFound
	}
	return nil
}
