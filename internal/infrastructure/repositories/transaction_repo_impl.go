package repositories

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/volatiletech/null/v8"
	"gorm.io/gorm"
	"chatpay.backend/internal/domain/entities"
	domainerrors "chatpay.backend/internal/domain/errors"
	"chatpay.backend/internal/infrastructure/models"
)

// isUniqueViolation reports whether err is a unique-constraint failure.
// Checked by message as well because error translation differs between the
// postgres and sqlite drivers.
func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique") || strings.Contains(msg, "duplicate key")
}

// TransactionRepository implements transaction data operations
type TransactionRepository struct {
	db *gorm.DB
}

// NewTransactionRepository creates a new transaction repository
func NewTransactionRepository(db *gorm.DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

func txToModel(tx *entities.Transaction) *models.Transaction {
	m := &models.Transaction{
		ID:          tx.ID,
		WalletID:    tx.WalletID,
		Kind:        string(tx.Kind),
		Asset:       tx.Asset,
		Amount:      tx.Amount,
		AmountUSD:   tx.AmountUSD,
		FromAddress: tx.FromAddress,
		ToAddress:   tx.ToAddress,
		Status:      string(tx.Status),
		Nonce:       tx.Nonce,
		CreatedAt:   tx.CreatedAt,
		UpdatedAt:   tx.UpdatedAt,
	}
	if tx.ChainTxHash.Valid {
		v := tx.ChainTxHash.String
		m.ChainTxHash = &v
	}
	if tx.ReferenceID.Valid {
		v := tx.ReferenceID.String
		m.ReferenceID = &v
	}
	return m
}

func txToEntity(m *models.Transaction) *entities.Transaction {
	tx := &entities.Transaction{
		ID:          m.ID,
		WalletID:    m.WalletID,
		Kind:        entities.TransactionKind(m.Kind),
		Asset:       m.Asset,
		Amount:      m.Amount,
		AmountUSD:   m.AmountUSD,
		FromAddress: m.FromAddress,
		ToAddress:   m.ToAddress,
		ChainTxHash: null.StringFromPtr(m.ChainTxHash),
		ReferenceID: null.StringFromPtr(m.ReferenceID),
		Status:      entities.TransactionStatus(m.Status),
		Nonce:       m.Nonce,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
	return tx
}

// Create inserts a transaction row. A chain tx hash collision surfaces as
// ErrAlreadyExists; deposit idempotency rests on this.
func (r *TransactionRepository) Create(ctx context.Context, tx *entities.Transaction) error {
	if tx.ID == uuid.Nil {
		tx.ID = uuid.New()
	}
	now := time.Now().UTC()
	if tx.CreatedAt.IsZero() {
		tx.CreatedAt = now
	}
	tx.UpdatedAt = now

	m := txToModel(tx)
	db := GetDB(ctx, r.db)
	if err := db.WithContext(ctx).Create(m).Error; err != nil {
		if isUniqueViolation(err) {
			return domainerrors.ErrAlreadyExists
		}
		return err
	}
	return nil
}

// GetByID gets a transaction by ID
func (r *TransactionRepository) GetByID(ctx context.Context, id uuid.UUID) (*entities.Transaction, error) {
	var m models.Transaction
	db := GetDB(ctx, r.db)
	if err := db.WithContext(ctx).First(&m, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domainerrors.ErrNotFound
		}
		return nil, err
	}
	return txToEntity(&m), nil
}

// GetByChainTxHash gets a transaction by on-chain hash
func (r *TransactionRepository) GetByChainTxHash(ctx context.Context, txHash string) (*entities.Transaction, error) {
	var m models.Transaction
	db := GetDB(ctx, r.db)
	if err := db.WithContext(ctx).First(&m, "chain_tx_hash = ?", txHash).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domainerrors.ErrNotFound
		}
		return nil, err
	}
	return txToEntity(&m), nil
}

// GetByWalletID lists transactions for a wallet, newest first
func (r *TransactionRepository) GetByWalletID(ctx context.Context, walletID uuid.UUID, limit, offset int) ([]*entities.Transaction, int, error) {
	db := GetDB(ctx, r.db)

	var total int64
	if err := db.WithContext(ctx).Model(&models.Transaction{}).
		Where("wallet_id = ?", walletID).
		Count(&total).Error; err != nil {
		return nil, 0, err
	}

	// limit <= 0 means no limit, matching the pagination defaults.
	if limit <= 0 {
		limit = -1
	}

	var rows []models.Transaction
	if err := db.WithContext(ctx).
		Where("wallet_id = ?", walletID).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&rows).Error; err != nil {
		return nil, 0, err
	}

	txs := make([]*entities.Transaction, 0, len(rows))
	for i := range rows {
		txs = append(txs, txToEntity(&rows[i]))
	}
	return txs, int(total), nil
}

// UpdateStatus moves a transaction along its status progression. Terminal
// states never change again.
func (r *TransactionRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status entities.TransactionStatus) error {
	db := GetDB(ctx, r.db)
	res := db.WithContext(ctx).Model(&models.Transaction{}).
		Where("id = ? AND status NOT IN ?", id, []string{
			string(entities.TransactionStatusConfirmed),
			string(entities.TransactionStatusFailed),
		}).
		Updates(map[string]interface{}{
			"status":     string(status),
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domainerrors.ErrNotFound
	}
	return nil
}
