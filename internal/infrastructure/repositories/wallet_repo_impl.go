package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"chatpay.backend/internal/domain/entities"
	domainerrors "chatpay.backend/internal/domain/errors"
	"chatpay.backend/internal/infrastructure/models"
)

// WalletRepository implements wallet data operations
type WalletRepository struct {
	db *gorm.DB
}

// NewWalletRepository creates a new wallet repository
func NewWalletRepository(db *gorm.DB) *WalletRepository {
	return &WalletRepository{db: db}
}

func walletToEntity(m *models.Wallet) *entities.Wallet {
	e := &entities.Wallet{
		ID:                m.ID,
		UserID:            m.UserID,
		Address:           m.Address,
		EncryptedKey:      m.EncryptedKey,
		DailyLimitUSD:     m.DailyLimitUSD,
		DailySpentUSD:     m.DailySpentUSD,
		LimitResetAt:      m.LimitResetAt,
		IsActive:          m.IsActive,
		IsVerified:        m.IsVerified,
		LastTransactionAt: m.LastTransactionAt,
		CreatedAt:         m.CreatedAt,
		UpdatedAt:         m.UpdatedAt,
	}
	if m.DeletedAt.Valid {
		t := m.DeletedAt.Time
		e.DeletedAt = &t
	}
	return e
}

// Create creates a new wallet
func (r *WalletRepository) Create(ctx context.Context, wallet *entities.Wallet) error {
	if wallet.ID == uuid.Nil {
		wallet.ID = uuid.New()
	}
	now := time.Now().UTC()
	m := &models.Wallet{
		ID:            wallet.ID,
		UserID:        wallet.UserID,
		Address:       wallet.Address,
		EncryptedKey:  wallet.EncryptedKey,
		DailyLimitUSD: wallet.DailyLimitUSD,
		DailySpentUSD: wallet.DailySpentUSD,
		LimitResetAt:  wallet.LimitResetAt,
		IsActive:      wallet.IsActive,
		IsVerified:    wallet.IsVerified,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	db := GetDB(ctx, r.db)
	if err := db.WithContext(ctx).Create(m).Error; err != nil {
		if isUniqueViolation(err) {
			return domainerrors.ErrAlreadyExists
		}
		return err
	}
	wallet.CreatedAt = m.CreatedAt
	wallet.UpdatedAt = m.UpdatedAt
	return nil
}

// GetByID gets a wallet by ID
func (r *WalletRepository) GetByID(ctx context.Context, id uuid.UUID) (*entities.Wallet, error) {
	var m models.Wallet
	db := GetDB(ctx, r.db)
	if err := db.WithContext(ctx).First(&m, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domainerrors.ErrNotFound
		}
		return nil, err
	}
	return walletToEntity(&m), nil
}

// GetByUserID gets the wallet owned by a user
func (r *WalletRepository) GetByUserID(ctx context.Context, userID uuid.UUID) (*entities.Wallet, error) {
	var m models.Wallet
	db := GetDB(ctx, r.db)
	if err := db.WithContext(ctx).First(&m, "user_id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domainerrors.ErrNotFound
		}
		return nil, err
	}
	return walletToEntity(&m), nil
}

// GetByAddress gets a wallet by chain address
func (r *WalletRepository) GetByAddress(ctx context.Context, address string) (*entities.Wallet, error) {
	var m models.Wallet
	db := GetDB(ctx, r.db)
	if err := db.WithContext(ctx).First(&m, "address = ?", address).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domainerrors.ErrNotFound
		}
		return nil, err
	}
	return walletToEntity(&m), nil
}

// Deactivate marks a wallet inactive. Wallets are never deleted.
func (r *WalletRepository) Deactivate(ctx context.Context, id uuid.UUID) error {
	db := GetDB(ctx, r.db)
	res := db.WithContext(ctx).Model(&models.Wallet{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{"is_active": false, "updated_at": time.Now().UTC()})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domainerrors.ErrNotFound
	}
	return nil
}

// GetBalance returns the balance row for (wallet, asset). A missing row reads
// as zero.
func (r *WalletRepository) GetBalance(ctx context.Context, walletID uuid.UUID, asset string) (*entities.WalletBalance, error) {
	var m models.WalletBalance
	db := GetDB(ctx, r.db)
	err := db.WithContext(ctx).First(&m, "wallet_id = ? AND asset = ?", walletID, asset).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &entities.WalletBalance{WalletID: walletID, Asset: asset, Balance: decimal.Zero}, nil
	}
	if err != nil {
		return nil, err
	}
	return &entities.WalletBalance{
		WalletID:  m.WalletID,
		Asset:     m.Asset,
		Balance:   m.Balance,
		UpdatedAt: m.UpdatedAt,
	}, nil
}

// Debit atomically decrements the balance. The non-negative guard runs
// inside the UPDATE itself, so two racing debits can never both pass a
// read-then-write check: the second one simply matches zero rows.
func (r *WalletRepository) Debit(ctx context.Context, walletID uuid.UUID, asset string, amount decimal.Decimal) error {
	if amount.Sign() <= 0 {
		return domainerrors.ErrInvalidInput
	}
	db := GetDB(ctx, r.db)
	res := db.WithContext(ctx).Model(&models.WalletBalance{}).
		Where("wallet_id = ? AND asset = ? AND balance >= ?", walletID, asset, amount).
		Updates(map[string]interface{}{
			"balance":    gorm.Expr("balance - ?", amount),
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domainerrors.ErrInsufficientBalance
	}
	return nil
}

// Credit atomically increments the balance, creating the balance row on the
// first credit of an asset.
func (r *WalletRepository) Credit(ctx context.Context, walletID uuid.UUID, asset string, amount decimal.Decimal) error {
	if amount.Sign() <= 0 {
		return domainerrors.ErrInvalidInput
	}
	now := time.Now().UTC()
	db := GetDB(ctx, r.db)
	res := db.WithContext(ctx).Model(&models.WalletBalance{}).
		Where("wallet_id = ? AND asset = ?", walletID, asset).
		Updates(map[string]interface{}{
			"balance":    gorm.Expr("balance + ?", amount),
			"updated_at": now,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected > 0 {
		return nil
	}
	return db.WithContext(ctx).Create(&models.WalletBalance{
		WalletID:  walletID,
		Asset:     asset,
		Balance:   amount,
		UpdatedAt: now,
	}).Error
}

// UpdateDailySpent persists the daily-spent counter and its reset mark
func (r *WalletRepository) UpdateDailySpent(ctx context.Context, walletID uuid.UUID, spentUSD decimal.Decimal, resetAt time.Time) error {
	db := GetDB(ctx, r.db)
	res := db.WithContext(ctx).Model(&models.Wallet{}).
		Where("id = ?", walletID).
		Updates(map[string]interface{}{
			"daily_spent_usd": spentUSD,
			"limit_reset_at":  resetAt.UTC(),
			"updated_at":      time.Now().UTC(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domainerrors.ErrNotFound
	}
	return nil
}

// AddDailySpent atomically increments the daily-spent counter. Like Debit,
// the limit guard runs inside the UPDATE itself: a spend that no longer fits
// matches zero rows and fails, so two racing spends can never both squeeze
// through a read-then-write window.
func (r *WalletRepository) AddDailySpent(ctx context.Context, walletID uuid.UUID, amountUSD decimal.Decimal) error {
	if amountUSD.Sign() <= 0 {
		return domainerrors.ErrInvalidInput
	}
	db := GetDB(ctx, r.db)
	res := db.WithContext(ctx).Model(&models.Wallet{}).
		Where("id = ? AND daily_spent_usd + ? <= daily_limit_usd", walletID, amountUSD).
		Updates(map[string]interface{}{
			"daily_spent_usd": gorm.Expr("daily_spent_usd + ?", amountUSD),
			"updated_at":      time.Now().UTC(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domainerrors.ErrLimitExceeded
	}
	return nil
}

// TouchLastTransaction bumps updated_at / last_transaction_at
func (r *WalletRepository) TouchLastTransaction(ctx context.Context, walletID uuid.UUID) error {
	now := time.Now().UTC()
	db := GetDB(ctx, r.db)
	return db.WithContext(ctx).Model(&models.Wallet{}).
		Where("id = ?", walletID).
		Updates(map[string]interface{}{
			"last_transaction_at": now,
			"updated_at":          now,
		}).Error
}
