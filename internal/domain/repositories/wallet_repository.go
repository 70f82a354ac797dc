package repositories

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"chatpay.backend/internal/domain/entities"
)

// WalletRepository defines wallet data operations
type WalletRepository interface {
	Create(ctx context.Context, wallet *entities.Wallet) error
	GetByID(ctx context.Context, id uuid.UUID) (*entities.Wallet, error)
	GetByUserID(ctx context.Context, userID uuid.UUID) (*entities.Wallet, error)
	GetByAddress(ctx context.Context, address string) (*entities.Wallet, error)
	Deactivate(ctx context.Context, id uuid.UUID) error

	// GetBalance returns the balance row for (wallet, asset). A missing row
	// reads as zero balance, not ErrNotFound.
	GetBalance(ctx context.Context, walletID uuid.UUID, asset string) (*entities.WalletBalance, error)

	// Debit atomically decrements the balance. Fails with
	// ErrInsufficientBalance when the stored balance is below amount; the
	// guard runs inside the UPDATE so no interleaving can drive the
	// balance negative.
	Debit(ctx context.Context, walletID uuid.UUID, asset string, amount decimal.Decimal) error

	// Credit atomically increments the balance, creating the balance row
	// on first use of an asset.
	Credit(ctx context.Context, walletID uuid.UUID, asset string, amount decimal.Decimal) error

	// UpdateDailySpent persists the daily-spent counter and its reset mark.
	// Used for the UTC-day reset; spends go through AddDailySpent.
	UpdateDailySpent(ctx context.Context, walletID uuid.UUID, spentUSD decimal.Decimal, resetAt time.Time) error

	// AddDailySpent atomically increments the daily-spent counter, guarded
	// by the wallet's daily limit. Fails with ErrLimitExceeded when the
	// increment would push the counter past the limit; the guard runs
	// inside the UPDATE so two racing spends cannot both fit through a
	// read-then-write window.
	AddDailySpent(ctx context.Context, walletID uuid.UUID, amountUSD decimal.Decimal) error

	// TouchLastTransaction bumps updated_at / last_transaction_at.
	TouchLastTransaction(ctx context.Context, walletID uuid.UUID) error
}

// AssetRepository defines read access to the supported-asset registry
type AssetRepository interface {
	GetBySymbol(ctx context.Context, symbol string) (*entities.Asset, error)
	List(ctx context.Context) ([]*entities.Asset, error)
}
