package entities

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Wallet represents a custodial wallet held on behalf of a user.
// One wallet per user; wallets are deactivated, never deleted.
type Wallet struct {
	ID                uuid.UUID       `json:"id" gorm:"type:uuid;primary_key;default:uuid_generate_v7()"`
	UserID            uuid.UUID       `json:"userId"`
	Address           string          `json:"address"`
	EncryptedKey      string          `json:"-"` // AES-GCM blob, hex encoded
	DailyLimitUSD     decimal.Decimal `json:"dailyLimitUsd"`
	DailySpentUSD     decimal.Decimal `json:"dailySpentUsd"`
	LimitResetAt      time.Time       `json:"limitResetAt"`
	IsActive          bool            `json:"isActive"`
	IsVerified        bool            `json:"isVerified"`
	LastTransactionAt *time.Time      `json:"lastTransactionAt,omitempty"`
	CreatedAt         time.Time       `json:"createdAt"`
	UpdatedAt         time.Time       `json:"updatedAt"`
	DeletedAt         *time.Time      `json:"-"`

	// Joins
	Balances []*WalletBalance `json:"balances,omitempty" gorm:"foreignKey:WalletID"`
}

// WalletBalance is the balance of a single asset, in integer minor units
// (wei, or 10^-6 units for a 6-decimal token). Never negative.
type WalletBalance struct {
	WalletID  uuid.UUID       `json:"walletId"`
	Asset     string          `json:"asset"`
	Balance   decimal.Decimal `json:"balance" gorm:"type:numeric(78,0)"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

// RemainingDailyLimit returns the USD headroom left today. The stored
// daily-spent counter is stale after a UTC day boundary; callers that have
// not reset it yet get the full limit back.
func (w *Wallet) RemainingDailyLimit(now time.Time) decimal.Decimal {
	if !SameUTCDay(w.LimitResetAt, now) {
		return w.DailyLimitUSD
	}
	remaining := w.DailyLimitUSD.Sub(w.DailySpentUSD)
	if remaining.IsNegative() {
		return decimal.Zero
	}
	return remaining
}

// SameUTCDay reports whether two instants fall on the same UTC calendar day.
func SameUTCDay(a, b time.Time) bool {
	ay, am, ad := a.UTC().Date()
	by, bm, bd := b.UTC().Date()
	return ay == by && am == bm && ad == bd
}
