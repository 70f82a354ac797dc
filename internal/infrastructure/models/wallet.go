package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Wallet struct {
	ID                uuid.UUID       `gorm:"type:uuid;primaryKey;default:uuid_generate_v4()"`
	UserID            uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex"`
	Address           string          `gorm:"type:varchar(255);not null;uniqueIndex"`
	EncryptedKey      string          `gorm:"type:text;not null"`
	DailyLimitUSD     decimal.Decimal `gorm:"type:numeric(18,2);not null"`
	DailySpentUSD     decimal.Decimal `gorm:"type:numeric(18,2);not null"`
	LimitResetAt      time.Time       `gorm:"not null"`
	IsActive          bool            `gorm:"default:true"`
	IsVerified        bool            `gorm:"default:false"`
	LastTransactionAt *time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
	DeletedAt         gorm.DeletedAt `gorm:"index"`
}

type WalletBalance struct {
	WalletID  uuid.UUID       `gorm:"type:uuid;primaryKey"`
	Asset     string          `gorm:"type:varchar(32);primaryKey"`
	Balance   decimal.Decimal `gorm:"type:numeric(78,0);not null"`
	UpdatedAt time.Time
}

func (WalletBalance) TableName() string {
	return "wallet_balances"
}
