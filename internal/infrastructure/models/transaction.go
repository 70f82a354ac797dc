package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Transaction struct {
	ID          uuid.UUID       `gorm:"type:uuid;primaryKey;default:uuid_generate_v4()"`
	WalletID    uuid.UUID       `gorm:"type:uuid;not null;index"`
	Kind        string          `gorm:"type:varchar(20);not null"`
	Asset       string          `gorm:"type:varchar(32);not null"`
	Amount      decimal.Decimal `gorm:"type:numeric(78,0);not null"`
	AmountUSD   decimal.Decimal `gorm:"type:numeric(18,2);not null"`
	FromAddress string          `gorm:"type:varchar(255)"`
	ToAddress   string          `gorm:"type:varchar(255)"`
	ChainTxHash *string         `gorm:"type:varchar(255);uniqueIndex"` // unique where non-null
	ReferenceID *string         `gorm:"type:varchar(64);index"`
	Status      string          `gorm:"type:varchar(20);not null;index"`
	Nonce       *uint64
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type Asset struct {
	ID              uuid.UUID `gorm:"type:uuid;primaryKey;default:uuid_generate_v4()"`
	Symbol          string    `gorm:"type:varchar(32);not null;uniqueIndex"`
	Name            string    `gorm:"type:varchar(255);not null"`
	Decimals        int       `gorm:"not null"`
	ContractAddress *string   `gorm:"type:varchar(255)"`
	IsNative        bool      `gorm:"default:false"`
	IsActive        bool      `gorm:"default:true"`
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
