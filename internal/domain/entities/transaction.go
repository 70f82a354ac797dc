package entities

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/volatiletech/null/v8"
)

// TransactionKind represents the kind of wallet transaction
type TransactionKind string

const (
	TransactionKindDeposit     TransactionKind = "DEPOSIT"
	TransactionKindWithdrawal  TransactionKind = "WITHDRAWAL"
	TransactionKindTransferIn  TransactionKind = "TRANSFER_IN"
	TransactionKindTransferOut TransactionKind = "TRANSFER_OUT"
	TransactionKindRefund      TransactionKind = "REFUND"
)

// TransactionStatus represents transaction status
type TransactionStatus string

const (
	TransactionStatusPending   TransactionStatus = "PENDING"
	TransactionStatusSubmitted TransactionStatus = "SUBMITTED"
	TransactionStatusConfirmed TransactionStatus = "CONFIRMED"
	TransactionStatusFailed    TransactionStatus = "FAILED"
)

// CanTransitionTo reports whether status transitions are monotonic:
// PENDING -> SUBMITTED -> CONFIRMED|FAILED. CONFIRMED and FAILED are terminal.
func (s TransactionStatus) CanTransitionTo(next TransactionStatus) bool {
	switch s {
	case TransactionStatusPending:
		return next == TransactionStatusSubmitted || next == TransactionStatusFailed
	case TransactionStatusSubmitted:
		return next == TransactionStatusConfirmed || next == TransactionStatusFailed
	default:
		return false
	}
}

// Transaction represents one balance-affecting movement on a wallet.
// Rows are append-mostly; only the status and chain tx hash are updated
// after insert.
type Transaction struct {
	ID          uuid.UUID         `json:"id" gorm:"type:uuid;primary_key;default:uuid_generate_v7()"`
	WalletID    uuid.UUID         `json:"walletId"`
	Kind        TransactionKind   `json:"kind"`
	Asset       string            `json:"asset"`
	Amount      decimal.Decimal   `json:"amount" gorm:"type:numeric(78,0)"` // minor units
	AmountUSD   decimal.Decimal   `json:"amountUsd" gorm:"type:numeric(18,2)"`
	FromAddress string            `json:"fromAddress"`
	ToAddress   string            `json:"toAddress"`
	ChainTxHash null.String       `json:"chainTxHash,omitempty"` // unique when present
	ReferenceID null.String       `json:"referenceId,omitempty"` // internal transfer pairing
	Status      TransactionStatus `json:"status"`
	Nonce       *uint64           `json:"nonce,omitempty"`
	CreatedAt   time.Time         `json:"createdAt"`
	UpdatedAt   time.Time         `json:"updatedAt"`
}
