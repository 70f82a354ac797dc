package repositories

import (
	"context"

	"github.com/google/uuid"
	"chatpay.backend/internal/domain/entities"
)

// TransactionRepository defines transaction data operations
type TransactionRepository interface {
	// Create inserts a transaction row. When the chain tx hash collides
	// with an existing row it fails with ErrAlreadyExists, which is how
	// deposit idempotency is enforced.
	Create(ctx context.Context, tx *entities.Transaction) error
	GetByID(ctx context.Context, id uuid.UUID) (*entities.Transaction, error)
	GetByChainTxHash(ctx context.Context, txHash string) (*entities.Transaction, error)
	GetByWalletID(ctx context.Context, walletID uuid.UUID, limit, offset int) ([]*entities.Transaction, int, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status entities.TransactionStatus) error
}
