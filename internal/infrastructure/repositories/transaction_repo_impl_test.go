package repositories

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/volatiletech/null/v8"
	"chatpay.backend/internal/domain/entities"
	domainerrors "chatpay.backend/internal/domain/errors"
)

func newTestTx(walletID uuid.UUID, hash string) *entities.Transaction {
	tx := &entities.Transaction{
		WalletID:    walletID,
		Kind:        entities.TransactionKindWithdrawal,
		Asset:       "USDT",
		Amount:      decimal.NewFromInt(700_000),
		AmountUSD:   decimal.NewFromInt(1),
		FromAddress: "0xfrom",
		ToAddress:   "0xto",
		Status:      entities.TransactionStatusSubmitted,
	}
	if hash != "" {
		tx.ChainTxHash = null.StringFrom(hash)
	}
	return tx
}

func TestTransactionRepository_CreateAndGet(t *testing.T) {
	db := newTestDB(t)
	createTransactionTable(t, db)
	repo := NewTransactionRepository(db)
	walletID := uuid.New()

	nonce := uint64(7)
	tx := newTestTx(walletID, "0xhash1")
	tx.Nonce = &nonce
	require.NoError(t, repo.Create(context.Background(), tx))
	require.NotEqual(t, uuid.Nil, tx.ID)

	got, err := repo.GetByID(context.Background(), tx.ID)
	require.NoError(t, err)
	assert.Equal(t, entities.TransactionKindWithdrawal, got.Kind)
	assert.Equal(t, "0xhash1", got.ChainTxHash.String)
	require.NotNil(t, got.Nonce)
	assert.Equal(t, uint64(7), *got.Nonce)
	assert.True(t, got.Amount.Equal(decimal.NewFromInt(700_000)))

	got, err = repo.GetByChainTxHash(context.Background(), "0xhash1")
	require.NoError(t, err)
	assert.Equal(t, tx.ID, got.ID)

	_, err = repo.GetByChainTxHash(context.Background(), "0xnope")
	assert.ErrorIs(t, err, domainerrors.ErrNotFound)
}

func TestTransactionRepository_Create_DuplicateHash(t *testing.T) {
	db := newTestDB(t)
	createTransactionTable(t, db)
	repo := NewTransactionRepository(db)
	walletID := uuid.New()

	require.NoError(t, repo.Create(context.Background(), newTestTx(walletID, "0xhash1")))

	err := repo.Create(context.Background(), newTestTx(walletID, "0xhash1"))
	assert.ErrorIs(t, err, domainerrors.ErrAlreadyExists)
}

func TestTransactionRepository_Create_NullHashesDoNotCollide(t *testing.T) {
	db := newTestDB(t)
	createTransactionTable(t, db)
	repo := NewTransactionRepository(db)
	walletID := uuid.New()

	// Internal transfers carry no chain tx hash; several must coexist.
	a := newTestTx(walletID, "")
	a.Kind = entities.TransactionKindTransferOut
	a.ReferenceID = null.StringFrom("itx-1")
	b := newTestTx(walletID, "")
	b.Kind = entities.TransactionKindTransferIn
	b.ReferenceID = null.StringFrom("itx-1")

	require.NoError(t, repo.Create(context.Background(), a))
	require.NoError(t, repo.Create(context.Background(), b))
}

func TestTransactionRepository_GetByWalletID(t *testing.T) {
	db := newTestDB(t)
	createTransactionTable(t, db)
	repo := NewTransactionRepository(db)
	walletID := uuid.New()

	base := time.Now().UTC().Add(-time.Hour)
	for i := 0; i < 5; i++ {
		tx := newTestTx(walletID, "")
		tx.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		require.NoError(t, repo.Create(context.Background(), tx))
	}
	// Another wallet's rows stay out of the listing.
	require.NoError(t, repo.Create(context.Background(), newTestTx(uuid.New(), "")))

	txs, total, err := repo.GetByWalletID(context.Background(), walletID, 2, 0)
	require.NoError(t, err)
	assert.Equal(t, 5, total)
	require.Len(t, txs, 2)
	assert.True(t, txs[0].CreatedAt.After(txs[1].CreatedAt), "newest first")

	txs, total, err = repo.GetByWalletID(context.Background(), walletID, 2, 4)
	require.NoError(t, err)
	assert.Equal(t, 5, total)
	assert.Len(t, txs, 1)

	// limit 0 lists everything.
	txs, _, err = repo.GetByWalletID(context.Background(), walletID, 0, 0)
	require.NoError(t, err)
	assert.Len(t, txs, 5)
}

func TestTransactionRepository_UpdateStatus(t *testing.T) {
	db := newTestDB(t)
	createTransactionTable(t, db)
	repo := NewTransactionRepository(db)

	tx := newTestTx(uuid.New(), "0xhash1")
	require.NoError(t, repo.Create(context.Background(), tx))

	require.NoError(t, repo.UpdateStatus(context.Background(), tx.ID, entities.TransactionStatusConfirmed))

	got, err := repo.GetByID(context.Background(), tx.ID)
	require.NoError(t, err)
	assert.Equal(t, entities.TransactionStatusConfirmed, got.Status)

	// Terminal states never change again.
	err = repo.UpdateStatus(context.Background(), tx.ID, entities.TransactionStatusFailed)
	assert.ErrorIs(t, err, domainerrors.ErrNotFound)

	got, err = repo.GetByID(context.Background(), tx.ID)
	require.NoError(t, err)
	assert.Equal(t, entities.TransactionStatusConfirmed, got.Status)
}
