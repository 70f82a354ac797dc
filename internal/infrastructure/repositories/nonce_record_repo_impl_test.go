package repositories

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	domainerrors "chatpay.backend/internal/domain/errors"
)

func TestNonceRecordRepository_GetOrCreate(t *testing.T) {
	db := newTestDB(t)
	createNonceRecordTable(t, db)
	repo := NewNonceRecordRepository(db)

	rec, err := repo.GetOrCreate(context.Background(), "0xabc")
	require.NoError(t, err)
	assert.Equal(t, "0xabc", rec.Address)
	assert.Zero(t, rec.CurrentNonce)
	assert.Empty(t, rec.PendingNonces)

	// Second call returns the same row.
	rec.CurrentNonce = 5
	rec.AddPending(4)
	require.NoError(t, repo.Save(context.Background(), rec))

	again, err := repo.GetOrCreate(context.Background(), "0xabc")
	require.NoError(t, err)
	assert.Equal(t, uint64(5), again.CurrentNonce)
	assert.Equal(t, []uint64{4}, again.PendingNonces)
}

func TestNonceRecordRepository_Get_NotFound(t *testing.T) {
	db := newTestDB(t)
	createNonceRecordTable(t, db)
	repo := NewNonceRecordRepository(db)

	_, err := repo.Get(context.Background(), "0xmissing")
	assert.ErrorIs(t, err, domainerrors.ErrNotFound)
}

func TestNonceRecordRepository_Save_PendingSetRoundTrip(t *testing.T) {
	db := newTestDB(t)
	createNonceRecordTable(t, db)
	repo := NewNonceRecordRepository(db)

	rec, err := repo.GetOrCreate(context.Background(), "0xabc")
	require.NoError(t, err)

	rec.CurrentNonce = 10
	rec.AddPending(7)
	rec.AddPending(8)
	rec.AddPending(9)
	rec.RemovePending(8)
	now := time.Now().UTC()
	rec.LastSyncedAt = &now
	require.NoError(t, repo.Save(context.Background(), rec))

	got, err := repo.Get(context.Background(), "0xabc")
	require.NoError(t, err)
	assert.Equal(t, uint64(10), got.CurrentNonce)
	assert.Equal(t, []uint64{7, 9}, got.PendingNonces)
	require.NotNil(t, got.LastSyncedAt)

	// Clearing the pending set persists as an empty list, not NULL.
	got.PendingNonces = nil
	require.NoError(t, repo.Save(context.Background(), got))
	got, err = repo.Get(context.Background(), "0xabc")
	require.NoError(t, err)
	assert.Empty(t, got.PendingNonces)
}

func TestNonceRecordRepository_Save_MissingRow(t *testing.T) {
	db := newTestDB(t)
	createNonceRecordTable(t, db)
	repo := NewNonceRecordRepository(db)

	rec, err := repo.GetOrCreate(context.Background(), "0xabc")
	require.NoError(t, err)
	rec.Address = "0xother"
	assert.ErrorIs(t, repo.Save(context.Background(), rec), domainerrors.ErrNotFound)
}

func TestNonceRecordRepository_Save_DoesNotTouchLease(t *testing.T) {
	db := newTestDB(t)
	createNonceRecordTable(t, db)
	repo := NewNonceRecordRepository(db)
	locks := NewNonceLockStore(db)

	rec, err := repo.GetOrCreate(context.Background(), "0xabc")
	require.NoError(t, err)

	ok, err := locks.TryAcquire(context.Background(), "0xabc", "holder-1", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	rec.CurrentNonce = 3
	require.NoError(t, repo.Save(context.Background(), rec))

	got, err := repo.Get(context.Background(), "0xabc")
	require.NoError(t, err)
	assert.Equal(t, "holder-1", got.LockHolder.String)
	require.NotNil(t, got.LockExpiry)
}
