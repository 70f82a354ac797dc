package repositories

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared&_busy_timeout=5000", t.Name(), time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err, "open sqlite")
	return db
}

func mustExec(t *testing.T, db *gorm.DB, q string, args ...interface{}) {
	t.Helper()
	require.NoError(t, db.Exec(q, args...).Error, "exec failed: query=%s", q)
}

func createWalletTables(t *testing.T, db *gorm.DB) {
	mustExec(t, db, `CREATE TABLE wallets (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL UNIQUE,
		address TEXT NOT NULL UNIQUE,
		encrypted_key TEXT NOT NULL,
		daily_limit_usd NUMERIC NOT NULL,
		daily_spent_usd NUMERIC NOT NULL,
		limit_reset_at DATETIME NOT NULL,
		is_active BOOLEAN DEFAULT 1,
		is_verified BOOLEAN DEFAULT 0,
		last_transaction_at DATETIME,
		created_at DATETIME,
		updated_at DATETIME,
		deleted_at DATETIME
	);`)
	mustExec(t, db, `CREATE TABLE wallet_balances (
		wallet_id TEXT NOT NULL,
		asset TEXT NOT NULL,
		balance NUMERIC NOT NULL,
		updated_at DATETIME,
		PRIMARY KEY (wallet_id, asset)
	);`)
}

func createNonceRecordTable(t *testing.T, db *gorm.DB) {
	mustExec(t, db, `CREATE TABLE nonce_records (
		address TEXT PRIMARY KEY,
		current_nonce INTEGER NOT NULL DEFAULT 0,
		pending_nonces TEXT NOT NULL DEFAULT '[]',
		lock_holder TEXT,
		lock_expiry DATETIME,
		last_synced_at DATETIME,
		created_at DATETIME,
		updated_at DATETIME
	);`)
}

func createTransactionTable(t *testing.T, db *gorm.DB) {
	mustExec(t, db, `CREATE TABLE transactions (
		id TEXT PRIMARY KEY,
		wallet_id TEXT NOT NULL,
		kind TEXT NOT NULL,
		asset TEXT NOT NULL,
		amount NUMERIC NOT NULL,
		amount_usd NUMERIC NOT NULL,
		from_address TEXT,
		to_address TEXT,
		chain_tx_hash TEXT UNIQUE,
		reference_id TEXT,
		status TEXT NOT NULL,
		nonce INTEGER,
		created_at DATETIME,
		updated_at DATETIME
	);`)
}

func createAssetTable(t *testing.T, db *gorm.DB) {
	mustExec(t, db, `CREATE TABLE assets (
		id TEXT PRIMARY KEY,
		symbol TEXT NOT NULL UNIQUE,
		name TEXT NOT NULL,
		decimals INTEGER NOT NULL,
		contract_address TEXT,
		is_native BOOLEAN DEFAULT 0,
		is_active BOOLEAN DEFAULT 1,
		created_at DATETIME,
		updated_at DATETIME
	);`)
}
