package usecases_test

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"chatpay.backend/internal/domain/entities"
	domainerrors "chatpay.backend/internal/domain/errors"
	"chatpay.backend/internal/infrastructure/blockchain"
)

// Mock UnitOfWork
type MockUnitOfWork struct {
	mock.Mock
}

func (m *MockUnitOfWork) Do(ctx context.Context, f func(context.Context) error) error {
	m.Called(ctx, f)
	return f(ctx)
}

// Mock WalletRepository
type MockWalletRepository struct {
	mock.Mock
}

func (m *MockWalletRepository) Create(ctx context.Context, wallet *entities.Wallet) error {
	args := m.Called(ctx, wallet)
	return args.Error(0)
}

func (m *MockWalletRepository) GetByID(ctx context.Context, id uuid.UUID) (*entities.Wallet, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Wallet), args.Error(1)
}

func (m *MockWalletRepository) GetByUserID(ctx context.Context, userID uuid.UUID) (*entities.Wallet, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Wallet), args.Error(1)
}

func (m *MockWalletRepository) GetByAddress(ctx context.Context, address string) (*entities.Wallet, error) {
	args := m.Called(ctx, address)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Wallet), args.Error(1)
}

func (m *MockWalletRepository) Deactivate(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockWalletRepository) GetBalance(ctx context.Context, walletID uuid.UUID, asset string) (*entities.WalletBalance, error) {
	args := m.Called(ctx, walletID, asset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.WalletBalance), args.Error(1)
}

func (m *MockWalletRepository) Debit(ctx context.Context, walletID uuid.UUID, asset string, amount decimal.Decimal) error {
	args := m.Called(ctx, walletID, asset, amount)
	return args.Error(0)
}

func (m *MockWalletRepository) Credit(ctx context.Context, walletID uuid.UUID, asset string, amount decimal.Decimal) error {
	args := m.Called(ctx, walletID, asset, amount)
	return args.Error(0)
}

func (m *MockWalletRepository) UpdateDailySpent(ctx context.Context, walletID uuid.UUID, spentUSD decimal.Decimal, resetAt time.Time) error {
	args := m.Called(ctx, walletID, spentUSD, resetAt)
	return args.Error(0)
}

func (m *MockWalletRepository) AddDailySpent(ctx context.Context, walletID uuid.UUID, amountUSD decimal.Decimal) error {
	args := m.Called(ctx, walletID, amountUSD)
	return args.Error(0)
}

func (m *MockWalletRepository) TouchLastTransaction(ctx context.Context, walletID uuid.UUID) error {
	args := m.Called(ctx, walletID)
	return args.Error(0)
}

// Mock AssetRepository
type MockAssetRepository struct {
	mock.Mock
}

func (m *MockAssetRepository) GetBySymbol(ctx context.Context, symbol string) (*entities.Asset, error) {
	args := m.Called(ctx, symbol)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Asset), args.Error(1)
}

func (m *MockAssetRepository) List(ctx context.Context) ([]*entities.Asset, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Asset), args.Error(1)
}

// Mock TransactionRepository
type MockTransactionRepository struct {
	mock.Mock
}

func (m *MockTransactionRepository) Create(ctx context.Context, tx *entities.Transaction) error {
	args := m.Called(ctx, tx)
	return args.Error(0)
}

func (m *MockTransactionRepository) GetByID(ctx context.Context, id uuid.UUID) (*entities.Transaction, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Transaction), args.Error(1)
}

func (m *MockTransactionRepository) GetByChainTxHash(ctx context.Context, txHash string) (*entities.Transaction, error) {
	args := m.Called(ctx, txHash)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Transaction), args.Error(1)
}

func (m *MockTransactionRepository) GetByWalletID(ctx context.Context, walletID uuid.UUID, limit, offset int) ([]*entities.Transaction, int, error) {
	args := m.Called(ctx, walletID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]*entities.Transaction), args.Int(1), args.Error(2)
}

func (m *MockTransactionRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status entities.TransactionStatus) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

// Mock TxSubmitter
type MockSubmitter struct {
	mock.Mock
}

func (m *MockSubmitter) Submit(ctx context.Context, req blockchain.SubmitRequest) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

// fakeChain is a canned chain nonce source
type fakeChain struct {
	mu    sync.Mutex
	nonce uint64
	err   error
}

func (c *fakeChain) PendingNonceAt(ctx context.Context, address string) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.nonce, c.err
}

func (c *fakeChain) setNonce(n uint64) {
	c.mu.Lock()
	c.nonce = n
	c.mu.Unlock()
}

// fakeLockStore implements real mutual-exclusion semantics in memory so
// coordinator tests exercise actual contention.
type fakeLockStore struct {
	mu     sync.Mutex
	holder map[string]string
	expiry map[string]time.Time
}

func newFakeLockStore() *fakeLockStore {
	return &fakeLockStore{
		holder: make(map[string]string),
		expiry: make(map[string]time.Time),
	}
}

func (s *fakeLockStore) TryAcquire(ctx context.Context, key, token string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if holder, ok := s.holder[key]; ok && holder != token && time.Now().Before(s.expiry[key]) {
		return false, nil
	}
	s.holder[key] = token
	s.expiry[key] = time.Now().Add(ttl)
	return true, nil
}

func (s *fakeLockStore) Release(ctx context.Context, key, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.holder[key] == token {
		delete(s.holder, key)
		delete(s.expiry, key)
	}
	return nil
}

// fakeNonceRepo is an in-memory nonce record store
type fakeNonceRepo struct {
	mu      sync.Mutex
	records map[string]*entities.NonceRecord
	saveErr error
}

func newFakeNonceRepo() *fakeNonceRepo {
	return &fakeNonceRepo{records: make(map[string]*entities.NonceRecord)}
}

func (r *fakeNonceRepo) GetOrCreate(ctx context.Context, address string) (*entities.NonceRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if rec, ok := r.records[address]; ok {
		return cloneRecord(rec), nil
	}
	rec := &entities.NonceRecord{Address: address}
	r.records[address] = rec
	return cloneRecord(rec), nil
}

func (r *fakeNonceRepo) Get(ctx context.Context, address string) (*entities.NonceRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[address]
	if !ok {
		return nil, domainerrors.ErrNotFound
	}
	return cloneRecord(rec), nil
}

func (r *fakeNonceRepo) Save(ctx context.Context, record *entities.NonceRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.saveErr != nil {
		return r.saveErr
	}
	r.records[record.Address] = cloneRecord(record)
	return nil
}

func (r *fakeNonceRepo) record(address string) *entities.NonceRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	return cloneRecord(r.records[address])
}

func cloneRecord(rec *entities.NonceRecord) *entities.NonceRecord {
	if rec == nil {
		return nil
	}
	clone := *rec
	clone.PendingNonces = append([]uint64(nil), rec.PendingNonces...)
	return &clone
}
