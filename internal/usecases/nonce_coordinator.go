package usecases

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"chatpay.backend/internal/domain/entities"
	domainerrors "chatpay.backend/internal/domain/errors"
	"chatpay.backend/internal/domain/repositories"
	"chatpay.backend/pkg/logger"
	"chatpay.backend/pkg/metrics"
)

// ChainNonceReader reports the chain's view of an account nonce
type ChainNonceReader interface {
	PendingNonceAt(ctx context.Context, address string) (uint64, error)
}

// NonceCoordinator serializes nonce issuance per wallet address. Allocate and
// Release behave as if serialized per address even across service instances:
// every read-modify-write of a NonceRecord happens under a time-bounded lease
// held in the backing store. The chain remains authoritative — a transaction
// may have been submitted outside this system, so allocation always
// reconciles against the chain-reported nonce.
type NonceCoordinator struct {
	records repositories.NonceRecordRepository
	locks   repositories.LockStore
	cleaner repositories.ExpiredLockCleaner // nil for TTL-native backends
	chain   ChainNonceReader

	leaseTTL        time.Duration
	acquireAttempts int
	acquireBackoff  time.Duration
}

// NewNonceCoordinator creates a new nonce coordinator. cleaner may be nil
// when the lock backend expires leases server-side.
func NewNonceCoordinator(
	records repositories.NonceRecordRepository,
	locks repositories.LockStore,
	cleaner repositories.ExpiredLockCleaner,
	chain ChainNonceReader,
	leaseTTL time.Duration,
	acquireAttempts int,
	acquireBackoff time.Duration,
) *NonceCoordinator {
	if leaseTTL <= 0 {
		leaseTTL = 30 * time.Second
	}
	if acquireAttempts <= 0 {
		acquireAttempts = 10
	}
	if acquireBackoff <= 0 {
		acquireBackoff = 500 * time.Millisecond
	}
	return &NonceCoordinator{
		records:         records,
		locks:           locks,
		cleaner:         cleaner,
		chain:           chain,
		leaseTTL:        leaseTTL,
		acquireAttempts: acquireAttempts,
		acquireBackoff:  acquireBackoff,
	}
}

// acquire claims the per-address lease, retrying with backoff up to the
// attempt budget. Returns the holder token, or ErrLockTimeout.
func (c *NonceCoordinator) acquire(ctx context.Context, address string) (string, error) {
	token := uuid.NewString()
	for attempt := 0; attempt < c.acquireAttempts; attempt++ {
		ok, err := c.locks.TryAcquire(ctx, address, token, c.leaseTTL)
		if err != nil {
			return "", err
		}
		if ok {
			return token, nil
		}
		if attempt == c.acquireAttempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(c.acquireBackoff):
		}
	}
	metrics.NonceLockTimeouts.Inc()
	return "", domainerrors.ErrLockTimeout
}

func (c *NonceCoordinator) releaseLease(ctx context.Context, address, token string) {
	if err := c.locks.Release(ctx, address, token); err != nil {
		// The lease self-expires, so a failed release only delays the next
		// holder by at most the TTL.
		logger.Warn(ctx, "failed to release nonce lease",
			zap.String("address", address), zap.Error(err))
	}
}

// Allocate hands out the next nonce for an address. The value is
// max(chainReportedNonce, localCurrentNonce): local state is never trusted
// blindly. The returned nonce is recorded as pending until Release resolves
// its fate.
func (c *NonceCoordinator) Allocate(ctx context.Context, address string) (uint64, error) {
	token, err := c.acquire(ctx, address)
	if err != nil {
		return 0, err
	}
	defer c.releaseLease(ctx, address, token)

	record, err := c.records.GetOrCreate(ctx, address)
	if err != nil {
		return 0, err
	}

	chainNonce, err := c.chain.PendingNonceAt(ctx, address)
	if err != nil {
		return 0, domainerrors.Wrap("failed to query chain nonce", err)
	}

	// The chain moving past local state while allocations are still in
	// flight means an external actor consumed nonces we believe are
	// pending. Taking max() here would strand every pending allocation, so
	// refuse and leave recovery to an operator Sync.
	if len(record.PendingNonces) > 0 && chainNonce > record.CurrentNonce {
		logger.Warn(ctx, "chain nonce diverged past local state with pending allocations",
			zap.String("address", address),
			zap.Uint64("chain_nonce", chainNonce),
			zap.Uint64("local_nonce", record.CurrentNonce),
			zap.Uint64s("pending", record.PendingNonces))
		return 0, domainerrors.ErrReconciliationRequired
	}

	nonce := record.CurrentNonce
	if chainNonce > nonce {
		nonce = chainNonce
	}

	record.CurrentNonce = nonce + 1
	record.AddPending(nonce)
	if err := c.records.Save(ctx, record); err != nil {
		return 0, err
	}

	logger.Debug(ctx, "nonce allocated",
		zap.String("address", address), zap.Uint64("nonce", nonce))
	return nonce, nil
}

// Release resolves an allocated nonce. On failure it rewinds CurrentNonce
// back to the failed value so the slot can be reissued — but only when no
// pending nonce >= nonce remains, since rewinding past a still-in-flight
// allocation would reissue a claimed value.
func (c *NonceCoordinator) Release(ctx context.Context, address string, nonce uint64, success bool) error {
	err := c.doRelease(ctx, address, nonce, success)
	if err != nil && !success {
		// A pending nonce that never gets released silently blocks every
		// future withdrawal for this wallet.
		metrics.NonceReleaseFailures.Inc()
		logger.Error(ctx, "failed to release nonce after failed submission",
			zap.String("alert", "critical"),
			zap.String("address", address),
			zap.Uint64("nonce", nonce),
			zap.Error(err))
	}
	return err
}

func (c *NonceCoordinator) doRelease(ctx context.Context, address string, nonce uint64, success bool) error {
	token, err := c.acquire(ctx, address)
	if err != nil {
		return err
	}
	defer c.releaseLease(ctx, address, token)

	record, err := c.records.Get(ctx, address)
	if err != nil {
		return err
	}

	record.RemovePending(nonce)

	if !success && nonce < record.CurrentNonce && !record.HasPendingAtOrAbove(nonce) {
		record.CurrentNonce = nonce
		logger.Info(ctx, "nonce rolled back after failed submission",
			zap.String("address", address), zap.Uint64("nonce", nonce))
	}

	return c.records.Save(ctx, record)
}

// Sync force-resets local state to the chain-reported nonce and clears the
// pending set. Unsafe while transactions are genuinely in flight; intended
// for manual operator recovery only.
func (c *NonceCoordinator) Sync(ctx context.Context, address string) (*entities.NonceRecord, error) {
	token, err := c.acquire(ctx, address)
	if err != nil {
		return nil, err
	}
	defer c.releaseLease(ctx, address, token)

	record, err := c.records.GetOrCreate(ctx, address)
	if err != nil {
		return nil, err
	}

	chainNonce, err := c.chain.PendingNonceAt(ctx, address)
	if err != nil {
		return nil, domainerrors.Wrap("failed to query chain nonce", err)
	}

	dropped := len(record.PendingNonces)
	now := time.Now().UTC()
	record.CurrentNonce = chainNonce
	record.PendingNonces = nil
	record.LastSyncedAt = &now

	if err := c.records.Save(ctx, record); err != nil {
		return nil, err
	}

	logger.Warn(ctx, "nonce state force-synced to chain",
		zap.String("address", address),
		zap.Uint64("chain_nonce", chainNonce),
		zap.Int("dropped_pending", dropped))
	return record, nil
}

// Info returns a diagnostic snapshot of local and chain nonce state
func (c *NonceCoordinator) Info(ctx context.Context, address string) (*entities.NonceInfo, error) {
	record, err := c.records.Get(ctx, address)
	if err != nil {
		if errors.Is(err, domainerrors.ErrNotFound) {
			record = &entities.NonceRecord{Address: address}
		} else {
			return nil, err
		}
	}

	chainNonce, err := c.chain.PendingNonceAt(ctx, address)
	if err != nil {
		return nil, domainerrors.Wrap("failed to query chain nonce", err)
	}

	return &entities.NonceInfo{
		Address:       address,
		ChainNonce:    chainNonce,
		LocalNonce:    record.CurrentNonce,
		PendingNonces: record.PendingNonces,
		LockHolder:    record.LockHolder,
		LockExpiry:    record.LockExpiry,
		LastSyncedAt:  record.LastSyncedAt,
		InSync:        chainNonce <= record.CurrentNonce,
	}, nil
}

// CleanupExpiredLocks clears leases whose expiry has passed and returns the
// number cleared. A no-op for lock backends that expire server-side.
func (c *NonceCoordinator) CleanupExpiredLocks(ctx context.Context) (int64, error) {
	if c.cleaner == nil {
		return 0, nil
	}
	cleared, err := c.cleaner.CleanupExpiredLocks(ctx)
	if err != nil {
		return 0, err
	}
	if cleared > 0 {
		metrics.ExpiredLocksCleared.Add(float64(cleared))
		logger.Info(ctx, "cleared expired nonce leases", zap.Int64("count", cleared))
	}
	return cleared, nil
}
