package usecases

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"chatpay.backend/internal/domain/entities"
	domainerrors "chatpay.backend/internal/domain/errors"
	"chatpay.backend/internal/domain/repositories"
	"chatpay.backend/pkg/logger"
)

// BalanceLedger is the bookkeeping layer over wallet balances. Amounts are
// integer minor units (wei, token base units) carried as decimals; the
// non-negative invariant is enforced by the conditional UPDATE in the
// repository, so a Debit that would overdraw fails instead of interleaving.
type BalanceLedger struct {
	wallets repositories.WalletRepository
}

// timeNow is swapped in tests to pin the UTC day
var timeNow = time.Now

func NewBalanceLedger(wallets repositories.WalletRepository) *BalanceLedger {
	return &BalanceLedger{wallets: wallets}
}

// Debit removes amount from the wallet's asset balance. Returns
// ErrInsufficientBalance when the balance cannot cover it.
func (l *BalanceLedger) Debit(ctx context.Context, walletID uuid.UUID, asset string, amount decimal.Decimal) error {
	if amount.Sign() <= 0 {
		return domainerrors.Wrap("debit amount must be positive", domainerrors.ErrInvalidInput)
	}
	if err := l.wallets.Debit(ctx, walletID, asset, amount); err != nil {
		return err
	}
	return l.wallets.TouchLastTransaction(ctx, walletID)
}

// Credit adds amount to the wallet's asset balance, creating the balance row
// on first use of the asset.
func (l *BalanceLedger) Credit(ctx context.Context, walletID uuid.UUID, asset string, amount decimal.Decimal) error {
	if amount.Sign() <= 0 {
		return domainerrors.Wrap("credit amount must be positive", domainerrors.ErrInvalidInput)
	}
	if err := l.wallets.Credit(ctx, walletID, asset, amount); err != nil {
		return err
	}
	return l.wallets.TouchLastTransaction(ctx, walletID)
}

// CheckWithdrawalLimit verifies amountUSD fits within the wallet's daily USD
// limit and returns the headroom that would remain after the withdrawal. The
// spent counter resets once per UTC day: when the stored reset mark belongs
// to a previous UTC day the counter is zeroed and the reset persisted before
// the check runs. The wallet's in-memory fields reflect the reset on return.
func (l *BalanceLedger) CheckWithdrawalLimit(ctx context.Context, wallet *entities.Wallet, amountUSD decimal.Decimal) (decimal.Decimal, error) {
	now := timeNow().UTC()

	if !entities.SameUTCDay(wallet.LimitResetAt, now) {
		if err := l.wallets.UpdateDailySpent(ctx, wallet.ID, decimal.Zero, now); err != nil {
			return decimal.Zero, err
		}
		wallet.DailySpentUSD = decimal.Zero
		wallet.LimitResetAt = now
		logger.Debug(ctx, "daily spending counter reset",
			zap.String("wallet_id", wallet.ID.String()))
	}

	remaining := wallet.DailyLimitUSD.Sub(wallet.DailySpentUSD).Sub(amountUSD)
	if remaining.Sign() < 0 {
		headroom := wallet.RemainingDailyLimit(now)
		return headroom, domainerrors.NewAppError(429,
			"daily withdrawal limit exceeded, remaining headroom "+headroom.StringFixed(2)+" USD",
			domainerrors.ErrLimitExceeded)
	}
	return remaining, nil
}

// RecordSpend adds amountUSD to the wallet's daily-spent counter. The
// increment and the limit guard run as one conditional UPDATE against the
// stored counter, so a spend racing past CheckWithdrawalLimit still fails
// with ErrLimitExceeded instead of overwriting a concurrent spend. Callers
// run CheckWithdrawalLimit first, so the stored reset mark is already
// current. The in-memory wallet is updated only once the write lands.
func (l *BalanceLedger) RecordSpend(ctx context.Context, wallet *entities.Wallet, amountUSD decimal.Decimal) error {
	if err := l.wallets.AddDailySpent(ctx, wallet.ID, amountUSD); err != nil {
		return err
	}
	wallet.DailySpentUSD = wallet.DailySpentUSD.Add(amountUSD)
	return nil
}
