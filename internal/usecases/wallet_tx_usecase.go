package usecases

import (
	"context"
	"errors"
	"strings"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/volatiletech/null/v8"
	"go.uber.org/zap"
	"chatpay.backend/internal/domain/entities"
	domainerrors "chatpay.backend/internal/domain/errors"
	"chatpay.backend/internal/domain/repositories"
	"chatpay.backend/internal/infrastructure/blockchain"
	"chatpay.backend/pkg/keystore"
	"chatpay.backend/pkg/logger"
	"chatpay.backend/pkg/metrics"
	"chatpay.backend/pkg/utils"
)

// TxSubmitter broadcasts a signed transfer and returns the chain tx hash
type TxSubmitter interface {
	Submit(ctx context.Context, req blockchain.SubmitRequest) (string, error)
}

// WalletTransactionService orchestrates wallet lifecycle and the
// deposit / withdraw / transfer flows on top of the nonce coordinator and
// the balance ledger.
type WalletTransactionService struct {
	wallets  repositories.WalletRepository
	assets   repositories.AssetRepository
	txs      repositories.TransactionRepository
	uow      repositories.UnitOfWork
	nonces   *NonceCoordinator
	ledger   *BalanceLedger
	submit   TxSubmitter
	keys     *keystore.Keystore
	gasTier  blockchain.GasTier
	dailyUSD decimal.Decimal
}

func NewWalletTransactionService(
	wallets repositories.WalletRepository,
	assets repositories.AssetRepository,
	txs repositories.TransactionRepository,
	uow repositories.UnitOfWork,
	nonces *NonceCoordinator,
	ledger *BalanceLedger,
	submit TxSubmitter,
	keys *keystore.Keystore,
	gasTier blockchain.GasTier,
	defaultDailyLimitUSD decimal.Decimal,
) *WalletTransactionService {
	return &WalletTransactionService{
		wallets:  wallets,
		assets:   assets,
		txs:      txs,
		uow:      uow,
		nonces:   nonces,
		ledger:   ledger,
		submit:   submit,
		keys:     keys,
		gasTier:  gasTier,
		dailyUSD: defaultDailyLimitUSD,
	}
}

// generateWalletKey is swapped in tests for deterministic addresses
var generateWalletKey = crypto.GenerateKey

// CreateWallet provisions the custodial wallet for a user. One wallet per
// user: repeated calls return the existing wallet.
func (s *WalletTransactionService) CreateWallet(ctx context.Context, userID uuid.UUID) (*entities.Wallet, error) {
	existing, err := s.wallets.GetByUserID(ctx, userID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, domainerrors.ErrNotFound) {
		return nil, err
	}

	key, err := generateWalletKey()
	if err != nil {
		return nil, domainerrors.Wrap("failed to generate wallet key", err)
	}
	encrypted, err := s.keys.EncryptKey(key)
	if err != nil {
		return nil, domainerrors.Wrap("failed to encrypt wallet key", err)
	}

	wallet := &entities.Wallet{
		ID:            uuid.New(),
		UserID:        userID,
		Address:       crypto.PubkeyToAddress(key.PublicKey).Hex(),
		EncryptedKey:  encrypted,
		DailyLimitUSD: s.dailyUSD,
		DailySpentUSD: decimal.Zero,
		LimitResetAt:  timeNow().UTC(),
		IsActive:      true,
	}

	if err := s.wallets.Create(ctx, wallet); err != nil {
		if errors.Is(err, domainerrors.ErrAlreadyExists) {
			// Lost a creation race; the winner's wallet is the wallet.
			return s.wallets.GetByUserID(ctx, userID)
		}
		return nil, err
	}

	logger.Info(ctx, "custodial wallet created",
		zap.String("user_id", userID.String()),
		zap.String("address", wallet.Address))
	return wallet, nil
}

// GetBalance returns the balance of one asset; a wallet that never held the
// asset reads as zero.
func (s *WalletTransactionService) GetBalance(ctx context.Context, walletID uuid.UUID, asset string) (*entities.WalletBalance, error) {
	if _, err := s.activeAsset(ctx, asset); err != nil {
		return nil, err
	}
	return s.wallets.GetBalance(ctx, walletID, asset)
}

// DepositInput describes an observed on-chain deposit
type DepositInput struct {
	WalletID    uuid.UUID
	Asset       string
	Amount      decimal.Decimal
	AmountUSD   decimal.Decimal
	FromAddress string
	ChainTxHash string
}

// Deposit credits an observed inbound transfer. Idempotent on the chain tx
// hash: replaying the same deposit returns the original transaction row and
// credits nothing.
func (s *WalletTransactionService) Deposit(ctx context.Context, input DepositInput) (*entities.Transaction, error) {
	if input.Amount.Sign() <= 0 {
		return nil, domainerrors.Wrap("deposit amount must be positive", domainerrors.ErrInvalidInput)
	}
	if strings.TrimSpace(input.ChainTxHash) == "" {
		return nil, domainerrors.Wrap("deposit requires a chain tx hash", domainerrors.ErrInvalidInput)
	}
	if _, err := s.activeAsset(ctx, input.Asset); err != nil {
		return nil, err
	}

	wallet, err := s.activeWallet(ctx, input.WalletID)
	if err != nil {
		return nil, err
	}

	tx := &entities.Transaction{
		ID:          uuid.New(),
		WalletID:    wallet.ID,
		Kind:        entities.TransactionKindDeposit,
		Asset:       input.Asset,
		Amount:      input.Amount,
		AmountUSD:   input.AmountUSD,
		FromAddress: input.FromAddress,
		ToAddress:   wallet.Address,
		ChainTxHash: null.StringFrom(input.ChainTxHash),
		Status:      entities.TransactionStatusConfirmed,
	}

	err = s.uow.Do(ctx, func(ctx context.Context) error {
		if err := s.txs.Create(ctx, tx); err != nil {
			return err
		}
		return s.ledger.Credit(ctx, wallet.ID, input.Asset, input.Amount)
	})
	if err != nil {
		if errors.Is(err, domainerrors.ErrAlreadyExists) {
			logger.Info(ctx, "duplicate deposit ignored",
				zap.String("chain_tx_hash", input.ChainTxHash))
			return s.txs.GetByChainTxHash(ctx, input.ChainTxHash)
		}
		return nil, err
	}

	logger.Info(ctx, "deposit credited",
		zap.String("wallet_id", wallet.ID.String()),
		zap.String("asset", input.Asset),
		zap.String("amount", input.Amount.String()),
		zap.String("chain_tx_hash", input.ChainTxHash))
	return tx, nil
}

// WithdrawInput describes an outbound on-chain transfer request
type WithdrawInput struct {
	WalletID  uuid.UUID
	Asset     string
	Amount    decimal.Decimal // minor units
	AmountUSD decimal.Decimal
	ToAddress string
}

// Withdraw sends funds out of a custodial wallet. The flow is: validate and
// fast-fail on balance and daily limit, allocate a nonce, sign and
// broadcast, then mutate balances once the outcome is known. A failed
// broadcast releases the nonce for reissue and leaves balances untouched.
func (s *WalletTransactionService) Withdraw(ctx context.Context, input WithdrawInput) (*entities.Transaction, error) {
	if input.Amount.Sign() <= 0 {
		return nil, domainerrors.Wrap("withdrawal amount must be positive", domainerrors.ErrInvalidInput)
	}
	if strings.TrimSpace(input.ToAddress) == "" {
		return nil, domainerrors.Wrap("withdrawal requires a destination address", domainerrors.ErrInvalidInput)
	}
	asset, err := s.activeAsset(ctx, input.Asset)
	if err != nil {
		return nil, err
	}
	wallet, err := s.activeWallet(ctx, input.WalletID)
	if err != nil {
		return nil, err
	}

	if _, err := s.ledger.CheckWithdrawalLimit(ctx, wallet, input.AmountUSD); err != nil {
		return nil, err
	}

	// Fast-fail before burning a nonce. The authoritative guard is the
	// conditional debit below.
	balance, err := s.wallets.GetBalance(ctx, wallet.ID, input.Asset)
	if err != nil {
		return nil, err
	}
	if balance.Balance.LessThan(input.Amount) {
		return nil, domainerrors.ErrInsufficientBalance
	}

	key, err := s.keys.DecryptKey(wallet.EncryptedKey)
	if err != nil {
		return nil, domainerrors.Wrap("failed to decrypt wallet key", err)
	}

	nonce, err := s.nonces.Allocate(ctx, wallet.Address)
	if err != nil {
		return nil, err
	}

	hash, err := s.submit.Submit(ctx, blockchain.SubmitRequest{
		From:         wallet.Address,
		To:           input.ToAddress,
		Amount:       input.Amount.BigInt(),
		TokenAddress: asset.ContractAddress.String,
		Nonce:        nonce,
		Tier:         s.gasTier,
		Key:          key,
	})
	if err != nil {
		metrics.Submissions.WithLabelValues("failure").Inc()
		logger.Error(ctx, "withdrawal broadcast failed",
			zap.String("wallet_id", wallet.ID.String()),
			zap.Uint64("nonce", nonce),
			zap.Error(err))
		// Hand the nonce slot back; Release escalates if this fails.
		_ = s.nonces.Release(ctx, wallet.Address, nonce, false)
		return nil, domainerrors.Wrap("transaction broadcast failed", domainerrors.ErrSubmissionFailed)
	}
	metrics.Submissions.WithLabelValues("success").Inc()

	tx := &entities.Transaction{
		ID:          uuid.New(),
		WalletID:    wallet.ID,
		Kind:        entities.TransactionKindWithdrawal,
		Asset:       input.Asset,
		Amount:      input.Amount,
		AmountUSD:   input.AmountUSD,
		FromAddress: wallet.Address,
		ToAddress:   input.ToAddress,
		ChainTxHash: null.StringFrom(hash),
		Status:      entities.TransactionStatusSubmitted,
		Nonce:       &nonce,
	}

	err = s.uow.Do(ctx, func(ctx context.Context) error {
		if err := s.ledger.Debit(ctx, wallet.ID, input.Asset, input.Amount); err != nil {
			return err
		}
		if err := s.ledger.RecordSpend(ctx, wallet, input.AmountUSD); err != nil {
			return err
		}
		return s.txs.Create(ctx, tx)
	})

	// The broadcast went out, so the nonce was consumed regardless of how
	// the bookkeeping fared.
	if relErr := s.nonces.Release(ctx, wallet.Address, nonce, true); relErr != nil {
		logger.Warn(ctx, "failed to settle nonce after broadcast",
			zap.String("address", wallet.Address),
			zap.Uint64("nonce", nonce),
			zap.Error(relErr))
	}

	if err != nil {
		// Whatever failed here — a concurrent withdrawal winning the
		// conditional debit or spend, or the transaction-row insert —
		// funds left the hot wallet without a ledger entry. This needs
		// an operator.
		logger.Error(ctx, "withdrawal broadcast without ledger entry",
			zap.String("alert", "critical"),
			zap.String("wallet_id", wallet.ID.String()),
			zap.String("chain_tx_hash", hash),
			zap.Error(err))
		return nil, err
	}

	logger.Info(ctx, "withdrawal submitted",
		zap.String("wallet_id", wallet.ID.String()),
		zap.String("asset", input.Asset),
		zap.String("amount", input.Amount.String()),
		zap.Uint64("nonce", nonce),
		zap.String("chain_tx_hash", hash))
	return tx, nil
}

// TransferInput describes a transfer to an arbitrary destination address
type TransferInput struct {
	FromWalletID uuid.UUID
	Asset        string
	Amount       decimal.Decimal
	AmountUSD    decimal.Decimal
	ToAddress    string
}

// Transfer moves funds to a destination address. When the destination is
// another custodial wallet the transfer settles internally as a paired
// ledger entry without touching the chain; otherwise it degrades to a
// regular withdrawal.
func (s *WalletTransactionService) Transfer(ctx context.Context, input TransferInput) (*entities.Transaction, error) {
	if input.Amount.Sign() <= 0 {
		return nil, domainerrors.Wrap("transfer amount must be positive", domainerrors.ErrInvalidInput)
	}
	if _, err := s.activeAsset(ctx, input.Asset); err != nil {
		return nil, err
	}

	dest, err := s.wallets.GetByAddress(ctx, input.ToAddress)
	if err != nil {
		if errors.Is(err, domainerrors.ErrNotFound) {
			return s.Withdraw(ctx, WithdrawInput{
				WalletID:  input.FromWalletID,
				Asset:     input.Asset,
				Amount:    input.Amount,
				AmountUSD: input.AmountUSD,
				ToAddress: input.ToAddress,
			})
		}
		return nil, err
	}
	if !dest.IsActive {
		return nil, domainerrors.ErrWalletInactive
	}

	from, err := s.activeWallet(ctx, input.FromWalletID)
	if err != nil {
		return nil, err
	}
	if from.ID == dest.ID {
		return nil, domainerrors.Wrap("cannot transfer to the same wallet", domainerrors.ErrInvalidInput)
	}

	// Internal settlement pairs a TRANSFER_OUT with a TRANSFER_IN under a
	// shared reference; no chain tx hash is ever minted for these.
	reference := null.StringFrom("itx-" + uuid.NewString())
	out := &entities.Transaction{
		ID:          uuid.New(),
		WalletID:    from.ID,
		Kind:        entities.TransactionKindTransferOut,
		Asset:       input.Asset,
		Amount:      input.Amount,
		AmountUSD:   input.AmountUSD,
		FromAddress: from.Address,
		ToAddress:   dest.Address,
		ReferenceID: reference,
		Status:      entities.TransactionStatusConfirmed,
	}
	in := &entities.Transaction{
		ID:          uuid.New(),
		WalletID:    dest.ID,
		Kind:        entities.TransactionKindTransferIn,
		Asset:       input.Asset,
		Amount:      input.Amount,
		AmountUSD:   input.AmountUSD,
		FromAddress: from.Address,
		ToAddress:   dest.Address,
		ReferenceID: reference,
		Status:      entities.TransactionStatusConfirmed,
	}

	err = s.uow.Do(ctx, func(ctx context.Context) error {
		if err := s.ledger.Debit(ctx, from.ID, input.Asset, input.Amount); err != nil {
			return err
		}
		if err := s.ledger.Credit(ctx, dest.ID, input.Asset, input.Amount); err != nil {
			return err
		}
		if err := s.txs.Create(ctx, out); err != nil {
			return err
		}
		return s.txs.Create(ctx, in)
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "internal transfer settled",
		zap.String("from_wallet_id", from.ID.String()),
		zap.String("to_wallet_id", dest.ID.String()),
		zap.String("asset", input.Asset),
		zap.String("amount", input.Amount.String()),
		zap.String("reference_id", reference.String))
	return out, nil
}

// GetTransactionHistory lists a wallet's transactions newest-first
func (s *WalletTransactionService) GetTransactionHistory(ctx context.Context, walletID uuid.UUID, page, limit int) ([]*entities.Transaction, utils.PaginationMeta, error) {
	params := utils.GetPaginationParams(page, limit)
	txs, total, err := s.txs.GetByWalletID(ctx, walletID, params.Limit, params.CalculateOffset())
	if err != nil {
		return nil, utils.PaginationMeta{}, err
	}
	return txs, utils.CalculateMeta(int64(total), params.Page, params.Limit), nil
}

// GetNonceInfo exposes the coordinator's diagnostic view for a wallet
func (s *WalletTransactionService) GetNonceInfo(ctx context.Context, walletID uuid.UUID) (*entities.NonceInfo, error) {
	wallet, err := s.wallets.GetByID(ctx, walletID)
	if err != nil {
		return nil, err
	}
	return s.nonces.Info(ctx, wallet.Address)
}

func (s *WalletTransactionService) activeWallet(ctx context.Context, id uuid.UUID) (*entities.Wallet, error) {
	wallet, err := s.wallets.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !wallet.IsActive {
		return nil, domainerrors.ErrWalletInactive
	}
	return wallet, nil
}

func (s *WalletTransactionService) activeAsset(ctx context.Context, symbol string) (*entities.Asset, error) {
	asset, err := s.assets.GetBySymbol(ctx, symbol)
	if err != nil {
		if errors.Is(err, domainerrors.ErrNotFound) {
			return nil, domainerrors.ErrUnsupportedAsset
		}
		return nil, err
	}
	if !asset.IsActive {
		return nil, domainerrors.ErrUnsupportedAsset
	}
	return asset, nil
}
