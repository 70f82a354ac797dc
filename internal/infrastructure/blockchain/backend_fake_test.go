package blockchain

import (
	"context"
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// fakeBackend is a canned rpcBackend for tests
type fakeBackend struct {
	pendingNonce uint64
	gasPrice     *big.Int
	gasTip       *big.Int
	baseFee      *big.Int // nil simulates a pre-EIP-1559 chain
	gasEstimate  uint64

	balance      *big.Int
	callResult   []byte
	receipt      *types.Receipt
	sendErr      error
	estimateErr  error
	sentTx       *types.Transaction
	estimatedMsg *ethereum.CallMsg
}

func (b *fakeBackend) PendingNonceAt(ctx context.Context, account common.Address) (uint64, error) {
	return b.pendingNonce, nil
}

func (b *fakeBackend) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	if b.gasPrice == nil {
		return nil, errors.New("no gas price configured")
	}
	return new(big.Int).Set(b.gasPrice), nil
}

func (b *fakeBackend) SuggestGasTipCap(ctx context.Context) (*big.Int, error) {
	if b.gasTip == nil {
		return nil, errors.New("no gas tip configured")
	}
	return new(big.Int).Set(b.gasTip), nil
}

func (b *fakeBackend) HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error) {
	return &types.Header{BaseFee: b.baseFee}, nil
}

func (b *fakeBackend) EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error) {
	b.estimatedMsg = &msg
	if b.estimateErr != nil {
		return 0, b.estimateErr
	}
	return b.gasEstimate, nil
}

func (b *fakeBackend) SendTransaction(ctx context.Context, tx *types.Transaction) error {
	if b.sendErr != nil {
		return b.sendErr
	}
	b.sentTx = tx
	return nil
}

func (b *fakeBackend) TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	if b.receipt == nil {
		return nil, ethereum.NotFound
	}
	return b.receipt, nil
}

func (b *fakeBackend) BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error) {
	return new(big.Int).Set(b.balance), nil
}

func (b *fakeBackend) CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	return b.callResult, nil
}
