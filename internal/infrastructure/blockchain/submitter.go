package blockchain

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

const (
	// plain value transfers to an EOA always cost exactly this much
	nativeTransferGas = uint64(21000)

	// headroom applied on top of the node's gas estimate, in percent
	gasMarginPercent = 120
)

// SubmitRequest describes one outbound transaction. TokenAddress empty means
// a native value transfer; otherwise an ERC-20 transfer call against that
// contract. The private key is used for signing only and is never retained.
type SubmitRequest struct {
	From         string
	To           string
	Amount       *big.Int
	TokenAddress string
	Nonce        uint64
	Tier         GasTier
	Key          *ecdsa.PrivateKey
}

// Submitter builds, signs and broadcasts transactions
type Submitter struct {
	client *EVMClient
	pricer *GasPricer
}

// NewSubmitter creates a new transaction submitter
func NewSubmitter(client *EVMClient, pricer *GasPricer) *Submitter {
	return &Submitter{client: client, pricer: pricer}
}

// erc20TransferData builds calldata for transfer(address,uint256)
func erc20TransferData(to string, amount *big.Int) []byte {
	// transfer(address,uint256) selector: 0xa9059cbb
	data := common.Hex2Bytes("a9059cbb")
	data = append(data, common.LeftPadBytes(common.HexToAddress(to).Bytes(), 32)...)
	data = append(data, common.LeftPadBytes(amount.Bytes(), 32)...)
	return data
}

// Submit builds, signs and broadcasts the transaction, returning the tx
// hash. The caller owns the nonce it passes in: Submit never queries or
// mutates nonce state.
func (s *Submitter) Submit(ctx context.Context, req SubmitRequest) (string, error) {
	var (
		to    common.Address
		value *big.Int
		data  []byte
	)

	if req.TokenAddress == "" {
		to = common.HexToAddress(req.To)
		value = req.Amount
	} else {
		to = common.HexToAddress(req.TokenAddress)
		value = big.NewInt(0)
		data = erc20TransferData(req.To, req.Amount)
	}

	quote, err := s.pricer.Quote(ctx, req.Tier)
	if err != nil {
		return "", fmt.Errorf("gas quote: %w", err)
	}

	gasLimit, err := s.gasLimit(ctx, req, to, value, data)
	if err != nil {
		return "", err
	}

	var tx *types.Transaction
	if quote.Legacy {
		tx = types.NewTx(&types.LegacyTx{
			Nonce:    req.Nonce,
			To:       &to,
			Value:    value,
			Gas:      gasLimit,
			GasPrice: quote.GasPrice,
			Data:     data,
		})
	} else {
		tx = types.NewTx(&types.DynamicFeeTx{
			ChainID:   s.client.ChainID(),
			Nonce:     req.Nonce,
			To:        &to,
			Value:     value,
			Gas:       gasLimit,
			GasFeeCap: quote.MaxFeePerGas,
			GasTipCap: quote.MaxPriorityFeePerGas,
			Data:      data,
		})
	}

	signer := types.LatestSignerForChainID(s.client.ChainID())
	signedTx, err := types.SignTx(tx, signer, req.Key)
	if err != nil {
		return "", fmt.Errorf("sign transaction: %w", err)
	}

	if err := s.client.SendTransaction(ctx, signedTx); err != nil {
		return "", fmt.Errorf("broadcast transaction: %w", err)
	}

	return signedTx.Hash().Hex(), nil
}

func (s *Submitter) gasLimit(ctx context.Context, req SubmitRequest, to common.Address, value *big.Int, data []byte) (uint64, error) {
	if len(data) == 0 {
		return nativeTransferGas, nil
	}

	from := common.HexToAddress(req.From)
	est, err := s.client.EstimateGas(ctx, ethereum.CallMsg{
		From:  from,
		To:    &to,
		Value: value,
		Data:  data,
	})
	if err != nil {
		return 0, fmt.Errorf("estimate gas: %w", err)
	}
	return est * gasMarginPercent / 100, nil
}
