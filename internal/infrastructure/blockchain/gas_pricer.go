package blockchain

import (
	"context"
	"math/big"
)

// GasTier selects how aggressively a transaction bids for inclusion
type GasTier string

const (
	GasTierSlow     GasTier = "slow"
	GasTierStandard GasTier = "standard"
	GasTierFast     GasTier = "fast"
)

// tier multipliers in percent applied to the node's suggestion
var tierPercent = map[GasTier]int64{
	GasTierSlow:     90,
	GasTierStandard: 100,
	GasTierFast:     120,
}

// GasQuote holds pricing for one transaction: either a legacy gas price or
// EIP-1559 fee-market parameters, depending on what the chain supports.
type GasQuote struct {
	Legacy               bool
	GasPrice             *big.Int // legacy only
	MaxFeePerGas         *big.Int
	MaxPriorityFeePerGas *big.Int
}

// GasPricer derives gas parameters from the connected node
type GasPricer struct {
	client *EVMClient
}

// NewGasPricer creates a new gas pricer
func NewGasPricer(client *EVMClient) *GasPricer {
	return &GasPricer{client: client}
}

// Quote returns gas pricing for the given tier. Chains without a base fee
// get legacy pricing; fee-market chains get maxFee = 2*baseFee + tip, which
// survives a doubling of the base fee before the transaction stalls.
func (p *GasPricer) Quote(ctx context.Context, tier GasTier) (*GasQuote, error) {
	pct, ok := tierPercent[tier]
	if !ok {
		pct = tierPercent[GasTierStandard]
	}

	baseFee, err := p.client.BaseFee(ctx)
	if err != nil {
		return nil, err
	}

	if baseFee == nil {
		gasPrice, err := p.client.SuggestGasPrice(ctx)
		if err != nil {
			return nil, err
		}
		return &GasQuote{
			Legacy:   true,
			GasPrice: applyPercent(gasPrice, pct),
		}, nil
	}

	tip, err := p.client.SuggestGasTipCap(ctx)
	if err != nil {
		return nil, err
	}
	tip = applyPercent(tip, pct)

	maxFee := new(big.Int).Mul(baseFee, big.NewInt(2))
	maxFee.Add(maxFee, tip)

	return &GasQuote{
		MaxFeePerGas:         maxFee,
		MaxPriorityFeePerGas: tip,
	}, nil
}

func applyPercent(v *big.Int, pct int64) *big.Int {
	out := new(big.Int).Mul(v, big.NewInt(pct))
	return out.Div(out, big.NewInt(100))
}
