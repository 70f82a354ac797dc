package blockchain

import (
	"context"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGasPricer_LegacyChain(t *testing.T) {
	backend := &fakeBackend{gasPrice: big.NewInt(1000)}
	client := NewEVMClientWithBackend(big.NewInt(1), backend)
	pricer := NewGasPricer(client)

	quote, err := pricer.Quote(context.Background(), GasTierStandard)
	require.NoError(t, err)
	assert.True(t, quote.Legacy)
	assert.Equal(t, int64(1000), quote.GasPrice.Int64())

	quote, err = pricer.Quote(context.Background(), GasTierFast)
	require.NoError(t, err)
	assert.Equal(t, int64(1200), quote.GasPrice.Int64())

	quote, err = pricer.Quote(context.Background(), GasTierSlow)
	require.NoError(t, err)
	assert.Equal(t, int64(900), quote.GasPrice.Int64())
}

func TestGasPricer_FeeMarketChain(t *testing.T) {
	backend := &fakeBackend{
		baseFee: big.NewInt(100),
		gasTip:  big.NewInt(10),
	}
	client := NewEVMClientWithBackend(big.NewInt(1), backend)
	pricer := NewGasPricer(client)

	quote, err := pricer.Quote(context.Background(), GasTierStandard)
	require.NoError(t, err)
	assert.False(t, quote.Legacy)
	assert.Equal(t, int64(10), quote.MaxPriorityFeePerGas.Int64())
	// maxFee = 2*baseFee + tip
	assert.Equal(t, int64(210), quote.MaxFeePerGas.Int64())

	quote, err = pricer.Quote(context.Background(), GasTierFast)
	require.NoError(t, err)
	assert.Equal(t, int64(12), quote.MaxPriorityFeePerGas.Int64())
	assert.Equal(t, int64(212), quote.MaxFeePerGas.Int64())
}

func TestGasPricer_UnknownTierFallsBackToStandard(t *testing.T) {
	backend := &fakeBackend{gasPrice: big.NewInt(1000)}
	client := NewEVMClientWithBackend(big.NewInt(1), backend)
	pricer := NewGasPricer(client)

	quote, err := pricer.Quote(context.Background(), GasTier("turbo"))
	require.NoError(t, err)
	assert.Equal(t, int64(1000), quote.GasPrice.Int64())
}
