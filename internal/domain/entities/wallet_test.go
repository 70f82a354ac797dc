package entities

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestSameUTCDay(t *testing.T) {
	noon := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	assert.True(t, SameUTCDay(noon, noon.Add(11*time.Hour)))
	assert.False(t, SameUTCDay(noon, noon.Add(13*time.Hour)))

	// Comparison happens in UTC regardless of the inputs' zones.
	tokyo := time.FixedZone("JST", 9*3600)
	lateTokyo := time.Date(2026, 3, 11, 8, 0, 0, 0, tokyo) // 2026-03-10 23:00 UTC
	assert.True(t, SameUTCDay(noon, lateTokyo))
}

func TestWallet_RemainingDailyLimit(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	w := &Wallet{
		DailyLimitUSD: decimal.NewFromInt(1000),
		DailySpentUSD: decimal.NewFromInt(400),
		LimitResetAt:  now.Add(-time.Hour),
	}

	assert.True(t, w.RemainingDailyLimit(now).Equal(decimal.NewFromInt(600)))

	// A stale reset mark means the spent counter no longer applies.
	w.LimitResetAt = now.Add(-36 * time.Hour)
	assert.True(t, w.RemainingDailyLimit(now).Equal(decimal.NewFromInt(1000)))

	// Overspent clamps at zero rather than going negative.
	w.LimitResetAt = now.Add(-time.Hour)
	w.DailySpentUSD = decimal.NewFromInt(1200)
	assert.True(t, w.RemainingDailyLimit(now).IsZero())
}
