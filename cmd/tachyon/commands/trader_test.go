package commands

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tachyontrading/tachyon/trading"
)

func TestApplyTraderArgsOverridesIdentityAndTickers(t *testing.T) {
	cfg := trading.NewDefaultConfig()

	err := applyTraderArgs(&cfg, []string{
		"5", "MAKER",
		"10", "0.6", "50", "200", "-100",
		"3", "1.5", "20", "60", "-25",
	})
	require.NoError(t, err)

	assert.Equal(t, uint64(5), cfg.ClientID)
	assert.Equal(t, "MAKER", cfg.Algo)
	require.Len(t, cfg.Tickers, 2)
	assert.Equal(t, uint64(10), cfg.Tickers[0].Clip)
	assert.Equal(t, "0.6", cfg.Tickers[0].Threshold.String())
	assert.Equal(t, int64(200), cfg.Tickers[0].MaxPosition)
	assert.Equal(t, uint64(3), cfg.Tickers[1].Clip)
	assert.Equal(t, "-25", cfg.Tickers[1].MaxLoss.String())
}

func TestApplyTraderArgsKeepsConfiguredTickersWithoutGroups(t *testing.T) {
	cfg := trading.NewDefaultConfig()
	before := len(cfg.Tickers)

	require.NoError(t, applyTraderArgs(&cfg, []string{"7", "TAKER"}))
	assert.Equal(t, uint64(7), cfg.ClientID)
	assert.Equal(t, "TAKER", cfg.Algo)
	assert.Len(t, cfg.Tickers, before)
}

func TestApplyTraderArgsRejectsBadInput(t *testing.T) {
	cfg := trading.NewDefaultConfig()
	assert.Error(t, applyTraderArgs(&cfg, []string{"1"}))
	assert.Error(t, applyTraderArgs(&cfg, []string{"x", "MAKER"}))
	assert.Error(t, applyTraderArgs(&cfg, []string{"1", "MAKER", "10", "0.6"}))
	assert.Error(t, applyTraderArgs(&cfg, []string{"1", "MAKER", "10", "abc", "50", "200", "-100"}))
}
