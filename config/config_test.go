package config_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/tachyontrading/tachyon/config"
	"github.com/tachyontrading/tachyon/logging"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteThenReadRoundTrips(t *testing.T) {
	root := t.TempDir()

	cfg := config.NewDefaultConfig()
	cfg.Exchange.OrderServer.ListenAddress = ":23456"
	cfg.Trader.ClientID = 42
	cfg.Trader.Algo = "MAKER"
	cfg.Metrics.Enabled = true
	require.NoError(t, config.Write(root, cfg))

	got, err := config.Read(root)
	require.NoError(t, err)
	assert.Equal(t, ":23456", got.Exchange.OrderServer.ListenAddress)
	assert.Equal(t, uint64(42), got.Trader.ClientID)
	assert.Equal(t, "MAKER", got.Trader.Algo)
	assert.True(t, got.Metrics.Enabled)
	assert.Equal(t, cfg.Trader.Tickers[0].Threshold.String(), got.Trader.Tickers[0].Threshold.String())
}

func TestReadMissingFileFails(t *testing.T) {
	_, err := config.Read(t.TempDir())
	assert.Error(t, err)
}

func TestWatcherNotifiesOnWrite(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, config.Write(root, config.NewDefaultConfig()))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	w, err := config.NewWatcher(ctx, logging.NewTestLogger(), root)
	require.NoError(t, err)

	updated := make(chan config.Config, 1)
	w.OnConfigUpdate(func(cfg config.Config) {
		select {
		case updated <- cfg:
		default:
		}
	})

	next := config.NewDefaultConfig()
	next.Trader.ClientID = 7
	require.NoError(t, config.Write(root, next))
	// some editors replace instead of write; nudge with a direct write too
	f, err := os.OpenFile(config.FilePath(root), os.O_APPEND|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	f.WriteString("\n")
	f.Close()

	select {
	case got := <-updated:
		assert.Equal(t, uint64(7), got.Trader.ClientID)
	case <-time.After(5 * time.Second):
		t.Fatal("watcher never fired")
	}
}
