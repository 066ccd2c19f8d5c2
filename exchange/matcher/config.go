package matcher

import (
	"github.com/tachyontrading/tachyon/config/encoding"
	"github.com/tachyontrading/tachyon/logging"
	"github.com/tachyontrading/tachyon/types"
)

const namedLogger = "matcher"

// Config represents the configuration of the matching engine.
type Config struct {
	Level encoding.LogLevel `long:"log-level"`

	NumTickers     uint64 `long:"num-tickers" description:"number of instruments served, ticker ids are 0..n-1"`
	MaxOrderIDs    int    `long:"max-order-ids" description:"order pool capacity per book"`
	MaxPriceLevels int    `long:"max-price-levels" description:"price level pool capacity per book"`
}

// NewDefaultConfig creates an instance of config with default values.
func NewDefaultConfig() Config {
	return Config{
		Level:          encoding.LogLevel{Level: logging.InfoLevel},
		NumTickers:     types.MaxTickers,
		MaxOrderIDs:    types.MaxOrderIDs,
		MaxPriceLevels: types.MaxPriceLevels,
	}
}
