package engine

import (
	"github.com/tachyontrading/tachyon/config/encoding"
	"github.com/tachyontrading/tachyon/logging"
	"github.com/tachyontrading/tachyon/trading/book"
	"github.com/tachyontrading/tachyon/types"
)

const namedLogger = "engine"

// Config represents the configuration of the trade engine.
type Config struct {
	Level encoding.LogLevel `long:"log-level"`

	NumTickers uint64      `long:"num-tickers"`
	Book       book.Config `group:"Book" namespace:"book"`
}

// NewDefaultConfig creates an instance of config with default values.
func NewDefaultConfig() Config {
	return Config{
		Level:      encoding.LogLevel{Level: logging.InfoLevel},
		NumTickers: types.MaxTickers,
		Book:       book.NewDefaultConfig(),
	}
}
