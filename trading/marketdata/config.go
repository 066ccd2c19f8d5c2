package marketdata

import (
	"github.com/tachyontrading/tachyon/config/encoding"
	"github.com/tachyontrading/tachyon/logging"
	"github.com/tachyontrading/tachyon/types"
)

const namedLogger = "mdconsumer"

// Config represents the configuration of the market data consumer.
type Config struct {
	Level encoding.LogLevel `long:"log-level"`

	IncrementalAddress string `long:"incremental-address" description:"multicast group of the incremental stream"`
	SnapshotAddress    string `long:"snapshot-address" description:"multicast group of the snapshot stream"`

	NumTickers uint64 `long:"num-tickers"`
}

// NewDefaultConfig creates an instance of config with default values.
func NewDefaultConfig() Config {
	return Config{
		Level:              encoding.LogLevel{Level: logging.InfoLevel},
		IncrementalAddress: "233.252.14.3:20001",
		SnapshotAddress:    "233.252.14.1:20000",
		NumTickers:         types.MaxTickers,
	}
}
