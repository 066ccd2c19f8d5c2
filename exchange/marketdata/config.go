package marketdata

import (
	"time"

	"github.com/tachyontrading/tachyon/config/encoding"
	"github.com/tachyontrading/tachyon/logging"
	"github.com/tachyontrading/tachyon/types"
)

const namedLogger = "marketdata"

// Config represents the configuration of the market data path: the
// incremental publisher and the snapshot synthesizer.
type Config struct {
	Level encoding.LogLevel `long:"log-level"`

	IncrementalAddress string            `long:"incremental-address" description:"multicast group for the incremental stream"`
	SnapshotAddress    string            `long:"snapshot-address" description:"multicast group for the snapshot stream"`
	SnapshotInterval   encoding.Duration `long:"snapshot-interval" description:"wall clock interval between snapshot publications"`

	NumTickers  uint64 `long:"num-tickers"`
	MaxOrderIDs int    `long:"max-order-ids" description:"shadow order capacity per ticker"`
}

// NewDefaultConfig creates an instance of config with default values.
func NewDefaultConfig() Config {
	return Config{
		Level:              encoding.LogLevel{Level: logging.InfoLevel},
		IncrementalAddress: "233.252.14.3:20001",
		SnapshotAddress:    "233.252.14.1:20000",
		SnapshotInterval:   encoding.Duration{Duration: 60 * time.Second},
		NumTickers:         types.MaxTickers,
		MaxOrderIDs:        types.MaxOrderIDs,
	}
}
