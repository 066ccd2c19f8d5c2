package exchange

import (
	"time"

	"github.com/tachyontrading/tachyon/config/encoding"
	"github.com/tachyontrading/tachyon/exchange/marketdata"
	"github.com/tachyontrading/tachyon/exchange/matcher"
	"github.com/tachyontrading/tachyon/exchange/orderserver"
	"github.com/tachyontrading/tachyon/logging"
	"github.com/tachyontrading/tachyon/types"
)

const namedLogger = "exchange"

// Config represents the configuration of the exchange process.
type Config struct {
	Level encoding.LogLevel `long:"log-level"`

	Matcher     matcher.Config     `group:"Matcher" namespace:"matcher"`
	MarketData  marketdata.Config  `group:"MarketData" namespace:"marketdata"`
	OrderServer orderserver.Config `group:"OrderServer" namespace:"orderserver"`

	QueueCapacity int               `long:"queue-capacity" description:"capacity of the inter-thread rings"`
	DrainGrace    encoding.Duration `long:"drain-grace" description:"how long shutdown waits for queues to drain"`
}

// NewDefaultConfig creates an instance of config with default values.
func NewDefaultConfig() Config {
	return Config{
		Level:         encoding.LogLevel{Level: logging.InfoLevel},
		Matcher:       matcher.NewDefaultConfig(),
		MarketData:    marketdata.NewDefaultConfig(),
		OrderServer:   orderserver.NewDefaultConfig(),
		QueueCapacity: types.MaxQueuedEvents,
		DrainGrace:    encoding.Duration{Duration: 5 * time.Second},
	}
}
