package trading

import (
	"time"

	"github.com/tachyontrading/tachyon/config/encoding"
	"github.com/tachyontrading/tachyon/libs/num"
	"github.com/tachyontrading/tachyon/logging"
	"github.com/tachyontrading/tachyon/trading/engine"
	"github.com/tachyontrading/tachyon/trading/gateway"
	"github.com/tachyontrading/tachyon/trading/marketdata"
	"github.com/tachyontrading/tachyon/types"
)

const namedLogger = "trader"

// TickerConfig carries the strategy and risk parameters for one ticker, in
// the order they appear on the command line.
type TickerConfig struct {
	Clip         uint64
	Threshold    num.Decimal
	MaxOrderSize uint64
	MaxPosition  int64
	MaxLoss      num.Decimal
}

// RandomConfig parameterizes the random flow driver.
type RandomConfig struct {
	BasePrice   int64             `long:"base-price" description:"centre of the random price band"`
	PriceBand   int64             `long:"price-band" description:"half width of the random price band"`
	MaxQty      uint64            `long:"max-qty" description:"largest random order size"`
	Interval    encoding.Duration `long:"interval" description:"pause between random order batches"`
	CancelEvery int               `long:"cancel-every" description:"send a cancel roughly every n orders"`
}

// Config represents the configuration of the trading process.
type Config struct {
	Level encoding.LogLevel `long:"log-level"`

	ClientID uint64 `long:"client-id"`
	Algo     string `long:"algo" description:"MAKER, TAKER or RANDOM"`

	Engine     engine.Config     `group:"Engine" namespace:"engine"`
	Gateway    gateway.Config    `group:"Gateway" namespace:"gateway"`
	MarketData marketdata.Config `group:"MarketData" namespace:"marketdata"`
	Random     RandomConfig      `group:"Random" namespace:"random"`

	QueueCapacity int               `long:"queue-capacity" description:"capacity of the inter-thread rings"`
	MaxSilence    encoding.Duration `long:"max-silence" description:"stop after this long without any event"`
	DrainGrace    encoding.Duration `long:"drain-grace" description:"how long shutdown waits for queues to drain"`

	Tickers []TickerConfig
}

// NewDefaultConfig creates an instance of config with default values.
func NewDefaultConfig() Config {
	return Config{
		Level:      encoding.LogLevel{Level: logging.InfoLevel},
		ClientID:   0,
		Algo:       "RANDOM",
		Engine:     engine.NewDefaultConfig(),
		Gateway:    gateway.NewDefaultConfig(),
		MarketData: marketdata.NewDefaultConfig(),
		Random: RandomConfig{
			BasePrice:   100,
			PriceBand:   10,
			MaxQty:      50,
			Interval:    encoding.Duration{Duration: 10 * time.Millisecond},
			CancelEvery: 5,
		},
		QueueCapacity: types.MaxQueuedEvents,
		MaxSilence:    encoding.Duration{Duration: 60 * time.Second},
		DrainGrace:    encoding.Duration{Duration: 5 * time.Second},
		Tickers: []TickerConfig{{
			Clip:         5,
			Threshold:    num.MustDecimalFromString("0.6"),
			MaxOrderSize: 50,
			MaxPosition:  200,
			MaxLoss:      num.MustDecimalFromString("-100"),
		}},
	}
}
