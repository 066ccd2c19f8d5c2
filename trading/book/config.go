package book

import (
	"github.com/tachyontrading/tachyon/config/encoding"
	"github.com/tachyontrading/tachyon/logging"
	"github.com/tachyontrading/tachyon/types"
)

const namedLogger = "book"

// Config represents the configuration of the client-side order books.
type Config struct {
	Level encoding.LogLevel `long:"log-level"`

	MaxOrderIDs    int `long:"max-order-ids" description:"live order capacity per ticker"`
	MaxPriceLevels int `long:"max-price-levels" description:"price level capacity per ticker"`
}

// NewDefaultConfig creates an instance of config with default values.
func NewDefaultConfig() Config {
	return Config{
		Level:          encoding.LogLevel{Level: logging.InfoLevel},
		MaxOrderIDs:    types.MaxOrderIDs,
		MaxPriceLevels: types.MaxPriceLevels,
	}
}
