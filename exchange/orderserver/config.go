package orderserver

import (
	"github.com/tachyontrading/tachyon/config/encoding"
	"github.com/tachyontrading/tachyon/logging"
)

const namedLogger = "orderserver"

// Config represents the configuration of the order entry server.
type Config struct {
	Level encoding.LogLevel `long:"log-level"`

	ListenAddress string `long:"listen-address" description:"TCP address order entry sessions connect to"`
}

// NewDefaultConfig creates an instance of config with default values.
func NewDefaultConfig() Config {
	return Config{
		Level:         encoding.LogLevel{Level: logging.InfoLevel},
		ListenAddress: ":12345",
	}
}
