package gateway

import (
	"time"

	"github.com/tachyontrading/tachyon/config/encoding"
	"github.com/tachyontrading/tachyon/logging"
)

const namedLogger = "gateway"

// Config represents the configuration of the order gateway.
type Config struct {
	Level encoding.LogLevel `long:"log-level"`

	ServerAddress    string            `long:"server-address" description:"TCP address of the exchange order server"`
	RetryInterval    encoding.Duration `long:"retry-interval" description:"initial redial backoff"`
	MaxRetryInterval encoding.Duration `long:"max-retry-interval" description:"backoff ceiling for redials"`
}

// NewDefaultConfig creates an instance of config with default values.
func NewDefaultConfig() Config {
	return Config{
		Level:            encoding.LogLevel{Level: logging.InfoLevel},
		ServerAddress:    "127.0.0.1:12345",
		RetryInterval:    encoding.Duration{Duration: 100 * time.Millisecond},
		MaxRetryInterval: encoding.Duration{Duration: 5 * time.Second},
	}
}
