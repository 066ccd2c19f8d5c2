// Package config ties the per-component configurations together and handles
// loading, writing and watching the TOML configuration file.
package config

import (
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"

	"github.com/tachyontrading/tachyon/exchange"
	"github.com/tachyontrading/tachyon/logging"
	"github.com/tachyontrading/tachyon/metrics"
	"github.com/tachyontrading/tachyon/trading"
)

const configFileName = "config.toml"

// Config ties together all other application configuration types.
type Config struct {
	Exchange exchange.Config `group:"Exchange" namespace:"exchange"`
	Trader   trading.Config  `group:"Trader" namespace:"trader"`
	Metrics  metrics.Config  `group:"Metrics" namespace:"metrics"`
	Logging  logging.Config  `group:"Logging" namespace:"logging"`
}

// NewDefaultConfig returns the default configuration for every component.
func NewDefaultConfig() Config {
	return Config{
		Exchange: exchange.NewDefaultConfig(),
		Trader:   trading.NewDefaultConfig(),
		Metrics:  metrics.NewDefaultConfig(),
		Logging:  logging.NewDefaultConfig(),
	}
}

// FilePath returns the path of the config file under the given root.
func FilePath(root string) string {
	return filepath.Join(root, configFileName)
}

// Read loads a configuration from the file under root, on top of defaults.
func Read(root string) (Config, error) {
	cfg := NewDefaultConfig()
	buf, err := os.ReadFile(FilePath(root))
	if err != nil {
		return cfg, errors.Wrap(err, "reading configuration")
	}
	if _, err := toml.Decode(string(buf), &cfg); err != nil {
		return cfg, errors.Wrap(err, "decoding configuration")
	}
	return cfg, nil
}

// Write serialises the configuration to the file under root, creating the
// directory if needed.
func Write(root string, cfg Config) error {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return errors.Wrap(err, "creating configuration directory")
	}
	f, err := os.Create(FilePath(root))
	if err != nil {
		return errors.Wrap(err, "creating configuration file")
	}
	defer f.Close()
	if err := toml.NewEncoder(f).Encode(cfg); err != nil {
		return errors.Wrap(err, "encoding configuration")
	}
	return nil
}
