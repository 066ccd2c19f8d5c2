package logging

// Config holds the root logger configuration.
type Config struct {
	Environment string `long:"environment" description:"'dev' for console output, anything else for json" choice:"dev" choice:"production"`
	Level       Level
}

// NewDefaultConfig creates an instance of config with default values.
func NewDefaultConfig() Config {
	return Config{
		Environment: "dev",
		Level:       InfoLevel,
	}
}
