package marl

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the configuration for connecting to a MongoDB deployment.
type Config struct {
	// URI is the connection string, e.g. "mongodb://localhost:27017".
	URI string `yaml:"uri"`

	// Database is the database the client's collections live in.
	Database string `yaml:"database"`

	// ConnectTimeout bounds the initial connection handshake.
	// Zero means the driver default.
	ConnectTimeout time.Duration `yaml:"connect_timeout"`

	// Logger receives debug output from the typed layer. Optional.
	Logger *slog.Logger `yaml:"-"`
}

// LoadConfig reads a YAML configuration file.
func LoadConfig(path string) (Config, error) {
	var cfg Config
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	if err := cfg.validate(); err != nil {
		return cfg, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.URI == "" {
		return fmt.Errorf("uri is required")
	}
	if c.Database == "" {
		return fmt.Errorf("database is required")
	}
	return nil
}

// cacheKey normalizes the configuration down to the part that
// identifies a distinct driver client.
func (c Config) cacheKey() string {
	return c.URI
}
