package shared

import (
	_ "embed"
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Backend   BackendConfig   `toml:"backend"`
	Catalog   CatalogConfig   `toml:"catalog"`
	Database  DatabaseConfig  `toml:"database"`
	Downloads DownloadsConfig `toml:"downloads"`
}

// BackendConfig contains settings for the download backend API.
type BackendConfig struct {
	BaseURL string `toml:"base_url"`
}

// CatalogConfig contains settings for the public music catalog API.
type CatalogConfig struct {
	SearchURL string  `toml:"search_url"`
	LookupURL string  `toml:"lookup_url"`
	Country   string  `toml:"country"`
	Limit     int     `toml:"limit"`
	RateLimit float64 `toml:"rate_limit"` // requests per second
}

// DatabaseConfig contains database connection settings for the local queue cache.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// DownloadsConfig contains settings for completed archive handling.
type DownloadsConfig struct {
	OutputDir string `toml:"output_dir"`
	AutoOpen  bool   `toml:"auto_open"`
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMissingConfig, err)
	}

	var config Config
	if err := toml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	return &config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
