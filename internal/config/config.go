package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"

	"github.com/spf13/viper"
)

// Config represents the complete fskit configuration (v1 schema)
type Config struct {
	Version int `json:"version" mapstructure:"version"`

	// AllowedDirectories lists the sandbox roots. CLI positional
	// arguments overlay this list.
	AllowedDirectories []string `json:"allowedDirectories" mapstructure:"allowedDirectories"`

	// AllowWrite enables mutating access modes. Off by default.
	AllowWrite bool `json:"allowWrite" mapstructure:"allowWrite"`

	// EnableRoots lets MCP clients replace the sandbox roots at runtime
	// via the roots capability.
	EnableRoots bool `json:"enableRoots" mapstructure:"enableRoots"`

	Walker  WalkerConfig  `json:"walker" mapstructure:"walker"`
	Cache   CacheConfig   `json:"cache" mapstructure:"cache"`
	Search  SearchConfig  `json:"search" mapstructure:"search"`
	Logging LoggingConfig `json:"logging" mapstructure:"logging"`
}

// WalkerConfig contains directory traversal limits
type WalkerConfig struct {
	MaxDepth int `json:"maxDepth" mapstructure:"maxDepth"`
}

// CacheConfig contains AST cache configuration
type CacheConfig struct {
	MaxASTEntries int `json:"maxAstEntries" mapstructure:"maxAstEntries"`
}

// SearchConfig contains search concurrency configuration
type SearchConfig struct {
	// Workers bounds concurrent per-file work. 0 means min(NumCPU, 8).
	Workers int `json:"workers" mapstructure:"workers"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Format string `json:"format" mapstructure:"format"`
	Level  string `json:"level" mapstructure:"level"`
}

// DefaultWorkers returns the effective worker count for a configured value.
func DefaultWorkers(configured int) int {
	if configured > 0 {
		return configured
	}
	n := runtime.NumCPU()
	if n > 8 {
		n = 8
	}
	if n < 1 {
		n = 1
	}
	return n
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Version:            1,
		AllowedDirectories: []string{},
		AllowWrite:         false,
		EnableRoots:        false,
		Walker: WalkerConfig{
			MaxDepth: 20,
		},
		Cache: CacheConfig{
			MaxASTEntries: 256,
		},
		Search: SearchConfig{
			Workers: 0,
		},
		Logging: LoggingConfig{
			Format: "human",
			Level:  "info",
		},
	}
}

// LoadConfig loads configuration from <dir>/.fskit/config.json, falling
// back to defaults when no config file exists.
func LoadConfig(dir string) (*Config, error) {
	v := viper.New()

	defaults := DefaultConfig()
	v.SetDefault("version", defaults.Version)
	v.SetDefault("allowWrite", defaults.AllowWrite)
	v.SetDefault("enableRoots", defaults.EnableRoots)
	v.SetDefault("walker.maxDepth", defaults.Walker.MaxDepth)
	v.SetDefault("cache.maxAstEntries", defaults.Cache.MaxASTEntries)
	v.SetDefault("search.workers", defaults.Search.Workers)
	v.SetDefault("logging.format", defaults.Logging.Format)
	v.SetDefault("logging.level", defaults.Logging.Level)

	v.SetConfigName("config")
	v.SetConfigType("json")
	v.AddConfigPath(filepath.Join(dir, ".fskit"))

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return DefaultConfig(), nil
		}
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Save writes the configuration to <dir>/.fskit/config.json
func (c *Config) Save(dir string) error {
	configDir := filepath.Join(dir, ".fskit")
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(filepath.Join(configDir, "config.json"), data, 0644)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Version != 1 {
		return &ConfigError{Field: "version", Message: "unsupported config version"}
	}
	if c.Walker.MaxDepth < 0 {
		return &ConfigError{Field: "walker.maxDepth", Message: "must not be negative"}
	}
	if c.Cache.MaxASTEntries < 1 {
		return &ConfigError{Field: "cache.maxAstEntries", Message: "must be at least 1"}
	}
	if c.Search.Workers < 0 {
		return &ConfigError{Field: "search.workers", Message: "must not be negative"}
	}
	switch c.Logging.Format {
	case "", "human", "json":
	default:
		return &ConfigError{Field: "logging.format", Message: "must be human or json"}
	}
	return nil
}

// ConfigError represents a configuration error
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return "config error in field '" + e.Field + "': " + e.Message
}
