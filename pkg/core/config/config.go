package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// Config holds the complete application configuration
type Config struct {
	Logging LoggingConfig `toml:"logging"`
	Query   QueryConfig   `toml:"query"`
	Shell   ShellConfig   `toml:"shell"`
	Store   StoreConfig   `toml:"store"`
	World   WorldConfig   `toml:"world"`
	Server  ServerConfig  `toml:"server"`
	Batch   BatchConfig   `toml:"batch"`
}

// LoggingConfig holds logger settings
type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// QueryConfig holds query engine limits
type QueryConfig struct {
	MaxInputLength int `toml:"max_input_length"`
	MaxComponents  int `toml:"max_components"`
}

// ShellConfig holds interactive shell settings
type ShellConfig struct {
	Prompt      string `toml:"prompt"`
	HistoryFile string `toml:"history_file"`
	History     *bool  `toml:"history"`
	MaxListed   int    `toml:"max_listed"`
}

// HistoryEnabled reports whether shell history is on (default true)
func (s ShellConfig) HistoryEnabled() bool {
	return s.History == nil || *s.History
}

// StoreConfig holds snapshot database settings
type StoreConfig struct {
	Path string `toml:"path"`
}

// WorldConfig holds fixture settings
type WorldConfig struct {
	Path     string `toml:"path"`
	Generate int    `toml:"generate"`
}

// ServerConfig holds network surface settings
type ServerConfig struct {
	Host             string   `toml:"host"`
	GRPCPort         int      `toml:"grpc_port"`
	WebSocketAddr    string   `toml:"websocket_addr"`
	KeepaliveTime    Duration `toml:"keepalive_time"`
	KeepaliveTimeout Duration `toml:"keepalive_timeout"`
	ReadTimeout      Duration `toml:"read_timeout"`
	EnableReflection bool     `toml:"enable_reflection"`

	// Parsed statements are cached by query text
	StatementCacheSize int      `toml:"statement_cache_size"`
	StatementCacheTTL  Duration `toml:"statement_cache_ttl"`
}

// BatchConfig holds batch runner settings
type BatchConfig struct {
	Workers int      `toml:"workers"`
	Timeout Duration `toml:"timeout"`
}

// Duration wraps time.Duration for TOML parsing
type Duration struct {
	time.Duration
}

// UnmarshalText parses a duration string
func (d *Duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText formats the duration as a string
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Default returns a configuration with every default applied
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// Load loads configuration from a TOML file
func Load(path string) (*Config, error) {
	path = os.ExpandEnv(path)

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file not found: %s", path)
	}

	var cfg Config
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyDefaults()
	cfg.expandEnvVars()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadFromEnv loads configuration from the ECSQ_CONFIG environment variable
// or the first default location that exists
func LoadFromEnv() (*Config, error) {
	path := os.Getenv("ECSQ_CONFIG")
	if path == "" {
		defaultPaths := []string{
			"./configs/ecsq.toml",
			"./ecsq.toml",
			filepath.Join(os.Getenv("HOME"), ".config/ecsq/config.toml"),
		}
		for _, p := range defaultPaths {
			if _, err := os.Stat(p); err == nil {
				path = p
				break
			}
		}
	}

	if path == "" {
		return nil, fmt.Errorf("no config file found, set ECSQ_CONFIG or create configs/ecsq.toml")
	}

	return Load(path)
}

// Validate checks values that defaults cannot repair
func (c *Config) Validate() error {
	if c.Query.MaxInputLength < 0 {
		return fmt.Errorf("query.max_input_length must not be negative")
	}
	if c.Query.MaxComponents < 0 {
		return fmt.Errorf("query.max_components must not be negative")
	}
	if c.Server.GRPCPort < 0 || c.Server.GRPCPort > 65535 {
		return fmt.Errorf("server.grpc_port out of range: %d", c.Server.GRPCPort)
	}
	if c.Batch.Workers < 0 {
		return fmt.Errorf("batch.workers must not be negative")
	}
	return nil
}

// applyDefaults sets default values for missing configuration
func (c *Config) applyDefaults() {
	// Logging
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "console"
	}

	// Query
	if c.Query.MaxInputLength == 0 {
		c.Query.MaxInputLength = 4096
	}
	if c.Query.MaxComponents == 0 {
		c.Query.MaxComponents = 64
	}

	// Shell
	if c.Shell.Prompt == "" {
		c.Shell.Prompt = "query> "
	}
	if c.Shell.HistoryFile == "" {
		c.Shell.HistoryFile = filepath.Join(os.Getenv("HOME"), ".ecsq_history")
	}
	if c.Shell.MaxListed == 0 {
		c.Shell.MaxListed = 10
	}

	// Store
	if c.Store.Path == "" {
		c.Store.Path = "./data/world.db"
	}

	// World
	if c.World.Path == "" && c.World.Generate == 0 {
		c.World.Generate = 1000
	}

	// Server
	if c.Server.Host == "" {
		c.Server.Host = "0.0.0.0"
	}
	if c.Server.GRPCPort == 0 {
		c.Server.GRPCPort = 9310
	}
	if c.Server.WebSocketAddr == "" {
		c.Server.WebSocketAddr = ":8310"
	}
	if c.Server.KeepaliveTime.Duration == 0 {
		c.Server.KeepaliveTime.Duration = 30 * time.Second
	}
	if c.Server.KeepaliveTimeout.Duration == 0 {
		c.Server.KeepaliveTimeout.Duration = 10 * time.Second
	}
	if c.Server.ReadTimeout.Duration == 0 {
		c.Server.ReadTimeout.Duration = 60 * time.Second
	}
	if c.Server.StatementCacheSize == 0 {
		c.Server.StatementCacheSize = 1024
	}
	if c.Server.StatementCacheTTL.Duration == 0 {
		c.Server.StatementCacheTTL.Duration = 10 * time.Minute
	}

	// Batch
	if c.Batch.Workers == 0 {
		c.Batch.Workers = 8
	}
	if c.Batch.Timeout.Duration == 0 {
		c.Batch.Timeout.Duration = 30 * time.Second
	}
}

// expandEnvVars expands environment variables in path values
func (c *Config) expandEnvVars() {
	c.Shell.HistoryFile = os.ExpandEnv(c.Shell.HistoryFile)
	c.Store.Path = os.ExpandEnv(c.Store.Path)
	c.World.Path = os.ExpandEnv(c.World.Path)
}

// GRPCAddress returns the gRPC listen address
func (c *Config) GRPCAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.GRPCPort)
}
