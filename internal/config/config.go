package config

import (
	"errors"
	"fmt"
	"net"
	"time"
)

// Store drivers.
const (
	StoreMemory = "memory"
	StoreSQLite = "sqlite"
	StoreRedis  = "redis"
)

// Config holds server configuration values.
type Config struct {
	Addr              string        `mapstructure:"addr" yaml:"addr"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout" yaml:"read_header_timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
	LeaveTimeout      time.Duration `mapstructure:"leave_timeout" yaml:"leave_timeout"`
	LogLevel          string        `mapstructure:"log_level" yaml:"log_level"`
	LogFormat         string        `mapstructure:"log_format" yaml:"log_format"`
	AllowedOrigins    []string      `mapstructure:"allowed_origins" yaml:"allowed_origins"`
	MaxMessageBytes   int64         `mapstructure:"max_message_bytes" yaml:"max_message_bytes"`
	ClientBuffer      int           `mapstructure:"client_buffer" yaml:"client_buffer"`
	Store             StoreConfig   `mapstructure:"store" yaml:"store"`
}

// StoreConfig selects and configures the roster store backend.
type StoreConfig struct {
	Driver      string `mapstructure:"driver" yaml:"driver"`
	SQLitePath  string `mapstructure:"sqlite_path" yaml:"sqlite_path"`
	RedisAddr   string `mapstructure:"redis_addr" yaml:"redis_addr"`
	RedisPrefix string `mapstructure:"redis_prefix" yaml:"redis_prefix"`
}

// Default returns configuration with reasonable starter defaults.
func Default() Config {
	return Config{
		Addr:              ":8080",
		ReadHeaderTimeout: 5 * time.Second,
		ShutdownTimeout:   5 * time.Second,
		LeaveTimeout:      5 * time.Second,
		LogLevel:          "info",
		LogFormat:         "console",
		AllowedOrigins:    []string{},
		MaxMessageBytes:   1 << 16,
		ClientBuffer:      32,
		Store: StoreConfig{
			Driver:      StoreMemory,
			SQLitePath:  "wirechat-presence.db",
			RedisAddr:   "localhost:6379",
			RedisPrefix: "wirechat:",
		},
	}
}

// UpdateFrom overwrites non-zero values from other config into receiver.
func (c *Config) UpdateFrom(other Config) {
	if other.Addr != "" {
		c.Addr = other.Addr
	}
	if other.ReadHeaderTimeout != 0 {
		c.ReadHeaderTimeout = other.ReadHeaderTimeout
	}
	if other.ShutdownTimeout != 0 {
		c.ShutdownTimeout = other.ShutdownTimeout
	}
	if other.LeaveTimeout != 0 {
		c.LeaveTimeout = other.LeaveTimeout
	}
	if other.LogLevel != "" {
		c.LogLevel = other.LogLevel
	}
	if other.LogFormat != "" {
		c.LogFormat = other.LogFormat
	}
	if len(other.AllowedOrigins) > 0 {
		c.AllowedOrigins = other.AllowedOrigins
	}
	if other.MaxMessageBytes != 0 {
		c.MaxMessageBytes = other.MaxMessageBytes
	}
	if other.ClientBuffer != 0 {
		c.ClientBuffer = other.ClientBuffer
	}
	if other.Store.Driver != "" {
		c.Store.Driver = other.Store.Driver
	}
	if other.Store.SQLitePath != "" {
		c.Store.SQLitePath = other.Store.SQLitePath
	}
	if other.Store.RedisAddr != "" {
		c.Store.RedisAddr = other.Store.RedisAddr
	}
	if other.Store.RedisPrefix != "" {
		c.Store.RedisPrefix = other.Store.RedisPrefix
	}
}

// Validate rejects configurations the server cannot start with.
func (c Config) Validate() error {
	switch c.Store.Driver {
	case StoreMemory, StoreSQLite, StoreRedis:
	default:
		return fmt.Errorf("unknown store driver %q", c.Store.Driver)
	}
	if c.Store.Driver == StoreSQLite && c.Store.SQLitePath == "" {
		return errors.New("store.sqlite_path is required for the sqlite driver")
	}
	if c.Store.Driver == StoreRedis {
		if c.Store.RedisAddr == "" {
			return errors.New("store.redis_addr is required for the redis driver")
		}
		if _, _, err := net.SplitHostPort(c.Store.RedisAddr); err != nil {
			return fmt.Errorf("store.redis_addr: %w", err)
		}
	}
	if c.MaxMessageBytes <= 0 {
		return errors.New("max_message_bytes must be positive")
	}
	return nil
}
