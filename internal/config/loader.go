package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const (
	envPrefix            = "WIRECHAT"
	envConfigDefaultPath = "WIRECHAT_CONFIG_DEFAULT_PATH"
	defaultConfigName    = "config.yaml"
)

// Load builds configuration from defaults, an optional yaml file and
// WIRECHAT_* env vars, and returns the resolved file path.
// Precedence: defaults < config file < env vars < caller overrides.
//
// Store settings are normalized after loading: the driver name is
// lowercased, a relative sqlite path is taken relative to the config file,
// and a redis prefix always ends in ':'.
func Load(logger *zerolog.Logger, explicitPath string) (Config, string, error) {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	cfg := Default()
	configPath := resolveConfigPath(explicitPath)

	v := newViper(cfg)
	v.SetConfigFile(configPath)
	if err := readOrCreate(v, logger, configPath, cfg); err != nil {
		return cfg, configPath, err
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, configPath, fmt.Errorf("unmarshal config: %w", err)
	}

	normalizeStore(&cfg.Store, filepath.Dir(configPath))
	if err := cfg.Validate(); err != nil {
		return cfg, configPath, fmt.Errorf("invalid config %s: %w", configPath, err)
	}
	if err := prepareStore(cfg.Store); err != nil {
		return cfg, configPath, err
	}

	return cfg, configPath, nil
}

func newViper(cfg Config) *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")

	// Every key needs a default so AutomaticEnv can see it during Unmarshal.
	for key, value := range map[string]any{
		"addr":                cfg.Addr,
		"read_header_timeout": cfg.ReadHeaderTimeout,
		"shutdown_timeout":    cfg.ShutdownTimeout,
		"leave_timeout":       cfg.LeaveTimeout,
		"log_level":           cfg.LogLevel,
		"log_format":          cfg.LogFormat,
		"allowed_origins":     cfg.AllowedOrigins,
		"max_message_bytes":   cfg.MaxMessageBytes,
		"client_buffer":       cfg.ClientBuffer,
		"store.driver":        cfg.Store.Driver,
		"store.sqlite_path":   cfg.Store.SQLitePath,
		"store.redis_addr":    cfg.Store.RedisAddr,
		"store.redis_prefix":  cfg.Store.RedisPrefix,
	} {
		v.SetDefault(key, value)
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// readOrCreate reads the config file, writing the defaults first when it
// does not exist yet. A missing file that cannot be written is not fatal.
func readOrCreate(v *viper.Viper, logger *zerolog.Logger, path string, cfg Config) error {
	err := v.ReadInConfig()
	if err == nil {
		return nil
	}
	var notFound viper.ConfigFileNotFoundError
	if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("read config: %w", err)
	}

	if writeErr := writeDefaultConfig(path, cfg); writeErr != nil {
		logger.Warn().Err(writeErr).Str("path", path).Msg("failed to write default config")
		return nil
	}
	logger.Info().Str("path", path).Msg("created default config")
	if readErr := v.ReadInConfig(); readErr != nil {
		logger.Warn().Err(readErr).Str("path", path).Msg("failed to read config after writing default")
	}
	return nil
}

func normalizeStore(sc *StoreConfig, baseDir string) {
	sc.Driver = strings.ToLower(strings.TrimSpace(sc.Driver))
	if sc.SQLitePath != "" && sc.SQLitePath != ":memory:" && !filepath.IsAbs(sc.SQLitePath) {
		sc.SQLitePath = filepath.Join(baseDir, sc.SQLitePath)
	}
	if sc.RedisPrefix != "" && !strings.HasSuffix(sc.RedisPrefix, ":") {
		sc.RedisPrefix += ":"
	}
}

// prepareStore makes sure the selected backend can be opened.
func prepareStore(sc StoreConfig) error {
	if sc.Driver != StoreSQLite || sc.SQLitePath == ":memory:" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(sc.SQLitePath), 0o755); err != nil {
		return fmt.Errorf("create sqlite directory: %w", err)
	}
	return nil
}

func resolveConfigPath(explicitPath string) string {
	if explicitPath != "" {
		return explicitPath
	}

	if base := os.Getenv(envConfigDefaultPath); base != "" {
		if err := os.MkdirAll(base, 0o755); err == nil {
			return filepath.Join(base, defaultConfigName)
		}
	}

	cwd, err := os.Getwd()
	if err != nil {
		return defaultConfigName
	}
	return filepath.Join(cwd, defaultConfigName)
}

func writeDefaultConfig(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}
