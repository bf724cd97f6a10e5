package darelteb

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/viper"
	"github.com/tfkr-ae/darelteb/codec"
)

// Supported storage backends.
const (
	BackendSQLite = "sqlite"
	BackendFile   = "file"
	BackendMemory = "memory"
)

const (
	configName = "config"
	configType = "yaml"

	defaultSQLiteFile = "darelteb.db"
	defaultJSONFile   = "favorites.json"
)

var (
	// ErrUnknownConfigKey is returned by Config.Set and Config.Get for keys that are not configurable.
	ErrUnknownConfigKey = errors.New("unknown config key")
	// ErrInvalidConfig is returned when a configuration value is not valid.
	ErrInvalidConfig = errors.New("invalid config value")
)

// Config is the application configuration stored as config.yaml in the config directory.
type Config struct {
	viper        *viper.Viper
	ConfigDir    string `mapstructure:"-"`             // Directory holding config.yaml and relative data files
	Backend      string `mapstructure:"backend"`       // sqlite, file or memory
	DataFile     string `mapstructure:"data_file"`     // Data file; empty means the backend default
	FavoritesKey string `mapstructure:"favorites_key"` // Storage key of the favorites payload
	Compression  string `mapstructure:"compression"`   // none, gzip or brotli
	LogLevel     string `mapstructure:"log_level"`     // debug, info, warn or error
	PersistLogs  bool   `mapstructure:"persist_logs"`  // Persist failure logs (sqlite backend only)
}

// configKeys lists the keys accepted by Get and Set, in display order.
var configKeys = []string{"backend", "data_file", "favorites_key", "compression", "log_level", "persist_logs"}

// ConfigKeys returns the configurable keys.
func ConfigKeys() []string {
	return append([]string(nil), configKeys...)
}

// LoadConfig reads config.yaml from appConfigDir, creating the directory and a default
// configuration file on first run.
//
// Parameters:
//   - appConfigDir: Path to the configuration directory
//
// Returns:
//   - *Config: The loaded and validated configuration
//   - error: Directory, read, unmarshal or validation error
func LoadConfig(appConfigDir string) (*Config, error) {
	_, err := os.ReadDir(appConfigDir)
	if err != nil {
		if os.IsNotExist(err) {
			err := os.MkdirAll(appConfigDir, 0700)
			if err != nil {
				return nil, fmt.Errorf("creating config dir %s: %w", appConfigDir, err)
			}
		} else {
			return nil, fmt.Errorf("checking if directory exists %s: %w", appConfigDir, err)
		}
	}

	v := viper.New()
	v.SetConfigName(configName)
	v.SetConfigType(configType)
	v.AddConfigPath(appConfigDir)
	v.SetDefault("backend", BackendSQLite)
	v.SetDefault("data_file", "")
	v.SetDefault("favorites_key", DefaultKey)
	v.SetDefault("compression", string(codec.None))
	v.SetDefault("log_level", "info")
	v.SetDefault("persist_logs", true)

	err = v.ReadInConfig()
	if err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			err = v.SafeWriteConfig()
			if err != nil {
				return nil, fmt.Errorf("writing config file : %w", err)
			}
		} else {
			return nil, fmt.Errorf("reading config file : %w", err)
		}
	}

	cfg := &Config{viper: v}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config to struct : %w", err)
	}
	cfg.ConfigDir = appConfigDir

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// DefaultConfigDir returns the darelteb folder under the user configuration directory.
func DefaultConfigDir() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("getting user config dir : %w", err)
	}
	return filepath.Join(dir, "darelteb"), nil
}

// Validate checks every configuration value.
func (cfg *Config) Validate() error {
	switch cfg.Backend {
	case BackendSQLite, BackendFile, BackendMemory:
	default:
		return fmt.Errorf("%w: backend %q (want sqlite, file or memory)", ErrInvalidConfig, cfg.Backend)
	}

	if strings.TrimSpace(cfg.FavoritesKey) == "" {
		return fmt.Errorf("%w: favorites_key cannot be empty", ErrInvalidConfig)
	}

	if _, err := codec.ParseCompression(cfg.Compression); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	if _, err := ParseLogLevel(cfg.LogLevel); err != nil {
		return err
	}
	return nil
}

// DataPath returns the absolute location of the backend data file.
// Relative data files are resolved against the config directory.
func (cfg *Config) DataPath() string {
	file := cfg.DataFile
	if file == "" {
		switch cfg.Backend {
		case BackendFile:
			file = defaultJSONFile
		default:
			file = defaultSQLiteFile
		}
	}

	if filepath.IsAbs(file) {
		return file
	}
	return filepath.Join(cfg.ConfigDir, file)
}

// Get returns the current value of a configurable key as a string.
func (cfg *Config) Get(key string) (string, error) {
	switch key {
	case "backend":
		return cfg.Backend, nil
	case "data_file":
		return cfg.DataFile, nil
	case "favorites_key":
		return cfg.FavoritesKey, nil
	case "compression":
		return cfg.Compression, nil
	case "log_level":
		return cfg.LogLevel, nil
	case "persist_logs":
		return strconv.FormatBool(cfg.PersistLogs), nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnknownConfigKey, key)
	}
}

// Set validates and stores a configuration value, then writes the configuration file.
// The configuration is left unchanged when validation fails.
func (cfg *Config) Set(key, value string) error {
	updated := *cfg

	switch key {
	case "backend":
		updated.Backend = strings.ToLower(strings.TrimSpace(value))
	case "data_file":
		updated.DataFile = strings.TrimSpace(value)
	case "favorites_key":
		updated.FavoritesKey = value
	case "compression":
		updated.Compression = strings.ToLower(strings.TrimSpace(value))
	case "log_level":
		updated.LogLevel = strings.ToLower(strings.TrimSpace(value))
	case "persist_logs":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("%w: persist_logs %q", ErrInvalidConfig, value)
		}
		updated.PersistLogs = b
	default:
		return fmt.Errorf("%w: %s", ErrUnknownConfigKey, key)
	}

	if err := updated.Validate(); err != nil {
		return err
	}

	if cfg.viper == nil {
		return errors.New("config was not loaded from a file")
	}

	current, _ := updated.Get(key)
	if key == "persist_logs" {
		cfg.viper.Set(key, updated.PersistLogs)
	} else {
		cfg.viper.Set(key, current)
	}
	if err := cfg.viper.WriteConfig(); err != nil {
		return fmt.Errorf("failed to save configuration: %w", err)
	}
	if err := cfg.viper.Unmarshal(cfg); err != nil {
		return fmt.Errorf("unmarshalling config to struct : %w", err)
	}
	return nil
}

// ParseLogLevel maps a configuration value to a slog level.
func ParseLogLevel(level string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("%w: log_level %q", ErrInvalidConfig, level)
	}
}
