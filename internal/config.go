package internal

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// envPrefix prefixes every environment override.
const envPrefix = "SYSOWN_"

// Config is the server configuration.
type Config struct {
	Registry RegistryConfig `yaml:"registry"`
	Log      LogConfig      `yaml:"log"`
}

// LogConfig configures the console and file log sinks.
type LogConfig struct {
	// Level applies to the console sink on stderr.
	Level string `yaml:"level" validate:"oneof=debug info warn error"`
	// File enables a rotated JSON log when set.
	File       string `yaml:"file"`
	FileLevel  string `yaml:"file_level" validate:"oneof=debug info warn error"`
	MaxSizeMB  int    `yaml:"max_size_mb" validate:"gte=1"`
	MaxBackups int    `yaml:"max_backups" validate:"gte=0"`
	MaxAgeDays int    `yaml:"max_age_days" validate:"gte=0"`
	NoColor    bool   `yaml:"no_color"`
}

// DefaultConfig returns the configuration used when nothing overrides it.
func DefaultConfig() *Config {
	return &Config{
		Registry: *DefaultRegistryConfig(),
		Log: LogConfig{
			Level:      "info",
			FileLevel:  "debug",
			MaxSizeMB:  5,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
	}
}

var validate = validator.New()

// Validate checks the configuration against its field constraints.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// LoadConfig builds the configuration from defaults, then envFile, then the
// YAML file at path, then SYSOWN_* environment variables, then overrides,
// and validates the result. An empty envFile tries .env and tolerates its
// absence; an empty path skips the YAML file.
func LoadConfig(path, envFile string, overrides ...func(*Config)) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return nil, fmt.Errorf("load env file %s: %w", envFile, err)
		}
	} else if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := DefaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	for _, override := range overrides {
		override(cfg)
	}

	cfg.Log.Level = strings.ToLower(cfg.Log.Level)
	cfg.Log.FileLevel = strings.ToLower(cfg.Log.FileLevel)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	var errs []error
	str := func(key string, dst *string) {
		if v, ok := os.LookupEnv(envPrefix + key); ok {
			*dst = v
		}
	}
	num := func(key string, dst *int) {
		if v, ok := os.LookupEnv(envPrefix + key); ok {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", envPrefix, key, err))
				return
			}
			*dst = n
		}
	}
	dur := func(key string, dst *time.Duration) {
		if v, ok := os.LookupEnv(envPrefix + key); ok {
			d, err := time.ParseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", envPrefix, key, err))
				return
			}
			*dst = d
		}
	}

	num("MAX_PROCESSES", &cfg.Registry.MaxProcesses)
	num("OUTPUT_BUFFER_SIZE", &cfg.Registry.OutputBufferSize)
	dur("CLEANUP_INTERVAL", &cfg.Registry.CleanupInterval)
	dur("PROCESS_TIMEOUT", &cfg.Registry.ProcessTimeout)
	str("PERSISTENCE_FILE", &cfg.Registry.PersistenceFile)
	str("SHELL", &cfg.Registry.DefaultShell)
	str("LOG_LEVEL", &cfg.Log.Level)
	str("LOG_FILE", &cfg.Log.File)
	str("LOG_FILE_LEVEL", &cfg.Log.FileLevel)

	return errors.Join(errs...)
}
