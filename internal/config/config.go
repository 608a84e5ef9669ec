package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all configuration for tsdump
type Config struct {
	Storage StorageConfig
	Scan    ScanConfig
	Log     LogConfig
}

type StorageConfig struct {
	Backend  string // Store backend: "memory" (real clients register their own)
	Table    string // Storage table holding the time-series rows
	PageSize int    // Rows per cursor page
}

type ScanConfig struct {
	DeleteWorkers           int // Fixed worker pool size for --batch-delete-older
	ProgressIntervalSeconds int // Seconds between progress lines while deleting
}

type LogConfig struct {
	Level  string
	Format string
}

// Load loads configuration from environment and config file
func Load(configFile string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	// Environment variables
	v.SetEnvPrefix("TSDUMP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Config file (optional)
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("tsdump")
		v.SetConfigType("toml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/tsdump/")
		v.AddConfigPath("$HOME/.tsdump/")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		// Config file not found is OK, use defaults
	}

	cfg := &Config{
		Storage: StorageConfig{
			Backend:  v.GetString("storage.backend"),
			Table:    v.GetString("storage.table"),
			PageSize: v.GetInt("storage.page_size"),
		},
		Scan: ScanConfig{
			DeleteWorkers:           v.GetInt("scan.delete_workers"),
			ProgressIntervalSeconds: v.GetInt("scan.progress_interval_seconds"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("storage.backend", "memory")
	v.SetDefault("storage.table", "tsdb")
	v.SetDefault("storage.page_size", 128)

	v.SetDefault("scan.delete_workers", 16)
	v.SetDefault("scan.progress_interval_seconds", 60)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
}

// Validate checks the constraints the defaults alone cannot enforce
func (c *Config) Validate() error {
	if c.Storage.Table == "" {
		return fmt.Errorf("storage.table must not be empty")
	}
	if c.Storage.PageSize <= 0 {
		return fmt.Errorf("storage.page_size must be positive, got %d", c.Storage.PageSize)
	}
	if c.Scan.DeleteWorkers <= 0 {
		return fmt.Errorf("scan.delete_workers must be positive, got %d", c.Scan.DeleteWorkers)
	}
	if c.Scan.ProgressIntervalSeconds <= 0 {
		return fmt.Errorf("scan.progress_interval_seconds must be positive, got %d", c.Scan.ProgressIntervalSeconds)
	}
	return nil
}
