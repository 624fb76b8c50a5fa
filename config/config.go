// Package config loads service configuration from an optional TOML file,
// environment variables and defaults, in that order of precedence.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config holds everything main needs to wire the service.
type Config struct {
	HTTPPort     string   `mapstructure:"http_port"`
	PostgresHost string   `mapstructure:"postgres_host"`
	PostgresDSN  string   `mapstructure:"postgres_dsn"`
	JournalPath  string   `mapstructure:"journal_path"`
	CORSOrigins  []string `mapstructure:"cors_origins"`
	SeedData     bool     `mapstructure:"seed_data"`
	LogLevel     string   `mapstructure:"log_level"`
}

// Load reads configuration. path may be empty, in which case only env vars
// (prefixed WORKSHOP_) and defaults apply.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetDefault("http_port", "8080")
	v.SetDefault("postgres_host", "localhost:5432")
	v.SetDefault("postgres_dsn", "")
	v.SetDefault("journal_path", "./data/journal")
	v.SetDefault("cors_origins", []string{"http://localhost:5173", "http://localhost:3000"})
	v.SetDefault("seed_data", true)
	v.SetDefault("log_level", "info")

	v.SetEnvPrefix("WORKSHOP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	if cfg.PostgresDSN == "" {
		cfg.PostgresDSN = fmt.Sprintf("postgresql://postgres:postgrespassword@%s/postgres", cfg.PostgresHost)
	}
	return &cfg, nil
}
