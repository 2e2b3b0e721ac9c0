// Package config loads portal-cli settings from defaults, an optional
// config.yaml, a .env file and PORTAL_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds the service endpoints and local paths.
type Config struct {
	UserServiceURL string `mapstructure:"user_service_url"`
	DataServiceURL string `mapstructure:"data_service_url"`
	DBPath         string `mapstructure:"db_path"`
	LogLevel       string `mapstructure:"log_level"`
}

// Validate checks that both service URLs are set.
func (c Config) Validate() error {
	if c.UserServiceURL == "" {
		return errors.New("user service URL is required")
	}
	if c.DataServiceURL == "" {
		return errors.New("data service URL is required")
	}
	return nil
}

// Load reads configuration. configFile may be empty, in which case
// config.yaml is looked up in the working directory and in
// ~/.config/portal-cli; a missing file is not an error.
func Load(configFile string) (Config, error) {
	var cfg Config

	_ = godotenv.Load() // .env is optional

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("PORTAL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath(configDir())
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return cfg, fmt.Errorf("failed to read config: %w", err)
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("failed to decode config: %w", err)
	}

	cfg.UserServiceURL = strings.TrimRight(cfg.UserServiceURL, "/")
	cfg.DataServiceURL = strings.TrimRight(cfg.DataServiceURL, "/")

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("user_service_url", "http://localhost:8000")
	v.SetDefault("data_service_url", "http://localhost:8001")
	v.SetDefault("db_path", DefaultDBPath())
	v.SetDefault("log_level", "warn")
}

// DefaultDBPath is where the session database lives unless overridden.
func DefaultDBPath() string {
	return filepath.Join(configDir(), "portal-cli.db")
}

func configDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "portal-cli")
}
