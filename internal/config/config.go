// Package config loads catalog service configuration from an optional .env
// file, an optional YAML file named by CATALOG_CONFIG, and CATALOG_* variables.
// Environment variables win over the file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	envPrefix     = "CATALOG"
	envConfigFile = "CATALOG_CONFIG"

	BackendFile     = "file"
	BackendMemory   = "memory"
	BackendPostgres = "postgres"

	minJWTSecretLen = 32
)

type Config struct {
	HTTP    HTTPConfig    `mapstructure:"http"`
	Log     LogConfig     `mapstructure:"log"`
	Store   StoreConfig   `mapstructure:"store"`
	Auth    AuthConfig    `mapstructure:"auth"`
	Events  EventsConfig  `mapstructure:"events"`
	Metrics MetricsConfig `mapstructure:"metrics"`
}

type HTTPConfig struct {
	Addr            string        `mapstructure:"addr" validate:"required"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"gt=0"`
}

type LogConfig struct {
	Level       string `mapstructure:"level" validate:"oneof=debug info warn error"`
	Development bool   `mapstructure:"development"`
}

type StoreConfig struct {
	Backend string `mapstructure:"backend" validate:"oneof=file memory postgres"`
	Path    string `mapstructure:"path" validate:"required_if=Backend file"`
	DSN     string `mapstructure:"dsn" validate:"required_if=Backend postgres"`
}

type AuthConfig struct {
	Enabled           bool          `mapstructure:"enabled"`
	JWTSecret         string        `mapstructure:"jwt_secret" validate:"required_if=Enabled true"`
	AdminUser         string        `mapstructure:"admin_user" validate:"required_if=Enabled true"`
	AdminPasswordHash string        `mapstructure:"admin_password_hash" validate:"required_if=Enabled true"`
	TokenTTL          time.Duration `mapstructure:"token_ttl" validate:"gt=0"`
}

type EventsConfig struct {
	NATSURL string `mapstructure:"nats_url"`
	Subject string `mapstructure:"subject" validate:"required"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Token   string `mapstructure:"token"`
}

var defaults = map[string]any{
	"http.addr":                ":8082",
	"http.shutdown_timeout":    10 * time.Second,
	"log.level":                "info",
	"log.development":          false,
	"store.backend":            BackendFile,
	"store.path":               "products.json",
	"store.dsn":                "",
	"auth.enabled":             false,
	"auth.jwt_secret":          "",
	"auth.admin_user":          "admin",
	"auth.admin_password_hash": "",
	"auth.token_ttl":           15 * time.Minute,
	"events.nats_url":          "",
	"events.subject":           "catalog",
	"metrics.enabled":          true,
	"metrics.token":            "",
}

var validate = validator.New(validator.WithRequiredStructEnabled())

func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}

	if path := strings.TrimSpace(os.Getenv(envConfigFile)); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}

	cfg.Log.Level = strings.ToLower(strings.TrimSpace(cfg.Log.Level))
	cfg.Store.Backend = strings.ToLower(strings.TrimSpace(cfg.Store.Backend))

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if c.Auth.Enabled && len(c.Auth.JWTSecret) < minJWTSecretLen {
		return fmt.Errorf("invalid config: auth.jwt_secret must be at least %d chars", minJWTSecretLen)
	}
	return nil
}
