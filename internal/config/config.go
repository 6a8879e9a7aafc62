// Package config loads the service configuration from an optional file and
// CARTSYNC_* environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const EnvPrefix = "CARTSYNC"

type Config struct {
	ListenAddr  string            `mapstructure:"listen_addr"`
	Debounce    time.Duration     `mapstructure:"debounce"`
	CartService CartServiceConfig `mapstructure:"cart_service"`
	Redis       RedisConfig       `mapstructure:"redis"`
	Auth        AuthConfig        `mapstructure:"auth"`
	Log         LogConfig         `mapstructure:"log"`
	CORS        CORSConfig        `mapstructure:"cors"`
	Session     SessionConfig     `mapstructure:"session"`
}

type CartServiceConfig struct {
	BaseURL   string        `mapstructure:"base_url"`
	Timeout   time.Duration `mapstructure:"timeout"`
	RateLimit float64       `mapstructure:"rate_limit"`
	Burst     int           `mapstructure:"burst"`
}

// RedisConfig points at the snapshot cache. An empty Addr keeps snapshots in
// process memory.
type RedisConfig struct {
	Addr        string        `mapstructure:"addr"`
	Password    string        `mapstructure:"password"`
	DB          int           `mapstructure:"db"`
	SnapshotTTL time.Duration `mapstructure:"snapshot_ttl"`
}

type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret"`
}

type LogConfig struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type SessionConfig struct {
	RateLimit float64       `mapstructure:"rate_limit"`
	Burst     int           `mapstructure:"burst"`
	IdleAfter time.Duration `mapstructure:"idle_after"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("listen_addr", ":8080")
	v.SetDefault("debounce", 500*time.Millisecond)
	v.SetDefault("cart_service.base_url", "")
	v.SetDefault("cart_service.timeout", 10*time.Second)
	v.SetDefault("cart_service.rate_limit", 20.0)
	v.SetDefault("cart_service.burst", 10)
	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.snapshot_ttl", 24*time.Hour)
	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.development", false)
	v.SetDefault("cors.allowed_origins", []string{"*"})
	v.SetDefault("session.rate_limit", 10.0)
	v.SetDefault("session.burst", 20)
	v.SetDefault("session.idle_after", 30*time.Minute)
}

// Load reads path (if not empty) and the environment. Environment variables
// win over the file, e.g. CARTSYNC_CART_SERVICE_BASE_URL.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the settings the service cannot start without.
func (c *Config) Validate() error {
	var errs []error
	if c.CartService.BaseURL == "" {
		errs = append(errs, errors.New("cart_service.base_url is required"))
	}
	if c.Auth.JWTSecret == "" {
		errs = append(errs, errors.New("auth.jwt_secret is required"))
	}
	if c.Debounce < 0 {
		errs = append(errs, errors.New("debounce cannot be negative"))
	}
	return errors.Join(errs...)
}
