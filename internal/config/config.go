// Package config loads application configuration from defaults, a YAML file and the environment.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix is the prefix of environment variables read by Load.
// Nested keys are separated by a double underscore: STATUSPAGE_DATABASE__URL.
const EnvPrefix = "STATUSPAGE_"

// Config is the root application configuration.
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Database  DatabaseConfig  `koanf:"database"`
	Log       LogConfig       `koanf:"log"`
	JWT       JWTConfig       `koanf:"jwt"`
	CORS      CORSConfig      `koanf:"cors"`
	Auth      AuthConfig      `koanf:"auth"`
	Live      LiveConfig      `koanf:"live"`
	Bootstrap BootstrapConfig `koanf:"bootstrap"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host              string        `koanf:"host"`
	Port              string        `koanf:"port"`
	MetricsPort       string        `koanf:"metrics_port"`
	ReadTimeout       time.Duration `koanf:"read_timeout"`
	ReadHeaderTimeout time.Duration `koanf:"read_header_timeout"`
	WriteTimeout      time.Duration `koanf:"write_timeout"`
	IdleTimeout       time.Duration `koanf:"idle_timeout"`
	RequestTimeout    time.Duration `koanf:"request_timeout"`
}

// DatabaseConfig holds PostgreSQL settings.
type DatabaseConfig struct {
	URL             string        `koanf:"url"`
	MaxOpenConns    int           `koanf:"max_open_conns"`
	MaxIdleConns    int           `koanf:"max_idle_conns"`
	ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime"`
	ConnectTimeout  time.Duration `koanf:"connect_timeout"`
	ConnectAttempts int           `koanf:"connect_attempts"`
	AutoMigrate     bool          `koanf:"auto_migrate"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// JWTConfig holds bearer token settings.
type JWTConfig struct {
	SecretKey     string        `koanf:"secret_key"`
	Issuer        string        `koanf:"issuer"`
	TokenDuration time.Duration `koanf:"token_duration"`
}

// CORSConfig holds cross-origin settings.
type CORSConfig struct {
	AllowedOrigins []string `koanf:"allowed_origins"`
}

// AuthConfig holds password hashing and login throttling settings.
type AuthConfig struct {
	BcryptCost      int           `koanf:"bcrypt_cost"`
	LoginRateLimit  int           `koanf:"login_rate_limit"`
	LoginRateWindow time.Duration `koanf:"login_rate_window"`
}

// LiveConfig holds live update channel settings.
type LiveConfig struct {
	BufferSize   int           `koanf:"buffer_size"`
	PingInterval time.Duration `koanf:"ping_interval"`
	WriteTimeout time.Duration `koanf:"write_timeout"`
	InboundRate  float64       `koanf:"inbound_rate"`
	InboundBurst int           `koanf:"inbound_burst"`
}

// BootstrapConfig describes the admin account created on an empty database.
type BootstrapConfig struct {
	AdminEmail    string `koanf:"admin_email"`
	AdminPassword string `koanf:"admin_password"`
}

var defaults = map[string]interface{}{
	"server.host":                "0.0.0.0",
	"server.port":                "4000",
	"server.metrics_port":        "9090",
	"server.read_timeout":        "15s",
	"server.read_header_timeout": "5s",
	"server.write_timeout":       "15s",
	"server.idle_timeout":        "60s",
	"server.request_timeout":     "60s",

	"database.max_open_conns":    10,
	"database.max_idle_conns":    2,
	"database.conn_max_lifetime": "30m",
	"database.connect_timeout":   "60s",
	"database.connect_attempts":  5,
	"database.auto_migrate":      true,

	"log.level":  "info",
	"log.format": "json",

	"jwt.issuer":         "algostatus",
	"jwt.token_duration": "1h",

	"cors.allowed_origins": []string{"*"},

	"auth.bcrypt_cost":       10,
	"auth.login_rate_limit":  10,
	"auth.login_rate_window": "1m",

	"live.buffer_size":   64,
	"live.ping_interval": "30s",
	"live.write_timeout": "10s",
	"live.inbound_rate":  5.0,
	"live.inbound_burst": 10,
}

// Load reads configuration. Values are layered: defaults, then the YAML file
// at path (skipped when path is empty), then STATUSPAGE_* environment variables.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	for key, value := range defaults {
		if err := k.Set(key, value); err != nil {
			return nil, fmt.Errorf("set default %s: %w", key, err)
		}
	}

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

// envKey maps STATUSPAGE_DATABASE__URL to database.url.
func envKey(s string) string {
	s = strings.TrimPrefix(s, EnvPrefix)
	return strings.ReplaceAll(strings.ToLower(s), "__", ".")
}

// Validate checks that required settings are present and consistent.
func (c *Config) Validate() error {
	var errs []error

	if c.Database.URL == "" {
		errs = append(errs, errors.New("database.url is required"))
	}
	if c.JWT.SecretKey == "" {
		errs = append(errs, errors.New("jwt.secret_key is required"))
	}
	if c.JWT.TokenDuration <= 0 {
		errs = append(errs, errors.New("jwt.token_duration must be positive"))
	}

	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("log.level must be one of debug, info, warn, error: got %q", c.Log.Level))
	}

	switch c.Log.Format {
	case "json", "text":
	default:
		errs = append(errs, fmt.Errorf("log.format must be json or text: got %q", c.Log.Format))
	}

	if c.Live.BufferSize <= 0 {
		errs = append(errs, errors.New("live.buffer_size must be positive"))
	}

	if (c.Bootstrap.AdminEmail == "") != (c.Bootstrap.AdminPassword == "") {
		errs = append(errs, errors.New("bootstrap.admin_email and bootstrap.admin_password must be set together"))
	}

	return errors.Join(errs...)
}
