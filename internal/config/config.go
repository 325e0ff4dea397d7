package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

type ServerConfig struct {
	Address string `mapstructure:"address"`
	Port    int    `mapstructure:"port"`
	Mode    string `mapstructure:"mode"`
}

type DatabaseConfig struct {
	Driver  string `mapstructure:"driver"` // sqlite | postgres
	Path    string `mapstructure:"path"`
	DSN     string `mapstructure:"dsn"`
	LogMode bool   `mapstructure:"log_mode"`
}

type JWTConfig struct {
	Secret string `mapstructure:"secret"`
	Issuer string `mapstructure:"issuer"`
}

type LogConfig struct {
	Level       string `mapstructure:"level"`
	Environment string `mapstructure:"environment"`
}

type RedisConfig struct {
	Addr           string `mapstructure:"addr"`
	Password       string `mapstructure:"password"`
	DB             int    `mapstructure:"db"`
	// LockTTLSeconds is the expiry of each redis lock; held locks are extended
	// every third of it, so a crashed instance frees its keys within one TTL.
	LockTTLSeconds int    `mapstructure:"lock_ttl_seconds"`
}

type LedgerConfig struct {
	CurrentPeriod       string `mapstructure:"current_period"`
	EscalationThreshold string `mapstructure:"escalation_threshold"`
	Currency            string `mapstructure:"currency"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	JWT      JWTConfig      `mapstructure:"jwt"`
	Log      LogConfig      `mapstructure:"log"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Ledger   LedgerConfig   `mapstructure:"ledger"`
	CORS     CORSConfig     `mapstructure:"cors"`
}

var (
	appConfig *Config
	loadErr   error
	once      sync.Once
)

// Load reads configuration once. A .env file next to the binary is loaded first
// when present, then config file values are overridden by PCL_* variables
// (e.g. PCL_SERVER_PORT=9000, PCL_LEDGER_CURRENT_PERIOD=2026).
func Load(path string) (*Config, error) {
	once.Do(func() {
		appConfig, loadErr = read(path)
	})
	return appConfig, loadErr
}

// Get returns the loaded global configuration.
func Get() *Config {
	return appConfig
}

func read(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	if path == "" {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	} else {
		v.SetConfigFile(path)
	}

	v.SetEnvPrefix("PCL") // petty cash ledger
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.address", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "release")
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "data/ledger.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.environment", "production")
	v.SetDefault("redis.lock_ttl_seconds", 10)
	v.SetDefault("ledger.escalation_threshold", "0.75")
	v.SetDefault("ledger.currency", "COP")
}

// Validate rejects settings the ledger cannot run with.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "sqlite":
		if c.Database.Path == "" {
			return errors.New("config: database.path is required for sqlite")
		}
	case "postgres":
		if c.Database.DSN == "" {
			return errors.New("config: database.dsn is required for postgres")
		}
	default:
		return fmt.Errorf("config: unsupported database driver %q", c.Database.Driver)
	}
	if c.JWT.Secret == "" {
		return errors.New("config: jwt.secret is required")
	}
	if c.Ledger.CurrentPeriod == "" {
		return errors.New("config: ledger.current_period is required")
	}
	if _, err := c.Ledger.Threshold(); err != nil {
		return err
	}
	return nil
}

// Threshold parses the petty cash escalation ratio; it must lie in (0, 1].
func (l LedgerConfig) Threshold() (decimal.Decimal, error) {
	d, err := decimal.NewFromString(l.EscalationThreshold)
	if err != nil {
		return decimal.Zero, fmt.Errorf("config: ledger.escalation_threshold: %w", err)
	}
	if !d.IsPositive() || d.GreaterThan(decimal.NewFromInt(1)) {
		return decimal.Zero, fmt.Errorf("config: ledger.escalation_threshold must be in (0, 1], got %s", d)
	}
	return d, nil
}
