// Package config loads server configuration.
//
// Sources, lowest precedence first: built-in defaults, config.yaml, a .env
// file, then the process environment. Environment keys use the DONATIONS_
// prefix with dots replaced by underscores, so payment.secret_key is read
// from DONATIONS_PAYMENT_SECRET_KEY.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const envPrefix = "DONATIONS"

const (
	DriverSQLite = "sqlite"
	DriverMySQL  = "mysql"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Log      LogConfig      `mapstructure:"log"`
	Database DatabaseConfig `mapstructure:"database"`
	Payment  PaymentConfig  `mapstructure:"payment"`
}

type ServerConfig struct {
	Port int `mapstructure:"port"`
	// BaseURL prefixes absolute links (QR codes, receipts). Derived from
	// the request when empty.
	BaseURL string `mapstructure:"base_url"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

type DatabaseConfig struct {
	Driver string      `mapstructure:"driver"`
	Path   string      `mapstructure:"path"` // sqlite file, or ":memory:"
	MySQL  MySQLConfig `mapstructure:"mysql"`
}

type MySQLConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
}

type PaymentConfig struct {
	PublicKey string        `mapstructure:"public_key"`
	SecretKey string        `mapstructure:"secret_key"`
	Currency  string        `mapstructure:"currency"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.base_url", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("database.driver", DriverSQLite)
	v.SetDefault("database.path", "data/donations.db")
	v.SetDefault("database.mysql.host", "127.0.0.1")
	v.SetDefault("database.mysql.port", 3306)
	v.SetDefault("database.mysql.user", "root")
	v.SetDefault("database.mysql.password", "")
	v.SetDefault("database.mysql.dbname", "donations")
	v.SetDefault("payment.public_key", "")
	v.SetDefault("payment.secret_key", "")
	v.SetDefault("payment.currency", "usd")
	v.SetDefault("payment.timeout", "15s")
}

// Load reads configuration. configFile may be empty, in which case
// config.yaml is looked up in the working directory and is optional.
// A missing .env file is not an error.
func Load(configFile string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("config: loading .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: reading %s: %w", configFile, err)
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("config: reading config.yaml: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: decoding: %w", err)
	}
	cfg.Database.Driver = strings.ToLower(strings.TrimSpace(cfg.Database.Driver))
	cfg.Payment.Currency = strings.ToLower(strings.TrimSpace(cfg.Payment.Currency))
	return &cfg, nil
}

// Validate reports every problem at once.
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d is out of range", c.Server.Port))
	}
	if _, err := c.SlogLevel(); err != nil {
		errs = append(errs, err)
	}

	switch c.Database.Driver {
	case DriverSQLite:
		if c.Database.Path == "" {
			errs = append(errs, errors.New("database.path is required for sqlite"))
		}
	case DriverMySQL:
		if c.Database.MySQL.Host == "" || c.Database.MySQL.DBName == "" {
			errs = append(errs, errors.New("database.mysql.host and database.mysql.dbname are required for mysql"))
		}
	default:
		errs = append(errs, fmt.Errorf("database.driver %q is not supported (use sqlite or mysql)", c.Database.Driver))
	}

	if c.Payment.PublicKey == "" {
		errs = append(errs, errors.New("payment.public_key is required"))
	}
	if c.Payment.SecretKey == "" {
		errs = append(errs, errors.New("payment.secret_key is required"))
	}
	if c.Payment.Currency == "" {
		errs = append(errs, errors.New("payment.currency is required"))
	}
	if c.Payment.Timeout <= 0 {
		errs = append(errs, errors.New("payment.timeout must be positive"))
	}

	return errors.Join(errs...)
}

// SlogLevel parses log.level (debug, info, warn, error).
func (c *Config) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return slog.LevelInfo, fmt.Errorf("log.level %q is invalid", c.Log.Level)
	}
	return level, nil
}
