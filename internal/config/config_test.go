package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, DriverSQLite, cfg.Database.Driver)
	assert.Equal(t, "data/donations.db", cfg.Database.Path)
	assert.Equal(t, 3306, cfg.Database.MySQL.Port)
	assert.Equal(t, "usd", cfg.Payment.Currency)
	assert.Equal(t, 15*time.Second, cfg.Payment.Timeout)
}

func TestLoad_File(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9090
  base_url: https://donate.example.org
database:
  driver: MySQL
  mysql:
    host: db.internal
    dbname: giving
payment:
  public_key: pkey_test
  secret_key: skey_test
  currency: EUR
  timeout: 5s
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "https://donate.example.org", cfg.Server.BaseURL)
	assert.Equal(t, DriverMySQL, cfg.Database.Driver)
	assert.Equal(t, "db.internal", cfg.Database.MySQL.Host)
	assert.Equal(t, "giving", cfg.Database.MySQL.DBName)
	assert.Equal(t, "root", cfg.Database.MySQL.User, "defaults fill unset keys")
	assert.Equal(t, "eur", cfg.Payment.Currency)
	assert.Equal(t, 5*time.Second, cfg.Payment.Timeout)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "payment:\n  secret_key: from_file\n")
	t.Setenv("DONATIONS_PAYMENT_SECRET_KEY", "from_env")
	t.Setenv("DONATIONS_SERVER_PORT", "7000")
	t.Setenv("DONATIONS_DATABASE_MYSQL_PASSWORD", "hunter2")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "from_env", cfg.Payment.SecretKey)
	assert.Equal(t, 7000, cfg.Server.Port)
	assert.Equal(t, "hunter2", cfg.Database.MySQL.Password)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func validConfig() *Config {
	return &Config{
		Server:   ServerConfig{Port: 8080},
		Log:      LogConfig{Level: "info"},
		Database: DatabaseConfig{Driver: DriverSQLite, Path: ":memory:"},
		Payment: PaymentConfig{
			PublicKey: "pkey",
			SecretKey: "skey",
			Currency:  "usd",
			Timeout:   time.Second,
		},
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "unknown driver", mutate: func(c *Config) { c.Database.Driver = "postgres" }, wantErr: `database.driver "postgres"`},
		{name: "missing secret key", mutate: func(c *Config) { c.Payment.SecretKey = "" }, wantErr: "payment.secret_key is required"},
		{name: "missing public key", mutate: func(c *Config) { c.Payment.PublicKey = "" }, wantErr: "payment.public_key is required"},
		{name: "bad port", mutate: func(c *Config) { c.Server.Port = 0 }, wantErr: "server.port"},
		{name: "bad log level", mutate: func(c *Config) { c.Log.Level = "loud" }, wantErr: "log.level"},
		{name: "mysql without host", mutate: func(c *Config) { c.Database.Driver = DriverMySQL }, wantErr: "database.mysql.host"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestSlogLevel(t *testing.T) {
	cfg := validConfig()
	cfg.Log.Level = "debug"
	level, err := cfg.SlogLevel()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, level)

	cfg.Log.Level = "WARN"
	level, err = cfg.SlogLevel()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelWarn, level)
}
