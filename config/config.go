package config

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

type ServerConfig struct {
	Port      int    `mapstructure:"port"`
	AdminPort int    `mapstructure:"admin_port"`
	Mode      string `mapstructure:"mode"`
}

type DBConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

type JWTConfig struct {
	SecretKey string `mapstructure:"secret_key"`
	ExpiresIn int    `mapstructure:"expires_in"` // hours
}

type SMTPConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	From     string `mapstructure:"from"`
	AlertTo  string `mapstructure:"alert_to"`
}

// SecurityConfig holds the field-encryption material. SecretKey is the
// low-entropy master secret; the actual AES key is derived from it with
// PBKDF2 and EncryptionSalt.
type SecurityConfig struct {
	SecretKey      string `mapstructure:"secret_key"`
	EncryptionSalt string `mapstructure:"encryption_salt"`
	DataDir        string `mapstructure:"data_dir"`
}

type BackupConfig struct {
	Dir           string `mapstructure:"dir"`
	IntervalHours int    `mapstructure:"interval_hours"`
	Keep          int    `mapstructure:"keep"`
}

type CurrencyConfig struct {
	APIURL    string `mapstructure:"api_url"`
	CacheFile string `mapstructure:"cache_file"`
	CacheTTL  int    `mapstructure:"cache_ttl"` // seconds
}

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	DB       DBConfig       `mapstructure:"db"`
	JWT      JWTConfig      `mapstructure:"jwt"`
	SMTP     SMTPConfig     `mapstructure:"smtp"`
	Security SecurityConfig `mapstructure:"security"`
	Backup   BackupConfig   `mapstructure:"backup"`
	Currency CurrencyConfig `mapstructure:"currency"`

	mu sync.RWMutex
}

// SMTPSettings returns a copy of the mail section. Callers must read through
// this accessor rather than hold the struct: the section is replaced when the
// config file changes on disk.
func (c *Config) SMTPSettings() SMTPConfig {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.SMTP
}

// CurrencySettings returns a copy of the exchange-rate section, same reload
// contract as SMTPSettings.
func (c *Config) CurrencySettings() CurrencyConfig {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.Currency
}

// Reload applies the dynamic sections of next. Server, db, jwt and security
// are deliberately left alone: changing those requires a restart.
func (c *Config) Reload(next *Config) {
	c.mu.Lock()
	c.SMTP = next.SMTP
	c.Currency = next.Currency
	c.mu.Unlock()
}

// JWTExpiry returns the configured token lifetime as a duration.
func (c *Config) JWTExpiry() time.Duration {
	return time.Duration(c.JWT.ExpiresIn) * time.Hour
}

// BackupInterval returns the scheduled-backup period, zero when disabled.
func (c *Config) BackupInterval() time.Duration {
	return time.Duration(c.Backup.IntervalHours) * time.Hour
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.admin_port", 8081)
	v.SetDefault("server.mode", "release")

	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", 5432)
	v.SetDefault("db.user", "postgres")
	v.SetDefault("db.password", "postgres")
	v.SetDefault("db.dbname", "patrimoine")
	v.SetDefault("db.sslmode", "disable")

	v.SetDefault("jwt.expires_in", 24)

	v.SetDefault("smtp.host", "smtp.gmail.com")
	v.SetDefault("smtp.port", 587)

	v.SetDefault("security.data_dir", "data")

	v.SetDefault("backup.dir", "data/backups")
	v.SetDefault("backup.interval_hours", 24)
	v.SetDefault("backup.keep", 7)

	v.SetDefault("currency.api_url", "https://open.er-api.com/v6/latest/EUR")
	v.SetDefault("currency.cache_file", "data/currency_rates_cache.json")
	v.SetDefault("currency.cache_ttl", 3600)
}

// NewConfig loads configuration from config.yaml (optional) with PAT_*
// environment overrides, e.g. PAT_DB_HOST or PAT_JWT_SECRET_KEY.
func NewConfig() (*Config, error) {
	return load("")
}

// NewConfigFromFile loads configuration from an explicit file path.
func NewConfigFromFile(path string) (*Config, error) {
	return load(path)
}

func load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path == "" {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	} else {
		v.SetConfigFile(path)
	}

	v.SetEnvPrefix("PAT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		// Env-only deployments run without a config file.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.JWT.SecretKey == "" {
		return nil, fmt.Errorf("jwt.secret_key is required (PAT_JWT_SECRET_KEY)")
	}
	if cfg.Security.SecretKey == "" {
		return nil, fmt.Errorf("security.secret_key is required (PAT_SECURITY_SECRET_KEY)")
	}
	// security.encryption_salt may stay empty: a random salt is then
	// generated and persisted under security.data_dir on first start.

	// Reload non-structural settings when the file changes on disk. The
	// mail and currency services resolve their section on every use, so
	// the change takes effect on the next send or rate fetch.
	v.OnConfigChange(func(e fsnotify.Event) {
		var next Config
		if err := v.Unmarshal(&next); err != nil {
			return
		}
		cfg.Reload(&next)
	})
	v.WatchConfig()

	return cfg, nil
}
