// Package config loads ledger settings from defaults, an optional config
// file and LEDGER_* environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"bank-ledger/pkg/ledger"
	"bank-ledger/pkg/logging"

	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override, with "." mapped to "_"
// (store.redis.addr is read from LEDGER_STORE_REDIS_ADDR).
const EnvPrefix = "LEDGER"

// Store backends.
const (
	BackendFile     = "file"
	BackendMemory   = "memory"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
)

// ErrInvalidConfig is returned by Validate.
var ErrInvalidConfig = errors.New("config: invalid configuration")

// Config is the complete application configuration.
type Config struct {
	Log        LogConfig        `mapstructure:"log"`
	Ledger     LedgerConfig     `mapstructure:"ledger"`
	Store      StoreConfig      `mapstructure:"store"`
	Resilience ResilienceConfig `mapstructure:"resilience"`
	Autosave   AutosaveConfig   `mapstructure:"autosave"`
	HTTP       HTTPConfig       `mapstructure:"http"`
	Metrics    MetricsConfig    `mapstructure:"metrics"`
}

type LogConfig struct {
	Level       string `mapstructure:"level"`
	Format      string `mapstructure:"format"`
	Development bool   `mapstructure:"development"`
}

// LedgerConfig holds account terms. Amounts and rates are decimal strings so
// they are never rounded through a float.
type LedgerConfig struct {
	Checking TermsConfig `mapstructure:"checking"`
	Savings  TermsConfig `mapstructure:"savings"`
}

type TermsConfig struct {
	InterestRate        string `mapstructure:"interest_rate"`
	DailyLimit          int    `mapstructure:"daily_limit"`
	MonthlyLimit        int    `mapstructure:"monthly_limit"`
	LowBalanceThreshold string `mapstructure:"low_balance_threshold"`
	LowBalanceFee       string `mapstructure:"low_balance_fee"`
}

// StoreConfig selects where snapshots are saved.
// When Replicas lists more than one backend they are chained in that order.
type StoreConfig struct {
	Backend  string         `mapstructure:"backend"`
	Path     string         `mapstructure:"path"`
	Replicas []string       `mapstructure:"replicas"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Postgres PostgresConfig `mapstructure:"postgres"`
}

type RedisConfig struct {
	Addr         string        `mapstructure:"addr"`
	ClusterAddrs []string      `mapstructure:"cluster_addrs"`
	Username     string        `mapstructure:"username"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db"`
	KeyPrefix    string        `mapstructure:"key_prefix"`
	HistoryTTL   time.Duration `mapstructure:"history_ttl"`
}

type PostgresConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`
	SSLMode  string `mapstructure:"sslmode"`
	Keep     int    `mapstructure:"keep"`
}

// ResilienceConfig wraps remote stores with a timeout and circuit breaker.
type ResilienceConfig struct {
	Enabled          bool          `mapstructure:"enabled"`
	Timeout          time.Duration `mapstructure:"timeout"`
	FailureThreshold uint32        `mapstructure:"failure_threshold"`
	OpenTimeout      time.Duration `mapstructure:"open_timeout"`
}

type AutosaveConfig struct {
	Enabled   bool          `mapstructure:"enabled"`
	QueueSize int           `mapstructure:"queue_size"`
	MaxWait   time.Duration `mapstructure:"max_wait"`
}

type HTTPConfig struct {
	Address      string        `mapstructure:"address"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
}

type MetricsConfig struct {
	Namespace string `mapstructure:"namespace"`
}

// SetDefaults registers every key with its default. Keys must be known to
// viper for environment overrides to reach Unmarshal.
func SetDefaults(v *viper.Viper) {
	checking := ledger.DefaultCheckingTerms()
	savings := ledger.DefaultSavingsTerms()

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("log.development", false)

	v.SetDefault("ledger.checking.interest_rate", checking.InterestRate.String())
	v.SetDefault("ledger.checking.daily_limit", 0)
	v.SetDefault("ledger.checking.monthly_limit", 0)
	v.SetDefault("ledger.checking.low_balance_threshold", checking.LowBalanceThreshold.String())
	v.SetDefault("ledger.checking.low_balance_fee", checking.LowBalanceFee.String())
	v.SetDefault("ledger.savings.interest_rate", savings.InterestRate.String())
	v.SetDefault("ledger.savings.daily_limit", savings.DailyLimit)
	v.SetDefault("ledger.savings.monthly_limit", savings.MonthlyLimit)
	v.SetDefault("ledger.savings.low_balance_threshold", "0")
	v.SetDefault("ledger.savings.low_balance_fee", "0")

	v.SetDefault("store.backend", BackendFile)
	v.SetDefault("store.path", "ledger.json")
	v.SetDefault("store.replicas", []string{})
	v.SetDefault("store.redis.addr", "localhost:6379")
	v.SetDefault("store.redis.cluster_addrs", []string{})
	v.SetDefault("store.redis.username", "")
	v.SetDefault("store.redis.password", "")
	v.SetDefault("store.redis.db", 0)
	v.SetDefault("store.redis.key_prefix", "ledger:")
	v.SetDefault("store.redis.history_ttl", 7*24*time.Hour)
	v.SetDefault("store.postgres.host", "localhost")
	v.SetDefault("store.postgres.port", 5432)
	v.SetDefault("store.postgres.user", "postgres")
	v.SetDefault("store.postgres.password", "postgres")
	v.SetDefault("store.postgres.database", "ledger")
	v.SetDefault("store.postgres.sslmode", "disable")
	v.SetDefault("store.postgres.keep", 0)

	v.SetDefault("resilience.enabled", true)
	v.SetDefault("resilience.timeout", 5*time.Second)
	v.SetDefault("resilience.failure_threshold", 5)
	v.SetDefault("resilience.open_timeout", 10*time.Second)

	v.SetDefault("autosave.enabled", false)
	v.SetDefault("autosave.queue_size", 64)
	v.SetDefault("autosave.max_wait", 10*time.Millisecond)

	v.SetDefault("http.address", ":8080")
	v.SetDefault("http.read_timeout", 15*time.Second)
	v.SetDefault("http.write_timeout", 15*time.Second)
	v.SetDefault("http.idle_timeout", 60*time.Second)

	v.SetDefault("metrics.namespace", "ledger")
}

// NewViper returns a viper instance with defaults and environment overrides set up.
func NewViper() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads path (if not empty) into v and decodes the result.
func Load(v *viper.Viper, path string) (Config, error) {
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("config: read %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: decode: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Default returns the configuration with nothing overridden.
func Default() Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		panic(fmt.Sprintf("config: decode defaults: %v", err))
	}
	return cfg
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if _, err := c.Ledger.Terms(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	for _, backend := range c.Store.Backends() {
		switch backend {
		case BackendFile:
			if c.Store.Path == "" {
				return fmt.Errorf("%w: store.path is required for the file backend", ErrInvalidConfig)
			}
		case BackendMemory, BackendRedis, BackendPostgres:
		default:
			return fmt.Errorf("%w: unknown store backend %q", ErrInvalidConfig, backend)
		}
	}

	if c.Store.Postgres.Keep < 0 {
		return fmt.Errorf("%w: store.postgres.keep must not be negative", ErrInvalidConfig)
	}

	if c.Resilience.Timeout < 0 || c.Resilience.OpenTimeout < 0 {
		return fmt.Errorf("%w: resilience timeouts must not be negative", ErrInvalidConfig)
	}
	if c.Resilience.Enabled && c.Resilience.FailureThreshold == 0 {
		return fmt.Errorf("%w: resilience.failure_threshold must be positive", ErrInvalidConfig)
	}

	if c.Autosave.QueueSize < 0 || c.Autosave.MaxWait < 0 {
		return fmt.Errorf("%w: autosave settings must not be negative", ErrInvalidConfig)
	}

	if c.HTTP.Address == "" {
		return fmt.Errorf("%w: http.address is required", ErrInvalidConfig)
	}

	return nil
}

// Backends returns the store backends in chain order.
func (s StoreConfig) Backends() []string {
	if len(s.Replicas) > 0 {
		return s.Replicas
	}
	return []string{s.Backend}
}

// Terms converts the configured terms into a ledger.Config.
func (l LedgerConfig) Terms() (ledger.Config, error) {
	checking, err := l.Checking.terms()
	if err != nil {
		return ledger.Config{}, fmt.Errorf("ledger.checking: %w", err)
	}
	savings, err := l.Savings.terms()
	if err != nil {
		return ledger.Config{}, fmt.Errorf("ledger.savings: %w", err)
	}

	cfg := ledger.Config{Checking: checking, Savings: savings}
	if err := cfg.Validate(); err != nil {
		return ledger.Config{}, err
	}
	return cfg, nil
}

func (t TermsConfig) terms() (ledger.Terms, error) {
	rate, err := ledger.ParseAmount(t.InterestRate)
	if err != nil {
		return ledger.Terms{}, fmt.Errorf("interest_rate: %w", err)
	}
	threshold, err := ledger.ParseAmount(t.LowBalanceThreshold)
	if err != nil {
		return ledger.Terms{}, fmt.Errorf("low_balance_threshold: %w", err)
	}
	fee, err := ledger.ParseAmount(t.LowBalanceFee)
	if err != nil {
		return ledger.Terms{}, fmt.Errorf("low_balance_fee: %w", err)
	}

	return ledger.Terms{
		InterestRate:        rate,
		DailyLimit:          t.DailyLimit,
		MonthlyLimit:        t.MonthlyLimit,
		LowBalanceThreshold: threshold,
		LowBalanceFee:       fee,
	}, nil
}

// Logging converts the log section into a logging.Config.
func (l LogConfig) Logging() logging.Config {
	cfg := logging.DefaultConfig()
	if l.Development {
		cfg = logging.DevelopmentConfig()
	}
	if l.Level != "" {
		cfg.Level = l.Level
	}
	if l.Format != "" {
		cfg.Format = l.Format
	}
	return cfg
}
