// Package logging provides the structured logger shared by the ledger shell.
// Loggers are rooted at "ledger" and components add their own name
// (ledger.teller, ledger.api, ...). Field helpers keep key names uniform.
package logging

import (
	"fmt"
	"os"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Environment variables read by ConfigFromEnv.
const (
	EnvLevel  = "LEDGER_LOG_LEVEL"
	EnvFormat = "LEDGER_LOG_FORMAT"
	EnvDev    = "LEDGER_LOG_DEV"
)

// RootName names the root logger.
const RootName = "ledger"

// Logger is a wrapper around zap.Logger
type Logger struct {
	*zap.Logger
}

// Config holds logging configuration
type Config struct {
	// Name of the root logger (default "ledger")
	Name string
	// Level is debug, info, warn, error, dpanic, panic or fatal
	Level string
	// Format is json or console
	Format string
	// OutputPaths and ErrorOutputPaths are zap sink URLs or file paths
	OutputPaths      []string
	ErrorOutputPaths []string
	// Development makes DPanic panic and enables caller and stack traces
	Development bool
}

// DefaultConfig logs info and above as JSON on stdout.
func DefaultConfig() Config {
	return Config{
		Name:             RootName,
		Level:            "info",
		Format:           "json",
		OutputPaths:      []string{"stdout"},
		ErrorOutputPaths: []string{"stderr"},
	}
}

// DevelopmentConfig logs everything in console format.
func DevelopmentConfig() Config {
	cfg := DefaultConfig()
	cfg.Level = "debug"
	cfg.Format = "console"
	cfg.Development = true
	return cfg
}

// NewLogger builds a logger from config. Options are passed to zap, which
// lets tests swap the core.
func NewLogger(config Config, opts ...zap.Option) (*Logger, error) {
	level, err := parseLevel(config.Level)
	if err != nil {
		return nil, err
	}

	encoderConfig := zap.NewProductionEncoderConfig()
	if config.Development {
		encoderConfig = zap.NewDevelopmentEncoderConfig()
	}
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.EncodeDuration = zapcore.StringDurationEncoder

	zapConfig := zap.Config{
		Level:             zap.NewAtomicLevelAt(level),
		Development:       config.Development,
		DisableCaller:     !config.Development,
		DisableStacktrace: !config.Development,
		Encoding:          config.Format,
		EncoderConfig:     encoderConfig,
		OutputPaths:       config.OutputPaths,
		ErrorOutputPaths:  config.ErrorOutputPaths,
	}

	zl, err := zapConfig.Build(opts...)
	if err != nil {
		return nil, fmt.Errorf("logging: build %s logger: %w", config.Format, err)
	}

	name := config.Name
	if name == "" {
		name = RootName
	}
	return &Logger{zl.Named(name)}, nil
}

// NewLoggerFromEnv builds DefaultConfig overridden by the LEDGER_LOG_* variables.
func NewLoggerFromEnv() (*Logger, error) {
	return NewLogger(ConfigFromEnv(DefaultConfig()))
}

// ConfigFromEnv overrides base with the LEDGER_LOG_* environment variables.
// LEDGER_LOG_DEV=true switches to DevelopmentConfig first.
func ConfigFromEnv(base Config) Config {
	config := base
	if os.Getenv(EnvDev) == "true" {
		config = DevelopmentConfig()
		config.Name = base.Name
	}
	if level := os.Getenv(EnvLevel); level != "" {
		config.Level = level
	}
	if format := os.Getenv(EnvFormat); format != "" {
		config.Format = format
	}
	return config
}

// NewNoOpLogger creates a logger that discards all logs
func NewNoOpLogger() *Logger {
	return &Logger{zap.NewNop()}
}

// parseLevel accepts zap level names and "warning". Unknown names mean info.
func parseLevel(level string) (zapcore.Level, error) {
	level = strings.ToLower(strings.TrimSpace(level))
	if level == "warning" {
		level = "warn"
	}
	l, err := zapcore.ParseLevel(level)
	if err != nil {
		return zapcore.InfoLevel, nil
	}
	return l, nil
}

// AccountID is the field used for account ids in every log line.
func AccountID(id int) zap.Field {
	return zap.Int("account_id", id)
}

// Kind is the field used for account kinds.
func Kind(kind string) zap.Field {
	return zap.String("kind", kind)
}

// Amount logs an exact decimal amount as a string.
func Amount(d decimal.Decimal) zap.Field {
	return zap.String("amount", d.String())
}

// Date logs a transaction or period date.
func Date(key string, d fmt.Stringer) zap.Field {
	return zap.Stringer(key, d)
}

// Store names the snapshot store an operation ran against.
func Store(name string) zap.Field {
	return zap.String("store", name)
}

// SnapshotID identifies a saved snapshot.
func SnapshotID(id string) zap.Field {
	return zap.String("snapshot_id", id)
}

// With creates a child logger with additional fields
func (l *Logger) With(fields ...zap.Field) *Logger {
	return &Logger{l.Logger.With(fields...)}
}

// Named creates a child logger with a name
func (l *Logger) Named(name string) *Logger {
	return &Logger{l.Logger.Named(name)}
}

// ForAccount returns a child logger tagged with the account's id and kind.
func (l *Logger) ForAccount(id int, kind string) *Logger {
	return l.With(AccountID(id), Kind(kind))
}

// Sync flushes any buffered log entries
func (l *Logger) Sync() error {
	return l.Logger.Sync()
}

// global is a no-op until SetGlobal is called.
var global = NewNoOpLogger()

// SetGlobal sets the global logger instance
func SetGlobal(logger *Logger) {
	global = logger
}

// Global returns the global logger instance
func Global() *Logger {
	return global
}

// L returns the global logger instance (short form)
func L() *Logger {
	return global
}
