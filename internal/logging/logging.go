// Package logging provides the structured run log. Console progress goes
// through core/ui; this log records what happened to every target and
// subprocess, tagged with the run ID.
package logging

import (
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	// Logger is the global logger instance
	Logger *zap.Logger

	// Sugar is the sugared logger for convenience
	Sugar *zap.SugaredLogger

	// logFile is the file opened for Output, closed on re-initialization
	logFile *os.File
)

// Environment variables that override Config fields
const (
	EnvLevel  = "TRAYLIB_LOG_LEVEL"
	EnvFormat = "TRAYLIB_LOG_FORMAT"
	EnvOutput = "TRAYLIB_LOG_OUTPUT"
)

// Config contains logging configuration
type Config struct {
	// Level is the minimum log level
	Level string `json:"level" yaml:"level"`

	// Format is console or json
	Format string `json:"format" yaml:"format"`

	// Output is stderr, stdout or a file path
	Output string `json:"output" yaml:"output"`

	// Development adds stack traces to error entries
	Development bool `json:"development" yaml:"development"`
}

// DefaultConfig logs warnings and above to stderr.
func DefaultConfig() Config {
	return Config{
		Level:  "warn",
		Format: "console",
		Output: "stderr",
	}
}

// WithEnv returns cfg with the TRAYLIB_LOG_* variables applied over it.
func (cfg Config) WithEnv() Config {
	if v := os.Getenv(EnvLevel); v != "" {
		cfg.Level = v
	}
	if v := os.Getenv(EnvFormat); v != "" {
		cfg.Format = v
	}
	if v := os.Getenv(EnvOutput); v != "" {
		cfg.Output = v
	}
	return cfg
}

// Initialize sets up the global logger. An unparseable level falls back to
// warn.
func Initialize(cfg Config) error {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		level = zapcore.WarnLevel
	}

	sink, file, err := openOutput(cfg.Output)
	if err != nil {
		return err
	}

	opts := []zap.Option{zap.AddCaller()}
	if cfg.Development {
		opts = append(opts, zap.Development(), zap.AddStacktrace(zapcore.ErrorLevel))
	}
	SetLogger(zap.New(zapcore.NewCore(newEncoder(cfg.Format), sink, level), opts...))

	if logFile != nil {
		_ = logFile.Close()
	}
	logFile = file
	return nil
}

func newEncoder(format string) zapcore.Encoder {
	ec := zap.NewProductionEncoderConfig()
	ec.TimeKey = "timestamp"
	ec.EncodeTime = zapcore.ISO8601TimeEncoder
	ec.EncodeDuration = zapcore.StringDurationEncoder

	if strings.EqualFold(format, "json") {
		return zapcore.NewJSONEncoder(ec)
	}
	ec.EncodeLevel = zapcore.CapitalColorLevelEncoder
	return zapcore.NewConsoleEncoder(ec)
}

func openOutput(output string) (zapcore.WriteSyncer, *os.File, error) {
	switch output {
	case "", "stderr":
		return zapcore.Lock(os.Stderr), nil, nil
	case "stdout":
		return zapcore.Lock(os.Stdout), nil, nil
	}
	f, err := os.OpenFile(output, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, nil, err
	}
	return zapcore.AddSync(f), f, nil
}

// SetLogger replaces the global logger. Tests use it to install an
// observer core.
func SetLogger(l *zap.Logger) {
	Logger = l
	Sugar = l.Sugar()
}

// Sync flushes the logger
func Sync() {
	if Logger != nil {
		_ = Logger.Sync()
	}
}

// With returns a logger with additional fields
func With(fields ...zap.Field) *zap.Logger {
	return Logger.With(fields...)
}

// ForRun returns a child logger tagged with the run identifier.
func ForRun(runID string) *zap.Logger {
	return With(zap.String("run_id", runID))
}

// ForStage tags l with a subprocess stage (render, slice) and its model.
func ForStage(l *zap.Logger, stage, model string) *zap.Logger {
	return l.With(zap.String("stage", stage), zap.String("model", model))
}

// Debug logs at debug level
func Debug(msg string, fields ...zap.Field) {
	Logger.Debug(msg, fields...)
}

// Warn logs at warn level
func Warn(msg string, fields ...zap.Field) {
	Logger.Warn(msg, fields...)
}

func init() {
	_ = Initialize(DefaultConfig().WithEnv())
}
