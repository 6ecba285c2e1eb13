package logger

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/isdmx/coderun/config"
)

// NewFromConfig creates a logger from the logging section of cfg
func NewFromConfig(cfg *config.Config) (*zap.Logger, error) {
	logger, err := New(cfg.Logging.Mode, cfg.Logging.Level)
	if err != nil {
		return nil, err
	}
	return logger.With(zap.String("transport", cfg.Server.Transport)), nil
}

// New creates a new logger instance based on configuration. Output always
// goes to stderr: stdout carries the MCP stdio transport and the JSON
// printed by the run command.
func New(mode, level string) (*zap.Logger, error) {
	cfg, err := buildConfig(mode, level)
	if err != nil {
		return nil, err
	}

	logger, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}
	return logger.Named("coderun"), nil
}

func buildConfig(mode, level string) (zap.Config, error) {
	var cfg zap.Config

	switch mode {
	case "development":
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	case "production":
		cfg = zap.NewProductionConfig()
		cfg.EncoderConfig.TimeKey = "timestamp"
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	default:
		return zap.Config{}, fmt.Errorf("invalid logging mode: %s, must be 'production' or 'development'", mode)
	}

	logLevel, err := zapcore.ParseLevel(level)
	if err != nil {
		return zap.Config{}, fmt.Errorf("invalid logging level: %s, must be one of 'debug', 'info', 'warn', 'error', 'dpanic', 'panic', 'fatal'", level)
	}
	cfg.Level = zap.NewAtomicLevelAt(logLevel)
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}

	return cfg, nil
}
