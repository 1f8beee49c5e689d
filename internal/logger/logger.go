// Package logger builds the service zap logger and carries it through contexts.
package logger

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ServiceName is attached to every entry.
const ServiceName = "shopsearch"

// Options selects the encoder and level. Zero values fall back to env defaults.
type Options struct {
	Env    string // local, dev, docker, prod
	Level  string // debug, info, warn, error
	Format string // json or console
}

// New builds a logger: prod defaults to JSON at info, everything else to console at debug.
func New(opts Options) (*zap.Logger, error) {
	cfg, err := baseConfig(opts.Env)
	if err != nil {
		return nil, err
	}

	switch opts.Format {
	case "":
	case "json", "console":
		cfg.Encoding = opts.Format
	default:
		return nil, fmt.Errorf("unknown log format %q", opts.Format)
	}
	if cfg.Encoding == "json" {
		cfg.EncoderConfig.EncodeLevel = zapcore.LowercaseLevelEncoder
	}

	if opts.Level != "" {
		lvl, err := zapcore.ParseLevel(opts.Level)
		if err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", opts.Level, err)
		}
		cfg.Level = zap.NewAtomicLevelAt(lvl)
	}

	l, err := cfg.Build(zap.AddStacktrace(zapcore.ErrorLevel))
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	return l.Named(ServiceName).With(zap.String("service", ServiceName)), nil
}

func baseConfig(env string) (zap.Config, error) {
	switch env {
	case "prod":
		return zap.NewProductionConfig(), nil
	case "local":
		cfg := zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		return cfg, nil
	case "dev", "docker":
		return zap.NewDevelopmentConfig(), nil
	default:
		return zap.Config{}, fmt.Errorf("unknown environment %q for logger", env)
	}
}
