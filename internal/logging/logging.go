// Package logging builds the service's structured zap logger.
package logging

import (
	"fmt"
	"strings"

	"github.com/CXmiloxx/secop-app-sub001/internal/apperr"
	"github.com/CXmiloxx/secop-app-sub001/internal/config"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New returns a JSON logger. Development and local environments get the
// development profile and default to debug level.
func New(cfg config.LogConfig) (*zap.Logger, error) {
	env := strings.ToLower(strings.TrimSpace(cfg.Environment))
	dev := env == "development" || env == "local"

	var zc zap.Config
	if dev {
		zc = zap.NewDevelopmentConfig()
	} else {
		zc = zap.NewProductionConfig()
	}
	zc.Encoding = "json"
	zc.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	zc.EncoderConfig.TimeKey = "ts"
	zc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	zc.DisableStacktrace = true

	level, err := resolveLevel(cfg.Level, dev)
	if err != nil {
		return nil, err
	}
	zc.Level = level

	logger, err := zc.Build()
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	return logger.With(zap.String("service", "procurement-ledger")), nil
}

func resolveLevel(raw string, dev bool) (zap.AtomicLevel, error) {
	if strings.TrimSpace(raw) != "" {
		var l zapcore.Level
		if err := l.Set(raw); err != nil {
			return zap.AtomicLevel{}, fmt.Errorf("invalid log level %q: %w", raw, err)
		}
		return zap.NewAtomicLevelAt(l), nil
	}
	if dev {
		return zap.NewAtomicLevelAt(zapcore.DebugLevel), nil
	}
	return zap.NewAtomicLevelAt(zapcore.InfoLevel), nil
}

// Outcome logs the end of a ledger or workflow operation: Info when it succeeded,
// Warn when a business rule rejected it, Error for anything else.
func Outcome(logger *zap.Logger, msg string, err error, fields ...zap.Field) {
	switch {
	case err == nil:
		logger.Info(msg, fields...)
	case apperr.KindOf(err) != "":
		logger.Warn(msg+" rejected", append(fields, zap.String("kind", string(apperr.KindOf(err))), zap.Error(err))...)
	default:
		logger.Error(msg+" failed", append(fields, zap.Error(err))...)
	}
}
