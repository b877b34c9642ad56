package x_db

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

//
// ---------- GORM log adapter ----------

// logAdapter implements GORM logger.Interface on top of zerolog
type logAdapter struct {
	Logger        zerolog.Logger
	LogLevel      logger.LogLevel
	SlowThreshold time.Duration
}

// newLogAdapter creates a GORM logger. A non-positive slow disables slow query warnings.
func newLogAdapter(zlog zerolog.Logger, level logger.LogLevel, slow time.Duration) logger.Interface {
	return &logAdapter{
		Logger:        zlog,
		LogLevel:      level,
		SlowThreshold: slow,
	}
}

// parseLogLevel maps config strings onto GORM levels
func parseLogLevel(s string) logger.LogLevel {
	switch s {
	case "silent":
		return logger.Silent
	case "error":
		return logger.Error
	case "info", "debug":
		return logger.Info
	default:
		return logger.Warn
	}
}

func (l *logAdapter) LogMode(level logger.LogLevel) logger.Interface {
	newLogger := *l
	newLogger.LogLevel = level
	return &newLogger
}

func (l *logAdapter) Info(ctx context.Context, msg string, data ...interface{}) {
	if l.LogLevel >= logger.Info {
		l.Logger.Info().Msgf(msg, data...)
	}
}

func (l *logAdapter) Warn(ctx context.Context, msg string, data ...interface{}) {
	if l.LogLevel >= logger.Warn {
		l.Logger.Warn().Msgf(msg, data...)
	}
}

func (l *logAdapter) Error(ctx context.Context, msg string, data ...interface{}) {
	if l.LogLevel >= logger.Error {
		l.Logger.Error().Msgf(msg, data...)
	}
}

// Trace logs SQL queries, highlighting slow or failed ones
func (l *logAdapter) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.LogLevel <= logger.Silent {
		return
	}

	elapsed := time.Since(begin)
	sql, rows := fc()

	e := l.Logger.With().
		Str("elapsed", elapsed.String()).
		Int64("rows", rows).
		Logger()

	switch {
	case err != nil && !errors.Is(err, gorm.ErrRecordNotFound) && l.LogLevel >= logger.Error:
		e.Error().Err(err).Msg(sql)
	case l.SlowThreshold > 0 && elapsed > l.SlowThreshold && l.LogLevel >= logger.Warn:
		e.Warn().Msgf("SLOW SQL: %s", sql)
	case l.LogLevel >= logger.Info:
		e.Debug().Msg(sql)
	}
}
