// Package x_log wraps zerolog with lipgloss console styling and lumberjack file rotation.
package x_log

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/natefinch/lumberjack.v2"
)

type ctxKey struct{}

//
// ---------- Initialization ----------

// InitWithConfig sets up the global logger. Missing fields are taken from defaults.
// A non-empty module is attached to every entry of the global logger.
func InitWithConfig(cfg *Config, module string) {
	if cfg == nil {
		c := defaultConfig
		cfg = &c
	}
	applyDefaults(cfg)

	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	ctx := zerolog.New(buildWriter(cfg)).With().Timestamp()
	if module != "" {
		ctx = ctx.Str("module", module)
	}
	log.Logger = ctx.Logger()
}

// buildWriter assembles console and file outputs
func buildWriter(cfg *Config) io.Writer {
	var writers []io.Writer

	if cfg.ToConsole || !cfg.ToFile {
		styles := DefaultStylesByName(cfg.Style)
		styles.Out = os.Stdout
		cw := ConsoleWriterWithStyles(styles)
		cw.NoColor = !isatty.IsTerminal(os.Stdout.Fd())
		writers = append(writers, cw)
	}

	if cfg.ToFile {
		_ = os.MkdirAll(filepath.Dir(cfg.LogFile), 0o755)
		file := &lumberjack.Logger{
			Filename:   cfg.LogFile,
			MaxSize:    cfg.MaxSize,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAge,
			Compress:   cfg.Compress,
		}
		if cfg.ColoredFile {
			styles := DefaultStylesByName(cfg.Style)
			styles.Out = file
			writers = append(writers, ConsoleWriterWithStyles(styles))
		} else {
			writers = append(writers, file)
		}
	}

	if len(writers) == 1 {
		return writers[0]
	}
	return zerolog.MultiLevelWriter(writers...)
}

//
// ---------- Scoped loggers ----------

// New returns a child of the global logger tagged with module.
func New(module string) zerolog.Logger {
	return log.Logger.With().Str("module", module).Logger()
}

// WithLogger stores the logger in ctx.
func WithLogger(ctx context.Context, l *zerolog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

// From returns the logger stored in ctx, or the global logger.
func From(ctx context.Context) *zerolog.Logger {
	if l, ok := ctx.Value(ctxKey{}).(*zerolog.Logger); ok && l != nil {
		return l
	}
	return &log.Logger
}
