// Package x_db opens GORM connections for the configured driver.
package x_db

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type DbType string

const (
	DbSqlite   DbType = "sqlite"
	DbPostgres DbType = "postgres"
)

var ErrUnknownDriver = errors.New("xdb: unknown driver")

//---------------------
// Config
//---------------------

// Config selects the driver and DSN.
type Config struct {
	Type      DbType        `json:"type"`       // sqlite | postgres
	DSN       string        `json:"dsn"`        // file path for sqlite, connection string for postgres
	LogLevel  string        `json:"log_level"`  // silent | error | warn | info
	SlowQuery time.Duration `json:"slow_query"` // queries slower than this log at warn
}

// DefaultConfig keeps everything in a local sqlite file.
func DefaultConfig() Config {
	return Config{
		Type:      DbSqlite,
		DSN:       "_data/data/macro.db",
		LogLevel:  "warn",
		SlowQuery: 200 * time.Millisecond,
	}
}

//---------------------
// Open
//---------------------

// Open connects to the configured database. Sqlite parent directories are created.
func Open(cfg Config, log zerolog.Logger) (*gorm.DB, error) {
	if cfg.Type == "" {
		cfg.Type = DbSqlite
	}

	var dialector gorm.Dialector
	switch DbType(strings.ToLower(string(cfg.Type))) {
	case DbSqlite:
		if cfg.DSN == "" {
			cfg.DSN = DefaultConfig().DSN
		}
		if cfg.DSN != ":memory:" && !strings.HasPrefix(cfg.DSN, "file:") {
			if err := os.MkdirAll(filepath.Dir(cfg.DSN), 0o755); err != nil {
				return nil, fmt.Errorf("xdb: create dir: %w", err)
			}
		}
		dialector = sqlite.Open(cfg.DSN)
	case DbPostgres:
		dialector = postgres.Open(cfg.DSN)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, cfg.Type)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: newLogAdapter(log, parseLogLevel(cfg.LogLevel), cfg.SlowQuery),
	})
	if err != nil {
		return nil, fmt.Errorf("xdb: open %s: %w", cfg.Type, err)
	}

	log.Debug().Str("driver", string(cfg.Type)).Msg("database initialized")
	return db, nil
}
