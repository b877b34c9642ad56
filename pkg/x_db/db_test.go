package x_db

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type note struct {
	ID   uint64 `gorm:"primaryKey"`
	Text string
}

func TestOpenSqlite(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "nested", "test.db")

	db, err := Open(Config{Type: DbSqlite, DSN: dsn}, zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&note{}))

	require.NoError(t, db.Create(&note{Text: "hello"}).Error)

	var got note
	require.NoError(t, db.First(&got).Error)
	assert.Equal(t, "hello", got.Text)
}

func TestOpenUnknownDriver(t *testing.T) {
	_, err := Open(Config{Type: "oracle"}, zerolog.Nop())
	assert.ErrorIs(t, err, ErrUnknownDriver)
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		in   string
		want logger.LogLevel
	}{
		{"silent", logger.Silent},
		{"error", logger.Error},
		{"info", logger.Info},
		{"", logger.Warn},
		{"warn", logger.Warn},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, parseLogLevel(tt.in))
		})
	}
}

func TestTraceLevels(t *testing.T) {
	var buf bytes.Buffer
	l := newLogAdapter(zerolog.New(&buf), logger.Warn, 50*time.Millisecond)
	query := func() (string, int64) { return "SELECT * FROM secrets", 1 }

	l.Trace(context.Background(), time.Now(), query, nil)
	assert.Empty(t, buf.String(), "fast queries stay quiet at warn")

	l.Trace(context.Background(), time.Now(), query, gorm.ErrRecordNotFound)
	assert.Empty(t, buf.String(), "not found is not an error")

	l.Trace(context.Background(), time.Now().Add(-time.Second), query, nil)
	assert.Contains(t, buf.String(), "SLOW SQL")

	buf.Reset()
	l.Trace(context.Background(), time.Now(), query, errors.New("disk I/O error"))
	assert.Contains(t, buf.String(), `"level":"error"`)
	assert.Contains(t, buf.String(), "disk I/O error")

	buf.Reset()
	l.LogMode(logger.Silent).Trace(context.Background(), time.Now(), query, errors.New("x"))
	assert.Empty(t, buf.String())
}
