package macro_cfg

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rskv-p/srtmacro/pkg/x_db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "macro.config.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:8000", cfg.HTTPAddress)
	assert.Equal(t, 8*time.Second, cfg.Worker.StartWait)
	assert.Equal(t, 500, cfg.Logs.BufferSize)
	assert.Equal(t, 1000, cfg.Logs.QueueSize)
	assert.Equal(t, "18", cfg.Defaults.Time)
	assert.Equal(t, x_db.DbSqlite, cfg.DB.Type)
}

func TestLoadOverridesNestedFields(t *testing.T) {
	path := writeConfig(t, `{
		"http_address": "127.0.0.1:9000",
		"worker": {"start_wait": "2s", "command": ["/bin/worker", "--flag"]},
		"logs": {"buffer_size": 50},
		"db": {"type": "postgres", "dsn": "host=db"},
		"defaults": {"arrival": "수서", "to_train_number": 5},
		"logger": {"level": "debug"}
	}`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:9000", cfg.HTTPAddress)
	assert.Equal(t, 2*time.Second, cfg.Worker.StartWait)
	assert.Equal(t, 3*time.Second, cfg.Worker.JoinTimeout, "unset fields keep defaults")
	assert.Equal(t, []string{"/bin/worker", "--flag"}, cfg.Worker.Command)
	assert.Equal(t, 50, cfg.Logs.BufferSize)
	assert.Equal(t, 1000, cfg.Logs.QueueSize)
	assert.Equal(t, x_db.DbPostgres, cfg.DB.Type)
	assert.Equal(t, "host=db", cfg.DB.DSN)
	assert.Equal(t, "수서", cfg.Defaults.Arrival)
	assert.Equal(t, "동탄", cfg.Defaults.Departure)
	assert.Equal(t, 5, cfg.Defaults.ToRow)
	assert.Equal(t, "debug", cfg.Logger.Level)
}

func TestLoadInvalidJSON(t *testing.T) {
	_, err := Load(writeConfig(t, `{"http_address":`))
	assert.Error(t, err)
}

func TestLoadEnvPathAndOverrides(t *testing.T) {
	path := writeConfig(t, `{"http_address": "127.0.0.1:1"}`)
	t.Setenv("MACRO_CFG", path)
	t.Setenv("MACRO_HTTP_ADDR", "127.0.0.1:2")
	t.Setenv("MACRO_AUTH_ENABLED", "yes")
	t.Setenv("MACRO_START_WAIT", "3")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:2", cfg.HTTPAddress)
	assert.True(t, cfg.Auth.Enabled)
	assert.Equal(t, 3*time.Second, cfg.Worker.StartWait)
}

func TestGetEnvHelpers(t *testing.T) {
	t.Setenv("MACRO_T_INT", "42")
	t.Setenv("MACRO_T_BAD", "x")
	t.Setenv("MACRO_T_BOOL", "off")
	t.Setenv("MACRO_T_DUR", "150ms")

	assert.Equal(t, 42, GetEnvInt("MACRO_T_INT", 1))
	assert.Equal(t, 1, GetEnvInt("MACRO_T_BAD", 1))
	assert.False(t, GetEnvBool("MACRO_T_BOOL", true))
	assert.True(t, GetEnvBool("MACRO_T_MISSING", true))
	assert.Equal(t, 150*time.Millisecond, GetEnvDuration("MACRO_T_DUR", time.Second))
	assert.Equal(t, time.Second, GetEnvDuration("MACRO_T_BAD", time.Second))
	assert.Equal(t, "fb", GetEnvStr("MACRO_T_MISSING", "fb"))
}

func TestDefaultConfigIsACopy(t *testing.T) {
	a := DefaultConfig()
	a.Worker.Command = append(a.Worker.Command, "x")
	a.HTTPAddress = "changed"

	b := DefaultConfig()
	assert.Empty(t, b.Worker.Command)
	assert.Equal(t, "0.0.0.0:8000", b.HTTPAddress)
}

func TestCheckAuth(t *testing.T) {
	cfg := DefaultConfig()
	weak, err := cfg.CheckAuth()
	require.NoError(t, err, "disabled auth is not checked")
	assert.False(t, weak)

	cfg.Auth.Enabled = true
	_, err = cfg.CheckAuth()
	assert.ErrorIs(t, err, ErrInsecureAuth)

	cfg.Auth.JWTSecret = ""
	_, err = cfg.CheckAuth()
	assert.ErrorIs(t, err, ErrInsecureAuth)

	cfg.Auth.JWTSecret = "s3cret-from-ops"
	weak, err = cfg.CheckAuth()
	require.NoError(t, err)
	assert.True(t, weak)

	cfg.Auth.AdminPassword = "long-admin-pw"
	weak, err = cfg.CheckAuth()
	require.NoError(t, err)
	assert.False(t, weak)
}
