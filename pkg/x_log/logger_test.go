package x_log

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func consoleLogger(buf *bytes.Buffer) zerolog.Logger {
	return zerolog.New(ConsoleWriterWithStyles(&Styles{Out: buf})).With().Timestamp().Logger()
}

func TestNewTagsModule(t *testing.T) {
	var buf bytes.Buffer
	l := New("controller").Output(&buf)
	l.Info().Msg("worker running")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "controller", entry["module"])
	assert.Equal(t, "worker running", entry["message"])
}

func TestContextLogger(t *testing.T) {
	prev := zerolog.GlobalLevel()
	zerolog.SetGlobalLevel(zerolog.DebugLevel)
	t.Cleanup(func() { zerolog.SetGlobalLevel(prev) })

	var buf bytes.Buffer
	l := New("http").Output(&buf).With().Str("req", "abc-1").Logger()
	ctx := WithLogger(context.Background(), &l)

	From(ctx).Debug().Msg("websocket upgrade")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)
	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "abc-1", entry["req"])
	assert.Equal(t, "http", entry["module"])
}

func TestFromWithoutLogger(t *testing.T) {
	assert.Same(t, &log.Logger, From(context.Background()))
}

func TestConsoleWriterFields(t *testing.T) {
	var buf bytes.Buffer
	l := consoleLogger(&buf)

	l.Info().Str("run", "r1").Int("pid", 4242).Msg("worker starting")
	out := buf.String()
	assert.Contains(t, out, "run=r1")
	assert.Contains(t, out, "pid=4242")
	assert.Contains(t, out, "worker starting")
}

func TestConsoleWriterLevels(t *testing.T) {
	var buf bytes.Buffer
	l := consoleLogger(&buf)

	l.Debug().Msg("heartbeat")
	l.Warn().Msg("start failed")
	l.Error().Err(errors.New("no such file")).Msg("spawn")

	out := buf.String()
	for _, want := range []string{"heartbeat", "start failed", "spawn", "no such file"} {
		assert.Contains(t, out, want)
	}
}
