package macro_auto

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os/exec"
	"strings"
	"testing"
	"time"

	"github.com/rskv-p/srtmacro/servs/s_macro/macro_serv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testParams() macro_serv.Params {
	return macro_serv.Params{
		Arrival: "동대구", Departure: "동탄", Date: "20251024", Time: "18",
		Seats: macro_serv.SeatsBoth, FromRow: 1, ToRow: 3,
	}
}

func TestCommandArgvExpandsPlaceholders(t *testing.T) {
	a := &CommandAutomation{Command: `book --from "${arrival}" --to ${departure} --rows ${from}-${to} --at '${date} ${time}'`}

	argv, err := a.argv(testParams())
	require.NoError(t, err)
	assert.Equal(t, []string{"book", "--from", "동대구", "--to", "동탄", "--rows", "1-3", "--at", "20251024 18"}, argv)
}

func TestCommandArgvEmpty(t *testing.T) {
	_, err := (&CommandAutomation{Command: "   "}).argv(testParams())
	assert.ErrorIs(t, err, ErrEmptyCommand)
}

func TestCommandRunPassesEnv(t *testing.T) {
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("no sh")
	}
	var out bytes.Buffer
	a := &CommandAutomation{Command: `sh -c 'echo "$SRT_ARRIVAL/$SRT_SEATS/$EXTRA"'`, Env: []string{"EXTRA=x"}}

	require.NoError(t, a.Run(context.Background(), testParams(), &out))
	assert.Contains(t, out.String(), "동대구/both/x")
}

func TestCommandRunFailure(t *testing.T) {
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("no sh")
	}
	a := &CommandAutomation{Command: `sh -c 'echo nope >&2; exit 4'`}
	var out bytes.Buffer

	err := a.Run(context.Background(), testParams(), &out)
	assert.ErrorIs(t, err, ErrScriptFailed)
	assert.Contains(t, err.Error(), "exit code 4")
	assert.Contains(t, out.String(), "nope")
}

func TestDemoFindsSeatAfterCycles(t *testing.T) {
	var out bytes.Buffer
	a := &DemoAutomation{Step: time.Millisecond, Cycles: 2}

	require.NoError(t, a.Run(context.Background(), testParams(), &out))
	assert.Equal(t, 2, strings.Count(out.String(), "nothing available"))
	assert.Contains(t, out.String(), "row 3 column 6 bookable")
}

func TestDemoHonoursCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	a := &DemoAutomation{Step: time.Millisecond, Cycles: 100}
	err := a.Run(ctx, testParams(), &bytes.Buffer{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDiscordNotifier(t *testing.T) {
	var got map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	n := NewDiscordNotifier(srv.URL, time.Second)
	require.NoError(t, n.Notify(context.Background(), "reserved"))
	assert.Equal(t, "reserved", got["content"])
}

func TestDiscordNotifierErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	assert.Error(t, NewDiscordNotifier(srv.URL, time.Second).Notify(context.Background(), "x"))
	assert.NoError(t, NewDiscordNotifier("", time.Second).Notify(context.Background(), "x"))
}
