package macro_api

import (
	"context"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/rskv-p/srtmacro/servs/s_macro/macro_cfg"
	"github.com/rskv-p/srtmacro/servs/s_macro/macro_serv"
	"github.com/rskv-p/srtmacro/servs/s_macro/macro_vault"
)

// fakeMacro records calls and answers with canned results.
type fakeMacro struct {
	mu       sync.Mutex
	startErr error
	stopErr  error
	started  []macro_serv.Params
	stops    int
	status   macro_serv.Status
	logs     LogsResponse
}

func (f *fakeMacro) Start(ctx context.Context, p macro_serv.Params) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.started = append(f.started, p)
	return f.startErr
}

func (f *fakeMacro) Stop(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stops++
	return f.stopErr
}

func (f *fakeMacro) Status(ctx context.Context) (macro_serv.Status, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.status, nil
}

func (f *fakeMacro) Logs(ctx context.Context) (LogsResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.logs, nil
}

func (f *fakeMacro) lastStarted() macro_serv.Params {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.started[len(f.started)-1]
}

// fakeCreds stands in for the vault.
type fakeCreds struct {
	check   map[string]bool
	masked  map[string]string
	saved   map[string]string
	saveErr error
}

func (f *fakeCreds) Check() map[string]bool    { return f.check }
func (f *fakeCreds) Masked() map[string]string { return f.masked }
func (f *fakeCreds) Save(v map[string]string) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.saved = v
	return nil
}

func readyCreds() *fakeCreds {
	return &fakeCreds{
		check: map[string]bool{
			macro_vault.KeyMemberNumber: true,
			macro_vault.KeyPassword:     true,
			macro_vault.KeyWebhook:      false,
		},
		masked: map[string]string{macro_vault.KeyMemberNumber: "123*"},
	}
}

type fixture struct {
	macro  *fakeMacro
	creds  *fakeCreds
	pump   *macro_serv.LogPump
	server *Server
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	pump := macro_serv.NewLogPump(zerolog.Nop(), macro_serv.PumpOptions{})
	t.Cleanup(pump.Close)

	f := &fixture{macro: &fakeMacro{}, creds: readyCreds(), pump: pump}
	f.server = NewServer(f.macro, pump, f.creds, nil, macro_cfg.DefaultConfig(), zerolog.Nop())
	return f
}

func (f *fixture) do(t *testing.T, method, path, contentType, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	f.server.Router().ServeHTTP(rec, req)
	return rec
}

func waitFor(t *testing.T, cond func() bool) bool {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return cond()
}

const formType = "application/x-www-form-urlencoded"
