package macro_api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/rskv-p/srtmacro/pkg/x_db"
	"github.com/rskv-p/srtmacro/servs/s_macro/macro_cfg"
	"github.com/rskv-p/srtmacro/servs/s_macro/macro_vault"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAuthServer(t *testing.T) *Server {
	t.Helper()
	db, err := x_db.Open(x_db.Config{
		Type: x_db.DbSqlite,
		DSN:  filepath.Join(t.TempDir(), "auth.db"),
	}, zerolog.Nop())
	require.NoError(t, err)

	v, err := macro_vault.New(db, "k", zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, v.EnsureAdmin("admin-pw"))

	f := newFixture(t)
	auth := NewAuth(true, "test-secret", time.Hour, v)
	return NewServer(f.macro, f.pump, v, auth, macro_cfg.DefaultConfig(), zerolog.Nop())
}

func serve(s *Server, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	return rec
}

func login(t *testing.T, s *Server, user, pw string) *httptest.ResponseRecorder {
	t.Helper()
	body, _ := json.Marshal(LoginRequest{Username: user, Password: pw})
	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(string(body)))
	req.Header.Set("Content-Type", "application/json")
	return serve(s, req)
}

func TestAuthRejectsMissingToken(t *testing.T) {
	s := newAuthServer(t)

	rec := serve(s, httptest.NewRequest(http.MethodGet, "/status", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = serve(s, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code, "health stays public")
}

func TestAuthShowsLoginPageToBrowsers(t *testing.T) {
	s := newAuthServer(t)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")
	rec := serve(s, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), `action="/auth/login"`)
}

func TestLoginAndTokenSources(t *testing.T) {
	s := newAuthServer(t)

	assert.Equal(t, http.StatusUnauthorized, login(t, s, "admin", "wrong").Code)

	rec := login(t, s, "admin", "admin-pw")
	require.Equal(t, http.StatusOK, rec.Code)
	var resp LoginResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Token)

	bearer := httptest.NewRequest(http.MethodGet, "/status", nil)
	bearer.Header.Set("Authorization", "Bearer "+resp.Token)
	assert.Equal(t, http.StatusOK, serve(s, bearer).Code)

	query := httptest.NewRequest(http.MethodGet, "/logs.json?token="+url.QueryEscape(resp.Token), nil)
	assert.Equal(t, http.StatusOK, serve(s, query).Code)

	cookie := httptest.NewRequest(http.MethodGet, "/env/check", nil)
	cookie.AddCookie(&http.Cookie{Name: tokenCookie, Value: resp.Token})
	assert.Equal(t, http.StatusOK, serve(s, cookie).Code)

	forged := httptest.NewRequest(http.MethodGet, "/status", nil)
	forged.Header.Set("Authorization", "Bearer "+resp.Token+"x")
	assert.Equal(t, http.StatusUnauthorized, serve(s, forged).Code)
}

func TestFormLoginSetsCookie(t *testing.T) {
	s := newAuthServer(t)

	form := url.Values{"username": {"admin"}, "password": {"admin-pw"}}
	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", formType)
	rec := serve(s, req)

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, tokenCookie, cookies[0].Name)
	assert.True(t, cookies[0].HttpOnly)
}

func TestExpiredTokenRejected(t *testing.T) {
	s := newAuthServer(t)
	s.Auth.ttl = -time.Minute

	rec := login(t, s, "admin", "admin-pw")
	require.Equal(t, http.StatusOK, rec.Code)
	var resp LoginResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	req.Header.Set("Authorization", "Bearer "+resp.Token)
	assert.Equal(t, http.StatusUnauthorized, serve(s, req).Code)
}

func TestLoginDisabledWithoutAuth(t *testing.T) {
	f := newFixture(t)
	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(`{}`))
	assert.Equal(t, http.StatusNotFound, serve(f.server, req).Code)
}

func TestMiddlewarePutsUserInContext(t *testing.T) {
	auth := NewAuth(true, "test-secret", time.Hour, nil)
	token, err := auth.generateToken(&macro_vault.User{Username: "operator", Role: "user"})
	require.NoError(t, err)

	var user, role string
	var found bool
	h := auth.Middleware("", nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, role, found = UserFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	h.ServeHTTP(httptest.NewRecorder(), req)

	require.True(t, found)
	assert.Equal(t, "operator", user)
	assert.Equal(t, "user", role)

	_, _, found = UserFromContext(httptest.NewRequest(http.MethodGet, "/", nil).Context())
	assert.False(t, found)
}
