package macro_api

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/rskv-p/srtmacro/pkg/x_log"
	"github.com/rskv-p/srtmacro/servs/s_macro/macro_cfg"
	"github.com/rskv-p/srtmacro/servs/s_macro/macro_serv"
)

const shutdownTimeout = 5 * time.Second

// Credentials is the part of the vault the panel needs.
type Credentials interface {
	Check() map[string]bool
	Masked() map[string]string
	Save(values map[string]string) error
}

// Server is the control panel. It only talks to the controller through Macro.
type Server struct {
	Macro     IMacro
	Pump      *macro_serv.LogPump
	Creds     Credentials
	Auth      *Auth
	Defaults  macro_cfg.FormDefaults
	Heartbeat time.Duration
	Log       zerolog.Logger
}

func NewServer(m IMacro, pump *macro_serv.LogPump, creds Credentials, auth *Auth, cfg macro_cfg.MacroConfig, log zerolog.Logger) *Server {
	if auth == nil {
		auth = NewAuth(false, "", 0, nil)
	}
	hb := cfg.Logs.Heartbeat
	if hb <= 0 {
		hb = 10 * time.Second
	}
	return &Server{
		Macro:     m,
		Pump:      pump,
		Creds:     creds,
		Auth:      auth,
		Defaults:  cfg.Defaults,
		Heartbeat: hb,
		Log:       log,
	}
}

// Router builds the HTTP routes.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)

	// Public endpoints
	r.Get("/healthz", handleHealth())
	r.Get("/client.js", handleClientJS())
	r.Post("/auth/login", s.Auth.HandleLogin())

	// Protected endpoints
	r.Group(func(r chi.Router) {
		r.Use(s.Auth.Middleware("", s.handleLoginPage()))

		// Control page
		r.Get("/", s.handleIndex())
		r.Post("/start", s.handleStartForm())
		r.Post("/stop", s.handleStopForm())

		// Status and logs
		r.Get("/status", s.handleStatus())
		r.Get("/logs", s.handleSSE())
		r.Get("/logs.json", s.handleLogsJSON())
		r.Get("/ws", s.handleWS())

		// Credentials
		r.Route("/env", func(r chi.Router) {
			r.Get("/form", s.handleEnvForm())
			r.Get("/check", s.handleEnvCheck())
			r.Post("/save", s.handleEnvSave())
		})

		// JSON API
		r.Route("/api", func(r chi.Router) {
			r.Post("/start", s.handleAPIStart())
			r.Post("/stop", s.handleAPIStop())
			r.Get("/status", s.handleStatus())
		})
	})

	return r
}

// requestLogger logs each request through zerolog and puts a logger tagged
// with the request id into the request context.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		l := s.Log.With().Str("req", middleware.GetReqID(r.Context())).Logger()
		defer func() {
			l.Debug().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Dur("took", time.Since(start)).
				Msg("http")
		}()
		next.ServeHTTP(ww, r.WithContext(x_log.WithLogger(r.Context(), &l)))
	})
}

// Serve listens on addr until ctx is done. Request contexts derive from ctx,
// so open log streams end with it.
func (s *Server) Serve(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		s.Log.Info().Str("addr", addr).Msg("control panel listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
