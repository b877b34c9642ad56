package macro_api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/rskv-p/srtmacro/pkg/x_log"
	"github.com/rskv-p/srtmacro/servs/s_macro/macro_cfg"
	"github.com/rskv-p/srtmacro/servs/s_macro/macro_serv"
	"github.com/rskv-p/srtmacro/servs/s_macro/macro_vault"
)

// Page messages
const (
	msgStarted        = "Started."
	msgStartFailed    = "Could not start."
	msgStopped        = "Stopped."
	msgNotRunning     = "Not running."
	msgAlreadyRunning = "Already running."
	msgNoCredentials  = "Credentials are not set. Use the Credentials button to set them."
	msgSaved          = "Credentials saved."
)

// sentinels whose text is stripped from messages shown to the operator.
var messageSentinels = []error{
	macro_serv.ErrInvalidParams,
	macro_serv.ErrWorkerError,
	macro_serv.ErrLaunchTimeout,
	macro_serv.ErrImmediateCompletion,
}

// userMessage returns the human part of err.
func userMessage(err error) string {
	text := err.Error()
	for _, base := range messageSentinels {
		if errors.Is(err, base) {
			text = strings.TrimPrefix(text, base.Error()+": ")
		}
	}
	return text
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeAction(w http.ResponseWriter, err error, okMessage string) {
	if err == nil {
		writeJSON(w, http.StatusOK, ActionResponse{Success: true, Message: okMessage})
		return
	}
	code, status := ErrorCode(err)
	writeJSON(w, status, ActionResponse{Message: userMessage(err), Code: code})
}

//---------------------
// Page
//---------------------

func (s *Server) renderPage(ctx context.Context, w http.ResponseWriter, form macro_cfg.FormDefaults, message string) {
	st, err := s.Macro.Status(ctx)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	var missing []string
	check := s.Creds.Check()
	for _, k := range macro_vault.Keys {
		if !check[k] && k != macro_vault.KeyWebhook {
			missing = append(missing, k)
		}
	}
	render(w, http.StatusOK, "page.html", pageData{
		Message: message,
		Status:  st,
		Form:    form,
		Missing: missing,
		Times:   departureSlots,
		Seats:   seatOptions,
	})
}

// handleIndex renders the control page with the configured defaults.
func (s *Server) handleIndex() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.renderPage(r.Context(), w, s.Defaults, "")
	}
}

func (s *Server) handleLoginPage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		render(w, http.StatusUnauthorized, "login.html", nil)
	}
}

// handleStartForm starts a run from the page form and re-renders the page.
func (s *Server) handleStartForm() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, err := decodeForm(r)
		if err != nil {
			s.renderPage(r.Context(), w, s.Defaults, "Invalid form: "+err.Error())
			return
		}

		err = s.Macro.Start(r.Context(), p)
		logAction(r, "start", err)
		s.renderPage(r.Context(), w, formFromParams(p), startMessage(err))
	}
}

func startMessage(err error) string {
	switch {
	case err == nil:
		return msgStarted
	case errors.Is(err, ErrCredentialsMissing):
		return msgNoCredentials
	case errors.Is(err, macro_serv.ErrInvalidParams):
		return userMessage(err)
	case errors.Is(err, macro_serv.ErrAlreadyRunning):
		return msgAlreadyRunning
	default:
		return msgStartFailed
	}
}

// handleStopForm stops the run and re-renders the page.
func (s *Server) handleStopForm() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		msg := msgStopped
		err := s.Macro.Stop(r.Context())
		logAction(r, "stop", err)
		if err != nil {
			msg = msgNotRunning
			if !errors.Is(err, macro_serv.ErrNotRunning) {
				msg = err.Error()
			}
		}
		s.renderPage(r.Context(), w, s.Defaults, msg)
	}
}

// decodeForm maps the posted form onto Params. Rows default to 1.
func decodeForm(r *http.Request) (macro_serv.Params, error) {
	p := macro_serv.Params{Seats: macro_serv.SeatsBoth, FromRow: 1, ToRow: 1}
	if err := r.ParseForm(); err != nil {
		return p, err
	}
	raw := make(map[string]interface{}, len(r.PostForm))
	for k := range r.PostForm {
		raw[k] = r.PostForm.Get(k)
	}
	if err := macro_cfg.Decode(raw, &p); err != nil {
		return p, err
	}
	return p, nil
}

//---------------------
// Status / health
//---------------------

func (s *Server) handleStatus() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		st, err := s.Macro.Status(r.Context())
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, st)
	}
}

func handleHealth() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte("ok"))
	}
}

func handleClientJS() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		data, err := webFS.ReadFile("web/client.js")
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/javascript; charset=utf-8")
		w.Header().Set("Cache-Control", "no-cache")
		_, _ = w.Write(data)
	}
}

//---------------------
// JSON API
//---------------------

func (s *Server) handleAPIStart() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var p StartRequest
		if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
			writeJSON(w, http.StatusBadRequest, ActionResponse{Message: "bad request: " + err.Error(), Code: CodeInvalidParams})
			return
		}
		err := s.Macro.Start(r.Context(), p)
		logAction(r, "start", err)
		writeAction(w, err, msgStarted)
	}
}

func (s *Server) handleAPIStop() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		err := s.Macro.Stop(r.Context())
		logAction(r, "stop", err)
		writeAction(w, err, msgStopped)
	}
}

// logAction records who asked for a start or stop.
func logAction(r *http.Request, action string, err error) {
	user, _, ok := UserFromContext(r.Context())
	if !ok {
		user = "anonymous"
	}
	x_log.From(r.Context()).Info().
		Str("user", user).
		Str("action", action).
		AnErr("result", err).
		Msg("control request")
}

//---------------------
// Credentials
//---------------------

func (s *Server) handleEnvForm() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		render(w, http.StatusOK, "env.html", envData{Masked: s.Creds.Masked()})
	}
}

func (s *Server) handleEnvCheck() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		check := s.Creds.Check()
		all := true
		for _, k := range macro_vault.Keys {
			all = all && check[k]
		}
		writeJSON(w, http.StatusOK, EnvCheckResponse{Success: all, Check: check})
	}
}

func (s *Server) handleEnvSave() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req EnvSaveRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, ActionResponse{Message: "bad request: " + err.Error()})
			return
		}

		err := s.Creds.Save(map[string]string{
			macro_vault.KeyMemberNumber: req.MemberNumber,
			macro_vault.KeyPassword:     req.Password,
			macro_vault.KeyWebhook:      req.DiscordWebhook,
		})
		switch {
		case err == nil:
			writeJSON(w, http.StatusOK, ActionResponse{Success: true, Message: msgSaved})
		case errors.Is(err, macro_vault.ErrMissingMember), errors.Is(err, macro_vault.ErrMissingPassword):
			writeJSON(w, http.StatusBadRequest, ActionResponse{Message: err.Error()})
		default:
			x_log.From(r.Context()).Error().Err(err).Msg("saving credentials")
			writeJSON(w, http.StatusInternalServerError, ActionResponse{Message: "saving failed: " + err.Error()})
		}
	}
}
