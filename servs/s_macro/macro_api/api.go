// servs/s_macro/macro_api/api.go
package macro_api

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/rskv-p/srtmacro/servs/s_macro/macro_serv"
)

var ErrCredentialsMissing = errors.New("macro: credentials are not set")

// Error codes carried in ActionResponse.Code.
const (
	CodeAlreadyRunning     = "already_running"
	CodeNotRunning         = "not_running"
	CodeInvalidParams      = "invalid_params"
	CodeCredentialsMissing = "credentials_missing"
	CodeStartFailed        = "start_failed"
)

var codeErrors = map[string]error{
	CodeAlreadyRunning:     macro_serv.ErrAlreadyRunning,
	CodeNotRunning:         macro_serv.ErrNotRunning,
	CodeInvalidParams:      macro_serv.ErrInvalidParams,
	CodeCredentialsMissing: ErrCredentialsMissing,
}

// ErrorCode classifies err for the wire, with the HTTP status to send.
func ErrorCode(err error) (string, int) {
	switch {
	case errors.Is(err, macro_serv.ErrAlreadyRunning):
		return CodeAlreadyRunning, http.StatusConflict
	case errors.Is(err, macro_serv.ErrNotRunning):
		return CodeNotRunning, http.StatusConflict
	case errors.Is(err, macro_serv.ErrInvalidParams):
		return CodeInvalidParams, http.StatusBadRequest
	case errors.Is(err, ErrCredentialsMissing):
		return CodeCredentialsMissing, http.StatusBadRequest
	default:
		return CodeStartFailed, http.StatusUnprocessableEntity
	}
}

// Err turns a failed response back into an error that matches the sentinels.
func (r ActionResponse) Err() error {
	if r.Success {
		return nil
	}
	if base, ok := codeErrors[r.Code]; ok {
		if r.Message == "" || r.Message == base.Error() {
			return base
		}
		return fmt.Errorf("%w: %s", base, r.Message)
	}
	return errors.New(r.Message)
}

// IMacro is the control surface shared by the local and remote clients.
type IMacro interface {
	Start(ctx context.Context, p macro_serv.Params) error
	Stop(ctx context.Context) error
	Status(ctx context.Context) (macro_serv.Status, error)
	Logs(ctx context.Context) (LogsResponse, error)
}

type StartRequest = macro_serv.Params

// ActionResponse answers start and stop.
type ActionResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Code    string `json:"code,omitempty"`
}

// LogsResponse is the polling fallback for the live stream.
type LogsResponse struct {
	Running   bool     `json:"running"`
	Lines     []string `json:"lines"`
	LastError string   `json:"last_error,omitempty"`
}

type EnvCheckResponse struct {
	Success bool            `json:"success"`
	Check   map[string]bool `json:"check"`
}

type EnvSaveRequest struct {
	MemberNumber   string `json:"member_number"`
	Password       string `json:"password"`
	DiscordWebhook string `json:"discord_webhook"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Token string `json:"token"`
}
