// servs/s_macro/macro_client/client.go
package macro_client

import (
	"context"
	"errors"

	"github.com/rskv-p/srtmacro/servs/s_macro/macro_api"
	"github.com/rskv-p/srtmacro/servs/s_macro/macro_serv"
)

// Readiness reports whether the worker has what it needs to log in.
type Readiness interface {
	Ready() bool
}

type LocalClient struct {
	ctrl  *macro_serv.Controller
	creds Readiness
}

// NewLocalClient returns a client for direct in-process control.
// A nil creds skips the credential check.
func NewLocalClient(ctrl *macro_serv.Controller, creds Readiness) macro_api.IMacro {
	return &LocalClient{ctrl: ctrl, creds: creds}
}

// Start checks credentials, then hands off to the controller. The outcome is
// echoed into the log stream for viewers.
func (c *LocalClient) Start(ctx context.Context, p macro_serv.Params) error {
	if c.creds != nil && !c.creds.Ready() {
		return macro_api.ErrCredentialsMissing
	}

	err := c.ctrl.Start(p)
	pump := c.ctrl.Pump()
	switch {
	case err == nil:
		pump.Publish("[ui] macro started")
	case errors.Is(err, macro_serv.ErrInvalidParams), errors.Is(err, macro_serv.ErrAlreadyRunning):
	default:
		reason := c.ctrl.LastError()
		if reason == "" {
			reason = "unknown reason"
		}
		pump.Publish("[ui] start failed: " + reason)
	}
	return err
}

func (c *LocalClient) Stop(ctx context.Context) error {
	if err := c.ctrl.Stop(); err != nil {
		return err
	}
	c.ctrl.Pump().Publish("[ui] macro stopped")
	return nil
}

func (c *LocalClient) Status(ctx context.Context) (macro_serv.Status, error) {
	return c.ctrl.Status(), nil
}

func (c *LocalClient) Logs(ctx context.Context) (macro_api.LogsResponse, error) {
	st := c.ctrl.Status()
	lines := c.ctrl.Pump().Lines()
	if lines == nil {
		lines = []string{}
	}
	return macro_api.LogsResponse{
		Running:   st.Running,
		Lines:     lines,
		LastError: st.LastError,
	}, nil
}
