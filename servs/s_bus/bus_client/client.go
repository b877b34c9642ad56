// servs/s_bus/bus_client/client.go
package bus_client

import (
	"context"
	"encoding/json"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rskv-p/srtmacro/servs/s_bus/bus_api"
	"github.com/rskv-p/srtmacro/servs/s_macro/macro_serv"
)

// Handler receives tailed messages. Exactly one of ev and line is set.
type Handler func(ev *macro_serv.Event, line *bus_api.LogLine)

type Client struct {
	nc      *nats.Conn
	timeout time.Duration
}

// Connect dials the bus at url.
func Connect(url, name string) (*Client, error) {
	nc, err := nats.Connect(url, nats.Name(name))
	if err != nil {
		return nil, err
	}
	return New(nc), nil
}

// New wraps an existing connection.
func New(nc *nats.Conn) *Client {
	return &Client{nc: nc, timeout: 2 * time.Second}
}

// Status asks the controller for its current status.
func (c *Client) Status(ctx context.Context) (macro_serv.Status, error) {
	var st macro_serv.Status
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	msg, err := c.nc.RequestWithContext(ctx, bus_api.SubjectQuery, nil)
	if err != nil {
		return st, err
	}
	err = json.Unmarshal(msg.Data, &st)
	return st, err
}

// Watch subscribes h to events and log lines. The subscription is active
// when Watch returns.
func (c *Client) Watch(h Handler) (*nats.Subscription, error) {
	sub, err := c.nc.Subscribe(bus_api.SubjectAll, func(m *nats.Msg) {
		switch m.Subject {
		case bus_api.SubjectEvents:
			var ev macro_serv.Event
			if json.Unmarshal(m.Data, &ev) == nil {
				h(&ev, nil)
			}
		case bus_api.SubjectLogs:
			var line bus_api.LogLine
			if json.Unmarshal(m.Data, &line) == nil {
				h(nil, &line)
			}
		}
	})
	if err != nil {
		return nil, err
	}
	if err := c.nc.Flush(); err != nil {
		_ = sub.Unsubscribe()
		return nil, err
	}
	return sub, nil
}

// Tail watches until ctx is done.
func (c *Client) Tail(ctx context.Context, h Handler) error {
	sub, err := c.Watch(h)
	if err != nil {
		return err
	}
	defer func() { _ = sub.Unsubscribe() }()

	<-ctx.Done()
	return nil
}

func (c *Client) Close() {
	c.nc.Close()
}
