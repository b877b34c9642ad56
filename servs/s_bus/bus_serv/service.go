// servs/s_bus/bus_serv/service.go
package bus_serv

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
	"github.com/rskv-p/srtmacro/servs/s_bus/bus_api"
	"github.com/rskv-p/srtmacro/servs/s_bus/bus_cfg"
	"github.com/rskv-p/srtmacro/servs/s_macro/macro_serv"
)

var ErrNotStarted = errors.New("bus: not started")

// Service mirrors the controller onto NATS: lifecycle events, log lines and
// a status responder. It runs an embedded server unless cfg.URL is set.
type Service struct {
	cfg bus_cfg.BusConfig
	log zerolog.Logger
	ns  *server.Server
	nc  *nats.Conn
	sub *nats.Subscription
}

// New creates a bus service.
func New(cfg bus_cfg.BusConfig, log zerolog.Logger) *Service {
	return &Service{cfg: cfg, log: log}
}

// Start brings up the embedded server (when needed) and connects to it.
func (s *Service) Start() error {
	url := s.cfg.URL
	if url == "" {
		opts := &server.Options{
			ServerName: s.cfg.Name,
			Host:       s.cfg.Host,
			Port:       s.cfg.Port,
			NoSigs:     true,
		}
		ns, err := server.NewServer(opts)
		if err != nil {
			return fmt.Errorf("nats-server init: %w", err)
		}
		ns.SetLogger(natsLogger{log: s.log}, false, false)

		s.ns = ns
		go ns.Start()

		if !ns.ReadyForConnections(5 * time.Second) {
			ns.Shutdown()
			return fmt.Errorf("nats-server not ready")
		}
		url = ns.ClientURL()
	}

	nc, err := nats.Connect(url, nats.Name(s.cfg.Name))
	if err != nil {
		if s.ns != nil {
			s.ns.Shutdown()
		}
		return fmt.Errorf("nats client connect: %w", err)
	}
	s.nc = nc
	s.log.Info().Str("url", url).Msg("bus connected")
	return nil
}

// ClientURL is the address other processes use to reach the bus.
func (s *Service) ClientURL() string {
	if s.nc != nil {
		return s.nc.ConnectedUrl()
	}
	return s.cfg.URL
}

// Conn is the service's own connection, nil before Start. In-process
// clients can share it through bus_client.New.
func (s *Service) Conn() *nats.Conn { return s.nc }

func (s *Service) publishJSON(subject string, v any) error {
	if s.nc == nil {
		return ErrNotStarted
	}
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return s.nc.Publish(subject, data)
}

// PublishEvent sends one lifecycle event. It is shaped as a controller observer.
func (s *Service) PublishEvent(ev macro_serv.Event) {
	if err := s.publishJSON(bus_api.SubjectEvents, ev); err != nil {
		s.log.Warn().Err(err).Str("kind", string(ev.Kind)).Msg("publish event")
	}
}

func (s *Service) PublishLog(line string) error {
	return s.publishJSON(bus_api.SubjectLogs, bus_api.LogLine{Line: line, At: time.Now()})
}

// ServeStatus answers status queries with fn.
func (s *Service) ServeStatus(fn func() macro_serv.Status) error {
	if s.nc == nil {
		return ErrNotStarted
	}
	sub, err := s.nc.Subscribe(bus_api.SubjectQuery, func(m *nats.Msg) {
		data, err := json.Marshal(fn())
		if err != nil {
			s.log.Warn().Err(err).Msg("encode status")
			return
		}
		_ = m.Respond(data)
	})
	if err != nil {
		return err
	}
	s.sub = sub
	return s.nc.Flush()
}

// Forward publishes every pump line until ctx is done or the pump closes.
func (s *Service) Forward(ctx context.Context, pump *macro_serv.LogPump) error {
	sub := pump.Subscribe()
	defer pump.Unsubscribe(sub)

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-sub.Done():
			return nil
		case line := <-sub.C():
			if err := s.PublishLog(line); err != nil {
				s.log.Warn().Err(err).Msg("publish log line")
			}
		}
	}
}

// Stop flushes pending messages and shuts the embedded server down.
func (s *Service) Stop() {
	if s.sub != nil {
		_ = s.sub.Unsubscribe()
	}
	if s.nc != nil {
		_ = s.nc.FlushTimeout(time.Second)
		s.nc.Close()
	}
	if s.ns != nil {
		s.ns.Shutdown()
		s.ns.WaitForShutdown()
	}
}
