package bus_serv

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/rskv-p/srtmacro/servs/s_bus/bus_api"
	"github.com/rskv-p/srtmacro/servs/s_bus/bus_cfg"
	"github.com/rskv-p/srtmacro/servs/s_bus/bus_client"
	"github.com/rskv-p/srtmacro/servs/s_macro/macro_serv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startBus(t *testing.T) *Service {
	t.Helper()
	cfg := bus_cfg.DefaultConfig()
	cfg.Enabled = true
	cfg.Port = -1

	svc := New(cfg, zerolog.Nop())
	require.NoError(t, svc.Start())
	t.Cleanup(svc.Stop)
	return svc
}

// recorder collects tailed messages.
type recorder struct {
	mu     sync.Mutex
	events []macro_serv.Event
	lines  []string
}

func (r *recorder) handle(ev *macro_serv.Event, line *bus_api.LogLine) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if ev != nil {
		r.events = append(r.events, *ev)
	}
	if line != nil {
		r.lines = append(r.lines, line.Line)
	}
}

func (r *recorder) snapshot() ([]macro_serv.Event, []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]macro_serv.Event(nil), r.events...), append([]string(nil), r.lines...)
}

func tail(t *testing.T, svc *Service) *recorder {
	t.Helper()
	c, err := bus_client.Connect(svc.ClientURL(), "test-tail")
	require.NoError(t, err)
	t.Cleanup(c.Close)

	rec := &recorder{}
	sub, err := c.Watch(rec.handle)
	require.NoError(t, err)
	t.Cleanup(func() { _ = sub.Unsubscribe() })
	return rec
}

func TestStatusQuery(t *testing.T) {
	svc := startBus(t)
	require.NoError(t, svc.ServeStatus(func() macro_serv.Status {
		return macro_serv.Status{Running: true, Pid: 99, Phase: "running"}
	}))

	c, err := bus_client.Connect(svc.ClientURL(), "test")
	require.NoError(t, err)
	defer c.Close()

	st, err := c.Status(context.Background())
	require.NoError(t, err)
	assert.True(t, st.Running)
	assert.Equal(t, 99, st.Pid)
}

func TestStatusQueryOverOwnConn(t *testing.T) {
	svc := startBus(t)
	require.NoError(t, svc.ServeStatus(func() macro_serv.Status {
		return macro_serv.Status{Phase: "idle"}
	}))

	require.NotNil(t, svc.Conn())
	st, err := bus_client.New(svc.Conn()).Status(context.Background())
	require.NoError(t, err)
	assert.False(t, st.Running)
	assert.Equal(t, "idle", st.Phase)
}

func TestEventsAndLogsReachTail(t *testing.T) {
	svc := startBus(t)
	rec := tail(t, svc)

	svc.PublishEvent(macro_serv.Event{Kind: macro_serv.EventStarted, RunID: "r1", Pid: 7})
	require.NoError(t, svc.PublishLog("hello"))

	require.Eventually(t, func() bool {
		evs, lines := rec.snapshot()
		return len(evs) == 1 && len(lines) == 1
	}, 2*time.Second, 10*time.Millisecond)

	evs, lines := rec.snapshot()
	assert.Equal(t, macro_serv.EventStarted, evs[0].Kind)
	assert.Equal(t, "r1", evs[0].RunID)
	assert.Equal(t, []string{"hello"}, lines)
}

func TestForwardPumpLines(t *testing.T) {
	svc := startBus(t)
	rec := tail(t, svc)

	pump := macro_serv.NewLogPump(zerolog.Nop(), macro_serv.PumpOptions{})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Forward(ctx, pump) }()

	require.Eventually(t, func() bool { return pump.Subscribers() == 1 }, time.Second, 5*time.Millisecond)
	pump.Publish("a")
	pump.Publish("b")

	require.Eventually(t, func() bool {
		_, lines := rec.snapshot()
		return len(lines) == 2
	}, 2*time.Second, 10*time.Millisecond)
	_, lines := rec.snapshot()
	assert.Equal(t, []string{"a", "b"}, lines)

	cancel()
	require.NoError(t, <-done)
	assert.Equal(t, 0, pump.Subscribers())
	pump.Close()
}

func TestForwardEndsWithPump(t *testing.T) {
	svc := startBus(t)
	pump := macro_serv.NewLogPump(zerolog.Nop(), macro_serv.PumpOptions{})

	done := make(chan error, 1)
	go func() { done <- svc.Forward(context.Background(), pump) }()
	require.Eventually(t, func() bool { return pump.Subscribers() == 1 }, time.Second, 5*time.Millisecond)

	pump.Close()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("forward did not stop")
	}
}

func TestPublishBeforeStart(t *testing.T) {
	svc := New(bus_cfg.DefaultConfig(), zerolog.Nop())
	assert.Nil(t, svc.Conn())
	assert.ErrorIs(t, svc.PublishLog("x"), ErrNotStarted)
	assert.ErrorIs(t, svc.ServeStatus(nil), ErrNotStarted)
}
