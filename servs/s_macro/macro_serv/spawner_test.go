package macro_serv

import (
	"os"
	"runtime"
	"slices"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func helperSpawner(t *testing.T, mode string) *ProcSpawner {
	t.Helper()
	if runtime.GOOS != "linux" && runtime.GOOS != "darwin" {
		t.Skip("process groups need a unix host")
	}
	return &ProcSpawner{
		Command: []string{os.Args[0], "-test.run=^$"},
		Env:     func() []string { return []string{helperEnv + "=" + mode} },
		Log:     zerolog.Nop(),
	}
}

func newProcController(t *testing.T, mode string, wait time.Duration) *Controller {
	t.Helper()
	pump := NewLogPump(zerolog.Nop(), PumpOptions{PollInterval: 20 * time.Millisecond})
	c := NewController(zerolog.Nop(), helperSpawner(t, mode), pump, Options{
		StartWait:   wait,
		JoinTimeout: 3 * time.Second,
		StopTimeout: 5 * time.Second,
	})
	t.Cleanup(c.Close)
	return c
}

func TestProcessStartAndStop(t *testing.T) {
	c := newProcController(t, "quiet", 500*time.Millisecond)

	require.NoError(t, c.Start(Params{
		Arrival: "A", Departure: "B", Date: "20250101", Time: "10", Seats: "both", FromRow: 1, ToRow: 3,
	}))

	st := c.Status()
	assert.True(t, st.Running)
	assert.Greater(t, st.Pid, 0)

	assert.Eventually(t, func() bool {
		return slices.Contains(c.Pump().Lines(), "searching A -> B")
	}, 5*time.Second, 20*time.Millisecond)
	assert.Contains(t, c.Pump().Lines(), "[macro] starting...")

	require.NoError(t, c.Stop())
	assert.False(t, c.Running())
	assert.ErrorIs(t, c.Stop(), ErrNotRunning)
}

func TestProcessWorkerError(t *testing.T) {
	c := newProcController(t, "error", 5*time.Second)

	err := c.Start(validParams())
	assert.ErrorIs(t, err, ErrWorkerError)
	assert.Equal(t, "Boom", c.LastError())
	assert.False(t, c.Running())

	assert.Eventually(t, func() bool {
		return slices.Contains(c.Pump().Lines(), "[ERROR] Boom")
	}, 5*time.Second, 20*time.Millisecond)
}

func TestProcessImmediateFinish(t *testing.T) {
	c := newProcController(t, "finish", 5*time.Second)

	err := c.Start(validParams())
	assert.ErrorIs(t, err, ErrImmediateCompletion)
	assert.False(t, c.Running())
}

func TestProcessCrashWithoutStatus(t *testing.T) {
	c := newProcController(t, "crash", 5*time.Second)

	err := c.Start(validParams())
	assert.ErrorIs(t, err, ErrLaunchTimeout)
	assert.Contains(t, c.LastError(), "exit code 3")

	assert.Eventually(t, func() bool {
		return slices.Contains(c.Pump().Lines(), "about to crash")
	}, 5*time.Second, 20*time.Millisecond)
}

func TestProcessLogsInOrder(t *testing.T) {
	c := newProcController(t, "chatty", 300*time.Millisecond)
	sub := c.Pump().Subscribe()
	defer c.Pump().Unsubscribe(sub)

	require.NoError(t, c.Start(validParams()))

	var got []string
	deadline := time.After(5 * time.Second)
	for len(got) < 4 {
		select {
		case line := <-sub.C():
			got = append(got, line)
		case <-deadline:
			t.Fatalf("got only %v", got)
		}
	}
	assert.Equal(t, []string{"[macro] starting...", "line-0", "line-1", "line-2"}, got)
}

func TestProcessKilledExternallySelfHeals(t *testing.T) {
	c := newProcController(t, "quiet", 300*time.Millisecond)
	require.NoError(t, c.Start(validParams()))

	p, err := os.FindProcess(c.Status().Pid)
	require.NoError(t, err)
	require.NoError(t, p.Kill())

	assert.Eventually(t, func() bool { return !c.Running() }, 5*time.Second, 20*time.Millisecond)
	assert.Contains(t, c.LastError(), "exit code 137")
}
