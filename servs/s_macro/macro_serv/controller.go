package macro_serv

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nuid"
	"github.com/rs/zerolog"
)

// Errors
var (
	ErrAlreadyRunning      = errors.New("macro: already running")
	ErrNotRunning          = errors.New("macro: not running")
	ErrLaunchTimeout       = errors.New("macro: worker died before reporting")
	ErrWorkerError         = errors.New("macro: worker reported an error")
	ErrImmediateCompletion = errors.New("macro: worker finished immediately")
	ErrStartAborted        = errors.New("macro: stopped during startup")
)

const immediateCompletionMessage = "finished immediately, check conditions"

// Phase of the controller state machine.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseStarting
	PhaseRunning
	PhaseTerminating
)

func (p Phase) String() string {
	switch p {
	case PhaseStarting:
		return "starting"
	case PhaseRunning:
		return "running"
	case PhaseTerminating:
		return "terminating"
	default:
		return "idle"
	}
}

// Options tune the bounded waits.
type Options struct {
	StartWait   time.Duration // first status message
	JoinTimeout time.Duration // join after an error or finish
	StopTimeout time.Duration // join on Stop
}

func (o *Options) applyDefaults() {
	if o.StartWait <= 0 {
		o.StartWait = 8 * time.Second
	}
	if o.JoinTimeout <= 0 {
		o.JoinTimeout = 3 * time.Second
	}
	if o.StopTimeout <= 0 {
		o.StopTimeout = 5 * time.Second
	}
}

// Status is a point-in-time view of the run state.
type Status struct {
	Running   bool       `json:"running"`
	Pid       int        `json:"pid"`
	StartedAt *time.Time `json:"started_at"`
	LastError string     `json:"last_error"`
	Params    *Params    `json:"params,omitempty"`
	RunID     string     `json:"run_id,omitempty"`
	Phase     string     `json:"phase"`
}

//---------------------
// Events
//---------------------

type EventKind string

const (
	EventStarted  EventKind = "started"
	EventFailed   EventKind = "failed"
	EventFinished EventKind = "finished"
	EventStopped  EventKind = "stopped"
)

// Event describes one lifecycle transition.
type Event struct {
	Kind    EventKind `json:"kind"`
	RunID   string    `json:"run_id"`
	Pid     int       `json:"pid"`
	Message string    `json:"message,omitempty"`
	At      time.Time `json:"at"`
}

// Observer is called outside the controller lock.
type Observer func(Event)

//---------------------
// Controller
//---------------------

// Controller is the single owner of the worker process.
type Controller struct {
	log     zerolog.Logger
	spawner Spawner
	pump    *LogPump
	opts    Options

	mu        sync.Mutex
	phase     Phase
	worker    Worker
	runID     string
	startedAt time.Time
	lastError string
	params    *Params
	pending   []Event

	obsMu     sync.RWMutex
	observers []Observer
}

func NewController(log zerolog.Logger, spawner Spawner, pump *LogPump, opts Options) *Controller {
	opts.applyDefaults()
	return &Controller{
		log:     log,
		spawner: spawner,
		pump:    pump,
		opts:    opts,
	}
}

// Pump returns the log pump runs are attached to.
func (c *Controller) Pump() *LogPump { return c.pump }

// Observe registers fn for lifecycle events.
func (c *Controller) Observe(fn Observer) {
	c.obsMu.Lock()
	c.observers = append(c.observers, fn)
	c.obsMu.Unlock()
}

// unlock releases the state lock and then emits queued events.
func (c *Controller) unlock() {
	events := c.pending
	c.pending = nil
	c.mu.Unlock()

	if len(events) == 0 {
		return
	}
	c.obsMu.RLock()
	observers := append([]Observer(nil), c.observers...)
	c.obsMu.RUnlock()
	for _, ev := range events {
		for _, fn := range observers {
			fn(ev)
		}
	}
}

func (c *Controller) emitLocked(kind EventKind, msg string) {
	ev := Event{Kind: kind, RunID: c.runID, Message: msg, At: time.Now()}
	if c.worker != nil {
		ev.Pid = c.worker.Pid()
	}
	c.pending = append(c.pending, ev)
}

//---------------------
// Start
//---------------------

// Start validates p, spawns a worker and waits for its first signal. A worker
// that stays quiet and alive through the wait counts as launched.
func (c *Controller) Start(p Params) error {
	p = p.Normalize()
	if err := p.Validate(); err != nil {
		return err
	}

	c.mu.Lock()
	c.healLocked()
	if c.phase != PhaseIdle || c.worker != nil {
		c.unlock()
		return ErrAlreadyRunning
	}

	w, err := c.spawner.Spawn(p)
	if err != nil {
		c.lastError = err.Error()
		c.unlock()
		return err
	}

	c.phase = PhaseStarting
	c.worker = w
	c.runID = nuid.Next()
	c.startedAt = time.Now()
	c.params = &p
	c.lastError = ""
	log := c.log.With().Str("run", c.runID).Int("pid", w.Pid()).Logger()
	c.pump.Attach(w.Logs(), w.Alive)
	c.unlock()

	log.Info().Str("arrival", p.Arrival).Str("departure", p.Departure).Msg("worker starting")

	msg, ok, closed := w.Status().RecvTimeout(c.opts.StartWait)
	if closed {
		// Status pipe hit EOF: the worker is exiting, give it a moment to be reaped.
		w.Wait(c.opts.JoinTimeout)
	}

	c.mu.Lock()
	defer c.unlock()

	if c.worker != w || c.phase == PhaseTerminating {
		log.Info().Msg("worker stopped during startup")
		return ErrStartAborted
	}

	switch m := msg.(type) {
	case FinishedStatus:
		c.terminateLocked(w, c.opts.JoinTimeout)
		c.lastError = immediateCompletionMessage
		c.emitLocked(EventFailed, c.lastError)
		c.clearLocked()
		log.Warn().Msg(immediateCompletionMessage)
		return fmt.Errorf("%w: %s", ErrImmediateCompletion, immediateCompletionMessage)

	case ErrorStatus:
		c.terminateLocked(w, c.opts.JoinTimeout)
		c.lastError = CleanError(m.Message)
		c.emitLocked(EventFailed, c.lastError)
		c.clearLocked()
		log.Warn().Str("err", c.lastError).Msg("worker failed during startup")
		return fmt.Errorf("%w: %s", ErrWorkerError, c.lastError)
	}

	if !ok && !w.Alive() {
		// A late status may have raced the exit.
		if c.consumeLocked(w) {
			return fmt.Errorf("%w: %s", ErrWorkerError, c.lastError)
		}
		c.lastError = exitMessage(w.ExitCode())
		c.emitLocked(EventFailed, c.lastError)
		c.clearLocked()
		log.Warn().Str("err", c.lastError).Msg("worker died during startup")
		return fmt.Errorf("%w: %s", ErrLaunchTimeout, c.lastError)
	}

	c.phase = PhaseRunning
	c.emitLocked(EventStarted, "")
	log.Info().Msg("worker running")
	return nil
}

//---------------------
// Stop
//---------------------

// Stop terminates the worker and clears the run. It fails when idle or when
// another Stop is already terminating the worker. The lock is not held while
// joining, so Running, Refresh and Status keep answering; the Terminating
// phase keeps Start out until the run is cleared.
func (c *Controller) Stop() error {
	c.mu.Lock()
	if c.worker == nil || c.phase == PhaseTerminating {
		c.unlock()
		return ErrNotRunning
	}
	w := c.worker
	runID := c.runID
	c.phase = PhaseTerminating
	c.unlock()

	c.terminate(w, c.opts.StopTimeout)

	c.mu.Lock()
	defer c.unlock()
	if c.worker == w {
		c.emitLocked(EventStopped, "")
		c.clearLocked()
	}
	c.log.Info().Str("run", runID).Int("pid", w.Pid()).Msg("worker stopped")
	return nil
}

//---------------------
// Refresh / Running / Status
//---------------------

// Refresh applies any status the worker has queued. It never waits on the worker.
func (c *Controller) Refresh() {
	c.mu.Lock()
	defer c.unlock()
	c.healLocked()
}

// Running reports whether a worker is alive. A dead worker is cleared first.
func (c *Controller) Running() bool {
	c.mu.Lock()
	defer c.unlock()
	c.healLocked()
	return c.worker != nil
}

func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.unlock()
	c.healLocked()

	st := Status{
		Running:   c.worker != nil,
		LastError: c.lastError,
		RunID:     c.runID,
		Phase:     c.phase.String(),
	}
	if c.worker != nil {
		st.Pid = c.worker.Pid()
		started := c.startedAt
		st.StartedAt = &started
	}
	if c.params != nil {
		p := *c.params
		st.Params = &p
	}
	return st
}

// LastError returns the reason the previous run ended, if any.
func (c *Controller) LastError() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastError
}

// Close stops a live worker and shuts the pump down.
func (c *Controller) Close() {
	if err := c.Stop(); err != nil && !errors.Is(err, ErrNotRunning) {
		c.log.Warn().Err(err).Msg("stop on close")
	}
	c.pump.Close()
}

//---------------------
// Locked helpers
//---------------------

// healLocked drains queued status messages of a running worker and clears the
// run if it ended. Startup owns the worker until it decides.
func (c *Controller) healLocked() {
	if c.worker == nil || c.phase != PhaseRunning {
		return
	}
	w := c.worker
	if c.consumeLocked(w) {
		return
	}
	if !w.Alive() {
		if c.consumeLocked(w) {
			return
		}
		c.lastError = exitMessage(w.ExitCode())
		c.emitLocked(EventFailed, c.lastError)
		c.log.Warn().Str("run", c.runID).Str("err", c.lastError).Msg("worker exited without status")
		c.clearLocked()
	}
}

// consumeLocked handles queued status messages. It reports whether the run ended.
func (c *Controller) consumeLocked(w Worker) bool {
	for {
		msg, ok, _ := w.Status().TryRecv()
		if !ok {
			return false
		}
		switch m := msg.(type) {
		case ErrorStatus:
			c.terminateLocked(w, c.opts.JoinTimeout)
			c.lastError = CleanError(m.Message)
			c.emitLocked(EventFailed, c.lastError)
			c.log.Warn().Str("run", c.runID).Str("err", c.lastError).Msg("worker reported an error")
			c.clearLocked()
			return true
		case FinishedStatus:
			// A worker that says it is done is never left running.
			c.terminateLocked(w, c.opts.JoinTimeout)
			c.emitLocked(EventFinished, "")
			c.log.Info().Str("run", c.runID).Msg("worker finished")
			c.clearLocked()
			return true
		}
	}
}

// terminateLocked is terminate for a worker whose status has already said it
// is ending, so the join is expected to be short.
func (c *Controller) terminateLocked(w Worker, timeout time.Duration) {
	c.terminate(w, timeout)
}

// terminate sends SIGTERM, joins for timeout and escalates to SIGKILL.
// Join failures are logged; the caller clears state regardless.
func (c *Controller) terminate(w Worker, timeout time.Duration) {
	if !w.Alive() {
		return
	}
	if err := w.Terminate(); err != nil {
		c.log.Warn().Err(err).Int("pid", w.Pid()).Msg("terminate failed")
	}
	if w.Wait(timeout) {
		return
	}
	c.log.Warn().Int("pid", w.Pid()).Dur("timeout", timeout).Msg("worker did not exit, killing")
	if err := w.Kill(); err != nil {
		c.log.Warn().Err(err).Int("pid", w.Pid()).Msg("kill failed")
	}
	if !w.Wait(time.Second) {
		c.log.Error().Int("pid", w.Pid()).Msg("worker still not joined, giving up")
	}
}

// clearLocked resets the run. lastError is kept until the next Start.
func (c *Controller) clearLocked() {
	c.phase = PhaseIdle
	c.worker = nil
	c.runID = ""
	c.startedAt = time.Time{}
	c.params = nil
}
