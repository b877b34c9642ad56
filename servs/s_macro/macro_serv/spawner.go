package macro_serv

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"
)

const (
	// EnvParams carries the JSON encoded Params into the worker.
	EnvParams = "MACRO_PARAMS"
	// StatusFD is the worker side descriptor of the status pipe.
	StatusFD = 3

	maxLogLine = 1 << 20
)

var ErrSpawn = errors.New("macro: failed to spawn worker")

// Worker is a handle on one running automation process.
type Worker interface {
	Pid() int
	Status() *Channel[StatusMessage]
	Logs() *Channel[string]
	Alive() bool
	ExitCode() int
	Terminate() error
	Kill() error
	Wait(timeout time.Duration) bool
}

// Spawner starts workers.
type Spawner interface {
	Spawn(p Params) (Worker, error)
}

//---------------------
// Process spawner
//---------------------

// ProcSpawner runs each worker as a child process in its own process group.
type ProcSpawner struct {
	Command []string        // argv; empty re-executes this binary as "worker"
	Dir     string          // working directory
	Env     func() []string // extra KEY=VALUE pairs, read at every spawn
	Log     zerolog.Logger
}

func (s *ProcSpawner) argv() ([]string, error) {
	if len(s.Command) > 0 {
		return s.Command, nil
	}
	exe, err := os.Executable()
	if err != nil {
		return nil, err
	}
	return []string{exe, "worker"}, nil
}

// Spawn starts the worker with stdout and stderr on one pipe and the status
// pipe as an extra descriptor.
func (s *ProcSpawner) Spawn(p Params) (Worker, error) {
	argv, err := s.argv()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSpawn, err)
	}
	payload, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSpawn, err)
	}

	statusR, statusW, err := os.Pipe()
	if err != nil {
		return nil, fmt.Errorf("%w: status pipe: %v", ErrSpawn, err)
	}
	logR, logW, err := os.Pipe()
	if err != nil {
		statusR.Close()
		statusW.Close()
		return nil, fmt.Errorf("%w: log pipe: %v", ErrSpawn, err)
	}

	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.Dir = s.Dir
	cmd.Env = os.Environ()
	if s.Env != nil {
		cmd.Env = append(cmd.Env, s.Env()...)
	}
	cmd.Env = append(cmd.Env, EnvParams+"="+string(payload))
	cmd.Stdout = logW
	cmd.Stderr = logW
	cmd.ExtraFiles = []*os.File{statusW}
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	if err := cmd.Start(); err != nil {
		statusR.Close()
		statusW.Close()
		logR.Close()
		logW.Close()
		return nil, fmt.Errorf("%w: %v", ErrSpawn, err)
	}

	// Only the child keeps the write ends.
	statusW.Close()
	logW.Close()

	w := &procWorker{
		cmd:        cmd,
		log:        s.Log.With().Int("pid", cmd.Process.Pid).Logger(),
		status:     NewChannel[StatusMessage](16),
		logs:       NewChannel[string](1024),
		exited:     make(chan struct{}),
		statusDone: make(chan struct{}),
	}
	go w.readStatus(statusR)
	go w.readLogs(logR)
	go w.wait()

	w.log.Debug().Strs("argv", argv).Msg("worker spawned")
	return w, nil
}

//---------------------
// Process worker
//---------------------

type procWorker struct {
	cmd *exec.Cmd
	log zerolog.Logger

	status *Channel[StatusMessage]
	logs   *Channel[string]

	exited     chan struct{}
	statusDone chan struct{}

	mu       sync.Mutex
	exitCode int
}

func (w *procWorker) Pid() int                        { return w.cmd.Process.Pid }
func (w *procWorker) Status() *Channel[StatusMessage] { return w.status }
func (w *procWorker) Logs() *Channel[string]          { return w.logs }

// Alive turns false only after the process is reaped and its status pipe is
// fully read, so a dead worker's last status is always queued by then.
func (w *procWorker) Alive() bool {
	select {
	case <-w.exited:
	default:
		return true
	}
	select {
	case <-w.statusDone:
		return false
	default:
		return true
	}
}

func (w *procWorker) ExitCode() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.exitCode
}

// Terminate asks the whole process group to exit.
func (w *procWorker) Terminate() error {
	return w.signal(syscall.SIGTERM)
}

func (w *procWorker) Kill() error {
	return w.signal(syscall.SIGKILL)
}

func (w *procWorker) signal(sig syscall.Signal) error {
	select {
	case <-w.exited:
		return nil
	default:
	}
	err := syscall.Kill(-w.cmd.Process.Pid, sig)
	if errors.Is(err, syscall.ESRCH) {
		return nil
	}
	return err
}

// Wait joins the process for at most timeout.
func (w *procWorker) Wait(timeout time.Duration) bool {
	t := time.NewTimer(timeout)
	defer t.Stop()
	select {
	case <-w.exited:
		return true
	case <-t.C:
		return false
	}
}

func (w *procWorker) wait() {
	err := w.cmd.Wait()

	code := 0
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		if ws, ok := exitErr.Sys().(syscall.WaitStatus); ok {
			code = ws.ExitStatus()
			if ws.Signaled() {
				code = 128 + int(ws.Signal())
			}
		}
	}
	w.mu.Lock()
	w.exitCode = code
	w.mu.Unlock()
	close(w.exited)

	// Reap anything the worker left behind in its group so the pipes reach EOF.
	_ = syscall.Kill(-w.cmd.Process.Pid, syscall.SIGKILL)
	w.log.Debug().Int("code", code).Msg("worker exited")
}

func (w *procWorker) readStatus(r io.ReadCloser) {
	// statusDone closes before the channel so a consumer seeing the close also sees Alive settle.
	defer w.status.Close()
	defer close(w.statusDone)
	defer r.Close()

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 4096), maxLogLine)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		msg, err := DecodeStatus([]byte(line))
		if err != nil {
			w.log.Warn().Err(err).Str("line", line).Msg("bad status line")
			continue
		}
		w.status.Send(msg)
	}
}

func (w *procWorker) readLogs(r io.ReadCloser) {
	defer w.logs.Close()
	defer r.Close()

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), maxLogLine)
	for sc.Scan() {
		w.logs.Send(strings.TrimRight(sc.Text(), "\r"))
	}
	if err := sc.Err(); err != nil {
		w.log.Warn().Err(err).Msg("log pipe read failed")
	}
}
