package macro_serv

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"runtime/debug"
	"sync"
	"syscall"
)

// Automation performs one reservation attempt. Progress goes to out as text.
type Automation interface {
	Run(ctx context.Context, p Params, out io.Writer) error
}

// Notifier tells the operator how a run ended. Failures to notify are logged only.
type Notifier interface {
	Notify(ctx context.Context, msg string) error
}

// WorkerDeps are the collaborators of the worker entrypoint.
type WorkerDeps struct {
	Automation Automation
	Notifier   Notifier  // optional
	Status     io.Writer // status pipe
	Out        io.Writer // log stream
}

// statusWriter serialises status lines onto the pipe.
type statusWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *statusWriter) send(m StatusMessage) error {
	b, err := EncodeStatus(m)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err = s.w.Write(append(b, '\n'))
	return err
}

// RunWorker is the body of the worker process. It always reports "finished"
// last; a failure is reported as "error" first.
func RunWorker(ctx context.Context, p Params, deps WorkerDeps) (err error) {
	sw := &statusWriter{w: deps.Status}
	out := deps.Out

	fmt.Fprintln(out, "[macro] starting...")

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("internal error: %v", r)
			raw := fmt.Sprintf("%v\n%s", err, debug.Stack())
			reportFailure(ctx, sw, out, deps.Notifier, raw)
		}
	}()

	if deps.Automation == nil {
		err = errors.New("no automation configured")
		reportFailure(ctx, sw, out, deps.Notifier, err.Error())
		return err
	}

	if runErr := deps.Automation.Run(ctx, p, out); runErr != nil {
		raw := fmt.Sprintf("%v\nDiagnostics:\ntype: %T\n%+v", runErr, runErr, runErr)
		reportFailure(ctx, sw, out, deps.Notifier, raw)
		return runErr
	}

	fmt.Fprintln(out, "[macro] finished")
	notify(ctx, deps.Notifier, out, fmt.Sprintf("[srtmacro] run finished: %s -> %s %s %s:00",
		p.Arrival, p.Departure, p.Date, p.Time))
	return sw.send(FinishedStatus{})
}

func reportFailure(ctx context.Context, sw *statusWriter, out io.Writer, n Notifier, raw string) {
	clean := CleanError(raw)
	fmt.Fprintf(out, "[ERROR] %s\n", clean)
	notify(ctx, n, out, "[srtmacro] run failed: "+clean)
	_ = sw.send(ErrorStatus{Message: raw})
	_ = sw.send(FinishedStatus{})
}

func notify(ctx context.Context, n Notifier, out io.Writer, msg string) {
	if n == nil {
		return
	}
	if err := n.Notify(ctx, msg); err != nil {
		fmt.Fprintf(out, "[notify] %v\n", err)
	}
}

//---------------------
// Worker process side
//---------------------

// OpenStatusPipe returns the inherited status descriptor. It is marked
// close-on-exec so scripts started by the worker do not hold it open.
func OpenStatusPipe() (*os.File, error) {
	f := os.NewFile(uintptr(StatusFD), "status")
	if f == nil {
		return nil, errors.New("macro: status pipe missing")
	}
	if _, err := f.Stat(); err != nil {
		return nil, fmt.Errorf("macro: status pipe: %w", err)
	}
	syscall.CloseOnExec(StatusFD)
	return f, nil
}

// ParamsFromEnv decodes the parameters the controller put in EnvParams.
func ParamsFromEnv() (Params, error) {
	var p Params
	raw := os.Getenv(EnvParams)
	if raw == "" {
		return p, fmt.Errorf("%w: %s is empty", ErrInvalidParams, EnvParams)
	}
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return p, fmt.Errorf("%w: %v", ErrInvalidParams, err)
	}
	return p, nil
}
