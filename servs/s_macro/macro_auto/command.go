// Package macro_auto holds the automation routines a worker can run.
package macro_auto

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"os/user"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/google/shlex"
	"github.com/rskv-p/srtmacro/servs/s_macro/macro_serv"
)

var (
	ErrEmptyCommand = errors.New("automation: empty command")
	ErrScriptFailed = errors.New("automation: script failed")
)

// CommandAutomation runs an external script that drives the booking site.
// The command may reference ${arrival}, ${departure}, ${date}, ${time},
// ${seats}, ${from} and ${to}; the same values are exported as SRT_* variables.
type CommandAutomation struct {
	Command string
	Dir     string
	Env     []string
}

func (a *CommandAutomation) Run(ctx context.Context, p macro_serv.Params, out io.Writer) error {
	argv, err := a.argv(p)
	if err != nil {
		return err
	}

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Dir = expandHomeDir(a.Dir)
	cmd.Env = append(append(os.Environ(), a.Env...), paramsEnv(p)...)
	cmd.Stdout = out
	cmd.Stderr = out
	cmd.Cancel = func() error { return cmd.Process.Signal(syscall.SIGTERM) }

	fmt.Fprintf(out, "[auto] %s\n", strings.Join(argv, " "))
	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return fmt.Errorf("%w: exit code %d", ErrScriptFailed, exitErr.ExitCode())
		}
		return fmt.Errorf("%w: %v", ErrScriptFailed, err)
	}
	return nil
}

// argv expands placeholders and splits the command like a shell would.
func (a *CommandAutomation) argv(p macro_serv.Params) ([]string, error) {
	vars := paramsMap(p)
	expanded := os.Expand(a.Command, func(key string) string {
		if v, ok := vars[key]; ok {
			return v
		}
		// left for the script's own shell
		return "${" + key + "}"
	})
	parts, err := shlex.Split(expanded)
	if err != nil {
		return nil, fmt.Errorf("automation: parse command: %w", err)
	}
	if len(parts) == 0 {
		return nil, ErrEmptyCommand
	}
	return parts, nil
}

func paramsMap(p macro_serv.Params) map[string]string {
	return map[string]string{
		"arrival":   p.Arrival,
		"departure": p.Departure,
		"date":      p.Date,
		"time":      p.Time,
		"seats":     p.Seats,
		"from":      strconv.Itoa(p.FromRow),
		"to":        strconv.Itoa(p.ToRow),
	}
}

func paramsEnv(p macro_serv.Params) []string {
	env := make([]string, 0, 7)
	for k, v := range paramsMap(p) {
		env = append(env, "SRT_"+strings.ToUpper(k)+"="+v)
	}
	return env
}

// Expand tilde (~) to home directory
func expandHomeDir(path string) string {
	if strings.HasPrefix(path, "~") {
		if usr, err := user.Current(); err == nil {
			return filepath.Join(usr.HomeDir, path[1:])
		}
	}
	return path
}
