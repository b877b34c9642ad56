package macro_serv

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// StatusMessage is what a worker reports about itself. The set is closed:
// ErrorStatus and FinishedStatus are the only implementations.
type StatusMessage interface {
	isStatus()
}

// ErrorStatus carries the raw failure text, diagnostics included.
type ErrorStatus struct {
	Message string
}

// FinishedStatus means the automation routine returned.
type FinishedStatus struct{}

func (ErrorStatus) isStatus()    {}
func (FinishedStatus) isStatus() {}

const (
	statusError    = "error"
	statusFinished = "finished"
)

var ErrBadStatus = errors.New("macro: malformed status message")

type statusWire struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// EncodeStatus renders one line of the status pipe, without the newline.
func EncodeStatus(m StatusMessage) ([]byte, error) {
	switch v := m.(type) {
	case ErrorStatus:
		return json.Marshal(statusWire{Status: statusError, Message: v.Message})
	case FinishedStatus:
		return json.Marshal(statusWire{Status: statusFinished})
	default:
		return nil, fmt.Errorf("%w: %T", ErrBadStatus, m)
	}
}

// DecodeStatus parses one line of the status pipe.
func DecodeStatus(line []byte) (StatusMessage, error) {
	var w statusWire
	if err := json.Unmarshal(line, &w); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadStatus, err)
	}
	switch w.Status {
	case statusError:
		return ErrorStatus{Message: w.Message}, nil
	case statusFinished:
		return FinishedStatus{}, nil
	default:
		return nil, fmt.Errorf("%w: unknown status %q", ErrBadStatus, w.Status)
	}
}

//---------------------
// Error cleaning
//---------------------

const GenericError = "an error occurred during execution"

// diagnosticMarkers start the part of a worker failure the operator never sees.
var diagnosticMarkers = []string{
	"Traceback",
	"Diagnostics:",
	"panic:",
	"예외 정보:",
}

// CleanError keeps the text before the first diagnostic line, without
// trailing blank lines. It never returns an empty string.
func CleanError(raw string) string {
	lines := strings.Split(strings.ReplaceAll(raw, "\r\n", "\n"), "\n")

	cut := len(lines)
	for i, line := range lines {
		if isDiagnostic(line) {
			cut = i
			break
		}
	}
	lines = lines[:cut]

	for len(lines) > 0 && strings.TrimSpace(lines[len(lines)-1]) == "" {
		lines = lines[:len(lines)-1]
	}

	msg := strings.TrimSpace(strings.Join(lines, "\n"))
	if msg == "" {
		return GenericError
	}
	return msg
}

// goroutineHeader matches a Go stack dump header such as "goroutine 1 [running]:".
var goroutineHeader = regexp.MustCompile(`^goroutine \d+ \[`)

func isDiagnostic(line string) bool {
	trimmed := strings.TrimLeft(line, " \t")
	if goroutineHeader.MatchString(trimmed) {
		return true
	}
	for _, m := range diagnosticMarkers {
		if strings.HasPrefix(trimmed, m) {
			return true
		}
	}
	return false
}

// exitMessage is the error recorded for a worker that died without reporting.
func exitMessage(code int) string {
	return fmt.Sprintf("worker exited unexpectedly (exit code %d)", code)
}
