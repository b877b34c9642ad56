// servs/s_bus/bus_api/api.go
package bus_api

import "time"

const (
	SubjectEvents = "macro.status"       // controller lifecycle events
	SubjectLogs   = "macro.logs"         // one message per log line
	SubjectQuery  = "macro.query.status" // request/reply, answers with the current status
	SubjectAll    = "macro.>"
)

// LogLine is the payload on SubjectLogs.
type LogLine struct {
	Line string    `json:"line"`
	At   time.Time `json:"at"`
}
