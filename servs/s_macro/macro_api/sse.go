package macro_api

import (
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const sseGreeting = "[logs] connected"

// writeEvent frames line as one SSE message. Embedded newlines become
// continuation data lines.
func writeEvent(w io.Writer, line string) error {
	var b strings.Builder
	for _, part := range strings.Split(line, "\n") {
		fmt.Fprintf(&b, "data: %s\n", part)
	}
	b.WriteString("\n")
	_, err := io.WriteString(w, b.String())
	return err
}

// handleSSE streams the log: greeting, buffered history, then live lines.
// A comment line keeps idle proxies from closing the stream.
func (s *Server) handleSSE() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		flusher, ok := w.(http.Flusher)
		if !ok {
			http.Error(w, "streaming unsupported", http.StatusInternalServerError)
			return
		}

		h := w.Header()
		h.Set("Content-Type", "text/event-stream")
		h.Set("Cache-Control", "no-cache")
		h.Set("Connection", "keep-alive")
		h.Set("X-Accel-Buffering", "no")

		// Subscribe before the snapshot so no line falls between the two.
		sub := s.Pump.Subscribe()
		defer s.Pump.Unsubscribe(sub)

		if err := writeEvent(w, sseGreeting); err != nil {
			return
		}
		for _, line := range s.Pump.Lines() {
			if err := writeEvent(w, line); err != nil {
				return
			}
		}
		flusher.Flush()

		ticker := time.NewTicker(s.Heartbeat)
		defer ticker.Stop()

		for {
			select {
			case <-r.Context().Done():
				return
			case <-sub.Done():
				return
			case line := <-sub.C():
				if err := writeEvent(w, line); err != nil {
					return
				}
				flusher.Flush()
			case <-ticker.C:
				if _, err := io.WriteString(w, ": ping\n\n"); err != nil {
					return
				}
				flusher.Flush()
			}
		}
	}
}

// handleLogsJSON is the polling fallback.
func (s *Server) handleLogsJSON() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp, err := s.Macro.Logs(r.Context())
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		if resp.Lines == nil {
			resp.Lines = []string{}
		}
		writeJSON(w, http.StatusOK, resp)
	}
}
