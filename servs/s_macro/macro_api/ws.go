package macro_api

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rskv-p/srtmacro/pkg/x_log"
)

const wsWriteWait = 5 * time.Second

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// handleWS streams the same lines as /logs over a websocket, one text
// message per line.
func (s *Server) handleWS() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			x_log.From(r.Context()).Debug().Err(err).Msg("websocket upgrade")
			return
		}

		// The reader only notices the peer going away.
		gone := make(chan struct{})
		go func() {
			defer close(gone)
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()
		defer func() {
			_ = conn.Close()
			<-gone
		}()

		sub := s.Pump.Subscribe()
		defer s.Pump.Unsubscribe(sub)

		send := func(line string) error {
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			return conn.WriteMessage(websocket.TextMessage, []byte(line))
		}
		closeWith := func(code int, text string) {
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(code, text), time.Now().Add(wsWriteWait))
		}

		if err := send(sseGreeting); err != nil {
			return
		}
		for _, line := range s.Pump.Lines() {
			if err := send(line); err != nil {
				return
			}
		}

		ticker := time.NewTicker(s.Heartbeat)
		defer ticker.Stop()

		for {
			select {
			case <-r.Context().Done():
				closeWith(websocket.CloseGoingAway, "server shutting down")
				return
			case <-sub.Done():
				closeWith(websocket.CloseGoingAway, "log stream closed")
				return
			case <-gone:
				return
			case line := <-sub.C():
				if err := send(line); err != nil {
					return
				}
			case <-ticker.C:
				if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteWait)); err != nil {
					return
				}
			}
		}
	}
}
