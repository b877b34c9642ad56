package macro_client

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/gorilla/websocket"
)

// WSClient follows the websocket log stream.
type WSClient struct {
	URL     string            // ws://host:port/ws
	Token   string            // optional JWT
	Handler func(line string) // called for every line

	mu   sync.Mutex
	conn *websocket.Conn
	done chan struct{}
	err  error
}

// NewWSClient derives the websocket URL from the panel's base URL.
func NewWSClient(baseURL, token string, handler func(line string)) *WSClient {
	u := strings.TrimRight(baseURL, "/") + "/ws"
	u = strings.Replace(u, "http://", "ws://", 1)
	u = strings.Replace(u, "https://", "wss://", 1)
	return &WSClient{URL: u, Token: token, Handler: handler}
}

// Connect opens the connection and starts listening for lines.
func (ws *WSClient) Connect(ctx context.Context) error {
	target := ws.URL
	header := http.Header{}
	if ws.Token != "" {
		header.Set("Authorization", "Bearer "+ws.Token)
		if u, err := url.Parse(target); err == nil {
			q := u.Query()
			q.Set("token", ws.Token)
			u.RawQuery = q.Encode()
			target = u.String()
		}
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, target, header)
	if err != nil {
		return err
	}

	ws.mu.Lock()
	ws.conn = conn
	ws.done = make(chan struct{})
	ws.mu.Unlock()

	go ws.listen(conn)
	go func() {
		select {
		case <-ctx.Done():
			_ = ws.Close()
		case <-ws.Done():
		}
	}()
	return nil
}

// listen reads lines until the connection ends.
func (ws *WSClient) listen(conn *websocket.Conn) {
	defer close(ws.done)
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				ws.mu.Lock()
				ws.err = err
				ws.mu.Unlock()
			}
			return
		}
		if ws.Handler != nil {
			ws.Handler(string(data))
		}
	}
}

// Done is closed when the stream ends.
func (ws *WSClient) Done() <-chan struct{} {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	return ws.done
}

// Err returns the read error that ended the stream, if any.
func (ws *WSClient) Err() error {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	return ws.err
}

// Close sends a close frame and drops the connection.
func (ws *WSClient) Close() error {
	ws.mu.Lock()
	conn := ws.conn
	ws.mu.Unlock()
	if conn == nil {
		return nil
	}
	_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	return conn.Close()
}
