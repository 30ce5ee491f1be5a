package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/muurk/xbeeapi/internal/version"
)

// Time allowed to write a message to the peer
const wsWriteWait = 10 * time.Second

// WebSocketTransport exchanges raw frame bytes as binary WebSocket messages.
// Message boundaries carry no meaning; text messages are ignored.
type WebSocketTransport struct {
	url string

	mu      sync.Mutex
	conn    *websocket.Conn
	writeMu sync.Mutex

	// pending holds the unread tail of the current message; only Read touches it
	pending []byte
}

// NewWebSocketTransport creates a transport for a ws:// or wss:// URL
func NewWebSocketTransport(url string) *WebSocketTransport {
	return &WebSocketTransport{url: url}
}

func (t *WebSocketTransport) Name() string {
	return "websocket:" + t.url
}

func (t *WebSocketTransport) Open(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.conn != nil {
		return nil
	}
	if t.url == "" {
		return errors.New("websocket url is empty")
	}

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, t.url, http.Header{
		"User-Agent": {version.UserAgent()},
	})
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		return fmt.Errorf("dial websocket %s: %w", t.url, err)
	}
	t.conn = conn
	t.pending = nil
	return nil
}

func (t *WebSocketTransport) Read(p []byte) (int, error) {
	for len(t.pending) == 0 {
		conn, err := t.currentConn()
		if err != nil {
			return 0, err
		}
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) ||
				errors.Is(err, net.ErrClosed) {
				return 0, io.EOF
			}
			return 0, err
		}
		if msgType == websocket.BinaryMessage {
			t.pending = data
		}
	}

	n := copy(p, t.pending)
	t.pending = t.pending[n:]
	return n, nil
}

func (t *WebSocketTransport) Write(p []byte) (int, error) {
	conn, err := t.currentConn()
	if err != nil {
		return 0, err
	}

	t.writeMu.Lock()
	defer t.writeMu.Unlock()

	_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
	if err := conn.WriteMessage(websocket.BinaryMessage, p); err != nil {
		return 0, fmt.Errorf("write websocket: %w", err)
	}
	return len(p), nil
}

// Close sends a close message and closes the connection
func (t *WebSocketTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.conn == nil {
		return nil
	}

	t.writeMu.Lock()
	_ = t.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	t.writeMu.Unlock()

	err := t.conn.Close()
	t.conn = nil
	return err
}

func (t *WebSocketTransport) currentConn() (*websocket.Conn, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.conn == nil {
		return nil, ErrNotOpen
	}
	return t.conn, nil
}
