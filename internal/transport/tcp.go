package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"
)

const defaultDialTimeout = 6 * time.Second

// TCPTransport talks to a module behind a TCP socket
type TCPTransport struct {
	address     string
	dialTimeout time.Duration

	mu      sync.Mutex
	conn    net.Conn
	writeMu sync.Mutex
}

// NewTCPTransport creates a TCP transport for host:port
func NewTCPTransport(address string, dialTimeout time.Duration) *TCPTransport {
	if dialTimeout <= 0 {
		dialTimeout = defaultDialTimeout
	}
	return &TCPTransport{address: address, dialTimeout: dialTimeout}
}

func (t *TCPTransport) Name() string {
	return "tcp:" + t.address
}

func (t *TCPTransport) Open(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.conn != nil {
		return nil
	}
	if t.address == "" {
		return errors.New("tcp address is empty")
	}

	dialer := net.Dialer{Timeout: t.dialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", t.address)
	if err != nil {
		return fmt.Errorf("dial tcp %s: %w", t.address, err)
	}
	t.conn = conn
	return nil
}

// Read blocks until data arrives; a connection closed by Close reports io.EOF
func (t *TCPTransport) Read(p []byte) (int, error) {
	conn, err := t.currentConn()
	if err != nil {
		return 0, err
	}
	n, err := conn.Read(p)
	if errors.Is(err, net.ErrClosed) {
		return n, io.EOF
	}
	return n, err
}

func (t *TCPTransport) Write(p []byte) (int, error) {
	conn, err := t.currentConn()
	if err != nil {
		return 0, err
	}

	t.writeMu.Lock()
	defer t.writeMu.Unlock()

	n, err := conn.Write(p)
	if err != nil {
		return n, fmt.Errorf("write tcp: %w", err)
	}
	return n, nil
}

func (t *TCPTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.conn == nil {
		return nil
	}
	err := t.conn.Close()
	t.conn = nil
	return err
}

func (t *TCPTransport) currentConn() (net.Conn, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.conn == nil {
		return nil, ErrNotOpen
	}
	return t.conn, nil
}
