// Package transport carries raw API frame bytes between the host and a module.
//
// Transports are byte streams: they make no framing guarantees and a Read may
// return any part of a frame. The link package feeds whatever is read into a
// codec.Assembler. Three transports are provided:
//
//   - SerialTransport: a UART or USB serial port (go.bug.st/serial)
//   - TCPTransport: a TCP socket, e.g. a serial-to-TCP bridge
//   - WebSocketTransport: binary WebSocket messages, e.g. an xbeectl bridge
package transport

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrNotOpen is returned by Read and Write before Open or after Close
var ErrNotOpen = errors.New("transport is not open")

// Transport is a bidirectional byte stream to a module
type Transport interface {
	// Name identifies the transport in logs, e.g. "serial:/dev/ttyUSB0"
	Name() string
	// Open establishes the connection. Opening an open transport is a no-op.
	Open(ctx context.Context) error
	// Read reads raw bytes. It may return 0, nil when a read timeout expires.
	Read(p []byte) (int, error)
	// Write writes raw bytes; a complete frame is written in one call.
	Write(p []byte) (int, error)
	// Close releases the connection and unblocks pending reads.
	Close() error
}

// Kind selects a transport implementation
type Kind string

const (
	KindSerial    Kind = "serial"
	KindTCP       Kind = "tcp"
	KindWebSocket Kind = "websocket"
)

// Options describes the transport to create.
// Only the fields of the selected kind are used.
type Options struct {
	Kind Kind

	// Serial
	Port        string
	BaudRate    int
	ReadTimeout time.Duration

	// TCP
	Address     string
	DialTimeout time.Duration

	// WebSocket
	URL string
}

// New creates an unopened transport from opts
func New(opts Options) (Transport, error) {
	switch opts.Kind {
	case KindSerial:
		t := NewSerialTransport(opts.Port, opts.BaudRate)
		if opts.ReadTimeout > 0 {
			t.readTimeout = opts.ReadTimeout
		}
		return t, nil
	case KindTCP:
		return NewTCPTransport(opts.Address, opts.DialTimeout), nil
	case KindWebSocket:
		return NewWebSocketTransport(opts.URL), nil
	default:
		return nil, fmt.Errorf("unknown transport kind %q (expected serial, tcp or websocket)", opts.Kind)
	}
}
