package transport

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.bug.st/serial"
)

// Defaults for serial ports; XBee modules ship at 9600 8N1
const (
	DefaultBaudRate          = 9600
	defaultSerialReadTimeout = 200 * time.Millisecond
)

// SerialTransport talks to a module over a serial port
type SerialTransport struct {
	portName    string
	baudRate    int
	readTimeout time.Duration

	mu      sync.Mutex
	port    serial.Port
	writeMu sync.Mutex
}

// NewSerialTransport creates a serial transport; a zero baud rate uses DefaultBaudRate
func NewSerialTransport(portName string, baudRate int) *SerialTransport {
	if baudRate == 0 {
		baudRate = DefaultBaudRate
	}
	return &SerialTransport{
		portName:    portName,
		baudRate:    baudRate,
		readTimeout: defaultSerialReadTimeout,
	}
}

func (t *SerialTransport) Name() string {
	return "serial:" + t.portName
}

// Open opens the port at the configured baud rate, 8 data bits, no parity, one stop bit
func (t *SerialTransport) Open(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.port != nil {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if t.portName == "" {
		return errors.New("serial port is empty")
	}
	if t.baudRate <= 0 {
		return fmt.Errorf("invalid serial baud rate: %d", t.baudRate)
	}

	mode := &serial.Mode{
		BaudRate: t.baudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	port, err := serial.Open(t.portName, mode)
	if err != nil {
		return fmt.Errorf("open serial port %q: %w", t.portName, err)
	}
	if err := port.SetReadTimeout(t.readTimeout); err != nil {
		_ = port.Close()
		return fmt.Errorf("set serial read timeout: %w", err)
	}
	t.port = port
	return nil
}

// Read returns 0, nil when the read timeout expires with no data
func (t *SerialTransport) Read(p []byte) (int, error) {
	port, err := t.currentPort()
	if err != nil {
		return 0, err
	}
	return port.Read(p)
}

func (t *SerialTransport) Write(p []byte) (int, error) {
	port, err := t.currentPort()
	if err != nil {
		return 0, err
	}

	t.writeMu.Lock()
	defer t.writeMu.Unlock()

	written := 0
	for written < len(p) {
		n, err := port.Write(p[written:])
		if err != nil {
			return written, fmt.Errorf("write serial port: %w", err)
		}
		written += n
	}
	return written, nil
}

func (t *SerialTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.port == nil {
		return nil
	}
	err := t.port.Close()
	t.port = nil
	return err
}

func (t *SerialTransport) currentPort() (serial.Port, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.port == nil {
		return nil, ErrNotOpen
	}
	return t.port, nil
}

// ListPorts returns the serial ports present on this host
func ListPorts() ([]string, error) {
	ports, err := serial.GetPortsList()
	if err != nil {
		return nil, fmt.Errorf("list serial ports: %w", err)
	}
	return ports, nil
}
