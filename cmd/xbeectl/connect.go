package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/muurk/xbeeapi/internal/codec"
	"github.com/muurk/xbeeapi/internal/discovery"
	"github.com/muurk/xbeeapi/internal/link"
	"github.com/muurk/xbeeapi/internal/logging"
	"github.com/muurk/xbeeapi/internal/transport"
	"go.uber.org/zap"
)

// Connection override flags, applied on top of the config file
var (
	transportKind string
	serialPort    string
	baudRate      int
	tcpAddress    string
	wsURL         string
	bridgeInst    string
	modeName      string
)

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&transportKind, "transport", "", "Transport kind (serial, tcp, websocket)")
	flags.StringVar(&serialPort, "serial-port", "", "Serial device, e.g. /dev/ttyUSB0 (implies --transport serial)")
	flags.IntVar(&baudRate, "baud", 0, "Serial baud rate")
	flags.StringVar(&tcpAddress, "address", "", "TCP host:port of a serial-to-TCP bridge (implies --transport tcp)")
	flags.StringVar(&wsURL, "url", "", "ws:// or wss:// URL of an xbeectl bridge (implies --transport websocket)")
	flags.StringVar(&bridgeInst, "bridge", "", "Connect to the bridge advertised under this mDNS instance name")
	flags.StringVar(&modeName, "mode", "", "Operating mode (api or api-escaped)")
}

// applyConnectionFlags overrides transport settings with any flags the user set
func applyConnectionFlags(cmd *cobra.Command) {
	t := cfg.Transport
	flags := cmd.Flags()

	if flags.Changed("serial-port") {
		t.Kind = string(transport.KindSerial)
		t.Port = serialPort
	}
	if flags.Changed("baud") {
		t.BaudRate = baudRate
	}
	if flags.Changed("address") {
		t.Kind = string(transport.KindTCP)
		t.Address = tcpAddress
	}
	if flags.Changed("url") {
		t.Kind = string(transport.KindWebSocket)
		t.URL = wsURL
	}
	if flags.Changed("transport") {
		t.Kind = transportKind
	}
	if flags.Changed("mode") {
		t.Mode = modeName
	}
}

// operatingMode returns the configured mode without requiring a valid transport
func operatingMode() (codec.Mode, error) {
	mode, err := cfg.OperatingMode()
	if err != nil {
		return 0, fmt.Errorf("invalid operating mode: %w", err)
	}
	return mode, nil
}

// signalContext is cancelled on SIGINT or SIGTERM
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// session is an open link and the goroutine reading from it
type session struct {
	link   *link.Link
	cancel context.CancelFunc
	runErr chan error
}

// connect validates the configuration, opens the configured transport and
// starts reading from it. The session stops when ctx is cancelled or Close
// is called.
func connect(ctx context.Context) (*session, error) {
	if bridgeInst != "" {
		if err := resolveBridge(ctx, bridgeInst); err != nil {
			return nil, err
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration:\n%w", err)
	}
	mode, err := operatingMode()
	if err != nil {
		return nil, err
	}

	tr, err := transport.New(cfg.TransportOptions())
	if err != nil {
		return nil, fmt.Errorf("failed to create transport: %w", err)
	}

	opts := link.Options{Mode: mode}
	if l := cfg.Link; l != nil {
		opts.ResponseTimeout = l.ResponseTimeout.Std()
		opts.OpenAttempts = l.OpenAttempts
		opts.OpenDelay = l.OpenDelay.Std()
		opts.QueueSize = l.ListenerQueueSize
	}
	lk := link.New(tr, opts)

	if err := lk.Open(ctx); err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", tr.Name(), err)
	}

	runCtx, cancel := context.WithCancel(ctx)
	s := &session{link: lk, cancel: cancel, runErr: make(chan error, 1)}
	go func() {
		s.runErr <- lk.Run(runCtx)
	}()

	logging.Info("Connected to module",
		zap.String("transport", lk.Name()),
		zap.String("mode", mode.String()))
	return s, nil
}

// resolveBridge points the transport at an advertised bridge
func resolveBridge(ctx context.Context, instance string) error {
	b, err := discovery.NewScanner().WaitForBridge(ctx, instance)
	if err != nil {
		return err
	}
	cfg.Transport.Kind = string(transport.KindWebSocket)
	cfg.Transport.URL = b.URL()
	if mode := b.Mode(); mode != "" && !rootCmd.PersistentFlags().Changed("mode") {
		cfg.Transport.Mode = mode
	}
	logging.Info("Resolved bridge",
		zap.String("instance", b.Instance),
		zap.String("url", b.URL()))
	return nil
}

// Wait blocks until the link stops and returns its read error, if any
func (s *session) Wait() error {
	err := <-s.runErr
	s.runErr <- err
	if errors.Is(err, context.Canceled) || errors.Is(err, link.ErrClosed) {
		return nil
	}
	return err
}

// Close stops the link and waits for the reader to exit
func (s *session) Close() error {
	s.cancel()
	closeErr := s.link.Close()
	if err := s.Wait(); err != nil {
		return err
	}
	return closeErr
}
