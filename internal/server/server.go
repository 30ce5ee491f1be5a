package server

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/muurk/xbeeapi/internal/capture"
	"github.com/muurk/xbeeapi/internal/codec"
	"github.com/muurk/xbeeapi/internal/discovery"
	"github.com/muurk/xbeeapi/internal/dispatcher"
	"github.com/muurk/xbeeapi/internal/logging"
	"github.com/muurk/xbeeapi/internal/packet"
	"github.com/muurk/xbeeapi/internal/version"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 5 * time.Second

// Link is the module connection the bridge shares between its clients
type Link interface {
	Name() string
	Mode() codec.Mode
	Send(ctx context.Context, p packet.Packet) error
	AddListener(l dispatcher.Listener) dispatcher.ListenerID
	RemoveListener(id dispatcher.ListenerID)
	Done() <-chan struct{}
}

// Config holds the bridge configuration
type Config struct {
	Listen      string // host:port
	Path        string // WebSocket endpoint
	CertPath    string // Serve wss:// when set together with KeyPath
	KeyPath     string
	Advertise   bool   // Announce the bridge over mDNS
	ServiceName string // mDNS instance name
}

// Server is the WebSocket bridge between remote clients and one local module
type Server struct {
	config    *Config
	link      Link
	tlsConfig *tls.Config
	upgrader  websocket.Upgrader
	http      *http.Server

	mu       sync.Mutex
	listener net.Listener
	clients  map[*client]struct{}
	closing  bool

	seq atomic.Uint64
	wg  sync.WaitGroup
}

// New creates a bridge for link
func New(config *Config, link Link) (*Server, error) {
	if config.Path == "" {
		config.Path = "/xbee"
	}

	s := &Server{
		config:  config,
		link:    link,
		clients: make(map[*client]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}

	if config.CertPath != "" || config.KeyPath != "" {
		tlsConfig, err := NewTLSConfig(config.CertPath, config.KeyPath)
		if err != nil {
			return nil, fmt.Errorf("failed to create TLS config: %w", err)
		}
		s.tlsConfig = tlsConfig
	}

	mux := http.NewServeMux()
	mux.HandleFunc(config.Path, s.handleWebSocket)
	mux.HandleFunc("/status", s.handleStatus)
	s.http = &http.Server{
		Handler:           mux,
		TLSConfig:         s.tlsConfig,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s, nil
}

// Listen binds the listen address. Run calls it when it has not been called.
func (s *Server) Listen() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return nil
	}
	ln, err := net.Listen("tcp", s.config.Listen)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.config.Listen, err)
	}
	s.listener = ln
	return nil
}

// Addr returns the bound address, or nil before Listen
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Run serves clients until ctx is cancelled or the link closes
func (s *Server) Run(ctx context.Context) error {
	if err := s.Listen(); err != nil {
		return err
	}
	ln := s.listener

	id := s.link.AddListener(s)
	defer s.link.RemoveListener(id)

	logging.Info("Starting XBee WebSocket bridge",
		zap.String("addr", ln.Addr().String()),
		zap.String("path", s.config.Path),
		zap.String("transport", s.link.Name()),
		zap.String("mode", s.link.Mode().String()),
		zap.Any("tls_info", GetTLSInfo(s.tlsConfig)),
	)

	if s.config.Advertise {
		adv, err := discovery.Advertise(s.serviceName(), portOf(ln.Addr()), s.txtRecords())
		if err != nil {
			// The bridge still works without an advertisement.
			logging.Warn("Failed to advertise bridge", zap.Error(err))
		} else {
			defer adv.Shutdown()
		}
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		var err error
		if s.tlsConfig != nil {
			err = s.http.ServeTLS(ln, "", "")
		} else {
			err = s.http.Serve(ln)
		}
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	})

	g.Go(func() error {
		select {
		case <-gctx.Done():
		case <-s.link.Done():
			logging.Info("Link closed, stopping bridge")
		}
		return s.Shutdown()
	})

	return g.Wait()
}

// Shutdown stops accepting clients and disconnects the connected ones
func (s *Server) Shutdown() error {
	logging.Info("Shutting down bridge...")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	err := s.http.Shutdown(ctx)

	// Hijacked WebSocket connections are not closed by http.Server.Shutdown.
	// Upgrades that finish after this point are refused by addClient.
	s.mu.Lock()
	s.closing = true
	for c := range s.clients {
		c.close()
	}
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		logging.Info("All clients disconnected")
	case <-ctx.Done():
		logging.Warn("Shutdown timeout, forcing close")
	}

	logging.Sync()
	return err
}

// GetActiveConnections returns the number of connected clients
func (s *Server) GetActiveConnections() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}

func (s *Server) serviceName() string {
	if s.config.ServiceName != "" {
		return s.config.ServiceName
	}
	return "xbeectl"
}

func (s *Server) txtRecords() map[string]string {
	tlsFlag := "0"
	if s.tlsConfig != nil {
		tlsFlag = "1"
	}
	return map[string]string{
		"path":      s.config.Path,
		"mode":      s.link.Mode().String(),
		"tls":       tlsFlag,
		"transport": s.link.Name(),
	}
}

func portOf(addr net.Addr) int {
	_, port, err := net.SplitHostPort(addr.String())
	if err != nil {
		return 0
	}
	n, _ := strconv.Atoi(port)
	return n
}

// Status is the JSON document served at /status
type Status struct {
	Version   string `json:"version"`
	Transport string `json:"transport"`
	Mode      string `json:"mode"`
	Clients   int    `json:"clients"`
	Path      string `json:"path"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(Status{
		Version:   version.Full(),
		Transport: s.link.Name(),
		Mode:      s.link.Mode().String(),
		Clients:   s.GetActiveConnections(),
		Path:      s.config.Path,
	})
}

// addClient registers c and reserves its two pump goroutines in wg.
// It returns false once Shutdown has started.
func (s *Server) addClient(c *client) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closing {
		return false
	}
	s.clients[c] = struct{}{}
	s.wg.Add(2)
	return true
}

func (s *Server) removeClient(c *client) {
	s.mu.Lock()
	delete(s.clients, c)
	s.mu.Unlock()
}

// snapshot returns the connected clients
func (s *Server) snapshot() []*client {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*client, 0, len(s.clients))
	for c := range s.clients {
		out = append(out, c)
	}
	return out
}

// PacketReceived implements dispatcher.Listener: the packet is fanned out to every client
func (s *Server) PacketReceived(p packet.Packet) {
	clients := s.snapshot()
	if len(clients) == 0 {
		return
	}

	frame, err := codec.EncodeFrame(p.Payload(), s.link.Mode())
	if err != nil {
		logging.Error("Failed to encode packet for bridge clients", zap.Error(err))
		return
	}
	record, err := json.Marshal(capture.NewPacketRecord(s.link.Name(), s.seq.Add(1), "rx", p, s.link.Mode()))
	if err != nil {
		logging.Error("Failed to marshal packet record", zap.Error(err))
		return
	}

	for _, c := range clients {
		if c.format.raw() {
			c.enqueue(websocket.BinaryMessage, frame)
		}
		if c.format.json() {
			c.enqueue(websocket.TextMessage, record)
		}
	}
}

// ReceiveError implements dispatcher.ErrorListener: JSON clients are told about dropped frames
func (s *Server) ReceiveError(err error) {
	record, merr := json.Marshal(capture.NewErrorRecord(s.link.Name(), s.seq.Add(1), err))
	if merr != nil {
		return
	}
	for _, c := range s.snapshot() {
		if c.format.json() {
			c.enqueue(websocket.TextMessage, record)
		}
	}
}
