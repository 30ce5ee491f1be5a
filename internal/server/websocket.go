package server

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/muurk/xbeeapi/internal/capture"
	"github.com/muurk/xbeeapi/internal/codec"
	"github.com/muurk/xbeeapi/internal/logging"
	"github.com/muurk/xbeeapi/internal/packet"
	"go.uber.org/zap"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 8192

	// Outbound messages buffered per client before new ones are dropped
	clientQueueSize = 256
)

// streamFormat selects which messages a client receives
type streamFormat int

const (
	formatBoth streamFormat = iota
	formatRaw
	formatJSON
)

func parseStreamFormat(s string) (streamFormat, bool) {
	switch s {
	case "", "both":
		return formatBoth, true
	case "raw":
		return formatRaw, true
	case "json":
		return formatJSON, true
	}
	return 0, false
}

func (f streamFormat) String() string {
	switch f {
	case formatRaw:
		return "raw"
	case formatJSON:
		return "json"
	default:
		return "both"
	}
}

func (f streamFormat) raw() bool  { return f != formatJSON }
func (f streamFormat) json() bool { return f != formatRaw }

type outbound struct {
	msgType int
	data    []byte
}

// client is one WebSocket connection to the bridge
type client struct {
	conn   *websocket.Conn
	remote string
	format streamFormat
	asm    *codec.Assembler

	send      chan outbound
	done      chan struct{}
	closeOnce sync.Once
}

// enqueue queues a message without blocking; a full queue drops it
func (c *client) enqueue(msgType int, data []byte) {
	select {
	case <-c.done:
		return
	default:
	}
	select {
	case c.send <- outbound{msgType: msgType, data: data}:
	default:
		logging.Warn("Bridge client too slow, dropping message",
			zap.String("remote_addr", c.remote),
		)
	}
}

// close asks the write pump to send a close frame and drop the connection
func (c *client) close() {
	c.closeOnce.Do(func() {
		close(c.done)
	})
}

// handleWebSocket upgrades the request and serves the client until it disconnects.
//
// Binary messages from the client are raw API frames in the link's operating
// mode; they are reassembled, parsed and forwarded to the module unchanged,
// frame ID included. Text messages are JSON objects with a "payload_hex" field
// holding an API payload (frame type + frame data).
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	format, ok := parseStreamFormat(r.URL.Query().Get("format"))
	if !ok {
		http.Error(w, "format must be raw, json or both", http.StatusBadRequest)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.Error("WebSocket upgrade failed",
			zap.String("remote_addr", r.RemoteAddr),
			zap.Error(err),
		)
		return
	}

	c := &client{
		conn:   conn,
		remote: r.RemoteAddr,
		format: format,
		asm:    codec.NewAssembler(s.link.Mode()),
		send:   make(chan outbound, clientQueueSize),
		done:   make(chan struct{}),
	}

	if !s.addClient(c) {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "bridge shutting down"),
			time.Now().Add(writeWait))
		_ = conn.Close()
		logging.LogConnection(c.remote, "websocket_refused")
		return
	}
	logging.LogConnection(c.remote, "websocket_connected")
	logging.Debug("Bridge client attached",
		zap.String("remote_addr", c.remote),
		zap.String("user_agent", r.UserAgent()),
		zap.String("format", format.String()),
	)

	go func() {
		defer s.wg.Done()
		s.writePump(c)
	}()
	go func() {
		defer s.wg.Done()
		defer func() {
			s.removeClient(c)
			c.close()
			logging.LogConnection(c.remote, "websocket_closed")
		}()
		s.readPump(c)
	}()
}

// readPump forwards client messages to the module
func (s *Server) readPump(c *client) {
	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		msgType, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logging.Info("Connection closed or error reading message",
					zap.String("remote_addr", c.remote),
					zap.Error(err),
				)
			}
			return
		}
		logging.LogWebSocketMessage(c.remote, "received", msgType, data)

		switch msgType {
		case websocket.BinaryMessage:
			for _, res := range c.asm.Feed(data) {
				if res.Err != nil {
					s.replyError(c, res.Err)
					continue
				}
				s.forward(c, res.Payload)
			}

		case websocket.TextMessage:
			var req struct {
				PayloadHex string `json:"payload_hex"`
			}
			if err := json.Unmarshal(data, &req); err != nil || req.PayloadHex == "" {
				s.replyError(c, errors.New(`text messages must be JSON with a "payload_hex" field`))
				continue
			}
			payload, err := hex.DecodeString(req.PayloadHex)
			if err != nil {
				s.replyError(c, err)
				continue
			}
			s.forward(c, payload)
		}
	}
}

// forward parses an API payload from a client and sends it to the module
func (s *Server) forward(c *client, payload []byte) {
	p, err := packet.Parse(payload)
	if err != nil {
		s.replyError(c, err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), writeWait)
	defer cancel()
	if err := s.link.Send(ctx, p); err != nil {
		logging.Error("Failed to forward client packet",
			zap.String("remote_addr", c.remote),
			zap.String("frame_type", p.FrameType().String()),
			zap.Error(err),
		)
		s.replyError(c, err)
		return
	}
	logging.Debug("Forwarded client packet",
		zap.String("remote_addr", c.remote),
		zap.String("packet", packet.Describe(p)),
	)
}

// replyError reports a problem with a client message to that client only
func (s *Server) replyError(c *client, err error) {
	logging.Warn("Rejected bridge client message",
		zap.String("remote_addr", c.remote),
		zap.Error(err),
	)
	if !c.format.json() {
		return
	}
	rec := capture.NewErrorRecord(c.remote, s.seq.Add(1), err)
	rec.Direction = "tx"
	data, merr := json.Marshal(rec)
	if merr != nil {
		return
	}
	c.enqueue(websocket.TextMessage, data)
}

// writePump drains the client queue and keeps the connection alive with pings
func (s *Server) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		// Unblocks readPump.
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(msg.msgType, msg.data); err != nil {
				logging.Info("Failed to write to bridge client",
					zap.String("remote_addr", c.remote),
					zap.Error(err),
				)
				return
			}
			logging.LogWebSocketMessage(c.remote, "sent", msg.msgType, msg.data)

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.done:
			_ = c.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bridge closing"),
				time.Now().Add(time.Second))
			return
		}
	}
}
