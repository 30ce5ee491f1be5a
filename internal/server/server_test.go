package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/muurk/xbeeapi/internal/capture"
	"github.com/muurk/xbeeapi/internal/codec"
	"github.com/muurk/xbeeapi/internal/dispatcher"
	"github.com/muurk/xbeeapi/internal/packet"
)

type fakeLink struct {
	mu       sync.Mutex
	listener dispatcher.Listener
	sent     chan packet.Packet
	done     chan struct{}
}

func newFakeLink() *fakeLink {
	return &fakeLink{
		sent: make(chan packet.Packet, 8),
		done: make(chan struct{}),
	}
}

func (f *fakeLink) Name() string     { return "fake" }
func (f *fakeLink) Mode() codec.Mode { return codec.ModeAPIEscaped }

func (f *fakeLink) Send(ctx context.Context, p packet.Packet) error {
	f.sent <- p
	return nil
}

func (f *fakeLink) AddListener(l dispatcher.Listener) dispatcher.ListenerID {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listener = l
	return 1
}

func (f *fakeLink) RemoveListener(dispatcher.ListenerID) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listener = nil
}

func (f *fakeLink) Done() <-chan struct{} { return f.done }

// startBridge runs a bridge on a loopback port until the test ends
func startBridge(t *testing.T, l *fakeLink) (*Server, <-chan error) {
	t.Helper()
	srv, err := New(&Config{Listen: "127.0.0.1:0", Path: "/xbee"}, l)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := srv.Listen(); err != nil {
		t.Fatalf("Listen() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- srv.Run(ctx) }()
	t.Cleanup(cancel)
	return srv, errc
}

func dial(t *testing.T, srv *Server, query string) *websocket.Conn {
	t.Helper()
	url := "ws://" + srv.Addr().String() + "/xbee" + query
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })

	deadline := time.Now().Add(2 * time.Second)
	for srv.GetActiveConnections() == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) (int, []byte) {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	msgType, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("ReadMessage() error = %v", err)
	}
	return msgType, data
}

func waitSent(t *testing.T, l *fakeLink) packet.Packet {
	t.Helper()
	select {
	case p := <-l.sent:
		return p
	case <-time.After(2 * time.Second):
		t.Fatal("no packet forwarded to the link")
		return nil
	}
}

func TestBridgeFansOutPackets(t *testing.T) {
	l := newFakeLink()
	srv, _ := startBridge(t, l)
	conn := dial(t, srv, "")

	p := packet.NewModemStatusPacket(packet.ModemStatusJoinedNetwork)
	srv.PacketReceived(p)

	msgType, data := readMessage(t, conn)
	if msgType != websocket.BinaryMessage {
		t.Fatalf("first message type = %d, want binary", msgType)
	}
	want, _ := codec.EncodeFrame(p.Payload(), codec.ModeAPIEscaped)
	if string(data) != string(want) {
		t.Errorf("binary message = % X, want % X", data, want)
	}

	msgType, data = readMessage(t, conn)
	if msgType != websocket.TextMessage {
		t.Fatalf("second message type = %d, want text", msgType)
	}
	var rec capture.Record
	if err := json.Unmarshal(data, &rec); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if rec.Kind != capture.KindPacket || rec.FrameName != "Modem Status" || rec.Source != "fake" {
		t.Errorf("record = %+v", rec)
	}
}

func TestBridgeRawOnly(t *testing.T) {
	l := newFakeLink()
	srv, _ := startBridge(t, l)
	conn := dial(t, srv, "?format=raw")

	srv.PacketReceived(packet.NewModemStatusPacket(packet.ModemStatusHardwareReset))
	srv.ReceiveError(codec.ErrChecksumMismatch)
	srv.PacketReceived(packet.NewModemStatusPacket(packet.ModemStatusWatchdogReset))

	for i := 0; i < 2; i++ {
		if msgType, _ := readMessage(t, conn); msgType != websocket.BinaryMessage {
			t.Errorf("message %d type = %d, want binary only", i, msgType)
		}
	}
}

func TestBridgeForwardsClientFrames(t *testing.T) {
	l := newFakeLink()
	srv, _ := startBridge(t, l)
	conn := dial(t, srv, "")

	req, err := packet.NewATCommandPacket(0x2A, "NI", nil)
	if err != nil {
		t.Fatalf("NewATCommandPacket() error = %v", err)
	}
	frame, _ := codec.EncodeFrame(req.Payload(), codec.ModeAPIEscaped)

	// Split across two messages.
	if err := conn.WriteMessage(websocket.BinaryMessage, frame[:4]); err != nil {
		t.Fatalf("WriteMessage() error = %v", err)
	}
	if err := conn.WriteMessage(websocket.BinaryMessage, frame[4:]); err != nil {
		t.Fatalf("WriteMessage() error = %v", err)
	}

	got, ok := waitSent(t, l).(*packet.ATCommandPacket)
	if !ok {
		t.Fatal("forwarded packet is not an AT command")
	}
	if got.FrameID() != 0x2A || got.Command() != "NI" {
		t.Errorf("forwarded = %s, want frame ID 0x2A NI", packet.Describe(got))
	}
}

func TestBridgeForwardsJSONPayload(t *testing.T) {
	l := newFakeLink()
	srv, _ := startBridge(t, l)
	conn := dial(t, srv, "?format=json")

	if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"payload_hex":"08014E49"}`)); err != nil {
		t.Fatalf("WriteMessage() error = %v", err)
	}
	if p := waitSent(t, l); p.FrameType() != packet.FrameATCommand {
		t.Errorf("forwarded frame type = %v, want AT Command", p.FrameType())
	}
}

func TestBridgeRejectsBadClientMessages(t *testing.T) {
	tests := []struct {
		name    string
		msgType int
		data    []byte
		want    string
	}{
		{"not json", websocket.TextMessage, []byte("hello"), "payload_hex"},
		{"bad hex", websocket.TextMessage, []byte(`{"payload_hex":"zz"}`), "invalid byte"},
		{"short packet", websocket.TextMessage, []byte(`{"payload_hex":"B0"}`), "incomplete"},
		{"bad checksum", websocket.BinaryMessage, []byte{0x7E, 0x00, 0x02, 0x8A, 0x00, 0x00}, "checksum"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := newFakeLink()
			srv, _ := startBridge(t, l)
			conn := dial(t, srv, "?format=json")

			if err := conn.WriteMessage(tt.msgType, tt.data); err != nil {
				t.Fatalf("WriteMessage() error = %v", err)
			}
			_, data := readMessage(t, conn)
			var rec capture.Record
			if err := json.Unmarshal(data, &rec); err != nil {
				t.Fatalf("Unmarshal() error = %v", err)
			}
			if rec.Kind != capture.KindError || !strings.Contains(rec.Error, tt.want) {
				t.Errorf("record = %+v, want error mentioning %q", rec, tt.want)
			}
			select {
			case p := <-l.sent:
				t.Errorf("unexpected forwarded packet %v", p)
			default:
			}
		})
	}
}

func TestBridgeRejectsUnknownFormat(t *testing.T) {
	srv, _ := startBridge(t, newFakeLink())

	resp, err := http.Get("http://" + srv.Addr().String() + "/xbee?format=xml")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusBadRequest)
	}
}

func TestBridgeStatus(t *testing.T) {
	l := newFakeLink()
	srv, _ := startBridge(t, l)
	dial(t, srv, "")

	resp, err := http.Get("http://" + srv.Addr().String() + "/status")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	defer func() { _ = resp.Body.Close() }()

	var st Status
	if err := json.NewDecoder(resp.Body).Decode(&st); err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if st.Transport != "fake" || st.Mode != "api-escaped" || st.Clients != 1 || st.Path != "/xbee" {
		t.Errorf("status = %+v", st)
	}
}

func TestBridgeStopsWhenLinkCloses(t *testing.T) {
	l := newFakeLink()
	srv, errc := startBridge(t, l)
	conn := dial(t, srv, "")

	close(l.done)

	select {
	case err := <-errc:
		if err != nil {
			t.Errorf("Run() error = %v, want nil", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("Run() did not return after the link closed")
	}

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Error("client connection should be closed")
	}
	if srv.GetActiveConnections() != 0 {
		t.Errorf("GetActiveConnections() = %d, want 0", srv.GetActiveConnections())
	}
}

func TestParseStreamFormat(t *testing.T) {
	tests := []struct {
		in       string
		wantRaw  bool
		wantJSON bool
		ok       bool
	}{
		{"", true, true, true},
		{"both", true, true, true},
		{"raw", true, false, true},
		{"json", false, true, true},
		{"xml", false, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			f, ok := parseStreamFormat(tt.in)
			if ok != tt.ok {
				t.Fatalf("parseStreamFormat(%q) ok = %v, want %v", tt.in, ok, tt.ok)
			}
			if ok && (f.raw() != tt.wantRaw || f.json() != tt.wantJSON) {
				t.Errorf("format %q raw=%v json=%v", tt.in, f.raw(), f.json())
			}
		})
	}
}

func TestAddClientRefusedAfterShutdown(t *testing.T) {
	srv, err := New(&Config{Listen: "127.0.0.1:0"}, newFakeLink())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := srv.Shutdown(); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}

	if srv.addClient(&client{done: make(chan struct{})}) {
		t.Error("addClient() accepted a client after Shutdown")
	}
	if srv.GetActiveConnections() != 0 {
		t.Errorf("GetActiveConnections() = %d, want 0", srv.GetActiveConnections())
	}
}

func TestShutdownWithConcurrentClients(t *testing.T) {
	l := newFakeLink()
	srv, errc := startBridge(t, l)
	url := "ws://" + srv.Addr().String() + "/xbee"

	var wg sync.WaitGroup
	conns := make(chan *websocket.Conn, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			conn, _, err := websocket.DefaultDialer.Dial(url, nil)
			if err == nil {
				conns <- conn
			}
		}()
	}

	start := time.Now()
	if err := srv.Shutdown(); err != nil {
		t.Errorf("Shutdown() error = %v", err)
	}
	if elapsed := time.Since(start); elapsed >= shutdownTimeout {
		t.Errorf("Shutdown() took %s, want less than %s", elapsed, shutdownTimeout)
	}
	wg.Wait()
	close(conns)

	for conn := range conns {
		_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		if _, _, err := conn.ReadMessage(); err == nil {
			t.Error("client accepted around Shutdown is still open")
		}
		_ = conn.Close()
	}

	deadline := time.Now().Add(2 * time.Second)
	for srv.GetActiveConnections() != 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if n := srv.GetActiveConnections(); n != 0 {
		t.Errorf("GetActiveConnections() = %d after Shutdown, want 0", n)
	}

	close(l.done)
	select {
	case <-errc:
	case <-time.After(10 * time.Second):
		t.Fatal("Run() did not return")
	}
}
