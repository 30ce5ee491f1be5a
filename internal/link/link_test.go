package link

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/muurk/xbeeapi/internal/codec"
	"github.com/muurk/xbeeapi/internal/dispatcher"
	"github.com/muurk/xbeeapi/internal/packet"
)

// fakeTransport is an in-memory transport. Bytes pushed with inject are
// returned by Read; respond, when set, is called for every written frame.
type fakeTransport struct {
	mu       sync.Mutex
	opened   int
	openErrs []error
	written  [][]byte
	respond  func(frame []byte)

	rx        chan []byte
	pending   []byte
	closeOnce sync.Once
	closed    chan struct{}
	readErr   error
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{
		rx:     make(chan []byte, 16),
		closed: make(chan struct{}),
	}
}

func (f *fakeTransport) Name() string { return "fake" }

func (f *fakeTransport) Open(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.opened++
	if len(f.openErrs) > 0 {
		err := f.openErrs[0]
		f.openErrs = f.openErrs[1:]
		return err
	}
	return nil
}

func (f *fakeTransport) Read(p []byte) (int, error) {
	if len(f.pending) > 0 {
		n := copy(p, f.pending)
		f.pending = f.pending[n:]
		return n, nil
	}
	select {
	case data := <-f.rx:
		if data == nil {
			return 0, f.readErr
		}
		n := copy(p, data)
		f.pending = data[n:]
		return n, nil
	case <-f.closed:
		return 0, io.EOF
	}
}

func (f *fakeTransport) Write(p []byte) (int, error) {
	f.mu.Lock()
	f.written = append(f.written, append([]byte(nil), p...))
	respond := f.respond
	f.mu.Unlock()
	if respond != nil {
		respond(p)
	}
	return len(p), nil
}

func (f *fakeTransport) Close() error {
	f.closeOnce.Do(func() { close(f.closed) })
	return nil
}

func (f *fakeTransport) inject(data []byte) {
	f.rx <- data
}

func (f *fakeTransport) fail(err error) {
	f.readErr = err
	f.rx <- nil
}

func (f *fakeTransport) frames() [][]byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][]byte(nil), f.written...)
}

func encode(t *testing.T, p packet.Packet, mode codec.Mode) []byte {
	t.Helper()
	frame, err := codec.EncodeFrame(p.Payload(), mode)
	if err != nil {
		t.Fatalf("EncodeFrame() error = %v", err)
	}
	return frame
}

// startLink opens and runs a link over tr; the returned channel yields Run's result
func startLink(t *testing.T, tr *fakeTransport, opts Options) (*Link, <-chan error) {
	t.Helper()
	l := New(tr, opts)
	if err := l.Open(context.Background()); err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	done := make(chan error, 1)
	go func() { done <- l.Run(context.Background()) }()
	t.Cleanup(func() { _ = l.Close() })
	return l, done
}

type collector struct {
	mu      sync.Mutex
	packets []packet.Packet
	errs    []error
	closed  chan error
	got     chan struct{}
}

func newCollector() *collector {
	return &collector{closed: make(chan error, 1), got: make(chan struct{}, 16)}
}

func (c *collector) PacketReceived(p packet.Packet) {
	c.mu.Lock()
	c.packets = append(c.packets, p)
	c.mu.Unlock()
	c.got <- struct{}{}
}

func (c *collector) ReceiveError(err error) {
	c.mu.Lock()
	c.errs = append(c.errs, err)
	c.mu.Unlock()
	c.got <- struct{}{}
}

func (c *collector) ConnectionClosed(cause error) { c.closed <- cause }

func (c *collector) wait(t *testing.T, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		select {
		case <-c.got:
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for event %d of %d", i+1, n)
		}
	}
}

func TestLinkSendAndAwait(t *testing.T) {
	for _, mode := range []codec.Mode{codec.ModeAPI, codec.ModeAPIEscaped} {
		t.Run(mode.String(), func(t *testing.T) {
			tr := newFakeTransport()
			tr.respond = func(frame []byte) {
				payload, err := codec.DecodeFrame(frame, mode)
				if err != nil {
					return
				}
				req, err := packet.ParseATCommandPacket(payload)
				if err != nil {
					return
				}
				resp, _ := packet.NewATCommandResponsePacket(req.FrameID(), req.Command(), packet.ATStatusOK, []byte{0x7E, 0x11})
				out, err := codec.EncodeFrame(resp.Payload(), mode)
				if err != nil {
					return
				}
				tr.inject(out)
			}
			l, _ := startLink(t, tr, Options{Mode: mode})

			req, err := packet.NewATCommandPacket(0, "NI", nil)
			if err != nil {
				t.Fatalf("NewATCommandPacket() error = %v", err)
			}
			reply, err := l.SendAndAwait(context.Background(), req, time.Second)
			if err != nil {
				t.Fatalf("SendAndAwait() error = %v", err)
			}

			resp, ok := reply.(*packet.ATCommandResponsePacket)
			if !ok {
				t.Fatalf("reply = %T, want *packet.ATCommandResponsePacket", reply)
			}
			if resp.FrameID() != req.FrameID() || req.FrameID() == 0 {
				t.Errorf("reply frame ID = %d, request frame ID = %d", resp.FrameID(), req.FrameID())
			}
			if !bytes.Equal(resp.Value(), []byte{0x7E, 0x11}) {
				t.Errorf("Value() = % X, want 7E 11", resp.Value())
			}

			written := tr.frames()
			if len(written) != 1 || !bytes.Equal(written[0], encode(t, req, mode)) {
				t.Errorf("written frames = % X", written)
			}
			if s := l.Stats(); s.PacketsOut != 1 || s.PacketsIn != 1 {
				t.Errorf("Stats() = %+v, want one packet each way", s)
			}
		})
	}
}

func TestLinkDeliversToListeners(t *testing.T) {
	tr := newFakeTransport()
	l, _ := startLink(t, tr, Options{})

	c := newCollector()
	l.AddListener(c)

	modem := packet.NewModemStatusPacket(packet.ModemStatusCoordinatorStarted)
	frame := encode(t, modem, codec.ModeAPI)

	// Split the frame across two reads.
	tr.inject(frame[:3])
	tr.inject(frame[3:])
	c.wait(t, 1)

	c.mu.Lock()
	defer c.mu.Unlock()
	got, ok := c.packets[0].(*packet.ModemStatusPacket)
	if !ok || got.Status() != packet.ModemStatusCoordinatorStarted {
		t.Errorf("listener got %v, want modem status", c.packets[0])
	}
}

func TestLinkReportsReceiveErrors(t *testing.T) {
	tr := newFakeTransport()
	l, _ := startLink(t, tr, Options{})

	c := newCollector()
	l.AddListener(c)

	bad := encode(t, packet.NewModemStatusPacket(packet.ModemStatusHardwareReset), codec.ModeAPI)
	bad[len(bad)-1] ^= 0xFF
	// A well-formed frame whose payload is too short for its frame type.
	short, err := codec.EncodeFrame([]byte{byte(packet.FrameRXIPv4), 0x0A}, codec.ModeAPI)
	if err != nil {
		t.Fatalf("EncodeFrame() error = %v", err)
	}
	good := encode(t, packet.NewModemStatusPacket(packet.ModemStatusHardwareReset), codec.ModeAPI)

	tr.inject(append(append(bad, short...), good...))
	c.wait(t, 3)

	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.errs) != 2 {
		t.Fatalf("listener got %d errors, want 2", len(c.errs))
	}
	if !errors.Is(c.errs[0], codec.ErrChecksumMismatch) {
		t.Errorf("first error = %v, want checksum mismatch", c.errs[0])
	}
	if !errors.Is(c.errs[1], packet.ErrIncompletePacket) {
		t.Errorf("second error = %v, want incomplete packet", c.errs[1])
	}
	if len(c.packets) != 1 {
		t.Errorf("listener got %d packets, want 1", len(c.packets))
	}
	if s := l.Stats(); s.ParseErrors != 1 || s.Assembler.ChecksumErrors != 1 {
		t.Errorf("Stats() = %+v", s)
	}
}

func TestLinkReadFailureClosesLink(t *testing.T) {
	tr := newFakeTransport()
	l, done := startLink(t, tr, Options{})

	c := newCollector()
	l.AddListener(c)

	readErr := errors.New("device unplugged")
	tr.fail(readErr)

	select {
	case err := <-done:
		if !errors.Is(err, readErr) {
			t.Errorf("Run() error = %v, want %v", err, readErr)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run() did not return after read failure")
	}

	select {
	case cause := <-c.closed:
		if !errors.Is(cause, readErr) {
			t.Errorf("ConnectionClosed cause = %v, want %v", cause, readErr)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("listener was not told about the closed connection")
	}

	req, _ := packet.NewATCommandPacket(0, "NI", nil)
	if _, err := l.SendAndAwait(context.Background(), req, 0); !errors.Is(err, dispatcher.ErrConnectionClosed) {
		t.Errorf("SendAndAwait() after failure error = %v, want ErrConnectionClosed", err)
	}
}

func TestLinkRunStopsOnCancel(t *testing.T) {
	tr := newFakeTransport()
	l := New(tr, Options{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- l.Run(ctx) }()

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run() error = %v, want nil", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run() did not return after cancel")
	}

	select {
	case <-l.Done():
	default:
		t.Error("Done() should be closed after Run returns")
	}
}

func TestLinkCloseFailsPendingRequest(t *testing.T) {
	tr := newFakeTransport()
	l, done := startLink(t, tr, Options{})

	errc := make(chan error, 1)
	go func() {
		req, _ := packet.NewATCommandPacket(0, "NI", nil)
		_, err := l.SendAndAwait(context.Background(), req, 10*time.Second)
		errc <- err
	}()

	// Wait for the request to reach the transport before closing.
	deadline := time.Now().Add(2 * time.Second)
	for len(tr.frames()) == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if err := l.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	select {
	case err := <-errc:
		if !errors.Is(err, dispatcher.ErrConnectionClosed) {
			t.Errorf("SendAndAwait() error = %v, want ErrConnectionClosed", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("pending request was not failed by Close")
	}
	if err := <-done; err != nil {
		t.Errorf("Run() after Close error = %v, want nil", err)
	}

	if err := l.WritePacket(context.Background(), packet.NewGenericPacket([]byte{0x01})); !errors.Is(err, ErrClosed) {
		t.Errorf("WritePacket() after Close error = %v, want ErrClosed", err)
	}
}

func TestLinkOpenRetries(t *testing.T) {
	tr := newFakeTransport()
	tr.openErrs = []error{errors.New("busy"), errors.New("busy")}

	l := New(tr, Options{OpenAttempts: 3, OpenDelay: time.Millisecond})
	if err := l.Open(context.Background()); err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if tr.opened != 3 {
		t.Errorf("transport opened %d times, want 3", tr.opened)
	}
}

func TestLinkOpenGivesUp(t *testing.T) {
	tr := newFakeTransport()
	openErr := errors.New("no such device")
	tr.openErrs = []error{openErr, openErr}

	l := New(tr, Options{OpenAttempts: 2, OpenDelay: time.Millisecond})
	if err := l.Open(context.Background()); !errors.Is(err, openErr) {
		t.Fatalf("Open() error = %v, want %v", err, openErr)
	}
}
