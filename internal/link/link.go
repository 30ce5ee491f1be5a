package link

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/avast/retry-go"
	"github.com/muurk/xbeeapi/internal/codec"
	"github.com/muurk/xbeeapi/internal/dispatcher"
	"github.com/muurk/xbeeapi/internal/logging"
	"github.com/muurk/xbeeapi/internal/packet"
	"github.com/muurk/xbeeapi/internal/transport"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	readBufferSize      = 1024
	DefaultOpenAttempts = 3
	DefaultOpenDelay    = time.Second
)

// ErrClosed is returned by Open and Run once the link has been closed
var ErrClosed = errors.New("link closed")

// Options configures a Link. Zero fields take the package defaults.
type Options struct {
	Mode            codec.Mode
	ResponseTimeout time.Duration
	OpenAttempts    int
	OpenDelay       time.Duration
	QueueSize       int
}

// Stats counts traffic over the lifetime of a Link
type Stats struct {
	Assembler   codec.Stats
	PacketsIn   uint64
	PacketsOut  uint64
	ParseErrors uint64
}

// Link is one API-mode connection to a local module
type Link struct {
	tr   transport.Transport
	opts Options
	disp *dispatcher.Dispatcher

	asmMu sync.Mutex
	asm   *codec.Assembler

	writeMu sync.Mutex

	packetsIn   atomic.Uint64
	packetsOut  atomic.Uint64
	parseErrors atomic.Uint64

	closed    atomic.Bool
	closeOnce sync.Once
}

// New creates a Link over tr. The transport is not opened until Open.
func New(tr transport.Transport, opts Options) *Link {
	if opts.Mode == 0 {
		opts.Mode = codec.ModeAPI
	}
	if opts.OpenAttempts <= 0 {
		opts.OpenAttempts = DefaultOpenAttempts
	}
	if opts.OpenDelay <= 0 {
		opts.OpenDelay = DefaultOpenDelay
	}
	l := &Link{
		tr:   tr,
		opts: opts,
		asm:  codec.NewAssembler(opts.Mode),
	}
	l.disp = dispatcher.New(l, dispatcher.Options{
		Timeout:   opts.ResponseTimeout,
		QueueSize: opts.QueueSize,
	})
	return l
}

// Name returns the transport name
func (l *Link) Name() string {
	return l.tr.Name()
}

// Mode returns the operating mode frames are encoded with
func (l *Link) Mode() codec.Mode {
	return l.opts.Mode
}

// Open opens the transport, retrying up to Options.OpenAttempts times
func (l *Link) Open(ctx context.Context) error {
	if l.closed.Load() {
		return ErrClosed
	}

	err := retry.Do(func() error {
		return l.tr.Open(ctx)
	},
		retry.Context(ctx),
		retry.Attempts(uint(l.opts.OpenAttempts)),
		retry.Delay(l.opts.OpenDelay),
		retry.OnRetry(func(n uint, err error) {
			logging.Warn("Failed to open transport, retrying",
				zap.String("transport", l.tr.Name()),
				zap.Uint("attempt", n+1),
				zap.Error(err),
			)
		}),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", l.tr.Name(), err)
	}

	logging.LogConnection(l.tr.Name(), "opened")
	return nil
}

// Run reads from the transport until ctx is cancelled, the link is closed or
// the transport fails. A read failure closes the link and is returned;
// cancellation and Close return nil.
func (l *Link) Run(ctx context.Context) error {
	if l.closed.Load() {
		return ErrClosed
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return l.readLoop(gctx)
	})

	// Closing the transport is the only way to unblock a pending Read.
	g.Go(func() error {
		select {
		case <-gctx.Done():
		case <-l.disp.Done():
		}
		l.shutdown(nil)
		return nil
	})

	return g.Wait()
}

func (l *Link) readLoop(ctx context.Context) error {
	buf := make([]byte, readBufferSize)
	for {
		n, err := l.tr.Read(buf)
		if n > 0 {
			l.feed(buf[:n])
		}
		if err != nil {
			if l.closed.Load() || ctx.Err() != nil {
				return nil
			}
			if errors.Is(err, io.EOF) {
				logging.LogConnection(l.tr.Name(), "closed by peer")
			} else {
				logging.Error("Transport read failed",
					zap.String("transport", l.tr.Name()),
					zap.Error(err),
				)
			}
			l.shutdown(err)
			return fmt.Errorf("read from %s: %w", l.tr.Name(), err)
		}
		if ctx.Err() != nil {
			return nil
		}
	}
}

// feed pushes raw bytes through the assembler and routes every completed frame
func (l *Link) feed(data []byte) {
	logging.LogRawBytes("RX raw", data)

	l.asmMu.Lock()
	results := l.asm.Feed(data)
	l.asmMu.Unlock()

	for _, res := range results {
		if res.Err != nil {
			logging.Warn("Dropped inbound frame",
				zap.String("transport", l.tr.Name()),
				zap.Error(res.Err),
			)
			l.disp.OnReceiveError(res.Err)
			continue
		}
		l.handlePayload(res.Payload)
	}
}

func (l *Link) handlePayload(payload []byte) {
	logging.LogFrame("RX", payload)

	p, err := packet.Parse(payload)
	if err != nil {
		l.parseErrors.Add(1)
		logging.Warn("Failed to parse inbound packet",
			zap.String("transport", l.tr.Name()),
			zap.Error(err),
		)
		l.disp.OnReceiveError(err)
		return
	}

	l.packetsIn.Add(1)
	logging.Debug("Received packet",
		zap.String("frame_type", p.FrameType().String()),
		zap.String("packet", packet.Describe(p)),
	)
	l.disp.OnFrameReceived(p)
}

// WritePacket encodes p and writes it as one frame
func (l *Link) WritePacket(ctx context.Context, p packet.Packet) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if l.closed.Load() {
		return ErrClosed
	}

	frame, err := codec.EncodeFrame(p.Payload(), l.opts.Mode)
	if err != nil {
		return err
	}

	l.writeMu.Lock()
	defer l.writeMu.Unlock()

	if _, err := l.tr.Write(frame); err != nil {
		return fmt.Errorf("write to %s: %w", l.tr.Name(), err)
	}
	l.packetsOut.Add(1)
	logging.LogFrame("TX", frame)
	return nil
}

// Send writes p without waiting for a reply
func (l *Link) Send(ctx context.Context, p packet.Packet) error {
	return l.disp.Send(ctx, p)
}

// SendAndAwait writes p with a fresh frame ID and waits for the correlated reply.
// A zero timeout uses Options.ResponseTimeout.
func (l *Link) SendAndAwait(ctx context.Context, p packet.Packet, timeout time.Duration) (packet.Packet, error) {
	return l.disp.SendAndAwait(ctx, p, timeout)
}

// AddListener registers a listener for every inbound packet
func (l *Link) AddListener(ls dispatcher.Listener) dispatcher.ListenerID {
	return l.disp.AddListener(ls)
}

// RemoveListener unregisters a listener
func (l *Link) RemoveListener(id dispatcher.ListenerID) {
	l.disp.RemoveListener(id)
}

// Done is closed when the link shuts down
func (l *Link) Done() <-chan struct{} {
	return l.disp.Done()
}

// Stats returns traffic counters
func (l *Link) Stats() Stats {
	l.asmMu.Lock()
	asm := l.asm.Stats()
	l.asmMu.Unlock()
	return Stats{
		Assembler:   asm,
		PacketsIn:   l.packetsIn.Load(),
		PacketsOut:  l.packetsOut.Load(),
		ParseErrors: l.parseErrors.Load(),
	}
}

// Close fails pending requests, stops listeners and closes the transport
func (l *Link) Close() error {
	return l.shutdown(nil)
}

func (l *Link) shutdown(cause error) error {
	var err error
	l.closeOnce.Do(func() {
		l.closed.Store(true)
		l.disp.Close(cause)
		err = l.tr.Close()
		logging.LogConnection(l.tr.Name(), "closed")
	})
	return err
}
