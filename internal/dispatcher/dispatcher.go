package dispatcher

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/muurk/xbeeapi/internal/logging"
	"github.com/muurk/xbeeapi/internal/packet"
	"go.uber.org/zap"
)

// Defaults applied to zero Options fields
const (
	DefaultTimeout   = 2 * time.Second
	DefaultQueueSize = 64
)

// Writer hands outbound packets to the transport
type Writer interface {
	WritePacket(ctx context.Context, p packet.Packet) error
}

// Options configures a Dispatcher
type Options struct {
	// Timeout is used by SendAndAwait when called with a zero timeout
	Timeout time.Duration
	// QueueSize bounds each listener's pending event queue
	QueueSize int
}

// Dispatcher routes inbound packets to waiting callers and listeners
type Dispatcher struct {
	w    Writer
	opts Options

	mu       sync.Mutex
	pending  map[byte]chan packet.Packet
	lastID   byte
	closed     bool
	closeErr   error // returned to callers, wraps ErrConnectionClosed
	closeCause error // handed to CloseListeners as given to Close
	done       chan struct{}

	lmu          sync.RWMutex
	workers      []*worker
	nextListener ListenerID

	closeOnce sync.Once
}

// New creates a Dispatcher writing requests through w
func New(w Writer, opts Options) *Dispatcher {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = DefaultQueueSize
	}
	return &Dispatcher{
		w:       w,
		opts:    opts,
		pending: make(map[byte]chan packet.Packet),
		done:    make(chan struct{}),
	}
}

// Send writes p without waiting for a reply.
// The packet's frame ID is left as set by the caller.
func (d *Dispatcher) Send(ctx context.Context, p packet.Packet) error {
	if err := d.closedError(); err != nil {
		return err
	}
	if err := d.w.WritePacket(ctx, p); err != nil {
		return fmt.Errorf("failed to send %s packet: %w", p.FrameType(), err)
	}
	return nil
}

// SendAndAwait assigns p a free frame ID, writes it and waits for the reply
// carrying the same frame ID. A zero timeout uses Options.Timeout.
//
// The pending request is released on every return path, so an abandoned call
// never leaks its frame ID.
func (d *Dispatcher) SendAndAwait(ctx context.Context, p packet.Packet, timeout time.Duration) (packet.Packet, error) {
	fid, ok := p.(packet.FrameIDer)
	if !ok || !p.NeedsFrameID() {
		return nil, fmt.Errorf("%w: %s", ErrFrameIDNotSupported, p.FrameType())
	}
	if timeout <= 0 {
		timeout = d.opts.Timeout
	}

	id, ch, err := d.register()
	if err != nil {
		return nil, err
	}
	defer d.release(id, ch)

	fid.SetFrameID(id)
	if err := d.w.WritePacket(ctx, p); err != nil {
		return nil, fmt.Errorf("failed to send %s packet: %w", p.FrameType(), err)
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case reply := <-ch:
		return reply, nil

	case <-timer.C:
		// A reply that completed the request before it was released still wins.
		d.release(id, ch)
		select {
		case reply := <-ch:
			return reply, nil
		default:
		}
		logging.Debug("Request timed out",
			zap.Uint8("frame_id", id),
			zap.String("frame_type", p.FrameType().String()),
			zap.Duration("timeout", timeout),
		)
		return nil, fmt.Errorf("%w: no response to frame ID %d after %s", ErrTimeout, id, timeout)

	case <-ctx.Done():
		return nil, ctx.Err()

	case <-d.done:
		select {
		case reply := <-ch:
			return reply, nil
		default:
		}
		return nil, d.closedError()
	}
}

// register allocates a frame ID and its completion channel
func (d *Dispatcher) register() (byte, chan packet.Packet, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return 0, nil, d.closeErr
	}

	for i := 0; i < 255; i++ {
		d.lastID++
		if d.lastID == 0 {
			d.lastID = 1
		}
		if _, busy := d.pending[d.lastID]; !busy {
			ch := make(chan packet.Packet, 1)
			d.pending[d.lastID] = ch
			return d.lastID, ch, nil
		}
	}
	return 0, nil, ErrNoFrameID
}

// release removes the pending entry for id if it still belongs to ch
func (d *Dispatcher) release(id byte, ch chan packet.Packet) {
	d.mu.Lock()
	if cur, ok := d.pending[id]; ok && cur == ch {
		delete(d.pending, id)
	}
	d.mu.Unlock()
}

// OnFrameReceived completes the pending request matching p's frame ID, if any,
// and then forwards p to every listener
func (d *Dispatcher) OnFrameReceived(p packet.Packet) {
	if fid, ok := p.(packet.FrameIDer); ok && fid.FrameID() != 0 {
		d.mu.Lock()
		if ch, found := d.pending[fid.FrameID()]; found {
			delete(d.pending, fid.FrameID())
			// Capacity 1 and removed under the same lock, so this never blocks
			// and a waiter that releases the entry afterwards still finds the reply.
			ch <- p
		}
		d.mu.Unlock()
	}

	d.broadcast(event{kind: eventPacket, p: p})
}

// OnReceiveError forwards a framing or parse failure to ErrorListeners
func (d *Dispatcher) OnReceiveError(err error) {
	d.broadcast(event{kind: eventError, err: err})
}

func (d *Dispatcher) broadcast(ev event) {
	d.lmu.RLock()
	defer d.lmu.RUnlock()

	for _, w := range d.workers {
		if ev.kind == eventError {
			if _, ok := w.l.(ErrorListener); !ok {
				continue
			}
		}
		if !w.offer(ev) {
			fields := []zap.Field{zap.Uint64("listener", uint64(w.id))}
			if ev.p != nil {
				fields = append(fields, zap.String("frame_type", ev.p.FrameType().String()))
			}
			logging.Warn("Listener queue full, dropping event", fields...)
		}
	}
}

// AddListener registers l and returns its ID.
// A listener added after Close only receives the terminal close notification.
func (d *Dispatcher) AddListener(l Listener) ListenerID {
	d.lmu.Lock()
	d.nextListener++
	w := newWorker(d.nextListener, l, d.opts.QueueSize)

	d.mu.Lock()
	closed, cause := d.closed, d.closeCause
	d.mu.Unlock()

	if closed {
		d.lmu.Unlock()
		w.stop(&event{kind: eventClosed, err: cause})
		return w.id
	}
	d.workers = append(d.workers, w)
	d.lmu.Unlock()
	return w.id
}

// RemoveListener unregisters a listener. Events already queued for it are
// still delivered. Unknown IDs are ignored.
func (d *Dispatcher) RemoveListener(id ListenerID) {
	d.lmu.Lock()
	defer d.lmu.Unlock()

	for i, w := range d.workers {
		if w.id == id {
			d.workers = append(d.workers[:i], d.workers[i+1:]...)
			w.stop(nil)
			return
		}
	}
}

// Listeners returns the number of registered listeners
func (d *Dispatcher) Listeners() int {
	d.lmu.RLock()
	defer d.lmu.RUnlock()
	return len(d.workers)
}

// Pending returns the number of requests waiting for a reply
func (d *Dispatcher) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.pending)
}

// Done is closed once the dispatcher is closed
func (d *Dispatcher) Done() <-chan struct{} {
	return d.done
}

// Close fails every pending and future request with ErrConnectionClosed,
// notifies CloseListeners and stops all listener goroutines.
// cause, which may be nil, is wrapped into the returned errors.
// Calling Close more than once has no further effect.
func (d *Dispatcher) Close(cause error) {
	d.closeOnce.Do(func() {
		d.mu.Lock()
		d.closed = true
		d.closeCause = cause
		if cause != nil {
			d.closeErr = fmt.Errorf("%w: %w", ErrConnectionClosed, cause)
		} else {
			d.closeErr = ErrConnectionClosed
		}
		waiting := len(d.pending)
		d.pending = make(map[byte]chan packet.Packet)
		close(d.done)
		d.mu.Unlock()

		d.lmu.Lock()
		workers := d.workers
		d.workers = nil
		d.lmu.Unlock()

		for _, w := range workers {
			w.stop(&event{kind: eventClosed, err: cause})
		}

		logging.Debug("Dispatcher closed",
			zap.Int("failed_requests", waiting),
			zap.Int("listeners", len(workers)),
			zap.Error(cause),
		)
	})
}

func (d *Dispatcher) closedError() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.closed {
		return nil
	}
	return d.closeErr
}
