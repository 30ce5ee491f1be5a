package dispatcher

import (
	"fmt"
	"time"

	"github.com/muurk/xbeeapi/internal/logging"
	"github.com/muurk/xbeeapi/internal/packet"
	"go.uber.org/zap"
)

// Listener receives every successfully parsed inbound packet
type Listener interface {
	PacketReceived(p packet.Packet)
}

// ListenerFunc adapts a function to the Listener interface
type ListenerFunc func(p packet.Packet)

// PacketReceived calls f(p)
func (f ListenerFunc) PacketReceived(p packet.Packet) { f(p) }

// ErrorListener is optionally implemented by listeners that want to observe
// frames dropped by the assembler or parser
type ErrorListener interface {
	ReceiveError(err error)
}

// CloseListener is optionally implemented by listeners that want a terminal
// notification when the connection closes
type CloseListener interface {
	ConnectionClosed(cause error)
}

// ListenerID identifies a registered listener
type ListenerID uint64

type eventKind int

const (
	eventPacket eventKind = iota
	eventError
	eventClosed
)

type event struct {
	kind eventKind
	p    packet.Packet
	err  error
}

// worker delivers events to one listener in order
type worker struct {
	id     ListenerID
	l      Listener
	events chan event
	done   chan struct{}
}

func newWorker(id ListenerID, l Listener, queueSize int) *worker {
	w := &worker{
		id:     id,
		l:      l,
		events: make(chan event, queueSize),
		done:   make(chan struct{}),
	}
	go w.run()
	return w
}

func (w *worker) run() {
	defer close(w.done)
	for ev := range w.events {
		w.deliver(ev)
	}
}

func (w *worker) deliver(ev event) {
	defer func() {
		if r := recover(); r != nil {
			logging.Error("Listener panicked",
				zap.Uint64("listener", uint64(w.id)),
				zap.String("panic", fmt.Sprint(r)),
			)
		}
	}()

	switch ev.kind {
	case eventPacket:
		w.l.PacketReceived(ev.p)
	case eventError:
		if el, ok := w.l.(ErrorListener); ok {
			el.ReceiveError(ev.err)
		}
	case eventClosed:
		if cl, ok := w.l.(CloseListener); ok {
			cl.ConnectionClosed(ev.err)
		}
	}
}

// offer queues ev without blocking; it reports false when the queue is full.
// Callers hold the dispatcher's listener lock so events is never closed concurrently.
func (w *worker) offer(ev event) bool {
	select {
	case w.events <- ev:
		return true
	default:
		return false
	}
}

// finalEventTimeout bounds how long stop waits for room in a full queue
var finalEventTimeout = 5 * time.Second

// stop ends the worker after the queued events, and final if set, are delivered.
// A final event that finds the queue still full after finalEventTimeout is dropped.
func (w *worker) stop(final *event) {
	if final == nil {
		close(w.events)
		return
	}
	select {
	case w.events <- *final:
		close(w.events)
		return
	default:
	}
	go func() {
		defer close(w.events)
		timer := time.NewTimer(finalEventTimeout)
		defer timer.Stop()
		select {
		case w.events <- *final:
		case <-timer.C:
			logging.Warn("Listener queue full, dropping close notification",
				zap.Uint64("listener", uint64(w.id)))
		}
	}()
}
