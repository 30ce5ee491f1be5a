// Package dispatcher correlates inbound API packets with outbound requests.
//
// A Dispatcher owns the frame ID space of one connection. SendAndAwait
// allocates a free frame ID (cycling 1..255, 0 means "no reply"), registers a
// pending request, writes the packet and blocks the calling goroutine until
// the reply with the same frame ID arrives, the timeout expires, the context
// is cancelled or the connection closes.
//
// The inbound reader calls OnFrameReceived for every parsed packet. A packet
// that matches a pending request completes it first; every packet is then
// handed to the registered listeners in registration order.
//
// # Listeners
//
// Each listener runs on its own goroutine fed by a bounded queue, so a slow
// listener delays only itself. When its queue is full the packet is dropped
// for that listener and a warning is logged.
//
//	id := d.AddListener(dispatcher.ListenerFunc(func(p packet.Packet) {
//	    fmt.Println(packet.Describe(p))
//	}))
//	defer d.RemoveListener(id)
//
// Listeners may also implement ErrorListener to observe frames that failed to
// assemble or parse, and CloseListener to be told when the connection closes.
//
// # Thread Safety
//
// All methods are safe for concurrent use. Packets delivered to listeners are
// shared between them and must be treated as read-only.
package dispatcher
