// Package server implements the xbeectl WebSocket bridge.
//
// The bridge shares one local module connection with any number of remote
// WebSocket clients. Every inbound packet is fanned out to all clients, and
// packets sent by a client are forwarded to the module with their frame ID
// untouched, so each client correlates its own responses.
//
// # Message Formats
//
// The "format" query parameter selects what a client receives:
//   - raw: binary messages, each one complete API frame in the module's operating mode
//   - json: text messages, one capture.Record per packet or dropped frame
//   - both (default): both of the above
//
// A client sends either binary messages holding API frames, or text messages
// of the form {"payload_hex": "08014E49"}. A transport.WebSocketTransport
// pointed at the bridge URL behaves like a direct connection to the module.
//
// # Usage Example
//
//	srv, err := server.New(&server.Config{
//	    Listen:    ":9750",
//	    Path:      "/xbee",
//	    Advertise: true,
//	}, l)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := srv.Run(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
// Setting CertPath and KeyPath serves wss:// instead of ws://. The /status
// endpoint reports the transport, mode and number of connected clients.
package server
