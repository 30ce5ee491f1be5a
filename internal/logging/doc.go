// Package logging provides structured logging for xbeeapi.
//
// This package wraps a package-level zap logger with convenience functions
// used by the link, dispatcher and bridge. Logging is silent unless a level
// is set with the --log-level flag or the XBEE_LOG_LEVEL environment variable.
//
// # Log Levels
//
//   - Debug: raw frames (hex dumps), assembler resyncs, WebSocket traffic
//   - Info: transport open/close, bridge clients, capture files
//   - Warn: dropped frames, parse failures, listener queue overflow
//   - Error: transport failures
//
// # Structured Logging
//
//	logging.Warn("Dropped inbound frame",
//	    zap.Error(err),
//	    zap.String("transport", "serial:/dev/ttyUSB0"),
//	)
//
// Output goes to stderr so CLI commands can print decoded packets on stdout.
package logging
