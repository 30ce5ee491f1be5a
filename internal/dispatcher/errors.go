package dispatcher

import "errors"

// Sentinel errors returned by Send and SendAndAwait
var (
	// ErrTimeout is returned when no correlated reply arrives before the deadline
	ErrTimeout = errors.New("timed out waiting for response")
	// ErrConnectionClosed is returned for requests pending or issued after Close
	ErrConnectionClosed = errors.New("connection closed")
	// ErrNoFrameID is returned when all 255 frame IDs are pending
	ErrNoFrameID = errors.New("no free frame ID")
	// ErrFrameIDNotSupported is returned by SendAndAwait for packets without a frame ID
	ErrFrameIDNotSupported = errors.New("packet does not carry a frame ID")
)
