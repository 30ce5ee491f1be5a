package codec

import "fmt"

// ErrorKind classifies frame-level failures
type ErrorKind int

const (
	// KindMalformedFrame indicates a broken envelope (bad delimiter, zero length, short frame)
	KindMalformedFrame ErrorKind = iota
	// KindTruncatedEscape indicates an escape byte with no following byte
	KindTruncatedEscape
	// KindChecksumMismatch indicates the checksum does not match the payload
	KindChecksumMismatch
)

// String returns a human-readable name for the error kind
func (k ErrorKind) String() string {
	switch k {
	case KindMalformedFrame:
		return "malformed frame"
	case KindTruncatedEscape:
		return "truncated escape"
	case KindChecksumMismatch:
		return "checksum mismatch"
	default:
		return fmt.Sprintf("ErrorKind(%d)", k)
	}
}

// Sentinel errors for errors.Is checks
var (
	ErrMalformedFrame   = &FrameError{Kind: KindMalformedFrame}
	ErrTruncatedEscape  = &FrameError{Kind: KindTruncatedEscape}
	ErrChecksumMismatch = &FrameError{Kind: KindChecksumMismatch}
)

// FrameError is returned for envelope, escape and checksum failures.
// Frame errors are recoverable: the stream continues with the next frame.
type FrameError struct {
	Kind ErrorKind
	Msg  string
	Err  error
}

// Error implements the error interface
func (e *FrameError) Error() string {
	msg := e.Msg
	if msg == "" {
		msg = e.Kind.String()
	}
	if e.Err != nil {
		return fmt.Sprintf("frame: %s: %v", msg, e.Err)
	}
	return "frame: " + msg
}

// Unwrap returns the underlying error
func (e *FrameError) Unwrap() error {
	return e.Err
}

// Is matches any FrameError of the same kind
func (e *FrameError) Is(target error) bool {
	t, ok := target.(*FrameError)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

func newFrameError(kind ErrorKind, format string, args ...any) *FrameError {
	return &FrameError{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}
