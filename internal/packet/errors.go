package packet

import "fmt"

// Kind classifies packet construction and parse failures
type Kind int

const (
	// KindNullPayload indicates a nil payload was passed to a parser
	KindNullPayload Kind = iota
	// KindIncompletePacket indicates a payload shorter than the variant's fixed header
	KindIncompletePacket
	// KindWrongFrameType indicates the type byte does not match the requested variant
	KindWrongFrameType
	// KindInvalidPacket wraps a field-level decode failure
	KindInvalidPacket
	// KindMissingField indicates a required field is nil or absent
	KindMissingField
	// KindInvalidRange indicates a value outside its allowed range
	KindInvalidRange
)

// String returns a human-readable name for the kind
func (k Kind) String() string {
	switch k {
	case KindNullPayload:
		return "null payload"
	case KindIncompletePacket:
		return "incomplete packet"
	case KindWrongFrameType:
		return "wrong frame type"
	case KindInvalidPacket:
		return "invalid packet"
	case KindMissingField:
		return "missing field"
	case KindInvalidRange:
		return "invalid range"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Sentinel errors for errors.Is checks
var (
	ErrNullPayload      = &Error{Kind: KindNullPayload}
	ErrIncompletePacket = &Error{Kind: KindIncompletePacket}
	ErrWrongFrameType   = &Error{Kind: KindWrongFrameType}
	ErrInvalidPacket    = &Error{Kind: KindInvalidPacket}
	ErrMissingField     = &Error{Kind: KindMissingField}
	ErrInvalidRange     = &Error{Kind: KindInvalidRange}
)

// Error describes why a packet could not be built or parsed
type Error struct {
	Kind   Kind
	Packet string // variant name, e.g. "RX IPv4"
	Field  string // offending field, if any
	Msg    string
	Err    error
}

// Error implements the error interface
func (e *Error) Error() string {
	msg := e.Msg
	if msg == "" {
		msg = e.Kind.String()
	}
	if e.Err != nil {
		return fmt.Sprintf("packet: %s: %v", msg, e.Err)
	}
	return "packet: " + msg
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches errors of the same kind. A null payload is also a missing field.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Kind == e.Kind {
		return true
	}
	return e.Kind == KindNullPayload && t.Kind == KindMissingField
}

func nullPayload(name string) *Error {
	return &Error{
		Kind:   KindNullPayload,
		Packet: name,
		Field:  "payload",
		Msg:    fmt.Sprintf("%s packet payload cannot be nil", name),
	}
}

func incomplete(name string, got, minimum int) *Error {
	return &Error{
		Kind:   KindIncompletePacket,
		Packet: name,
		Msg:    fmt.Sprintf("incomplete %s packet: %d bytes (minimum %d)", name, got, minimum),
	}
}

func wrongFrameType(name string, got byte) *Error {
	return &Error{
		Kind:   KindWrongFrameType,
		Packet: name,
		Msg:    fmt.Sprintf("payload is not a %s packet (frame type 0x%02X)", name, got),
	}
}

func invalidPacket(name string, err error) *Error {
	return &Error{
		Kind:   KindInvalidPacket,
		Packet: name,
		Msg:    fmt.Sprintf("invalid %s packet", name),
		Err:    err,
	}
}

func missingField(name, field string) *Error {
	return &Error{
		Kind:   KindMissingField,
		Packet: name,
		Field:  field,
		Msg:    fmt.Sprintf("%s cannot be nil", field),
	}
}

func invalidRange(name, field string, minimum, maximum int) *Error {
	return &Error{
		Kind:   KindInvalidRange,
		Packet: name,
		Field:  field,
		Msg:    fmt.Sprintf("%s must be between %d and %d", field, minimum, maximum),
	}
}

func invalidValue(name, field, format string, args ...any) *Error {
	return &Error{
		Kind:   KindInvalidRange,
		Packet: name,
		Field:  field,
		Msg:    fmt.Sprintf(format, args...),
	}
}
