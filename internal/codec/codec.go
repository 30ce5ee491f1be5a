package codec

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Frame envelope constants
const (
	StartDelimiter = 0x7E
	EscapeByte     = 0x7D
	XON            = 0x11
	XOFF           = 0x13
	EscapeXOR      = 0x20

	// HeaderSize is the delimiter plus the 2-byte length
	HeaderSize = 3
	// MaxPayloadSize is the largest payload the 2-byte length can describe
	MaxPayloadSize = math.MaxUint16
)

// Mode selects how a connection transmits frames
type Mode int

const (
	// ModeAPI transmits length, payload and checksum verbatim (AP=1)
	ModeAPI Mode = iota + 1
	// ModeAPIEscaped byte-stuffs special bytes after the delimiter (AP=2)
	ModeAPIEscaped
)

// String returns the configuration name of the mode
func (m Mode) String() string {
	switch m {
	case ModeAPI:
		return "api"
	case ModeAPIEscaped:
		return "api-escaped"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// ParseMode converts a configuration value into a Mode
func ParseMode(s string) (Mode, error) {
	switch s {
	case "api", "API", "1":
		return ModeAPI, nil
	case "api-escaped", "escaped", "API_ESCAPED", "2":
		return ModeAPIEscaped, nil
	default:
		return 0, fmt.Errorf("unknown operating mode %q (expected api or api-escaped)", s)
	}
}

// Checksum returns 0xFF minus the low byte of the sum of payload
func Checksum(payload []byte) byte {
	var sum byte
	for _, b := range payload {
		sum += b
	}
	return 0xFF - sum
}

// Verify reports whether checksum is valid for payload
func Verify(payload []byte, checksum byte) bool {
	var sum byte
	for _, b := range payload {
		sum += b
	}
	return sum+checksum == 0xFF
}

// NeedsEscape reports whether b must be byte-stuffed in escaped mode
func NeedsEscape(b byte) bool {
	switch b {
	case StartDelimiter, EscapeByte, XON, XOFF:
		return true
	}
	return false
}

// Escape byte-stuffs every special byte in data.
// The caller never passes the start delimiter of a frame through Escape.
func Escape(data []byte) []byte {
	out := make([]byte, 0, len(data)+len(data)/8)
	for _, b := range data {
		if NeedsEscape(b) {
			out = append(out, EscapeByte, b^EscapeXOR)
			continue
		}
		out = append(out, b)
	}
	return out
}

// Unescape reverses Escape.
// A trailing escape byte with no follower yields ErrTruncatedEscape.
func Unescape(data []byte) ([]byte, error) {
	out := make([]byte, 0, len(data))
	escaped := false
	for _, b := range data {
		if escaped {
			out = append(out, b^EscapeXOR)
			escaped = false
			continue
		}
		if b == EscapeByte {
			escaped = true
			continue
		}
		out = append(out, b)
	}
	if escaped {
		return nil, newFrameError(KindTruncatedEscape, "trailing escape byte at offset %d", len(data)-1)
	}
	return out, nil
}

// EncodeFrame wraps payload (frame type + frame data) in a complete API frame.
// Length and checksum are always derived from payload.
func EncodeFrame(payload []byte, mode Mode) ([]byte, error) {
	if len(payload) == 0 {
		return nil, newFrameError(KindMalformedFrame, "payload is empty")
	}
	if len(payload) > MaxPayloadSize {
		return nil, newFrameError(KindMalformedFrame, "payload too large: %d bytes (max %d)", len(payload), MaxPayloadSize)
	}

	body := make([]byte, 2+len(payload)+1)
	// #nosec G115 -- bounded by MaxPayloadSize above.
	binary.BigEndian.PutUint16(body[0:2], uint16(len(payload)))
	copy(body[2:], payload)
	body[len(body)-1] = Checksum(payload)

	if mode == ModeAPIEscaped {
		body = Escape(body)
	}

	frame := make([]byte, 0, 1+len(body))
	frame = append(frame, StartDelimiter)
	frame = append(frame, body...)
	return frame, nil
}

// DecodeFrame extracts and verifies the payload of exactly one complete frame.
// Trailing bytes after the checksum are rejected.
func DecodeFrame(frame []byte, mode Mode) ([]byte, error) {
	if len(frame) == 0 || frame[0] != StartDelimiter {
		return nil, newFrameError(KindMalformedFrame, "missing start delimiter")
	}

	body := frame[1:]
	if mode == ModeAPIEscaped {
		var err error
		body, err = Unescape(body)
		if err != nil {
			return nil, err
		}
	}

	if len(body) < 3 {
		return nil, newFrameError(KindMalformedFrame, "frame too short: %d bytes after delimiter", len(body))
	}

	length := int(binary.BigEndian.Uint16(body[0:2]))
	if length == 0 {
		return nil, newFrameError(KindMalformedFrame, "zero length frame")
	}
	if len(body) != 2+length+1 {
		return nil, newFrameError(KindMalformedFrame, "length field says %d payload bytes, frame carries %d", length, len(body)-3)
	}

	payload := body[2 : 2+length]
	checksum := body[2+length]
	if !Verify(payload, checksum) {
		return nil, newFrameError(KindChecksumMismatch, "checksum 0x%02X does not match payload (expected 0x%02X)", checksum, Checksum(payload))
	}

	out := make([]byte, length)
	copy(out, payload)
	return out, nil
}
