package packet

import (
	"fmt"
	"math"
	"strings"
)

// Packet is the decoded payload of one API frame
type Packet interface {
	// FrameType returns the type byte the packet serializes with
	FrameType() FrameType
	// Payload serializes the packet: frame type byte followed by frame data.
	// Length and checksum are added by the codec.
	Payload() []byte
	// Fields describes the packet as ordered name/value pairs for diagnostics
	Fields() []Field
	// NeedsFrameID reports whether the packet takes part in a request/reply exchange
	NeedsFrameID() bool
}

// FrameIDer is implemented by packets that carry a frame ID.
// Frame ID 0 means no reply is expected.
type FrameIDer interface {
	FrameID() byte
	SetFrameID(id byte)
}

// Broadcaster is implemented by packets that carry an address
type Broadcaster interface {
	IsBroadcast() bool
}

// Field is one named, formatted packet value
type Field struct {
	Name  string
	Value string
}

// Describe renders a packet on one line, e.g. for logs
func Describe(p Packet) string {
	var b strings.Builder
	b.WriteString(p.FrameType().String())
	b.WriteString(" {")
	for i, f := range p.Fields() {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%s: %s", f.Name, f.Value)
	}
	b.WriteString("}")
	return b.String()
}

// frameID is embedded by variants that are correlated by frame ID
type frameID struct {
	id byte
}

// FrameID returns the correlation ID
func (f *frameID) FrameID() byte { return f.id }

// SetFrameID sets the correlation ID
func (f *frameID) SetFrameID(id byte) { f.id = id }

func (f *frameID) field() Field {
	return Field{Name: "Frame ID", Value: hexDecoded([]byte{f.id}, fmt.Sprint(f.id))}
}

// cloneBytes copies b; empty input yields nil so absent data has one representation
func cloneBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

// prettyHex formats bytes as space separated upper-case hex pairs
func prettyHex(b []byte) string {
	return fmt.Sprintf("% X", b)
}

func hexDecoded(b []byte, decoded string) string {
	return fmt.Sprintf("%s (%s)", prettyHex(b), decoded)
}

func uint16Field(name string, v uint16) Field {
	return Field{Name: name, Value: hexDecoded([]byte{byte(v >> 8), byte(v)}, fmt.Sprint(v))}
}

func byteField(name string, v byte, decoded string) Field {
	return Field{Name: name, Value: hexDecoded([]byte{v}, decoded)}
}

func dataField(name string, data []byte) []Field {
	if len(data) == 0 {
		return nil
	}
	return []Field{{Name: name, Value: prettyHex(data)}}
}

func checkPort(name, field string, port int) error {
	if port < 0 || port > math.MaxUint16 {
		return invalidRange(name, field, 0, math.MaxUint16)
	}
	return nil
}

func checkByte(name, field string, v int) error {
	if v < 0 || v > math.MaxUint8 {
		return invalidRange(name, field, 0, math.MaxUint8)
	}
	return nil
}

// checkHeader validates the common prefix of a variant payload
func checkHeader(payload []byte, ft FrameType, minimum int) error {
	name := ft.String()
	if payload == nil {
		return nullPayload(name)
	}
	if len(payload) < minimum {
		return incomplete(name, len(payload), minimum)
	}
	if FrameType(payload[0]) != ft {
		return wrongFrameType(name, payload[0])
	}
	return nil
}
