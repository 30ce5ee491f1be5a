package packet

// UnknownPacket holds a frame whose type byte has no decoder.
// The type byte and data are kept verbatim so the frame serializes unchanged.
type UnknownPacket struct {
	frameType byte
	data      []byte
}

// NewUnknownPacket builds an UnknownPacket for an arbitrary type byte
func NewUnknownPacket(frameType byte, data []byte) *UnknownPacket {
	return &UnknownPacket{frameType: frameType, data: cloneBytes(data)}
}

// ParseUnknownPacket wraps any non-empty payload
func ParseUnknownPacket(payload []byte) (*UnknownPacket, error) {
	if payload == nil {
		return nil, nullPayload("Unknown")
	}
	if len(payload) < 1 {
		return nil, incomplete("Unknown", 0, 1)
	}
	return &UnknownPacket{frameType: payload[0], data: cloneBytes(payload[1:])}, nil
}

func (p *UnknownPacket) FrameType() FrameType { return FrameType(p.frameType) }

func (p *UnknownPacket) NeedsFrameID() bool { return false }

func (p *UnknownPacket) Payload() []byte {
	return append([]byte{p.frameType}, p.data...)
}

func (p *UnknownPacket) Fields() []Field {
	return dataField("RF data", p.data)
}

// Data returns a copy of the raw frame data after the type byte
func (p *UnknownPacket) Data() []byte { return cloneBytes(p.data) }
