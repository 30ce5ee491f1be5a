package packet

// txStatusMinLength is frame type + frame ID + delivery status
const txStatusMinLength = 3

// TXStatusPacket (0x89) reports the outcome of a TX IPv4 or other
// non-mesh transmission
type TXStatusPacket struct {
	frameID
	status DeliveryStatus
}

// NewTXStatusPacket builds a TX Status packet
func NewTXStatusPacket(id byte, status DeliveryStatus) *TXStatusPacket {
	return &TXStatusPacket{frameID: frameID{id: id}, status: status}
}

// ParseTXStatusPacket decodes a complete TX Status payload
func ParseTXStatusPacket(payload []byte) (*TXStatusPacket, error) {
	if err := checkHeader(payload, FrameTXStatus, txStatusMinLength); err != nil {
		return nil, err
	}
	return &TXStatusPacket{frameID: frameID{id: payload[1]}, status: DeliveryStatus(payload[2])}, nil
}

func (p *TXStatusPacket) FrameType() FrameType { return FrameTXStatus }

func (p *TXStatusPacket) NeedsFrameID() bool { return true }

func (p *TXStatusPacket) Payload() []byte {
	return []byte{byte(FrameTXStatus), p.id, byte(p.status)}
}

func (p *TXStatusPacket) Fields() []Field {
	return []Field{
		p.frameID.field(),
		byteField("Status", byte(p.status), p.status.String()),
	}
}

// Status returns the delivery status
func (p *TXStatusPacket) Status() DeliveryStatus { return p.status }
