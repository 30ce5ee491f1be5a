package packet

// receivePacketMinLength is frame type + 64/16-bit source + options
const receivePacketMinLength = 12

// Receive options
const (
	ReceiveOptionAcknowledged byte = 0x01
	ReceiveOptionBroadcast    byte = 0x02
)

// ReceivePacket (0x90) is RF data received from a 64-bit addressed node
type ReceivePacket struct {
	source64 Addr64
	source16 Addr16
	options  byte
	rfData   []byte
}

// NewReceivePacket builds a Receive Packet
func NewReceivePacket(source64 Addr64, source16 Addr16, options int, rfData []byte) (*ReceivePacket, error) {
	if err := checkByte(FrameReceivePacket.String(), "receive options", options); err != nil {
		return nil, err
	}
	return &ReceivePacket{
		source64: source64,
		source16: source16,
		options:  byte(options),
		rfData:   cloneBytes(rfData),
	}, nil
}

// ParseReceivePacket decodes a complete Receive Packet payload
func ParseReceivePacket(payload []byte) (*ReceivePacket, error) {
	if err := checkHeader(payload, FrameReceivePacket, receivePacketMinLength); err != nil {
		return nil, err
	}
	return &ReceivePacket{
		source64: Addr64(payload[1:9]),
		source16: Addr16(payload[9:11]),
		options:  payload[11],
		rfData:   cloneBytes(payload[receivePacketMinLength:]),
	}, nil
}

func (p *ReceivePacket) FrameType() FrameType { return FrameReceivePacket }

func (p *ReceivePacket) NeedsFrameID() bool { return false }

// IsBroadcast reports whether the sender addressed the packet to every node
func (p *ReceivePacket) IsBroadcast() bool {
	return p.options&ReceiveOptionBroadcast != 0
}

func (p *ReceivePacket) Payload() []byte {
	buf := make([]byte, 0, receivePacketMinLength+len(p.rfData))
	buf = append(buf, byte(FrameReceivePacket))
	buf = append(buf, p.source64[:]...)
	buf = append(buf, p.source16[:]...)
	buf = append(buf, p.options)
	return append(buf, p.rfData...)
}

func (p *ReceivePacket) Fields() []Field {
	fields := []Field{
		{Name: "64-bit source address", Value: prettyHex(p.source64[:])},
		{Name: "16-bit source address", Value: prettyHex(p.source16[:])},
		{Name: "Receive options", Value: prettyHex([]byte{p.options})},
	}
	return append(fields, dataField("RF data", p.rfData)...)
}

// Source64 returns the 64-bit address of the sender
func (p *ReceivePacket) Source64() Addr64 { return p.source64 }

// Source16 returns the 16-bit address of the sender
func (p *ReceivePacket) Source16() Addr16 { return p.source16 }

// Options returns the raw receive options
func (p *ReceivePacket) Options() byte { return p.options }

// RFData returns a copy of the received data, or nil if there is none
func (p *ReceivePacket) RFData() []byte { return cloneBytes(p.rfData) }

// SetRFData replaces the received data with a copy of data
func (p *ReceivePacket) SetRFData(data []byte) { p.rfData = cloneBytes(data) }
