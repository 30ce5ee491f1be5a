package packet

import "fmt"

// transmitRequestMinLength is frame type + frame ID + 64/16-bit destination + radius + options
const transmitRequestMinLength = 14

// TransmitRequestPacket (0x10) sends RF data to a 64-bit addressed node
type TransmitRequestPacket struct {
	frameID
	dest64          Addr64
	dest16          Addr16
	broadcastRadius byte
	options         byte
	rfData          []byte
}

// NewTransmitRequestPacket builds a Transmit Request packet.
// Use Broadcast64 as dest64 to reach every node and Unknown16 when the 16-bit address is not known.
func NewTransmitRequestPacket(id byte, dest64 Addr64, dest16 Addr16, broadcastRadius, options int, rfData []byte) (*TransmitRequestPacket, error) {
	name := FrameTransmitRequest.String()
	if err := checkByte(name, "broadcast radius", broadcastRadius); err != nil {
		return nil, err
	}
	if err := checkByte(name, "transmit options", options); err != nil {
		return nil, err
	}
	return &TransmitRequestPacket{
		frameID:         frameID{id: id},
		dest64:          dest64,
		dest16:          dest16,
		broadcastRadius: byte(broadcastRadius),
		options:         byte(options),
		rfData:          cloneBytes(rfData),
	}, nil
}

// ParseTransmitRequestPacket decodes a complete Transmit Request payload
func ParseTransmitRequestPacket(payload []byte) (*TransmitRequestPacket, error) {
	if err := checkHeader(payload, FrameTransmitRequest, transmitRequestMinLength); err != nil {
		return nil, err
	}
	return &TransmitRequestPacket{
		frameID:         frameID{id: payload[1]},
		dest64:          Addr64(payload[2:10]),
		dest16:          Addr16(payload[10:12]),
		broadcastRadius: payload[12],
		options:         payload[13],
		rfData:          cloneBytes(payload[transmitRequestMinLength:]),
	}, nil
}

func (p *TransmitRequestPacket) FrameType() FrameType { return FrameTransmitRequest }

func (p *TransmitRequestPacket) NeedsFrameID() bool { return true }

// IsBroadcast reports whether the 64-bit destination is the broadcast address
func (p *TransmitRequestPacket) IsBroadcast() bool { return p.dest64 == Broadcast64 }

func (p *TransmitRequestPacket) Payload() []byte {
	buf := make([]byte, 0, transmitRequestMinLength+len(p.rfData))
	buf = append(buf, byte(FrameTransmitRequest), p.id)
	buf = append(buf, p.dest64[:]...)
	buf = append(buf, p.dest16[:]...)
	buf = append(buf, p.broadcastRadius, p.options)
	return append(buf, p.rfData...)
}

func (p *TransmitRequestPacket) Fields() []Field {
	fields := []Field{
		p.frameID.field(),
		{Name: "64-bit dest. address", Value: prettyHex(p.dest64[:])},
		{Name: "16-bit dest. address", Value: prettyHex(p.dest16[:])},
		byteField("Broadcast radius", p.broadcastRadius, fmt.Sprint(p.broadcastRadius)),
		{Name: "Options", Value: prettyHex([]byte{p.options})},
	}
	return append(fields, dataField("RF data", p.rfData)...)
}

// Dest64 returns the 64-bit destination address
func (p *TransmitRequestPacket) Dest64() Addr64 { return p.dest64 }

// Dest16 returns the 16-bit destination address
func (p *TransmitRequestPacket) Dest16() Addr16 { return p.dest16 }

// BroadcastRadius returns the maximum number of hops for a broadcast
func (p *TransmitRequestPacket) BroadcastRadius() byte { return p.broadcastRadius }

// Options returns the raw transmit options
func (p *TransmitRequestPacket) Options() byte { return p.options }

// RFData returns a copy of the data to send, or nil if there is none
func (p *TransmitRequestPacket) RFData() []byte { return cloneBytes(p.rfData) }

// SetRFData replaces the data to send with a copy of data
func (p *TransmitRequestPacket) SetRFData(data []byte) { p.rfData = cloneBytes(data) }
