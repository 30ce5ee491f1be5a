package packet

import "fmt"

// transmitStatusMinLength is frame type + frame ID + 16-bit address + retries + delivery + discovery
const transmitStatusMinLength = 7

// TransmitStatusPacket (0x8B) reports the outcome of a Transmit Request
type TransmitStatusPacket struct {
	frameID
	dest16    Addr16
	retries   byte
	delivery  DeliveryStatus
	discovery DiscoveryStatus
}

// NewTransmitStatusPacket builds a Transmit Status packet
func NewTransmitStatusPacket(id byte, dest16 Addr16, retries int, delivery DeliveryStatus, discovery DiscoveryStatus) (*TransmitStatusPacket, error) {
	if err := checkByte(FrameTransmitStatus.String(), "transmit retry count", retries); err != nil {
		return nil, err
	}
	return &TransmitStatusPacket{
		frameID:   frameID{id: id},
		dest16:    dest16,
		retries:   byte(retries),
		delivery:  delivery,
		discovery: discovery,
	}, nil
}

// ParseTransmitStatusPacket decodes a complete Transmit Status payload
func ParseTransmitStatusPacket(payload []byte) (*TransmitStatusPacket, error) {
	if err := checkHeader(payload, FrameTransmitStatus, transmitStatusMinLength); err != nil {
		return nil, err
	}
	return &TransmitStatusPacket{
		frameID:   frameID{id: payload[1]},
		dest16:    Addr16(payload[2:4]),
		retries:   payload[4],
		delivery:  DeliveryStatus(payload[5]),
		discovery: DiscoveryStatus(payload[6]),
	}, nil
}

func (p *TransmitStatusPacket) FrameType() FrameType { return FrameTransmitStatus }

func (p *TransmitStatusPacket) NeedsFrameID() bool { return true }

func (p *TransmitStatusPacket) Payload() []byte {
	return []byte{
		byte(FrameTransmitStatus), p.id,
		p.dest16[0], p.dest16[1],
		p.retries, byte(p.delivery), byte(p.discovery),
	}
}

func (p *TransmitStatusPacket) Fields() []Field {
	return []Field{
		p.frameID.field(),
		{Name: "16-bit dest. address", Value: prettyHex(p.dest16[:])},
		byteField("Tx. retry count", p.retries, fmt.Sprint(p.retries)),
		byteField("Delivery status", byte(p.delivery), p.delivery.String()),
		byteField("Discovery status", byte(p.discovery), p.discovery.String()),
	}
}

// Dest16 returns the 16-bit address the frame was delivered to
func (p *TransmitStatusPacket) Dest16() Addr16 { return p.dest16 }

// Retries returns the number of application transmission retries
func (p *TransmitStatusPacket) Retries() byte { return p.retries }

// DeliveryStatus returns the delivery outcome
func (p *TransmitStatusPacket) DeliveryStatus() DeliveryStatus { return p.delivery }

// DiscoveryStatus returns the discovery overhead
func (p *TransmitStatusPacket) DiscoveryStatus() DiscoveryStatus { return p.discovery }
