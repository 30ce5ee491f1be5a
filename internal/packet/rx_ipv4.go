package packet

import (
	"encoding/binary"
	"net/netip"
)

// rxIPv4MinLength is frame type + source address + ports + protocol + status
const rxIPv4MinLength = 11

// rxIPv4Status is the reserved status byte of RX IPv4 frames
const rxIPv4Status = 0x00

// RXIPv4Packet (0xB0) is data received from a remote IP device.
// It is an indication and is never correlated by frame ID.
type RXIPv4Packet struct {
	sourceAddress netip.Addr
	destPort      uint16
	sourcePort    uint16
	protocol      *IPProtocol
	data          []byte
}

// NewRXIPv4Packet builds an RX IPv4 packet. data may be nil.
func NewRXIPv4Packet(sourceAddress netip.Addr, destPort, sourcePort int, protocol *IPProtocol, data []byte) (*RXIPv4Packet, error) {
	name := FrameRXIPv4.String()
	if err := checkIPv4(name, "source address", sourceAddress); err != nil {
		return nil, err
	}
	if err := checkPort(name, "destination port", destPort); err != nil {
		return nil, err
	}
	if err := checkPort(name, "source port", sourcePort); err != nil {
		return nil, err
	}
	if protocol == nil {
		return nil, missingField(name, "protocol")
	}

	return &RXIPv4Packet{
		sourceAddress: sourceAddress.Unmap(),
		destPort:      uint16(destPort),
		sourcePort:    uint16(sourcePort),
		protocol:      protocol,
		data:          cloneBytes(data),
	}, nil
}

// ParseRXIPv4Packet decodes a complete RX IPv4 payload
func ParseRXIPv4Packet(payload []byte) (*RXIPv4Packet, error) {
	if err := checkHeader(payload, FrameRXIPv4, rxIPv4MinLength); err != nil {
		return nil, err
	}

	name := FrameRXIPv4.String()
	protocol, err := decodeProtocol(name, payload[9])
	if err != nil {
		return nil, err
	}
	// payload[10] is the reserved status byte

	return &RXIPv4Packet{
		sourceAddress: netip.AddrFrom4([4]byte(payload[1:5])),
		destPort:      binary.BigEndian.Uint16(payload[5:7]),
		sourcePort:    binary.BigEndian.Uint16(payload[7:9]),
		protocol:      protocol,
		data:          cloneBytes(payload[rxIPv4MinLength:]),
	}, nil
}

func (p *RXIPv4Packet) FrameType() FrameType { return FrameRXIPv4 }

func (p *RXIPv4Packet) NeedsFrameID() bool { return false }

// IsBroadcast reports whether the source address is 255.255.255.255
func (p *RXIPv4Packet) IsBroadcast() bool {
	return p.sourceAddress == BroadcastIPv4
}

func (p *RXIPv4Packet) Payload() []byte {
	addr := p.sourceAddress.As4()
	buf := make([]byte, 0, rxIPv4MinLength+len(p.data))
	buf = append(buf, byte(FrameRXIPv4))
	buf = append(buf, addr[:]...)
	buf = binary.BigEndian.AppendUint16(buf, p.destPort)
	buf = binary.BigEndian.AppendUint16(buf, p.sourcePort)
	buf = append(buf, p.protocol.ID(), rxIPv4Status)
	return append(buf, p.data...)
}

func (p *RXIPv4Packet) Fields() []Field {
	fields := []Field{
		ipv4Field("Source address", p.sourceAddress),
		uint16Field("Destination port", p.destPort),
		uint16Field("Source port", p.sourcePort),
		protocolField(p.protocol),
		byteField("Status", rxIPv4Status, "Reserved"),
	}
	return append(fields, dataField("Data", p.data)...)
}

// SourceAddress returns the IPv4 address of the sender
func (p *RXIPv4Packet) SourceAddress() netip.Addr { return p.sourceAddress }

// SetSourceAddress replaces the source address
func (p *RXIPv4Packet) SetSourceAddress(addr netip.Addr) error {
	if err := checkIPv4(FrameRXIPv4.String(), "source address", addr); err != nil {
		return err
	}
	p.sourceAddress = addr.Unmap()
	return nil
}

// DestPort returns the port the data was received on
func (p *RXIPv4Packet) DestPort() int { return int(p.destPort) }

// SetDestPort replaces the destination port
func (p *RXIPv4Packet) SetDestPort(port int) error {
	if err := checkPort(FrameRXIPv4.String(), "destination port", port); err != nil {
		return err
	}
	p.destPort = uint16(port)
	return nil
}

// SourcePort returns the port of the sender
func (p *RXIPv4Packet) SourcePort() int { return int(p.sourcePort) }

// SetSourcePort replaces the source port
func (p *RXIPv4Packet) SetSourcePort(port int) error {
	if err := checkPort(FrameRXIPv4.String(), "source port", port); err != nil {
		return err
	}
	p.sourcePort = uint16(port)
	return nil
}

// Protocol returns the transport protocol
func (p *RXIPv4Packet) Protocol() *IPProtocol { return p.protocol }

// SetProtocol replaces the transport protocol
func (p *RXIPv4Packet) SetProtocol(protocol *IPProtocol) error {
	if protocol == nil {
		return missingField(FrameRXIPv4.String(), "protocol")
	}
	p.protocol = protocol
	return nil
}

// Data returns a copy of the received data, or nil if there is none
func (p *RXIPv4Packet) Data() []byte { return cloneBytes(p.data) }

// SetData replaces the received data with a copy of data
func (p *RXIPv4Packet) SetData(data []byte) { p.data = cloneBytes(data) }
