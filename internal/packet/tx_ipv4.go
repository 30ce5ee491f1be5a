package packet

import (
	"encoding/binary"
	"net/netip"
)

// txIPv4MinLength is frame type + frame ID + address + ports + protocol + options
const txIPv4MinLength = 12

// TX IPv4 transmit options
const (
	TXIPv4OptionLeaveOpen   byte = 0x00
	TXIPv4OptionCloseSocket byte = 0x02
)

// TXIPv4Packet (0x20) sends data to a remote IP device
type TXIPv4Packet struct {
	frameID
	destAddress     netip.Addr
	destPort        uint16
	sourcePort      uint16
	protocol        *IPProtocol
	transmitOptions byte
	data            []byte
}

// NewTXIPv4Packet builds a TX IPv4 packet. data may be nil.
func NewTXIPv4Packet(id byte, destAddress netip.Addr, destPort, sourcePort int, protocol *IPProtocol, transmitOptions int, data []byte) (*TXIPv4Packet, error) {
	name := FrameTXIPv4.String()
	if err := checkIPv4(name, "destination address", destAddress); err != nil {
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
	if err := checkTXIPv4Options(name, transmitOptions); err != nil {
		return nil, err
	}

	return &TXIPv4Packet{
		frameID:         frameID{id: id},
		destAddress:     destAddress.Unmap(),
		destPort:        uint16(destPort),
		sourcePort:      uint16(sourcePort),
		protocol:        protocol,
		transmitOptions: byte(transmitOptions),
		data:            cloneBytes(data),
	}, nil
}

// ParseTXIPv4Packet decodes a complete TX IPv4 payload
func ParseTXIPv4Packet(payload []byte) (*TXIPv4Packet, error) {
	if err := checkHeader(payload, FrameTXIPv4, txIPv4MinLength); err != nil {
		return nil, err
	}

	protocol, err := decodeProtocol(FrameTXIPv4.String(), payload[10])
	if err != nil {
		return nil, err
	}
	if err := checkTXIPv4Options(FrameTXIPv4.String(), int(payload[11])); err != nil {
		return nil, invalidPacket(FrameTXIPv4.String(), err)
	}

	return &TXIPv4Packet{
		frameID:         frameID{id: payload[1]},
		destAddress:     netip.AddrFrom4([4]byte(payload[2:6])),
		destPort:        binary.BigEndian.Uint16(payload[6:8]),
		sourcePort:      binary.BigEndian.Uint16(payload[8:10]),
		protocol:        protocol,
		transmitOptions: payload[11],
		data:            cloneBytes(payload[txIPv4MinLength:]),
	}, nil
}

func checkTXIPv4Options(name string, options int) error {
	if options != int(TXIPv4OptionLeaveOpen) && options != int(TXIPv4OptionCloseSocket) {
		return invalidValue(name, "transmit options", "transmit options must be 0x%02X or 0x%02X",
			TXIPv4OptionLeaveOpen, TXIPv4OptionCloseSocket)
	}
	return nil
}

func (p *TXIPv4Packet) FrameType() FrameType { return FrameTXIPv4 }

func (p *TXIPv4Packet) NeedsFrameID() bool { return true }

// IsBroadcast reports whether the destination address is 255.255.255.255
func (p *TXIPv4Packet) IsBroadcast() bool {
	return p.destAddress == BroadcastIPv4
}

func (p *TXIPv4Packet) Payload() []byte {
	addr := p.destAddress.As4()
	buf := make([]byte, 0, txIPv4MinLength+len(p.data))
	buf = append(buf, byte(FrameTXIPv4), p.id)
	buf = append(buf, addr[:]...)
	buf = binary.BigEndian.AppendUint16(buf, p.destPort)
	buf = binary.BigEndian.AppendUint16(buf, p.sourcePort)
	buf = append(buf, p.protocol.ID(), p.transmitOptions)
	return append(buf, p.data...)
}

func (p *TXIPv4Packet) Fields() []Field {
	options := "Leave socket open"
	if p.transmitOptions == TXIPv4OptionCloseSocket {
		options = "Close socket"
	}
	fields := []Field{
		p.frameID.field(),
		ipv4Field("Destination address", p.destAddress),
		uint16Field("Destination port", p.destPort),
		uint16Field("Source port", p.sourcePort),
		protocolField(p.protocol),
		byteField("Transmit options", p.transmitOptions, options),
	}
	return append(fields, dataField("RF data", p.data)...)
}

// DestAddress returns the IPv4 address of the receiver
func (p *TXIPv4Packet) DestAddress() netip.Addr { return p.destAddress }

// DestPort returns the destination port
func (p *TXIPv4Packet) DestPort() int { return int(p.destPort) }

// SourcePort returns the source port
func (p *TXIPv4Packet) SourcePort() int { return int(p.sourcePort) }

// Protocol returns the transport protocol
func (p *TXIPv4Packet) Protocol() *IPProtocol { return p.protocol }

// TransmitOptions returns the raw transmit options byte
func (p *TXIPv4Packet) TransmitOptions() byte { return p.transmitOptions }

// Data returns a copy of the data to send, or nil if there is none
func (p *TXIPv4Packet) Data() []byte { return cloneBytes(p.data) }

// SetData replaces the data to send with a copy of data
func (p *TXIPv4Packet) SetData(data []byte) { p.data = cloneBytes(data) }
