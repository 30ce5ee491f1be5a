package packet

import (
	"fmt"
	"strings"
)

// IPProtocol is the transport protocol of an IP frame.
// Values are only obtained from the catalog below; a nil *IPProtocol means unset.
type IPProtocol struct {
	id   byte
	name string
}

// Known IP protocols
var (
	ProtocolUDP    = &IPProtocol{id: 0, name: "UDP"}
	ProtocolTCP    = &IPProtocol{id: 1, name: "TCP"}
	ProtocolTCPSSL = &IPProtocol{id: 4, name: "TCP SSL"}
)

var ipProtocols = []*IPProtocol{ProtocolUDP, ProtocolTCP, ProtocolTCPSSL}

// ID returns the wire value
func (p *IPProtocol) ID() byte { return p.id }

// Name returns the display name
func (p *IPProtocol) Name() string { return p.name }

func (p *IPProtocol) String() string {
	if p == nil {
		return "<nil>"
	}
	return p.name
}

// IPProtocolByID returns the protocol with the given wire value, or nil
func IPProtocolByID(id byte) *IPProtocol {
	for _, p := range ipProtocols {
		if p.id == id {
			return p
		}
	}
	return nil
}

// ParseIPProtocol looks a protocol up by name ("udp", "tcp", "tcp-ssl")
func ParseIPProtocol(s string) (*IPProtocol, error) {
	norm := strings.NewReplacer("-", " ", "_", " ").Replace(strings.ToUpper(strings.TrimSpace(s)))
	for _, p := range ipProtocols {
		if p.name == norm {
			return p, nil
		}
	}
	return nil, fmt.Errorf("unknown IP protocol %q (expected udp, tcp or tcp-ssl)", s)
}

func protocolField(p *IPProtocol) Field {
	return byteField("Protocol", p.id, p.name)
}

// decodeProtocol maps a wire value to the catalog, failing for unknown values
func decodeProtocol(name string, id byte) (*IPProtocol, error) {
	p := IPProtocolByID(id)
	if p == nil {
		return nil, invalidPacket(name, invalidValue(name, "protocol", "unknown IP protocol 0x%02X", id))
	}
	return p, nil
}
