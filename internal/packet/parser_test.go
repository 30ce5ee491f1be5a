package packet

import (
	"bytes"
	"errors"
	"net/netip"
	"reflect"
	"testing"
)

// must unwraps a constructor result for fixtures that are valid by construction
func must[T Packet](p T, err error) T {
	if err != nil {
		panic(err)
	}
	return p
}

func catalogPackets() []Packet {
	dest := Addr64{0x00, 0x13, 0xA2, 0x00, 0x40, 0xA1, 0xB2, 0xC3}
	return []Packet{
		must(NewATCommandPacket(0x01, "NI", nil)),
		must(NewATCommandPacket(0x02, "NI", []byte("node"))),
		must(NewATCommandQueuePacket(0x03, "AP", []byte{0x02})),
		must(NewTransmitRequestPacket(0x04, dest, Unknown16, 0, 0x00, []byte("hello"))),
		must(NewTransmitRequestPacket(0x05, Broadcast64, Unknown16, 2, 0x01, nil)),
		must(NewTXIPv4Packet(0x06, netip.MustParseAddr("192.168.1.20"), 9750, 9750, ProtocolUDP, 0, []byte{0x7E, 0x7D})),
		must(NewATCommandResponsePacket(0x01, "NI", ATStatusOK, []byte("node"))),
		must(NewATCommandResponsePacket(0x02, "ZZ", ATStatusInvalidCommand, nil)),
		NewTXStatusPacket(0x06, DeliverySuccess),
		NewModemStatusPacket(0x02),
		must(NewTransmitStatusPacket(0x04, Addr16{0x7D, 0x84}, 0, DeliverySuccess, 0x01)),
		must(NewReceivePacket(dest, Addr16{0x7D, 0x84}, int(ReceiveOptionAcknowledged), []byte("data"))),
		must(NewRXIPv4Packet(testSource, testDestPort, testSourcePort, ProtocolTCPSSL, []byte{0x00})),
		must(NewRXIPv4Packet(testSource, testDestPort, testSourcePort, ProtocolTCP, nil)),
		NewGenericPacket([]byte{0x01, 0x02, 0x03}),
		NewGenericPacket(nil),
		NewUnknownPacket(0x2D, []byte{0xDE, 0xAD}),
	}
}

func TestParseRoundTrip(t *testing.T) {
	for _, p := range catalogPackets() {
		t.Run(Describe(p), func(t *testing.T) {
			got, err := Parse(p.Payload())
			if err != nil {
				t.Fatalf("Parse() error = %v", err)
			}
			if !reflect.DeepEqual(got, p) {
				t.Errorf("Parse(Payload()) = %#v, want %#v", got, p)
			}
			if !bytes.Equal(got.Payload(), p.Payload()) {
				t.Errorf("re-serialized payload = % X, want % X", got.Payload(), p.Payload())
			}
		})
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name    string
		payload []byte
		wantErr error
	}{
		{name: "nil payload", payload: nil, wantErr: ErrNullPayload},
		{name: "nil payload is a missing field", payload: nil, wantErr: ErrMissingField},
		{name: "empty payload", payload: []byte{}, wantErr: ErrIncompletePacket},
		{name: "short AT command", payload: []byte{0x08, 0x01, 0x4E}, wantErr: ErrIncompletePacket},
		{name: "short transmit request", payload: append([]byte{0x10}, make([]byte, 12)...), wantErr: ErrIncompletePacket},
		{name: "short modem status", payload: []byte{0x8A}, wantErr: ErrIncompletePacket},
		{name: "short transmit status", payload: []byte{0x8B, 0x01, 0xFF, 0xFE, 0x00, 0x00}, wantErr: ErrIncompletePacket},
		{name: "short RX IPv4", payload: []byte{0xB0, 0x0A}, wantErr: ErrIncompletePacket},
		{name: "unprintable AT command", payload: []byte{0x08, 0x01, 0x00, 0x49}, wantErr: ErrInvalidPacket},
		{name: "unknown TX IPv4 protocol", payload: []byte{0x20, 0x01, 0x0A, 0x00, 0x00, 0x01, 0x00, 0x50, 0x00, 0x50, 0x09, 0x00}, wantErr: ErrInvalidPacket},
		{name: "unknown TX IPv4 transmit options", payload: []byte{0x20, 0x01, 0x0A, 0x00, 0x00, 0x01, 0x00, 0x50, 0x00, 0x50, 0x00, 0x01}, wantErr: ErrInvalidPacket},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := Parse(tt.payload)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Parse() error = %v, want %v", err, tt.wantErr)
			}
			if p != nil {
				t.Errorf("Parse() = %v alongside error, want nil", p)
			}
		})
	}
}

func TestParseFactoriesRejectOtherTypes(t *testing.T) {
	modem := []byte{0x8A, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00}

	factories := map[string]func([]byte) error{
		"AT Command":          func(b []byte) error { _, err := ParseATCommandPacket(b); return err },
		"AT Command Queue":    func(b []byte) error { _, err := ParseATCommandQueuePacket(b); return err },
		"Transmit Request":    func(b []byte) error { _, err := ParseTransmitRequestPacket(b); return err },
		"TX IPv4":             func(b []byte) error { _, err := ParseTXIPv4Packet(b); return err },
		"AT Command Response": func(b []byte) error { _, err := ParseATCommandResponsePacket(b); return err },
		"TX Status":           func(b []byte) error { _, err := ParseTXStatusPacket(b); return err },
		"Transmit Status":     func(b []byte) error { _, err := ParseTransmitStatusPacket(b); return err },
		"Receive Packet":      func(b []byte) error { _, err := ParseReceivePacket(b); return err },
		"RX IPv4":             func(b []byte) error { _, err := ParseRXIPv4Packet(b); return err },
		"Generic":             func(b []byte) error { _, err := ParseGenericPacket(b); return err },
	}

	for name, parse := range factories {
		t.Run(name, func(t *testing.T) {
			if err := parse(modem); !errors.Is(err, ErrWrongFrameType) {
				t.Errorf("error = %v, want ErrWrongFrameType", err)
			}
		})
	}
}

func TestParseUnknownPreservesBytes(t *testing.T) {
	payload := []byte{0x2D, 0x7E, 0x00, 0xFF}
	p, err := Parse(payload)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	u, ok := p.(*UnknownPacket)
	if !ok {
		t.Fatalf("Parse() = %T, want *UnknownPacket", p)
	}
	if u.FrameType() != 0x2D {
		t.Errorf("FrameType() = 0x%02X, want 0x2D", byte(u.FrameType()))
	}
	if !bytes.Equal(u.Payload(), payload) {
		t.Errorf("Payload() = % X, want % X", u.Payload(), payload)
	}

	payload[1] = 0x00
	if u.Data()[0] != 0x7E {
		t.Error("UnknownPacket aliases the parsed buffer")
	}
}

func TestRegistry(t *testing.T) {
	for _, ft := range KnownTypes() {
		if !Known(ft) {
			t.Errorf("Known(%v) = false for a listed type", ft)
		}
		if _, ok := DecoderFor(ft); !ok {
			t.Errorf("DecoderFor(%v) missing", ft)
		}
		if _, ok := frameTypeNames[ft]; !ok {
			t.Errorf("frame type 0x%02X has no name", byte(ft))
		}
	}
	if len(KnownTypes()) != len(frameTypeNames) {
		t.Errorf("KnownTypes() has %d entries, names table has %d", len(KnownTypes()), len(frameTypeNames))
	}
	if Known(0x2D) {
		t.Error("Known(0x2D) = true")
	}
	if got := FrameType(0x2D).String(); got != "Unknown (0x2D)" {
		t.Errorf("String() = %q, want %q", got, "Unknown (0x2D)")
	}
}

func TestNeedsFrameID(t *testing.T) {
	for _, p := range catalogPackets() {
		_, correlated := p.(FrameIDer)
		if p.NeedsFrameID() != correlated {
			t.Errorf("%v: NeedsFrameID() = %v but implements FrameIDer = %v", p.FrameType(), p.NeedsFrameID(), correlated)
		}
	}

	p := NewTXStatusPacket(0x01, DeliverySuccess)
	p.SetFrameID(0x42)
	if p.FrameID() != 0x42 || p.Payload()[1] != 0x42 {
		t.Errorf("SetFrameID(0x42) gave FrameID() = 0x%02X, payload % X", p.FrameID(), p.Payload())
	}
}

func TestIsBroadcast(t *testing.T) {
	tests := []struct {
		name string
		p    Broadcaster
		want bool
	}{
		{
			name: "transmit request to broadcast",
			p:    must(NewTransmitRequestPacket(1, Broadcast64, Unknown16, 0, 0, nil)),
			want: true,
		},
		{
			name: "transmit request to coordinator",
			p:    must(NewTransmitRequestPacket(1, Coordinator64, Unknown16, 0, 0, nil)),
			want: false,
		},
		{
			name: "TX IPv4 to broadcast",
			p:    must(NewTXIPv4Packet(1, BroadcastIPv4, 1, 1, ProtocolUDP, 0, nil)),
			want: true,
		},
		{
			name: "TX IPv4 to host",
			p:    must(NewTXIPv4Packet(1, testSource, 1, 1, ProtocolUDP, 0, nil)),
			want: false,
		},
		{
			name: "receive packet broadcast option",
			p:    must(NewReceivePacket(Unknown64, Unknown16, int(ReceiveOptionBroadcast), nil)),
			want: true,
		},
		{
			name: "receive packet unicast",
			p:    must(NewReceivePacket(Unknown64, Unknown16, int(ReceiveOptionAcknowledged), nil)),
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.p.IsBroadcast(); got != tt.want {
				t.Errorf("IsBroadcast() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestConstructorValidation(t *testing.T) {
	tests := []struct {
		name    string
		build   func() error
		wantErr error
	}{
		{
			name:    "AT command empty",
			build:   func() error { _, err := NewATCommandPacket(1, "", nil); return err },
			wantErr: ErrMissingField,
		},
		{
			name:    "AT command too long",
			build:   func() error { _, err := NewATCommandPacket(1, "NID", nil); return err },
			wantErr: ErrInvalidRange,
		},
		{
			name:    "AT response bad command",
			build:   func() error { _, err := NewATCommandResponsePacket(1, "N", ATStatusOK, nil); return err },
			wantErr: ErrInvalidRange,
		},
		{
			name:    "transmit request radius",
			build:   func() error { _, err := NewTransmitRequestPacket(1, Broadcast64, Unknown16, 256, 0, nil); return err },
			wantErr: ErrInvalidRange,
		},
		{
			name:    "transmit status retries",
			build:   func() error { _, err := NewTransmitStatusPacket(1, Unknown16, -1, 0, 0); return err },
			wantErr: ErrInvalidRange,
		},
		{
			name:    "receive packet options",
			build:   func() error { _, err := NewReceivePacket(Unknown64, Unknown16, 300, nil); return err },
			wantErr: ErrInvalidRange,
		},
		{
			name:    "TX IPv4 missing address",
			build:   func() error { _, err := NewTXIPv4Packet(1, netip.Addr{}, 1, 1, ProtocolUDP, 0, nil); return err },
			wantErr: ErrMissingField,
		},
		{
			name:    "TX IPv4 missing protocol",
			build:   func() error { _, err := NewTXIPv4Packet(1, testSource, 1, 1, nil, 0, nil); return err },
			wantErr: ErrMissingField,
		},
		{
			name:    "TX IPv4 port",
			build:   func() error { _, err := NewTXIPv4Packet(1, testSource, 65536, 1, ProtocolUDP, 0, nil); return err },
			wantErr: ErrInvalidRange,
		},
		{
			name:    "TX IPv4 options",
			build:   func() error { _, err := NewTXIPv4Packet(1, testSource, 1, 1, ProtocolUDP, 0x01, nil); return err },
			wantErr: ErrInvalidRange,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.build(); !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestDescribe(t *testing.T) {
	p := NewModemStatusPacket(0x02)
	want := "Modem Status {Modem status: 02 (Joined network)}"
	if got := Describe(p); got != want {
		t.Errorf("Describe() = %q, want %q", got, want)
	}
}

func TestParseIPProtocol(t *testing.T) {
	tests := []struct {
		in      string
		want    *IPProtocol
		wantErr bool
	}{
		{in: "udp", want: ProtocolUDP},
		{in: "TCP", want: ProtocolTCP},
		{in: "tcp-ssl", want: ProtocolTCPSSL},
		{in: "sctp", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseIPProtocol(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseIPProtocol() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseIPProtocol() = %v, want %v", got, tt.want)
			}
		})
	}

	if IPProtocolByID(0x04) != ProtocolTCPSSL || IPProtocolByID(0x02) != nil {
		t.Error("IPProtocolByID() does not match the catalog")
	}
}

func TestParseAddr64(t *testing.T) {
	a, err := ParseAddr64("00 13 A2 00 40 A1 B2 C3")
	if err != nil {
		t.Fatalf("ParseAddr64() error = %v", err)
	}
	if a.String() != "0013A20040A1B2C3" {
		t.Errorf("String() = %q", a.String())
	}
	if _, err := ParseAddr64("0013A2"); err == nil {
		t.Error("ParseAddr64() accepted a 3-byte address")
	}
	if _, err := ParseAddr16("FFFE"); err != nil {
		t.Errorf("ParseAddr16() error = %v", err)
	}
}
