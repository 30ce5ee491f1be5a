package packet

import (
	"encoding/hex"
	"fmt"
	"net/netip"
	"strings"
)

// BroadcastIPv4 is the broadcast address of IP-capable modules
var BroadcastIPv4 = netip.AddrFrom4([4]byte{255, 255, 255, 255})

// Addr64 is a 64-bit IEEE (MAC) address
type Addr64 [8]byte

// Well-known 64-bit addresses
var (
	Broadcast64   = Addr64{0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0xFF, 0xFF}
	Coordinator64 = Addr64{}
	Unknown64     = Addr64{0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF}
)

// String returns the address as 16 hex digits
func (a Addr64) String() string {
	return strings.ToUpper(hex.EncodeToString(a[:]))
}

// ParseAddr64 parses 16 hex digits, optionally separated by spaces, colons or dashes
func ParseAddr64(s string) (Addr64, error) {
	var a Addr64
	clean := strings.NewReplacer(" ", "", ":", "", "-", "").Replace(s)
	b, err := hex.DecodeString(clean)
	if err != nil {
		return a, fmt.Errorf("invalid 64-bit address %q: %w", s, err)
	}
	if len(b) != len(a) {
		return a, fmt.Errorf("invalid 64-bit address %q: %d bytes (expected 8)", s, len(b))
	}
	copy(a[:], b)
	return a, nil
}

// Addr16 is a 16-bit network address
type Addr16 [2]byte

// Unknown16 is used when the 16-bit address of the destination is not known
var Unknown16 = Addr16{0xFF, 0xFE}

// String returns the address as 4 hex digits
func (a Addr16) String() string {
	return strings.ToUpper(hex.EncodeToString(a[:]))
}

// ParseAddr16 parses 4 hex digits
func ParseAddr16(s string) (Addr16, error) {
	var a Addr16
	b, err := hex.DecodeString(strings.TrimSpace(s))
	if err != nil {
		return a, fmt.Errorf("invalid 16-bit address %q: %w", s, err)
	}
	if len(b) != len(a) {
		return a, fmt.Errorf("invalid 16-bit address %q: %d bytes (expected 2)", s, len(b))
	}
	copy(a[:], b)
	return a, nil
}

func checkIPv4(name, field string, addr netip.Addr) error {
	if !addr.IsValid() {
		return missingField(name, field)
	}
	if !addr.Unmap().Is4() {
		return invalidValue(name, field, "%s must be an IPv4 address, got %s", field, addr)
	}
	return nil
}

func ipv4Field(name string, addr netip.Addr) Field {
	b := addr.As4()
	return Field{Name: name, Value: hexDecoded(b[:], addr.String())}
}
