// Package packet implements the typed XBee API packet model.
//
// A packet is the decoded form of one frame payload: the frame type byte
// followed by the frame-type specific fields. Every variant in the catalog
// implements Packet; variants used in request/reply exchanges also implement
// FrameIDer, and variants that carry an address implement Broadcaster.
//
// # Catalog
//
//   - 0x08 AT Command, 0x09 AT Command Queue
//   - 0x10 Transmit Request, 0x20 TX IPv4
//   - 0x88 AT Command Response, 0x89 TX Status, 0x8B Transmit Status
//   - 0x8A Modem Status, 0x90 Receive Packet, 0xB0 RX IPv4
//   - 0xFF Generic
//
// Any other type byte decodes to UnknownPacket, which keeps the raw type byte
// and data so the frame can be serialized again unchanged.
//
// # Construction
//
// Constructors validate every field before building the packet. A nil or
// missing required field fails with a KindMissingField error naming the field,
// and an out of range integer fails with KindInvalidRange citing the range:
//
//	p, err := packet.NewRXIPv4Packet(addr, 37, 179, packet.ProtocolTCP, nil)
//	if errors.Is(err, packet.ErrInvalidRange) {
//	    // port outside [0, 65535]
//	}
//
// Setters apply the same checks and leave the packet unchanged on error.
//
// # Parsing
//
//	p, err := packet.Parse(payload)
//	if err != nil {
//	    return err
//	}
//	switch v := p.(type) {
//	case *packet.RXIPv4Packet:
//	    fmt.Println(v.SourceAddress(), v.Data())
//	}
//
// Parse looks the type byte up in a fixed 256-entry table. The per-variant
// functions (ParseRXIPv4Packet and friends) can be called directly and
// reject payloads of another frame type.
//
// # Buffer Ownership
//
// A packet never aliases caller memory. Byte slices passed to constructors or
// setters are copied, and accessors return fresh copies.
package packet
