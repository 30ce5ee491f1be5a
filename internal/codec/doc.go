// Package codec implements the byte level of the XBee API framing protocol.
//
// Every API frame on the wire has the same envelope:
//   - Start delimiter: 0x7E
//   - Length: 2 bytes (big-endian), number of payload bytes
//   - Payload: frame type byte followed by frame-specific data
//   - Checksum: 0xFF minus the low byte of the payload sum
//
// # Operating Modes
//
// In API mode (ModeAPI) length, payload and checksum are transmitted verbatim.
// In escaped API mode (ModeAPIEscaped) the bytes 0x7E, 0x7D, 0x11 and 0x13
// appearing after the start delimiter are sent as 0x7D followed by the byte
// XOR 0x20. The mode is a property of the connection and is never detected
// per frame.
//
// # Encoding
//
//	frame, err := codec.EncodeFrame(pkt.Payload(), codec.ModeAPIEscaped)
//	if err != nil {
//	    return err
//	}
//	_, err = port.Write(frame)
//
// # Assembling
//
// The Assembler rebuilds frames from a byte stream with arbitrary split
// points. Each completed frame is checksum-verified; a bad frame yields an
// error Result and the assembler continues with the next start delimiter.
//
//	asm := codec.NewAssembler(codec.ModeAPIEscaped)
//	for _, res := range asm.Feed(buf[:n]) {
//	    if res.Err != nil {
//	        continue
//	    }
//	    pkt, err := packet.Parse(res.Payload)
//	    ...
//	}
//
// # Thread Safety
//
// The package-level functions are pure and safe for concurrent use. An
// Assembler holds partial-frame state and must be fed from one goroutine.
package codec
