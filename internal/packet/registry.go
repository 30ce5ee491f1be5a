package packet

// Decoder turns a complete payload, type byte included, into a Packet
type Decoder func(payload []byte) (Packet, error)

// registry maps every catalog type byte to its decoder
var registry = [256]Decoder{
	FrameATCommand:         decoder(ParseATCommandPacket),
	FrameATCommandQueue:    decoder(ParseATCommandQueuePacket),
	FrameTransmitRequest:   decoder(ParseTransmitRequestPacket),
	FrameTXIPv4:            decoder(ParseTXIPv4Packet),
	FrameATCommandResponse: decoder(ParseATCommandResponsePacket),
	FrameTXStatus:          decoder(ParseTXStatusPacket),
	FrameModemStatus:       decoder(ParseModemStatusPacket),
	FrameTransmitStatus:    decoder(ParseTransmitStatusPacket),
	FrameReceivePacket:     decoder(ParseReceivePacket),
	FrameRXIPv4:            decoder(ParseRXIPv4Packet),
	FrameGeneric:           decoder(ParseGenericPacket),
}

// decoder adapts a typed parse function so a failed parse yields a nil interface
func decoder[T Packet](parse func([]byte) (T, error)) Decoder {
	return func(payload []byte) (Packet, error) {
		p, err := parse(payload)
		if err != nil {
			return nil, err
		}
		return p, nil
	}
}

// DecoderFor returns the decoder registered for a frame type
func DecoderFor(ft FrameType) (Decoder, bool) {
	d := registry[ft]
	return d, d != nil
}

// Known reports whether the frame type is in the catalog
func Known(ft FrameType) bool {
	return registry[ft] != nil
}

// KnownTypes lists the catalog frame types in ascending order
func KnownTypes() []FrameType {
	var types []FrameType
	for i, d := range registry {
		if d != nil {
			types = append(types, FrameType(i))
		}
	}
	return types
}
