package packet

// Parse decodes a verified frame payload (type byte + frame data) into a Packet.
// Type bytes outside the catalog yield an *UnknownPacket, not an error.
func Parse(payload []byte) (Packet, error) {
	if payload == nil {
		return nil, nullPayload("API")
	}
	if len(payload) == 0 {
		return nil, incomplete("API", 0, 1)
	}

	if decode, ok := DecoderFor(FrameType(payload[0])); ok {
		return decode(payload)
	}
	return ParseUnknownPacket(payload)
}
