package packet

// GenericPacket (0xFF) carries arbitrary data without validation
type GenericPacket struct {
	data []byte
}

// NewGenericPacket builds a Generic packet with a copy of data
func NewGenericPacket(data []byte) *GenericPacket {
	return &GenericPacket{data: cloneBytes(data)}
}

// ParseGenericPacket decodes a complete Generic payload
func ParseGenericPacket(payload []byte) (*GenericPacket, error) {
	if err := checkHeader(payload, FrameGeneric, 1); err != nil {
		return nil, err
	}
	return &GenericPacket{data: cloneBytes(payload[1:])}, nil
}

func (p *GenericPacket) FrameType() FrameType { return FrameGeneric }

func (p *GenericPacket) NeedsFrameID() bool { return false }

func (p *GenericPacket) Payload() []byte {
	return append([]byte{byte(FrameGeneric)}, p.data...)
}

func (p *GenericPacket) Fields() []Field {
	return dataField("RF data", p.data)
}

// Data returns a copy of the data, or nil if there is none
func (p *GenericPacket) Data() []byte { return cloneBytes(p.data) }

// SetData replaces the data with a copy of data
func (p *GenericPacket) SetData(data []byte) { p.data = cloneBytes(data) }
