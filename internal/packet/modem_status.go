package packet

// ModemStatusPacket (0x8A) is an unsolicited module status indication
type ModemStatusPacket struct {
	status ModemStatus
}

// NewModemStatusPacket builds a Modem Status packet
func NewModemStatusPacket(status ModemStatus) *ModemStatusPacket {
	return &ModemStatusPacket{status: status}
}

// ParseModemStatusPacket decodes a complete Modem Status payload
func ParseModemStatusPacket(payload []byte) (*ModemStatusPacket, error) {
	if err := checkHeader(payload, FrameModemStatus, 2); err != nil {
		return nil, err
	}
	return &ModemStatusPacket{status: ModemStatus(payload[1])}, nil
}

func (p *ModemStatusPacket) FrameType() FrameType { return FrameModemStatus }

func (p *ModemStatusPacket) NeedsFrameID() bool { return false }

func (p *ModemStatusPacket) Payload() []byte {
	return []byte{byte(FrameModemStatus), byte(p.status)}
}

func (p *ModemStatusPacket) Fields() []Field {
	return []Field{byteField("Modem status", byte(p.status), p.status.String())}
}

// Status returns the reported modem status
func (p *ModemStatusPacket) Status() ModemStatus { return p.status }
