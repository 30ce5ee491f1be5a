package packet

// atResponseMinLength is frame type + frame ID + command + status
const atResponseMinLength = 5

// ATCommandResponsePacket (0x88) answers an AT Command or AT Command Queue packet
type ATCommandResponsePacket struct {
	frameID
	command string
	status  ATCommandStatus
	value   []byte
}

// NewATCommandResponsePacket builds an AT Command Response packet
func NewATCommandResponsePacket(id byte, command string, status ATCommandStatus, value []byte) (*ATCommandResponsePacket, error) {
	if err := checkCommand(FrameATCommandResponse.String(), command); err != nil {
		return nil, err
	}
	return &ATCommandResponsePacket{
		frameID: frameID{id: id},
		command: command,
		status:  status,
		value:   cloneBytes(value),
	}, nil
}

// ParseATCommandResponsePacket decodes a complete AT Command Response payload
func ParseATCommandResponsePacket(payload []byte) (*ATCommandResponsePacket, error) {
	if err := checkHeader(payload, FrameATCommandResponse, atResponseMinLength); err != nil {
		return nil, err
	}
	name := FrameATCommandResponse.String()
	command := string(payload[2:4])
	if err := checkCommand(name, command); err != nil {
		return nil, invalidPacket(name, err)
	}
	return &ATCommandResponsePacket{
		frameID: frameID{id: payload[1]},
		command: command,
		status:  ATCommandStatus(payload[4]),
		value:   cloneBytes(payload[atResponseMinLength:]),
	}, nil
}

func (p *ATCommandResponsePacket) FrameType() FrameType { return FrameATCommandResponse }

func (p *ATCommandResponsePacket) NeedsFrameID() bool { return true }

func (p *ATCommandResponsePacket) Payload() []byte {
	buf := make([]byte, 0, atResponseMinLength+len(p.value))
	buf = append(buf, byte(FrameATCommandResponse), p.id)
	buf = append(buf, p.command...)
	buf = append(buf, byte(p.status))
	return append(buf, p.value...)
}

func (p *ATCommandResponsePacket) Fields() []Field {
	fields := []Field{
		p.frameID.field(),
		{Name: "AT Command", Value: hexDecoded([]byte(p.command), p.command)},
		byteField("Status", byte(p.status), p.status.String()),
	}
	return append(fields, dataField("Response", p.value)...)
}

// Command returns the AT command being answered
func (p *ATCommandResponsePacket) Command() string { return p.command }

// Status returns the command result
func (p *ATCommandResponsePacket) Status() ATCommandStatus { return p.status }

// Value returns a copy of the response value, or nil if there is none
func (p *ATCommandResponsePacket) Value() []byte { return cloneBytes(p.value) }
