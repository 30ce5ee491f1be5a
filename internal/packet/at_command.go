package packet

// atCommandMinLength is frame type + frame ID + 2-character command
const atCommandMinLength = 4

// ATCommandPacket (0x08, or 0x09 when queued) reads or sets a local parameter.
// A queued command is only applied once an AC command or a non-queued
// command is sent.
type ATCommandPacket struct {
	frameID
	queued    bool
	command   string
	parameter []byte
}

// NewATCommandPacket builds an AT Command packet applied immediately
func NewATCommandPacket(id byte, command string, parameter []byte) (*ATCommandPacket, error) {
	return newATCommand(FrameATCommand, id, command, parameter)
}

// NewATCommandQueuePacket builds an AT Command Queue packet
func NewATCommandQueuePacket(id byte, command string, parameter []byte) (*ATCommandPacket, error) {
	return newATCommand(FrameATCommandQueue, id, command, parameter)
}

func newATCommand(ft FrameType, id byte, command string, parameter []byte) (*ATCommandPacket, error) {
	if err := checkCommand(ft.String(), command); err != nil {
		return nil, err
	}
	return &ATCommandPacket{
		frameID:   frameID{id: id},
		queued:    ft == FrameATCommandQueue,
		command:   command,
		parameter: cloneBytes(parameter),
	}, nil
}

// ParseATCommandPacket decodes a complete AT Command payload
func ParseATCommandPacket(payload []byte) (*ATCommandPacket, error) {
	return parseATCommand(payload, FrameATCommand)
}

// ParseATCommandQueuePacket decodes a complete AT Command Queue payload
func ParseATCommandQueuePacket(payload []byte) (*ATCommandPacket, error) {
	return parseATCommand(payload, FrameATCommandQueue)
}

func parseATCommand(payload []byte, ft FrameType) (*ATCommandPacket, error) {
	if err := checkHeader(payload, ft, atCommandMinLength); err != nil {
		return nil, err
	}
	command := string(payload[2:4])
	if err := checkCommand(ft.String(), command); err != nil {
		return nil, invalidPacket(ft.String(), err)
	}
	return &ATCommandPacket{
		frameID:   frameID{id: payload[1]},
		queued:    ft == FrameATCommandQueue,
		command:   command,
		parameter: cloneBytes(payload[atCommandMinLength:]),
	}, nil
}

func (p *ATCommandPacket) FrameType() FrameType {
	if p.queued {
		return FrameATCommandQueue
	}
	return FrameATCommand
}

func (p *ATCommandPacket) NeedsFrameID() bool { return true }

func (p *ATCommandPacket) Payload() []byte {
	buf := make([]byte, 0, atCommandMinLength+len(p.parameter))
	buf = append(buf, byte(p.FrameType()), p.id)
	buf = append(buf, p.command...)
	return append(buf, p.parameter...)
}

func (p *ATCommandPacket) Fields() []Field {
	fields := []Field{
		p.frameID.field(),
		{Name: "AT Command", Value: hexDecoded([]byte(p.command), p.command)},
	}
	return append(fields, dataField("Parameter", p.parameter)...)
}

// Command returns the 2-character AT command
func (p *ATCommandPacket) Command() string { return p.command }

// Parameter returns a copy of the parameter, or nil for a read
func (p *ATCommandPacket) Parameter() []byte { return cloneBytes(p.parameter) }

// SetParameter replaces the parameter with a copy of parameter
func (p *ATCommandPacket) SetParameter(parameter []byte) { p.parameter = cloneBytes(parameter) }

// Queued reports whether this is an AT Command Queue packet
func (p *ATCommandPacket) Queued() bool { return p.queued }

// checkCommand requires exactly two printable ASCII characters
func checkCommand(name, command string) error {
	if command == "" {
		return missingField(name, "AT command")
	}
	if len(command) != 2 {
		return invalidValue(name, "AT command", "AT command must be 2 characters, got %q", command)
	}
	for i := 0; i < len(command); i++ {
		if command[i] < 0x20 || command[i] > 0x7E {
			return invalidValue(name, "AT command", "AT command must be printable ASCII, got %q", command)
		}
	}
	return nil
}
