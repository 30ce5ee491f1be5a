package packet

import "fmt"

// FrameType is the first byte of every API frame payload
type FrameType byte

// Frame types in the catalog
const (
	FrameATCommand         FrameType = 0x08
	FrameATCommandQueue    FrameType = 0x09
	FrameTransmitRequest   FrameType = 0x10
	FrameTXIPv4            FrameType = 0x20
	FrameATCommandResponse FrameType = 0x88
	FrameTXStatus          FrameType = 0x89
	FrameModemStatus       FrameType = 0x8A
	FrameTransmitStatus    FrameType = 0x8B
	FrameReceivePacket     FrameType = 0x90
	FrameRXIPv4            FrameType = 0xB0
	FrameGeneric           FrameType = 0xFF
)

var frameTypeNames = map[FrameType]string{
	FrameATCommand:         "AT Command",
	FrameATCommandQueue:    "AT Command Queue",
	FrameTransmitRequest:   "Transmit Request",
	FrameTXIPv4:            "TX IPv4",
	FrameATCommandResponse: "AT Command Response",
	FrameTXStatus:          "TX Status",
	FrameModemStatus:       "Modem Status",
	FrameTransmitStatus:    "Transmit Status",
	FrameReceivePacket:     "Receive Packet",
	FrameRXIPv4:            "RX IPv4",
	FrameGeneric:           "Generic",
}

// String returns the catalog name of the frame type
func (t FrameType) String() string {
	if name, ok := frameTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("Unknown (0x%02X)", byte(t))
}

// ModemStatus is the status code carried by a Modem Status frame
type ModemStatus byte

const (
	ModemStatusHardwareReset      ModemStatus = 0x00
	ModemStatusWatchdogReset      ModemStatus = 0x01
	ModemStatusJoinedNetwork      ModemStatus = 0x02
	ModemStatusDisassociated      ModemStatus = 0x03
	ModemStatusCoordinatorStarted ModemStatus = 0x06
	ModemStatusKeyUpdated         ModemStatus = 0x07
	ModemStatusVoltageExceeded    ModemStatus = 0x0D
	ModemStatusConfigChanged      ModemStatus = 0x11
	ModemStatusStackError         ModemStatus = 0x80
)

var modemStatusNames = map[ModemStatus]string{
	ModemStatusHardwareReset:      "Hardware reset",
	ModemStatusWatchdogReset:      "Watchdog timer reset",
	ModemStatusJoinedNetwork:      "Joined network",
	ModemStatusDisassociated:      "Disassociated",
	ModemStatusCoordinatorStarted: "Coordinator started",
	ModemStatusKeyUpdated:         "Network security key was updated",
	ModemStatusVoltageExceeded:    "Voltage supply limit exceeded",
	ModemStatusConfigChanged:      "Modem configuration changed while join in progress",
	ModemStatusStackError:         "Stack error",
}

// String returns the status description
func (s ModemStatus) String() string {
	if name, ok := modemStatusNames[s]; ok {
		return name
	}
	return "Unknown"
}

// ATCommandStatus is the result code of an AT command response
type ATCommandStatus byte

const (
	ATStatusOK               ATCommandStatus = 0x00
	ATStatusError            ATCommandStatus = 0x01
	ATStatusInvalidCommand   ATCommandStatus = 0x02
	ATStatusInvalidParameter ATCommandStatus = 0x03
	ATStatusTxFailure        ATCommandStatus = 0x04
)

// String returns the status description
func (s ATCommandStatus) String() string {
	switch s {
	case ATStatusOK:
		return "Status OK"
	case ATStatusError:
		return "Status Error"
	case ATStatusInvalidCommand:
		return "Invalid command"
	case ATStatusInvalidParameter:
		return "Invalid parameter"
	case ATStatusTxFailure:
		return "TX failure"
	default:
		return "Unknown status"
	}
}

// DeliveryStatus reports the outcome of a transmission
type DeliveryStatus byte

// DeliverySuccess is the only status that means the frame was delivered
const DeliverySuccess DeliveryStatus = 0x00

var deliveryStatusNames = map[DeliveryStatus]string{
	0x00: "Success",
	0x01: "MAC ACK failure",
	0x02: "CCA failure",
	0x03: "Packet purged without being transmitted",
	0x15: "Invalid destination endpoint",
	0x21: "Network ACK failure",
	0x22: "Not joined to network",
	0x23: "Self-addressed",
	0x24: "Address not found",
	0x25: "Route not found",
	0x26: "Broadcast relay was not heard",
	0x2B: "Invalid binding table index",
	0x2C: "Invalid endpoint",
	0x31: "Internal resource error",
	0x32: "Resource error lack of free buffers, timers, etc.",
	0x74: "Data payload too large",
	0x75: "Indirect message unrequested",
	0x76: "Attempt to create a client socket failed",
	0xFF: "Unknown",
}

// String returns the status description
func (s DeliveryStatus) String() string {
	if name, ok := deliveryStatusNames[s]; ok {
		return name
	}
	return "Unknown"
}

// DiscoveryStatus reports the discovery overhead of a transmission
type DiscoveryStatus byte

var discoveryStatusNames = map[DiscoveryStatus]string{
	0x00: "No discovery overhead",
	0x01: "Address discovery",
	0x02: "Route discovery",
	0x03: "Address and route",
	0x40: "Extended timeout discovery",
}

// String returns the status description
func (s DiscoveryStatus) String() string {
	if name, ok := discoveryStatusNames[s]; ok {
		return name
	}
	return "Unknown"
}
