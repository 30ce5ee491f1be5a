package main

import (
	"fmt"
	"net/netip"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/muurk/xbeeapi/internal/packet"
)

// Packet construction flags shared by encode, send and at
var (
	frameID    uint8
	hexData    bool
	queueAT    bool
	dest16     string
	radius     uint8
	txOptions  uint8
	sourcePort int
	protocol   string
)

// packetBuilder describes one outgoing packet kind and how to build it from arguments
type packetBuilder struct {
	use     string
	short   string
	long    string
	args    cobra.PositionalArgs
	flags   func(cmd *cobra.Command)
	build   func(id byte, args []string) (packet.Packet, error)
	example func(cmdPath string) string
}

// transmitBuilders are the packets that carry data to a remote node or host
var transmitBuilders = []packetBuilder{
	{
		use:   "tx <dest64> <data>",
		short: "Transmit Request (0x10) to a 64-bit address",
		long: `Build a Transmit Request (0x10) addressed to a remote node.

Use 000000000000FFFF as the 64-bit destination for a broadcast. The 16-bit
destination defaults to FFFE (unknown).`,
		args: cobra.ExactArgs(2),
		flags: func(cmd *cobra.Command) {
			cmd.Flags().StringVar(&dest16, "dest16", "FFFE", "16-bit destination address")
			cmd.Flags().Uint8Var(&radius, "radius", 0, "Broadcast radius (0 = maximum hops)")
			cmd.Flags().Uint8Var(&txOptions, "options", 0, "Transmit options bit field")
			cmd.Flags().BoolVar(&hexData, "hex", false, "Data argument is hex rather than text")
		},
		build: buildTransmitRequest,
		example: func(path string) string {
			return fmt.Sprintf(`  %[1]s 0013A20040A1B2C3 "hello"
  %[1]s 000000000000FFFF --hex 0102 --radius 1`, path)
		},
	},
	{
		use:   "tx-ipv4 <address> <port> <data>",
		short: "TX Request IPv4 (0x20) to a host and port",
		long: `Build a TX Request IPv4 (0x20) for Wi-Fi and cellular modules.

The protocol defaults to UDP; TCP and "TCP SSL" are also accepted.`,
		args: cobra.ExactArgs(3),
		flags: func(cmd *cobra.Command) {
			cmd.Flags().IntVar(&sourcePort, "source-port", 0, "Source port (0 = module chooses)")
			cmd.Flags().StringVar(&protocol, "protocol", "udp", "IP protocol (udp, tcp, tcp-ssl)")
			cmd.Flags().Uint8Var(&txOptions, "options", 0, "Transmit options bit field")
			cmd.Flags().BoolVar(&hexData, "hex", false, "Data argument is hex rather than text")
		},
		build: buildTXIPv4,
		example: func(path string) string {
			return fmt.Sprintf(`  %[1]s 10.10.11.12 9750 "ping"
  %[1]s 192.168.1.20 502 --protocol tcp --hex 000100000006`, path)
		},
	},
}

// newPacketCommand creates a subcommand for b that hands the built packet to run
func newPacketCommand(b packetBuilder, parent string, run func(cmd *cobra.Command, p packet.Packet) error) *cobra.Command {
	cmd := &cobra.Command{
		Use:     b.use,
		Short:   b.short,
		Long:    b.long,
		Args:    b.args,
		Example: b.example("xbeectl " + parent + " " + strings.Fields(b.use)[0]),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := b.build(frameID, args)
			if err != nil {
				return err
			}
			return run(cmd, p)
		},
	}
	if b.flags != nil {
		b.flags(cmd)
	}
	return cmd
}

// dataArg interprets a data argument as text, or hex when --hex is set
func dataArg(s string) ([]byte, error) {
	if hexData {
		return parseHex(s)
	}
	return []byte(s), nil
}

func buildATCommand(id byte, args []string) (packet.Packet, error) {
	var param []byte
	if len(args) > 1 {
		var err error
		if param, err = dataArg(args[1]); err != nil {
			return nil, err
		}
	}

	command := strings.ToUpper(args[0])
	if queueAT {
		return packet.NewATCommandQueuePacket(id, command, param)
	}
	return packet.NewATCommandPacket(id, command, param)
}

func buildTransmitRequest(id byte, args []string) (packet.Packet, error) {
	d64, err := packet.ParseAddr64(args[0])
	if err != nil {
		return nil, err
	}
	d16, err := packet.ParseAddr16(dest16)
	if err != nil {
		return nil, err
	}
	data, err := dataArg(args[1])
	if err != nil {
		return nil, err
	}
	return packet.NewTransmitRequestPacket(id, d64, d16, int(radius), int(txOptions), data)
}

func buildTXIPv4(id byte, args []string) (packet.Packet, error) {
	addr, err := netip.ParseAddr(args[0])
	if err != nil {
		return nil, fmt.Errorf("invalid destination address %q: %w", args[0], err)
	}
	port, err := strconv.Atoi(args[1])
	if err != nil {
		return nil, fmt.Errorf("invalid destination port %q", args[1])
	}
	proto, err := packet.ParseIPProtocol(protocol)
	if err != nil {
		return nil, err
	}
	data, err := dataArg(args[2])
	if err != nil {
		return nil, err
	}
	return packet.NewTXIPv4Packet(id, addr, port, sourcePort, proto, int(txOptions), data)
}
