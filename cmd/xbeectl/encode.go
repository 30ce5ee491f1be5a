package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/muurk/xbeeapi/internal/capture"
	"github.com/muurk/xbeeapi/internal/codec"
	"github.com/muurk/xbeeapi/internal/packet"
)

var encodeJSON bool

// atBuilder builds a local AT Command (0x08) or queued AT Command (0x09)
var atBuilder = packetBuilder{
	use:   "at <command> [value]",
	short: "AT Command (0x08) or queued AT Command (0x09)",
	long: `Build a local AT Command frame.

Without a value the command reads the parameter; with a value it sets it.
Use --queue to build a queued command (0x09) that is applied on the next AC.`,
	args: cobra.RangeArgs(1, 2),
	flags: func(cmd *cobra.Command) {
		cmd.Flags().BoolVar(&queueAT, "queue", false, "Queue the parameter value instead of applying it")
		cmd.Flags().BoolVar(&hexData, "hex", false, "Value argument is hex rather than text")
	},
	build: buildATCommand,
	example: func(path string) string {
		return fmt.Sprintf(`  %[1]s NI
  %[1]s NI "kitchen"
  %[1]s AP --hex 02 --queue`, path)
	},
}

func init() {
	encodeCmd.PersistentFlags().Uint8Var(&frameID, "frame-id", 1, "Frame ID (0 disables the response)")
	encodeCmd.PersistentFlags().BoolVar(&encodeJSON, "json", false, "Print a capture record instead of the frame hex")

	encodeCmd.AddCommand(encodePayloadCmd)
	encodeCmd.AddCommand(newPacketCommand(atBuilder, "encode", printEncoded))
	for _, b := range transmitBuilders {
		encodeCmd.AddCommand(newPacketCommand(b, "encode", printEncoded))
	}

	rootCmd.AddCommand(encodeCmd)
}

// encodeCmd builds API frames for the configured operating mode
var encodeCmd = &cobra.Command{
	Use:   "encode",
	Short: "Build API frames",
	Long: `Build a complete API frame and print it as hex.

Length and checksum are computed from the payload, and the frame is
byte-stuffed when the operating mode is api-escaped.`,
}

var encodePayloadCmd = &cobra.Command{
	Use:   "payload <hex>",
	Short: "Wrap a raw payload (frame type + data) in a frame",
	Long: `Wrap a raw payload in a frame envelope.

Payloads of known frame types are parsed first so that invalid field values
are rejected; unknown frame types are wrapped unchanged.`,
	Example: `  xbeectl encode payload 08014E49
  xbeectl encode payload "8A 06" --mode api-escaped`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := parseHex(strings.Join(args, ""))
		if err != nil {
			return err
		}
		p, err := packet.Parse(data)
		if err != nil {
			return err
		}
		return printEncoded(cmd, p)
	},
}

func printEncoded(cmd *cobra.Command, p packet.Packet) error {
	mode, err := operatingMode()
	if err != nil {
		return err
	}

	if encodeJSON {
		data, err := json.Marshal(capture.NewPacketRecord("encode", 0, "tx", p, mode))
		if err != nil {
			return err
		}
		fmt.Println(string(data))
		return nil
	}

	frame, err := codec.EncodeFrame(p.Payload(), mode)
	if err != nil {
		return err
	}
	fmt.Printf("% X\n", frame)
	return nil
}
