package main

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/muurk/xbeeapi/internal/capture"
	"github.com/muurk/xbeeapi/internal/codec"
	"github.com/muurk/xbeeapi/internal/packet"
	"github.com/muurk/xbeeapi/internal/ui"
)

// Decode command flags
var (
	decodePayload bool
	decodeCapture string
	decodeJSON    bool
)

func init() {
	decodeCmd.Flags().BoolVar(&decodePayload, "payload", false, "Input is a frame payload (frame type + data) without delimiter, length or checksum")
	decodeCmd.Flags().StringVar(&decodeCapture, "capture", "", "Decode the payloads of a JSONL capture file")
	decodeCmd.Flags().BoolVar(&decodeJSON, "json", false, "Print capture records instead of rendered packets")

	rootCmd.AddCommand(decodeCmd)
}

// decodeCmd decodes API frames given as hex
var decodeCmd = &cobra.Command{
	Use:   "decode [hex...]",
	Short: "Decode API frames from hex",
	Long: `Decode one or more API frames given as hex.

Arguments are joined, so a frame may be split across several arguments.
Spaces, colons and dashes are ignored. The stream may hold several frames
back to back; each frame is verified and parsed separately and a bad frame
does not stop the ones after it.

The operating mode (api or api-escaped) comes from the config file or --mode.`,
	Example: `  # Decode a Transmit Status frame
  xbeectl decode 7E 00 07 8B 01 FF FE 00 00 00 76

  # Decode a frame payload without the envelope
  xbeectl decode --payload 8A06

  # Re-decode every packet recorded by 'xbeectl monitor --capture'
  xbeectl decode --capture ~/captures/capture-20260101-120000.jsonl`,
	RunE: runDecode,
}

func runDecode(cmd *cobra.Command, args []string) error {
	mode, err := operatingMode()
	if err != nil {
		return err
	}

	if decodeCapture != "" {
		return decodeCaptureFile(decodeCapture, mode)
	}

	if len(args) == 0 {
		return errors.New("no input: pass frame bytes as hex or use --capture")
	}
	data, err := parseHex(strings.Join(args, ""))
	if err != nil {
		return err
	}

	if decodePayload {
		return printDecoded(0, data, mode)
	}

	asm := codec.NewAssembler(mode)
	results := asm.Feed(data)
	var failed int
	for i, res := range results {
		if res.Err != nil {
			failed++
			printDecodeError(i, res.Err)
			continue
		}
		if err := printDecoded(uint64(i), res.Payload, mode); err != nil {
			failed++
			printDecodeError(i, err)
		}
	}

	if asm.State() != codec.AwaitingStart {
		failed++
		printDecodeError(len(results), fmt.Errorf("incomplete frame: input ended in state %s", asm.State()))
	}
	if len(results) == 0 && asm.State() == codec.AwaitingStart {
		return errors.New("no start delimiter (0x7E) found in input")
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d frames could not be decoded", failed, len(results))
	}
	return nil
}

func decodeCaptureFile(path string, mode codec.Mode) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open capture: %w", err)
	}
	defer f.Close()

	records, err := capture.ReadRecords(f)
	if err != nil {
		return fmt.Errorf("failed to read capture %s: %w", path, err)
	}

	for _, rec := range records {
		if rec.Kind != capture.KindPacket {
			if !decodeJSON {
				fmt.Println(ui.FormatErrorLine(rec.Timestamp, fmt.Errorf("[%s] %s", rec.Kind, rec.Error)))
			}
			continue
		}
		payload, err := rec.Payload()
		if err != nil {
			printDecodeError(int(rec.Seq), fmt.Errorf("record %d: bad payload_hex: %w", rec.Seq, err))
			continue
		}
		if err := printDecoded(rec.Seq, payload, mode); err != nil {
			printDecodeError(int(rec.Seq), err)
		}
	}
	return nil
}

// printDecoded parses one payload and prints it in the selected format
func printDecoded(seq uint64, payload []byte, mode codec.Mode) error {
	p, err := packet.Parse(payload)
	if err != nil {
		return err
	}

	if decodeJSON {
		data, err := json.Marshal(capture.NewPacketRecord("decode", seq, "", p, mode))
		if err != nil {
			return err
		}
		fmt.Println(string(data))
		return nil
	}
	fmt.Println(ui.RenderPacket(p, ui.GetTerminalWidth()))
	return nil
}

func printDecodeError(index int, err error) {
	if decodeJSON {
		data, _ := json.Marshal(capture.NewErrorRecord("decode", uint64(index), err))
		fmt.Println(string(data))
		return
	}
	fmt.Fprintln(os.Stderr, ui.FormatErrorLine(time.Now(), err))
}

// parseHex decodes hex, ignoring whitespace, colons, dashes and 0x prefixes
func parseHex(s string) ([]byte, error) {
	s = strings.ReplaceAll(s, "0x", "")
	s = strings.ReplaceAll(s, "0X", "")
	s = strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\t', '\n', '\r', ':', '-':
			return -1
		}
		return r
	}, s)

	data, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("invalid hex input: %w", err)
	}
	return data, nil
}
