package main

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/muurk/xbeeapi/internal/packet"
	"github.com/muurk/xbeeapi/internal/ui"
)

// AT command flags
var (
	atTimeout time.Duration
	atYes     bool
)

func init() {
	atCmd.Flags().BoolVar(&queueAT, "queue", false, "Queue the value; it takes effect on the next AC or a non-queued command")
	atCmd.Flags().BoolVar(&hexData, "hex", false, "Value argument is hex rather than text")
	atCmd.Flags().DurationVar(&atTimeout, "timeout", 0, "Time to wait for the response (default from config)")
	atCmd.Flags().BoolVarP(&atYes, "yes", "y", false, "Skip the confirmation prompt for persistent commands")

	rootCmd.AddCommand(atCmd)
}

// atCmd reads or sets a parameter on the local module
var atCmd = &cobra.Command{
	Use:   "at <command> [value]",
	Short: "Send an AT command to the local module",
	Long: `Send an AT command to the local module and print its response.

Without a value the command reads the parameter. With a value it sets it.
Commands that change persistent state (WR, RE, FR, NR) ask for
confirmation unless --yes is given.`,
	Example: `  # Read the node identifier
  xbeectl at NI

  # Set the node identifier and save it
  xbeectl at NI "kitchen"
  xbeectl at WR --yes

  # Set the API mode to escaped (queued until AC)
  xbeectl at AP --hex 02 --queue`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runAT,
}

func runAT(cmd *cobra.Command, args []string) error {
	// The frame ID is replaced when the request is sent.
	p, err := buildATCommand(1, args)
	if err != nil {
		return err
	}
	command := strings.ToUpper(args[0])

	if desc, ok := ui.NeedsConfirmation(command); ok && !atYes {
		if !ui.ConfirmOperation(os.Stdin, os.Stdout, "AT "+command, []string{desc}) {
			return errors.New("operation cancelled")
		}
	}

	ctx, stop := signalContext()
	defer stop()

	s, err := connect(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	return awaitAndReport(ctx, s, p, atTimeout, func(resp packet.Packet) error {
		r, ok := resp.(*packet.ATCommandResponsePacket)
		if !ok {
			return fmt.Errorf("unexpected %s in reply to AT %s", resp.FrameType(), command)
		}
		if r.Status() != packet.ATStatusOK {
			return fmt.Errorf("AT %s failed: %s", command, r.Status())
		}
		return nil
	})
}
