package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/muurk/xbeeapi/internal/packet"
	"github.com/muurk/xbeeapi/internal/ui"
)

// Send command flags
var (
	sendNoWait  bool
	sendTimeout time.Duration
)

func init() {
	sendCmd.PersistentFlags().BoolVar(&sendNoWait, "no-wait", false, "Do not wait for the transmit status")
	sendCmd.PersistentFlags().DurationVar(&sendTimeout, "timeout", 0, "Time to wait for the transmit status (default from config)")
	sendCmd.PersistentFlags().Uint8Var(&frameID, "frame-id", 1, "Frame ID used with --no-wait (0 disables the status frame)")

	for _, b := range transmitBuilders {
		sendCmd.AddCommand(newPacketCommand(b, "send", runSend))
	}

	rootCmd.AddCommand(sendCmd)
}

// sendCmd transmits data through the local module
var sendCmd = &cobra.Command{
	Use:   "send",
	Short: "Transmit data through the local module",
	Long: `Transmit data to a remote node or IP host through the local module.

By default the command waits for the transmit status frame the module
returns and reports the delivery status. A frame ID is assigned
automatically; --frame-id is only used with --no-wait.`,
}

func runSend(cmd *cobra.Command, p packet.Packet) error {
	ctx, stop := signalContext()
	defer stop()

	s, err := connect(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	if sendNoWait {
		if err := s.link.Send(ctx, p); err != nil {
			return err
		}
		fmt.Println(ui.RenderSuccess("Sent "+p.FrameType().String(), map[string]string{
			"Transport": s.link.Name(),
			"Bytes":     fmt.Sprintf("%d", len(p.Payload())),
		}))
		return nil
	}

	return awaitAndReport(ctx, s, p, sendTimeout, func(resp packet.Packet) error {
		status, ok := deliveryStatus(resp)
		if !ok {
			return fmt.Errorf("unexpected %s in reply to %s", resp.FrameType(), p.FrameType())
		}
		if status != packet.DeliverySuccess {
			return fmt.Errorf("delivery failed: %s", status)
		}
		return nil
	})
}

// awaitAndReport sends p, waits for its reply and prints the outcome.
// check decides whether the reply reports success.
func awaitAndReport(ctx context.Context, s *session, p packet.Packet, timeout time.Duration, check func(resp packet.Packet) error) error {
	title := p.FrameType().String()
	resp, err := s.link.SendAndAwait(ctx, p, timeout)
	if err != nil {
		fmt.Println(ui.RenderFailure(title, err, []string{
			"Check that the module is powered and in API mode (AP=1 or AP=2)",
			"Check that --mode matches the module's AP setting",
			"Increase --timeout for slow or multi-hop networks",
		}))
		return err
	}

	details := make(map[string]string)
	for _, f := range resp.Fields() {
		details[f.Name] = f.Value
	}

	if err := check(resp); err != nil {
		fmt.Println(ui.NewWarningResult(title, details).Render())
		return err
	}
	fmt.Println(ui.RenderSuccess(title, details))
	return nil
}

func deliveryStatus(resp packet.Packet) (packet.DeliveryStatus, bool) {
	switch r := resp.(type) {
	case *packet.TransmitStatusPacket:
		return r.DeliveryStatus(), true
	case *packet.TXStatusPacket:
		return r.Status(), true
	}
	return 0, false
}
