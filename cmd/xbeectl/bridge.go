package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/muurk/xbeeapi/internal/capture"
	"github.com/muurk/xbeeapi/internal/config"
	"github.com/muurk/xbeeapi/internal/discovery"
	"github.com/muurk/xbeeapi/internal/server"
	"github.com/muurk/xbeeapi/internal/ui"
)

// Bridge command flags
var (
	bridgeListen    string
	bridgePath      string
	bridgeAdvertise bool
	bridgeName      string
	bridgeCert      string
	bridgeKey       string
	bridgeCapture   bool

	bridgesTimeout time.Duration
)

func init() {
	bridgeCmd.Flags().StringVar(&bridgeListen, "listen", "", "Listen address (default from config, :9750)")
	bridgeCmd.Flags().StringVar(&bridgePath, "path", "", "WebSocket endpoint path (default from config, /xbee)")
	bridgeCmd.Flags().BoolVar(&bridgeAdvertise, "advertise", false, "Announce the bridge over mDNS")
	bridgeCmd.Flags().StringVar(&bridgeName, "name", "", "mDNS instance name")
	bridgeCmd.Flags().StringVar(&bridgeCert, "cert", "", "TLS certificate file (serves wss:// with --key)")
	bridgeCmd.Flags().StringVar(&bridgeKey, "key", "", "TLS private key file")
	bridgeCmd.Flags().BoolVar(&bridgeCapture, "capture", false, "Record traffic to the configured capture directory")

	bridgesCmd.Flags().DurationVar(&bridgesTimeout, "timeout", discovery.DefaultScanTimeout, "Scan timeout")

	rootCmd.AddCommand(bridgeCmd)
	rootCmd.AddCommand(bridgesCmd)
}

// bridgeCmd shares the local module with WebSocket clients
var bridgeCmd = &cobra.Command{
	Use:   "bridge",
	Short: "Share the local module over WebSocket",
	Long: `Serve the local module to WebSocket clients.

Every frame the module delivers is sent to every client. Clients may send
complete frames as binary messages, or {"payload_hex": "..."} as text;
both are forwarded to the module. Select the stream format per client with
?format=raw, ?format=json or ?format=both (default).

Other machines can connect with 'xbeectl monitor --url ws://host:9750/xbee'.`,
	Example: `  # Serve the configured serial module on :9750
  xbeectl bridge

  # Serve over TLS and announce on the local network
  xbeectl bridge --cert server.crt --key server.key --advertise`,
	RunE: runBridge,
}

func bridgeConfig(cmd *cobra.Command) *server.Config {
	b := cfg.Bridge
	if b == nil {
		b = config.Default().Bridge
	}
	sc := &server.Config{
		Listen:      b.Listen,
		Path:        b.Path,
		CertPath:    b.CertPath,
		KeyPath:     b.KeyPath,
		Advertise:   b.Advertise,
		ServiceName: b.ServiceName,
	}

	flags := cmd.Flags()
	if flags.Changed("listen") {
		sc.Listen = bridgeListen
	}
	if flags.Changed("path") {
		sc.Path = bridgePath
	}
	if flags.Changed("advertise") {
		sc.Advertise = bridgeAdvertise
	}
	if flags.Changed("name") {
		sc.ServiceName = bridgeName
	}
	if flags.Changed("cert") {
		sc.CertPath = bridgeCert
	}
	if flags.Changed("key") {
		sc.KeyPath = bridgeKey
	}
	return sc
}

func runBridge(cmd *cobra.Command, args []string) error {
	sc := bridgeConfig(cmd)
	if (sc.CertPath == "") != (sc.KeyPath == "") {
		return errors.New("--cert and --key must be used together")
	}

	ctx, stop := signalContext()
	defer stop()

	s, err := connect(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	if bridgeCapture {
		dir := "."
		if cfg.Capture != nil && cfg.Capture.Dir != "" {
			dir = cfg.Capture.Dir
		}
		recorder, err := capture.NewRecorder(dir, s.link.Name())
		if err != nil {
			return err
		}
		defer recorder.Close()
		s.link.AddListener(recorder)
	}

	srv, err := server.New(sc, s.link)
	if err != nil {
		return err
	}
	if err := srv.Listen(); err != nil {
		return err
	}

	scheme := "ws"
	if sc.CertPath != "" {
		scheme = "wss"
	}
	fmt.Println(ui.NewHeader("Bridge", "xbeectl bridge", map[string]string{
		"Transport": s.link.Name(),
		"Mode":      s.link.Mode().String(),
		"Endpoint":  fmt.Sprintf("%s://%s%s", scheme, srv.Addr(), sc.Path),
		"Advertise": fmt.Sprintf("%t", sc.Advertise),
	}).Render())

	if err := srv.Run(ctx); err != nil {
		return fmt.Errorf("bridge failed: %w", err)
	}
	if err := s.Wait(); err != nil {
		return fmt.Errorf("connection lost: %w", err)
	}
	return nil
}

// bridgesCmd finds bridges announced on the local network
var bridgesCmd = &cobra.Command{
	Use:   "bridges",
	Short: "Discover bridges on the local network",
	Long: `Browse mDNS for bridges started with 'xbeectl bridge --advertise'
and print the URL to pass to --url.`,
	Example: `  xbeectl bridges
  xbeectl bridges --timeout 10s`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signalContext()
		defer stop()

		fmt.Printf("Scanning for bridges (timeout: %s)...\n\n", bridgesTimeout)
		bridges, err := discovery.ScanForBridges(ctx, bridgesTimeout)
		if err != nil {
			return fmt.Errorf("scan failed: %w", err)
		}

		if len(bridges) == 0 {
			fmt.Println("No bridges found.")
			fmt.Println("\nTroubleshooting:")
			fmt.Println("  - Ensure the bridge was started with --advertise")
			fmt.Println("  - Check that both machines are on the same network segment")
			fmt.Println("  - Try increasing --timeout")
			return nil
		}

		for _, b := range bridges {
			fmt.Println(ui.RenderSuccess(b.Instance, map[string]string{
				"URL":       b.URL(),
				"Host":      b.Hostname,
				"Mode":      b.Mode(),
				"Transport": b.GetMetadata("transport"),
			}))
		}
		return nil
	},
}
