package main

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/muurk/xbeeapi/internal/capture"
	"github.com/muurk/xbeeapi/internal/codec"
	"github.com/muurk/xbeeapi/internal/logging"
	"github.com/muurk/xbeeapi/internal/packet"
	"github.com/muurk/xbeeapi/internal/ui"
	"go.uber.org/zap"
)

// Monitor command flags
var (
	monitorJSON       bool
	monitorCaptureDir string
	monitorCapture    bool
	monitorRemember   bool
)

func init() {
	monitorCmd.Flags().BoolVar(&monitorJSON, "json", false, "Print one JSON record per event")
	monitorCmd.Flags().BoolVar(&monitorCapture, "capture", false, "Record traffic to a JSONL file in the capture directory")
	monitorCmd.Flags().StringVar(&monitorCaptureDir, "capture-dir", "", "Capture directory (implies --capture; default from config)")
	monitorCmd.Flags().BoolVar(&monitorRemember, "remember", false, "Record remote nodes heard from in the config file")

	rootCmd.AddCommand(monitorCmd)
}

// monitorCmd streams inbound packets from the local module
var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Stream packets received by the local module",
	Long: `Connect to the local module and print every packet it delivers
until interrupted with Ctrl+C.

Frames that fail checksum or parsing are reported inline and do not stop
the stream. Nodes with a nickname (see 'xbeectl config nickname') are
shown by name.`,
	Example: `  # Monitor the configured module
  xbeectl monitor

  # Monitor a module on another port in escaped mode
  xbeectl monitor --serial-port /dev/ttyUSB1 --mode api-escaped

  # Monitor through a remote bridge and record to disk
  xbeectl monitor --url ws://raspberrypi.local:9750/xbee --capture`,
	RunE: runMonitor,
}

// monitorPrinter prints link events as they arrive
type monitorPrinter struct {
	mode codec.Mode

	mu       sync.Mutex
	seq      uint64
	seen     int
	remember bool
}

func (m *monitorPrinter) PacketReceived(p packet.Packet) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++

	if monitorJSON {
		m.printJSON(capture.NewPacketRecord("", m.seq, "rx", p, m.mode))
		return
	}

	var label string
	if rx, ok := p.(*packet.ReceivePacket); ok {
		addr := rx.Source64().String()
		if node := cfg.GetNode(addr); node != nil && node.Nickname != "" {
			label = node.Nickname
		}
		if m.remember {
			cfg.UpdateNodeSeen(addr, rx.Source16().String(), time.Now())
			m.seen++
		}
	}
	fmt.Println(ui.FormatPacketLine(time.Now(), label, p))
}

func (m *monitorPrinter) ReceiveError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++

	if monitorJSON {
		m.printJSON(capture.NewErrorRecord("", m.seq, err))
		return
	}
	fmt.Println(ui.FormatErrorLine(time.Now(), err))
}

func (m *monitorPrinter) ConnectionClosed(cause error) {
	if cause != nil && !monitorJSON {
		fmt.Fprintln(os.Stderr, ui.FormatErrorLine(time.Now(), cause))
	}
}

func (m *monitorPrinter) printJSON(rec capture.Record) {
	data, err := json.Marshal(rec)
	if err != nil {
		logging.Error("Failed to marshal record", zap.Error(err))
		return
	}
	fmt.Println(string(data))
}

func runMonitor(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext()
	defer stop()

	s, err := connect(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	printer := &monitorPrinter{mode: s.link.Mode(), remember: monitorRemember}
	s.link.AddListener(printer)

	var recorder *capture.Recorder
	if monitorCapture || monitorCaptureDir != "" {
		dir := monitorCaptureDir
		if dir == "" && cfg.Capture != nil {
			dir = cfg.Capture.Dir
		}
		if dir == "" {
			dir = "."
		}
		recorder, err = capture.NewRecorder(dir, s.link.Name())
		if err != nil {
			return err
		}
		defer recorder.Close()
		s.link.AddListener(recorder)
	}

	// Piped output carries packet lines only.
	if !monitorJSON && ui.IsTerminal() {
		params := map[string]string{
			"Transport": s.link.Name(),
			"Mode":      s.link.Mode().String(),
		}
		if recorder != nil {
			params["Capture"] = recorder.Path()
		}
		fmt.Println(ui.NewHeader("Monitor", "xbeectl monitor", params).Render())
		fmt.Println(ui.HeaderCommandStyle.Render("Press Ctrl+C to stop"))
	}

	runErr := s.Wait()
	closeErr := s.Close()

	stats := s.link.Stats()
	logging.Info("Monitor stopped",
		zap.Uint64("packets", stats.PacketsIn),
		zap.Uint64("parse_errors", stats.ParseErrors),
		zap.Int("checksum_errors", stats.Assembler.ChecksumErrors),
		zap.Int("resyncs", stats.Assembler.Resyncs),
	)

	if monitorRemember {
		printer.mu.Lock()
		seen := printer.seen
		printer.mu.Unlock()
		if seen > 0 {
			if err := cfg.Save(configPath); err != nil {
				return fmt.Errorf("failed to save nodes: %w", err)
			}
		}
	}

	if runErr != nil {
		return fmt.Errorf("connection lost: %w", runErr)
	}
	return closeErr
}
