package ui

import (
	"bytes"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/muurk/xbeeapi/internal/packet"
)

func TestHeaderRenderSortsParams(t *testing.T) {
	h := NewHeader("Monitor", "xbeectl monitor", map[string]string{
		"Transport": "serial:/dev/ttyUSB0",
		"Mode":      "api",
	}).SetWidth(80)

	out := h.Render()
	if !strings.Contains(out, "MONITOR") {
		t.Errorf("header should contain upper-cased title, got:\n%s", out)
	}
	mode := strings.Index(out, "Mode:")
	tr := strings.Index(out, "Transport:")
	if mode < 0 || tr < 0 || mode > tr {
		t.Errorf("params should be rendered sorted by key, got:\n%s", out)
	}
}

func TestResultRender(t *testing.T) {
	tests := []struct {
		name   string
		result *Result
		want   []string
	}{
		{
			name:   "success",
			result: NewSuccessResult("AT NI", map[string]string{"Value": "Greenhouse", "Status": "OK"}),
			want:   []string{"SUCCESS", "AT NI", "Greenhouse", "Status:"},
		},
		{
			name:   "failure",
			result: NewFailureResult("AT XX", errors.New("invalid command"), []string{"Check the command name"}),
			want:   []string{"FAILED", "invalid command", "Troubleshooting:", "Check the command name"},
		},
		{
			name:   "warning",
			result: NewWarningResult("Slow response", nil).AddDetail("Elapsed", "1.9s"),
			want:   []string{"WARNING", "Elapsed:", "1.9s"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := tt.result.SetWidth(80).String()
			for _, want := range tt.want {
				if !strings.Contains(out, want) {
					t.Errorf("Render() missing %q in:\n%s", want, out)
				}
			}
		})
	}
}

func TestRenderPacket(t *testing.T) {
	p := packet.NewTXStatusPacket(7, packet.DeliverySuccess)
	out := RenderPacket(p, 80)

	for _, want := range []string{"TX Status", "0x89", "Frame ID:"} {
		if !strings.Contains(out, want) {
			t.Errorf("RenderPacket() missing %q in:\n%s", want, out)
		}
	}
}

func TestFormatPacketLine(t *testing.T) {
	at := time.Date(2026, 1, 2, 15, 4, 5, 123000000, time.UTC)
	p := packet.NewModemStatusPacket(packet.ModemStatusJoinedNetwork)

	out := FormatPacketLine(at, "Greenhouse", p)
	for _, want := range []string{"15:04:05.123", "Modem Status", "[Greenhouse]", "Joined network"} {
		if !strings.Contains(out, want) {
			t.Errorf("FormatPacketLine() missing %q in %q", want, out)
		}
	}
	if strings.Contains(out, "\n") {
		t.Errorf("FormatPacketLine() should be a single line, got %q", out)
	}

	if out := FormatErrorLine(at, errors.New("checksum mismatch")); !strings.Contains(out, "checksum mismatch") {
		t.Errorf("FormatErrorLine() = %q", out)
	}
}

func TestConfirmOperation(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  bool
	}{
		{"confirmed", "yes\n", true},
		{"confirmed without newline", "YES", true},
		{"declined", "no\n", false},
		{"empty input", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			got := ConfirmOperation(strings.NewReader(tt.input), &out, "AT WR", []string{"Writes to flash"})
			if got != tt.want {
				t.Errorf("ConfirmOperation() = %v, want %v", got, tt.want)
			}
			if !strings.Contains(out.String(), "Writes to flash") {
				t.Errorf("warning box missing from output:\n%s", out.String())
			}
		})
	}
}

func TestNeedsConfirmation(t *testing.T) {
	if _, ok := NeedsConfirmation("wr"); !ok {
		t.Error("NeedsConfirmation(wr) = false, want true")
	}
	if _, ok := NeedsConfirmation("NI"); ok {
		t.Error("NeedsConfirmation(NI) = true, want false")
	}
}

func TestIsTerminalFalseWhenPiped(t *testing.T) {
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("os.Pipe() error = %v", err)
	}
	defer r.Close()
	defer w.Close()

	stdout := os.Stdout
	os.Stdout = w
	defer func() { os.Stdout = stdout }()

	if IsTerminal() {
		t.Error("IsTerminal() = true for a pipe, want false")
	}
}
