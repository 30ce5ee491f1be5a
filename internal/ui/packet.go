package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/muurk/xbeeapi/internal/packet"
)

// RenderPacket renders p as a bordered box of its fields
func RenderPacket(p packet.Packet, width int) string {
	if width < MinTerminalWidth {
		width = MinTerminalWidth
	}

	title := PacketTitleStyle.Render(fmt.Sprintf("%s (0x%02X)", p.FrameType(), byte(p.FrameType())))
	lines := []string{title}
	for _, f := range p.Fields() {
		lines = append(lines, FieldKeyStyle.Render(f.Name+":")+" "+FieldValueStyle.Render(f.Value))
	}
	return PacketBoxStyle(width).Render(strings.Join(lines, "\n"))
}

// FormatPacketLine renders p on one line for streaming output.
// label, when set, replaces the address of the sender (e.g., a node nickname).
func FormatPacketLine(at time.Time, label string, p packet.Packet) string {
	var b strings.Builder
	b.WriteString(PacketTimeStyle.Render(at.Format("15:04:05.000")))
	b.WriteString(" ")
	b.WriteString(lipgloss.NewStyle().Foreground(InboundColor).Render(InboundMarker))
	b.WriteString(" ")
	b.WriteString(PacketTitleStyle.Render(p.FrameType().String()))
	if label != "" {
		b.WriteString(" ")
		b.WriteString(HeaderParamValueStyle.Render("[" + label + "]"))
	}

	parts := make([]string, 0, len(p.Fields()))
	for _, f := range p.Fields() {
		parts = append(parts, FieldValueStyle.Render(f.Name+"="+f.Value))
	}
	if len(parts) > 0 {
		b.WriteString("  ")
		b.WriteString(strings.Join(parts, ", "))
	}
	return b.String()
}

// FormatErrorLine renders a dropped frame on one line for streaming output
func FormatErrorLine(at time.Time, err error) string {
	return PacketTimeStyle.Render(at.Format("15:04:05.000")) + " " +
		ErrorMessageStyle.Render(ErrorMarker+" "+err.Error())
}
