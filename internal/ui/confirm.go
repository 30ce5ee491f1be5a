package ui

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// ConfirmationPhrase is what the user types to approve a confirmed operation
const ConfirmationPhrase = "yes"

// ConfirmOperation displays a warning box on out and reads one line from in.
// Returns true only if the user typed ConfirmationPhrase.
func ConfirmOperation(in io.Reader, out io.Writer, title string, warnings []string) bool {
	width := GetTerminalWidth()

	lines := []string{
		"",
		lipgloss.NewStyle().
			Foreground(WarningColor).
			Bold(true).
			Render(fmt.Sprintf("   ⚠  WARNING  ─  %s", title)),
		"",
	}
	bulletStyle := lipgloss.NewStyle().Foreground(TextColor)
	for _, warning := range warnings {
		lines = append(lines, bulletStyle.Render("   • "+warning))
	}
	lines = append(lines, "")

	box := lipgloss.NewStyle().
		Border(lipgloss.DoubleBorder()).
		BorderForeground(WarningColor).
		Width(width-2).
		Padding(0, 2).
		Render(strings.Join(lines, "\n"))

	fmt.Fprintln(out, box)
	fmt.Fprintln(out)

	promptStyle := lipgloss.NewStyle().
		Foreground(WarningColor).
		Bold(true)
	fmt.Fprint(out, promptStyle.Render(fmt.Sprintf("To proceed, type %q and press Enter: ", ConfirmationPhrase)))

	input, err := bufio.NewReader(in).ReadString('\n')
	fmt.Fprintln(out)
	if err != nil && input == "" {
		return false
	}

	if strings.EqualFold(strings.TrimSpace(input), ConfirmationPhrase) {
		return true
	}

	fmt.Fprintln(out, lipgloss.NewStyle().Foreground(MutedColor).Render("  Operation cancelled."))
	fmt.Fprintln(out)
	return false
}

// persistentCommands change module state that survives a power cycle
var persistentCommands = map[string]string{
	"WR": "Writes the current parameter values to non-volatile memory",
	"RE": "Restores all parameters to factory defaults",
	"FR": "Performs a software reset of the module",
	"NR": "Resets network layer parameters",
}

// NeedsConfirmation reports whether an AT command should be confirmed first,
// and describes its effect
func NeedsConfirmation(command string) (string, bool) {
	desc, ok := persistentCommands[strings.ToUpper(command)]
	return desc, ok
}
