package cmd_macro

import (
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
)

var (
	styleRunning = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true)
	styleIdle    = lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Bold(true)
	styleError   = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	styleKey     = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Width(12)
	styleOK      = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
)

// paint renders s with style only on a terminal.
func paint(style lipgloss.Style, s string) string {
	if !isatty.IsTerminal(os.Stdout.Fd()) {
		return s
	}
	return style.Render(s)
}

func row(key, value string) string {
	return paint(styleKey, key) + " " + value
}
