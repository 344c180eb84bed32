package main

import (
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
)

var (
	okStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("2")).Bold(true)
	failStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true)
	dimStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	headStyle = lipgloss.NewStyle().Bold(true).Underline(true)
)

// paint renders s with style only when stdout is a terminal.
func paint(style lipgloss.Style, s string) string {
	if !isatty.IsTerminal(os.Stdout.Fd()) {
		return s
	}
	return style.Render(s)
}
