package ui

import "github.com/charmbracelet/lipgloss"

// Palette: default text for data, accent for keys and paths, muted for
// secondary detail. Status is carried by symbols, not color.
var (
	Accent     = lipgloss.NewStyle().Foreground(lipgloss.Color("#7DCFFF"))
	Muted      = lipgloss.NewStyle().Foreground(lipgloss.Color("#6C7086"))
	Bold       = lipgloss.NewStyle().Bold(true)
	AccentBold = Accent.Bold(true)
)
