package main

import (
	"github.com/charmbracelet/lipgloss"
)

var (
	keywordStyle = lipgloss.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "#04B575", Dark: "#04B575"})

	paragraphStyle = lipgloss.NewStyle().
			Width(78).
			Padding(0, 0, 0, 2)
)

// keyword renders a word with emphasis for help text.
func keyword(s string) string {
	return keywordStyle.Render(s)
}

// paragraph wraps help text to a readable width.
func paragraph(s string) string {
	return paragraphStyle.Render(s)
}
