package chatview

import "github.com/charmbracelet/lipgloss"

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#1D9BF0")).
			Padding(0, 1)

	selfStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#A6DA95"))

	botStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#7DC4E4"))

	textStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#CAD3F5")).
			PaddingLeft(2)

	typingStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6E738D")).
			Italic(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#ED8796"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#555555"))
)
