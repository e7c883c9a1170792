package tui

import "github.com/charmbracelet/lipgloss"

// Color palette shared by the progress view and the summary
var (
	ColorTitle   = lipgloss.Color("39")
	ColorLabel   = lipgloss.Color("245")
	ColorValue   = lipgloss.Color("252")
	ColorSuccess = lipgloss.Color("42")
	ColorError   = lipgloss.Color("196")
	ColorWarning = lipgloss.Color("214")
)

var (
	titleStyle   = lipgloss.NewStyle().Foreground(ColorTitle).Bold(true)
	labelStyle   = lipgloss.NewStyle().Foreground(ColorLabel)
	valueStyle   = lipgloss.NewStyle().Foreground(ColorValue).Bold(true)
	successStyle = lipgloss.NewStyle().Foreground(ColorSuccess)
	errorStyle   = lipgloss.NewStyle().Foreground(ColorError)
	warningStyle = lipgloss.NewStyle().Foreground(ColorWarning)
	helpStyle    = lipgloss.NewStyle().Foreground(ColorLabel).Italic(true)
)
