// Package ui styles the plain CLI output.
package ui

import "github.com/charmbracelet/lipgloss"

var (
	// Colors
	Primary = lipgloss.Color("63")  // Purple/blue
	Success = lipgloss.Color("78")  // Green
	Warning = lipgloss.Color("214") // Orange
	Error   = lipgloss.Color("196") // Red
	TextDim = lipgloss.Color("245") // Dimmer text

	TitleStyle = lipgloss.NewStyle().
			Foreground(Primary).
			Bold(true)

	KeyStyle = lipgloss.NewStyle().
			Width(14).
			Foreground(TextDim)

	CodeStyle = lipgloss.NewStyle().
			Foreground(Warning).
			Bold(true)

	BoldStyle = lipgloss.NewStyle().Bold(true)
	DimStyle  = lipgloss.NewStyle().Foreground(TextDim)
)
