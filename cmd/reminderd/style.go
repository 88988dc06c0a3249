package main

import "github.com/charmbracelet/lipgloss"

var (
	colorAccent = lipgloss.Color("#2CD7C7")
	colorMuted  = lipgloss.Color("#6C7A89")
	colorWarn   = lipgloss.Color("#F4D03F")
	colorError  = lipgloss.Color("#E74C3C")
)

var styles = struct {
	Header lipgloss.Style
	Muted  lipgloss.Style
	Kind   lipgloss.Style
	Warn   lipgloss.Style
	Error  lipgloss.Style
}{
	Header: lipgloss.NewStyle().Bold(true).Foreground(colorAccent).MarginTop(1),
	Muted:  lipgloss.NewStyle().Foreground(colorMuted),
	Kind:   lipgloss.NewStyle().Width(10),
	Warn:   lipgloss.NewStyle().Foreground(colorWarn),
	Error:  lipgloss.NewStyle().Bold(true).Foreground(colorError),
}
