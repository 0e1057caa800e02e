package main

import (
	"os"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"golang.org/x/term"
)

var (
	styleHeading = lipgloss.NewStyle().Bold(true)
	styleMuted   = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	styleWarn    = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	styleID      = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
)

// stdoutIsTTY gates all decoration: piped output gets plain text.
func stdoutIsTTY() bool {
	return term.IsTerminal(int(os.Stdout.Fd())) && termenv.EnvColorProfile() != termenv.Ascii
}

// renderMarkdown pretty-prints markdown for terminals and passes it through
// untouched everywhere else.
func renderMarkdown(md string) string {
	if !stdoutIsTTY() {
		return md
	}
	width := 80
	if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && w > 0 && w < width {
		width = w
	}
	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return md
	}
	out, err := renderer.Render(md)
	if err != nil {
		return md
	}
	return out
}

func muted(s string) string {
	if !stdoutIsTTY() {
		return s
	}
	return styleMuted.Render(s)
}

func warn(s string) string {
	if !stdoutIsTTY() {
		return s
	}
	return styleWarn.Render(s)
}

func heading(s string) string {
	if !stdoutIsTTY() {
		return s
	}
	return styleHeading.Render(s)
}

func styledID(s string) string {
	if !stdoutIsTTY() {
		return s
	}
	return styleID.Render(s)
}
