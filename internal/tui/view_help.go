package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

func (a *App) renderHelp() string {
	var b strings.Builder

	title := styleTitle.Render("Help")
	b.WriteString(lipgloss.PlaceHorizontal(a.width, lipgloss.Center, title))
	b.WriteString("\n\n")

	intro := []string{
		"  narrator turns a log of session events into a short",
		"  story: an overview, a few headline metrics and a",
		"  timeline of scenes.",
	}
	introBox := styleBox.Copy().
		Width(60).
		Render(strings.Join(intro, "\n"))
	b.WriteString(lipgloss.PlaceHorizontal(a.width, lipgloss.Center, introBox))
	b.WriteString("\n\n")

	shortcuts := []string{
		"  g / r          Analyze session (retry after an error)",
		"  j / k          Scroll the timeline",
		"  p              Choose a persona",
		"  s              Settings",
		"  ?              This help",
		"  q / Esc        Go back / Quit",
	}

	shortcutsTitle := styleSubtitle.Render("Keyboard Shortcuts")
	b.WriteString(lipgloss.PlaceHorizontal(a.width, lipgloss.Center, shortcutsTitle))
	b.WriteString("\n\n")

	shortcutsBox := styleBox.Copy().
		Width(60).
		Render(strings.Join(shortcuts, "\n"))
	b.WriteString(lipgloss.PlaceHorizontal(a.width, lipgloss.Center, shortcutsBox))
	b.WriteString("\n\n")

	instructions := styleStatusBar.Render("[Esc] Back")
	b.WriteString(lipgloss.PlaceHorizontal(a.width, lipgloss.Center, instructions))

	return a.centerVertically(b.String())
}
