package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

func (a *App) renderPersonas() string {
	var b strings.Builder

	title := styleLogo.Render("Personas")
	b.WriteString(lipgloss.PlaceHorizontal(a.width, lipgloss.Center, title))
	b.WriteString("\n\n")

	desc := styleSubtitle.Render("A persona sets the narrator's voice for every request")
	b.WriteString(lipgloss.PlaceHorizontal(a.width, lipgloss.Center, desc))
	b.WriteString("\n\n")

	var list strings.Builder
	for i, p := range a.state.personas.List() {
		cursor := "  "
		if i == a.state.settingsSelected {
			cursor = "> "
		}
		current := ""
		if p.Name == a.state.config.PersonaName {
			current = " (current)"
		}
		line := fmt.Sprintf("%s%s%s", cursor, p.Name, current)
		if i == a.state.settingsSelected {
			line = lipgloss.NewStyle().Foreground(colorPrimary).Bold(true).Render(line)
		}
		list.WriteString(line + "\n")
		if p.Description != "" {
			list.WriteString(styleSubtitle.Render("    "+truncate(p.Description, 60)) + "\n")
		}
	}

	listBox := styleBox.Copy().
		Width(min(70, a.width-4)).
		BorderForeground(colorPrimary).
		Render(strings.TrimSpace(list.String()))
	b.WriteString(lipgloss.PlaceHorizontal(a.width, lipgloss.Center, listBox))
	b.WriteString("\n\n")

	if dir := a.state.personas.Dir(); dir != "" {
		hint := styleSubtitle.Render("Add your own as Markdown files in " + dir)
		b.WriteString(lipgloss.PlaceHorizontal(a.width, lipgloss.Center, hint))
		b.WriteString("\n\n")
	}

	statusBar := styleStatusBar.Render("[j/k] Navigate  [Enter] Use persona  [Esc] Back")
	b.WriteString(lipgloss.PlaceHorizontal(a.width, lipgloss.Center, statusBar))

	return a.centerVertically(b.String())
}
