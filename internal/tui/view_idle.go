package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/sant0-9/narrator/internal/session"
)

const logo = `
 ███╗   ██╗ █████╗ ██████╗ ██████╗  █████╗ ████████╗ ██████╗ ██████╗
 ████╗  ██║██╔══██╗██╔══██╗██╔══██╗██╔══██╗╚══██╔══╝██╔═══██╗██╔══██╗
 ██╔██╗ ██║███████║██████╔╝██████╔╝███████║   ██║   ██║   ██║██████╔╝
 ██║╚██╗██║██╔══██║██╔══██╗██╔══██╗██╔══██║   ██║   ██║   ██║██╔══██╗
 ██║ ╚████║██║  ██║██║  ██║██║  ██║██║  ██║   ██║   ╚██████╔╝██║  ██║
 ╚═╝  ╚═══╝╚═╝  ╚═╝╚═╝  ╚═╝╚═╝  ╚═╝╚═╝  ╚═╝   ╚═╝    ╚═════╝ ╚═╝  ╚═╝
`

func (a *App) renderIdle() string {
	var b strings.Builder

	b.WriteString(lipgloss.PlaceHorizontal(a.width, lipgloss.Center, styleLogo.Render(logo)))
	b.WriteString("\n")
	b.WriteString(lipgloss.PlaceHorizontal(a.width, lipgloss.Center, styleSubtitle.Render("Session Narratives")))
	b.WriteString("\n\n")

	infoBox := styleBox.Copy().
		Width(min(70, a.width-4)).
		Render(strings.Join(a.summaryLines(), "\n"))
	b.WriteString(lipgloss.PlaceHorizontal(a.width, lipgloss.Center, infoBox))
	b.WriteString("\n\n")

	if f := a.state.current.Failure; f != nil && f.Kind == session.FailureConfiguration {
		warn := lipgloss.NewStyle().Foreground(colorError).Render(f.Message)
		b.WriteString(lipgloss.PlaceHorizontal(a.width, lipgloss.Center, warn))
		b.WriteString("\n\n")
	}

	status := styleStatusBar.Render("[g] Analyze Session  [p] Personas  [s] Settings  [?] Help  [q] Quit")
	b.WriteString(lipgloss.PlaceHorizontal(a.width, lipgloss.Center, status))

	return a.centerVertically(b.String())
}

// summaryLines describes the loaded data and generation settings.
func (a *App) summaryLines() []string {
	cfg := a.state.config
	v := a.state.current

	rows := fmt.Sprintf("%s rows", humanize.Comma(int64(v.RowCount)))
	if v.Truncated {
		rows += fmt.Sprintf(" (first %s sent)", humanize.Comma(int64(cfg.MaxRows)))
	}

	personaName := cfg.PersonaName
	if strings.TrimSpace(cfg.Persona) != "" {
		personaName = "inline"
	}
	if personaName == "" {
		personaName = "default"
	}

	lines := []string{
		fmt.Sprintf("  Source:  %s", truncate(a.state.sourceLabel, 56)),
		fmt.Sprintf("  Data:    %s", rows),
		fmt.Sprintf("  Model:   %s", cfg.Model),
		fmt.Sprintf("  Persona: %s", personaName),
	}
	if a.state.tokens > 0 {
		lines = append(lines, fmt.Sprintf("  Prompt:  ~%s / %s tokens",
			humanize.Comma(int64(a.state.tokens)),
			humanize.Comma(int64(getContextLimit(cfg.Model)))))
	}
	return lines
}
