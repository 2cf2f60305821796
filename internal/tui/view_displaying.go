package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/sant0-9/narrator/internal/markup"
	"github.com/sant0-9/narrator/internal/pipeline"
)

func (a *App) renderDisplaying() string {
	var b strings.Builder
	v := a.state.current
	width := min(94, a.width-4)

	title := styleTitle.Render("Session Overview")
	b.WriteString(lipgloss.PlaceHorizontal(a.width, lipgloss.Center, title))
	b.WriteString("\n\n")

	overview := styleBox.Copy().
		Width(width).
		BorderForeground(colorPrimary).
		Render(markup.Sanitize(v.Overview))
	b.WriteString(lipgloss.PlaceHorizontal(a.width, lipgloss.Center, overview))
	b.WriteString("\n")

	if cards := renderMetricCards(v.Metrics, width); cards != "" {
		b.WriteString(lipgloss.PlaceHorizontal(a.width, lipgloss.Center, cards))
		b.WriteString("\n")
	}

	timeline := styleBox.Copy().
		Width(width).
		BorderForeground(colorSecondary).
		Render(a.state.timeline.View())
	b.WriteString(lipgloss.PlaceHorizontal(a.width, lipgloss.Center, timeline))
	b.WriteString("\n")

	meta := styleSubtitle.Render(fmt.Sprintf("%s  %.1fs  %3.f%%", v.Model, v.Duration.Seconds(), a.state.timeline.ScrollPercent()*100))
	b.WriteString(lipgloss.PlaceHorizontal(a.width, lipgloss.Center, meta))
	b.WriteString("\n")

	status := styleStatusBar.Render("[j/k] Scroll  [g] Regenerate  [p] Personas  [s] Settings  [q] Quit")
	b.WriteString(lipgloss.PlaceHorizontal(a.width, lipgloss.Center, status))

	return a.centerVertically(b.String())
}

// renderMetricCards lays metric cards out in rows that fit width.
func renderMetricCards(metrics []pipeline.Metric, width int) string {
	if len(metrics) == 0 {
		return ""
	}

	perRow := max(1, width/(styleCard.GetWidth()+2))

	var rows []string
	var row []string
	for _, m := range metrics {
		card := styleCard.Render(
			styleCardLabel.Render(truncate(markup.Sanitize(m.Label), 20)) + "\n" +
				styleCardValue.Render(truncate(markup.Sanitize(m.Value), 20)))
		row = append(row, card)
		if len(row) == perRow {
			rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, row...))
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, row...))
	}
	return lipgloss.JoinVertical(lipgloss.Center, rows...)
}
