package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/sant0-9/narrator/internal/pipeline"
)

var loadingStages = []pipeline.Stage{
	pipeline.StageEncoding,
	pipeline.StagePrompting,
	pipeline.StageGenerating,
	pipeline.StageParsing,
}

func (a *App) renderLoading() string {
	var b strings.Builder

	title := styleTitle.Render("Weaving the narrative")
	b.WriteString(lipgloss.PlaceHorizontal(a.width, lipgloss.Center, title))
	b.WriteString("\n\n")

	model := styleSubtitle.Render(fmt.Sprintf("%s %s", a.state.spinner.View(), a.state.current.Model))
	b.WriteString(lipgloss.PlaceHorizontal(a.width, lipgloss.Center, model))
	b.WriteString("\n\n")

	progress := a.state.current.Progress
	currentStage := progress.StageIndex

	var stageLines []string
	for i, stage := range loadingStages {
		var icon string
		var style lipgloss.Style

		if i < currentStage {
			// Completed
			icon = "[x]"
			style = lipgloss.NewStyle().Foreground(colorSuccess)
		} else if i == currentStage {
			// Current
			icon = "[>]"
			style = lipgloss.NewStyle().Foreground(colorSecondary).Bold(true)
		} else {
			// Pending
			icon = "[ ]"
			style = lipgloss.NewStyle().Foreground(colorMuted)
		}

		stageLines = append(stageLines, style.Render(fmt.Sprintf("  %s  %-12s", icon, stage)))
	}

	stagesBox := styleBox.Copy().
		Width(min(60, a.width-4)).
		Render(strings.Join(stageLines, "\n"))
	b.WriteString(lipgloss.PlaceHorizontal(a.width, lipgloss.Center, stagesBox))
	b.WriteString("\n\n")

	if progress.Message != "" {
		msg := styleSubtitle.Render(truncate(progress.Message, 60))
		b.WriteString(lipgloss.PlaceHorizontal(a.width, lipgloss.Center, msg))
		b.WriteString("\n\n")
	}

	status := styleStatusBar.Render("Waiting for the model...  [ctrl+c] Quit")
	b.WriteString(lipgloss.PlaceHorizontal(a.width, lipgloss.Center, status))

	return a.centerVertically(b.String())
}
