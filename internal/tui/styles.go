package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/sant0-9/narrator/internal/markup"
)

// truncate shortens text to maxLen, adding "..." if truncated
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}

var (
	// Colors
	colorPrimary   = lipgloss.Color("#7C3AED")
	colorSecondary = lipgloss.Color("#06B6D4")
	colorSuccess   = lipgloss.Color("#10B981")
	colorError     = lipgloss.Color("#EF4444")
	colorMuted     = lipgloss.Color("#6B7280")
	colorWhite     = lipgloss.Color("#F9FAFB")
	colorAccent    = lipgloss.Color("#F59E0B")

	// Logo style
	styleLogo = lipgloss.NewStyle().
			Foreground(colorPrimary).
			Bold(true)

	// Subtitle
	styleSubtitle = lipgloss.NewStyle().
			Foreground(colorMuted)

	// Box
	styleBox = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorMuted).
			Padding(0, 1)

	// Status bar
	styleStatusBar = lipgloss.NewStyle().
			Foreground(colorMuted)

	styleTitle = lipgloss.NewStyle().
			Foreground(colorPrimary).
			Bold(true)

	styleSpinner = lipgloss.NewStyle().
			Foreground(colorSecondary)

	// Metric cards
	styleCard = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorPrimary).
			Padding(0, 1).
			Width(22)

	styleCardLabel = lipgloss.NewStyle().
			Foreground(colorMuted)

	styleCardValue = lipgloss.NewStyle().
			Foreground(colorWhite).
			Bold(true)

	// Timeline markup
	styleTimelineHeading = lipgloss.NewStyle().
				Foreground(colorAccent).
				Bold(true).
				Underline(true)

	styleTimelineBold = lipgloss.NewStyle().
				Foreground(colorSecondary).
				Bold(true)
)

// TimelineRenderer renders narrative timelines with the terminal styles.
func TimelineRenderer() *markup.Renderer {
	return markup.Terminal(styleTimelineHeading, styleTimelineBold)
}
