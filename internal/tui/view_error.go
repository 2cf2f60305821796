package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/sant0-9/narrator/internal/session"
)

func (a *App) renderError() string {
	var b strings.Builder

	title := lipgloss.NewStyle().
		Foreground(colorError).
		Bold(true).
		Render("Something went wrong")
	b.WriteString(lipgloss.PlaceHorizontal(a.width, lipgloss.Center, title))
	b.WriteString("\n\n")

	f := a.state.current.Failure
	errMsg := "Unknown error"
	if f != nil && f.Message != "" {
		errMsg = f.Message
	}

	errBox := styleBox.Copy().
		Width(min(60, a.width-4)).
		BorderForeground(colorError).
		Render(errMsg)
	b.WriteString(lipgloss.PlaceHorizontal(a.width, lipgloss.Center, errBox))
	b.WriteString("\n\n")

	if suggestions := suggestionsFor(f); len(suggestions) > 0 {
		suggBox := styleBox.Copy().
			Width(min(60, a.width-4)).
			BorderForeground(colorMuted).
			Render("Suggestions:\n" + strings.Join(suggestions, "\n"))
		b.WriteString(lipgloss.PlaceHorizontal(a.width, lipgloss.Center, suggBox))
		b.WriteString("\n\n")
	}

	if f != nil && f.RawText != "" {
		raw := strings.Split(f.RawText, "\n")
		if len(raw) > 8 {
			raw = append(raw[:8], "...")
		}
		rawBox := styleBox.Copy().
			Width(min(80, a.width-4)).
			Foreground(colorMuted).
			Render("Model output:\n" + strings.Join(raw, "\n"))
		b.WriteString(lipgloss.PlaceHorizontal(a.width, lipgloss.Center, rawBox))
		b.WriteString("\n\n")
	}

	status := styleStatusBar.Render("[r] Retry  [s] Settings  [p] Personas  [q] Quit")
	b.WriteString(lipgloss.PlaceHorizontal(a.width, lipgloss.Center, status))

	return a.centerVertically(b.String())
}

// suggestionsFor returns hints for the failure kind and status code.
func suggestionsFor(f *session.Failure) []string {
	if f == nil {
		return nil
	}

	switch f.Kind {
	case session.FailureConfiguration:
		return []string{"Press [s] then [k] to enter an API key"}
	case session.FailureEmptyResponse:
		return []string{
			"The request succeeded but the model returned no text",
			"Check the data for content that may trip safety filters",
		}
	case session.FailureParse:
		return []string{
			"The model did not answer with the expected JSON object",
			"Retrying often helps; a different persona or model may too",
		}
	}

	switch {
	case f.StatusCode == 400 || f.StatusCode == 401 || f.StatusCode == 403:
		return []string{
			"Check your API key in ~/.config/narrator/config.yaml",
			"Or press [s] to open settings",
		}
	case f.StatusCode == 404:
		return []string{"The model name may be wrong; pick another in settings"}
	case f.StatusCode == 429:
		return []string{
			"You've hit the API rate limit",
			"Wait a moment and try again",
		}
	case f.StatusCode >= 500:
		return []string{"The service is having trouble; try again shortly"}
	case f.StatusCode == 0:
		return []string{"Check your internet connection"}
	}
	return nil
}
