package tui

import (
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"

	"github.com/sant0-9/narrator/internal/config"
	"github.com/sant0-9/narrator/internal/persona"
	"github.com/sant0-9/narrator/internal/session"
	"github.com/sant0-9/narrator/internal/source"
)

type state struct {
	// Config
	config     *config.Config
	configPath string
	needsSetup bool
	saveError  error

	// Setup wizard state
	setupStep     int
	selectedModel int
	apiKeyInput   textinput.Model

	// Settings
	settingsMode     string
	settingsSelected int

	// Data
	table       *source.Table
	sourceLabel string
	tokens      int

	// Session
	controller *session.Controller
	current    session.View
	updates    chan session.View
	startError error

	// Personas
	personas *persona.Library

	// Widgets
	spinner  spinner.Model
	timeline viewport.Model
}

func newState() *state {
	apiKey := textinput.New()
	apiKey.Placeholder = "Paste your Gemini API key here..."
	apiKey.EchoMode = textinput.EchoPassword
	apiKey.CharLimit = 200
	apiKey.Width = 50

	spin := spinner.New()
	spin.Spinner = spinner.MiniDot
	spin.Style = styleSpinner

	return &state{
		apiKeyInput: apiKey,
		spinner:     spin,
		timeline:    viewport.New(70, 12),
		updates:     make(chan session.View, 1),
	}
}

// publish delivers v to the UI, replacing any snapshot not yet consumed.
func (s *state) publish(v session.View) {
	for {
		select {
		case s.updates <- v:
			return
		default:
			select {
			case <-s.updates:
			default:
			}
		}
	}
}
