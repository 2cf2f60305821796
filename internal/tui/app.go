package tui

import (
	"context"
	"errors"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/sant0-9/narrator/internal/config"
	"github.com/sant0-9/narrator/internal/llm"
	"github.com/sant0-9/narrator/internal/persona"
	"github.com/sant0-9/narrator/internal/pipeline"
	"github.com/sant0-9/narrator/internal/prompts"
	"github.com/sant0-9/narrator/internal/session"
	"github.com/sant0-9/narrator/internal/source"
)

type view int

const (
	viewIdle view = iota
	viewSetup
	viewLoading
	viewDisplaying
	viewError
	viewSettings
	viewPersonas
	viewHelp
)

// Options wires the UI to a session.
type Options struct {
	Context     context.Context
	Config      *config.Config
	ConfigPath  string
	Controller  *session.Controller
	Personas    *persona.Library
	Table       *source.Table
	SourceLabel string
	NewClient   func(*config.Config) (llm.Client, error)
	Logger      *zap.Logger
}

type App struct {
	width       int
	height      int
	view        view
	state       *state
	quitting    bool
	ctx         context.Context
	newClient   func(*config.Config) (llm.Client, error)
	logger      *zap.Logger
	unsubscribe func()
}

// ConfigChangedMsg tells the UI the config file was reloaded.
type ConfigChangedMsg struct {
	Config *config.Config
}

type viewMsg struct{ view session.View }
type setupCompleteMsg struct{}
type setupErrorMsg struct{ error }
type configSavedMsg struct{}
type configSaveErrorMsg struct{ error }

func NewApp(opts Options) *App {
	s := newState()
	s.config = opts.Config
	if s.config == nil {
		s.config = config.DefaultConfig()
	}
	s.configPath = opts.ConfigPath
	s.controller = opts.Controller
	s.personas = opts.Personas
	s.table = opts.Table
	s.sourceLabel = opts.SourceLabel
	s.needsSetup = !s.config.APIKey.IsSet()

	a := &App{
		view:      viewIdle,
		state:     s,
		ctx:       opts.Context,
		newClient: opts.NewClient,
		logger:    opts.Logger,
	}
	if a.ctx == nil {
		a.ctx = context.Background()
	}
	if a.newClient == nil {
		a.newClient = llm.New
	}
	if a.logger == nil {
		a.logger = zap.NewNop()
	}

	if s.controller != nil {
		s.current = s.controller.View()
		a.unsubscribe = s.controller.Subscribe(s.publish)
	}
	a.refreshEstimate()

	return a
}

// Close detaches the UI from its session.
func (a *App) Close() {
	if a.unsubscribe != nil {
		a.unsubscribe()
	}
}

func (a *App) Init() tea.Cmd {
	if a.state.needsSetup {
		a.view = viewSetup
	}
	return tea.Batch(tea.WindowSize(), a.waitForView())
}

// waitForView blocks until the session publishes a new snapshot.
func (a *App) waitForView() tea.Cmd {
	ch := a.state.updates
	return func() tea.Msg {
		return viewMsg{view: <-ch}
	}
}

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		cmd := a.handleKey(msg)
		if cmd != nil {
			cmds = append(cmds, cmd)
		}

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.resizeTimeline()

	case viewMsg:
		cmds = append(cmds, a.applyView(msg.view), a.waitForView())

	case spinner.TickMsg:
		if a.state.current.State != session.StateLoading {
			return a, nil
		}
		var cmd tea.Cmd
		a.state.spinner, cmd = a.state.spinner.Update(msg)
		return a, cmd

	case ConfigChangedMsg:
		a.logger.Info("config changed", zap.String("model", msg.Config.Model))
		a.applyConfig(msg.Config)
		return a, nil

	case setupCompleteMsg:
		a.state.needsSetup = false
		a.state.setupStep = 0
		a.state.saveError = nil
		a.applyConfig(a.state.config)
		a.view = a.mainView()
		return a, nil

	case setupErrorMsg:
		a.state.saveError = msg.error
		return a, nil

	case configSavedMsg:
		a.state.saveError = nil
		a.applyConfig(a.state.config)
		return a, nil

	case configSaveErrorMsg:
		a.state.saveError = msg.error
		return a, nil
	}

	// Update text inputs and the timeline based on view
	switch {
	case a.view == viewSetup && a.state.setupStep == 1,
		a.view == viewSettings && a.state.settingsMode == "apikey":
		var cmd tea.Cmd
		a.state.apiKeyInput, cmd = a.state.apiKeyInput.Update(msg)
		cmds = append(cmds, cmd)
	case a.view == viewDisplaying:
		if _, ok := msg.(tea.KeyMsg); ok {
			var cmd tea.Cmd
			a.state.timeline, cmd = a.state.timeline.Update(msg)
			cmds = append(cmds, cmd)
		}
	}

	return a, tea.Batch(cmds...)
}

// applyView records a session snapshot and moves between the main views.
func (a *App) applyView(v session.View) tea.Cmd {
	prev := a.state.current.State
	a.state.current = v

	if v.State == session.StateDisplaying && prev != session.StateDisplaying {
		a.state.timeline.SetContent(v.Timeline)
		a.state.timeline.GotoTop()
	}

	if !a.onMainView() {
		return nil
	}
	a.view = a.mainView()

	if v.State == session.StateLoading && prev != session.StateLoading {
		return a.state.spinner.Tick
	}
	return nil
}

func (a *App) onMainView() bool {
	switch a.view {
	case viewIdle, viewLoading, viewDisplaying, viewError:
		return true
	}
	return false
}

func (a *App) mainView() view {
	switch a.state.current.State {
	case session.StateLoading:
		return viewLoading
	case session.StateDisplaying:
		return viewDisplaying
	case session.StateError:
		return viewError
	default:
		return viewIdle
	}
}

func (a *App) applyConfig(cfg *config.Config) {
	a.state.config = cfg
	if a.state.controller != nil {
		client, err := a.newClient(cfg)
		if err != nil {
			a.logger.Warn("cannot create client", zap.Error(err))
		} else {
			a.state.controller.SetClient(client)
		}
		a.state.controller.SetConfig(cfg)
	}
	a.refreshEstimate()
}

// refreshEstimate recomputes the prompt token estimate shown when idle.
func (a *App) refreshEstimate() {
	t := a.state.table
	if t == nil {
		a.state.tokens = 0
		return
	}
	persona := a.state.config.Persona
	if a.state.personas != nil {
		persona = a.state.personas.Resolve(a.state.config.Persona, a.state.config.PersonaName)
	}
	payload := pipeline.Encode(t.Fields, t.Rows, source.DisplayFormatter{}, a.state.config.MaxRows)
	a.state.tokens = estimateTokens(prompts.BuildNarrativePrompt(persona, payload.Text()))
}

func (a *App) resizeTimeline() {
	w := min(90, a.width-6)
	h := a.height - 22
	if h < 5 {
		h = 5
	}
	if w < 20 {
		w = 20
	}
	a.state.timeline.Width = w
	a.state.timeline.Height = h
}

func (a *App) handleKey(msg tea.KeyMsg) tea.Cmd {
	if msg.String() == "ctrl+c" {
		a.quitting = true
		return tea.Quit
	}

	switch a.view {
	case viewSetup:
		return a.handleSetupKey(msg)
	case viewSettings:
		return a.handleSettingsKey(msg)
	case viewPersonas:
		return a.handlePersonasKey(msg)
	case viewHelp:
		if key.Matches(msg, keys.Back, keys.Help, keys.Quit) {
			a.view = a.mainView()
		}
		return nil
	}

	switch {
	case key.Matches(msg, keys.Back), key.Matches(msg, keys.Quit):
		a.quitting = true
		return tea.Quit

	case key.Matches(msg, keys.Help):
		a.view = viewHelp

	case key.Matches(msg, keys.Settings):
		a.view = viewSettings
		a.state.settingsMode = ""

	case key.Matches(msg, keys.Personas):
		a.openPersonas()

	case key.Matches(msg, keys.Generate):
		return a.startGeneration()
	}
	return nil
}

func (a *App) startGeneration() tea.Cmd {
	if a.state.controller == nil || a.state.current.State == session.StateLoading {
		return nil
	}

	err := a.state.controller.Start(a.ctx)
	a.state.startError = err

	var cfgErr *session.ConfigError
	switch {
	case err == nil, errors.Is(err, session.ErrBusy):
		return nil
	case errors.As(err, &cfgErr) && !a.state.config.APIKey.IsSet():
		a.view = viewSetup
		a.state.setupStep = 0
	}
	return nil
}

func (a *App) handleSetupKey(msg tea.KeyMsg) tea.Cmd {
	switch a.state.setupStep {
	case 0: // Model selection
		switch {
		case key.Matches(msg, keys.Up):
			if a.state.selectedModel > 0 {
				a.state.selectedModel--
			}
		case key.Matches(msg, keys.Down):
			if a.state.selectedModel < len(config.Models)-1 {
				a.state.selectedModel++
			}
		case key.Matches(msg, keys.Enter):
			a.state.config.Model = config.Models[a.state.selectedModel].ID
			a.state.setupStep = 1
			a.state.apiKeyInput.Focus()
			return textinput.Blink
		case key.Matches(msg, keys.Back), key.Matches(msg, keys.Quit):
			if a.state.config.APIKey.IsSet() {
				a.view = a.mainView()
				return nil
			}
			a.quitting = true
			return tea.Quit
		}

	case 1: // API key entry
		switch {
		case key.Matches(msg, keys.Enter):
			value := strings.TrimSpace(a.state.apiKeyInput.Value())
			if value == "" {
				return nil
			}
			a.state.config.APIKey = config.Secret(value)
			a.state.apiKeyInput.Reset()
			a.state.apiKeyInput.Blur()
			return a.finishSetup()
		case key.Matches(msg, keys.Back):
			a.state.setupStep = 0
			a.state.apiKeyInput.Reset()
			a.state.apiKeyInput.Blur()
		}
	}

	return nil
}

func (a *App) handleSettingsKey(msg tea.KeyMsg) tea.Cmd {
	switch a.state.settingsMode {
	case "model":
		switch {
		case key.Matches(msg, keys.Up):
			if a.state.settingsSelected > 0 {
				a.state.settingsSelected--
			}
		case key.Matches(msg, keys.Down):
			if a.state.settingsSelected < len(config.Models)-1 {
				a.state.settingsSelected++
			}
		case key.Matches(msg, keys.Enter):
			a.state.config.Model = config.Models[a.state.settingsSelected].ID
			a.state.settingsMode = ""
			return a.saveConfig()
		case key.Matches(msg, keys.Back):
			a.state.settingsMode = ""
		}

	case "apikey":
		switch {
		case key.Matches(msg, keys.Enter):
			value := strings.TrimSpace(a.state.apiKeyInput.Value())
			a.state.apiKeyInput.Reset()
			a.state.apiKeyInput.Blur()
			a.state.settingsMode = ""
			if value == "" {
				return nil
			}
			a.state.config.APIKey = config.Secret(value)
			return a.saveConfig()
		case key.Matches(msg, keys.Back):
			a.state.apiKeyInput.Reset()
			a.state.apiKeyInput.Blur()
			a.state.settingsMode = ""
		}

	default:
		switch msg.String() {
		case "m":
			a.state.settingsMode = "model"
			a.state.settingsSelected = 0
			for i, m := range config.Models {
				if m.ID == a.state.config.Model {
					a.state.settingsSelected = i
				}
			}
		case "k":
			a.state.settingsMode = "apikey"
			a.state.apiKeyInput.Focus()
			return textinput.Blink
		case "p":
			a.openPersonas()
		case "esc", "q":
			a.view = a.mainView()
		}
	}
	return nil
}

func (a *App) openPersonas() {
	a.view = viewPersonas
	a.state.settingsSelected = 0
	for i, p := range a.state.personas.List() {
		if p.Name == a.state.config.PersonaName {
			a.state.settingsSelected = i
		}
	}
}

func (a *App) handlePersonasKey(msg tea.KeyMsg) tea.Cmd {
	list := a.state.personas.List()
	switch {
	case key.Matches(msg, keys.Up):
		if a.state.settingsSelected > 0 {
			a.state.settingsSelected--
		}
	case key.Matches(msg, keys.Down):
		if a.state.settingsSelected < len(list)-1 {
			a.state.settingsSelected++
		}
	case key.Matches(msg, keys.Enter):
		if len(list) == 0 {
			return nil
		}
		a.state.config.PersonaName = list[a.state.settingsSelected].Name
		a.view = a.mainView()
		return a.saveConfig()
	case key.Matches(msg, keys.Back), key.Matches(msg, keys.Quit):
		a.view = a.mainView()
	}
	return nil
}

func (a *App) finishSetup() tea.Cmd {
	cfg := *a.state.config
	path := a.state.configPath
	return func() tea.Msg {
		if err := cfg.Save(path); err != nil {
			return setupErrorMsg{err}
		}
		return setupCompleteMsg{}
	}
}

func (a *App) saveConfig() tea.Cmd {
	cfg := *a.state.config
	path := a.state.configPath
	return func() tea.Msg {
		if err := cfg.Save(path); err != nil {
			return configSaveErrorMsg{err}
		}
		return configSavedMsg{}
	}
}

func (a *App) View() string {
	if a.quitting {
		return ""
	}

	switch a.view {
	case viewIdle:
		return a.renderIdle()
	case viewSetup:
		return a.renderSetup()
	case viewLoading:
		return a.renderLoading()
	case viewDisplaying:
		return a.renderDisplaying()
	case viewError:
		return a.renderError()
	case viewSettings:
		return a.renderSettings()
	case viewPersonas:
		return a.renderPersonas()
	case viewHelp:
		return a.renderHelp()
	default:
		return a.renderIdle()
	}
}
