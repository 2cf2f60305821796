package cli

import (
	"context"
	"errors"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sant0-9/narrator/internal/config"
	"github.com/sant0-9/narrator/internal/source"
	"github.com/sant0-9/narrator/internal/tui"
)

// NewTUICommand creates the tui command. The root command runs the same thing.
func NewTUICommand() *cobra.Command {
	return &cobra.Command{
		Use:   "tui",
		Short: "Open the interactive terminal UI",
		Long: `Open the full-screen terminal UI. On first run it walks through model
selection and API key setup, then shows the loaded rows and generates a
narrative on demand.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runTUI(cmd)
		},
	}
}

func runTUI(cmd *cobra.Command) error {
	e := mustEnv(cmd)
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	// With no source configured the UI still opens so setup can run.
	table, err := loadTable(ctx, e.cfg)
	if err != nil {
		if !errors.Is(err, source.ErrNoQuery) {
			return err
		}
		e.logger.Info("starting without rows", zap.Error(err))
		table = nil
	}

	ctrl, err := newController(e, tui.TimelineRenderer(), table)
	if err != nil {
		return err
	}

	label := ""
	if table != nil {
		label = sourceLabel(e.cfg.Source)
	}

	app := tui.NewApp(tui.Options{
		Context:     ctx,
		Config:      e.cfg,
		ConfigPath:  e.cfgPath,
		Controller:  ctrl,
		Personas:    e.personas,
		Table:       table,
		SourceLabel: label,
		NewClient:   newClient,
		Logger:      e.logger,
	})
	defer app.Close()

	p := tea.NewProgram(app, tea.WithAltScreen(), tea.WithContext(ctx))

	if e.cfgPath != "" && config.Exists(e.cfgPath) {
		go func() {
			err := config.Watch(ctx, e.cfgPath, e.logger, func(cfg *config.Config) {
				p.Send(tui.ConfigChangedMsg{Config: cfg})
			})
			if err != nil {
				e.logger.Warn("config watch stopped", zap.Error(err))
			}
		}()
	}

	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("terminal UI failed: %w", err)
	}
	cancel()
	ctrl.Wait()
	return nil
}
