package cli

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/sant0-9/narrator/internal/config"
	"github.com/sant0-9/narrator/internal/llm"
	"github.com/sant0-9/narrator/internal/markup"
	"github.com/sant0-9/narrator/internal/persona"
	"github.com/sant0-9/narrator/internal/session"
	"github.com/sant0-9/narrator/internal/source"
)

// newClient builds the configured transport. Tests replace it.
var newClient = llm.New

func loadPersonas(logger *zap.Logger) *persona.Library {
	dir, err := persona.DefaultDir()
	if err != nil {
		logger.Debug("no persona directory", zap.Error(err))
		dir = ""
	}
	lib := persona.NewLibrary(dir)
	for _, err := range lib.Skipped() {
		logger.Warn("skipping persona file", zap.Error(err))
	}
	return lib
}

// loadTable reads the configured rows and explains the common misconfiguration.
func loadTable(ctx context.Context, cfg *config.Config) (*source.Table, error) {
	table, err := source.Load(ctx, cfg.Source)
	if errors.Is(err, source.ErrNoQuery) {
		return nil, fmt.Errorf("%w: set --query (or source.query) or pass --file with a CSV file", err)
	}
	if err != nil {
		return nil, err
	}
	return table, nil
}

// newController wires a session for cfg and loads table into it.
func newController(e *env, renderer *markup.Renderer, table *source.Table) (*session.Controller, error) {
	client, err := newClient(e.cfg)
	if err != nil {
		return nil, err
	}
	ctrl := session.New(session.Options{
		Client:   client,
		Renderer: renderer,
		Personas: e.personas,
		Logger:   e.logger,
	})
	ctrl.SetConfig(e.cfg)
	if table != nil {
		ctrl.SetData(table.Fields, table.Rows)
	}
	return ctrl, nil
}

// applyConfig swaps a reloaded config into a running session.
func applyConfig(ctrl *session.Controller, logger *zap.Logger, cfg *config.Config) {
	client, err := newClient(cfg)
	if err != nil {
		logger.Warn("keeping previous client after config reload", zap.Error(err))
	} else {
		ctrl.SetClient(client)
	}
	ctrl.SetConfig(cfg)
}

// sourceLabel describes where the rows came from.
func sourceLabel(src config.SourceConfig) string {
	if src.Driver == "csv" {
		return filepath.Base(src.File)
	}
	q := strings.Join(strings.Fields(src.Query), " ")
	if len(q) > 48 {
		q = q[:45] + "..."
	}
	driver := src.Driver
	if driver == "" {
		driver = "sqlite"
	}
	return driver + ": " + q
}
