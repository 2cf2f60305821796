package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sant0-9/narrator/internal/config"
	"github.com/sant0-9/narrator/internal/server"
)

// NewServeCommand creates the serve command.
func NewServeCommand() *cobra.Command {
	var noWatch bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the narrative as a web dashboard",
		Long: `Start a web server that shows the loaded rows as a narrative dashboard.

Routes:
  GET  /           the dashboard
  POST /generate   start a generation (409 while one is running)
  GET  /api/view   the current session view as JSON
  GET  /healthz    liveness check

The config file is watched and reloaded unless --no-watch is set.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e := mustEnv(cmd)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			table, err := loadTable(ctx, e.cfg)
			if err != nil {
				return err
			}
			ctrl, err := newController(e, nil, table)
			if err != nil {
				return err
			}

			srv, err := server.New(server.Config{
				Controller:  ctrl,
				Addr:        e.cfg.Server.Addr,
				SourceLabel: sourceLabel(e.cfg.Source),
				ConfigPath:  e.cfgPath,
				Watch:       !noWatch && e.cfgPath != "" && config.Exists(e.cfgPath),
				OnConfig: func(cfg *config.Config) {
					applyConfig(ctrl, e.logger, cfg)
				},
				Logger: e.logger,
			})
			if err != nil {
				return err
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Serving %d rows on http://%s\n", table.Len(), displayAddr(e.cfg.Server.Addr))
			return srv.Serve(ctx)
		},
	}

	cmd.Flags().String("addr", "", "Listen address (default "+config.DefaultAddr+")")
	cmd.Flags().BoolVar(&noWatch, "no-watch", false, "Do not reload the config file on change")

	return cmd
}

func displayAddr(addr string) string {
	if addr == "" {
		addr = config.DefaultAddr
	}
	if addr[0] == ':' {
		return "localhost" + addr
	}
	return addr
}
