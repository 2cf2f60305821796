// Package cli provides the command-line interface for narrator.
package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sant0-9/narrator/internal/config"
	"github.com/sant0-9/narrator/internal/logging"
	"github.com/sant0-9/narrator/internal/persona"
)

// Version information (set at build time).
var (
	Version   = "0.1.0"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

// envKey is used to store the loaded environment in the command context.
type envKey struct{}

// env is what PersistentPreRunE hands to every command.
type env struct {
	cfg      *config.Config
	cfgPath  string
	cfgUsed  string
	verbose  bool
	logger   *zap.Logger
	personas *persona.Library
}

// NewRootCmd creates and returns the root command. Running it without a
// subcommand opens the terminal UI.
func NewRootCmd() *cobra.Command {
	var (
		cfgFile string
		verbose bool
	)

	rootCmd := &cobra.Command{
		Use:   "narrator",
		Short: "Narrator - turn tabular data into a written story",
		Long: `Narrator sends a table of rows to a generative language model and
presents the reply as an overview, a set of metric cards and a timeline.

Rows come from a SQL query (sqlite, duckdb, postgres) or a CSV file. The
story can be read in the terminal UI, printed once, or served as a small
web dashboard.`,
		Version: Version,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if skipsConfig(cmd) {
				return nil
			}

			cfg, used, err := config.Load(cfgFile, cmd.Flags())
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("file") && !cmd.Flags().Changed("driver") {
				cfg.Source.Driver = "csv"
			}

			// A terminal UI owns the screen, so its logs go to a file.
			var logger *zap.Logger
			if ownsTerminal(cmd) {
				logger = logging.ForTerminalUI(cfg.Log, verbose)
			} else {
				logger, err = logging.New(cfg.Log, verbose)
				if err != nil {
					return err
				}
			}

			path := cfgFile
			if path == "" {
				if p, err := config.ConfigPath(); err == nil {
					path = p
				}
			}

			e := &env{
				cfg:      cfg,
				cfgPath:  path,
				cfgUsed:  used,
				verbose:  verbose,
				logger:   logger,
				personas: loadPersonas(logger),
			}
			cmd.SetContext(context.WithValue(cmd.Context(), envKey{}, e))

			if verbose && used != "" && !ownsTerminal(cmd) {
				_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "Using config file: %s\n", used)
			}
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, _ []string) {
			if e := getEnv(cmd.Context()); e != nil {
				_ = e.logger.Sync()
			}
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runTUI(cmd)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.SetVersionTemplate(`{{.Name}} {{.Version}}
`)

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (default: ~/.config/narrator/config.yaml)")
	pf.BoolVarP(&verbose, "verbose", "v", false, "Verbose output")
	pf.String("api-key", "", "API key for the generative language endpoint")
	pf.String("model", "", "Model identifier")
	pf.String("persona", "", "Name of a persona from the persona library")
	pf.String("transport", "", "Client transport (rest|sdk)")
	pf.String("driver", "", "Row source driver (sqlite|duckdb|pgx|csv)")
	pf.String("dsn", "", "Database connection string")
	pf.String("query", "", "SQL query returning the rows to narrate")
	pf.String("file", "", "CSV file to narrate (implies --driver csv)")
	pf.Int("max-rows", 0, "Maximum number of rows sent to the model")
	pf.String("log-file", "", "Write logs to this file")

	_ = rootCmd.RegisterFlagCompletionFunc("driver", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return config.Drivers, cobra.ShellCompDirectiveNoFileComp
	})
	_ = rootCmd.RegisterFlagCompletionFunc("transport", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{config.TransportREST, config.TransportSDK}, cobra.ShellCompDirectiveNoFileComp
	})
	_ = rootCmd.RegisterFlagCompletionFunc("model", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		ids := make([]string, 0, len(config.Models))
		for _, m := range config.Models {
			ids = append(ids, m.ID)
		}
		return ids, cobra.ShellCompDirectiveNoFileComp
	})

	rootCmd.AddCommand(NewVersionCommand(Version))
	rootCmd.AddCommand(NewTUICommand())
	rootCmd.AddCommand(NewStoryCommand())
	rootCmd.AddCommand(NewPreviewCommand())
	rootCmd.AddCommand(NewServeCommand())
	rootCmd.AddCommand(NewConfigCommand())
	rootCmd.AddCommand(NewDoctorCommand())
	rootCmd.AddCommand(NewPersonasCommand())

	return rootCmd
}

// Execute runs the root command.
func Execute() error {
	rootCmd := NewRootCmd()
	if err := rootCmd.Execute(); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	return nil
}

func skipsConfig(cmd *cobra.Command) bool {
	switch cmd.Name() {
	case "help", "completion", "__complete", "version", "init":
		return true
	}
	return false
}

func ownsTerminal(cmd *cobra.Command) bool {
	return !cmd.HasParent() || cmd.Name() == "tui"
}

func getEnv(ctx context.Context) *env {
	if ctx == nil {
		return nil
	}
	if e, ok := ctx.Value(envKey{}).(*env); ok {
		return e
	}
	return nil
}

// mustEnv returns the loaded environment or a default one for commands run
// without PersistentPreRunE (tests that call RunE directly).
func mustEnv(cmd *cobra.Command) *env {
	if e := getEnv(cmd.Context()); e != nil {
		return e
	}
	return &env{
		cfg:      config.DefaultConfig(),
		logger:   zap.NewNop(),
		personas: loadPersonas(zap.NewNop()),
	}
}
