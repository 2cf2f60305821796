package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/sant0-9/narrator/internal/config"
	"github.com/sant0-9/narrator/internal/llm"
)

const pingTimeout = 15 * time.Second

// Check statuses.
const (
	statusPass = "pass"
	statusWarn = "warn"
	statusFail = "error"
)

// Check is one doctor result.
type Check struct {
	Name   string `json:"name"`
	Status string `json:"status"`
	Detail string `json:"detail"`
}

// errChecksFailed is returned when at least one check reports an error.
var errChecksFailed = errors.New("one or more checks failed")

// NewDoctorCommand creates the doctor command.
func NewDoctorCommand() *cobra.Command {
	var (
		format  string
		offline bool
	)

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check configuration, data source and API access",
		Long: `Run a series of checks that a generation depends on:
- config file and values
- API key presence (the key itself is never printed)
- model and persona selection
- row source
- a live request to the model endpoint (skipped with --offline)`,
		Example: `  # Run all checks
  narrator doctor

  # Skip the network check
  narrator doctor --offline --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e := mustEnv(cmd)
			checks := runChecks(cmd.Context(), e, offline)

			var err error
			if format == formatJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				err = enc.Encode(checks)
			} else {
				renderChecks(cmd, checks)
			}
			if err != nil {
				return err
			}

			for _, c := range checks {
				if c.Status == statusFail {
					return errChecksFailed
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", formatText, "Output format: text, json")
	cmd.Flags().BoolVar(&offline, "offline", false, "Skip the network check")

	return cmd
}

func runChecks(ctx context.Context, e *env, offline bool) []Check {
	cfg := e.cfg
	var checks []Check

	if e.cfgUsed != "" {
		checks = append(checks, Check{"Config file", statusPass, e.cfgUsed})
	} else {
		checks = append(checks, Check{"Config file", statusWarn, "none found, run `narrator config init`"})
	}

	keySet := cfg.APIKey.IsSet()
	if keySet {
		checks = append(checks, Check{"API key", statusPass, cfg.APIKey.String()})
	} else {
		checks = append(checks, Check{"API key", statusFail, "not set (api_key, NARRATOR_API_KEY or GEMINI_API_KEY)"})
	}

	model := cfg.Generation().ModelName
	if m := config.GetModel(model); m != nil {
		checks = append(checks, Check{"Model", statusPass, m.Name})
	} else {
		checks = append(checks, Check{"Model", statusWarn, model + " is not a known model"})
	}

	switch {
	case cfg.Persona != "":
		checks = append(checks, Check{"Persona", statusPass, "inline persona text"})
	case e.personas.Get(cfg.PersonaName) != nil:
		checks = append(checks, Check{"Persona", statusPass, cfg.PersonaName})
	case cfg.PersonaName == "":
		checks = append(checks, Check{"Persona", statusPass, "default"})
	default:
		checks = append(checks, Check{"Persona", statusWarn, fmt.Sprintf("%q not found, the default persona is used", cfg.PersonaName)})
	}
	for _, err := range e.personas.Skipped() {
		checks = append(checks, Check{"Persona file", statusWarn, err.Error()})
	}

	t, err := loadTable(ctx, cfg)
	switch {
	case err != nil:
		checks = append(checks, Check{"Data source", statusFail, err.Error()})
	case t.Len() == 0:
		checks = append(checks, Check{"Data source", statusWarn, sourceLabel(cfg.Source) + " returned no rows"})
	default:
		checks = append(checks, Check{"Data source", statusPass,
			fmt.Sprintf("%s rows from %s", humanize.Comma(int64(t.Len())), sourceLabel(cfg.Source))})
	}

	switch {
	case offline:
		checks = append(checks, Check{"Model endpoint", statusWarn, "skipped (--offline)"})
	case !keySet:
		checks = append(checks, Check{"Model endpoint", statusWarn, "skipped, no API key"})
	default:
		checks = append(checks, pingCheck(ctx, cfg, model))
	}

	return checks
}

func pingCheck(ctx context.Context, cfg *config.Config, model string) Check {
	client, err := newClient(cfg)
	if err != nil {
		return Check{"Model endpoint", statusFail, err.Error()}
	}

	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	start := time.Now()
	if err := client.Ping(ctx, cfg.APIKey.Reveal(), model); err != nil {
		return Check{"Model endpoint", statusFail, llm.Redact(err.Error(), cfg.APIKey.Reveal())}
	}
	return Check{"Model endpoint", statusPass,
		fmt.Sprintf("%s transport, %s", client.Name(), time.Since(start).Round(time.Millisecond))}
}

func renderChecks(cmd *cobra.Command, checks []Check) {
	t := table.NewWriter()
	t.SetOutputMirror(cmd.OutOrStdout())
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Check", "Status", "Detail"})
	for _, c := range checks {
		t.AppendRow(table.Row{c.Name, statusMark(c.Status), c.Detail})
	}
	t.Render()
}

func statusMark(status string) string {
	switch status {
	case statusPass:
		return "✓ ok"
	case statusWarn:
		return "! warn"
	default:
		return "✗ error"
	}
}
