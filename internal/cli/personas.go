package cli

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

// NewPersonasCommand creates the personas command.
func NewPersonasCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "personas",
		Short: "List available personas",
		Long: `List built-in personas and those found in the persona directory
(~/.config/narrator/personas/*.md). Select one with --persona or
persona_name in the config file.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e := mustEnv(cmd)
			out := cmd.OutOrStdout()

			t := table.NewWriter()
			t.SetOutputMirror(out)
			t.SetStyle(table.StyleLight)
			t.AppendHeader(table.Row{"", "Name", "Description", "Source"})
			for _, p := range e.personas.List() {
				mark := ""
				if p.Name == e.cfg.PersonaName && e.cfg.Persona == "" {
					mark = "*"
				}
				src := "built-in"
				if p.Path != "" {
					src = p.Path
				}
				t.AppendRow(table.Row{mark, p.Name, p.Description, src})
			}
			t.Render()

			if e.cfg.Persona != "" {
				_, _ = fmt.Fprintln(out, "Inline persona text from the config overrides the library.")
			}
			return nil
		},
	}
}
