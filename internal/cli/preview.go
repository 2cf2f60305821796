package cli

import (
	"fmt"
	"io"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/sant0-9/narrator/internal/config"
	"github.com/sant0-9/narrator/internal/pipeline"
	"github.com/sant0-9/narrator/internal/prompts"
	"github.com/sant0-9/narrator/internal/source"
)

// NewPreviewCommand creates the preview command.
func NewPreviewCommand() *cobra.Command {
	var (
		limit   int
		payload bool
		prompt  bool
	)

	cmd := &cobra.Command{
		Use:   "preview",
		Short: "Show the rows and payload a narrative would be built from",
		Long: `Load the configured rows without calling the model. Prints the first rows
as a table followed by payload statistics. --payload prints the exact data
block sent to the model; --prompt prints the complete prompt.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e := mustEnv(cmd)
			out := cmd.OutOrStdout()

			t, err := loadTable(cmd.Context(), e.cfg)
			if err != nil {
				return err
			}

			p := pipeline.Encode(t.Fields, t.Rows, source.DisplayFormatter{}, e.cfg.MaxRows)
			persona := e.personas.Resolve(e.cfg.Persona, e.cfg.PersonaName)
			full := prompts.BuildNarrativePrompt(persona, p.Text())

			switch {
			case prompt:
				_, _ = fmt.Fprint(out, full)
				return nil
			case payload:
				_, _ = fmt.Fprint(out, p.Text())
				return nil
			}

			renderRows(out, t, limit)

			model := e.cfg.Generation().ModelName
			tokens := prompts.EstimateTokens(full)
			_, _ = fmt.Fprintln(out)
			_, _ = fmt.Fprintf(out, "Source:    %s\n", sourceLabel(e.cfg.Source))
			_, _ = fmt.Fprintf(out, "Rows:      %s loaded, %s sent\n", humanize.Comma(int64(t.Len())), humanize.Comma(int64(len(p.Lines))))
			_, _ = fmt.Fprintf(out, "Payload:   %s\n", humanize.Bytes(uint64(len(p.Text()))))
			_, _ = fmt.Fprintf(out, "Prompt:    ~%s tokens of %s (%s)\n",
				humanize.Comma(int64(tokens)), humanize.Comma(int64(config.ContextLimit(model))), model)
			if p.Truncated {
				_, _ = fmt.Fprintf(out, "Truncated: only the first %d rows are sent (max_rows)\n", len(p.Lines))
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "Number of rows to show")
	cmd.Flags().BoolVar(&payload, "payload", false, "Print the encoded data block")
	cmd.Flags().BoolVar(&prompt, "prompt", false, "Print the full prompt")

	return cmd
}

func renderRows(w io.Writer, t *source.Table, limit int) {
	if t.Len() == 0 {
		_, _ = fmt.Fprintln(w, "(0 rows)")
		return
	}

	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.SetStyle(table.StyleLight)

	header := make(table.Row, len(t.Fields))
	for i, f := range t.Fields {
		header[i] = f.DisplayLabel
	}
	tw.AppendHeader(header)

	format := source.DisplayFormatter{}
	n := min(limit, t.Len())
	if limit <= 0 {
		n = t.Len()
	}
	for _, row := range t.Rows[:n] {
		r := make(table.Row, len(t.Fields))
		for i, f := range t.Fields {
			r[i] = format.FormatCell(row[f.Name])
		}
		tw.AppendRow(r)
	}
	if n < t.Len() {
		tw.AppendFooter(table.Row{fmt.Sprintf("%s more rows", humanize.Comma(int64(t.Len()-n)))})
	}
	tw.Render()
}
