package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"html/template"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/sant0-9/narrator/internal/markup"
	"github.com/sant0-9/narrator/internal/session"
)

const (
	formatAuto = "auto"
	formatText = "text"
	formatHTML = "html"
	formatJSON = "json"
)

var storyHTML = template.Must(template.New("story").Parse(`<section class="narrative">
<p class="overview">{{.Overview}}</p>
{{- if .Metrics}}
<ul class="metrics">
{{- range .Metrics}}
<li><strong>{{.Label}}</strong> {{.Value}}</li>
{{- end}}
</ul>
{{- end}}
<div class="timeline">{{.Timeline}}</div>
</section>
`))

// NewStoryCommand creates the story command.
func NewStoryCommand() *cobra.Command {
	var (
		format  string
		timeout time.Duration
	)

	cmd := &cobra.Command{
		Use:   "story",
		Short: "Generate one narrative and print it",
		Long: `Load the configured rows, generate a single narrative and print it.

Output formats:
  text  overview, metric table and timeline for reading in a terminal
  html  an HTML fragment with the timeline markup applied
  json  the full session view, including failure details

The default (auto) is text on a terminal and json otherwise. The command
exits non-zero when generation fails.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e := mustEnv(cmd)
			out := cmd.OutOrStdout()

			format = resolveFormat(format, out)
			var renderer *markup.Renderer
			switch format {
			case formatText:
				renderer = markup.Terminal(
					lipgloss.NewStyle().Bold(true).Underline(true),
					lipgloss.NewStyle().Bold(true),
				)
			case formatHTML, formatJSON:
				renderer = markup.HTML()
			default:
				return fmt.Errorf("unknown format %q (want text, html or json)", format)
			}

			ctx := cmd.Context()
			if timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, timeout)
				defer cancel()
			}

			table, err := loadTable(ctx, e.cfg)
			if err != nil {
				return err
			}
			ctrl, err := newController(e, renderer, table)
			if err != nil {
				return err
			}

			v, err := ctrl.Generate(ctx)
			if err != nil {
				return err
			}

			switch format {
			case formatJSON:
				if err := writeViewJSON(out, v); err != nil {
					return err
				}
			case formatHTML:
				if v.Failure == nil {
					if err := writeViewHTML(out, v); err != nil {
						return err
					}
				}
			default:
				if v.Failure == nil {
					writeViewText(out, v)
				}
			}

			if f := v.Failure; f != nil {
				if f.RawText != "" && e.verbose {
					_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "Raw model output:\n%s\n", f.RawText)
				}
				return fmt.Errorf("narrative generation failed: %s", f.Message)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", formatAuto, "Output format (auto|text|html|json)")
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "Give up after this long (0 waits for the transport timeout)")
	_ = cmd.RegisterFlagCompletionFunc("format", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{formatAuto, formatText, formatHTML, formatJSON}, cobra.ShellCompDirectiveNoFileComp
	})

	return cmd
}

// resolveFormat turns auto into text on a terminal and json elsewhere.
func resolveFormat(format string, w io.Writer) string {
	format = strings.ToLower(strings.TrimSpace(format))
	if format != "" && format != formatAuto {
		return format
	}
	if f, ok := w.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		return formatText
	}
	return formatJSON
}

func writeViewJSON(w io.Writer, v session.View) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeViewHTML(w io.Writer, v session.View) error {
	return storyHTML.Execute(w, struct {
		session.View
		Timeline template.HTML
	}{
		View:     v,
		Timeline: template.HTML(v.Timeline), //nolint:gosec // escaped by markup.HTML before tags are added
	})
}

func writeViewText(w io.Writer, v session.View) {
	heading := lipgloss.NewStyle().Bold(true)

	_, _ = fmt.Fprintln(w, heading.Render("OVERVIEW"))
	_, _ = fmt.Fprintln(w, markup.Sanitize(v.Overview))
	_, _ = fmt.Fprintln(w)

	if len(v.Metrics) > 0 {
		t := table.NewWriter()
		t.SetOutputMirror(w)
		t.SetStyle(table.StyleLight)
		t.AppendHeader(table.Row{"Metric", "Value"})
		for _, m := range v.Metrics {
			t.AppendRow(table.Row{markup.Sanitize(m.Label), markup.Sanitize(m.Value)})
		}
		t.Render()
		_, _ = fmt.Fprintln(w)
	}

	_, _ = fmt.Fprintln(w, heading.Render("TIMELINE"))
	_, _ = fmt.Fprintln(w, strings.TrimRight(v.Timeline, "\n"))

	if v.Truncated {
		_, _ = fmt.Fprintf(w, "\n(%d rows loaded, not all were sent to the model)\n", v.RowCount)
	}
}
