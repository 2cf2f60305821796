// Package markup renders the small markdown subset used in narrative
// timelines: "### " headings, **bold** spans and line breaks. Anything else is
// left as literal text.
package markup

import (
	"html"
	"regexp"
	"strings"
	"unicode"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
)

var (
	headingPattern = regexp.MustCompile(`(?m)^### (.*?)\n`)
	boldPattern    = regexp.MustCompile(`\*\*(.*?)\*\*`)
)

// Renderer applies the three substitutions in a fixed order: headings, then
// bold spans, then remaining newlines.
type Renderer struct {
	Escape  func(string) string
	Heading func(string) string
	Bold    func(string) string
	Break   string
}

// HTML returns a renderer producing <h3>, <strong> and <br> markup. Source
// text is HTML-escaped before substitution.
func HTML() *Renderer {
	return &Renderer{
		Escape:  html.EscapeString,
		Heading: func(s string) string { return "<h3>" + s + "</h3>" },
		Bold:    func(s string) string { return "<strong>" + s + "</strong>" },
		Break:   "<br>",
	}
}

// Terminal returns a renderer that styles headings and bold spans for a
// terminal and keeps newlines. Escape sequences in the source are removed.
func Terminal(heading, bold lipgloss.Style) *Renderer {
	return &Renderer{
		Escape:  Sanitize,
		Heading: func(s string) string { return heading.Render(s) + "\n" },
		Bold:    func(s string) string { return bold.Render(s) },
		Break:   "\n",
	}
}

// Sanitize removes terminal escape sequences and every control character
// except newline, so model text cannot drive the terminal.
func Sanitize(s string) string {
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = ansi.Strip(line)
	}
	return strings.Map(func(r rune) rune {
		if r == '\n' {
			return r
		}
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, strings.Join(lines, "\n"))
}

// Render converts timeline text to markup.
func (r *Renderer) Render(text string) string {
	if r.Escape != nil {
		text = r.Escape(text)
	}
	text = replaceSubmatch(headingPattern, text, r.Heading)
	text = replaceSubmatch(boldPattern, text, r.Bold)
	if r.Break != "\n" {
		text = strings.ReplaceAll(text, "\n", r.Break)
	}
	return text
}

// replaceSubmatch replaces each match of re with fn applied to its first group.
func replaceSubmatch(re *regexp.Regexp, s string, fn func(string) string) string {
	matches := re.FindAllStringSubmatchIndex(s, -1)
	if len(matches) == 0 {
		return s
	}

	var b strings.Builder
	last := 0
	for _, m := range matches {
		b.WriteString(s[last:m[0]])
		b.WriteString(fn(s[m[2]:m[3]]))
		last = m[1]
	}
	b.WriteString(s[last:])
	return b.String()
}
