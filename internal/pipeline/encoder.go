package pipeline

import (
	"strings"
)

// DefaultMaxRows is the row cap applied when encoding a payload.
const DefaultMaxRows = 500

// Delimiter separates header labels and cell values within a line.
const Delimiter = ", "

// FieldMeta describes one queried dimension.
type FieldMeta struct {
	Name         string
	DisplayLabel string
}

// Row maps a field name to its raw cell value.
type Row map[string]any

// CellFormatter renders a raw cell value as display text.
type CellFormatter interface {
	FormatCell(v any) string
}

// FormatterFunc adapts a function to CellFormatter.
type FormatterFunc func(v any) string

func (f FormatterFunc) FormatCell(v any) string { return f(v) }

// EncodedPayload is the bounded text block sent to the model.
type EncodedPayload struct {
	Header    string
	Lines     []string
	Truncated bool
	TotalRows int
}

// Text returns the header and data lines, each newline-terminated.
func (p EncodedPayload) Text() string {
	var b strings.Builder
	b.WriteString(p.Header)
	b.WriteString("\n")
	for _, line := range p.Lines {
		b.WriteString(line)
		b.WriteString("\n")
	}
	return b.String()
}

// LineCount returns the number of emitted lines including the header.
func (p EncodedPayload) LineCount() int {
	return len(p.Lines) + 1
}

// Encode serializes rows into a delimited payload of at most maxRows data lines.
// Cell text is not escaped: embedded delimiters or newlines pass through as-is.
func Encode(fields []FieldMeta, rows []Row, format CellFormatter, maxRows int) EncodedPayload {
	if maxRows <= 0 {
		maxRows = DefaultMaxRows
	}

	labels := make([]string, len(fields))
	for i, f := range fields {
		labels[i] = f.DisplayLabel
	}

	n := min(len(rows), maxRows)
	lines := make([]string, 0, n)
	values := make([]string, len(fields))
	for _, row := range rows[:n] {
		for i, f := range fields {
			values[i] = format.FormatCell(row[f.Name])
		}
		lines = append(lines, strings.Join(values, Delimiter))
	}

	return EncodedPayload{
		Header:    strings.Join(labels, Delimiter),
		Lines:     lines,
		Truncated: len(rows) > maxRows,
		TotalRows: len(rows),
	}
}
