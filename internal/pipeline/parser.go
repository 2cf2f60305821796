package pipeline

import (
	"bytes"
	"encoding/json"
	"strings"
)

const (
	DefaultOverview = "No summary provided."
	DefaultTimeline = "No timeline provided."
)

// StripFences removes every ```json and ``` marker from model text and trims
// the result.
func StripFences(raw string) string {
	s := strings.ReplaceAll(raw, "```json", "")
	s = strings.ReplaceAll(s, "```", "")
	return strings.TrimSpace(s)
}

// Parse turns raw model text into a Success or a ParseError. Unknown fields
// are ignored and missing ones fall back to placeholder text.
func Parse(raw string) Outcome {
	content := StripFences(raw)

	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(content), &fields); err != nil {
		return ParseError{Message: err.Error(), RawText: raw}
	}
	if fields == nil {
		return ParseError{Message: "expected a JSON object, got null", RawText: raw}
	}

	record := NarrativeRecord{
		Overview: textOr(fields["overview"], DefaultOverview),
		Metrics:  parseMetrics(fields["metrics"]),
		Timeline: textOr(fields["timeline"], DefaultTimeline),
	}
	return Success{Record: record}
}

func parseMetrics(raw json.RawMessage) []Metric {
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return []Metric{}
	}

	metrics := make([]Metric, 0, len(items))
	for _, item := range items {
		var m map[string]json.RawMessage
		if err := json.Unmarshal(item, &m); err != nil || m == nil {
			continue
		}
		metrics = append(metrics, Metric{
			Label: scalarText(m["label"]),
			Value: scalarText(m["value"]),
		})
	}
	return metrics
}

// textOr returns the field as text, or fallback when it is absent, null or
// empty.
func textOr(raw json.RawMessage, fallback string) string {
	if s := scalarText(raw); s != "" {
		return s
	}
	return fallback
}

// scalarText renders a JSON value as display text: strings unquoted, other
// values as their compact JSON form, null and absent as "".
func scalarText(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return string(raw)
	}
	return buf.String()
}
