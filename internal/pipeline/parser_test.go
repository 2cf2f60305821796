package pipeline

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSuccess(t *testing.T) {
	raw := `{"overview":"x","metrics":[],"timeline":"### A\nB"}`

	out := Parse(raw)
	s, ok := out.(Success)
	require.True(t, ok, "got %T", out)

	want := NarrativeRecord{Overview: "x", Metrics: []Metric{}, Timeline: "### A\nB"}
	if diff := cmp.Diff(want, s.Record); diff != "" {
		t.Errorf("record mismatch (-want +got):\n%s", diff)
	}
}

func TestParseFenceStrippingIsIdempotent(t *testing.T) {
	inputs := []string{
		`{"overview":"o","metrics":[{"label":"Score","value":"10"}],"timeline":"t"}`,
		`{"overview":"only"}`,
		`{}`,
	}

	for _, in := range inputs {
		t.Run(in, func(t *testing.T) {
			plain := Parse(in)
			fenced := Parse("```json\n" + in + "\n```")
			bare := Parse("```\n" + in + "\n```")

			require.IsType(t, Success{}, plain)
			assert.Equal(t, plain, fenced)
			assert.Equal(t, plain, bare)
		})
	}
}

func TestParseErrorPreservesRawText(t *testing.T) {
	tests := []string{
		"not json",
		"```json\n{broken\n```",
		`["an","array"]`,
		"null",
		"",
	}

	for _, raw := range tests {
		t.Run(raw, func(t *testing.T) {
			out := Parse(raw)
			pe, ok := out.(ParseError)
			require.True(t, ok, "got %T", out)
			assert.Equal(t, raw, pe.RawText)
			assert.NotEmpty(t, pe.Message)
		})
	}
}

func TestParseDefaults(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want NarrativeRecord
	}{
		{
			name: "all missing",
			raw:  `{}`,
			want: NarrativeRecord{Overview: DefaultOverview, Metrics: []Metric{}, Timeline: DefaultTimeline},
		},
		{
			name: "nulls and empty strings",
			raw:  `{"overview":null,"metrics":null,"timeline":""}`,
			want: NarrativeRecord{Overview: DefaultOverview, Metrics: []Metric{}, Timeline: DefaultTimeline},
		},
		{
			name: "metrics not an array",
			raw:  `{"overview":"o","metrics":{"label":"x"},"timeline":"t"}`,
			want: NarrativeRecord{Overview: "o", Metrics: []Metric{}, Timeline: "t"},
		},
		{
			name: "unknown fields ignored",
			raw:  `{"overview":"o","mood":"tense","timeline":"t"}`,
			want: NarrativeRecord{Overview: "o", Metrics: []Metric{}, Timeline: "t"},
		},
		{
			name: "metric shapes tolerated",
			raw:  `{"metrics":[{"label":"Kills","value":12},"stray",{"label":"Ratio","value":0.5},{"value":true}]}`,
			want: NarrativeRecord{
				Overview: DefaultOverview,
				Metrics: []Metric{
					{Label: "Kills", Value: "12"},
					{Label: "Ratio", Value: "0.5"},
					{Label: "", Value: "true"},
				},
				Timeline: DefaultTimeline,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := Parse(tt.raw)
			s, ok := out.(Success)
			require.True(t, ok, "got %T", out)
			if diff := cmp.Diff(tt.want, s.Record); diff != "" {
				t.Errorf("record mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestStripFences(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"```json\n{}\n```", "{}"},
		{"  {}  ", "{}"},
		{"```{}```", "{}"},
		{"text ```json mid``` end", "text  mid end"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, StripFences(tt.in))
	}
}
