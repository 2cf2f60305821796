package pipeline

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var plain = FormatterFunc(func(v any) string { return fmt.Sprintf("%v", v) })

func makeRows(n int) []Row {
	rows := make([]Row, n)
	for i := range rows {
		rows[i] = Row{"id": i, "event": fmt.Sprintf("e%d", i), "zone": "north"}
	}
	return rows
}

var testFields = []FieldMeta{
	{Name: "id", DisplayLabel: "ID"},
	{Name: "event", DisplayLabel: "Event"},
	{Name: "zone", DisplayLabel: "Zone"},
}

func TestEncodeLineCounts(t *testing.T) {
	tests := []struct {
		rows          int
		wantLines     int
		wantTruncated bool
	}{
		{0, 1, false},
		{1, 2, false},
		{499, 500, false},
		{500, 501, false},
		{501, 501, true},
		{1204, 501, true},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d rows", tt.rows), func(t *testing.T) {
			p := Encode(testFields, makeRows(tt.rows), plain, DefaultMaxRows)

			assert.Equal(t, tt.wantLines, p.LineCount())
			assert.Equal(t, tt.wantLines, strings.Count(p.Text(), "\n"))
			assert.Equal(t, tt.wantTruncated, p.Truncated)
			assert.Equal(t, tt.rows, p.TotalRows)
		})
	}
}

func TestEncodeDefaultsMaxRows(t *testing.T) {
	p := Encode(testFields, makeRows(600), plain, 0)
	assert.Len(t, p.Lines, DefaultMaxRows)
	assert.True(t, p.Truncated)
}

func TestEncodeFormat(t *testing.T) {
	p := Encode(testFields, makeRows(2), plain, 10)

	assert.Equal(t, "ID, Event, Zone", p.Header)
	assert.Equal(t, "ID, Event, Zone\n0, e0, north\n1, e1, north\n", p.Text())
}

func TestEncodeFieldOrderPreserved(t *testing.T) {
	rows := makeRows(5)
	permuted := []FieldMeta{testFields[2], testFields[0], testFields[1]}

	a := Encode(testFields, rows, plain, 10)
	b := Encode(permuted, rows, plain, 10)

	require.Len(t, b.Lines, len(a.Lines))
	for i := range a.Lines {
		va := strings.Split(a.Lines[i], Delimiter)
		vb := strings.Split(b.Lines[i], Delimiter)
		assert.Equal(t, []string{va[2], va[0], va[1]}, vb)
	}
	assert.Equal(t, "Zone, ID, Event", b.Header)
}

func TestEncodeDoesNotEscape(t *testing.T) {
	fields := []FieldMeta{{Name: "msg", DisplayLabel: "Message"}}
	rows := []Row{{"msg": "a, b\nc"}}

	p := Encode(fields, rows, plain, 10)
	assert.Equal(t, "a, b\nc", p.Lines[0])
}

func TestEncodeMissingField(t *testing.T) {
	fields := []FieldMeta{{Name: "gone", DisplayLabel: "Gone"}}
	null := FormatterFunc(func(v any) string {
		if v == nil {
			return "NULL"
		}
		return fmt.Sprint(v)
	})

	p := Encode(fields, []Row{{}}, null, 10)
	assert.Equal(t, []string{"NULL"}, p.Lines)
}
