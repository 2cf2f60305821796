package source

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"

	"github.com/sant0-9/narrator/internal/pipeline"
)

// ReadCSV reads a CSV stream whose first record is the header. Cell values
// stay strings.
func ReadCSV(r io.Reader, labels map[string]string) (*Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, errors.New("csv input is empty")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read csv header: %w", err)
	}

	header = UniqueNames(header)
	t := &Table{Fields: Fields(header, labels)}
	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read csv record: %w", err)
		}

		row := make(pipeline.Row, len(header))
		for i, col := range header {
			if i < len(record) {
				row[col] = record[i]
			}
		}
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}
