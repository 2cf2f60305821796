// Package source loads the rows a narrative is generated from: a SQL query
// against one of the supported database drivers, or a CSV file.
package source

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/sant0-9/narrator/internal/config"
	"github.com/sant0-9/narrator/internal/pipeline"

	// database drivers selectable through source.driver.
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/marcboeker/go-duckdb"
	_ "modernc.org/sqlite"
)

// ErrNoQuery is returned when a SQL driver is configured without a query.
var ErrNoQuery = errors.New("no query configured")

// Table is a loaded result set in the shape the encoder consumes.
type Table struct {
	Fields []pipeline.FieldMeta
	Rows   []pipeline.Row
}

// Len returns the number of rows.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// Open opens a database handle for driver. The csv driver has no handle.
func Open(driver, dsn string) (*sql.DB, error) {
	name, err := sqlDriverName(driver)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open(name, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", driver, err)
	}
	return db, nil
}

func sqlDriverName(driver string) (string, error) {
	switch driver {
	case "sqlite", "":
		return "sqlite", nil
	case "duckdb":
		return "duckdb", nil
	case "pgx", "postgres":
		return "pgx", nil
	default:
		return "", fmt.Errorf("unsupported sql driver %q", driver)
	}
}

// Query runs query against db and converts the result set.
func Query(ctx context.Context, db *sql.DB, query string, labels map[string]string) (*Table, error) {
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer func() { _ = rows.Close() }()

	return FromRows(rows, labels)
}

// FromRows converts a result set. Field order follows column order.
func FromRows(rows *sql.Rows, labels map[string]string) (*Table, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	names := UniqueNames(cols)
	t := &Table{Fields: Fields(names, labels)}
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}

		row := make(pipeline.Row, len(names))
		for i, name := range names {
			row[name] = values[i]
		}
		t.Rows = append(t.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return t, nil
}

// UniqueNames returns cols with repeated names suffixed "_2", "_3", ... so
// every column keeps its own values. A suffix never collides with another
// column's original name.
func UniqueNames(cols []string) []string {
	taken := make(map[string]bool, len(cols))
	for _, col := range cols {
		taken[col] = true
	}

	seen := make(map[string]bool, len(cols))
	names := make([]string, len(cols))
	for i, col := range cols {
		name := col
		if seen[name] {
			for n := 2; ; n++ {
				name = fmt.Sprintf("%s_%d", col, n)
				if !taken[name] && !seen[name] {
					break
				}
			}
		}
		seen[name] = true
		names[i] = name
	}
	return names
}

// Fields builds field metadata for column names. A label override wins over
// the derived label.
func Fields(cols []string, labels map[string]string) []pipeline.FieldMeta {
	fields := make([]pipeline.FieldMeta, len(cols))
	for i, col := range cols {
		label, ok := labels[col]
		if !ok || label == "" {
			label = Label(col)
		}
		fields[i] = pipeline.FieldMeta{Name: col, DisplayLabel: label}
	}
	return fields
}

// Label derives a display label from a column name: "player_id" -> "Player Id".
func Label(col string) string {
	s := strings.TrimSpace(strings.ReplaceAll(col, "_", " "))
	if s == "" {
		return col
	}
	return cases.Title(language.English).String(s)
}

// Load reads the rows described by cfg.
func Load(ctx context.Context, cfg config.SourceConfig) (*Table, error) {
	if cfg.Driver == "csv" {
		if cfg.File == "" {
			return nil, errors.New("csv source requires a file")
		}
		f, err := os.Open(cfg.File)
		if err != nil {
			return nil, fmt.Errorf("failed to open csv file: %w", err)
		}
		defer func() { _ = f.Close() }()
		return ReadCSV(f, cfg.Labels)
	}

	if strings.TrimSpace(cfg.Query) == "" {
		return nil, ErrNoQuery
	}

	db, err := Open(cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, err
	}
	defer func() { _ = db.Close() }()

	return Query(ctx, db, cfg.Query, cfg.Labels)
}
