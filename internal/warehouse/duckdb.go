package warehouse

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"
	_ "github.com/duckdb/duckdb-go/v2"
)

// DuckDB is a local analytical engine over exported parquet files.
type DuckDB struct {
	db *sql.DB
}

// OpenDuckDB opens a database file, or an in-memory one when path is "".
func OpenDuckDB(path string) (*DuckDB, error) {
	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, errors.Wrap(err, "open duckdb")
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "ping duckdb")
	}
	return &DuckDB{db: db}, nil
}

func (d *DuckDB) Close() error { return d.db.Close() }

// RegisterParquet exposes a parquet file (or glob) as a view.
func (d *DuckDB) RegisterParquet(ctx context.Context, view, path string) error {
	q := fmt.Sprintf(`CREATE OR REPLACE VIEW %q AS SELECT * FROM read_parquet('%s')`,
		view, strings.ReplaceAll(path, "'", "''"))
	if _, err := d.db.ExecContext(ctx, q); err != nil {
		return errors.Wrapf(err, "register %s", path)
	}
	return nil
}

// RegisterCSV exposes a CSV file as a view.
func (d *DuckDB) RegisterCSV(ctx context.Context, view, path string) error {
	q := fmt.Sprintf(`CREATE OR REPLACE VIEW %q AS SELECT * FROM read_csv_auto('%s', header=true)`,
		view, strings.ReplaceAll(path, "'", "''"))
	if _, err := d.db.ExecContext(ctx, q); err != nil {
		return errors.Wrapf(err, "register %s", path)
	}
	return nil
}

// Query returns the column labels and rows of q.
func (d *DuckDB) Query(ctx context.Context, q string, args ...any) ([]string, [][]any, error) {
	rows, err := d.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, nil, errors.Wrap(err, "duckdb query")
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, nil, errors.Wrap(err, "columns")
	}
	var out [][]any
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, nil, errors.Wrap(err, "scan")
		}
		out = append(out, vals)
	}
	return cols, out, errors.Wrap(rows.Err(), "iterate rows")
}
