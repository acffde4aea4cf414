package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/tyler180/allstar-rosters/internal/export"
	"github.com/tyler180/allstar-rosters/internal/frame"
)

// Postgres mirrors master tables into a relational database.
type Postgres struct {
	db *sqlx.DB
}

func NewPostgres(db *sqlx.DB) *Postgres {
	return &Postgres{db: db}
}

// OpenPostgres connects with a postgres:// URL.
func OpenPostgres(ctx context.Context, url string) (*Postgres, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", url)
	if err != nil {
		return nil, errors.Wrap(err, "connect postgres")
	}
	return NewPostgres(db), nil
}

func (p *Postgres) Close() error { return p.db.Close() }

var pgTypes = map[string]string{
	"bigint":  "BIGINT",
	"double":  "DOUBLE PRECISION",
	"boolean": "BOOLEAN",
	"date":    "DATE",
	"string":  "TEXT",
}

// CreateTableSQL returns the DDL for a table holding cols. A bb_key column
// becomes the primary key.
func CreateTableSQL(table string, cols []export.Column) string {
	defs := make([]string, 0, len(cols)+1)
	hasKey := false
	for _, c := range cols {
		t, ok := pgTypes[c.Type]
		if !ok {
			t = "TEXT"
		}
		defs = append(defs, fmt.Sprintf("    %s %s", pq.QuoteIdentifier(c.Name), t))
		if c.Name == "bb_key" {
			hasKey = true
		}
	}
	if hasKey {
		defs = append(defs, "    PRIMARY KEY (bb_key)")
	}
	return fmt.Sprintf("CREATE TABLE %s (\n%s\n)", pq.QuoteIdentifier(table), strings.Join(defs, ",\n"))
}

// Replace drops table, re-creates it for f's columns and bulk loads every
// row with COPY in one transaction.
func (p *Postgres) Replace(ctx context.Context, table string, f *frame.Frame) (err error) {
	cols := export.Columns(f)
	tx, err := p.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin tx for table replace")
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, "DROP TABLE IF EXISTS "+pq.QuoteIdentifier(table)); err != nil {
		return errors.Wrapf(err, "drop %s", table)
	}
	if _, err := tx.ExecContext(ctx, CreateTableSQL(table, cols)); err != nil {
		return errors.Wrapf(err, "create %s", table)
	}

	names := f.Columns()
	stmt, err := tx.PrepareContext(ctx, pq.CopyIn(table, names...))
	if err != nil {
		return errors.Wrap(err, "prepare copy")
	}
	for i := 0; i < f.Len(); i++ {
		r := f.Row(i)
		args := make([]any, len(names))
		for j, c := range names {
			args[j] = r.Get(c)
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			_ = stmt.Close()
			return errors.Wrapf(err, "copy row %d", i)
		}
	}
	if _, err := stmt.ExecContext(ctx); err != nil {
		_ = stmt.Close()
		return errors.Wrap(err, "flush copy")
	}
	if err := stmt.Close(); err != nil {
		return errors.Wrap(err, "close copy")
	}
	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, "commit table replace")
	}
	return nil
}

// CountRows returns the row count of table.
func (p *Postgres) CountRows(ctx context.Context, table string) (int64, error) {
	var n int64
	if err := p.db.GetContext(ctx, &n, "SELECT COUNT(*) FROM "+pq.QuoteIdentifier(table)); err != nil {
		return 0, errors.Wrapf(err, "count %s", table)
	}
	return n, nil
}
