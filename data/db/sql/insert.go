package sql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	core "repokit/data/db"
	"repokit/data/db/dialect"
)

var (
	// ErrNoColumns INSERT 未指定列，或 UPDATE 没有任何赋值。
	ErrNoColumns = errors.New("sql: no columns")
	// ErrNoRows INSERT 没有任何行。
	ErrNoRows = errors.New("sql: no rows to insert")
)

type insertBuilder struct {
	db      core.IDatabase
	dialect dialect.Dialect

	table   string
	columns []string
	rows    [][]any
}

func (b *insertBuilder) Columns(cols ...string) IInsertBuilder {
	b.columns = cols
	return b
}

// Values 追加一行；空调用被忽略，列数不一致在 Build 时报错。
func (b *insertBuilder) Values(vals ...any) IInsertBuilder {
	if len(vals) > 0 {
		b.rows = append(b.rows, vals)
	}
	return b
}

func (b *insertBuilder) Build() (string, []any, error) {
	switch {
	case len(b.columns) == 0:
		return "", nil, ErrNoColumns
	case len(b.rows) == 0:
		return "", nil, ErrNoRows
	}
	table, err := quoteIdents(b.dialect, b.table)
	if err != nil {
		return "", nil, err
	}
	cols, err := quoteIdents(b.dialect, b.columns...)
	if err != nil {
		return "", nil, err
	}

	placeholder := "(?" + strings.Repeat(", ?", len(cols)-1) + ")"
	tuples := make([]string, len(b.rows))
	args := make([]any, 0, len(b.rows)*len(cols))
	for i, row := range b.rows {
		if len(row) != len(cols) {
			return "", nil, fmt.Errorf("sql: insert row %d has %d values for %d columns", i, len(row), len(cols))
		}
		tuples[i] = placeholder
		args = append(args, row...)
	}

	q := "INSERT INTO " + table[0] + " (" + strings.Join(cols, ", ") + ") VALUES " + strings.Join(tuples, ", ")
	return q, args, nil
}

func (b *insertBuilder) Exec(ctx context.Context) (sql.Result, error) {
	q, args, err := b.Build()
	if err != nil {
		return nil, err
	}
	return b.db.Exec(ctx, q, args...)
}
