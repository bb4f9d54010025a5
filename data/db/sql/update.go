package sql

import (
	"context"
	"database/sql"
	"sort"
	"strings"

	core "repokit/data/db"
	"repokit/data/db/dialect"
)

type assignment struct {
	column string
	expr   string
	args   []any
}

type updateBuilder struct {
	db      core.IDatabase
	dialect dialect.Dialect

	table string
	sets  []assignment
	where conditions
}

func (b *updateBuilder) Set(col string, val any) IUpdateBuilder {
	if col != "" {
		b.sets = append(b.sets, assignment{column: col, args: []any{val}})
	}
	return b
}

// SetMap 按列名排序写入，保证生成的 SQL 稳定。
func (b *updateBuilder) SetMap(values map[string]any) IUpdateBuilder {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		b.Set(k, values[k])
	}
	return b
}

func (b *updateBuilder) SetExpr(expr string, args ...any) IUpdateBuilder {
	if expr != "" {
		b.sets = append(b.sets, assignment{expr: expr, args: args})
	}
	return b
}

func (b *updateBuilder) Where(cond string, args ...any) IUpdateBuilder {
	b.where.add(cond, args)
	return b
}

func (b *updateBuilder) Build() (string, []any, error) {
	if len(b.sets) == 0 {
		return "", nil, ErrNoColumns
	}
	table, err := quoteIdents(b.dialect, b.table)
	if err != nil {
		return "", nil, err
	}

	parts := make([]string, len(b.sets))
	var args []any
	for i, s := range b.sets {
		if s.expr != "" {
			parts[i] = s.expr
		} else {
			col, err := quoteIdents(b.dialect, s.column)
			if err != nil {
				return "", nil, err
			}
			parts[i] = col[0] + " = ?"
		}
		args = append(args, s.args...)
	}

	var sb strings.Builder
	sb.WriteString("UPDATE ")
	sb.WriteString(table[0])
	sb.WriteString(" SET ")
	sb.WriteString(strings.Join(parts, ", "))
	args = b.where.writeTo(&sb, "WHERE", args)
	return sb.String(), args, nil
}

func (b *updateBuilder) Exec(ctx context.Context) (sql.Result, error) {
	q, args, err := b.Build()
	if err != nil {
		return nil, err
	}
	return b.db.Exec(ctx, q, args...)
}
