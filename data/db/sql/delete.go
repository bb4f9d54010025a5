package sql

import (
	"context"
	"database/sql"
	"strings"

	core "repokit/data/db"
	"repokit/data/db/dialect"
)

type deleteBuilder struct {
	db      core.IDatabase
	dialect dialect.Dialect

	table string
	where conditions
	limit int
}

func (b *deleteBuilder) Where(cond string, args ...any) IDeleteBuilder {
	b.where.add(cond, args)
	return b
}

// Limit 只在支持 DELETE ... LIMIT 的方言上输出。
func (b *deleteBuilder) Limit(n int) IDeleteBuilder {
	b.limit = n
	return b
}

func (b *deleteBuilder) Build() (string, []any, error) {
	table, err := quoteIdents(b.dialect, b.table)
	if err != nil {
		return "", nil, err
	}
	var sb strings.Builder
	sb.WriteString("DELETE FROM ")
	sb.WriteString(table[0])
	args := b.where.writeTo(&sb, "WHERE", nil)
	if b.limit > 0 && b.dialect.SupportsDeleteLimit() {
		sb.WriteString(" LIMIT ?")
		args = append(args, b.limit)
	}
	return sb.String(), args, nil
}

func (b *deleteBuilder) Exec(ctx context.Context) (sql.Result, error) {
	q, args, err := b.Build()
	if err != nil {
		return nil, err
	}
	return b.db.Exec(ctx, q, args...)
}
