package sql

import (
	"context"
	"strings"

	core "repokit/data/db"
	"repokit/data/db/dialect"
)

// mysqlNoLimit 是 MySQL 中只有 OFFSET 时必须补上的 LIMIT 上界。
const mysqlNoLimit = "18446744073709551615"

type selectBuilder struct {
	db      core.IDatabase
	dialect dialect.Dialect

	cols    []string
	table   string
	where   conditions
	groupBy []string
	having  conditions
	orderBy string
	limit   int
	offset  int
	locking bool
}

func (b *selectBuilder) From(table string) ISelectBuilder {
	b.table = table
	return b
}

func (b *selectBuilder) Where(cond string, args ...any) ISelectBuilder {
	b.where.add(cond, args)
	return b
}

func (b *selectBuilder) And(cond string, args ...any) ISelectBuilder {
	return b.Where(cond, args...)
}

// Or 与上一个条件组成 (prev OR cond)；没有前置条件时等价于 Where。
func (b *selectBuilder) Or(cond string, args ...any) ISelectBuilder {
	b.where.or(cond, args)
	return b
}

func (b *selectBuilder) GroupBy(cols ...string) ISelectBuilder {
	b.groupBy = append(b.groupBy, cols...)
	return b
}

func (b *selectBuilder) Having(cond string, args ...any) ISelectBuilder {
	b.having.add(cond, args)
	return b
}

func (b *selectBuilder) OrderBy(expr string) ISelectBuilder {
	if expr != "" {
		b.orderBy = expr
	}
	return b
}

func (b *selectBuilder) Limit(n int) ISelectBuilder {
	b.limit = n
	return b
}

func (b *selectBuilder) Offset(n int) ISelectBuilder {
	b.offset = n
	return b
}

// ForUpdate 仅在支持行锁的方言上生效，SQLite 等忽略。
func (b *selectBuilder) ForUpdate() ISelectBuilder {
	b.locking = b.dialect.SupportsForUpdate()
	return b
}

// Build 可重复调用，不修改 builder 状态。
func (b *selectBuilder) Build() (string, []any) {
	var sb strings.Builder
	sb.WriteString("SELECT ")
	sb.WriteString(strings.Join(b.cols, ", "))
	sb.WriteString(" FROM ")
	sb.WriteString(b.table)

	args := b.where.writeTo(&sb, "WHERE", nil)
	if len(b.groupBy) > 0 {
		sb.WriteString(" GROUP BY ")
		sb.WriteString(strings.Join(b.groupBy, ", "))
	}
	args = b.having.writeTo(&sb, "HAVING", args)
	if b.orderBy != "" {
		sb.WriteString(" ORDER BY ")
		sb.WriteString(b.orderBy)
	}
	args = b.writePaging(&sb, args)
	if b.locking {
		sb.WriteString(" FOR UPDATE")
	}
	return sb.String(), args
}

// writePaging 写出 LIMIT/OFFSET；SQLite 与 MySQL 要求 OFFSET 前必须有 LIMIT。
func (b *selectBuilder) writePaging(sb *strings.Builder, args []any) []any {
	switch {
	case b.limit > 0:
		sb.WriteString(" LIMIT ?")
		args = append(args, b.limit)
	case b.offset <= 0:
		return args
	case b.dialect.Name() == dialect.NameMySQL:
		sb.WriteString(" LIMIT " + mysqlNoLimit)
	case b.dialect.Name() != dialect.NamePostgres:
		sb.WriteString(" LIMIT -1")
	}
	if b.offset > 0 {
		sb.WriteString(" OFFSET ?")
		args = append(args, b.offset)
	}
	return args
}

func (b *selectBuilder) Query(ctx context.Context) (core.IRows, error) {
	q, args := b.Build()
	return b.db.Query(ctx, q, args...)
}

func (b *selectBuilder) QueryRow(ctx context.Context) core.IRow {
	q, args := b.Build()
	return b.db.QueryRow(ctx, q, args...)
}
