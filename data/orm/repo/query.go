package repo

import (
	"repokit/data/orm"
)

// Query 是仓储持有的查询上下文（QueryContext）。
//
// Query 为不可变值：每个构建方法都返回新的 Query，原值不受影响，
// 因此条件可以安全地在回滚时恢复为调用前的快照。
// 构建过程中出现的错误记录在 Query 上，后续构建方法不再生效，
// 由终结操作统一返回。
type Query struct {
	opts        []orm.QueryOption
	extraSelect []string
	err         error
}

// NewQuery 返回空查询上下文。
func NewQuery() Query { return Query{} }

func (q Query) with(opt orm.QueryOption) Query {
	if q.err != nil {
		return q
	}
	opts := make([]orm.QueryOption, len(q.opts), len(q.opts)+1)
	copy(opts, q.opts)
	q.opts = append(opts, opt)
	return q
}

func (q Query) Where(expr string, args ...any) Query {
	return q.with(orm.WithWhere(expr, args...))
}

func (q Query) OrWhere(expr string, args ...any) Query {
	return q.with(orm.WithOrWhere(expr, args...))
}

func (q Query) Join(expr string, args ...any) Query {
	return q.with(orm.WithJoin(expr, args...))
}

func (q Query) Preload(relations ...string) Query {
	return q.with(orm.WithPreload(relations...))
}

func (q Query) Order(column string, desc bool) Query {
	return q.with(orm.WithOrderBy(column, desc))
}

func (q Query) Limit(limit int) Query {
	return q.with(orm.WithLimit(limit))
}

func (q Query) Offset(offset int) Query {
	return q.with(orm.WithOffset(offset))
}

func (q Query) Select(columns ...string) Query {
	return q.with(orm.WithSelect(columns...))
}

// AddSelect 追加附加列（例如关联计数子查询），不替换基础列。
func (q Query) AddSelect(exprs ...string) Query {
	if q.err != nil || len(exprs) == 0 {
		return q
	}
	extra := make([]string, 0, len(q.extraSelect)+len(exprs))
	q.extraSelect = append(append(extra, q.extraSelect...), exprs...)
	return q
}

func (q Query) GroupBy(columns ...string) Query {
	return q.with(orm.WithGroupBy(columns...))
}

func (q Query) Having(expr string, args ...any) Query {
	return q.with(orm.WithHaving(expr, args...))
}

func (q Query) ForUpdate() Query {
	return q.with(orm.WithForUpdate())
}

// WithError 标记查询失败；已有错误时保留第一个。
func (q Query) WithError(err error) Query {
	if q.err == nil {
		q.err = err
	}
	return q
}

// Err 返回构建过程中记录的第一个错误。
func (q Query) Err() error { return q.err }

// Len 返回已追加的选项数量。
func (q Query) Len() int { return len(q.opts) + len(q.extraSelect) }

// Options 聚合为 orm.QueryOptions，附加列排在基础列之后。
func (q Query) Options() orm.QueryOptions {
	qo := orm.CollectQueryOptions(q.opts...)
	if len(q.extraSelect) > 0 {
		qo.Select = append(qo.Select, q.extraSelect...)
	}
	return qo
}

// build 生成终结调用使用的选项；columns 为调用方指定的返回列。
// 存在附加列但没有基础列时，基础列取 table.*。
func (q Query) build(table string, columns []string) []orm.QueryOption {
	opts := make([]orm.QueryOption, 0, len(q.opts)+2)
	opts = append(opts, q.opts...)

	cols := normalizeColumns(columns)
	if len(q.extraSelect) > 0 && len(cols) == 0 && len(orm.CollectQueryOptions(q.opts...).Select) == 0 {
		cols = []string{table + ".*"}
	}
	if len(cols) > 0 {
		opts = append(opts, orm.WithSelect(cols...))
	}
	if len(q.extraSelect) > 0 {
		opts = append(opts, orm.WithSelect(q.extraSelect...))
	}
	return opts
}

// normalizeColumns 去除空列与单独的 "*"。
func normalizeColumns(columns []string) []string {
	if len(columns) == 0 {
		return nil
	}
	out := make([]string, 0, len(columns))
	for _, c := range columns {
		if c == "" || c == "*" {
			continue
		}
		out = append(out, c)
	}
	return out
}
