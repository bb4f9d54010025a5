// Package criteria 提供常用的仓储条件实现。
//
// 所有构造函数返回不可变值，可在多个仓储之间共享；
// 构造参数非法时不 panic，而是返回一个 Apply 总是失败的条件。
package criteria

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"repokit/data/orm/repo"
)

var (
	// ErrInvalidCriterion 构造参数非法。
	ErrInvalidCriterion = errors.New("criteria: invalid criterion")
	// ErrNoRequester 上下文中缺少请求者标识。
	ErrNoRequester = errors.New("criteria: requester missing from context")
)

const (
	KindOrderBy    repo.CriterionKind = "order_by"
	KindSoftDelete repo.CriterionKind = "soft_delete"
	KindOwnedBy    repo.CriterionKind = "owned_by"
	KindLimit      repo.CriterionKind = "limit"
	KindWith       repo.CriterionKind = "with"
	KindSearch     repo.CriterionKind = "search"
)

// ApplyFunc 是条件的应用函数。
type ApplyFunc func(ctx context.Context, q repo.Query, r repo.IRepositoryContext) (repo.Query, error)

type funcCriterion struct {
	kind repo.CriterionKind
	fn   ApplyFunc
}

func (c funcCriterion) Kind() repo.CriterionKind { return c.kind }

func (c funcCriterion) Apply(ctx context.Context, q repo.Query, r repo.IRepositoryContext) (repo.Query, error) {
	return c.fn(ctx, q, r)
}

// Func 以函数构造条件。
func Func(kind string, fn ApplyFunc) repo.ICriterion {
	if kind == "" || fn == nil {
		return invalid(repo.CriterionKind(kind), "kind and func are required")
	}
	return funcCriterion{kind: repo.CriterionKind(kind), fn: fn}
}

func invalid(kind repo.CriterionKind, reason string) repo.ICriterion {
	err := fmt.Errorf("%w: %s", ErrInvalidCriterion, reason)
	return funcCriterion{kind: kind, fn: func(context.Context, repo.Query, repo.IRepositoryContext) (repo.Query, error) {
		return repo.Query{}, err
	}}
}

// WhereKind 返回 Where 条件的类别：where:<field>。
func WhereKind(field string) repo.CriterionKind {
	return repo.CriterionKind("where:" + field)
}

// Where 按字段过滤；同一字段的 Where 条件互相替换。
func Where(field, op string, value any) repo.ICriterion {
	attrs := repo.Attributes{repo.Where(field, op, value)}
	return funcCriterion{kind: WhereKind(field), fn: func(_ context.Context, q repo.Query, r repo.IRepositoryContext) (repo.Query, error) {
		next := repo.ApplyAttributes(q, r, attrs)
		return next, next.Err()
	}}
}

// OrderBy 追加排序，direction 取 asc / desc。
func OrderBy(column, direction string) repo.ICriterion {
	dir := strings.ToLower(strings.TrimSpace(direction))
	if dir == "" {
		dir = "asc"
	}
	if dir != "asc" && dir != "desc" {
		return invalid(KindOrderBy, fmt.Sprintf("direction %q", direction))
	}
	if !repo.IsSafeFieldName(column) {
		return invalid(KindOrderBy, fmt.Sprintf("column %q", column))
	}
	return funcCriterion{kind: KindOrderBy, fn: func(_ context.Context, q repo.Query, _ repo.IRepositoryContext) (repo.Query, error) {
		return q.Order(column, dir == "desc"), nil
	}}
}

// NotDeleted 只保留未软删除的记录，column 默认 deleted_at。
func NotDeleted(column ...string) repo.ICriterion {
	return softDelete(" IS NULL", column)
}

// OnlyDeleted 只保留已软删除的记录，与 NotDeleted 同类别。
func OnlyDeleted(column ...string) repo.ICriterion {
	return softDelete(" IS NOT NULL", column)
}

func softDelete(predicate string, column []string) repo.ICriterion {
	col := "deleted_at"
	if len(column) > 0 && column[0] != "" {
		col = column[0]
	}
	if !repo.IsSafeFieldName(col) {
		return invalid(KindSoftDelete, fmt.Sprintf("column %q", col))
	}
	return funcCriterion{kind: KindSoftDelete, fn: func(_ context.Context, q repo.Query, r repo.IRepositoryContext) (repo.Query, error) {
		return q.Where(qualify(r.Table(), col) + predicate), nil
	}}
}

// OwnedBy 只保留 column 等于上下文请求者的记录，缺少请求者时失败。
func OwnedBy(column string) repo.ICriterion {
	if !repo.IsSafeFieldName(column) {
		return invalid(KindOwnedBy, fmt.Sprintf("column %q", column))
	}
	return funcCriterion{kind: KindOwnedBy, fn: func(ctx context.Context, q repo.Query, r repo.IRepositoryContext) (repo.Query, error) {
		requester, ok := RequesterFrom(ctx)
		if !ok {
			return q, ErrNoRequester
		}
		return q.Where(qualify(r.Table(), column)+" = ?", requester), nil
	}}
}

// Limit 限制返回条数。
func Limit(n int) repo.ICriterion {
	if n <= 0 {
		return invalid(KindLimit, fmt.Sprintf("limit %d", n))
	}
	return funcCriterion{kind: KindLimit, fn: func(_ context.Context, q repo.Query, _ repo.IRepositoryContext) (repo.Query, error) {
		return q.Limit(n), nil
	}}
}

// WithRelations 预加载关联，需要适配器支持预加载。
func WithRelations(relations ...string) repo.ICriterion {
	if len(relations) == 0 {
		return invalid(KindWith, "no relations")
	}
	rels := append([]string(nil), relations...)
	return funcCriterion{kind: KindWith, fn: func(_ context.Context, q repo.Query, _ repo.IRepositoryContext) (repo.Query, error) {
		return q.Preload(rels...), nil
	}}
}

// Search 在多个列上做模糊匹配（OR 组合）；term 为空时不生效。
func Search(columns []string, term string) repo.ICriterion {
	if len(columns) == 0 {
		return invalid(KindSearch, "no columns")
	}
	for _, c := range columns {
		if !repo.IsSafeFieldName(c) {
			return invalid(KindSearch, fmt.Sprintf("column %q", c))
		}
	}
	cols := append([]string(nil), columns...)
	term = strings.TrimSpace(term)
	return funcCriterion{kind: KindSearch, fn: func(_ context.Context, q repo.Query, _ repo.IRepositoryContext) (repo.Query, error) {
		if term == "" {
			return q, nil
		}
		parts := make([]string, len(cols))
		args := make([]any, len(cols))
		pattern := "%" + escapeLike(term) + "%"
		for i, c := range cols {
			parts[i] = c + " LIKE ? ESCAPE '!'"
			args[i] = pattern
		}
		return q.Where("("+strings.Join(parts, " OR ")+")", args...), nil
	}}
}

func qualify(table, column string) string {
	if strings.Contains(column, ".") || table == "" {
		return column
	}
	return table + "." + column
}

// escapeLike 用 ! 转义 LIKE 通配符，与 ESCAPE '!' 配合使用。
func escapeLike(s string) string {
	return strings.NewReplacer("!", "!!", "%", "!%", "_", "!_").Replace(s)
}
