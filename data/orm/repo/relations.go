package repo

import (
	"fmt"
	"strings"

	"repokit/data/orm"
)

// WithCount 为每个关联追加计数子查询列 <relation>_count。
func (r *Repository[T]) WithCount(relations ...string) *Repository[T] {
	for _, name := range relations {
		assoc, err := r.association(name)
		if err != nil {
			r.query = r.query.WithError(err)
			return r
		}
		sub, _, err := r.relationSubquery(assoc, "COUNT(*)", NewQuery())
		if err != nil {
			r.query = r.query.WithError(err)
			return r
		}
		r.query = r.query.AddSelect("(" + sub + ") AS " + name + "_count")
	}
	return r
}

// WhereHas 要求存在满足 constrain 的关联记录（AND）。constrain 可为 nil。
func (r *Repository[T]) WhereHas(relation string, constrain func(Query) Query) *Repository[T] {
	return r.whereHas(relation, constrain, false)
}

// OrWhereHas 与 WhereHas 相同，但与前一条件以 OR 组合。
func (r *Repository[T]) OrWhereHas(relation string, constrain func(Query) Query) *Repository[T] {
	return r.whereHas(relation, constrain, true)
}

func (r *Repository[T]) whereHas(relation string, constrain func(Query) Query, or bool) *Repository[T] {
	assoc, err := r.association(relation)
	if err != nil {
		r.query = r.query.WithError(err)
		return r
	}
	related := NewQuery()
	if constrain != nil {
		related = constrain(related)
	}
	if err := related.Err(); err != nil {
		r.query = r.query.WithError(err)
		return r
	}
	sub, args, err := r.relationSubquery(assoc, "1", related)
	if err != nil {
		r.query = r.query.WithError(err)
		return r
	}
	expr := "EXISTS (" + sub + ")"
	if or {
		r.query = r.query.OrWhere(expr, args...)
	} else {
		r.query = r.query.Where(expr, args...)
	}
	return r
}

func (r *Repository[T]) association(name string) (orm.AssociationMeta, error) {
	assoc, ok := r.meta.Association(name)
	if !ok {
		return orm.AssociationMeta{}, fmt.Errorf("%w: %q", ErrUnknownRelation, name)
	}
	return assoc, nil
}

// relationSubquery 生成与当前表关联的相关子查询。
//
// 子查询只使用 related 中的 Where 条件；Or 条件按前一条件合并。
func (r *Repository[T]) relationSubquery(assoc orm.AssociationMeta, selectExpr string, related Query) (string, []any, error) {
	target := assoc.ResolveTargetTable()
	if target == "" || !isSafeFieldName(target) {
		return "", nil, fmt.Errorf("%w: %q has no target table", ErrUnknownRelation, assoc.Name)
	}

	var (
		from  = target
		where []string
	)
	switch assoc.Kind {
	case orm.AssociationHasOne, orm.AssociationHasMany:
		if assoc.ForeignKey == "" {
			return "", nil, fmt.Errorf("%w: %q missing foreign key", ErrUnknownRelation, assoc.Name)
		}
		ref := orDefault(assoc.ReferenceKey, r.primaryKey)
		where = append(where, target+"."+assoc.ForeignKey+" = "+r.table+"."+ref)
	case orm.AssociationBelongsTo:
		if assoc.ForeignKey == "" {
			return "", nil, fmt.Errorf("%w: %q missing foreign key", ErrUnknownRelation, assoc.Name)
		}
		ref := orDefault(assoc.ReferenceKey, defaultPrimaryKey)
		where = append(where, target+"."+ref+" = "+r.table+"."+assoc.ForeignKey)
	case orm.AssociationManyToMany:
		if assoc.JoinTable == "" || assoc.JoinForeignKey == "" || assoc.JoinReferenceKey == "" {
			return "", nil, fmt.Errorf("%w: %q missing join table keys", ErrUnknownRelation, assoc.Name)
		}
		ref := orDefault(assoc.ReferenceKey, defaultPrimaryKey)
		from = target + " INNER JOIN " + assoc.JoinTable + " ON " +
			assoc.JoinTable + "." + assoc.JoinReferenceKey + " = " + target + "." + ref
		where = append(where, assoc.JoinTable+"."+assoc.JoinForeignKey+" = "+r.table+"."+r.primaryKey)
	default:
		return "", nil, fmt.Errorf("%w: %q has unsupported kind %q", ErrUnknownRelation, assoc.Name, assoc.Kind)
	}

	var args []any
	for _, c := range orm.FoldConditions(related.Options().Where) {
		where = append(where, c.Expr)
		args = append(args, c.Args...)
	}

	sub := "SELECT " + selectExpr + " FROM " + from + " WHERE " + strings.Join(where, " AND ")
	return sub, args, nil
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
