package repo

import (
	"context"
	"fmt"
	"strings"
)

func (r *Repository[T]) find(ctx context.Context, op string, q Query, columns []string, dest any) error {
	if err := r.checkCapabilities(q); err != nil {
		return err
	}
	if err := r.model.Find(ctx, dest, q.build(r.table, columns)...); err != nil {
		r.logFailure(ctx, op, err)
		return err
	}
	return nil
}

func (r *Repository[T]) first(ctx context.Context, op string, q Query, columns []string) (*T, error) {
	if err := r.checkCapabilities(q); err != nil {
		return nil, err
	}
	entity := new(T)
	if err := r.model.First(ctx, entity, q.build(r.table, columns)...); err != nil {
		r.logFailure(ctx, op, err)
		return nil, err
	}
	return entity, nil
}

// All 返回应用条件后的全部记录。
func (r *Repository[T]) All(ctx context.Context, columns ...string) ([]T, error) {
	return r.GetByAttributes(ctx, nil, columns...)
}

// Count 统计应用条件后的记录数。
func (r *Repository[T]) Count(ctx context.Context) (int64, error) {
	defer r.reset()
	q, err := r.prepare(ctx)
	if err != nil {
		return 0, err
	}
	n, err := r.model.Count(ctx, q.opts...)
	if err != nil {
		r.logFailure(ctx, "count", err)
		return 0, err
	}
	return n, nil
}

// Pluck 返回单列的值列表。
func (r *Repository[T]) Pluck(ctx context.Context, column string) ([]any, error) {
	defer r.reset()
	if err := checkField(r.meta, column); err != nil {
		return nil, err
	}
	q, err := r.prepare(ctx)
	if err != nil {
		return nil, err
	}
	var rows []map[string]any
	if err := r.find(ctx, "pluck", q, []string{column}, &rows); err != nil {
		return nil, err
	}
	key := columnKey(column)
	out := make([]any, len(rows))
	for i, row := range rows {
		out[i] = row[key]
	}
	return out, nil
}

// Lists 返回 key 列到 value 列的映射；key 为空时使用主键。
// 键统一格式化为字符串，重复键以后出现的行为准。
func (r *Repository[T]) Lists(ctx context.Context, value, key string) (map[string]any, error) {
	defer r.reset()
	if key == "" {
		key = r.primaryKey
	}
	for _, f := range []string{value, key} {
		if err := checkField(r.meta, f); err != nil {
			return nil, err
		}
	}
	q, err := r.prepare(ctx)
	if err != nil {
		return nil, err
	}
	var rows []map[string]any
	if err := r.find(ctx, "lists", q, []string{value, key}, &rows); err != nil {
		return nil, err
	}
	vk, kk := columnKey(value), columnKey(key)
	out := make(map[string]any, len(rows))
	for _, row := range rows {
		out[fmt.Sprint(row[kk])] = row[vk]
	}
	return out, nil
}

// Find 按主键查找，不存在时返回 orm.ErrNotFound。
func (r *Repository[T]) Find(ctx context.Context, id any, columns ...string) (*T, error) {
	return r.FindByAttributes(ctx, Attributes{Eq(r.primaryKey, id)}, columns...)
}

// FindByMany 按主键集合查找。
func (r *Repository[T]) FindByMany(ctx context.Context, ids any, columns ...string) ([]T, error) {
	return r.GetByAttributes(ctx, Attributes{Where(r.primaryKey, "in", ids)}, columns...)
}

// FindByField 按单个字段相等查找第一条。
func (r *Repository[T]) FindByField(ctx context.Context, field string, value any, columns ...string) (*T, error) {
	return r.FindByAttributes(ctx, Attributes{Eq(field, value)}, columns...)
}

// FindByAttributes 按属性条件查找第一条。
func (r *Repository[T]) FindByAttributes(ctx context.Context, attrs Attributes, columns ...string) (*T, error) {
	defer r.reset()
	q, err := r.prepare(ctx)
	if err == nil {
		q, err = r.whereAttributes(q, attrs)
	}
	if err != nil {
		return nil, err
	}
	return r.first(ctx, "find", q, columns)
}

// GetByField 按单个字段相等查找全部。
func (r *Repository[T]) GetByField(ctx context.Context, field string, value any, columns ...string) ([]T, error) {
	return r.GetByAttributes(ctx, Attributes{Eq(field, value)}, columns...)
}

// GetByAttributes 按属性条件查找全部。
func (r *Repository[T]) GetByAttributes(ctx context.Context, attrs Attributes, columns ...string) ([]T, error) {
	defer r.reset()
	q, err := r.prepare(ctx)
	if err == nil {
		q, err = r.whereAttributes(q, attrs)
	}
	if err != nil {
		return nil, err
	}
	items := make([]T, 0)
	if err := r.find(ctx, "get", q, columns, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// columnKey 返回结果集中列的键名（去掉表限定）。
func columnKey(column string) string {
	if i := strings.LastIndexByte(column, '.'); i >= 0 {
		return column[i+1:]
	}
	return column
}
