package repo

import (
	"context"
	"fmt"

	"repokit/data/orm/changefeed"
	"repokit/logging"
)

// publish 在配置了发布器时发送变更事件，失败只记录日志。
func (r *Repository[T]) publish(ctx context.Context, e changefeed.Event) {
	if r.publisher == nil {
		return
	}
	if err := r.publisher.Publish(ctx, e); err != nil {
		r.logger.Warn(ctx, "change event publish failed",
			logging.String("op", string(e.Op)), logging.String("event_id", e.ID), logging.Error(err))
	}
}

// Create 新增单条记录，不应用条件；实体实现 IValidatable 时先校验。
func (r *Repository[T]) Create(ctx context.Context, entity *T) error {
	defer r.reset()
	if entity == nil {
		return fmt.Errorf("repo: create %s: nil entity", r.table)
	}
	if err := validate(entity); err != nil {
		return err
	}
	if err := r.model.Create(ctx, entity); err != nil {
		r.logFailure(ctx, "create", err)
		return err
	}

	e := changefeed.NewEvent(r.table, changefeed.OpCreate)
	if key, ok := primaryKeyValue(entity, r.primaryKey); ok {
		e = e.WithKeys(key)
	}
	r.publish(ctx, e)
	return nil
}

// CreateMany 批量新增，任一实体校验失败时不写入。
func (r *Repository[T]) CreateMany(ctx context.Context, entities []*T) error {
	defer r.reset()
	if len(entities) == 0 {
		return nil
	}
	items := make([]any, 0, len(entities))
	for _, entity := range entities {
		if entity == nil {
			continue
		}
		if err := validate(entity); err != nil {
			return err
		}
		items = append(items, entity)
	}
	if err := r.model.Create(ctx, items...); err != nil {
		r.logFailure(ctx, "create_many", err)
		return err
	}
	r.publish(ctx, changefeed.NewEvent(r.table, changefeed.OpCreate).
		WithValues(map[string]any{"count": len(items)}))
	return nil
}

// Save 按主键保存实体的全部列，不应用条件。
func (r *Repository[T]) Save(ctx context.Context, entity *T) error {
	defer r.reset()
	if entity == nil {
		return fmt.Errorf("repo: save %s: nil entity", r.table)
	}
	if err := validate(entity); err != nil {
		return err
	}
	key, ok := primaryKeyValue(entity, r.primaryKey)
	if !ok {
		return fmt.Errorf("repo: save %s: primary key %q not found on entity", r.table, r.primaryKey)
	}
	q := NewQuery().Where(r.primaryKey+" = ?", key)
	if err := r.model.Save(ctx, entity, q.opts...); err != nil {
		r.logFailure(ctx, "save", err)
		return err
	}
	r.publish(ctx, changefeed.NewEvent(r.table, changefeed.OpUpdate).WithKeys(key))
	return nil
}

// SaveModel 用 values 更新当前查询上下文匹配的记录。
//
// 查询上下文只包含之前通过 GetByCriteria / Scope 等设置的条件，
// 条件集合不会在这里自动应用；没有任何条件时由适配器拒绝执行。
func (r *Repository[T]) SaveModel(ctx context.Context, values map[string]any) error {
	defer r.reset()
	q := r.query
	if err := q.Err(); err != nil {
		return err
	}
	for col := range values {
		if err := checkField(r.meta, col); err != nil {
			return err
		}
	}
	if err := r.model.UpdateValues(ctx, values, q.opts...); err != nil {
		r.logFailure(ctx, "save_model", err)
		return err
	}
	r.publish(ctx, changefeed.NewEvent(r.table, changefeed.OpUpdate).
		WithValues(values).WithFilter(whereExprs(q)...))
	return nil
}

// Update 按 attribute（默认主键）等于 id 更新 values，不应用条件。
func (r *Repository[T]) Update(ctx context.Context, values map[string]any, id any, attribute ...string) error {
	defer r.reset()
	field := r.primaryKey
	if len(attribute) > 0 && attribute[0] != "" {
		field = attribute[0]
	}
	for col := range values {
		if err := checkField(r.meta, col); err != nil {
			return err
		}
	}
	q, err := r.whereAttributes(NewQuery(), Attributes{Eq(field, id)})
	if err != nil {
		return err
	}
	if err := r.model.UpdateValues(ctx, values, q.opts...); err != nil {
		r.logFailure(ctx, "update", err)
		return err
	}

	e := changefeed.NewEvent(r.table, changefeed.OpUpdate).WithValues(values)
	if field == r.primaryKey {
		e = e.WithKeys(id)
	} else {
		e = e.WithFilter(whereExprs(q)...)
	}
	r.publish(ctx, e)
	return nil
}

// Destroy 按主键删除，不应用条件；ids 为空时不做任何事。
func (r *Repository[T]) Destroy(ctx context.Context, ids ...any) error {
	defer r.reset()
	if len(ids) == 0 {
		return nil
	}
	q := NewQuery().Where(r.primaryKey+" IN ?", ids)
	if err := r.model.Delete(ctx, q.opts...); err != nil {
		r.logFailure(ctx, "destroy", err)
		return err
	}
	r.publish(ctx, changefeed.NewEvent(r.table, changefeed.OpDelete).WithKeys(ids...))
	return nil
}

// DestroyWhere 先应用条件，再叠加属性条件后删除。
func (r *Repository[T]) DestroyWhere(ctx context.Context, attrs Attributes) error {
	defer r.reset()
	q, err := r.prepare(ctx)
	if err == nil {
		q, err = r.whereAttributes(q, attrs)
	}
	if err != nil {
		return err
	}
	if err := r.model.Delete(ctx, q.opts...); err != nil {
		r.logFailure(ctx, "destroy_where", err)
		return err
	}
	r.publish(ctx, changefeed.NewEvent(r.table, changefeed.OpDelete).WithFilter(whereExprs(q)...))
	return nil
}

func whereExprs(q Query) []string {
	conds := q.Options().Where
	out := make([]string, 0, len(conds))
	for _, c := range conds {
		out = append(out, c.Expr)
	}
	return out
}
