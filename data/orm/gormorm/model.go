package gormorm

import (
	"context"
	"errors"
	"reflect"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"repokit/data/orm"
)

type model struct {
	orm   *Orm
	meta  *orm.ModelMeta
	table string
}

func (m *model) Meta() *orm.ModelMeta           { return m.meta }
func (m *model) Table() string                  { return m.table }
func (m *model) Capabilities() orm.Capabilities { return m.orm.caps }

func (m *model) session(ctx context.Context) *gorm.DB {
	return m.orm.db.WithContext(ctx).Table(m.table)
}

// filtered 只应用连接、条件与分组，供 Count 与写操作复用。
func filtered(db *gorm.DB, qo orm.QueryOptions) *gorm.DB {
	for _, j := range qo.Joins {
		db = db.Joins(j.Expr, j.Args...)
	}
	for _, w := range orm.FoldConditions(qo.Where) {
		db = db.Where(w.Expr, w.Args...)
	}
	for _, g := range qo.GroupBy {
		db = db.Group(g)
	}
	for _, h := range qo.Having {
		db = db.Having(h.Expr, h.Args...)
	}
	return db
}

func (m *model) query(ctx context.Context, qo orm.QueryOptions) *gorm.DB {
	db := filtered(m.session(ctx), qo)
	if len(qo.Select) > 0 {
		db = db.Select(qo.Select)
	}
	for _, o := range qo.OrderBy {
		db = db.Order(clause.OrderByColumn{Column: clause.Column{Name: o.Column, Raw: true}, Desc: o.Desc})
	}
	if qo.Limit > 0 {
		db = db.Limit(qo.Limit)
	}
	if qo.Offset > 0 {
		db = db.Offset(qo.Offset)
	}
	for _, rel := range qo.Preload {
		db = db.Preload(rel)
	}
	if qo.ForUpdate {
		db = db.Clauses(clause.Locking{Strength: clause.LockingStrengthUpdate})
	}
	return db
}

// First 查询单条记录，无结果时返回 orm.ErrNotFound。
func (m *model) First(ctx context.Context, dest any, opts ...orm.QueryOption) error {
	return translate(m.query(ctx, orm.CollectQueryOptions(opts...)).Take(dest).Error)
}

func (m *model) Find(ctx context.Context, dest any, opts ...orm.QueryOption) error {
	return translate(m.query(ctx, orm.CollectQueryOptions(opts...)).Find(dest).Error)
}

// Count 忽略选择列、排序与分页；带分组时统计分组数。
func (m *model) Count(ctx context.Context, opts ...orm.QueryOption) (int64, error) {
	qo := orm.CollectQueryOptions(opts...)
	var n int64
	if len(qo.GroupBy) == 0 {
		err := filtered(m.session(ctx), qo).Count(&n).Error
		return n, translate(err)
	}
	sub := filtered(m.session(ctx), qo).Select(qo.GroupBy)
	err := m.orm.db.WithContext(ctx).Table("(?) AS grouped", sub).Count(&n).Error
	return n, translate(err)
}

// Create 新增记录；多条结构体记录在同一事务内逐条写入以回填主键。
func (m *model) Create(ctx context.Context, entities ...any) error {
	if len(entities) == 0 {
		return nil
	}
	write := func(db *gorm.DB) error {
		for _, e := range entities {
			value := e
			if rec, ok := asRecord(e); ok {
				value = rec
			}
			if err := db.Table(m.table).Create(value).Error; err != nil {
				return err
			}
		}
		return nil
	}
	if len(entities) == 1 || m.orm.db.DryRun {
		return translate(write(m.orm.db.WithContext(ctx)))
	}
	return translate(m.orm.db.WithContext(ctx).Transaction(write))
}

// Save 用实体全部可写列更新匹配条件的记录。
func (m *model) Save(ctx context.Context, entity any, opts ...orm.QueryOption) error {
	qo := orm.CollectQueryOptions(opts...)
	if !qo.HasWhere() {
		return orm.ErrMissingWhere
	}
	if rec, ok := asRecord(entity); ok {
		return m.UpdateValues(ctx, rec, opts...)
	}
	db := filtered(m.orm.db.WithContext(ctx).Model(entity).Table(m.table), qo)
	return translate(db.Select("*").Updates(entity).Error)
}

func (m *model) UpdateValues(ctx context.Context, values map[string]any, opts ...orm.QueryOption) error {
	if len(values) == 0 {
		return nil
	}
	qo := orm.CollectQueryOptions(opts...)
	if !qo.HasWhere() {
		return orm.ErrMissingWhere
	}
	return translate(filtered(m.session(ctx), qo).Updates(values).Error)
}

func (m *model) Delete(ctx context.Context, opts ...orm.QueryOption) error {
	qo := orm.CollectQueryOptions(opts...)
	if !qo.HasWhere() {
		return orm.ErrMissingWhere
	}
	return translate(filtered(m.session(ctx), qo).Delete(m.newValue()).Error)
}

// newValue 返回用于 Delete 的模型零值，无结构体模型时使用空 map。
func (m *model) newValue() any {
	t := reflect.TypeOf(m.meta.Model)
	if t != nil {
		for t.Kind() == reflect.Ptr {
			t = t.Elem()
		}
		if t.Kind() == reflect.Struct {
			return reflect.New(t).Interface()
		}
	}
	return map[string]any{}
}

func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return orm.ErrNotFound
	case errors.Is(err, gorm.ErrMissingWhereClause):
		return orm.ErrMissingWhere
	}
	return err
}

// asRecord 识别 map[string]any 及其具名类型（含指针）。
func asRecord(v any) (map[string]any, bool) {
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Ptr {
		if rv.IsNil() {
			return nil, false
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Map || rv.Type().Key().Kind() != reflect.String || rv.Type().Elem().Kind() != reflect.Interface {
		return nil, false
	}
	m, ok := rv.Convert(reflect.TypeOf(map[string]any(nil))).Interface().(map[string]any)
	return m, ok
}
