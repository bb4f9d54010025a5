package basic

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"strings"

	dbsql "repokit/data/db/sql"
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

// selectFor 按 QueryOptions 组装 SELECT，limit 为 0 时使用 qo.Limit。
func (m *model) selectFor(qo orm.QueryOptions, limit int) (dbsql.ISelectBuilder, error) {
	if len(qo.Preload) > 0 {
		return nil, fmt.Errorf("basic.Orm: preload %v: %w", qo.Preload, orm.ErrUnsupported)
	}
	columns := qo.Select
	if len(columns) == 0 {
		columns = []string{"*"}
	}

	builder := m.orm.sql.Select(columns...).From(buildTableExpr(m.table, qo.Joins))
	for _, w := range orm.FoldConditions(qo.Where) {
		builder = builder.Where(w.Expr, w.Args...)
	}
	if len(qo.GroupBy) > 0 {
		builder = builder.GroupBy(qo.GroupBy...)
	}
	for _, h := range qo.Having {
		builder = builder.Having(h.Expr, h.Args...)
	}
	if len(qo.OrderBy) > 0 {
		builder = builder.OrderBy(buildOrderByExpr(qo.OrderBy))
	}
	if limit <= 0 {
		limit = qo.Limit
	}
	if limit > 0 {
		builder = builder.Limit(limit)
	}
	if qo.Offset > 0 {
		builder = builder.Offset(qo.Offset)
	}
	if qo.ForUpdate {
		builder = builder.ForUpdate()
	}
	return builder, nil
}

// First 查询单条记录，无结果时返回 orm.ErrNotFound。
func (m *model) First(ctx context.Context, dest any, opts ...orm.QueryOption) error {
	builder, err := m.selectFor(orm.CollectQueryOptions(opts...), 1)
	if err != nil {
		return err
	}

	rows, err := builder.Query(ctx)
	if err != nil {
		return err
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return err
		}
		return orm.ErrNotFound
	}
	return m.orm.scanCurrent(rows, dest)
}

// Find 查询多条记录。
func (m *model) Find(ctx context.Context, dest any, opts ...orm.QueryOption) error {
	builder, err := m.selectFor(orm.CollectQueryOptions(opts...), 0)
	if err != nil {
		return err
	}

	rows, err := builder.Query(ctx)
	if err != nil {
		return err
	}
	defer rows.Close()

	return m.orm.scanAll(rows, dest)
}

// Count 统计数量，忽略 Select/Order/Limit；存在 GroupBy 时统计分组数。
func (m *model) Count(ctx context.Context, opts ...orm.QueryOption) (int64, error) {
	qo := orm.CollectQueryOptions(opts...)

	var builder dbsql.ISelectBuilder
	if len(qo.GroupBy) > 0 {
		inner := orm.QueryOptions{Where: qo.Where, Joins: qo.Joins, GroupBy: qo.GroupBy, Having: qo.Having, Select: qo.GroupBy}
		sub, err := m.selectFor(inner, 0)
		if err != nil {
			return 0, err
		}
		q, args := sub.Build()
		// 子查询参数位于 FROM 中，外层没有自身条件
		builder = m.orm.sql.Select("COUNT(*)").From("(" + q + ") grouped")
		return m.countRow(ctx, builder, args)
	}

	builder = m.orm.sql.Select("COUNT(*)").From(buildTableExpr(m.table, qo.Joins))
	for _, w := range orm.FoldConditions(qo.Where) {
		builder = builder.Where(w.Expr, w.Args...)
	}
	return m.countRow(ctx, builder, nil)
}

func (m *model) countRow(ctx context.Context, builder dbsql.ISelectBuilder, prefix []any) (int64, error) {
	q, args := builder.Build()
	if len(prefix) > 0 {
		args = append(append([]any(nil), prefix...), args...)
	}
	var count int64
	if err := m.orm.db.QueryRow(ctx, q, args...).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

// Create 插入记录（支持批量）；单条插入时回填自增主键。
func (m *model) Create(ctx context.Context, entities ...any) error {
	if len(entities) == 0 {
		return nil
	}

	if rec, ok := asRecord(entities[0]); ok {
		return m.createRecords(ctx, rec, entities)
	}

	first := entities[0]
	sm := m.orm.structMetaForValue(first)
	if sm == nil {
		return fmt.Errorf("basic.Model.Create: unsupported entity type %T", first)
	}

	cols, insertFields := sm.insertableColumns()
	if len(cols) == 0 {
		return fmt.Errorf("basic.Model.Create: no insertable columns for %T", first)
	}

	builder := m.orm.sql.InsertInto(m.table).Columns(cols...)
	for _, e := range entities {
		val := structValue(e)
		if !val.IsValid() {
			return fmt.Errorf("basic.Model.Create: entity must be struct or *struct, got %T", e)
		}
		rowVals := make([]any, len(insertFields))
		for i, fi := range insertFields {
			fv := fieldByIndexSafe(val, fi.Index)
			if !fv.IsValid() {
				continue
			}
			rowVals[i] = fv.Interface()
		}
		builder = builder.Values(rowVals...)
	}

	res, err := builder.Exec(ctx)
	if err != nil {
		return err
	}
	if len(entities) == 1 {
		if pk, ok := sm.autoIncrementKey(); ok {
			if id, err := res.LastInsertId(); err == nil {
				setIntField(reflect.ValueOf(first), pk.Index, id)
			}
		}
	}
	return nil
}

func (m *model) createRecords(ctx context.Context, first map[string]any, entities []any) error {
	cols := sortedKeys(first)
	builder := m.orm.sql.InsertInto(m.table).Columns(cols...)
	for _, e := range entities {
		rec, ok := asRecord(e)
		if !ok {
			return fmt.Errorf("basic.Model.Create: mixed entity types, got %T", e)
		}
		vals := make([]any, len(cols))
		for i, c := range cols {
			vals[i] = rec[c]
		}
		builder = builder.Values(vals...)
	}
	_, err := builder.Exec(ctx)
	return err
}

// Save 用实体全部列（自增主键除外）更新匹配条件的记录。
func (m *model) Save(ctx context.Context, entity any, opts ...orm.QueryOption) error {
	qo := orm.CollectQueryOptions(opts...)
	if !qo.HasWhere() {
		return orm.ErrMissingWhere
	}

	if rec, ok := asRecord(entity); ok {
		return m.UpdateValues(ctx, rec, opts...)
	}

	val := structValue(entity)
	if !val.IsValid() {
		return fmt.Errorf("basic.Model.Save: entity must be struct or *struct, got %T", entity)
	}
	sm := m.orm.structMetaForValue(entity)

	builder := m.orm.sql.Update(m.table)
	for _, fi := range sm.fields {
		if (fi.PrimaryKey && fi.AutoIncrement) || fi.ReadOnly {
			continue
		}
		fv := fieldByIndexSafe(val, fi.Index)
		if !fv.IsValid() {
			continue
		}
		builder = builder.Set(fi.Column, fv.Interface())
	}
	for _, w := range orm.FoldConditions(qo.Where) {
		builder = builder.Where(w.Expr, w.Args...)
	}

	_, err := builder.Exec(ctx)
	return err
}

// UpdateValues 根据 values 与条件进行更新，无条件时拒绝执行。
func (m *model) UpdateValues(ctx context.Context, values map[string]any, opts ...orm.QueryOption) error {
	if len(values) == 0 {
		return nil
	}
	qo := orm.CollectQueryOptions(opts...)
	if !qo.HasWhere() {
		return orm.ErrMissingWhere
	}

	builder := m.orm.sql.Update(m.table).SetMap(values)
	for _, w := range orm.FoldConditions(qo.Where) {
		builder = builder.Where(w.Expr, w.Args...)
	}
	_, err := builder.Exec(ctx)
	return err
}

// Delete 根据条件删除记录，无条件时拒绝执行。
func (m *model) Delete(ctx context.Context, opts ...orm.QueryOption) error {
	qo := orm.CollectQueryOptions(opts...)
	if !qo.HasWhere() {
		return orm.ErrMissingWhere
	}

	builder := m.orm.sql.DeleteFrom(m.table)
	for _, w := range orm.FoldConditions(qo.Where) {
		builder = builder.Where(w.Expr, w.Args...)
	}
	if qo.Limit > 0 {
		builder = builder.Limit(qo.Limit)
	}
	_, err := builder.Exec(ctx)
	return err
}

func buildTableExpr(base string, joins []orm.Join) string {
	if len(joins) == 0 {
		return base
	}
	var sb strings.Builder
	sb.WriteString(base)
	for _, j := range joins {
		sb.WriteRune(' ')
		sb.WriteString(j.Expr)
	}
	return sb.String()
}

func buildOrderByExpr(orders []orm.OrderBy) string {
	parts := make([]string, 0, len(orders))
	for _, o := range orders {
		if o.Column == "" {
			continue
		}
		if o.Desc {
			parts = append(parts, o.Column+" DESC")
		} else {
			parts = append(parts, o.Column+" ASC")
		}
	}
	return strings.Join(parts, ", ")
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

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
