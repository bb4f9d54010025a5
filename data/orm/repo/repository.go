// Package repo 实现基于条件组合（Criteria）的通用仓储。
//
// 仓储持有一个按插入顺序排列、按类别去重的条件集合，
// 每个返回数据的操作在执行前恰好应用一次该集合，
// 然后叠加本次调用自身的过滤条件，最后执行终结查询。
//
// 仓储实例不是并发安全的，应按请求/调用创建；条件本身不可变，可在实例间共享。
package repo

import (
	"context"
	"reflect"
	"strings"

	"repokit/data/orm"
	"repokit/data/orm/changefeed"
	"repokit/logging"
)

const (
	defaultPrimaryKey = "id"
	defaultPerPage    = 25
)

// Option 配置仓储。
type Option func(*options)

type options struct {
	primaryKey       string
	preventOverwrite bool
	logger           logging.Logger
	publisher        changefeed.IPublisher
	perPage          int
}

// WithPrimaryKey 指定主键列，默认取模型元数据中的主键或 "id"。
func WithPrimaryKey(column string) Option {
	return func(o *options) {
		if column != "" {
			o.primaryKey = column
		}
	}
}

// WithPreventCriteriaOverwriting 控制同类别条件是否互相替换，默认开启。
func WithPreventCriteriaOverwriting(prevent bool) Option {
	return func(o *options) { o.preventOverwrite = prevent }
}

// WithLogger 指定日志实现，默认使用全局 Logger。
func WithLogger(logger logging.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithChangePublisher 在写操作成功后发布变更事件。
func WithChangePublisher(p changefeed.IPublisher) Option {
	return func(o *options) { o.publisher = p }
}

// WithPerPage 设置分页默认条数。
func WithPerPage(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.perPage = n
		}
	}
}

// Repository 是基于 orm.IOrm 的通用仓储。
//
// T 为实体结构体，或 Record（map[string]any）用于无模型的表访问。
type Repository[T any] struct {
	engine orm.IOrm
	model  orm.IModel
	meta   *orm.ModelMeta
	table  string

	criteria *CriteriaSet
	skip     bool
	query    Query

	primaryKey string
	perPage    int
	logger     logging.Logger
	publisher  changefeed.IPublisher
}

// Record 是无结构体模型时使用的行表示。
type Record = map[string]any

// NewRepository 创建仓储实例，所有协作者显式注入。
func NewRepository[T any](engine orm.IOrm, meta *orm.ModelMeta, opts ...Option) (*Repository[T], error) {
	if engine == nil {
		return nil, invalidModelBinding("orm engine is nil", nil)
	}
	if meta == nil {
		return nil, invalidModelBinding("model meta is nil", nil)
	}
	if meta.Model == nil {
		m := *meta
		m.Model = new(T)
		meta = &m
	}
	if !isEntityType(meta.Model) {
		return nil, invalidModelBinding("model must be a struct or map[string]any",
			map[string]any{"model": reflect.TypeOf(meta.Model).String()})
	}
	table := meta.ResolveTable()
	if table == "" {
		return nil, invalidModelBinding("table name unresolved",
			map[string]any{"model": reflect.TypeOf(meta.Model).String()})
	}
	if !isSafeFieldName(table) {
		return nil, invalidModelBinding("unsafe table name", map[string]any{"table": table})
	}

	o := options{
		primaryKey:       meta.PrimaryKey(),
		preventOverwrite: true,
		logger:           logging.GetLogger(),
		perPage:          defaultPerPage,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	if o.primaryKey == "" {
		o.primaryKey = defaultPrimaryKey
	}

	r := &Repository[T]{
		engine:     engine,
		model:      engine.Model(meta),
		meta:       meta,
		table:      table,
		criteria:   NewCriteriaSet(o.preventOverwrite),
		query:      NewQuery(),
		primaryKey: o.primaryKey,
		perPage:    o.perPage,
		logger:     o.logger.WithFields(logging.String("table", table)),
		publisher:  o.publisher,
	}
	return r.ResetScope(), nil
}

func isEntityType(model any) bool {
	t := reflect.TypeOf(model)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	switch t.Kind() {
	case reflect.Struct:
		return true
	case reflect.Map:
		return t.Key().Kind() == reflect.String && t.Elem().Kind() == reflect.Interface
	}
	return false
}

// Table 返回绑定的表名。
func (r *Repository[T]) Table() string { return r.table }

// PrimaryKey 返回主键列。
func (r *Repository[T]) PrimaryKey() string { return r.primaryKey }

// Meta 返回模型元数据。
func (r *Repository[T]) Meta() *orm.ModelMeta { return r.meta }

// Capabilities 返回底层适配器能力。
func (r *Repository[T]) Capabilities() orm.Capabilities { return r.model.Capabilities() }

// Model 暴露底层模型，供需要绕过仓储的场景使用。
func (r *Repository[T]) Model() orm.IModel { return r.model }

// Orm 返回绑定的 ORM 引擎。
func (r *Repository[T]) Orm() orm.IOrm { return r.engine }

// Query 返回当前查询上下文。
func (r *Repository[T]) Query() Query { return r.query }

// Scope 以函数方式修改当前查询上下文，仅影响下一次终结操作。
func (r *Repository[T]) Scope(fn func(Query) Query) *Repository[T] {
	if fn != nil {
		r.query = fn(r.query)
	}
	return r
}

// PushCriteria 追加条件；开启去重时替换同类别的旧条件。
func (r *Repository[T]) PushCriteria(c ICriterion) *Repository[T] {
	r.criteria.Push(c)
	return r
}

// RemoveCriteria 移除指定类别的条件，返回是否存在。
func (r *Repository[T]) RemoveCriteria(kind CriterionKind) bool {
	return r.criteria.Remove(kind)
}

// GetCriteria 返回条件集合的快照。
func (r *Repository[T]) GetCriteria() []ICriterion {
	return r.criteria.Snapshot()
}

// SkipCriteria 设置跳过标记，直到再次设置或 ResetScope 前一直有效。
func (r *Repository[T]) SkipCriteria(status bool) *Repository[T] {
	r.skip = status
	return r
}

// Skipping 返回当前跳过标记。
func (r *Repository[T]) Skipping() bool { return r.skip }

// ResetScope 清除跳过标记。
func (r *Repository[T]) ResetScope() *Repository[T] {
	r.skip = false
	return r
}

// ApplyCriteria 按插入顺序把条件折叠到当前查询上下文。
//
// 跳过标记为 true 时不做任何事，也不清除标记。
// 任一条件失败时停止折叠，原样返回错误，查询上下文恢复为调用前的状态。
func (r *Repository[T]) ApplyCriteria(ctx context.Context) error {
	if r.skip {
		return nil
	}

	q := r.query
	applied := 0
	for _, c := range r.criteria.items {
		if isNilCriterion(c) {
			continue
		}
		next, err := c.Apply(ctx, q, r)
		if err == nil && next.err != nil && q.err == nil {
			err = next.err
		}
		if err != nil {
			r.logger.Debug(ctx, "criteria apply failed",
				logging.String("kind", string(c.Kind())), logging.Error(err))
			return err
		}
		q = next
		applied++
	}
	if applied > 0 {
		r.logger.Debug(ctx, "criteria applied", logging.Int("count", applied))
	}
	r.query = q
	return nil
}

// GetByCriteria 立即把单个条件应用到当前查询上下文，不加入条件集合。
func (r *Repository[T]) GetByCriteria(ctx context.Context, c ICriterion) (*Repository[T], error) {
	if isNilCriterion(c) {
		return r, nil
	}
	next, err := c.Apply(ctx, r.query, r)
	if err == nil {
		err = next.err
	}
	if err != nil {
		return r, err
	}
	r.query = next
	return r, nil
}

// OrderBy 追加排序，direction 为 "desc" 时倒序（大小写不敏感）。
func (r *Repository[T]) OrderBy(column, direction string) *Repository[T] {
	if !isSafeFieldName(column) {
		r.query = r.query.WithError(unsafeField(column))
		return r
	}
	r.query = r.query.Order(column, strings.EqualFold(strings.TrimSpace(direction), "desc"))
	return r
}

// With 设置需要预加载的关联，要求适配器具备 CapabilityPreload。
func (r *Repository[T]) With(relations ...string) *Repository[T] {
	r.query = r.query.Preload(relations...)
	return r
}

// prepare 应用条件并返回本次终结操作使用的查询上下文。
func (r *Repository[T]) prepare(ctx context.Context) (Query, error) {
	if err := r.ApplyCriteria(ctx); err != nil {
		return Query{}, err
	}
	if err := r.query.Err(); err != nil {
		return Query{}, err
	}
	return r.query, nil
}

// reset 在每次终结操作结束后重建查询上下文。
func (r *Repository[T]) reset() {
	r.query = NewQuery()
}

// checkCapabilities 在执行前拒绝适配器无法满足的选项。
func (r *Repository[T]) checkCapabilities(q Query) error {
	if len(q.Options().Preload) > 0 {
		return r.model.Capabilities().Require(orm.CapabilityPreload)
	}
	return nil
}

func (r *Repository[T]) logFailure(ctx context.Context, op string, err error) {
	r.logger.Warn(ctx, "repository operation failed",
		logging.String("op", op), logging.Error(err))
}
