package orm

// Condition 是一个占位符为 ? 的条件片段。
// Or 为 true 时与前一条件以 OR 组合，否则以 AND 组合。
type Condition struct {
	Expr string
	Args []any
	Or   bool
}

// OrderBy 表示排序字段。
type OrderBy struct {
	Column string
	Desc   bool
}

// Join 表示查询关联。
type Join struct {
	Expr string
	Args []any
}

// QueryOptions 是适配器读取的查询描述，由一组 QueryOption 折叠而来。
type QueryOptions struct {
	Select    []string
	Joins     []Join
	Where     []Condition
	GroupBy   []string
	Having    []Condition
	OrderBy   []OrderBy
	Limit     int
	Offset    int
	Preload   []string
	ForUpdate bool
}

// HasWhere 报告是否带有过滤条件；写操作据此拒绝全表更新与删除。
func (o QueryOptions) HasWhere() bool { return len(o.Where) > 0 }

// QueryOption 修改 QueryOptions，nil 被忽略。
type QueryOption func(*QueryOptions)

// CollectQueryOptions 按顺序应用全部选项。
func CollectQueryOptions(options ...QueryOption) QueryOptions {
	var opts QueryOptions
	for _, opt := range options {
		if opt != nil {
			opt(&opts)
		}
	}
	return opts
}

func condition(field func(*QueryOptions) *[]Condition, expr string, args []any, or bool) QueryOption {
	return func(opts *QueryOptions) {
		if expr != "" {
			dst := field(opts)
			*dst = append(*dst, Condition{Expr: expr, Args: args, Or: or})
		}
	}
}

func whereField(o *QueryOptions) *[]Condition  { return &o.Where }
func havingField(o *QueryOptions) *[]Condition { return &o.Having }

// WithWhere 追加以 AND 连接的条件。
func WithWhere(expr string, args ...any) QueryOption {
	return condition(whereField, expr, args, false)
}

// WithOrWhere 追加与前一条件以 OR 连接的条件。
func WithOrWhere(expr string, args ...any) QueryOption {
	return condition(whereField, expr, args, true)
}

// WithHaving 追加分组过滤条件。
func WithHaving(expr string, args ...any) QueryOption {
	return condition(havingField, expr, args, false)
}

// WithJoin 追加 JOIN 片段。
func WithJoin(expr string, args ...any) QueryOption {
	return func(opts *QueryOptions) {
		if expr != "" {
			opts.Joins = append(opts.Joins, Join{Expr: expr, Args: args})
		}
	}
}

func WithGroupBy(columns ...string) QueryOption {
	return func(opts *QueryOptions) { opts.GroupBy = append(opts.GroupBy, columns...) }
}

func WithSelect(columns ...string) QueryOption {
	return func(opts *QueryOptions) { opts.Select = append(opts.Select, columns...) }
}

func WithPreload(relations ...string) QueryOption {
	return func(opts *QueryOptions) { opts.Preload = append(opts.Preload, relations...) }
}

// WithOrderBy 追加排序，空列名被忽略。
func WithOrderBy(column string, desc bool) QueryOption {
	return func(opts *QueryOptions) {
		if column != "" {
			opts.OrderBy = append(opts.OrderBy, OrderBy{Column: column, Desc: desc})
		}
	}
}

// WithLimit 设置条数上限，非正数被忽略；后设置的覆盖先设置的。
func WithLimit(limit int) QueryOption {
	return func(opts *QueryOptions) {
		if limit > 0 {
			opts.Limit = limit
		}
	}
}

// WithOffset 设置偏移，非正数被忽略。
func WithOffset(offset int) QueryOption {
	return func(opts *QueryOptions) {
		if offset > 0 {
			opts.Offset = offset
		}
	}
}

// WithForUpdate 标记需要行级锁。
func WithForUpdate() QueryOption {
	return func(opts *QueryOptions) { opts.ForUpdate = true }
}

// FoldConditions 把 Or 条件并入前一个条件，得到仅以 AND 连接的列表。
// 不支持 OR 的构建器（UPDATE/DELETE、子查询）借此得到等价条件；首个条件的 Or 标记被忽略。
func FoldConditions(conds []Condition) []Condition {
	out := make([]Condition, 0, len(conds))
	for _, c := range conds {
		n := len(out)
		if !c.Or || n == 0 {
			out = append(out, Condition{Expr: c.Expr, Args: c.Args})
			continue
		}
		prev := out[n-1]
		out[n-1] = Condition{
			Expr: "(" + prev.Expr + " OR " + c.Expr + ")",
			Args: append(append(make([]any, 0, len(prev.Args)+len(c.Args)), prev.Args...), c.Args...),
		}
	}
	return out
}
