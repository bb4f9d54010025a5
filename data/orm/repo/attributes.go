package repo

import (
	"fmt"
	"reflect"
	"sort"
	"strings"
)

// Cond 是单个属性条件。
type Cond struct {
	Field string
	Op    string
	Value any
}

// Attributes 是按顺序组合（AND）的属性条件列表。
type Attributes []Cond

// Eq 构造相等条件。
func Eq(field string, value any) Cond {
	return Cond{Field: field, Op: "=", Value: value}
}

// Where 构造带运算符的条件。
func Where(field, op string, value any) Cond {
	return Cond{Field: field, Op: op, Value: value}
}

// AttributesFromMap 将 map 转为按键排序的相等条件列表。
func AttributesFromMap(m map[string]any) Attributes {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	attrs := make(Attributes, 0, len(keys))
	for _, k := range keys {
		attrs = append(attrs, Eq(k, m[k]))
	}
	return attrs
}

var allowedOperators = map[string]string{
	"=":        "=",
	"!=":       "!=",
	"<>":       "<>",
	">":        ">",
	">=":       ">=",
	"<":        "<",
	"<=":       "<=",
	"like":     "LIKE",
	"not like": "NOT LIKE",
	"in":       "IN",
	"not in":   "NOT IN",
}

// normalizeOperator 返回标准化的 SQL 运算符，不在白名单内时返回错误。
func normalizeOperator(op string) (string, error) {
	key := strings.ToLower(strings.Join(strings.Fields(op), " "))
	if key == "" {
		key = "="
	}
	sqlOp, ok := allowedOperators[key]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrInvalidOperator, op)
	}
	return sqlOp, nil
}

// buildCondition 生成单个条件的 SQL 片段与参数。
//
// = / != 与 nil 比较时生成 IS NULL / IS NOT NULL；
// IN / NOT IN 的非切片参数视为单元素列表。
func buildCondition(field, op string, value any) (string, []any, error) {
	sqlOp, err := normalizeOperator(op)
	if err != nil {
		return "", nil, err
	}

	switch sqlOp {
	case "=":
		if value == nil {
			return field + " IS NULL", nil, nil
		}
	case "!=", "<>":
		if value == nil {
			return field + " IS NOT NULL", nil, nil
		}
	case "IN", "NOT IN":
		list := asSlice(value)
		if reflect.ValueOf(list).Len() > 0 {
			return field + " " + sqlOp + " ?", []any{list}, nil
		}
		// 空列表：IN 不匹配任何行，NOT IN 不做限制
		if sqlOp == "IN" {
			return "1 = 0", nil, nil
		}
		return "1 = 1", nil, nil
	}
	return field + " " + sqlOp + " ?", []any{value}, nil
}

// whereAttributes 把属性条件叠加到查询上下文。
func (r *Repository[T]) whereAttributes(q Query, attrs Attributes) (Query, error) {
	for _, c := range attrs {
		if err := checkField(r.meta, c.Field); err != nil {
			return q, err
		}
		expr, args, err := buildCondition(c.Field, c.Op, c.Value)
		if err != nil {
			return q, err
		}
		q = q.Where(expr, args...)
	}
	return q, nil
}

// ApplyAttributes 把属性条件应用到查询上下文，供条件实现复用。
func ApplyAttributes(q Query, r IRepositoryContext, attrs Attributes) Query {
	for _, c := range attrs {
		if err := checkField(r.Meta(), c.Field); err != nil {
			return q.WithError(err)
		}
		expr, args, err := buildCondition(c.Field, c.Op, c.Value)
		if err != nil {
			return q.WithError(err)
		}
		q = q.Where(expr, args...)
	}
	return q
}

// asSlice 把非切片值包装为单元素切片，[]byte 视为标量。
func asSlice(value any) any {
	if value == nil {
		return []any{nil}
	}
	if _, ok := value.([]byte); ok {
		return []any{value}
	}
	if reflect.TypeOf(value).Kind() == reflect.Slice {
		return value
	}
	return []any{value}
}
