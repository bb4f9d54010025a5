package sql

import (
	"database/sql/driver"
	"reflect"
	"strings"
)

// expandArgs 将条件中对应切片参数的 ? 展开为 (?, ?, ...)。
//
// 空切片展开为 (NULL)，使 "IN ?" 不匹配任何行而不是产生语法错误。
// 参数个数与占位符不一致时原样返回，交给驱动报错。
func expandArgs(cond string, args []any) (string, []any) {
	if len(args) == 0 || !hasSliceArg(args) {
		return cond, args
	}
	if strings.Count(cond, "?") != len(args) {
		return cond, args
	}

	var sb strings.Builder
	sb.Grow(len(cond) + 8)
	out := make([]any, 0, len(args))
	argIndex := 0
	for i := 0; i < len(cond); i++ {
		ch := cond[i]
		if ch != '?' {
			sb.WriteByte(ch)
			continue
		}
		arg := args[argIndex]
		argIndex++
		rv, ok := sliceValue(arg)
		if !ok {
			sb.WriteByte('?')
			out = append(out, arg)
			continue
		}
		if rv.Len() == 0 {
			sb.WriteString("(NULL)")
			continue
		}
		sb.WriteByte('(')
		for j := 0; j < rv.Len(); j++ {
			if j > 0 {
				sb.WriteString(", ")
			}
			sb.WriteByte('?')
			out = append(out, rv.Index(j).Interface())
		}
		sb.WriteByte(')')
	}
	return sb.String(), out
}

func hasSliceArg(args []any) bool {
	for _, a := range args {
		if _, ok := sliceValue(a); ok {
			return true
		}
	}
	return false
}

// sliceValue 只展开切片；[]byte、数组（如 uuid.UUID）与 driver.Valuer 按单个值绑定。
func sliceValue(arg any) (reflect.Value, bool) {
	switch arg.(type) {
	case nil, []byte, driver.Valuer:
		return reflect.Value{}, false
	}
	rv := reflect.ValueOf(arg)
	if rv.Kind() != reflect.Slice {
		return reflect.Value{}, false
	}
	return rv, true
}
