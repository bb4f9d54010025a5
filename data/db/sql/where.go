package sql

import "strings"

// conditions 是以 AND 连接的条件片段，SELECT/UPDATE/DELETE 共用。
// 追加时展开切片参数，"id IN ?" 可直接传切片。
type conditions struct {
	exprs []string
	args  []any
}

func (c *conditions) add(cond string, args []any) {
	if cond == "" {
		return
	}
	cond, args = expandArgs(cond, args)
	c.exprs = append(c.exprs, cond)
	c.args = append(c.args, args...)
}

// or 把 cond 与最后一个条件合并为 (prev OR cond)；没有条件时等价于 add。
func (c *conditions) or(cond string, args []any) {
	if cond == "" {
		return
	}
	n := len(c.exprs)
	if n == 0 {
		c.add(cond, args)
		return
	}
	cond, args = expandArgs(cond, args)
	c.exprs[n-1] = "(" + c.exprs[n-1] + " OR " + cond + ")"
	c.args = append(c.args, args...)
}

// writeTo 以 keyword 开头写出条件，返回追加了参数的 args。
func (c *conditions) writeTo(sb *strings.Builder, keyword string, args []any) []any {
	if len(c.exprs) == 0 {
		return args
	}
	sb.WriteString(" ")
	sb.WriteString(keyword)
	sb.WriteString(" ")
	sb.WriteString(strings.Join(c.exprs, " AND "))
	return append(args, c.args...)
}
