package sql

import (
	"errors"
	"fmt"
	"strings"

	"repokit/data/db/dialect"
)

// ErrUnsafeIdentifier 表名或列名不是合法标识符。
var ErrUnsafeIdentifier = errors.New("sql: unsafe identifier")

// CheckIdentifier 校验 name 是否为 ASCII 标识符或以点分隔的限定名（schema.table）。
func CheckIdentifier(name string) error {
	if name == "" {
		return fmt.Errorf("%w: empty", ErrUnsafeIdentifier)
	}
	for _, part := range strings.Split(name, ".") {
		if !isIdentPart(part) {
			return fmt.Errorf("%w: %q", ErrUnsafeIdentifier, name)
		}
	}
	return nil
}

func isIdentPart(part string) bool {
	if part == "" {
		return false
	}
	for i, ch := range []byte(part) {
		switch {
		case ch == '_', ch >= 'a' && ch <= 'z', ch >= 'A' && ch <= 'Z':
		case i > 0 && ch >= '0' && ch <= '9':
		default:
			return false
		}
	}
	return true
}

// quoteIdents 校验并按方言转义一组标识符，遇到第一个非法名即返回错误。
func quoteIdents(d dialect.Dialect, names ...string) ([]string, error) {
	out := make([]string, len(names))
	for i, name := range names {
		if err := CheckIdentifier(name); err != nil {
			return nil, err
		}
		out[i] = d.QuoteIdentifier(name)
	}
	return out, nil
}
