package repo

import (
	"fmt"

	"repokit/errors"
)

// 查询构建阶段的错误，均归类为 INVALID_INPUT。
var (
	ErrInvalidOperator = fmt.Errorf("repo: invalid operator: %w", errors.ErrInvalidInput)
	ErrUnsafeField     = fmt.Errorf("repo: unsafe field name: %w", errors.ErrInvalidInput)
	ErrUnknownRelation = fmt.Errorf("repo: unknown relation: %w", errors.ErrInvalidInput)
)

func invalidModelBinding(reason string, details map[string]any) error {
	return errors.NewError(errors.ErrCodeInvalidModelBinding, "模型绑定无效: "+reason).WithDetails(details)
}
