package errors

import (
	"context"
	stdErrors "errors"
	"fmt"

	"repokit/logging"
)

// Wrap 以指定错误码包装错误，err 为 nil 时返回 nil。
// 仓储内部不调用，供 CLI 等边界使用。
func Wrap(ctx context.Context, err error, code ErrorCode, msg string) error {
	if err == nil {
		return nil
	}
	logging.GetLogger().Debug(ctx, "error wrapped",
		logging.String("error_code", string(code)), logging.String("message", msg), logging.Error(err))
	return WrapError(err, code, msg)
}

// WrapDatabaseError 规范化数据访问错误。
//
// 能识别的错误按 Normalize 归类；其余归为 QUERY_EXECUTION 并记录 Warn 日志。
func WrapDatabaseError(ctx context.Context, err error, operation string) error {
	err = Normalize(err)
	if err == nil {
		return nil
	}
	var appErr *AppError
	if stdErrors.As(err, &appErr) {
		return err
	}
	logging.GetLogger().Warn(ctx, "query execution failed",
		logging.String("operation", operation), logging.Error(err))
	return WrapError(err, ErrCodeQueryExecution, operation)
}

// NewValidationError 创建 VALIDATION_ERROR，message 按 fmt 规则格式化。
func NewValidationError(format string, args ...any) error {
	return NewError(ErrCodeValidation, fmt.Sprintf(format, args...))
}
