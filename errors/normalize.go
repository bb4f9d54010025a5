package errors

import (
	"context"
	stdErrors "errors"

	"repokit/data/db/dialect"
	dbsql "repokit/data/db/sql"
	"repokit/data/orm"
)

// genericDialect 对未知方言做宽松的唯一键冲突匹配。
var genericDialect = dialect.New("")

// Normalize 将数据访问层的错误规范化为 AppError，供 CLI 等外层统一输出。
//
// 注意：
//   - 错误链中已有 AppError 时原样返回；
//   - 未识别的错误保持原样，不强行包装，交由调用方决定是否 Wrap。
func Normalize(err error) error {
	if err == nil {
		return nil
	}

	var appErr *AppError
	if stdErrors.As(err, &appErr) {
		return err
	}

	switch {
	case stdErrors.Is(err, orm.ErrNotFound):
		return WrapError(err, ErrCodeNotFound, "记录未找到")
	case stdErrors.Is(err, orm.ErrUnsupported):
		return WrapError(err, ErrCodeUnsupported, "当前适配器不支持该操作")
	case stdErrors.Is(err, orm.ErrMissingWhere):
		return WrapError(err, ErrCodeInvalidInput, "缺少过滤条件")
	case stdErrors.Is(err, dbsql.ErrUnsafeIdentifier):
		return WrapError(err, ErrCodeInvalidInput, "非法的表名或列名")
	case genericDialect.IsUniqueViolation(err):
		return WrapError(err, ErrCodeDuplicate, "数据重复")
	case stdErrors.Is(err, context.DeadlineExceeded):
		return WrapError(err, ErrCodeTimeout, "操作超时")
	}

	return err
}
