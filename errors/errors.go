// Package errors 定义带错误码的 AppError，供仓储绑定、CLI 等外层统一分类错误。
//
// 条件引擎与仓储的查询路径不包装错误，只有外层通过 Normalize 归类。
package errors

import (
	stdErrors "errors"
	"fmt"
	"runtime"
	"strings"
)

// ErrorCode 错误代码类型
type ErrorCode string

const (
	ErrCodeInternal     ErrorCode = "INTERNAL_ERROR"
	ErrCodeInvalidInput ErrorCode = "INVALID_INPUT"
	ErrCodeNotFound     ErrorCode = "NOT_FOUND"
	ErrCodeConflict     ErrorCode = "CONFLICT"
	ErrCodeTimeout      ErrorCode = "TIMEOUT"
	ErrCodeValidation   ErrorCode = "VALIDATION_ERROR"
	ErrCodeDuplicate    ErrorCode = "DUPLICATE_ERROR"
	ErrCodeDatabase     ErrorCode = "DATABASE_ERROR"

	// 仓储
	ErrCodeInvalidModelBinding ErrorCode = "INVALID_MODEL_BINDING"
	ErrCodeQueryExecution      ErrorCode = "QUERY_EXECUTION"
	ErrCodeUnsupported         ErrorCode = "UNSUPPORTED"
)

// IError 错误接口
type IError interface {
	error

	Code() ErrorCode
	Message() string
	Cause() error
	Details() map[string]any
	Stack() string

	// WithDetails 返回合并了 details 的副本
	WithDetails(details map[string]any) IError
}

// AppError 应用错误实现；创建后不再修改，WithDetails 返回副本。
type AppError struct {
	code    ErrorCode
	message string
	cause   error
	details map[string]any
	stack   string
}

// NewError 创建新错误
func NewError(code ErrorCode, message string) IError {
	return newAppError(code, message, nil)
}

// NewErrorWithCause 创建带原因的错误
func NewErrorWithCause(code ErrorCode, message string, cause error) IError {
	return newAppError(code, message, cause)
}

// WrapError 包装错误，err 为 nil 时返回 nil。
func WrapError(err error, code ErrorCode, message string) IError {
	if err == nil {
		return nil
	}
	return newAppError(code, message, err)
}

func newAppError(code ErrorCode, message string, cause error) *AppError {
	return &AppError{code: code, message: message, cause: cause, stack: captureStack(4)}
}

func (e *AppError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.code, e.message, e.cause)
	}
	return fmt.Sprintf("[%s] %s", e.code, e.message)
}

func (e *AppError) Code() ErrorCode { return e.code }
func (e *AppError) Message() string { return e.message }
func (e *AppError) Cause() error    { return e.cause }
func (e *AppError) Stack() string   { return e.stack }

// Details 返回详情副本
func (e *AppError) Details() map[string]any {
	out := make(map[string]any, len(e.details))
	for k, v := range e.details {
		out[k] = v
	}
	return out
}

// Is 同错误码的 AppError 视为相等，其余交给 cause 链。
func (e *AppError) Is(target error) bool {
	other, ok := target.(*AppError)
	return ok && e.code == other.code
}

// Unwrap 解包错误（支持 errors.Unwrap）
func (e *AppError) Unwrap() error {
	return e.cause
}

func (e *AppError) WithDetails(details map[string]any) IError {
	merged := e.Details()
	for k, v := range details {
		merged[k] = v
	}
	cp := *e
	cp.details = merged
	return &cp
}

// 预定义错误，用作 errors.Is 的比较目标或 %w 包装的分类。
var (
	ErrInternal     = NewError(ErrCodeInternal, "内部错误")
	ErrInvalidInput = NewError(ErrCodeInvalidInput, "无效的输入参数")
	ErrNotFound     = NewError(ErrCodeNotFound, "资源未找到")
	ErrConflict     = NewError(ErrCodeConflict, "资源冲突")
	ErrTimeout      = NewError(ErrCodeTimeout, "操作超时")
	ErrValidation   = NewError(ErrCodeValidation, "数据验证失败")
	ErrDuplicate    = NewError(ErrCodeDuplicate, "数据重复")
	ErrDatabase     = NewError(ErrCodeDatabase, "数据库错误")

	ErrInvalidModelBinding = NewError(ErrCodeInvalidModelBinding, "模型绑定无效")
	ErrQueryExecution      = NewError(ErrCodeQueryExecution, "查询执行失败")
	ErrUnsupported         = NewError(ErrCodeUnsupported, "当前适配器不支持该操作")
)

// IsNotFound 检查是否为未找到错误
func IsNotFound(err error) bool {
	return IsErrorCode(err, ErrCodeNotFound)
}

// IsValidation 检查是否为验证错误
func IsValidation(err error) bool {
	return IsErrorCode(err, ErrCodeValidation)
}

// IsErrorCode 检查错误链中第一个 AppError 的错误码
func IsErrorCode(err error, code ErrorCode) bool {
	var appErr *AppError
	return stdErrors.As(err, &appErr) && appErr.code == code
}

// GetErrorCode 获取错误代码；链中没有 AppError 时为 INTERNAL_ERROR，nil 为空串。
func GetErrorCode(err error) ErrorCode {
	if err == nil {
		return ""
	}
	var appErr *AppError
	if stdErrors.As(err, &appErr) {
		return appErr.code
	}
	return ErrCodeInternal
}

func captureStack(skip int) string {
	var pcs [32]uintptr
	n := runtime.Callers(skip, pcs[:])
	frames := runtime.CallersFrames(pcs[:n])

	var sb strings.Builder
	for {
		frame, more := frames.Next()
		fmt.Fprintf(&sb, "%s:%d %s\n", frame.File, frame.Line, frame.Function)
		if !more {
			break
		}
	}
	return sb.String()
}
