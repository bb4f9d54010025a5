package errors

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	dbsql "repokit/data/db/sql"
	"repokit/data/orm"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code ErrorCode
	}{
		{"未找到", fmt.Errorf("find: %w", orm.ErrNotFound), ErrCodeNotFound},
		{"不支持", orm.ErrUnsupported, ErrCodeUnsupported},
		{"缺少条件", orm.ErrMissingWhere, ErrCodeInvalidInput},
		{"非法列名", fmt.Errorf("update: %w", dbsql.ErrUnsafeIdentifier), ErrCodeInvalidInput},
		{"唯一键冲突", errors.New("constraint failed: UNIQUE constraint failed: users.name (2067)"), ErrCodeDuplicate},
		{"超时", fmt.Errorf("query: %w", context.DeadlineExceeded), ErrCodeTimeout},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Normalize(tt.err)
			assert.True(t, IsErrorCode(got, tt.code), "got %v", got)
			assert.ErrorIs(t, got, tt.err)
		})
	}
}

func TestNormalize_PassThrough(t *testing.T) {
	assert.Nil(t, Normalize(nil))

	// 已带错误码的错误链原样返回
	binding := fmt.Errorf("repo: %w", ErrInvalidModelBinding)
	assert.Same(t, binding, Normalize(binding))

	plain := errors.New("no such table: ghosts")
	assert.Same(t, plain, Normalize(plain))
}
