package logging

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func newBufferLogger(prefix string) (*StdLogger, *bytes.Buffer) {
	var buf bytes.Buffer
	return NewStdLogger(prefix).SetOutput(&buf), &buf
}

func TestFieldConstructors(t *testing.T) {
	err := errors.New("boom")
	tests := []struct {
		field Field
		key   string
		value any
	}{
		{String("table", "users"), "table", "users"},
		{Int("count", 3), "count", 3},
		{Int64("id", 7), "id", int64(7)},
		{Uint64("seq", 9), "seq", uint64(9)},
		{Float64("ratio", 0.5), "ratio", 0.5},
		{Bool("skip", true), "skip", true},
		{Duration("elapsed", time.Second), "elapsed", time.Second},
		{Any("ids", []int{1, 2}), "ids", []int{1, 2}},
		{Error(err), "error", err},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			assert.Equal(t, tt.key, tt.field.Key)
			assert.Equal(t, tt.value, tt.field.Value)
		})
	}
}

func TestFormatValue(t *testing.T) {
	assert.Equal(t, "users", formatValue("users"))
	assert.Equal(t, "boom", formatValue(errors.New("boom")))
	assert.Equal(t, "42", formatValue(42))
	assert.Equal(t, "[1 2]", formatValue([]int{1, 2}))
	assert.Equal(t, "<nil>", formatValue(nil))
}

func TestStdLogger_Levels(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		log  func(l *StdLogger)
		want string
	}{
		{func(l *StdLogger) { l.Debug(ctx, "criteria applied") }, "[DEBUG] repo criteria applied"},
		{func(l *StdLogger) { l.Info(ctx, "rows updated") }, "[INFO] repo rows updated"},
		{func(l *StdLogger) { l.Warn(ctx, "publish failed") }, "[WARN] repo publish failed"},
		{func(l *StdLogger) { l.Error(ctx, "sql failed") }, "[ERROR] repo sql failed"},
	}
	for _, tt := range tests {
		l, buf := newBufferLogger("repo")
		tt.log(l)
		assert.Equal(t, tt.want+"\n", buf.String())
	}
}

func TestStdLogger_SetLevelFilters(t *testing.T) {
	l, buf := newBufferLogger("")
	l.SetLevel(WarnLevel)
	ctx := context.Background()

	l.Debug(ctx, "d")
	l.Info(ctx, "i")
	l.Warn(ctx, "w")
	l.Error(ctx, "e")
	assert.Equal(t, "[WARN] w\n[ERROR] e\n", buf.String())
}

func TestStdLogger_FieldOrder(t *testing.T) {
	l, buf := newBufferLogger("repo")
	ctx := ContextWithFields(context.Background(), String("command", "list"))
	ctx = ContextWithFields(ctx, String("engine", "basic"))

	l.WithFields(String("table", "users")).
		Info(ctx, "query", Int("rows", 2), Error(errors.New("none")))

	// 顺序：Logger 字段、ctx 字段、调用字段
	assert.Equal(t, "[INFO] repo query table=users command=list engine=basic rows=2 error=none\n", buf.String())
	assert.Len(t, FieldsFromContext(ctx), 2)
}

func TestStdLogger_WithFieldsImmutable(t *testing.T) {
	base, buf := newBufferLogger("")
	child := base.WithFields(String("table", "users"))
	_ = child.WithFields(String("op", "all"))

	base.Info(context.Background(), "base")
	child.Info(context.Background(), "child")
	assert.Equal(t, "[INFO] base\n[INFO] child table=users\n", buf.String())
}

func TestStdLogger_WithFieldsKeepsLevel(t *testing.T) {
	base, buf := newBufferLogger("")
	base.SetLevel(ErrorLevel)
	base.WithFields(String("k", "v")).Warn(context.Background(), "dropped")
	assert.Empty(t, buf.String())
}

func TestContextWithFields(t *testing.T) {
	ctx := context.Background()
	assert.Equal(t, ctx, ContextWithFields(ctx))
	assert.Nil(t, FieldsFromContext(ctx))

	parent := ContextWithFields(ctx, String("a", "1"))
	child := ContextWithFields(parent, String("b", "2"))
	assert.Len(t, FieldsFromContext(parent), 1)
	assert.Equal(t, []Field{String("a", "1"), String("b", "2")}, FieldsFromContext(child))
}

func TestLevelString(t *testing.T) {
	assert.Equal(t, "debug", DebugLevel.String())
	assert.Equal(t, "error", ErrorLevel.String())
	assert.Equal(t, "level(9)", Level(9).String())
}

func TestNoopLogger(t *testing.T) {
	l := NewNoopLogger()
	assert.Same(t, l, l.WithFields(String("k", "v")))
	assert.NotPanics(t, func() { l.Error(context.Background(), "ignored") })
}

func TestGlobalLogger(t *testing.T) {
	prev := GetLogger()
	defer SetLogger(prev)

	l, buf := newBufferLogger("global")
	SetLogger(l)
	GetLogger().Info(context.Background(), "hello")
	assert.True(t, strings.HasPrefix(buf.String(), "[INFO] global hello"))
}

func BenchmarkStdLogger_Info(b *testing.B) {
	var buf bytes.Buffer
	l := NewStdLogger("bench").SetOutput(&buf)
	ctx := context.Background()
	for i := 0; i < b.N; i++ {
		buf.Reset()
		l.Info(ctx, "query", String("table", "users"), Int("rows", i))
	}
}
