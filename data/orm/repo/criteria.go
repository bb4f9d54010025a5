package repo

import (
	"context"
	"reflect"

	"repokit/data/orm"
)

// CriterionKind 是条件的稳定类别标识，仅用于重复判定与移除。
type CriterionKind string

// ICriterion 表示可复用的查询条件。
//
// Apply 接收当前查询上下文并返回新的查询上下文；实现应为不可变值，
// 可以在多个仓储之间共享。Apply 期间不得修改仓储的条件集合。
type ICriterion interface {
	Kind() CriterionKind
	Apply(ctx context.Context, q Query, r IRepositoryContext) (Query, error)
}

// IRepositoryContext 是条件在应用时可回调的仓储只读视图。
type IRepositoryContext interface {
	Table() string
	PrimaryKey() string
	Meta() *orm.ModelMeta
	Capabilities() orm.Capabilities
}

// CriteriaSet 是按插入顺序排列的条件集合，由单个仓储独占。
type CriteriaSet struct {
	items          []ICriterion
	preventDupKind bool
}

// NewCriteriaSet 创建空集合；preventDuplicates 为 true 时同类别条件只保留最新一个。
func NewCriteriaSet(preventDuplicates bool) *CriteriaSet {
	return &CriteriaSet{preventDupKind: preventDuplicates}
}

// Push 追加条件；开启去重时先移除已存在的同类别条件。nil 被忽略。
func (s *CriteriaSet) Push(c ICriterion) {
	if isNilCriterion(c) {
		return
	}
	if s.preventDupKind {
		s.Remove(c.Kind())
	}
	s.items = append(s.items, c)
}

// Remove 移除指定类别的第一个条件，返回是否发生移除。
func (s *CriteriaSet) Remove(kind CriterionKind) bool {
	for i, item := range s.items {
		if isNilCriterion(item) || item.Kind() != kind {
			continue
		}
		s.items = append(s.items[:i:i], s.items[i+1:]...)
		return true
	}
	return false
}

// Snapshot 返回集合的副本，修改副本不影响集合本身。
func (s *CriteriaSet) Snapshot() []ICriterion {
	out := make([]ICriterion, len(s.items))
	copy(out, s.items)
	return out
}

func (s *CriteriaSet) Len() int { return len(s.items) }

// Has 判断集合中是否存在指定类别。
func (s *CriteriaSet) Has(kind CriterionKind) bool {
	for _, item := range s.items {
		if !isNilCriterion(item) && item.Kind() == kind {
			return true
		}
	}
	return false
}

// isNilCriterion 同时识别无类型 nil 与带类型的 nil 指针。
func isNilCriterion(c ICriterion) bool {
	if c == nil {
		return true
	}
	v := reflect.ValueOf(c)
	switch v.Kind() {
	case reflect.Ptr, reflect.Func, reflect.Map, reflect.Slice, reflect.Interface:
		return v.IsNil()
	}
	return false
}
