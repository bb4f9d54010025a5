// Package changefeed 定义仓储写操作的变更事件及其发布通道。
//
// 仓储在 Create / Save / Update / Destroy 成功后发布事件；
// 发布失败只记录日志，不影响已经完成的写入。
package changefeed

import (
	"time"

	"github.com/google/uuid"
)

// Op 变更类型
type Op string

const (
	OpCreate Op = "create"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
)

// Event 描述一次写操作。
//
// Keys 为受影响记录的主键（已知时）；Filter 为按条件写入时的条件描述；
// Values 为写入的列值。
type Event struct {
	ID        string         `json:"id"`
	Table     string         `json:"table"`
	Op        Op             `json:"op"`
	Keys      []any          `json:"keys,omitempty"`
	Filter    []string       `json:"filter,omitempty"`
	Values    map[string]any `json:"values,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// NewEvent 创建带唯一 ID 与当前时间的事件。
func NewEvent(table string, op Op) Event {
	return Event{
		ID:        uuid.NewString(),
		Table:     table,
		Op:        op,
		Timestamp: time.Now().UTC(),
	}
}

// WithKeys 返回设置了主键的事件副本。
func (e Event) WithKeys(keys ...any) Event {
	e.Keys = append([]any(nil), keys...)
	return e
}

// WithValues 返回设置了列值的事件副本。
func (e Event) WithValues(values map[string]any) Event {
	if len(values) == 0 {
		return e
	}
	cp := make(map[string]any, len(values))
	for k, v := range values {
		cp[k] = v
	}
	e.Values = cp
	return e
}

// WithFilter 返回设置了条件描述的事件副本。
func (e Event) WithFilter(filter ...string) Event {
	e.Filter = append([]string(nil), filter...)
	return e
}

// Subject 返回事件的主题名：<prefix><table>.<op>
func (e Event) Subject(prefix string) string {
	return prefix + e.Table + "." + string(e.Op)
}
