// Package orm 定义仓储依赖的数据访问协作者。
//
// 仓储只面向 IOrm / IModel 编程；data/orm/basic 与 data/orm/gormorm 提供两种适配器。
package orm

import (
	"context"
	"database/sql"
)

// IOrm 表示 ORM 适配器入口。
type IOrm interface {
	// Capabilities 返回适配器支持的能力集合。
	Capabilities() Capabilities
	// Model 返回指定模型的操作入口。
	Model(meta *ModelMeta) IModel
	// Begin 开启事务会话。
	Begin(ctx context.Context) (IOrmSession, error)
	// BeginTx 开启带选项的事务会话。
	BeginTx(ctx context.Context, opts *sql.TxOptions) (IOrmSession, error)
	// Raw 返回底层引擎实例（db.IDatabase 或 *gorm.DB）。
	Raw() any
}

// IOrmSession 表示事务会话。
type IOrmSession interface {
	IOrm
	Commit() error
	Rollback() error
}

// IModel 封装模型级别的基础操作。
//
// dest 支持 *T、*[]T（T 为结构体），具备 CapabilityMapScan 的适配器
// 另外支持 *map[string]any 与 *[]map[string]any。
type IModel interface {
	Meta() *ModelMeta
	Table() string
	Capabilities() Capabilities

	First(ctx context.Context, dest any, opts ...QueryOption) error
	Find(ctx context.Context, dest any, opts ...QueryOption) error
	Count(ctx context.Context, opts ...QueryOption) (int64, error)

	Create(ctx context.Context, entities ...any) error
	// Save 用实体全部列更新匹配 opts 条件的记录，通常结合主键条件。
	Save(ctx context.Context, entity any, opts ...QueryOption) error
	UpdateValues(ctx context.Context, values map[string]any, opts ...QueryOption) error
	Delete(ctx context.Context, opts ...QueryOption) error
}
