// Package basic 提供基于 data/db 与 data/db/sql 的反射式 IOrm 实现。
//
// 适配器不依赖第三方 ORM，只覆盖仓储需要的查询与增删改；
// 不支持关联预加载，带 Preload 的查询返回 orm.ErrUnsupported。
package basic

import (
	"context"
	"database/sql"
	"fmt"
	"reflect"
	"sync"

	dbcore "repokit/data/db"
	dbsql "repokit/data/db/sql"
	"repokit/data/orm"
)

// Orm 是基于 IDatabase 的轻量 IOrm 实现。
type Orm struct {
	db   dbcore.IDatabase
	sql  dbsql.ISql
	caps orm.Capabilities

	mu        sync.RWMutex
	structMap map[reflect.Type]*structMeta
}

// New 创建一个基于指定 IDatabase 的 Orm 适配器。
func New(db dbcore.IDatabase) *Orm {
	return &Orm{
		db:  db,
		sql: dbsql.New(db),
		caps: orm.NewCapabilities(
			orm.CapabilityBasicCRUD,
			orm.CapabilityQuery,
			orm.CapabilityBatchWrite,
			orm.CapabilityTransaction,
			orm.CapabilityMapScan,
		),
		structMap: make(map[reflect.Type]*structMeta),
	}
}

// Capabilities 返回适配器支持的能力。
func (o *Orm) Capabilities() orm.Capabilities { return o.caps }

// Model 返回模型级操作入口，表名无法解析时 panic。
func (o *Orm) Model(meta *orm.ModelMeta) orm.IModel {
	if meta == nil {
		panic("basic.Orm: ModelMeta cannot be nil")
	}
	table := meta.ResolveTable()
	if table == "" {
		panic("basic.Orm: table name is empty")
	}
	return &model{orm: o, meta: meta, table: table}
}

// Begin 开启事务会话。
func (o *Orm) Begin(ctx context.Context) (orm.IOrmSession, error) {
	return o.BeginTx(ctx, nil)
}

// BeginTx 开启带选项的事务会话。
func (o *Orm) BeginTx(ctx context.Context, opts *sql.TxOptions) (orm.IOrmSession, error) {
	tx, err := o.db.BeginTx(ctx, opts)
	if err != nil {
		return nil, err
	}
	inner := New(tx)
	// 事务会话复用已解析的结构体元信息
	o.mu.RLock()
	for t, sm := range o.structMap {
		inner.structMap[t] = sm
	}
	o.mu.RUnlock()
	return &session{Orm: inner, tx: tx}, nil
}

// Database 返回底层数据库抽象。
func (o *Orm) Database() dbcore.IDatabase { return o.db }

// Raw 返回底层实现（此处为 dbcore.IDatabase）。
func (o *Orm) Raw() any { return o.db }

type session struct {
	*Orm
	tx dbcore.ITransaction
}

func (s *session) Commit() error {
	if s.tx == nil {
		return fmt.Errorf("basic.session: tx is nil")
	}
	return s.tx.Commit()
}

func (s *session) Rollback() error {
	if s.tx == nil {
		return fmt.Errorf("basic.session: tx is nil")
	}
	return s.tx.Rollback()
}

var (
	_ orm.IOrm        = (*Orm)(nil)
	_ orm.IOrmSession = (*session)(nil)
)
