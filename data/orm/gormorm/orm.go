// Package gormorm 基于 gorm 实现 orm.IOrm，支持关联预加载。
package gormorm

import (
	"context"
	"database/sql"
	"fmt"

	"gorm.io/gorm"

	"repokit/data/orm"
	"repokit/logging"
)

// Config 打开 gorm 连接时使用的选项。
type Config struct {
	Logger   logging.Logger
	LogLevel string
	// DryRun 只生成 SQL 不执行，用于测试与调试。
	DryRun bool
	Slow   LoggerConfig
}

// Orm 是 gorm 适配器。
type Orm struct {
	db   *gorm.DB
	caps orm.Capabilities
}

// New 包装已有的 *gorm.DB。
func New(db *gorm.DB) *Orm {
	return &Orm{
		db: db,
		caps: orm.NewCapabilities(
			orm.CapabilityBasicCRUD,
			orm.CapabilityQuery,
			orm.CapabilityPreload,
			orm.CapabilityBatchWrite,
			orm.CapabilityTransaction,
			orm.CapabilityMapScan,
		),
	}
}

// Open 用指定方言打开连接，gorm 日志接入 logging.Logger。
func Open(dialector gorm.Dialector, cfg Config) (*Orm, error) {
	slow := cfg.Slow
	if slow == (LoggerConfig{}) {
		slow = DefaultLoggerConfig()
	}
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:                 NewLogger(cfg.Logger, ParseLogLevel(cfg.LogLevel), slow),
		DryRun:                 cfg.DryRun,
		DisableAutomaticPing:   cfg.DryRun,
		SkipDefaultTransaction: true,
	})
	if err != nil {
		return nil, fmt.Errorf("gormorm: open: %w", err)
	}
	return New(db), nil
}

func (o *Orm) Capabilities() orm.Capabilities { return o.caps }

// Model 返回模型级操作入口，表名无法解析时 panic。
func (o *Orm) Model(meta *orm.ModelMeta) orm.IModel {
	if meta == nil {
		panic("gormorm: ModelMeta cannot be nil")
	}
	table := meta.ResolveTable()
	if table == "" {
		panic("gormorm: table name is empty")
	}
	return &model{orm: o, meta: meta, table: table}
}

func (o *Orm) Begin(ctx context.Context) (orm.IOrmSession, error) {
	return o.BeginTx(ctx, nil)
}

func (o *Orm) BeginTx(ctx context.Context, opts *sql.TxOptions) (orm.IOrmSession, error) {
	tx := o.db.WithContext(ctx).Begin(opts)
	if tx.Error != nil {
		return nil, tx.Error
	}
	return &session{Orm: &Orm{db: tx, caps: o.caps}}, nil
}

// DB 返回底层 *gorm.DB。
func (o *Orm) DB() *gorm.DB { return o.db }

func (o *Orm) Raw() any { return o.db }

type session struct {
	*Orm
}

func (s *session) Commit() error   { return s.db.Commit().Error }
func (s *session) Rollback() error { return s.db.Rollback().Error }

var (
	_ orm.IOrm        = (*Orm)(nil)
	_ orm.IOrmSession = (*session)(nil)
)
