// Package db 定义仓储层使用的最小数据库抽象。
//
// 上层（data/orm/basic、data/db/sql）只依赖这里的接口，具体连接由 data/db/basic
// 基于 database/sql 提供，驱动通过空导入注册（sqlite、pgx 等）。
package db

import (
	"context"
	"database/sql"
	"time"
)

// IQueryer 执行 SQL，占位符统一使用 ?，由实现按方言改写。
type IQueryer interface {
	Query(ctx context.Context, query string, args ...any) (IRows, error)
	QueryRow(ctx context.Context, query string, args ...any) IRow
	Exec(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// IDatabase 是连接池或事务；事务不支持嵌套 Begin。
type IDatabase interface {
	IQueryer

	Begin(ctx context.Context) (ITransaction, error)
	BeginTx(ctx context.Context, opts *sql.TxOptions) (ITransaction, error)

	Ping(ctx context.Context) error
	Close() error

	// Raw 返回底层连接（*sql.DB / *sql.Tx）
	Raw() any
}

// IDialectNameProvider 可选接口：提供底层数据库方言名称，
// 例如 "mysql"、"sqlite"、"postgres"、"pgx"。
type IDialectNameProvider interface {
	GetDialectName() string
}

// ITransaction 事务接口
type ITransaction interface {
	IDatabase

	Commit() error
	Rollback() error
}

// IRows 查询结果集接口
type IRows interface {
	Next() bool
	Scan(dest ...any) error
	Close() error
	Err() error

	Columns() ([]string, error)
	ColumnTypes() ([]*sql.ColumnType, error)
}

// IRow 单行结果接口
type IRow interface {
	Scan(dest ...any) error
	Err() error
}

// DBConfig 数据库配置
//
// Database 直接作为 DSN 交给驱动：sqlite 为文件路径或 ":memory:"，
// pgx 为 postgres:// URL，mysql 为 go-sql-driver DSN。
// 时长字段在配置文件中写作 "5m"、"3s"，零值表示不设置。
type DBConfig struct {
	Driver   string `mapstructure:"driver"`
	Database string `mapstructure:"database"`

	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	PingTimeout     time.Duration `mapstructure:"ping_timeout"`
}
