// Package basic 基于 database/sql 实现 data/db 抽象。
package basic

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	core "repokit/data/db"
	"repokit/data/db/dialect"
)

const defaultPingTimeout = 3 * time.Second

// queryer 是 *sql.DB 与 *sql.Tx 的公共子集。
type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// executor 在执行前按方言改写占位符，DB 与 Tx 共用。
type executor struct {
	q       queryer
	driver  string
	dialect dialect.Dialect
}

func (e executor) Query(ctx context.Context, query string, args ...any) (core.IRows, error) {
	rows, err := e.q.QueryContext(ctx, e.dialect.Rebind(query), args...)
	if err != nil {
		return nil, err
	}
	return &Rows{rows: rows}, nil
}

func (e executor) QueryRow(ctx context.Context, query string, args ...any) core.IRow {
	return &Row{row: e.q.QueryRowContext(ctx, e.dialect.Rebind(query), args...)}
}

func (e executor) Exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return e.q.ExecContext(ctx, e.dialect.Rebind(query), args...)
}

// GetDialectName 实现 core.IDialectNameProvider，返回底层 driver 名
func (e executor) GetDialectName() string { return e.driver }

// DB 基于 database/sql 的最小实现，满足 core.IDatabase 抽象
type DB struct {
	executor
	db *sql.DB
}

// New 根据 core.DBConfig 创建数据库实例。
//
// 调用方必须确保 Driver 已通过空导入注册（例如 `_ "modernc.org/sqlite"`、
// `_ "github.com/jackc/pgx/v5/stdlib"`），basic 层不负责导入驱动。
func New(config core.DBConfig) (core.IDatabase, error) {
	driver := strings.TrimSpace(config.Driver)
	if driver == "" {
		driver = "sqlite"
	}

	db, err := sql.Open(driver, config.Database)
	if err != nil {
		return nil, err
	}

	if config.MaxOpenConns > 0 {
		db.SetMaxOpenConns(config.MaxOpenConns)
	}
	if config.MaxIdleConns > 0 {
		db.SetMaxIdleConns(config.MaxIdleConns)
	}
	if config.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(config.ConnMaxLifetime)
	}
	if config.ConnMaxIdleTime > 0 {
		db.SetConnMaxIdleTime(config.ConnMaxIdleTime)
	}

	timeout := defaultPingTimeout
	if config.PingTimeout > 0 {
		timeout = config.PingTimeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return Wrap(db, driver), nil
}

// Wrap 包装已打开的 *sql.DB，driver 用于推断方言。
func Wrap(db *sql.DB, driver string) *DB {
	return &DB{executor: executor{q: db, driver: driver, dialect: dialect.New(driver)}, db: db}
}

func (d *DB) Begin(ctx context.Context) (core.ITransaction, error) {
	return d.BeginTx(ctx, nil)
}

func (d *DB) BeginTx(ctx context.Context, opts *sql.TxOptions) (core.ITransaction, error) {
	tx, err := d.db.BeginTx(ctx, opts)
	if err != nil {
		return nil, err
	}
	return &Tx{executor: executor{q: tx, driver: d.driver, dialect: d.dialect}, db: d.db, tx: tx}, nil
}

func (d *DB) Ping(ctx context.Context) error { return d.db.PingContext(ctx) }
func (d *DB) Close() error                   { return d.db.Close() }
func (d *DB) Raw() any                       { return d.db }

// ExecDDL 执行建表等 DDL 语句（测试与命令行初始化使用）
func (d *DB) ExecDDL(ctx context.Context, stmts ...string) error {
	if d.db == nil {
		return fmt.Errorf("basic.DB: db is nil")
	}
	for _, stmt := range stmts {
		if _, err := d.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
