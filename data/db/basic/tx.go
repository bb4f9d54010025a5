package basic

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	core "repokit/data/db"
)

var errNestedTx = fmt.Errorf("basic.Tx: nested transactions are not supported")

// Tx 包装 *sql.Tx，同时满足 core.IDatabase，可直接交给 ORM 会话。
type Tx struct {
	executor
	db *sql.DB
	tx *sql.Tx
}

func (t *Tx) Begin(context.Context) (core.ITransaction, error) { return nil, errNestedTx }

func (t *Tx) BeginTx(context.Context, *sql.TxOptions) (core.ITransaction, error) {
	return nil, errNestedTx
}

func (t *Tx) Ping(ctx context.Context) error { return t.db.PingContext(ctx) }
func (t *Tx) Close() error                   { return nil }
func (t *Tx) Raw() any                       { return t.tx }

func (t *Tx) Commit() error { return t.tx.Commit() }

// Rollback 在事务已结束时返回 nil，便于 defer 调用。
func (t *Tx) Rollback() error {
	if err := t.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return err
	}
	return nil
}
