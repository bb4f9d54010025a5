package sql

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"repokit/data/db/dialect"
)

func TestExpandArgs(t *testing.T) {
	cond, args := expandArgs("id IN ? AND status = ?", []any{[]int64{1, 2, 3}, "active"})
	assert.Equal(t, "id IN (?, ?, ?) AND status = ?", cond)
	assert.Equal(t, []any{int64(1), int64(2), int64(3), "active"}, args)

	cond, args = expandArgs("id IN ?", []any{[]string{}})
	assert.Equal(t, "id IN (NULL)", cond)
	assert.Empty(t, args)

	id := uuid.New()
	cond, args = expandArgs("id = ? AND tag IN ?", []any{id, []string{"a"}})
	assert.Equal(t, "id = ? AND tag IN (?)", cond)
	assert.Equal(t, []any{id, "a"}, args)

	cond, args = expandArgs("code IN ?", []any{[2]int{1, 2}})
	assert.Equal(t, "code IN ?", cond)
	assert.Equal(t, []any{[2]int{1, 2}}, args)

	cond, args = expandArgs("data = ?", []any{[]byte("raw")})
	assert.Equal(t, "data = ?", cond)
	assert.Equal(t, []any{[]byte("raw")}, args)

	// 参数个数不匹配时不做改写
	cond, args = expandArgs("a = ? AND b = ?", []any{[]int{1}})
	assert.Equal(t, "a = ? AND b = ?", cond)
	assert.Len(t, args, 1)
}

func TestSelectBuilder_Build(t *testing.T) {
	b := &selectBuilder{dialect: dialect.New("sqlite"), cols: []string{"id", "name"}}
	q, args := b.From("users").
		Where("status = ?", "active").
		Or("role IN ?", []string{"admin", "owner"}).
		Where("deleted_at IS NULL").
		OrderBy("id DESC").
		Limit(10).
		Offset(20).
		ForUpdate().
		Build()

	assert.Equal(t,
		"SELECT id, name FROM users WHERE (status = ? OR role IN (?, ?)) AND deleted_at IS NULL ORDER BY id DESC LIMIT ? OFFSET ?",
		q)
	assert.Equal(t, []any{"active", "admin", "owner", 10, 20}, args)
}

func TestSelectBuilder_OffsetWithoutLimit(t *testing.T) {
	q, _ := (&selectBuilder{dialect: dialect.New("sqlite"), cols: []string{"*"}}).From("t").Offset(5).Build()
	assert.Equal(t, "SELECT * FROM t LIMIT -1 OFFSET ?", q)

	q, _ = (&selectBuilder{dialect: dialect.New("postgres"), cols: []string{"*"}}).From("t").Offset(5).Build()
	assert.Equal(t, "SELECT * FROM t OFFSET ?", q)
}

func TestSelectBuilder_ForUpdateMySQL(t *testing.T) {
	q, _ := (&selectBuilder{dialect: dialect.New("mysql"), cols: []string{"*"}}).From("t").ForUpdate().Build()
	assert.Equal(t, "SELECT * FROM t FOR UPDATE", q)
}

func TestUpdateBuilder_SetMapSorted(t *testing.T) {
	b := &updateBuilder{dialect: dialect.New("sqlite"), table: "users"}
	q, args, err := b.SetMap(map[string]any{"name": "bob", "age": 3}).
		SetExpr("version = version + ?", 2).
		Where("id IN ?", []int{7, 8}).
		Build()
	require.NoError(t, err)
	assert.Equal(t, `UPDATE "users" SET "age" = ?, "name" = ?, version = version + ? WHERE id IN (?, ?)`, q)
	assert.Equal(t, []any{3, "bob", 2, 7, 8}, args)
}

func TestUpdateBuilder_Errors(t *testing.T) {
	_, _, err := (&updateBuilder{dialect: dialect.New("sqlite"), table: "users"}).Build()
	assert.ErrorIs(t, err, ErrNoColumns)

	_, _, err = (&updateBuilder{dialect: dialect.New("sqlite"), table: "users"}).
		Set("name; --", "x").Build()
	assert.ErrorIs(t, err, ErrUnsafeIdentifier)
}

func TestDeleteBuilder_Limit(t *testing.T) {
	q, args, err := (&deleteBuilder{dialect: dialect.New("postgres"), table: "users"}).
		Where("id = ?", 1).Limit(1).Build()
	require.NoError(t, err)
	assert.Equal(t, `DELETE FROM "users" WHERE id = ?`, q)
	assert.Equal(t, []any{1}, args)

	q, _, err = (&deleteBuilder{dialect: dialect.New("mysql"), table: "users"}).
		Where("id = ?", 1).Limit(1).Build()
	require.NoError(t, err)
	assert.Equal(t, "DELETE FROM `users` WHERE id = ? LIMIT ?", q)

	_, _, err = (&deleteBuilder{dialect: dialect.New("mysql"), table: "users x"}).Build()
	assert.ErrorIs(t, err, ErrUnsafeIdentifier)
}

func TestInsertBuilder(t *testing.T) {
	q, args, err := (&insertBuilder{dialect: dialect.New("sqlite"), table: "users"}).
		Columns("name", "age").Values("a", 1).Values("b", 2).Build()
	require.NoError(t, err)
	assert.Equal(t, `INSERT INTO "users" ("name", "age") VALUES (?, ?), (?, ?)`, q)
	assert.Equal(t, []any{"a", 1, "b", 2}, args)

	_, _, err = (&insertBuilder{dialect: dialect.New("sqlite"), table: "users"}).Values(1).Build()
	assert.ErrorIs(t, err, ErrNoColumns)
	_, _, err = (&insertBuilder{dialect: dialect.New("sqlite"), table: "users"}).Columns("a").Build()
	assert.ErrorIs(t, err, ErrNoRows)
	_, _, err = (&insertBuilder{dialect: dialect.New("sqlite"), table: "users"}).
		Columns("a", "b").Values(1).Build()
	assert.ErrorContains(t, err, "1 values for 2 columns")
}

func TestCheckIdentifier(t *testing.T) {
	assert.NoError(t, CheckIdentifier("users.id"))
	assert.NoError(t, CheckIdentifier("_tmp1"))
	for _, name := range []string{"", "id; DROP TABLE", "1abc", "a..b", "users."} {
		assert.ErrorIs(t, CheckIdentifier(name), ErrUnsafeIdentifier, name)
	}
}
