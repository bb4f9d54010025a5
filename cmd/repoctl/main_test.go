package main

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"repokit/data/orm"
	apperrors "repokit/errors"
)

// seed 在临时目录建 sqlite 库并写入 notes 表。
func seed(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	chdir(t, dir)
	path := filepath.Join(dir, "notes.db")

	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	defer db.Close()
	_, err = db.Exec(`CREATE TABLE notes (
		id INTEGER PRIMARY KEY,
		title TEXT NOT NULL,
		owner_id INTEGER NOT NULL,
		deleted_at TEXT
	)`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO notes (id, title, owner_id, deleted_at) VALUES
		(1, 'alpha', 1, NULL),
		(2, 'beta', 1, '2024-01-01'),
		(3, 'gamma', 2, NULL),
		(4, 'delta', 2, NULL),
		(5, 'epsilon', 3, NULL)`)
	require.NoError(t, err)
	return path
}

func run(t *testing.T, dsn string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	base := []string{"--engine", "basic", "--driver", "sqlite", "--dsn", dsn, "--log-level", "error"}
	cmd.SetArgs(append(args[:1:1], append(base, args[1:]...)...))
	err := cmd.Execute()
	return out.String(), err
}

func decodeRows(t *testing.T, out string) []map[string]any {
	t.Helper()
	var rows []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &rows))
	return rows
}

func ids(rows []map[string]any) []float64 {
	out := make([]float64, len(rows))
	for i, row := range rows {
		out[i], _ = row["id"].(float64)
	}
	return out
}

func TestList(t *testing.T) {
	dsn := seed(t)

	out, err := run(t, dsn, "list", "notes", "--not-deleted", "--order", "id:desc")
	require.NoError(t, err)
	assert.Equal(t, []float64{5, 4, 3, 1}, ids(decodeRows(t, out)))

	out, err = run(t, dsn, "list", "notes", "--where", "owner_id:in:1,2", "--order", "id", "--limit", "2")
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2}, ids(decodeRows(t, out)))

	out, err = run(t, dsn, "list", "notes", "--search", "title=lt", "--columns", "id,title")
	require.NoError(t, err)
	rows := decodeRows(t, out)
	assert.Equal(t, []float64{4}, ids(rows))
	assert.Len(t, rows[0], 2)
}

func TestList_OwnerAndSkipCriteria(t *testing.T) {
	dsn := seed(t)

	out, err := run(t, dsn, "list", "notes", "--owner", "owner_id", "--requester", "2", "--order", "id")
	require.NoError(t, err)
	assert.Equal(t, []float64{3, 4}, ids(decodeRows(t, out)))

	out, err = run(t, dsn, "list", "notes", "--where", "owner_id:=:9", "--skip-criteria")
	require.NoError(t, err)
	assert.Len(t, decodeRows(t, out), 5)
}

func TestList_Paginate(t *testing.T) {
	dsn := seed(t)

	out, err := run(t, dsn, "list", "notes", "--order", "id", "--page", "2", "--per-page", "2")
	require.NoError(t, err)
	var page struct {
		Data       []map[string]any `json:"data"`
		Total      int64            `json:"total"`
		TotalPages int              `json:"total_pages"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &page))
	assert.Equal(t, []float64{3, 4}, ids(page.Data))
	assert.Equal(t, int64(5), page.Total)
	assert.Equal(t, 3, page.TotalPages)

	out, err = run(t, dsn, "list", "notes", "--order", "id", "--page", "3", "--per-page", "2", "--simple")
	require.NoError(t, err)
	var simple struct {
		Data    []map[string]any `json:"data"`
		HasMore bool             `json:"has_more"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &simple))
	assert.Equal(t, []float64{5}, ids(simple.Data))
	assert.False(t, simple.HasMore)
}

func TestFindAndCount(t *testing.T) {
	dsn := seed(t)

	out, err := run(t, dsn, "find", "notes", "3")
	require.NoError(t, err)
	assert.Contains(t, out, `"gamma"`)

	out, err = run(t, dsn, "find", "notes", "delta", "--field", "title")
	require.NoError(t, err)
	assert.Contains(t, out, `"id": 4`)

	_, err = run(t, dsn, "find", "notes", "42")
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeNotFound, apperrors.GetErrorCode(err))

	out, err = run(t, dsn, "count", "notes", "--only-deleted")
	require.NoError(t, err)
	assert.Equal(t, "1", strings.TrimSpace(out))
}

func TestUpdateAndDelete(t *testing.T) {
	dsn := seed(t)

	_, err := run(t, dsn, "update", "notes", "1", "--set", "title=renamed")
	require.NoError(t, err)
	out, err := run(t, dsn, "find", "notes", "1")
	require.NoError(t, err)
	assert.Contains(t, out, `"renamed"`)

	_, err = run(t, dsn, "delete", "notes", "5")
	require.NoError(t, err)
	_, err = run(t, dsn, "delete", "notes", "--where", "owner_id:=:2")
	require.NoError(t, err)
	out, err = run(t, dsn, "count", "notes")
	require.NoError(t, err)
	assert.Equal(t, "2", strings.TrimSpace(out))

	_, err = run(t, dsn, "delete", "notes")
	assert.ErrorIs(t, err, orm.ErrMissingWhere)
}

func TestInvalidInput(t *testing.T) {
	dsn := seed(t)

	_, err := run(t, dsn, "list", "notes", "--where", "owner_id")
	assert.ErrorContains(t, err, "expected field:op:value")
	assert.True(t, apperrors.IsValidation(err))

	_, err = run(t, dsn, "list", "notes", "--where", "owner_id:~:1")
	assert.Error(t, err)

	_, err = run(t, dsn, "list", "notes", "--engine", "nope")
	assert.Error(t, err)
}

func TestParseValue(t *testing.T) {
	cases := map[string]any{
		"12":    int64(12),
		"1.5":   1.5,
		"true":  true,
		"null":  nil,
		"hello": "hello",
		"1":     int64(1),
	}
	for in, want := range cases {
		assert.Equal(t, want, parseValue(in), in)
	}
}

// chdir changes the working directory for the duration of the test
// (equivalent of testing.T.Chdir, which requires Go 1.24).
func chdir(t *testing.T, dir string) {
	t.Helper()
	old, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(old); err != nil {
			t.Fatal(err)
		}
	})
}
