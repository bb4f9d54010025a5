package basic

import (
	"context"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	core "repokit/data/db"
	dbbasic "repokit/data/db/basic"
	dbsql "repokit/data/db/sql"
	"repokit/data/orm"
)

type widget struct {
	ID     int64  `gorm:"column:id;primaryKey"`
	Name   string `gorm:"column:name"`
	Color  string `db:"color"`
	Weight int
	Tags   []string
}

func (widget) TableName() string { return "widgets" }

func newTestOrm(t *testing.T) *Orm {
	t.Helper()
	database, err := dbbasic.New(core.DBConfig{Driver: "sqlite", Database: ":memory:", MaxOpenConns: 1})
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close() })

	_, err = database.Exec(context.Background(), `CREATE TABLE widgets (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		color TEXT NOT NULL DEFAULT '',
		weight INTEGER NOT NULL DEFAULT 0
	)`)
	require.NoError(t, err)
	return New(database)
}

func seedWidgets(t *testing.T, m orm.IModel) {
	t.Helper()
	require.NoError(t, m.Create(context.Background(),
		&widget{Name: "a", Color: "red", Weight: 1},
		&widget{Name: "b", Color: "blue", Weight: 2},
		&widget{Name: "c", Color: "red", Weight: 3},
	))
}

func TestModel_CreateBackfillsAutoIncrementKey(t *testing.T) {
	o := newTestOrm(t)
	m := o.Model(&orm.ModelMeta{Model: &widget{}})
	assert.Equal(t, "widgets", m.Table())

	w := &widget{Name: "solo", Color: "green"}
	require.NoError(t, m.Create(context.Background(), w))
	assert.Equal(t, int64(1), w.ID)
}

func TestModel_FindWithConditions(t *testing.T) {
	ctx := context.Background()
	o := newTestOrm(t)
	m := o.Model(&orm.ModelMeta{Model: &widget{}})
	seedWidgets(t, m)

	var out []widget
	require.NoError(t, m.Find(ctx, &out,
		orm.WithWhere("color = ?", "red"),
		orm.WithOrderBy("weight", true),
	))
	require.Len(t, out, 2)
	assert.Equal(t, "c", out[0].Name)
	assert.Equal(t, 3, out[0].Weight)

	var ptrs []*widget
	require.NoError(t, m.Find(ctx, &ptrs,
		orm.WithWhere("name IN ?", []string{"a", "b"}),
		orm.WithOrWhere("weight > ?", 2),
		orm.WithOrderBy("id", false),
	))
	require.Len(t, ptrs, 3)
	assert.Equal(t, "a", ptrs[0].Name)
}

func TestModel_FirstNotFound(t *testing.T) {
	o := newTestOrm(t)
	m := o.Model(&orm.ModelMeta{Model: &widget{}})

	var w widget
	err := m.First(context.Background(), &w, orm.WithWhere("id = ?", 42))
	assert.ErrorIs(t, err, orm.ErrNotFound)
}

func TestModel_FindIntoMaps(t *testing.T) {
	ctx := context.Background()
	o := newTestOrm(t)
	seedWidgets(t, o.Model(&orm.ModelMeta{Model: &widget{}}))
	m := o.Model(&orm.ModelMeta{Table: "widgets"})

	var rows []map[string]any
	require.NoError(t, m.Find(ctx, &rows, orm.WithSelect("name", "weight"), orm.WithOrderBy("id", false)))
	require.Len(t, rows, 3)
	assert.Equal(t, "a", rows[0]["name"])
	assert.EqualValues(t, 1, rows[0]["weight"])

	var one map[string]any
	require.NoError(t, m.First(ctx, &one, orm.WithWhere("name = ?", "b")))
	assert.Equal(t, "blue", one["color"])
}

func TestModel_CountAndGroupedCount(t *testing.T) {
	ctx := context.Background()
	o := newTestOrm(t)
	m := o.Model(&orm.ModelMeta{Model: &widget{}})
	seedWidgets(t, m)

	n, err := m.Count(ctx, orm.WithWhere("color = ?", "red"), orm.WithLimit(1))
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	n, err = m.Count(ctx, orm.WithGroupBy("color"))
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	n, err = m.Count(ctx, orm.WithGroupBy("color"), orm.WithHaving("COUNT(*) > ?", 1))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestModel_PreloadUnsupported(t *testing.T) {
	o := newTestOrm(t)
	m := o.Model(&orm.ModelMeta{Model: &widget{}})
	assert.False(t, m.Capabilities().Supports(orm.CapabilityPreload))

	var out []widget
	err := m.Find(context.Background(), &out, orm.WithPreload("parts"))
	assert.ErrorIs(t, err, orm.ErrUnsupported)
}

func TestModel_UpdateSaveDelete(t *testing.T) {
	ctx := context.Background()
	o := newTestOrm(t)
	m := o.Model(&orm.ModelMeta{Model: &widget{}})
	seedWidgets(t, m)

	require.NoError(t, m.UpdateValues(ctx, map[string]any{"color": "black"}, orm.WithWhere("weight >= ?", 2)))
	n, err := m.Count(ctx, orm.WithWhere("color = ?", "black"))
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	var w widget
	require.NoError(t, m.First(ctx, &w, orm.WithWhere("name = ?", "a")))
	w.Weight = 10
	require.NoError(t, m.Save(ctx, &w, orm.WithWhere("id = ?", w.ID)))

	var got widget
	require.NoError(t, m.First(ctx, &got, orm.WithWhere("id = ?", w.ID)))
	assert.Equal(t, 10, got.Weight)

	require.NoError(t, m.Delete(ctx, orm.WithWhere("id IN ?", []int64{1, 2})))
	n, err = m.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestModel_WritesRequireWhere(t *testing.T) {
	ctx := context.Background()
	o := newTestOrm(t)
	m := o.Model(&orm.ModelMeta{Model: &widget{}})

	assert.ErrorIs(t, m.Delete(ctx), orm.ErrMissingWhere)
	assert.ErrorIs(t, m.UpdateValues(ctx, map[string]any{"name": "x"}), orm.ErrMissingWhere)
	assert.ErrorIs(t, m.Save(ctx, &widget{Name: "x"}), orm.ErrMissingWhere)
}

func TestModel_CreateRecord(t *testing.T) {
	ctx := context.Background()
	o := newTestOrm(t)
	m := o.Model(&orm.ModelMeta{Table: "widgets"})

	require.NoError(t, m.Create(ctx, map[string]any{"name": "rec", "color": "teal", "weight": 7}))

	var rows []map[string]any
	require.NoError(t, m.Find(ctx, &rows, orm.WithWhere("color = ?", "teal")))
	require.Len(t, rows, 1)
	assert.Equal(t, "rec", rows[0]["name"])
}

func TestOrm_TransactionRollback(t *testing.T) {
	ctx := context.Background()
	o := newTestOrm(t)

	sess, err := o.Begin(ctx)
	require.NoError(t, err)
	tm := sess.Model(&orm.ModelMeta{Model: &widget{}})
	require.NoError(t, tm.Create(ctx, &widget{Name: "tx"}))
	require.NoError(t, sess.Rollback())

	n, err := o.Model(&orm.ModelMeta{Model: &widget{}}).Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func TestModel_UnsafeRecordColumns(t *testing.T) {
	ctx := context.Background()
	o := newTestOrm(t)
	m := o.Model(&orm.ModelMeta{Table: "widgets"})

	err := m.Create(ctx, map[string]any{"name": "x", "color) VALUES ('y'); --": "z"})
	assert.ErrorIs(t, err, dbsql.ErrUnsafeIdentifier)

	err = m.UpdateValues(ctx, map[string]any{"name = 'x', weight": 1}, orm.WithWhere("id = ?", 1))
	assert.ErrorIs(t, err, dbsql.ErrUnsafeIdentifier)

	n, err := m.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestBuildStructMeta(t *testing.T) {
	sm := buildStructMeta(reflect.TypeOf(widget{}))
	cols := make([]string, 0, len(sm.fields))
	for _, f := range sm.fields {
		cols = append(cols, f.Column)
	}
	assert.Equal(t, []string{"id", "name", "color", "weight"}, cols)

	pk, ok := sm.autoIncrementKey()
	require.True(t, ok)
	assert.Equal(t, "id", pk.Column)

	assert.Equal(t, "user_id", toSnakeCase("UserID"))
	assert.Equal(t, "created_at", toSnakeCase("CreatedAt"))
}
