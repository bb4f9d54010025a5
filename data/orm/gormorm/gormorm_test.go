package gormorm

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	gormlogger "gorm.io/gorm/logger"

	"repokit/data/orm"
	"repokit/data/orm/repo"
	"repokit/logging"
)

type gormPost struct {
	ID     int64 `gorm:"column:id;primaryKey"`
	UserID int64 `gorm:"column:user_id"`
	Title  string
}

func (gormPost) TableName() string { return "posts" }

type gormUser struct {
	ID         int64      `gorm:"column:id;primaryKey"`
	Name       string     `gorm:"column:name"`
	Active     bool       `gorm:"column:active"`
	PostsCount int64      `gorm:"column:posts_count;->"`
	Posts      []gormPost `gorm:"foreignKey:UserID"`
}

func (gormUser) TableName() string { return "users" }

// sqlRecorder 记录 gorm 桥接输出的 SQL。
type sqlRecorder struct {
	mu   sync.Mutex
	sqls []string
	msgs []string
}

func (r *sqlRecorder) record(msg string, fields []logging.Field) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, msg)
	for _, f := range fields {
		if f.Key == "sql" {
			r.sqls = append(r.sqls, f.Value.(string))
		}
	}
}

func (r *sqlRecorder) last() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.sqls) == 0 {
		return ""
	}
	return r.sqls[len(r.sqls)-1]
}

func (r *sqlRecorder) Debug(_ context.Context, msg string, fields ...logging.Field) { r.record(msg, fields) }
func (r *sqlRecorder) Info(_ context.Context, msg string, fields ...logging.Field)  { r.record(msg, fields) }
func (r *sqlRecorder) Warn(_ context.Context, msg string, fields ...logging.Field)  { r.record(msg, fields) }
func (r *sqlRecorder) Error(_ context.Context, msg string, fields ...logging.Field) { r.record(msg, fields) }
func (r *sqlRecorder) WithFields(...logging.Field) logging.Logger                   { return r }

func dryRun(t *testing.T) (*Orm, *sqlRecorder) {
	t.Helper()
	rec := &sqlRecorder{}
	dialector := mysql.New(mysql.Config{
		DSN:                       "repokit:secret@tcp(127.0.0.1:3306)/repokit?parseTime=true",
		SkipInitializeWithVersion: true,
	})
	o, err := Open(dialector, Config{Logger: rec, LogLevel: "debug", DryRun: true})
	require.NoError(t, err)
	return o, rec
}

func userModel(o *Orm) orm.IModel {
	return o.Model(&orm.ModelMeta{Model: &gormUser{}})
}

func TestFind_BuildsSelect(t *testing.T) {
	ctx := context.Background()
	o, rec := dryRun(t)

	var users []gormUser
	err := userModel(o).Find(ctx, &users,
		orm.WithWhere("active = ?", true),
		orm.WithOrWhere("name LIKE ?", "a%"),
		orm.WithOrderBy("id", true),
		orm.WithLimit(5),
		orm.WithOffset(10),
	)
	require.NoError(t, err)

	sql := rec.last()
	assert.Contains(t, sql, "SELECT * FROM `users`")
	assert.Contains(t, sql, "WHERE (active = true OR name LIKE 'a%')")
	assert.Contains(t, sql, "ORDER BY id DESC")
	assert.Contains(t, sql, "LIMIT 5 OFFSET 10")
}

func TestFind_InExpansionAndSelect(t *testing.T) {
	ctx := context.Background()
	o, rec := dryRun(t)

	var rows []map[string]any
	err := userModel(o).Find(ctx, &rows,
		orm.WithSelect("users.*", "(SELECT COUNT(*) FROM posts WHERE posts.user_id = users.id) AS posts_count"),
		orm.WithWhere("id IN ?", []int64{1, 2, 3}),
	)
	require.NoError(t, err)

	sql := rec.last()
	assert.Contains(t, sql, "SELECT users.*,(SELECT COUNT(*) FROM posts WHERE posts.user_id = users.id) AS posts_count FROM `users`")
	assert.Contains(t, sql, "id IN (1,2,3)")
}

func TestCount_IgnoresPaging(t *testing.T) {
	ctx := context.Background()
	o, rec := dryRun(t)

	_, err := userModel(o).Count(ctx,
		orm.WithWhere("active = ?", true),
		orm.WithOrderBy("name", false),
		orm.WithLimit(3),
	)
	require.NoError(t, err)
	sql := rec.last()
	assert.Contains(t, sql, "SELECT count(*) FROM `users` WHERE active = true")
	assert.NotContains(t, sql, "LIMIT")
	assert.NotContains(t, sql, "ORDER BY")

	_, err = userModel(o).Count(ctx,
		orm.WithGroupBy("team_id"),
		orm.WithHaving("COUNT(*) > ?", 1),
	)
	require.NoError(t, err)
	sql = rec.last()
	assert.Contains(t, sql, "GROUP BY `team_id` HAVING COUNT(*) > 1) AS grouped")
}

func TestWrites_RequireWhere(t *testing.T) {
	ctx := context.Background()
	o, _ := dryRun(t)
	m := userModel(o)

	assert.ErrorIs(t, m.Delete(ctx), orm.ErrMissingWhere)
	assert.ErrorIs(t, m.UpdateValues(ctx, map[string]any{"name": "x"}), orm.ErrMissingWhere)
	assert.ErrorIs(t, m.Save(ctx, &gormUser{ID: 1}), orm.ErrMissingWhere)
}

func TestWrites_BuildStatements(t *testing.T) {
	ctx := context.Background()
	o, rec := dryRun(t)
	m := userModel(o)

	require.NoError(t, m.UpdateValues(ctx, map[string]any{"name": "x"}, orm.WithWhere("id = ?", 7)))
	assert.Contains(t, rec.last(), "UPDATE `users` SET `name`='x' WHERE id = 7")

	require.NoError(t, m.Delete(ctx, orm.WithWhere("id IN ?", []int{1, 2})))
	assert.Contains(t, rec.last(), "DELETE FROM `users` WHERE id IN (1,2)")

	require.NoError(t, m.Create(ctx, &gormUser{Name: "n", Active: true, PostsCount: 9}))
	assert.Contains(t, rec.last(), "INSERT INTO `users`")
	assert.NotContains(t, rec.last(), "posts_count")

	require.NoError(t, m.Create(ctx, &repo.Record{"name": "r"}))
	assert.Contains(t, rec.last(), "INSERT INTO `users` (`name`) VALUES ('r')")
}

func TestPreloadSupported(t *testing.T) {
	ctx := context.Background()
	o, _ := dryRun(t)

	assert.True(t, o.Capabilities().Supports(orm.CapabilityPreload))
	var users []gormUser
	assert.NoError(t, userModel(o).Find(ctx, &users, orm.WithPreload("Posts")))
}

type activeCriterion struct{}

func (activeCriterion) Kind() repo.CriterionKind { return "active" }

func (activeCriterion) Apply(_ context.Context, q repo.Query, r repo.IRepositoryContext) (repo.Query, error) {
	return q.Where(r.Table()+".active = ?", true), nil
}

func TestRepositoryOverGorm(t *testing.T) {
	ctx := context.Background()
	o, rec := dryRun(t)

	meta := &orm.ModelMeta{
		Model: &gormUser{},
		Associations: []orm.AssociationMeta{
			{Name: "posts", Kind: orm.AssociationHasMany, TargetTable: "posts", ForeignKey: "user_id"},
		},
	}
	r, err := repo.NewRepository[gormUser](o, meta, repo.WithLogger(logging.NewNoopLogger()))
	require.NoError(t, err)

	r.PushCriteria(activeCriterion{})
	_, err = r.WhereHas("posts", nil).With("Posts").OrderBy("id", "asc").All(ctx)
	require.NoError(t, err)

	var mainSQL string
	for _, stmt := range rec.sqls {
		if strings.HasPrefix(stmt, "SELECT") && strings.Contains(stmt, "EXISTS") {
			mainSQL = stmt
		}
	}
	require.NotEmpty(t, mainSQL)
	assert.Contains(t, mainSQL, "EXISTS (SELECT 1 FROM posts WHERE posts.user_id = users.id) AND users.active = true")
	assert.Contains(t, mainSQL, "ORDER BY id")
}

func TestLoggerBridge(t *testing.T) {
	ctx := context.Background()
	rec := &sqlRecorder{}

	l := NewLogger(rec, gormlogger.Warn, LoggerConfig{SlowThreshold: time.Millisecond})
	l.Trace(ctx, time.Now(), func() (string, int64) { return "SELECT 1", 1 }, nil)
	assert.Empty(t, rec.sqls, "fast queries are not logged at warn")

	l.Trace(ctx, time.Now().Add(-time.Second), func() (string, int64) { return "SELECT 2", 1 }, nil)
	assert.Equal(t, []string{"SELECT 2"}, rec.sqls)
	assert.Equal(t, "slow sql", rec.msgs[0])

	silent := l.LogMode(gormlogger.Silent)
	silent.Trace(ctx, time.Now(), func() (string, int64) { return "SELECT 3", 0 }, assert.AnError)
	assert.Len(t, rec.sqls, 1)

	quiet := NewLogger(rec, gormlogger.Error, LoggerConfig{IgnoreRecordNotFoundError: true})
	quiet.Trace(ctx, time.Now(), func() (string, int64) { return "SELECT 4", 0 }, gormlogger.ErrRecordNotFound)
	assert.Len(t, rec.sqls, 1)

	assert.Equal(t, gormlogger.Info, ParseLogLevel("debug"))
	assert.Equal(t, gormlogger.Error, ParseLogLevel("error"))
	assert.Equal(t, gormlogger.Silent, ParseLogLevel("silent"))
	assert.Equal(t, gormlogger.Warn, ParseLogLevel("bogus"))
}
