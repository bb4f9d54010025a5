package repo

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	core "repokit/data/db"
	dbbasic "repokit/data/db/basic"
	"repokit/data/orm"
	"repokit/data/orm/basic"
	"repokit/logging"
)

type user struct {
	ID         int64  `gorm:"column:id;primaryKey"`
	Name       string `gorm:"column:name"`
	Active     bool   `gorm:"column:active"`
	Role       string `gorm:"column:role"`
	OwnerID    int64  `gorm:"column:owner_id"`
	TeamID     int64  `gorm:"column:team_id"`
	PostsCount int64  `gorm:"column:posts_count;->"`
}

func (user) TableName() string { return "users" }

var errEmptyName = errors.New("name is required")

func (u *user) Validate() error {
	if u.Name == "" {
		return errEmptyName
	}
	return nil
}

// activeOnly 按 active 列过滤。
type activeOnly struct{ active bool }

func (activeOnly) Kind() CriterionKind { return "active_only" }

func (c activeOnly) Apply(_ context.Context, q Query, _ IRepositoryContext) (Query, error) {
	return q.Where("active = ?", c.active), nil
}

type roleIs struct{ role string }

func (roleIs) Kind() CriterionKind { return "role_is" }

func (c roleIs) Apply(_ context.Context, q Query, _ IRepositoryContext) (Query, error) {
	return q.Where("role = ?", c.role), nil
}

// failing 在应用时返回固定错误。
type failing struct{ err error }

func (failing) Kind() CriterionKind { return "failing" }

func (c failing) Apply(_ context.Context, q Query, _ IRepositoryContext) (Query, error) {
	return q, c.err
}

// rawWhere 追加任意条件，kind 由调用方指定。
type rawWhere struct {
	kind string
	expr string
	args []any
}

func (c rawWhere) Kind() CriterionKind { return CriterionKind(c.kind) }

func (c rawWhere) Apply(_ context.Context, q Query, _ IRepositoryContext) (Query, error) {
	return q.Where(c.expr, c.args...), nil
}

var userAssociations = []orm.AssociationMeta{
	{Name: "posts", Kind: orm.AssociationHasMany, TargetTable: "posts", ForeignKey: "user_id"},
	{Name: "team", Kind: orm.AssociationBelongsTo, TargetTable: "teams", ForeignKey: "team_id"},
	{Name: "roles", Kind: orm.AssociationManyToMany, TargetTable: "roles",
		JoinTable: "user_roles", JoinForeignKey: "user_id", JoinReferenceKey: "role_id"},
}

func newEngine(t *testing.T) *basic.Orm {
	t.Helper()
	ctx := context.Background()
	database, err := dbbasic.New(core.DBConfig{Driver: "sqlite", Database: ":memory:", MaxOpenConns: 1})
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close() })

	stmts := []string{
		`CREATE TABLE teams (id INTEGER PRIMARY KEY, name TEXT NOT NULL)`,
		`CREATE TABLE users (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL,
			active INTEGER NOT NULL DEFAULT 0,
			role TEXT NOT NULL DEFAULT 'member',
			owner_id INTEGER NOT NULL DEFAULT 0,
			team_id INTEGER NOT NULL DEFAULT 0,
			deleted_at DATETIME NULL
		)`,
		`CREATE TABLE posts (id INTEGER PRIMARY KEY AUTOINCREMENT, user_id INTEGER NOT NULL, title TEXT NOT NULL, published INTEGER NOT NULL DEFAULT 0)`,
		`CREATE TABLE roles (id INTEGER PRIMARY KEY, name TEXT NOT NULL)`,
		`CREATE TABLE user_roles (user_id INTEGER NOT NULL, role_id INTEGER NOT NULL)`,
		`INSERT INTO teams (id, name) VALUES (1, 'core'), (2, 'ops')`,
		`INSERT INTO roles (id, name) VALUES (1, 'editor'), (2, 'viewer')`,
		`INSERT INTO user_roles (user_id, role_id) VALUES (1, 1), (3, 1), (8, 2)`,
		`INSERT INTO posts (user_id, title, published) VALUES (1, 'p1', 1), (1, 'p2', 0), (2, 'p3', 0), (7, 'p4', 1)`,
	}
	for _, stmt := range stmts {
		_, err := database.Exec(ctx, stmt)
		require.NoError(t, err)
	}

	// 10 个用户，前 6 个 active；3/6/9 为 admin；1-5 归属 owner 1；1-4 属于 core 团队
	for i := 1; i <= 10; i++ {
		role := "member"
		if i%3 == 0 {
			role = "admin"
		}
		owner, team := 2, 2
		if i <= 5 {
			owner = 1
		}
		if i <= 4 {
			team = 1
		}
		_, err := database.Exec(ctx,
			`INSERT INTO users (name, active, role, owner_id, team_id) VALUES (?, ?, ?, ?, ?)`,
			fmt.Sprintf("u%02d", i), i <= 6, role, owner, team)
		require.NoError(t, err)
	}
	return basic.New(database)
}

func newUserRepo(t *testing.T, opts ...Option) *Repository[user] {
	t.Helper()
	engine := newEngine(t)
	opts = append([]Option{WithLogger(logging.NewNoopLogger())}, opts...)
	r, err := NewRepository[user](engine, &orm.ModelMeta{Model: &user{}, Associations: userAssociations}, opts...)
	require.NoError(t, err)
	return r
}

func userIDs(items []user) []int64 {
	ids := make([]int64, len(items))
	for i, u := range items {
		ids[i] = u.ID
	}
	return ids
}
