// Package dialect 描述 SQL 方言差异：占位符、标识符引用、语法支持与唯一键冲突识别。
package dialect

import (
	"errors"
	"strconv"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"

	core "repokit/data/db"
)

// Name 标准化的数据库方言名称
type Name string

const (
	NameMySQL    Name = "mysql"
	NameSQLite   Name = "sqlite"
	NamePostgres Name = "postgres"
	NameUnknown  Name = ""
)

type traits struct {
	quote       string // 标识符引号，空串表示不加引号
	numbered    bool   // 占位符为 $1, $2 ...
	deleteLimit bool
	forUpdate   bool
}

var dialects = map[Name]traits{
	NameMySQL:    {quote: "`", deleteLimit: true, forUpdate: true},
	NameSQLite:   {quote: `"`, deleteLimit: true},
	NamePostgres: {quote: `"`, numbered: true, forUpdate: true},
	NameUnknown:  {},
}

var aliases = map[string]Name{
	"mysql":      NameMySQL,
	"sqlite":     NameSQLite,
	"sqlite3":    NameSQLite,
	"postgres":   NamePostgres,
	"postgresql": NamePostgres,
	"pgx":        NamePostgres,
}

// Dialect 是不可变的方言描述，零值为 Unknown。
type Dialect struct {
	name Name
	traits
}

// New 根据驱动或方言名构造方言（大小写不敏感），pgx 视为 postgres
func New(name string) Dialect {
	n := aliases[strings.ToLower(strings.TrimSpace(name))]
	return Dialect{name: n, traits: dialects[n]}
}

// FromDatabase 从实现了 IDialectNameProvider 的数据库推断方言，否则为 Unknown。
func FromDatabase(db core.IDatabase) Dialect {
	if p, ok := db.(core.IDialectNameProvider); ok {
		return New(p.GetDialectName())
	}
	return New("")
}

func (d Dialect) Name() Name { return d.name }

// QuoteIdentifier 对带点名称的每一段分别加引号，不做语法校验。
// Unknown 方言原样返回。
func (d Dialect) QuoteIdentifier(name string) string {
	if d.quote == "" || name == "" {
		return name
	}
	parts := strings.Split(name, ".")
	for i, p := range parts {
		if p != "" {
			parts[i] = d.quote + p + d.quote
		}
	}
	return strings.Join(parts, ".")
}

// Rebind 把 ? 改写为方言占位符；只有 postgres 需要改写。
// 单引号字符串字面量中的 ? 保持不变。
func (d Dialect) Rebind(query string) string {
	if !d.numbered || !strings.Contains(query, "?") {
		return query
	}
	var sb strings.Builder
	sb.Grow(len(query) + 8)
	n, quoted := 0, false
	for i := 0; i < len(query); i++ {
		switch ch := query[i]; {
		case ch == '\'':
			quoted = !quoted
			sb.WriteByte(ch)
		case ch == '?' && !quoted:
			n++
			sb.WriteByte('$')
			sb.WriteString(strconv.Itoa(n))
		default:
			sb.WriteByte(ch)
		}
	}
	return sb.String()
}

func (d Dialect) SupportsDeleteLimit() bool { return d.deleteLimit }
func (d Dialect) SupportsForUpdate() bool   { return d.forUpdate }

const (
	mysqlDupEntry     = 1062
	pgUniqueViolation = "23505"
	sqliteUnique      = 2067
	sqlitePrimaryKey  = 1555
)

// IsUniqueViolation 判断唯一键或主键冲突。
//
// 优先识别驱动错误类型（pgconn.PgError、mysql.MySQLError、sqlite 扩展错误码），
// 识别不了时按错误消息关键字匹配。
func (d Dialect) IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation
	}
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == mysqlDupEntry
	}
	var coded interface{ Code() int }
	if errors.As(err, &coded) {
		if c := coded.Code(); c == sqliteUnique || c == sqlitePrimaryKey {
			return true
		}
	}

	msg := strings.ToLower(err.Error())
	switch d.name {
	case NameMySQL:
		return strings.Contains(msg, "duplicate entry")
	case NameSQLite:
		return strings.Contains(msg, "unique constraint failed")
	}
	return strings.Contains(msg, "duplicate key") || strings.Contains(msg, "unique constraint")
}
