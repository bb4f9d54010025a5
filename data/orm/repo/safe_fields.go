package repo

import (
	"fmt"
	"strings"

	dbsql "repokit/data/db/sql"
	"repokit/data/orm"
)

// isSafeFieldName 与写语句构建器使用同一套标识符规则：字母或下划线开头的 ASCII 标识符，
// 允许 table.column 形式。
func isSafeFieldName(name string) bool {
	return dbsql.CheckIdentifier(name) == nil
}

// IsSafeFieldName 供条件实现校验列名。
func IsSafeFieldName(name string) bool { return isSafeFieldName(name) }

// checkField 校验字段名语法，并在模型声明了字段元数据时校验其存在。
// 限定名（table.column）只按列部分查元数据。
func checkField(meta *orm.ModelMeta, field string) error {
	if !isSafeFieldName(field) {
		return unsafeField(field)
	}
	column := field[strings.LastIndexByte(field, '.')+1:]
	if !meta.HasField(column) {
		return unsafeField(field)
	}
	return nil
}

func unsafeField(field string) error {
	return fmt.Errorf("%w: %q", ErrUnsafeField, field)
}
