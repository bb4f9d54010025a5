package basic

import (
	"fmt"
	"reflect"
	"strings"

	dbcore "repokit/data/db"
)

type fieldInfo struct {
	Column        string
	Index         []int
	PrimaryKey    bool
	AutoIncrement bool
	ReadOnly      bool
}

type structMeta struct {
	typ          reflect.Type
	fields       []fieldInfo
	columnToInfo map[string]fieldInfo
}

// insertableColumns 返回可用于 INSERT 的列及对应字段，自增主键交给数据库生成。
func (sm *structMeta) insertableColumns() ([]string, []fieldInfo) {
	var cols []string
	var fields []fieldInfo
	for _, f := range sm.fields {
		if (f.PrimaryKey && f.AutoIncrement) || f.ReadOnly {
			continue
		}
		cols = append(cols, f.Column)
		fields = append(fields, f)
	}
	return cols, fields
}

func (sm *structMeta) autoIncrementKey() (fieldInfo, bool) {
	for _, f := range sm.fields {
		if f.PrimaryKey && f.AutoIncrement {
			return f, true
		}
	}
	return fieldInfo{}, false
}

// structMetaForValue 构建或获取指定值类型的 structMeta。
func (o *Orm) structMetaForValue(v any) *structMeta {
	t := reflect.TypeOf(v)
	if t == nil {
		return nil
	}
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil
	}

	o.mu.RLock()
	sm, ok := o.structMap[t]
	o.mu.RUnlock()
	if ok {
		return sm
	}

	sm = buildStructMeta(t)
	o.mu.Lock()
	o.structMap[t] = sm
	o.mu.Unlock()
	return sm
}

func buildStructMeta(t reflect.Type) *structMeta {
	sm := &structMeta{
		typ:          t,
		columnToInfo: make(map[string]fieldInfo),
	}

	var walk func(reflect.Type, []int)
	walk = func(cur reflect.Type, prefix []int) {
		for i := 0; i < cur.NumField(); i++ {
			f := cur.Field(i)
			if f.PkgPath != "" {
				continue
			}
			if f.Tag.Get("db") == "-" || strings.Contains(f.Tag.Get("gorm"), "-:all") {
				continue
			}

			index := append(append([]int(nil), prefix...), i)
			if f.Anonymous && f.Type.Kind() == reflect.Struct && !isTimeType(f.Type) {
				walk(f.Type, index)
				continue
			}
			// 只收集标量字段，关联（切片/结构体）由调用方自行处理
			if !isScalarDBField(f.Type) {
				continue
			}

			col, pk, auto, ro := parseColumnTag(f)
			if col == "" {
				col = toSnakeCase(f.Name)
			}
			if col == "id" && !pk {
				pk, auto = true, isIntKind(f.Type)
			}

			info := fieldInfo{Column: col, Index: index, PrimaryKey: pk, AutoIncrement: auto, ReadOnly: ro}
			sm.fields = append(sm.fields, info)
			sm.columnToInfo[col] = info
		}
	}

	walk(t, nil)
	return sm
}

func isScalarDBField(t reflect.Type) bool {
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if isTimeType(t) {
		return true
	}
	switch t.Kind() {
	case reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64,
		reflect.String:
		return true
	default:
		return false
	}
}

func isIntKind(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return true
	}
	return false
}

func isTimeType(t reflect.Type) bool {
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.PkgPath() == "time" && t.Name() == "Time"
}

// parseColumnTag 依次读取 gorm、db、json 标签。
// gorm 的 "->" 表示只读列（例如计数子查询），不参与写入。
func parseColumnTag(f reflect.StructField) (column string, primaryKey, autoIncrement, readOnly bool) {
	if gormTag := f.Tag.Get("gorm"); gormTag != "" {
		for _, part := range strings.Split(gormTag, ";") {
			part = strings.TrimSpace(part)
			switch {
			case strings.HasPrefix(part, "column:"):
				column = strings.TrimPrefix(part, "column:")
			case strings.EqualFold(part, "primaryKey"), strings.EqualFold(part, "primary_key"):
				primaryKey = true
				autoIncrement = autoIncrement || isIntKind(f.Type)
			case strings.EqualFold(part, "autoIncrement"):
				autoIncrement = true
			case strings.EqualFold(part, "autoIncrement:false"):
				autoIncrement = false
			case part == "->":
				readOnly = true
			}
		}
	}

	if column == "" {
		if dbTag := f.Tag.Get("db"); dbTag != "" {
			column = strings.Split(dbTag, ",")[0]
		} else if jsonTag := f.Tag.Get("json"); jsonTag != "" && jsonTag != "-" {
			column = strings.Split(jsonTag, ",")[0]
		}
	}
	return column, primaryKey, autoIncrement, readOnly
}

func toSnakeCase(s string) string {
	var sb strings.Builder
	runes := []rune(s)
	for i, r := range runes {
		if r >= 'A' && r <= 'Z' {
			// "UserID" -> user_id，连续大写视为一个词
			if i > 0 && (runes[i-1] < 'A' || runes[i-1] > 'Z' || (i+1 < len(runes) && runes[i+1] >= 'a' && runes[i+1] <= 'z')) {
				sb.WriteByte('_')
			}
			r += 'a' - 'A'
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

// scanAll 将剩余行扫描到 dest。
// 支持 *[]T、*[]*T、*[]map[string]any，以及 *T / *map[string]any（取第一行）。
func (o *Orm) scanAll(rows dbcore.IRows, dest any) error {
	rv := reflect.ValueOf(dest)
	if rv.Kind() != reflect.Ptr || rv.IsNil() {
		return fmt.Errorf("basic.scan: dest must be non-nil pointer, got %T", dest)
	}

	elem := rv.Elem()
	if elem.Kind() != reflect.Slice {
		if !rows.Next() {
			return rows.Err()
		}
		return o.scanCurrent(rows, dest)
	}

	elemType := elem.Type().Elem()
	isPtr := elemType.Kind() == reflect.Ptr
	if isPtr {
		elemType = elemType.Elem()
	}
	for rows.Next() {
		item := reflect.New(elemType)
		if err := o.scanCurrent(rows, item.Interface()); err != nil {
			return err
		}
		if isPtr {
			elem.Set(reflect.Append(elem, item))
		} else {
			elem.Set(reflect.Append(elem, item.Elem()))
		}
	}
	return rows.Err()
}

// scanCurrent 扫描当前行到 *T 或 *map[string]any。
func (o *Orm) scanCurrent(rows dbcore.IRows, dest any) error {
	cols, err := rows.Columns()
	if err != nil {
		return err
	}

	if mp, ok := dest.(*map[string]any); ok {
		return scanIntoMap(rows, cols, mp)
	}

	v := reflect.ValueOf(dest)
	if v.Kind() != reflect.Ptr || v.IsNil() {
		return fmt.Errorf("basic.scan: dest must be non-nil pointer, got %T", dest)
	}
	v = v.Elem()
	if v.Kind() == reflect.Map && v.Type().Key().Kind() == reflect.String && v.Type().Elem().Kind() == reflect.Interface {
		// Record 等 map[string]any 的具名类型
		m := make(map[string]any, len(cols))
		if err := scanIntoMap(rows, cols, &m); err != nil {
			return err
		}
		v.Set(reflect.ValueOf(m).Convert(v.Type()))
		return nil
	}

	sm := o.structMetaForValue(dest)
	if sm == nil {
		return fmt.Errorf("basic.scan: unsupported dest type %T", dest)
	}

	destPtrs := make([]any, len(cols))
	for i, col := range cols {
		if fi, ok := sm.columnToInfo[col]; ok {
			fv := fieldByIndexSafe(v, fi.Index)
			if fv.IsValid() && fv.CanSet() {
				destPtrs[i] = fv.Addr().Interface()
				continue
			}
		}
		var discard any
		destPtrs[i] = &discard
	}
	return rows.Scan(destPtrs...)
}

func scanIntoMap(rows dbcore.IRows, cols []string, dest *map[string]any) error {
	vals := make([]any, len(cols))
	ptrs := make([]any, len(cols))
	for i := range vals {
		ptrs[i] = &vals[i]
	}
	if err := rows.Scan(ptrs...); err != nil {
		return err
	}
	if *dest == nil {
		*dest = make(map[string]any, len(cols))
	}
	for i, col := range cols {
		if b, ok := vals[i].([]byte); ok {
			(*dest)[col] = string(b)
			continue
		}
		(*dest)[col] = vals[i]
	}
	return nil
}

func structValue(e any) reflect.Value {
	val := reflect.ValueOf(e)
	for val.Kind() == reflect.Ptr {
		if val.IsNil() {
			return reflect.Value{}
		}
		val = val.Elem()
	}
	if val.Kind() != reflect.Struct {
		return reflect.Value{}
	}
	return val
}

// setIntField 回填自增主键，仅在目标为可寻址的零值整数字段时生效。
func setIntField(ptr reflect.Value, index []int, id int64) {
	if ptr.Kind() != reflect.Ptr || ptr.IsNil() {
		return
	}
	fv := fieldByIndexSafe(ptr.Elem(), index)
	if !fv.IsValid() || !fv.CanSet() || !fv.IsZero() {
		return
	}
	switch fv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		fv.SetInt(id)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		fv.SetUint(uint64(id))
	}
}

func fieldByIndexSafe(v reflect.Value, index []int) reflect.Value {
	for _, i := range index {
		if v.Kind() == reflect.Ptr {
			if v.IsNil() {
				return reflect.Value{}
			}
			v = v.Elem()
		}
		if v.Kind() != reflect.Struct || i < 0 || i >= v.NumField() {
			return reflect.Value{}
		}
		v = v.Field(i)
	}
	return v
}
