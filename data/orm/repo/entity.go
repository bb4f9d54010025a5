package repo

import (
	"reflect"
	"strings"
)

// IValidatable 由需要在写入前校验的实体实现。
type IValidatable interface {
	Validate() error
}

// IKeyed 允许实体显式提供主键值。
type IKeyed interface {
	PrimaryKeyValue() any
}

func validate(entity any) error {
	if v, ok := entity.(IValidatable); ok {
		return v.Validate()
	}
	return nil
}

// primaryKeyValue 读取实体的主键值。
//
// 依次尝试 IKeyed、map 键、以及 gorm/db/json 标签或字段名匹配 column 的结构体字段。
func primaryKeyValue(entity any, column string) (any, bool) {
	if k, ok := entity.(IKeyed); ok {
		return k.PrimaryKeyValue(), true
	}

	v := reflect.ValueOf(entity)
	for v.Kind() == reflect.Ptr {
		if v.IsNil() {
			return nil, false
		}
		v = v.Elem()
	}

	switch v.Kind() {
	case reflect.Map:
		if v.Type().Key().Kind() != reflect.String {
			return nil, false
		}
		val := v.MapIndex(reflect.ValueOf(column).Convert(v.Type().Key()))
		if !val.IsValid() {
			return nil, false
		}
		return val.Interface(), true
	case reflect.Struct:
		return structFieldByColumn(v, column)
	}
	return nil, false
}

func structFieldByColumn(v reflect.Value, column string) (any, bool) {
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if f.PkgPath != "" {
			continue
		}
		if f.Anonymous && f.Type.Kind() == reflect.Struct {
			if val, ok := structFieldByColumn(v.Field(i), column); ok {
				return val, true
			}
			continue
		}
		if fieldColumn(f) == column {
			return v.Field(i).Interface(), true
		}
	}
	return nil, false
}

func fieldColumn(f reflect.StructField) string {
	for _, part := range strings.Split(f.Tag.Get("gorm"), ";") {
		part = strings.TrimSpace(part)
		if strings.HasPrefix(part, "column:") {
			return strings.TrimPrefix(part, "column:")
		}
	}
	if tag := f.Tag.Get("db"); tag != "" {
		return strings.Split(tag, ",")[0]
	}
	if tag := f.Tag.Get("json"); tag != "" && tag != "-" {
		return strings.Split(tag, ",")[0]
	}
	if strings.EqualFold(f.Name, "ID") {
		return "id"
	}
	return strings.ToLower(f.Name)
}
