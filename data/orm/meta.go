package orm

import "reflect"

// AssociationKind 表示关联类型。
type AssociationKind string

const (
	AssociationBelongsTo  AssociationKind = "belongs_to"
	AssociationHasOne     AssociationKind = "has_one"
	AssociationHasMany    AssociationKind = "has_many"
	AssociationManyToMany AssociationKind = "many_to_many"
)

// AssociationMeta 描述模型关联元信息。
//
// 键的约定：
//   - has_one / has_many：目标表 ForeignKey 引用本表 ReferenceKey（默认主键）；
//   - belongs_to：本表 ForeignKey 引用目标表 ReferenceKey（默认 id）；
//   - many_to_many：JoinTable.JoinForeignKey 引用本表主键，
//     JoinTable.JoinReferenceKey 引用目标表 ReferenceKey（默认 id）。
type AssociationMeta struct {
	Name             string
	Kind             AssociationKind
	Target           any
	TargetTable      string
	JoinTable        string
	ForeignKey       string
	ReferenceKey     string
	JoinForeignKey   string
	JoinReferenceKey string
}

// ResolveTargetTable 返回关联目标表名，未显式配置时尝试目标模型的 TableName()。
func (a AssociationMeta) ResolveTargetTable() string {
	if a.TargetTable != "" {
		return a.TargetTable
	}
	if tn, ok := TableNameOf(a.Target); ok {
		return tn
	}
	return ""
}

// FieldMeta 描述字段元信息。
type FieldMeta struct {
	Name          string
	Column        string
	PrimaryKey    bool
	AutoIncrement bool
}

// ModelMeta 描述模型级别元信息。
type ModelMeta struct {
	Model        any
	Table        string
	Fields       []FieldMeta
	Associations []AssociationMeta
	Tags         map[string]string
}

// Tag 返回模型级别的标签内容。
func (m *ModelMeta) Tag(key string) string {
	if m == nil || m.Tags == nil {
		return ""
	}
	return m.Tags[key]
}

// ResolveTable 返回显式表名，否则回退到模型的 TableName()。
func (m *ModelMeta) ResolveTable() string {
	if m == nil {
		return ""
	}
	if m.Table != "" {
		return m.Table
	}
	if tn, ok := TableNameOf(m.Model); ok {
		return tn
	}
	return ""
}

// PrimaryKey 返回字段元数据中标记的主键列，未标记时为空。
func (m *ModelMeta) PrimaryKey() string {
	if m == nil {
		return ""
	}
	for _, f := range m.Fields {
		if f.PrimaryKey {
			return f.Column
		}
	}
	return ""
}

// Association 按名称查找关联。
func (m *ModelMeta) Association(name string) (AssociationMeta, bool) {
	if m == nil {
		return AssociationMeta{}, false
	}
	for _, a := range m.Associations {
		if a.Name == name {
			return a, true
		}
	}
	return AssociationMeta{}, false
}

// HasField 判断列名或字段名是否出现在字段元数据中。
// 没有字段元数据时返回 true，由数据库在执行期校验。
func (m *ModelMeta) HasField(name string) bool {
	if m == nil || len(m.Fields) == 0 {
		return true
	}
	for _, f := range m.Fields {
		if f.Column == name || f.Name == name {
			return true
		}
	}
	return false
}

// TableNameOf 尝试从模型实例（或其零值指针）上调用 TableName()。
func TableNameOf(model any) (string, bool) {
	if model == nil {
		return "", false
	}
	v := reflect.ValueOf(model)
	if v.Kind() == reflect.Ptr && v.IsNil() {
		v = reflect.New(v.Type().Elem())
	}
	if m, ok := v.Interface().(interface{ TableName() string }); ok {
		return m.TableName(), true
	}

	t := v.Type()
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return "", false
	}
	if m, ok := reflect.New(t).Interface().(interface{ TableName() string }); ok {
		return m.TableName(), true
	}
	return "", false
}
