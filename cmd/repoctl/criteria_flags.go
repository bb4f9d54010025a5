package main

import (
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"repokit/data/orm/criteria"
	"repokit/data/orm/repo"
	apperrors "repokit/errors"
)

// criteriaFlags 把命令行参数翻译成仓储条件。
type criteriaFlags struct {
	where        []string
	order        []string
	search       string
	limit        int
	notDeleted   bool
	onlyDeleted  bool
	deletedCol   string
	owner        string
	requester    string
	skipCriteria bool
}

func (f *criteriaFlags) register(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.StringArrayVarP(&f.where, "where", "w", nil, "Condition field:op:value, repeatable (op: = != > >= < <= like in)")
	flags.StringArrayVar(&f.order, "order", nil, "Order column[:asc|desc], repeatable")
	flags.StringVar(&f.search, "search", "", "Search columns=term, columns comma separated")
	flags.IntVar(&f.limit, "limit", 0, "Maximum rows")
	flags.BoolVar(&f.notDeleted, "not-deleted", false, "Exclude soft-deleted rows")
	flags.BoolVar(&f.onlyDeleted, "only-deleted", false, "Only soft-deleted rows")
	flags.StringVar(&f.deletedCol, "deleted-column", "", "Soft delete column (default deleted_at)")
	flags.StringVar(&f.owner, "owner", "", "Restrict rows to --requester via this column")
	flags.StringVar(&f.requester, "requester", "", "Requester identity used by --owner")
	flags.BoolVar(&f.skipCriteria, "skip-criteria", false, "Build criteria but do not apply them")
	cmd.MarkFlagsMutuallyExclusive("not-deleted", "only-deleted")
}

// build 按参数顺序生成条件列表。
func (f *criteriaFlags) build() ([]repo.ICriterion, error) {
	var out []repo.ICriterion
	for _, raw := range f.where {
		field, op, value, err := parseWhere(raw)
		if err != nil {
			return nil, err
		}
		out = append(out, criteria.Where(field, op, value))
	}
	if f.search != "" {
		cols, term, ok := strings.Cut(f.search, "=")
		if !ok {
			return nil, apperrors.NewValidationError("--search %q: expected columns=term", f.search)
		}
		out = append(out, criteria.Search(splitList(cols), term))
	}
	var deletedCol []string
	if f.deletedCol != "" {
		deletedCol = []string{f.deletedCol}
	}
	switch {
	case f.notDeleted:
		out = append(out, criteria.NotDeleted(deletedCol...))
	case f.onlyDeleted:
		out = append(out, criteria.OnlyDeleted(deletedCol...))
	}
	if f.owner != "" {
		out = append(out, criteria.OwnedBy(f.owner))
	}
	if f.limit > 0 {
		out = append(out, criteria.Limit(f.limit))
	}
	return out, nil
}

// apply 把条件推入仓储，并按需绑定请求者身份。
//
// 排序走仓储修饰器而不是条件：多个 --order 需要同时生效。
func (f *criteriaFlags) apply(cmd *cobra.Command, r *repo.Repository[repo.Record]) error {
	list, err := f.build()
	if err != nil {
		return err
	}
	for _, c := range list {
		r.PushCriteria(c)
	}
	for _, raw := range f.order {
		column, dir, _ := strings.Cut(raw, ":")
		r.OrderBy(column, dir)
	}
	r.SkipCriteria(f.skipCriteria)
	if f.requester != "" {
		cmd.SetContext(criteria.WithRequester(contextOf(cmd), parseValue(f.requester)))
	}
	return nil
}

// parseWhere 解析 field:op:value；value 中可以包含冒号。
func parseWhere(raw string) (string, string, any, error) {
	parts := strings.SplitN(raw, ":", 3)
	if len(parts) != 3 || parts[0] == "" || parts[1] == "" {
		return "", "", nil, apperrors.NewValidationError("--where %q: expected field:op:value", raw)
	}
	field, op, text := parts[0], strings.ToLower(parts[1]), parts[2]
	if op == "in" || op == "not in" {
		items := splitList(text)
		values := make([]any, len(items))
		for i, item := range items {
			values[i] = parseValue(item)
		}
		return field, op, values, nil
	}
	if op == "like" {
		return field, op, text, nil
	}
	return field, op, parseValue(text), nil
}

// parseValue 推断字面量类型：整数、浮点、布尔、null，其余按字符串。
func parseValue(text string) any {
	if n, err := strconv.ParseInt(text, 10, 64); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(text, 64); err == nil {
		return f
	}
	if b, err := strconv.ParseBool(text); err == nil {
		return b
	}
	if strings.EqualFold(text, "null") {
		return nil
	}
	return text
}

func splitList(s string) []string {
	var out []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// parseAssignments 解析 --set column=value。
func parseAssignments(items []string) (map[string]any, error) {
	values := make(map[string]any, len(items))
	for _, item := range items {
		column, text, ok := strings.Cut(item, "=")
		if !ok || column == "" {
			return nil, apperrors.NewValidationError("--set %q: expected column=value", item)
		}
		values[column] = parseValue(text)
	}
	return values, nil
}
