package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"repokit/data/orm"
	"repokit/data/orm/repo"
	apperrors "repokit/errors"
	"repokit/logging"
)

// tableFlags 为各子命令共用的表绑定参数。
type tableFlags struct {
	primaryKey string
	columns    []string
}

func (f *tableFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.primaryKey, "pk", "id", "Primary key column")
	cmd.Flags().StringSliceVar(&f.columns, "columns", nil, "Columns to select, comma separated")
}

// repository 绑定表并创建按配置定制的记录仓储。
func (a *app) repository(cmd *cobra.Command, table string, tf *tableFlags) (*repo.Repository[repo.Record], error) {
	if err := a.open(contextOf(cmd)); err != nil {
		return nil, err
	}
	opts := []repo.Option{
		repo.WithPrimaryKey(tf.primaryKey),
		repo.WithLogger(a.logger.WithFields(logging.String("table", table))),
		repo.WithPerPage(a.cfg.Repository.PerPage),
		repo.WithPreventCriteriaOverwriting(a.cfg.Repository.PreventCriteriaOverwriting),
	}
	if a.publisher != nil {
		opts = append(opts, repo.WithChangePublisher(a.publisher))
	}
	return repo.NewRepository[repo.Record](a.orm, &orm.ModelMeta{Table: table}, opts...)
}

func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newListCmd(a *app) *cobra.Command {
	var (
		tf      tableFlags
		cf      criteriaFlags
		page    int
		perPage int
		simple  bool
	)
	cmd := &cobra.Command{
		Use:   "list <table>",
		Short: "List rows matching the given criteria",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := a.repository(cmd, args[0], &tf)
			if err != nil {
				return err
			}
			if err := cf.apply(cmd, r); err != nil {
				return err
			}
			ctx := contextOf(cmd)
			switch {
			case page > 0 && simple:
				res, err := r.SimplePaginate(ctx, perPage, page, tf.columns...)
				if err != nil {
					return apperrors.WrapDatabaseError(ctx, err, "list")
				}
				return writeJSON(cmd, res)
			case page > 0:
				res, err := r.Paginate(ctx, perPage, page, tf.columns...)
				if err != nil {
					return apperrors.WrapDatabaseError(ctx, err, "list")
				}
				return writeJSON(cmd, res)
			}
			rows, err := r.All(ctx, tf.columns...)
			if err != nil {
				return apperrors.WrapDatabaseError(ctx, err, "list")
			}
			if rows == nil {
				rows = []repo.Record{}
			}
			return writeJSON(cmd, rows)
		},
	}
	tf.register(cmd)
	cf.register(cmd)
	cmd.Flags().IntVar(&page, "page", 0, "Page number, enables pagination")
	cmd.Flags().IntVar(&perPage, "per-page", 0, "Rows per page (default from config)")
	cmd.Flags().BoolVar(&simple, "simple", false, "Skip the total count when paginating")
	return cmd
}

func newFindCmd(a *app) *cobra.Command {
	var (
		tf    tableFlags
		cf    criteriaFlags
		field string
	)
	cmd := &cobra.Command{
		Use:   "find <table> <value>",
		Short: "Find a single row by primary key or --field",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := a.repository(cmd, args[0], &tf)
			if err != nil {
				return err
			}
			if err := cf.apply(cmd, r); err != nil {
				return err
			}
			ctx := contextOf(cmd)
			var row *repo.Record
			if field != "" {
				row, err = r.FindByField(ctx, field, parseValue(args[1]), tf.columns...)
			} else {
				row, err = r.Find(ctx, parseValue(args[1]), tf.columns...)
			}
			if err != nil {
				return apperrors.WrapDatabaseError(ctx, err, "find")
			}
			return writeJSON(cmd, row)
		},
	}
	tf.register(cmd)
	cf.register(cmd)
	cmd.Flags().StringVar(&field, "field", "", "Match this column instead of the primary key")
	return cmd
}

func newCountCmd(a *app) *cobra.Command {
	var (
		tf tableFlags
		cf criteriaFlags
	)
	cmd := &cobra.Command{
		Use:   "count <table>",
		Short: "Count rows matching the given criteria",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := a.repository(cmd, args[0], &tf)
			if err != nil {
				return err
			}
			if err := cf.apply(cmd, r); err != nil {
				return err
			}
			ctx := contextOf(cmd)
			n, err := r.Count(ctx)
			if err != nil {
				return apperrors.WrapDatabaseError(ctx, err, "count")
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), n)
			return err
		},
	}
	tf.register(cmd)
	cf.register(cmd)
	return cmd
}

func newUpdateCmd(a *app) *cobra.Command {
	var (
		tf    tableFlags
		set   []string
		field string
	)
	cmd := &cobra.Command{
		Use:   "update <table> <value>",
		Short: "Update the rows whose primary key (or --field) equals value",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			values, err := parseAssignments(set)
			if err != nil {
				return err
			}
			r, err := a.repository(cmd, args[0], &tf)
			if err != nil {
				return err
			}
			var attribute []string
			if field != "" {
				attribute = append(attribute, field)
			}
			ctx := contextOf(cmd)
			if err := r.Update(ctx, values, parseValue(args[1]), attribute...); err != nil {
				return apperrors.WrapDatabaseError(ctx, err, "update")
			}
			a.logger.Info(ctx, "rows updated",
				logging.String("table", args[0]), logging.Int("columns", len(values)))
			return nil
		},
	}
	tf.register(cmd)
	cmd.Flags().StringArrayVar(&set, "set", nil, "Assignment column=value, repeatable")
	cmd.Flags().StringVar(&field, "field", "", "Match this column instead of the primary key")
	_ = cmd.MarkFlagRequired("set")
	return cmd
}

func newDeleteCmd(a *app) *cobra.Command {
	var (
		tf tableFlags
		cf criteriaFlags
	)
	cmd := &cobra.Command{
		Use:   "delete <table> [id...]",
		Short: "Delete rows by primary key, or by the given criteria",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := a.repository(cmd, args[0], &tf)
			if err != nil {
				return err
			}
			ctx := contextOf(cmd)
			if ids := args[1:]; len(ids) > 0 {
				values := make([]any, len(ids))
				for i, id := range ids {
					values[i] = parseValue(id)
				}
				if err := r.Destroy(ctx, values...); err != nil {
					return apperrors.WrapDatabaseError(ctx, err, "delete")
				}
				return nil
			}
			if err := cf.apply(cmd, r); err != nil {
				return err
			}
			ctx = contextOf(cmd)
			if err := r.DestroyWhere(ctx, nil); err != nil {
				return apperrors.WrapDatabaseError(ctx, err, "delete")
			}
			return nil
		},
	}
	tf.register(cmd)
	cf.register(cmd)
	return cmd
}
