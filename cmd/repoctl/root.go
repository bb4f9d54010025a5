package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"repokit/config"
	"repokit/data/orm"
	"repokit/data/orm/changefeed"
	"repokit/logging"
)

// app 保存一次命令执行期间共享的配置与资源。
type app struct {
	configPath string
	engine     string
	driver     string
	dsn        string
	logLevel   string
	logFormat  string
	feed       string

	cfg    *config.Config
	logger *logging.ZapLogger

	orm       orm.IOrm
	publisher changefeed.IPublisher
	closers   []func() error
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "repoctl",
		Short:         "Query and modify tables through criteria-composed repositories",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init(cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return a.close()
		},
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&a.configPath, "config", "c", "", "Config file (default ./repokit.yaml)")
	flags.StringVar(&a.engine, "engine", "", "ORM engine: basic, gorm")
	flags.StringVar(&a.driver, "driver", "", "Database driver: sqlite, pgx, mysql")
	flags.StringVar(&a.dsn, "dsn", "", "Database DSN or sqlite file path")
	flags.StringVar(&a.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	flags.StringVar(&a.logFormat, "log-format", "", "Log format: json, console")
	flags.StringVar(&a.feed, "changefeed", "", "Change event publisher: none, nats, redis")

	root.AddCommand(
		newListCmd(a),
		newFindCmd(a),
		newCountCmd(a),
		newUpdateCmd(a),
		newDeleteCmd(a),
	)
	return root
}

// init 加载配置并用命令行参数覆盖，然后初始化日志。
func (a *app) init(cmd *cobra.Command) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if a.engine != "" {
		cfg.Database.Engine = a.engine
	}
	if a.driver != "" {
		cfg.Database.Driver = a.driver
	}
	if a.dsn != "" {
		cfg.Database.Database = a.dsn
	}
	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
	}
	if a.logFormat != "" {
		cfg.Log.Format = a.logFormat
	}
	if a.feed != "" {
		cfg.Changefeed.Kind = a.feed
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := logging.NewZapFromConfig(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return err
	}
	logging.SetLogger(logger)
	a.cfg, a.logger = cfg, logger
	a.closers = append(a.closers, func() error {
		_ = logger.Sync()
		return nil
	})

	cmd.SetContext(logging.ContextWithFields(contextOf(cmd), logging.String("command", cmd.Name())))
	return nil
}

// open 按需建立数据库连接与事件发布器。
func (a *app) open(ctx context.Context) error {
	if a.orm != nil {
		return nil
	}
	engine, closeEngine, err := openEngine(ctx, a.cfg.Database, a.cfg.Log.Level, a.logger)
	if err != nil {
		return fmt.Errorf("open %s engine: %w", a.cfg.Database.Engine, err)
	}
	a.orm = engine
	a.closers = append(a.closers, closeEngine)

	pub, closePub, err := openPublisher(a.cfg.Changefeed, a.logger)
	if err != nil {
		return fmt.Errorf("open changefeed: %w", err)
	}
	a.publisher = pub
	if closePub != nil {
		a.closers = append(a.closers, closePub)
	}
	return nil
}

func (a *app) close() error {
	var first error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil && first == nil {
			first = err
		}
	}
	a.closers = nil
	return first
}

func contextOf(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
