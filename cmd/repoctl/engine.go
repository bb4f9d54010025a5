package main

import (
	"context"
	"fmt"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	gormmysql "gorm.io/driver/mysql"
	_ "modernc.org/sqlite"

	"repokit/config"
	dbbasic "repokit/data/db/basic"
	"repokit/data/orm"
	"repokit/data/orm/basic"
	"repokit/data/orm/changefeed"
	"repokit/data/orm/gormorm"
	"repokit/logging"
)

// openEngine 根据配置创建 ORM 适配器，返回的关闭函数释放底层连接。
func openEngine(ctx context.Context, cfg config.DatabaseConfig, logLevel string, logger logging.Logger) (orm.IOrm, func() error, error) {
	switch cfg.Engine {
	case "basic":
		database, err := dbbasic.New(cfg.DBConfig)
		if err != nil {
			return nil, nil, err
		}
		logger.Debug(ctx, "database opened",
			logging.String("engine", cfg.Engine), logging.String("driver", cfg.Driver))
		return basic.New(database), database.Close, nil
	case "gorm":
		engine, err := gormorm.Open(gormmysql.Open(cfg.Database), gormorm.Config{
			Logger:   logger.WithFields(logging.String("component", "gorm")),
			LogLevel: logLevel,
		})
		if err != nil {
			return nil, nil, err
		}
		sqlDB, err := engine.DB().DB()
		if err != nil {
			return nil, nil, err
		}
		if cfg.MaxOpenConns > 0 {
			sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
		}
		if cfg.MaxIdleConns > 0 {
			sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
		}
		return engine, sqlDB.Close, nil
	}
	return nil, nil, fmt.Errorf("unknown engine %q", cfg.Engine)
}

// openPublisher 根据配置创建变更事件发布器；kind 为 none 时返回 nil。
func openPublisher(cfg config.ChangefeedConfig, logger logging.Logger) (changefeed.IPublisher, func() error, error) {
	switch cfg.Kind {
	case "", "none":
		return nil, nil, nil
	case "nats":
		p, err := changefeed.NewNatsPublisher(changefeed.NatsConfig{
			URL:           cfg.NATS.URL,
			SubjectPrefix: cfg.NATS.SubjectPrefix,
			Logger:        logger.WithFields(logging.String("component", "changefeed.nats")),
		})
		if err != nil {
			return nil, nil, err
		}
		return p, p.Close, nil
	case "redis":
		p, err := changefeed.NewRedisPublisher(changefeed.RedisConfig{
			Addr:         cfg.Redis.Addr,
			Username:     cfg.Redis.Username,
			Password:     cfg.Redis.Password,
			DB:           cfg.Redis.DB,
			StreamPrefix: cfg.Redis.StreamPrefix,
			MaxLen:       cfg.Redis.MaxLen,
			Logger:       logger.WithFields(logging.String("component", "changefeed.redis")),
		})
		if err != nil {
			return nil, nil, err
		}
		return p, p.Close, nil
	}
	return nil, nil, fmt.Errorf("unknown changefeed kind %q", cfg.Kind)
}
