// Package config 负责加载 repoctl 与示例程序使用的配置（yaml + 环境变量）。
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	core "repokit/data/db"
)

// EnvPrefix 环境变量前缀，例如 REPOKIT_DATABASE_DRIVER。
const EnvPrefix = "REPOKIT"

// Config 应用配置
type Config struct {
	Database   DatabaseConfig   `mapstructure:"database"`
	Log        LogConfig        `mapstructure:"log"`
	Changefeed ChangefeedConfig `mapstructure:"changefeed"`
	Repository RepositoryConfig `mapstructure:"repository"`
}

// DatabaseConfig 数据库配置，Engine 选择 ORM 适配器。
type DatabaseConfig struct {
	Engine        string `mapstructure:"engine"` // basic, gorm
	core.DBConfig `mapstructure:",squash"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // json, console
}

// ChangefeedConfig 变更事件发布配置
type ChangefeedConfig struct {
	Kind  string      `mapstructure:"kind"` // none, nats, redis
	NATS  NATSConfig  `mapstructure:"nats"`
	Redis RedisConfig `mapstructure:"redis"`
}

type NATSConfig struct {
	URL           string `mapstructure:"url"`
	SubjectPrefix string `mapstructure:"subject_prefix"`
}

type RedisConfig struct {
	Addr         string `mapstructure:"addr"`
	Username     string `mapstructure:"username"`
	Password     string `mapstructure:"password"`
	DB           int    `mapstructure:"db"`
	StreamPrefix string `mapstructure:"stream_prefix"`
	MaxLen       int64  `mapstructure:"max_len"`
}

// RepositoryConfig 仓储默认行为
type RepositoryConfig struct {
	PerPage                    int  `mapstructure:"per_page"`
	PreventCriteriaOverwriting bool `mapstructure:"prevent_criteria_overwriting"`
}

// Load 加载配置；configPath 为空时在 . 与 ./config 下查找 repokit.yaml，找不到则使用默认值。
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("repokit")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("config: read %s: %w", configPath, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate 校验枚举类配置项。
func (c *Config) Validate() error {
	switch c.Database.Engine {
	case "basic", "gorm":
	default:
		return fmt.Errorf("config: unknown database.engine %q", c.Database.Engine)
	}
	if c.Database.Engine == "gorm" && c.Database.Driver != "mysql" {
		return fmt.Errorf("config: gorm engine requires database.driver mysql, got %q", c.Database.Driver)
	}
	switch c.Changefeed.Kind {
	case "", "none":
	case "nats":
		if c.Changefeed.NATS.URL == "" {
			return fmt.Errorf("config: changefeed.nats.url is required")
		}
	case "redis":
		if c.Changefeed.Redis.Addr == "" {
			return fmt.Errorf("config: changefeed.redis.addr is required")
		}
	default:
		return fmt.Errorf("config: unknown changefeed.kind %q", c.Changefeed.Kind)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	// Database
	v.SetDefault("database.engine", "basic")
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.database", "repokit.db")
	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 2)
	v.SetDefault("database.conn_max_lifetime", 5*time.Minute)
	v.SetDefault("database.ping_timeout", 3*time.Second)

	// Log
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")

	// Changefeed
	v.SetDefault("changefeed.kind", "none")
	v.SetDefault("changefeed.nats.url", "")
	v.SetDefault("changefeed.nats.subject_prefix", "repokit.changes.")
	v.SetDefault("changefeed.redis.addr", "")
	v.SetDefault("changefeed.redis.username", "")
	v.SetDefault("changefeed.redis.password", "")
	v.SetDefault("changefeed.redis.db", 0)
	v.SetDefault("changefeed.redis.stream_prefix", "repokit:changes:")
	v.SetDefault("changefeed.redis.max_len", 10000)

	// Repository
	v.SetDefault("repository.per_page", 25)
	v.SetDefault("repository.prevent_criteria_overwriting", true)
}
