package gormorm

import (
	"context"
	"errors"
	"fmt"
	"time"

	gormlogger "gorm.io/gorm/logger"

	"repokit/logging"
)

// LoggerConfig 控制 gorm 日志桥接行为。
type LoggerConfig struct {
	SlowThreshold             time.Duration
	IgnoreRecordNotFoundError bool
}

// DefaultLoggerConfig 慢查询阈值 200ms，不忽略 not found。
func DefaultLoggerConfig() LoggerConfig {
	return LoggerConfig{SlowThreshold: 200 * time.Millisecond}
}

// Logger 将 gorm 的日志输出桥接到 logging.Logger。
type Logger struct {
	level  gormlogger.LogLevel
	logger logging.Logger
	config LoggerConfig
}

// NewLogger 创建 gorm 日志桥接，logger 为 nil 时使用全局 Logger。
func NewLogger(logger logging.Logger, level gormlogger.LogLevel, config LoggerConfig) *Logger {
	if logger == nil {
		logger = logging.GetLogger()
	}
	return &Logger{level: level, logger: logger, config: config}
}

// ParseLogLevel 把 logging 的级别名映射为 gorm 级别；debug 与 info 都输出每条 SQL。
func ParseLogLevel(name string) gormlogger.LogLevel {
	if name == "silent" {
		return gormlogger.Silent
	}
	lvl, err := logging.ParseLevel(name)
	if err != nil {
		return gormlogger.Warn
	}
	switch lvl {
	case logging.DebugLevel, logging.InfoLevel:
		return gormlogger.Info
	case logging.WarnLevel:
		return gormlogger.Warn
	default:
		return gormlogger.Error
	}
}

func (l *Logger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	return &Logger{level: level, logger: l.logger, config: l.config}
}

func (l *Logger) Info(ctx context.Context, msg string, args ...interface{}) {
	if l.level >= gormlogger.Info {
		l.logger.Info(ctx, fmt.Sprintf(msg, args...))
	}
}

func (l *Logger) Warn(ctx context.Context, msg string, args ...interface{}) {
	if l.level >= gormlogger.Warn {
		l.logger.Warn(ctx, fmt.Sprintf(msg, args...))
	}
}

func (l *Logger) Error(ctx context.Context, msg string, args ...interface{}) {
	if l.level >= gormlogger.Error {
		l.logger.Error(ctx, fmt.Sprintf(msg, args...))
	}
}

func (l *Logger) Trace(ctx context.Context, begin time.Time, fc func() (sql string, rowsAffected int64), err error) {
	if l.level <= gormlogger.Silent {
		return
	}

	sql, rows := fc()
	elapsed := time.Since(begin)
	fields := []logging.Field{
		logging.String("sql", sql),
		logging.Duration("elapsed", elapsed),
		logging.Int64("rows", rows),
	}

	switch {
	case err != nil && l.level >= gormlogger.Error:
		if errors.Is(err, gormlogger.ErrRecordNotFound) && l.config.IgnoreRecordNotFoundError {
			return
		}
		l.logger.Error(ctx, "sql failed", append(fields, logging.Error(err))...)
	case l.config.SlowThreshold != 0 && elapsed > l.config.SlowThreshold && l.level >= gormlogger.Warn:
		l.logger.Warn(ctx, "slow sql", append(fields, logging.String("type", "slow_query"))...)
	case l.level >= gormlogger.Info:
		l.logger.Debug(ctx, "sql executed", fields...)
	}
}

var _ gormlogger.Interface = (*Logger)(nil)
