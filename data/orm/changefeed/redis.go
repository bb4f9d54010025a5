package changefeed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"repokit/logging"
)

// streamClient 仅包含发布所需的 go-redis 命令，便于测试替换。
type streamClient interface {
	XAdd(ctx context.Context, a *redis.XAddArgs) *redis.StringCmd
	Close() error
}

// RedisConfig Redis Streams 发布配置。Client 为空时按 Addr 创建客户端。
type RedisConfig struct {
	Client       redis.UniversalClient
	Addr         string
	Username     string
	Password     string
	DB           int
	StreamPrefix string
	// MaxLen 大于 0 时按近似长度裁剪流
	MaxLen int64
	Logger logging.Logger
}

// RedisPublisher 以每表一个 Stream 的方式追加变更事件。
type RedisPublisher struct {
	client    streamClient
	ownClient bool
	prefix    string
	maxLen    int64
	logger    logging.Logger
}

// NewRedisPublisher 创建 Redis Streams 发布器。
func NewRedisPublisher(cfg RedisConfig) (*RedisPublisher, error) {
	if cfg.StreamPrefix == "" {
		cfg.StreamPrefix = "repokit:changes:"
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.GetLogger().WithFields(logging.String("component", "changefeed.redis"))
	}

	var (
		cl  streamClient
		own bool
	)
	if cfg.Client != nil {
		cl = cfg.Client
	} else {
		if cfg.Addr == "" {
			return nil, errors.New("changefeed: redis addr not configured")
		}
		cl = redis.NewClient(&redis.Options{Addr: cfg.Addr, Username: cfg.Username, Password: cfg.Password, DB: cfg.DB})
		own = true
	}
	return &RedisPublisher{client: cl, ownClient: own, prefix: cfg.StreamPrefix, maxLen: cfg.MaxLen, logger: cfg.Logger}, nil
}

// Publish 以 XADD 追加事件到 <prefix><table>。
func (p *RedisPublisher) Publish(ctx context.Context, e Event) error {
	values, err := encodeStreamValues(e)
	if err != nil {
		return err
	}
	args := &redis.XAddArgs{Stream: p.prefix + e.Table, Values: values}
	if p.maxLen > 0 {
		args.MaxLen = p.maxLen
		args.Approx = true
	}
	id, err := p.client.XAdd(ctx, args).Result()
	if err != nil {
		return err
	}
	p.logger.Debug(ctx, "change event appended",
		logging.String("stream", args.Stream), logging.String("entry_id", id))
	return nil
}

// Close 关闭自行创建的客户端。
func (p *RedisPublisher) Close() error {
	if p.ownClient {
		return p.client.Close()
	}
	return nil
}

func encodeStreamValues(e Event) (map[string]any, error) {
	keys, err := json.Marshal(e.Keys)
	if err != nil {
		return nil, err
	}
	values, err := json.Marshal(e.Values)
	if err != nil {
		return nil, err
	}
	filter, err := json.Marshal(e.Filter)
	if err != nil {
		return nil, err
	}
	ts := e.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	return map[string]any{
		"id":        e.ID,
		"table":     e.Table,
		"op":        string(e.Op),
		"keys":      string(keys),
		"filter":    string(filter),
		"values":    string(values),
		"timestamp": ts.UnixNano(),
	}, nil
}

// DecodeStreamEntry 将 Stream 条目还原为事件，供消费方使用。
func DecodeStreamEntry(entry redis.XMessage) (Event, error) {
	e := Event{}
	e.ID, _ = entry.Values["id"].(string)
	e.Table, _ = entry.Values["table"].(string)
	op, _ := entry.Values["op"].(string)
	e.Op = Op(op)

	for field, dst := range map[string]any{"keys": &e.Keys, "values": &e.Values, "filter": &e.Filter} {
		raw, _ := entry.Values[field].(string)
		if raw == "" || raw == "null" {
			continue
		}
		if err := json.Unmarshal([]byte(raw), dst); err != nil {
			return Event{}, fmt.Errorf("changefeed: decode %s: %w", field, err)
		}
	}

	switch ts := entry.Values["timestamp"].(type) {
	case string:
		if n, err := strconv.ParseInt(ts, 10, 64); err == nil {
			e.Timestamp = time.Unix(0, n).UTC()
		}
	case int64:
		e.Timestamp = time.Unix(0, ts).UTC()
	}
	return e, nil
}
