package changefeed

import (
	"context"
	"errors"

	"github.com/nats-io/nats.go"

	"repokit/logging"
)

// natsConn 仅包含发布所需的 *nats.Conn 方法，便于测试替换。
type natsConn interface {
	Publish(subj string, data []byte) error
	Close()
}

// NatsConfig NATS 发布配置。Conn 为空时按 URL 建立连接并由发布器负责关闭。
type NatsConfig struct {
	URL           string
	SubjectPrefix string
	Conn          *nats.Conn
	Logger        logging.Logger
}

// NatsPublisher 以 core NATS 主题发布变更事件。
type NatsPublisher struct {
	conn     natsConn
	prefix   string
	ownsConn bool
	logger   logging.Logger
}

// NewNatsPublisher 创建 NATS 发布器。
func NewNatsPublisher(cfg NatsConfig) (*NatsPublisher, error) {
	if cfg.SubjectPrefix == "" {
		cfg.SubjectPrefix = "repokit.changes."
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.GetLogger().WithFields(logging.String("component", "changefeed.nats"))
	}

	var (
		conn natsConn
		own  bool
	)
	if cfg.Conn != nil {
		conn = cfg.Conn
	} else {
		if cfg.URL == "" {
			return nil, errors.New("changefeed: nats url not configured")
		}
		nc, err := nats.Connect(cfg.URL, nats.Name("repokit-changefeed"))
		if err != nil {
			return nil, err
		}
		conn, own = nc, true
	}
	return &NatsPublisher{conn: conn, prefix: cfg.SubjectPrefix, ownsConn: own, logger: cfg.Logger}, nil
}

// Publish 编码事件并发布到 <prefix><table>.<op>。
func (p *NatsPublisher) Publish(ctx context.Context, e Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := Encode(e)
	if err != nil {
		return err
	}
	subject := e.Subject(p.prefix)
	if err := p.conn.Publish(subject, data); err != nil {
		return err
	}
	p.logger.Debug(ctx, "change event published",
		logging.String("subject", subject), logging.String("event_id", e.ID))
	return nil
}

// Close 关闭自行建立的连接。
func (p *NatsPublisher) Close() error {
	if p.ownsConn && p.conn != nil {
		p.conn.Close()
	}
	return nil
}
