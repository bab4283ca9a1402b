package events

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/killallgit/meeting-recorder/internal/logging"
	"github.com/nats-io/nats.go"
)

// NatsConn is the part of *nats.Conn the publisher uses
type NatsConn interface {
	IsConnected() bool
	Publish(subj string, data []byte) error
	Drain() error
}

// NATSPublisher publishes each event on subject <prefix>.<type>
type NATSPublisher struct {
	conn   NatsConn
	prefix string
}

// NewNATSPublisher connects to url
func NewNATSPublisher(url, prefix string) (*NATSPublisher, error) {
	conn, err := nats.Connect(url,
		nats.Name("meeting-recorder"),
		nats.Timeout(5*time.Second),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				slog.Warn("NATS disconnected", logging.ErrKey, err)
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			slog.Info("NATS reconnected", "url", c.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connecting to NATS: %w", err)
	}
	return NewNATSPublisherWithConn(conn, prefix), nil
}

// NewNATSPublisherWithConn wraps an existing connection
func NewNATSPublisherWithConn(conn NatsConn, prefix string) *NATSPublisher {
	return &NATSPublisher{conn: conn, prefix: prefix}
}

func (p *NATSPublisher) subject(t Type) string {
	if p.prefix == "" {
		return string(t)
	}
	return p.prefix + "." + string(t)
}

func (p *NATSPublisher) Publish(ctx context.Context, event Event) error {
	data, err := event.encode()
	if err != nil {
		return fmt.Errorf("encoding event: %w", err)
	}

	subject := p.subject(event.Type)
	if err := p.conn.Publish(subject, data); err != nil {
		return fmt.Errorf("publishing to %s: %w", subject, err)
	}
	slog.DebugContext(ctx, "sent message to NATS", "subject", subject)
	return nil
}

func (p *NATSPublisher) Close() error {
	return p.conn.Drain()
}
