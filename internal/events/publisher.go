package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"listing-admin-api/internal/logger"

	"github.com/nats-io/nats.go"
)

// Event types published on <prefix>.<type>.
const (
	ListingCreated = "created"
	ListingUpdated = "updated"
	ListingDeleted = "deleted"
)

// ListingEvent describes a change to the catalog.
type ListingEvent struct {
	Type       string    `json:"type"`
	ListingIDs []string  `json:"listing_ids"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Publisher emits catalog events.
type Publisher interface {
	Publish(ctx context.Context, event ListingEvent) error
	Close()
}

// NatsPublisher publishes JSON events to NATS core subjects.
type NatsPublisher struct {
	conn   *nats.Conn
	prefix string
}

// NewNatsPublisher connects to url. The connection reconnects on its own.
func NewNatsPublisher(url, subjectPrefix string, log logger.Logger) (*NatsPublisher, error) {
	log = log.With("component", "nats")
	conn, err := nats.Connect(url,
		nats.Name("listing-admin-api"),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Warn("nats disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			log.Info("nats reconnected", "url", c.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to nats: %w", err)
	}
	return &NatsPublisher{conn: conn, prefix: subjectPrefix}, nil
}

// Subject returns the subject an event type is published on.
func Subject(prefix, eventType string) string {
	return prefix + "." + eventType
}

// Publish marshals the event and publishes it.
func (p *NatsPublisher) Publish(ctx context.Context, event ListingEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return p.conn.Publish(Subject(p.prefix, event.Type), data)
}

// Close drains pending messages and closes the connection.
func (p *NatsPublisher) Close() {
	if err := p.conn.Drain(); err != nil {
		p.conn.Close()
	}
}

// NopPublisher drops every event. Used when NATS is not configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, ListingEvent) error { return nil }
func (NopPublisher) Close()                                      {}

var (
	_ Publisher = (*NatsPublisher)(nil)
	_ Publisher = NopPublisher{}
)
