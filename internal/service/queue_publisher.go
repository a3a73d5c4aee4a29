package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/Kaplan-Paving/fleet-backend/internal/logger"
	"github.com/Kaplan-Paving/fleet-backend/internal/model"
	"github.com/Kaplan-Paving/fleet-backend/internal/queue"
)

// AMQPPublisher publishes fleet events to a durable RabbitMQ queue through
// the default exchange.  The connection is dialled on first use and
// re-dialled after a failure.  Messages are marked persistent.
type AMQPPublisher struct {
	url   string
	queue string

	mu   sync.Mutex
	conn *amqp.Connection
	ch   *amqp.Channel
	log  *slog.Logger
}

func NewAMQPPublisher(url, queue string) *AMQPPublisher {
	return &AMQPPublisher{url: url, queue: queue, log: logger.WithComponent("event-publisher")}
}

func (p *AMQPPublisher) channel() (*amqp.Channel, error) {
	if p.ch != nil && !p.ch.IsClosed() {
		return p.ch, nil
	}
	p.reset()
	conn, err := amqp.Dial(p.url)
	if err != nil {
		return nil, fmt.Errorf("rabbitmq dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("rabbitmq channel: %w", err)
	}
	if _, err := ch.QueueDeclare(p.queue, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("rabbitmq queue declare: %w", err)
	}
	p.conn, p.ch = conn, ch
	return ch, nil
}

func (p *AMQPPublisher) reset() {
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		_ = p.conn.Close()
	}
	p.conn, p.ch = nil, nil
}

// Publish sends ev.  Errors are logged and returned; callers treat them as
// non-fatal.
func (p *AMQPPublisher) Publish(ctx context.Context, ev queue.FleetEvent) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	ch, err := p.channel()
	if err != nil {
		p.log.Warn("publish failed", "kind", ev.Kind, "error", err)
		return err
	}
	err = ch.PublishWithContext(ctx, "", p.queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Type:         ev.Kind,
		Body:         body,
	})
	if err != nil {
		p.reset()
		p.log.Warn("publish failed", "kind", ev.Kind, "error", err)
		return err
	}
	return nil
}

func (p *AMQPPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.reset()
	return nil
}

// DirectPublisher hands events straight to a sink in-process.  It is used
// when no broker is configured.
type DirectPublisher struct {
	sink queue.Sink
}

func NewDirectPublisher(sink queue.Sink) *DirectPublisher { return &DirectPublisher{sink: sink} }

func (p *DirectPublisher) Publish(ctx context.Context, ev queue.FleetEvent) error {
	return p.sink.HandleEvent(ctx, ev)
}

// AuditRecorder appends audit rows.
type AuditRecorder interface {
	Record(ctx context.Context, e *model.AuditEntry) error
}

// Broadcaster pushes events to live clients.
type Broadcaster interface {
	Broadcast(ev queue.FleetEvent)
}

// EventRecorder is the event sink: every event becomes an audit entry and
// is broadcast to connected dashboards.
type EventRecorder struct {
	audit AuditRecorder
	hub   Broadcaster
}

func NewEventRecorder(audit AuditRecorder, hub Broadcaster) *EventRecorder {
	return &EventRecorder{audit: audit, hub: hub}
}

func (r *EventRecorder) HandleEvent(ctx context.Context, ev queue.FleetEvent) error {
	snap, err := json.Marshal(map[string]any{
		"entityId":     ev.EntityID,
		"kaplanUnitNo": ev.KaplanUnitNo,
		"reference":    ev.Reference,
		"occurredAt":   ev.OccurredAt,
	})
	if err != nil {
		return err
	}
	entry := &model.AuditEntry{
		UserRole:     "System",
		Action:       ev.Kind,
		Entity:       ev.Entity,
		Description:  strings.TrimSpace(ev.Description),
		DataSnapshot: snap,
	}
	if err := r.audit.Record(ctx, entry); err != nil {
		return fmt.Errorf("record audit: %w", err)
	}
	if r.hub != nil {
		r.hub.Broadcast(ev)
	}
	return nil
}
