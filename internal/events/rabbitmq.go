// Package events pushes content lifecycle notifications onto RabbitMQ so
// downstream consumers (site CMS, analytics) can react without polling.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"content_pipeline/internal/domain"
)

const (
	ActionIngested    = "ingested"
	ActionGenerated   = "generated"
	ActionDistributed = "distributed"
)

type RabbitMQ struct {
	conn       *amqp.Connection
	channel    *amqp.Channel
	exchange   string
	routingKey string
	logger     *slog.Logger
}

type Config struct {
	URL        string
	Exchange   string
	RoutingKey string
	QueueName  string
}

func NewRabbitMQ(cfg Config, logger *slog.Logger) (*RabbitMQ, error) {
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("connect to rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	err = ch.ExchangeDeclare(
		cfg.Exchange,
		"direct",
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}

	q, err := ch.QueueDeclare(
		cfg.QueueName,
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("declare queue: %w", err)
	}

	err = ch.QueueBind(
		q.Name,
		cfg.RoutingKey,
		cfg.Exchange,
		false,
		nil,
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("bind queue: %w", err)
	}

	logger.Info("connected to rabbitmq",
		"exchange", cfg.Exchange,
		"queue", cfg.QueueName,
		"routing_key", cfg.RoutingKey,
	)

	return &RabbitMQ{
		conn:       conn,
		channel:    ch,
		exchange:   cfg.Exchange,
		routingKey: cfg.RoutingKey,
		logger:     logger,
	}, nil
}

// ContentEvent is the wire message for every lifecycle notification.
type ContentEvent struct {
	Action      string     `json:"action"`
	TenantID    int64      `json:"tenant_id"`
	ContentID   int64      `json:"content_id"`
	Title       string     `json:"title"`
	Origin      string     `json:"origin"`
	Status      string     `json:"status"`
	Channel     string     `json:"channel,omitempty"`
	TaskStatus  string     `json:"task_status,omitempty"`
	ExternalRef string     `json:"external_reference,omitempty"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
	Timestamp   time.Time  `json:"timestamp"`
}

// PublishContent announces a newly created content item.
func (r *RabbitMQ) PublishContent(ctx context.Context, item *domain.ContentItem, action string) error {
	evt := ContentEvent{
		Action:      action,
		TenantID:    item.TenantID,
		ContentID:   item.ID,
		Title:       item.Title,
		Origin:      string(item.Origin),
		Status:      string(item.Status),
		PublishedAt: item.PublishedAt,
		Timestamp:   time.Now().UTC(),
	}
	return r.publish(ctx, evt)
}

// PublishDistribution announces the terminal outcome of a distribution task.
func (r *RabbitMQ) PublishDistribution(ctx context.Context, item *domain.ContentItem, task *domain.DistributionTask) error {
	evt := ContentEvent{
		Action:     ActionDistributed,
		TenantID:   item.TenantID,
		ContentID:  item.ID,
		Title:      item.Title,
		Origin:     string(item.Origin),
		Status:     string(item.Status),
		Channel:    string(task.Channel),
		TaskStatus: string(task.Status),
		Timestamp:  time.Now().UTC(),
	}
	if task.ExternalReference != nil {
		evt.ExternalRef = *task.ExternalReference
	}
	return r.publish(ctx, evt)
}

func (r *RabbitMQ) publish(ctx context.Context, evt ContentEvent) error {
	body, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	err = r.channel.PublishWithContext(
		ctx,
		r.exchange,
		r.routingKey,
		false,
		false,
		amqp.Publishing{
			DeliveryMode: amqp.Persistent,
			ContentType:  "application/json",
			Body:         body,
			Timestamp:    time.Now(),
		},
	)
	if err != nil {
		return fmt.Errorf("publish event: %w", err)
	}

	r.logger.Debug("published event",
		"action", evt.Action,
		"content_id", evt.ContentID,
	)

	return nil
}

func (r *RabbitMQ) Close() error {
	if r.channel != nil {
		r.channel.Close()
	}
	if r.conn != nil {
		return r.conn.Close()
	}
	return nil
}
