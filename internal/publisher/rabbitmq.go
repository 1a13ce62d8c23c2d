package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"post_importer/internal/domain"
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

// EventContentCreated is the event name of every published message.
const EventContentCreated = "content.created"

type ContentMessage struct {
	Event     string         `json:"event"`
	Item      ContentPayload `json:"item"`
	Timestamp time.Time      `json:"timestamp"`
}

type ContentPayload struct {
	ID           int64             `json:"id"`
	Title        string            `json:"title"`
	Body         string            `json:"body"`
	Status       string            `json:"status"`
	AuthorID     int64             `json:"author_id"`
	PublishedAt  time.Time         `json:"published_at"`
	Categories   []string          `json:"categories"`
	Meta         map[string]string `json:"meta"`
	ThumbnailURL string            `json:"thumbnail_url,omitempty"`
}

func newContentPayload(item *domain.ContentItem) ContentPayload {
	categories := make([]string, len(item.Categories))
	for i, c := range item.Categories {
		categories[i] = c.Name
	}
	return ContentPayload{
		ID:           item.ID,
		Title:        item.Title,
		Body:         item.Body,
		Status:       string(item.Status),
		AuthorID:     item.AuthorID,
		PublishedAt:  item.PublishedAt,
		Categories:   categories,
		Meta:         item.Meta,
		ThumbnailURL: item.ThumbnailURL,
	}
}

// Publish announces a newly imported item.
func (r *RabbitMQ) Publish(ctx context.Context, item *domain.ContentItem) error {
	msg := ContentMessage{
		Event:     EventContentCreated,
		Item:      newContentPayload(item),
		Timestamp: time.Now().UTC(),
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
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
			Type:         EventContentCreated,
			Body:         body,
			Timestamp:    time.Now(),
		},
	)
	if err != nil {
		return fmt.Errorf("publish message: %w", err)
	}

	r.logger.Debug("published item",
		"item_id", item.ID,
		"event", EventContentCreated,
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
