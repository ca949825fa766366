// Package publisher streams cart changes to Kafka.
package publisher

import (
	"context"
	"encoding/json"
	"log/slog"
	"strconv"
	"time"

	"github.com/fjod/go_cart/storefront/internal/cart"
	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
)

const EventType = "cart.changed"

// MessageWriter is the part of *kafka.Writer the publisher needs.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type CartEvent struct {
	EventID       string            `json:"event_id"`
	SessionID     string            `json:"session_id"`
	Kind          cart.ChangeKind   `json:"kind"`
	ProductID     int64             `json:"product_id,omitempty"`
	Items         []domain.CartItem `json:"items"`
	TotalQuantity int               `json:"total_quantity"`
	OccurredAt    time.Time         `json:"occurred_at"`
}

func NewKafkaWriter(topic string, brokers ...string) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
	}
}

// Publisher queues cart events from store listeners and writes them from
// Run. Listeners never block: when the queue is full the event is dropped
// and logged.
type Publisher struct {
	writer  MessageWriter
	events  chan CartEvent
	timeout time.Duration
	logger  *slog.Logger
}

func New(writer MessageWriter, buffer int, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{
		writer:  writer,
		events:  make(chan CartEvent, buffer),
		timeout: 5 * time.Second,
		logger:  logger,
	}
}

// Listener returns a store listener that publishes changes of sessionID.
func (p *Publisher) Listener(sessionID string) cart.Listener {
	return func(change cart.Change) {
		event := CartEvent{
			EventID:       uuid.NewString(),
			SessionID:     sessionID,
			Kind:          change.Kind,
			ProductID:     change.ProductID,
			Items:         change.Items,
			TotalQuantity: change.TotalQuantity,
			OccurredAt:    time.Now().UTC(),
		}
		select {
		case p.events <- event:
		default:
			p.logger.Warn("cart event dropped, queue full",
				"session_id", sessionID,
				"kind", change.Kind,
			)
		}
	}
}

// Run writes queued events until ctx is done, then drains what is still
// queued within one write timeout. ctx only signals the stop; each write
// is bounded by the publisher's own timeout.
func (p *Publisher) Run(ctx context.Context) {
	writeCtx := context.WithoutCancel(ctx)
	for {
		select {
		case event := <-p.events:
			p.publish(writeCtx, event)
		case <-ctx.Done():
			p.drain()
			return
		}
	}
}

func (p *Publisher) drain() {
	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()
	for {
		select {
		case event := <-p.events:
			p.publish(ctx, event)
		default:
			return
		}
	}
}

func (p *Publisher) publish(ctx context.Context, event CartEvent) {
	payload, err := json.Marshal(event)
	if err != nil {
		p.logger.Error("failed to marshal cart event", "event_id", event.EventID, "error", err)
		return
	}

	msg := kafka.Message{
		Key:   []byte(event.SessionID), // per-session ordering
		Value: payload,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(EventType)},
			{Key: "kind", Value: []byte(event.Kind)},
			{Key: "total_quantity", Value: []byte(strconv.Itoa(event.TotalQuantity))},
		},
	}

	writeCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	if err := p.writer.WriteMessages(writeCtx, msg); err != nil {
		p.logger.Error("failed to publish cart event", "event_id", event.EventID, "error", err)
	}
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}
