package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/shaiso/Navigata/internal/events"
)

// MessageType — тип сообщения в очереди.
type MessageType string

// Типы сообщений.
const (
	MessageTypeExecutionRequested MessageType = "execution.requested"
	MessageTypeExecutionCancel    MessageType = "execution.cancel"
)

// Publisher публикует сообщения в RabbitMQ.
type Publisher struct {
	conn   *Connection
	logger *slog.Logger
}

// NewPublisher создаёт новый Publisher.
func NewPublisher(conn *Connection, logger *slog.Logger) *Publisher {
	return &Publisher{
		conn:   conn,
		logger: logger,
	}
}

// Message — сообщение для публикации.
type Message struct {
	// ID — уникальный идентификатор сообщения.
	ID string `json:"id"`

	// Type — тип сообщения.
	Type MessageType `json:"type"`

	// Payload — полезная нагрузка.
	Payload any `json:"payload"`

	// Timestamp — время создания.
	Timestamp time.Time `json:"timestamp"`
}

// ExecutionRequestedPayload — payload для сообщения о новом execution.
type ExecutionRequestedPayload struct {
	ExecutionID uuid.UUID `json:"execution_id"`
}

// ExecutionCancelPayload — payload запроса на отмену execution.
type ExecutionCancelPayload struct {
	ExecutionID uuid.UUID `json:"execution_id"`
}

// Publish публикует сообщение в указанный exchange с routing key.
func (p *Publisher) Publish(ctx context.Context, exchange Exchange, routingKey RoutingKey, msg *Message) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	return p.conn.WithChannel(ctx, func(ch *amqp.Channel) error {
		err := ch.PublishWithContext(
			ctx,
			string(exchange),   // exchange
			string(routingKey), // routing key
			false,
			false,
			amqp.Publishing{
				ContentType:  "application/json",
				DeliveryMode: amqp.Persistent, // сообщение переживёт рестарт RabbitMQ
				MessageId:    msg.ID,
				Timestamp:    msg.Timestamp,
				Body:         body,
			},
		)
		if err != nil {
			return fmt.Errorf("publish to %s/%s: %w", exchange, routingKey, err)
		}

		p.logger.Debug("published message",
			"exchange", exchange,
			"routing_key", routingKey,
			"message_id", msg.ID,
			"type", msg.Type,
		)

		return nil
	})
}

// PublishExecutionRequested публикует событие о новом execution,
// ожидающем выполнения. Потребитель: Orchestrator.
func (p *Publisher) PublishExecutionRequested(ctx context.Context, executionID uuid.UUID) error {
	msg := &Message{
		ID:        uuid.New().String(),
		Type:      MessageTypeExecutionRequested,
		Payload:   ExecutionRequestedPayload{ExecutionID: executionID},
		Timestamp: time.Now(),
	}

	return p.Publish(ctx, ExchangeExecutions, RoutingKeyRequested, msg)
}

// PublishExecutionCancel публикует запрос на отмену execution.
// Потребитель: Orchestrator.
func (p *Publisher) PublishExecutionCancel(ctx context.Context, executionID uuid.UUID) error {
	msg := &Message{
		ID:        uuid.New().String(),
		Type:      MessageTypeExecutionCancel,
		Payload:   ExecutionCancelPayload{ExecutionID: executionID},
		Timestamp: time.Now(),
	}

	return p.Publish(ctx, ExchangeExecutions, RoutingKeyCancel, msg)
}

// EventMirror — events.Broadcaster, зеркалирующий события execution
// в exchange navigata.events (routing key — тип события).
//
// Публикация fire-and-forget: ошибка логируется и не попадает
// в поток управления execution.
type EventMirror struct {
	conn   *Connection
	logger *slog.Logger
}

// NewEventMirror создаёт EventMirror.
func NewEventMirror(conn *Connection, logger *slog.Logger) *EventMirror {
	return &EventMirror{conn: conn, logger: logger}
}

// Publish публикует событие в navigata.events.
func (m *EventMirror) Publish(ev events.Event) {
	body, err := json.Marshal(ev)
	if err != nil {
		m.logger.Error("failed to marshal event", "type", ev.Type, "error", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err = m.conn.WithChannel(ctx, func(ch *amqp.Channel) error {
		return ch.PublishWithContext(
			ctx,
			string(ExchangeEvents),
			string(ev.Type), // routing key — тип события
			false,
			false,
			amqp.Publishing{
				ContentType: "application/json",
				Timestamp:   ev.Timestamp,
				Body:        body,
			},
		)
	})
	if err != nil {
		m.logger.Warn("failed to mirror event to mq",
			"type", ev.Type,
			"execution_id", ev.ExecutionID,
			"error", err,
		)
	}
}
