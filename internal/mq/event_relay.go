package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/shaiso/Navigata/internal/events"
)

// EventRelay подписывается на navigata.events и переносит события
// в локальный Broadcaster (hub API-процесса). Так websocket-наблюдатели,
// подключённые к API, видят события executions, выполняющихся
// в процессе оркестратора.
//
// Очередь эксклюзивная, server-named и auto-delete: каждая реплика API
// получает собственную копию потока, и очередь исчезает вместе с ней.
// Доставка best-effort (auto-ack): поток событий — не источник истины,
// полное состояние execution наблюдатели забирают через API.
type EventRelay struct {
	conn   *Connection
	sink   events.Broadcaster
	logger *slog.Logger

	cancelFunc context.CancelFunc
}

// NewEventRelay создаёт EventRelay, публикующий события в sink.
func NewEventRelay(conn *Connection, sink events.Broadcaster, logger *slog.Logger) *EventRelay {
	return &EventRelay{
		conn:   conn,
		sink:   sink,
		logger: logger,
	}
}

// Start запускает перенос событий. Блокирует до отмены ctx или вызова
// Stop; при обрыве соединения ждёт reconnect и переподписывается
// (старая эксклюзивная очередь к этому моменту удалена брокером).
func (r *EventRelay) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	r.cancelFunc = cancel

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		deliveries, err := r.subscribe()
		if err != nil {
			r.logger.Error("event relay subscribe failed", "error", err)
			if err := r.awaitReconnect(ctx); err != nil {
				return err
			}
			continue
		}

		r.logger.Info("event relay started", "exchange", ExchangeEvents)

		if err := r.drain(ctx, deliveries); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			r.logger.Warn("event relay delivery channel closed")
			if err := r.awaitReconnect(ctx); err != nil {
				return err
			}
		}
	}
}

// Stop останавливает relay.
func (r *EventRelay) Stop() {
	if r.cancelFunc != nil {
		r.cancelFunc()
	}
}

// subscribe объявляет эксклюзивную очередь, привязывает её ко всем
// routing key обменника событий и открывает подписку.
func (r *EventRelay) subscribe() (<-chan amqp.Delivery, error) {
	ch := r.conn.Channel()
	if ch == nil {
		return nil, fmt.Errorf("no channel available")
	}

	q, err := ch.QueueDeclare(
		"",    // name — server-named
		false, // durable
		true,  // delete when unused
		true,  // exclusive
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		return nil, fmt.Errorf("declare relay queue: %w", err)
	}

	if err := ch.QueueBind(q.Name, "#", string(ExchangeEvents), false, nil); err != nil {
		return nil, fmt.Errorf("bind relay queue to %s: %w", ExchangeEvents, err)
	}

	deliveries, err := ch.Consume(
		q.Name,                 // queue
		"navigata.event-relay", // consumer tag
		true,                   // auto-ack — best-effort поток
		true,                   // exclusive
		false,                  // no-local
		false,                  // no-wait
		nil,                    // args
	)
	if err != nil {
		return nil, fmt.Errorf("consume relay queue: %w", err)
	}

	return deliveries, nil
}

// awaitReconnect блокирует до восстановления соединения или отмены ctx.
func (r *EventRelay) awaitReconnect(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-r.conn.ReconnectNotify():
		r.logger.Info("reconnected, resubscribing event relay")
		return nil
	}
}

// drain переносит события до закрытия канала доставки.
func (r *EventRelay) drain(ctx context.Context, deliveries <-chan amqp.Delivery) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case raw, ok := <-deliveries:
			if !ok {
				return fmt.Errorf("delivery channel closed")
			}
			r.dispatch(raw)
		}
	}
}

// dispatch парсит событие и публикует его в sink.
func (r *EventRelay) dispatch(raw amqp.Delivery) {
	var ev events.Event
	if err := json.Unmarshal(raw.Body, &ev); err != nil {
		r.logger.Warn("malformed event, dropping",
			"routing_key", raw.RoutingKey,
			"error", err,
		)
		return
	}
	r.sink.Publish(ev)
}
