package mq

import (
	"encoding/json"
	"log/slog"
	"sync"
	"testing"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/shaiso/Navigata/internal/events"
)

// recordSink собирает события, донесённые relay'ем.
type recordSink struct {
	mu     sync.Mutex
	events []events.Event
}

func (s *recordSink) Publish(ev events.Event) {
	s.mu.Lock()
	s.events = append(s.events, ev)
	s.mu.Unlock()
}

func TestEventRelayDispatch(t *testing.T) {
	sink := &recordSink{}
	relay := NewEventRelay(nil, sink, slog.Default())

	executionID := uuid.New()
	ev := events.New(events.TypeProgress, executionID, events.ProgressPayload{
		CurrentStep: 2,
		TotalSteps:  5,
	})
	body, err := json.Marshal(ev)
	if err != nil {
		t.Fatalf("marshal event: %v", err)
	}

	relay.dispatch(amqp.Delivery{Body: body, RoutingKey: string(ev.Type)})

	if len(sink.events) != 1 {
		t.Fatalf("sink got %d events, want 1", len(sink.events))
	}
	got := sink.events[0]
	if got.Type != events.TypeProgress {
		t.Errorf("type = %s, want %s", got.Type, events.TypeProgress)
	}
	if got.ExecutionID != executionID {
		t.Errorf("execution_id = %s, want %s", got.ExecutionID, executionID)
	}
	// Payload после JSON round-trip — map, но содержимое сохранено
	payload, ok := got.Payload.(map[string]any)
	if !ok {
		t.Fatalf("payload type %T", got.Payload)
	}
	if payload["current_step"] != float64(2) || payload["total_steps"] != float64(5) {
		t.Errorf("payload = %v", payload)
	}
}

func TestEventRelayDispatchMalformed(t *testing.T) {
	sink := &recordSink{}
	relay := NewEventRelay(nil, sink, slog.Default())

	relay.dispatch(amqp.Delivery{Body: []byte("not json")})

	if len(sink.events) != 0 {
		t.Errorf("malformed event must be dropped, sink got %d", len(sink.events))
	}
}
