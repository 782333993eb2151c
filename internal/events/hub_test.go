package events

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestHub_PublishSubscribe(t *testing.T) {
	hub := NewHub()
	defer hub.Close()

	ch, unsub := hub.Subscribe()
	defer unsub()

	execID := uuid.New()
	hub.Publish(New(TypeStarted, execID, StartedPayload{WorkflowID: uuid.New()}))

	select {
	case ev := <-ch:
		if ev.Type != TypeStarted {
			t.Errorf("expected started, got %s", ev.Type)
		}
		if ev.ExecutionID != execID {
			t.Error("execution id mismatch")
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for event")
	}
}

func TestHub_LateSubscriberGetsNoReplay(t *testing.T) {
	hub := NewHub()
	defer hub.Close()

	hub.Publish(New(TypeLog, uuid.New(), nil))

	ch, unsub := hub.Subscribe()
	defer unsub()

	select {
	case ev := <-ch:
		t.Errorf("late subscriber should not receive earlier events, got %v", ev.Type)
	case <-time.After(50 * time.Millisecond):
		// ok: без replay
	}
}

func TestHub_Unsubscribe(t *testing.T) {
	hub := NewHub()
	defer hub.Close()

	ch, unsub := hub.Subscribe()
	if hub.SubscriberCount() != 1 {
		t.Fatalf("expected 1 subscriber, got %d", hub.SubscriberCount())
	}

	unsub()
	if hub.SubscriberCount() != 0 {
		t.Errorf("expected 0 subscribers, got %d", hub.SubscriberCount())
	}

	// Канал закрыт
	if _, ok := <-ch; ok {
		t.Error("channel should be closed after unsubscribe")
	}
}

func TestHub_SlowSubscriberDoesNotBlock(t *testing.T) {
	hub := NewHub()
	defer hub.Close()

	// Подписчик, который никогда не читает
	_, unsub := hub.Subscribe()
	defer unsub()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < defaultBuffer*2; i++ {
			hub.Publish(New(TypeLog, uuid.New(), nil))
		}
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked on slow subscriber")
	}
}
