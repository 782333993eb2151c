package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"testing"

	"github.com/google/uuid"

	"github.com/shaiso/Navigata/internal/domain"
)

func TestEmitterAppendOrder(t *testing.T) {
	store := newMemStore()
	exec := domain.NewExecution(uuid.New())
	store.CreateExecution(context.Background(), exec)

	em := NewEmitter(exec.ID, store, &recordBroadcaster{}, slog.Default())

	for i := 0; i < 10; i++ {
		em.Emit(domain.LogLevelInfo, "test", fmt.Sprintf("entry %d", i))
	}
	em.Close()

	logs := em.Logs()
	if len(logs) != 10 {
		t.Fatalf("got %d entries, want 10", len(logs))
	}
	for i, entry := range logs {
		if want := fmt.Sprintf("entry %d", i); entry.Message != want {
			t.Errorf("entry %d = %q, want %q", i, entry.Message, want)
		}
	}

	// Close дописал полный журнал
	stored := store.execution(t, exec.ID)
	if len(stored.Logs) != 10 {
		t.Errorf("persisted %d entries, want 10", len(stored.Logs))
	}
}

func TestEmitterBroadcastsEachEntry(t *testing.T) {
	store := newMemStore()
	exec := domain.NewExecution(uuid.New())
	store.CreateExecution(context.Background(), exec)

	b := &recordBroadcaster{}
	em := NewEmitter(exec.ID, store, b, slog.Default())

	em.Emit(domain.LogLevelInfo, "test", "one")
	em.Emit(domain.LogLevelError, "test", "two")
	em.Close()

	logEvents := b.byType("log")
	if len(logEvents) != 2 {
		t.Fatalf("broadcast %d log events, want 2", len(logEvents))
	}
}

func TestEmitterMissingExecutionNotFatal(t *testing.T) {
	store := newMemStore() // execution отсутствует

	em := NewEmitter(uuid.New(), store, &recordBroadcaster{}, slog.Default())
	em.Emit(domain.LogLevelInfo, "test", "orphan entry")
	em.Close() // не должно паниковать и зависать

	if got := len(em.Logs()); got != 1 {
		t.Errorf("in-memory log lost: %d entries", got)
	}
}

func TestEmitterConcurrentEmit(t *testing.T) {
	store := newMemStore()
	exec := domain.NewExecution(uuid.New())
	store.CreateExecution(context.Background(), exec)

	em := NewEmitter(exec.ID, store, &recordBroadcaster{}, slog.Default())

	const writers = 8
	const perWriter = 25

	var wg sync.WaitGroup
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWriter; i++ {
				em.Emit(domain.LogLevelInfo, "test", fmt.Sprintf("w%d-%d", w, i))
			}
		}(w)
	}
	wg.Wait()
	em.Close()

	if got := len(em.Logs()); got != writers*perWriter {
		t.Errorf("got %d entries, want %d", got, writers*perWriter)
	}

	stored := store.execution(t, exec.ID)
	if len(stored.Logs) != writers*perWriter {
		t.Errorf("persisted %d entries, want %d", len(stored.Logs), writers*perWriter)
	}
}
