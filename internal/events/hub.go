package events

import "sync"

const defaultBuffer = 64

// Hub — in-process рассылка событий подписчикам.
//
// Семантика — at-most-once: события доставляются только текущим
// подписчикам, replay для опоздавших нет. Медленный подписчик
// с заполненным буфером теряет события, но никогда не блокирует
// emit'ящий execution.
type Hub struct {
	mu     sync.RWMutex
	subs   map[int]chan Event
	nextID int
	buffer int
	closed bool
}

// NewHub создаёт новый Hub.
func NewHub() *Hub {
	return &Hub{
		subs:   make(map[int]chan Event),
		buffer: defaultBuffer,
	}
}

// Publish рассылает событие всем текущим подписчикам.
// Никогда не блокируется: при заполненном буфере подписчика
// событие для него отбрасывается.
func (h *Hub) Publish(ev Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.closed {
		return
	}

	for _, ch := range h.subs {
		select {
		case ch <- ev:
		default:
			// Подписчик не успевает — событие отброшено
		}
	}
}

// Subscribe регистрирует подписчика.
// Возвращает канал событий и функцию отписки; события,
// опубликованные до подписки, не доставляются.
func (h *Hub) Subscribe() (<-chan Event, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	id := h.nextID
	h.nextID++

	ch := make(chan Event, h.buffer)
	if h.closed {
		close(ch)
		return ch, func() {}
	}
	h.subs[id] = ch

	unsubscribe := func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if sub, ok := h.subs[id]; ok {
			delete(h.subs, id)
			close(sub)
		}
	}

	return ch, unsubscribe
}

// SubscriberCount возвращает количество текущих подписчиков.
func (h *Hub) SubscriberCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Close закрывает hub и все каналы подписчиков.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}
	h.closed = true

	for id, ch := range h.subs {
		delete(h.subs, id)
		close(ch)
	}
}
