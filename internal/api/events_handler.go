package api

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	// writeTimeout — таймаут записи одного сообщения в websocket.
	writeTimeout = 10 * time.Second

	// pingInterval — интервал keepalive-пингов.
	pingInterval = 30 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// API не отдаётся в браузер напрямую, CORS-проверка не нужна.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// StreamEvents отдаёт live-события executions через websocket.
// GET /api/v1/events?execution_id=...
//
// Доставка at-most-once с момента подключения; replay прошлых
// событий нет — полное состояние клиент забирает через
// GET /api/v1/executions/{id}.
func (h *Handler) StreamEvents(w http.ResponseWriter, r *http.Request) {
	var filterID *uuid.UUID
	if idStr := r.URL.Query().Get("execution_id"); idStr != "" {
		id, err := uuid.Parse(idStr)
		if err != nil {
			BadRequest(w, "invalid execution_id")
			return
		}
		filterID = &id
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	ch, unsubscribe := h.hub.Subscribe()
	defer unsubscribe()

	// Читатель нужен только чтобы заметить закрытие со стороны клиента.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case ev, ok := <-ch:
			if !ok {
				return
			}
			if filterID != nil && ev.ExecutionID != *filterID {
				continue
			}
			conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteJSON(ev); err != nil {
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-done:
			return
		case <-r.Context().Done():
			return
		}
	}
}
