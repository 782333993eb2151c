package events

import (
	"time"

	"github.com/google/uuid"
	"github.com/shaiso/Navigata/internal/domain"
)

// Type — тип события execution.
type Type string

// Типы событий.
const (
	TypeStarted   Type = "started"
	TypeLog       Type = "log"
	TypeProgress  Type = "progress"
	TypeCompleted Type = "completed"
	TypeFailed    Type = "failed"
	TypeCancelled Type = "cancelled"
)

// Event — событие жизненного цикла execution.
// Все события помечены executionId; payload зависит от типа.
type Event struct {
	// Type — тип события.
	Type Type `json:"type"`

	// ExecutionID — execution, к которому относится событие.
	ExecutionID uuid.UUID `json:"execution_id"`

	// Timestamp — время события.
	Timestamp time.Time `json:"timestamp"`

	// Payload — полезная нагрузка (см. *Payload типы).
	Payload any `json:"payload,omitempty"`
}

// StartedPayload — payload события started.
type StartedPayload struct {
	WorkflowID uuid.UUID `json:"workflow_id"`
}

// LogPayload — payload события log.
type LogPayload struct {
	Entry domain.LogEntry `json:"entry"`
}

// ProgressPayload — payload события progress.
// Эмитится перед каждым шагом в sequential режиме.
type ProgressPayload struct {
	CurrentStep     int    `json:"current_step"`
	TotalSteps      int    `json:"total_steps"`
	StepDescription string `json:"step_description,omitempty"`
}

// CompletedPayload — payload события completed.
type CompletedPayload struct {
	Results    any   `json:"results,omitempty"`
	DurationMs int64 `json:"duration_ms"`
}

// FailedPayload — payload события failed.
type FailedPayload struct {
	Error string `json:"error"`
}

// New создаёт событие с текущим временем.
func New(typ Type, executionID uuid.UUID, payload any) Event {
	return Event{
		Type:        typ,
		ExecutionID: executionID,
		Timestamp:   time.Now(),
		Payload:     payload,
	}
}

// Broadcaster рассылает события текущим подписчикам.
// Publish — fire-and-forget: доставка at-most-once, без replay
// для опоздавших подписчиков (они отдельно забирают полное
// текущее состояние через API).
type Broadcaster interface {
	Publish(ev Event)
}

// Multi — составной Broadcaster: рассылает событие всем вложенным.
type Multi []Broadcaster

// Publish рассылает событие всем broadcaster'ам.
func (m Multi) Publish(ev Event) {
	for _, b := range m {
		b.Publish(ev)
	}
}
