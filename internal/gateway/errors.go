package gateway

import (
	"errors"
	"fmt"
)

// Ошибки gateway-клиента.
var (
	// ErrUnauthorized — upstream вернул 401; кэшированный токен сброшен.
	ErrUnauthorized = errors.New("gateway unauthorized")

	// ErrBudgetExhausted — бюджет повторных попыток исчерпан.
	ErrBudgetExhausted = errors.New("gateway retry budget exhausted")

	// ErrTokenFetch — provisioning-коллаборатор не выдал токен.
	// Не ретраится: ошибка получения токена фатальна для всего вызова.
	ErrTokenFetch = errors.New("token fetch failed")
)

// RequestError — не-2xx ответ upstream, кроме 401.
type RequestError struct {
	// Status — HTTP статус ответа.
	Status int

	// Body — тело ответа (обрезанное).
	Body string
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("gateway request failed: status %d: %s", e.Status, e.Body)
}
