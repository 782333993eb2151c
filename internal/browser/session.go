package browser

import (
	"context"
	"errors"

	"github.com/shaiso/Navigata/internal/domain"
	"github.com/shaiso/Navigata/internal/gateway"
)

// Ошибки browser-сессии.
var (
	// ErrSessionClosed — операция над закрытой сессией.
	ErrSessionClosed = errors.New("browser session closed")

	// ErrLaunchFailed — не удалось запустить браузер.
	ErrLaunchFailed = errors.New("browser launch failed")
)

// Session — одна эксклюзивная browser-сессия.
//
// Сессия принадлежит ровно одному execution на всё время его жизни.
// Close идемпотентен: повторные вызовы — no-op без ошибки.
type Session interface {
	// Navigate переходит по URL и ждёт загрузки страницы.
	Navigate(ctx context.Context, url string) error

	// Act выполняет действие на странице по текстовой инструкции
	// ("click the login button", "fill the search field with ...").
	// Возвращает подтверждение выполненного действия.
	Act(ctx context.Context, action string) (any, error)

	// Extract извлекает структурированные данные со страницы по
	// инструкции. schema (опционально) описывает желаемую форму ответа.
	Extract(ctx context.Context, instruction string, schema map[string]any) (any, error)

	// Observe возвращает описание доступных на странице элементов
	// и действий, релевантных инструкции.
	Observe(ctx context.Context, instruction string) (any, error)

	// Agent выполняет многошаговую задачу автономно, итеративно
	// действуя на странице до выполнения инструкции.
	Agent(ctx context.Context, instruction string) (any, error)

	// WaitForSelector ждёт появления видимого элемента.
	WaitForSelector(ctx context.Context, selector string) error

	// Screenshot делает снимок страницы (PNG). fullPage — вся страница,
	// иначе текущий viewport.
	Screenshot(ctx context.Context, fullPage bool) ([]byte, error)

	// Scroll прокручивает страницу на amount пикселей в указанном
	// направлении.
	Scroll(ctx context.Context, direction domain.ScrollDirection, amount int) error

	// EvaluateScript выполняет JavaScript на странице и возвращает
	// результат.
	EvaluateScript(ctx context.Context, script string) (any, error)

	// Close освобождает ресурсы сессии. Идемпотентен.
	Close() error
}

// Launcher создаёт browser-сессии.
//
// Контракт: одна сессия на execution; вызывающий отвечает за Close.
// recorder получает usage LLM-запросов сессии (учёт токенов execution);
// nil — без учёта.
type Launcher interface {
	Launch(ctx context.Context, cfg domain.BrowserConfig, recorder gateway.Recorder) (Session, error)
}
