package browser

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/chromedp/chromedp"

	"github.com/shaiso/Navigata/internal/domain"
	"github.com/shaiso/Navigata/internal/gateway"
)

const (
	defaultViewportWidth  = 1280
	defaultViewportHeight = 800

	// opTimeout ограничивает одну browser-операцию.
	opTimeout = 60 * time.Second
)

// ChromeLauncher — Launcher поверх локального Chrome.
type ChromeLauncher struct {
	gateway *gateway.Client
	logger  *slog.Logger
}

// NewChromeLauncher создаёт ChromeLauncher.
// gw используется для интеллектуальных операций (act/extract/observe/agent).
func NewChromeLauncher(gw *gateway.Client, logger *slog.Logger) *ChromeLauncher {
	return &ChromeLauncher{gateway: gw, logger: logger}
}

// Launch запускает браузер и создаёт эксклюзивную сессию.
func (l *ChromeLauncher) Launch(ctx context.Context, cfg domain.BrowserConfig, recorder gateway.Recorder) (Session, error) {
	width := cfg.ViewportWidth
	if width <= 0 {
		width = defaultViewportWidth
	}
	height := cfg.ViewportHeight
	if height <= 0 {
		height = defaultViewportHeight
	}

	opts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	opts = append(opts, chromedp.WindowSize(width, height))
	if !cfg.Headless {
		opts = append(opts, chromedp.Flag("headless", false))
	}
	if cfg.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(cfg.UserAgent))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, opts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)

	// Стартуем браузер сразу, чтобы ошибка запуска проявилась здесь,
	// а не на первом шаге.
	startCtx, cancel := context.WithTimeout(browserCtx, opTimeout)
	defer cancel()
	if err := chromedp.Run(startCtx); err != nil {
		browserCancel()
		allocCancel()
		return nil, fmt.Errorf("%w: %v", ErrLaunchFailed, err)
	}

	s := &chromeSession{
		ctx:      browserCtx,
		gateway:  l.gateway,
		recorder: recorder,
		logger:   l.logger,
	}
	s.cancel = func() {
		browserCancel()
		allocCancel()
	}

	l.logger.Debug("browser session launched",
		"headless", cfg.Headless,
		"viewport", fmt.Sprintf("%dx%d", width, height),
	)

	return s, nil
}

// chromeSession — Session поверх chromedp.
type chromeSession struct {
	ctx      context.Context
	cancel   context.CancelFunc
	gateway  *gateway.Client
	recorder gateway.Recorder
	logger   *slog.Logger

	closeOnce sync.Once
	mu        sync.Mutex
	closed    bool
}

// run выполняет chromedp-действия с таймаутом операции.
func (s *chromeSession) run(ctx context.Context, actions ...chromedp.Action) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	opCtx, cancel := context.WithTimeout(s.ctx, opTimeout)
	defer cancel()

	// Отмена вызывающего контекста прерывает операцию: браузерный
	// контекст живёт дольше одного шага.
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	return chromedp.Run(opCtx, actions...)
}

// Navigate переходит по URL.
func (s *chromeSession) Navigate(ctx context.Context, url string) error {
	if err := s.run(ctx, chromedp.Navigate(url)); err != nil {
		return fmt.Errorf("navigate to %s: %w", url, err)
	}
	return nil
}

// WaitForSelector ждёт появления видимого элемента.
func (s *chromeSession) WaitForSelector(ctx context.Context, selector string) error {
	if err := s.run(ctx, chromedp.WaitVisible(selector, chromedp.ByQuery)); err != nil {
		return fmt.Errorf("wait for %q: %w", selector, err)
	}
	return nil
}

// Screenshot делает снимок страницы.
func (s *chromeSession) Screenshot(ctx context.Context, fullPage bool) ([]byte, error) {
	var buf []byte
	var action chromedp.Action
	if fullPage {
		action = chromedp.FullScreenshot(&buf, 90)
	} else {
		action = chromedp.CaptureScreenshot(&buf)
	}
	if err := s.run(ctx, action); err != nil {
		return nil, fmt.Errorf("screenshot: %w", err)
	}
	return buf, nil
}

// Scroll прокручивает страницу.
func (s *chromeSession) Scroll(ctx context.Context, direction domain.ScrollDirection, amount int) error {
	delta := amount
	if direction == domain.ScrollUp {
		delta = -amount
	}
	script := fmt.Sprintf("window.scrollBy(0, %d)", delta)
	if err := s.run(ctx, chromedp.Evaluate(script, nil)); err != nil {
		return fmt.Errorf("scroll %s by %d: %w", direction, amount, err)
	}
	return nil
}

// EvaluateScript выполняет JavaScript на странице.
func (s *chromeSession) EvaluateScript(ctx context.Context, script string) (any, error) {
	var result any
	if err := s.run(ctx, chromedp.Evaluate(script, &result)); err != nil {
		return nil, fmt.Errorf("evaluate script: %w", err)
	}
	return result, nil
}

// Close освобождает ресурсы сессии. Идемпотентен.
func (s *chromeSession) Close() error {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		s.mu.Unlock()
		s.cancel()
		s.logger.Debug("browser session closed")
	})
	return nil
}
