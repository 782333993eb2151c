package steps

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/shaiso/Navigata/internal/browser"
	"github.com/shaiso/Navigata/internal/domain"
)

// ScreenshotExecutor — снимок текущей страницы.
//
// Снимок сохраняется на диск; результат шага — путь к файлу.
// Директория по умолчанию задаётся SCREENSHOT_DIR (default: "screenshots").
type ScreenshotExecutor struct {
	dir string
}

// NewScreenshotExecutor создаёт ScreenshotExecutor.
func NewScreenshotExecutor() *ScreenshotExecutor {
	dir := os.Getenv("SCREENSHOT_DIR")
	if dir == "" {
		dir = "screenshots"
	}
	return &ScreenshotExecutor{dir: dir}
}

// Type возвращает тип шага.
func (e *ScreenshotExecutor) Type() domain.StepType {
	return domain.StepTypeScreenshot
}

// Execute делает снимок и сохраняет его. Результат — путь к файлу.
func (e *ScreenshotExecutor) Execute(ctx context.Context, session browser.Session, cfg any) (Result, error) {
	c, ok := cfg.(*domain.ScreenshotConfig)
	if !ok {
		return None(), fmt.Errorf("%w: screenshot: unexpected config %T", ErrInvalidConfig, cfg)
	}

	data, err := session.Screenshot(ctx, c.FullPage)
	if err != nil {
		return None(), err
	}

	path := c.Path
	if path == "" {
		path = filepath.Join(e.dir, fmt.Sprintf("screenshot_%d.png", time.Now().UnixNano()))
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return None(), fmt.Errorf("create screenshot dir: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return None(), fmt.Errorf("save screenshot: %w", err)
	}

	return Some(path), nil
}
