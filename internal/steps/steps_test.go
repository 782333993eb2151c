package steps

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/shaiso/Navigata/internal/domain"
)

// fakeSession — browser.Session для тестов, записывает вызовы.
type fakeSession struct {
	calls       []string
	extractData any
	failWith    error
}

func (s *fakeSession) Navigate(ctx context.Context, url string) error {
	s.calls = append(s.calls, "navigate:"+url)
	return s.failWith
}

func (s *fakeSession) Act(ctx context.Context, action string) (any, error) {
	s.calls = append(s.calls, "act:"+action)
	if s.failWith != nil {
		return nil, s.failWith
	}
	return map[string]any{"action": action}, nil
}

func (s *fakeSession) Extract(ctx context.Context, instruction string, schema map[string]any) (any, error) {
	s.calls = append(s.calls, "extract:"+instruction)
	return s.extractData, s.failWith
}

func (s *fakeSession) Observe(ctx context.Context, instruction string) (any, error) {
	s.calls = append(s.calls, "observe:"+instruction)
	return []any{"element"}, s.failWith
}

func (s *fakeSession) Agent(ctx context.Context, instruction string) (any, error) {
	s.calls = append(s.calls, "agent:"+instruction)
	return "agent-result", s.failWith
}

func (s *fakeSession) WaitForSelector(ctx context.Context, selector string) error {
	s.calls = append(s.calls, "wait:"+selector)
	return s.failWith
}

func (s *fakeSession) Screenshot(ctx context.Context, fullPage bool) ([]byte, error) {
	s.calls = append(s.calls, fmt.Sprintf("screenshot:%v", fullPage))
	return []byte("png"), s.failWith
}

func (s *fakeSession) Scroll(ctx context.Context, direction domain.ScrollDirection, amount int) error {
	s.calls = append(s.calls, fmt.Sprintf("scroll:%s:%d", direction, amount))
	return s.failWith
}

func (s *fakeSession) EvaluateScript(ctx context.Context, script string) (any, error) {
	s.calls = append(s.calls, "evaluate")
	return nil, s.failWith
}

func (s *fakeSession) Close() error { return nil }

// recordingEmitter собирает записи журнала.
type recordingEmitter struct {
	entries []string
	levels  []domain.LogLevel
}

func (e *recordingEmitter) Emit(level domain.LogLevel, category, message string) {
	e.levels = append(e.levels, level)
	e.entries = append(e.entries, message)
}

func testDispatcher() *Dispatcher {
	return NewDispatcher(DefaultRegistry(), slog.Default())
}

func TestDispatchNavigate(t *testing.T) {
	session := &fakeSession{}
	em := &recordingEmitter{}

	step := domain.Step{
		ID:   "s1",
		Type: domain.StepTypeNavigate,
		Config: map[string]any{
			"url": "https://example.com",
		},
	}

	result, err := testDispatcher().Dispatch(context.Background(), session, step, em)
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if result.Present {
		t.Error("navigate should not produce a result")
	}
	if len(session.calls) != 1 || session.calls[0] != "navigate:https://example.com" {
		t.Errorf("unexpected session calls: %v", session.calls)
	}

	// in-progress + success
	if len(em.levels) != 2 {
		t.Fatalf("expected 2 log entries, got %d: %v", len(em.levels), em.entries)
	}
	if em.levels[0] != domain.LogLevelInfo || em.levels[1] != domain.LogLevelSuccess {
		t.Errorf("unexpected levels: %v", em.levels)
	}
}

func TestDispatchExtractProducesResult(t *testing.T) {
	session := &fakeSession{extractData: map[string]any{"price": 42}}
	em := &recordingEmitter{}

	step := domain.Step{
		ID:   "s1",
		Type: domain.StepTypeExtract,
		Config: map[string]any{
			"instruction": "get the price",
		},
	}

	result, err := testDispatcher().Dispatch(context.Background(), session, step, em)
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if !result.Present {
		t.Fatal("extract should produce a result")
	}
	data, ok := result.Value.(map[string]any)
	if !ok || data["price"] != 42 {
		t.Errorf("unexpected result: %v", result.Value)
	}
}

func TestDispatchActProducesResult(t *testing.T) {
	session := &fakeSession{}
	em := &recordingEmitter{}

	step := domain.Step{
		ID:   "s1",
		Type: domain.StepTypeAct,
		Config: map[string]any{
			"action": "click the button",
		},
	}

	result, err := testDispatcher().Dispatch(context.Background(), session, step, em)
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if !result.Present {
		t.Fatal("act should produce a result")
	}
	outcome, ok := result.Value.(map[string]any)
	if !ok || outcome["action"] != "click the button" {
		t.Errorf("unexpected result: %#v", result.Value)
	}
}

func TestDispatchScreenshotReturnsPath(t *testing.T) {
	session := &fakeSession{}
	em := &recordingEmitter{}

	path := filepath.Join(t.TempDir(), "shot.png")
	step := domain.Step{
		ID:   "s1",
		Type: domain.StepTypeScreenshot,
		Config: map[string]any{
			"path": path,
		},
	}

	result, err := testDispatcher().Dispatch(context.Background(), session, step, em)
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if !result.Present {
		t.Fatal("screenshot should produce a result")
	}
	// Результат — сам путь, не обёртка
	if result.Value != path {
		t.Errorf("result = %#v, want bare path %q", result.Value, path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("screenshot not saved: %v", err)
	}
	if string(data) != "png" {
		t.Errorf("unexpected file contents: %q", data)
	}
}

func TestDispatchUnknownTypeSkipped(t *testing.T) {
	session := &fakeSession{}
	em := &recordingEmitter{}

	step := domain.Step{ID: "s1", Type: "teleport"}

	result, err := testDispatcher().Dispatch(context.Background(), session, step, em)
	if err != nil {
		t.Fatalf("unknown type must not be an error, got %v", err)
	}
	if result.Present {
		t.Error("skipped step must not produce a result")
	}
	if len(session.calls) != 0 {
		t.Errorf("session must not be touched: %v", session.calls)
	}
	if len(em.levels) != 1 || em.levels[0] != domain.LogLevelWarning {
		t.Errorf("expected single warning entry, got %v", em.levels)
	}
	if !strings.Contains(em.entries[0], "teleport") {
		t.Errorf("warning should name the type: %q", em.entries[0])
	}
}

func TestDispatchInvalidConfig(t *testing.T) {
	session := &fakeSession{}
	em := &recordingEmitter{}

	step := domain.Step{ID: "s1", Type: domain.StepTypeNavigate, Config: map[string]any{}}

	_, err := testDispatcher().Dispatch(context.Background(), session, step, em)
	if !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig, got %v", err)
	}
	if len(session.calls) != 0 {
		t.Errorf("session must not be touched: %v", session.calls)
	}
}

func TestDispatchStepFailurePropagates(t *testing.T) {
	boom := errors.New("element not found")
	session := &fakeSession{failWith: boom}
	em := &recordingEmitter{}

	step := domain.Step{
		ID:   "s1",
		Type: domain.StepTypeAct,
		Config: map[string]any{
			"action": "click the button",
		},
	}

	_, err := testDispatcher().Dispatch(context.Background(), session, step, em)
	if !errors.Is(err, boom) {
		t.Fatalf("step failure must propagate unchanged, got %v", err)
	}

	// in-progress + error
	last := em.levels[len(em.levels)-1]
	if last != domain.LogLevelError {
		t.Errorf("expected trailing error entry, got %v", em.levels)
	}
}

func TestDefaultRegistryCoversKnownTypes(t *testing.T) {
	r := DefaultRegistry()
	for _, typ := range []domain.StepType{
		domain.StepTypeNavigate, domain.StepTypeAct, domain.StepTypeExtract,
		domain.StepTypeObserve, domain.StepTypeAgent, domain.StepTypeWait,
		domain.StepTypeScreenshot, domain.StepTypeScroll,
	} {
		if !r.Has(typ) {
			t.Errorf("registry missing executor for %s", typ)
		}
	}
}

func TestDispatchWaitDuration(t *testing.T) {
	session := &fakeSession{}
	em := &recordingEmitter{}

	step := domain.Step{
		ID:   "s1",
		Type: domain.StepTypeWait,
		Config: map[string]any{
			"duration_ms": 1,
		},
	}

	result, err := testDispatcher().Dispatch(context.Background(), session, step, em)
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if result.Present {
		t.Error("wait should not produce a result")
	}
}
