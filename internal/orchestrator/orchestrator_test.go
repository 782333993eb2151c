package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/shaiso/Navigata/internal/browser"
	"github.com/shaiso/Navigata/internal/domain"
	"github.com/shaiso/Navigata/internal/events"
	"github.com/shaiso/Navigata/internal/gateway"
	"github.com/shaiso/Navigata/internal/repo"
	"github.com/shaiso/Navigata/internal/steps"
)

func stepsResult(v any, present bool) steps.Result {
	if present {
		return steps.Some(v)
	}
	return steps.None()
}

// --- Фейки ---

// memStore — in-memory Store.
type memStore struct {
	mu         sync.Mutex
	workflows  map[uuid.UUID]*domain.Workflow
	executions map[uuid.UUID]*domain.Execution
	updates    int
}

func newMemStore() *memStore {
	return &memStore{
		workflows:  make(map[uuid.UUID]*domain.Workflow),
		executions: make(map[uuid.UUID]*domain.Execution),
	}
}

func (s *memStore) GetWorkflow(ctx context.Context, id uuid.UUID) (*domain.Workflow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	wf, ok := s.workflows[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	return wf, nil
}

func (s *memStore) GetExecution(ctx context.Context, id uuid.UUID) (*domain.Execution, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	exec, ok := s.executions[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	clone := *exec
	return &clone, nil
}

func (s *memStore) CreateExecution(ctx context.Context, exec *domain.Execution) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	clone := *exec
	s.executions[exec.ID] = &clone
	return nil
}

func (s *memStore) UpdateExecution(ctx context.Context, id uuid.UUID, patch domain.ExecutionPatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	exec, ok := s.executions[id]
	if !ok {
		return repo.ErrNotFound
	}
	exec.Apply(patch)
	s.updates++
	return nil
}

func (s *memStore) ListQueuedExecutions(ctx context.Context, limit int) ([]domain.Execution, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var queued []domain.Execution
	for _, exec := range s.executions {
		if exec.Status == domain.ExecutionStatusQueued {
			queued = append(queued, *exec)
		}
	}
	return queued, nil
}

func (s *memStore) execution(t *testing.T, id uuid.UUID) *domain.Execution {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	exec, ok := s.executions[id]
	if !ok {
		t.Fatalf("execution %s not in store", id)
	}
	clone := *exec
	return &clone
}

// fakeSession — browser.Session с настраиваемым поведением.
type fakeSession struct {
	mu          sync.Mutex
	calls       []string
	closeCount  atomic.Int32
	extractData map[string]any // instruction → результат
	failActs    map[string]error
	panicActs   map[string]bool
	recorder    gateway.Recorder
	usagePerOp  gateway.Usage
}

func (s *fakeSession) record(call string) {
	s.mu.Lock()
	s.calls = append(s.calls, call)
	s.mu.Unlock()
}

func (s *fakeSession) recordUsage() {
	if s.recorder != nil && s.usagePerOp.TotalTokens > 0 {
		s.recorder.RecordUsage(s.usagePerOp)
	}
}

func (s *fakeSession) Navigate(ctx context.Context, url string) error {
	s.record("navigate:" + url)
	return ctx.Err()
}

func (s *fakeSession) Act(ctx context.Context, action string) (any, error) {
	s.record("act:" + action)
	if s.panicActs[action] {
		panic("boom: " + action)
	}
	if err := s.failActs[action]; err != nil {
		return nil, err
	}
	s.recordUsage()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return map[string]any{"action": action}, nil
}

func (s *fakeSession) Extract(ctx context.Context, instruction string, schema map[string]any) (any, error) {
	s.record("extract:" + instruction)
	s.recordUsage()
	if data, ok := s.extractData[instruction]; ok {
		return data, nil
	}
	return nil, ctx.Err()
}

func (s *fakeSession) Observe(ctx context.Context, instruction string) (any, error) {
	s.record("observe:" + instruction)
	s.recordUsage()
	return []any{"observed"}, nil
}

func (s *fakeSession) Agent(ctx context.Context, instruction string) (any, error) {
	s.record("agent:" + instruction)
	s.recordUsage()
	return "agent-done", nil
}

func (s *fakeSession) WaitForSelector(ctx context.Context, selector string) error {
	s.record("wait:" + selector)
	return ctx.Err()
}

func (s *fakeSession) Screenshot(ctx context.Context, fullPage bool) ([]byte, error) {
	s.record("screenshot")
	return []byte("png"), nil
}

func (s *fakeSession) Scroll(ctx context.Context, direction domain.ScrollDirection, amount int) error {
	s.record(fmt.Sprintf("scroll:%s:%d", direction, amount))
	return ctx.Err()
}

func (s *fakeSession) EvaluateScript(ctx context.Context, script string) (any, error) {
	s.record("evaluate")
	return nil, nil
}

func (s *fakeSession) Close() error {
	s.closeCount.Add(1)
	return nil
}

func (s *fakeSession) callNames() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.calls))
	copy(out, s.calls)
	return out
}

// fakeLauncher — browser.Launcher, выдающий заранее созданную сессию.
type fakeLauncher struct {
	session   *fakeSession
	launchErr error
	launches  atomic.Int32
}

func (l *fakeLauncher) Launch(ctx context.Context, cfg domain.BrowserConfig, recorder gateway.Recorder) (browser.Session, error) {
	l.launches.Add(1)
	if l.launchErr != nil {
		return nil, l.launchErr
	}
	l.session.recorder = recorder
	return l.session, nil
}

// recordBroadcaster собирает разосланные события.
type recordBroadcaster struct {
	mu     sync.Mutex
	events []events.Event
}

func (b *recordBroadcaster) Publish(ev events.Event) {
	b.mu.Lock()
	b.events = append(b.events, ev)
	b.mu.Unlock()
}

func (b *recordBroadcaster) byType(typ events.Type) []events.Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []events.Event
	for _, ev := range b.events {
		if ev.Type == typ {
			out = append(out, ev)
		}
	}
	return out
}

// --- Хелперы ---

func extractStep(id string, order int, instruction string) domain.Step {
	return domain.Step{
		ID:    id,
		Type:  domain.StepTypeExtract,
		Order: order,
		Config: map[string]any{
			"instruction": instruction,
		},
	}
}

func actStep(id string, order int, action string) domain.Step {
	return domain.Step{
		ID:    id,
		Type:  domain.StepTypeAct,
		Order: order,
		Config: map[string]any{
			"action": action,
		},
	}
}

// waitStep — шаг без результата.
func waitStep(id string, order int) domain.Step {
	return domain.Step{
		ID:    id,
		Type:  domain.StepTypeWait,
		Order: order,
		Config: map[string]any{
			"duration_ms": 1,
		},
	}
}

func testWorkflow(mode domain.ExecutionMode, steps ...domain.Step) *domain.Workflow {
	now := time.Now()
	return &domain.Workflow{
		ID:        uuid.New(),
		Name:      "test-workflow",
		Steps:     steps,
		Mode:      mode,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

type testEnv struct {
	store       *memStore
	session     *fakeSession
	launcher    *fakeLauncher
	broadcaster *recordBroadcaster
	orch        *Orchestrator
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	store := newMemStore()
	session := &fakeSession{
		extractData: make(map[string]any),
		failActs:    make(map[string]error),
		panicActs:   make(map[string]bool),
	}
	launcher := &fakeLauncher{session: session}
	broadcaster := &recordBroadcaster{}

	orch := New(Config{
		Store:       store,
		Launcher:    launcher,
		Broadcaster: broadcaster,
		Rates:       domain.CostRates{PromptPer1K: 0.003, CompletionPer1K: 0.015},
	})
	orch.baseCtx = context.Background()

	return &testEnv{
		store:       store,
		session:     session,
		launcher:    launcher,
		broadcaster: broadcaster,
		orch:        orch,
	}
}

// run создаёт execution в store и выполняет его.
func (env *testEnv) run(t *testing.T, wf *domain.Workflow) (Outcome, *domain.Execution) {
	t.Helper()

	env.store.mu.Lock()
	env.store.workflows[wf.ID] = wf
	env.store.mu.Unlock()

	exec := domain.NewExecution(wf.ID)
	if err := env.store.CreateExecution(context.Background(), exec); err != nil {
		t.Fatalf("create execution: %v", err)
	}

	outcome := env.orch.runExecution(context.Background(), exec, wf)
	return outcome, env.store.execution(t, exec.ID)
}

// --- Тесты жизненного цикла ---

func TestRunSequentialCompleted(t *testing.T) {
	env := newTestEnv(t)
	env.session.extractData["get title"] = "Example Domain"
	env.session.extractData["get price"] = map[string]any{"price": 42}

	wf := testWorkflow(domain.ModeSequential,
		extractStep("s0", 0, "get title"),
		extractStep("s1", 1, "get price"),
	)

	outcome, stored := env.run(t, wf)

	if outcome.Status != domain.ExecutionStatusCompleted {
		t.Fatalf("status = %s, want COMPLETED (error: %s)", outcome.Status, outcome.Error)
	}

	// Два результата — упорядоченный список {step_id, result}
	results, ok := outcome.Results.([]StepResult)
	if !ok {
		t.Fatalf("results type %T, want []StepResult", outcome.Results)
	}
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	if results[0].StepID != "s0" || results[1].StepID != "s1" {
		t.Errorf("results out of step order: %v", results)
	}

	if stored.Status != domain.ExecutionStatusCompleted {
		t.Errorf("stored status = %s", stored.Status)
	}
	if stored.CompletedAt == nil {
		t.Error("stored CompletedAt is nil")
	}
	if len(stored.Logs) == 0 {
		t.Error("stored logs are empty")
	}

	// Запись об успешной инициализации предшествует первой записи шага
	initIdx, stepIdx := -1, -1
	for i, entry := range stored.Logs {
		if initIdx == -1 && entry.Message == "initialization success" {
			initIdx = i
		}
		if stepIdx == -1 && entry.Category == "step" {
			stepIdx = i
		}
	}
	if initIdx == -1 {
		t.Error("initialization success entry missing")
	}
	if stepIdx == -1 {
		t.Error("no step entries in log")
	}
	if initIdx != -1 && stepIdx != -1 && stepIdx < initIdx {
		t.Errorf("step entry at %d precedes initialization success at %d", stepIdx, initIdx)
	}

	if n := env.session.closeCount.Load(); n != 1 {
		t.Errorf("session closed %d times, want exactly 1", n)
	}
}

func TestRunSequentialFailFast(t *testing.T) {
	env := newTestEnv(t)
	env.session.failActs["break"] = errors.New("element not found")

	wf := testWorkflow(domain.ModeSequential,
		actStep("s0", 0, "ok"),
		actStep("s1", 1, "break"),
		actStep("s2", 2, "never"),
	)

	outcome, stored := env.run(t, wf)

	if outcome.Status != domain.ExecutionStatusFailed {
		t.Fatalf("status = %s, want FAILED", outcome.Status)
	}
	if outcome.Error == "" || stored.Error == "" {
		t.Error("error text missing")
	}

	// Шаг после упавшего не выполнялся
	for _, call := range env.session.callNames() {
		if call == "act:never" {
			t.Error("step after failure was dispatched")
		}
	}

	// Журнал до точки падения сохранён
	if len(stored.Logs) == 0 {
		t.Error("logs lost on failure")
	}

	if n := env.session.closeCount.Load(); n != 1 {
		t.Errorf("session closed %d times, want exactly 1", n)
	}
}

func TestRunParallelBestEffort(t *testing.T) {
	env := newTestEnv(t)
	env.session.extractData["a"] = "A"
	env.session.extractData["b"] = "B"
	env.session.failActs["broken"] = errors.New("click failed")

	wf := testWorkflow(domain.ModeParallel,
		extractStep("s0", 0, "a"),
		actStep("s1", 1, "broken"),
		extractStep("s2", 2, "b"),
	)

	outcome, stored := env.run(t, wf)

	// Ошибка шага изолирована: execution завершается успешно
	if outcome.Status != domain.ExecutionStatusCompleted {
		t.Fatalf("status = %s, want COMPLETED", outcome.Status)
	}

	results, ok := outcome.Results.([]StepResult)
	if !ok {
		t.Fatalf("results type %T, want []StepResult", outcome.Results)
	}
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2 (failed step contributes nothing)", len(results))
	}
	// Порядок результатов — порядок шагов, не порядок завершения
	if results[0].StepID != "s0" || results[1].StepID != "s2" {
		t.Errorf("results out of step order: %v", results)
	}

	// Ошибка видна в журнале
	var errorLogged bool
	for _, entry := range stored.Logs {
		if entry.Level == domain.LogLevelError {
			errorLogged = true
		}
	}
	if !errorLogged {
		t.Error("parallel step failure not logged")
	}
}

func TestRunParallelStepPanicIsolated(t *testing.T) {
	env := newTestEnv(t)
	env.session.panicActs["explode"] = true
	env.session.extractData["a"] = "A"

	wf := testWorkflow(domain.ModeParallel,
		extractStep("s0", 0, "a"),
		actStep("s1", 1, "explode"),
	)

	outcome, stored := env.run(t, wf)

	// Паника шага остаётся в его горутине: остальные шаги доходят
	// до конца, execution завершается best-effort
	if outcome.Status != domain.ExecutionStatusCompleted {
		t.Fatalf("status = %s, want COMPLETED (error: %s)", outcome.Status, outcome.Error)
	}
	if outcome.Results != "A" {
		t.Errorf("results = %#v, want bare %q", outcome.Results, "A")
	}

	var panicLogged bool
	for _, entry := range stored.Logs {
		if entry.Level == domain.LogLevelError && strings.Contains(entry.Message, "panic") {
			panicLogged = true
		}
	}
	if !panicLogged {
		t.Error("parallel step panic not logged")
	}

	if n := env.session.closeCount.Load(); n != 1 {
		t.Errorf("session closed %d times, want exactly 1", n)
	}
}

func TestRunResultsUnwrapping(t *testing.T) {
	t.Run("zero results", func(t *testing.T) {
		env := newTestEnv(t)
		wf := testWorkflow(domain.ModeSequential, waitStep("s0", 0))

		outcome, _ := env.run(t, wf)
		if outcome.Status != domain.ExecutionStatusCompleted {
			t.Fatalf("status = %s", outcome.Status)
		}
		list, ok := outcome.Results.([]any)
		if !ok || len(list) != 0 {
			t.Errorf("results = %#v, want empty list", outcome.Results)
		}
	})

	t.Run("single result unwrapped", func(t *testing.T) {
		env := newTestEnv(t)
		env.session.extractData["only"] = map[string]any{"x": 1}
		wf := testWorkflow(domain.ModeSequential,
			waitStep("s0", 0),
			extractStep("s1", 1, "only"),
		)

		outcome, _ := env.run(t, wf)
		data, ok := outcome.Results.(map[string]any)
		if !ok || data["x"] != 1 {
			t.Errorf("results = %#v, want bare value", outcome.Results)
		}
	})

	t.Run("act contributes its confirmation", func(t *testing.T) {
		env := newTestEnv(t)
		wf := testWorkflow(domain.ModeSequential, actStep("s0", 0, "click"))

		outcome, _ := env.run(t, wf)
		data, ok := outcome.Results.(map[string]any)
		if !ok || data["action"] != "click" {
			t.Errorf("results = %#v, want act confirmation", outcome.Results)
		}
	})
}

func TestRunPanicRecovered(t *testing.T) {
	env := newTestEnv(t)
	env.session.panicActs["explode"] = true

	wf := testWorkflow(domain.ModeSequential, actStep("s0", 0, "explode"))

	outcome, stored := env.run(t, wf)

	if outcome.Status != domain.ExecutionStatusFailed {
		t.Fatalf("status = %s, want FAILED", outcome.Status)
	}
	if stored.Status != domain.ExecutionStatusFailed {
		t.Errorf("stored status = %s", stored.Status)
	}
	if outcome.Duration <= 0 {
		t.Error("duration fallback missing")
	}
	if n := env.session.closeCount.Load(); n != 1 {
		t.Errorf("session closed %d times after panic, want exactly 1", n)
	}
}

func TestRunLaunchFailure(t *testing.T) {
	env := newTestEnv(t)
	env.launcher.launchErr = errors.New("chrome not found")

	wf := testWorkflow(domain.ModeSequential, actStep("s0", 0, "ok"))

	outcome, stored := env.run(t, wf)

	if outcome.Status != domain.ExecutionStatusFailed {
		t.Fatalf("status = %s, want FAILED", outcome.Status)
	}
	if stored.Error == "" {
		t.Error("stored error missing")
	}
	if n := env.session.closeCount.Load(); n != 0 {
		t.Errorf("unexpected close of never-launched session")
	}
}

func TestRunCancellation(t *testing.T) {
	env := newTestEnv(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	wf := testWorkflow(domain.ModeSequential, actStep("s0", 0, "ok"))
	env.store.mu.Lock()
	env.store.workflows[wf.ID] = wf
	env.store.mu.Unlock()

	exec := domain.NewExecution(wf.ID)
	if err := env.store.CreateExecution(context.Background(), exec); err != nil {
		t.Fatalf("create execution: %v", err)
	}

	outcome := env.orch.runExecution(ctx, exec, wf)

	if outcome.Status != domain.ExecutionStatusCancelled {
		t.Fatalf("status = %s, want CANCELLED", outcome.Status)
	}
	stored := env.store.execution(t, exec.ID)
	if stored.Status != domain.ExecutionStatusCancelled {
		t.Errorf("stored status = %s", stored.Status)
	}
	if n := env.session.closeCount.Load(); n != 1 {
		t.Errorf("session closed %d times, want exactly 1", n)
	}
}

func TestRunUnknownStepSkipped(t *testing.T) {
	env := newTestEnv(t)
	env.session.extractData["data"] = "value"

	wf := testWorkflow(domain.ModeSequential,
		domain.Step{ID: "s0", Type: "teleport", Order: 0},
		extractStep("s1", 1, "data"),
	)

	outcome, stored := env.run(t, wf)

	if outcome.Status != domain.ExecutionStatusCompleted {
		t.Fatalf("status = %s, want COMPLETED", outcome.Status)
	}
	// Единственный результат — от extract; unknown шаг ничего не добавил
	if outcome.Results != "value" {
		t.Errorf("results = %#v, want bare %q", outcome.Results, "value")
	}

	var warned bool
	for _, entry := range stored.Logs {
		if entry.Level == domain.LogLevelWarning {
			warned = true
		}
	}
	if !warned {
		t.Error("unknown step type not logged as warning")
	}
}

func TestRunUsageAccounting(t *testing.T) {
	env := newTestEnv(t)
	env.session.usagePerOp = gateway.Usage{PromptTokens: 100, CompletionTokens: 50, TotalTokens: 150}
	env.session.extractData["x"] = "y"

	wf := testWorkflow(domain.ModeSequential,
		extractStep("s0", 0, "x"),
		actStep("s1", 1, "ok"),
	)

	outcome, stored := env.run(t, wf)

	if outcome.Usage.PromptTokens != 200 || outcome.Usage.CompletionTokens != 100 {
		t.Errorf("usage = %+v, want 200/100", outcome.Usage)
	}
	if outcome.Usage.TotalTokens != 300 {
		t.Errorf("total tokens = %d, want 300", outcome.Usage.TotalTokens)
	}
	// 200/1000*0.003 + 100/1000*0.015 = 0.0006 + 0.0015
	wantCost := 0.0021
	if diff := outcome.Usage.EstimatedCost - wantCost; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("estimated cost = %f, want %f", outcome.Usage.EstimatedCost, wantCost)
	}
	if stored.Usage.TotalTokens != 300 {
		t.Errorf("stored usage not persisted: %+v", stored.Usage)
	}
}

func TestRunEvents(t *testing.T) {
	env := newTestEnv(t)
	env.session.extractData["x"] = "y"

	wf := testWorkflow(domain.ModeSequential,
		extractStep("s0", 0, "x"),
		actStep("s1", 1, "ok"),
	)

	outcome, _ := env.run(t, wf)
	if outcome.Status != domain.ExecutionStatusCompleted {
		t.Fatalf("status = %s", outcome.Status)
	}

	if got := env.broadcaster.byType(events.TypeStarted); len(got) != 1 {
		t.Errorf("started events: %d, want 1", len(got))
	}
	// progress перед каждым из двух шагов
	progress := env.broadcaster.byType(events.TypeProgress)
	if len(progress) != 2 {
		t.Fatalf("progress events: %d, want 2", len(progress))
	}
	p0 := progress[0].Payload.(events.ProgressPayload)
	if p0.CurrentStep != 1 || p0.TotalSteps != 2 {
		t.Errorf("first progress = %+v", p0)
	}
	if got := env.broadcaster.byType(events.TypeCompleted); len(got) != 1 {
		t.Errorf("completed events: %d, want 1", len(got))
	}
	if got := env.broadcaster.byType(events.TypeLog); len(got) == 0 {
		t.Error("no log events broadcast")
	}
}

// --- Тесты сервисных операций ---

func TestStartExecution(t *testing.T) {
	env := newTestEnv(t)

	wf := testWorkflow(domain.ModeSequential, actStep("s0", 0, "ok"))
	env.store.mu.Lock()
	env.store.workflows[wf.ID] = wf
	env.store.mu.Unlock()

	exec, err := env.orch.StartExecution(context.Background(), wf.ID)
	if err != nil {
		t.Fatalf("StartExecution: %v", err)
	}
	if exec.Status != domain.ExecutionStatusQueued {
		t.Errorf("status = %s, want QUEUED", exec.Status)
	}

	stored := env.store.execution(t, exec.ID)
	if stored.Status != domain.ExecutionStatusQueued {
		t.Errorf("stored status = %s", stored.Status)
	}
}

func TestStartExecutionWorkflowNotFound(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.orch.StartExecution(context.Background(), uuid.New())
	if !errors.Is(err, ErrWorkflowNotFound) {
		t.Fatalf("err = %v, want ErrWorkflowNotFound", err)
	}
}

func TestStartExecutionInvalidWorkflow(t *testing.T) {
	env := newTestEnv(t)

	// navigate без url — мусор отклоняется при авторинге
	wf := testWorkflow(domain.ModeSequential, domain.Step{
		ID:     "s0",
		Type:   domain.StepTypeNavigate,
		Order:  0,
		Config: map[string]any{},
	})
	env.store.mu.Lock()
	env.store.workflows[wf.ID] = wf
	env.store.mu.Unlock()

	_, err := env.orch.StartExecution(context.Background(), wf.ID)
	if !errors.Is(err, ErrInvalidWorkflow) {
		t.Fatalf("err = %v, want ErrInvalidWorkflow", err)
	}
}

func TestCancelQueuedExecution(t *testing.T) {
	env := newTestEnv(t)

	exec := domain.NewExecution(uuid.New())
	if err := env.store.CreateExecution(context.Background(), exec); err != nil {
		t.Fatal(err)
	}

	if err := env.orch.Cancel(context.Background(), exec.ID); err != nil {
		t.Fatalf("Cancel: %v", err)
	}

	stored := env.store.execution(t, exec.ID)
	if stored.Status != domain.ExecutionStatusCancelled {
		t.Errorf("status = %s, want CANCELLED", stored.Status)
	}
}

func TestCancelFinishedExecution(t *testing.T) {
	env := newTestEnv(t)

	exec := domain.NewExecution(uuid.New())
	exec.MarkCompleted("done")
	if err := env.store.CreateExecution(context.Background(), exec); err != nil {
		t.Fatal(err)
	}

	err := env.orch.Cancel(context.Background(), exec.ID)
	if !errors.Is(err, ErrExecutionFinished) {
		t.Fatalf("err = %v, want ErrExecutionFinished", err)
	}
}

func TestCancelUnknownExecution(t *testing.T) {
	env := newTestEnv(t)

	err := env.orch.Cancel(context.Background(), uuid.New())
	if !errors.Is(err, ErrExecutionNotFound) {
		t.Fatalf("err = %v, want ErrExecutionNotFound", err)
	}
}

func TestProcessExecutionNotQueued(t *testing.T) {
	env := newTestEnv(t)

	exec := domain.NewExecution(uuid.New())
	exec.MarkRunning()
	if err := env.store.CreateExecution(context.Background(), exec); err != nil {
		t.Fatal(err)
	}

	err := env.orch.processExecution(context.Background(), exec.ID)
	if !errors.Is(err, ErrExecutionNotQueued) {
		t.Fatalf("err = %v, want ErrExecutionNotQueued", err)
	}
}

func TestProcessExecutionMissingWorkflowFails(t *testing.T) {
	env := newTestEnv(t)

	// workflow не существует
	exec := domain.NewExecution(uuid.New())
	if err := env.store.CreateExecution(context.Background(), exec); err != nil {
		t.Fatal(err)
	}

	if err := env.orch.processExecution(context.Background(), exec.ID); err != nil {
		t.Fatalf("processExecution: %v", err)
	}

	stored := env.store.execution(t, exec.ID)
	if stored.Status != domain.ExecutionStatusFailed {
		t.Errorf("status = %s, want FAILED", stored.Status)
	}
}

// --- Агрегация ---

func TestAggregateResults(t *testing.T) {
	some := func(id string, v any) stepOutcome {
		return stepOutcome{
			step:   domain.Step{ID: id},
			result: stepsResult(v, true),
		}
	}
	none := func(id string) stepOutcome {
		return stepOutcome{step: domain.Step{ID: id}}
	}

	t.Run("empty", func(t *testing.T) {
		got := aggregateResults([]stepOutcome{none("a"), none("b")})
		list, ok := got.([]any)
		if !ok || len(list) != 0 {
			t.Errorf("got %#v, want empty list", got)
		}
	})

	t.Run("single", func(t *testing.T) {
		got := aggregateResults([]stepOutcome{none("a"), some("b", 42)})
		if got != 42 {
			t.Errorf("got %#v, want bare 42", got)
		}
	})

	t.Run("multiple keeps order", func(t *testing.T) {
		got := aggregateResults([]stepOutcome{some("a", 1), none("x"), some("b", 2)})
		list, ok := got.([]StepResult)
		if !ok || len(list) != 2 {
			t.Fatalf("got %#v", got)
		}
		if list[0].StepID != "a" || list[1].StepID != "b" {
			t.Errorf("order broken: %v", list)
		}
	})

	t.Run("failed step contributes nothing", func(t *testing.T) {
		failed := stepOutcome{
			step:   domain.Step{ID: "f"},
			result: stepsResult("partial", true),
			err:    errors.New("failed"),
		}
		got := aggregateResults([]stepOutcome{failed, some("a", "ok")})
		if got != "ok" {
			t.Errorf("got %#v, want bare %q", got, "ok")
		}
	})
}
