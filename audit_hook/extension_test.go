package audithook_test

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	ah "github.com/quillboard/taskapi/audit_hook"
	"github.com/quillboard/taskapi/event"
	"github.com/quillboard/taskapi/ext"
	"github.com/quillboard/taskapi/task"
	"github.com/quillboard/taskapi/thing"
)

// ── Mock recorder ────────────────────────────────────

// mockRecorder captures audit events for verification.
type mockRecorder struct {
	mu     sync.Mutex
	events []*ah.AuditEvent
}

func (m *mockRecorder) Record(_ context.Context, evt *ah.AuditEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, evt)
	return nil
}

func (m *mockRecorder) last() *ah.AuditEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.events) == 0 {
		return nil
	}
	return m.events[len(m.events)-1]
}

func (m *mockRecorder) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.events)
}

func (m *mockRecorder) findByAction(action string) *ah.AuditEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, evt := range m.events {
		if evt.Action == action {
			return evt
		}
	}
	return nil
}

// ── Test helpers ─────────────────────────────────────

func newListTask() *task.Task {
	return &task.Task{List: &task.ListTask{What: thing.KindPages, Limit: 10}}
}

func newActionEvent() *thing.Event {
	return event.New(event.VoteSet, "patid:7", "pageid:110")
}

// ── Tests ────────────────────────────────────────────

func TestExtension_Name(t *testing.T) {
	rec := &mockRecorder{}
	e := ah.New(rec)
	if e.Name() != "audit-hook" {
		t.Errorf("expected name %q, got %q", "audit-hook", e.Name())
	}
}

// ── Task lifecycle tests ─────────────────────────────

func TestExtension_TaskStarted(t *testing.T) {
	rec := &mockRecorder{}
	e := ah.New(rec)

	if err := e.OnTaskStarted(context.Background(), newListTask()); err != nil {
		t.Fatalf("OnTaskStarted: %v", err)
	}

	evt := rec.last()
	if evt == nil {
		t.Fatal("no event recorded")
	}
	if evt.Action != ah.ActionTaskStarted {
		t.Errorf("Action: want %q, got %q", ah.ActionTaskStarted, evt.Action)
	}
	if evt.Resource != ah.ResourceTask {
		t.Errorf("Resource: want %q, got %q", ah.ResourceTask, evt.Resource)
	}
	if evt.Category != ah.CategoryTask {
		t.Errorf("Category: want %q, got %q", ah.CategoryTask, evt.Category)
	}
	if evt.ResourceID != "listQuery" {
		t.Errorf("ResourceID: want %q, got %q", "listQuery", evt.ResourceID)
	}
	if evt.Severity != ah.SeverityInfo {
		t.Errorf("Severity: want %q, got %q", ah.SeverityInfo, evt.Severity)
	}
	if evt.Outcome != ah.OutcomeSuccess {
		t.Errorf("Outcome: want %q, got %q", ah.OutcomeSuccess, evt.Outcome)
	}
	if evt.Metadata["task_kind"] != "listQuery" {
		t.Errorf("Metadata[task_kind]: want %q, got %v", "listQuery", evt.Metadata["task_kind"])
	}
}

func TestExtension_TaskCompleted(t *testing.T) {
	rec := &mockRecorder{}
	e := ah.New(rec)

	if err := e.OnTaskCompleted(context.Background(), newListTask(), 50*time.Millisecond); err != nil {
		t.Fatalf("OnTaskCompleted: %v", err)
	}

	evt := rec.last()
	if evt == nil {
		t.Fatal("no event recorded")
	}
	if evt.Action != ah.ActionTaskCompleted {
		t.Errorf("Action: want %q, got %q", ah.ActionTaskCompleted, evt.Action)
	}
	if evt.Metadata["elapsed_ms"] != int64(50) {
		t.Errorf("Metadata[elapsed_ms]: want 50, got %v", evt.Metadata["elapsed_ms"])
	}
}

func TestExtension_TaskFailed(t *testing.T) {
	rec := &mockRecorder{}
	e := ah.New(rec)

	taskErr := errors.New("store unavailable")
	if err := e.OnTaskFailed(context.Background(), newListTask(), taskErr); err != nil {
		t.Fatalf("OnTaskFailed: %v", err)
	}

	evt := rec.last()
	if evt == nil {
		t.Fatal("no event recorded")
	}
	if evt.Severity != ah.SeverityCritical {
		t.Errorf("Severity: want %q, got %q", ah.SeverityCritical, evt.Severity)
	}
	if evt.Outcome != ah.OutcomeFailure {
		t.Errorf("Outcome: want %q, got %q", ah.OutcomeFailure, evt.Outcome)
	}
	if evt.Reason != "store unavailable" {
		t.Errorf("Reason: want %q, got %q", "store unavailable", evt.Reason)
	}
	if evt.Metadata["error"] != "store unavailable" {
		t.Errorf("Metadata[error]: want %q, got %v", "store unavailable", evt.Metadata["error"])
	}
}

// ── Action tests ─────────────────────────────────────

func TestExtension_ActionApplied(t *testing.T) {
	rec := &mockRecorder{}
	e := ah.New(rec)

	ev := newActionEvent()
	if err := e.OnActionApplied(context.Background(), ev); err != nil {
		t.Fatalf("OnActionApplied: %v", err)
	}

	evt := rec.last()
	if evt == nil {
		t.Fatal("no event recorded")
	}
	if evt.Action != ah.ActionApplied {
		t.Errorf("Action: want %q, got %q", ah.ActionApplied, evt.Action)
	}
	if evt.Resource != ah.ResourceThing {
		t.Errorf("Resource: want %q, got %q", ah.ResourceThing, evt.Resource)
	}
	if evt.Category != ah.CategoryAction {
		t.Errorf("Category: want %q, got %q", ah.CategoryAction, evt.Category)
	}
	if evt.ResourceID != "pageid:110" {
		t.Errorf("ResourceID: want %q, got %q", "pageid:110", evt.ResourceID)
	}
	if evt.Metadata["event_type"] != event.VoteSet {
		t.Errorf("Metadata[event_type]: want %q, got %v", event.VoteSet, evt.Metadata["event_type"])
	}
	if evt.Metadata["actor_ref"] != "patid:7" {
		t.Errorf("Metadata[actor_ref]: want %q, got %v", "patid:7", evt.Metadata["actor_ref"])
	}
	if evt.Metadata["event_id"] != ev.ID {
		t.Errorf("Metadata[event_id]: want %q, got %v", ev.ID, evt.Metadata["event_id"])
	}
}

// ── Filtering tests ──────────────────────────────────

func TestExtension_WithActions_FiltersDisabled(t *testing.T) {
	rec := &mockRecorder{}
	e := ah.New(rec, ah.WithActions(ah.ActionTaskFailed))

	ctx := context.Background()
	tk := newListTask()

	// Enabled action is recorded.
	if err := e.OnTaskFailed(ctx, tk, errors.New("boom")); err != nil {
		t.Fatalf("OnTaskFailed: %v", err)
	}
	// Disabled actions are dropped.
	if err := e.OnTaskStarted(ctx, tk); err != nil {
		t.Fatalf("OnTaskStarted: %v", err)
	}
	if err := e.OnTaskCompleted(ctx, tk, time.Millisecond); err != nil {
		t.Fatalf("OnTaskCompleted: %v", err)
	}
	if err := e.OnActionApplied(ctx, newActionEvent()); err != nil {
		t.Fatalf("OnActionApplied: %v", err)
	}

	if rec.count() != 1 {
		t.Fatalf("expected 1 event, got %d", rec.count())
	}
	if rec.last().Action != ah.ActionTaskFailed {
		t.Errorf("Action: want %q, got %q", ah.ActionTaskFailed, rec.last().Action)
	}
}

// ── RecorderFunc test ────────────────────────────────

func TestRecorderFunc(t *testing.T) {
	var got *ah.AuditEvent
	fn := ah.RecorderFunc(func(_ context.Context, evt *ah.AuditEvent) error {
		got = evt
		return nil
	})

	e := ah.New(fn)
	if err := e.OnTaskStarted(context.Background(), newListTask()); err != nil {
		t.Fatalf("OnTaskStarted: %v", err)
	}
	if got == nil {
		t.Fatal("RecorderFunc was not invoked")
	}
	if got.Action != ah.ActionTaskStarted {
		t.Errorf("Action: want %q, got %q", ah.ActionTaskStarted, got.Action)
	}
}

// ── Recorder error handling test ─────────────────────

func TestExtension_RecorderError_DoesNotPropagate(t *testing.T) {
	failingRecorder := ah.RecorderFunc(func(_ context.Context, _ *ah.AuditEvent) error {
		return errors.New("audit backend down")
	})

	e := ah.New(failingRecorder)

	// Hook should NOT return an error — audit failures must not block
	// the task pipeline.
	if err := e.OnTaskStarted(context.Background(), newListTask()); err != nil {
		t.Fatalf("expected no error (audit failure swallowed), got: %v", err)
	}
}

// ── Registry integration test ────────────────────────

func TestExtension_ViaRegistry(t *testing.T) {
	rec := &mockRecorder{}
	e := ah.New(rec)
	logger := slog.Default()

	reg := ext.NewRegistry(logger)
	reg.Register(e)

	ctx := context.Background()
	tk := newListTask()

	reg.EmitTaskStarted(ctx, tk)
	reg.EmitTaskCompleted(ctx, tk, 50*time.Millisecond)
	reg.EmitTaskFailed(ctx, tk, errors.New("fail"))
	reg.EmitActionApplied(ctx, newActionEvent())

	allActions := ah.AllActions()
	if rec.count() != len(allActions) {
		t.Fatalf("expected %d events, got %d", len(allActions), rec.count())
	}

	for _, action := range allActions {
		evt := rec.findByAction(action)
		if evt == nil {
			t.Errorf("missing event for action %q", action)
		}
	}
}

// ── AllActions test ──────────────────────────────────

func TestAllActions(t *testing.T) {
	actions := ah.AllActions()
	if len(actions) != 4 {
		t.Errorf("expected 4 actions, got %d", len(actions))
	}
}
