package engine_test

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/quillboard/taskapi"
	"github.com/quillboard/taskapi/engine"
	"github.com/quillboard/taskapi/ext"
	"github.com/quillboard/taskapi/store/memory"
	"github.com/quillboard/taskapi/task"
	"github.com/quillboard/taskapi/thing"
)

func seededStore() *memory.Store {
	s := memory.New()
	s.AddCategory(thing.Category{ID: 1, RefID: "cat-general", Name: "General"})
	s.AddParticipant(thing.Participant{ID: 7, Username: "jane", FullName: "Jane Doe"})

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i, title := range []string{"Welcome", "House rules", "Broken login"} {
		ts := base.Add(time.Duration(i) * time.Minute)
		s.AddPage(thing.Page{
			Entity:     taskapi.Entity{CreatedAt: ts, UpdatedAt: ts},
			ID:         int64(110 + i),
			Title:      title,
			AuthorID:   7,
			CategoryID: 1,
		})
	}
	s.AddPost(thing.Post{ID: 5001, PageID: 112, Nr: 1, AuthorID: 7, BodyText: "Login fails with error 500."})
	return s
}

func newTestEngine(t *testing.T, gwOpts []taskapi.Option, engOpts ...engine.Option) *engine.Engine {
	t.Helper()
	g, err := taskapi.New(gwOpts...)
	if err != nil {
		t.Fatalf("taskapi.New: %v", err)
	}
	eng, err := engine.Build(g, engOpts...)
	if err != nil {
		t.Fatalf("engine.Build: %v", err)
	}
	return eng
}

// ──────────────────────────────────────────────────
// Get
// ──────────────────────────────────────────────────

func TestExecute_Get_SlotOrder(t *testing.T) {
	eng := newTestEngine(t, []taskapi.Option{
		taskapi.WithStore(seededStore()),
		taskapi.WithOrigin("https://forum.example.com"),
	})

	resp, err := eng.Execute(context.Background(),
		[]byte(`{"getQuery":{"getWhat":"Pages","getRefs":["pageid:999","pageid:110"]}}`))
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if resp.Origin != "https://forum.example.com" {
		t.Errorf("Origin = %q", resp.Origin)
	}
	if len(resp.ThingsOrErrs) != 2 {
		t.Fatalf("slots = %d, want 2", len(resp.ThingsOrErrs))
	}
	if resp.ThingsOrErrs[0].Err == nil || resp.ThingsOrErrs[0].Err.Code != taskapi.CodeNotFound {
		t.Errorf("slot 0 = %+v, want NotFound", resp.ThingsOrErrs[0])
	}
	if got := resp.ThingsOrErrs[1].Thing["id"]; got != "pageid:110" {
		t.Errorf("slot 1 id = %v", got)
	}
}

func TestExecute_Get_InclFields(t *testing.T) {
	eng := newTestEngine(t, []taskapi.Option{taskapi.WithStore(seededStore())})

	resp, err := eng.Execute(context.Background(),
		[]byte(`{"getQuery":{"getWhat":"Pages","getRefs":["pageid:110"],"inclFields":{"title":true}}}`))
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	item := resp.ThingsOrErrs[0].Thing
	if item["title"] != "Welcome" || item["kind"] != "Page" {
		t.Errorf("item = %v", item)
	}
	if _, leaked := item["urlPath"]; leaked {
		t.Error("unrequested attribute present")
	}
}

// ──────────────────────────────────────────────────
// List
// ──────────────────────────────────────────────────

func TestExecute_List_CursorRoundTrip(t *testing.T) {
	eng := newTestEngine(t, []taskapi.Option{taskapi.WithStore(seededStore())})
	ctx := context.Background()

	resp, err := eng.Execute(ctx,
		[]byte(`{"listQuery":{"listWhat":"Pages","sortOrder":"NewestFirst","limit":2}}`))
	if err != nil {
		t.Fatalf("first page: %v", err)
	}
	if len(resp.ThingsFound) != 2 {
		t.Fatalf("first page items = %d", len(resp.ThingsFound))
	}
	if resp.ThingsFound[0]["id"] != "pageid:112" {
		t.Errorf("newest first, got %v", resp.ThingsFound[0]["id"])
	}
	if resp.Cursor == "" {
		t.Fatal("no cursor with more results pending")
	}

	body, _ := json.Marshal(map[string]any{
		"listQuery": map[string]any{"continueAtScrollCursor": resp.Cursor},
	})
	resp2, err := eng.Execute(ctx, body)
	if err != nil {
		t.Fatalf("second page: %v", err)
	}
	if len(resp2.ThingsFound) != 1 || resp2.ThingsFound[0]["id"] != "pageid:110" {
		t.Fatalf("second page = %v", resp2.ThingsFound)
	}
	if resp2.Cursor != "" {
		t.Errorf("cursor after final page: %q", resp2.Cursor)
	}
}

// ──────────────────────────────────────────────────
// Search
// ──────────────────────────────────────────────────

func TestExecute_Search(t *testing.T) {
	s := seededStore()
	eng := newTestEngine(t, []taskapi.Option{
		taskapi.WithStore(s),
		taskapi.WithSearch(memory.NewSearch(s)),
	})

	resp, err := eng.Execute(context.Background(),
		[]byte(`{"searchQuery":{"freetext":"login","findWhat":"Pages"}}`))
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if len(resp.ThingsFound) != 1 {
		t.Fatalf("hits = %d, want 1", len(resp.ThingsFound))
	}
	hit := resp.ThingsFound[0]
	if hit["id"] != "pageid:112" {
		t.Errorf("hit id = %v", hit["id"])
	}
	if _, ok := hit["score"]; !ok {
		t.Error("hit has no score")
	}
}

func TestExecute_Search_NoBackend(t *testing.T) {
	eng := newTestEngine(t, []taskapi.Option{taskapi.WithStore(seededStore())})

	_, err := eng.Execute(context.Background(),
		[]byte(`{"searchQuery":{"freetext":"anything"}}`))
	if err == nil {
		t.Fatal("search without backend succeeded")
	}
	if re := taskapi.AsRequestError(err); re.Status != 501 {
		t.Errorf("status = %d, want 501", re.Status)
	}
}

// ──────────────────────────────────────────────────
// Actions
// ──────────────────────────────────────────────────

func TestExecute_Do_CreatePageAndEvent(t *testing.T) {
	eng := newTestEngine(t, []taskapi.Option{taskapi.WithStore(seededStore())})
	ctx := context.Background()

	resp, err := eng.Execute(ctx, []byte(`{"doActions":[
		{"asWho":"username:jane","doWhat":"CreatePage","doHow":{
			"title":"New topic","bodyText":"First!","inCategory":"catid:1"}}
	]}`))
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if len(resp.Results) != 1 {
		t.Fatalf("results = %d", len(resp.Results))
	}
	slot := resp.Results[0]
	if !slot.Done || !strings.HasPrefix(slot.Ref, "pageid:") {
		t.Fatalf("slot = %+v", slot)
	}

	// The mutation landed in the activity log.
	evResp, err := eng.Execute(ctx, []byte(`{"listQuery":{"listWhat":"Events"}}`))
	if err != nil {
		t.Fatalf("list events: %v", err)
	}
	if len(evResp.ThingsFound) != 1 {
		t.Fatalf("events = %d, want 1", len(evResp.ThingsFound))
	}
	ev := evResp.ThingsFound[0]
	if ev["eventType"] != "PageCreated" || ev["actorRef"] != "patid:7" {
		t.Errorf("event = %v", ev)
	}
	if ev["subjectRef"] != slot.Ref {
		t.Errorf("event subject = %v, want %v", ev["subjectRef"], slot.Ref)
	}
}

func TestExecute_Do_PerItemFailureKeepsSiblings(t *testing.T) {
	eng := newTestEngine(t, []taskapi.Option{taskapi.WithStore(seededStore())})

	resp, err := eng.Execute(context.Background(), []byte(`{"doActions":[
		{"asWho":"username:nobody","doWhat":"DeletePost","doHow":{"whatPost":"postid:5001"}},
		{"asWho":"username:jane","doWhat":"DeletePost","doHow":{"whatPost":"postid:5001"}}
	]}`))
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if len(resp.Results) != 2 {
		t.Fatalf("results = %d", len(resp.Results))
	}
	if resp.Results[0].Err == nil || resp.Results[0].Err.Code != taskapi.CodeNotFound {
		t.Errorf("slot 0 = %+v, want NotFound", resp.Results[0])
	}
	if !resp.Results[1].Done {
		t.Errorf("slot 1 = %+v, want done", resp.Results[1])
	}
}

// ──────────────────────────────────────────────────
// Multi-task
// ──────────────────────────────────────────────────

func TestExecute_Multi_PositionalMerge(t *testing.T) {
	eng := newTestEngine(t, []taskapi.Option{taskapi.WithStore(seededStore())})

	resp, err := eng.Execute(context.Background(), []byte(`{"runQueries":[
		{"getQuery":{"getWhat":"Pages","getRefs":["pageid:110"]}},
		{"searchQuery":{"freetext":"x"}},
		{"listQuery":{"listWhat":"Categories"}}
	]}`))
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if len(resp.Queries) != 3 {
		t.Fatalf("sub-results = %d", len(resp.Queries))
	}
	if resp.Queries[0].Response == nil || len(resp.Queries[0].Response.ThingsOrErrs) != 1 {
		t.Errorf("sub 0 = %+v", resp.Queries[0])
	}
	// No search backend configured: that slot fails alone.
	if resp.Queries[1].Err == nil || resp.Queries[1].Err.Status != 501 {
		t.Errorf("sub 1 = %+v, want 501 envelope", resp.Queries[1])
	}
	if resp.Queries[2].Response == nil || len(resp.Queries[2].Response.ThingsFound) != 1 {
		t.Errorf("sub 2 = %+v", resp.Queries[2])
	}
}

func TestResponse_MarshalShapes(t *testing.T) {
	eng := newTestEngine(t, []taskapi.Option{
		taskapi.WithStore(seededStore()),
		taskapi.WithOrigin("https://forum.example.com"),
	})
	ctx := context.Background()

	cases := []struct {
		body string
		want []string
	}{
		{`{"getQuery":{"getWhat":"Pages","getRefs":["pageid:110"]}}`,
			[]string{`"origin"`, `"thingsOrErrs"`}},
		{`{"listQuery":{"listWhat":"Pages"}}`,
			[]string{`"origin"`, `"thingsFound"`}},
		{`{"doActions":[{"asWho":"username:jane","doWhat":"SetVote","doHow":{
			"whatVote":"Like","howMany":1,"whatPage":"pageid:110"}}]}`,
			[]string{`"results"`}},
	}
	for _, tc := range cases {
		resp, err := eng.Execute(ctx, []byte(tc.body))
		if err != nil {
			t.Fatalf("Execute(%s): %v", tc.body, err)
		}
		raw, err := json.Marshal(resp)
		if err != nil {
			t.Fatalf("Marshal: %v", err)
		}
		for _, key := range tc.want {
			if !strings.Contains(string(raw), key) {
				t.Errorf("response %s missing %s", raw, key)
			}
		}
	}
}

// ──────────────────────────────────────────────────
// Request-level failures and lifecycle
// ──────────────────────────────────────────────────

func TestExecute_DecodeError(t *testing.T) {
	eng := newTestEngine(t, []taskapi.Option{taskapi.WithStore(seededStore())})

	_, err := eng.Execute(context.Background(), []byte(`{"getQuery":`))
	if err == nil {
		t.Fatal("malformed body accepted")
	}
	if re := taskapi.AsRequestError(err); re.Status != 400 {
		t.Errorf("status = %d, want 400", re.Status)
	}
}

func TestBuild_RejectsIncompleteStore(t *testing.T) {
	g, err := taskapi.New(taskapi.WithStore(lifecycleOnlyStore{}))
	if err != nil {
		t.Fatalf("taskapi.New: %v", err)
	}
	if _, err := engine.Build(g); err == nil {
		t.Fatal("Build accepted a store without the executor interfaces")
	}
}

type lifecycleOnlyStore struct{}

func (lifecycleOnlyStore) Migrate(context.Context) error { return nil }
func (lifecycleOnlyStore) Ping(context.Context) error    { return nil }
func (lifecycleOnlyStore) Close() error                  { return nil }

type countingExt struct {
	started   atomic.Int32
	completed atomic.Int32
	failed    atomic.Int32
	applied   atomic.Int32
	shutdown  atomic.Int32
}

func (c *countingExt) Name() string { return "counting" }

func (c *countingExt) OnTaskStarted(context.Context, *task.Task) error {
	c.started.Add(1)
	return nil
}

func (c *countingExt) OnTaskCompleted(context.Context, *task.Task, time.Duration) error {
	c.completed.Add(1)
	return nil
}

func (c *countingExt) OnTaskFailed(context.Context, *task.Task, error) error {
	c.failed.Add(1)
	return nil
}

func (c *countingExt) OnActionApplied(context.Context, *thing.Event) error {
	c.applied.Add(1)
	return nil
}

func (c *countingExt) OnShutdown(context.Context) error {
	c.shutdown.Add(1)
	return nil
}

var _ interface {
	ext.Extension
	ext.TaskStarted
	ext.TaskCompleted
	ext.TaskFailed
	ext.ActionApplied
	ext.Shutdown
} = (*countingExt)(nil)

func TestExtensionLifecycle(t *testing.T) {
	s := seededStore()
	cx := &countingExt{}
	eng := newTestEngine(t, []taskapi.Option{taskapi.WithStore(s)}, engine.WithExtension(cx))
	ctx := context.Background()

	if _, err := eng.Execute(ctx, []byte(`{"doActions":[
		{"asWho":"username:jane","doWhat":"DeletePost","doHow":{"whatPost":"postid:5001"}}
	]}`)); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if _, err := eng.Execute(ctx, []byte(`{"searchQuery":{"freetext":"x"}}`)); err == nil {
		t.Fatal("expected search failure")
	}

	if got := cx.started.Load(); got != 2 {
		t.Errorf("started = %d, want 2", got)
	}
	if got := cx.completed.Load(); got != 1 {
		t.Errorf("completed = %d, want 1", got)
	}
	if got := cx.failed.Load(); got != 1 {
		t.Errorf("failed = %d, want 1", got)
	}
	if got := cx.applied.Load(); got != 1 {
		t.Errorf("applied = %d, want 1", got)
	}

	if err := eng.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
	if got := cx.shutdown.Load(); got != 1 {
		t.Errorf("shutdown = %d, want 1", got)
	}
	if err := s.Ping(ctx); !errors.Is(err, taskapi.ErrStoreClosed) {
		t.Errorf("store still open after Shutdown: %v", err)
	}
}
