package search_test

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"testing"

	"github.com/quillboard/taskapi"
	"github.com/quillboard/taskapi/search"
	"github.com/quillboard/taskapi/task"
	"github.com/quillboard/taskapi/thing"
)

// fakeIndex returns canned hits, windowed by Offset/Limit like a real
// ranked index would.
type fakeIndex struct {
	hits []search.Hit
	fail error
	last search.Query
}

func (f *fakeIndex) Search(_ context.Context, q search.Query) ([]search.Hit, error) {
	f.last = q
	if f.fail != nil {
		return nil, f.fail
	}
	if q.Offset >= len(f.hits) {
		return nil, nil
	}
	window := f.hits[q.Offset:]
	if len(window) > q.Limit {
		window = window[:q.Limit]
	}
	out := make([]search.Hit, len(window))
	copy(out, window)
	return out, nil
}

func (f *fakeIndex) Ping(context.Context) error { return nil }
func (f *fakeIndex) Close() error               { return nil }

func page(id int64, title string) *thing.Page {
	return &thing.Page{ID: id, Title: title}
}

func searchTask(freetext string, limit int) *task.SearchTask {
	return &task.SearchTask{
		Freetext: freetext,
		What:     thing.KindPages,
		Look:     task.LookWhere{PageText: true},
		Limit:    limit,
		Incl:     thing.InclusionSpec{"title": true},
	}
}

func TestRun_ScoreOrderWithTieBreak(t *testing.T) {
	idx := &fakeIndex{hits: []search.Hit{
		{Thing: page(30, "c"), Score: 2.0},
		{Thing: page(10, "a"), Score: 2.0},
		{Thing: page(20, "b"), Score: 9.5, Highlights: []string{"a <mark>b</mark> c"}},
	}}
	e := search.New(idx)

	res, err := e.Run(context.Background(), searchTask("b", 10))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	var ids []any
	for _, it := range res.Items {
		ids = append(ids, it["id"])
	}
	// Best score first; equal scores ordered by ref ascending.
	want := []any{"pageid:20", "pageid:10", "pageid:30"}
	if !reflect.DeepEqual(ids, want) {
		t.Errorf("order = %v, want %v", ids, want)
	}

	if res.Items[0]["snippets"].([]string)[0] != "a <mark>b</mark> c" {
		t.Errorf("snippets lost: %v", res.Items[0])
	}
	if _, present := res.Items[1]["snippets"]; present {
		t.Error("hit without highlights must carry no snippets field")
	}
	if res.Items[0]["score"] != 9.5 {
		t.Errorf("score = %v", res.Items[0]["score"])
	}
}

func TestRun_QueryConstruction(t *testing.T) {
	idx := &fakeIndex{}
	e := search.New(idx)

	if _, err := e.Run(context.Background(), searchTask("needle", 5)); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if idx.last.Freetext != "needle" || idx.last.Kind != thing.KindPages {
		t.Errorf("query = %+v", idx.last)
	}
	if !idx.last.Look.PageText {
		t.Errorf("lookWhere not forwarded: %+v", idx.last.Look)
	}
	if idx.last.Limit != 6 {
		t.Errorf("probe limit = %d, want limit+1", idx.last.Limit)
	}
}

func TestRun_CursorPagination(t *testing.T) {
	var hits []search.Hit
	for i := range 5 {
		hits = append(hits, search.Hit{
			Thing: page(int64(100+i), fmt.Sprintf("p%d", i)),
			Score: float64(50 - i),
		})
	}
	idx := &fakeIndex{hits: hits}
	e := search.New(idx)

	var seen []any
	res, err := e.Run(context.Background(), searchTask("x", 2))
	if err != nil {
		t.Fatalf("page 1: %v", err)
	}
	for _, it := range res.Items {
		seen = append(seen, it["id"])
	}

	for res.Cursor != "" {
		res, err = e.Run(context.Background(), &task.SearchTask{ContinueAt: res.Cursor, Limit: 2})
		if err != nil {
			t.Fatalf("continuation: %v", err)
		}
		for _, it := range res.Items {
			seen = append(seen, it["id"])
		}
	}

	want := []any{"pageid:100", "pageid:101", "pageid:102", "pageid:103", "pageid:104"}
	if !reflect.DeepEqual(seen, want) {
		t.Errorf("traversal = %v, want %v", seen, want)
	}
}

func TestRun_BackendErrorIsLookupFailed(t *testing.T) {
	idx := &fakeIndex{fail: fmt.Errorf("index down")}
	e := search.New(idx)

	_, err := e.Run(context.Background(), searchTask("x", 3))
	if !errors.Is(err, taskapi.ErrLookupFailed) {
		t.Errorf("error %v should wrap ErrLookupFailed", err)
	}
}

func TestRun_NilBackend(t *testing.T) {
	e := search.New(nil)
	_, err := e.Run(context.Background(), searchTask("x", 3))
	if !errors.Is(err, taskapi.ErrLookupFailed) {
		t.Errorf("error %v should wrap ErrLookupFailed", err)
	}
}

func TestRun_BadCursorRejected(t *testing.T) {
	e := search.New(&fakeIndex{})
	_, err := e.Run(context.Background(), &task.SearchTask{ContinueAt: "%%%", Limit: 2})
	if !errors.Is(err, taskapi.ErrDecode) {
		t.Errorf("error %v should wrap ErrDecode", err)
	}
}
