package live

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/quillboard/taskapi"
	"github.com/quillboard/taskapi/engine"
	"github.com/quillboard/taskapi/store/memory"
	"github.com/quillboard/taskapi/stream"
	"github.com/quillboard/taskapi/thing"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestHandler builds a handler backed by a real engine over a seeded
// in-memory store.
func newTestHandler(t *testing.T) *Handler {
	t.Helper()

	s := memory.New()
	s.AddCategory(thing.Category{ID: 1, RefID: "cat-general", Name: "General"})
	s.AddParticipant(thing.Participant{ID: 7, Username: "jane", FullName: "Jane Doe"})
	ts := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s.AddPage(thing.Page{
		Entity:     taskapi.Entity{CreatedAt: ts, UpdatedAt: ts},
		ID:         110,
		Title:      "Welcome",
		AuthorID:   7,
		CategoryID: 1,
	})

	g, err := taskapi.New(taskapi.WithStore(s))
	if err != nil {
		t.Fatalf("taskapi.New: %v", err)
	}
	eng, err := engine.Build(g)
	if err != nil {
		t.Fatalf("engine.Build: %v", err)
	}

	logger := testLogger()
	return NewHandler(eng, stream.NewBroker(logger), logger)
}

func wildcardConn() *Connection {
	return NewConnection("conn-1", &Identity{Subject: "test", Scopes: []string{"*"}}, &JSONCodec{})
}

func TestHandler_TaskGet(t *testing.T) {
	t.Parallel()

	h := newTestHandler(t)

	frame := &Frame{
		ID:     "req-1",
		Type:   FrameRequest,
		Method: MethodTaskGet,
		Data:   json.RawMessage(`{"getWhat":"Pages","getRefs":["pageid:110"]}`),
	}

	resp := h.Handle(context.Background(), frame, wildcardConn())
	if resp == nil {
		t.Fatal("expected response")
	}
	if resp.Type != FrameResponse {
		t.Fatalf("Type = %q, want %q (error: %+v)", resp.Type, FrameResponse, resp.Error)
	}
	if resp.CorrelID != "req-1" {
		t.Errorf("CorrelID = %q, want %q", resp.CorrelID, "req-1")
	}

	var result struct {
		ThingsOrErrs []map[string]any `json:"thingsOrErrs"`
	}
	if err := json.Unmarshal(resp.Data, &result); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(result.ThingsOrErrs) != 1 {
		t.Fatalf("slots = %d, want 1", len(result.ThingsOrErrs))
	}
	if result.ThingsOrErrs[0]["id"] != "pageid:110" {
		t.Errorf("slot id = %v", result.ThingsOrErrs[0]["id"])
	}
}

func TestHandler_TaskList(t *testing.T) {
	t.Parallel()

	h := newTestHandler(t)

	frame := &Frame{
		ID:     "req-2",
		Type:   FrameRequest,
		Method: MethodTaskList,
		Data:   json.RawMessage(`{"listWhat":"Pages","sortOrder":"NewestFirst"}`),
	}

	resp := h.Handle(context.Background(), frame, wildcardConn())
	if resp == nil || resp.Type != FrameResponse {
		t.Fatalf("resp = %+v", resp)
	}

	var result struct {
		ThingsFound []map[string]any `json:"thingsFound"`
	}
	if err := json.Unmarshal(resp.Data, &result); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(result.ThingsFound) != 1 {
		t.Fatalf("thingsFound = %d, want 1", len(result.ThingsFound))
	}
	if result.ThingsFound[0]["title"] != "Welcome" {
		t.Errorf("title = %v", result.ThingsFound[0]["title"])
	}
}

func TestHandler_TaskDo(t *testing.T) {
	t.Parallel()

	h := newTestHandler(t)

	frame := &Frame{
		ID:     "req-3",
		Type:   FrameRequest,
		Method: MethodTaskDo,
		Data: json.RawMessage(`[
			{"asWho":"username:jane","doWhat":"CreatePage","doHow":{
				"title":"New topic","bodyText":"First!","inCategory":"catid:1"}}
		]`),
	}

	resp := h.Handle(context.Background(), frame, wildcardConn())
	if resp == nil || resp.Type != FrameResponse {
		t.Fatalf("resp = %+v", resp)
	}

	var result struct {
		Results []struct {
			OK  bool   `json:"ok"`
			Ref string `json:"ref"`
		} `json:"results"`
	}
	if err := json.Unmarshal(resp.Data, &result); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(result.Results) != 1 {
		t.Fatalf("results = %d, want 1", len(result.Results))
	}
	if !result.Results[0].OK || !strings.HasPrefix(result.Results[0].Ref, "pageid:") {
		t.Errorf("slot = %+v", result.Results[0])
	}
}

func TestHandler_TaskBadBody(t *testing.T) {
	t.Parallel()

	h := newTestHandler(t)

	tests := []struct {
		name string
		data json.RawMessage
	}{
		{"empty", nil},
		{"malformed", json.RawMessage(`{not json`)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			frame := &Frame{
				ID:     "req-4",
				Type:   FrameRequest,
				Method: MethodTaskGet,
				Data:   tt.data,
			}
			resp := h.Handle(context.Background(), frame, wildcardConn())
			if resp == nil || resp.Type != FrameErr {
				t.Fatalf("resp = %+v", resp)
			}
			if resp.Error.Code != ErrCodeBadRequest {
				t.Errorf("Error.Code = %d, want %d", resp.Error.Code, ErrCodeBadRequest)
			}
		})
	}
}

func TestHandler_TaskRequestError(t *testing.T) {
	t.Parallel()

	h := newTestHandler(t)

	// Valid JSON, invalid query: unknown kind.
	frame := &Frame{
		ID:     "req-5",
		Type:   FrameRequest,
		Method: MethodTaskGet,
		Data:   json.RawMessage(`{"getWhat":"Gadgets","getRefs":["pageid:110"]}`),
	}

	resp := h.Handle(context.Background(), frame, wildcardConn())
	if resp == nil || resp.Type != FrameErr {
		t.Fatalf("resp = %+v", resp)
	}
	if resp.Error.Code != ErrCodeBadRequest {
		t.Errorf("Error.Code = %d, want %d", resp.Error.Code, ErrCodeBadRequest)
	}
	if resp.Error.Details == "" {
		t.Error("expected error code string in details")
	}
}

func TestHandler_HandleSubscribe(t *testing.T) {
	t.Parallel()

	h := &Handler{logger: testLogger()}

	frame := &Frame{
		ID:     "req-6",
		Type:   FrameRequest,
		Method: MethodSubscribe,
		Data:   mustJSON(SubscribeRequest{Channel: "firehose"}),
	}

	resp := h.Handle(context.Background(), frame, wildcardConn())
	if resp == nil {
		t.Fatal("expected response")
	}
	if resp.Type != FrameResponse {
		t.Errorf("Type = %q, want %q", resp.Type, FrameResponse)
	}
	if resp.CorrelID != "req-6" {
		t.Errorf("CorrelID = %q, want %q", resp.CorrelID, "req-6")
	}

	var result map[string]string
	if err := json.Unmarshal(resp.Data, &result); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if result["channel"] != "firehose" {
		t.Errorf("channel = %q, want %q", result["channel"], "firehose")
	}
	if result["status"] != "subscribed" {
		t.Errorf("status = %q, want %q", result["status"], "subscribed")
	}
}

func TestHandler_HandleUnsubscribe(t *testing.T) {
	t.Parallel()

	h := &Handler{logger: testLogger()}

	frame := &Frame{
		ID:     "req-7",
		Type:   FrameRequest,
		Method: MethodUnsubscribe,
		Data:   mustJSON(UnsubscribeRequest{Channel: "firehose"}),
	}

	resp := h.Handle(context.Background(), frame, wildcardConn())
	if resp == nil {
		t.Fatal("expected response")
	}
	if resp.Type != FrameResponse {
		t.Errorf("Type = %q, want %q", resp.Type, FrameResponse)
	}

	var result map[string]string
	if err := json.Unmarshal(resp.Data, &result); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if result["status"] != "unsubscribed" {
		t.Errorf("status = %q, want %q", result["status"], "unsubscribed")
	}
}

func TestHandler_HandleSubscribeInvalidTopic(t *testing.T) {
	t.Parallel()

	h := &Handler{logger: testLogger()}

	frame := &Frame{
		ID:     "req-8",
		Type:   FrameRequest,
		Method: MethodSubscribe,
		Data:   mustJSON(SubscribeRequest{Channel: "invalid"}),
	}

	resp := h.Handle(context.Background(), frame, wildcardConn())
	if resp == nil {
		t.Fatal("expected response")
	}
	if resp.Type != FrameErr {
		t.Errorf("Type = %q, want %q", resp.Type, FrameErr)
	}
	if resp.Error == nil {
		t.Fatal("expected error detail")
	}
	if resp.Error.Code != ErrCodeBadRequest {
		t.Errorf("Error.Code = %d, want %d", resp.Error.Code, ErrCodeBadRequest)
	}
}

func TestHandler_HandleUnknownMethod(t *testing.T) {
	t.Parallel()

	h := &Handler{logger: testLogger()}

	frame := &Frame{
		ID:     "req-9",
		Type:   FrameRequest,
		Method: "nonexistent.method",
	}

	resp := h.Handle(context.Background(), frame, wildcardConn())
	if resp == nil {
		t.Fatal("expected response")
	}
	if resp.Type != FrameErr {
		t.Errorf("Type = %q, want %q", resp.Type, FrameErr)
	}
	if resp.Error == nil {
		t.Fatal("expected error detail")
	}
	if resp.Error.Code != ErrCodeMethodNotFound {
		t.Errorf("Error.Code = %d, want %d", resp.Error.Code, ErrCodeMethodNotFound)
	}
}

func TestHandler_HandleBadSubscribeJSON(t *testing.T) {
	t.Parallel()

	h := &Handler{logger: testLogger()}

	frame := &Frame{
		ID:     "req-10",
		Type:   FrameRequest,
		Method: MethodSubscribe,
		Data:   json.RawMessage(`{invalid json}`),
	}

	resp := h.Handle(context.Background(), frame, wildcardConn())
	if resp == nil {
		t.Fatal("expected response")
	}
	if resp.Type != FrameErr {
		t.Errorf("Type = %q, want %q", resp.Type, FrameErr)
	}
}

func TestHandler_Stats(t *testing.T) {
	t.Parallel()

	h := newTestHandler(t)

	frame := &Frame{
		ID:     "req-11",
		Type:   FrameRequest,
		Method: MethodStats,
	}

	resp := h.Handle(context.Background(), frame, wildcardConn())
	if resp == nil || resp.Type != FrameResponse {
		t.Fatalf("resp = %+v", resp)
	}

	var stats map[string]any
	if err := json.Unmarshal(resp.Data, &stats); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if _, ok := stats["broker"]; !ok {
		t.Error("expected broker stats")
	}
}

// mustJSON marshals to JSON or panics.
func mustJSON(v any) json.RawMessage {
	data, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return data
}
