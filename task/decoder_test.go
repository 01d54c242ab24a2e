package task_test

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/quillboard/taskapi"
	"github.com/quillboard/taskapi/task"
	"github.com/quillboard/taskapi/thing"
)

func newDecoder() *task.Decoder {
	return task.NewDecoder(taskapi.DefaultConfig())
}

func mustDecode(t *testing.T, body string) *task.Task {
	t.Helper()
	tk, err := newDecoder().Decode([]byte(body))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	return tk
}

func wantDecodeErr(t *testing.T, body string, wantSub string) {
	t.Helper()
	_, err := newDecoder().Decode([]byte(body))
	if err == nil {
		t.Fatalf("Decode(%s): expected error", body)
	}
	if !errors.Is(err, taskapi.ErrDecode) &&
		!errors.Is(err, taskapi.ErrNestingTooDeep) &&
		!errors.Is(err, taskapi.ErrBatchTooLarge) {
		t.Errorf("error %v should wrap a decode-class sentinel", err)
	}
	if wantSub != "" && !strings.Contains(err.Error(), wantSub) {
		t.Errorf("error %q should mention %q", err, wantSub)
	}
}

// ---------------------------------------------------------------------------
// Discriminator handling
// ---------------------------------------------------------------------------

func TestDecode_NoDiscriminator(t *testing.T) {
	wantDecodeErr(t, `{}`, "want one of")
}

func TestDecode_TwoDiscriminators(t *testing.T) {
	wantDecodeErr(t,
		`{"getQuery":{"getWhat":"Pages","getRefs":["pageid:1"]},"searchQuery":{"freetext":"x"}}`,
		"more than one task field")
}

func TestDecode_UnknownTopLevelField(t *testing.T) {
	wantDecodeErr(t, `{"fetchQuery":{}}`, "")
}

func TestDecode_MalformedBody(t *testing.T) {
	wantDecodeErr(t, `{"getQuery":`, "")
	wantDecodeErr(t, `{"getQuery":{}} trailing`, "")
}

// ---------------------------------------------------------------------------
// getQuery
// ---------------------------------------------------------------------------

func TestDecode_Get(t *testing.T) {
	tk := mustDecode(t, `{"getQuery":{
		"getWhat": "Pages",
		"getRefs": ["pageid:110", "emburl:https://x.example/a"],
		"inclFields": {"title": true, "excerpt": false}
	}}`)

	if tk.Discriminator() != "getQuery" {
		t.Fatalf("discriminator = %q", tk.Discriminator())
	}
	g := tk.Get
	if g.What != thing.KindPages {
		t.Errorf("What = %v", g.What)
	}
	if len(g.Refs) != 2 {
		t.Errorf("Refs = %v", g.Refs)
	}
	if !g.Incl["title"] || g.Incl["excerpt"] {
		t.Errorf("Incl = %v", g.Incl)
	}
}

func TestDecode_Get_BadRefIsNotADecodeError(t *testing.T) {
	// Malformed refs are per-item failures at execution time, never a
	// whole-request decode failure.
	tk := mustDecode(t, `{"getQuery":{"getWhat":"Pages","getRefs":["total nonsense"]}}`)
	if tk.Get == nil || len(tk.Get.Refs) != 1 {
		t.Fatalf("task = %+v", tk)
	}
}

func TestDecode_Get_DefaultInclusion(t *testing.T) {
	tk := mustDecode(t, `{"getQuery":{"getWhat":"Tags","getRefs":["tagid:1"]}}`)
	if !tk.Get.Incl["label"] || !tk.Get.Incl["numUses"] {
		t.Errorf("default inclusion should cover all legal attrs, got %v", tk.Get.Incl)
	}
}

func TestDecode_Get_Invalid(t *testing.T) {
	wantDecodeErr(t, `{"getQuery":{"getWhat":"Wikis","getRefs":["x:1"]}}`, "unknown kind")
	wantDecodeErr(t, `{"getQuery":{"getWhat":"Pages","getRefs":[]}}`, "getRefs")
	wantDecodeErr(t,
		`{"getQuery":{"getWhat":"Pages","getRefs":["pageid:1"],"inclFields":{"bodyText":true}}}`,
		"no attribute")
	wantDecodeErr(t,
		`{"getQuery":{"getWhat":"Pages","getRefs":["pageid:1"],"fetchAll":true}}`,
		"")
}

// ---------------------------------------------------------------------------
// listQuery
// ---------------------------------------------------------------------------

func TestDecode_List(t *testing.T) {
	tk := mustDecode(t, `{"listQuery":{
		"listWhat": "Members",
		"exactPrefix": "jane_d",
		"lookWhere": {"usernames": true},
		"sortOrder": "NewestFirst",
		"limit": 10
	}}`)

	l := tk.List
	if l.What != thing.KindMembers || l.ExactPrefix != "jane_d" || l.Limit != 10 {
		t.Fatalf("list = %+v", l)
	}
	if l.Sort != task.SortNewestFirst {
		t.Errorf("Sort = %v", l.Sort)
	}
}

func TestDecode_List_DefaultsApplied(t *testing.T) {
	tk := mustDecode(t, `{"listQuery":{"listWhat":"Pages"}}`)
	cfg := taskapi.DefaultConfig()

	if tk.List.Limit != cfg.DefaultListLimit {
		t.Errorf("Limit = %d, want default %d", tk.List.Limit, cfg.DefaultListLimit)
	}
	if tk.List.Sort != task.SortActivityRecentFirst {
		t.Errorf("Sort = %v, want kind default", tk.List.Sort)
	}
}

func TestDecode_List_LimitClamped(t *testing.T) {
	cfg := taskapi.DefaultConfig()
	tk := mustDecode(t, fmt.Sprintf(`{"listQuery":{"listWhat":"Pages","limit":%d}}`,
		cfg.MaxListLimit+1000))
	if tk.List.Limit != cfg.MaxListLimit {
		t.Errorf("Limit = %d, want cap %d", tk.List.Limit, cfg.MaxListLimit)
	}
}

func TestDecode_List_IllegalCombinations(t *testing.T) {
	// Scope with no supporting index for the kind.
	wantDecodeErr(t,
		`{"listQuery":{"listWhat":"Pages","lookWhere":{"usernames":true}}}`,
		"no index")
	// Sort order not declared for the kind.
	wantDecodeErr(t,
		`{"listQuery":{"listWhat":"Members","sortOrder":"PopularFirst"}}`,
		"sortOrder")
	// exactPrefix without its supporting scope enabled.
	wantDecodeErr(t,
		`{"listQuery":{"listWhat":"Members","exactPrefix":"jane"}}`,
		"requires lookWhere scope")
	// exactPrefix on a kind that does not support it at all.
	wantDecodeErr(t,
		`{"listQuery":{"listWhat":"Events","exactPrefix":"x"}}`,
		"not supported")
	// Filter not declared for the kind.
	wantDecodeErr(t,
		`{"listQuery":{"listWhat":"Tags","filter":{"isOpen":true}}}`,
		"filter")
}

func TestDecode_List_CursorTravelsAlone(t *testing.T) {
	tk := mustDecode(t, `{"listQuery":{"continueAtScrollCursor":"abc","limit":5}}`)
	if tk.List.ContinueAt != "abc" || tk.List.Limit != 5 {
		t.Fatalf("list = %+v", tk.List)
	}

	wantDecodeErr(t,
		`{"listQuery":{"continueAtScrollCursor":"abc","listWhat":"Pages"}}`,
		"only field")
}

// ---------------------------------------------------------------------------
// searchQuery
// ---------------------------------------------------------------------------

func TestDecode_Search_Defaults(t *testing.T) {
	tk := mustDecode(t, `{"searchQuery":{"freetext":"hello"}}`)
	s := tk.Search
	if s.What != thing.KindPages {
		t.Errorf("findWhat default = %v, want Pages", s.What)
	}
	if !s.Look.PageText {
		t.Errorf("lookWhere default = %+v, want pageText", s.Look)
	}
}

func TestDecode_Search_PostsDefaultScope(t *testing.T) {
	tk := mustDecode(t, `{"searchQuery":{"freetext":"hello","findWhat":"Posts"}}`)
	if !tk.Search.Look.BodyText {
		t.Errorf("Posts default scope = %+v, want bodyText", tk.Search.Look)
	}
}

func TestDecode_Search_Invalid(t *testing.T) {
	wantDecodeErr(t, `{"searchQuery":{"freetext":"  "}}`, "freetext")
	wantDecodeErr(t, `{"searchQuery":{"freetext":"x","findWhat":"Members"}}`, "cannot search")
	wantDecodeErr(t,
		`{"searchQuery":{"freetext":"x","findWhat":"Posts","lookWhere":{"pageText":true}}}`,
		"does not support")
}

// ---------------------------------------------------------------------------
// doActions
// ---------------------------------------------------------------------------

func TestDecode_Do(t *testing.T) {
	tk := mustDecode(t, `{"doActions":[
		{"asWho":"username:jane","doWhat":"CreatePage","doHow":{
			"title":"Hello","bodyText":"First!","inCategory":"catid:3"}},
		{"asWho":"username:jane","doWhat":"SetVote","doHow":{
			"whatVote":"Like","howMany":1,"whatPost":"postid:7"}}
	]}`)

	acts := tk.Do.Actions
	if len(acts) != 2 {
		t.Fatalf("actions = %d", len(acts))
	}
	if acts[0].DoWhat != task.ActCreatePage || acts[0].CreatePage.Title != "Hello" {
		t.Errorf("action 0 = %+v", acts[0])
	}
	if acts[1].SetVote == nil || acts[1].SetVote.HowMany != 1 {
		t.Errorf("action 1 = %+v", acts[1])
	}
}

func TestDecode_Do_Nested(t *testing.T) {
	tk := mustDecode(t, `{"doActions":[
		{"doWhat":"DoNested","doHow":{"actions":[
			{"asWho":"username:amy","doWhat":"DeletePost","doHow":{"whatPost":"postid:9"}}
		]}}
	]}`)

	a := tk.Do.Actions[0]
	if a.Nested == nil || len(a.Nested.Actions) != 1 {
		t.Fatalf("nested = %+v", a.Nested)
	}
	if a.Nested.Actions[0].DeletePost.WhatPost != "postid:9" {
		t.Errorf("inner action = %+v", a.Nested.Actions[0])
	}
}

func TestDecode_Do_Invalid(t *testing.T) {
	wantDecodeErr(t, `{"doActions":[]}`, "empty")
	wantDecodeErr(t, `{"doActions":[{"asWho":"username:x","doWhat":"Explode","doHow":{}}]}`,
		"unknown doWhat")
	wantDecodeErr(t, `{"doActions":[{"doWhat":"DeletePost","doHow":{"whatPost":"postid:1"}}]}`,
		"asWho")
	wantDecodeErr(t, `{"doActions":[
		{"asWho":"username:x","doWhat":"SetVote","doHow":{"whatVote":"Like","howMany":2,"whatPost":"postid:1"}}
	]}`, "howMany")
	wantDecodeErr(t, `{"doActions":[
		{"asWho":"username:x","doWhat":"SetVote","doHow":{
			"whatVote":"Like","howMany":1,"whatPost":"postid:1","whatPage":"pageid:2"}}
	]}`, "exactly one")
	wantDecodeErr(t, `{"doActions":[
		{"asWho":"username:x","doWhat":"CreatePage","doHow":{"title":"t","bodyText":"b"}}
	]}`, "inCategory")
}

func TestDecode_Do_DepthLimit(t *testing.T) {
	cfg := taskapi.DefaultConfig()
	inner := `{"asWho":"username:x","doWhat":"DeletePost","doHow":{"whatPost":"postid:1"}}`
	for range cfg.MaxNestingDepth + 1 {
		inner = fmt.Sprintf(`{"doWhat":"DoNested","doHow":{"actions":[%s]}}`, inner)
	}
	wantDecodeErr(t, fmt.Sprintf(`{"doActions":[%s]}`, inner), "deeper")
}

func TestDecode_Do_BatchSizeLimit(t *testing.T) {
	cfg := taskapi.DefaultConfig()
	one := `{"asWho":"username:x","doWhat":"DeletePost","doHow":{"whatPost":"postid:1"}}`
	many := strings.Repeat(one+",", cfg.MaxActionsPerBatch)
	wantDecodeErr(t, `{"doActions":[`+many+one+`]}`, "more than")
}

// ---------------------------------------------------------------------------
// runQueries
// ---------------------------------------------------------------------------

func TestDecode_Multi(t *testing.T) {
	tk := mustDecode(t, `{"runQueries":[
		{"getQuery":{"getWhat":"Pages","getRefs":["pageid:1"]}},
		{"listQuery":{"listWhat":"Tags"}},
		{"searchQuery":{"freetext":"hi"}}
	]}`)

	if len(tk.Multi.Tasks) != 3 {
		t.Fatalf("tasks = %d", len(tk.Multi.Tasks))
	}
	wants := []string{"getQuery", "listQuery", "searchQuery"}
	for i, want := range wants {
		if got := tk.Multi.Tasks[i].Discriminator(); got != want {
			t.Errorf("task %d = %q, want %q", i, got, want)
		}
	}
}

func TestDecode_Multi_NestedMultiAllowed(t *testing.T) {
	tk := mustDecode(t, `{"runQueries":[
		{"runQueries":[{"listQuery":{"listWhat":"Tags"}}]}
	]}`)
	if tk.Multi.Tasks[0].Multi == nil {
		t.Fatal("expected nested multi task")
	}
}

func TestDecode_Multi_RejectsDoActions(t *testing.T) {
	wantDecodeErr(t, `{"runQueries":[
		{"doActions":[{"asWho":"username:x","doWhat":"DeletePost","doHow":{"whatPost":"postid:1"}}]}
	]}`, "not allowed inside runQueries")
}

func TestDecode_Multi_DepthLimit(t *testing.T) {
	cfg := taskapi.DefaultConfig()
	body := `{"listQuery":{"listWhat":"Tags"}}`
	for range cfg.MaxNestingDepth + 1 {
		body = `{"runQueries":[` + body + `]}`
	}
	wantDecodeErr(t, body, "deeper")
}
