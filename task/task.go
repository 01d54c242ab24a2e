// Package task turns raw request bodies into typed tasks. One request shape
// conceals five incompatible sub-schemas — getQuery, listQuery, searchQuery,
// doActions, runQueries — selected by the discriminator field. The decoder
// here is the single control point for dependent validity: which fields are
// legal depends on the discriminator value and on the declared kind, and
// that constraint is checked once, at decode time, never inside executors.
package task

import (
	"encoding/json"

	"github.com/quillboard/taskapi/thing"
)

// Task is the decoded discriminated variant. Exactly one field is non-nil;
// only the Decoder constructs Tasks, so executors may rely on that.
type Task struct {
	Get    *GetTask
	List   *ListTask
	Search *SearchTask
	Do     *DoTask
	Multi  *MultiTask
}

// Discriminator returns the wire name of the populated variant.
func (t *Task) Discriminator() string {
	switch {
	case t.Get != nil:
		return "getQuery"
	case t.List != nil:
		return "listQuery"
	case t.Search != nil:
		return "searchQuery"
	case t.Do != nil:
		return "doActions"
	case t.Multi != nil:
		return "runQueries"
	}
	return ""
}

// GetTask is an exact-key lookup of one or more referenced things.
// Refs stay raw strings here: reference resolution is a per-item concern
// owned by the get executor, so one bad ref cannot fail its siblings.
type GetTask struct {
	What thing.Kind
	Refs []string
	Incl thing.InclusionSpec
}

// ListTask is a bounded secondary-index scan. When ContinueAt is set the
// task carries only the cursor; kind, sort and filter are restored from it.
type ListTask struct {
	What        thing.Kind
	Look        LookWhere
	Filter      Filter
	Sort        SortOrder
	ExactPrefix string
	Limit       int
	Incl        thing.InclusionSpec
	ContinueAt  string
}

// SearchTask is a free-text query against the external full-text index.
type SearchTask struct {
	Freetext   string
	What       thing.Kind
	Look       LookWhere
	Limit      int
	Incl       thing.InclusionSpec
	ContinueAt string
}

// DoTask is an ordered batch of mutating actions.
type DoTask struct {
	Actions []Action
}

// MultiTask is an ordered batch of read-only sub-tasks (get, list, search,
// or a nested runQueries). Action batches nest through DoTask instead.
type MultiTask struct {
	Tasks []Task
}

// ActionType selects one mutation semantics.
type ActionType string

const (
	ActUpsertType    ActionType = "UpsertType"
	ActCreatePage    ActionType = "CreatePage"
	ActCreateComment ActionType = "CreateComment"
	ActDeletePost    ActionType = "DeletePost"
	ActSetVote       ActionType = "SetVote"
	ActSetNotfLevel  ActionType = "SetNotfLevel"
	ActNested        ActionType = "DoNested"
)

// Action is one decoded mutating action. Exactly one params pointer is
// non-nil and agrees with DoWhat. AsWho stays a raw ref string; resolution
// is per-action at execution time.
type Action struct {
	AsWho  string
	DoWhat ActionType
	Reason string

	UpsertType    *UpsertTypeParams
	CreatePage    *CreatePageParams
	CreateComment *CreateCommentParams
	DeletePost    *DeletePostParams
	SetVote       *SetVoteParams
	SetNotfLevel  *SetNotfLevelParams
	Nested        *NestedBatch
}

// NestedBatch is a batch action inside a batch, recursively. The
// InSingleTransaction flag is decoded but currently rejected: atomic
// nested batches are a documented future extension.
type NestedBatch struct {
	Actions             []Action
	InSingleTransaction bool
}

// UpsertTypeParams creates or updates a tag type.
type UpsertTypeParams struct {
	RefID string `json:"refId"`
	Label string `json:"label"`
}

// CreatePageParams creates a new page.
type CreatePageParams struct {
	Title      string `json:"title"`
	BodyText   string `json:"bodyText"`
	InCategory string `json:"inCategory"`
	URLPath    string `json:"urlPath,omitempty"`
	RefID      string `json:"refId,omitempty"`
}

// CreateCommentParams appends a comment to a page.
type CreateCommentParams struct {
	WhatPage string `json:"whatPage"`
	BodyText string `json:"bodyText"`
	ParentNr int    `json:"parentNr,omitempty"`
}

// DeletePostParams deletes one post.
type DeletePostParams struct {
	WhatPost string `json:"whatPost"`
}

// SetVoteParams sets or clears a vote on a page or post.
type SetVoteParams struct {
	WhatVote string `json:"whatVote"` // only "Like" for now
	HowMany  int    `json:"howMany"`  // 1 sets, 0 clears
	WhatPage string `json:"whatPage,omitempty"`
	WhatPost string `json:"whatPost,omitempty"`
}

// SetNotfLevelParams sets a participant's notification level for a page.
type SetNotfLevelParams struct {
	WhatLevel string `json:"whatLevel"` // EveryPost, Normal, Muted
	WhatPage  string `json:"whatPage"`
}

// RawParams re-encodes the populated params, for logging and audit trails.
func (a *Action) RawParams() json.RawMessage {
	var v any
	switch {
	case a.UpsertType != nil:
		v = a.UpsertType
	case a.CreatePage != nil:
		v = a.CreatePage
	case a.CreateComment != nil:
		v = a.CreateComment
	case a.DeletePost != nil:
		v = a.DeletePost
	case a.SetVote != nil:
		v = a.SetVote
	case a.SetNotfLevel != nil:
		v = a.SetNotfLevel
	default:
		return nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return raw
}
