package task

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/quillboard/taskapi"
	"github.com/quillboard/taskapi/thing"
)

// Decoder turns raw request bodies into typed tasks. Any failure is a
// whole-request decode error: the decoder never produces a partial task.
type Decoder struct {
	maxDepth     int
	maxActions   int
	defaultLimit int
	maxLimit     int
}

// NewDecoder builds a Decoder from the gateway configuration.
func NewDecoder(cfg taskapi.Config) *Decoder {
	return &Decoder{
		maxDepth:     cfg.MaxNestingDepth,
		maxActions:   cfg.MaxActionsPerBatch,
		defaultLimit: cfg.DefaultListLimit,
		maxLimit:     cfg.MaxListLimit,
	}
}

// envelope holds the five mutually exclusive discriminator fields.
type envelope struct {
	GetQuery    json.RawMessage `json:"getQuery"`
	ListQuery   json.RawMessage `json:"listQuery"`
	SearchQuery json.RawMessage `json:"searchQuery"`
	DoActions   json.RawMessage `json:"doActions"`
	RunQueries  json.RawMessage `json:"runQueries"`
}

// Decode parses body into exactly one typed task.
func (d *Decoder) Decode(body []byte) (*Task, error) {
	return d.decodeTask(body, 0, false)
}

// decodeTask decodes one task at the given batch nesting depth. insideMulti
// forbids doActions, which may not appear inside runQueries.
func (d *Decoder) decodeTask(body []byte, depth int, insideMulti bool) (*Task, error) {
	if depth > d.maxDepth {
		return nil, fmt.Errorf("%w: runQueries deeper than %d", taskapi.ErrNestingTooDeep, d.maxDepth)
	}

	var env envelope
	if err := strictUnmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", taskapi.ErrDecode, err)
	}

	var present []string
	if env.GetQuery != nil {
		present = append(present, "getQuery")
	}
	if env.ListQuery != nil {
		present = append(present, "listQuery")
	}
	if env.SearchQuery != nil {
		present = append(present, "searchQuery")
	}
	if env.DoActions != nil {
		present = append(present, "doActions")
	}
	if env.RunQueries != nil {
		present = append(present, "runQueries")
	}

	switch len(present) {
	case 0:
		return nil, fmt.Errorf("%w: want one of getQuery, listQuery, searchQuery, doActions, runQueries",
			taskapi.ErrDecode)
	case 1:
	default:
		return nil, fmt.Errorf("%w: more than one task field: %s",
			taskapi.ErrDecode, strings.Join(present, ", "))
	}

	switch present[0] {
	case "getQuery":
		return d.decodeGet(env.GetQuery)
	case "listQuery":
		return d.decodeList(env.ListQuery)
	case "searchQuery":
		return d.decodeSearch(env.SearchQuery)
	case "doActions":
		if insideMulti {
			return nil, fmt.Errorf("%w: doActions is not allowed inside runQueries", taskapi.ErrDecode)
		}
		return d.decodeDo(env.DoActions)
	default:
		return d.decodeMulti(env.RunQueries, depth)
	}
}

// ── getQuery ─────────────────────────────────────────────────────

type getQueryJSON struct {
	GetWhat    string              `json:"getWhat"`
	GetRefs    []string            `json:"getRefs"`
	InclFields thing.InclusionSpec `json:"inclFields"`
}

func (d *Decoder) decodeGet(raw json.RawMessage) (*Task, error) {
	var q getQueryJSON
	if err := strictUnmarshal(raw, &q); err != nil {
		return nil, fmt.Errorf("%w: getQuery: %v", taskapi.ErrDecode, err)
	}

	kind, err := thing.ParseKind(q.GetWhat)
	if err != nil {
		return nil, fmt.Errorf("getQuery: getWhat: %w", err)
	}
	if len(q.GetRefs) == 0 {
		return nil, fmt.Errorf("%w: getQuery: getRefs must not be empty", taskapi.ErrDecode)
	}

	incl := q.InclFields
	if incl == nil {
		incl = thing.DefaultInclusion(kind)
	} else if err := thing.CheckInclusionSpec(kind, incl); err != nil {
		return nil, fmt.Errorf("getQuery: inclFields: %w", err)
	}

	return &Task{Get: &GetTask{What: kind, Refs: q.GetRefs, Incl: incl}}, nil
}

// ── listQuery ────────────────────────────────────────────────────

type listQueryJSON struct {
	ListWhat               string              `json:"listWhat"`
	LookWhere              *LookWhere          `json:"lookWhere"`
	Filter                 *Filter             `json:"filter"`
	SortOrder              string              `json:"sortOrder"`
	ExactPrefix            string              `json:"exactPrefix"`
	Limit                  *int                `json:"limit"`
	InclFields             thing.InclusionSpec `json:"inclFields"`
	ContinueAtScrollCursor string              `json:"continueAtScrollCursor"`
}

func (d *Decoder) decodeList(raw json.RawMessage) (*Task, error) {
	var q listQueryJSON
	if err := strictUnmarshal(raw, &q); err != nil {
		return nil, fmt.Errorf("%w: listQuery: %v", taskapi.ErrDecode, err)
	}

	// Continuation: the cursor travels alone. Everything that shapes the
	// result set is baked into the token, so extra fields are a conflict,
	// not a refinement.
	if q.ContinueAtScrollCursor != "" {
		if q.ListWhat != "" || q.LookWhere != nil || q.Filter != nil ||
			q.SortOrder != "" || q.ExactPrefix != "" || q.InclFields != nil {
			return nil, fmt.Errorf("%w: listQuery: continueAtScrollCursor must be the only field",
				taskapi.ErrDecode)
		}
		t := &ListTask{ContinueAt: q.ContinueAtScrollCursor, Limit: d.clampLimit(q.Limit)}
		return &Task{List: t}, nil
	}

	kind, err := thing.ParseKind(q.ListWhat)
	if err != nil {
		return nil, fmt.Errorf("listQuery: listWhat: %w", err)
	}

	t := &ListTask{
		What:        kind,
		Sort:        SortOrder(q.SortOrder),
		ExactPrefix: q.ExactPrefix,
		Limit:       d.clampLimit(q.Limit),
	}
	if q.LookWhere != nil {
		t.Look = *q.LookWhere
	}
	if q.Filter != nil {
		t.Filter = *q.Filter
	}
	if err := checkListRules(t); err != nil {
		return nil, fmt.Errorf("listQuery: %w", err)
	}

	t.Incl = q.InclFields
	if t.Incl == nil {
		t.Incl = thing.DefaultInclusion(kind)
	} else if err := thing.CheckInclusionSpec(kind, t.Incl); err != nil {
		return nil, fmt.Errorf("listQuery: inclFields: %w", err)
	}

	return &Task{List: t}, nil
}

// ── searchQuery ──────────────────────────────────────────────────

type searchQueryJSON struct {
	Freetext               string              `json:"freetext"`
	FindWhat               string              `json:"findWhat"`
	LookWhere              *LookWhere          `json:"lookWhere"`
	Limit                  *int                `json:"limit"`
	InclFields             thing.InclusionSpec `json:"inclFields"`
	ContinueAtScrollCursor string              `json:"continueAtScrollCursor"`
}

func (d *Decoder) decodeSearch(raw json.RawMessage) (*Task, error) {
	var q searchQueryJSON
	if err := strictUnmarshal(raw, &q); err != nil {
		return nil, fmt.Errorf("%w: searchQuery: %v", taskapi.ErrDecode, err)
	}

	if q.ContinueAtScrollCursor != "" {
		if q.Freetext != "" || q.FindWhat != "" || q.LookWhere != nil || q.InclFields != nil {
			return nil, fmt.Errorf("%w: searchQuery: continueAtScrollCursor must be the only field",
				taskapi.ErrDecode)
		}
		t := &SearchTask{ContinueAt: q.ContinueAtScrollCursor, Limit: d.clampLimit(q.Limit)}
		return &Task{Search: t}, nil
	}

	if strings.TrimSpace(q.Freetext) == "" {
		return nil, fmt.Errorf("%w: searchQuery: freetext must not be empty", taskapi.ErrDecode)
	}

	t := &SearchTask{
		Freetext: q.Freetext,
		What:     thing.KindPages,
		Look:     LookWhere{PageText: true},
		Limit:    d.clampLimit(q.Limit),
	}
	if q.FindWhat != "" {
		kind, err := thing.ParseKind(q.FindWhat)
		if err != nil {
			return nil, fmt.Errorf("searchQuery: findWhat: %w", err)
		}
		t.What = kind
		if q.LookWhere == nil {
			// The pageText default only fits Pages.
			t.Look = LookWhere{}
			if kind == thing.KindPosts {
				t.Look = LookWhere{BodyText: true}
			} else if kind == thing.KindPages {
				t.Look = LookWhere{PageText: true}
			}
		}
	}
	if q.LookWhere != nil {
		t.Look = *q.LookWhere
	}
	if err := checkSearchRules(t); err != nil {
		return nil, fmt.Errorf("searchQuery: %w", err)
	}

	t.Incl = q.InclFields
	if t.Incl == nil {
		t.Incl = thing.DefaultInclusion(t.What)
	} else if err := thing.CheckInclusionSpec(t.What, t.Incl); err != nil {
		return nil, fmt.Errorf("searchQuery: inclFields: %w", err)
	}

	return &Task{Search: t}, nil
}

// ── doActions ────────────────────────────────────────────────────

type actionJSON struct {
	AsWho  string          `json:"asWho"`
	DoWhat string          `json:"doWhat"`
	Reason string          `json:"reason"`
	DoHow  json.RawMessage `json:"doHow"`
}

type nestedBatchJSON struct {
	Actions             []json.RawMessage `json:"actions"`
	InSingleTransaction bool              `json:"inSingleTransaction"`
}

func (d *Decoder) decodeDo(raw json.RawMessage) (*Task, error) {
	var raws []json.RawMessage
	if err := json.Unmarshal(raw, &raws); err != nil {
		return nil, fmt.Errorf("%w: doActions must be an array: %v", taskapi.ErrDecode, err)
	}
	if len(raws) == 0 {
		return nil, fmt.Errorf("%w: doActions must not be empty", taskapi.ErrDecode)
	}

	count := 0
	actions, err := d.decodeActions(raws, 0, &count)
	if err != nil {
		return nil, err
	}
	return &Task{Do: &DoTask{Actions: actions}}, nil
}

func (d *Decoder) decodeActions(raws []json.RawMessage, depth int, count *int) ([]Action, error) {
	if depth > d.maxDepth {
		return nil, fmt.Errorf("%w: nested actions deeper than %d", taskapi.ErrNestingTooDeep, d.maxDepth)
	}

	actions := make([]Action, 0, len(raws))
	for i, raw := range raws {
		*count++
		if *count > d.maxActions {
			return nil, fmt.Errorf("%w: more than %d actions", taskapi.ErrBatchTooLarge, d.maxActions)
		}

		var aj actionJSON
		if err := strictUnmarshal(raw, &aj); err != nil {
			return nil, fmt.Errorf("%w: action %d: %v", taskapi.ErrDecode, i, err)
		}
		a, err := d.decodeAction(aj, i, depth, count)
		if err != nil {
			return nil, err
		}
		actions = append(actions, a)
	}
	return actions, nil
}

func (d *Decoder) decodeAction(aj actionJSON, i, depth int, count *int) (Action, error) {
	a := Action{AsWho: aj.AsWho, DoWhat: ActionType(aj.DoWhat), Reason: aj.Reason}

	if aj.DoWhat == "" {
		return a, fmt.Errorf("%w: action %d: doWhat is required", taskapi.ErrDecode, i)
	}
	if a.DoWhat != ActNested && aj.AsWho == "" {
		return a, fmt.Errorf("%w: action %d: asWho is required", taskapi.ErrDecode, i)
	}
	if len(aj.DoHow) == 0 {
		return a, fmt.Errorf("%w: action %d: doHow is required", taskapi.ErrDecode, i)
	}

	switch a.DoWhat {
	case ActUpsertType:
		p := new(UpsertTypeParams)
		if err := strictUnmarshal(aj.DoHow, p); err != nil {
			return a, decodeHowErr(i, a.DoWhat, err)
		}
		if p.Label == "" {
			return a, missingField(i, a.DoWhat, "label")
		}
		a.UpsertType = p

	case ActCreatePage:
		p := new(CreatePageParams)
		if err := strictUnmarshal(aj.DoHow, p); err != nil {
			return a, decodeHowErr(i, a.DoWhat, err)
		}
		if p.Title == "" {
			return a, missingField(i, a.DoWhat, "title")
		}
		if p.BodyText == "" {
			return a, missingField(i, a.DoWhat, "bodyText")
		}
		if p.InCategory == "" {
			return a, missingField(i, a.DoWhat, "inCategory")
		}
		a.CreatePage = p

	case ActCreateComment:
		p := new(CreateCommentParams)
		if err := strictUnmarshal(aj.DoHow, p); err != nil {
			return a, decodeHowErr(i, a.DoWhat, err)
		}
		if p.WhatPage == "" {
			return a, missingField(i, a.DoWhat, "whatPage")
		}
		if p.BodyText == "" {
			return a, missingField(i, a.DoWhat, "bodyText")
		}
		a.CreateComment = p

	case ActDeletePost:
		p := new(DeletePostParams)
		if err := strictUnmarshal(aj.DoHow, p); err != nil {
			return a, decodeHowErr(i, a.DoWhat, err)
		}
		if p.WhatPost == "" {
			return a, missingField(i, a.DoWhat, "whatPost")
		}
		a.DeletePost = p

	case ActSetVote:
		p := new(SetVoteParams)
		if err := strictUnmarshal(aj.DoHow, p); err != nil {
			return a, decodeHowErr(i, a.DoWhat, err)
		}
		if p.WhatVote != "Like" {
			return a, fmt.Errorf("%w: action %d: SetVote: whatVote must be \"Like\"", taskapi.ErrDecode, i)
		}
		if p.HowMany != 0 && p.HowMany != 1 {
			return a, fmt.Errorf("%w: action %d: SetVote: howMany must be 0 or 1", taskapi.ErrDecode, i)
		}
		if (p.WhatPage == "") == (p.WhatPost == "") {
			return a, fmt.Errorf("%w: action %d: SetVote: exactly one of whatPage, whatPost",
				taskapi.ErrDecode, i)
		}
		a.SetVote = p

	case ActSetNotfLevel:
		p := new(SetNotfLevelParams)
		if err := strictUnmarshal(aj.DoHow, p); err != nil {
			return a, decodeHowErr(i, a.DoWhat, err)
		}
		switch p.WhatLevel {
		case "EveryPost", "Normal", "Muted":
		default:
			return a, fmt.Errorf("%w: action %d: SetNotfLevel: bad whatLevel %q",
				taskapi.ErrDecode, i, p.WhatLevel)
		}
		if p.WhatPage == "" {
			return a, missingField(i, a.DoWhat, "whatPage")
		}
		a.SetNotfLevel = p

	case ActNested:
		var nb nestedBatchJSON
		if err := strictUnmarshal(aj.DoHow, &nb); err != nil {
			return a, decodeHowErr(i, a.DoWhat, err)
		}
		if len(nb.Actions) == 0 {
			return a, missingField(i, a.DoWhat, "actions")
		}
		inner, err := d.decodeActions(nb.Actions, depth+1, count)
		if err != nil {
			return a, err
		}
		a.Nested = &NestedBatch{Actions: inner, InSingleTransaction: nb.InSingleTransaction}

	default:
		return a, fmt.Errorf("%w: action %d: unknown doWhat %q", taskapi.ErrDecode, i, aj.DoWhat)
	}

	return a, nil
}

// ── runQueries ───────────────────────────────────────────────────

func (d *Decoder) decodeMulti(raw json.RawMessage, depth int) (*Task, error) {
	var raws []json.RawMessage
	if err := json.Unmarshal(raw, &raws); err != nil {
		return nil, fmt.Errorf("%w: runQueries must be an array: %v", taskapi.ErrDecode, err)
	}
	if len(raws) == 0 {
		return nil, fmt.Errorf("%w: runQueries must not be empty", taskapi.ErrDecode)
	}

	tasks := make([]Task, 0, len(raws))
	for i, tr := range raws {
		sub, err := d.decodeTask(tr, depth+1, true)
		if err != nil {
			return nil, fmt.Errorf("runQueries[%d]: %w", i, err)
		}
		tasks = append(tasks, *sub)
	}
	return &Task{Multi: &MultiTask{Tasks: tasks}}, nil
}

// ── helpers ──────────────────────────────────────────────────────

func (d *Decoder) clampLimit(limit *int) int {
	if limit == nil || *limit <= 0 {
		return d.defaultLimit
	}
	if *limit > d.maxLimit {
		return d.maxLimit
	}
	return *limit
}

// strictUnmarshal decodes JSON rejecting unknown fields, so misspelled or
// kind-inappropriate fields fail loudly instead of being ignored.
func strictUnmarshal(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return err
	}
	// Trailing garbage after the value is also a malformed body.
	if dec.More() {
		return fmt.Errorf("unexpected trailing data")
	}
	return nil
}

func decodeHowErr(i int, what ActionType, err error) error {
	return fmt.Errorf("%w: action %d: %s: doHow: %v", taskapi.ErrDecode, i, what, err)
}

func missingField(i int, what ActionType, field string) error {
	return fmt.Errorf("%w: action %d: %s: %s is required", taskapi.ErrDecode, i, what, field)
}
