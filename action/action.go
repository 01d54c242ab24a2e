// Package action implements the mutating batch executor. Actions in a batch
// run strictly in order, one at a time; each action resolves its own actor
// and target references, and a failed action occupies its result slot
// without stopping the actions after it. Nested batches recurse and come
// back as nested slot sequences.
package action

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/quillboard/taskapi"
	"github.com/quillboard/taskapi/event"
	"github.com/quillboard/taskapi/ref"
	"github.com/quillboard/taskapi/task"
	"github.com/quillboard/taskapi/thing"
)

// Resolver is the lookup surface actions need to turn references into
// entities: the actor, and the page / post / category a mutation targets.
// get.Store is a superset, so one backend serves both executors.
type Resolver interface {
	GetParticipant(ctx context.Context, r ref.Ref) (*thing.Participant, error)
	GetPage(ctx context.Context, r ref.Ref) (*thing.Page, error)
	GetPost(ctx context.Context, r ref.Ref) (*thing.Post, error)
	GetCategory(ctx context.Context, r ref.Ref) (*thing.Category, error)
}

// Store is the mutation surface. Targets arrive already resolved to
// internal ids; reference handling never leaks into the backend.
type Store interface {
	Resolver

	UpsertTagType(ctx context.Context, refID, label string) (*thing.Tag, error)
	CreatePage(ctx context.Context, p NewPage) (*thing.Page, error)
	CreateComment(ctx context.Context, c NewComment) (*thing.Post, error)
	DeletePost(ctx context.Context, postID, byPatID int64, reason string) error
	SetVote(ctx context.Context, v Vote) error
	SetNotfLevel(ctx context.Context, n NotfLevel) error
}

// NewPage is the resolved input for a CreatePage action.
type NewPage struct {
	Title      string
	BodyText   string
	CategoryID int64
	AuthorID   int64
	URLPath    string
	RefID      string
}

// NewComment is the resolved input for a CreateComment action.
type NewComment struct {
	PageID   int64
	AuthorID int64
	BodyText string
	ParentNr int
}

// Vote is the resolved input for a SetVote action. Exactly one of PageID
// and PostID is set. Set false clears the vote.
type Vote struct {
	PatID  int64
	PageID int64
	PostID int64
	Kind   string
	Set    bool
}

// NotfLevel is the resolved input for a SetNotfLevel action.
type NotfLevel struct {
	PatID  int64
	PageID int64
	Level  string
}

// actorNamespaces lists the reference namespaces that can name an actor.
var actorNamespaces = map[ref.Namespace]bool{
	ref.NsPatID: true, ref.NsUsername: true, ref.NsRefID: true,
	ref.NsExtID: true, ref.NsSSOID: true,
}

// pageNamespaces and categoryNamespaces bound what a mutation may target.
var (
	pageNamespaces = map[ref.Namespace]bool{
		ref.NsPageID: true, ref.NsRefID: true, ref.NsExtID: true, ref.NsEmbURL: true,
	}
	categoryNamespaces = map[ref.Namespace]bool{
		ref.NsCatID: true, ref.NsRefID: true, ref.NsExtID: true,
	}
)

// Executor runs action batches.
type Executor struct {
	store   Store
	events  event.Store
	limits  *Limits
	applied func(ctx context.Context, ev *thing.Event)
	logger  *slog.Logger
}

// Option configures an Executor.
type Option func(*Executor)

// WithEvents appends an activity-log event after every successful mutation.
func WithEvents(s event.Store) Option {
	return func(e *Executor) { e.events = s }
}

// WithLimits applies per-actor rate limiting to every action.
func WithLimits(l *Limits) Option {
	return func(e *Executor) { e.limits = l }
}

// WithApplied registers a callback invoked after every successful
// mutation, with the activity-log event describing it.
func WithApplied(fn func(ctx context.Context, ev *thing.Event)) Option {
	return func(e *Executor) { e.applied = fn }
}

// WithLogger sets the executor's logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Executor) { e.logger = l }
}

// New creates an action executor.
func New(store Store, opts ...Option) *Executor {
	e := &Executor{
		store:  store,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run executes t and returns exactly len(t.Actions) slots, slot i
// corresponding to t.Actions[i]. Actions run sequentially in input order;
// once the context ends, every remaining action gets a timeout slot.
func (e *Executor) Run(ctx context.Context, t *task.DoTask) []taskapi.ResultSlot {
	return e.runBatch(ctx, t.Actions)
}

func (e *Executor) runBatch(ctx context.Context, actions []task.Action) []taskapi.ResultSlot {
	slots := make([]taskapi.ResultSlot, len(actions))
	for i := range actions {
		if err := ctx.Err(); err != nil {
			slots[i] = taskapi.ErrSlotFrom(err)
			continue
		}
		slots[i] = e.runOne(ctx, &actions[i])
	}
	return slots
}

// runOne resolves the actor, applies rate limiting, dispatches on the
// action type, and appends the activity-log event on success.
func (e *Executor) runOne(ctx context.Context, a *task.Action) taskapi.ResultSlot {
	if a.Nested != nil {
		if a.Nested.InSingleTransaction {
			return taskapi.ErrSlot(taskapi.CodeUnimplemented,
				"single-transaction nested batches are not supported yet")
		}
		return taskapi.NestedSlot(e.runBatch(ctx, a.Nested.Actions))
	}

	actor, slot := e.resolveActor(ctx, a.AsWho)
	if actor == nil {
		return slot
	}
	if !e.limits.Allow(actor.RefStr()) {
		return taskapi.ErrSlotFrom(fmt.Errorf(
			"%w: actor %s", taskapi.ErrRateLimited, a.AsWho))
	}

	evType, subjectRef, err := e.apply(ctx, actor, a)
	if err != nil {
		if ctx.Err() != nil {
			return taskapi.ErrSlotFrom(ctx.Err())
		}
		e.logger.Debug("action: failed",
			slog.String("doWhat", string(a.DoWhat)),
			slog.String("asWho", a.AsWho),
			slog.String("error", err.Error()),
		)
		return taskapi.ErrSlotFrom(err)
	}

	e.appendEvent(ctx, evType, actor.RefStr(), subjectRef)
	return taskapi.OkDone(subjectRef)
}

// apply performs the mutation and returns the event type and the reference
// of the entity the action created or touched.
func (e *Executor) apply(ctx context.Context, actor *thing.Participant, a *task.Action) (string, string, error) {
	switch a.DoWhat {
	case task.ActUpsertType:
		tag, err := e.store.UpsertTagType(ctx, a.UpsertType.RefID, a.UpsertType.Label)
		if err != nil {
			return "", "", actionFailed("upsert type", err)
		}
		return event.TypeUpserted, tag.RefStr(), nil

	case task.ActCreatePage:
		cat, err := e.resolveCategory(ctx, a.CreatePage.InCategory)
		if err != nil {
			return "", "", err
		}
		page, err := e.store.CreatePage(ctx, NewPage{
			Title:      a.CreatePage.Title,
			BodyText:   a.CreatePage.BodyText,
			CategoryID: cat.ID,
			AuthorID:   actor.ID,
			URLPath:    a.CreatePage.URLPath,
			RefID:      a.CreatePage.RefID,
		})
		if err != nil {
			return "", "", actionFailed("create page", err)
		}
		return event.PageCreated, page.RefStr(), nil

	case task.ActCreateComment:
		page, err := e.resolvePage(ctx, a.CreateComment.WhatPage)
		if err != nil {
			return "", "", err
		}
		post, err := e.store.CreateComment(ctx, NewComment{
			PageID:   page.ID,
			AuthorID: actor.ID,
			BodyText: a.CreateComment.BodyText,
			ParentNr: a.CreateComment.ParentNr,
		})
		if err != nil {
			return "", "", actionFailed("create comment", err)
		}
		return event.CommentCreated, post.RefStr(), nil

	case task.ActDeletePost:
		post, err := e.resolvePost(ctx, a.DeletePost.WhatPost)
		if err != nil {
			return "", "", err
		}
		if err := e.store.DeletePost(ctx, post.ID, actor.ID, a.Reason); err != nil {
			return "", "", actionFailed("delete post", err)
		}
		return event.PostDeleted, post.RefStr(), nil

	case task.ActSetVote:
		v := Vote{
			PatID: actor.ID,
			Kind:  a.SetVote.WhatVote,
			Set:   a.SetVote.HowMany == 1,
		}
		var subject string
		if a.SetVote.WhatPage != "" {
			page, err := e.resolvePage(ctx, a.SetVote.WhatPage)
			if err != nil {
				return "", "", err
			}
			v.PageID = page.ID
			subject = page.RefStr()
		} else {
			post, err := e.resolvePost(ctx, a.SetVote.WhatPost)
			if err != nil {
				return "", "", err
			}
			v.PostID = post.ID
			subject = post.RefStr()
		}
		if err := e.store.SetVote(ctx, v); err != nil {
			return "", "", actionFailed("set vote", err)
		}
		return event.VoteSet, subject, nil

	case task.ActSetNotfLevel:
		page, err := e.resolvePage(ctx, a.SetNotfLevel.WhatPage)
		if err != nil {
			return "", "", err
		}
		n := NotfLevel{PatID: actor.ID, PageID: page.ID, Level: a.SetNotfLevel.WhatLevel}
		if err := e.store.SetNotfLevel(ctx, n); err != nil {
			return "", "", actionFailed("set notf level", err)
		}
		return event.NotfLevelSet, page.RefStr(), nil
	}

	return "", "", fmt.Errorf("%w: action type %q", taskapi.ErrUnimplemented, a.DoWhat)
}

// resolveActor turns an asWho reference into a participant. A nil actor
// means the returned slot carries the failure.
func (e *Executor) resolveActor(ctx context.Context, raw string) (*thing.Participant, taskapi.ResultSlot) {
	r, err := ref.Parse(raw)
	if err != nil {
		return nil, taskapi.ErrSlotFrom(err)
	}
	if !actorNamespaces[r.Namespace] {
		return nil, taskapi.ErrSlotFrom(fmt.Errorf(
			"%w: namespace %q cannot name an actor", taskapi.ErrInvalidRef, r.Namespace))
	}
	actor, err := e.store.GetParticipant(ctx, r)
	if err != nil {
		return nil, taskapi.ErrSlotFrom(fmt.Errorf("actor %s: %w", raw, err))
	}
	return actor, taskapi.ResultSlot{}
}

func (e *Executor) resolvePage(ctx context.Context, raw string) (*thing.Page, error) {
	r, err := ref.Parse(raw)
	if err != nil {
		return nil, err
	}
	if !pageNamespaces[r.Namespace] {
		return nil, fmt.Errorf("%w: namespace %q cannot address a page", taskapi.ErrInvalidRef, r.Namespace)
	}
	page, err := e.store.GetPage(ctx, r)
	if err != nil {
		return nil, fmt.Errorf("page %s: %w", raw, err)
	}
	return page, nil
}

func (e *Executor) resolvePost(ctx context.Context, raw string) (*thing.Post, error) {
	r, err := ref.Parse(raw)
	if err != nil {
		return nil, err
	}
	if r.Namespace != ref.NsPostID {
		return nil, fmt.Errorf("%w: namespace %q cannot address a post", taskapi.ErrInvalidRef, r.Namespace)
	}
	post, err := e.store.GetPost(ctx, r)
	if err != nil {
		return nil, fmt.Errorf("post %s: %w", raw, err)
	}
	return post, nil
}

func (e *Executor) resolveCategory(ctx context.Context, raw string) (*thing.Category, error) {
	r, err := ref.Parse(raw)
	if err != nil {
		return nil, err
	}
	if !categoryNamespaces[r.Namespace] {
		return nil, fmt.Errorf("%w: namespace %q cannot address a category", taskapi.ErrInvalidRef, r.Namespace)
	}
	cat, err := e.store.GetCategory(ctx, r)
	if err != nil {
		return nil, fmt.Errorf("category %s: %w", raw, err)
	}
	return cat, nil
}

// appendEvent writes the activity-log entry for a successful action. Log
// failures never fail the action that already happened.
func (e *Executor) appendEvent(ctx context.Context, evType, actorRef, subjectRef string) {
	if e.events == nil && e.applied == nil {
		return
	}
	ev := event.New(evType, actorRef, subjectRef)
	if e.events != nil {
		if err := e.events.AppendEvent(ctx, ev); err != nil {
			e.logger.Warn("action: append event failed",
				slog.String("type", evType),
				slog.String("subject", subjectRef),
				slog.String("error", err.Error()),
			)
		}
	}
	if e.applied != nil {
		e.applied(ctx, ev)
	}
}

// actionFailed classifies a backend mutation failure.
func actionFailed(op string, err error) error {
	return &taskapi.ItemError{
		Code:    taskapi.CodeActionFailed,
		Message: fmt.Sprintf("%s: %v", op, err),
	}
}
