// Package memory provides a fully in-memory implementation of the
// aggregate store, plus a matching in-process search backend. Safe for
// concurrent access. Intended for unit testing and development.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/quillboard/taskapi"
	"github.com/quillboard/taskapi/action"
	"github.com/quillboard/taskapi/event"
	"github.com/quillboard/taskapi/get"
	"github.com/quillboard/taskapi/list"
	"github.com/quillboard/taskapi/ref"
	"github.com/quillboard/taskapi/thing"
)

// Ensure Store implements store.Store at compile time.
// We can't import store here (import cycle), so we verify each subsystem.
var (
	_ get.Store    = (*Store)(nil)
	_ list.Store   = (*Store)(nil)
	_ action.Store = (*Store)(nil)
	_ event.Store  = (*Store)(nil)
)

type voteKey struct {
	patID   int64
	subject string // canonical ref of the page or post
}

type notfKey struct {
	patID  int64
	pageID int64
}

// Store is a fully in-memory implementation of store.Store.
type Store struct {
	mu     sync.RWMutex
	closed bool

	pages  map[int64]*thing.Page
	posts  map[int64]*thing.Post
	pats   map[int64]*thing.Participant
	cats   map[int64]*thing.Category
	tags   map[int64]*thing.Tag
	events []*thing.Event

	// Secondary key indexes.
	pageByRefID   map[string]int64
	pageByExtID   map[string]int64
	pageByEmbURL  map[string]int64
	patByUsername map[string]int64
	patByRefID    map[string]int64
	patByExtID    map[string]int64
	patBySSOID    map[string]int64
	catByRefID    map[string]int64
	catByExtID    map[string]int64
	tagByRefID    map[string]int64

	votes map[voteKey]bool
	notfs map[notfKey]string

	nextPage int64
	nextPost int64
	nextPat  int64
	nextCat  int64
	nextTag  int64
}

// New returns a new empty Store.
func New() *Store {
	return &Store{
		pages:         make(map[int64]*thing.Page),
		posts:         make(map[int64]*thing.Post),
		pats:          make(map[int64]*thing.Participant),
		cats:          make(map[int64]*thing.Category),
		tags:          make(map[int64]*thing.Tag),
		pageByRefID:   make(map[string]int64),
		pageByExtID:   make(map[string]int64),
		pageByEmbURL:  make(map[string]int64),
		patByUsername: make(map[string]int64),
		patByRefID:    make(map[string]int64),
		patByExtID:    make(map[string]int64),
		patBySSOID:    make(map[string]int64),
		catByRefID:    make(map[string]int64),
		catByExtID:    make(map[string]int64),
		tagByRefID:    make(map[string]int64),
		votes:         make(map[voteKey]bool),
		notfs:         make(map[notfKey]string),
	}
}

// ──────────────────────────────────────────────────
// Lifecycle — Migrate / Ping / Close
// ──────────────────────────────────────────────────

// Migrate is a no-op for the memory store.
func (m *Store) Migrate(_ context.Context) error { return nil }

// Ping always succeeds while the store is open.
func (m *Store) Ping(_ context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return taskapi.ErrStoreClosed
	}
	return nil
}

// Close marks the store closed. Further calls fail with ErrStoreClosed.
func (m *Store) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// ──────────────────────────────────────────────────
// get.Store — exact lookups by reference
// ──────────────────────────────────────────────────

// GetPage resolves a page by any page-addressing namespace.
func (m *Store) GetPage(_ context.Context, r ref.Ref) (*thing.Page, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, taskapi.ErrStoreClosed
	}
	p, ok := m.pageLocked(r)
	if !ok {
		return nil, taskapi.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

// GetPost resolves a post by its internal id.
func (m *Store) GetPost(_ context.Context, r ref.Ref) (*thing.Post, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, taskapi.ErrStoreClosed
	}
	p, ok := m.posts[r.Num]
	if !ok {
		return nil, taskapi.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

// GetParticipant resolves a member by any member-addressing namespace.
func (m *Store) GetParticipant(_ context.Context, r ref.Ref) (*thing.Participant, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, taskapi.ErrStoreClosed
	}
	p, ok := m.patLocked(r)
	if !ok {
		return nil, taskapi.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

// GetCategory resolves a category by id, refid or extid.
func (m *Store) GetCategory(_ context.Context, r ref.Ref) (*thing.Category, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, taskapi.ErrStoreClosed
	}
	c, ok := m.catLocked(r)
	if !ok {
		return nil, taskapi.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

// GetTag resolves a tag by its internal id.
func (m *Store) GetTag(_ context.Context, r ref.Ref) (*thing.Tag, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, taskapi.ErrStoreClosed
	}
	t, ok := m.tags[r.Num]
	if !ok {
		return nil, taskapi.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

// GetEvent resolves an activity-log event by its typeid.
func (m *Store) GetEvent(_ context.Context, r ref.Ref) (*thing.Event, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, taskapi.ErrStoreClosed
	}
	for _, ev := range m.events {
		if ev.ID == r.Key {
			cp := *ev
			return &cp, nil
		}
	}
	return nil, taskapi.ErrNotFound
}

// Resolution helpers. Callers hold the lock.

func (m *Store) pageLocked(r ref.Ref) (*thing.Page, bool) {
	switch r.Namespace {
	case ref.NsPageID:
		p, ok := m.pages[r.Num]
		return p, ok
	case ref.NsRefID:
		return m.pageByIndex(m.pageByRefID, r.Key)
	case ref.NsExtID:
		return m.pageByIndex(m.pageByExtID, r.Key)
	case ref.NsEmbURL:
		return m.pageByIndex(m.pageByEmbURL, r.Key)
	}
	return nil, false
}

func (m *Store) pageByIndex(idx map[string]int64, key string) (*thing.Page, bool) {
	id, ok := idx[key]
	if !ok {
		return nil, false
	}
	p, ok := m.pages[id]
	return p, ok
}

func (m *Store) patLocked(r ref.Ref) (*thing.Participant, bool) {
	var id int64
	var ok bool
	switch r.Namespace {
	case ref.NsPatID:
		id, ok = r.Num, true
	case ref.NsUsername:
		id, ok = m.patByUsername[r.Key]
	case ref.NsRefID:
		id, ok = m.patByRefID[r.Key]
	case ref.NsExtID:
		id, ok = m.patByExtID[r.Key]
	case ref.NsSSOID:
		id, ok = m.patBySSOID[r.Key]
	}
	if !ok {
		return nil, false
	}
	p, ok := m.pats[id]
	return p, ok
}

func (m *Store) catLocked(r ref.Ref) (*thing.Category, bool) {
	var id int64
	var ok bool
	switch r.Namespace {
	case ref.NsCatID:
		id, ok = r.Num, true
	case ref.NsRefID:
		id, ok = m.catByRefID[r.Key]
	case ref.NsExtID:
		id, ok = m.catByExtID[r.Key]
	}
	if !ok {
		return nil, false
	}
	c, ok := m.cats[id]
	return c, ok
}

// ──────────────────────────────────────────────────
// action.Store — mutations
// ──────────────────────────────────────────────────

// UpsertTagType creates a tag type keyed by refID, or relabels it if it
// already exists.
func (m *Store) UpsertTagType(_ context.Context, refID, label string) (*thing.Tag, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, taskapi.ErrStoreClosed
	}

	if id, ok := m.tagByRefID[refID]; ok {
		t := m.tags[id]
		t.Label = label
		t.UpdatedAt = time.Now().UTC()
		cp := *t
		return &cp, nil
	}

	m.nextTag++
	t := &thing.Tag{
		Entity: taskapi.NewEntity(),
		ID:     m.nextTag,
		Label:  label,
	}
	m.tags[t.ID] = t
	m.tagByRefID[refID] = t.ID
	cp := *t
	return &cp, nil
}

// CreatePage creates a page together with its body post (post nr 1).
func (m *Store) CreatePage(_ context.Context, np action.NewPage) (*thing.Page, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, taskapi.ErrStoreClosed
	}
	if np.RefID != "" {
		if _, taken := m.pageByRefID[np.RefID]; taken {
			return nil, fmt.Errorf("page refid %q already in use", np.RefID)
		}
	}

	m.nextPage++
	now := time.Now().UTC()
	p := &thing.Page{
		Entity:         taskapi.NewEntity(),
		ID:             m.nextPage,
		RefID:          np.RefID,
		Title:          np.Title,
		URLPath:        np.URLPath,
		Excerpt:        excerpt(np.BodyText),
		AuthorID:       np.AuthorID,
		CategoryID:     np.CategoryID,
		NumPostsTotal:  1,
		LastActivityAt: now,
	}
	if p.URLPath == "" {
		p.URLPath = fmt.Sprintf("/-%d", p.ID)
	}
	m.pages[p.ID] = p
	if np.RefID != "" {
		m.pageByRefID[np.RefID] = p.ID
	}
	if c, ok := m.cats[np.CategoryID]; ok {
		c.NumTopics++
	}

	// The page body is post nr 1.
	m.nextPost++
	body := &thing.Post{
		Entity:   taskapi.NewEntity(),
		ID:       m.nextPost,
		PageID:   p.ID,
		Nr:       1,
		AuthorID: np.AuthorID,
		BodyText: np.BodyText,
	}
	m.posts[body.ID] = body

	cp := *p
	return &cp, nil
}

// CreateComment appends a comment to a page and bumps its activity.
func (m *Store) CreateComment(_ context.Context, nc action.NewComment) (*thing.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, taskapi.ErrStoreClosed
	}
	page, ok := m.pages[nc.PageID]
	if !ok {
		return nil, taskapi.ErrNotFound
	}

	m.nextPost++
	post := &thing.Post{
		Entity:   taskapi.NewEntity(),
		ID:       m.nextPost,
		PageID:   page.ID,
		Nr:       page.NumPostsTotal + 1,
		AuthorID: nc.AuthorID,
		BodyText: nc.BodyText,
	}
	m.posts[post.ID] = post
	page.NumPostsTotal++
	page.LastActivityAt = time.Now().UTC()

	cp := *post
	return &cp, nil
}

// DeletePost marks a post deleted. Idempotent.
func (m *Store) DeletePost(_ context.Context, postID, _ int64, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return taskapi.ErrStoreClosed
	}
	post, ok := m.posts[postID]
	if !ok {
		return taskapi.ErrNotFound
	}
	post.Deleted = true
	post.UpdatedAt = time.Now().UTC()
	return nil
}

// SetVote sets or clears a Like vote on a page or post. Setting an
// already-set vote (or clearing an absent one) is a no-op.
func (m *Store) SetVote(_ context.Context, v action.Vote) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return taskapi.ErrStoreClosed
	}

	var subject string
	bump := func(delta int) {}
	switch {
	case v.PageID != 0:
		page, ok := m.pages[v.PageID]
		if !ok {
			return taskapi.ErrNotFound
		}
		subject = page.RefStr()
		bump = func(delta int) { page.NumLikes += delta }
	case v.PostID != 0:
		post, ok := m.posts[v.PostID]
		if !ok {
			return taskapi.ErrNotFound
		}
		subject = post.RefStr()
		bump = func(delta int) { post.NumLikes += delta }
	default:
		return fmt.Errorf("vote has no subject")
	}

	key := voteKey{patID: v.PatID, subject: subject}
	had := m.votes[key]
	switch {
	case v.Set && !had:
		m.votes[key] = true
		bump(1)
	case !v.Set && had:
		delete(m.votes, key)
		bump(-1)
	}
	return nil
}

// SetNotfLevel records a participant's notification level for a page.
func (m *Store) SetNotfLevel(_ context.Context, n action.NotfLevel) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return taskapi.ErrStoreClosed
	}
	if _, ok := m.pages[n.PageID]; !ok {
		return taskapi.ErrNotFound
	}
	m.notfs[notfKey{patID: n.PatID, pageID: n.PageID}] = n.Level
	return nil
}

// NotfLevel reports the stored notification level for a participant and
// page, or the empty string.
func (m *Store) NotfLevel(patID, pageID int64) string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.notfs[notfKey{patID: patID, pageID: pageID}]
}

// ──────────────────────────────────────────────────
// event.Store — activity log
// ──────────────────────────────────────────────────

// AppendEvent appends one activity-log event.
func (m *Store) AppendEvent(_ context.Context, ev *thing.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return taskapi.ErrStoreClosed
	}
	cp := *ev
	m.events = append(m.events, &cp)
	return nil
}

// excerpt returns the first sentence-ish of a page body for listings.
func excerpt(body string) string {
	const maxLen = 160
	if len(body) <= maxLen {
		return body
	}
	return body[:maxLen]
}
