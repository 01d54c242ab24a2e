package memory

import (
	"github.com/quillboard/taskapi"
	"github.com/quillboard/taskapi/thing"
)

// Seed helpers insert fixture data directly, bypassing the action layer.
// Each assigns an id when the given one is zero, indexes the secondary
// keys, and returns a copy of the stored record.

// AddCategory inserts a category.
func (m *Store) AddCategory(c thing.Category) *thing.Category {
	m.mu.Lock()
	defer m.mu.Unlock()

	if c.ID == 0 {
		m.nextCat++
		c.ID = m.nextCat
	} else if c.ID > m.nextCat {
		m.nextCat = c.ID
	}
	if c.CreatedAt.IsZero() {
		c.Entity = taskapi.NewEntity()
	}
	m.cats[c.ID] = &c
	if c.RefID != "" {
		m.catByRefID[c.RefID] = c.ID
	}
	if c.ExtID != "" {
		m.catByExtID[c.ExtID] = c.ID
	}
	cp := c
	return &cp
}

// AddParticipant inserts a member.
func (m *Store) AddParticipant(p thing.Participant) *thing.Participant {
	m.mu.Lock()
	defer m.mu.Unlock()

	if p.ID == 0 {
		m.nextPat++
		p.ID = m.nextPat
	} else if p.ID > m.nextPat {
		m.nextPat = p.ID
	}
	if p.CreatedAt.IsZero() {
		p.Entity = taskapi.NewEntity()
	}
	m.pats[p.ID] = &p
	if p.Username != "" {
		m.patByUsername[p.Username] = p.ID
	}
	if p.RefID != "" {
		m.patByRefID[p.RefID] = p.ID
	}
	if p.ExtID != "" {
		m.patByExtID[p.ExtID] = p.ID
	}
	if p.SSOID != "" {
		m.patBySSOID[p.SSOID] = p.ID
	}
	cp := p
	return &cp
}

// AddPage inserts a page without creating a body post.
func (m *Store) AddPage(p thing.Page) *thing.Page {
	m.mu.Lock()
	defer m.mu.Unlock()

	if p.ID == 0 {
		m.nextPage++
		p.ID = m.nextPage
	} else if p.ID > m.nextPage {
		m.nextPage = p.ID
	}
	if p.CreatedAt.IsZero() {
		p.Entity = taskapi.NewEntity()
	}
	if p.LastActivityAt.IsZero() {
		p.LastActivityAt = p.CreatedAt
	}
	m.pages[p.ID] = &p
	if p.RefID != "" {
		m.pageByRefID[p.RefID] = p.ID
	}
	if p.ExtID != "" {
		m.pageByExtID[p.ExtID] = p.ID
	}
	if p.EmbeddingURL != "" {
		m.pageByEmbURL[p.EmbeddingURL] = p.ID
	}
	cp := p
	return &cp
}

// AddPost inserts a post.
func (m *Store) AddPost(p thing.Post) *thing.Post {
	m.mu.Lock()
	defer m.mu.Unlock()

	if p.ID == 0 {
		m.nextPost++
		p.ID = m.nextPost
	} else if p.ID > m.nextPost {
		m.nextPost = p.ID
	}
	if p.CreatedAt.IsZero() {
		p.Entity = taskapi.NewEntity()
	}
	m.posts[p.ID] = &p
	cp := p
	return &cp
}

// AddTag inserts a tag type.
func (m *Store) AddTag(t thing.Tag) *thing.Tag {
	m.mu.Lock()
	defer m.mu.Unlock()

	if t.ID == 0 {
		m.nextTag++
		t.ID = m.nextTag
	} else if t.ID > m.nextTag {
		m.nextTag = t.ID
	}
	if t.CreatedAt.IsZero() {
		t.Entity = taskapi.NewEntity()
	}
	m.tags[t.ID] = &t
	cp := t
	return &cp
}
