package sqlite

import (
	"encoding/json"
	"time"

	"github.com/xraph/grove"

	"github.com/quillboard/taskapi"
	"github.com/quillboard/taskapi/thing"
)

// ── Page model ────────────────────────────────────────────────────

type pageModel struct {
	grove.BaseModel `grove:"table:taskapi_pages"`

	ID             int64     `grove:"id,pk"`
	RefID          string    `grove:"ref_id"`
	ExtID          string    `grove:"ext_id"`
	EmbeddingURL   string    `grove:"embedding_url"`
	Title          string    `grove:"title,notnull"`
	URLPath        string    `grove:"url_path"`
	Excerpt        string    `grove:"excerpt"`
	AuthorID       int64     `grove:"author_id,notnull"`
	CategoryID     int64     `grove:"category_id,notnull"`
	Tags           string    `grove:"tags,notnull,default:'[]'"`
	NumPostsTotal  int       `grove:"num_posts_total,notnull,default:0"`
	NumLikes       int       `grove:"num_likes,notnull,default:0"`
	LastActivityAt time.Time `grove:"last_activity_at,notnull"`
	Deleted        bool      `grove:"deleted,notnull,default:false"`
	CreatedAt      time.Time `grove:"created_at,notnull"`
	UpdatedAt      time.Time `grove:"updated_at,notnull"`
}

func toPageModel(p *thing.Page) *pageModel {
	tags, _ := json.Marshal(p.Tags) //nolint:errcheck // string slice cannot fail
	if p.Tags == nil {
		tags = []byte("[]")
	}
	return &pageModel{
		ID:             p.ID,
		RefID:          p.RefID,
		ExtID:          p.ExtID,
		EmbeddingURL:   p.EmbeddingURL,
		Title:          p.Title,
		URLPath:        p.URLPath,
		Excerpt:        p.Excerpt,
		AuthorID:       p.AuthorID,
		CategoryID:     p.CategoryID,
		Tags:           string(tags),
		NumPostsTotal:  p.NumPostsTotal,
		NumLikes:       p.NumLikes,
		LastActivityAt: p.LastActivityAt,
		Deleted:        p.Deleted,
		CreatedAt:      p.CreatedAt,
		UpdatedAt:      p.UpdatedAt,
	}
}

func fromPageModel(m *pageModel) *thing.Page {
	var tags []string
	_ = json.Unmarshal([]byte(m.Tags), &tags) //nolint:errcheck // written by toPageModel
	return &thing.Page{
		Entity:         taskapi.Entity{CreatedAt: m.CreatedAt, UpdatedAt: m.UpdatedAt},
		ID:             m.ID,
		RefID:          m.RefID,
		ExtID:          m.ExtID,
		EmbeddingURL:   m.EmbeddingURL,
		Title:          m.Title,
		URLPath:        m.URLPath,
		Excerpt:        m.Excerpt,
		AuthorID:       m.AuthorID,
		CategoryID:     m.CategoryID,
		Tags:           tags,
		NumPostsTotal:  m.NumPostsTotal,
		NumLikes:       m.NumLikes,
		LastActivityAt: m.LastActivityAt,
		Deleted:        m.Deleted,
	}
}

// ── Post model ────────────────────────────────────────────────────

type postModel struct {
	grove.BaseModel `grove:"table:taskapi_posts"`

	ID        int64     `grove:"id,pk"`
	PageID    int64     `grove:"page_id,notnull"`
	Nr        int       `grove:"nr,notnull"`
	AuthorID  int64     `grove:"author_id,notnull"`
	BodyText  string    `grove:"body_text,notnull"`
	NumLikes  int       `grove:"num_likes,notnull,default:0"`
	Deleted   bool      `grove:"deleted,notnull,default:false"`
	CreatedAt time.Time `grove:"created_at,notnull"`
	UpdatedAt time.Time `grove:"updated_at,notnull"`
}

func toPostModel(p *thing.Post) *postModel {
	return &postModel{
		ID:        p.ID,
		PageID:    p.PageID,
		Nr:        p.Nr,
		AuthorID:  p.AuthorID,
		BodyText:  p.BodyText,
		NumLikes:  p.NumLikes,
		Deleted:   p.Deleted,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
}

func fromPostModel(m *postModel) *thing.Post {
	return &thing.Post{
		Entity:   taskapi.Entity{CreatedAt: m.CreatedAt, UpdatedAt: m.UpdatedAt},
		ID:       m.ID,
		PageID:   m.PageID,
		Nr:       m.Nr,
		AuthorID: m.AuthorID,
		BodyText: m.BodyText,
		NumLikes: m.NumLikes,
		Deleted:  m.Deleted,
	}
}

// ── Participant model ─────────────────────────────────────────────

type participantModel struct {
	grove.BaseModel `grove:"table:taskapi_participants"`

	ID            int64     `grove:"id,pk"`
	Username      string    `grove:"username,notnull"`
	FullName      string    `grove:"full_name"`
	RefID         string    `grove:"ref_id"`
	ExtID         string    `grove:"ext_id"`
	SSOID         string    `grove:"sso_id"`
	TinyAvatarURL string    `grove:"tiny_avatar_url"`
	IsStaff       bool      `grove:"is_staff,notnull,default:false"`
	CreatedAt     time.Time `grove:"created_at,notnull"`
	UpdatedAt     time.Time `grove:"updated_at,notnull"`
}

func fromParticipantModel(m *participantModel) *thing.Participant {
	return &thing.Participant{
		Entity:        taskapi.Entity{CreatedAt: m.CreatedAt, UpdatedAt: m.UpdatedAt},
		ID:            m.ID,
		Username:      m.Username,
		FullName:      m.FullName,
		RefID:         m.RefID,
		ExtID:         m.ExtID,
		SSOID:         m.SSOID,
		TinyAvatarURL: m.TinyAvatarURL,
		IsStaff:       m.IsStaff,
	}
}

// ── Category model ────────────────────────────────────────────────

type categoryModel struct {
	grove.BaseModel `grove:"table:taskapi_categories"`

	ID          int64     `grove:"id,pk"`
	RefID       string    `grove:"ref_id"`
	ExtID       string    `grove:"ext_id"`
	Name        string    `grove:"name,notnull"`
	URLPath     string    `grove:"url_path"`
	Description string    `grove:"description"`
	NumTopics   int       `grove:"num_topics,notnull,default:0"`
	CreatedAt   time.Time `grove:"created_at,notnull"`
	UpdatedAt   time.Time `grove:"updated_at,notnull"`
}

func fromCategoryModel(m *categoryModel) *thing.Category {
	return &thing.Category{
		Entity:      taskapi.Entity{CreatedAt: m.CreatedAt, UpdatedAt: m.UpdatedAt},
		ID:          m.ID,
		RefID:       m.RefID,
		ExtID:       m.ExtID,
		Name:        m.Name,
		URLPath:     m.URLPath,
		Description: m.Description,
		NumTopics:   m.NumTopics,
	}
}

// ── Tag model ─────────────────────────────────────────────────────

type tagModel struct {
	grove.BaseModel `grove:"table:taskapi_tags"`

	ID        int64     `grove:"id,pk"`
	RefID     string    `grove:"ref_id"`
	Label     string    `grove:"label,notnull"`
	NumUses   int       `grove:"num_uses,notnull,default:0"`
	CreatedAt time.Time `grove:"created_at,notnull"`
	UpdatedAt time.Time `grove:"updated_at,notnull"`
}

func fromTagModel(m *tagModel) *thing.Tag {
	return &thing.Tag{
		Entity:  taskapi.Entity{CreatedAt: m.CreatedAt, UpdatedAt: m.UpdatedAt},
		ID:      m.ID,
		Label:   m.Label,
		NumUses: m.NumUses,
	}
}

// ── Event model ───────────────────────────────────────────────────

type eventModel struct {
	grove.BaseModel `grove:"table:taskapi_events"`

	ID         string    `grove:"id,pk"`
	EventType  string    `grove:"event_type,notnull"`
	ActorRef   string    `grove:"actor_ref,notnull"`
	SubjectRef string    `grove:"subject_ref,notnull"`
	At         time.Time `grove:"at,notnull"`
	CreatedAt  time.Time `grove:"created_at,notnull"`
	UpdatedAt  time.Time `grove:"updated_at,notnull"`
}

func toEventModel(ev *thing.Event) *eventModel {
	return &eventModel{
		ID:         ev.ID,
		EventType:  ev.Type,
		ActorRef:   ev.ActorRef,
		SubjectRef: ev.SubjectRef,
		At:         ev.At,
		CreatedAt:  ev.CreatedAt,
		UpdatedAt:  ev.UpdatedAt,
	}
}

func fromEventModel(m *eventModel) *thing.Event {
	return &thing.Event{
		Entity:     taskapi.Entity{CreatedAt: m.CreatedAt, UpdatedAt: m.UpdatedAt},
		ID:         m.ID,
		Type:       m.EventType,
		ActorRef:   m.ActorRef,
		SubjectRef: m.SubjectRef,
		At:         m.At,
	}
}

// ── Per-participant state models ──────────────────────────────────

// voteModel keys on "<patID>|<subjectRef>" so a duplicate vote trips the
// primary key instead of needing a read-before-write.
type voteModel struct {
	grove.BaseModel `grove:"table:taskapi_votes"`

	ID        string    `grove:"id,pk"`
	PatID     int64     `grove:"pat_id,notnull"`
	Subject   string    `grove:"subject,notnull"`
	CreatedAt time.Time `grove:"created_at,notnull"`
	UpdatedAt time.Time `grove:"updated_at,notnull"`
}

type notfPrefModel struct {
	grove.BaseModel `grove:"table:taskapi_notf_prefs"`

	ID        string    `grove:"id,pk"`
	PatID     int64     `grove:"pat_id,notnull"`
	PageID    int64     `grove:"page_id,notnull"`
	Level     string    `grove:"level,notnull"`
	CreatedAt time.Time `grove:"created_at,notnull"`
	UpdatedAt time.Time `grove:"updated_at,notnull"`
}
