// Package thing defines the entity variants a query can return — pages,
// posts, participants, categories, tags and events — together with the
// per-kind attribute schema and the field projection that reduces an
// internally complete record to the attributes a caller asked for.
package thing

import (
	"fmt"
	"strconv"
	"time"

	"github.com/quillboard/taskapi"
)

// Kind identifies one entity variant. The wire value is the plural form
// used by getWhat / listWhat / findWhat.
type Kind string

const (
	KindPages      Kind = "Pages"
	KindPosts      Kind = "Posts"
	KindMembers    Kind = "Members"
	KindCategories Kind = "Categories"
	KindTags       Kind = "Tags"
	KindEvents     Kind = "Events"
)

// ParseKind validates a wire kind value.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(s); k {
	case KindPages, KindPosts, KindMembers, KindCategories, KindTags, KindEvents:
		return k, nil
	}
	return "", fmt.Errorf("%w: unknown kind %q", taskapi.ErrDecode, s)
}

// Singular returns the kind tag carried by every projected item.
func (k Kind) Singular() string {
	switch k {
	case KindPages:
		return "Page"
	case KindPosts:
		return "Post"
	case KindMembers:
		return "Member"
	case KindCategories:
		return "Category"
	case KindTags:
		return "Tag"
	case KindEvents:
		return "Event"
	}
	return string(k)
}

// Thing is implemented by every entity variant. RefStr is the canonical
// reference of the entity, included in every projection as "id".
type Thing interface {
	ThingKind() Kind
	RefStr() string
}

// Page is one forum page (a topic with its posts).
type Page struct {
	taskapi.Entity

	ID             int64
	RefID          string
	ExtID          string
	EmbeddingURL   string
	Title          string
	URLPath        string
	Excerpt        string
	AuthorID       int64
	CategoryID     int64
	Tags           []string
	NumPostsTotal  int
	NumLikes       int
	LastActivityAt time.Time
	Deleted        bool
}

func (p *Page) ThingKind() Kind { return KindPages }
func (p *Page) RefStr() string  { return "pageid:" + strconv.FormatInt(p.ID, 10) }

// Post is one comment or reply on a page. BodyText is the author's source
// text; rendering to HTML happens elsewhere.
type Post struct {
	taskapi.Entity

	ID       int64
	PageID   int64
	Nr       int
	AuthorID int64
	BodyText string
	NumLikes int
	Deleted  bool
}

func (p *Post) ThingKind() Kind { return KindPosts }
func (p *Post) RefStr() string  { return "postid:" + strconv.FormatInt(p.ID, 10) }

// Participant is a forum member (or guest account).
type Participant struct {
	taskapi.Entity

	ID            int64
	Username      string
	FullName      string
	RefID         string
	ExtID         string
	SSOID         string
	TinyAvatarURL string
	IsStaff       bool
}

func (p *Participant) ThingKind() Kind { return KindMembers }
func (p *Participant) RefStr() string  { return "patid:" + strconv.FormatInt(p.ID, 10) }

// Category groups pages.
type Category struct {
	taskapi.Entity

	ID          int64
	RefID       string
	ExtID       string
	Name        string
	URLPath     string
	Description string
	NumTopics   int
}

func (c *Category) ThingKind() Kind { return KindCategories }
func (c *Category) RefStr() string  { return "catid:" + strconv.FormatInt(c.ID, 10) }

// Tag labels pages.
type Tag struct {
	taskapi.Entity

	ID      int64
	Label   string
	NumUses int
}

func (t *Tag) ThingKind() Kind { return KindTags }
func (t *Tag) RefStr() string  { return "tagid:" + strconv.FormatInt(t.ID, 10) }

// Event is one entry in the forum's activity log, appended whenever a
// mutating action succeeds.
type Event struct {
	taskapi.Entity

	ID         string // typeid, "evt_..."
	Type       string // e.g. "PageCreated", "VoteSet"
	ActorRef   string
	SubjectRef string
	At         time.Time
}

func (e *Event) ThingKind() Kind { return KindEvents }
func (e *Event) RefStr() string  { return "eventid:" + e.ID }
