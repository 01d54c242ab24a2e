package thing

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/quillboard/taskapi"
)

// InclusionSpec maps optional attribute names to an include flag. Unknown
// attribute names for the requested kind are rejected at decode time, not
// silently ignored.
type InclusionSpec map[string]bool

// getter extracts one optional attribute from an entity of the schema's
// kind. The value is included whenever the flag is true, even when empty,
// so callers can tell "not requested" from "requested but empty".
type getter func(t Thing) any

// schemas is the runtime registry mapping each kind to its legal optional
// attribute set. Inclusion flags arrive as untyped request input, so
// legality is checked here at decode time rather than in the type system.
var schemas = map[Kind]map[string]getter{
	KindPages: {
		"title":          func(t Thing) any { return t.(*Page).Title },
		"urlPath":        func(t Thing) any { return t.(*Page).URLPath },
		"excerpt":        func(t Thing) any { return t.(*Page).Excerpt },
		"authorRef":      func(t Thing) any { return patRef(t.(*Page).AuthorID) },
		"categoryRef":    func(t Thing) any { return catRef(t.(*Page).CategoryID) },
		"tags":           func(t Thing) any { return append([]string{}, t.(*Page).Tags...) },
		"numPostsTotal":  func(t Thing) any { return t.(*Page).NumPostsTotal },
		"numLikes":       func(t Thing) any { return t.(*Page).NumLikes },
		"createdAtMs":    func(t Thing) any { return t.(*Page).CreatedAt.UnixMilli() },
		"lastActivityAtMs": func(t Thing) any {
			return t.(*Page).LastActivityAt.UnixMilli()
		},
	},
	KindPosts: {
		"pageRef":     func(t Thing) any { return pageRef(t.(*Post).PageID) },
		"nr":          func(t Thing) any { return t.(*Post).Nr },
		"authorRef":   func(t Thing) any { return patRef(t.(*Post).AuthorID) },
		"bodyText":    func(t Thing) any { return t.(*Post).BodyText },
		"numLikes":    func(t Thing) any { return t.(*Post).NumLikes },
		"createdAtMs": func(t Thing) any { return t.(*Post).CreatedAt.UnixMilli() },
	},
	KindMembers: {
		"username":      func(t Thing) any { return t.(*Participant).Username },
		"fullName":      func(t Thing) any { return t.(*Participant).FullName },
		"tinyAvatarUrl": func(t Thing) any { return t.(*Participant).TinyAvatarURL },
		"isStaff":       func(t Thing) any { return t.(*Participant).IsStaff },
		"createdAtMs":   func(t Thing) any { return t.(*Participant).CreatedAt.UnixMilli() },
	},
	KindCategories: {
		"name":        func(t Thing) any { return t.(*Category).Name },
		"urlPath":     func(t Thing) any { return t.(*Category).URLPath },
		"description": func(t Thing) any { return t.(*Category).Description },
		"numTopics":   func(t Thing) any { return t.(*Category).NumTopics },
	},
	KindTags: {
		"label":   func(t Thing) any { return t.(*Tag).Label },
		"numUses": func(t Thing) any { return t.(*Tag).NumUses },
	},
	KindEvents: {
		"eventType":  func(t Thing) any { return t.(*Event).Type },
		"actorRef":   func(t Thing) any { return t.(*Event).ActorRef },
		"subjectRef": func(t Thing) any { return t.(*Event).SubjectRef },
		"atMs":       func(t Thing) any { return t.(*Event).At.UnixMilli() },
	},
}

// LegalAttrs returns the sorted optional attribute names for kind.
func LegalAttrs(kind Kind) []string {
	attrs := schemas[kind]
	names := make([]string, 0, len(attrs))
	for name := range attrs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// CheckInclusionSpec rejects attribute names that are not legal for kind.
// Flags set to false are still checked: a misspelled name is a caller bug
// either way.
func CheckInclusionSpec(kind Kind, spec InclusionSpec) error {
	attrs, ok := schemas[kind]
	if !ok {
		return fmt.Errorf("%w: unknown kind %q", taskapi.ErrDecode, kind)
	}
	for name := range spec {
		if _, legal := attrs[name]; !legal {
			return fmt.Errorf("%w: kind %s has no attribute %q (legal: %v)",
				taskapi.ErrDecode, kind, name, LegalAttrs(kind))
		}
	}
	return nil
}

// DefaultInclusion returns the attribute set included when a task carries
// no inclusion spec: every legal attribute for the kind.
func DefaultInclusion(kind Kind) InclusionSpec {
	attrs := schemas[kind]
	spec := make(InclusionSpec, len(attrs))
	for name := range attrs {
		spec[name] = true
	}
	return spec
}

// Project reduces t to the caller-requested attribute set. The mandatory
// "kind" and "id" fields are always present; each optional attribute only
// when its flag is true. Unrequested attributes are wholly absent, never
// present-with-null.
func Project(t Thing, spec InclusionSpec) map[string]any {
	kind := t.ThingKind()
	out := map[string]any{
		"kind": kind.Singular(),
		"id":   t.RefStr(),
	}
	attrs := schemas[kind]
	for name, include := range spec {
		if !include {
			continue
		}
		get, ok := attrs[name]
		if !ok {
			continue // decoder already rejected unknown names
		}
		out[name] = get(t)
	}
	return out
}

func pageRef(id int64) string { return "pageid:" + strconv.FormatInt(id, 10) }
func patRef(id int64) string  { return "patid:" + strconv.FormatInt(id, 10) }
func catRef(id int64) string  { return "catid:" + strconv.FormatInt(id, 10) }
