// Package ref parses the opaque prefixed reference strings callers use to
// address forum entities, e.g. "pageid:110", "username:jane_doe" or
// "emburl:https://blog.example.com/post". A reference names an entity
// without exposing its internal storage key.
//
// Parsing is pure: it validates the lexical shape per namespace and never
// touches the backing store. Unknown prefixes always fail — they are never
// silently treated as some guessed namespace.
package ref

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/quillboard/taskapi"
)

// Namespace identifies the addressing scheme encoded in a reference.
type Namespace string

// Recognized reference namespaces.
const (
	NsPageID   Namespace = "pageid"   // internal page id, positive integer
	NsPostID   Namespace = "postid"   // internal post id, positive integer
	NsPatID    Namespace = "patid"    // internal participant id, positive integer
	NsCatID    Namespace = "catid"    // internal category id, positive integer
	NsTagID    Namespace = "tagid"    // internal tag id, positive integer
	NsEventID  Namespace = "eventid"  // activity-log event id ("evt_...")
	NsUsername Namespace = "username" // participant username
	NsRefID    Namespace = "refid"    // caller-assigned reference id
	NsExtID    Namespace = "extid"    // external system id, opaque
	NsSSOID    Namespace = "ssoid"    // single-sign-on id, opaque
	NsEmbURL   Namespace = "emburl"   // embedding page URL, absolute http(s)
)

// Ref is a parsed reference: a recognized namespace plus its key, already
// validated for that namespace's lexical shape. Numeric namespaces keep the
// parsed integer in Num.
type Ref struct {
	Namespace Namespace
	Key       string
	Num       int64
}

// String re-renders the reference in its wire form.
func (r Ref) String() string {
	return string(r.Namespace) + ":" + r.Key
}

// IsNumeric reports whether the namespace carries an integer key.
func (r Ref) IsNumeric() bool {
	switch r.Namespace {
	case NsPageID, NsPostID, NsPatID, NsCatID, NsTagID:
		return true
	}
	return false
}

// Parse splits raw into namespace and key and validates the key per
// namespace. All failures wrap taskapi.ErrInvalidRef.
func Parse(raw string) (Ref, error) {
	prefix, key, found := strings.Cut(raw, ":")
	if !found || prefix == "" || key == "" {
		return Ref{}, fmt.Errorf("%w: %q: want \"<prefix>:<key>\"", taskapi.ErrInvalidRef, raw)
	}

	ns := Namespace(prefix)
	switch ns {
	case NsPageID, NsPostID, NsPatID, NsCatID, NsTagID:
		n, err := strconv.ParseInt(key, 10, 64)
		if err != nil || n <= 0 {
			return Ref{}, fmt.Errorf("%w: %q: key must be a positive integer", taskapi.ErrInvalidRef, raw)
		}
		return Ref{Namespace: ns, Key: key, Num: n}, nil

	case NsUsername:
		if !validUsername(key) {
			return Ref{}, fmt.Errorf("%w: %q: bad username", taskapi.ErrInvalidRef, raw)
		}
		return Ref{Namespace: ns, Key: key}, nil

	case NsRefID, NsEventID:
		if !validIdentifier(key) {
			return Ref{}, fmt.Errorf("%w: %q: bad identifier", taskapi.ErrInvalidRef, raw)
		}
		return Ref{Namespace: ns, Key: key}, nil

	case NsExtID, NsSSOID:
		if len(key) > maxOpaqueKeyLen {
			return Ref{}, fmt.Errorf("%w: %q: key too long", taskapi.ErrInvalidRef, raw)
		}
		return Ref{Namespace: ns, Key: key}, nil

	case NsEmbURL:
		u, err := url.Parse(key)
		if err != nil || !u.IsAbs() || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return Ref{}, fmt.Errorf("%w: %q: key must be an absolute http(s) URL", taskapi.ErrInvalidRef, raw)
		}
		return Ref{Namespace: ns, Key: key}, nil

	default:
		return Ref{}, fmt.Errorf("%w: %q: unknown prefix %q", taskapi.ErrInvalidRef, raw, prefix)
	}
}

// MustParse is like Parse but panics on error. Use for hardcoded refs.
func MustParse(raw string) Ref {
	r, err := Parse(raw)
	if err != nil {
		panic(fmt.Sprintf("ref: must parse %q: %v", raw, err))
	}
	return r
}

// ParseAll parses every element of raws independently. Slot i of the error
// slice corresponds to raws[i]; a failed slot does not affect its siblings.
func ParseAll(raws []string) ([]Ref, []error) {
	refs := make([]Ref, len(raws))
	errs := make([]error, len(raws))
	for i, raw := range raws {
		refs[i], errs[i] = Parse(raw)
	}
	return refs, errs
}

const (
	maxUsernameLen  = 40
	maxOpaqueKeyLen = 200
)

func validUsername(s string) bool {
	if len(s) == 0 || len(s) > maxUsernameLen {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		case c == '_' || c == '.' || c == '-':
			// Separators must not lead or trail.
			if i == 0 || i == len(s)-1 {
				return false
			}
		default:
			return false
		}
	}
	return true
}

func validIdentifier(s string) bool {
	if len(s) == 0 || len(s) > maxOpaqueKeyLen {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		case c == '_' || c == '-':
		default:
			return false
		}
	}
	return true
}
