package task

import (
	"fmt"

	"github.com/quillboard/taskapi"
	"github.com/quillboard/taskapi/thing"
)

// SortOrder selects the listing order. Every order has a deterministic
// tie-break on entity id, so repeated identical queries against unchanged
// data return byte-identical ordering.
type SortOrder string

const (
	SortNewestFirst         SortOrder = "NewestFirst"
	SortOldestFirst         SortOrder = "OldestFirst"
	SortPopularFirst        SortOrder = "PopularFirst"
	SortActivityRecentFirst SortOrder = "ActivityRecentFirst"
)

// kindRule is one row of the per-kind legality table for list tasks:
// which lookWhere scopes have a supporting index, which sort orders and
// filters are declared for the kind, and which scope exactPrefix rides on.
// A scope without a supporting index is rejected at decode time rather than
// silently falling back to a full scan.
type kindRule struct {
	scopes      map[string]bool
	sorts       map[SortOrder]bool
	filters     map[string]bool
	defaultSort SortOrder

	// prefixScope is the lookWhere scope that must be enabled for
	// exactPrefix to be satisfiable as a bounded index range scan.
	// Empty means exactPrefix is illegal for the kind.
	prefixScope string
}

var listRules = map[thing.Kind]kindRule{
	thing.KindPages: {
		scopes: map[string]bool{"inCategories": true, "withTags": true},
		sorts: map[SortOrder]bool{
			SortNewestFirst: true, SortOldestFirst: true,
			SortPopularFirst: true, SortActivityRecentFirst: true,
		},
		filters:     map[string]bool{"isOpen": true, "isDeleted": true},
		defaultSort: SortActivityRecentFirst,
	},
	thing.KindPosts: {
		scopes: map[string]bool{"inCategories": true},
		sorts: map[SortOrder]bool{
			SortNewestFirst: true, SortOldestFirst: true, SortPopularFirst: true,
		},
		filters:     map[string]bool{"isDeleted": true},
		defaultSort: SortNewestFirst,
	},
	thing.KindMembers: {
		scopes: map[string]bool{"usernames": true, "fullNames": true},
		sorts: map[SortOrder]bool{
			SortNewestFirst: true, SortOldestFirst: true,
		},
		filters:     map[string]bool{"isStaff": true},
		defaultSort: SortNewestFirst,
		prefixScope: "usernames",
	},
	thing.KindCategories: {
		scopes:      map[string]bool{},
		sorts:       map[SortOrder]bool{SortNewestFirst: true, SortOldestFirst: true},
		filters:     map[string]bool{},
		defaultSort: SortOldestFirst,
	},
	thing.KindTags: {
		scopes:      map[string]bool{},
		sorts:       map[SortOrder]bool{SortNewestFirst: true, SortOldestFirst: true},
		filters:     map[string]bool{},
		defaultSort: SortNewestFirst,
	},
	thing.KindEvents: {
		scopes:      map[string]bool{},
		sorts:       map[SortOrder]bool{SortNewestFirst: true, SortOldestFirst: true},
		filters:     map[string]bool{},
		defaultSort: SortNewestFirst,
	},
}

// searchRules lists the lookWhere scopes the external index supports per
// findWhat kind. Search has no sort orders: ranking belongs to the index.
var searchRules = map[thing.Kind]map[string]bool{
	thing.KindPages: {
		"pageText": true, "titleText": true,
		"inCategories": true, "withTags": true,
	},
	thing.KindPosts: {
		"bodyText": true, "inCategories": true,
	},
}

// checkListRules validates a decoded list task against the legality table.
func checkListRules(t *ListTask) error {
	rule, ok := listRules[t.What]
	if !ok {
		return fmt.Errorf("%w: cannot list %s", taskapi.ErrDecode, t.What)
	}

	for _, scope := range t.Look.activeScopes() {
		if !rule.scopes[scope] {
			return fmt.Errorf("%w: listWhat %s has no index for lookWhere scope %q",
				taskapi.ErrDecode, t.What, scope)
		}
	}
	for _, name := range t.Filter.activeFilters() {
		if !rule.filters[name] {
			return fmt.Errorf("%w: filter %q is not legal for listWhat %s",
				taskapi.ErrDecode, name, t.What)
		}
	}

	if t.Sort == "" {
		t.Sort = rule.defaultSort
	} else if !rule.sorts[t.Sort] {
		return fmt.Errorf("%w: sortOrder %q is not legal for listWhat %s",
			taskapi.ErrDecode, t.Sort, t.What)
	}

	if t.ExactPrefix != "" {
		if rule.prefixScope == "" {
			return fmt.Errorf("%w: exactPrefix is not supported for listWhat %s",
				taskapi.ErrDecode, t.What)
		}
		if !scopeEnabled(t.Look, rule.prefixScope) {
			return fmt.Errorf("%w: exactPrefix for listWhat %s requires lookWhere scope %q",
				taskapi.ErrDecode, t.What, rule.prefixScope)
		}
	}
	return nil
}

// checkSearchRules validates a decoded search task.
func checkSearchRules(t *SearchTask) error {
	scopes, ok := searchRules[t.What]
	if !ok {
		return fmt.Errorf("%w: cannot search %s", taskapi.ErrDecode, t.What)
	}
	for _, scope := range t.Look.activeScopes() {
		if !scopes[scope] {
			return fmt.Errorf("%w: findWhat %s does not support lookWhere scope %q",
				taskapi.ErrDecode, t.What, scope)
		}
	}
	return nil
}

func scopeEnabled(l LookWhere, scope string) bool {
	switch scope {
	case "usernames":
		return l.Usernames
	case "fullNames":
		return l.FullNames
	case "titleText":
		return l.TitleText
	case "pageText":
		return l.PageText
	case "bodyText":
		return l.BodyText
	}
	return false
}

// DefaultSort returns the default sort order for kind, for cursor building.
func DefaultSort(kind thing.Kind) SortOrder {
	return listRules[kind].defaultSort
}
