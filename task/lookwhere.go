package task

// LookWhere names the fields and relations a list filter or search query
// looks at. Each scope is either a flag or a list of refs. Which scopes are
// legal depends on the task kind; the decoder enforces the rules table.
type LookWhere struct {
	Usernames    bool     `json:"usernames,omitempty"`
	FullNames    bool     `json:"fullNames,omitempty"`
	TitleText    bool     `json:"titleText,omitempty"`
	PageText     bool     `json:"pageText,omitempty"`
	BodyText     bool     `json:"bodyText,omitempty"`
	InCategories []string `json:"inCategories,omitempty"`
	WithTags     []string `json:"withTags,omitempty"`
}

// IsZero reports whether no scope at all is set.
func (l LookWhere) IsZero() bool {
	return !l.Usernames && !l.FullNames && !l.TitleText && !l.PageText &&
		!l.BodyText && len(l.InCategories) == 0 && len(l.WithTags) == 0
}

// activeScopes lists the scope names that are set, for legality checks and
// error messages.
func (l LookWhere) activeScopes() []string {
	var scopes []string
	if l.Usernames {
		scopes = append(scopes, "usernames")
	}
	if l.FullNames {
		scopes = append(scopes, "fullNames")
	}
	if l.TitleText {
		scopes = append(scopes, "titleText")
	}
	if l.PageText {
		scopes = append(scopes, "pageText")
	}
	if l.BodyText {
		scopes = append(scopes, "bodyText")
	}
	if len(l.InCategories) > 0 {
		scopes = append(scopes, "inCategories")
	}
	if len(l.WithTags) > 0 {
		scopes = append(scopes, "withTags")
	}
	return scopes
}

// Filter narrows a listing beyond LookWhere scopes. Pointer fields
// distinguish "not filtered" from "filtered to false".
type Filter struct {
	IsOpen    *bool `json:"isOpen,omitempty"`    // Pages
	IsDeleted *bool `json:"isDeleted,omitempty"` // Pages, Posts
	IsStaff   *bool `json:"isStaff,omitempty"`   // Members
}

func (f Filter) activeFilters() []string {
	var names []string
	if f.IsOpen != nil {
		names = append(names, "isOpen")
	}
	if f.IsDeleted != nil {
		names = append(names, "isDeleted")
	}
	if f.IsStaff != nil {
		names = append(names, "isStaff")
	}
	return names
}
