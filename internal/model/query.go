package model

import "github.com/gofrs/uuid/v5"

// Filter restricts listed items by attribute. Empty slices match everything;
// several values of one attribute match any of them.
type Filter struct {
	Statuses    []Status
	Identifiers []string
	Sources     []string
}

// Empty reports whether f matches every item.
func (f Filter) Empty() bool {
	return len(f.Statuses) == 0 && len(f.Identifiers) == 0 && len(f.Sources) == 0
}

// Match reports whether it passes f.
func (f Filter) Match(it Item) bool {
	return matchAny(f.Statuses, it.Status) &&
		matchAny(f.Identifiers, it.Identifier) &&
		matchAny(f.Sources, it.Source)
}

func matchAny[T comparable](set []T, v T) bool {
	if len(set) == 0 {
		return true
	}
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}

// ListQuery is an OrderedListView request.
type ListQuery struct {
	Filter   Filter
	AfterID  *uuid.UUID // cursor: only items strictly after this one
	Page     int        // 1-based; 0 means 1
	PageSize int        // 0 means the default; clamped to the maximum
}

// PageMeta describes the pagination envelope of a list result.
type PageMeta struct {
	TotalCount  int
	TotalPages  int
	CurrentPage int
	PageSize    int
}

// Page is one slice of the ordered list.
type Page struct {
	Items []Item
	Meta  PageMeta
}
