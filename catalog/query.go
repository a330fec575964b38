package catalog

import (
	"slices"
	"strings"
)

// Sort selects the ordering of a listing.
type Sort string

const (
	// SortPopular orders by likes (or views) descending, newest first on ties.
	SortPopular Sort = "likes"
	// SortNew orders by creation time descending.
	SortNew Sort = "new"
)

// ParseSort maps a query-string value to a Sort. ok is false for unknown values.
func ParseSort(s string) (Sort, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "likes", "popular", "views":
		return SortPopular, true
	case "new", "newest", "recent":
		return SortNew, true
	}
	return "", false
}

// Query describes a filtered, sorted, paginated listing.
type Query struct {
	Search        string
	Tags          []string
	Sort          Sort
	Page          int
	PageSize      int
	PublishedOnly bool
}

// Page is one slice of a listing plus the total number of matches.
type Page[T any] struct {
	Items    []T `json:"items"`
	Page     int `json:"page"`
	PageSize int `json:"pageSize"`
	Total    int `json:"total"`
}

// ParseTags splits a comma-separated tag filter ("a, b,c") into normalized tags.
func ParseTags(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return NormalizeTags(strings.Split(s, ","))
}

// SearchTerm returns the lower-cased, trimmed search term.
func (q Query) SearchTerm() string {
	return strings.ToLower(strings.TrimSpace(q.Search))
}

// RequiredTags returns the normalized tag filter.
func (q Query) RequiredTags() []string {
	return NormalizeTags(q.Tags)
}

// Offset returns the index of the first item on the requested page, or -1
// when the page or page size is not positive.
func (q Query) Offset() int {
	if q.Page < 1 || q.PageSize < 1 {
		return -1
	}
	return (q.Page - 1) * q.PageSize
}

// Run filters, sorts and paginates items. The input slice is not modified.
func Run[T Record](items []T, q Query) Page[T] {
	filtered := Filter(items, q)
	SortRecords(filtered, q.Sort)
	return Paginate(filtered, q)
}

// Filter returns the items matching the search term, the tag filter and
// the visibility flag, in input order.
func Filter[T Record](items []T, q Query) []T {
	term := q.SearchTerm()
	required := q.RequiredTags()
	out := make([]T, 0, len(items))
	for _, it := range items {
		if q.PublishedOnly && !it.Visible() {
			continue
		}
		if term != "" && !matchesSearch(it, term) {
			continue
		}
		if len(required) > 0 && !hasAllTags(it, required) {
			continue
		}
		out = append(out, it)
	}
	return out
}

// SortRecords sorts items in place.
func SortRecords[T Record](items []T, mode Sort) {
	if mode == SortNew {
		slices.SortStableFunc(items, func(a, b T) int {
			return b.Created().Compare(a.Created())
		})
		return
	}
	slices.SortStableFunc(items, func(a, b T) int {
		if a.Popularity() != b.Popularity() {
			return b.Popularity() - a.Popularity()
		}
		return b.Created().Compare(a.Created())
	})
}

// Paginate slices an already filtered and sorted list.
func Paginate[T any](items []T, q Query) Page[T] {
	p := Page[T]{Items: []T{}, Page: q.Page, PageSize: q.PageSize, Total: len(items)}
	start := q.Offset()
	if start < 0 || start >= len(items) {
		return p
	}
	end := min(start+q.PageSize, len(items))
	p.Items = append(p.Items, items[start:end]...)
	return p
}

func matchesSearch(r Record, term string) bool {
	for _, field := range r.SearchText() {
		if strings.Contains(strings.ToLower(field), term) {
			return true
		}
	}
	return false
}

func hasAllTags(r Record, required []string) bool {
	have := tagSet(r.TagList())
	for _, t := range required {
		if _, ok := have[t]; !ok {
			return false
		}
	}
	return true
}

func tagSet(tags []string) map[string]struct{} {
	set := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		if t = normalizeTag(t); t != "" {
			set[t] = struct{}{}
		}
	}
	return set
}
