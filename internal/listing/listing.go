// Package listing provides the filter, pagination and action-result contract shared by the
// admin list screens.
package listing

import (
	"strconv"
	"strings"
	"time"
)

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// Predicate reports whether an item is kept.
type Predicate[T any] func(T) bool

// All combines predicates with AND. Nil predicates are skipped; no predicates keep everything.
func All[T any](preds ...Predicate[T]) Predicate[T] {
	active := make([]Predicate[T], 0, len(preds))
	for _, p := range preds {
		if p != nil {
			active = append(active, p)
		}
	}
	return func(item T) bool {
		for _, p := range active {
			if !p(item) {
				return false
			}
		}
		return true
	}
}

// Filter returns the items matching pred in their original order.
func Filter[T any](items []T, pred Predicate[T]) []T {
	out := make([]T, 0, len(items))
	for _, item := range items {
		if pred == nil || pred(item) {
			out = append(out, item)
		}
	}
	return out
}

// Page is one slice of a filtered list.
type Page[T any] struct {
	Items      []T `json:"items"`
	Page       int `json:"page"`
	PageSize   int `json:"pageSize"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

// Paginate slices items for the 1-based page. Pages past the end are empty.
func Paginate[T any](items []T, page, size int) Page[T] {
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = DefaultPageSize
	}
	if size > MaxPageSize {
		size = MaxPageSize
	}
	total := len(items)
	totalPages := (total + size - 1) / size

	start := (page - 1) * size
	if start > total {
		start = total
	}
	end := start + size
	if end > total {
		end = total
	}
	pageItems := make([]T, end-start)
	copy(pageItems, items[start:end])
	return Page[T]{
		Items:      pageItems,
		Page:       page,
		PageSize:   size,
		Total:      total,
		TotalPages: totalPages,
	}
}

// PageParams is the page request of a list screen.
type PageParams struct {
	Page     int
	PageSize int
}

// ParsePageParams reads page and page_size, falling back to defaultSize.
func ParsePageParams(page, pageSize string, defaultSize int) PageParams {
	params := PageParams{Page: 1, PageSize: defaultSize}
	if v, err := strconv.Atoi(strings.TrimSpace(page)); err == nil && v > 0 {
		params.Page = v
	}
	if v, err := strconv.Atoi(strings.TrimSpace(pageSize)); err == nil && v > 0 {
		params.PageSize = v
	}
	if params.PageSize < 1 {
		params.PageSize = DefaultPageSize
	}
	return params
}

// ContainsFold reports whether any field contains needle, ignoring case. Empty needles match.
func ContainsFold(needle string, fields ...string) bool {
	needle = strings.ToLower(strings.TrimSpace(needle))
	if needle == "" {
		return true
	}
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), needle) {
			return true
		}
	}
	return false
}

// DateRange is an inclusive time window; zero bounds are open.
type DateRange struct {
	From time.Time
	To   time.Time
}

// Contains reports whether t falls inside r.
func (r DateRange) Contains(t time.Time) bool {
	if !r.From.IsZero() && t.Before(r.From) {
		return false
	}
	if !r.To.IsZero() && t.After(r.To) {
		return false
	}
	return true
}

// ParseDate accepts RFC 3339 timestamps or YYYY-MM-DD dates.
func ParseDate(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.UTC(), true
	}
	if t, err := time.Parse(time.DateOnly, raw); err == nil {
		return t.UTC(), true
	}
	return time.Time{}, false
}

// ParseDateRange builds a range from optional from/to values. A date-only upper bound covers the whole day.
func ParseDateRange(from, to string) DateRange {
	var r DateRange
	if t, ok := ParseDate(from); ok {
		r.From = t
	}
	if t, ok := ParseDate(to); ok {
		if _, errDate := time.Parse(time.DateOnly, strings.TrimSpace(to)); errDate == nil {
			t = t.Add(24*time.Hour - time.Nanosecond)
		}
		r.To = t
	}
	return r
}
