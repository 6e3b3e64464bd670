package models

import "strings"

const (
	// DefaultPageSize is used when the caller does not ask for a page size.
	DefaultPageSize = 20
	// MaxPageSize caps the number of tools returned in one page.
	MaxPageSize = 100
)

// SortOrder is the direction of a listing.
type SortOrder string

const (
	Asc  SortOrder = "asc"
	Desc SortOrder = "desc"
)

// ParseSortOrder returns Asc only for a case-insensitive "asc"; anything
// else, including an empty value, is Desc.
func ParseSortOrder(s string) SortOrder {
	if strings.EqualFold(strings.TrimSpace(s), string(Asc)) {
		return Asc
	}
	return Desc
}

// ToolFilter holds the optional predicates of a tool search. Nil or empty
// fields are not applied.
type ToolFilter struct {
	Department *Department
	Status     *Status
	MinCost    *float64
	MaxCost    *float64
	// Category matches on the category name, not its id.
	Category *string
}

// ToolQuery describes one page of a filtered tool listing.
type ToolQuery struct {
	Filter ToolFilter
	Limit  int
	Offset int
	// SortKey is one of name, monthly_cost or created_at. Other values fall
	// back to id ordering.
	SortKey string
	Order   SortOrder
}

// Normalize clamps the limit to [1, MaxPageSize], the offset to >= 0 and
// resolves the order.
func (q ToolQuery) Normalize() ToolQuery {
	q.Limit = ClampLimit(q.Limit)
	if q.Offset < 0 {
		q.Offset = 0
	}
	q.Order = ParseSortOrder(string(q.Order))
	return q
}

// ClampLimit bounds a page size to [1, MaxPageSize].
func ClampLimit(limit int) int {
	switch {
	case limit < 1:
		return 1
	case limit > MaxPageSize:
		return MaxPageSize
	}
	return limit
}

// ToolPage is one page of search results.
type ToolPage struct {
	Tools []*Tool
	// Filtered is the number of tools matching the filter, ignoring paging.
	Filtered int64
}
