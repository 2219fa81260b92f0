package shared

import (
	"math"
	"strings"
)

const (
	defaultPageLimit = 10
	maxPageLimit     = 100
)

// PageRequest describes a paginated, optionally filtered listing.
type PageRequest struct {
	Page   int
	Limit  int
	Search string
}

// NewPageRequest normalises paging input.
func NewPageRequest(page, limit int, search string) PageRequest {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = defaultPageLimit
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}
	return PageRequest{Page: page, Limit: limit, Search: strings.TrimSpace(search)}
}

// Offset returns the row offset for the requested page.
func (p PageRequest) Offset() int {
	if p.Page <= 1 {
		return 0
	}
	return (p.Page - 1) * p.Limit
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// SearchPattern returns Search as a substring pattern for LIKE ... ESCAPE '\'.
// Wildcards typed by the caller match literally.
func (p PageRequest) SearchPattern() string {
	return "%" + likeEscaper.Replace(p.Search) + "%"
}

// Pagination contains metadata for paginated listings.
type Pagination struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

// NewPagination computes pagination metadata.
func NewPagination(req PageRequest, total int) Pagination {
	req = NewPageRequest(req.Page, req.Limit, req.Search)
	totalPages := int(math.Ceil(float64(total) / float64(req.Limit)))
	return Pagination{Page: req.Page, Limit: req.Limit, Total: total, TotalPages: totalPages}
}

// Page is a single page of results.
type Page[T any] struct {
	Items      []T        `json:"items"`
	Pagination Pagination `json:"pagination"`
}

// NewPage wraps items with pagination metadata. Items is never nil.
func NewPage[T any](items []T, req PageRequest, total int) Page[T] {
	if items == nil {
		items = []T{}
	}
	return Page[T]{Items: items, Pagination: NewPagination(req, total)}
}
