package helpers

import (
	"net/http"
	"strconv"

	"virtualexpo/internal/domain"
)

// Defaults and limits for ?page and ?page_size.
const (
	DefaultPage     = 1
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// ParsePagination reads ?page= and ?page_size=. Missing, malformed or
// non-positive values fall back to the defaults; page_size is capped at MaxPageSize.
func ParsePagination(r *http.Request) domain.PaginationParams {
	q := r.URL.Query()
	p := domain.PaginationParams{
		Page:     positiveInt(q.Get("page"), DefaultPage),
		PageSize: positiveInt(q.Get("page_size"), DefaultPageSize),
	}
	p.PageSize = min(p.PageSize, MaxPageSize)
	return p
}

func positiveInt(raw string, fallback int) int {
	v, err := strconv.Atoi(raw)
	if err != nil || v < 1 {
		return fallback
	}
	return v
}

// PaginationMeta describes the page returned by a list endpoint.
// swagger:model PaginationMeta
type PaginationMeta struct {
	Page       int  `json:"page"`
	PageSize   int  `json:"page_size"`
	Total      int  `json:"total"`
	TotalPages int  `json:"total_pages"`
	HasNext    bool `json:"has_next"`
}

// NewPaginationMeta derives the page count from total. A zero pageSize yields no pages.
func NewPaginationMeta(page, pageSize, total int) PaginationMeta {
	meta := PaginationMeta{Page: page, PageSize: pageSize, Total: total}
	if pageSize > 0 {
		meta.TotalPages = (total + pageSize - 1) / pageSize
	}
	meta.HasNext = page < meta.TotalPages
	return meta
}
