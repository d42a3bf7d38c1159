package services

import (
	"strings"

	"github.com/dmitrijs2005/habittracker/internal/server/models"
	"github.com/dmitrijs2005/habittracker/internal/server/repositories/query"
)

const (
	defaultPageSize = 10
	maxPageSize     = 100
)

// ListParams are the raw paging and sorting inputs of a list endpoint. Zero
// values select the defaults.
type ListParams struct {
	Page     int
	PageSize int
	SortBy   string
	Order    string
}

// Page is one page of a listing.
type Page[T any] struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"pageSize"`
	TotalCount int64 `json:"totalCount"`
	Items      []T   `json:"items"`
}

func newPage[T any](q models.ListQuery, total int64, items []T) *Page[T] {
	if items == nil {
		items = []T{}
	}
	return &Page[T]{Page: q.Page, PageSize: q.PageSize, TotalCount: total, Items: items}
}

// toQuery validates p. Unknown sort keys fall back to creation time.
func (p ListParams) toQuery(sortable query.SortColumns) (models.ListQuery, error) {
	q := models.ListQuery{Page: p.Page, PageSize: p.PageSize, SortBy: p.SortBy, Desc: true}

	v := &validator{}
	if q.Page == 0 {
		q.Page = 1
	} else if q.Page < 1 {
		v.add("page", "page must be at least 1.")
	}
	if q.PageSize == 0 {
		q.PageSize = defaultPageSize
	} else if q.PageSize < 1 || q.PageSize > maxPageSize {
		v.add("pageSize", "pageSize must be between 1 and %d.", maxPageSize)
	}
	switch strings.ToLower(p.Order) {
	case "", "desc":
	case "asc":
		q.Desc = false
	default:
		v.add("order", "order must be asc or desc.")
	}
	if !sortable.Has(q.SortBy) {
		q.SortBy = query.DefaultSortKey
	}

	return q, v.err()
}
