// Package query holds SQL fragments shared by the list endpoints of the
// activity repositories.
package query

import (
	"fmt"
	"strings"

	"github.com/dmitrijs2005/habittracker/internal/server/models"
)

// DefaultSortKey is used when a list request names no sort key or an unknown one.
const DefaultSortKey = "createdat"

// PriorityOrder sorts Low < Medium < High instead of alphabetically.
const PriorityOrder = "CASE priority WHEN 'Low' THEN 0 WHEN 'Medium' THEN 1 ELSE 2 END"

// SortColumns maps lower-cased API sort keys to SQL expressions. Only values
// from this map are ever interpolated into ORDER BY.
type SortColumns map[string]string

// Has reports whether key (any case) is sortable.
func (s SortColumns) Has(key string) bool {
	_, ok := s[strings.ToLower(key)]
	return ok
}

// OrderBy renders the ORDER BY clause for q. The row id is appended as a tie
// breaker so pages are stable.
func (s SortColumns) OrderBy(q models.ListQuery) string {
	expr, ok := s[strings.ToLower(q.SortBy)]
	if !ok {
		expr = s[DefaultSortKey]
	}
	dir := "ASC"
	if q.Desc {
		dir = "DESC"
	}
	return fmt.Sprintf("ORDER BY %s %s, id %s", expr, dir, dir)
}
