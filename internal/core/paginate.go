package core

import (
	"fmt"
	"strings"
)

// DefaultPageSize is the number of flattened rows per page.
const DefaultPageSize = 250

// Page is one slice of the flattened view.
type Page struct {
	Rows       []ViewRow
	Page       int // 1-based, after clamping
	PageSize   int
	TotalPages int // Always at least 1
	TotalRows  int
}

// TotalPages returns max(1, ceil(n/pageSize)).
func TotalPages(n, pageSize int) int {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	pages := (n + pageSize - 1) / pageSize
	if pages < 1 {
		return 1
	}
	return pages
}

// Paginate returns the requested page, clamping page to [1, totalPages].
func Paginate(rows []ViewRow, page, pageSize int) Page {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	total := TotalPages(len(rows), pageSize)
	page = clampPage(page, total)

	start := (page - 1) * pageSize
	end := start + pageSize
	if end > len(rows) {
		end = len(rows)
	}
	if start > end {
		start = end
	}

	return Page{
		Rows:       rows[start:end],
		Page:       page,
		PageSize:   pageSize,
		TotalPages: total,
		TotalRows:  len(rows),
	}
}

func clampPage(page, totalPages int) int {
	if page < 1 {
		return 1
	}
	if page > totalPages {
		return totalPages
	}
	return page
}

// PageAction is a pagination control.
type PageAction string

const (
	PageFirst PageAction = "first"
	PagePrev  PageAction = "prev"
	PageNext  PageAction = "next"
	PageLast  PageAction = "last"
)

// ParsePageAction resolves an action name.
func ParsePageAction(s string) (PageAction, error) {
	switch a := PageAction(strings.ToLower(strings.TrimSpace(s))); a {
	case PageFirst, PagePrev, PageNext, PageLast:
		return a, nil
	default:
		return "", fmt.Errorf("unknown page action: %q", s)
	}
}

// Navigate applies action to current. Results are clamped to [1, totalPages]
// and never wrap around.
func Navigate(current, totalPages int, action PageAction) int {
	if totalPages < 1 {
		totalPages = 1
	}
	current = clampPage(current, totalPages)

	switch action {
	case PageFirst:
		return 1
	case PagePrev:
		return clampPage(current-1, totalPages)
	case PageNext:
		return clampPage(current+1, totalPages)
	case PageLast:
		return totalPages
	default:
		return current
	}
}
