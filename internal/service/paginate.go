package service

import "github.com/starford/hierarchy/internal/hierarchy"

// Meta is the pagination metadata returned with a hierarchy page.
type Meta struct {
	Page       int `json:"page"`
	PerPage    int `json:"per_page"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

// Paginate returns the nodes on the given 1-indexed page. perPage <= 0
// puts everything on a single page. Pages past the end are empty.
func Paginate(nodes []hierarchy.Node, page, perPage int) ([]hierarchy.Node, Meta) {
	if page < 1 {
		page = 1
	}
	total := len(nodes)
	if perPage <= 0 {
		meta := Meta{Page: 1, PerPage: -1, Total: total, TotalPages: 1}
		if page > 1 {
			meta.Page = page
			return []hierarchy.Node{}, meta
		}
		return nodes, meta
	}

	meta := Meta{
		Page:       page,
		PerPage:    perPage,
		Total:      total,
		TotalPages: (total + perPage - 1) / perPage,
	}
	start := (page - 1) * perPage
	if start >= total {
		return []hierarchy.Node{}, meta
	}
	end := min(start+perPage, total)
	return nodes[start:end], meta
}
