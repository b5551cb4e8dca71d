package hierarchy

import (
	"time"

	"github.com/starford/hierarchy/internal/models"
)

// DefaultDateLayout renders dates as "January 2, 2006".
const DefaultDateLayout = "January 2, 2006"

func pageNode(p models.Page, depth int, layout string) Node {
	return Node{
		Kind:     KindPage,
		ID:       p.ID,
		Type:     models.PageType,
		Title:    p.Title,
		Depth:    depth,
		Order:    p.Order,
		Parent:   PageRef(p.ParentID),
		Author:   p.Author,
		Comments: p.Comments,
		Date:     formatDate(p.CreatedAt, layout),
	}
}

func sectionNode(t models.ContentType, title string, order, depth int, parent Ref, count int) Node {
	return Node{
		Kind:   KindSection,
		Type:   t.Name,
		Title:  title,
		Depth:  depth,
		Order:  order,
		Parent: parent,
		Count:  count,
	}
}

func entryNode(e models.Entry, depth int, layout string) Node {
	parent := TypeRef(e.Type)
	if e.ParentID != 0 {
		parent = PageRef(e.ParentID)
	}
	return Node{
		Kind:     KindEntry,
		ID:       e.ID,
		Type:     e.Type,
		Title:    e.Title,
		Depth:    depth,
		Order:    e.Order,
		Parent:   parent,
		Author:   e.Author,
		Comments: e.Comments,
		Date:     formatDate(e.CreatedAt, layout),
	}
}

// formatDate renders t with layout; unknown dates render empty.
func formatDate(t time.Time, layout string) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(layout)
}
