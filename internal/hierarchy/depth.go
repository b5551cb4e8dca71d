package hierarchy

import "github.com/starford/hierarchy/internal/models"

// ParentFunc reports the parent of id, or false when id is unknown.
type ParentFunc func(id int64) (int64, bool)

// Depth counts the ancestors of a record whose parent is parentID.
//
// The walk stops at the root, at a parent that cannot be found, or after
// limit hops. The limit keeps a corrupted, cyclic chain from looping; pass
// the number of known records plus one.
func Depth(parentID int64, parentOf ParentFunc, limit int) int {
	depth := 0
	for id := parentID; id > 0 && depth < limit; depth++ {
		next, ok := parentOf(id)
		if !ok {
			break
		}
		id = next
	}
	return depth
}

// parentIndex builds a ParentFunc over a set of pages.
func parentIndex(pages []models.Page) ParentFunc {
	parents := make(map[int64]int64, len(pages))
	for _, p := range pages {
		parents[p.ID] = p.ParentID
	}
	return func(id int64) (int64, bool) {
		parent, ok := parents[id]
		return parent, ok
	}
}
