package hierarchy

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/starford/hierarchy/internal/models"
)

func identity(p models.Page) models.Page { return p }

func pageIDs(pages []models.Page) []int64 {
	out := make([]int64, len(pages))
	for i, p := range pages {
		out[i] = p.ID
	}
	return out
}

func TestDepth(t *testing.T) {
	pages := []models.Page{
		page(1, 0, 0, "A", "a"),
		page(2, 1, 0, "B", "b"),
		page(3, 2, 0, "C", "c"),
		page(4, 42, 0, "D", "d"),
		page(5, 5, 0, "E", "e"),
	}
	parentOf := parentIndex(pages)
	limit := len(pages) + 1

	assert.Equal(t, 0, Depth(0, parentOf, limit))
	assert.Equal(t, 1, Depth(1, parentOf, limit))
	assert.Equal(t, 2, Depth(2, parentOf, limit))
	assert.Equal(t, 0, Depth(42, parentOf, limit), "missing parent stops the walk")
	assert.Equal(t, limit, Depth(5, parentOf, limit), "cycles are bounded")
}

func TestTreeOrder(t *testing.T) {
	pages := []models.Page{
		page(4, 1, 1, "Zulu", "zulu"),
		page(2, 0, 1, "Second", "second"),
		page(3, 1, 1, "Alpha", "alpha"),
		page(1, 0, 0, "First", "first"),
		page(5, 3, 0, "Deep", "deep"),
		page(6, 99, 0, "Stray", "stray"),
	}

	got := treeOrder(pages, identity)

	assert.Equal(t, []int64{1, 3, 5, 4, 6, 2}, pageIDs(got))
}

func TestTreeOrder_CycleMembersOnce(t *testing.T) {
	pages := []models.Page{
		page(1, 0, 0, "Root", "root"),
		page(2, 3, 0, "Ping", "ping"),
		page(3, 2, 0, "Pong", "pong"),
	}

	got := treeOrder(pages, identity)

	assert.ElementsMatch(t, []int64{1, 2, 3}, pageIDs(got))
	assert.Equal(t, int64(1), got[0].ID)
}

func TestListingInsert(t *testing.T) {
	var l listing
	l.insert(Node{Kind: KindPage, ID: 1, Order: 0})
	l.insert(Node{Kind: KindPage, ID: 2, Order: 3})
	l.append(Node{Kind: KindEntry, ID: 9, Order: -5})

	l.insert(Node{Kind: KindSection, Type: "mid", Order: 1})
	l.insert(Node{Kind: KindSection, Type: "tie", Order: 3})
	l.insert(Node{Kind: KindSection, Type: "nested", Order: 0, Parent: PageRef(1)})

	assert.Equal(t,
		[]string{"page:1", "section:mid", "page:2", "entry:9", "section:tie", "section:nested"},
		ids(l))
}
