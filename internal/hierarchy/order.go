package hierarchy

import (
	"cmp"
	"slices"
	"strings"

	"github.com/starford/hierarchy/internal/models"
)

// treeOrder arranges records into tree preorder with siblings sorted by
// order, then title. Records whose parent is unknown count as roots.
// Records reachable only through a parent cycle follow the tree, each once.
func treeOrder[T any](items []T, page func(T) models.Page) []T {
	sorted := slices.Clone(items)
	slices.SortStableFunc(sorted, func(a, b T) int {
		pa, pb := page(a), page(b)
		if c := cmp.Compare(pa.Order, pb.Order); c != 0 {
			return c
		}
		return strings.Compare(pa.Title, pb.Title)
	})

	known := make(map[int64]struct{}, len(sorted))
	for _, it := range sorted {
		known[page(it).ID] = struct{}{}
	}

	children := make(map[int64][]int)
	var roots []int
	for i, it := range sorted {
		p := page(it)
		if _, ok := known[p.ParentID]; !ok || p.ParentID == 0 || p.ParentID == p.ID {
			roots = append(roots, i)
			continue
		}
		children[p.ParentID] = append(children[p.ParentID], i)
	}

	out := make([]T, 0, len(sorted))
	visited := make([]bool, len(sorted))
	var visit func(i int)
	visit = func(i int) {
		if visited[i] {
			return
		}
		visited[i] = true
		out = append(out, sorted[i])
		for _, c := range children[page(sorted[i]).ID] {
			visit(c)
		}
	}
	for _, i := range roots {
		visit(i)
	}
	for i := range sorted {
		visit(i)
	}
	return out
}

// listing is the flat output of one assembly run.
type listing []Node

// insert places n before the first page sibling (same parent) with a
// greater order, or at the end when there is none. Ties keep insertion
// order. Only page nodes are compared so nothing lands inside a block of
// entries.
func (l *listing) insert(n Node) {
	at := len(*l)
	for i, sib := range *l {
		if sib.Kind != KindPage || sib.Parent != n.Parent {
			continue
		}
		if n.Order < sib.Order {
			at = i
			break
		}
	}
	*l = slices.Insert(*l, at, n)
}

// append adds nodes at the end, in the given order.
func (l *listing) append(nodes ...Node) {
	*l = append(*l, nodes...)
}
