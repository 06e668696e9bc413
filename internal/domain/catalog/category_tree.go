package catalog

import (
	"sort"
	"strings"
)

// BuildCategoryTree turns the flat WordPress category list into a tree.
//
// Categories with parent 0 are roots. A category whose parent is not in the
// list is promoted to a root so that no category disappears from menus.
// Siblings are ordered by menu order, then name, then id. Parent chains that
// loop back on themselves are cut at the first repeated node.
// With hideEmpty, subtrees without a single product are pruned.
func BuildCategoryTree(categories []Category, hideEmpty bool) []*CategoryNode {
	byID := make(map[int64]Category, len(categories))
	for _, c := range categories {
		byID[c.ID] = c
	}

	childrenOf := make(map[int64][]Category)
	var roots []Category
	for _, c := range categories {
		_, parentKnown := byID[c.ParentID]
		if c.IsRoot() || !parentKnown || c.ParentID == c.ID {
			roots = append(roots, c)
			continue
		}
		childrenOf[c.ParentID] = append(childrenOf[c.ParentID], c)
	}

	// Categories caught in a parent cycle are never reached from a root.
	// Promote the lowest id of every unreached cycle so it still shows up.
	reached := make(map[int64]bool, len(categories))
	var mark func(id int64)
	mark = func(id int64) {
		if reached[id] {
			return
		}
		reached[id] = true
		for _, child := range childrenOf[id] {
			mark(child.ID)
		}
	}
	for _, r := range roots {
		mark(r.ID)
	}
	ordered := append([]Category(nil), categories...)
	sortCategories(ordered)
	for _, c := range ordered {
		if reached[c.ID] {
			continue
		}
		roots = append(roots, c)
		mark(c.ID)
	}

	sortCategories(roots)
	onPath := make(map[int64]bool)
	nodes := make([]*CategoryNode, 0, len(roots))
	for _, r := range roots {
		if node := buildNode(r, 0, childrenOf, onPath, hideEmpty); node != nil {
			nodes = append(nodes, node)
		}
	}
	return nodes
}

func buildNode(c Category, depth int, childrenOf map[int64][]Category, onPath map[int64]bool, hideEmpty bool) *CategoryNode {
	if onPath[c.ID] {
		return nil
	}
	onPath[c.ID] = true
	defer delete(onPath, c.ID)

	node := &CategoryNode{
		Category: c,
		Depth:    depth,
		Children: []*CategoryNode{},
	}

	children := childrenOf[c.ID]
	sortCategories(children)
	for _, child := range children {
		if childNode := buildNode(child, depth+1, childrenOf, onPath, hideEmpty); childNode != nil {
			node.Children = append(node.Children, childNode)
		}
	}

	if hideEmpty && node.TotalCount() == 0 {
		return nil
	}
	return node
}

func sortCategories(categories []Category) {
	sort.SliceStable(categories, func(i, j int) bool {
		a, b := categories[i], categories[j]
		if a.MenuOrder != b.MenuOrder {
			return a.MenuOrder < b.MenuOrder
		}
		an, bn := strings.ToLower(a.Name), strings.ToLower(b.Name)
		if an != bn {
			return an < bn
		}
		return a.ID < b.ID
	})
}

// FlattenTree lists the tree depth-first, parents before children.
// Depth is preserved on every entry so menus can indent.
func FlattenTree(nodes []*CategoryNode) []CategoryNode {
	var out []CategoryNode
	var walk func([]*CategoryNode)
	walk = func(level []*CategoryNode) {
		for _, n := range level {
			flat := *n
			flat.Children = nil
			out = append(out, flat)
			walk(n.Children)
		}
	}
	walk(nodes)
	return out
}

// FindPath returns the chain of categories from a root down to the
// category with the given slug, or nil when the slug is not in the tree.
func FindPath(nodes []*CategoryNode, slug string) []Category {
	for _, n := range nodes {
		if n.Slug == slug {
			return []Category{n.Category}
		}
		if path := FindPath(n.Children, slug); path != nil {
			return append([]Category{n.Category}, path...)
		}
	}
	return nil
}
