package catalog

// Category is a WooCommerce product category as WordPress stores it:
// a flat record pointing at its parent by id (0 for roots).
type Category struct {
	ID          int64
	Name        string
	Slug        string
	ParentID    int64
	Description string
	Display     string
	Image       *Image
	MenuOrder   int
	Count       int
}

// IsRoot returns true if the category has no parent
func (c *Category) IsRoot() bool {
	return c.ParentID == 0
}

// CategoryNode is a category placed in the tree with its children
type CategoryNode struct {
	Category
	Depth    int
	Children []*CategoryNode
}

// TotalCount returns the product count of the node and all its descendants
func (n *CategoryNode) TotalCount() int {
	total := n.Count
	for _, child := range n.Children {
		total += child.TotalCount()
	}
	return total
}
