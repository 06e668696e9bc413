package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleCategories() []Category {
	return []Category{
		{ID: 10, Name: "Women", Slug: "women", ParentID: 0, MenuOrder: 1, Count: 0},
		{ID: 11, Name: "Dresses", Slug: "dresses", ParentID: 10, Count: 8},
		{ID: 12, Name: "Accessories", Slug: "women-accessories", ParentID: 10, Count: 0},
		{ID: 13, Name: "Scarves", Slug: "scarves", ParentID: 12, Count: 2},
		{ID: 20, Name: "Men", Slug: "men", ParentID: 0, MenuOrder: 0, Count: 3},
		{ID: 30, Name: "Sale", Slug: "sale", ParentID: 0, MenuOrder: 1, Count: 0},
		{ID: 40, Name: "Orphan", Slug: "orphan", ParentID: 999, Count: 1},
	}
}

func TestBuildCategoryTree(t *testing.T) {
	tree := BuildCategoryTree(sampleCategories(), false)

	require.Len(t, tree, 4)
	// menu_order first, then name
	assert.Equal(t, "men", tree[0].Slug)
	assert.Equal(t, "orphan", tree[1].Slug)
	assert.Equal(t, "sale", tree[2].Slug)
	assert.Equal(t, "women", tree[3].Slug)

	women := tree[3]
	assert.Equal(t, 0, women.Depth)
	require.Len(t, women.Children, 2)
	assert.Equal(t, "women-accessories", women.Children[0].Slug)
	assert.Equal(t, "dresses", women.Children[1].Slug)
	assert.Equal(t, 1, women.Children[0].Depth)

	scarves := women.Children[0].Children
	require.Len(t, scarves, 1)
	assert.Equal(t, 2, scarves[0].Depth)
	assert.Equal(t, 10, women.TotalCount())
}

func TestBuildCategoryTree_HideEmpty(t *testing.T) {
	tree := BuildCategoryTree(sampleCategories(), true)

	slugs := make([]string, 0, len(tree))
	for _, n := range tree {
		slugs = append(slugs, n.Slug)
	}
	assert.Equal(t, []string{"men", "orphan", "women"}, slugs)

	// an empty parent survives when a descendant has products
	women := tree[2]
	require.Len(t, women.Children, 2)
	assert.Equal(t, "women-accessories", women.Children[0].Slug)
}

func TestBuildCategoryTree_Cycle(t *testing.T) {
	categories := []Category{
		{ID: 1, Name: "A", Slug: "a", ParentID: 2},
		{ID: 2, Name: "B", Slug: "b", ParentID: 1},
		{ID: 3, Name: "Self", Slug: "self", ParentID: 3},
	}

	tree := BuildCategoryTree(categories, false)

	flat := FlattenTree(tree)
	slugs := make([]string, 0, len(flat))
	for _, n := range flat {
		slugs = append(slugs, n.Slug)
	}
	assert.ElementsMatch(t, []string{"a", "b", "self"}, slugs)
}

func TestBuildCategoryTree_DoesNotReorderInput(t *testing.T) {
	categories := sampleCategories()
	BuildCategoryTree(categories, false)
	assert.Equal(t, int64(10), categories[0].ID)
	assert.Equal(t, int64(40), categories[6].ID)
}

func TestFlattenTree(t *testing.T) {
	flat := FlattenTree(BuildCategoryTree(sampleCategories(), false))

	require.Len(t, flat, 7)
	assert.Equal(t, "women", flat[3].Slug)
	assert.Equal(t, "women-accessories", flat[4].Slug)
	assert.Equal(t, "scarves", flat[5].Slug)
	assert.Equal(t, 2, flat[5].Depth)
	assert.Equal(t, "dresses", flat[6].Slug)
	for _, n := range flat {
		assert.Nil(t, n.Children)
	}
}

func TestFindPath(t *testing.T) {
	tree := BuildCategoryTree(sampleCategories(), false)

	path := FindPath(tree, "scarves")
	require.Len(t, path, 3)
	assert.Equal(t, "women", path[0].Slug)
	assert.Equal(t, "women-accessories", path[1].Slug)
	assert.Equal(t, "scarves", path[2].Slug)

	assert.Nil(t, FindPath(tree, "missing"))
}
