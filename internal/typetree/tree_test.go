package typetree

import (
	"testing"

	"github.com/atvirokodosprendimai/culturalatlas/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// root(1) -> a(2) -> {b(3), c(4)}, c -> d(5); separate hierarchy sys(10) -> s1(11)
func sampleTree() *Tree {
	records := []domain.TypeRecord{
		{ID: 1, Class: domain.ClassType, Name: "Artifact"},
		{ID: 2, Class: domain.ClassType, Name: "Weapon"},
		{ID: 3, Class: domain.ClassType, Name: "Sword"},
		{ID: 4, Class: domain.ClassType, Name: "Axe"},
		{ID: 5, Class: domain.ClassType, Name: "Battle axe"},
		{ID: 10, Class: domain.ClassType, Name: "License"},
		{ID: 11, Class: domain.ClassType, Name: "CC BY 4.0"},
	}
	edges := []domain.ParentEdge{
		{LinkID: 100, ChildID: 2, ParentID: 1},
		{LinkID: 101, ChildID: 3, ParentID: 2},
		{LinkID: 102, ChildID: 4, ParentID: 2},
		{LinkID: 103, ChildID: 5, ParentID: 4},
		{LinkID: 104, ChildID: 11, ParentID: 10},
	}
	hierarchies := []domain.Hierarchy{
		{TypeID: 1, Category: domain.CategoryStandard},
		{TypeID: 10, Category: domain.CategorySystem},
	}
	counts := map[uint]int{1: 1, 3: 2, 5: 4}
	return Build(records, edges, hierarchies, counts)
}

func TestSubIDsIsTransitiveAndExcludesSelf(t *testing.T) {
	tree := sampleTree()

	subs := tree.SubIDs(1)
	assert.ElementsMatch(t, []uint{2, 3, 4, 5}, subs)
	assert.NotContains(t, subs, uint(1))

	assert.ElementsMatch(t, []uint{5}, tree.SubIDs(4))
	assert.Empty(t, tree.SubIDs(3))
	assert.Nil(t, tree.SubIDs(999))
}

func TestRootOfIsNearestFirst(t *testing.T) {
	tree := sampleTree()

	assert.Equal(t, []uint{4, 2, 1}, tree.RootOf(5))
	assert.Empty(t, tree.RootOf(1))
	for _, n := range tree.Nodes() {
		assert.NotContains(t, tree.RootOf(n.ID), n.ID)
	}
}

func TestSubsAreOrderedByName(t *testing.T) {
	tree := sampleTree()

	n, ok := tree.Get(2)
	require.True(t, ok)
	assert.Equal(t, []uint{4, 3}, n.Subs)
}

func TestCountsAndCategories(t *testing.T) {
	tree := sampleTree()

	root, _ := tree.Get(1)
	assert.Equal(t, 1, root.Count)
	assert.Equal(t, 7, root.CountSubs)

	axe, _ := tree.Get(4)
	assert.Equal(t, 0, axe.Count)
	assert.Equal(t, 4, axe.CountSubs)
	assert.Equal(t, domain.CategoryStandard, axe.Category)
	assert.Equal(t, uint(1), axe.Hierarchy())

	license, _ := tree.Get(11)
	assert.Equal(t, domain.CategorySystem, license.Category)
}

func TestTerminatesOnCorruptedCycle(t *testing.T) {
	records := []domain.TypeRecord{{ID: 1, Name: "A"}, {ID: 2, Name: "B"}, {ID: 3, Name: "C"}}
	// each child keeps its first parent, so 1 -> 3 -> 2 -> 1 forms a loop
	edges := []domain.ParentEdge{
		{LinkID: 1, ChildID: 2, ParentID: 1},
		{LinkID: 2, ChildID: 3, ParentID: 2},
		{LinkID: 3, ChildID: 1, ParentID: 3},
	}
	tree := Build(records, edges, nil, nil)

	assert.ElementsMatch(t, []uint{2, 3}, tree.SubIDs(1))
	assert.ElementsMatch(t, []uint{3, 2}, tree.RootOf(1))
	assert.NotContains(t, tree.RootOf(2), uint(2))
}

func TestValidateParent(t *testing.T) {
	tree := sampleTree()

	assert.ErrorIs(t, tree.ValidateParent(2, 2), domain.ErrTypeSelfParent)
	assert.ErrorIs(t, tree.ValidateParent(2, 5), domain.ErrTypeCycle)
	assert.ErrorIs(t, tree.ValidateParent(2, 999), domain.ErrNotFound)
	assert.ErrorIs(t, tree.ValidateParent(3, 11), domain.ErrInvalidArgument)
	assert.NoError(t, tree.ValidateParent(5, 3))
}

func TestEditable(t *testing.T) {
	tree := sampleTree()

	assert.False(t, tree.Editable(1), "standard hierarchy top")
	assert.True(t, tree.Editable(3))
	assert.False(t, tree.Editable(10))
	assert.False(t, tree.Editable(11))
	assert.False(t, tree.Editable(999))
}

func TestPathAndRoots(t *testing.T) {
	tree := sampleTree()

	assert.Equal(t, "Artifact > Weapon > Axe > Battle axe", tree.Path(5))
	roots := tree.Roots()
	require.Len(t, roots, 2)
	assert.Equal(t, "Artifact", roots[0].Name)
	assert.Equal(t, "License", roots[1].Name)
}
