package deltatree

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReorderDocuments(t *testing.T) {
	base := fixtureBase()
	delta := seededDelta(base)

	order := []OrderItem{
		{ID: "d2", Children: []OrderItem{{ID: "d3"}}},
		{ID: "d1"},
	}
	require.NoError(t, ReorderDocuments(delta, base, order))

	assert.Equal(t, 0, *delta.Documents["d2"].Ordinal)
	assert.Equal(t, 1, *delta.Documents["d1"].Ordinal)
	assert.Equal(t, 0, *delta.Documents["d3"].Ordinal)
	assert.Equal(t, []TreeItem{
		{ID: "d2", Children: []TreeItem{{ID: "d3"}}},
		{ID: "d1"},
	}, delta.DocumentTree)

	merged, err := Merge(base, delta)
	require.NoError(t, err)
	for id, doc := range base.Documents {
		got := merged.Documents[id]
		require.NotNil(t, got, id)
		assert.Equal(t, doc.Name, got.Name, id)
		assert.Equal(t, doc.Values, got.Values, id)
		assert.Equal(t, doc.Groups, got.Groups, id)
	}
	assert.Equal(t, 0, *merged.Documents["d2"].Ordinal)
	assert.Equal(t, 1, *merged.Documents["d1"].Ordinal)
}

func TestReorderDocuments_Relocates(t *testing.T) {
	base := fixtureBase()
	delta := seededDelta(base)
	original := CloneTree(base.DocumentTree)

	order := []OrderItem{
		{ID: "d1", Children: []OrderItem{{ID: "d3"}}},
		{ID: "d2"},
	}
	require.NoError(t, ReorderDocuments(delta, base, order))

	assert.Equal(t, []string{"d1", "d3"}, FindPath(delta.DocumentTree, "d3"))
	assert.Equal(t, []TreeItem{{ID: "d1", Children: []TreeItem{{ID: "d3"}}}, {ID: "d2"}}, delta.DocumentTree)
	assert.Equal(t, original, base.DocumentTree)
}

func TestReorderDocuments_SkipsDeleted(t *testing.T) {
	base := fixtureBase()
	delta := seededDelta(base)

	require.NoError(t, RemoveDocument(delta, base, "d1"))
	require.NoError(t, ReorderDocuments(delta, base, []OrderItem{{ID: "d1"}, {ID: "d2"}}))

	assert.Nil(t, FindPath(delta.DocumentTree, "d1"))
	assert.Equal(t, DeltaDelete, delta.Documents["d1"].Type)
	assert.Equal(t, 1, *delta.Documents["d2"].Ordinal)
}

func TestReorderDocuments_Unknown(t *testing.T) {
	base := fixtureBase()
	delta := seededDelta(base)

	err := ReorderDocuments(delta, base, []OrderItem{{ID: "d1"}, {ID: "nope"}})
	assert.ErrorIs(t, err, ErrNotFound)

	err = ReorderDocuments(delta, base, []OrderItem{{ID: ""}})
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestReorderDocuments_RejectsRepeatedID(t *testing.T) {
	base := fixtureBase()
	delta := seededDelta(base)
	before := delta.Clone()

	order := []OrderItem{
		{ID: "d2", Children: []OrderItem{{ID: "d1"}}},
		{ID: "d1"},
	}
	err := ReorderDocuments(delta, base, order)
	require.ErrorIs(t, err, ErrInvalidArgument)

	assert.Equal(t, before, delta, "a rejected order leaves the delta untouched")
	assert.Equal(t, base.DocumentTree, delta.DocumentTree)
}

func TestReorderGroups(t *testing.T) {
	base := fixtureBase()
	delta := seededDelta(base)
	treeBefore := CloneTree(delta.DocumentTree)

	order := []OrderItem{
		{ID: "g2"},
		{ID: "g1", Children: []OrderItem{{ID: "g1a"}}},
	}
	require.NoError(t, ReorderGroups(delta, base, "d1", order))

	groups := delta.Documents["d1"].Groups
	assert.Equal(t, 0, *groups["g2"].Ordinal)
	assert.Equal(t, 1, *groups["g1"].Ordinal)
	assert.Equal(t, 0, *groups["g1"].Children["g1a"].Ordinal)
	assert.Equal(t, DeltaUnchanged, groups["g1"].Type)
	assert.Equal(t, treeBefore, delta.DocumentTree, "group reorder leaves the document tree alone")

	merged, err := Merge(base, delta)
	require.NoError(t, err)
	d1 := merged.Documents["d1"]
	assert.Equal(t, 0, *d1.Groups["g2"].Ordinal)
	assert.Equal(t, 1, *d1.Groups["g1"].Ordinal)
	assert.Equal(t, "34", d1.Groups["g1"].Fields["age"].Value)
	assert.Equal(t, "Ana", d1.Groups["g1"].Children["g1a"].Fields["name"].Value)
}

func TestReorderGroups_Unknown(t *testing.T) {
	base := fixtureBase()
	delta := seededDelta(base)

	assert.ErrorIs(t, ReorderGroups(delta, base, "d1", []OrderItem{{ID: "g1a"}}), ErrNotFound)
	assert.ErrorIs(t, ReorderGroups(delta, base, "nope", []OrderItem{{ID: "g1"}}), ErrNotFound)
	assert.ErrorIs(t, ReorderGroups(delta, base, "", nil), ErrInvalidArgument)
}
