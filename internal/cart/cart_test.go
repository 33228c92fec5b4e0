package cart

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAddLineMergesSameItem(t *testing.T) {
	c := Cart{Owner: "user-1"}

	firstId := c.AddLine("item-a", 2)
	secondId := c.AddLine("item-a", 3)

	require.Len(t, c.Lines, 1)
	require.Equal(t, firstId, secondId)
	require.Equal(t, 5, c.Lines[0].Quantity)
	require.Equal(t, "item-a", c.Lines[0].ItemID)
}

func TestAddLineAssignsDistinctIdsPerItem(t *testing.T) {
	c := Cart{Owner: "user-1"}

	idA := c.AddLine("item-a", 1)
	idB := c.AddLine("item-b", 1)

	require.Len(t, c.Lines, 2)
	require.NotEqual(t, idA, idB)
	require.NotEmpty(t, idA)
	require.NotEmpty(t, idB)
}

func TestRemoveOneUnitDecrements(t *testing.T) {
	c := Cart{Owner: "user-1"}
	lineId := c.AddLine("item-a", 3)

	require.True(t, c.RemoveOneUnit(lineId))

	require.Len(t, c.Lines, 1)
	require.Equal(t, 2, c.Lines[0].Quantity)
}

func TestRemoveOneUnitDropsLineAtZero(t *testing.T) {
	c := Cart{Owner: "user-1"}
	idA := c.AddLine("item-a", 1)
	c.AddLine("item-b", 2)

	require.True(t, c.RemoveOneUnit(idA))

	require.Len(t, c.Lines, 1)
	require.Equal(t, "item-b", c.Lines[0].ItemID)
}

func TestRemoveOneUnitUnknownLine(t *testing.T) {
	c := Cart{Owner: "user-1"}
	c.AddLine("item-a", 1)

	require.False(t, c.RemoveOneUnit("no-such-line"))
	require.Len(t, c.Lines, 1)
	require.Equal(t, 1, c.Lines[0].Quantity)
}
