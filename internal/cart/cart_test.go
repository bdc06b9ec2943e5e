package cart

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func catalogItem(name, price string) CatalogItem {
	return CatalogItem{ID: uuid.New(), Name: name, Category: "General", SellPrice: decimal.RequireFromString(price)}
}

func TestAddIncrementsExistingLine(t *testing.T) {
	c := New()
	burger := catalogItem("Burger", "50")

	c.Add(burger)
	c.Add(burger)

	lines := c.Lines()
	require.Len(t, lines, 1)
	assert.Equal(t, 2, lines[0].Qty)
	assert.Equal(t, "Burger", lines[0].Name)
}

func TestAddKeepsSnapshot(t *testing.T) {
	c := New()
	burger := catalogItem("Burger", "50")
	c.Add(burger)

	burger.SellPrice = decimal.NewFromInt(99)
	burger.Name = "Deluxe"
	c.Add(burger)

	lines := c.Lines()
	require.Len(t, lines, 1)
	assert.Equal(t, "Burger", lines[0].Name)
	assert.True(t, lines[0].SellPrice.Equal(decimal.NewFromInt(50)))
	assert.True(t, c.Total().Equal(decimal.NewFromInt(100)))
}

func TestTotalsScenario(t *testing.T) {
	c := New()
	burger := catalogItem("Burger", "50")
	soda := catalogItem("Soda", "30")
	c.Add(burger)
	c.Add(burger)
	c.Add(soda)

	assert.True(t, c.Total().Equal(decimal.NewFromInt(130)))
	assert.Equal(t, 3, c.ItemCount())
	assert.Equal(t, []string{"Burger", "Soda"}, []string{c.Lines()[0].Name, c.Lines()[1].Name})
}

func TestUpdateQuantity(t *testing.T) {
	c := New()
	burger := catalogItem("Burger", "50")
	soda := catalogItem("Soda", "30")
	c.Add(burger)
	c.Add(soda)

	require.True(t, c.UpdateQuantity(burger.ID, 4))
	assert.Equal(t, 5, c.ItemCount())

	require.True(t, c.UpdateQuantity(burger.ID, 0))
	require.Len(t, c.Lines(), 1)
	assert.Equal(t, soda.ID, c.Lines()[0].ItemID)

	require.True(t, c.UpdateQuantity(soda.ID, -3))
	assert.True(t, c.IsEmpty())

	assert.False(t, c.UpdateQuantity(uuid.New(), 2))
}

func TestRemoveAndClear(t *testing.T) {
	c := New()
	burger := catalogItem("Burger", "50")
	soda := catalogItem("Soda", "30")
	c.Add(burger)
	c.Add(burger)
	c.Add(soda)

	assert.True(t, c.Remove(burger.ID))
	assert.False(t, c.Remove(burger.ID))
	assert.Equal(t, 1, c.ItemCount())

	c.Clear()
	assert.True(t, c.IsEmpty())
	assert.True(t, c.Total().IsZero())
	assert.Zero(t, c.ItemCount())
}

func TestLinesReturnsCopy(t *testing.T) {
	c := New()
	c.Add(catalogItem("Burger", "50"))

	lines := c.Lines()
	lines[0].Qty = 42
	assert.Equal(t, 1, c.ItemCount())
}

func TestNewDropsEmptyLines(t *testing.T) {
	c := New(Line{ItemID: uuid.New(), Qty: 0}, Line{ItemID: uuid.New(), Qty: 2, SellPrice: decimal.NewFromInt(3)})
	require.Len(t, c.Lines(), 1)
	assert.True(t, c.Total().Equal(decimal.NewFromInt(6)))
}
