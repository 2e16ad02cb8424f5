package shop

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chat-arcade-bot/internal/platform"
)

func TestGetAllItems_OrderedByPrice(t *testing.T) {
	items := GetAllItems()
	require.Len(t, items, 4)
	assert.Equal(t, ItemWoodenSword, items[0].Type)
	assert.Equal(t, ItemGoldSword, items[3].Type)
}

func TestParseItem(t *testing.T) {
	item, ok := ParseItem("Iron Sword")
	require.True(t, ok)
	assert.Equal(t, ItemIronSword, item.Type)

	item, ok = ParseItem("stone_sword")
	require.True(t, ok)
	assert.Equal(t, int64(1000), item.Price)

	_, ok = ParseItem("laser sword")
	assert.False(t, ok)
}

func TestPower(t *testing.T) {
	assert.Equal(t, 0, Power(nil))
	assert.Equal(t, 60, Power([]string{"wooden_sword", "stone_sword", "iron_sword", "unknown"}))
	assert.Equal(t, 20, Power([]string{"wooden_sword", "wooden_sword"}))
}

func TestBuildShopPanel(t *testing.T) {
	kb := BuildShopPanel()
	require.Len(t, kb, 3)
	assert.Len(t, kb[0], 2)
	assert.Equal(t, []string{"shop", "buy", "wooden_sword"}, platform.ParseCallback(kb[0][0].Data))
	assert.Contains(t, kb[1][1].Label, "2,000")
}

func TestFormatInventoryMessage(t *testing.T) {
	assert.Contains(t, FormatInventoryMessage(nil), "empty")

	msg := FormatInventoryMessage([]string{"wooden_sword", "gold_sword", "wooden_sword"})
	assert.Contains(t, msg, "Wooden Sword x2")
	assert.Contains(t, msg, "Combat power: 60")
}
