// Package shop defines the weapon catalog sold for coins and its shop panel.
package shop

import "sort"

// ItemType identifies a catalog item.
type ItemType string

// Weapons. Power adds up into a player's combat power.
const (
	ItemWoodenSword ItemType = "wooden_sword"
	ItemStoneSword  ItemType = "stone_sword"
	ItemIronSword   ItemType = "iron_sword"
	ItemGoldSword   ItemType = "gold_sword"
)

// ItemConfig describes a catalog item.
type ItemConfig struct {
	Type  ItemType
	Name  string
	Emoji string
	Price int64
	Power int
}

// ShopItems contains every purchasable item.
var ShopItems = map[ItemType]ItemConfig{
	ItemWoodenSword: {Type: ItemWoodenSword, Name: "Wooden Sword", Emoji: "🪵", Price: 500, Power: 10},
	ItemStoneSword:  {Type: ItemStoneSword, Name: "Stone Sword", Emoji: "🪨", Price: 1000, Power: 20},
	ItemIronSword:   {Type: ItemIronSword, Name: "Iron Sword", Emoji: "⚔️", Price: 1500, Power: 30},
	ItemGoldSword:   {Type: ItemGoldSword, Name: "Gold Sword", Emoji: "👑", Price: 2000, Power: 40},
}

// GetAllItems returns all items ordered by price.
func GetAllItems() []ItemConfig {
	items := make([]ItemConfig, 0, len(ShopItems))
	for _, item := range ShopItems {
		items = append(items, item)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Price < items[j].Price })
	return items
}

// GetItem looks an item up by type.
func GetItem(t ItemType) (ItemConfig, bool) {
	item, ok := ShopItems[t]
	return item, ok
}

// ParseItem accepts an item type or its display name, case-insensitively.
func ParseItem(s string) (ItemConfig, bool) {
	key := normalize(s)
	for _, item := range ShopItems {
		if normalize(string(item.Type)) == key || normalize(item.Name) == key {
			return item, true
		}
	}
	return ItemConfig{}, false
}

// Power sums the power of the given items. Unknown items count zero.
func Power(items []string) int {
	total := 0
	for _, it := range items {
		if cfg, ok := ShopItems[ItemType(it)]; ok {
			total += cfg.Power
		}
	}
	return total
}

// DisplayName returns the catalog name of an item, or the raw value.
func DisplayName(item string) string {
	if cfg, ok := ShopItems[ItemType(item)]; ok {
		return cfg.Emoji + " " + cfg.Name
	}
	return item
}

func normalize(s string) string {
	out := make([]rune, 0, len(s))
	for _, r := range s {
		switch {
		case r >= 'A' && r <= 'Z':
			out = append(out, r+('a'-'A'))
		case r == ' ' || r == '-' || r == '_':
		default:
			out = append(out, r)
		}
	}
	return string(out)
}
