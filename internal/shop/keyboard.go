package shop

import (
	"fmt"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"chat-arcade-bot/internal/platform"
)

// Callback data prefix and actions for shop buttons.
const (
	CallbackPrefix = "shop"
	ActionBuy      = "buy"
	ActionRefresh  = "refresh"
)

var printer = message.NewPrinter(language.English)

// Coins formats a coin amount with digit grouping.
func Coins(n int64) string {
	return printer.Sprintf("%d", n)
}

// BuildShopPanel creates the shop keyboard with one buy button per item, two per row.
func BuildShopPanel() platform.Keyboard {
	items := GetAllItems()
	buttons := make([]platform.Button, 0, len(items))
	for _, item := range items {
		buttons = append(buttons, platform.Button{
			Label: fmt.Sprintf("%s %s (%s🪙)", item.Emoji, item.Name, Coins(item.Price)),
			Data:  platform.Callback(CallbackPrefix, ActionBuy, string(item.Type)),
		})
	}
	kb := platform.Grid(buttons, 2)
	kb = append(kb, platform.Row(platform.Button{
		Label: "🔄 Refresh",
		Data:  platform.Callback(CallbackPrefix, ActionRefresh),
	}))
	return kb
}

// FormatShopMessage renders the catalog and the viewer's balance.
func FormatShopMessage(balance int64) string {
	var sb strings.Builder
	sb.WriteString("🏪 Weapon Shop\n")
	sb.WriteString("━━━━━━━━━━━━━━━\n")
	for _, item := range GetAllItems() {
		sb.WriteString(fmt.Sprintf("%s %s  %s🪙  power +%d\n", item.Emoji, item.Name, Coins(item.Price), item.Power))
	}
	sb.WriteString("━━━━━━━━━━━━━━━\n")
	sb.WriteString(fmt.Sprintf("💰 Your balance: %s coins", Coins(balance)))
	return sb.String()
}

// FormatInventoryMessage renders owned items and combat power.
func FormatInventoryMessage(items []string) string {
	if len(items) == 0 {
		return "🎒 Your inventory is empty.\nVisit /shop or clear a dungeon to get weapons."
	}

	counts := make(map[string]int, len(items))
	var order []string
	for _, it := range items {
		if counts[it] == 0 {
			order = append(order, it)
		}
		counts[it]++
	}

	var sb strings.Builder
	sb.WriteString("🎒 Inventory\n")
	sb.WriteString("━━━━━━━━━━━━━━━\n")
	for _, it := range order {
		sb.WriteString(fmt.Sprintf("%s x%d\n", DisplayName(it), counts[it]))
	}
	sb.WriteString("━━━━━━━━━━━━━━━\n")
	sb.WriteString(fmt.Sprintf("💪 Combat power: %d", Power(items)))
	return sb.String()
}
