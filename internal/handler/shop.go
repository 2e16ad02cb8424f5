package handler

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"chat-arcade-bot/internal/platform"
	"chat-arcade-bot/internal/service"
	"chat-arcade-bot/internal/shop"
)

// ShopHandler handles shop-related commands. Panel buttons go through the router.
type ShopHandler struct {
	shopService    *service.ShopService
	accountService *service.AccountService
	sink           platform.Sink
}

// NewShopHandler creates a new ShopHandler.
func NewShopHandler(shopService *service.ShopService, accountService *service.AccountService, sink platform.Sink) *ShopHandler {
	return &ShopHandler{
		shopService:    shopService,
		accountService: accountService,
		sink:           sink,
	}
}

// HandleShop handles /shop by posting the panel with buy buttons.
func (h *ShopHandler) HandleShop(c tele.Context) error {
	sender := c.Sender()
	if sender == nil {
		return nil
	}
	ctx := context.Background()
	balance, err := h.accountService.GetBalance(ctx, sender.ID)
	if err != nil {
		log.Warn().Err(err).Int64("user_id", sender.ID).Msg("Failed to get balance for shop")
	}
	_, err = h.sink.Send(ctx, c.Chat().ID, platform.Message{
		Text:     shop.FormatShopMessage(balance),
		Keyboard: shop.BuildShopPanel(),
	})
	return err
}

// HandleBuy handles /buy <item>.
func (h *ShopHandler) HandleBuy(c tele.Context) error {
	sender := c.Sender()
	if sender == nil {
		return nil
	}
	name := strings.TrimSpace(c.Message().Payload)
	if name == "" {
		return c.Reply("Usage: /buy <item>\nSee /shop for the catalog.")
	}

	item, balance, err := h.shopService.Purchase(context.Background(), sender.ID, name)
	switch {
	case errors.Is(err, service.ErrItemNotFound):
		return c.Reply("❌ That item does not exist. See /shop for the catalog.")
	case errors.Is(err, service.ErrInsufficientCoins):
		return c.Reply(fmt.Sprintf("❌ Not enough coins: %s costs %s.", item.Name, shop.Coins(item.Price)))
	case err != nil:
		log.Error().Err(err).Int64("user_id", sender.ID).Msg("Failed to purchase item")
		return c.Reply("❌ Purchase failed, please try again later.")
	}

	log.Info().
		Int64("user_id", sender.ID).
		Str("item", string(item.Type)).
		Int64("price", item.Price).
		Msg("Item purchased")

	return c.Reply(fmt.Sprintf("✅ Bought %s %s!\n💪 Power +%d\n💰 Balance: %s coins",
		item.Emoji, item.Name, item.Power, shop.Coins(balance)))
}

// HandleInventory handles /inventory.
func (h *ShopHandler) HandleInventory(c tele.Context) error {
	sender := c.Sender()
	if sender == nil {
		return nil
	}
	inv, err := h.shopService.GetInventory(context.Background(), sender.ID)
	if err != nil {
		log.Error().Err(err).Int64("user_id", sender.ID).Msg("Failed to get inventory")
		return c.Reply("❌ Failed to load your inventory, please try again later.")
	}
	return c.Reply(shop.FormatInventoryMessage(inv.Items))
}
