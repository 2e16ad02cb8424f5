package handler

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"chat-arcade-bot/internal/service"
	"chat-arcade-bot/internal/shop"
)

// AccountHandler handles the coin economy commands.
type AccountHandler struct {
	accountService *service.AccountService
}

// NewAccountHandler creates a new AccountHandler.
func NewAccountHandler(accountService *service.AccountService) *AccountHandler {
	return &AccountHandler{accountService: accountService}
}

// HandleBalance handles /balance.
func (h *AccountHandler) HandleBalance(c tele.Context) error {
	sender := c.Sender()
	if sender == nil {
		return nil
	}
	balance, err := h.accountService.GetBalance(context.Background(), sender.ID)
	if err != nil {
		log.Error().Err(err).Int64("user_id", sender.ID).Msg("Failed to get balance")
		return c.Reply("❌ Failed to load your balance, please try again later.")
	}
	return c.Reply(fmt.Sprintf("💰 Balance: %s coins", shop.Coins(balance)))
}

// HandleAttend handles /attend, paid once per calendar day.
func (h *AccountHandler) HandleAttend(c tele.Context) error {
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	reward, balance, err := h.accountService.Attend(context.Background(), sender.ID)
	if errors.Is(err, service.ErrAlreadyAttended) {
		return c.Reply("⏰ You already checked in today. Come back tomorrow!")
	}
	if err != nil {
		log.Error().Err(err).Int64("user_id", sender.ID).Msg("Failed to check attendance")
		return c.Reply("❌ Check-in failed, please try again later.")
	}

	log.Info().
		Int64("user_id", sender.ID).
		Int64("reward", reward).
		Int64("new_balance", balance).
		Msg("Attendance checked")

	return c.Reply(fmt.Sprintf(
		"✅ Checked in!\n\n"+
			"🎁 Reward: %s coins\n"+
			"💰 Balance: %s coins",
		shop.Coins(reward), shop.Coins(balance),
	))
}

// HandleFish handles /fish.
func (h *AccountHandler) HandleFish(c tele.Context) error {
	sender := c.Sender()
	if sender == nil {
		return nil
	}
	catch, balance, err := h.accountService.Fish(context.Background(), sender.ID)
	if err != nil {
		log.Error().Err(err).Int64("user_id", sender.ID).Msg("Failed to fish")
		return c.Reply("❌ The fish got away, please try again later.")
	}
	return c.Reply(fmt.Sprintf("🎣 You caught fish worth %s coins!\n💰 Balance: %s coins",
		shop.Coins(catch), shop.Coins(balance)))
}
