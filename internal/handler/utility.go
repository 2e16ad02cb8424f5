package handler

import (
	"fmt"
	"time"

	tele "gopkg.in/telebot.v3"

	"chat-arcade-bot/internal/scoring"
)

// defaultDiceSides is used by /dice without an argument.
const defaultDiceSides = 6

// UtilityHandler handles small general-purpose commands.
type UtilityHandler struct {
	rng scoring.Rand
	now func() time.Time
}

// NewUtilityHandler creates a new UtilityHandler.
func NewUtilityHandler(rng scoring.Rand) *UtilityHandler {
	return &UtilityHandler{rng: rng, now: time.Now}
}

// HandlePing handles /ping, reporting how long the message took to arrive.
func (h *UtilityHandler) HandlePing(c tele.Context) error {
	latency := h.now().Sub(c.Message().Time())
	return c.Reply(fmt.Sprintf("🏓 Pong! %dms", max(0, latency.Milliseconds())))
}

// HandleDice handles /dice [max].
func (h *UtilityHandler) HandleDice(c tele.Context) error {
	sides, ok := intArg(c, 0, defaultDiceSides)
	if !ok || sides < 2 {
		return c.Reply("Usage: /dice [max], max at least 2")
	}
	return c.Reply(fmt.Sprintf("🎲 %s rolled %d (1-%d)", DisplayName(c.Sender()), h.rng.Intn(sides)+1, sides))
}

// HandleCoin handles /coin.
func (h *UtilityHandler) HandleCoin(c tele.Context) error {
	side := "heads"
	if h.rng.Intn(2) == 1 {
		side = "tails"
	}
	return c.Reply("🪙 " + side + "!")
}

// HandleHelp handles /help and /start.
func (h *UtilityHandler) HandleHelp(c tele.Context) error {
	return c.Reply(helpText)
}

const helpText = `🕹 Arcade commands

Games
/typing - typing race (reply to someone for a duel)
/typing_rank - fastest typists
/rps - rock-paper-scissors (reply to your opponent)
/math <add|sub|mul|div> - arithmetic quiz
/math_level [easy|medium|hard] - quiz difficulty
/math_score, /math_stats, /math_rank - quiz scores
/video_challenge - watch and answer questions
/challenge_status - running challenge
/dungeon <name> - aim test for coins and loot
/dungeon_rank <name|all> [clears|coins]

Economy
/attend - daily check-in
/fish - catch some coins
/balance - your coins
/shop, /buy <item>, /inventory

Other
/ping, /dice [max], /coin, /warnings`
