package router

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"chat-arcade-bot/internal/platform"
	"chat-arcade-bot/internal/service"
	"chat-arcade-bot/internal/session"
	"chat-arcade-bot/internal/shop"
)

// Sessionless rock-paper-scissors actions posted under a finished match.
const (
	rpsReplay = "replay"
	rpsEnd    = "end"
)

// RankTyping is the leaderboard name in rank:typing:<page> callbacks.
const RankTyping = "typing"

// handleSessionless serves buttons that do not belong to a live session.
// Buttons of ended sessions land here too and are ignored.
func (r *Router) handleSessionless(ctx context.Context, ev ButtonEvent, parts []string) string {
	if len(parts) == 0 {
		return ""
	}
	switch parts[0] {
	case PrefixRank:
		if len(parts) == 3 && parts[1] == RankTyping {
			page, err := strconv.Atoi(parts[2])
			if err != nil {
				return ""
			}
			return r.turnTypingPage(ctx, ev.Origin, page)
		}
	case PrefixRPS:
		if len(parts) == 2 {
			switch parts[1] {
			case rpsReplay:
				return r.replay(ctx, ev)
			case rpsEnd:
				return r.endMatch(ctx, ev)
			}
		}
	case PrefixRole:
		if len(parts) >= 2 {
			return r.toggleRole(ctx, ev.Actor.ID, strings.Join(parts[1:], platform.CallbackSep))
		}
	case shop.CallbackPrefix:
		return r.shopButton(ctx, ev, parts)
	}
	return ""
}

func (r *Router) turnTypingPage(ctx context.Context, origin platform.Ref, page int) string {
	msg, err := r.TypingRankView(ctx, page)
	if err != nil {
		log.Error().Err(err).Msg("Failed to load typing ranking")
		return "Failed to load the ranking."
	}
	if err := r.sink.Edit(ctx, origin, msg); err != nil {
		log.Debug().Err(err).Msg("Failed to edit typing ranking")
	}
	return ""
}

func (r *Router) setRematch(channelID int64, pair rpsPair) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rematches[channelID] = pair
}

// takeRematch removes and returns the channel's last pair if actor played in it.
func (r *Router) takeRematch(channelID, actor int64) (rpsPair, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	pair, ok := r.rematches[channelID]
	if !ok || (pair.challenger.ID != actor && pair.opponent.ID != actor) {
		return rpsPair{}, false
	}
	delete(r.rematches, channelID)
	return pair, true
}

func (r *Router) replay(ctx context.Context, ev ButtonEvent) string {
	pair, ok := r.takeRematch(ev.ChannelID, ev.Actor.ID)
	if !ok {
		return ""
	}
	challenger, opponent := pair.challenger, pair.opponent
	if ev.Actor.ID == opponent.ID {
		challenger, opponent = opponent, challenger
	}
	if err := r.startRematch(ctx, ev.ChannelID, challenger, opponent); err != nil {
		r.setRematch(ev.ChannelID, pair)
		if errors.Is(err, session.ErrAlreadyActive) {
			return "Another game is running in this chat."
		}
		log.Error().Err(err).Int64("chat_id", ev.ChannelID).Msg("Failed to start rematch")
		return "Failed to start the rematch."
	}
	return ""
}

func (r *Router) endMatch(ctx context.Context, ev ButtonEvent) string {
	if _, ok := r.takeRematch(ev.ChannelID, ev.Actor.ID); !ok {
		return ""
	}
	if err := r.sink.Edit(ctx, ev.Origin, platform.Message{Text: "🏁 Match closed. Thanks for playing!"}); err != nil {
		log.Debug().Err(err).Msg("Failed to close match board")
	}
	return ""
}

func (r *Router) toggleRole(ctx context.Context, userID int64, role string) string {
	held, err := r.roles.HasRole(ctx, userID, role)
	if err != nil {
		log.Error().Err(err).Int64("user_id", userID).Str("role", role).Msg("Failed to check role")
		return "Failed to update your role."
	}
	if held {
		if _, err := r.roles.RevokeRole(ctx, userID, role); err != nil {
			log.Error().Err(err).Int64("user_id", userID).Str("role", role).Msg("Failed to revoke role")
			return "Failed to update your role."
		}
		return fmt.Sprintf("Role %q removed.", role)
	}
	if _, err := r.roles.GrantRole(ctx, userID, role); err != nil {
		log.Error().Err(err).Int64("user_id", userID).Str("role", role).Msg("Failed to grant role")
		return "Failed to update your role."
	}
	return fmt.Sprintf("Role %q added.", role)
}

func (r *Router) shopButton(ctx context.Context, ev ButtonEvent, parts []string) string {
	userID := ev.Actor.ID
	switch {
	case len(parts) == 3 && parts[1] == shop.ActionBuy:
		item, balance, err := r.shop.Purchase(ctx, userID, parts[2])
		switch {
		case errors.Is(err, service.ErrItemNotFound):
			return "That item does not exist."
		case errors.Is(err, service.ErrInsufficientCoins):
			return fmt.Sprintf("Not enough coins for %s.", item.Name)
		case err != nil:
			log.Error().Err(err).Int64("user_id", userID).Msg("Failed to purchase item")
			return "Purchase failed, please try again."
		}
		return fmt.Sprintf("Bought %s %s! Balance: %s", item.Emoji, item.Name, shop.Coins(balance))

	case len(parts) == 2 && parts[1] == shop.ActionRefresh:
		balance, err := r.accounts.GetBalance(ctx, userID)
		if err != nil {
			log.Error().Err(err).Int64("user_id", userID).Msg("Failed to get balance")
			return "Failed to load your balance."
		}
		msg := platform.Message{Text: shop.FormatShopMessage(balance), Keyboard: shop.BuildShopPanel()}
		if err := r.sink.Edit(ctx, ev.Origin, msg); err != nil {
			log.Debug().Err(err).Msg("Failed to refresh shop panel")
		}
		return "Refreshed."
	}
	return ""
}
