package handler

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"chat-arcade-bot/internal/config"
	"chat-arcade-bot/internal/platform"
)

// MemberHandler posts welcome and farewell notices.
type MemberHandler struct {
	channels config.ChannelsConfig
	timezone *time.Location
	sink     platform.Sink
	now      func() time.Time
}

// NewMemberHandler creates a new MemberHandler.
func NewMemberHandler(channels config.ChannelsConfig, timezone *time.Location, sink platform.Sink) *MemberHandler {
	return &MemberHandler{channels: channels, timezone: timezone, sink: sink, now: time.Now}
}

// destination returns the configured chat, or the chat of the event.
func destination(configured int64, c tele.Context) int64 {
	if configured != 0 {
		return configured
	}
	return c.Chat().ID
}

// HandleJoined greets a new member.
func (h *MemberHandler) HandleJoined(c tele.Context) error {
	u := c.Message().UserJoined
	if u == nil || u.IsBot {
		return nil
	}
	text := fmt.Sprintf("👋 Welcome %s!\n🕒 Joined %s\nType /help to see the games.",
		DisplayName(u), h.now().In(h.timezone).Format("2006-01-02 15:04 MST"))
	if _, err := h.sink.Send(context.Background(), destination(h.channels.Welcome, c), platform.Message{Text: text}); err != nil {
		log.Warn().Err(err).Int64("user_id", u.ID).Msg("Failed to send welcome message")
	}
	return nil
}

// HandleLeft says goodbye to a leaving member.
func (h *MemberHandler) HandleLeft(c tele.Context) error {
	u := c.Message().UserLeft
	if u == nil || u.IsBot {
		return nil
	}
	text := fmt.Sprintf("👋 %s left the chat. Goodbye!", DisplayName(u))
	if _, err := h.sink.Send(context.Background(), destination(h.channels.Leave, c), platform.Message{Text: text}); err != nil {
		log.Warn().Err(err).Int64("user_id", u.ID).Msg("Failed to send farewell message")
	}
	return nil
}
