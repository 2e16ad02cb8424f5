package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	tele "gopkg.in/telebot.v3"

	"chat-arcade-bot/internal/platform"
)

// telegramAPI is the part of *tele.Bot the gateway drives.
type telegramAPI interface {
	Send(to tele.Recipient, what interface{}, opts ...interface{}) (*tele.Message, error)
	Edit(msg tele.Editable, what interface{}, opts ...interface{}) (*tele.Message, error)
	Ban(chat *tele.Chat, member *tele.ChatMember, revokeMessages ...bool) error
	Unban(chat *tele.Chat, user *tele.User, forBanned ...bool) error
	Restrict(chat *tele.Chat, member *tele.ChatMember) error
}

// Gateway renders platform messages and applies sanctions through the Bot API.
type Gateway struct {
	api telegramAPI
}

// NewGateway wraps a telebot instance.
func NewGateway(api telegramAPI) *Gateway {
	return &Gateway{api: api}
}

var (
	_ platform.Sink      = (*Gateway)(nil)
	_ platform.Moderator = (*Gateway)(nil)
)

// Send posts msg to the chat. A message with a video path uploads the file
// with the text as caption.
func (g *Gateway) Send(ctx context.Context, channelID int64, msg platform.Message) (platform.Ref, error) {
	var what interface{} = msg.Text
	if msg.VideoPath != "" {
		what = &tele.Video{File: tele.FromDisk(msg.VideoPath), Caption: msg.Text}
	}

	var opts []interface{}
	if markup := inlineMarkup(msg.Keyboard); markup != nil {
		opts = append(opts, markup)
	}

	sent, err := g.api.Send(tele.ChatID(channelID), what, opts...)
	if err != nil {
		return platform.Ref{}, fmt.Errorf("failed to send message: %w", err)
	}
	return platform.Ref{ChannelID: channelID, MessageID: sent.ID}, nil
}

// Edit replaces the text and buttons of a sent message. Unchanged content is not an error.
func (g *Gateway) Edit(ctx context.Context, ref platform.Ref, msg platform.Message) error {
	stored := tele.StoredMessage{MessageID: strconv.Itoa(ref.MessageID), ChatID: ref.ChannelID}

	// An empty keyboard still has to be sent to clear the old buttons.
	markup := inlineMarkup(msg.Keyboard)
	if markup == nil {
		markup = &tele.ReplyMarkup{}
	}

	_, err := g.api.Edit(stored, msg.Text, markup)
	if err != nil && !errors.Is(err, tele.ErrMessageNotModified) && !errors.Is(err, tele.ErrSameMessageContent) {
		return fmt.Errorf("failed to edit message: %w", err)
	}
	return nil
}

// Kick removes the member and lets them rejoin.
func (g *Gateway) Kick(ctx context.Context, channelID, userID int64) error {
	if err := g.Ban(ctx, channelID, userID); err != nil {
		return err
	}
	if err := g.api.Unban(&tele.Chat{ID: channelID}, &tele.User{ID: userID}, true); err != nil {
		return fmt.Errorf("failed to unban member: %w", err)
	}
	return nil
}

// Ban removes the member for good.
func (g *Gateway) Ban(ctx context.Context, channelID, userID int64) error {
	member := &tele.ChatMember{User: &tele.User{ID: userID}, RestrictedUntil: tele.Forever()}
	if err := g.api.Ban(&tele.Chat{ID: channelID}, member); err != nil {
		return fmt.Errorf("failed to ban member: %w", err)
	}
	return nil
}

// Restrict takes away the member's right to post.
func (g *Gateway) Restrict(ctx context.Context, channelID, userID int64) error {
	member := &tele.ChatMember{
		User:            &tele.User{ID: userID},
		Rights:          tele.NoRights(),
		RestrictedUntil: tele.Forever(),
	}
	if err := g.api.Restrict(&tele.Chat{ID: channelID}, member); err != nil {
		return fmt.Errorf("failed to restrict member: %w", err)
	}
	return nil
}

// inlineMarkup converts a keyboard to inline markup, nil when empty.
func inlineMarkup(kb platform.Keyboard) *tele.ReplyMarkup {
	if len(kb) == 0 {
		return nil
	}
	rows := make([][]tele.InlineButton, 0, len(kb))
	for _, row := range kb {
		buttons := make([]tele.InlineButton, 0, len(row))
		for _, b := range row {
			buttons = append(buttons, tele.InlineButton{Text: b.Label, Data: b.Data})
		}
		rows = append(rows, buttons)
	}
	return &tele.ReplyMarkup{InlineKeyboard: rows}
}
