// Package platform holds the chat-platform-neutral rendering and moderation
// contracts. The Telegram adapter in internal/bot implements them.
package platform

import (
	"context"
	"strings"
)

// Ref addresses a sent message.
type Ref struct {
	ChannelID int64
	MessageID int
}

// Button is an inline button. Data comes back verbatim in the button event.
type Button struct {
	Label string
	Data  string
}

// Keyboard is rows of buttons.
type Keyboard [][]Button

// Message is an outbound message. VideoPath uploads a local video with Text as caption.
type Message struct {
	Text      string
	Keyboard  Keyboard
	VideoPath string
}

// Sink sends and edits messages.
type Sink interface {
	Send(ctx context.Context, channelID int64, msg Message) (Ref, error)
	Edit(ctx context.Context, ref Ref, msg Message) error
}

// Moderator applies member sanctions in a channel.
type Moderator interface {
	Kick(ctx context.Context, channelID, userID int64) error
	Ban(ctx context.Context, channelID, userID int64) error
	Restrict(ctx context.Context, channelID, userID int64) error
}

// CallbackSep separates callback data fields.
const CallbackSep = ":"

// Callback joins callback data fields.
func Callback(parts ...string) string {
	return strings.Join(parts, CallbackSep)
}

// ParseCallback splits callback data into fields.
func ParseCallback(data string) []string {
	return strings.Split(strings.TrimPrefix(data, "\f"), CallbackSep)
}

// Row builds a keyboard row.
func Row(buttons ...Button) []Button {
	return buttons
}

// Grid lays buttons out perRow per row.
func Grid(buttons []Button, perRow int) Keyboard {
	if perRow <= 0 {
		perRow = len(buttons)
	}
	var kb Keyboard
	for start := 0; start < len(buttons); start += perRow {
		end := start + perRow
		if end > len(buttons) {
			end = len(buttons)
		}
		kb = append(kb, buttons[start:end])
	}
	return kb
}
