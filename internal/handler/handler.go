// Package handler provides the Telegram command handlers of the arcade bot.
package handler

import (
	"strconv"
	"strings"

	tele "gopkg.in/telebot.v3"

	"chat-arcade-bot/internal/session"
)

// DisplayName picks the name shown for a Telegram user.
func DisplayName(u *tele.User) string {
	if u.Username != "" {
		return u.Username
	}
	if name := strings.TrimSpace(u.FirstName + " " + u.LastName); name != "" {
		return name
	}
	return strconv.FormatInt(u.ID, 10)
}

// Player converts a Telegram user to a session participant.
func Player(u *tele.User) session.Player {
	return session.Player{ID: u.ID, Name: DisplayName(u)}
}

// replyTarget returns the author of the message being replied to, if it is a person.
func replyTarget(c tele.Context) *tele.User {
	msg := c.Message()
	if msg == nil || msg.ReplyTo == nil || msg.ReplyTo.Sender == nil || msg.ReplyTo.Sender.IsBot {
		return nil
	}
	return msg.ReplyTo.Sender
}

// subjectOrSelf returns the replied-to user, or the sender.
func subjectOrSelf(c tele.Context) *tele.User {
	if u := replyTarget(c); u != nil {
		return u
	}
	return c.Sender()
}

// intArg parses the i-th argument, returning def when it is absent.
func intArg(c tele.Context, i, def int) (int, bool) {
	args := c.Args()
	if len(args) <= i {
		return def, true
	}
	n, err := strconv.Atoi(args[i])
	if err != nil {
		return 0, false
	}
	return n, true
}
