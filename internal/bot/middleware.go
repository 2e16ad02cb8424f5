package bot

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"chat-arcade-bot/internal/config"
	"chat-arcade-bot/internal/handler"
)

// memberCache remembers users seen in allowed group chats. Those users may
// talk to the bot in private.
type memberCache struct {
	mu    sync.RWMutex
	users map[int64]bool
}

func newMemberCache() *memberCache {
	return &memberCache{users: make(map[int64]bool)}
}

func (m *memberCache) allow(userID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[userID] = true
}

func (m *memberCache) allowed(userID int64) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.users[userID]
}

// WhitelistMiddleware drops updates from chats outside the whitelist.
// Private chats pass when the whitelist is empty or the user was seen in an
// allowed group.
func WhitelistMiddleware(cfg *config.Config, seen *memberCache) tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			chat := c.Chat()
			sender := c.Sender()
			if chat == nil || sender == nil {
				return nil
			}

			if chat.Type == tele.ChatPrivate {
				if seen.allowed(sender.ID) || len(cfg.Whitelist.Chats) == 0 {
					return next(c)
				}
				log.Debug().
					Int64("user_id", sender.ID).
					Msg("Ignoring private chat from unknown user")
				return nil
			}

			if !cfg.IsChatAllowed(chat.ID) {
				log.Debug().
					Int64("chat_id", chat.ID).
					Msg("Ignoring update from non-whitelisted chat")
				return nil
			}

			seen.allow(sender.ID)
			return next(c)
		}
	}
}

// AdminMiddleware rejects commands from users outside the admin list.
func AdminMiddleware(cfg *config.Config) tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			sender := c.Sender()
			if sender == nil {
				return nil
			}
			if !cfg.IsAdmin(sender.ID) {
				log.Warn().
					Int64("user_id", sender.ID).
					Str("command", c.Text()).
					Msg("Non-admin attempted admin command")
				return c.Reply("❌ Permission denied: admins only.")
			}
			return next(c)
		}
	}
}

// Toucher records the display name last seen for a user.
type Toucher interface {
	Touch(ctx context.Context, userID int64, username string) error
}

// TouchMiddleware keeps leaderboard names current. Names are written only
// when they change.
func TouchMiddleware(accounts Toucher) tele.MiddlewareFunc {
	var (
		mu    sync.Mutex
		names = make(map[int64]string)
	)
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			sender := c.Sender()
			if sender == nil || sender.IsBot {
				return next(c)
			}
			name := handler.DisplayName(sender)

			mu.Lock()
			changed := names[sender.ID] != name
			names[sender.ID] = name
			mu.Unlock()

			if changed {
				if err := accounts.Touch(context.Background(), sender.ID, name); err != nil {
					log.Warn().Err(err).Int64("user_id", sender.ID).Msg("Failed to record player name")
					mu.Lock()
					delete(names, sender.ID)
					mu.Unlock()
				}
			}
			return next(c)
		}
	}
}

// LoggingMiddleware logs every incoming update at debug level.
func LoggingMiddleware() tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			sender := c.Sender()
			chat := c.Chat()

			logEvent := log.Debug()
			if sender != nil {
				logEvent = logEvent.
					Int64("user_id", sender.ID).
					Str("username", sender.Username)
			}
			if chat != nil {
				logEvent = logEvent.
					Int64("chat_id", chat.ID).
					Str("chat_type", string(chat.Type))
			}
			logEvent.
				Str("text", c.Text()).
				Msg("Received update")

			return next(c)
		}
	}
}

// RecoveryMiddleware turns handler panics into an error reply.
func RecoveryMiddleware() tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) (err error) {
			defer func() {
				if r := recover(); r != nil {
					log.Error().
						Interface("panic", r).
						Msg("Recovered from panic in handler")
					err = c.Reply("❌ Internal error, please try again later.")
				}
			}()
			return next(c)
		}
	}
}
