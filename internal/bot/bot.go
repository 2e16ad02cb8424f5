// Package bot wires the Telegram transport to the command handlers and the
// session router.
package bot

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"chat-arcade-bot/internal/config"
	"chat-arcade-bot/internal/handler"
	"chat-arcade-bot/internal/platform"
	"chat-arcade-bot/internal/router"
	"chat-arcade-bot/internal/scoring"
	"chat-arcade-bot/internal/service"
	"chat-arcade-bot/internal/session"
)

// Bot wraps the telebot instance with application dependencies.
type Bot struct {
	bot    *tele.Bot
	cfg    *config.Config
	router *router.Router
	seen   *memberCache

	// Handlers
	accountHandler *handler.AccountHandler
	shopHandler    *handler.ShopHandler
	gameHandler    *handler.GameHandler
	rankingHandler *handler.RankingHandler
	adminHandler   *handler.AdminHandler
	memberHandler  *handler.MemberHandler
	utilityHandler *handler.UtilityHandler
}

// Dependencies holds all the dependencies needed by the bot handlers.
type Dependencies struct {
	Config         *config.Config
	Telebot        *tele.Bot
	Gateway        *Gateway
	Router         *router.Router
	AccountService *service.AccountService
	ShopService    *service.ShopService
	RankingService *service.RankingService
	MathService    *service.MathService
	WarningService *service.WarningService
	Rand           scoring.Rand
}

// NewTelebot creates the Bot API client with long polling.
func NewTelebot(cfg *config.Config) (*tele.Bot, error) {
	if cfg.Bot.Token == "" {
		return nil, fmt.Errorf("bot token is required")
	}
	teleBot, err := tele.NewBot(tele.Settings{
		Token:  cfg.Bot.Token,
		Poller: &tele.LongPoller{Timeout: 10 * time.Second},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}
	return teleBot, nil
}

// New creates a new Bot instance with the given dependencies.
func New(deps *Dependencies) *Bot {
	cfg := deps.Config
	b := &Bot{
		bot:    deps.Telebot,
		cfg:    cfg,
		router: deps.Router,
		seen:   newMemberCache(),
	}

	b.accountHandler = handler.NewAccountHandler(deps.AccountService)
	b.shopHandler = handler.NewShopHandler(deps.ShopService, deps.AccountService, deps.Gateway)
	b.gameHandler = handler.NewGameHandler(deps.Router, deps.MathService)
	b.rankingHandler = handler.NewRankingHandler(deps.RankingService, deps.MathService, deps.Router, deps.Gateway)
	b.adminHandler = handler.NewAdminHandler(cfg, deps.Gateway, deps.WarningService, deps.Gateway)
	b.memberHandler = handler.NewMemberHandler(cfg.Channels, cfg.Location(), deps.Gateway)
	b.utilityHandler = handler.NewUtilityHandler(deps.Rand)

	b.registerMiddleware(deps.AccountService)
	b.registerHandlers()
	return b
}

// registerMiddleware registers all middleware.
func (b *Bot) registerMiddleware(accounts Toucher) {
	b.bot.Use(RecoveryMiddleware())
	b.bot.Use(WhitelistMiddleware(b.cfg, b.seen))
	b.bot.Use(LoggingMiddleware())
	b.bot.Use(TouchMiddleware(accounts))
}

// registerHandlers registers all command and event handlers.
func (b *Bot) registerHandlers() {
	// General
	b.bot.Handle("/start", b.utilityHandler.HandleHelp)
	b.bot.Handle("/help", b.utilityHandler.HandleHelp)
	b.bot.Handle("/ping", b.utilityHandler.HandlePing)
	b.bot.Handle("/dice", b.utilityHandler.HandleDice)
	b.bot.Handle("/coin", b.utilityHandler.HandleCoin)

	// Economy
	b.bot.Handle("/balance", b.accountHandler.HandleBalance)
	b.bot.Handle("/attend", b.accountHandler.HandleAttend)
	b.bot.Handle("/fish", b.accountHandler.HandleFish)
	b.bot.Handle("/shop", b.shopHandler.HandleShop)
	b.bot.Handle("/buy", b.shopHandler.HandleBuy)
	b.bot.Handle("/inventory", b.shopHandler.HandleInventory)

	// Sessions
	b.bot.Handle("/typing", b.gameHandler.HandleTyping)
	b.bot.Handle("/rps", b.gameHandler.HandleRPS)
	b.bot.Handle("/math", b.gameHandler.HandleMath)
	b.bot.Handle("/math_level", b.gameHandler.HandleMathLevel)
	b.bot.Handle("/video_challenge", b.gameHandler.HandleVideoChallenge)
	b.bot.Handle("/challenge_status", b.gameHandler.HandleChallengeStatus)
	b.bot.Handle("/dungeon", b.gameHandler.HandleDungeon)

	// Rankings
	b.bot.Handle("/typing_rank", b.rankingHandler.HandleTypingRank)
	b.bot.Handle("/math_score", b.rankingHandler.HandleMathScore)
	b.bot.Handle("/math_stats", b.rankingHandler.HandleMathStats)
	b.bot.Handle("/math_rank", b.rankingHandler.HandleMathRank)
	b.bot.Handle("/dungeon_rank", b.rankingHandler.HandleDungeonRank)

	b.bot.Handle("/warnings", b.adminHandler.HandleWarnings)

	// Admin handlers (with admin middleware)
	adminGroup := b.bot.Group()
	adminGroup.Use(AdminMiddleware(b.cfg))
	adminGroup.Handle("/ban", b.adminHandler.HandleBan)
	adminGroup.Handle("/kick", b.adminHandler.HandleKick)
	adminGroup.Handle("/say", b.adminHandler.HandleSay)
	adminGroup.Handle("/warn", b.adminHandler.HandleWarn)
	adminGroup.Handle("/warn_remove", b.adminHandler.HandleWarnRemove)
	adminGroup.Handle("/role_buttons", b.adminHandler.HandleRoleButtons)
	adminGroup.Handle("/end_challenge", b.gameHandler.HandleEndChallenge)
	adminGroup.Handle("/cancel", b.gameHandler.HandleCancel)

	// Membership
	b.bot.Handle(tele.OnUserJoined, b.memberHandler.HandleJoined)
	b.bot.Handle(tele.OnUserLeft, b.memberHandler.HandleLeft)

	// Session input
	b.bot.Handle(tele.OnText, b.handleText)
	b.bot.Handle(tele.OnCallback, b.handleCallback)
}

// handleText offers plain chat messages to the chat's session.
func (b *Bot) handleText(c tele.Context) error {
	sender, chat := c.Sender(), c.Chat()
	if sender == nil || chat == nil || sender.IsBot {
		return nil
	}
	b.router.HandleMessage(context.Background(), session.Message{
		ChannelID: chat.ID,
		Author:    handler.Player(sender),
		Content:   c.Text(),
		At:        time.Now(),
	})
	return nil
}

// handleCallback routes button presses and answers them with the router's notice.
func (b *Bot) handleCallback(c tele.Context) error {
	cb := c.Callback()
	if cb == nil || cb.Sender == nil || cb.Message == nil || cb.Message.Chat == nil {
		return nil
	}
	log.Debug().Str("data", cb.Data).Int64("user_id", cb.Sender.ID).Msg("Callback received")

	notice := b.router.HandleButton(context.Background(), router.ButtonEvent{
		ChannelID: cb.Message.Chat.ID,
		Actor:     handler.Player(cb.Sender),
		Data:      cb.Data,
		Origin:    platform.Ref{ChannelID: cb.Message.Chat.ID, MessageID: cb.Message.ID},
		At:        time.Now(),
	})
	return c.Respond(&tele.CallbackResponse{Text: notice})
}

// Start starts the bot polling.
func (b *Bot) Start() {
	log.Info().Msg("Starting bot...")
	b.bot.Start()
}

// Stop stops the bot gracefully.
func (b *Bot) Stop() {
	log.Info().Msg("Stopping bot...")
	b.bot.Stop()
}
