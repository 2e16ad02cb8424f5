// Package main is the entry point for the chat arcade bot.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"chat-arcade-bot/internal/bot"
	"chat-arcade-bot/internal/config"
	"chat-arcade-bot/internal/liveness"
	"chat-arcade-bot/internal/pkg/lock"
	"chat-arcade-bot/internal/router"
	"chat-arcade-bot/internal/scoring"
	"chat-arcade-bot/internal/service"
	"chat-arcade-bot/internal/session"
	"chat-arcade-bot/internal/storage"
	"chat-arcade-bot/internal/storage/postgres"
	"chat-arcade-bot/internal/storage/sqlite"
)

func main() {
	// Configure zerolog
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	cfg, err := config.Load("config")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	log.Info().Str("driver", cfg.Database.Driver).Msg("Configuration loaded successfully")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, err := openStore(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open storage")
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to close storage")
		}
	}()

	userLock := lock.NewUserLock()
	rng := scoring.DefaultRand

	// Initialize services
	accountService := service.NewAccountService(store, userLock, rng, cfg.Economy, cfg.Location())
	typingService := service.NewTypingService(store)
	mathService := service.NewMathService(store, userLock, rng)
	dungeonService := service.NewDungeonService(store, accountService, userLock, rng)
	rankingService := service.NewRankingService(store, cfg.Games.Typing.PageSize)
	shopService := service.NewShopService(store, userLock)

	teleBot, err := bot.NewTelebot(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create bot")
	}
	gateway := bot.NewGateway(teleBot)
	warningService := service.NewWarningService(store, gateway, userLock, cfg.Warnings)

	registry := session.NewRegistry()
	eventRouter := router.New(&router.Dependencies{
		Config:   cfg,
		Registry: registry,
		Sink:     gateway,
		Accounts: accountService,
		Typing:   typingService,
		Math:     mathService,
		Dungeons: dungeonService,
		Ranking:  rankingService,
		Shop:     shopService,
		Roles:    store,
		Rand:     rng,
	})

	chatBot := bot.New(&bot.Dependencies{
		Config:         cfg,
		Telebot:        teleBot,
		Gateway:        gateway,
		Router:         eventRouter,
		AccountService: accountService,
		ShopService:    shopService,
		RankingService: rankingService,
		MathService:    mathService,
		WarningService: warningService,
		Rand:           rng,
	})

	var probe *liveness.Server
	if cfg.Liveness.Enabled {
		probe = liveness.NewServer(cfg.Liveness.Addr)
		if err := probe.Start(); err != nil {
			log.Fatal().Err(err).Msg("Failed to start liveness endpoint")
		}
	}

	// Setup graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go chatBot.Start()

	sig := <-sigChan
	log.Info().Str("signal", sig.String()).Msg("Received shutdown signal")

	chatBot.Stop()
	for _, id := range registry.Channels() {
		eventRouter.Cancel(ctx, id)
	}
	if probe != nil {
		shutdownCtx, stop := context.WithTimeout(ctx, 5*time.Second)
		if err := probe.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Failed to stop liveness endpoint")
		}
		stop()
	}
	log.Info().Msg("Bot stopped gracefully")
}

// openStore opens the configured storage backend and applies its migrations.
func openStore(ctx context.Context, cfg *config.Config) (storage.Store, error) {
	switch cfg.Database.Driver {
	case config.DriverSQLite:
		return sqlite.Open(cfg.Database.Path)
	case config.DriverPostgres:
		return postgres.Open(ctx, &cfg.Database)
	}
	return nil, fmt.Errorf("unsupported database driver %q", cfg.Database.Driver)
}
