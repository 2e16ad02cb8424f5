package handler

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"chat-arcade-bot/internal/model"
	"chat-arcade-bot/internal/platform"
	"chat-arcade-bot/internal/router"
	"chat-arcade-bot/internal/service"
	"chat-arcade-bot/internal/shop"
)

// RankingHandler handles leaderboard and score commands.
type RankingHandler struct {
	rankingService *service.RankingService
	mathService    *service.MathService
	router         *router.Router
	sink           platform.Sink
}

// NewRankingHandler creates a new RankingHandler.
func NewRankingHandler(rankingService *service.RankingService, mathService *service.MathService, r *router.Router, sink platform.Sink) *RankingHandler {
	return &RankingHandler{
		rankingService: rankingService,
		mathService:    mathService,
		router:         r,
		sink:           sink,
	}
}

// HandleTypingRank handles /typing_rank [page]. Paging buttons edit the message in place.
func (h *RankingHandler) HandleTypingRank(c tele.Context) error {
	ctx := context.Background()
	page, ok := intArg(c, 0, 1)
	if !ok {
		return c.Reply("Usage: /typing_rank [page]")
	}
	msg, err := h.router.TypingRankView(ctx, page)
	if err != nil {
		log.Error().Err(err).Msg("Failed to get typing ranking")
		return c.Reply("❌ Failed to load the ranking, please try again later.")
	}
	_, err = h.sink.Send(ctx, c.Chat().ID, msg)
	return err
}

// HandleMathScore handles /math_score for the sender or the replied-to user.
func (h *RankingHandler) HandleMathScore(c tele.Context) error {
	u := subjectOrSelf(c)
	if u == nil {
		return nil
	}
	score, grade, err := h.mathService.GetScore(context.Background(), u.ID)
	if err != nil {
		log.Error().Err(err).Int64("user_id", u.ID).Msg("Failed to get math score")
		return c.Reply("❌ Failed to load the score, please try again later.")
	}
	return c.Reply(fmt.Sprintf("🧮 %s\n🏅 Score: %s\n🎓 Grade: %s\n🔥 Streak: %d",
		DisplayName(u), shop.Coins(int64(score.Score)), grade.Name, score.Consecutive))
}

// HandleMathStats handles /math_stats.
func (h *RankingHandler) HandleMathStats(c tele.Context) error {
	u := subjectOrSelf(c)
	if u == nil {
		return nil
	}
	score, grade, err := h.mathService.GetScore(context.Background(), u.ID)
	if err != nil {
		log.Error().Err(err).Int64("user_id", u.ID).Msg("Failed to get math stats")
		return c.Reply("❌ Failed to load the stats, please try again later.")
	}
	if score.TotalCount == 0 {
		return c.Reply(fmt.Sprintf("🧮 %s has not answered any questions yet. Try /math add", DisplayName(u)))
	}
	return c.Reply(fmt.Sprintf(
		"📈 Math stats: %s\n"+
			"━━━━━━━━━━━━━━━\n"+
			"🏅 Score: %s (%s)\n"+
			"✅ Correct: %d/%d (%.1f%%)\n"+
			"🔥 Streak: %d (best %d)\n"+
			"🎚 Difficulty: %s",
		DisplayName(u),
		shop.Coins(int64(score.Score)), grade.Name,
		score.CorrectCount, score.TotalCount, score.Accuracy(),
		score.Consecutive, score.MaxConsecutive,
		h.mathService.Difficulty(u.ID),
	))
}

// HandleMathRank handles /math_rank.
func (h *RankingHandler) HandleMathRank(c tele.Context) error {
	ranks, err := h.rankingService.GetMathTop(context.Background())
	if err != nil {
		log.Error().Err(err).Msg("Failed to get math ranking")
		return c.Reply("❌ Failed to load the ranking, please try again later.")
	}

	var sb strings.Builder
	sb.WriteString("🧮 Math Ranking\n")
	sb.WriteString("━━━━━━━━━━━━━━━\n")
	if len(ranks) == 0 {
		sb.WriteString("No scores yet.\n")
	}
	for _, r := range ranks {
		sb.WriteString(fmt.Sprintf("%s %s  %s pts (%d correct)\n",
			router.Medal(r.Rank), router.DisplayName(r.Username, r.UserID), shop.Coins(int64(r.Score)), r.Correct))
	}
	return c.Reply(strings.TrimSuffix(sb.String(), "\n"))
}

// HandleDungeonRank handles /dungeon_rank <name|all> [clears|coins].
func (h *RankingHandler) HandleDungeonRank(c tele.Context) error {
	sender := c.Sender()
	if sender == nil {
		return nil
	}
	args := c.Args()
	name := "all"
	if len(args) > 0 {
		name = args[0]
	}
	order := model.OrderByClears
	if len(args) > 1 && model.DungeonOrder(args[1]) == model.OrderByCoins {
		order = model.OrderByCoins
	}

	board, err := h.rankingService.GetDungeonBoard(context.Background(), sender.ID, name, order)
	if errors.Is(err, service.ErrDungeonNotFound) {
		return c.Reply("❌ Unknown dungeon. Usage: /dungeon_rank <name|all> [clears|coins]")
	}
	if err != nil {
		log.Error().Err(err).Msg("Failed to get dungeon ranking")
		return c.Reply("❌ Failed to load the ranking, please try again later.")
	}
	return c.Reply(formatDungeonBoard(board))
}

func formatDungeonBoard(board service.DungeonBoard) string {
	title := board.Dungeon
	if title == "" {
		title = "All Dungeons"
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("🗡 %s Ranking (by %s)\n", title, board.Order))
	sb.WriteString("━━━━━━━━━━━━━━━\n")
	if len(board.Entries) == 0 {
		sb.WriteString("No clears yet.\n")
	}
	for _, e := range board.Entries {
		sb.WriteString(fmt.Sprintf("%s %s  %d clears, %s coins\n",
			router.Medal(e.Rank), router.DisplayName(e.Username, e.UserID), e.Clears, shop.Coins(e.Coins)))
	}
	sb.WriteString("━━━━━━━━━━━━━━━\n")
	if board.Mine != nil {
		sb.WriteString(fmt.Sprintf("📍 You: #%d, %d clears, %s coins", board.Mine.Rank, board.Mine.Clears, shop.Coins(board.Mine.Coins)))
	} else {
		sb.WriteString("📍 You are not ranked yet.")
	}
	return sb.String()
}
