package handler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"chat-arcade-bot/internal/game/challenge"
	"chat-arcade-bot/internal/game/dungeon"
	"chat-arcade-bot/internal/game/mathquiz"
	"chat-arcade-bot/internal/router"
	"chat-arcade-bot/internal/service"
	"chat-arcade-bot/internal/session"
)

// GameHandler starts and controls channel sessions.
type GameHandler struct {
	router *router.Router
	maths  *service.MathService
}

// NewGameHandler creates a new GameHandler.
func NewGameHandler(r *router.Router, maths *service.MathService) *GameHandler {
	return &GameHandler{router: r, maths: maths}
}

// startError maps session start failures to replies.
func startError(c tele.Context, err error, what string) error {
	switch {
	case errors.Is(err, session.ErrAlreadyActive):
		return c.Reply("❌ Another game is running in this chat. Finish it first.")
	case errors.Is(err, router.ErrSelfPlay):
		return c.Reply("❌ You cannot challenge yourself.")
	}
	log.Error().Err(err).Int64("chat_id", c.Chat().ID).Str("game", what).Msg("Failed to start session")
	return c.Reply("❌ Failed to start the game, please try again later.")
}

// HandleTyping handles /typing. Replying to someone turns the race into a duel.
func (h *GameHandler) HandleTyping(c tele.Context) error {
	ctx := context.Background()
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	var opponent *session.Player
	if u := replyTarget(c); u != nil {
		p := Player(u)
		opponent = &p
	}
	if err := h.router.StartTyping(ctx, c.Chat().ID, Player(sender), opponent); err != nil {
		return startError(c, err, "typing")
	}
	return nil
}

// HandleRPS handles /rps, sent as a reply to the opponent.
func (h *GameHandler) HandleRPS(c tele.Context) error {
	ctx := context.Background()
	sender := c.Sender()
	if sender == nil {
		return nil
	}
	target := replyTarget(c)
	if target == nil {
		return c.Reply("❌ Reply to the player you want to challenge.")
	}
	if err := h.router.StartRPS(ctx, c.Chat().ID, Player(sender), Player(target)); err != nil {
		return startError(c, err, "rps")
	}
	return nil
}

// HandleMathLevel handles /math_level [easy|medium|hard].
func (h *GameHandler) HandleMathLevel(c tele.Context) error {
	sender := c.Sender()
	if sender == nil {
		return nil
	}
	args := c.Args()
	if len(args) == 0 {
		return c.Reply(fmt.Sprintf("🎚 Your difficulty: %s\nUsage: /math_level easy|medium|hard", h.maths.Difficulty(sender.ID)))
	}
	d, ok := mathquiz.ParseDifficulty(args[0])
	if !ok {
		return c.Reply("❌ Difficulty must be easy, medium or hard.")
	}
	h.maths.SetDifficulty(sender.ID, d)
	return c.Reply(fmt.Sprintf("✅ Difficulty set to %s.", d))
}

// HandleMath handles /math <op>.
func (h *GameHandler) HandleMath(c tele.Context) error {
	ctx := context.Background()
	sender := c.Sender()
	if sender == nil {
		return nil
	}
	args := c.Args()
	if len(args) == 0 {
		return c.Reply("Usage: /math add|sub|mul|div")
	}
	op, ok := mathquiz.ParseOperation(args[0])
	if !ok {
		return c.Reply("❌ Unknown operation. Use add, sub, mul or div.")
	}
	if _, err := h.router.StartMathQuiz(ctx, c.Chat().ID, Player(sender), op); err != nil {
		return startError(c, err, "math")
	}
	return nil
}

// HandleVideoChallenge handles /video_challenge for the sender or the replied-to user.
func (h *GameHandler) HandleVideoChallenge(c tele.Context) error {
	ctx := context.Background()
	if c.Sender() == nil {
		return nil
	}
	player := Player(subjectOrSelf(c))

	err := h.router.StartChallenge(ctx, c.Chat().ID, player)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, challenge.ErrVideoMissing):
		return c.Reply("❌ The challenge video is not available.")
	case errors.Is(err, challenge.ErrVideoTooLarge):
		return c.Reply("❌ The challenge video is too large to upload.")
	case errors.Is(err, router.ErrVideoUpload):
		return c.Reply("❌ Failed to upload the challenge video. The challenge was not started.")
	}
	return startError(c, err, "video_challenge")
}

// HandleEndChallenge handles /end_challenge [tag]. Admin only.
func (h *GameHandler) HandleEndChallenge(c tele.Context) error {
	tag := strings.TrimSpace(c.Message().Payload)
	if err := h.router.EndChallenge(context.Background(), c.Chat().ID, tag); err != nil {
		if errors.Is(err, router.ErrNoChallenge) {
			return c.Reply("❌ No video challenge is running.")
		}
		return err
	}
	return nil
}

// HandleChallengeStatus handles /challenge_status.
func (h *GameHandler) HandleChallengeStatus(c tele.Context) error {
	snap, err := h.router.ChallengeStatus(c.Chat().ID, time.Now())
	if err != nil {
		return c.Reply("ℹ️ No video challenge is running.")
	}
	return c.Reply(formatChallengeStatus(snap))
}

func formatChallengeStatus(snap challenge.Snapshot) string {
	var sb strings.Builder
	sb.WriteString("🎬 Video challenge\n")
	sb.WriteString("━━━━━━━━━━━━━━━\n")
	sb.WriteString(fmt.Sprintf("👤 Player: %s\n", snap.Player.Name))
	sb.WriteString(fmt.Sprintf("📌 Status: %s\n", challengeStatusLabel(snap.Status)))
	sb.WriteString(fmt.Sprintf("📼 Video: %s\n", snap.Video))
	if snap.Question != nil {
		sb.WriteString(fmt.Sprintf("❓ Question: %s\n", snap.Question))
		sb.WriteString(fmt.Sprintf("⏳ Time left: %ds", int(snap.Remaining.Seconds())))
	} else {
		sb.WriteString(fmt.Sprintf("⏳ Next question in: %ds", int(snap.Remaining.Seconds())))
	}
	return sb.String()
}

func challengeStatusLabel(st challenge.Status) string {
	switch st {
	case challenge.StatusActive:
		return "watching"
	case challenge.StatusQuestionPosted:
		return "answering a question"
	}
	return string(st)
}

// HandleDungeon handles /dungeon <name>. Without a name it lists the dungeons.
func (h *GameHandler) HandleDungeon(c tele.Context) error {
	ctx := context.Background()
	sender := c.Sender()
	if sender == nil {
		return nil
	}
	name := strings.TrimSpace(c.Message().Payload)
	if name == "" {
		return c.Reply(dungeonList())
	}

	power, err := h.router.EnterDungeon(ctx, c.Chat().ID, Player(sender), name)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, service.ErrDungeonNotFound):
		return c.Reply("❌ Unknown dungeon.\n\n" + dungeonList())
	case errors.Is(err, service.ErrUnderpowered):
		d, _ := dungeon.Find(name)
		return c.Reply(fmt.Sprintf("❌ %s needs %d power, you have %d. Visit the /shop for better weapons.",
			d.Name, d.RequiredPower, power))
	}
	return startError(c, err, "dungeon")
}

func dungeonList() string {
	var sb strings.Builder
	sb.WriteString("🗡 Dungeons\n")
	sb.WriteString("━━━━━━━━━━━━━━━\n")
	for _, d := range dungeon.Catalog {
		sb.WriteString(fmt.Sprintf("%s (%s): power %d, %d targets in %ds, x%.1f coins\n",
			d.Name, d.Key, d.RequiredPower, d.TargetCount, int(d.TimeLimit.Seconds()), d.Multiplier))
	}
	sb.WriteString("\nUsage: /dungeon <name>")
	return sb.String()
}

// HandleCancel handles /cancel. Admin only.
func (h *GameHandler) HandleCancel(c tele.Context) error {
	kind, ok := h.router.Cancel(context.Background(), c.Chat().ID)
	if !ok {
		return c.Reply("ℹ️ Nothing is running in this chat.")
	}
	log.Info().Int64("admin_id", c.Sender().ID).Str("kind", string(kind)).Msg("Admin cancelled session")
	return c.Reply("🛑 Game cancelled.")
}
