package router

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"chat-arcade-bot/internal/game/challenge"
	"chat-arcade-bot/internal/game/dungeon"
	"chat-arcade-bot/internal/game/mathquiz"
	"chat-arcade-bot/internal/game/rps"
	"chat-arcade-bot/internal/game/typing"
	"chat-arcade-bot/internal/platform"
	"chat-arcade-bot/internal/session"
	"chat-arcade-bot/internal/shop"
)

// settle applies the side effects of a committed verdict and renders it.
// It returns the notice for the button presser, if any.
// Verdicts of one session render in sequence order: one older than the last
// rendered verdict, or a non-terminal one arriving after the session ended,
// still runs its side effects but draws nothing.
func (r *Router) settle(ctx context.Context, s *session.Session, v session.Verdict) string {
	b := r.boardFor(s)
	b.mu.Lock()
	defer b.mu.Unlock()

	b.stale = !v.Terminal() && (s.State().Terminal() || v.Seq < b.seq)
	if b.stale {
		log.Debug().
			Int64("chat_id", s.ChannelID()).
			Str("session_id", s.ID()).
			Uint64("seq", v.Seq).
			Msg("Dropped out-of-order render")
	} else if v.Seq > b.seq {
		b.seq = v.Seq
	}

	if v.Terminal() {
		defer r.takeBoard(s)
		log.Info().
			Int64("chat_id", s.ChannelID()).
			Str("session_id", s.ID()).
			Str("kind", string(s.Kind())).
			Str("state", v.Next.String()).
			Msg("Session ended")
	}

	switch o := v.Outcome.(type) {
	case typing.Invited, typing.Started, typing.Declined, typing.InviteExpired, typing.Finished, typing.TimedOut:
		return r.settleTyping(ctx, s, b, o)
	case rps.Invited, rps.Started, rps.Declined, rps.InviteExpired, rps.MoveRecorded, rps.Result, rps.TimedOut:
		return r.settleRPS(ctx, s, b, o)
	case mathquiz.Answered, mathquiz.Expired:
		r.settleMath(ctx, s, b, o)
	case challenge.QuestionPosted, challenge.Correct, challenge.Failed, challenge.GaveUp, challenge.Completed:
		return r.settleChallenge(ctx, s, b, o)
	case dungeon.Progress, dungeon.Cleared, dungeon.Failed:
		r.settleDungeon(ctx, s, b, o)
	}
	return ""
}

func (r *Router) settleTyping(ctx context.Context, s *session.Session, b *board, outcome any) string {
	switch o := outcome.(type) {
	case typing.Invited:
		r.show(ctx, s, b, platform.Message{
			Text: fmt.Sprintf("⌨️ %s challenges %s to a typing duel!\n%s, accept within %ds.",
				name(o.Challenger), name(o.Opponent), name(o.Opponent), r.cfg.Games.Typing.InviteSeconds),
			Keyboard: platform.Keyboard{platform.Row(
				sessionButton(s, "✅ Accept", typing.ActionAccept),
				sessionButton(s, "❌ Decline", typing.ActionDecline),
			)},
		})
	case typing.Started:
		if b.posted {
			r.show(ctx, s, b, platform.Message{Text: "⌨️ Duel accepted! Get ready..."})
		}
		r.post(ctx, s, b, platform.Message{
			Text: fmt.Sprintf("⌨️ Type this sentence within %ds:\n\n%s", r.cfg.Games.Typing.RoundSeconds, o.Target),
		})
	case typing.Declined:
		r.show(ctx, s, b, platform.Message{Text: fmt.Sprintf("🙅 %s declined the typing duel.", name(o.By))})
		return "Duel declined."
	case typing.InviteExpired:
		r.show(ctx, s, b, platform.Message{Text: "⌛ The typing duel invitation expired."})
	case typing.Finished:
		text := fmt.Sprintf("🏁 %s typed it in %.2fs!", name(o.Winner), o.Elapsed)
		res, err := r.typing.RecordFinish(ctx, o.Winner.ID, o.Elapsed)
		switch {
		case err != nil:
			log.Error().Err(err).Int64("user_id", o.Winner.ID).Msg("Failed to record typing time")
		case res.NewBest:
			text += "\n🎉 New personal best!"
		default:
			text += fmt.Sprintf("\nPersonal best: %.2fs", res.Previous)
		}
		r.post(ctx, s, b, platform.Message{Text: text})
	case typing.TimedOut:
		r.post(ctx, s, b, platform.Message{Text: "⏰ Time's up! Nobody typed the sentence."})
	}
	return ""
}

func (r *Router) settleRPS(ctx context.Context, s *session.Session, b *board, outcome any) string {
	switch o := outcome.(type) {
	case rps.Invited:
		r.show(ctx, s, b, platform.Message{
			Text: fmt.Sprintf("✊ %s challenges %s to rock-paper-scissors!\n%s, accept within %ds.",
				name(o.Challenger), name(o.Opponent), name(o.Opponent), r.cfg.Games.RPS.InviteSeconds),
			Keyboard: platform.Keyboard{platform.Row(
				sessionButton(s, "✅ Accept", rps.ActionAccept),
				sessionButton(s, "❌ Decline", rps.ActionDecline),
			)},
		})
	case rps.Started:
		moves := make([]platform.Button, 0, len(rps.Moves))
		for _, m := range rps.Moves {
			moves = append(moves, sessionButton(s, m.Emoji()+" "+string(m), rps.ActionMove, string(m)))
		}
		players := s.Participants()
		r.show(ctx, s, b, platform.Message{
			Text: fmt.Sprintf("✊✋✌️ %s vs %s\nPick your move within %ds.",
				name(players[0]), name(players[1]), r.cfg.Games.RPS.MoveSeconds),
			Keyboard: platform.Keyboard{moves},
		})
	case rps.Declined:
		r.show(ctx, s, b, platform.Message{Text: fmt.Sprintf("🙅 %s declined the match.", name(o.By))})
		return "Match declined."
	case rps.InviteExpired:
		r.show(ctx, s, b, platform.Message{Text: "⌛ The rock-paper-scissors invitation expired."})
	case rps.MoveRecorded:
		return fmt.Sprintf("You picked %s %s", o.Move.Emoji(), o.Move)
	case rps.Result:
		r.setRematch(s.ChannelID(), rpsPair{challenger: o.Challenger, opponent: o.Opponent})
		r.show(ctx, s, b, platform.Message{
			Text: formatRPSResult(o),
			Keyboard: platform.Keyboard{platform.Row(
				platform.Button{Label: "🔁 Rematch", Data: platform.Callback(PrefixRPS, rpsReplay)},
				platform.Button{Label: "🏁 End", Data: platform.Callback(PrefixRPS, rpsEnd)},
			)},
		})
	case rps.TimedOut:
		names := make([]string, len(o.Missing))
		for i, p := range o.Missing {
			names[i] = name(p)
		}
		r.show(ctx, s, b, platform.Message{
			Text: fmt.Sprintf("⏰ Time's up! No move from %s.", strings.Join(names, " and ")),
		})
	}
	return ""
}

func formatRPSResult(o rps.Result) string {
	text := fmt.Sprintf("%s %s %s vs %s %s",
		name(o.Challenger), o.ChallengerMove.Emoji(), o.ChallengerMove, o.OpponentMove.Emoji(), name(o.Opponent))
	if o.Draw() {
		return text + "\n🤝 It's a draw!"
	}
	return text + fmt.Sprintf("\n🏆 %s wins!", name(*o.Winner))
}

func (r *Router) settleMath(ctx context.Context, s *session.Session, b *board, outcome any) {
	switch o := outcome.(type) {
	case mathquiz.Answered:
		res, err := r.maths.Settle(ctx, o)
		if err != nil {
			log.Error().Err(err).Int64("user_id", o.Asker.ID).Msg("Failed to settle math answer")
		}
		var text string
		switch {
		case o.Correct && err != nil:
			text = fmt.Sprintf("✅ Correct, %s!\n❗ Your score could not be saved.", name(o.Asker))
		case o.Correct:
			text = fmt.Sprintf("✅ Correct, %s! +%d points (score %s, streak %d)",
				name(o.Asker), res.Reward, number(int64(res.Score.Score)), res.Score.Consecutive)
		default:
			text = fmt.Sprintf("❌ Wrong, %s. %s = %d", name(o.Asker), o.Problem, o.Problem.Answer)
		}
		if err == nil && res.GradeChanged {
			text += fmt.Sprintf("\n🎓 New grade: %s", res.Grade.Name)
		}
		r.post(ctx, s, b, platform.Message{Text: text})
	case mathquiz.Expired:
		r.post(ctx, s, b, platform.Message{
			Text: fmt.Sprintf("⏰ Time's up, %s! %s = %d", name(o.Asker), o.Problem, o.Problem.Answer),
		})
	}
}

func (r *Router) settleChallenge(ctx context.Context, s *session.Session, b *board, outcome any) string {
	switch o := outcome.(type) {
	case challenge.QuestionPosted:
		r.post(ctx, s, b, platform.Message{
			Text: fmt.Sprintf("❓ %s, what is %s? Answer within %ds.",
				name(o.Player), o.Question, int(o.Window.Seconds())),
		})
	case challenge.Correct:
		r.post(ctx, s, b, platform.Message{
			Text: fmt.Sprintf("✅ Correct! Next question in %ds.", r.cfg.Games.Challenge.QuestionIntervalSeconds),
		})
	case challenge.Failed:
		reason := "the answer window expired"
		if o.Reason == challenge.FailWrongAnswer {
			reason = "wrong answer"
		}
		r.post(ctx, s, b, platform.Message{
			Text: fmt.Sprintf("💥 %s failed the challenge: %s. (%s = %d)",
				name(o.Player), reason, o.Question, o.Question.Answer()),
		})
	case challenge.GaveUp:
		r.post(ctx, s, b, platform.Message{Text: fmt.Sprintf("🏳️ %s gave up the challenge.", name(o.Player))})
		return "You gave up."
	case challenge.Completed:
		r.post(ctx, s, b, platform.Message{
			Text: fmt.Sprintf("🏆 %s completed the challenge and earned the %q title!", name(o.Player), o.Tag),
		})
	}
	return ""
}

func (r *Router) settleDungeon(ctx context.Context, s *session.Session, b *board, outcome any) {
	switch o := outcome.(type) {
	case dungeon.Progress:
		var d dungeon.Dungeon
		s.Inspect(func(g session.Game) { d = g.(*dungeon.AimTest).Dungeon() })
		r.show(ctx, s, b, platform.Message{
			Text:     fmt.Sprintf("🗡 %s: hit the 🎯! %d/%d (%ds)", d.Name, o.Hits, o.Need, int(d.TimeLimit.Seconds())),
			Keyboard: aimGrid(s, o.Target),
		})
	case dungeon.Cleared:
		text := fmt.Sprintf("🏆 %s cleared the %s with %d hits!", name(o.Player), o.Dungeon.Name, o.Hits)
		reward, err := r.dungeons.SettleClear(ctx, o)
		if err != nil {
			log.Error().Err(err).Int64("user_id", o.Player.ID).Msg("Failed to settle dungeon clear")
		}
		text += fmt.Sprintf("\n💰 +%s coins", shop.Coins(reward.Coins))
		if reward.Dropped() {
			text += fmt.Sprintf("\n🎁 Drop: %s", shop.DisplayName(reward.Drop))
		}
		r.show(ctx, s, b, platform.Message{Text: text})
	case dungeon.Failed:
		if _, err := r.dungeons.SettleFailure(ctx, o); err != nil {
			log.Error().Err(err).Int64("user_id", o.Player.ID).Msg("Failed to record dungeon failure")
		}
		reason := "time ran out"
		if o.Reason == dungeon.FailWrongCell {
			reason = "missed the target"
		}
		r.show(ctx, s, b, platform.Message{
			Text: fmt.Sprintf("💀 %s failed the %s: %s after %d hits.", name(o.Player), o.Dungeon.Name, reason, o.Hits),
		})
	}
}

func aimGrid(s *session.Session, target int) platform.Keyboard {
	cells := make([]platform.Button, dungeon.GridSize*dungeon.GridSize)
	for i := range cells {
		label := "⬜"
		if i == target {
			label = "🎯"
		}
		cells[i] = sessionButton(s, label, dungeon.ActionHit, strconv.Itoa(i))
	}
	return platform.Grid(cells, dungeon.GridSize)
}

func name(p session.Player) string {
	if p.Name == "" {
		return "player " + strconv.FormatInt(p.ID, 10)
	}
	return p.Name
}

func number(n int64) string {
	return shop.Coins(n)
}
