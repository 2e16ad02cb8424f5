package router

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"chat-arcade-bot/internal/config"
	"chat-arcade-bot/internal/game/challenge"
	"chat-arcade-bot/internal/game/dungeon"
	"chat-arcade-bot/internal/game/mathquiz"
	"chat-arcade-bot/internal/game/rps"
	"chat-arcade-bot/internal/game/typing"
	"chat-arcade-bot/internal/platform"
	"chat-arcade-bot/internal/session"
)

// begun renders the opening outcome of a freshly created session.
func (r *Router) begun(ctx context.Context, s *session.Session, outcome any) {
	r.settle(ctx, s, session.Verdict{Accepted: true, Next: session.StateAwaitingInput, Outcome: outcome})
}

// StartTyping starts a solo race, or a duel when opponent is set.
func (r *Router) StartTyping(ctx context.Context, channelID int64, p session.Player, opponent *session.Player) error {
	if opponent != nil && opponent.ID == p.ID {
		return ErrSelfPlay
	}
	tc := r.cfg.Games.Typing
	target := typing.PickText(tc.Texts)

	if opponent == nil {
		s, err := r.registry.Create(channelID, typing.NewSolo(p, target, config.Seconds(tc.RoundSeconds)))
		if err != nil {
			return err
		}
		r.begun(ctx, s, typing.Started{Target: target})
		return nil
	}

	race := typing.NewDuel(p, *opponent, target, config.Seconds(tc.RoundSeconds), config.Seconds(tc.InviteSeconds))
	s, err := r.registry.Create(channelID, race)
	if err != nil {
		return err
	}
	r.begun(ctx, s, typing.Invited{Challenger: p, Opponent: *opponent})
	return nil
}

// StartRPS challenges opponent to rock-paper-scissors.
func (r *Router) StartRPS(ctx context.Context, channelID int64, challenger, opponent session.Player) error {
	if challenger.ID == opponent.ID {
		return ErrSelfPlay
	}
	rc := r.cfg.Games.RPS
	s, err := r.registry.Create(channelID, rps.NewChallenge(challenger, opponent,
		config.Seconds(rc.InviteSeconds), config.Seconds(rc.MoveSeconds)))
	if err != nil {
		return err
	}
	r.begun(ctx, s, rps.Invited{Challenger: challenger, Opponent: opponent})
	return nil
}

func (r *Router) startRematch(ctx context.Context, channelID int64, challenger, opponent session.Player) error {
	s, err := r.registry.Create(channelID, rps.NewRematch(challenger, opponent, config.Seconds(r.cfg.Games.RPS.MoveSeconds)))
	if err != nil {
		return err
	}
	r.begun(ctx, s, rps.Started{})
	return nil
}

// StartMathQuiz asks asker one question of op at their difficulty.
func (r *Router) StartMathQuiz(ctx context.Context, channelID int64, asker session.Player, op mathquiz.Operation) (mathquiz.Problem, error) {
	window := config.Seconds(r.cfg.Games.Math.AnswerSeconds)
	p := r.maths.NewProblem(asker.ID, op)
	if _, err := r.registry.Create(channelID, mathquiz.NewQuiz(asker, p, window)); err != nil {
		return p, err
	}
	r.send(ctx, channelID, platform.Message{
		Text: fmt.Sprintf("🧮 %s [%s]\n%s = ?\nAnswer within %ds.",
			name(asker), r.maths.Difficulty(asker.ID), p, r.cfg.Games.Math.AnswerSeconds),
	})
	return p, nil
}

// StartChallenge starts the video challenge for player. The video must exist
// and fit the upload limit; a failed upload aborts the session.
func (r *Router) StartChallenge(ctx context.Context, channelID int64, player session.Player) error {
	cc := r.cfg.Games.Challenge
	if _, err := challenge.CheckVideo(cc.VideoPath, cc.MaxVideoBytes); err != nil {
		return err
	}

	g := challenge.New(player, cc.VideoPath,
		config.Seconds(cc.QuestionIntervalSeconds), config.Seconds(cc.AnswerWindowSeconds), r.rng)
	s, err := r.registry.Create(channelID, g)
	if err != nil {
		return err
	}

	_, err = r.sink.Send(ctx, channelID, platform.Message{
		Text: fmt.Sprintf("🎬 %s's video challenge has started!\nWatch the video. A question comes every %ds and must be answered within %ds.",
			name(player), cc.QuestionIntervalSeconds, cc.AnswerWindowSeconds),
		VideoPath: cc.VideoPath,
		Keyboard:  platform.Keyboard{platform.Row(sessionButton(s, "🏳️ Give up", challenge.ActionGiveUp))},
	})
	if err != nil {
		r.registry.Remove(channelID)
		log.Error().Err(err).Int64("chat_id", channelID).Msg("Failed to upload challenge video")
		return fmt.Errorf("%w: %w", ErrVideoUpload, err)
	}
	return nil
}

// liveChallenge returns the channel's session when it is a video challenge.
func (r *Router) liveChallenge(channelID int64) (*session.Session, bool) {
	s, ok := r.registry.Get(channelID)
	if !ok || s.Kind() != session.KindVideoChallenge {
		return nil, false
	}
	return s, true
}

// EndChallenge completes the running video challenge. An empty tag uses the configured one.
func (r *Router) EndChallenge(ctx context.Context, channelID int64, tag string) error {
	s, ok := r.liveChallenge(channelID)
	if !ok {
		return ErrNoChallenge
	}
	if tag == "" {
		tag = r.cfg.Games.Challenge.CompletionTag
	}
	v, ok := s.Deliver(func(g session.Game) session.Verdict {
		return g.(*challenge.Challenge).Complete(tag)
	})
	if !ok {
		return ErrNoChallenge
	}
	r.settle(ctx, s, v)
	return nil
}

// ChallengeStatus describes the running video challenge.
func (r *Router) ChallengeStatus(channelID int64, now time.Time) (challenge.Snapshot, error) {
	s, ok := r.liveChallenge(channelID)
	if !ok {
		return challenge.Snapshot{}, ErrNoChallenge
	}
	var snap challenge.Snapshot
	s.Inspect(func(g session.Game) {
		snap = g.(*challenge.Challenge).Snapshot(now)
	})
	if snap.Status != challenge.StatusActive && snap.Status != challenge.StatusQuestionPosted {
		return snap, ErrNoChallenge
	}
	// The armed timer is the next question while active and the answer
	// window while a question is out.
	if deadline := s.Deadline(); !deadline.IsZero() {
		snap.Remaining = max(deadline.Sub(now), 0)
	}
	return snap, nil
}

// EnterDungeon checks the entry requirement and starts an aim test. The
// returned power is the player's combat power.
func (r *Router) EnterDungeon(ctx context.Context, channelID int64, p session.Player, dungeonName string) (int, error) {
	d, power, err := r.dungeons.CheckEntry(ctx, p.ID, dungeonName)
	if err != nil {
		return power, err
	}
	s, err := r.registry.Create(channelID, dungeon.NewAimTest(p, d, r.rng))
	if err != nil {
		return power, err
	}
	var progress dungeon.Progress
	s.Inspect(func(g session.Game) {
		progress = g.(*dungeon.AimTest).Progress()
	})
	r.begun(ctx, s, progress)
	return power, nil
}

// Cancel ends the channel's session without an outcome.
func (r *Router) Cancel(ctx context.Context, channelID int64) (session.Kind, bool) {
	s, ok := r.registry.Remove(channelID)
	if !ok {
		return "", false
	}
	if b := r.takeBoard(s); b != nil {
		b.mu.Lock()
		if b.posted {
			if err := r.sink.Edit(ctx, b.ref, platform.Message{Text: "🛑 This game was cancelled."}); err != nil {
				log.Debug().Err(err).Int64("chat_id", channelID).Msg("Failed to edit cancelled board")
			}
		}
		b.mu.Unlock()
	}
	log.Info().Int64("chat_id", channelID).Str("kind", string(s.Kind())).Msg("Session cancelled")
	return s.Kind(), true
}
