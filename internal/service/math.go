package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"

	"chat-arcade-bot/internal/game/mathquiz"
	"chat-arcade-bot/internal/model"
	"chat-arcade-bot/internal/pkg/lock"
	"chat-arcade-bot/internal/scoring"
	"chat-arcade-bot/internal/storage"
)

// MathRankingSize is the length of the math leaderboard.
const MathRankingSize = 10

// MathStore is the persistence MathService needs.
type MathStore interface {
	storage.MathStore
	storage.RoleStore
}

// MathResult is the effect of one answered quiz.
type MathResult struct {
	Correct      bool
	Reward       int
	Score        model.MathScore
	Grade        scoring.Grade
	GradeChanged bool
}

// MathService keeps quiz scores, difficulty preferences and grade roles.
type MathService struct {
	store    MathStore
	userLock *lock.UserLock
	rng      mathquiz.Intn

	// userID -> mathquiz.Difficulty; preferences do not survive a restart.
	levels sync.Map
}

// NewMathService creates a new MathService instance.
func NewMathService(store MathStore, userLock *lock.UserLock, rng mathquiz.Intn) *MathService {
	return &MathService{store: store, userLock: userLock, rng: rng}
}

// Difficulty returns the user's difficulty, medium by default.
func (s *MathService) Difficulty(userID int64) mathquiz.Difficulty {
	if v, ok := s.levels.Load(userID); ok {
		return v.(mathquiz.Difficulty)
	}
	return mathquiz.DefaultDifficulty
}

// SetDifficulty stores the user's difficulty.
func (s *MathService) SetDifficulty(userID int64, d mathquiz.Difficulty) {
	s.levels.Store(userID, d)
}

// NewProblem draws a problem for op at the user's difficulty.
func (s *MathService) NewProblem(userID int64, op mathquiz.Operation) mathquiz.Problem {
	return mathquiz.Generate(s.rng, op, s.Difficulty(userID))
}

// Settle applies an answered quiz to the asker's score. A correct answer also
// reassigns the grade role. The error reports only a score that was not saved;
// a failed role update is logged.
func (s *MathService) Settle(ctx context.Context, a mathquiz.Answered) (MathResult, error) {
	userID := a.Asker.ID
	res := MathResult{Correct: a.Correct}
	var previous scoring.Grade

	err := s.userLock.WithLockContext(ctx, userID, func() error {
		rec, err := s.store.GetMath(ctx, userID)
		if err != nil {
			return err
		}
		previous = scoring.GradeFor(rec.Score)

		rec.UserID = userID
		rec.TotalCount++
		if a.Correct {
			res.Reward = scoring.RewardFor(a.Problem.Op, a.Problem.A, a.Problem.B)
			rec.Score += res.Reward
			rec.CorrectCount++
			rec.Consecutive++
			rec.MaxConsecutive = max(rec.MaxConsecutive, rec.Consecutive)
		} else {
			rec.Consecutive = 0
		}
		if err := s.store.PutMath(ctx, rec); err != nil {
			return err
		}
		res.Score = rec
		return nil
	})
	if err != nil {
		return res, fmt.Errorf("failed to settle math answer: %w", err)
	}

	res.Grade = scoring.GradeFor(res.Score.Score)
	res.GradeChanged = res.Grade.Name != previous.Name
	if a.Correct || res.GradeChanged {
		if err := s.syncGradeRole(ctx, userID, res.Grade); err != nil {
			log.Error().Err(err).Int64("user_id", userID).Str("grade", res.Grade.Name).Msg("Failed to update grade role")
		}
	}
	return res, nil
}

// syncGradeRole leaves the user holding exactly the role of grade.
func (s *MathService) syncGradeRole(ctx context.Context, userID int64, grade scoring.Grade) error {
	for _, name := range scoring.GradeNames() {
		if name == grade.Name {
			continue
		}
		if _, err := s.store.RevokeRole(ctx, userID, name); err != nil {
			return fmt.Errorf("failed to revoke grade role: %w", err)
		}
	}
	if _, err := s.store.GrantRole(ctx, userID, grade.Name); err != nil {
		return fmt.Errorf("failed to grant grade role: %w", err)
	}
	return nil
}

// GetScore returns the user's counters and current grade.
func (s *MathService) GetScore(ctx context.Context, userID int64) (model.MathScore, scoring.Grade, error) {
	rec, err := s.store.GetMath(ctx, userID)
	if err != nil {
		return model.MathScore{}, scoring.Grade{}, fmt.Errorf("failed to get math score: %w", err)
	}
	return rec, scoring.GradeFor(rec.Score), nil
}
