package service

import (
	"context"
	"fmt"
	"math"

	"chat-arcade-bot/internal/model"
	"chat-arcade-bot/internal/storage"
)

// minRecordedTime keeps a finished race distinguishable from "no record".
const minRecordedTime = 0.01

// TypingResult reports how a finished race compares to the personal best.
type TypingResult struct {
	Elapsed  float64
	Previous float64
	NewBest  bool
}

// TypingService keeps typing race personal bests.
type TypingService struct {
	store storage.TypingStore
}

// NewTypingService creates a new TypingService instance.
func NewTypingService(store storage.TypingStore) *TypingService {
	return &TypingService{store: store}
}

// RecordFinish stores elapsed seconds when they beat the personal best.
// An equal time is not an improvement.
func (s *TypingService) RecordFinish(ctx context.Context, userID int64, elapsed float64) (TypingResult, error) {
	elapsed = math.Max(elapsed, minRecordedTime)

	rec, err := s.store.GetTyping(ctx, userID)
	if err != nil {
		return TypingResult{}, fmt.Errorf("failed to get typing record: %w", err)
	}
	res := TypingResult{Elapsed: elapsed, Previous: rec.BestTime}
	if rec.HasTime() && elapsed >= rec.BestTime {
		return res, nil
	}

	if err := s.store.PutTyping(ctx, model.TypingRecord{UserID: userID, BestTime: elapsed}); err != nil {
		return res, fmt.Errorf("failed to save typing record: %w", err)
	}
	res.NewBest = true
	return res, nil
}

// GetBest returns the user's best time, zero when none.
func (s *TypingService) GetBest(ctx context.Context, userID int64) (float64, error) {
	rec, err := s.store.GetTyping(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to get typing record: %w", err)
	}
	return rec.BestTime, nil
}
