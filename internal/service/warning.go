package service

import (
	"context"
	"fmt"

	"chat-arcade-bot/internal/config"
	"chat-arcade-bot/internal/model"
	"chat-arcade-bot/internal/pkg/lock"
	"chat-arcade-bot/internal/platform"
	"chat-arcade-bot/internal/storage"
)

// WarningStore is the persistence WarningService needs.
type WarningStore interface {
	storage.WarningStore
	storage.RoleStore
}

// WarnResult describes the effect of adding warnings.
type WarnResult struct {
	Previous    int
	Count       int
	RoleGranted bool
	Kicked      bool
}

// WarningService counts moderation warnings and escalates at the thresholds.
type WarningService struct {
	store     WarningStore
	moderator platform.Moderator
	userLock  *lock.UserLock
	cfg       config.WarningsConfig
}

// NewWarningService creates a new WarningService instance.
func NewWarningService(store WarningStore, moderator platform.Moderator, userLock *lock.UserLock, cfg config.WarningsConfig) *WarningService {
	return &WarningService{store: store, moderator: moderator, userLock: userLock, cfg: cfg}
}

// Warn adds n warnings to a member of chatID. Reaching the role threshold
// grants the warning role once and restricts the member; crossing the kick
// threshold removes the member once. The count is saved even when a
// moderation action fails.
func (s *WarningService) Warn(ctx context.Context, chatID, userID int64, n int) (WarnResult, error) {
	if n <= 0 {
		return WarnResult{}, ErrInvalidAmount
	}

	var res WarnResult
	err := s.userLock.WithLockContext(ctx, userID, func() error {
		rec, err := s.store.GetWarnings(ctx, userID)
		if err != nil {
			return err
		}
		res.Previous = rec.Count
		rec.UserID = userID
		rec.Count += n
		res.Count = rec.Count
		if err := s.store.PutWarnings(ctx, rec); err != nil {
			return err
		}

		if res.Count >= s.cfg.RoleThreshold {
			granted, err := s.store.GrantRole(ctx, userID, s.cfg.Role)
			if err != nil {
				return err
			}
			res.RoleGranted = granted
		}
		return nil
	})
	if err != nil {
		return res, fmt.Errorf("failed to add warning: %w", err)
	}

	if res.RoleGranted {
		if err := s.moderator.Restrict(ctx, chatID, userID); err != nil {
			return res, fmt.Errorf("failed to restrict warned member: %w", err)
		}
	}
	if res.Previous < s.cfg.KickThreshold && res.Count >= s.cfg.KickThreshold {
		if err := s.moderator.Kick(ctx, chatID, userID); err != nil {
			return res, fmt.Errorf("failed to kick warned member: %w", err)
		}
		res.Kicked = true
	}
	return res, nil
}

// Remove subtracts n warnings, never going below zero, and returns the new count.
func (s *WarningService) Remove(ctx context.Context, userID int64, n int) (int, error) {
	if n <= 0 {
		return 0, ErrInvalidAmount
	}
	var count int
	err := s.userLock.WithLockContext(ctx, userID, func() error {
		rec, err := s.store.GetWarnings(ctx, userID)
		if err != nil {
			return err
		}
		count = max(0, rec.Count-n)
		return s.store.PutWarnings(ctx, model.WarningRecord{UserID: userID, Count: count})
	})
	if err != nil {
		return 0, fmt.Errorf("failed to remove warning: %w", err)
	}
	return count, nil
}

// Count returns the user's warning count.
func (s *WarningService) Count(ctx context.Context, userID int64) (int, error) {
	rec, err := s.store.GetWarnings(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to get warnings: %w", err)
	}
	return rec.Count, nil
}
