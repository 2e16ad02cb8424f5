// Package service provides the business rules behind commands and settled sessions.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"chat-arcade-bot/internal/config"
	"chat-arcade-bot/internal/model"
	"chat-arcade-bot/internal/pkg/lock"
	"chat-arcade-bot/internal/scoring"
	"chat-arcade-bot/internal/storage"
)

// Common errors for account operations.
var (
	ErrAlreadyAttended   = errors.New("attendance already checked today")
	ErrInsufficientCoins = errors.New("insufficient coins")
	ErrInvalidAmount     = errors.New("invalid amount: must be positive")
)

// AccountStore is the persistence AccountService needs.
type AccountStore interface {
	storage.PlayerStore
	storage.WalletStore
}

// AccountService handles display names and coin wallets.
type AccountService struct {
	store    AccountStore
	userLock *lock.UserLock
	rng      scoring.Rand
	economy  config.EconomyConfig
	timezone *time.Location
	now      func() time.Time
}

// NewAccountService creates a new AccountService instance.
func NewAccountService(
	store AccountStore,
	userLock *lock.UserLock,
	rng scoring.Rand,
	economy config.EconomyConfig,
	timezone *time.Location,
) *AccountService {
	if timezone == nil {
		timezone = time.UTC
	}
	return &AccountService{
		store:    store,
		userLock: userLock,
		rng:      rng,
		economy:  economy,
		timezone: timezone,
		now:      time.Now,
	}
}

// Touch records the latest display name of a user.
func (s *AccountService) Touch(ctx context.Context, userID int64, username string) error {
	if username == "" {
		return nil
	}
	if err := s.store.UpsertPlayer(ctx, model.Player{UserID: userID, Username: username}); err != nil {
		return fmt.Errorf("failed to touch player: %w", err)
	}
	return nil
}

// GetBalance retrieves a user's current balance.
func (s *AccountService) GetBalance(ctx context.Context, userID int64) (int64, error) {
	w, err := s.store.GetWallet(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to get balance: %w", err)
	}
	return w.Coins, nil
}

// Credit adds amount to the user's balance and returns the new balance.
func (s *AccountService) Credit(ctx context.Context, userID int64, amount int64) (int64, error) {
	if amount <= 0 {
		return 0, ErrInvalidAmount
	}
	var balance int64
	err := s.userLock.WithLockContext(ctx, userID, func() error {
		w, err := s.store.GetWallet(ctx, userID)
		if err != nil {
			return err
		}
		w.Coins += amount
		if err := s.store.PutWallet(ctx, w); err != nil {
			return err
		}
		balance = w.Coins
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to credit coins: %w", err)
	}
	return balance, nil
}

// Attend pays the attendance reward once per calendar day in the configured
// timezone. It returns the reward and the new balance.
func (s *AccountService) Attend(ctx context.Context, userID int64) (int64, int64, error) {
	var balance int64
	err := s.userLock.WithLockContext(ctx, userID, func() error {
		w, err := s.store.GetWallet(ctx, userID)
		if err != nil {
			return err
		}
		now := s.now()
		if !w.LastAttendance.IsZero() && sameDay(w.LastAttendance, now, s.timezone) {
			return ErrAlreadyAttended
		}
		w.Coins += s.economy.AttendanceReward
		w.LastAttendance = now
		if err := s.store.PutWallet(ctx, w); err != nil {
			return err
		}
		balance = w.Coins
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrAlreadyAttended) {
			return 0, 0, err
		}
		return 0, 0, fmt.Errorf("failed to check attendance: %w", err)
	}
	return s.economy.AttendanceReward, balance, nil
}

// Fish pays a random catch in [fish_min, fish_max] and returns it with the new balance.
func (s *AccountService) Fish(ctx context.Context, userID int64) (int64, int64, error) {
	catch := s.economy.FishMin
	if span := s.economy.FishMax - s.economy.FishMin; span > 0 {
		catch += int64(s.rng.Intn(int(span) + 1))
	}
	if catch <= 0 {
		return 0, 0, ErrInvalidAmount
	}
	balance, err := s.Credit(ctx, userID, catch)
	if err != nil {
		return 0, 0, err
	}
	return catch, balance, nil
}

func sameDay(a, b time.Time, loc *time.Location) bool {
	ay, am, ad := a.In(loc).Date()
	by, bm, bd := b.In(loc).Date()
	return ay == by && am == bm && ad == bd
}
