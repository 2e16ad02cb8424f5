package service

import (
	"context"
	"errors"
	"fmt"

	"chat-arcade-bot/internal/game/dungeon"
	"chat-arcade-bot/internal/model"
	"chat-arcade-bot/internal/pkg/lock"
	"chat-arcade-bot/internal/scoring"
	"chat-arcade-bot/internal/shop"
	"chat-arcade-bot/internal/storage"
)

// Dungeon errors.
var (
	ErrDungeonNotFound = errors.New("dungeon not found")
	ErrUnderpowered    = errors.New("combat power too low for this dungeon")
)

// DungeonStore is the persistence DungeonService needs.
type DungeonStore interface {
	storage.DungeonStore
	storage.InventoryStore
}

// DungeonReward is what a clear paid out.
type DungeonReward struct {
	Coins   int64
	Drop    string
	Balance int64
	Stat    model.DungeonStat
}

// Dropped reports whether the clear dropped an item.
func (r DungeonReward) Dropped() bool { return r.Drop != "" }

// DungeonService gates dungeon entry and settles runs.
type DungeonService struct {
	store    DungeonStore
	accounts *AccountService
	userLock *lock.UserLock
	rng      scoring.Rand
}

// NewDungeonService creates a new DungeonService instance.
func NewDungeonService(store DungeonStore, accounts *AccountService, userLock *lock.UserLock, rng scoring.Rand) *DungeonService {
	return &DungeonService{store: store, accounts: accounts, userLock: userLock, rng: rng}
}

// CheckEntry resolves name and verifies the user's combat power meets the requirement.
func (s *DungeonService) CheckEntry(ctx context.Context, userID int64, name string) (dungeon.Dungeon, int, error) {
	d, ok := dungeon.Find(name)
	if !ok {
		return dungeon.Dungeon{}, 0, ErrDungeonNotFound
	}
	items, err := s.store.Items(ctx, userID)
	if err != nil {
		return d, 0, fmt.Errorf("failed to get inventory: %w", err)
	}
	power := shop.Power(items)
	if power < d.RequiredPower {
		return d, power, ErrUnderpowered
	}
	return d, power, nil
}

// SettleClear pays the coin reward, rolls the drop and records the clear.
func (s *DungeonService) SettleClear(ctx context.Context, c dungeon.Cleared) (DungeonReward, error) {
	userID := c.Player.ID
	reward := DungeonReward{Coins: scoring.DungeonReward(s.rng, c.Dungeon.Multiplier)}
	if drop, ok := scoring.RollDrop(s.rng, c.Dungeon.DropRate, c.Dungeon.Drops); ok {
		reward.Drop = drop
	}

	if reward.Coins > 0 {
		balance, err := s.accounts.Credit(ctx, userID, reward.Coins)
		if err != nil {
			return reward, err
		}
		reward.Balance = balance
	}
	if reward.Dropped() {
		if err := s.store.AddItem(ctx, userID, reward.Drop); err != nil {
			return reward, fmt.Errorf("failed to add dungeon drop: %w", err)
		}
	}

	stat, err := s.updateStat(ctx, userID, c.Dungeon.Key, func(st *model.DungeonStat) {
		st.Clears++
		st.Coins += reward.Coins
	})
	reward.Stat = stat
	return reward, err
}

// SettleFailure records a failed run. Nothing is paid.
func (s *DungeonService) SettleFailure(ctx context.Context, f dungeon.Failed) (model.DungeonStat, error) {
	return s.updateStat(ctx, f.Player.ID, f.Dungeon.Key, func(st *model.DungeonStat) {
		st.Fails++
	})
}

func (s *DungeonService) updateStat(ctx context.Context, userID int64, key string, apply func(*model.DungeonStat)) (model.DungeonStat, error) {
	var stat model.DungeonStat
	err := s.userLock.WithLockContext(ctx, userID, func() error {
		st, err := s.store.GetDungeonStat(ctx, userID, key)
		if err != nil {
			return err
		}
		st.UserID, st.Dungeon = userID, key
		apply(&st)
		if err := s.store.PutDungeonStat(ctx, st); err != nil {
			return err
		}
		stat = st
		return nil
	})
	if err != nil {
		return stat, fmt.Errorf("failed to update dungeon stats: %w", err)
	}
	return stat, nil
}
