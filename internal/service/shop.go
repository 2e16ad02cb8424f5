package service

import (
	"context"
	"errors"
	"fmt"

	"chat-arcade-bot/internal/pkg/lock"
	"chat-arcade-bot/internal/shop"
	"chat-arcade-bot/internal/storage"
)

// Shop service errors
var (
	ErrItemNotFound = errors.New("item not found")
)

// ShopStore is the persistence ShopService needs.
type ShopStore interface {
	storage.WalletStore
	storage.InventoryStore
}

// Inventory is a user's owned items and the combat power they add up to.
type Inventory struct {
	Items []string
	Power int
}

// ShopService handles purchases and inventories
type ShopService struct {
	store    ShopStore
	userLock *lock.UserLock
}

// NewShopService creates a new ShopService instance
func NewShopService(store ShopStore, userLock *lock.UserLock) *ShopService {
	return &ShopService{store: store, userLock: userLock}
}

// GetShopItems returns all available shop items
func (s *ShopService) GetShopItems() []shop.ItemConfig {
	return shop.GetAllItems()
}

// Purchase buys one item by key or display name and returns it with the new balance.
func (s *ShopService) Purchase(ctx context.Context, userID int64, name string) (shop.ItemConfig, int64, error) {
	item, ok := shop.ParseItem(name)
	if !ok {
		return shop.ItemConfig{}, 0, ErrItemNotFound
	}

	var balance int64
	err := s.userLock.WithLockContext(ctx, userID, func() error {
		w, err := s.store.GetWallet(ctx, userID)
		if err != nil {
			return err
		}
		if w.Coins < item.Price {
			return ErrInsufficientCoins
		}
		w.Coins -= item.Price
		if err := s.store.PutWallet(ctx, w); err != nil {
			return err
		}
		if err := s.store.AddItem(ctx, userID, string(item.Type)); err != nil {
			return err
		}
		balance = w.Coins
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrInsufficientCoins) {
			return item, 0, err
		}
		return item, 0, fmt.Errorf("failed to purchase %s: %w", item.Type, err)
	}
	return item, balance, nil
}

// GetInventory returns the user's items and combat power.
func (s *ShopService) GetInventory(ctx context.Context, userID int64) (Inventory, error) {
	items, err := s.store.Items(ctx, userID)
	if err != nil {
		return Inventory{}, fmt.Errorf("failed to get inventory: %w", err)
	}
	return Inventory{Items: items, Power: shop.Power(items)}, nil
}
