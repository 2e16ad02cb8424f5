// Package storage defines the persistence contracts shared by the SQLite and
// PostgreSQL backends.
//
// Get methods never report a missing user: an unknown user yields the zero
// record for that domain. Put methods replace the whole record and are durable
// when they return. Callers do their own read-modify-write.
package storage

import (
	"context"

	"chat-arcade-bot/internal/model"
)

// AllDungeons selects the cross-dungeon totals in DungeonRanking.
const AllDungeons = ""

// PlayerStore keeps display names for leaderboards.
type PlayerStore interface {
	UpsertPlayer(ctx context.Context, p model.Player) error
}

// TypingStore persists typing race personal bests.
type TypingStore interface {
	GetTyping(ctx context.Context, userID int64) (model.TypingRecord, error)
	PutTyping(ctx context.Context, rec model.TypingRecord) error
	// TypingRanking lists users with a recorded time, fastest first.
	TypingRanking(ctx context.Context, offset, limit int) ([]model.TypingRank, error)
	CountTyping(ctx context.Context) (int, error)
}

// WarningStore persists moderation warning counts.
type WarningStore interface {
	GetWarnings(ctx context.Context, userID int64) (model.WarningRecord, error)
	PutWarnings(ctx context.Context, rec model.WarningRecord) error
}

// MathStore persists arithmetic quiz counters.
type MathStore interface {
	GetMath(ctx context.Context, userID int64) (model.MathScore, error)
	PutMath(ctx context.Context, rec model.MathScore) error
	// MathRanking lists the highest scores first.
	MathRanking(ctx context.Context, limit int) ([]model.MathRank, error)
}

// WalletStore persists coin balances.
type WalletStore interface {
	GetWallet(ctx context.Context, userID int64) (model.Wallet, error)
	PutWallet(ctx context.Context, w model.Wallet) error
}

// InventoryStore is an append-only item log. Duplicates are allowed.
type InventoryStore interface {
	AddItem(ctx context.Context, userID int64, item string) error
	Items(ctx context.Context, userID int64) ([]string, error)
}

// DungeonStore persists per-dungeon clear statistics.
type DungeonStore interface {
	GetDungeonStat(ctx context.Context, userID int64, dungeon string) (model.DungeonStat, error)
	PutDungeonStat(ctx context.Context, st model.DungeonStat) error
	// DungeonRanking orders users by clears or coins for one dungeon, or summed
	// over all dungeons when dungeon is AllDungeons. limit <= 0 returns every row.
	DungeonRanking(ctx context.Context, dungeon string, order model.DungeonOrder, limit int) ([]model.DungeonRank, error)
}

// RoleStore tracks bot-managed roles.
type RoleStore interface {
	HasRole(ctx context.Context, userID int64, role string) (bool, error)
	// GrantRole reports whether the role was newly granted.
	GrantRole(ctx context.Context, userID int64, role string) (bool, error)
	// RevokeRole reports whether the role was held.
	RevokeRole(ctx context.Context, userID int64, role string) (bool, error)
	Roles(ctx context.Context, userID int64) ([]string, error)
}

// Store is the full persistence surface implemented by each backend.
type Store interface {
	PlayerStore
	TypingStore
	WarningStore
	MathStore
	WalletStore
	InventoryStore
	DungeonStore
	RoleStore
	Close() error
}
