package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chat-arcade-bot/internal/model"
	"chat-arcade-bot/internal/storage"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "nested", "arcade.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestOpen_MigrationsAreIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "arcade.db")

	s1, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s1.Close())

	s2, err := Open(path)
	require.NoError(t, err)
	defer s2.Close()

	var applied int
	require.NoError(t, s2.sqlDB.QueryRow("SELECT COUNT(*) FROM "+storage.MigrationTable).Scan(&applied))
	assert.Equal(t, 3, applied)
}

func TestOpen_RequiresPath(t *testing.T) {
	_, err := Open("  ")
	assert.Error(t, err)
}

func TestTyping_GetUnknownReturnsZero(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	rec, err := s.GetTyping(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, model.TypingRecord{UserID: 42}, rec)
	assert.False(t, rec.HasTime())
}

func TestTyping_RankingOrderAndPaging(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.UpsertPlayer(ctx, model.Player{UserID: 1, Username: "alice"}))
	require.NoError(t, s.UpsertPlayer(ctx, model.Player{UserID: 2, Username: "bob"}))
	require.NoError(t, s.PutTyping(ctx, model.TypingRecord{UserID: 1, BestTime: 5.5}))
	require.NoError(t, s.PutTyping(ctx, model.TypingRecord{UserID: 2, BestTime: 3.2}))
	require.NoError(t, s.PutTyping(ctx, model.TypingRecord{UserID: 3, BestTime: 9.01}))

	n, err := s.CountTyping(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	page, err := s.TypingRanking(ctx, 0, 2)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, model.TypingRank{Rank: 1, UserID: 2, Username: "bob", BestTime: 3.2}, page[0])
	assert.Equal(t, "alice", page[1].Username)

	page, err = s.TypingRanking(ctx, 2, 2)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, 3, page[0].Rank)
	assert.Equal(t, "", page[0].Username, "unknown players rank without a name")
}

func TestWarnings_PutReplaces(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.PutWarnings(ctx, model.WarningRecord{UserID: 7, Count: 4}))
	require.NoError(t, s.PutWarnings(ctx, model.WarningRecord{UserID: 7, Count: 1}))

	rec, err := s.GetWarnings(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, 1, rec.Count)
}

func TestMath_RoundTripAndRanking(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	want := model.MathScore{UserID: 5, Score: 120, CorrectCount: 8, TotalCount: 10, Consecutive: 2, MaxConsecutive: 5}
	require.NoError(t, s.PutMath(ctx, want))
	require.NoError(t, s.PutMath(ctx, model.MathScore{UserID: 6, Score: 300, CorrectCount: 12, TotalCount: 12}))

	got, err := s.GetMath(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	ranks, err := s.MathRanking(ctx, 10)
	require.NoError(t, err)
	require.Len(t, ranks, 2)
	assert.Equal(t, int64(6), ranks[0].UserID)
	assert.Equal(t, 2, ranks[1].Rank)
}

func TestWallet_AttendanceTimestamp(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	w, err := s.GetWallet(ctx, 9)
	require.NoError(t, err)
	assert.True(t, w.LastAttendance.IsZero())

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, s.PutWallet(ctx, model.Wallet{UserID: 9, Coins: 250, LastAttendance: now}))

	w, err = s.GetWallet(ctx, 9)
	require.NoError(t, err)
	assert.Equal(t, int64(250), w.Coins)
	assert.True(t, now.Equal(w.LastAttendance))
}

func TestInventory_AppendOnlyWithDuplicates(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	for _, item := range []string{"wooden_sword", "stone_sword", "wooden_sword"} {
		require.NoError(t, s.AddItem(ctx, 1, item))
	}

	items, err := s.Items(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"wooden_sword", "stone_sword", "wooden_sword"}, items)

	items, err = s.Items(ctx, 2)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestDungeon_RankingPerDungeonAndTotal(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.PutDungeonStat(ctx, model.DungeonStat{UserID: 1, Dungeon: "beginner", Clears: 5, Coins: 300}))
	require.NoError(t, s.PutDungeonStat(ctx, model.DungeonStat{UserID: 1, Dungeon: "slime", Clears: 1, Coins: 120}))
	require.NoError(t, s.PutDungeonStat(ctx, model.DungeonStat{UserID: 2, Dungeon: "beginner", Clears: 3, Coins: 900}))

	st, err := s.GetDungeonStat(ctx, 1, "beginner")
	require.NoError(t, err)
	assert.Equal(t, 5, st.Clears)

	byClears, err := s.DungeonRanking(ctx, "beginner", model.OrderByClears, 10)
	require.NoError(t, err)
	require.Len(t, byClears, 2)
	assert.Equal(t, int64(1), byClears[0].UserID)

	byCoins, err := s.DungeonRanking(ctx, "beginner", model.OrderByCoins, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(2), byCoins[0].UserID)

	total, err := s.DungeonRanking(ctx, storage.AllDungeons, model.OrderByClears, 0)
	require.NoError(t, err)
	require.Len(t, total, 2)
	assert.Equal(t, 6, total[0].Clears)
	assert.Equal(t, int64(420), total[0].Coins)
}

func TestRoles_GrantIsIdempotent(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	granted, err := s.GrantRole(ctx, 1, "warned")
	require.NoError(t, err)
	assert.True(t, granted)

	granted, err = s.GrantRole(ctx, 1, "warned")
	require.NoError(t, err)
	assert.False(t, granted)

	has, err := s.HasRole(ctx, 1, "warned")
	require.NoError(t, err)
	assert.True(t, has)

	roles, err := s.Roles(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"warned"}, roles)

	revoked, err := s.RevokeRole(ctx, 1, "warned")
	require.NoError(t, err)
	assert.True(t, revoked)

	revoked, err = s.RevokeRole(ctx, 1, "warned")
	require.NoError(t, err)
	assert.False(t, revoked)
}
