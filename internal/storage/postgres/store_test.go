package postgres

import (
	"context"
	"os/exec"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"chat-arcade-bot/internal/model"
	"chat-arcade-bot/internal/storage"
)

// checkDockerAvailable checks if Docker is available and running
func checkDockerAvailable() bool {
	cmd := exec.Command("docker", "info")
	return cmd.Run() == nil
}

// setupTestStore starts a PostgreSQL container and returns a migrated store.
// Skips the test if Docker is not available.
func setupTestStore(t *testing.T) *Store {
	if !checkDockerAvailable() {
		t.Skip("Docker is not available, skipping integration test")
	}

	ctx := context.Background()

	pgContainer, err := tcpostgres.Run(ctx,
		"postgres:15-alpine",
		tcpostgres.WithDatabase("testdb"),
		tcpostgres.WithUsername("testuser"),
		tcpostgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err)

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)

	s, err := New(ctx, pool)
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = s.Close()
		_ = pgContainer.Terminate(ctx)
	})
	return s
}

func TestPostgresStore(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	t.Run("migrations rerun cleanly", func(t *testing.T) {
		_, err := New(ctx, s.pool)
		require.NoError(t, err)

		var applied int
		require.NoError(t, s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM "+storage.MigrationTable).Scan(&applied))
		assert.Equal(t, 3, applied)
	})

	t.Run("unknown users read as zero records", func(t *testing.T) {
		rec, err := s.GetTyping(ctx, 404)
		require.NoError(t, err)
		assert.Equal(t, model.TypingRecord{UserID: 404}, rec)

		w, err := s.GetWallet(ctx, 404)
		require.NoError(t, err)
		assert.Equal(t, int64(0), w.Coins)

		st, err := s.GetDungeonStat(ctx, 404, "beginner")
		require.NoError(t, err)
		assert.Equal(t, 0, st.Clears)
	})

	t.Run("typing ranking", func(t *testing.T) {
		require.NoError(t, s.UpsertPlayer(ctx, model.Player{UserID: 1, Username: "alice"}))
		require.NoError(t, s.PutTyping(ctx, model.TypingRecord{UserID: 1, BestTime: 4.25}))
		require.NoError(t, s.PutTyping(ctx, model.TypingRecord{UserID: 2, BestTime: 3.5}))

		ranks, err := s.TypingRanking(ctx, 0, 10)
		require.NoError(t, err)
		require.Len(t, ranks, 2)
		assert.Equal(t, int64(2), ranks[0].UserID)
		assert.Equal(t, "alice", ranks[1].Username)

		n, err := s.CountTyping(ctx)
		require.NoError(t, err)
		assert.Equal(t, 2, n)
	})

	t.Run("math and warnings", func(t *testing.T) {
		want := model.MathScore{UserID: 3, Score: 40, CorrectCount: 3, TotalCount: 4, Consecutive: 1, MaxConsecutive: 2}
		require.NoError(t, s.PutMath(ctx, want))
		got, err := s.GetMath(ctx, 3)
		require.NoError(t, err)
		assert.Equal(t, want, got)

		require.NoError(t, s.PutWarnings(ctx, model.WarningRecord{UserID: 3, Count: 2}))
		wr, err := s.GetWarnings(ctx, 3)
		require.NoError(t, err)
		assert.Equal(t, 2, wr.Count)
	})

	t.Run("economy", func(t *testing.T) {
		now := time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)
		require.NoError(t, s.PutWallet(ctx, model.Wallet{UserID: 4, Coins: 700, LastAttendance: now}))
		w, err := s.GetWallet(ctx, 4)
		require.NoError(t, err)
		assert.Equal(t, int64(700), w.Coins)
		assert.True(t, now.Equal(w.LastAttendance))

		require.NoError(t, s.AddItem(ctx, 4, "iron_sword"))
		require.NoError(t, s.AddItem(ctx, 4, "iron_sword"))
		items, err := s.Items(ctx, 4)
		require.NoError(t, err)
		assert.Equal(t, []string{"iron_sword", "iron_sword"}, items)

		require.NoError(t, s.PutDungeonStat(ctx, model.DungeonStat{UserID: 4, Dungeon: "slime", Clears: 2, Coins: 150}))
		require.NoError(t, s.PutDungeonStat(ctx, model.DungeonStat{UserID: 4, Dungeon: "beginner", Clears: 1, Coins: 60}))
		total, err := s.DungeonRanking(ctx, storage.AllDungeons, model.OrderByCoins, 0)
		require.NoError(t, err)
		require.NotEmpty(t, total)
		assert.Equal(t, int64(210), total[0].Coins)
		assert.Equal(t, 3, total[0].Clears)

		one, err := s.DungeonRanking(ctx, "slime", model.OrderByClears, 5)
		require.NoError(t, err)
		require.Len(t, one, 1)
		assert.Equal(t, 2, one[0].Clears)
	})

	t.Run("roles", func(t *testing.T) {
		granted, err := s.GrantRole(ctx, 5, "warned")
		require.NoError(t, err)
		assert.True(t, granted)

		granted, err = s.GrantRole(ctx, 5, "warned")
		require.NoError(t, err)
		assert.False(t, granted)

		has, err := s.HasRole(ctx, 5, "warned")
		require.NoError(t, err)
		assert.True(t, has)

		revoked, err := s.RevokeRole(ctx, 5, "warned")
		require.NoError(t, err)
		assert.True(t, revoked)

		roles, err := s.Roles(ctx, 5)
		require.NoError(t, err)
		assert.Empty(t, roles)
	})
}
