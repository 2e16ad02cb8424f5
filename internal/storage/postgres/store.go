// Package postgres provides the PostgreSQL-backed store.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"chat-arcade-bot/internal/config"
	"chat-arcade-bot/internal/model"
	"chat-arcade-bot/internal/pkg/db"
	"chat-arcade-bot/internal/storage"
	"chat-arcade-bot/internal/storage/postgres/migrations"
)

// Store persists bot state in PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
}

var _ storage.Store = (*Store)(nil)

// Open connects to PostgreSQL and applies embedded migrations.
func Open(ctx context.Context, cfg *config.DatabaseConfig) (*Store, error) {
	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		return nil, err
	}
	s, err := New(ctx, pool)
	if err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

// New wraps an existing pool and applies embedded migrations.
func New(ctx context.Context, pool *pgxpool.Pool) (*Store, error) {
	if err := db.Migrate(ctx, pool, migrations.FS); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return &Store{pool: pool}, nil
}

// Close closes the connection pool.
func (s *Store) Close() error {
	if s.pool != nil {
		s.pool.Close()
		log.Info().Msg("PostgreSQL connection pool closed")
	}
	return nil
}

// UpsertPlayer stores the latest display name of a user.
func (s *Store) UpsertPlayer(ctx context.Context, p model.Player) error {
	const query = `
		INSERT INTO players (user_id, username, updated_at) VALUES ($1, $2, NOW())
		ON CONFLICT (user_id) DO UPDATE SET username = EXCLUDED.username, updated_at = NOW()
	`
	if _, err := s.pool.Exec(ctx, query, p.UserID, p.Username); err != nil {
		return fmt.Errorf("failed to upsert player: %w", err)
	}
	return nil
}

// GetTyping returns the typing record of a user.
func (s *Store) GetTyping(ctx context.Context, userID int64) (model.TypingRecord, error) {
	rec := model.TypingRecord{UserID: userID}
	err := s.pool.QueryRow(ctx, `SELECT best_time FROM typing_records WHERE user_id = $1`, userID).Scan(&rec.BestTime)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return rec, fmt.Errorf("failed to get typing record: %w", err)
	}
	return rec, nil
}

// PutTyping replaces the typing record of a user.
func (s *Store) PutTyping(ctx context.Context, rec model.TypingRecord) error {
	const query = `
		INSERT INTO typing_records (user_id, best_time) VALUES ($1, $2)
		ON CONFLICT (user_id) DO UPDATE SET best_time = EXCLUDED.best_time
	`
	if _, err := s.pool.Exec(ctx, query, rec.UserID, rec.BestTime); err != nil {
		return fmt.Errorf("failed to put typing record: %w", err)
	}
	return nil
}

// TypingRanking lists recorded best times, fastest first.
func (s *Store) TypingRanking(ctx context.Context, offset, limit int) ([]model.TypingRank, error) {
	const query = `
		SELECT t.user_id, COALESCE(p.username, ''), t.best_time
		FROM typing_records t
		LEFT JOIN players p ON p.user_id = t.user_id
		WHERE t.best_time > 0
		ORDER BY t.best_time ASC, t.user_id ASC
		LIMIT $1 OFFSET $2
	`
	rows, err := s.pool.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query typing ranking: %w", err)
	}
	defer rows.Close()

	var ranks []model.TypingRank
	for rows.Next() {
		r := model.TypingRank{Rank: offset + len(ranks) + 1}
		if err := rows.Scan(&r.UserID, &r.Username, &r.BestTime); err != nil {
			return nil, fmt.Errorf("failed to scan typing rank: %w", err)
		}
		ranks = append(ranks, r)
	}
	return ranks, rows.Err()
}

// CountTyping counts users with a recorded time.
func (s *Store) CountTyping(ctx context.Context) (int, error) {
	var n int
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM typing_records WHERE best_time > 0`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count typing records: %w", err)
	}
	return n, nil
}

// GetWarnings returns the warning record of a user.
func (s *Store) GetWarnings(ctx context.Context, userID int64) (model.WarningRecord, error) {
	rec := model.WarningRecord{UserID: userID}
	err := s.pool.QueryRow(ctx, `SELECT count FROM warnings WHERE user_id = $1`, userID).Scan(&rec.Count)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return rec, fmt.Errorf("failed to get warnings: %w", err)
	}
	return rec, nil
}

// PutWarnings replaces the warning record of a user.
func (s *Store) PutWarnings(ctx context.Context, rec model.WarningRecord) error {
	const query = `
		INSERT INTO warnings (user_id, count) VALUES ($1, $2)
		ON CONFLICT (user_id) DO UPDATE SET count = EXCLUDED.count
	`
	if _, err := s.pool.Exec(ctx, query, rec.UserID, rec.Count); err != nil {
		return fmt.Errorf("failed to put warnings: %w", err)
	}
	return nil
}

// GetMath returns the math counters of a user.
func (s *Store) GetMath(ctx context.Context, userID int64) (model.MathScore, error) {
	const query = `
		SELECT score, correct_count, total_count, consecutive, max_consecutive
		FROM math_scores WHERE user_id = $1
	`
	rec := model.MathScore{UserID: userID}
	err := s.pool.QueryRow(ctx, query, userID).Scan(
		&rec.Score,
		&rec.CorrectCount,
		&rec.TotalCount,
		&rec.Consecutive,
		&rec.MaxConsecutive,
	)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return rec, fmt.Errorf("failed to get math score: %w", err)
	}
	return rec, nil
}

// PutMath replaces the math counters of a user.
func (s *Store) PutMath(ctx context.Context, rec model.MathScore) error {
	const query = `
		INSERT INTO math_scores (user_id, score, correct_count, total_count, consecutive, max_consecutive)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (user_id) DO UPDATE SET
			score = EXCLUDED.score,
			correct_count = EXCLUDED.correct_count,
			total_count = EXCLUDED.total_count,
			consecutive = EXCLUDED.consecutive,
			max_consecutive = EXCLUDED.max_consecutive
	`
	_, err := s.pool.Exec(ctx, query,
		rec.UserID, rec.Score, rec.CorrectCount, rec.TotalCount, rec.Consecutive, rec.MaxConsecutive)
	if err != nil {
		return fmt.Errorf("failed to put math score: %w", err)
	}
	return nil
}

// MathRanking lists the highest scores first.
func (s *Store) MathRanking(ctx context.Context, limit int) ([]model.MathRank, error) {
	const query = `
		SELECT m.user_id, COALESCE(p.username, ''), m.score, m.correct_count
		FROM math_scores m
		LEFT JOIN players p ON p.user_id = m.user_id
		ORDER BY m.score DESC, m.user_id ASC
		LIMIT $1
	`
	rows, err := s.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query math ranking: %w", err)
	}
	defer rows.Close()

	var ranks []model.MathRank
	for rows.Next() {
		r := model.MathRank{Rank: len(ranks) + 1}
		if err := rows.Scan(&r.UserID, &r.Username, &r.Score, &r.Correct); err != nil {
			return nil, fmt.Errorf("failed to scan math rank: %w", err)
		}
		ranks = append(ranks, r)
	}
	return ranks, rows.Err()
}

// GetWallet returns the wallet of a user.
func (s *Store) GetWallet(ctx context.Context, userID int64) (model.Wallet, error) {
	w := model.Wallet{UserID: userID}
	var last int64
	err := s.pool.QueryRow(ctx, `SELECT coins, last_attendance FROM wallets WHERE user_id = $1`, userID).Scan(&w.Coins, &last)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return w, nil
		}
		return w, fmt.Errorf("failed to get wallet: %w", err)
	}
	if last > 0 {
		w.LastAttendance = time.Unix(last, 0).UTC()
	}
	return w, nil
}

// PutWallet replaces the wallet of a user.
func (s *Store) PutWallet(ctx context.Context, w model.Wallet) error {
	const query = `
		INSERT INTO wallets (user_id, coins, last_attendance) VALUES ($1, $2, $3)
		ON CONFLICT (user_id) DO UPDATE SET coins = EXCLUDED.coins, last_attendance = EXCLUDED.last_attendance
	`
	var last int64
	if !w.LastAttendance.IsZero() {
		last = w.LastAttendance.Unix()
	}
	if _, err := s.pool.Exec(ctx, query, w.UserID, w.Coins, last); err != nil {
		return fmt.Errorf("failed to put wallet: %w", err)
	}
	return nil
}

// AddItem appends an item to the inventory of a user.
func (s *Store) AddItem(ctx context.Context, userID int64, item string) error {
	if _, err := s.pool.Exec(ctx, `INSERT INTO inventory (user_id, item) VALUES ($1, $2)`, userID, item); err != nil {
		return fmt.Errorf("failed to add item: %w", err)
	}
	return nil
}

// Items lists the inventory of a user in acquisition order.
func (s *Store) Items(ctx context.Context, userID int64) ([]string, error) {
	rows, err := s.pool.Query(ctx, `SELECT item FROM inventory WHERE user_id = $1 ORDER BY id ASC`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query inventory: %w", err)
	}
	items, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("failed to scan inventory: %w", err)
	}
	return items, nil
}

// GetDungeonStat returns the stats of a user for one dungeon.
func (s *Store) GetDungeonStat(ctx context.Context, userID int64, dungeon string) (model.DungeonStat, error) {
	st := model.DungeonStat{UserID: userID, Dungeon: dungeon}
	err := s.pool.QueryRow(ctx,
		`SELECT clears, fails, coins FROM dungeon_stats WHERE user_id = $1 AND dungeon = $2`,
		userID, dungeon,
	).Scan(&st.Clears, &st.Fails, &st.Coins)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return st, fmt.Errorf("failed to get dungeon stat: %w", err)
	}
	return st, nil
}

// PutDungeonStat replaces the stats of a user for one dungeon.
func (s *Store) PutDungeonStat(ctx context.Context, st model.DungeonStat) error {
	const query = `
		INSERT INTO dungeon_stats (user_id, dungeon, clears, fails, coins) VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id, dungeon) DO UPDATE SET
			clears = EXCLUDED.clears, fails = EXCLUDED.fails, coins = EXCLUDED.coins
	`
	if _, err := s.pool.Exec(ctx, query, st.UserID, st.Dungeon, st.Clears, st.Fails, st.Coins); err != nil {
		return fmt.Errorf("failed to put dungeon stat: %w", err)
	}
	return nil
}

// DungeonRanking orders users by clears or coins.
func (s *Store) DungeonRanking(ctx context.Context, dungeon string, order model.DungeonOrder, limit int) ([]model.DungeonRank, error) {
	orderBy := "clears DESC, coins DESC"
	if order == model.OrderByCoins {
		orderBy = "coins DESC, clears DESC"
	}

	var (
		where string
		args  []any
	)
	if dungeon != storage.AllDungeons {
		args = append(args, dungeon)
		where = "WHERE d.dungeon = $1"
	}

	query := `
		SELECT d.user_id, COALESCE(MAX(p.username), ''), SUM(d.clears)::BIGINT AS clears, SUM(d.coins)::BIGINT AS coins
		FROM dungeon_stats d
		LEFT JOIN players p ON p.user_id = d.user_id
		` + where + `
		GROUP BY d.user_id
		ORDER BY ` + orderBy + `, d.user_id ASC`
	if limit > 0 {
		args = append(args, limit)
		query += " LIMIT $" + strconv.Itoa(len(args))
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query dungeon ranking: %w", err)
	}
	defer rows.Close()

	var ranks []model.DungeonRank
	for rows.Next() {
		r := model.DungeonRank{Rank: len(ranks) + 1}
		if err := rows.Scan(&r.UserID, &r.Username, &r.Clears, &r.Coins); err != nil {
			return nil, fmt.Errorf("failed to scan dungeon rank: %w", err)
		}
		ranks = append(ranks, r)
	}
	return ranks, rows.Err()
}

// HasRole reports whether a user holds a role.
func (s *Store) HasRole(ctx context.Context, userID int64, role string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM member_roles WHERE user_id = $1 AND role = $2)`,
		userID, role,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check role: %w", err)
	}
	return exists, nil
}

// GrantRole grants a role and reports whether it was new.
func (s *Store) GrantRole(ctx context.Context, userID int64, role string) (bool, error) {
	tag, err := s.pool.Exec(ctx,
		`INSERT INTO member_roles (user_id, role) VALUES ($1, $2) ON CONFLICT (user_id, role) DO NOTHING`,
		userID, role)
	if err != nil {
		return false, fmt.Errorf("failed to grant role: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// RevokeRole removes a role and reports whether it was held.
func (s *Store) RevokeRole(ctx context.Context, userID int64, role string) (bool, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM member_roles WHERE user_id = $1 AND role = $2`, userID, role)
	if err != nil {
		return false, fmt.Errorf("failed to revoke role: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// Roles lists the roles of a user.
func (s *Store) Roles(ctx context.Context, userID int64) ([]string, error) {
	rows, err := s.pool.Query(ctx, `SELECT role FROM member_roles WHERE user_id = $1 ORDER BY role ASC`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query roles: %w", err)
	}
	roles, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("failed to scan roles: %w", err)
	}
	return roles, nil
}
