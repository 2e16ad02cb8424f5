// Package sqlite provides the SQLite-backed store used for single-host deployments.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"

	"chat-arcade-bot/internal/model"
	"chat-arcade-bot/internal/storage"
	"chat-arcade-bot/internal/storage/sqlite/migrations"
)

// Store persists bot state in a single SQLite file.
type Store struct {
	sqlDB *sql.DB
}

var _ storage.Store = (*Store)(nil)

// Open opens the SQLite file at path, creating its directory if needed, and
// applies embedded migrations.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	cleanPath := filepath.Clean(path)
	if dir := filepath.Dir(cleanPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create storage dir: %w", err)
		}
	}

	dsn := cleanPath + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// SQLite allows a single writer.
	sqlDB.SetMaxOpenConns(1)

	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := applyMigrations(sqlDB); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	log.Info().Str("path", cleanPath).Msg("SQLite store opened")
	return &Store{sqlDB: sqlDB}, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

func applyMigrations(sqlDB *sql.DB) error {
	createSQL := fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
    name TEXT PRIMARY KEY,
    applied_at INTEGER NOT NULL
);`, storage.MigrationTable)
	if _, err := sqlDB.Exec(createSQL); err != nil {
		return fmt.Errorf("ensure migration table: %w", err)
	}

	files, err := storage.LoadMigrations(migrations.FS)
	if err != nil {
		return err
	}

	for _, m := range files {
		var found int
		err := sqlDB.QueryRow("SELECT 1 FROM "+storage.MigrationTable+" WHERE name = ?", m.Name).Scan(&found)
		if err == nil {
			continue
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("check migration %s: %w", m.Name, err)
		}

		tx, err := sqlDB.Begin()
		if err != nil {
			return fmt.Errorf("begin migration %s: %w", m.Name, err)
		}
		if _, err := tx.Exec(m.Up); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("exec migration %s: %w", m.Name, err)
		}
		if _, err := tx.Exec(
			"INSERT INTO "+storage.MigrationTable+" (name, applied_at) VALUES (?, ?)",
			m.Name, time.Now().UTC().UnixMilli(),
		); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("record migration %s: %w", m.Name, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %s: %w", m.Name, err)
		}
		log.Debug().Str("migration", m.Name).Msg("Applied SQLite migration")
	}
	return nil
}

// UpsertPlayer stores the latest display name of a user.
func (s *Store) UpsertPlayer(ctx context.Context, p model.Player) error {
	const query = `
		INSERT INTO players (user_id, username, updated_at) VALUES (?, ?, ?)
		ON CONFLICT (user_id) DO UPDATE SET username = excluded.username, updated_at = excluded.updated_at
	`
	if _, err := s.sqlDB.ExecContext(ctx, query, p.UserID, p.Username, time.Now().UTC().UnixMilli()); err != nil {
		return fmt.Errorf("failed to upsert player: %w", err)
	}
	return nil
}

// GetTyping returns the typing record of a user.
func (s *Store) GetTyping(ctx context.Context, userID int64) (model.TypingRecord, error) {
	rec := model.TypingRecord{UserID: userID}
	err := s.sqlDB.QueryRowContext(ctx, `SELECT best_time FROM typing_records WHERE user_id = ?`, userID).Scan(&rec.BestTime)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return rec, fmt.Errorf("failed to get typing record: %w", err)
	}
	return rec, nil
}

// PutTyping replaces the typing record of a user.
func (s *Store) PutTyping(ctx context.Context, rec model.TypingRecord) error {
	const query = `
		INSERT INTO typing_records (user_id, best_time) VALUES (?, ?)
		ON CONFLICT (user_id) DO UPDATE SET best_time = excluded.best_time
	`
	if _, err := s.sqlDB.ExecContext(ctx, query, rec.UserID, rec.BestTime); err != nil {
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
		LIMIT ? OFFSET ?
	`
	rows, err := s.sqlDB.QueryContext(ctx, query, limit, offset)
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
	if err := s.sqlDB.QueryRowContext(ctx, `SELECT COUNT(*) FROM typing_records WHERE best_time > 0`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count typing records: %w", err)
	}
	return n, nil
}

// GetWarnings returns the warning record of a user.
func (s *Store) GetWarnings(ctx context.Context, userID int64) (model.WarningRecord, error) {
	rec := model.WarningRecord{UserID: userID}
	err := s.sqlDB.QueryRowContext(ctx, `SELECT count FROM warnings WHERE user_id = ?`, userID).Scan(&rec.Count)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return rec, fmt.Errorf("failed to get warnings: %w", err)
	}
	return rec, nil
}

// PutWarnings replaces the warning record of a user.
func (s *Store) PutWarnings(ctx context.Context, rec model.WarningRecord) error {
	const query = `
		INSERT INTO warnings (user_id, count) VALUES (?, ?)
		ON CONFLICT (user_id) DO UPDATE SET count = excluded.count
	`
	if _, err := s.sqlDB.ExecContext(ctx, query, rec.UserID, rec.Count); err != nil {
		return fmt.Errorf("failed to put warnings: %w", err)
	}
	return nil
}

// GetMath returns the math counters of a user.
func (s *Store) GetMath(ctx context.Context, userID int64) (model.MathScore, error) {
	const query = `
		SELECT score, correct_count, total_count, consecutive, max_consecutive
		FROM math_scores WHERE user_id = ?
	`
	rec := model.MathScore{UserID: userID}
	err := s.sqlDB.QueryRowContext(ctx, query, userID).Scan(
		&rec.Score,
		&rec.CorrectCount,
		&rec.TotalCount,
		&rec.Consecutive,
		&rec.MaxConsecutive,
	)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return rec, fmt.Errorf("failed to get math score: %w", err)
	}
	return rec, nil
}

// PutMath replaces the math counters of a user.
func (s *Store) PutMath(ctx context.Context, rec model.MathScore) error {
	const query = `
		INSERT INTO math_scores (user_id, score, correct_count, total_count, consecutive, max_consecutive)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id) DO UPDATE SET
			score = excluded.score,
			correct_count = excluded.correct_count,
			total_count = excluded.total_count,
			consecutive = excluded.consecutive,
			max_consecutive = excluded.max_consecutive
	`
	_, err := s.sqlDB.ExecContext(ctx, query,
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
		LIMIT ?
	`
	rows, err := s.sqlDB.QueryContext(ctx, query, limit)
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
	err := s.sqlDB.QueryRowContext(ctx, `SELECT coins, last_attendance FROM wallets WHERE user_id = ?`, userID).Scan(&w.Coins, &last)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
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
		INSERT INTO wallets (user_id, coins, last_attendance) VALUES (?, ?, ?)
		ON CONFLICT (user_id) DO UPDATE SET coins = excluded.coins, last_attendance = excluded.last_attendance
	`
	var last int64
	if !w.LastAttendance.IsZero() {
		last = w.LastAttendance.Unix()
	}
	if _, err := s.sqlDB.ExecContext(ctx, query, w.UserID, w.Coins, last); err != nil {
		return fmt.Errorf("failed to put wallet: %w", err)
	}
	return nil
}

// AddItem appends an item to the inventory of a user.
func (s *Store) AddItem(ctx context.Context, userID int64, item string) error {
	_, err := s.sqlDB.ExecContext(ctx,
		`INSERT INTO inventory (user_id, item, created_at) VALUES (?, ?, ?)`,
		userID, item, time.Now().UTC().UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to add item: %w", err)
	}
	return nil
}

// Items lists the inventory of a user in acquisition order.
func (s *Store) Items(ctx context.Context, userID int64) ([]string, error) {
	rows, err := s.sqlDB.QueryContext(ctx, `SELECT item FROM inventory WHERE user_id = ? ORDER BY id ASC`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query inventory: %w", err)
	}
	defer rows.Close()

	var items []string
	for rows.Next() {
		var item string
		if err := rows.Scan(&item); err != nil {
			return nil, fmt.Errorf("failed to scan item: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// GetDungeonStat returns the stats of a user for one dungeon.
func (s *Store) GetDungeonStat(ctx context.Context, userID int64, dungeon string) (model.DungeonStat, error) {
	st := model.DungeonStat{UserID: userID, Dungeon: dungeon}
	err := s.sqlDB.QueryRowContext(ctx,
		`SELECT clears, fails, coins FROM dungeon_stats WHERE user_id = ? AND dungeon = ?`,
		userID, dungeon,
	).Scan(&st.Clears, &st.Fails, &st.Coins)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return st, fmt.Errorf("failed to get dungeon stat: %w", err)
	}
	return st, nil
}

// PutDungeonStat replaces the stats of a user for one dungeon.
func (s *Store) PutDungeonStat(ctx context.Context, st model.DungeonStat) error {
	const query = `
		INSERT INTO dungeon_stats (user_id, dungeon, clears, fails, coins) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (user_id, dungeon) DO UPDATE SET
			clears = excluded.clears, fails = excluded.fails, coins = excluded.coins
	`
	if _, err := s.sqlDB.ExecContext(ctx, query, st.UserID, st.Dungeon, st.Clears, st.Fails, st.Coins); err != nil {
		return fmt.Errorf("failed to put dungeon stat: %w", err)
	}
	return nil
}

// DungeonRanking orders users by clears or coins.
func (s *Store) DungeonRanking(ctx context.Context, dungeon string, order model.DungeonOrder, limit int) ([]model.DungeonRank, error) {
	query, args := dungeonRankingQuery(dungeon, order, limit)
	rows, err := s.sqlDB.QueryContext(ctx, query, args...)
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

func dungeonRankingQuery(dungeon string, order model.DungeonOrder, limit int) (string, []any) {
	orderBy := "clears DESC, coins DESC"
	if order == model.OrderByCoins {
		orderBy = "coins DESC, clears DESC"
	}

	var (
		where string
		args  []any
	)
	if dungeon != storage.AllDungeons {
		where = "WHERE d.dungeon = ?"
		args = append(args, dungeon)
	}

	query := `
		SELECT d.user_id, COALESCE(MAX(p.username), ''), SUM(d.clears) AS clears, SUM(d.coins) AS coins
		FROM dungeon_stats d
		LEFT JOIN players p ON p.user_id = d.user_id
		` + where + `
		GROUP BY d.user_id
		ORDER BY ` + orderBy + `, d.user_id ASC`
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	return query, args
}

// HasRole reports whether a user holds a role.
func (s *Store) HasRole(ctx context.Context, userID int64, role string) (bool, error) {
	var found int
	err := s.sqlDB.QueryRowContext(ctx, `SELECT 1 FROM member_roles WHERE user_id = ? AND role = ?`, userID, role).Scan(&found)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("failed to check role: %w", err)
	}
	return true, nil
}

// GrantRole grants a role and reports whether it was new.
func (s *Store) GrantRole(ctx context.Context, userID int64, role string) (bool, error) {
	res, err := s.sqlDB.ExecContext(ctx,
		`INSERT INTO member_roles (user_id, role, granted_at) VALUES (?, ?, ?) ON CONFLICT (user_id, role) DO NOTHING`,
		userID, role, time.Now().UTC().UnixMilli())
	if err != nil {
		return false, fmt.Errorf("failed to grant role: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to grant role: %w", err)
	}
	return n > 0, nil
}

// RevokeRole removes a role and reports whether it was held.
func (s *Store) RevokeRole(ctx context.Context, userID int64, role string) (bool, error) {
	res, err := s.sqlDB.ExecContext(ctx, `DELETE FROM member_roles WHERE user_id = ? AND role = ?`, userID, role)
	if err != nil {
		return false, fmt.Errorf("failed to revoke role: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to revoke role: %w", err)
	}
	return n > 0, nil
}

// Roles lists the roles of a user.
func (s *Store) Roles(ctx context.Context, userID int64) ([]string, error) {
	rows, err := s.sqlDB.QueryContext(ctx, `SELECT role FROM member_roles WHERE user_id = ? ORDER BY role ASC`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query roles: %w", err)
	}
	defer rows.Close()

	var roles []string
	for rows.Next() {
		var role string
		if err := rows.Scan(&role); err != nil {
			return nil, fmt.Errorf("failed to scan role: %w", err)
		}
		roles = append(roles, role)
	}
	return roles, rows.Err()
}
