// Package model defines the persisted records of the arcade bot.
package model

import "time"

// Player is the display name last seen for a user, used by leaderboards.
type Player struct {
	UserID   int64  `db:"user_id"`
	Username string `db:"username"`
}

// TypingRecord holds a user's best typing race time in seconds.
// Zero means no finished race yet.
type TypingRecord struct {
	UserID   int64   `db:"user_id"`
	BestTime float64 `db:"best_time"`
}

// HasTime reports whether the user ever finished a race.
func (r TypingRecord) HasTime() bool {
	return r.BestTime > 0
}

// WarningRecord holds a user's moderation warning count. Never negative.
type WarningRecord struct {
	UserID int64 `db:"user_id"`
	Count  int   `db:"count"`
}

// MathScore holds arithmetic quiz counters.
type MathScore struct {
	UserID         int64 `db:"user_id"`
	Score          int   `db:"score"`
	CorrectCount   int   `db:"correct_count"`
	TotalCount     int   `db:"total_count"`
	Consecutive    int   `db:"consecutive"`
	MaxConsecutive int   `db:"max_consecutive"`
}

// Accuracy returns the percentage of correct answers.
func (m MathScore) Accuracy() float64 {
	if m.TotalCount == 0 {
		return 0
	}
	return float64(m.CorrectCount) / float64(m.TotalCount) * 100
}

// Wallet holds a user's coin balance and last attendance check.
type Wallet struct {
	UserID         int64     `db:"user_id"`
	Coins          int64     `db:"coins"`
	LastAttendance time.Time `db:"last_attendance"`
}

// DungeonStat holds per-dungeon counters for a user.
type DungeonStat struct {
	UserID  int64  `db:"user_id"`
	Dungeon string `db:"dungeon"`
	Clears  int    `db:"clears"`
	Fails   int    `db:"fails"`
	Coins   int64  `db:"coins"`
}

// TypingRank is a typing leaderboard row.
type TypingRank struct {
	Rank     int
	UserID   int64
	Username string
	BestTime float64
}

// MathRank is a math leaderboard row.
type MathRank struct {
	Rank     int
	UserID   int64
	Username string
	Score    int
	Correct  int
}

// DungeonRank is a dungeon leaderboard row. Coins and Clears are summed
// across dungeons when the ranking covers all of them.
type DungeonRank struct {
	Rank     int
	UserID   int64
	Username string
	Clears   int
	Coins    int64
}

// DungeonOrder selects the dungeon leaderboard ordering.
type DungeonOrder string

// Dungeon leaderboard orderings.
const (
	OrderByClears DungeonOrder = "clears"
	OrderByCoins  DungeonOrder = "coins"
)
