package service

import (
	"context"
	"fmt"

	"chat-arcade-bot/internal/game/dungeon"
	"chat-arcade-bot/internal/model"
	"chat-arcade-bot/internal/storage"
)

// DungeonBoardSize is the number of leaderboard rows shown per dungeon board.
const DungeonBoardSize = 10

// RankingStore is the persistence RankingService needs.
type RankingStore interface {
	storage.TypingStore
	storage.MathStore
	storage.DungeonStore
}

// TypingPage is one page of the typing leaderboard. Pages are 1-based.
type TypingPage struct {
	Entries []model.TypingRank
	Page    int
	Pages   int
	Total   int
}

// HasPrev reports whether an earlier page exists.
func (p TypingPage) HasPrev() bool { return p.Page > 1 }

// HasNext reports whether a later page exists.
func (p TypingPage) HasNext() bool { return p.Page < p.Pages }

// DungeonBoard is a dungeon leaderboard with the caller's own row.
type DungeonBoard struct {
	// Dungeon is the display name, or empty for all dungeons combined.
	Dungeon string
	Order   model.DungeonOrder
	Entries []model.DungeonRank
	Mine    *model.DungeonRank
}

// RankingService handles leaderboards.
type RankingService struct {
	store    RankingStore
	pageSize int
}

// NewRankingService creates a new RankingService instance.
func NewRankingService(store RankingStore, pageSize int) *RankingService {
	if pageSize <= 0 {
		pageSize = 10
	}
	return &RankingService{store: store, pageSize: pageSize}
}

// GetTypingPage returns the requested page, clamped into the valid range.
func (s *RankingService) GetTypingPage(ctx context.Context, page int) (TypingPage, error) {
	total, err := s.store.CountTyping(ctx)
	if err != nil {
		return TypingPage{}, fmt.Errorf("failed to count typing records: %w", err)
	}
	pages := max(1, (total+s.pageSize-1)/s.pageSize)
	page = min(max(page, 1), pages)

	entries, err := s.store.TypingRanking(ctx, (page-1)*s.pageSize, s.pageSize)
	if err != nil {
		return TypingPage{}, fmt.Errorf("failed to get typing ranking: %w", err)
	}
	return TypingPage{Entries: entries, Page: page, Pages: pages, Total: total}, nil
}

// GetMathTop returns the math leaderboard.
func (s *RankingService) GetMathTop(ctx context.Context) ([]model.MathRank, error) {
	ranks, err := s.store.MathRanking(ctx, MathRankingSize)
	if err != nil {
		return nil, fmt.Errorf("failed to get math ranking: %w", err)
	}
	return ranks, nil
}

// GetDungeonBoard ranks users in one dungeon, or across all dungeons when
// name is "all" or empty, and locates userID in the full ranking.
func (s *RankingService) GetDungeonBoard(ctx context.Context, userID int64, name string, order model.DungeonOrder) (DungeonBoard, error) {
	if order != model.OrderByCoins {
		order = model.OrderByClears
	}
	board := DungeonBoard{Order: order}

	key := storage.AllDungeons
	if name != "" && name != "all" {
		d, ok := dungeon.Find(name)
		if !ok {
			return board, ErrDungeonNotFound
		}
		key, board.Dungeon = d.Key, d.Name
	}

	all, err := s.store.DungeonRanking(ctx, key, order, 0)
	if err != nil {
		return board, fmt.Errorf("failed to get dungeon ranking: %w", err)
	}
	board.Entries = all[:min(len(all), DungeonBoardSize)]
	for i := range all {
		if all[i].UserID == userID {
			mine := all[i]
			board.Mine = &mine
			break
		}
	}
	return board, nil
}
