package router

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"chat-arcade-bot/internal/platform"
)

// TypingRankView renders one page of the typing leaderboard with paging buttons.
func (r *Router) TypingRankView(ctx context.Context, page int) (platform.Message, error) {
	p, err := r.ranking.GetTypingPage(ctx, page)
	if err != nil {
		return platform.Message{}, err
	}

	var sb strings.Builder
	sb.WriteString("⌨️ Typing Ranking\n")
	sb.WriteString("━━━━━━━━━━━━━━━\n")
	if len(p.Entries) == 0 {
		sb.WriteString("No finished races yet.\n")
	}
	for _, e := range p.Entries {
		sb.WriteString(fmt.Sprintf("%s %s  %.2fs\n", Medal(e.Rank), DisplayName(e.Username, e.UserID), e.BestTime))
	}
	sb.WriteString("━━━━━━━━━━━━━━━\n")
	sb.WriteString(fmt.Sprintf("Page %d/%d", p.Page, p.Pages))

	var row []platform.Button
	if p.HasPrev() {
		row = append(row, platform.Button{Label: "◀", Data: platform.Callback(PrefixRank, RankTyping, strconv.Itoa(p.Page-1))})
	}
	if p.HasNext() {
		row = append(row, platform.Button{Label: "▶", Data: platform.Callback(PrefixRank, RankTyping, strconv.Itoa(p.Page+1))})
	}
	msg := platform.Message{Text: sb.String()}
	if len(row) > 0 {
		msg.Keyboard = platform.Keyboard{row}
	}
	return msg, nil
}

// RoleOption is one self-service role button.
type RoleOption struct {
	Label string
	Role  string
}

// RolePanel renders toggle buttons for self-service roles, two per row.
func RolePanel(title string, options []RoleOption) platform.Message {
	buttons := make([]platform.Button, len(options))
	for i, o := range options {
		buttons[i] = platform.Button{Label: o.Label, Data: platform.Callback(PrefixRole, o.Role)}
	}
	return platform.Message{
		Text:     "🏷 " + title + "\nPress a button to add or remove the role.",
		Keyboard: platform.Grid(buttons, 2),
	}
}

// Medal renders a leaderboard position.
func Medal(rank int) string {
	switch rank {
	case 1:
		return "🥇"
	case 2:
		return "🥈"
	case 3:
		return "🥉"
	}
	return strconv.Itoa(rank) + "."
}

// DisplayName falls back to the user id when no name is known.
func DisplayName(username string, userID int64) string {
	if username == "" {
		return "user " + strconv.FormatInt(userID, 10)
	}
	return username
}
