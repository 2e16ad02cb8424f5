// Package rps implements rock-paper-scissors matches between two players.
package rps

import (
	"time"

	"chat-arcade-bot/internal/session"
)

// Move is a hand shape.
type Move string

// Moves.
const (
	Rock     Move = "rock"
	Paper    Move = "paper"
	Scissors Move = "scissors"
)

// Moves lists the hand shapes in button order.
var Moves = []Move{Scissors, Rock, Paper}

// beats maps each move to the move it defeats.
var beats = map[Move]Move{
	Rock:     Scissors,
	Scissors: Paper,
	Paper:    Rock,
}

// ParseMove validates a move name.
func ParseMove(s string) (Move, bool) {
	m := Move(s)
	_, ok := beats[m]
	return m, ok
}

// Beats reports whether a defeats b.
func Beats(a, b Move) bool {
	return beats[a] == b
}

// Emoji returns the display glyph of a move.
func (m Move) Emoji() string {
	switch m {
	case Rock:
		return "✊"
	case Paper:
		return "✋"
	case Scissors:
		return "✌️"
	default:
		return "?"
	}
}

// Button actions.
const (
	ActionAccept  = "accept"
	ActionDecline = "decline"
	ActionMove    = "move"
)

// Invited is reported when the challenge waits for the opponent.
type Invited struct {
	Challenger session.Player
	Opponent   session.Player
}

// Started is reported when both players can pick.
type Started struct{}

// Declined is reported when the opponent refuses.
type Declined struct {
	By session.Player
}

// InviteExpired is reported when the opponent never answered.
type InviteExpired struct{}

// MoveRecorded is reported for a pick while the other player is still choosing.
type MoveRecorded struct {
	Player session.Player
	Move   Move
}

// Result is reported when both moves are in. Winner is nil on a draw.
type Result struct {
	Challenger     session.Player
	Opponent       session.Player
	ChallengerMove Move
	OpponentMove   Move
	Winner         *session.Player
}

// Draw reports whether nobody won.
func (r Result) Draw() bool { return r.Winner == nil }

// TimedOut is reported when a player never picked.
type TimedOut struct {
	Missing []session.Player
}

// Match is one rock-paper-scissors game.
type Match struct {
	challenger session.Player
	opponent   session.Player
	invite     time.Duration
	moveWindow time.Duration

	accepted bool
	moves    map[int64]Move
}

// NewChallenge creates a match the opponent has to accept.
func NewChallenge(challenger, opponent session.Player, invite, moveWindow time.Duration) *Match {
	return &Match{
		challenger: challenger,
		opponent:   opponent,
		invite:     invite,
		moveWindow: moveWindow,
		moves:      make(map[int64]Move, 2),
	}
}

// NewRematch creates a match that starts accepted.
func NewRematch(challenger, opponent session.Player, moveWindow time.Duration) *Match {
	m := NewChallenge(challenger, opponent, 0, moveWindow)
	m.accepted = true
	return m
}

// Accepted reports whether players can pick.
func (m *Match) Accepted() bool { return m.accepted }

// Picked reports whether a player already chose.
func (m *Match) Picked(id int64) bool {
	_, ok := m.moves[id]
	return ok
}

func (m *Match) Kind() session.Kind { return session.KindRPSMatch }

func (m *Match) Participants() []session.Player {
	return []session.Player{m.challenger, m.opponent}
}

func (m *Match) Begin(time.Time) session.Verdict {
	if m.accepted {
		return session.Verdict{Accepted: true, Next: session.StateAwaitingInput, Outcome: Started{}, Timer: m.moveWindow}
	}
	return session.Verdict{
		Accepted: true,
		Next:     session.StateCreated,
		Outcome:  Invited{Challenger: m.challenger, Opponent: m.opponent},
		Timer:    m.invite,
	}
}

func (m *Match) HandleMessage(session.Message) session.Verdict {
	return session.Ignore()
}

func (m *Match) HandleButton(b session.Button) session.Verdict {
	switch b.Action {
	case ActionAccept, ActionDecline:
		if m.accepted || b.Actor.ID != m.opponent.ID {
			return session.Ignore()
		}
		if b.Action == ActionDecline {
			return session.Verdict{Accepted: true, Next: session.StateCancelled, Outcome: Declined{By: b.Actor}}
		}
		m.accepted = true
		return session.Verdict{Accepted: true, Next: session.StateAwaitingInput, Outcome: Started{}, Timer: m.moveWindow}

	case ActionMove:
		if !m.accepted || (b.Actor.ID != m.challenger.ID && b.Actor.ID != m.opponent.ID) {
			return session.Ignore()
		}
		move, ok := ParseMove(b.Arg)
		if !ok {
			return session.Ignore()
		}
		m.moves[b.Actor.ID] = move
		if len(m.moves) < 2 {
			return session.Verdict{
				Accepted: true,
				Next:     session.StateAwaitingInput,
				Outcome:  MoveRecorded{Player: b.Actor, Move: move},
			}
		}
		return session.Verdict{Accepted: true, Next: session.StateResolved, Outcome: m.result()}
	}
	return session.Ignore()
}

func (m *Match) result() Result {
	r := Result{
		Challenger:     m.challenger,
		Opponent:       m.opponent,
		ChallengerMove: m.moves[m.challenger.ID],
		OpponentMove:   m.moves[m.opponent.ID],
	}
	switch {
	case Beats(r.ChallengerMove, r.OpponentMove):
		r.Winner = &r.Challenger
	case Beats(r.OpponentMove, r.ChallengerMove):
		r.Winner = &r.Opponent
	}
	return r
}

func (m *Match) HandleTimeout(time.Time) session.Verdict {
	if !m.accepted {
		return session.Verdict{Accepted: true, Next: session.StateCancelled, Outcome: InviteExpired{}}
	}
	var missing []session.Player
	for _, p := range m.Participants() {
		if !m.Picked(p.ID) {
			missing = append(missing, p)
		}
	}
	return session.Verdict{Accepted: true, Next: session.StateTimedOut, Outcome: TimedOut{Missing: missing}}
}
