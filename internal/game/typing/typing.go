// Package typing implements the typing race session: solo against the clock
// or a duel that the challenged user has to accept first.
package typing

import (
	"math"
	"math/rand"
	"time"

	"chat-arcade-bot/internal/session"
)

// Button actions.
const (
	ActionAccept  = "accept"
	ActionDecline = "decline"
)

// Invited is reported when a duel waits for the opponent.
type Invited struct {
	Challenger session.Player
	Opponent   session.Player
}

// Started is reported when the round clock starts.
type Started struct {
	Target string
}

// Declined is reported when the opponent refuses the duel.
type Declined struct {
	By session.Player
}

// InviteExpired is reported when the opponent never answered.
type InviteExpired struct{}

// Finished is reported for the first exact match.
type Finished struct {
	Winner  session.Player
	Elapsed float64
}

// TimedOut is reported when nobody typed the target in time.
type TimedOut struct {
	Target string
}

// Race is a typing race.
type Race struct {
	target     string
	challenger session.Player
	opponent   *session.Player
	round      time.Duration
	invite     time.Duration

	started   bool
	startedAt time.Time
}

// NewSolo creates a race for a single player.
func NewSolo(p session.Player, target string, round time.Duration) *Race {
	return &Race{target: target, challenger: p, round: round}
}

// NewDuel creates a race that starts once opponent accepts.
func NewDuel(challenger, opponent session.Player, target string, round, invite time.Duration) *Race {
	return &Race{
		target:     target,
		challenger: challenger,
		opponent:   &opponent,
		round:      round,
		invite:     invite,
	}
}

// PickText chooses a target sentence.
func PickText(texts []string) string {
	if len(texts) == 0 {
		return ""
	}
	return texts[rand.Intn(len(texts))]
}

// Target returns the sentence to type.
func (r *Race) Target() string { return r.target }

// Solo reports whether the race has a single player.
func (r *Race) Solo() bool { return r.opponent == nil }

// Started reports whether the round clock runs.
func (r *Race) Started() bool { return r.started }

func (r *Race) Kind() session.Kind { return session.KindTypingRace }

func (r *Race) Participants() []session.Player {
	if r.opponent == nil {
		return []session.Player{r.challenger}
	}
	return []session.Player{r.challenger, *r.opponent}
}

func (r *Race) Begin(now time.Time) session.Verdict {
	if r.opponent == nil {
		return r.start(now)
	}
	return session.Verdict{
		Accepted: true,
		Next:     session.StateCreated,
		Outcome:  Invited{Challenger: r.challenger, Opponent: *r.opponent},
		Timer:    r.invite,
	}
}

func (r *Race) start(now time.Time) session.Verdict {
	r.started = true
	r.startedAt = now
	return session.Verdict{
		Accepted: true,
		Next:     session.StateAwaitingInput,
		Outcome:  Started{Target: r.target},
		Timer:    r.round,
	}
}

func (r *Race) HandleButton(b session.Button) session.Verdict {
	if r.started || r.opponent == nil || b.Actor.ID != r.opponent.ID {
		return session.Ignore()
	}
	switch b.Action {
	case ActionAccept:
		return r.start(b.At)
	case ActionDecline:
		return session.Verdict{Accepted: true, Next: session.StateCancelled, Outcome: Declined{By: b.Actor}}
	default:
		return session.Ignore()
	}
}

func (r *Race) HandleMessage(m session.Message) session.Verdict {
	if !r.started || !r.isParticipant(m.Author.ID) || m.Content != r.target {
		return session.Ignore()
	}
	elapsed := m.At.Sub(r.startedAt).Seconds()
	if elapsed < 0 {
		elapsed = 0
	}
	return session.Verdict{
		Accepted: true,
		Next:     session.StateResolved,
		Outcome:  Finished{Winner: m.Author, Elapsed: math.Round(elapsed*100) / 100},
	}
}

func (r *Race) HandleTimeout(time.Time) session.Verdict {
	if !r.started {
		return session.Verdict{Accepted: true, Next: session.StateCancelled, Outcome: InviteExpired{}}
	}
	return session.Verdict{Accepted: true, Next: session.StateTimedOut, Outcome: TimedOut{Target: r.target}}
}

func (r *Race) isParticipant(id int64) bool {
	if id == r.challenger.ID {
		return true
	}
	return r.opponent != nil && id == r.opponent.ID
}
