// Package session implements the per-channel interactive session layer.
//
// A Registry holds at most one live Session per channel. Every transition of
// a session runs under the session's own mutex, and a terminal transition
// releases the registry entry while that mutex is held, so whichever event or
// timer commits first wins and every later one is a no-op.
package session

import (
	"fmt"
	"sync"
	"time"
)

// Kind identifies the game variant behind a session.
type Kind string

// Session kinds.
const (
	KindTypingRace     Kind = "typing_race"
	KindRPSMatch       Kind = "rps_match"
	KindMathQuiz       Kind = "math_quiz"
	KindVideoChallenge Kind = "video_challenge"
	KindAimTest        Kind = "aim_test"
)

// State is the coarse lifecycle shared by all kinds.
type State int

// Session states. Resolved, TimedOut and Cancelled are terminal.
const (
	StateCreated State = iota
	StateAwaitingInput
	StateResolved
	StateTimedOut
	StateCancelled
)

// Terminal reports whether no further transition is possible.
func (s State) Terminal() bool {
	return s == StateResolved || s == StateTimedOut || s == StateCancelled
}

func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateAwaitingInput:
		return "awaiting_input"
	case StateResolved:
		return "resolved"
	case StateTimedOut:
		return "timed_out"
	case StateCancelled:
		return "cancelled"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Player is a participant as seen by a game.
type Player struct {
	ID   int64
	Name string
}

// Message is a chat message delivered to a session.
type Message struct {
	ChannelID int64
	Author    Player
	Content   string
	At        time.Time
}

// Button is a button press addressed to a session. Action and Arg are the
// session-scoped parts of the callback data.
type Button struct {
	ChannelID int64
	Actor     Player
	Action    string
	Arg       string
	At        time.Time
}

// Verdict is a game's answer to an event.
type Verdict struct {
	// Accepted is false when the event was ignored; nothing else is read then.
	Accepted bool
	Next     State
	// Outcome is a kind-specific value describing what happened.
	Outcome any
	// Timer re-arms the session deadline when positive.
	Timer time.Duration
	// Seq is assigned when the verdict is applied and grows with every applied
	// verdict of the session. Renderers use it to drop out-of-order updates.
	Seq uint64
}

// Ignore is the verdict for events a game does not consume.
func Ignore() Verdict { return Verdict{} }

// Terminal reports whether the verdict ends the session.
func (v Verdict) Terminal() bool {
	return v.Accepted && v.Next.Terminal()
}

// Game is the kind-specific state machine behind a session. Its methods are
// always called with the session lock held.
type Game interface {
	Kind() Kind
	Participants() []Player
	Begin(now time.Time) Verdict
	HandleMessage(m Message) Verdict
	HandleButton(b Button) Verdict
	HandleTimeout(now time.Time) Verdict
}

// Session is one live interaction in a channel.
type Session struct {
	id        string
	token     string
	channelID int64
	createdAt time.Time
	registry  *Registry

	mu       sync.Mutex
	state    State
	deadline time.Time
	game     Game
	timer    *time.Timer
	gen      uint64
	seq      uint64
}

// ID returns the unique session id.
func (s *Session) ID() string { return s.id }

// Token returns the short id embedded in button callback data.
func (s *Session) Token() string { return s.token }

// ChannelID returns the owning channel.
func (s *Session) ChannelID() int64 { return s.channelID }

// CreatedAt returns when the session was created.
func (s *Session) CreatedAt() time.Time { return s.createdAt }

// Kind returns the game kind.
func (s *Session) Kind() Kind { return s.game.Kind() }

// Participants returns the players bound to the session.
func (s *Session) Participants() []Player { return s.game.Participants() }

// State returns the current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Deadline returns when the armed timer fires, or zero when none is armed.
func (s *Session) Deadline() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.timer == nil {
		return time.Time{}
	}
	return s.deadline
}

// Inspect runs fn with the game under the session lock. fn must not mutate.
func (s *Session) Inspect(fn func(Game)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.game)
}

// Deliver runs fn against the game and applies the verdict. ok is false when
// the session had already ended or the game ignored the event.
func (s *Session) Deliver(fn func(Game) Verdict) (v Verdict, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.Terminal() {
		return Verdict{}, false
	}
	v = fn(s.game)
	if !v.Accepted {
		return v, false
	}
	v.Seq = s.apply(v)
	return v, true
}

// Expire fires the currently armed timer immediately.
func (s *Session) Expire() (Verdict, bool) {
	s.mu.Lock()
	gen := s.gen
	armed := s.timer != nil
	s.mu.Unlock()
	if !armed {
		return Verdict{}, false
	}
	return s.registry.expire(s, gen)
}

// apply records a verdict and returns its sequence number. Caller holds s.mu.
func (s *Session) apply(v Verdict) uint64 {
	s.seq++
	s.state = v.Next
	if v.Next.Terminal() {
		s.stopTimer()
		s.registry.release(s)
		return s.seq
	}
	if v.Timer > 0 {
		s.arm(v.Timer)
	}
	return s.seq
}

// arm replaces any pending timer. Caller holds s.mu.
func (s *Session) arm(d time.Duration) {
	s.stopTimer()
	s.gen++
	gen := s.gen
	s.deadline = s.registry.now().Add(d)
	s.timer = time.AfterFunc(d, func() {
		s.registry.expire(s, gen)
	})
}

func (s *Session) stopTimer() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

// fire runs the timeout transition if gen is still the armed generation.
func (s *Session) fire(gen uint64, now time.Time) (Verdict, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.Terminal() || gen != s.gen || s.timer == nil {
		return Verdict{}, false
	}
	s.timer = nil
	v := s.game.HandleTimeout(now)
	if !v.Accepted {
		return v, false
	}
	v.Seq = s.apply(v)
	return v, true
}
