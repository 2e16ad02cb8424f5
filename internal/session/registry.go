package session

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// ErrAlreadyActive is returned when a channel already hosts a live session.
var ErrAlreadyActive = errors.New("a session is already active in this channel")

// TimeoutFunc receives the verdict of a timer that committed a transition.
type TimeoutFunc func(s *Session, v Verdict)

// Registry maps channels to their live session.
type Registry struct {
	mu        sync.Mutex
	sessions  map[int64]*Session
	onTimeout TimeoutFunc
	now       func() time.Time
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[int64]*Session),
		now:      time.Now,
	}
}

// OnTimeout sets the callback run after a timer commits a transition.
// It must be set before the first session is created.
func (r *Registry) OnTimeout(fn TimeoutFunc) {
	r.onTimeout = fn
}

// Create registers a new session for g in channelID and runs g.Begin.
// It fails with ErrAlreadyActive without side effects when the channel is taken.
func (r *Registry) Create(channelID int64, g Game) (*Session, error) {
	if g == nil {
		return nil, fmt.Errorf("cannot create session without a game")
	}

	id := uuid.NewString()
	s := &Session{
		id:        id,
		token:     id[:8],
		channelID: channelID,
		createdAt: r.now(),
		registry:  r,
		state:     StateCreated,
		game:      g,
	}

	// Hold the session lock until Begin has run so no event sees a half-built session.
	s.mu.Lock()
	defer s.mu.Unlock()

	r.mu.Lock()
	if _, taken := r.sessions[channelID]; taken {
		r.mu.Unlock()
		return nil, ErrAlreadyActive
	}
	r.sessions[channelID] = s
	r.mu.Unlock()

	v := g.Begin(s.createdAt)
	if !v.Accepted {
		v = Verdict{Accepted: true, Next: StateAwaitingInput, Timer: v.Timer}
	}
	s.apply(v)

	log.Debug().
		Int64("chat_id", channelID).
		Str("session_id", id).
		Str("kind", string(g.Kind())).
		Str("state", s.state.String()).
		Msg("Session created")

	return s, nil
}

// Get returns the live session of a channel.
func (r *Registry) Get(channelID int64) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[channelID]
	return s, ok
}

// Remove cancels the live session of a channel. It returns the session and
// whether this call ended it.
func (r *Registry) Remove(channelID int64) (*Session, bool) {
	s, ok := r.Get(channelID)
	if !ok {
		return nil, false
	}
	_, ok = s.Deliver(func(Game) Verdict {
		return Verdict{Accepted: true, Next: StateCancelled}
	})
	return s, ok
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Channels lists the channels with a live session, in no particular order.
func (r *Registry) Channels() []int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]int64, 0, len(r.sessions))
	for id := range r.sessions {
		ids = append(ids, id)
	}
	return ids
}

// release drops s from the map if it is still the channel's session.
func (r *Registry) release(s *Session) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sessions[s.channelID] != s {
		return false
	}
	delete(r.sessions, s.channelID)
	return true
}

func (r *Registry) expire(s *Session, gen uint64) (v Verdict, ok bool) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Error().
				Interface("panic", rec).
				Int64("chat_id", s.channelID).
				Str("session_id", s.id).
				Msg("Recovered from panic in session timer")
			ok = false
		}
	}()

	v, ok = s.fire(gen, r.now())
	if !ok {
		return v, false
	}

	log.Debug().
		Int64("chat_id", s.channelID).
		Str("session_id", s.id).
		Str("kind", string(s.Kind())).
		Str("state", v.Next.String()).
		Msg("Session timer fired")

	if r.onTimeout != nil {
		r.onTimeout(s, v)
	}
	return v, true
}
