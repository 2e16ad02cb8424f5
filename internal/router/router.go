// Package router dispatches inbound chat events to the live session of their
// channel, settles committed transitions and renders their outcomes.
package router

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"chat-arcade-bot/internal/config"
	"chat-arcade-bot/internal/platform"
	"chat-arcade-bot/internal/scoring"
	"chat-arcade-bot/internal/service"
	"chat-arcade-bot/internal/session"
	"chat-arcade-bot/internal/storage"
)

// Router errors reported back to command handlers.
var (
	ErrSelfPlay    = errors.New("you cannot challenge yourself")
	ErrNoChallenge = errors.New("no video challenge is running in this chat")
	ErrVideoUpload = errors.New("failed to upload the challenge video")
)

// Callback prefixes of session buttons. Session callbacks are
// prefix:token:action[:arg]; anything else is sessionless.
const (
	PrefixTyping    = "typing"
	PrefixRPS       = "rps"
	PrefixChallenge = "challenge"
	PrefixAim       = "aim"
	PrefixRank      = "rank"
	PrefixRole      = "role"
)

var kindPrefix = map[session.Kind]string{
	session.KindTypingRace:     PrefixTyping,
	session.KindRPSMatch:       PrefixRPS,
	session.KindVideoChallenge: PrefixChallenge,
	session.KindAimTest:        PrefixAim,
}

// ButtonEvent is a button press as delivered by the platform.
type ButtonEvent struct {
	ChannelID int64
	Actor     session.Player
	Data      string
	// Origin is the message carrying the button.
	Origin platform.Ref
	At     time.Time
}

// Dependencies holds everything the router needs.
type Dependencies struct {
	Config   *config.Config
	Registry *session.Registry
	Sink     platform.Sink
	Accounts *service.AccountService
	Typing   *service.TypingService
	Math     *service.MathService
	Dungeons *service.DungeonService
	Ranking  *service.RankingService
	Shop     *service.ShopService
	Roles    storage.RoleStore
	Rand     scoring.Rand
}

// rpsPair remembers the players of the last finished match of a channel.
type rpsPair struct {
	challenger session.Player
	opponent   session.Player
}

// Router is the event router.
type Router struct {
	cfg      *config.Config
	registry *session.Registry
	sink     platform.Sink
	accounts *service.AccountService
	typing   *service.TypingService
	maths    *service.MathService
	dungeons *service.DungeonService
	ranking  *service.RankingService
	shop     *service.ShopService
	roles    storage.RoleStore
	rng      scoring.Rand

	mu        sync.Mutex
	boards    map[string]*board // session id -> message edited in place
	rematches map[int64]rpsPair
}

// New creates a Router and hooks it to the registry's timers.
func New(deps *Dependencies) *Router {
	rng := deps.Rand
	if rng == nil {
		rng = scoring.DefaultRand
	}
	r := &Router{
		cfg:       deps.Config,
		registry:  deps.Registry,
		sink:      deps.Sink,
		accounts:  deps.Accounts,
		typing:    deps.Typing,
		maths:     deps.Math,
		dungeons:  deps.Dungeons,
		ranking:   deps.Ranking,
		shop:      deps.Shop,
		roles:     deps.Roles,
		rng:       rng,
		boards:    make(map[string]*board),
		rematches: make(map[int64]rpsPair),
	}
	deps.Registry.OnTimeout(r.onTimeout)
	return r
}

// HandleMessage offers a chat message to the channel's session. It reports
// whether a session consumed it.
func (r *Router) HandleMessage(ctx context.Context, m session.Message) (consumed bool) {
	defer r.recoverPanic(m.ChannelID, "message", func() { consumed = false })

	s, ok := r.registry.Get(m.ChannelID)
	if !ok {
		return false
	}
	v, ok := s.Deliver(func(g session.Game) session.Verdict {
		return g.HandleMessage(m)
	})
	if !ok {
		return false
	}
	r.settle(ctx, s, v)
	return true
}

// HandleButton routes a button press and returns the short notice to show
// the presser, empty for none.
func (r *Router) HandleButton(ctx context.Context, ev ButtonEvent) (notice string) {
	defer r.recoverPanic(ev.ChannelID, "button", func() { notice = "Something went wrong." })

	parts := platform.ParseCallback(ev.Data)
	if len(parts) >= 3 {
		if s, ok := r.registry.Get(ev.ChannelID); ok && s.Token() == parts[1] && kindPrefix[s.Kind()] == parts[0] {
			b := session.Button{
				ChannelID: ev.ChannelID,
				Actor:     ev.Actor,
				Action:    parts[2],
				Arg:       strings.Join(parts[3:], platform.CallbackSep),
				At:        ev.At,
			}
			v, ok := s.Deliver(func(g session.Game) session.Verdict {
				return g.HandleButton(b)
			})
			if !ok {
				return ""
			}
			return r.settle(ctx, s, v)
		}
	}
	return r.handleSessionless(ctx, ev, parts)
}

func (r *Router) onTimeout(s *session.Session, v session.Verdict) {
	defer r.recoverPanic(s.ChannelID(), "timeout", nil)
	r.settle(context.Background(), s, v)
}

// recoverPanic turns a panic at the dispatch boundary into a log line.
func (r *Router) recoverPanic(channelID int64, source string, fallback func()) {
	if rec := recover(); rec != nil {
		log.Error().
			Interface("panic", rec).
			Int64("chat_id", channelID).
			Str("source", source).
			Msg("Recovered from panic in router")
		if fallback != nil {
			fallback()
		}
	}
}

// send posts a message, logging failures.
func (r *Router) send(ctx context.Context, channelID int64, msg platform.Message) (platform.Ref, bool) {
	ref, err := r.sink.Send(ctx, channelID, msg)
	if err != nil {
		log.Error().Err(err).Int64("chat_id", channelID).Msg("Failed to send message")
		return platform.Ref{}, false
	}
	return ref, true
}

// board is the message a session edits in place. Its mutex serializes the
// rendering of one session's verdicts.
type board struct {
	mu     sync.Mutex
	ref    platform.Ref
	posted bool
	// seq is the newest verdict rendered so far.
	seq uint64
	// stale marks the verdict being settled as superseded; it renders nothing.
	stale bool
}

// show edits the session's board when it has one and sends a new message otherwise.
func (r *Router) show(ctx context.Context, s *session.Session, b *board, msg platform.Message) {
	if b.stale {
		return
	}
	if b.posted {
		if err := r.sink.Edit(ctx, b.ref, msg); err != nil {
			log.Debug().Err(err).Int64("chat_id", s.ChannelID()).Msg("Failed to edit board")
		}
		return
	}
	if ref, ok := r.send(ctx, s.ChannelID(), msg); ok {
		b.ref, b.posted = ref, true
	}
}

// post sends a standalone message for a session unless the verdict is stale.
func (r *Router) post(ctx context.Context, s *session.Session, b *board, msg platform.Message) {
	if b.stale {
		return
	}
	r.send(ctx, s.ChannelID(), msg)
}

// boardFor returns the board of s. A session that already ended gets a
// throwaway board so nothing is kept for it.
func (r *Router) boardFor(s *session.Session) *board {
	r.mu.Lock()
	defer r.mu.Unlock()
	if b, ok := r.boards[s.ID()]; ok {
		return b
	}
	b := &board{}
	if !s.State().Terminal() {
		r.boards[s.ID()] = b
	}
	return b
}

// takeBoard removes and returns the board of s, nil when it has none.
func (r *Router) takeBoard(s *session.Session) *board {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.boards[s.ID()]
	if !ok {
		return nil
	}
	delete(r.boards, s.ID())
	return b
}

// sessionButton builds a button addressed to s.
func sessionButton(s *session.Session, label, action string, arg ...string) platform.Button {
	parts := append([]string{kindPrefix[s.Kind()], s.Token(), action}, arg...)
	return platform.Button{Label: label, Data: platform.Callback(parts...)}
}
