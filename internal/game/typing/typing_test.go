package typing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"chat-arcade-bot/internal/session"
)

var (
	alice = session.Player{ID: 1, Name: "alice"}
	bob   = session.Player{ID: 2, Name: "bob"}
	carol = session.Player{ID: 3, Name: "carol"}
)

func say(p session.Player, text string, at time.Time) func(session.Game) session.Verdict {
	return func(g session.Game) session.Verdict {
		return g.HandleMessage(session.Message{Author: p, Content: text, At: at})
	}
}

func press(p session.Player, action string, at time.Time) func(session.Game) session.Verdict {
	return func(g session.Game) session.Verdict {
		return g.HandleButton(session.Button{Actor: p, Action: action, At: at})
	}
}

func TestSolo_TypoIgnoredThenExactMatchWins(t *testing.T) {
	r := session.NewRegistry()
	race := NewSolo(alice, "hello", time.Hour)
	s, err := r.Create(100, race)
	require.NoError(t, err)
	require.Equal(t, session.StateAwaitingInput, s.State())

	start := race.startedAt

	_, ok := s.Deliver(say(alice, "hllo", start.Add(time.Second)))
	assert.False(t, ok, "a typo keeps the race open")
	assert.Equal(t, session.StateAwaitingInput, s.State())

	v, ok := s.Deliver(say(alice, "hello", start.Add(3200*time.Millisecond)))
	require.True(t, ok)
	assert.Equal(t, session.StateResolved, v.Next)
	assert.Equal(t, Finished{Winner: alice, Elapsed: 3.2}, v.Outcome)

	_, ok = r.Get(100)
	assert.False(t, ok)
}

func TestSolo_NonParticipantIgnored(t *testing.T) {
	race := NewSolo(alice, "hello", time.Hour)
	race.Begin(time.Now())

	v := race.HandleMessage(session.Message{Author: bob, Content: "hello", At: time.Now()})
	assert.False(t, v.Accepted)
}

func TestElapsedIsRoundedAndNonNegative(t *testing.T) {
	start := time.Now()
	race := NewSolo(alice, "go", time.Hour)
	race.Begin(start)

	v := race.HandleMessage(session.Message{Author: alice, Content: "go", At: start.Add(-time.Second)})
	require.True(t, v.Accepted)
	assert.Equal(t, 0.0, v.Outcome.(Finished).Elapsed)

	race = NewSolo(alice, "go", time.Hour)
	race.Begin(start)
	v = race.HandleMessage(session.Message{Author: alice, Content: "go", At: start.Add(1234567 * time.Microsecond)})
	assert.Equal(t, 1.23, v.Outcome.(Finished).Elapsed)
}

func TestDuel_AcceptThenFirstMatchWins(t *testing.T) {
	r := session.NewRegistry()
	race := NewDuel(alice, bob, "same text", time.Hour, time.Hour)
	s, err := r.Create(1, race)
	require.NoError(t, err)
	assert.Equal(t, session.StateCreated, s.State())

	now := time.Now()
	_, ok := s.Deliver(say(alice, "same text", now))
	assert.False(t, ok, "typing before acceptance is ignored")

	_, ok = s.Deliver(press(alice, ActionAccept, now))
	assert.False(t, ok, "only the opponent may accept")

	v, ok := s.Deliver(press(bob, ActionAccept, now))
	require.True(t, ok)
	assert.Equal(t, Started{Target: "same text"}, v.Outcome)
	assert.Equal(t, session.StateAwaitingInput, s.State())

	_, ok = s.Deliver(say(carol, "same text", now.Add(time.Second)))
	assert.False(t, ok)

	v, ok = s.Deliver(say(bob, "same text", now.Add(2*time.Second)))
	require.True(t, ok)
	assert.Equal(t, bob, v.Outcome.(Finished).Winner)

	_, ok = s.Deliver(say(alice, "same text", now.Add(3*time.Second)))
	assert.False(t, ok, "the loser's late match is a no-op")
}

func TestDuel_Decline(t *testing.T) {
	r := session.NewRegistry()
	s, err := r.Create(1, NewDuel(alice, bob, "x", time.Hour, time.Hour))
	require.NoError(t, err)

	v, ok := s.Deliver(press(bob, ActionDecline, time.Now()))
	require.True(t, ok)
	assert.Equal(t, session.StateCancelled, v.Next)
	assert.Equal(t, Declined{By: bob}, v.Outcome)
	assert.Equal(t, 0, r.Len())
}

func TestTimeouts(t *testing.T) {
	r := session.NewRegistry()
	s, err := r.Create(1, NewDuel(alice, bob, "x", time.Hour, time.Hour))
	require.NoError(t, err)
	v, ok := s.Expire()
	require.True(t, ok)
	assert.Equal(t, InviteExpired{}, v.Outcome)
	assert.Equal(t, session.StateCancelled, v.Next)

	s, err = r.Create(1, NewSolo(alice, "x", time.Hour))
	require.NoError(t, err)
	v, ok = s.Expire()
	require.True(t, ok)
	assert.Equal(t, session.StateTimedOut, v.Next)
	assert.Equal(t, TimedOut{Target: "x"}, v.Outcome)
}

// Property: only the exact target from a participant resolves the race.
func TestProperty_OnlyExactMatchResolves(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		target := rapid.StringMatching(`[a-z ]{1,20}`).Draw(rt, "target")
		typed := rapid.StringMatching(`[a-z ]{0,20}`).Draw(rt, "typed")

		race := NewSolo(alice, target, time.Hour)
		race.Begin(time.Now())
		v := race.HandleMessage(session.Message{Author: alice, Content: typed, At: time.Now()})

		if v.Accepted != (typed == target) {
			rt.Fatalf("typed %q target %q accepted=%v", typed, target, v.Accepted)
		}
	})
}

func TestPickText(t *testing.T) {
	assert.Equal(t, "", PickText(nil))
	assert.Equal(t, "only", PickText([]string{"only"}))
}
