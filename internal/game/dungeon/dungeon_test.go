package dungeon

import (
	"math/rand"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chat-arcade-bot/internal/session"
)

var runner = session.Player{ID: 1, Name: "runner"}

func hit(p session.Player, cell int) func(session.Game) session.Verdict {
	return func(g session.Game) session.Verdict {
		return g.HandleButton(session.Button{Actor: p, Action: ActionHit, Arg: strconv.Itoa(cell), At: time.Now()})
	}
}

func currentTarget(s *session.Session) int {
	var target int
	s.Inspect(func(g session.Game) {
		target = g.(*AimTest).Progress().Target
	})
	return target
}

func TestCatalog(t *testing.T) {
	require.Len(t, Catalog, 5)
	d, ok := Find("Beginner")
	require.True(t, ok)
	assert.Equal(t, 15, d.TargetCount)
	assert.Equal(t, 25*time.Second, d.TimeLimit)

	d, ok = Find("Slime Dungeon")
	require.True(t, ok)
	assert.Equal(t, 1.5, d.Multiplier)

	_, ok = Find("castle")
	assert.False(t, ok)
	assert.Equal(t, []string{"beginner", "slime", "journeyman", "veteran", "master"}, Keys())
}

func TestAimTest_FifteenHitsClearBeginner(t *testing.T) {
	beginner, _ := Find("beginner")
	r := session.NewRegistry()
	s, err := r.Create(1, NewAimTest(runner, beginner, rand.New(rand.NewSource(7))))
	require.NoError(t, err)

	for i := 1; i < beginner.TargetCount; i++ {
		v, ok := s.Deliver(hit(runner, currentTarget(s)))
		require.True(t, ok)
		require.Equal(t, session.StateAwaitingInput, v.Next)
		assert.Equal(t, i, v.Outcome.(Progress).Hits)
	}

	v, ok := s.Deliver(hit(runner, currentTarget(s)))
	require.True(t, ok)
	assert.Equal(t, session.StateResolved, v.Next)
	assert.Equal(t, Cleared{Player: runner, Dungeon: beginner, Hits: 15}, v.Outcome)
	assert.Equal(t, 0, r.Len())
}

func TestAimTest_WrongCellFails(t *testing.T) {
	beginner, _ := Find("beginner")
	r := session.NewRegistry()
	s, err := r.Create(1, NewAimTest(runner, beginner, rand.New(rand.NewSource(1))))
	require.NoError(t, err)

	_, ok := s.Deliver(hit(runner, currentTarget(s)))
	require.True(t, ok)

	wrong := (currentTarget(s) + 1) % (GridSize * GridSize)
	v, ok := s.Deliver(hit(runner, wrong))
	require.True(t, ok)
	assert.Equal(t, Failed{Player: runner, Dungeon: beginner, Hits: 1, Reason: FailWrongCell}, v.Outcome)
}

func TestAimTest_IgnoresOutsidersAndGarbage(t *testing.T) {
	beginner, _ := Find("beginner")
	a := NewAimTest(runner, beginner, rand.New(rand.NewSource(3)))
	a.Begin(time.Now())

	assert.False(t, a.HandleButton(session.Button{Actor: session.Player{ID: 2}, Action: ActionHit, Arg: "0"}).Accepted)
	assert.False(t, a.HandleButton(session.Button{Actor: runner, Action: ActionHit, Arg: "25"}).Accepted)
	assert.False(t, a.HandleButton(session.Button{Actor: runner, Action: ActionHit, Arg: "x"}).Accepted)
	assert.False(t, a.HandleButton(session.Button{Actor: runner, Action: "other", Arg: "0"}).Accepted)
	assert.False(t, a.HandleMessage(session.Message{Author: runner, Content: "0"}).Accepted)
}

func TestAimTest_TimeoutFails(t *testing.T) {
	master, _ := Find("master")
	r := session.NewRegistry()
	s, err := r.Create(1, NewAimTest(runner, master, rand.New(rand.NewSource(1))))
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(15*time.Second), s.Deadline(), 2*time.Second)

	v, ok := s.Expire()
	require.True(t, ok)
	assert.Equal(t, session.StateTimedOut, v.Next)
	assert.Equal(t, FailTimeout, v.Outcome.(Failed).Reason)
}
