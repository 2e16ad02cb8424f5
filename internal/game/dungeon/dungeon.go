// Package dungeon implements the dungeon catalog and the timed aim test run
// inside a dungeon.
package dungeon

import (
	"strconv"
	"strings"
	"time"

	"chat-arcade-bot/internal/session"
	"chat-arcade-bot/internal/shop"
)

// Dungeon is a catalog entry.
type Dungeon struct {
	Key           string
	Name          string
	RequiredPower int
	Multiplier    float64
	Drops         []string
	DropRate      float64
	TargetCount   int
	TimeLimit     time.Duration
}

// Catalog lists the dungeons from easiest to hardest.
var Catalog = []Dungeon{
	{
		Key: "beginner", Name: "Beginner Dungeon",
		RequiredPower: 0, Multiplier: 1.0,
		Drops: []string{string(shop.ItemWoodenSword)}, DropRate: 0.10,
		TargetCount: 15, TimeLimit: 25 * time.Second,
	},
	{
		Key: "slime", Name: "Slime Dungeon",
		RequiredPower: 20, Multiplier: 1.5,
		Drops: []string{string(shop.ItemWoodenSword), string(shop.ItemStoneSword)}, DropRate: 0.20,
		TargetCount: 20, TimeLimit: 22 * time.Second,
	},
	{
		Key: "journeyman", Name: "Journeyman Dungeon",
		RequiredPower: 50, Multiplier: 2.0,
		Drops: []string{string(shop.ItemStoneSword), string(shop.ItemIronSword)}, DropRate: 0.30,
		TargetCount: 30, TimeLimit: 20 * time.Second,
	},
	{
		Key: "veteran", Name: "Veteran Dungeon",
		RequiredPower: 100, Multiplier: 3.0,
		Drops: []string{string(shop.ItemIronSword), string(shop.ItemGoldSword)}, DropRate: 0.40,
		TargetCount: 35, TimeLimit: 18 * time.Second,
	},
	{
		Key: "master", Name: "Master Dungeon",
		RequiredPower: 200, Multiplier: 5.0,
		Drops: []string{string(shop.ItemGoldSword)}, DropRate: 0.50,
		TargetCount: 40, TimeLimit: 15 * time.Second,
	},
}

// Find looks a dungeon up by key or display name.
func Find(name string) (Dungeon, bool) {
	key := strings.ToLower(strings.TrimSpace(name))
	for _, d := range Catalog {
		if d.Key == key || strings.ToLower(d.Name) == key {
			return d, true
		}
	}
	return Dungeon{}, false
}

// Keys lists the dungeon keys in catalog order.
func Keys() []string {
	keys := make([]string, len(Catalog))
	for i, d := range Catalog {
		keys[i] = d.Key
	}
	return keys
}

// GridSize is the side of the square target grid.
const GridSize = 5

// ActionHit is the button action for a grid cell; its arg is the cell index.
const ActionHit = "hit"

// FailReason says why a run failed.
type FailReason string

// Failure reasons.
const (
	FailWrongCell FailReason = "wrong_cell"
	FailTimeout   FailReason = "timeout"
)

// Progress is reported on start and after every hit.
type Progress struct {
	Target int
	Hits   int
	Need   int
}

// Cleared is reported when the player reached the target count.
type Cleared struct {
	Player  session.Player
	Dungeon Dungeon
	Hits    int
}

// Failed is reported on a wrong cell or an expired deadline.
type Failed struct {
	Player  session.Player
	Dungeon Dungeon
	Hits    int
	Reason  FailReason
}

// Intn is the random source for target placement.
type Intn interface {
	Intn(n int) int
}

// AimTest is one dungeon run.
type AimTest struct {
	dungeon Dungeon
	player  session.Player
	rng     Intn

	target int
	hits   int
}

// NewAimTest creates a run of d for player.
func NewAimTest(player session.Player, d Dungeon, rng Intn) *AimTest {
	return &AimTest{dungeon: d, player: player, rng: rng}
}

// Dungeon returns the dungeon being run.
func (a *AimTest) Dungeon() Dungeon { return a.dungeon }

// Progress returns the current board state.
func (a *AimTest) Progress() Progress {
	return Progress{Target: a.target, Hits: a.hits, Need: a.dungeon.TargetCount}
}

func (a *AimTest) Kind() session.Kind { return session.KindAimTest }

func (a *AimTest) Participants() []session.Player { return []session.Player{a.player} }

func (a *AimTest) Begin(time.Time) session.Verdict {
	a.target = a.rng.Intn(GridSize * GridSize)
	return session.Verdict{
		Accepted: true,
		Next:     session.StateAwaitingInput,
		Outcome:  a.Progress(),
		Timer:    a.dungeon.TimeLimit,
	}
}

func (a *AimTest) HandleMessage(session.Message) session.Verdict {
	return session.Ignore()
}

func (a *AimTest) HandleButton(b session.Button) session.Verdict {
	if b.Actor.ID != a.player.ID || b.Action != ActionHit {
		return session.Ignore()
	}
	cell, err := strconv.Atoi(b.Arg)
	if err != nil || cell < 0 || cell >= GridSize*GridSize {
		return session.Ignore()
	}

	if cell != a.target {
		return session.Verdict{
			Accepted: true,
			Next:     session.StateResolved,
			Outcome:  Failed{Player: a.player, Dungeon: a.dungeon, Hits: a.hits, Reason: FailWrongCell},
		}
	}

	a.hits++
	if a.hits >= a.dungeon.TargetCount {
		return session.Verdict{
			Accepted: true,
			Next:     session.StateResolved,
			Outcome:  Cleared{Player: a.player, Dungeon: a.dungeon, Hits: a.hits},
		}
	}
	a.target = a.rng.Intn(GridSize * GridSize)
	return session.Verdict{Accepted: true, Next: session.StateAwaitingInput, Outcome: a.Progress()}
}

func (a *AimTest) HandleTimeout(time.Time) session.Verdict {
	return session.Verdict{
		Accepted: true,
		Next:     session.StateTimedOut,
		Outcome:  Failed{Player: a.player, Dungeon: a.dungeon, Hits: a.hits, Reason: FailTimeout},
	}
}
