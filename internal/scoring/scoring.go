// Package scoring holds the pure reward and ranking rules.
package scoring

import (
	"math"
	"math/rand"

	"chat-arcade-bot/internal/game/mathquiz"
)

// Grade is a closed score band.
type Grade struct {
	Name string
	Min  int
	Max  int
}

// Grades are ordered bands; the first band containing a score wins.
var Grades = []Grade{
	{Name: "Math Beginner", Min: 0, Max: 49},
	{Name: "Math Learner", Min: 50, Max: 99},
	{Name: "Math Expert", Min: 100, Max: 249},
	{Name: "Math Master", Min: 250, Max: 499},
	{Name: "Math Doctor", Min: 500, Max: 999},
	{Name: "Math Genius", Min: 1000, Max: math.MaxInt},
}

// GradeFor returns the band of score, or the lowest band when none matches.
func GradeFor(score int) Grade {
	for _, g := range Grades {
		if score >= g.Min && score <= g.Max {
			return g
		}
	}
	return Grades[0]
}

// GradeNames lists every grade name.
func GradeNames() []string {
	names := make([]string, len(Grades))
	for i, g := range Grades {
		names[i] = g.Name
	}
	return names
}

// RewardFor returns the points for a correctly answered problem.
func RewardFor(op mathquiz.Operation, a, b int) int {
	switch op {
	case mathquiz.OpAdd, mathquiz.OpSub:
		if a <= 20 && b <= 20 {
			return 10
		}
		return 20
	case mathquiz.OpMul:
		if a <= 10 && b <= 10 {
			return 20
		}
		return 30
	case mathquiz.OpDiv:
		return 30
	}
	return 0
}

// Rand is the randomness used by dungeon rewards.
type Rand interface {
	Intn(n int) int
	Float64() float64
}

// DefaultRand draws from the shared math/rand source, which is safe for concurrent use.
var DefaultRand Rand = globalRand{}

type globalRand struct{}

func (globalRand) Intn(n int) int   { return rand.Intn(n) }
func (globalRand) Float64() float64 { return rand.Float64() }

// Dungeon reward bounds before the multiplier.
const (
	RewardBaseMin = 50
	RewardBaseMax = 100
)

// DungeonReward draws a base reward in [50, 100] and scales it, truncating.
func DungeonReward(rng Rand, multiplier float64) int64 {
	base := RewardBaseMin + rng.Intn(RewardBaseMax-RewardBaseMin+1)
	return int64(float64(base) * multiplier)
}

// RollDrop runs one Bernoulli trial at rate and picks a drop uniformly on success.
func RollDrop(rng Rand, rate float64, drops []string) (string, bool) {
	if len(drops) == 0 || rng.Float64() >= rate {
		return "", false
	}
	return drops[rng.Intn(len(drops))], true
}
