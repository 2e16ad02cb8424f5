// Package mathquiz implements the one-shot arithmetic quiz session.
package mathquiz

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"chat-arcade-bot/internal/session"
)

// Operation is an arithmetic operation.
type Operation string

// Operations.
const (
	OpAdd Operation = "add"
	OpSub Operation = "sub"
	OpMul Operation = "mul"
	OpDiv Operation = "div"
)

// Operations lists every operation.
var Operations = []Operation{OpAdd, OpSub, OpMul, OpDiv}

// ParseOperation accepts an operation name or its symbol.
func ParseOperation(s string) (Operation, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "add", "+", "plus":
		return OpAdd, true
	case "sub", "-", "minus":
		return OpSub, true
	case "mul", "*", "x", "×", "times":
		return OpMul, true
	case "div", "/", "÷":
		return OpDiv, true
	}
	return "", false
}

// Symbol returns the operator glyph.
func (o Operation) Symbol() string {
	switch o {
	case OpAdd:
		return "+"
	case OpSub:
		return "-"
	case OpMul:
		return "×"
	case OpDiv:
		return "÷"
	}
	return "?"
}

// Difficulty scales operand ranges.
type Difficulty string

// Difficulties.
const (
	Easy   Difficulty = "easy"
	Medium Difficulty = "medium"
	Hard   Difficulty = "hard"
)

// DefaultDifficulty applies to users who never chose one.
const DefaultDifficulty = Medium

// ParseDifficulty validates a difficulty name.
func ParseDifficulty(s string) (Difficulty, bool) {
	switch d := Difficulty(strings.ToLower(strings.TrimSpace(s))); d {
	case Easy, Medium, Hard:
		return d, true
	}
	return "", false
}

// Operand caps per difficulty. Division always uses 1..12 divisors and quotients.
var limits = map[Difficulty]map[Operation]int{
	Easy:   {OpAdd: 20, OpSub: 20, OpMul: 5, OpDiv: 12},
	Medium: {OpAdd: 50, OpSub: 50, OpMul: 10, OpDiv: 12},
	Hard:   {OpAdd: 100, OpSub: 100, OpMul: 12, OpDiv: 12},
}

// Limit returns the operand cap for op at d.
func Limit(d Difficulty, op Operation) int {
	byOp, ok := limits[d]
	if !ok {
		byOp = limits[DefaultDifficulty]
	}
	return byOp[op]
}

// Intn is the random source used by Generate.
type Intn interface {
	Intn(n int) int
}

// Problem is a generated question.
type Problem struct {
	Op     Operation
	A      int
	B      int
	Answer int
}

func (p Problem) String() string {
	return fmt.Sprintf("%d %s %d", p.A, p.Op.Symbol(), p.B)
}

// Generate draws a problem for op at difficulty d.
func Generate(rng Intn, op Operation, d Difficulty) Problem {
	limit := Limit(d, op)
	switch op {
	case OpSub:
		a := between(rng, 10, limit)
		b := between(rng, 0, a)
		return Problem{Op: op, A: a, B: b, Answer: a - b}
	case OpMul:
		a, b := between(rng, 1, limit), between(rng, 1, limit)
		return Problem{Op: op, A: a, B: b, Answer: a * b}
	case OpDiv:
		b, q := between(rng, 1, 12), between(rng, 1, 12)
		return Problem{Op: op, A: b * q, B: b, Answer: q}
	default:
		a, b := between(rng, 1, limit), between(rng, 1, limit)
		return Problem{Op: OpAdd, A: a, B: b, Answer: a + b}
	}
}

// between draws uniformly from [lo, hi].
func between(rng Intn, lo, hi int) int {
	if hi <= lo {
		return lo
	}
	return lo + rng.Intn(hi-lo+1)
}

// ParseAnswer reads an integer answer. ok is false for anything else.
func ParseAnswer(content string) (int, bool) {
	n, err := strconv.Atoi(strings.TrimSpace(content))
	if err != nil {
		return 0, false
	}
	return n, true
}

// Answered is reported for the asker's first integer reply.
type Answered struct {
	Asker   session.Player
	Problem Problem
	Given   int
	Correct bool
}

// Expired is reported when the asker never answered.
type Expired struct {
	Asker   session.Player
	Problem Problem
}

// Quiz is a single question bound to the user who asked for it.
type Quiz struct {
	asker   session.Player
	problem Problem
	window  time.Duration
}

// NewQuiz creates a quiz for asker.
func NewQuiz(asker session.Player, p Problem, window time.Duration) *Quiz {
	return &Quiz{asker: asker, problem: p, window: window}
}

// Problem returns the question.
func (q *Quiz) Problem() Problem { return q.problem }

func (q *Quiz) Kind() session.Kind { return session.KindMathQuiz }

func (q *Quiz) Participants() []session.Player { return []session.Player{q.asker} }

func (q *Quiz) Begin(time.Time) session.Verdict {
	return session.Verdict{Accepted: true, Next: session.StateAwaitingInput, Timer: q.window}
}

// HandleMessage consumes the quiz on the first integer from the asker, right or wrong.
func (q *Quiz) HandleMessage(m session.Message) session.Verdict {
	if m.Author.ID != q.asker.ID {
		return session.Ignore()
	}
	given, ok := ParseAnswer(m.Content)
	if !ok {
		return session.Ignore()
	}
	return session.Verdict{
		Accepted: true,
		Next:     session.StateResolved,
		Outcome: Answered{
			Asker:   q.asker,
			Problem: q.problem,
			Given:   given,
			Correct: given == q.problem.Answer,
		},
	}
}

func (q *Quiz) HandleButton(session.Button) session.Verdict { return session.Ignore() }

func (q *Quiz) HandleTimeout(time.Time) session.Verdict {
	return session.Verdict{
		Accepted: true,
		Next:     session.StateTimedOut,
		Outcome:  Expired{Asker: q.asker, Problem: q.problem},
	}
}
