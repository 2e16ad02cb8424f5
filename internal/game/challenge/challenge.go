// Package challenge implements the supervised video challenge: a participant
// watches a video while answering an addition question at a fixed interval.
package challenge

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"chat-arcade-bot/internal/game/mathquiz"
	"chat-arcade-bot/internal/session"
)

// Video precondition errors.
var (
	ErrVideoMissing  = errors.New("challenge video not found")
	ErrVideoTooLarge = errors.New("challenge video exceeds the upload limit")
)

// CheckVideo verifies the challenge video exists and fits the upload limit.
func CheckVideo(path string, maxBytes int64) (os.FileInfo, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrVideoMissing
		}
		return nil, fmt.Errorf("failed to stat challenge video: %w", err)
	}
	if info.IsDir() {
		return nil, ErrVideoMissing
	}
	if maxBytes > 0 && info.Size() > maxBytes {
		return nil, ErrVideoTooLarge
	}
	return info, nil
}

// Status is the challenge-specific lifecycle.
type Status string

// Statuses.
const (
	StatusActive         Status = "active"
	StatusQuestionPosted Status = "question_posted"
	StatusFailed         Status = "failed"
	StatusGivenUp        Status = "given_up"
	StatusCompleted      Status = "completed"
)

// ActionGiveUp is the participant's give-up button.
const ActionGiveUp = "giveup"

// Operand bounds of the periodic questions.
const (
	operandMin = 1
	operandMax = 20
)

// Question is an outstanding addition question.
type Question struct {
	A        int
	B        int
	PostedAt time.Time
}

// Answer returns the expected reply.
func (q Question) Answer() int { return q.A + q.B }

func (q Question) String() string { return fmt.Sprintf("%d + %d", q.A, q.B) }

// FailReason says why the challenge failed.
type FailReason string

// Failure reasons.
const (
	FailWrongAnswer FailReason = "wrong_answer"
	FailTimeout     FailReason = "timeout"
)

// Started is reported when the challenge begins.
type Started struct {
	Player session.Player
}

// QuestionPosted is reported when a question is asked.
type QuestionPosted struct {
	Player   session.Player
	Question Question
	Window   time.Duration
}

// Correct is reported for a right answer; the next question is scheduled.
type Correct struct {
	Player   session.Player
	Question Question
}

// Failed is reported on a wrong answer or a missed window.
type Failed struct {
	Player   session.Player
	Question Question
	Reason   FailReason
}

// GaveUp is reported when the participant pressed give up.
type GaveUp struct {
	Player session.Player
}

// Completed is reported when an admin ends the challenge successfully.
type Completed struct {
	Player session.Player
	Tag    string
}

// Snapshot is a read-only view for status queries.
type Snapshot struct {
	Player    session.Player
	Status    Status
	Video     string
	Question  *Question
	Remaining time.Duration
}

// Challenge is one video challenge run.
type Challenge struct {
	player   session.Player
	video    string
	interval time.Duration
	window   time.Duration
	rng      mathquiz.Intn

	status   Status
	question *Question
}

// New creates a challenge for player using the video at videoPath.
func New(player session.Player, videoPath string, interval, window time.Duration, rng mathquiz.Intn) *Challenge {
	return &Challenge{
		player:   player,
		video:    filepath.Base(videoPath),
		interval: interval,
		window:   window,
		rng:      rng,
		status:   StatusActive,
	}
}

// Status returns the current status.
func (c *Challenge) Status() Status { return c.status }

// Snapshot describes the challenge at now.
func (c *Challenge) Snapshot(now time.Time) Snapshot {
	snap := Snapshot{Player: c.player, Status: c.status, Video: c.video}
	if c.question != nil {
		q := *c.question
		snap.Question = &q
		snap.Remaining = c.window - now.Sub(q.PostedAt)
		if snap.Remaining < 0 {
			snap.Remaining = 0
		}
	}
	return snap
}

func (c *Challenge) Kind() session.Kind { return session.KindVideoChallenge }

func (c *Challenge) Participants() []session.Player { return []session.Player{c.player} }

func (c *Challenge) Begin(time.Time) session.Verdict {
	return session.Verdict{
		Accepted: true,
		Next:     session.StateAwaitingInput,
		Outcome:  Started{Player: c.player},
		Timer:    c.interval,
	}
}

// HandleTimeout either asks the next question or fails an unanswered one.
func (c *Challenge) HandleTimeout(now time.Time) session.Verdict {
	switch c.status {
	case StatusActive:
		q := Question{
			A:        operandMin + c.rng.Intn(operandMax-operandMin+1),
			B:        operandMin + c.rng.Intn(operandMax-operandMin+1),
			PostedAt: now,
		}
		c.question = &q
		c.status = StatusQuestionPosted
		return session.Verdict{
			Accepted: true,
			Next:     session.StateAwaitingInput,
			Outcome:  QuestionPosted{Player: c.player, Question: q, Window: c.window},
			Timer:    c.window,
		}
	case StatusQuestionPosted:
		return c.fail(FailTimeout, session.StateTimedOut)
	}
	return session.Ignore()
}

func (c *Challenge) HandleMessage(m session.Message) session.Verdict {
	if c.status != StatusQuestionPosted || m.Author.ID != c.player.ID {
		return session.Ignore()
	}
	given, ok := mathquiz.ParseAnswer(m.Content)
	if !ok {
		return session.Ignore()
	}
	if given != c.question.Answer() {
		return c.fail(FailWrongAnswer, session.StateResolved)
	}

	q := *c.question
	c.question = nil
	c.status = StatusActive
	return session.Verdict{
		Accepted: true,
		Next:     session.StateAwaitingInput,
		Outcome:  Correct{Player: c.player, Question: q},
		Timer:    c.interval,
	}
}

func (c *Challenge) HandleButton(b session.Button) session.Verdict {
	if b.Action != ActionGiveUp || b.Actor.ID != c.player.ID {
		return session.Ignore()
	}
	c.status = StatusGivenUp
	c.question = nil
	return session.Verdict{Accepted: true, Next: session.StateCancelled, Outcome: GaveUp{Player: c.player}}
}

// Complete ends the challenge successfully.
func (c *Challenge) Complete(tag string) session.Verdict {
	c.status = StatusCompleted
	c.question = nil
	return session.Verdict{
		Accepted: true,
		Next:     session.StateResolved,
		Outcome:  Completed{Player: c.player, Tag: tag},
	}
}

func (c *Challenge) fail(reason FailReason, next session.State) session.Verdict {
	var q Question
	if c.question != nil {
		q = *c.question
	}
	c.status = StatusFailed
	c.question = nil
	return session.Verdict{
		Accepted: true,
		Next:     next,
		Outcome:  Failed{Player: c.player, Question: q, Reason: reason},
	}
}
