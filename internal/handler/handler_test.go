package handler

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v3"

	"chat-arcade-bot/internal/config"
	"chat-arcade-bot/internal/game/challenge"
	"chat-arcade-bot/internal/pkg/lock"
	"chat-arcade-bot/internal/platform"
	"chat-arcade-bot/internal/router"
	"chat-arcade-bot/internal/service"
	"chat-arcade-bot/internal/session"
	"chat-arcade-bot/internal/storage/sqlite"
)

// fakeContext implements the tele.Context methods the handlers use.
type fakeContext struct {
	tele.Context
	msg     *tele.Message
	replies []string
	sent    []string
}

func newContext(chatID int64, sender *tele.User, payload string) *fakeContext {
	return &fakeContext{msg: &tele.Message{
		Chat:     &tele.Chat{ID: chatID, Type: tele.ChatSuperGroup},
		Sender:   sender,
		Payload:  payload,
		Unixtime: time.Now().Unix(),
	}}
}

func (c *fakeContext) Message() *tele.Message { return c.msg }
func (c *fakeContext) Sender() *tele.User     { return c.msg.Sender }
func (c *fakeContext) Chat() *tele.Chat       { return c.msg.Chat }
func (c *fakeContext) Delete() error          { return nil }

func (c *fakeContext) Args() []string {
	return strings.Fields(c.msg.Payload)
}

func (c *fakeContext) Reply(what interface{}, opts ...interface{}) error {
	c.replies = append(c.replies, what.(string))
	return nil
}

func (c *fakeContext) Send(what interface{}, opts ...interface{}) error {
	c.sent = append(c.sent, what.(string))
	return nil
}

func (c *fakeContext) lastReply(t *testing.T) string {
	t.Helper()
	require.NotEmpty(t, c.replies)
	return c.replies[len(c.replies)-1]
}

func replyingTo(c *fakeContext, u *tele.User) *fakeContext {
	c.msg.ReplyTo = &tele.Message{Sender: u}
	return c
}

type mockModerator struct {
	mock.Mock
}

func (m *mockModerator) Kick(ctx context.Context, chatID, userID int64) error {
	return m.Called(chatID, userID).Error(0)
}

func (m *mockModerator) Ban(ctx context.Context, chatID, userID int64) error {
	return m.Called(chatID, userID).Error(0)
}

func (m *mockModerator) Restrict(ctx context.Context, chatID, userID int64) error {
	return m.Called(chatID, userID).Error(0)
}

type mockSink struct {
	mock.Mock
}

func (m *mockSink) Send(ctx context.Context, channelID int64, msg platform.Message) (platform.Ref, error) {
	args := m.Called(channelID, msg)
	return platform.Ref{ChannelID: channelID, MessageID: 1}, args.Error(0)
}

func (m *mockSink) Edit(ctx context.Context, ref platform.Ref, msg platform.Message) error {
	return m.Called(ref, msg).Error(0)
}

// fixedRand always draws the same value, reduced modulo n.
type fixedRand int

func (r fixedRand) Intn(n int) int   { return int(r) % n }
func (r fixedRand) Float64() float64 { return 0.5 }

var (
	admin  = &tele.User{ID: 1, Username: "admin"}
	member = &tele.User{ID: 2, FirstName: "Mallory"}
)

func newAdminHandler(t *testing.T) (*AdminHandler, *mockModerator, *mockSink) {
	t.Helper()
	store, err := sqlite.Open(filepath.Join(t.TempDir(), "arcade.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	cfg := &config.Config{
		Admin:    config.AdminConfig{IDs: []int64{admin.ID}},
		Warnings: config.WarningsConfig{RoleThreshold: 3, KickThreshold: 5, Role: "warned"},
	}
	moderator := new(mockModerator)
	sink := new(mockSink)
	warnings := service.NewWarningService(store, moderator, lock.NewUserLock(), cfg.Warnings)
	return NewAdminHandler(cfg, moderator, warnings, sink), moderator, sink
}

func TestDisplayName(t *testing.T) {
	assert.Equal(t, "neo", DisplayName(&tele.User{ID: 1, Username: "neo", FirstName: "Thomas"}))
	assert.Equal(t, "Thomas Anderson", DisplayName(&tele.User{ID: 1, FirstName: "Thomas", LastName: "Anderson"}))
	assert.Equal(t, "42", DisplayName(&tele.User{ID: 42}))
}

func TestAdminHandler_WarnEscalates(t *testing.T) {
	h, moderator, _ := newAdminHandler(t)
	moderator.On("Restrict", int64(-100), member.ID).Return(nil).Once()
	moderator.On("Kick", int64(-100), member.ID).Return(nil).Once()

	for i := 1; i <= 6; i++ {
		c := replyingTo(newContext(-100, admin, "spam"), member)
		require.NoError(t, h.HandleWarn(c))
		reply := c.lastReply(t)
		assert.Contains(t, reply, "Mallory was warned")
		assert.Contains(t, reply, "Reason: spam")
		if i == 3 {
			assert.Contains(t, reply, `marked "warned"`)
		}
		if i == 5 {
			assert.Contains(t, reply, "kicked")
		}
	}
	moderator.AssertExpectations(t)

	c := replyingTo(newContext(-100, admin, ""), member)
	require.NoError(t, h.HandleWarnings(c))
	assert.Equal(t, "⚠️ Mallory has 6 warning(s).", c.lastReply(t))
}

func TestAdminHandler_WarnRemoveClamps(t *testing.T) {
	h, moderator, _ := newAdminHandler(t)
	moderator.On("Restrict", mock.Anything, mock.Anything).Return(nil).Maybe()

	require.NoError(t, h.HandleWarn(replyingTo(newContext(-100, admin, ""), member)))

	c := replyingTo(newContext(-100, admin, "5"), member)
	require.NoError(t, h.HandleWarnRemove(c))
	assert.Equal(t, "✅ Mallory now has 0 warning(s).", c.lastReply(t))

	c = replyingTo(newContext(-100, admin, "0"), member)
	require.NoError(t, h.HandleWarnRemove(c))
	assert.Contains(t, c.lastReply(t), "must be positive")

	c = replyingTo(newContext(-100, admin, "many"), member)
	require.NoError(t, h.HandleWarnRemove(c))
	assert.Contains(t, c.lastReply(t), "Usage")
}

func TestAdminHandler_SanctionsNeedReplyAndSpareAdmins(t *testing.T) {
	h, moderator, _ := newAdminHandler(t)

	c := newContext(-100, admin, "")
	require.NoError(t, h.HandleBan(c))
	assert.Contains(t, c.lastReply(t), "Reply to the member")

	c = replyingTo(newContext(-100, admin, ""), admin)
	require.NoError(t, h.HandleKick(c))
	assert.Contains(t, c.lastReply(t), "Admins cannot be sanctioned")

	moderator.On("Ban", int64(-100), member.ID).Return(nil).Once()
	c = replyingTo(newContext(-100, admin, ""), member)
	require.NoError(t, h.HandleBan(c))
	assert.Equal(t, "🔨 Mallory was banned.", c.lastReply(t))
	moderator.AssertExpectations(t)
}

func TestAdminHandler_RoleButtons(t *testing.T) {
	h, _, sink := newAdminHandler(t)
	sink.On("Send", int64(-100), mock.MatchedBy(func(m platform.Message) bool {
		return strings.Contains(m.Text, "Pick a team") &&
			m.Keyboard[0][0].Data == "role:red" && m.Keyboard[0][1].Label == "🔵Blue"
	})).Return(nil).Once()

	c := newContext(-100, admin, "Pick a team | 🔴Red:red 🔵Blue:blue")
	require.NoError(t, h.HandleRoleButtons(c))
	sink.AssertExpectations(t)

	c = newContext(-100, admin, "no separator")
	require.NoError(t, h.HandleRoleButtons(c))
	assert.Contains(t, c.lastReply(t), "Usage")
}

func TestParseRoleButtons(t *testing.T) {
	title, options, ok := parseRoleButtons(" Games | Gamer:gamer Reader:reader ")
	require.True(t, ok)
	assert.Equal(t, "Games", title)
	assert.Equal(t, []router.RoleOption{{Label: "Gamer", Role: "gamer"}, {Label: "Reader", Role: "reader"}}, options)

	for _, bad := range []string{"", "| a:b", "Title |", "Title | label", "Title | :role"} {
		_, _, ok := parseRoleButtons(bad)
		assert.False(t, ok, bad)
	}
}

func TestUtilityHandler_Dice(t *testing.T) {
	h := NewUtilityHandler(fixedRand(9))

	c := newContext(-100, member, "")
	require.NoError(t, h.HandleDice(c))
	assert.Equal(t, "🎲 Mallory rolled 4 (1-6)", c.lastReply(t))

	c = newContext(-100, member, "20")
	require.NoError(t, h.HandleDice(c))
	assert.Equal(t, "🎲 Mallory rolled 10 (1-20)", c.lastReply(t))

	c = newContext(-100, member, "1")
	require.NoError(t, h.HandleDice(c))
	assert.Contains(t, c.lastReply(t), "Usage")
}

func TestUtilityHandler_Coin(t *testing.T) {
	c := newContext(-100, member, "")
	require.NoError(t, NewUtilityHandler(fixedRand(1)).HandleCoin(c))
	assert.Equal(t, "🪙 tails!", c.lastReply(t))
}

func TestMemberHandler_Notices(t *testing.T) {
	sink := new(mockSink)
	joinedAt := time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC)
	sink.On("Send", int64(-555), mock.MatchedBy(func(m platform.Message) bool {
		return strings.Contains(m.Text, "Welcome Mallory") && strings.Contains(m.Text, "2024-03-01 12:30 UTC")
	})).Return(nil).Once()
	sink.On("Send", int64(-100), mock.MatchedBy(func(m platform.Message) bool {
		return strings.Contains(m.Text, "Mallory left")
	})).Return(nil).Once()

	h := NewMemberHandler(config.ChannelsConfig{Welcome: -555}, time.UTC, sink)
	h.now = func() time.Time { return joinedAt }

	c := newContext(-100, member, "")
	c.msg.UserJoined = member
	require.NoError(t, h.HandleJoined(c))

	c = newContext(-100, member, "")
	c.msg.UserLeft = member
	require.NoError(t, h.HandleLeft(c))

	c = newContext(-100, member, "")
	c.msg.UserJoined = &tele.User{ID: 99, IsBot: true}
	require.NoError(t, h.HandleJoined(c))

	sink.AssertExpectations(t)
}

func TestFormatChallengeStatus(t *testing.T) {
	watching := formatChallengeStatus(challenge.Snapshot{
		Player:    session.Player{ID: 2, Name: "Mallory"},
		Status:    challenge.StatusActive,
		Video:     "challenge.mp4",
		Remaining: 95 * time.Second,
	})
	assert.Contains(t, watching, "👤 Player: Mallory")
	assert.Contains(t, watching, "📌 Status: watching")
	assert.Contains(t, watching, "📼 Video: challenge.mp4")
	assert.Contains(t, watching, "⏳ Next question in: 95s")

	answering := formatChallengeStatus(challenge.Snapshot{
		Player:    session.Player{ID: 2, Name: "Mallory"},
		Status:    challenge.StatusQuestionPosted,
		Video:     "challenge.mp4",
		Question:  &challenge.Question{A: 3, B: 4},
		Remaining: 12 * time.Second,
	})
	assert.Contains(t, answering, "📌 Status: answering a question")
	assert.Contains(t, answering, "❓ Question: 3 + 4")
	assert.Contains(t, answering, "⏳ Time left: 12s")
}
