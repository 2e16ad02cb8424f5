package bot

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v3"

	"chat-arcade-bot/internal/platform"
)

type mockAPI struct {
	mock.Mock
}

func (m *mockAPI) Send(to tele.Recipient, what interface{}, opts ...interface{}) (*tele.Message, error) {
	args := m.Called(to, what, opts)
	msg, _ := args.Get(0).(*tele.Message)
	return msg, args.Error(1)
}

func (m *mockAPI) Edit(msg tele.Editable, what interface{}, opts ...interface{}) (*tele.Message, error) {
	args := m.Called(msg, what, opts)
	return nil, args.Error(0)
}

func (m *mockAPI) Ban(chat *tele.Chat, member *tele.ChatMember, revokeMessages ...bool) error {
	return m.Called(chat.ID, member.User.ID).Error(0)
}

func (m *mockAPI) Unban(chat *tele.Chat, user *tele.User, forBanned ...bool) error {
	return m.Called(chat.ID, user.ID).Error(0)
}

func (m *mockAPI) Restrict(chat *tele.Chat, member *tele.ChatMember) error {
	return m.Called(chat.ID, member.User.ID, member.Rights).Error(0)
}

func TestGateway_SendTextWithKeyboard(t *testing.T) {
	api := new(mockAPI)
	kb := platform.Keyboard{platform.Row(platform.Button{Label: "✅ Accept", Data: "rps:abcd1234:accept"})}
	api.On("Send", tele.ChatID(-100), "hello", mock.MatchedBy(func(opts []interface{}) bool {
		if len(opts) != 1 {
			return false
		}
		markup, ok := opts[0].(*tele.ReplyMarkup)
		return ok && markup.InlineKeyboard[0][0].Data == "rps:abcd1234:accept"
	})).Return(&tele.Message{ID: 55}, nil)

	ref, err := NewGateway(api).Send(context.Background(), -100, platform.Message{Text: "hello", Keyboard: kb})
	require.NoError(t, err)
	assert.Equal(t, platform.Ref{ChannelID: -100, MessageID: 55}, ref)
	api.AssertExpectations(t)
}

func TestGateway_SendVideo(t *testing.T) {
	api := new(mockAPI)
	api.On("Send", tele.ChatID(-100), mock.MatchedBy(func(v *tele.Video) bool {
		return v.Caption == "watch" && v.FileLocal == "/videos/c.mp4"
	}), mock.Anything).Return(&tele.Message{ID: 9}, nil)

	_, err := NewGateway(api).Send(context.Background(), -100, platform.Message{Text: "watch", VideoPath: "/videos/c.mp4"})
	require.NoError(t, err)
	api.AssertExpectations(t)
}

func TestGateway_SendError(t *testing.T) {
	api := new(mockAPI)
	api.On("Send", mock.Anything, mock.Anything, mock.Anything).Return(nil, errors.New("network down"))

	_, err := NewGateway(api).Send(context.Background(), 1, platform.Message{Text: "x"})
	assert.ErrorContains(t, err, "network down")
}

func TestGateway_EditIgnoresUnchangedContent(t *testing.T) {
	ref := platform.Ref{ChannelID: -100, MessageID: 3}
	stored := tele.StoredMessage{MessageID: "3", ChatID: -100}

	for _, tc := range []struct {
		name    string
		apiErr  error
		wantErr bool
	}{
		{name: "ok"},
		{name: "not modified", apiErr: tele.ErrMessageNotModified},
		{name: "same content", apiErr: tele.ErrSameMessageContent},
		{name: "other", apiErr: tele.ErrCantEditMessage, wantErr: true},
	} {
		t.Run(tc.name, func(t *testing.T) {
			api := new(mockAPI)
			api.On("Edit", stored, "board", mock.Anything).Return(tc.apiErr)
			err := NewGateway(api).Edit(context.Background(), ref, platform.Message{Text: "board"})
			if tc.wantErr {
				assert.ErrorIs(t, err, tc.apiErr)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestGateway_KickBansThenUnbans(t *testing.T) {
	api := new(mockAPI)
	api.On("Ban", int64(-100), int64(7)).Return(nil).Once()
	api.On("Unban", int64(-100), int64(7)).Return(nil).Once()

	require.NoError(t, NewGateway(api).Kick(context.Background(), -100, 7))
	api.AssertExpectations(t)
}

func TestGateway_KickStopsWhenBanFails(t *testing.T) {
	api := new(mockAPI)
	api.On("Ban", int64(-100), int64(7)).Return(tele.ErrNoRightsToRestrict)

	err := NewGateway(api).Kick(context.Background(), -100, 7)
	assert.ErrorIs(t, err, tele.ErrNoRightsToRestrict)
	api.AssertNotCalled(t, "Unban", mock.Anything, mock.Anything)
}

func TestGateway_RestrictRemovesRights(t *testing.T) {
	api := new(mockAPI)
	api.On("Restrict", int64(-100), int64(7), tele.NoRights()).Return(nil)

	require.NoError(t, NewGateway(api).Restrict(context.Background(), -100, 7))
	api.AssertExpectations(t)
}
