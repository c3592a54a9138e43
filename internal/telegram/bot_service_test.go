package telegram

import (
	"anonrelay/backend/internal/localization"
	"anonrelay/backend/internal/models"
	"anonrelay/backend/internal/relay"
	"anonrelay/backend/internal/session"
	"context"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockBotAPI is a mock implementation of the botAPI interface
type MockBotAPI struct {
	mock.Mock
	updates chan tgbotapi.Update
}

func (m *MockBotAPI) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	args := m.Called(c)
	return tgbotapi.Message{}, args.Error(0)
}

func (m *MockBotAPI) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	args := m.Called(c)
	return &tgbotapi.APIResponse{Ok: true}, args.Error(0)
}

func (m *MockBotAPI) GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	m.Called(config)
	return m.updates
}

func (m *MockBotAPI) StopReceivingUpdates() {
	m.Called()
}

// MockHandler records inbound events.
type MockHandler struct {
	mock.Mock
}

func (m *MockHandler) Handle(ctx context.Context, in relay.Inbound) error {
	args := m.Called(ctx, in)
	return args.Error(0)
}

func newTestBot(t *testing.T) (*BotService, *MockBotAPI, *MockHandler) {
	t.Helper()
	l, err := localization.NewDefault("ru")
	require.NoError(t, err)
	api := &MockBotAPI{updates: make(chan tgbotapi.Update, 4)}
	h := new(MockHandler)
	return NewBotService(api, h, l), api, h
}

func privateMessage(text string) *tgbotapi.Message {
	return &tgbotapi.Message{
		MessageID: 77,
		From:      &tgbotapi.User{ID: 111, FirstName: "Ann", UserName: "ann", LanguageCode: "en"},
		Chat:      tgbotapi.Chat{ID: 111, Type: "private"},
		Text:      text,
	}
}

func commandMessage(cmd string) *tgbotapi.Message {
	msg := privateMessage("/" + cmd)
	msg.Entities = []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len(cmd) + 1}}
	return msg
}

func TestClassify_Command(t *testing.T) {
	s, _, _ := newTestBot(t)

	in, ok := s.classify(tgbotapi.Update{Message: commandMessage("adminlog")})

	require.True(t, ok)
	assert.Equal(t, session.EventCommand, in.Event.Type)
	assert.Equal(t, session.CommandExportLog, in.Event.Command)
	assert.Equal(t, int64(111), in.Participant.ID)
	assert.Equal(t, "ann", in.Participant.Username)
	assert.Equal(t, "en", in.Participant.LanguageCode)
	assert.Equal(t, relay.MessageRef{ChatID: 111, MessageID: 77}, in.Source)
}

func TestClassify_MenuLabelsInEveryLanguage(t *testing.T) {
	s, _, _ := newTestBot(t)

	tests := []struct {
		label string
		want  session.MenuItem
	}{
		{s.Localizer.GetString("ru", localization.KeyButtonCompose), session.MenuCompose},
		{s.Localizer.GetString("en", localization.KeyButtonCompose), session.MenuCompose},
		{s.Localizer.GetString("en", localization.KeyButtonStats), session.MenuStats},
		{s.Localizer.GetString("ru", localization.KeyButtonHelp), session.MenuHelp},
		{s.Localizer.GetString("en", localization.KeyButtonCancel), session.MenuCancel},
		{s.Localizer.GetString("ru", localization.KeyButtonCancelReply), session.MenuCancel},
	}
	for _, tt := range tests {
		in, ok := s.classify(tgbotapi.Update{Message: privateMessage(tt.label)})
		require.True(t, ok, tt.label)
		assert.Equal(t, session.EventMenu, in.Event.Type, tt.label)
		assert.Equal(t, tt.want, in.Event.Menu, tt.label)
		assert.Equal(t, tt.label, in.Event.Content.Text, "the label is kept as content")
	}
}

func TestClassify_Content(t *testing.T) {
	s, _, _ := newTestBot(t)

	photo := privateMessage("")
	photo.Photo = []tgbotapi.PhotoSize{{FileID: "small"}, {FileID: "large"}}
	photo.Caption = "sunset"

	video := privateMessage("")
	video.Video = &tgbotapi.Video{FileID: "vid"}

	voice := privateMessage("")
	voice.Voice = &tgbotapi.Voice{FileID: "voc"}

	note := privateMessage("")
	note.VideoNote = &tgbotapi.VideoNote{FileID: "note"}

	sticker := privateMessage("")
	sticker.Sticker = &tgbotapi.Sticker{FileID: "stk"}

	doc := privateMessage("")
	doc.Document = &tgbotapi.Document{FileID: "doc"}

	tests := []struct {
		name string
		msg  *tgbotapi.Message
		want models.Content
	}{
		{"text", privateMessage("hello"), models.Content{Kind: models.KindText, Text: "hello"}},
		{"photo keeps the largest size", photo, models.Content{Kind: models.KindPhoto, FileID: "large", Caption: "sunset"}},
		{"video", video, models.Content{Kind: models.KindVideo, FileID: "vid"}},
		{"voice", voice, models.Content{Kind: models.KindVoice, FileID: "voc"}},
		{"video note", note, models.Content{Kind: models.KindVideoNote, FileID: "note"}},
		{"sticker", sticker, models.Content{Kind: models.KindSticker, FileID: "stk"}},
		{"document is unsupported", doc, models.Content{Kind: models.KindUnsupported}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in, ok := s.classify(tgbotapi.Update{Message: tt.msg})
			require.True(t, ok)
			assert.Equal(t, session.EventContent, in.Event.Type)
			assert.Equal(t, tt.want, in.Event.Content)
		})
	}
}

func TestClassify_Callback(t *testing.T) {
	s, _, _ := newTestBot(t)

	in, ok := s.classify(tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{
		ID:   "cb1",
		From: &tgbotapi.User{ID: 999},
		Data: "reply_to_111_4",
	}})

	require.True(t, ok)
	assert.Equal(t, session.EventAction, in.Event.Type)
	assert.Equal(t, session.Action{TargetID: 111, RefID: 4}, in.Event.Action)
	assert.Equal(t, int64(999), in.Participant.ID)
}

func TestClassify_Skipped(t *testing.T) {
	s, _, _ := newTestBot(t)

	group := privateMessage("hello")
	group.Chat.Type = "group"

	for name, update := range map[string]tgbotapi.Update{
		"empty update":       {},
		"group chat":         {Message: group},
		"malformed callback": {CallbackQuery: &tgbotapi.CallbackQuery{ID: "cb", From: &tgbotapi.User{ID: 1}, Data: "reply_to_x"}},
		"foreign callback":   {CallbackQuery: &tgbotapi.CallbackQuery{ID: "cb", From: &tgbotapi.User{ID: 1}, Data: "set_lang_en"}},
	} {
		_, ok := s.classify(update)
		assert.False(t, ok, name)
	}
}

func TestHandleUpdate_AnswersEveryCallback(t *testing.T) {
	s, api, h := newTestBot(t)
	api.On("Request", mock.AnythingOfType("tgbotapi.CallbackConfig")).Return(nil)

	s.handleUpdate(context.Background(), tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{
		ID: "cb", From: &tgbotapi.User{ID: 1}, Data: "garbage",
	}})

	api.AssertNumberOfCalls(t, "Request", 1)
	h.AssertNotCalled(t, "Handle", mock.Anything, mock.Anything)
}

func TestRun_DispatchesUntilCancelled(t *testing.T) {
	s, api, h := newTestBot(t)
	api.On("GetUpdatesChan", mock.Anything).Return()
	api.On("StopReceivingUpdates").Return()

	handled := make(chan relay.Inbound, 1)
	h.On("Handle", mock.Anything, mock.Anything).Return(relay.ErrUnauthorized).Run(func(args mock.Arguments) {
		handled <- args.Get(1).(relay.Inbound)
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	api.updates <- tgbotapi.Update{Message: commandMessage("stopbot")}
	select {
	case in := <-handled:
		assert.Equal(t, session.CommandEnterMaintenance, in.Event.Command)
	case <-time.After(time.Second):
		t.Fatal("update was not dispatched")
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not stop")
	}
	api.AssertCalled(t, "StopReceivingUpdates")
}
