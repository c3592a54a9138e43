// Package telegram handles the integration with the Telegram Bot API.
// It receives updates, classifies them into relay events and delivers the
// relay's outbound messages.
package telegram

import (
	"anonrelay/backend/internal/localization"
	"anonrelay/backend/internal/models"
	"anonrelay/backend/internal/relay"
	"anonrelay/backend/internal/session"
	"context"
	"errors"
	"log"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Handler consumes classified updates. *relay.Service implements it.
type Handler interface {
	Handle(ctx context.Context, in relay.Inbound) error
}

var _ Handler = (*relay.Service)(nil)

// menuItems maps keyboard label keys onto menu choices. The cancel-reply
// label means the same as cancel.
var menuItems = map[string]session.MenuItem{
	localization.KeyButtonCompose:     session.MenuCompose,
	localization.KeyButtonStats:       session.MenuStats,
	localization.KeyButtonHelp:        session.MenuHelp,
	localization.KeyButtonCancel:      session.MenuCancel,
	localization.KeyButtonCancelReply: session.MenuCancel,
}

var menuKeys = []string{
	localization.KeyButtonCompose,
	localization.KeyButtonStats,
	localization.KeyButtonHelp,
	localization.KeyButtonCancel,
	localization.KeyButtonCancelReply,
}

// BotService is responsible for receiving Telegram updates and routing them to the relay.
type BotService struct {
	BotAPI    botAPI
	Handler   Handler
	Localizer *localization.Localizer
}

// NewBotService creates a new BotService instance.
func NewBotService(api botAPI, h Handler, l *localization.Localizer) *BotService {
	return &BotService{BotAPI: api, Handler: h, Localizer: l}
}

// Run is the main loop for receiving Telegram updates. Updates are handled
// one at a time until ctx is cancelled or the channel closes.
func (s *BotService) Run(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = pollTimeout
	updates := s.BotAPI.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			s.BotAPI.StopReceivingUpdates()
			log.Println("INFO: Telegram update loop stopped")
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			s.handleUpdate(ctx, update)
		}
	}
}

func (s *BotService) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	if cq := update.CallbackQuery; cq != nil {
		// Respond to the callback query to remove the "loading" state
		callback := tgbotapi.NewCallback(cq.ID, "")
		if _, err := s.BotAPI.Request(callback); err != nil {
			log.Printf("WARN: failed to send callback response: %v", err)
		}
	}

	in, ok := s.classify(update)
	if !ok {
		return
	}
	// Failures were already reported to the participant by the relay.
	if err := s.Handler.Handle(ctx, in); errors.Is(err, relay.ErrUnauthorized) {
		log.Printf("WARN: Ignored operator-only input from %d", in.Participant.ID)
	}
}

// classify turns an update into a relay event. Updates the relay has no
// use for (edits, group chats, foreign callbacks) are skipped.
func (s *BotService) classify(update tgbotapi.Update) (relay.Inbound, bool) {
	if cq := update.CallbackQuery; cq != nil {
		if cq.From == nil {
			return relay.Inbound{}, false
		}
		if !relay.IsAction(cq.Data) {
			return relay.Inbound{}, false
		}
		action, ok := relay.DecodeAction(cq.Data)
		if !ok {
			log.Printf("WARN: Ignoring callback with malformed data %q", cq.Data)
			return relay.Inbound{}, false
		}
		return relay.Inbound{
			Participant: participantFrom(cq.From),
			Event:       session.Event{Type: session.EventAction, Action: action},
		}, true
	}

	msg := update.Message
	if msg == nil || msg.From == nil || msg.Chat.Type != "private" {
		return relay.Inbound{}, false
	}

	in := relay.Inbound{
		Participant: participantFrom(msg.From),
		Source:      relay.MessageRef{ChatID: msg.Chat.ID, MessageID: msg.MessageID},
	}
	switch {
	case msg.IsCommand():
		in.Event = session.Event{Type: session.EventCommand, Command: session.Command(msg.Command())}
	case msg.Text != "":
		content := models.Content{Kind: models.KindText, Text: msg.Text}
		if key, ok := s.Localizer.MatchKey(msg.Text, menuKeys...); ok {
			in.Event = session.Event{Type: session.EventMenu, Menu: menuItems[key], Content: content}
		} else {
			in.Event = session.Event{Type: session.EventContent, Content: content}
		}
	default:
		in.Event = session.Event{Type: session.EventContent, Content: extractContent(msg)}
	}
	return in, true
}

func participantFrom(u *tgbotapi.User) models.Participant {
	return models.Participant{
		ID:           u.ID,
		FirstName:    u.FirstName,
		LastName:     u.LastName,
		Username:     u.UserName,
		LanguageCode: u.LanguageCode,
	}
}

// extractContent uniformly extracts kind, file ID and caption from a message.
func extractContent(msg *tgbotapi.Message) models.Content {
	c := models.Content{Caption: msg.Caption}
	switch {
	case msg.Text != "":
		c = models.Content{Kind: models.KindText, Text: msg.Text}
	case msg.Animation != nil:
		// Animations also carry Document; neither is relayed.
		c.Kind = models.KindUnsupported
	case len(msg.Photo) > 0:
		c.Kind = models.KindPhoto
		c.FileID = msg.Photo[len(msg.Photo)-1].FileID
	case msg.Video != nil:
		c.Kind = models.KindVideo
		c.FileID = msg.Video.FileID
	case msg.Voice != nil:
		c.Kind = models.KindVoice
		c.FileID = msg.Voice.FileID
	case msg.VideoNote != nil:
		c.Kind = models.KindVideoNote
		c.FileID = msg.VideoNote.FileID
	case msg.Sticker != nil:
		c.Kind = models.KindSticker
		c.FileID = msg.Sticker.FileID
	default:
		c.Kind = models.KindUnsupported
	}
	return c
}
