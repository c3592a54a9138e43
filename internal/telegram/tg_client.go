package telegram

import (
	"anonrelay/backend/internal/relay"
	"context"
	"log"
	"net/http"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// pollTimeout is the long-polling window of getUpdates, in seconds.
const pollTimeout = 30

// botAPI is the subset of *tgbotapi.BotAPI used here, defined for testability.
type botAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

var _ botAPI = (*tgbotapi.BotAPI)(nil)

// NewBotAPI authorizes the bot. sendTimeout bounds every outbound call;
// the long poll gets pollTimeout on top of it.
func NewBotAPI(token string, debug bool, sendTimeout time.Duration) (*tgbotapi.BotAPI, error) {
	client := &http.Client{Timeout: sendTimeout + pollTimeout*time.Second}
	bot, err := tgbotapi.NewBotAPIWithClient(token, tgbotapi.APIEndpoint, client)
	if err != nil {
		return nil, err
	}
	bot.Debug = debug
	log.Printf("✅ Authorized on account %s", bot.Self.UserName)
	return bot, nil
}

// Sender implements relay.Transport on top of the Bot API.
type Sender struct {
	api botAPI
}

var _ relay.Transport = (*Sender)(nil)

// NewSender creates a Sender.
func NewSender(api botAPI) *Sender {
	return &Sender{api: api}
}

// replyMarkup turns SendOptions into Telegram markup; nil leaves the
// current keyboard alone.
func replyMarkup(opts relay.SendOptions) interface{} {
	switch {
	case opts.Action != nil:
		return tgbotapi.NewInlineKeyboardMarkup(
			tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData(opts.Action.Label, opts.Action.Data),
			),
		)
	case opts.RemoveKeyboard:
		return tgbotapi.NewRemoveKeyboard(false)
	case len(opts.Keyboard) > 0:
		rows := make([][]tgbotapi.KeyboardButton, 0, len(opts.Keyboard))
		for _, labels := range opts.Keyboard {
			row := make([]tgbotapi.KeyboardButton, 0, len(labels))
			for _, label := range labels {
				row = append(row, tgbotapi.NewKeyboardButton(label))
			}
			rows = append(rows, tgbotapi.NewKeyboardButtonRow(row...))
		}
		keyboard := tgbotapi.NewReplyKeyboard(rows...)
		keyboard.ResizeKeyboard = true
		return keyboard
	}
	return nil
}

func parseMode(opts relay.SendOptions) string {
	if opts.Markdown {
		return tgbotapi.ModeMarkdown
	}
	return ""
}

// SendText sends a text message.
func (s *Sender) SendText(ctx context.Context, chatID int64, text string, opts relay.SendOptions) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = parseMode(opts)
	if markup := replyMarkup(opts); markup != nil {
		msg.ReplyMarkup = markup
	}
	if _, err := s.api.Send(msg); err != nil {
		log.Printf("ERROR: Failed to send Telegram message to %d: %v", chatID, err)
		return err
	}
	return nil
}

// SendCopy copies src into chatID without the forward header, so the
// recipient cannot see where it came from. A non-empty Caption replaces
// the original one.
func (s *Sender) SendCopy(ctx context.Context, chatID int64, src relay.MessageRef, opts relay.SendOptions) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	cp := tgbotapi.NewCopyMessage(chatID, src.ChatID, src.MessageID)
	if opts.Caption != "" {
		cp.Caption = opts.Caption
		cp.ParseMode = parseMode(opts)
	}
	if markup := replyMarkup(opts); markup != nil {
		cp.ReplyMarkup = markup
	}
	// copyMessage answers with a bare MessageId, so Request rather than Send.
	if _, err := s.api.Request(cp); err != nil {
		log.Printf("ERROR: Failed to copy message %d to %d: %v", src.MessageID, chatID, err)
		return err
	}
	return nil
}

// SendDocument uploads data as a file named name.
func (s *Sender) SendDocument(ctx context.Context, chatID int64, name string, data []byte, opts relay.SendOptions) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	doc := tgbotapi.NewDocument(chatID, tgbotapi.FileBytes{Name: name, Bytes: data})
	doc.Caption = opts.Caption
	doc.ParseMode = parseMode(opts)
	if _, err := s.api.Send(doc); err != nil {
		log.Printf("ERROR: Failed to send document %s to %d: %v", name, chatID, err)
		return err
	}
	return nil
}
