package relay

import "context"

// MessageRef points at a message already delivered to the bot.
type MessageRef struct {
	ChatID    int64
	MessageID int
}

// ActionButton is an inline button carrying a reply-action payload.
type ActionButton struct {
	Label string
	Data  string
}

// SendOptions shape one outbound message. Keyboard rows become a reply
// keyboard; Action becomes an inline button. Caption is used by copies
// and documents.
type SendOptions struct {
	Markdown       bool
	Keyboard       [][]string
	RemoveKeyboard bool
	Action         *ActionButton
	Caption        string
}

// Transport delivers content to participants by id.
type Transport interface {
	SendText(ctx context.Context, chatID int64, text string, opts SendOptions) error
	SendCopy(ctx context.Context, chatID int64, src MessageRef, opts SendOptions) error
	SendDocument(ctx context.Context, chatID int64, name string, data []byte, opts SendOptions) error
}

// Texts looks up localized strings.
type Texts interface {
	GetString(lang, key string) string
}
