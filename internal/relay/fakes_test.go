package relay_test

import (
	"anonrelay/backend/internal/relay"
	"context"
	"errors"
	"sync"
)

var errSend = errors.New("telegram: bad gateway")

type sent struct {
	Kind   string // text, copy or document
	ChatID int64
	Text   string
	Source relay.MessageRef
	Name   string
	Data   []byte
	Opts   relay.SendOptions
}

// fakeTransport records every outbound call. Chats listed in failFor
// reject everything.
type fakeTransport struct {
	mu      sync.Mutex
	sent    []sent
	failFor map[int64]bool
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{failFor: make(map[int64]bool)}
}

func (f *fakeTransport) record(s sent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failFor[s.ChatID] {
		return errSend
	}
	f.sent = append(f.sent, s)
	return nil
}

func (f *fakeTransport) SendText(_ context.Context, chatID int64, text string, opts relay.SendOptions) error {
	return f.record(sent{Kind: "text", ChatID: chatID, Text: text, Opts: opts})
}

func (f *fakeTransport) SendCopy(_ context.Context, chatID int64, src relay.MessageRef, opts relay.SendOptions) error {
	return f.record(sent{Kind: "copy", ChatID: chatID, Source: src, Opts: opts})
}

func (f *fakeTransport) SendDocument(_ context.Context, chatID int64, name string, data []byte, opts relay.SendOptions) error {
	return f.record(sent{Kind: "document", ChatID: chatID, Name: name, Data: data, Opts: opts})
}

func (f *fakeTransport) to(chatID int64) []sent {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []sent
	for _, s := range f.sent {
		if s.ChatID == chatID {
			out = append(out, s)
		}
	}
	return out
}

func (f *fakeTransport) last(chatID int64) sent {
	msgs := f.to(chatID)
	if len(msgs) == 0 {
		return sent{}
	}
	return msgs[len(msgs)-1]
}

func (f *fakeTransport) reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = nil
}
