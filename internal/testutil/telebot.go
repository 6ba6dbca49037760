// Package testutil holds test doubles shared by the Telegram transport tests.
package testutil

import (
	"fmt"
	"sync"

	telebot "gopkg.in/telebot.v3"
)

// Sent is one outgoing message captured by FakeContext.
type Sent struct {
	Text string
	Opts []interface{}
}

// Markup returns the reply markup passed with the message, if any.
func (s Sent) Markup() *telebot.ReplyMarkup {
	for _, opt := range s.Opts {
		if markup, ok := opt.(*telebot.ReplyMarkup); ok {
			return markup
		}
	}
	return nil
}

// FakeContext implements the parts of telebot.Context the handlers touch.
// Calling anything else panics through the nil embedded interface.
type FakeContext struct {
	telebot.Context

	UpdateID int
	ChatID   int64
	User     *telebot.User
	Msg      string
	Cb       *telebot.Callback
	SendErr  error

	mu        sync.Mutex
	store     map[string]interface{}
	sent      []Sent
	responses []*telebot.CallbackResponse
}

// NewTextContext builds a context for a plain text message.
func NewTextContext(chatID int64, text string) *FakeContext {
	return &FakeContext{
		ChatID: chatID,
		User:   &telebot.User{ID: chatID, FirstName: "Ama"},
		Msg:    text,
	}
}

// NewCallbackContext builds a context for an inline button press.
func NewCallbackContext(chatID int64, data string) *FakeContext {
	return &FakeContext{
		ChatID: chatID,
		User:   &telebot.User{ID: chatID, FirstName: "Ama"},
		Cb:     &telebot.Callback{ID: fmt.Sprintf("cb-%d", chatID), Data: data},
	}
}

func (f *FakeContext) Update() telebot.Update {
	return telebot.Update{ID: f.UpdateID}
}

func (f *FakeContext) Chat() *telebot.Chat {
	if f.ChatID == 0 {
		return nil
	}
	return &telebot.Chat{ID: f.ChatID, Type: telebot.ChatPrivate}
}

func (f *FakeContext) Sender() *telebot.User {
	return f.User
}

func (f *FakeContext) Text() string {
	return f.Msg
}

func (f *FakeContext) Callback() *telebot.Callback {
	return f.Cb
}

func (f *FakeContext) Message() *telebot.Message {
	if f.Cb != nil {
		return nil
	}
	return &telebot.Message{ID: f.UpdateID, Text: f.Msg, Chat: f.Chat(), Sender: f.User}
}

func (f *FakeContext) Get(key string) interface{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.store[key]
}

func (f *FakeContext) Set(key string, val interface{}) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.store == nil {
		f.store = make(map[string]interface{})
	}
	f.store[key] = val
}

func (f *FakeContext) Send(what interface{}, opts ...interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, Sent{Text: fmt.Sprint(what), Opts: opts})
	return f.SendErr
}

func (f *FakeContext) Respond(resp ...*telebot.CallbackResponse) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(resp) == 0 {
		f.responses = append(f.responses, &telebot.CallbackResponse{})
		return nil
	}
	f.responses = append(f.responses, resp...)
	return nil
}

// Sent returns every captured outgoing message.
func (f *FakeContext) Sent() []Sent {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Sent, len(f.sent))
	copy(out, f.sent)
	return out
}

// Last returns the most recent outgoing message.
func (f *FakeContext) Last() Sent {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.sent) == 0 {
		return Sent{}
	}
	return f.sent[len(f.sent)-1]
}

// Responses returns every callback acknowledgement.
func (f *FakeContext) Responses() []*telebot.CallbackResponse {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*telebot.CallbackResponse, len(f.responses))
	copy(out, f.responses)
	return out
}
