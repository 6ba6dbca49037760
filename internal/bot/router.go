package bot

import (
	"log/slog"
	"strings"
	"sync"

	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/lessonnotes-bot/internal/bot/handlers"
	"github.com/Proton-105/lessonnotes-bot/internal/bot/keyboard"
)

// Router dispatches commands, callbacks and free text. Text that is neither a
// registered command nor a callback goes to the fallback handler.
type Router struct {
	mu        sync.RWMutex
	commands  map[string]handlers.Handler
	callbacks map[string]handlers.Handler
	fallback  handlers.Handler
	chain     []handlers.Middleware
	log       *slog.Logger
}

// NewRouter builds a Router with empty registries.
func NewRouter(log *slog.Logger) *Router {
	if log == nil {
		log = slog.Default()
	}

	return &Router{
		commands:  map[string]handlers.Handler{},
		callbacks: map[string]handlers.Handler{},
		log:       log,
	}
}

// RegisterCommand binds "/cmd" (case-insensitive) to h.
func (r *Router) RegisterCommand(cmd string, h handlers.Handler) {
	r.mu.Lock()
	r.commands[strings.ToLower(cmd)] = h
	r.mu.Unlock()
}

// RegisterCallback binds the action part of callback data to h.
func (r *Router) RegisterCallback(action string, h handlers.Handler) {
	r.mu.Lock()
	r.callbacks[action] = h
	r.mu.Unlock()
}

// Use appends mw. The first registered middleware runs outermost.
func (r *Router) Use(mw handlers.Middleware) {
	r.mu.Lock()
	r.chain = append(r.chain, mw)
	r.mu.Unlock()
}

// SetDefault sets the handler for text that is not a known command.
func (r *Router) SetDefault(h handlers.Handler) {
	r.mu.Lock()
	r.fallback = h
	r.mu.Unlock()
}

// Route runs the matching handler wrapped in the middleware chain. Callbacks
// nobody handles are acknowledged so the client stops its spinner.
func (r *Router) Route(c telebot.Context) error {
	if c == nil {
		return nil
	}

	if cb := c.Callback(); cb != nil {
		action, _, err := keyboard.DecodeCallback(cb.Data)
		if err != nil {
			r.log.Info("ignoring malformed callback", "data", cb.Data)
			return c.Respond()
		}

		h, chain := r.resolve(r.callbacks, action)
		if h == nil {
			r.log.Info("no callback handler found", "action", action)
			return c.Respond()
		}
		return wrap(h, chain)(c)
	}

	var (
		h     handlers.Handler
		chain []handlers.Middleware
	)
	if cmd, ok := parseCommand(c.Text()); ok {
		h, chain = r.resolve(r.commands, cmd)
	}
	if h == nil {
		h, chain = r.resolve(nil, "")
	}
	if h == nil {
		return nil
	}

	return wrap(h, chain)(c)
}

// resolve looks name up in table, falling back to the default handler when
// table is nil. The returned chain is a copy safe to use without the lock.
func (r *Router) resolve(table map[string]handlers.Handler, name string) (handlers.Handler, []handlers.Middleware) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	h := r.fallback
	if table != nil {
		h = table[name]
	}
	if h == nil {
		return nil, nil
	}

	return h, append([]handlers.Middleware(nil), r.chain...)
}

func wrap(h handlers.Handler, chain []handlers.Middleware) handlers.Handler {
	for i := len(chain) - 1; i >= 0; i-- {
		h = chain[i](h)
	}
	return h
}

// parseCommand extracts "/cmd" from "/cmd@BotName args".
func parseCommand(text string) (string, bool) {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "/") {
		return "", false
	}

	cmd, _, _ := strings.Cut(text, " ")
	cmd, _, _ = strings.Cut(cmd, "@")
	return strings.ToLower(cmd), true
}
