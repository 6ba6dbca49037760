// Package bot wires the Telegram transport to the lesson notes conversation.
package bot

import (
	"fmt"
	"log/slog"

	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/lessonnotes-bot/internal/bot/handlers"
	"github.com/Proton-105/lessonnotes-bot/internal/bot/keyboard"
	errors "github.com/Proton-105/lessonnotes-bot/internal/errors"
	"github.com/Proton-105/lessonnotes-bot/internal/idempotency"
	"github.com/Proton-105/lessonnotes-bot/internal/middleware"
	"github.com/Proton-105/lessonnotes-bot/internal/repository"
	"github.com/Proton-105/lessonnotes-bot/internal/state"
	"github.com/Proton-105/lessonnotes-bot/internal/user"
	"github.com/Proton-105/lessonnotes-bot/pkg/config"
)

// Dependencies are the collaborators the bot routes updates to. Only FSM is required.
type Dependencies struct {
	FSM         state.StateMachine
	Idempotency idempotency.Manager
	RateLimit   *middleware.RateLimitMiddleware
	Users       *user.Service
	History     repository.SubmissionRepository
	ErrHandler  *errors.Handler
}

// Bot wraps telebot.Bot with application dependencies required for handling updates.
type Bot struct {
	telebot    *telebot.Bot
	log        *slog.Logger
	cfg        config.Config
	deps       Dependencies
	router     *Router
	keyboard   *keyboard.Builder
	errHandler *errors.Handler
}

// New builds a telegram bot instance configured according to the application settings.
func New(cfg config.Config, log *slog.Logger, deps Dependencies) (*Bot, error) {
	return newBot(cfg, log, deps, false)
}

func newBot(cfg config.Config, log *slog.Logger, deps Dependencies, offline bool) (*Bot, error) {
	if log == nil {
		log = slog.Default()
	}
	if deps.FSM == nil {
		return nil, fmt.Errorf("state machine is required")
	}

	settings := telebot.Settings{
		Token:   cfg.Bot.Token,
		Poller:  newPoller(cfg.Bot),
		Offline: offline,
		OnError: func(err error, c telebot.Context) {
			log.Error("telebot error", slog.Any("error", err))
		},
	}

	tb, err := telebot.NewBot(settings)
	if err != nil {
		return nil, fmt.Errorf("initialize telebot: %w", err)
	}

	errHandler := deps.ErrHandler
	if errHandler == nil {
		errHandler = errors.NewHandler(log, cfg.Sentry.Enabled)
	}

	b := &Bot{
		telebot:    tb,
		log:        log,
		cfg:        cfg,
		deps:       deps,
		router:     NewRouter(log),
		keyboard:   keyboard.NewBuilder(log),
		errHandler: errHandler,
	}

	b.setupRouter()

	if deps.RateLimit != nil {
		b.telebot.Use(deps.RateLimit.Handle)
	}

	b.registerTelebotHandlers()

	return b, nil
}

func newPoller(cfg config.BotConfig) telebot.Poller {
	if cfg.Mode == "webhook" {
		webhook := &telebot.Webhook{Listen: cfg.WebhookListen}
		if cfg.WebhookURL != "" {
			webhook.Endpoint = &telebot.WebhookEndpoint{PublicURL: cfg.WebhookURL}
		}
		return webhook
	}

	return &telebot.LongPoller{Timeout: cfg.Timeout}
}

// Start publishes the command menu and runs the telegram bot event loop. It blocks until Stop.
func (b *Bot) Start() {
	if b.telebot == nil {
		return
	}

	commands := make([]telebot.Command, 0, len(menuCommands))
	for _, cmd := range menuCommands {
		commands = append(commands, telebot.Command{Text: cmd.Command[1:], Description: cmd.Description})
	}
	if err := b.telebot.SetCommands(commands); err != nil {
		b.log.Warn("failed to publish bot commands", slog.Any("error", err))
	}

	b.log.Info("telegram bot started", slog.String("mode", b.cfg.Bot.Mode))
	b.telebot.Start()
}

// Stop gracefully stops the telegram bot.
func (b *Bot) Stop() {
	if b.telebot == nil {
		return
	}

	b.log.Info("stopping telegram bot...")
	b.telebot.Stop()
}

// Telebot exposes the underlying telebot.Bot instance for integrations such as health checks.
func (b *Bot) Telebot() *telebot.Bot {
	return b.telebot
}

func (b *Bot) setupRouter() {
	b.router.Use(RecoveryMiddleware(b.log, b.errHandler))
	b.router.Use(middleware.Idempotency(b.deps.Idempotency, b.log))
	b.router.Use(ErrorHandlingMiddleware(b.errHandler))
	b.router.Use(LoggingMiddleware(b.log))
	if b.deps.Users != nil {
		b.router.Use(UserTrackingMiddleware(b.deps.Users, b.log))
	}
	b.router.Use(middleware.Metrics)

	fsm := b.deps.FSM
	start := handlers.NewStartHandler(fsm, b.keyboard, b.log)
	b.router.RegisterCommand(CommandStart, start)
	b.router.RegisterCommand(CommandHello, start)
	b.router.RegisterCommand(CommandRestart, start)
	b.router.RegisterCommand(CommandPrev, handlers.NewBackHandler(fsm, b.keyboard, b.log))
	b.router.RegisterCommand(CommandCancel, handlers.NewCancelHandler(fsm, b.keyboard, b.log))
	b.router.RegisterCommand(CommandStatus, handlers.NewStatusHandler(fsm, b.deps.History, b.log))
	b.router.RegisterCommand(CommandHelp, handlers.NewHelpHandler())

	b.router.RegisterCallback(keyboard.ActionConfirm, handlers.NewConfirmHandler(fsm, b.keyboard, b.log))

	b.router.SetDefault(handlers.NewTextHandler(fsm, b.keyboard, b.log))
}

func (b *Bot) registerTelebotHandlers() {
	b.telebot.Handle(telebot.OnText, b.router.Route)
	b.telebot.Handle(telebot.OnCallback, b.router.Route)
}
