// Package app composes the webhook service from configuration.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/m3rciful/apptbot/core/appointment"
	"github.com/m3rciful/apptbot/core/commands"
	coreconfig "github.com/m3rciful/apptbot/core/config"
	"github.com/m3rciful/apptbot/core/flow"
	"github.com/m3rciful/apptbot/core/logger"
	"github.com/m3rciful/apptbot/core/notify"
	"github.com/m3rciful/apptbot/core/setup"
	"github.com/m3rciful/apptbot/core/webhook"
)

// Options carry what New needs beyond the config. Nil fields are built from config.
type Options struct {
	Config *coreconfig.Config
	DB     *sqlx.DB

	// TelegramSender replaces the bot built from the telegram config.
	TelegramSender notify.Sender
	// SetupAPI replaces the Stream REST client used by Setup.
	SetupAPI setup.API
}

// App is the assembled service.
type App struct {
	cfg        *coreconfig.Config
	registry   *commands.Registry
	recorder   appointment.Recorder
	dispatcher *notify.Dispatcher
	setupAPI   setup.API
	handler    http.Handler
}

// New wires recorders, the appointment command and the HTTP router.
func New(opts Options) (*App, error) {
	cfg := opts.Config
	if cfg == nil {
		return nil, fmt.Errorf("app: nil config provided")
	}
	a := &App{cfg: cfg, setupAPI: opts.SetupAPI}

	var sinks appointment.Fanout
	if opts.DB != nil {
		sinks = append(sinks, appointment.NewPostgresStore(opts.DB))
	} else {
		sinks = append(sinks, appointment.LogRecorder{})
	}
	if cfg.Telegram.NotifyEnabled() || opts.TelegramSender != nil {
		sender := opts.TelegramSender
		if sender == nil {
			bot, err := notify.NewTelegramBot(cfg.Telegram)
			if err != nil {
				return nil, err
			}
			sender = bot
		}
		a.dispatcher = notify.NewDispatcher(notify.Options{MaxRetries: 2})
		sinks = append(sinks, notify.NewTelegram(sender, cfg.Telegram.AdminID, a.dispatcher))
	}
	a.recorder = sinks

	a.registry = commands.NewRegistry()
	engine := flow.NewEngine(flow.OptionsFromConfig(cfg.Flow), a.recorder)
	if err := a.registry.Register(commands.Command{
		Name:        flow.CommandName,
		Description: "Create an appointment",
		Args:        "[description]",
		Set:         cfg.Stream.CommandSet,
		Handler:     engine,
	}); err != nil {
		a.Close()
		return nil, fmt.Errorf("app: register %s: %w", flow.CommandName, err)
	}

	a.handler = webhook.NewRouter(webhook.RouterOptions{
		Verifier:     webhook.NewVerifier(cfg.Stream.APIKey, cfg.Stream.APISecret),
		Commands:     a.registry,
		MaxBodyBytes: cfg.Server.MaxBodyBytes,
	})
	return a, nil
}

// Handler returns the HTTP handler.
func (a *App) Handler() http.Handler { return a.handler }

// Registry returns the registered custom commands.
func (a *App) Registry() *commands.Registry { return a.registry }

// Serve listens on the configured address until ctx is done.
func (a *App) Serve(ctx context.Context) error {
	srv := webhook.NewServer(a.cfg.Server.Addr(), a.handler)
	timeout := time.Duration(a.cfg.Server.ShutdownTimeoutSeconds) * time.Second
	return webhook.Serve(ctx, srv, timeout)
}

// Setup registers the commands with the platform and points it at the action URL.
func (a *App) Setup(ctx context.Context) (setup.Report, error) {
	api := a.setupAPI
	if api == nil {
		client, err := setup.NewClient(a.cfg.Stream.BaseURL, a.cfg.Stream.APIKey, a.cfg.Stream.APISecret, nil)
		if err != nil {
			return setup.Report{}, err
		}
		api = client
	}
	if a.cfg.Stream.ActionURL == "" {
		logger.Warn(ctx, logger.CompSetup, "app.skip",
			slog.String("status", "skip"),
			slog.String("cause", "stream.action_url not set"),
		)
	}
	start := time.Now()
	rep, err := setup.Run(ctx, api, setup.Options{
		Commands:    a.registry.List(),
		DefaultSet:  a.cfg.Stream.CommandSet,
		ChannelType: a.cfg.Stream.ChannelType,
		ActionURL:   a.cfg.Stream.ActionURL,
	})
	attrs := []slog.Attr{
		slog.String("status", logger.Status(err)),
		slog.Int("created", len(rep.Created)),
		slog.Int("enabled", len(rep.Enabled)),
		slog.Duration("duration", time.Since(start)),
	}
	if err != nil {
		attrs = append(attrs, slog.String("err", err.Error()))
		logger.Error(ctx, logger.CompSetup, "setup.done", attrs...)
	} else {
		logger.Info(ctx, logger.CompSetup, "setup.done", attrs...)
	}
	return rep, err
}

// Close drains pending notifications.
func (a *App) Close() {
	if a.dispatcher != nil {
		a.dispatcher.Close()
	}
}
