package setup

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/m3rciful/apptbot/core/commands"
	"github.com/m3rciful/apptbot/core/logger"
)

// API is the set of platform calls Run performs.
type API interface {
	ListCommands(ctx context.Context) ([]CommandSpec, error)
	CreateCommand(ctx context.Context, cmd CommandSpec) error
	GetChannelType(ctx context.Context, name string) (ChannelType, error)
	UpdateChannelTypeCommands(ctx context.Context, name string, commands []string) error
	SetCustomActionHandlerURL(ctx context.Context, actionURL string) error
}

// Options selects what Run registers.
type Options struct {
	Commands    []commands.Command
	DefaultSet  string
	ChannelType string
	// ActionURL is the public URL of the webhook. Empty skips the app settings update.
	ActionURL string
}

// Report lists what Run changed.
type Report struct {
	Created         []string
	Enabled         []string
	ActionURLUpdate bool
}

// Run creates missing commands, enables them on the channel type and points the app
// at ActionURL. Existing registrations are left as they are.
func Run(ctx context.Context, api API, opts Options) (Report, error) {
	var rep Report
	if len(opts.Commands) == 0 {
		return rep, nil
	}

	existing, err := api.ListCommands(ctx)
	if err != nil {
		return rep, fmt.Errorf("setup: list commands: %w", err)
	}
	known := make(map[string]bool, len(existing))
	for _, c := range existing {
		known[c.Name] = true
	}
	for _, cmd := range opts.Commands {
		if known[cmd.Name] {
			continue
		}
		set := cmd.Set
		if set == "" {
			set = opts.DefaultSet
		}
		spec := CommandSpec{Name: cmd.Name, Description: cmd.Description, Args: cmd.Args, Set: set}
		if err := api.CreateCommand(ctx, spec); err != nil {
			return rep, fmt.Errorf("setup: create command %s: %w", cmd.Name, err)
		}
		rep.Created = append(rep.Created, cmd.Name)
		logger.Info(ctx, logger.CompSetup, "command.created",
			slog.String("status", "ok"),
			slog.String("command", cmd.Name),
			slog.String("set", set),
		)
	}

	if opts.ChannelType != "" {
		ct, err := api.GetChannelType(ctx, opts.ChannelType)
		if err != nil {
			return rep, fmt.Errorf("setup: get channel type %s: %w", opts.ChannelType, err)
		}
		enabled := make([]string, 0, len(ct.Commands)+len(opts.Commands))
		seen := make(map[string]bool, len(ct.Commands))
		for _, c := range ct.Commands {
			if !seen[c.Name] {
				seen[c.Name] = true
				enabled = append(enabled, c.Name)
			}
		}
		var missing []string
		for _, cmd := range opts.Commands {
			if !seen[cmd.Name] {
				seen[cmd.Name] = true
				missing = append(missing, cmd.Name)
			}
		}
		if len(missing) > 0 {
			if len(enabled) == 0 {
				enabled = append(enabled, "all")
			}
			enabled = append(enabled, missing...)
			if err := api.UpdateChannelTypeCommands(ctx, opts.ChannelType, enabled); err != nil {
				return rep, fmt.Errorf("setup: update channel type %s: %w", opts.ChannelType, err)
			}
			rep.Enabled = missing
			logger.Info(ctx, logger.CompSetup, "channel_type.updated",
				slog.String("status", "ok"),
				slog.String("channel_type", opts.ChannelType),
				slog.Any("commands", enabled),
			)
		}
	}

	if opts.ActionURL != "" {
		if err := api.SetCustomActionHandlerURL(ctx, opts.ActionURL); err != nil {
			return rep, fmt.Errorf("setup: update app settings: %w", err)
		}
		rep.ActionURLUpdate = true
		logger.Info(ctx, logger.CompSetup, "app.updated",
			slog.String("status", "ok"),
			slog.String("custom_action_handler_url", opts.ActionURL),
		)
	}
	return rep, nil
}
