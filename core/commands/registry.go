package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/m3rciful/apptbot/core/logger"
	"github.com/m3rciful/apptbot/core/stream"
)

// ErrInvalidCommand is returned by Register for a command without name or handler.
var ErrInvalidCommand = errors.New("invalid command registration")

// Registry holds the custom commands this service answers.
type Registry struct {
	mu       sync.RWMutex
	commands map[string]Command
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{commands: make(map[string]Command)}
}

// Register adds a command. Names are matched case-sensitively, without a leading slash.
func (r *Registry) Register(cmd Command) error {
	cmd.Name = strings.TrimPrefix(strings.TrimSpace(cmd.Name), "/")
	if r == nil || cmd.Name == "" || cmd.Handler == nil {
		logger.Warn(context.Background(), logger.CompApp, "register.command.skip",
			slog.String("name", cmd.Name),
			slog.String("reason", "invalid"),
		)
		return ErrInvalidCommand
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.commands[cmd.Name]; exists {
		logger.Warn(context.Background(), logger.CompApp, "register.command.duplicate",
			slog.String("name", cmd.Name),
		)
		return fmt.Errorf("command already registered: %s", cmd.Name)
	}
	r.commands[cmd.Name] = cmd
	return nil
}

// Lookup returns the command registered under name.
func (r *Registry) Lookup(name string) (Command, bool) {
	if r == nil || name == "" {
		return Command{}, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	cmd, ok := r.commands[name]
	return cmd, ok
}

// List returns all commands sorted by name.
func (r *Registry) List() []Command {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	list := make([]Command, 0, len(r.commands))
	for _, cmd := range r.commands {
		list = append(list, cmd)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Name < list[j].Name })
	return list
}

// Route dispatches inv to the handler registered for its command. It reports false,
// leaving inv untouched, when no command matches.
func (r *Registry) Route(ctx context.Context, inv *stream.Invocation) (bool, error) {
	if inv == nil {
		return false, nil
	}
	cmd, ok := r.Lookup(inv.Message.Command)
	if !ok {
		return false, nil
	}
	name := normalizeHandlerName(cmd.Name)
	ctx = logger.WithHandler(ctx, name)

	start := time.Now()
	err := runHandler(ctx, cmd.Handler, inv)
	logHandlerSummary(ctx, name, start, inv, err)
	return true, err
}

func runHandler(ctx context.Context, h Handler, inv *stream.Invocation) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic in handler: %v", rec)
		}
	}()
	return h.Handle(ctx, inv)
}

func logHandlerSummary(ctx context.Context, handlerName string, start time.Time, inv *stream.Invocation, err error) {
	attrs := []slog.Attr{
		slog.String("status", logger.Status(err)),
		slog.String("handler", handlerName),
		slog.String("message_type", string(inv.Message.Type)),
		slog.Int64("duration_ms", logger.RoundMS(time.Since(start)).Milliseconds()),
	}
	if err != nil {
		attrs = append(attrs,
			slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
			slog.String("err_code", deriveErrorCode(err)),
		)
	}
	level := slog.LevelInfo
	if err != nil {
		level = slog.LevelError
	}
	logger.LogEvent(ctx, logger.Component(logger.CompFlow), level, "handler.handled", attrs...)
}

func normalizeHandlerName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return "unknown"
	}
	name = strings.ReplaceAll(name, " ", "_")
	return strings.ToLower(name)
}

func deriveErrorCode(err error) string {
	if err == nil {
		return ""
	}
	type coder interface{ Code() string }
	var c coder
	if errors.As(err, &c) {
		if code := strings.TrimSpace(c.Code()); code != "" {
			return strings.ToUpper(strings.ReplaceAll(code, " ", "_"))
		}
	}
	t := reflect.TypeOf(err)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t != nil && t.Name() != "" {
		return strings.ToUpper(t.Name())
	}
	return "UNKNOWN_ERROR"
}
