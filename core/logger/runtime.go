package logger

import (
	"context"
	"log/slog"
	"strings"
	"unicode"
)

type contextKey string

const (
	ctxRID     contextKey = "rid"
	ctxUserID  contextKey = "user_id"
	ctxCommand contextKey = "command"
	ctxHandler contextKey = "handler"
	ctxLogger  contextKey = "logger"
)

func withValue(ctx context.Context, key contextKey, val any) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, key, val)
}

func stringFrom(ctx context.Context, key contextKey) string {
	if ctx == nil {
		return ""
	}
	s, _ := ctx.Value(key).(string)
	return s
}

// WithLogger stores the provided slog.Logger in context for propagation across layers.
func WithLogger(ctx context.Context, log *slog.Logger) context.Context {
	if log == nil {
		if ctx == nil {
			return context.Background()
		}
		return ctx
	}
	return withValue(ctx, ctxLogger, log)
}

// FromContext extracts slog.Logger from context or returns the base logger.
func FromContext(ctx context.Context) *slog.Logger {
	if ctx != nil {
		if l, ok := ctx.Value(ctxLogger).(*slog.Logger); ok {
			return l
		}
	}
	if L != nil {
		return L
	}
	return slog.Default()
}

// WithRID attaches the request correlation id.
func WithRID(ctx context.Context, rid string) context.Context {
	return withValue(ctx, ctxRID, rid)
}

// RIDFrom extracts rid from context if present.
func RIDFrom(ctx context.Context) string { return stringFrom(ctx, ctxRID) }

// WithInvocation attaches the platform user id and command name of the current webhook call.
func WithInvocation(ctx context.Context, userID, command string) context.Context {
	ctx = withValue(ctx, ctxUserID, userID)
	return withValue(ctx, ctxCommand, command)
}

// UserIDFrom returns the platform user id.
func UserIDFrom(ctx context.Context) string { return stringFrom(ctx, ctxUserID) }

// CommandFrom returns the custom command name.
func CommandFrom(ctx context.Context) string { return stringFrom(ctx, ctxCommand) }

// WithHandler stores handler identifier in context for downstream logs.
func WithHandler(ctx context.Context, handler string) context.Context {
	if handler == "" {
		if ctx == nil {
			return context.Background()
		}
		return ctx
	}
	return withValue(ctx, ctxHandler, handler)
}

// HandlerFrom returns handler identifier from context if present.
func HandlerFrom(ctx context.Context) string { return stringFrom(ctx, ctxHandler) }

// Sanitize drops control and format runes (except tab and newline) from s.
func Sanitize(s string) string {
	if s == "" {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r == '\n' || r == '\t' {
			b.WriteRune(r)
			continue
		}
		if unicode.IsControl(r) || unicode.Is(unicode.Cf, r) {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// SanitizeLimit applies Sanitize and limits the output length in runes.
func SanitizeLimit(s string, max int) string {
	if max <= 0 {
		return ""
	}
	r := []rune(Sanitize(s))
	if len(r) <= max {
		return string(r)
	}
	return string(r[:max])
}
