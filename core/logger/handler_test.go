package logger

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func newTestLogger(t *testing.T, format logFormat) (*slog.Logger, *asyncWriter, *bytes.Buffer) {
	t.Helper()
	buf := &bytes.Buffer{}
	aw := newAsyncWriter([]io.Writer{buf}, 1024)
	handler := newStructuredHandler(handlerConfig{
		level:    slog.LevelInfo,
		writer:   aw,
		format:   format,
		keyOrder: append([]string(nil), defaultKeyOrder...),
	})
	return slog.New(handler), aw, buf
}

func closeAndRead(t *testing.T, aw *asyncWriter, buf *bytes.Buffer) string {
	t.Helper()
	if err := aw.Flush(); err != nil {
		t.Fatalf("flush: %v", err)
	}
	if err := aw.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	return strings.TrimSpace(buf.String())
}

func TestStructuredHandlerKVOrder(t *testing.T) {
	log, aw, buf := newTestLogger(t, formatKV)
	ctx := WithRID(context.Background(), "rid-123")
	ctx = WithInvocation(ctx, "jim", "appointment")

	LogEvent(ctx, log.With("component", "http"), slog.LevelInfo, "webhook.handled",
		slog.String("status", "ok"),
		slog.String("cause", "unit"),
	)

	line := closeAndRead(t, aw, buf)
	tokens := strings.Split(line, " ")
	expected := []string{"ts=", "level=INFO", "component=http", "event=webhook.handled", "status=ok", "rid=rid-123", "user_id=jim", "command=appointment"}
	if len(tokens) < len(expected) {
		t.Fatalf("unexpected token count: %d (%s)", len(tokens), line)
	}
	for i, prefix := range expected {
		if !strings.HasPrefix(tokens[i], prefix) {
			t.Fatalf("token %d = %s, expected prefix %s", i, tokens[i], prefix)
		}
	}
}

func TestStructuredHandlerJSONOrder(t *testing.T) {
	log, aw, buf := newTestLogger(t, formatJSON)
	ctx := WithRID(context.Background(), "rid-json")

	LogEvent(ctx, log.With("component", "store"), slog.LevelError, "record.failed",
		slog.String("status", "FAIL"),
		slog.Any("err", errors.New("boom")),
		slog.Duration("duration", 1500*time.Microsecond),
	)

	line := closeAndRead(t, aw, buf)
	prefixes := []string{`{"ts":`, `"level":"ERROR"`, `"component":"store"`, `"event":"record.failed"`, `"status":"fail"`, `"rid":"rid-json"`, `"duration_ms":2`, `"err":"boom"`}
	pos := -1
	for _, pref := range prefixes {
		idx := strings.Index(line, pref)
		if idx == -1 || idx < pos {
			t.Fatalf("prefix %s not found in order within %s", pref, line)
		}
		pos = idx
	}
}

func TestStructuredHandlerDropsEmptyAndBelowLevel(t *testing.T) {
	log, aw, buf := newTestLogger(t, formatKV)
	log.Debug("hidden")
	log.Info("visible", slog.String("empty", ""), slog.String("payload", "a b"))

	line := closeAndRead(t, aw, buf)
	if strings.Contains(line, "hidden") {
		t.Fatalf("debug line should be filtered: %s", line)
	}
	if strings.Contains(line, "empty=") {
		t.Fatalf("empty attr should be pruned: %s", line)
	}
	if !strings.Contains(line, `payload="a b"`) {
		t.Fatalf("value with spaces should be quoted: %s", line)
	}
	if !strings.Contains(line, "event=visible") || !strings.Contains(line, "component=app") {
		t.Fatalf("message should become event with default component: %s", line)
	}
}

func TestSanitizeLimit(t *testing.T) {
	got := SanitizeLimit("ab\x00c\u200bdef", 4)
	if got != "abcd" {
		t.Fatalf("SanitizeLimit = %q", got)
	}
	if SanitizeLimit("x", 0) != "" {
		t.Fatal("zero limit should yield empty string")
	}
}
