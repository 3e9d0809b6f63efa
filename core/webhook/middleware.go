package webhook

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"runtime/debug"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/m3rciful/apptbot/core/logger"
)

// HeaderRequestID carries the correlation id in both directions.
const HeaderRequestID = "X-Request-Id"

type rawBodyKey struct{}

// RawBody returns the request bytes captured by Authenticate.
func RawBody(ctx context.Context) ([]byte, bool) {
	b, ok := ctx.Value(rawBodyKey{}).([]byte)
	return b, ok
}

// RequestID assigns a correlation id, reusing a sane inbound one.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rid := logger.SanitizeLimit(r.Header.Get(HeaderRequestID), 64)
		if rid == "" {
			rid = uuid.NewString()
		}
		w.Header().Set(HeaderRequestID, rid)
		ctx := logger.WithRID(r.Context(), rid)
		ctx = logger.WithLogger(ctx, logger.Component(logger.CompHTTP))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// AccessLog writes one line per request once the response is complete.
func AccessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		defer func() {
			code := ww.Status()
			if code == 0 {
				code = http.StatusOK
			}
			level := slog.LevelInfo
			status := "ok"
			switch {
			case code >= 500:
				level, status = slog.LevelError, "fail"
			case code >= 400:
				level, status = slog.LevelWarn, "rejected"
			}
			logger.LogEvent(r.Context(), logger.Component(logger.CompHTTP), level, "http.request",
				slog.String("status", status),
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("http_code", code),
				slog.Int("bytes", ww.BytesWritten()),
				slog.String("remote", r.RemoteAddr),
				slog.Duration("duration", time.Since(start)),
			)
		}()
		next.ServeHTTP(ww, r)
	})
}

// Recover turns a handler panic into a 500 and logs the stack.
func Recover(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}
			logger.Error(r.Context(), logger.CompHTTP, "http.panic",
				slog.String("status", "fail"),
				slog.String("err", fmt.Sprint(rec)),
				slog.String("stack", string(debug.Stack())),
			)
			writeError(w, http.StatusInternalServerError, "internal error")
		}()
		next.ServeHTTP(w, r)
	})
}

// Authenticate reads the whole body once, verifies it and hands the same bytes on.
// Requests that fail verification never reach next.
func Authenticate(v *Verifier, maxBytes int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			body, err := io.ReadAll(io.LimitReader(r.Body, maxBytes+1))
			if err != nil {
				writeError(w, http.StatusBadRequest, "failed to read request body")
				return
			}
			if int64(len(body)) > maxBytes {
				writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
				return
			}

			apiKey := r.Header.Get(HeaderAPIKey)
			if err := v.Verify(apiKey, r.Header.Get(HeaderSignature), body); err != nil {
				attrs := []slog.Attr{
					slog.String("status", "rejected"),
					slog.String("cause", err.Error()),
				}
				if errors.Is(err, ErrInvalidAPIKey) {
					attrs = append(attrs, slog.String("api_key", logger.SanitizeLimit(apiKey, 64)))
				} else {
					attrs = append(attrs, slog.String("signature", logger.SanitizeLimit(r.Header.Get(HeaderSignature), 80)))
				}
				logger.Warn(r.Context(), logger.CompAuth, "auth.reject", attrs...)
				writeError(w, http.StatusForbidden, err.Error())
				return
			}

			r.Body = io.NopCloser(bytes.NewReader(body))
			ctx := context.WithValue(r.Context(), rawBodyKey{}, body)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
