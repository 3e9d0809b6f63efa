package webhook

import (
	"context"
	"io"
	"log/slog"
	"net/http"

	"github.com/m3rciful/apptbot/core/logger"
	"github.com/m3rciful/apptbot/core/stream"
)

// failureText replaces the message when a command handler fails.
const failureText = "invalid command or input"

// Router dispatches an invocation to its command. commands.Registry implements it.
type Router interface {
	Route(ctx context.Context, inv *stream.Invocation) (bool, error)
}

// Handler answers the custom command callback.
type Handler struct {
	router Router
}

// NewHandler returns a Handler dispatching through router.
func NewHandler(router Router) *Handler {
	return &Handler{router: router}
}

// ServeHTTP decodes the callback, runs the matching command and replies with the
// envelope carrying the updated message. Unknown commands are echoed unchanged.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	body, ok := RawBody(ctx)
	if !ok {
		var err error
		if body, err = io.ReadAll(r.Body); err != nil {
			writeError(w, http.StatusBadRequest, "failed to read request body")
			return
		}
	}

	env, err := stream.DecodeEnvelope(body)
	if err != nil {
		logger.Warn(ctx, logger.CompHTTP, "webhook.decode",
			slog.String("status", "rejected"),
			slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
		)
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	ctx = logger.WithInvocation(ctx, env.User.ID, env.Message.Command)
	inv := env.Invocation
	inv.Message = inv.Message.Clone()

	handled, err := h.router.Route(ctx, &inv)
	if !handled {
		logger.Debug(ctx, logger.CompHTTP, "webhook.passthrough", slog.String("outcome", "echo"))
		writeJSON(w, http.StatusOK, env.Body())
		return
	}
	if err != nil {
		inv.Message.Type = stream.TypeError
		inv.Message.Text = failureText
		inv.Message.MML = ""
		inv.Message.Phone = ""
	}

	out, err := env.Encode(inv.Message)
	if err != nil {
		logger.Error(ctx, logger.CompHTTP, "webhook.encode",
			slog.String("status", "fail"),
			slog.String("err", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, out)
}
