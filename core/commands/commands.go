// Package commands maps custom command names to their handlers.
package commands

import (
	"context"

	"github.com/m3rciful/apptbot/core/stream"
)

// Handler advances an invocation in place. The reply sent back to the platform is
// the invocation's message after Handle returns.
type Handler interface {
	Handle(ctx context.Context, inv *stream.Invocation) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, inv *stream.Invocation) error

// Handle calls f.
func (f HandlerFunc) Handle(ctx context.Context, inv *stream.Invocation) error {
	return f(ctx, inv)
}

// Command represents a custom command with its handler and the metadata used to
// register it on the chat platform.
type Command struct {
	Name        string
	Description string
	// Args is the argument hint shown by the platform, e.g. "[description]".
	Args    string
	Set     string
	Handler Handler
}
