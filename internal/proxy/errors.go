package proxy

import (
	"errors"

	"github.com/rcliao/plura-proxy/internal/platform"
	"github.com/rcliao/plura-proxy/internal/store"
)

var (
	// ErrNotFound is returned when a message has no ledger record.
	ErrNotFound = store.ErrNotFound
	// ErrConcurrentModification is returned when a record changed underneath an action.
	ErrConcurrentModification = store.ErrConcurrentModification

	ErrNotAuthorized = errors.New("not authorized")
	ErrShuttingDown  = errors.New("engine is shutting down")
	ErrInvalidAction = errors.New("invalid action")
)

// UserMessage turns an engine error into the short text shown to a user.
func UserMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNotAuthorized):
		return "not your message"
	case errors.Is(err, ErrNotFound):
		return "this message can no longer be managed"
	case errors.Is(err, ErrConcurrentModification):
		return "message changed while you were working on it, try again"
	case errors.Is(err, ErrShuttingDown):
		return "the proxy is restarting, try again in a moment"
	case errors.Is(err, ErrInvalidAction):
		return err.Error()
	case errors.Is(err, platform.ErrForbidden):
		return "the bot is not allowed to do that in this channel"
	default:
		return "something went wrong, try again"
	}
}

func resultLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrNotAuthorized):
		return "not_authorized"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrConcurrentModification):
		return "conflict"
	case errors.Is(err, ErrInvalidAction):
		return "invalid"
	default:
		return "error"
	}
}
