// Package platform talks to the chat platform on behalf of the proxy engine.
//
// Callers match failures against the sentinel kinds with errors.Is:
//
//	if errors.Is(err, platform.ErrAlreadyDeleted) { ... }
//
// and read the platform's own code with errors.As on *Error.
package platform

import (
	"context"
	"errors"
	"fmt"

	"github.com/rcliao/plura-proxy/internal/model"
)

var (
	ErrAlreadyDeleted = errors.New("message already deleted")
	ErrForbidden      = errors.New("forbidden")
	ErrTransient      = errors.New("transient platform failure")
	ErrPermanent      = errors.New("platform request failed")
	ErrUnsupported    = errors.New("unsupported by platform")

	// ErrRateLimited is the one transient failure that guarantees the
	// platform did nothing, so non-idempotent calls may retry it.
	ErrRateLimited = fmt.Errorf("rate limited: %w", ErrTransient)
)

// Error is a failed platform call.
type Error struct {
	// Op is the platform method, e.g. "chat.delete".
	Op string
	// Code is the platform's error code, if it sent one.
	Code string
	// Kind is one of the package sentinels.
	Kind error
	// Err is the underlying transport error, if any.
	Err error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("platform %s: %v", e.Op, e.Kind)
	if e.Code != "" {
		msg += " (" + e.Code + ")"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// Adapter is the only component that mutates state on the chat platform.
// Implementations absorb transient retries or are wrapped in Retrying.
type Adapter interface {
	// PostAsMember posts text under the member's display identity and
	// returns the new message id.
	PostAsMember(ctx context.Context, channelID string, member model.MemberProfile, text string, attachments []model.Attachment) (string, error)

	// DeleteMessage removes a message. Returns ErrAlreadyDeleted when it is gone.
	DeleteMessage(ctx context.Context, channelID, messageID string) error

	// EditMessage replaces a message's text.
	EditMessage(ctx context.Context, channelID, messageID, text string) error

	// EditAuthor changes the displayed identity of a posted message, or
	// returns ErrUnsupported.
	EditAuthor(ctx context.Context, channelID, messageID string, member model.MemberProfile) error

	// Notify shows text to a single user in a channel.
	Notify(ctx context.Context, channelID, userID, text string) error
}
