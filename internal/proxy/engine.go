// Package proxy drives proxy operations end to end.
//
// A new message moves through
//
//	Received -> Matched -> OriginalSuppressed -> Reposted -> Committed
//
// and may stop at Aborted from any state before Committed. Messages that
// carry no trigger end at NotProxied. Message actions (edit, delete, info,
// reproxy) are looked up in the ledger and authorized against the record's
// owner before touching the platform.
//
// No ledger lock is ever held across a platform call: the ledger is read,
// the platform is called, and the commit write re-checks the record revision.
package proxy

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/rcliao/plura-proxy/internal/model"
	"github.com/rcliao/plura-proxy/internal/platform"
	"github.com/rcliao/plura-proxy/internal/store"
	"github.com/rcliao/plura-proxy/internal/trigger"
)

// State is a step of a proxy operation.
type State string

const (
	StateReceived           State = "received"
	StateMatched            State = "matched"
	StateOriginalSuppressed State = "original_suppressed"
	StateReposted           State = "reposted"
	StateCommitted          State = "committed"
	StateAborted            State = "aborted"
	StateNotProxied         State = "not_proxied"
)

// DefaultTimeout bounds one operation once it has left the caller's context.
const DefaultTimeout = 30 * time.Second

// Outcome describes how a new message was handled.
type Outcome struct {
	State State `json:"state"`
	// Proxied is true when a member post exists for the message.
	Proxied bool `json:"proxied"`
	// Duplicate is true when the message had already been proxied.
	Duplicate bool   `json:"duplicate,omitempty"`
	MessageID string `json:"message_id,omitempty"`
	MemberID  string `json:"member_id,omitempty"`
	// Notified is true when the author was sent their original text after a failure.
	Notified bool `json:"notified,omitempty"`
}

// Options configures an Engine.
type Options struct {
	Registry store.Registry
	Ledger   store.Ledger
	Adapter  platform.Adapter
	Logger   zerolog.Logger
	Metrics  *Metrics
	// Timeout bounds each operation after the match stage. Zero means DefaultTimeout.
	Timeout time.Duration
	// Now is the clock used for record timestamps.
	Now func() time.Time
}

// Engine is the handle passed to every event handler. It is safe for
// concurrent use; Close drains in-flight work.
type Engine struct {
	registry store.Registry
	ledger   store.Ledger
	adapter  platform.Adapter
	log      zerolog.Logger
	metrics  *Metrics
	timeout  time.Duration
	now      func() time.Time

	flight singleflight.Group

	mu       sync.Mutex
	closed   bool
	inflight sync.WaitGroup
}

// New builds an Engine.
func New(opts Options) *Engine {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.Now == nil {
		opts.Now = func() time.Time { return time.Now().UTC() }
	}
	return &Engine{
		registry: opts.Registry,
		ledger:   opts.Ledger,
		adapter:  opts.Adapter,
		log:      opts.Logger.With().Str("component", "proxy").Logger(),
		metrics:  opts.Metrics,
		timeout:  opts.Timeout,
		now:      opts.Now,
	}
}

// admit registers a unit of work, or refuses it once Close has been called.
func (e *Engine) admit() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return ErrShuttingDown
	}
	e.inflight.Add(1)
	return nil
}

// Close stops accepting work and waits for in-flight operations to reach a
// terminal state, or for ctx to end.
func (e *Engine) Close(ctx context.Context) error {
	e.mu.Lock()
	e.closed = true
	e.mu.Unlock()

	done := make(chan struct{})
	go func() {
		e.inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("drain in-flight operations: %w", ctx.Err())
	}
}

// detach returns a context that survives the caller's cancellation, so that
// an operation which has started mutating the platform can finish.
func (e *Engine) detach(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), e.timeout)
}

// HandleNewMessage matches msg against the author's triggers and, on a
// match, replaces it with a post by the selected member.
func (e *Engine) HandleNewMessage(ctx context.Context, msg model.NewMessage) (Outcome, error) {
	if err := e.admit(); err != nil {
		return Outcome{State: StateReceived}, err
	}
	defer e.inflight.Done()

	if msg.MessageID == "" {
		return Outcome{State: StateReceived}, fmt.Errorf("%w: message has no id", ErrInvalidAction)
	}

	start := time.Now()
	v, err, _ := e.flight.Do(msg.ChannelID+"/"+msg.MessageID, func() (any, error) {
		return e.handle(ctx, msg)
	})
	out := v.(Outcome)
	e.metrics.outcome(out.State, time.Since(start).Seconds())
	return out, err
}

func (e *Engine) handle(ctx context.Context, msg model.NewMessage) (Outcome, error) {
	log := e.log.With().
		Str("user_id", msg.UserID).
		Str("channel_id", msg.ChannelID).
		Str("source_id", msg.MessageID).
		Logger()

	rec, err := e.ledger.GetBySource(ctx, msg.MessageID)
	if err == nil {
		log.Debug().Str("message_id", rec.MessageID).Msg("duplicate delivery")
		return Outcome{
			State:     StateCommitted,
			Proxied:   true,
			Duplicate: true,
			MessageID: rec.MessageID,
			MemberID:  rec.MemberID,
		}, nil
	}
	if errors.Is(err, store.ErrDeleted) {
		// Proxied before and deleted by its owner since; never bring it back.
		log.Debug().Msg("redelivery of a deleted proxy")
		return Outcome{State: StateNotProxied, Duplicate: true}, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return Outcome{State: StateReceived}, fmt.Errorf("check duplicate: %w", err)
	}

	entries, err := e.registry.ListTriggersForUser(ctx, msg.UserID)
	if err != nil {
		return Outcome{State: StateReceived}, fmt.Errorf("load triggers: %w", err)
	}
	match, ok := trigger.Match(msg.Text, entries)
	if !ok {
		return Outcome{State: StateNotProxied}, nil
	}

	member, err := e.registry.GetMember(ctx, match.MemberID)
	if errors.Is(err, store.ErrNotFound) {
		// Deleted between listing triggers and now.
		log.Debug().Str("member_id", match.MemberID).Msg("matched member vanished")
		return Outcome{State: StateNotProxied}, nil
	}
	if err != nil {
		return Outcome{State: StateReceived}, fmt.Errorf("load member: %w", err)
	}

	opCtx, cancel := e.detach(ctx)
	defer cancel()
	return e.replace(opCtx, log, msg, match, member.Profile())
}

// replace runs the platform half of a proxy operation: suppress the
// original, post as the member, commit the record.
func (e *Engine) replace(ctx context.Context, log zerolog.Logger, msg model.NewMessage, match model.TriggerMatch, member model.MemberProfile) (Outcome, error) {
	out := Outcome{State: StateMatched, MemberID: member.ID}
	log = log.With().Str("member_id", member.ID).Logger()

	err := e.adapter.DeleteMessage(ctx, msg.ChannelID, msg.MessageID)
	switch {
	case err == nil:
	case errors.Is(err, platform.ErrAlreadyDeleted):
		log.Debug().Msg("original already gone")
	default:
		// The original is still visible, so nothing is lost.
		log.Warn().Err(err).Msg("could not suppress original")
		out.State = StateAborted
		return out, fmt.Errorf("suppress original: %w", err)
	}
	out.State = StateOriginalSuppressed

	postedID, err := e.adapter.PostAsMember(ctx, msg.ChannelID, member, match.Payload, msg.Attachments)
	if err != nil {
		out.State = StateAborted
		out.Notified = e.restore(ctx, log, msg, member, err)
		return out, fmt.Errorf("post as member: %w", err)
	}
	out.State = StateReposted
	out.MessageID = postedID
	out.Proxied = true

	_, err = e.ledger.Insert(ctx, model.ProxyRecord{
		MessageID:       postedID,
		SourceMessageID: msg.MessageID,
		ChannelID:       msg.ChannelID,
		PostedAt:        e.now(),
		UserID:          msg.UserID,
		MemberID:        member.ID,
		Text:            match.Payload,
		Origin:          model.OriginDirect,
		Attachments:     msg.Attachments,
	})
	if errors.Is(err, store.ErrDuplicateMessageID) {
		// Another worker recorded this source message first; take our post back.
		prev, gerr := e.ledger.GetBySource(ctx, msg.MessageID)
		if (gerr == nil && prev.MessageID != postedID) || errors.Is(gerr, store.ErrDeleted) {
			if derr := e.adapter.DeleteMessage(ctx, msg.ChannelID, postedID); derr != nil && !errors.Is(derr, platform.ErrAlreadyDeleted) {
				log.Error().Err(derr).Str("message_id", postedID).Msg("could not remove duplicate post")
			}
			if gerr != nil {
				return Outcome{State: StateNotProxied, Duplicate: true}, nil
			}
			return Outcome{
				State:     StateCommitted,
				Proxied:   true,
				Duplicate: true,
				MessageID: prev.MessageID,
				MemberID:  prev.MemberID,
			}, nil
		}
	}
	if err != nil {
		// The post is visible but unmanaged; actions on it will report NotFound.
		log.Error().Err(err).Str("message_id", postedID).Msg("ledger commit failed")
		out.State = StateAborted
		return out, fmt.Errorf("commit record: %w", err)
	}

	out.State = StateCommitted
	log.Info().Str("message_id", postedID).Msg("message proxied")
	return out, nil
}

// restore hands the author their original text after the repost failed.
// It reports whether the notification was delivered.
func (e *Engine) restore(ctx context.Context, log zerolog.Logger, msg model.NewMessage, member model.MemberProfile, cause error) bool {
	text := fmt.Sprintf("Your message could not be posted as %s. Here is what you wrote:\n%s", member.Name, msg.Text)
	if err := e.adapter.Notify(ctx, msg.ChannelID, msg.UserID, text); err != nil {
		log.Error().
			Stack().
			Err(err).
			AnErr("cause", cause).
			Str("lost_text", msg.Text).
			Int("lost_attachments", len(msg.Attachments)).
			Msg("repost failed and author could not be notified")
		return false
	}
	log.Warn().Err(cause).Msg("repost failed, author notified")
	return true
}
