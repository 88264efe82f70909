package proxy

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/rcliao/plura-proxy/internal/model"
	"github.com/rcliao/plura-proxy/internal/platform"
	"github.com/rcliao/plura-proxy/internal/store"
)

// ActionResult is what a message action produced.
type ActionResult struct {
	Kind      model.ActionKind     `json:"kind"`
	MessageID string               `json:"message_id"`
	Record    *model.ProxyRecord   `json:"record,omitempty"`
	Member    *model.MemberProfile `json:"member,omitempty"`
	// Warning is set when the action took effect on the platform but the
	// ledger may not reflect it.
	Warning string `json:"warning,omitempty"`
}

// Dispatch runs a message action. Every kind fails with ErrNotFound when the
// message has no record and ErrNotAuthorized when the acting user does not
// own it.
func (e *Engine) Dispatch(ctx context.Context, a model.MessageAction) (ActionResult, error) {
	if err := e.admit(); err != nil {
		return ActionResult{Kind: a.Kind, MessageID: a.MessageID}, err
	}
	defer e.inflight.Done()

	start := time.Now()
	res, err := e.dispatch(ctx, a)
	e.metrics.action(string(a.Kind), err, time.Since(start).Seconds())
	return res, err
}

func (e *Engine) dispatch(ctx context.Context, a model.MessageAction) (ActionResult, error) {
	res := ActionResult{Kind: a.Kind, MessageID: a.MessageID}
	if _, err := model.ParseActionKind(string(a.Kind)); err != nil {
		return res, fmt.Errorf("%w: %v", ErrInvalidAction, err)
	}

	rec, err := e.authorize(ctx, a)
	if err != nil {
		return res, err
	}
	log := e.log.With().
		Str("action", string(a.Kind)).
		Str("message_id", rec.MessageID).
		Str("user_id", rec.UserID).
		Logger()

	switch a.Kind {
	case model.ActionInfo:
		return e.info(ctx, res, rec)
	case model.ActionEdit:
		return e.edit(ctx, log, res, rec, a.NewText)
	case model.ActionDelete:
		return e.delete(ctx, log, res, rec)
	default:
		return e.reproxy(ctx, log, res, rec, a.NewMemberID)
	}
}

// authorize loads the record and checks that the acting user owns it.
func (e *Engine) authorize(ctx context.Context, a model.MessageAction) (*model.ProxyRecord, error) {
	rec, err := e.ledger.Get(ctx, a.MessageID)
	if err != nil {
		return nil, fmt.Errorf("message %s: %w", a.MessageID, err)
	}
	if rec.UserID != a.ActingUserID {
		return nil, fmt.Errorf("message %s: %w", a.MessageID, ErrNotAuthorized)
	}
	return rec, nil
}

func (e *Engine) info(ctx context.Context, res ActionResult, rec *model.ProxyRecord) (ActionResult, error) {
	res.Record = rec
	member, err := e.registry.GetMember(ctx, rec.MemberID)
	if err != nil {
		return res, fmt.Errorf("member %s: %w", rec.MemberID, err)
	}
	p := member.Profile()
	res.Member = &p
	return res, nil
}

func (e *Engine) edit(ctx context.Context, log zerolog.Logger, res ActionResult, rec *model.ProxyRecord, text string) (ActionResult, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return res, fmt.Errorf("%w: edit needs new text", ErrInvalidAction)
	}

	opCtx, cancel := e.detach(ctx)
	defer cancel()

	if err := e.adapter.EditMessage(opCtx, rec.ChannelID, rec.MessageID, text); err != nil {
		if errors.Is(err, platform.ErrAlreadyDeleted) {
			e.forget(opCtx, log, rec.MessageID)
			return res, fmt.Errorf("message %s: %w", rec.MessageID, ErrNotFound)
		}
		return res, fmt.Errorf("edit message: %w", err)
	}

	setText := func(r *model.ProxyRecord) { r.Text = text }
	updated, err := e.ledger.Update(opCtx, rec.MessageID, rec.Revision, setText)
	if err != nil {
		log.Warn().Err(err).Msg("ledger update after edit failed, retrying")
		// Retry against whatever revision is current now.
		updated, err = e.ledger.Update(opCtx, rec.MessageID, 0, setText)
	}
	if err != nil {
		log.Error().Err(err).Msg("edit applied but ledger not updated")
		res.Warning = "the message was edited but its record may be out of date"
		res.Record = rec
		return res, nil
	}
	res.Record = updated
	return res, nil
}

func (e *Engine) delete(ctx context.Context, log zerolog.Logger, res ActionResult, rec *model.ProxyRecord) (ActionResult, error) {
	opCtx, cancel := e.detach(ctx)
	defer cancel()

	err := e.adapter.DeleteMessage(opCtx, rec.ChannelID, rec.MessageID)
	if err != nil && !errors.Is(err, platform.ErrAlreadyDeleted) {
		return res, fmt.Errorf("delete message: %w", err)
	}
	if err := e.ledger.Delete(opCtx, rec.MessageID); err != nil {
		return res, fmt.Errorf("delete record: %w", err)
	}
	log.Info().Msg("proxied message deleted")
	res.Record = rec
	return res, nil
}

func (e *Engine) reproxy(ctx context.Context, log zerolog.Logger, res ActionResult, rec *model.ProxyRecord, memberID string) (ActionResult, error) {
	if memberID == "" {
		return res, fmt.Errorf("%w: reproxy needs a member", ErrInvalidAction)
	}
	member, err := e.registry.GetMember(ctx, memberID)
	if err != nil {
		return res, fmt.Errorf("member %s: %w", memberID, err)
	}
	if member.UserID != rec.UserID {
		return res, fmt.Errorf("member %s: %w", memberID, ErrNotAuthorized)
	}
	profile := member.Profile()
	res.Member = &profile
	if member.ID == rec.MemberID {
		res.Record = rec
		return res, nil
	}

	opCtx, cancel := e.detach(ctx)
	defer cancel()
	log = log.With().Str("member_id", member.ID).Logger()

	err = e.adapter.EditAuthor(opCtx, rec.ChannelID, rec.MessageID, profile)
	switch {
	case err == nil:
		updated, err := e.ledger.Update(opCtx, rec.MessageID, rec.Revision, func(r *model.ProxyRecord) {
			r.MemberID = member.ID
			r.Origin = model.OriginReproxy
		})
		if err != nil {
			return res, fmt.Errorf("commit reproxy: %w", err)
		}
		log.Info().Msg("message reproxied in place")
		res.Record = updated
		return res, nil
	case errors.Is(err, platform.ErrAlreadyDeleted):
		e.forget(opCtx, log, rec.MessageID)
		return res, fmt.Errorf("message %s: %w", rec.MessageID, ErrNotFound)
	case !errors.Is(err, platform.ErrUnsupported):
		return res, fmt.Errorf("edit author: %w", err)
	}

	return e.repost(opCtx, log, res, rec, profile)
}

// repost reproxies on platforms that cannot change a message's author: post
// the text as the new member, remove the old post, and rekey the record.
func (e *Engine) repost(ctx context.Context, log zerolog.Logger, res ActionResult, rec *model.ProxyRecord, member model.MemberProfile) (ActionResult, error) {
	newID, err := e.adapter.PostAsMember(ctx, rec.ChannelID, member, rec.Text, rec.Attachments)
	if err != nil {
		return res, fmt.Errorf("repost as member: %w", err)
	}

	err = e.adapter.DeleteMessage(ctx, rec.ChannelID, rec.MessageID)
	if err != nil && !errors.Is(err, platform.ErrAlreadyDeleted) {
		// Keep the old post managed and take back the new one.
		if derr := e.adapter.DeleteMessage(ctx, rec.ChannelID, newID); derr != nil && !errors.Is(derr, platform.ErrAlreadyDeleted) {
			log.Error().Err(derr).Str("new_message_id", newID).Msg("could not remove reproxy post")
		}
		return res, fmt.Errorf("delete old post: %w", err)
	}

	next := model.ProxyRecord{
		MessageID:       newID,
		SourceMessageID: rec.SourceMessageID,
		ChannelID:       rec.ChannelID,
		PostedAt:        e.now(),
		UserID:          rec.UserID,
		MemberID:        member.ID,
		Text:            rec.Text,
		Origin:          model.OriginReproxy,
		Attachments:     rec.Attachments,
	}
	replaced, err := e.ledger.Replace(ctx, rec.MessageID, rec.Revision, next)
	if errors.Is(err, store.ErrConcurrentModification) {
		// An edit landed meanwhile: carry its text onto the new post.
		log.Warn().Msg("record changed during reproxy, carrying the latest text")
		replaced, err = e.catchUp(ctx, rec.MessageID, next)
	}
	if err != nil {
		log.Error().Err(err).Str("new_message_id", newID).Msg("reproxy posted but ledger not updated")
		res.Warning = "the message was reproxied but can no longer be managed"
		res.MessageID = newID
		return res, nil
	}

	log.Info().Str("new_message_id", newID).Msg("message reproxied by repost")
	res.MessageID = newID
	res.Record = replaced
	return res, nil
}

// catchUp rekeys the record at whatever revision it holds now, after
// bringing the new post's text in line with it.
func (e *Engine) catchUp(ctx context.Context, oldID string, next model.ProxyRecord) (*model.ProxyRecord, error) {
	cur, err := e.ledger.Get(ctx, oldID)
	if err != nil {
		return nil, err
	}
	if cur.Text != next.Text {
		if err := e.adapter.EditMessage(ctx, next.ChannelID, next.MessageID, cur.Text); err != nil {
			return nil, fmt.Errorf("carry edit to reproxy post: %w", err)
		}
		next.Text = cur.Text
	}
	return e.ledger.Replace(ctx, oldID, cur.Revision, next)
}

// forget drops a record whose platform message no longer exists.
func (e *Engine) forget(ctx context.Context, log zerolog.Logger, messageID string) {
	if err := e.ledger.Delete(ctx, messageID); err != nil {
		log.Warn().Err(err).Msg("could not drop record for vanished message")
		return
	}
	log.Info().Msg("dropped record for vanished message")
}
