package platform

import (
	"context"
	"errors"
	"time"

	backoff "github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/rcliao/plura-proxy/internal/model"
)

// RetryConfig bounds retries of transient failures.
type RetryConfig struct {
	MaxRetries      int
	InitialInterval time.Duration
	MaxInterval     time.Duration
	RPS             float64
	Burst           int
}

// Retrying wraps an Adapter with rate limiting and bounded retries of
// ErrTransient. Posts are not idempotent and only retry ErrRateLimited.
// Callers only see the final result.
type Retrying struct {
	next    Adapter
	cfg     RetryConfig
	limiter *rate.Limiter
	log     zerolog.Logger
}

// NewRetrying applies zero-value defaults and wraps next.
func NewRetrying(next Adapter, cfg RetryConfig, log zerolog.Logger) *Retrying {
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.InitialInterval <= 0 {
		cfg.InitialInterval = 250 * time.Millisecond
	}
	if cfg.MaxInterval <= 0 {
		cfg.MaxInterval = 5 * time.Second
	}
	if cfg.RPS <= 0 {
		cfg.RPS = 5
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 10
	}
	return &Retrying{
		next:    next,
		cfg:     cfg,
		limiter: rate.NewLimiter(rate.Limit(cfg.RPS), cfg.Burst),
		log:     log,
	}
}

func (r *Retrying) policy(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = r.cfg.InitialInterval
	b.MaxInterval = r.cfg.MaxInterval
	b.MaxElapsedTime = 0
	return backoff.WithContext(backoff.WithMaxRetries(b, uint64(r.cfg.MaxRetries)), ctx)
}

func (r *Retrying) do(ctx context.Context, op string, fn func() error) error {
	return r.doIf(ctx, op, ErrTransient, fn)
}

// doIf retries fn while its error matches retryable.
func (r *Retrying) doIf(ctx context.Context, op string, retryable error, fn func() error) error {
	attempt := 0
	return backoff.RetryNotify(func() error {
		attempt++
		if err := r.limiter.Wait(ctx); err != nil {
			return backoff.Permanent(err)
		}
		err := fn()
		if err != nil && !errors.Is(err, retryable) {
			return backoff.Permanent(err)
		}
		return err
	}, r.policy(ctx), func(err error, wait time.Duration) {
		r.log.Warn().Err(err).Str("op", op).Int("attempt", attempt).Dur("wait", wait).Msg("platform call failed, retrying")
	})
}

func (r *Retrying) PostAsMember(ctx context.Context, channelID string, member model.MemberProfile, text string, attachments []model.Attachment) (string, error) {
	var id string
	// A post that timed out may still have landed; retrying would post twice.
	err := r.doIf(ctx, "post", ErrRateLimited, func() error {
		var err error
		id, err = r.next.PostAsMember(ctx, channelID, member, text, attachments)
		return err
	})
	return id, err
}

func (r *Retrying) DeleteMessage(ctx context.Context, channelID, messageID string) error {
	return r.do(ctx, "delete", func() error {
		return r.next.DeleteMessage(ctx, channelID, messageID)
	})
}

func (r *Retrying) EditMessage(ctx context.Context, channelID, messageID, text string) error {
	return r.do(ctx, "edit", func() error {
		return r.next.EditMessage(ctx, channelID, messageID, text)
	})
}

func (r *Retrying) EditAuthor(ctx context.Context, channelID, messageID string, member model.MemberProfile) error {
	return r.do(ctx, "edit_author", func() error {
		return r.next.EditAuthor(ctx, channelID, messageID, member)
	})
}

func (r *Retrying) Notify(ctx context.Context, channelID, userID, text string) error {
	return r.do(ctx, "notify", func() error {
		return r.next.Notify(ctx, channelID, userID, text)
	})
}
